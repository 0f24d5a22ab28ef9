package physinterface

import (
	"errors"
	"fmt"
	"math"

	"github.com/akmonengine/apeiron/geometry"
	"github.com/go-gl/mathgl/mgl64"
)

var (
	// ErrInvalidHandle is returned for unknown or released body, constraint and shape handles
	ErrInvalidHandle = errors.New("invalid handle")
	// ErrUnsupportedOperation marks queries this engine does not implement for the given shapes
	ErrUnsupportedOperation = errors.New("unsupported operation")
	// ErrNoIntersection is returned by a query that ran and found nothing
	ErrNoIntersection = errors.New("no intersection")
	ErrInvalidInput   = errors.New("invalid input")
)

func invalidInput(format string, args ...any) error {
	return fmt.Errorf(format+": %w", append(args, ErrInvalidInput)...)
}

func finite(values ...float64) bool {
	for _, v := range values {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return false
		}
	}

	return true
}

func finiteVec3(v mgl64.Vec3) bool {
	return finite(v[0], v[1], v[2])
}

// validateTransform rejects non-finite poses and normalizes the rotation
func validateTransform(t geometry.Transform) (geometry.Transform, error) {
	if !finiteVec3(t.Position) {
		return t, invalidInput("position %v", t.Position)
	}
	if !finite(t.Rotation.W) || !finiteVec3(t.Rotation.V) || t.Rotation.Len() < 1e-8 {
		return t, invalidInput("rotation %v", t.Rotation)
	}
	t.Rotation = t.Rotation.Normalize()

	return t, nil
}

func validateMass(mass float64) error {
	if !finite(mass) || mass <= 0 {
		return invalidInput("mass %v", mass)
	}

	return nil
}
