package geometry

import (
	"github.com/go-gl/mathgl/mgl64"
)

// Epsilon is the tolerance used when deciding if a point lies on a surface
const Epsilon = 1e-4

// ObjectType represents the type of an implicit object
type ObjectType int

const (
	ObjectTypeSphere ObjectType = iota
	ObjectTypeBox
	ObjectTypePlane
	ObjectTypeCylinder
	ObjectTypeCapsule
	ObjectTypeTaperedCylinder
	ObjectTypeTaperedCapsule
	ObjectTypeUnion
	ObjectTypeTransformed
	ObjectTypeLevelSet
)

func (t ObjectType) String() string {
	switch t {
	case ObjectTypeSphere:
		return "Sphere"
	case ObjectTypeBox:
		return "Box"
	case ObjectTypePlane:
		return "Plane"
	case ObjectTypeCylinder:
		return "Cylinder"
	case ObjectTypeCapsule:
		return "Capsule"
	case ObjectTypeTaperedCylinder:
		return "TaperedCylinder"
	case ObjectTypeTaperedCapsule:
		return "TaperedCapsule"
	case ObjectTypeUnion:
		return "Union"
	case ObjectTypeTransformed:
		return "Transformed"
	case ObjectTypeLevelSet:
		return "LevelSet"
	}

	return "Unknown"
}

// ImplicitObject is a shape described by its signed distance field.
// Phi is negative inside, zero on the surface and positive outside.
// All queries are expressed in the object's local space.
type ImplicitObject interface {
	Type() ObjectType
	// PhiWithNormal returns the signed distance at x and the outward surface normal
	PhiWithNormal(x mgl64.Vec3) (float64, mgl64.Vec3)
	BoundingBox() AABB
	// FindClosestIntersection returns the first point along start->end that lies within
	// thickness of the surface
	FindClosestIntersection(start, end mgl64.Vec3, thickness float64) (mgl64.Vec3, bool)
	IsConvex() bool
}

// SupportObject is implemented by convex objects usable by GJK/EPA
type SupportObject interface {
	ImplicitObject
	// Support returns the furthest local point in direction
	Support(direction mgl64.Vec3) mgl64.Vec3
}

// SignedDistance returns only the phi part of PhiWithNormal
func SignedDistance(obj ImplicitObject, x mgl64.Vec3) float64 {
	phi, _ := obj.PhiWithNormal(x)

	return phi
}

// Normal returns only the normal part of PhiWithNormal
func Normal(obj ImplicitObject, x mgl64.Vec3) mgl64.Vec3 {
	_, normal := obj.PhiWithNormal(x)

	return normal
}

// maxTraceSteps bounds sphere tracing for objects without a closed-form intersection
const maxTraceSteps = 256

// sphereTrace marches from start towards end using the distance field as a safe step.
func sphereTrace(obj ImplicitObject, start, end mgl64.Vec3, thickness float64) (mgl64.Vec3, bool) {
	ray := end.Sub(start)
	length := ray.Len()
	if length < Epsilon {
		if SignedDistance(obj, start) <= thickness+Epsilon {
			return start, true
		}
		return mgl64.Vec3{}, false
	}
	dir := ray.Mul(1 / length)

	distance := 0.0
	for step := 0; step < maxTraceSteps; step++ {
		current := start.Add(dir.Mul(distance))
		phi := SignedDistance(obj, current) - thickness
		if phi <= Epsilon {
			return current, true
		}
		distance += phi
		if distance > length {
			break
		}
	}

	return mgl64.Vec3{}, false
}

// startInside handles the common early-out of every intersection routine
func startInside(obj ImplicitObject, start mgl64.Vec3, thickness float64) bool {
	return SignedDistance(obj, start) <= thickness+Epsilon
}

// orthonormal returns any unit vector perpendicular to v
func orthonormal(v mgl64.Vec3) mgl64.Vec3 {
	if v.X()*v.X() < 0.5 {
		return v.Cross(mgl64.Vec3{1, 0, 0}).Normalize()
	}

	return v.Cross(mgl64.Vec3{0, 1, 0}).Normalize()
}
