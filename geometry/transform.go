package geometry

import "github.com/go-gl/mathgl/mgl64"

// Transform is a rigid transform: a rotation followed by a translation
type Transform struct {
	Position mgl64.Vec3
	Rotation mgl64.Quat
}

// NewTransform creates an identity transform
func NewTransform() Transform {
	return Transform{
		Position: mgl64.Vec3{0, 0, 0},
		Rotation: mgl64.QuatIdent(),
	}
}

// NewTransformAt creates a transform with the given position and rotation
func NewTransformAt(position mgl64.Vec3, rotation mgl64.Quat) Transform {
	return Transform{Position: position, Rotation: rotation.Normalize()}
}

// TransformPosition maps a local point into the parent frame
func (t Transform) TransformPosition(local mgl64.Vec3) mgl64.Vec3 {
	return t.Rotation.Rotate(local).Add(t.Position)
}

// InverseTransformPosition maps a parent-frame point into the local frame
func (t Transform) InverseTransformPosition(world mgl64.Vec3) mgl64.Vec3 {
	return t.Rotation.Conjugate().Rotate(world.Sub(t.Position))
}

func (t Transform) TransformVector(local mgl64.Vec3) mgl64.Vec3 {
	return t.Rotation.Rotate(local)
}

func (t Transform) InverseTransformVector(world mgl64.Vec3) mgl64.Vec3 {
	return t.Rotation.Conjugate().Rotate(world)
}

// Mul composes two transforms: the result applies other first, then t
func (t Transform) Mul(other Transform) Transform {
	return Transform{
		Position: t.TransformPosition(other.Position),
		Rotation: t.Rotation.Mul(other.Rotation).Normalize(),
	}
}

func (t Transform) Inverse() Transform {
	inv := t.Rotation.Conjugate()

	return Transform{
		Position: inv.Rotate(t.Position.Mul(-1)),
		Rotation: inv,
	}
}

// IsIdentity reports whether t leaves every point unchanged (within Epsilon)
func (t Transform) IsIdentity() bool {
	return t.Position.Len() < Epsilon && t.Rotation.OrientationEqualThreshold(mgl64.QuatIdent(), Epsilon)
}

// ApproxEqual compares positions and orientations within threshold
func (t Transform) ApproxEqual(other Transform, threshold float64) bool {
	return t.Position.ApproxEqualThreshold(other.Position, threshold) &&
		t.Rotation.OrientationEqualThreshold(other.Rotation, threshold)
}
