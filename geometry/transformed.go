package geometry

import (
	"github.com/go-gl/mathgl/mgl64"
)

// Transformed places an inner object under a rigid transform.
// The wrapper exclusively owns its inner object: WithTransform hands the object over
// to a new wrapper and the old one must not be used afterwards.
type Transformed struct {
	object    ImplicitObject
	transform Transform
}

func NewTransformed(object ImplicitObject, transform Transform) *Transformed {
	return &Transformed{object: object, transform: transform}
}

func (t *Transformed) Object() ImplicitObject {
	return t.object
}

func (t *Transformed) Transform() Transform {
	return t.transform
}

// WithTransform moves the inner object into a new wrapper with a different transform
func (t *Transformed) WithTransform(transform Transform) *Transformed {
	return &Transformed{object: t.object, transform: transform}
}

func (t *Transformed) Type() ObjectType {
	return ObjectTypeTransformed
}

func (t *Transformed) IsConvex() bool {
	return t.object.IsConvex()
}

func (t *Transformed) PhiWithNormal(x mgl64.Vec3) (float64, mgl64.Vec3) {
	phi, normal := t.object.PhiWithNormal(t.transform.InverseTransformPosition(x))

	return phi, t.transform.TransformVector(normal)
}

func (t *Transformed) BoundingBox() AABB {
	return t.object.BoundingBox().Transformed(t.transform)
}

func (t *Transformed) FindClosestIntersection(start, end mgl64.Vec3, thickness float64) (mgl64.Vec3, bool) {
	point, ok := t.object.FindClosestIntersection(
		t.transform.InverseTransformPosition(start),
		t.transform.InverseTransformPosition(end),
		thickness,
	)
	if !ok {
		return mgl64.Vec3{}, false
	}

	return t.transform.TransformPosition(point), true
}

// Support is only meaningful when the inner object is a SupportObject
func (t *Transformed) Support(direction mgl64.Vec3) mgl64.Vec3 {
	inner, ok := t.object.(SupportObject)
	if !ok {
		return t.transform.Position
	}

	return t.transform.TransformPosition(inner.Support(t.transform.InverseTransformVector(direction)))
}

// AsSupport returns obj as a SupportObject when its whole hierarchy can provide one
func AsSupport(obj ImplicitObject) (SupportObject, bool) {
	if t, ok := obj.(*Transformed); ok {
		if _, inner := AsSupport(t.object); inner {
			return t, true
		}
		return nil, false
	}
	if u, ok := obj.(*Union); ok && len(u.Objects) == 1 {
		return AsSupport(u.Objects[0])
	}

	s, ok := obj.(SupportObject)

	return s, ok
}
