package geometry

import (
	"github.com/go-gl/mathgl/mgl64"
)

// Capsule is a cylinder capped by two spheres. Every distance query is answered by
// the union of those three parts so that normals stay continuous at the cap boundary.
type Capsule struct {
	x1, x2 mgl64.Vec3
	radius float64
	parts  *Union
}

func NewCapsule(x1, x2 mgl64.Vec3, radius float64) *Capsule {
	return &Capsule{
		x1:     x1,
		x2:     x2,
		radius: radius,
		parts: NewUnion(
			NewCylinder(x1, x2, radius),
			NewSphere(x1, radius),
			NewSphere(x2, radius),
		),
	}
}

func (c *Capsule) X1() mgl64.Vec3 {
	return c.x1
}

func (c *Capsule) X2() mgl64.Vec3 {
	return c.x2
}

func (c *Capsule) Radius() float64 {
	return c.radius
}

func (c *Capsule) Height() float64 {
	return c.x2.Sub(c.x1).Len()
}

func (c *Capsule) Type() ObjectType {
	return ObjectTypeCapsule
}

func (c *Capsule) IsConvex() bool {
	return true
}

func (c *Capsule) PhiWithNormal(x mgl64.Vec3) (float64, mgl64.Vec3) {
	return c.parts.PhiWithNormal(x)
}

func (c *Capsule) BoundingBox() AABB {
	return c.parts.BoundingBox()
}

func (c *Capsule) FindClosestIntersection(start, end mgl64.Vec3, thickness float64) (mgl64.Vec3, bool) {
	return c.parts.FindClosestIntersection(start, end, thickness)
}

// Support of the convex hull of both end spheres
func (c *Capsule) Support(direction mgl64.Vec3) mgl64.Vec3 {
	a := c.parts.Objects[1].(*Sphere).Support(direction)
	b := c.parts.Objects[2].(*Sphere).Support(direction)
	if b.Dot(direction) > a.Dot(direction) {
		return b
	}

	return a
}
