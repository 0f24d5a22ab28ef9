package geometry

import (
	"math"

	"github.com/go-gl/mathgl/mgl64"
)

// TaperedCylinder is a cone frustum with radius Radius1 at X1 and Radius2 at X2
type TaperedCylinder struct {
	X1      mgl64.Vec3
	X2      mgl64.Vec3
	Radius1 float64
	Radius2 float64
}

func NewTaperedCylinder(x1, x2 mgl64.Vec3, radius1, radius2 float64) *TaperedCylinder {
	return &TaperedCylinder{X1: x1, X2: x2, Radius1: radius1, Radius2: radius2}
}

func (c *TaperedCylinder) Type() ObjectType {
	return ObjectTypeTaperedCylinder
}

func (c *TaperedCylinder) IsConvex() bool {
	return true
}

func (c *TaperedCylinder) axis() mgl64.Vec3 {
	return (&Cylinder{X1: c.X1, X2: c.X2}).Axis()
}

// closestOnSegment2D returns the closest point of segment a-b to p in the (axial, radial) plane
func closestOnSegment2D(p, a, b [2]float64) [2]float64 {
	ab := [2]float64{b[0] - a[0], b[1] - a[1]}
	lengthSqr := ab[0]*ab[0] + ab[1]*ab[1]
	if lengthSqr < 1e-24 {
		return a
	}
	t := ((p[0]-a[0])*ab[0] + (p[1]-a[1])*ab[1]) / lengthSqr
	t = mgl64.Clamp(t, 0, 1)

	return [2]float64{a[0] + ab[0]*t, a[1] + ab[1]*t}
}

// PhiWithNormal works in the half plane spanned by the axis and the radial direction of x,
// where the frustum is the trapezoid (0,0) (0,R1) (L,R2) (L,0).
func (c *TaperedCylinder) PhiWithNormal(x mgl64.Vec3) (float64, mgl64.Vec3) {
	axis := c.axis()
	length := c.X2.Sub(c.X1).Len()
	h, r, radialDir := (&Cylinder{X1: c.X1, X2: c.X2}).decompose(x)
	p := [2]float64{h, r}

	type edge struct {
		a, b    [2]float64
		outward [2]float64
	}
	slope := [2]float64{-(c.Radius2 - c.Radius1), length}
	slopeLength := math.Hypot(slope[0], slope[1])
	edges := [3]edge{
		{a: [2]float64{0, 0}, b: [2]float64{0, c.Radius1}, outward: [2]float64{-1, 0}},
		{a: [2]float64{0, c.Radius1}, b: [2]float64{length, c.Radius2}, outward: [2]float64{slope[0] / slopeLength, slope[1] / slopeLength}},
		{a: [2]float64{length, c.Radius2}, b: [2]float64{length, 0}, outward: [2]float64{1, 0}},
	}

	best := math.MaxFloat64
	var bestEdge edge
	var bestPoint [2]float64
	for _, e := range edges {
		q := closestOnSegment2D(p, e.a, e.b)
		if d := math.Hypot(p[0]-q[0], p[1]-q[1]); d < best {
			best = d
			bestEdge = e
			bestPoint = q
		}
	}

	inside := h >= 0 && h <= length && r <= c.Radius1+(c.Radius2-c.Radius1)*h/math.Max(length, Epsilon)
	to3D := func(n [2]float64) mgl64.Vec3 {
		return axis.Mul(n[0]).Add(radialDir.Mul(n[1]))
	}

	if inside || best < 1e-12 {
		return -best, to3D(bestEdge.outward)
	}

	n := [2]float64{(p[0] - bestPoint[0]) / best, (p[1] - bestPoint[1]) / best}

	return best, to3D(n)
}

func (c *TaperedCylinder) BoundingBox() AABB {
	a := (&Cylinder{X1: c.X1, X2: c.X1.Add(c.axis().Mul(Epsilon)), Radius: c.Radius1}).BoundingBox()
	b := (&Cylinder{X1: c.X2.Sub(c.axis().Mul(Epsilon)), X2: c.X2, Radius: c.Radius2}).BoundingBox()

	return a.Grow(b)
}

func (c *TaperedCylinder) Support(direction mgl64.Vec3) mgl64.Vec3 {
	axis := c.axis()
	radial := direction.Sub(axis.Mul(direction.Dot(axis)))
	var radialDir mgl64.Vec3
	if length := radial.Len(); length > 1e-12 {
		radialDir = radial.Mul(1 / length)
	}

	a := c.X1.Add(radialDir.Mul(c.Radius1))
	b := c.X2.Add(radialDir.Mul(c.Radius2))
	if b.Dot(direction) > a.Dot(direction) {
		return b
	}

	return a
}

func (c *TaperedCylinder) FindClosestIntersection(start, end mgl64.Vec3, thickness float64) (mgl64.Vec3, bool) {
	if startInside(c, start, thickness) {
		return start, true
	}

	return sphereTrace(c, start, end, thickness)
}

// TaperedCapsule is a tapered cylinder capped by spheres of matching radii,
// answered through the union of those three parts.
type TaperedCapsule struct {
	x1, x2           mgl64.Vec3
	radius1, radius2 float64
	parts            *Union
}

func NewTaperedCapsule(x1, x2 mgl64.Vec3, radius1, radius2 float64) *TaperedCapsule {
	return &TaperedCapsule{
		x1:      x1,
		x2:      x2,
		radius1: radius1,
		radius2: radius2,
		parts: NewUnion(
			NewTaperedCylinder(x1, x2, radius1, radius2),
			NewSphere(x1, radius1),
			NewSphere(x2, radius2),
		),
	}
}

func (c *TaperedCapsule) X1() mgl64.Vec3 {
	return c.x1
}

func (c *TaperedCapsule) X2() mgl64.Vec3 {
	return c.x2
}

func (c *TaperedCapsule) Radius1() float64 {
	return c.radius1
}

func (c *TaperedCapsule) Radius2() float64 {
	return c.radius2
}

func (c *TaperedCapsule) Type() ObjectType {
	return ObjectTypeTaperedCapsule
}

func (c *TaperedCapsule) IsConvex() bool {
	return false
}

func (c *TaperedCapsule) PhiWithNormal(x mgl64.Vec3) (float64, mgl64.Vec3) {
	return c.parts.PhiWithNormal(x)
}

func (c *TaperedCapsule) BoundingBox() AABB {
	return c.parts.BoundingBox()
}

func (c *TaperedCapsule) FindClosestIntersection(start, end mgl64.Vec3, thickness float64) (mgl64.Vec3, bool) {
	return c.parts.FindClosestIntersection(start, end, thickness)
}
