package geometry

import (
	"math"

	"github.com/go-gl/mathgl/mgl64"
)

// Sphere represents a spherical implicit object
type Sphere struct {
	Center mgl64.Vec3
	Radius float64
}

func NewSphere(center mgl64.Vec3, radius float64) *Sphere {
	return &Sphere{Center: center, Radius: radius}
}

func (s *Sphere) Type() ObjectType {
	return ObjectTypeSphere
}

func (s *Sphere) IsConvex() bool {
	return true
}

func (s *Sphere) PhiWithNormal(x mgl64.Vec3) (float64, mgl64.Vec3) {
	delta := x.Sub(s.Center)
	length := delta.Len()
	if length < Epsilon {
		// any direction is valid at the center
		return -s.Radius, mgl64.Vec3{0, 0, 1}
	}

	return length - s.Radius, delta.Mul(1 / length)
}

func (s *Sphere) BoundingBox() AABB {
	r := mgl64.Vec3{s.Radius, s.Radius, s.Radius}

	return AABB{Min: s.Center.Sub(r), Max: s.Center.Add(r)}
}

func (s *Sphere) Support(direction mgl64.Vec3) mgl64.Vec3 {
	length := direction.Len()
	if length < 1e-12 {
		return s.Center.Add(mgl64.Vec3{s.Radius, 0, 0})
	}

	return s.Center.Add(direction.Mul(s.Radius / length))
}

// FindClosestIntersection solves |start + t*(end-start) - center| = radius + thickness
func (s *Sphere) FindClosestIntersection(start, end mgl64.Vec3, thickness float64) (mgl64.Vec3, bool) {
	if startInside(s, start, thickness) {
		return start, true
	}

	ray := end.Sub(start)
	length := ray.Len()
	if length < Epsilon {
		return mgl64.Vec3{}, false
	}
	dir := ray.Mul(1 / length)
	radius := s.Radius + thickness

	toStart := start.Sub(s.Center)
	b := toStart.Dot(dir)
	c := toStart.LenSqr() - radius*radius
	discriminant := b*b - c
	if discriminant < 0 {
		return mgl64.Vec3{}, false
	}

	t := -b - math.Sqrt(discriminant)
	if t < 0 || t > length+Epsilon {
		return mgl64.Vec3{}, false
	}

	return start.Add(dir.Mul(t)), true
}
