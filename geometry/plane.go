package geometry

import (
	"math"

	"github.com/go-gl/mathgl/mgl64"
)

// Plane represents an infinite half-space
// The plane is defined by: Normal · X = Distance; points behind it are inside
type Plane struct {
	Normal   mgl64.Vec3 // Normal of the plane (must be normalized)
	Distance float64    // Distance from origin along normal
}

// NewPlane creates the plane passing through point with the given normal
func NewPlane(point, normal mgl64.Vec3) *Plane {
	n := normal.Normalize()

	return &Plane{Normal: n, Distance: point.Dot(n)}
}

func (p *Plane) Type() ObjectType {
	return ObjectTypePlane
}

func (p *Plane) IsConvex() bool {
	return true
}

func (p *Plane) PhiWithNormal(x mgl64.Vec3) (float64, mgl64.Vec3) {
	return x.Dot(p.Normal) - p.Distance, p.Normal
}

func (p *Plane) BoundingBox() AABB {
	return FullAABB()
}

func (p *Plane) FindClosestIntersection(start, end mgl64.Vec3, thickness float64) (mgl64.Vec3, bool) {
	if startInside(p, start, thickness) {
		return start, true
	}

	ray := end.Sub(start)
	denom := ray.Dot(p.Normal)
	if math.Abs(denom) < 1e-12 {
		return mgl64.Vec3{}, false
	}

	t := (p.Distance + thickness - start.Dot(p.Normal)) / denom
	if t < 0 || t > 1 {
		return mgl64.Vec3{}, false
	}

	return start.Add(ray.Mul(t)), true
}
