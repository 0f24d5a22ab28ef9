package geometry

import (
	"math"

	"github.com/go-gl/mathgl/mgl64"
)

// Box represents an axis-aligned box in its local space
type Box struct {
	Min mgl64.Vec3
	Max mgl64.Vec3
}

// NewBoxFromHalfExtents creates a box centered on the origin
func NewBoxFromHalfExtents(halfExtents mgl64.Vec3) *Box {
	return &Box{Min: halfExtents.Mul(-1), Max: halfExtents}
}

func (b *Box) Type() ObjectType {
	return ObjectTypeBox
}

func (b *Box) IsConvex() bool {
	return true
}

func (b *Box) Center() mgl64.Vec3 {
	return b.Min.Add(b.Max).Mul(0.5)
}

func (b *Box) HalfExtents() mgl64.Vec3 {
	return b.Max.Sub(b.Min).Mul(0.5)
}

func (b *Box) BoundingBox() AABB {
	return AABB{Min: b.Min, Max: b.Max}
}

func (b *Box) PhiWithNormal(x mgl64.Vec3) (float64, mgl64.Vec3) {
	box := b.BoundingBox()
	closest := box.Clamp(x)
	delta := x.Sub(closest)

	if length := delta.Len(); length > 0 {
		return length, delta.Mul(1 / length)
	}

	// Inside: the nearest face wins
	best := math.MaxFloat64
	var normal mgl64.Vec3
	for axis := 0; axis < 3; axis++ {
		if d := x[axis] - b.Min[axis]; d < best {
			best = d
			normal = mgl64.Vec3{}
			normal[axis] = -1
		}
		if d := b.Max[axis] - x[axis]; d < best {
			best = d
			normal = mgl64.Vec3{}
			normal[axis] = 1
		}
	}

	return -best, normal
}

func (b *Box) Support(direction mgl64.Vec3) mgl64.Vec3 {
	var result mgl64.Vec3
	for axis := 0; axis < 3; axis++ {
		if direction[axis] < 0 {
			result[axis] = b.Min[axis]
		} else {
			result[axis] = b.Max[axis]
		}
	}

	return result
}

// Corners returns the 8 corners of the box
func (b *Box) Corners() [8]mgl64.Vec3 {
	return [8]mgl64.Vec3{
		{b.Min.X(), b.Min.Y(), b.Min.Z()},
		{b.Max.X(), b.Min.Y(), b.Min.Z()},
		{b.Min.X(), b.Max.Y(), b.Min.Z()},
		{b.Max.X(), b.Max.Y(), b.Min.Z()},
		{b.Min.X(), b.Min.Y(), b.Max.Z()},
		{b.Max.X(), b.Min.Y(), b.Max.Z()},
		{b.Min.X(), b.Max.Y(), b.Max.Z()},
		{b.Max.X(), b.Max.Y(), b.Max.Z()},
	}
}

// FindClosestIntersection clips the segment against the box inflated by thickness,
// then refines near edges and corners where the inflated box overshoots the rounded shape.
func (b *Box) FindClosestIntersection(start, end mgl64.Vec3, thickness float64) (mgl64.Vec3, bool) {
	if startInside(b, start, thickness) {
		return start, true
	}

	ray := end.Sub(start)
	tMin, tMax := 0.0, 1.0
	inflated := b.BoundingBox().Thicken(thickness)

	for axis := 0; axis < 3; axis++ {
		if math.Abs(ray[axis]) < 1e-12 {
			if start[axis] < inflated.Min[axis] || start[axis] > inflated.Max[axis] {
				return mgl64.Vec3{}, false
			}
			continue
		}
		inv := 1 / ray[axis]
		t1 := (inflated.Min[axis] - start[axis]) * inv
		t2 := (inflated.Max[axis] - start[axis]) * inv
		if t1 > t2 {
			t1, t2 = t2, t1
		}
		tMin = math.Max(tMin, t1)
		tMax = math.Min(tMax, t2)
		if tMin > tMax {
			return mgl64.Vec3{}, false
		}
	}

	hit := start.Add(ray.Mul(tMin))
	if SignedDistance(b, hit) <= thickness+Epsilon {
		return hit, true
	}

	return sphereTrace(b, hit, end, thickness)
}
