package geometry

import (
	"math"

	"github.com/go-gl/mathgl/mgl64"
)

// AABB represents an axis-aligned bounding box
type AABB struct {
	Min mgl64.Vec3
	Max mgl64.Vec3
}

// EmptyAABB returns an inverted box that any Grow call will replace
func EmptyAABB() AABB {
	return AABB{
		Min: mgl64.Vec3{math.MaxFloat64, math.MaxFloat64, math.MaxFloat64},
		Max: mgl64.Vec3{-math.MaxFloat64, -math.MaxFloat64, -math.MaxFloat64},
	}
}

// FullAABB is used by unbounded objects such as planes
func FullAABB() AABB {
	return AABB{
		Min: mgl64.Vec3{-math.MaxFloat64, -math.MaxFloat64, -math.MaxFloat64},
		Max: mgl64.Vec3{math.MaxFloat64, math.MaxFloat64, math.MaxFloat64},
	}
}

func (a AABB) Empty() bool {
	return a.Min.X() > a.Max.X() || a.Min.Y() > a.Max.Y() || a.Min.Z() > a.Max.Z()
}

// IsUnbounded reports whether the box spans infinite space on some axis
func (a AABB) IsUnbounded() bool {
	for i := 0; i < 3; i++ {
		if a.Min[i] <= -math.MaxFloat64 || a.Max[i] >= math.MaxFloat64 {
			return true
		}
	}

	return false
}

// ContainsPoint checks if a point is inside the AABB
func (a AABB) ContainsPoint(point mgl64.Vec3) bool {
	return point.X() >= a.Min.X() && point.X() <= a.Max.X() &&
		point.Y() >= a.Min.Y() && point.Y() <= a.Max.Y() &&
		point.Z() >= a.Min.Z() && point.Z() <= a.Max.Z()
}

// Overlaps checks if two AABBs overlap
func (a AABB) Overlaps(other AABB) bool {
	// AABBs overlap if they overlap on all three axes
	return a.Max.X() >= other.Min.X() && a.Min.X() <= other.Max.X() &&
		a.Max.Y() >= other.Min.Y() && a.Min.Y() <= other.Max.Y() &&
		a.Max.Z() >= other.Min.Z() && a.Min.Z() <= other.Max.Z()
}

// GrowToInclude extends the box so that it contains point
func (a AABB) GrowToInclude(point mgl64.Vec3) AABB {
	for i := 0; i < 3; i++ {
		a.Min[i] = math.Min(a.Min[i], point[i])
		a.Max[i] = math.Max(a.Max[i], point[i])
	}

	return a
}

// Grow returns the union of both boxes
func (a AABB) Grow(other AABB) AABB {
	if other.Empty() {
		return a
	}

	return a.GrowToInclude(other.Min).GrowToInclude(other.Max)
}

// Thicken inflates every face by thickness
func (a AABB) Thicken(thickness float64) AABB {
	if a.IsUnbounded() {
		return a
	}
	t := mgl64.Vec3{thickness, thickness, thickness}

	return AABB{Min: a.Min.Sub(t), Max: a.Max.Add(t)}
}

func (a AABB) Center() mgl64.Vec3 {
	return a.Min.Add(a.Max).Mul(0.5)
}

// Extents returns the full size along each axis
func (a AABB) Extents() mgl64.Vec3 {
	return a.Max.Sub(a.Min)
}

// LargestAxis returns the index of the longest extent
func (a AABB) LargestAxis() int {
	e := a.Extents()
	if e.X() >= e.Y() && e.X() >= e.Z() {
		return 0
	}
	if e.Y() >= e.Z() {
		return 1
	}

	return 2
}

// Clamp returns the point of the box closest to point
func (a AABB) Clamp(point mgl64.Vec3) mgl64.Vec3 {
	return mgl64.Vec3{
		mgl64.Clamp(point.X(), a.Min.X(), a.Max.X()),
		mgl64.Clamp(point.Y(), a.Min.Y(), a.Max.Y()),
		mgl64.Clamp(point.Z(), a.Min.Z(), a.Max.Z()),
	}
}

// Transformed returns the world-space box enclosing a transformed by t
func (a AABB) Transformed(t Transform) AABB {
	if a.IsUnbounded() {
		return FullAABB()
	}

	corners := [8]mgl64.Vec3{
		{a.Min.X(), a.Min.Y(), a.Min.Z()},
		{a.Max.X(), a.Min.Y(), a.Min.Z()},
		{a.Min.X(), a.Max.Y(), a.Min.Z()},
		{a.Max.X(), a.Max.Y(), a.Min.Z()},
		{a.Min.X(), a.Min.Y(), a.Max.Z()},
		{a.Max.X(), a.Min.Y(), a.Max.Z()},
		{a.Min.X(), a.Max.Y(), a.Max.Z()},
		{a.Max.X(), a.Max.Y(), a.Max.Z()},
	}

	result := EmptyAABB()
	for _, corner := range corners {
		result = result.GrowToInclude(t.TransformPosition(corner))
	}

	return result
}
