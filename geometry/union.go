package geometry

import (
	"math"

	"github.com/go-gl/mathgl/mgl64"
)

// Union is the boolean union of its children. It owns them outright.
type Union struct {
	Objects []ImplicitObject
}

func NewUnion(objects ...ImplicitObject) *Union {
	return &Union{Objects: objects}
}

func (u *Union) Type() ObjectType {
	return ObjectTypeUnion
}

func (u *Union) IsConvex() bool {
	return len(u.Objects) == 1 && u.Objects[0].IsConvex()
}

// PhiWithNormal returns the smallest child distance along with that child's normal
func (u *Union) PhiWithNormal(x mgl64.Vec3) (float64, mgl64.Vec3) {
	phi := math.MaxFloat64
	normal := mgl64.Vec3{0, 0, 1}
	for _, object := range u.Objects {
		childPhi, childNormal := object.PhiWithNormal(x)
		if childPhi < phi {
			phi = childPhi
			normal = childNormal
		}
	}

	return phi, normal
}

func (u *Union) BoundingBox() AABB {
	box := EmptyAABB()
	for _, object := range u.Objects {
		box = box.Grow(object.BoundingBox())
	}

	return box
}

// FindClosestIntersection keeps the child hit closest to start
func (u *Union) FindClosestIntersection(start, end mgl64.Vec3, thickness float64) (mgl64.Vec3, bool) {
	var closest mgl64.Vec3
	found := false
	bestDistance := math.MaxFloat64

	for _, object := range u.Objects {
		point, ok := object.FindClosestIntersection(start, end, thickness)
		if !ok {
			continue
		}
		if d := point.Sub(start).LenSqr(); d < bestDistance {
			bestDistance = d
			closest = point
			found = true
		}
	}

	return closest, found
}
