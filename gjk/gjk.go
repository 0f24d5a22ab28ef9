// Package gjk implements the Gilbert-Johnson-Keerthi intersection test for convex objects.
//
// GJK decides whether two convex sets overlap by checking whether their Minkowski
// difference A - B contains the origin. A simplex of up to four support points is grown
// toward the origin; each step keeps only the feature closest to it.
//
// References:
//   - Gilbert, Johnson, Keerthi: "A Fast Procedure for Computing the Distance Between
//     Complex Objects in Three-Dimensional Space" (1988)
//   - Van den Bergen: "Collision Detection in Interactive 3D Environments" (2003)
package gjk

import (
	"sync"

	"github.com/akmonengine/apeiron/geometry"
	"github.com/go-gl/mathgl/mgl64"
)

const maxIterations = 32

// Shape is a convex set placed in world space
type Shape interface {
	SupportWorld(direction mgl64.Vec3) mgl64.Vec3
	Center() mgl64.Vec3
}

// Convex places a convex implicit object at a world pose
type Convex struct {
	Object    geometry.SupportObject
	Transform geometry.Transform
}

func (c Convex) SupportWorld(direction mgl64.Vec3) mgl64.Vec3 {
	local := c.Transform.InverseTransformVector(direction)

	return c.Transform.TransformPosition(c.Object.Support(local))
}

func (c Convex) Center() mgl64.Vec3 {
	return c.Transform.TransformPosition(c.Object.BoundingBox().Center())
}

// Vertex is a point of the Minkowski difference with the support points that produced it
type Vertex struct {
	Point mgl64.Vec3 // A - B
	A     mgl64.Vec3
	B     mgl64.Vec3
}

// Simplex holds 1-4 vertices; the most recent one is always last
type Simplex struct {
	Points [4]Vertex
	Count  int
}

func (s *Simplex) Reset() {
	s.Count = 0
}

func (s *Simplex) push(v Vertex) {
	s.Points[s.Count] = v
	s.Count++
}

// set replaces the simplex content, oldest vertex first
func (s *Simplex) set(vertices ...Vertex) {
	s.Count = copy(s.Points[:], vertices)
}

var SimplexPool = sync.Pool{
	New: func() interface{} {
		return &Simplex{}
	},
}

// MinkowskiSupport returns the support of A - B along direction:
// furthest(A, direction) - furthest(B, -direction)
func MinkowskiSupport(a, b Shape, direction mgl64.Vec3) Vertex {
	supportA := a.SupportWorld(direction)
	supportB := b.SupportWorld(direction.Mul(-1))

	return Vertex{Point: supportA.Sub(supportB), A: supportA, B: supportB}
}

// GJK reports whether a and b intersect. On success the simplex is usually a
// tetrahedron enclosing the origin, which EPA expands into a penetration.
func GJK(a, b Shape, simplex *Simplex) bool {
	direction := b.Center().Sub(a.Center())
	if direction.LenSqr() < 1e-8 {
		direction = mgl64.Vec3{1, 0, 0}
	}

	simplex.set(MinkowskiSupport(a, b, direction))
	direction = simplex.Points[0].Point.Mul(-1)
	if direction.LenSqr() < 1e-16 {
		// touching at a single point
		return true
	}

	for i := 0; i < maxIterations; i++ {
		vertex := MinkowskiSupport(a, b, direction)

		// the new point does not pass the origin: separated
		if vertex.Point.Dot(direction) <= 0 {
			return false
		}

		simplex.push(vertex)
		if containsOrigin(simplex, &direction) {
			return true
		}
	}

	return false
}

// containsOrigin reduces the simplex to its feature closest to the origin and updates the
// search direction. Only a tetrahedron can enclose the origin.
func containsOrigin(simplex *Simplex, direction *mgl64.Vec3) bool {
	switch simplex.Count {
	case 2:
		return line(simplex, direction)
	case 3:
		return triangle(simplex, direction)
	case 4:
		return tetrahedron(simplex, direction)
	}

	return false
}

func line(simplex *Simplex, direction *mgl64.Vec3) bool {
	va, vb := simplex.Points[1], simplex.Points[0]
	a := va.Point
	ab := vb.Point.Sub(a)
	ao := a.Mul(-1)

	if ab.LenSqr() < 1e-8 {
		if ao.LenSqr() < 1e-8 {
			return true
		}
		simplex.set(va)
		*direction = ao
		return false
	}

	// origin behind A
	if ab.Dot(ao) <= 0 {
		simplex.set(va)
		*direction = ao
		return false
	}

	perpendicular := ab.Cross(ao).Cross(ab)
	if perpendicular.LenSqr() < 1e-8 {
		// origin lies on the segment
		return true
	}

	*direction = perpendicular
	return false
}

func triangle(simplex *Simplex, direction *mgl64.Vec3) bool {
	va, vb, vc := simplex.Points[2], simplex.Points[1], simplex.Points[0]
	a := va.Point
	ab := vb.Point.Sub(a)
	ac := vc.Point.Sub(a)
	ao := a.Mul(-1)
	abc := ab.Cross(ac)

	// collinear: drop the oldest point
	if abc.LenSqr() < 1e-10 {
		simplex.set(vb, va)
		return line(simplex, direction)
	}

	if ab.Cross(abc).Dot(ao) > 0 {
		simplex.set(vb, va)
		*direction = ab.Cross(ao).Cross(ab)
		return false
	}

	if abc.Cross(ac).Dot(ao) > 0 {
		simplex.set(vc, va)
		*direction = ac.Cross(ao).Cross(ac)
		return false
	}

	if abc.Dot(ao) > 0 {
		*direction = abc
	} else {
		// keep the winding so that the normal faces the origin
		simplex.set(va, vc, vb)
		*direction = abc.Mul(-1)
	}

	return false
}

func tetrahedron(simplex *Simplex, direction *mgl64.Vec3) bool {
	va, vb, vc, vd := simplex.Points[3], simplex.Points[2], simplex.Points[1], simplex.Points[0]
	a := va.Point
	ab := vb.Point.Sub(a)
	ac := vc.Point.Sub(a)
	ad := vd.Point.Sub(a)
	ao := a.Mul(-1)

	// face normals point away from the fourth vertex
	abc := outward(ab.Cross(ac), ad)
	acd := outward(ac.Cross(ad), ab)
	adb := outward(ad.Cross(ab), ac)

	if abc.LenSqr() < 1e-10 || acd.LenSqr() < 1e-10 || adb.LenSqr() < 1e-10 {
		simplex.set(vc, vb, va)
		return triangle(simplex, direction)
	}

	switch {
	case abc.Dot(ao) > 0:
		simplex.set(vc, vb, va)
		return triangle(simplex, direction)
	case acd.Dot(ao) > 0:
		simplex.set(vd, vc, va)
		return triangle(simplex, direction)
	case adb.Dot(ao) > 0:
		simplex.set(vb, vd, va)
		return triangle(simplex, direction)
	}

	return true
}

func outward(normal, toOpposite mgl64.Vec3) mgl64.Vec3 {
	if normal.Dot(toOpposite) > 0 {
		return normal.Mul(-1)
	}

	return normal
}
