// Package epa implements the Expanding Polytope Algorithm for computing penetration depth.
//
// EPA runs after GJK reports an intersection. It expands the GJK tetrahedron toward the
// boundary of the Minkowski difference until the face closest to the origin stops moving;
// that face gives the minimum translation separating the shapes.
//
// References:
//   - Van den Bergen: "Proximity Queries and Penetration Depth Computation on 3D Game Objects" (2001)
package epa

import (
	"errors"
	"fmt"
	"math"

	"github.com/akmonengine/apeiron/gjk"
	"github.com/go-gl/mathgl/mgl64"
)

const (
	// EPAMaxIterations limits polytope expansion.
	// Boxes converge in a few iterations, rounded shapes need more.
	EPAMaxIterations = 64

	// EPAConvergenceTolerance: once a new support point improves the closest face by less
	// than this, the face lies on the Minkowski boundary.
	EPAConvergenceTolerance = 0.001

	// NormalSnapThreshold clamps nearly-zero normal components to exactly zero
	NormalSnapThreshold = 1e-8

	polytopeInitialCapacity = 16
)

var ErrNoConvergence = errors.New("epa did not converge")

// Penetration describes how two convex shapes overlap
type Penetration struct {
	Normal mgl64.Vec3 // unit direction from A to B
	Depth  float64
	PointA mgl64.Vec3 // deepest point of A inside B
	PointB mgl64.Vec3 // deepest point of B inside A
}

// Midpoint is the contact location between both witness points
func (p Penetration) Midpoint() mgl64.Vec3 {
	return p.PointA.Add(p.PointB).Mul(0.5)
}

// EPA computes the penetration of two intersecting shapes from the simplex left by gjk.GJK.
// Moving B by Normal*Depth separates the shapes.
func EPA(a, b gjk.Shape, simplex *gjk.Simplex) (Penetration, error) {
	if simplex.Count < 4 {
		return handleDegenerateSimplex(a, b, simplex), nil
	}

	p := polytopePool.Get().(*polytope)
	defer polytopePool.Put(p)
	p.reset()

	p.addTetrahedron(simplex)

	for i := 0; i < EPAMaxIterations; i++ {
		closest := p.faces[p.closest()]
		if math.IsInf(closest.distance, 1) {
			break
		}

		support := gjk.MinkowskiSupport(a, b, closest.normal)
		if support.Point.Dot(closest.normal)-closest.distance < EPAConvergenceTolerance || !p.expand(support) {
			return penetrationFrom(closest), nil
		}
		if len(p.faces) == 0 {
			break
		}
	}

	return Penetration{}, fmt.Errorf("%d iterations: %w", EPAMaxIterations, ErrNoConvergence)
}

func penetrationFrom(f face) Penetration {
	pointA, pointB := f.witness()

	return Penetration{
		Normal: f.normal,
		Depth:  math.Max(f.distance, 0),
		PointA: pointA,
		PointB: pointB,
	}
}

// handleDegenerateSimplex estimates a penetration when GJK stopped before building a
// tetrahedron, which happens for shapes barely touching. The simplex point nearest the
// origin gives the depth; the normal comes from the shape centers when it is too short.
func handleDegenerateSimplex(a, b gjk.Shape, simplex *gjk.Simplex) Penetration {
	nearest := simplex.Points[0]
	for i := 1; i < simplex.Count; i++ {
		if simplex.Points[i].Point.LenSqr() < nearest.Point.LenSqr() {
			nearest = simplex.Points[i]
		}
	}

	depth := nearest.Point.Len()
	normal := b.Center().Sub(a.Center())
	if depth > NormalSnapThreshold {
		normal = nearest.Point
	}
	if length := normal.Len(); length > NormalSnapThreshold {
		normal = normal.Mul(1 / length)
	} else {
		normal = mgl64.Vec3{0, 1, 0}
	}

	return Penetration{
		Normal: snapNormalToAxis(normal),
		Depth:  depth,
		PointA: nearest.A,
		PointB: nearest.B,
	}
}

// snapNormalToAxis zeroes components below NormalSnapThreshold and renormalizes,
// which keeps axis-aligned resting contacts from drifting tangentially
func snapNormalToAxis(normal mgl64.Vec3) mgl64.Vec3 {
	for axis := 0; axis < 3; axis++ {
		if math.Abs(normal[axis]) < NormalSnapThreshold {
			normal[axis] = 0
		}
	}

	length := normal.Len()
	if length <= 1e-8 {
		return mgl64.Vec3{0, 1, 0}
	}

	return normal.Mul(1.0 / length)
}
