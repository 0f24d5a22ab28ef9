package geometry

import (
	"errors"
	"fmt"
	"math"

	"github.com/go-gl/mathgl/mgl64"
)

var ErrDegenerateMesh = errors.New("degenerate mesh")

// TriangleMesh is an indexed triangle soup used to build level sets
type TriangleMesh struct {
	Vertices  []mgl64.Vec3
	Triangles [][3]int
}

// Validate checks that the mesh has triangles and that every index is in range
func (m *TriangleMesh) Validate() error {
	if len(m.Vertices) < 3 || len(m.Triangles) == 0 {
		return fmt.Errorf("%d vertices, %d triangles: %w", len(m.Vertices), len(m.Triangles), ErrDegenerateMesh)
	}
	for i, triangle := range m.Triangles {
		for _, index := range triangle {
			if index < 0 || index >= len(m.Vertices) {
				return fmt.Errorf("triangle %d references vertex %d: %w", i, index, ErrDegenerateMesh)
			}
		}
	}

	return nil
}

func (m *TriangleMesh) Bounds() AABB {
	box := EmptyAABB()
	for _, v := range m.Vertices {
		box = box.GrowToInclude(v)
	}

	return box
}

// Scaled returns a copy of the mesh with every vertex multiplied per axis
func (m *TriangleMesh) Scaled(scale mgl64.Vec3) *TriangleMesh {
	vertices := make([]mgl64.Vec3, len(m.Vertices))
	for i, v := range m.Vertices {
		vertices[i] = mgl64.Vec3{v.X() * scale.X(), v.Y() * scale.Y(), v.Z() * scale.Z()}
	}

	return &TriangleMesh{Vertices: vertices, Triangles: m.Triangles}
}

func (m *TriangleMesh) triangle(i int) (mgl64.Vec3, mgl64.Vec3, mgl64.Vec3) {
	t := m.Triangles[i]

	return m.Vertices[t[0]], m.Vertices[t[1]], m.Vertices[t[2]]
}

// ClosestDistance returns the unsigned distance from x to the mesh surface
func (m *TriangleMesh) ClosestDistance(x mgl64.Vec3) float64 {
	best := math.MaxFloat64
	for i := range m.Triangles {
		a, b, c := m.triangle(i)
		if d := closestPointOnTriangle(x, a, b, c).Sub(x).LenSqr(); d < best {
			best = d
		}
	}

	return math.Sqrt(best)
}

// IsInside casts rays along the three axes and takes the majority of the crossing parities
func (m *TriangleMesh) IsInside(x mgl64.Vec3) bool {
	directions := [3]mgl64.Vec3{
		{1, 0.0001, 0.0002},
		{0.0003, 1, 0.0001},
		{0.0002, 0.0001, 1},
	}

	votes := 0
	for _, dir := range directions {
		crossings := 0
		for i := range m.Triangles {
			a, b, c := m.triangle(i)
			if rayHitsTriangle(x, dir, a, b, c) {
				crossings++
			}
		}
		if crossings%2 == 1 {
			votes++
		}
	}

	return votes >= 2
}

// closestPointOnTriangle finds the point of triangle abc nearest to p by Voronoi region tests
func closestPointOnTriangle(p, a, b, c mgl64.Vec3) mgl64.Vec3 {
	ab := b.Sub(a)
	ac := c.Sub(a)
	ap := p.Sub(a)

	d1 := ab.Dot(ap)
	d2 := ac.Dot(ap)
	if d1 <= 0 && d2 <= 0 {
		return a
	}

	bp := p.Sub(b)
	d3 := ab.Dot(bp)
	d4 := ac.Dot(bp)
	if d3 >= 0 && d4 <= d3 {
		return b
	}

	vc := d1*d4 - d3*d2
	if vc <= 0 && d1 >= 0 && d3 <= 0 {
		v := d1 / (d1 - d3)
		return a.Add(ab.Mul(v))
	}

	cp := p.Sub(c)
	d5 := ab.Dot(cp)
	d6 := ac.Dot(cp)
	if d6 >= 0 && d5 <= d6 {
		return c
	}

	vb := d5*d2 - d1*d6
	if vb <= 0 && d2 >= 0 && d6 <= 0 {
		w := d2 / (d2 - d6)
		return a.Add(ac.Mul(w))
	}

	va := d3*d6 - d5*d4
	if va <= 0 && (d4-d3) >= 0 && (d5-d6) >= 0 {
		w := (d4 - d3) / ((d4 - d3) + (d5 - d6))
		return b.Add(c.Sub(b).Mul(w))
	}

	denom := 1 / (va + vb + vc)
	v := vb * denom
	w := vc * denom

	return a.Add(ab.Mul(v)).Add(ac.Mul(w))
}

// rayHitsTriangle is a Möller-Trumbore test restricted to the forward half line
func rayHitsTriangle(origin, dir, a, b, c mgl64.Vec3) bool {
	edge1 := b.Sub(a)
	edge2 := c.Sub(a)
	h := dir.Cross(edge2)
	det := edge1.Dot(h)
	if math.Abs(det) < 1e-12 {
		return false
	}

	inv := 1 / det
	s := origin.Sub(a)
	u := inv * s.Dot(h)
	if u < 0 || u > 1 {
		return false
	}

	q := s.Cross(edge1)
	v := inv * dir.Dot(q)
	if v < 0 || u+v > 1 {
		return false
	}

	return inv*edge2.Dot(q) > 0
}
