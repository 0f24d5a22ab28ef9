package epa

import (
	"math"
	"sync"

	"github.com/akmonengine/apeiron/gjk"
	"github.com/go-gl/mathgl/mgl64"
)

// face is a triangle of the polytope, wound counter-clockwise seen from outside
type face struct {
	vertices [3]gjk.Vertex
	normal   mgl64.Vec3
	distance float64 // from the origin to the face plane
}

type edge struct {
	a, b gjk.Vertex
}

// polytope is the expanding hull of the Minkowski difference around the origin
type polytope struct {
	faces   []face
	horizon []edge
}

var polytopePool = sync.Pool{
	New: func() interface{} {
		return &polytope{
			faces:   make([]face, 0, polytopeInitialCapacity),
			horizon: make([]edge, 0, polytopeInitialCapacity),
		}
	},
}

func (p *polytope) reset() {
	p.faces = p.faces[:0]
	p.horizon = p.horizon[:0]
}

func newFace(a, b, c gjk.Vertex) face {
	f := face{vertices: [3]gjk.Vertex{a, b, c}}

	normal := b.Point.Sub(a.Point).Cross(c.Point.Sub(a.Point))
	length := normal.Len()
	if length < 1e-12 {
		f.normal = mgl64.Vec3{0, 1, 0}
		f.distance = math.Inf(1)
		return f
	}

	f.normal = snapNormalToAxis(normal.Mul(1 / length))
	f.distance = f.normal.Dot(a.Point)

	return f
}

// addTetrahedron seeds the polytope with the four faces of a GJK simplex, each wound outward
func (p *polytope) addTetrahedron(s *gjk.Simplex) {
	v := s.Points
	for _, tri := range [4][4]int{{0, 1, 2, 3}, {0, 3, 1, 2}, {0, 2, 3, 1}, {1, 3, 2, 0}} {
		a, b, c, opposite := v[tri[0]], v[tri[1]], v[tri[2]], v[tri[3]]
		normal := b.Point.Sub(a.Point).Cross(c.Point.Sub(a.Point))
		if normal.Dot(opposite.Point.Sub(a.Point)) > 0 {
			b, c = c, b
		}
		p.faces = append(p.faces, newFace(a, b, c))
	}
}

func (p *polytope) closest() int {
	closest := 0
	for i := 1; i < len(p.faces); i++ {
		if p.faces[i].distance < p.faces[closest].distance {
			closest = i
		}
	}

	return closest
}

// expand removes every face that sees support and stitches the horizon to it.
// It returns false when no face was visible, meaning the hull cannot grow.
func (p *polytope) expand(support gjk.Vertex) bool {
	p.horizon = p.horizon[:0]

	kept := p.faces[:0]
	removed := 0
	for _, f := range p.faces {
		if f.normal.Dot(support.Point.Sub(f.vertices[0].Point)) <= 1e-10 {
			kept = append(kept, f)
			continue
		}
		removed++
		for i := 0; i < 3; i++ {
			p.addHorizonEdge(f.vertices[i], f.vertices[(i+1)%3])
		}
	}
	p.faces = kept
	if removed == 0 {
		return false
	}

	for _, e := range p.horizon {
		p.faces = append(p.faces, newFace(e.a, e.b, support))
	}

	return true
}

// addHorizonEdge keeps edges shared by two visible faces out of the horizon:
// the neighbour holds the same edge in reverse order.
func (p *polytope) addHorizonEdge(a, b gjk.Vertex) {
	for i, e := range p.horizon {
		if e.a.Point == b.Point && e.b.Point == a.Point {
			last := len(p.horizon) - 1
			p.horizon[i] = p.horizon[last]
			p.horizon = p.horizon[:last]
			return
		}
	}
	p.horizon = append(p.horizon, edge{a: a, b: b})
}

// witness projects the origin on f and maps the barycentric coordinates onto the
// support points of both shapes
func (f face) witness() (mgl64.Vec3, mgl64.Vec3) {
	a, b, c := f.vertices[0], f.vertices[1], f.vertices[2]
	point := f.normal.Mul(f.distance)

	v0 := b.Point.Sub(a.Point)
	v1 := c.Point.Sub(a.Point)
	v2 := point.Sub(a.Point)
	d00 := v0.Dot(v0)
	d01 := v0.Dot(v1)
	d11 := v1.Dot(v1)
	d20 := v2.Dot(v0)
	d21 := v2.Dot(v1)
	denom := d00*d11 - d01*d01
	if math.Abs(denom) < 1e-12 {
		return a.A, a.B
	}

	v := (d11*d20 - d01*d21) / denom
	w := (d00*d21 - d01*d20) / denom
	u := 1 - v - w

	pointA := a.A.Mul(u).Add(b.A.Mul(v)).Add(c.A.Mul(w))
	pointB := a.B.Mul(u).Add(b.B.Mul(v)).Add(c.B.Mul(w))

	return pointA, pointB
}
