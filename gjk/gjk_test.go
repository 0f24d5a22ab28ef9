package gjk

import (
	"testing"

	"github.com/akmonengine/apeiron/geometry"
	"github.com/go-gl/mathgl/mgl64"
)

// Test helper functions

func boxAt(position mgl64.Vec3, halfExtents mgl64.Vec3) Convex {
	return Convex{
		Object:    geometry.NewBoxFromHalfExtents(halfExtents),
		Transform: geometry.NewTransformAt(position, mgl64.QuatIdent()),
	}
}

func sphereAt(position mgl64.Vec3, radius float64) Convex {
	return Convex{
		Object:    geometry.NewSphere(mgl64.Vec3{}, radius),
		Transform: geometry.NewTransformAt(position, mgl64.QuatIdent()),
	}
}

// simplexOf builds a simplex from Minkowski points only, oldest first
func simplexOf(points ...mgl64.Vec3) Simplex {
	var s Simplex
	for _, p := range points {
		s.push(Vertex{Point: p})
	}

	return s
}

func TestConvex_SupportWorld(t *testing.T) {
	rotation := mgl64.QuatRotate(mgl64.DegToRad(90), mgl64.Vec3{0, 0, 1})
	c := Convex{
		Object:    geometry.NewBoxFromHalfExtents(mgl64.Vec3{2, 1, 1}),
		Transform: geometry.NewTransformAt(mgl64.Vec3{10, 0, 0}, rotation),
	}

	// the long axis now lies along Y
	got := c.SupportWorld(mgl64.Vec3{0, 1, 0})
	if got.Y() < 2-1e-9 || got.Y() > 2+1e-9 {
		t.Errorf("SupportWorld(+Y).Y = %v, want 2", got.Y())
	}
	if c.Center().Sub(mgl64.Vec3{10, 0, 0}).Len() > 1e-9 {
		t.Errorf("Center() = %v, want (10, 0, 0)", c.Center())
	}
}

func TestMinkowskiSupport(t *testing.T) {
	tests := []struct {
		name  string
		a, b  Convex
		wantX float64
	}{
		{
			name:  "separated spheres",
			a:     sphereAt(mgl64.Vec3{0, 0, 0}, 1),
			b:     sphereAt(mgl64.Vec3{3, 0, 0}, 1),
			wantX: -1, // max(A.x) - min(B.x) = 1 - 2
		},
		{
			name:  "overlapping spheres",
			a:     sphereAt(mgl64.Vec3{0, 0, 0}, 1),
			b:     sphereAt(mgl64.Vec3{1.5, 0, 0}, 1),
			wantX: 0.5,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			v := MinkowskiSupport(tt.a, tt.b, mgl64.Vec3{1, 0, 0})
			if v.Point.X() != tt.wantX {
				t.Errorf("MinkowskiSupport().X = %v, want %v", v.Point.X(), tt.wantX)
			}
			if v.A.Sub(v.B) != v.Point {
				t.Errorf("witness points %v - %v do not match %v", v.A, v.B, v.Point)
			}
		})
	}
}

func TestGJK(t *testing.T) {
	tests := []struct {
		name string
		a, b Convex
		want bool
	}{
		{"overlapping spheres", sphereAt(mgl64.Vec3{0, 0, 0}, 1), sphereAt(mgl64.Vec3{1.5, 0, 0}, 1), true},
		{"touching spheres", sphereAt(mgl64.Vec3{0, 0, 0}, 1), sphereAt(mgl64.Vec3{2, 0, 0}, 1), true},
		{"identical spheres", sphereAt(mgl64.Vec3{0, 0, 0}, 1), sphereAt(mgl64.Vec3{0, 0, 0}, 1), true},
		{"far apart spheres", sphereAt(mgl64.Vec3{0, 0, 0}, 1), sphereAt(mgl64.Vec3{10, 0, 0}, 1), false},
		{"diagonal separation", sphereAt(mgl64.Vec3{0, 0, 0}, 1), sphereAt(mgl64.Vec3{2, 2, 2}, 1), false},
		{"overlapping boxes", boxAt(mgl64.Vec3{0, 0, 0}, mgl64.Vec3{1, 1, 1}), boxAt(mgl64.Vec3{1.5, 0.5, 0}, mgl64.Vec3{1, 1, 1}), true},
		{"nested boxes", boxAt(mgl64.Vec3{0, 0, 0}, mgl64.Vec3{1, 1, 1}), boxAt(mgl64.Vec3{0, 0, 0}, mgl64.Vec3{5, 5, 5}), true},
		{"separated boxes", boxAt(mgl64.Vec3{0, 0, 0}, mgl64.Vec3{1, 1, 1}), boxAt(mgl64.Vec3{0, 3, 0}, mgl64.Vec3{1, 1, 1}), false},
		{"box and sphere overlapping", boxAt(mgl64.Vec3{0, 0, 0}, mgl64.Vec3{1, 1, 1}), sphereAt(mgl64.Vec3{1.5, 0, 0}, 1), true},
		{"box corner and sphere separated", boxAt(mgl64.Vec3{0, 0, 0}, mgl64.Vec3{1, 1, 1}), sphereAt(mgl64.Vec3{1.8, 1.8, 1.8}, 1), false},
		{"very small spheres", sphereAt(mgl64.Vec3{0, 0, 0}, 0.001), sphereAt(mgl64.Vec3{0.0015, 0, 0}, 0.001), true},
		{"very large spheres", sphereAt(mgl64.Vec3{0, 0, 0}, 1000), sphereAt(mgl64.Vec3{1500, 0, 0}, 1000), true},
		{"just separated spheres", sphereAt(mgl64.Vec3{0, 0, 0}, 1), sphereAt(mgl64.Vec3{2.0000001, 0, 0}, 1), false},
		{"two points", sphereAt(mgl64.Vec3{0, 0, 0}, 0), sphereAt(mgl64.Vec3{0, 0, 0}, 0), true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			simplex := SimplexPool.Get().(*Simplex)
			defer SimplexPool.Put(simplex)
			simplex.Reset()

			if got := GJK(tt.a, tt.b, simplex); got != tt.want {
				t.Errorf("GJK() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestGJK_RotatedBoxes(t *testing.T) {
	// a box turned 45° around Z reaches sqrt(2) along X
	rotated := Convex{
		Object:    geometry.NewBoxFromHalfExtents(mgl64.Vec3{1, 1, 1}),
		Transform: geometry.NewTransformAt(mgl64.Vec3{0, 0, 0}, mgl64.QuatRotate(mgl64.DegToRad(45), mgl64.Vec3{0, 0, 1})),
	}
	simplex := &Simplex{}

	if !GJK(rotated, boxAt(mgl64.Vec3{2.3, 0, 0}, mgl64.Vec3{1, 1, 1}), simplex) {
		t.Errorf("GJK() should detect the rotated corner overlap")
	}
	if GJK(rotated, boxAt(mgl64.Vec3{2.5, 0, 0}, mgl64.Vec3{1, 1, 1}), simplex) {
		t.Errorf("GJK() detected an overlap beyond the rotated corner")
	}
}

func TestLine(t *testing.T) {
	t.Run("origin beside the segment", func(t *testing.T) {
		simplex := simplexOf(mgl64.Vec3{-1, 1, 0}, mgl64.Vec3{1, 1, 0})
		direction := mgl64.Vec3{0, 1, 0}

		if line(&simplex, &direction) {
			t.Error("a segment away from the origin cannot contain it")
		}
		if simplex.Count != 2 {
			t.Errorf("Count = %d, want 2", simplex.Count)
		}
		if direction.Y() >= 0 {
			t.Errorf("direction = %v, want it towards the origin", direction)
		}
	})

	t.Run("origin on the segment", func(t *testing.T) {
		simplex := simplexOf(mgl64.Vec3{-1, 0, 0}, mgl64.Vec3{1, 0, 0})
		direction := mgl64.Vec3{0, 1, 0}

		if !line(&simplex, &direction) {
			t.Error("a segment through the origin contains it")
		}
	})

	t.Run("origin behind the newest point", func(t *testing.T) {
		simplex := simplexOf(mgl64.Vec3{3, 0, 0}, mgl64.Vec3{1, 0, 0})
		direction := mgl64.Vec3{}

		if line(&simplex, &direction) {
			t.Error("unexpected containment")
		}
		if simplex.Count != 1 || simplex.Points[0].Point != (mgl64.Vec3{1, 0, 0}) {
			t.Errorf("simplex = %v, want the newest point only", simplex.Points[:simplex.Count])
		}
	})

	t.Run("degenerate segment", func(t *testing.T) {
		simplex := simplexOf(mgl64.Vec3{1e-15, 0, 0}, mgl64.Vec3{1e-15, 1e-15, 0})
		direction := mgl64.Vec3{0, 1, 0}

		if !line(&simplex, &direction) {
			t.Error("near-identical points at the origin contain it")
		}
	})
}

func TestTriangle(t *testing.T) {
	t.Run("origin above the face", func(t *testing.T) {
		simplex := simplexOf(mgl64.Vec3{-1, -1, -1}, mgl64.Vec3{1, -1, -1}, mgl64.Vec3{0, 1, -1})
		direction := mgl64.Vec3{}

		if triangle(&simplex, &direction) {
			t.Error("a triangle never contains the origin in 3D")
		}
		if simplex.Count != 3 {
			t.Errorf("Count = %d, want 3", simplex.Count)
		}
		if direction.Z() <= 0 {
			t.Errorf("direction = %v, want +Z", direction)
		}
	})

	t.Run("origin beyond an edge", func(t *testing.T) {
		simplex := simplexOf(mgl64.Vec3{1, 1, 0}, mgl64.Vec3{3, 1, 0}, mgl64.Vec3{1, 3, 0})
		direction := mgl64.Vec3{}

		triangle(&simplex, &direction)
		if simplex.Count != 2 {
			t.Errorf("Count = %d, want the simplex reduced to an edge", simplex.Count)
		}
	})

	t.Run("collinear points", func(t *testing.T) {
		simplex := simplexOf(mgl64.Vec3{-2, 0, 0}, mgl64.Vec3{-1, 1, 0}, mgl64.Vec3{0, 2, 0})
		direction := mgl64.Vec3{}

		triangle(&simplex, &direction)
		if simplex.Count > 2 {
			t.Errorf("Count = %d, want a line or a point", simplex.Count)
		}
	})
}

func TestTetrahedron(t *testing.T) {
	t.Run("origin inside", func(t *testing.T) {
		simplex := simplexOf(
			mgl64.Vec3{-1, -1, -1},
			mgl64.Vec3{1, 1, -1},
			mgl64.Vec3{1, -1, 1},
			mgl64.Vec3{-1, 1, 1},
		)
		direction := mgl64.Vec3{0, 0, 1}

		if !tetrahedron(&simplex, &direction) {
			t.Error("expected the tetrahedron to contain the origin")
		}
	})

	t.Run("origin outside", func(t *testing.T) {
		simplex := simplexOf(
			mgl64.Vec3{5, 5, 5},
			mgl64.Vec3{6, 5, 5},
			mgl64.Vec3{5, 6, 5},
			mgl64.Vec3{5, 5, 6},
		)
		direction := mgl64.Vec3{0, 0, 1}

		if tetrahedron(&simplex, &direction) {
			t.Error("expected the origin outside the tetrahedron")
		}
		if simplex.Count > 3 {
			t.Errorf("Count = %d, want at most 3", simplex.Count)
		}
	})

	t.Run("collinear points", func(t *testing.T) {
		simplex := simplexOf(
			mgl64.Vec3{0, 0, 0},
			mgl64.Vec3{1, 0, 0},
			mgl64.Vec3{2, 0, 0},
			mgl64.Vec3{3, 0, 0},
		)
		direction := mgl64.Vec3{0, 1, 0}

		// reduced without panicking
		tetrahedron(&simplex, &direction)
		if simplex.Count > 3 {
			t.Errorf("Count = %d, want the simplex reduced", simplex.Count)
		}
	})
}

func BenchmarkGJK_Spheres_Intersecting(b *testing.B) {
	a := sphereAt(mgl64.Vec3{0, 0, 0}, 1.0)
	other := sphereAt(mgl64.Vec3{1.5, 0, 0}, 1.0)
	simplex := &Simplex{}

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		GJK(a, other, simplex)
	}
}

func BenchmarkGJK_Boxes_Intersecting(b *testing.B) {
	a := boxAt(mgl64.Vec3{0, 0, 0}, mgl64.Vec3{1, 1, 1})
	box := boxAt(mgl64.Vec3{1.5, 0, 0}, mgl64.Vec3{1, 1, 1})
	simplex := &Simplex{}

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		GJK(a, box, simplex)
	}
}
