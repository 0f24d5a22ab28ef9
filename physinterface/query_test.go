package physinterface

import (
	"context"
	"errors"
	"testing"

	"github.com/akmonengine/apeiron/geometry"
	"github.com/go-gl/mathgl/mgl64"
)

// unitBall returns a scene holding a unit sphere at the origin
func unitBall(t *testing.T) (*Scene, BodyID) {
	t.Helper()
	s := newTestScene(t, nil)
	id := mustCreate(t, s, ActorParams{})
	mustSphere(t, s, id, 1)

	return s, id
}

func TestLineTrace(t *testing.T) {
	s, id := unitBall(t)

	tests := []struct {
		name       string
		start, end mgl64.Vec3
		want       Hit
		wantErr    error
	}{
		{
			name:  "through the center",
			start: mgl64.Vec3{-5, 0, 0},
			end:   mgl64.Vec3{5, 0, 0},
			want:  Hit{Point: mgl64.Vec3{-1, 0, 0}, Normal: mgl64.Vec3{-1, 0, 0}, Distance: 4},
		},
		{
			name:  "from above",
			start: mgl64.Vec3{0, 0, 3},
			end:   mgl64.Vec3{0, 0, -3},
			want:  Hit{Point: mgl64.Vec3{0, 0, 1}, Normal: mgl64.Vec3{0, 0, 1}, Distance: 2},
		},
		{
			name:    "miss",
			start:   mgl64.Vec3{-5, 2, 0},
			end:     mgl64.Vec3{5, 2, 0},
			wantErr: ErrNoIntersection,
		},
		{
			name:    "too short",
			start:   mgl64.Vec3{-5, 0, 0},
			end:     mgl64.Vec3{-3, 0, 0},
			wantErr: ErrNoIntersection,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			hit, err := s.LineTrace(id, tt.start, tt.end)
			if tt.wantErr != nil {
				if !errors.Is(err, tt.wantErr) {
					t.Errorf("LineTrace() error = %v, want %v", err, tt.wantErr)
				}
				return
			}
			if err != nil {
				t.Fatalf("LineTrace() error = %v", err)
			}
			if !vec3AlmostEqual(hit.Point, tt.want.Point, 1e-9) {
				t.Errorf("LineTrace() point = %v, want %v", hit.Point, tt.want.Point)
			}
			if !vec3AlmostEqual(hit.Normal, tt.want.Normal, 1e-9) {
				t.Errorf("LineTrace() normal = %v, want %v", hit.Normal, tt.want.Normal)
			}
			if !almostEqual(hit.Distance, tt.want.Distance, 1e-9) {
				t.Errorf("LineTrace() distance = %v, want %v", hit.Distance, tt.want.Distance)
			}
		})
	}
}

func TestLineTraceFollowsPose(t *testing.T) {
	s := newTestScene(t, nil)
	id := mustCreate(t, s, ActorParams{Pose: at(0, 10, 0)})
	mustSphere(t, s, id, 1)

	hit, err := s.LineTrace(id, mgl64.Vec3{-5, 10, 0}, mgl64.Vec3{5, 10, 0})
	if err != nil {
		t.Fatal(err)
	}
	if !vec3AlmostEqual(hit.Point, mgl64.Vec3{-1, 10, 0}, 1e-9) {
		t.Errorf("LineTrace() point = %v, want (-1, 10, 0)", hit.Point)
	}

	// staged poses are visible before the next frame
	if err := s.SetGlobalPose(id, at(0, 20, 0)); err != nil {
		t.Fatal(err)
	}
	if _, err := s.LineTrace(id, mgl64.Vec3{-5, 10, 0}, mgl64.Vec3{5, 10, 0}); !errors.Is(err, ErrNoIntersection) {
		t.Errorf("LineTrace() at the old pose error = %v, want ErrNoIntersection", err)
	}
}

func TestGetSquaredDistanceToBody(t *testing.T) {
	s, id := unitBall(t)

	tests := []struct {
		name        string
		point       mgl64.Vec3
		wantDist    float64
		wantClosest mgl64.Vec3
	}{
		{"outside", mgl64.Vec3{3, 0, 0}, 4, mgl64.Vec3{1, 0, 0}},
		{"below", mgl64.Vec3{0, 0, -1.5}, 0.25, mgl64.Vec3{0, 0, -1}},
		{"inside", mgl64.Vec3{0.2, 0, 0}, 0, mgl64.Vec3{0.2, 0, 0}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			dist, closest, err := s.GetSquaredDistanceToBody(id, tt.point)
			if err != nil {
				t.Fatal(err)
			}
			if !almostEqual(dist, tt.wantDist, 1e-9) {
				t.Errorf("GetSquaredDistanceToBody() = %v, want %v", dist, tt.wantDist)
			}
			if !vec3AlmostEqual(closest, tt.wantClosest, 1e-9) {
				t.Errorf("GetSquaredDistanceToBody() closest = %v, want %v", closest, tt.wantClosest)
			}
		})
	}
}

func TestSweep(t *testing.T) {
	s, id := unitBall(t)
	start, end := mgl64.Vec3{-5, 0, 0}, mgl64.Vec3{5, 0, 0}

	hit, err := s.Sweep(id, start, end, QueryShape{Type: QuerySphere, Radius: 0.5})
	if err != nil {
		t.Fatalf("Sweep() error = %v", err)
	}
	if !almostEqual(hit.Distance, 3.5, 1e-9) {
		t.Errorf("Sweep() distance = %v, want 3.5", hit.Distance)
	}
	if !vec3AlmostEqual(hit.Point, mgl64.Vec3{-1, 0, 0}, 1e-9) {
		t.Errorf("Sweep() point = %v, want (-1, 0, 0)", hit.Point)
	}

	// a point-sized shape is a line trace
	hit, err = s.Sweep(id, start, end, QueryShape{Type: QueryBox})
	if err != nil {
		t.Fatalf("Sweep() with a zero box error = %v", err)
	}
	if !almostEqual(hit.Distance, 4, 1e-9) {
		t.Errorf("Sweep() with a zero box distance = %v, want 4", hit.Distance)
	}

	_, err = s.Sweep(id, start, end, QueryShape{Type: QueryBox, HalfExtents: mgl64.Vec3{0.5, 0.5, 0.5}})
	if !errors.Is(err, ErrUnsupportedOperation) {
		t.Errorf("Sweep() with a box error = %v, want ErrUnsupportedOperation", err)
	}
	_, err = s.Sweep(id, start, end, QueryShape{Type: QueryCapsule, Radius: 0.5, HalfHeight: 1})
	if !errors.Is(err, ErrUnsupportedOperation) {
		t.Errorf("Sweep() with a capsule error = %v, want ErrUnsupportedOperation", err)
	}
}

func TestOverlap(t *testing.T) {
	s, id := unitBall(t)

	tests := []struct {
		name        string
		shape       QueryShape
		pose        geometry.Transform
		wantOverlap bool
		penetration float64
		normal      mgl64.Vec3
		tolerance   float64
	}{
		{
			name:        "sphere",
			shape:       QueryShape{Type: QuerySphere, Radius: 0.5},
			pose:        at(1.2, 0, 0),
			wantOverlap: true,
			penetration: 0.3,
			normal:      mgl64.Vec3{1, 0, 0},
			tolerance:   1e-9,
		},
		{
			name:  "sphere apart",
			shape: QueryShape{Type: QuerySphere, Radius: 0.5},
			pose:  at(2, 0, 0),
		},
		{
			name:        "box",
			shape:       QueryShape{Type: QueryBox, HalfExtents: mgl64.Vec3{0.5, 0.5, 0.5}},
			pose:        at(1.2, 0, 0),
			wantOverlap: true,
			penetration: 0.3,
			normal:      mgl64.Vec3{1, 0, 0},
			tolerance:   1e-2,
		},
		{
			name:  "box apart",
			shape: QueryShape{Type: QueryBox, HalfExtents: mgl64.Vec3{0.5, 0.5, 0.5}},
			pose:  at(0, 0, 3),
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			overlap, ok, err := s.Overlap(id, tt.shape, tt.pose)
			if err != nil {
				t.Fatalf("Overlap() error = %v", err)
			}
			if ok != tt.wantOverlap {
				t.Fatalf("Overlap() = %v, want %v", ok, tt.wantOverlap)
			}
			if !ok {
				return
			}
			if !almostEqual(overlap.Penetration, tt.penetration, tt.tolerance) {
				t.Errorf("Overlap() penetration = %v, want %v", overlap.Penetration, tt.penetration)
			}
			if !vec3AlmostEqual(overlap.Normal, tt.normal, tt.tolerance) {
				t.Errorf("Overlap() normal = %v, want %v", overlap.Normal, tt.normal)
			}
		})
	}
}

func TestOverlapUnsupportedGeometry(t *testing.T) {
	s := newTestScene(t, nil)
	ground := mustCreate(t, s, ActorParams{Static: true})
	if _, err := s.AddGeometry(context.Background(), ground, GeometryParams{
		Planes: []PlaneElement{{Normal: mgl64.Vec3{0, 0, 1}}},
	}); err != nil {
		t.Fatal(err)
	}

	_, _, err := s.Overlap(ground, QueryShape{Type: QueryBox, HalfExtents: mgl64.Vec3{0.5, 0.5, 0.5}}, at(0, 0, 0.2))
	if !errors.Is(err, ErrUnsupportedOperation) {
		t.Errorf("Overlap() of a box with a plane error = %v, want ErrUnsupportedOperation", err)
	}

	// spheres only need the distance field
	overlap, ok, err := s.Overlap(ground, QueryShape{Type: QuerySphere, Radius: 0.5}, at(0, 0, 0.2))
	if err != nil || !ok {
		t.Fatalf("Overlap() of a sphere with a plane = %v, %v", ok, err)
	}
	if !almostEqual(overlap.Penetration, 0.3, 1e-9) {
		t.Errorf("Overlap() penetration = %v, want 0.3", overlap.Penetration)
	}
}

func TestQueryDisabledBody(t *testing.T) {
	s := newTestScene(t, nil)
	id := mustCreate(t, s, ActorParams{QueryOnly: true})
	mustSphere(t, s, id, 1)

	if _, err := s.LineTrace(id, mgl64.Vec3{-5, 0, 0}, mgl64.Vec3{5, 0, 0}); !errors.Is(err, ErrNoIntersection) {
		t.Errorf("LineTrace() error = %v, want ErrNoIntersection", err)
	}
	if _, _, err := s.GetSquaredDistanceToBody(id, mgl64.Vec3{3, 0, 0}); !errors.Is(err, ErrNoIntersection) {
		t.Errorf("GetSquaredDistanceToBody() error = %v, want ErrNoIntersection", err)
	}
	_, ok, err := s.Overlap(id, QueryShape{Type: QuerySphere, Radius: 0.5}, at(0, 0, 0))
	if ok || err != nil {
		t.Errorf("Overlap() = %v, %v, want false, nil", ok, err)
	}
}

func TestQueryInvalidHandle(t *testing.T) {
	s := newTestScene(t, nil)

	if _, err := s.LineTrace(42, mgl64.Vec3{}, mgl64.Vec3{1, 0, 0}); !errors.Is(err, ErrInvalidHandle) {
		t.Errorf("LineTrace() error = %v, want ErrInvalidHandle", err)
	}
	if _, err := s.Sweep(42, mgl64.Vec3{}, mgl64.Vec3{1, 0, 0}, QueryShape{Type: QuerySphere, Radius: 1}); !errors.Is(err, ErrInvalidHandle) {
		t.Errorf("Sweep() error = %v, want ErrInvalidHandle", err)
	}
	if _, _, err := s.Overlap(42, QueryShape{Type: QuerySphere, Radius: 1}, at(0, 0, 0)); !errors.Is(err, ErrInvalidHandle) {
		t.Errorf("Overlap() error = %v, want ErrInvalidHandle", err)
	}
}
