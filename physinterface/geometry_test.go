package physinterface

import (
	"context"
	"errors"
	"math"
	"testing"

	"github.com/akmonengine/apeiron"
	"github.com/akmonengine/apeiron/geometry"
	"github.com/go-gl/mathgl/mgl64"
)

// unitCube is a closed mesh of the cube [-0.5, 0.5]³
func unitCube() MeshElement {
	return MeshElement{
		Vertices: []mgl64.Vec3{
			{-0.5, -0.5, -0.5}, {0.5, -0.5, -0.5}, {0.5, 0.5, -0.5}, {-0.5, 0.5, -0.5},
			{-0.5, -0.5, 0.5}, {0.5, -0.5, 0.5}, {0.5, 0.5, 0.5}, {-0.5, 0.5, 0.5},
		},
		Triangles: [][3]int{
			{0, 2, 1}, {0, 3, 2}, // bottom
			{4, 5, 6}, {4, 6, 7}, // top
			{0, 1, 5}, {0, 5, 4}, // front
			{2, 3, 7}, {2, 7, 6}, // back
			{1, 2, 6}, {1, 6, 5}, // right
			{0, 4, 7}, {0, 7, 3}, // left
		},
	}
}

func TestAddGeometryShapes(t *testing.T) {
	s := newTestScene(t, nil)
	id := mustCreate(t, s, ActorParams{})

	handles, err := s.AddGeometry(context.Background(), id, GeometryParams{
		Spheres:  []SphereElement{{Radius: 0.5}},
		Boxes:    []BoxElement{{Center: mgl64.Vec3{0, 0, 1}, Extent: mgl64.Vec3{1, 1, 1}}},
		Capsules: []CapsuleElement{{Radius: 0.2, Length: 1}, {Radius: 0.3}},
	})
	if err != nil {
		t.Fatalf("AddGeometry() error = %v", err)
	}
	if len(handles) != 4 {
		t.Fatalf("AddGeometry() handles = %v, want 4", handles)
	}
	if n, _ := s.GetNumShapes(id); n != 4 {
		t.Errorf("GetNumShapes() = %d, want 4", n)
	}

	want := []geometry.ObjectType{
		geometry.ObjectTypeSphere,
		geometry.ObjectTypeBox,
		geometry.ObjectTypeCapsule,
		geometry.ObjectTypeSphere, // zero length capsule
	}
	for k, handle := range handles {
		if got, _ := s.GetShapeType(handle); got != want[k] {
			t.Errorf("GetShapeType(%d) = %v, want %v", handle, got, want[k])
		}
	}

	step(t, s, zeroGravity, 0.1, 1)
	index, _ := s.GetIndexFromId(id)
	if _, ok := s.Solver().Particles().Geometry[index].(*geometry.Union); !ok {
		t.Errorf("solver geometry = %T, want *geometry.Union", s.Solver().Particles().Geometry[index])
	}
}

func TestAddGeometryValidation(t *testing.T) {
	s := newTestScene(t, nil)
	id := mustCreate(t, s, ActorParams{})

	tests := []struct {
		name   string
		params GeometryParams
	}{
		{"empty", GeometryParams{}},
		{"negative radius", GeometryParams{Spheres: []SphereElement{{Radius: -1}}}},
		{"flat box", GeometryParams{Boxes: []BoxElement{{Extent: mgl64.Vec3{1, 0, 1}}}}},
		{"non-uniform sphere", GeometryParams{Spheres: []SphereElement{{Radius: 1}}, Scale: mgl64.Vec3{1, 2, 1}}},
		{"non-uniform capsule", GeometryParams{Capsules: []CapsuleElement{{Radius: 1, Length: 1}}, Scale: mgl64.Vec3{2, 1, 1}}},
		{"negative scale", GeometryParams{Boxes: []BoxElement{{Extent: mgl64.Vec3{1, 1, 1}}}, Scale: mgl64.Vec3{-1, 1, 1}}},
		{"zero plane normal", GeometryParams{Planes: []PlaneElement{{}}}},
		{"nan box extent", GeometryParams{Boxes: []BoxElement{{Extent: mgl64.Vec3{math.NaN(), 1, 1}}}}},
		{"infinite box extent", GeometryParams{Boxes: []BoxElement{{Extent: mgl64.Vec3{1, math.Inf(1), 1}}}}},
		{"nan box center", GeometryParams{Boxes: []BoxElement{{Center: mgl64.Vec3{0, math.NaN(), 0}, Extent: mgl64.Vec3{1, 1, 1}}}}},
		{"infinite sphere center", GeometryParams{Spheres: []SphereElement{{Center: mgl64.Vec3{math.Inf(-1), 0, 0}, Radius: 1}}}},
		{"nan plane point", GeometryParams{Planes: []PlaneElement{{Point: mgl64.Vec3{0, 0, math.NaN()}, Normal: mgl64.Vec3{0, 0, 1}}}}},
		{"nan plane normal", GeometryParams{Planes: []PlaneElement{{Normal: mgl64.Vec3{0, math.NaN(), 1}}}}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := s.AddGeometry(context.Background(), id, tt.params); !errors.Is(err, ErrInvalidInput) {
				t.Errorf("AddGeometry() error = %v, want ErrInvalidInput", err)
			}
		})
	}
	if n, _ := s.GetNumShapes(id); n != 0 {
		t.Errorf("GetNumShapes() = %d after rejected geometry, want 0", n)
	}
}

func TestAddGeometryScale(t *testing.T) {
	s := newTestScene(t, nil)
	id := mustCreate(t, s, ActorParams{})

	_, err := s.AddGeometry(context.Background(), id, GeometryParams{
		Boxes: []BoxElement{{Extent: mgl64.Vec3{1, 1, 1}}},
		Scale: mgl64.Vec3{2, 1, 3},
	})
	if err != nil {
		t.Fatal(err)
	}

	bounds, _ := s.GetBounds(id)
	if !vec3AlmostEqual(bounds.Extents(), mgl64.Vec3{2, 1, 3}, 1e-12) {
		t.Errorf("scaled box extents = %v, want (2, 1, 3)", bounds.Extents())
	}
}

func TestAddGeometryScaledPlane(t *testing.T) {
	s := newTestScene(t, nil)
	id := mustCreate(t, s, ActorParams{Static: true})

	// x + y = 0 stretched by 2 along X becomes x/2 + y = 0
	_, err := s.AddGeometry(context.Background(), id, GeometryParams{
		Planes: []PlaneElement{{Normal: mgl64.Vec3{1, 1, 0}}},
		Scale:  mgl64.Vec3{2, 1, 1},
	})
	if err != nil {
		t.Fatal(err)
	}

	dist, closest, err := s.GetSquaredDistanceToBody(id, mgl64.Vec3{0, 1, 0})
	if err != nil {
		t.Fatal(err)
	}
	if !almostEqual(dist, 0.8, 1e-9) {
		t.Errorf("GetSquaredDistanceToBody() = %v, want 0.8", dist)
	}
	if !vec3AlmostEqual(closest, mgl64.Vec3{-0.4, 0.2, 0}, 1e-9) {
		t.Errorf("GetSquaredDistanceToBody() closest = %v, want (-0.4, 0.2, 0)", closest)
	}
}

func TestShapeLocalTransform(t *testing.T) {
	s := newTestScene(t, nil)
	id := mustCreate(t, s, ActorParams{Pose: at(2, 0, 0)})

	handles, err := s.AddGeometry(context.Background(), id, GeometryParams{
		Spheres:        []SphereElement{{Radius: 0.5}},
		LocalTransform: at(0, 0, 1),
	})
	if err != nil {
		t.Fatal(err)
	}
	handle := handles[0]

	local, _ := s.GetLocalTransform(handle)
	if !vec3AlmostEqual(local.Position, mgl64.Vec3{0, 0, 1}, 1e-12) {
		t.Errorf("GetLocalTransform() = %v, want (0, 0, 1)", local.Position)
	}
	bounds, _ := s.GetShapeBounds(handle)
	if !vec3AlmostEqual(bounds.Center(), mgl64.Vec3{2, 0, 1}, 1e-12) {
		t.Errorf("GetShapeBounds() center = %v, want (2, 0, 1)", bounds.Center())
	}

	if err := s.SetLocalTransform(handle, at(0, 3, 0)); err != nil {
		t.Fatal(err)
	}
	bounds, _ = s.GetBounds(id)
	if !vec3AlmostEqual(bounds.Center(), mgl64.Vec3{2, 3, 0}, 1e-12) {
		t.Errorf("GetBounds() center after SetLocalTransform = %v, want (2, 3, 0)", bounds.Center())
	}
	// back to identity: the element is used without a wrapper
	if err := s.SetLocalTransform(handle, geometry.NewTransform()); err != nil {
		t.Fatal(err)
	}
	index, _ := s.GetIndexFromId(id)
	s.mu.Lock()
	p, i := s.particlesAndIndex(index)
	object := p.Geometry[i]
	s.mu.Unlock()
	if _, ok := object.(*geometry.Sphere); !ok {
		t.Errorf("geometry = %T, want *geometry.Sphere", object)
	}
}

func TestDetachAttachShape(t *testing.T) {
	s := newTestScene(t, nil)
	a := mustCreate(t, s, ActorParams{})
	b := mustCreate(t, s, ActorParams{Pose: at(5, 0, 0)})
	handles, err := s.AddGeometry(context.Background(), a, GeometryParams{
		Spheres: []SphereElement{{Radius: 0.5}, {Center: mgl64.Vec3{1, 0, 0}, Radius: 0.5}},
	})
	if err != nil {
		t.Fatal(err)
	}
	step(t, s, zeroGravity, 0.1, 1)

	if err := s.DetachShape(handles[1]); err != nil {
		t.Fatal(err)
	}
	if n, _ := s.GetNumShapes(a); n != 1 {
		t.Errorf("GetNumShapes(a) after detach = %d, want 1", n)
	}

	if err := s.AttachShape(b, handles[1]); err != nil {
		t.Fatal(err)
	}
	shapesB, _ := s.GetShapes(b)
	if len(shapesB) != 1 || shapesB[0] != handles[1] {
		t.Errorf("GetShapes(b) = %v, want [%d]", shapesB, handles[1])
	}

	// moving the first shape as well leaves a without geometry
	if err := s.AttachShape(b, handles[0]); err != nil {
		t.Fatal(err)
	}
	if n, _ := s.GetNumShapes(a); n != 0 {
		t.Errorf("GetNumShapes(a) = %d, want 0", n)
	}
	if _, err := s.LineTrace(a, mgl64.Vec3{-5, 0, 0}, mgl64.Vec3{5, 0, 0}); !errors.Is(err, ErrNoIntersection) {
		t.Errorf("LineTrace() on a body without shapes error = %v, want ErrNoIntersection", err)
	}
	if _, err := s.LineTrace(b, mgl64.Vec3{5, -5, 0}, mgl64.Vec3{5, 5, 0}); err != nil {
		t.Errorf("LineTrace() on the new owner error = %v", err)
	}

	step(t, s, zeroGravity, 0.1, 1)
	index, _ := s.GetIndexFromId(a)
	if s.Solver().Particles().Geometry[index] != nil {
		t.Errorf("solver geometry of a = %T, want nil", s.Solver().Particles().Geometry[index])
	}
	if err := s.AttachShape(a, 999); !errors.Is(err, ErrInvalidHandle) {
		t.Errorf("AttachShape(unknown) error = %v, want ErrInvalidHandle", err)
	}
}

func TestMeshGeometry(t *testing.T) {
	s := newTestScene(t, func(c *apeiron.Config) { c.LevelSetResolution = 8 })
	id := mustCreate(t, s, ActorParams{})

	handles, err := s.AddGeometry(context.Background(), id, GeometryParams{TriangleMeshes: []MeshElement{unitCube()}})
	if err != nil {
		t.Fatalf("AddGeometry() error = %v", err)
	}
	if got, _ := s.GetShapeType(handles[0]); got != geometry.ObjectTypeLevelSet {
		t.Errorf("GetShapeType() = %v, want LevelSet", got)
	}

	step(t, s, zeroGravity, 0.1, 1)
	index, _ := s.GetIndexFromId(id)
	if n := len(s.Solver().Particles().CollisionParticles[index]); n != 8 {
		t.Errorf("collision particles = %d, want the 8 mesh vertices", n)
	}

	// the level set is negative inside the cube
	if d, _, err := s.GetSquaredDistanceToBody(id, mgl64.Vec3{}); err != nil || d != 0 {
		t.Errorf("GetSquaredDistanceToBody(center) = %v, %v, want 0", d, err)
	}
}

func TestMeshGeometryErrors(t *testing.T) {
	s := newTestScene(t, nil)
	id := mustCreate(t, s, ActorParams{})

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if _, err := s.AddGeometry(ctx, id, GeometryParams{Convexes: []MeshElement{unitCube()}}); !errors.Is(err, context.Canceled) {
		t.Errorf("AddGeometry() with a cancelled context error = %v, want context.Canceled", err)
	}

	broken := MeshElement{Vertices: []mgl64.Vec3{{0, 0, 0}, {1, 0, 0}, {0, 1, 0}}, Triangles: [][3]int{{0, 1, 5}}}
	if _, err := s.AddGeometry(context.Background(), id, GeometryParams{TriangleMeshes: []MeshElement{broken}}); !errors.Is(err, geometry.ErrDegenerateMesh) {
		t.Errorf("AddGeometry() with a bad index error = %v, want ErrDegenerateMesh", err)
	}
}
