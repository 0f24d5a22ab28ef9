package physinterface

import (
	"context"
	"fmt"
	"log/slog"
	"maps"
	"slices"

	"github.com/akmonengine/apeiron/geometry"
	"github.com/akmonengine/apeiron/particles"
	"github.com/go-gl/mathgl/mgl64"
)

// ShapeHandle identifies one element added by AddGeometry
type ShapeHandle uint64

type SphereElement struct {
	Center mgl64.Vec3
	Radius float64
}

// BoxElement is sized by its full Extent along each local axis
type BoxElement struct {
	Center   mgl64.Vec3
	Rotation mgl64.Quat
	Extent   mgl64.Vec3
}

// CapsuleElement lies along local Z; Length is the distance between the end centers
type CapsuleElement struct {
	Center   mgl64.Vec3
	Rotation mgl64.Quat
	Radius   float64
	Length   float64
}

type TaperedCapsuleElement struct {
	Center   mgl64.Vec3
	Rotation mgl64.Quat
	Radius0  float64
	Radius1  float64
	Length   float64
}

type PlaneElement struct {
	Point  mgl64.Vec3
	Normal mgl64.Vec3
}

// MeshElement is used by both convex and triangle mesh elements; both become level sets
type MeshElement struct {
	Vertices  []mgl64.Vec3
	Triangles [][3]int
}

// GeometryParams is a list of elements sharing one scale and one local transform.
// A zero Scale means (1, 1, 1) and a zero LocalTransform means identity.
type GeometryParams struct {
	Spheres         []SphereElement
	Boxes           []BoxElement
	Capsules        []CapsuleElement
	TaperedCapsules []TaperedCapsuleElement
	Planes          []PlaneElement
	Convexes        []MeshElement
	TriangleMeshes  []MeshElement

	Scale          mgl64.Vec3
	LocalTransform geometry.Transform
}

type shape struct {
	handle   ShapeHandle
	body     BodyID
	inner    geometry.ImplicitObject
	object   geometry.ImplicitObject
	local    geometry.Transform
	vertices []mgl64.Vec3
	attached bool
}

// wrap places inner under local, reusing the previous wrapper's ownership of inner
func (sh *shape) wrap(local geometry.Transform) {
	sh.local = local
	if local.IsIdentity() {
		sh.object = sh.inner
		return
	}
	if transformed, ok := sh.object.(*geometry.Transformed); ok {
		sh.object = transformed.WithTransform(local)
		return
	}
	sh.object = geometry.NewTransformed(sh.inner, local)
}

func (sh *shape) collisionParticles() []mgl64.Vec3 {
	points := make([]mgl64.Vec3, len(sh.vertices))
	for i, v := range sh.vertices {
		points[i] = sh.local.TransformPosition(v)
	}

	return points
}

type element struct {
	object   geometry.ImplicitObject
	frame    geometry.Transform
	vertices []mgl64.Vec3
}

func orIdentity(q mgl64.Quat) mgl64.Quat {
	if q == (mgl64.Quat{}) {
		return mgl64.QuatIdent()
	}

	return q.Normalize()
}

func scaled(v, scale mgl64.Vec3) mgl64.Vec3 {
	return mgl64.Vec3{v.X() * scale.X(), v.Y() * scale.Y(), v.Z() * scale.Z()}
}

// buildElements turns params into implicit objects. Level sets are sampled here, outside the staging lock.
func (s *Scene) buildElements(ctx context.Context, params GeometryParams) ([]element, error) {
	scale := params.Scale
	if scale == (mgl64.Vec3{}) {
		scale = mgl64.Vec3{1, 1, 1}
	}
	if !finiteVec3(scale) || scale.X() <= 0 || scale.Y() <= 0 || scale.Z() <= 0 {
		return nil, invalidInput("scale %v", scale)
	}
	uniform := scale.X() == scale.Y() && scale.Y() == scale.Z()
	needsUniform := len(params.Spheres) > 0 || len(params.Capsules) > 0 || len(params.TaperedCapsules) > 0
	if needsUniform && !uniform {
		return nil, invalidInput("non-uniform scale %v on a round element", scale)
	}

	var elements []element
	for _, e := range params.Spheres {
		if !finite(e.Radius) || e.Radius <= 0 || !finiteVec3(e.Center) {
			return nil, invalidInput("sphere radius %v center %v", e.Radius, e.Center)
		}
		elements = append(elements, element{
			object: geometry.NewSphere(mgl64.Vec3{}, e.Radius*scale.X()),
			frame:  geometry.NewTransformAt(scaled(e.Center, scale), mgl64.QuatIdent()),
		})
	}
	for _, e := range params.Boxes {
		if !finiteVec3(e.Extent) || e.Extent.X() <= 0 || e.Extent.Y() <= 0 || e.Extent.Z() <= 0 || !finiteVec3(e.Center) {
			return nil, invalidInput("box extent %v center %v", e.Extent, e.Center)
		}
		elements = append(elements, element{
			object: geometry.NewBoxFromHalfExtents(scaled(e.Extent, scale).Mul(0.5)),
			frame:  geometry.NewTransformAt(scaled(e.Center, scale), orIdentity(e.Rotation)),
		})
	}
	for _, e := range params.Capsules {
		if !finite(e.Radius, e.Length) || e.Radius <= 0 || e.Length < 0 || !finiteVec3(e.Center) {
			return nil, invalidInput("capsule radius %v length %v center %v", e.Radius, e.Length, e.Center)
		}
		radius, half := e.Radius*scale.X(), e.Length*scale.X()/2
		var object geometry.ImplicitObject = geometry.NewSphere(mgl64.Vec3{}, radius)
		if half > 0 {
			object = geometry.NewCapsule(mgl64.Vec3{0, 0, -half}, mgl64.Vec3{0, 0, half}, radius)
		}
		elements = append(elements, element{
			object: object,
			frame:  geometry.NewTransformAt(scaled(e.Center, scale), orIdentity(e.Rotation)),
		})
	}
	for _, e := range params.TaperedCapsules {
		if !finite(e.Radius0, e.Radius1, e.Length) || e.Radius0 <= 0 || e.Radius1 <= 0 || e.Length < 0 || !finiteVec3(e.Center) {
			return nil, invalidInput("tapered capsule radii %v %v length %v", e.Radius0, e.Radius1, e.Length)
		}
		half := e.Length * scale.X() / 2
		var object geometry.ImplicitObject = geometry.NewSphere(mgl64.Vec3{}, max(e.Radius0, e.Radius1)*scale.X())
		if half > 0 {
			object = geometry.NewTaperedCapsule(mgl64.Vec3{0, 0, -half}, mgl64.Vec3{0, 0, half}, e.Radius0*scale.X(), e.Radius1*scale.X())
		}
		elements = append(elements, element{
			object: object,
			frame:  geometry.NewTransformAt(scaled(e.Center, scale), orIdentity(e.Rotation)),
		})
	}
	for _, e := range params.Planes {
		if !finiteVec3(e.Normal) || e.Normal.Len() < 1e-8 || !finiteVec3(e.Point) {
			return nil, invalidInput("plane point %v normal %v", e.Point, e.Normal)
		}
		// normals scale by the inverse of the point scale
		normal := mgl64.Vec3{e.Normal.X() / scale.X(), e.Normal.Y() / scale.Y(), e.Normal.Z() / scale.Z()}
		elements = append(elements, element{
			object: geometry.NewPlane(scaled(e.Point, scale), normal.Normalize()),
			frame:  geometry.NewTransform(),
		})
	}
	for _, meshes := range [][]MeshElement{params.Convexes, params.TriangleMeshes} {
		for _, e := range meshes {
			mesh := (&geometry.TriangleMesh{Vertices: e.Vertices, Triangles: e.Triangles}).Scaled(scale)
			levelSet, err := geometry.NewLevelSetFromMesh(ctx, mesh, s.config.LevelSetResolution, s.config.Workers)
			if err != nil {
				return nil, fmt.Errorf("level set: %w", err)
			}
			s.logger.Debug("level set built",
				slog.Int("vertices", len(mesh.Vertices)),
				slog.Int("triangles", len(mesh.Triangles)),
				slog.Int("cells", levelSet.Grid().NumCells()))

			elements = append(elements, element{
				object:   levelSet,
				frame:    geometry.NewTransform(),
				vertices: mesh.Vertices,
			})
		}
	}

	return elements, nil
}

// AddGeometry creates one shape per element of params and attaches them to the body
func (s *Scene) AddGeometry(ctx context.Context, id BodyID, params GeometryParams) ([]ShapeHandle, error) {
	local := params.LocalTransform
	if local == (geometry.Transform{}) {
		local = geometry.NewTransform()
	}
	local, err := validateTransform(local)
	if err != nil {
		return nil, err
	}
	if !s.IsValid(id) {
		return nil, fmt.Errorf("body %d: %w", id, ErrInvalidHandle)
	}

	elements, err := s.buildElements(ctx, params)
	if err != nil {
		return nil, err
	}
	if len(elements) == 0 {
		return nil, invalidInput("geometry without elements")
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if _, err := s.indexOf(id); err != nil {
		return nil, err
	}

	handles := make([]ShapeHandle, 0, len(elements))
	for _, e := range elements {
		sh := &shape{
			handle:   s.nextShape,
			body:     id,
			inner:    e.object,
			vertices: e.vertices,
			attached: true,
		}
		s.nextShape++
		sh.wrap(local.Mul(e.frame))
		s.shapes[sh.handle] = sh
		handles = append(handles, sh.handle)
	}

	return handles, s.rebuildGeometry(id)
}

// rebuildGeometry stages the union of the body's attached shapes. It requires the staging lock.
func (s *Scene) rebuildGeometry(id BodyID) error {
	var objects []geometry.ImplicitObject
	var collisionParticles []mgl64.Vec3
	for _, sh := range s.bodyShapes(id) {
		objects = append(objects, sh.object)
		collisionParticles = append(collisionParticles, sh.collisionParticles()...)
	}

	var object geometry.ImplicitObject
	switch len(objects) {
	case 0:
	case 1:
		object = objects[0]
	default:
		object = geometry.NewUnion(objects...)
	}

	return s.updateOne(id, func(p *particles.RigidParticles, i int) particles.Fields {
		p.Geometry[i] = object
		p.CollisionParticles[i] = collisionParticles
		return particles.FieldGeometry
	})
}

// bodyShapes returns the attached shapes of id in creation order. It requires the staging lock.
func (s *Scene) bodyShapes(id BodyID) []*shape {
	var shapes []*shape
	for _, handle := range slices.Sorted(maps.Keys(s.shapes)) {
		if sh := s.shapes[handle]; sh.attached && sh.body == id {
			shapes = append(shapes, sh)
		}
	}

	return shapes
}

func (s *Scene) shapeOf(handle ShapeHandle) (*shape, error) {
	sh, ok := s.shapes[handle]
	if !ok {
		return nil, fmt.Errorf("shape %d: %w", handle, ErrInvalidHandle)
	}

	return sh, nil
}

func (s *Scene) GetShapes(id BodyID) ([]ShapeHandle, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, err := s.indexOf(id); err != nil {
		return nil, err
	}
	var handles []ShapeHandle
	for _, sh := range s.bodyShapes(id) {
		handles = append(handles, sh.handle)
	}

	return handles, nil
}

func (s *Scene) GetNumShapes(id BodyID) (int, error) {
	handles, err := s.GetShapes(id)

	return len(handles), err
}

// GetShapeType returns the type of the element, ignoring its local transform
func (s *Scene) GetShapeType(handle ShapeHandle) (geometry.ObjectType, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	sh, err := s.shapeOf(handle)
	if err != nil {
		return 0, err
	}

	return sh.inner.Type(), nil
}

func (s *Scene) GetLocalTransform(handle ShapeHandle) (geometry.Transform, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	sh, err := s.shapeOf(handle)
	if err != nil {
		return geometry.Transform{}, err
	}

	return sh.local, nil
}

// SetLocalTransform rewraps the element under local and restages the body geometry
func (s *Scene) SetLocalTransform(handle ShapeHandle, local geometry.Transform) error {
	local, err := validateTransform(local)
	if err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	sh, err := s.shapeOf(handle)
	if err != nil {
		return err
	}
	sh.wrap(local)
	if !sh.attached {
		return nil
	}

	return s.rebuildGeometry(sh.body)
}

// DetachShape removes the shape from its body; it can be attached again later
func (s *Scene) DetachShape(handle ShapeHandle) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	sh, err := s.shapeOf(handle)
	if err != nil {
		return err
	}
	if !sh.attached {
		return nil
	}
	sh.attached = false

	return s.rebuildGeometry(sh.body)
}

// AttachShape attaches the shape to id, moving it from its previous body if needed
func (s *Scene) AttachShape(id BodyID, handle ShapeHandle) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, err := s.indexOf(id); err != nil {
		return err
	}
	sh, err := s.shapeOf(handle)
	if err != nil {
		return err
	}

	previous, wasAttached := sh.body, sh.attached
	sh.body = id
	sh.attached = true
	if wasAttached && previous != id {
		if err := s.rebuildGeometry(previous); err != nil {
			return err
		}
	}

	return s.rebuildGeometry(id)
}

// GetShapeBounds returns the world bounds of one shape
func (s *Scene) GetShapeBounds(handle ShapeHandle) (geometry.AABB, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	sh, err := s.shapeOf(handle)
	if err != nil {
		return geometry.AABB{}, err
	}
	if !sh.attached {
		return sh.object.BoundingBox(), nil
	}
	index, err := s.indexOf(sh.body)
	if err != nil {
		return geometry.AABB{}, err
	}
	p, i := s.particlesAndIndex(index)

	return sh.object.BoundingBox().Transformed(p.Transform(i)), nil
}
