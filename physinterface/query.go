package physinterface

import (
	"errors"
	"fmt"

	"github.com/akmonengine/apeiron/epa"
	"github.com/akmonengine/apeiron/geometry"
	"github.com/akmonengine/apeiron/gjk"
	"github.com/akmonengine/apeiron/particles"
	"github.com/go-gl/mathgl/mgl64"
)

// Hit is the first intersection found along a trace, in world space
type Hit struct {
	Point    mgl64.Vec3
	Normal   mgl64.Vec3
	Distance float64
}

// Overlap describes how deep a query shape sits inside a body, Normal pointing out of the body
type Overlap struct {
	Penetration float64
	Normal      mgl64.Vec3
}

type QueryShapeType uint8

const (
	QuerySphere QueryShapeType = iota
	QueryBox
	QueryCapsule
)

// QueryShape is the shape swept or overlapped by Sweep and Overlap. Capsules lie along local Z.
type QueryShape struct {
	Type        QueryShapeType
	Radius      float64
	HalfExtents mgl64.Vec3
	HalfHeight  float64
}

// IsZeroExtent reports whether the shape degenerates to a point
func (q QueryShape) IsZeroExtent() bool {
	switch q.Type {
	case QuerySphere:
		return q.Radius <= 0
	case QueryBox:
		return q.HalfExtents.X() <= 0 && q.HalfExtents.Y() <= 0 && q.HalfExtents.Z() <= 0
	case QueryCapsule:
		return q.Radius <= 0 && q.HalfHeight <= 0
	}

	return false
}

func (q QueryShape) object() (geometry.SupportObject, error) {
	switch q.Type {
	case QuerySphere:
		return geometry.NewSphere(mgl64.Vec3{}, q.Radius), nil
	case QueryBox:
		return geometry.NewBoxFromHalfExtents(q.HalfExtents), nil
	case QueryCapsule:
		if q.HalfHeight <= 0 {
			return geometry.NewSphere(mgl64.Vec3{}, q.Radius), nil
		}
		return geometry.NewCapsule(mgl64.Vec3{0, 0, -q.HalfHeight}, mgl64.Vec3{0, 0, q.HalfHeight}, q.Radius), nil
	}

	return nil, fmt.Errorf("query shape %d: %w", q.Type, ErrUnsupportedOperation)
}

// queryTarget is the freshest geometry and pose of a body, copied under the staging lock
type queryTarget struct {
	geometry  geometry.ImplicitObject
	transform geometry.Transform
}

func (s *Scene) queryTarget(id BodyID) (queryTarget, error) {
	var target queryTarget
	var disabled bool
	err := s.read(id, func(p *particles.RigidParticles, i int) {
		target = queryTarget{geometry: p.Geometry[i], transform: p.Transform(i)}
		disabled = p.Disabled[i]
	})
	if err != nil {
		return queryTarget{}, err
	}
	if disabled || target.geometry == nil {
		return queryTarget{}, fmt.Errorf("body %d has no simulated geometry: %w", id, ErrNoIntersection)
	}

	return target, nil
}

func (t queryTarget) trace(start, end mgl64.Vec3, thickness float64) (Hit, error) {
	localStart := t.transform.InverseTransformPosition(start)
	localEnd := t.transform.InverseTransformPosition(end)

	point, ok := t.geometry.FindClosestIntersection(localStart, localEnd, thickness)
	if !ok {
		return Hit{}, ErrNoIntersection
	}
	phi, normal := t.geometry.PhiWithNormal(point)
	surface := point.Sub(normal.Mul(phi))

	return Hit{
		Point:    t.transform.TransformPosition(surface),
		Normal:   t.transform.TransformVector(normal),
		Distance: point.Sub(localStart).Len(),
	}, nil
}

// LineTrace intersects the segment start->end with the body's geometry
func (s *Scene) LineTrace(id BodyID, start, end mgl64.Vec3) (Hit, error) {
	target, err := s.queryTarget(id)
	if err != nil {
		return Hit{}, err
	}

	return target.trace(start, end, 0)
}

// GetSquaredDistanceToBody returns the squared distance from point to the body surface,
// zero inside, and the closest surface point
func (s *Scene) GetSquaredDistanceToBody(id BodyID, point mgl64.Vec3) (float64, mgl64.Vec3, error) {
	target, err := s.queryTarget(id)
	if err != nil {
		return 0, mgl64.Vec3{}, err
	}

	phi, normal := target.geometry.PhiWithNormal(target.transform.InverseTransformPosition(point))
	if phi <= 0 {
		return 0, point, nil
	}
	closest := point.Sub(target.transform.TransformVector(normal).Mul(phi))

	return phi * phi, closest, nil
}

// Sweep moves shape from start to end and returns the first contact. Zero-extent shapes fall
// back to LineTrace and spheres sweep as a thick trace; other shapes are unsupported.
func (s *Scene) Sweep(id BodyID, start, end mgl64.Vec3, shape QueryShape) (Hit, error) {
	if shape.IsZeroExtent() {
		return s.LineTrace(id, start, end)
	}
	if shape.Type != QuerySphere {
		return Hit{}, fmt.Errorf("sweep of shape %d: %w", shape.Type, ErrUnsupportedOperation)
	}

	target, err := s.queryTarget(id)
	if err != nil {
		return Hit{}, err
	}

	return target.trace(start, end, shape.Radius)
}

// Overlap tests shape placed at pose against the body. Spheres are tested against the
// distance field, convex shapes against convex geometry with GJK/EPA.
func (s *Scene) Overlap(id BodyID, shape QueryShape, pose geometry.Transform) (Overlap, bool, error) {
	pose, err := validateTransform(pose)
	if err != nil {
		return Overlap{}, false, err
	}
	target, err := s.queryTarget(id)
	if err != nil {
		if errors.Is(err, ErrNoIntersection) {
			return Overlap{}, false, nil
		}
		return Overlap{}, false, err
	}

	if shape.Type == QuerySphere || shape.IsZeroExtent() {
		radius := max(shape.Radius, 0)
		phi, normal := target.geometry.PhiWithNormal(target.transform.InverseTransformPosition(pose.Position))
		if phi >= radius {
			return Overlap{}, false, nil
		}
		return Overlap{Penetration: radius - phi, Normal: target.transform.TransformVector(normal)}, true, nil
	}

	object, err := shape.object()
	if err != nil {
		return Overlap{}, false, err
	}
	support, ok := geometry.AsSupport(target.geometry)
	if !ok {
		return Overlap{}, false, fmt.Errorf("overlap with %s geometry: %w", target.geometry.Type(), ErrUnsupportedOperation)
	}

	body := gjk.Convex{Object: support, Transform: target.transform}
	queried := gjk.Convex{Object: object, Transform: pose}

	simplex := gjk.SimplexPool.Get().(*gjk.Simplex)
	defer gjk.SimplexPool.Put(simplex)
	simplex.Reset()

	if !gjk.GJK(body, queried, simplex) {
		return Overlap{}, false, nil
	}
	penetration, err := epa.EPA(body, queried, simplex)
	if err != nil {
		return Overlap{}, false, fmt.Errorf("overlap: %w", err)
	}

	return Overlap{Penetration: penetration.Depth, Normal: penetration.Normal}, true, nil
}
