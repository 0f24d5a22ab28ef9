package apeiron

import (
	"log/slog"
	"sort"

	"github.com/akmonengine/apeiron/constraint"
	"github.com/akmonengine/apeiron/epa"
	"github.com/akmonengine/apeiron/geometry"
	"github.com/akmonengine/apeiron/gjk"
	"github.com/akmonengine/apeiron/particles"
	"github.com/go-gl/mathgl/mgl64"
)

const STIFF_COMPLIANCE = CONCRETE_COMPLIANCE

const (
	CONCRETE_COMPLIANCE = 0.04e-9
	WOOD_COMPLIANCE     = 0.16e-9
	LEATHER_COMPLIANCE  = 14e-8
	TENDON_COMPLIANCE   = 0.2e-7
	RUBBER_COMPLIANCE   = 1e-6
	MUSCLE_COMPLIANCE   = 0.2e-3
	FAT_COMPLIANCE      = 1e-3
)

// maxContactPoints is the size of a manifold built from collision samples
const maxContactPoints = 4

// ContactMaterial is copied into every contact constraint
type ContactMaterial struct {
	Compliance      float64
	Restitution     float64
	StaticFriction  float64
	DynamicFriction float64
}

// BroadPhase inserts every enabled particle with geometry into the grid, using its predicted
// bounds thickened by thickness, and returns the candidate pairs.
func BroadPhase(spatialGrid *SpatialGrid, p *particles.RigidParticles, thickness float64, collisionDisabled map[pairKey]bool, workersCount int) []Pair {
	spatialGrid.Clear()
	for i := 0; i < p.Size(); i++ {
		if p.Disabled[i] {
			continue
		}
		aabb, ok := p.PredictedBounds(i)
		if !ok {
			continue
		}
		spatialGrid.Insert(i, aabb.Thicken(thickness))
	}
	spatialGrid.SortCells()

	return spatialGrid.FindPairs(workersCount, func(a, b int) bool {
		if p.IsKinematic(a) && p.IsKinematic(b) {
			return false
		}
		if p.Sleeping[a] && p.Sleeping[b] {
			return false
		}

		return !collisionDisabled[makePairKey(a, b)]
	})
}

// NarrowPhase computes one contact constraint per touching pair, in pair order
func NarrowPhase(p *particles.RigidParticles, pairs []Pair, thickness float64, material ContactMaterial, workersCount int, logger *slog.Logger) []*constraint.ContactConstraint {
	slots := make([]*constraint.ContactConstraint, len(pairs))

	taskRange(workersCount, len(pairs), func(start, end int) {
		for k := start; k < end; k++ {
			contact, ok := Collide(p, pairs[k].IndexA, pairs[k].IndexB, thickness, logger)
			if !ok {
				continue
			}
			contact.Compliance = material.Compliance
			contact.Restitution = material.Restitution
			contact.StaticFriction = material.StaticFriction
			contact.DynamicFriction = material.DynamicFriction
			slots[k] = contact
		}
	})

	contacts := slots[:0]
	for _, contact := range slots {
		if contact != nil {
			contacts = append(contacts, contact)
		}
	}

	return contacts
}

type contactCandidate struct {
	point  constraint.ContactPoint
	normal mgl64.Vec3
}

// Collide builds the contact between particles a and b on their predicted pose.
// The normal points from a to b.
func Collide(p *particles.RigidParticles, a, b int, thickness float64, logger *slog.Logger) (*constraint.ContactConstraint, bool) {
	geometryA, geometryB := p.Geometry[a], p.Geometry[b]
	if geometryA == nil || geometryB == nil {
		return nil, false
	}
	transformA, transformB := p.PredictedTransform(a), p.PredictedTransform(b)

	if sphereA, ok := geometryA.(*geometry.Sphere); ok {
		if sphereB, ok := geometryB.(*geometry.Sphere); ok {
			return collideSpheres(a, b, sphereA, sphereB, transformA, transformB, thickness)
		}
	}

	var candidates []contactCandidate
	// samples of a against b: the normal of b points toward a
	candidates = sampleAgainst(candidates, p, a, geometryB, transformA, transformB, thickness, true)
	candidates = sampleAgainst(candidates, p, b, geometryA, transformB, transformA, thickness, false)

	if len(candidates) > 0 {
		sort.Slice(candidates, func(i, j int) bool {
			return candidates[i].point.Penetration > candidates[j].point.Penetration
		})
		candidates = candidates[:min(len(candidates), maxContactPoints)]

		contact := &constraint.ContactConstraint{IndexA: a, IndexB: b, Normal: candidates[0].normal}
		for _, candidate := range candidates {
			contact.Points = append(contact.Points, candidate.point)
		}
		return contact, true
	}

	return collideConvex(a, b, geometryA, geometryB, transformA, transformB, logger)
}

func collideSpheres(a, b int, sphereA, sphereB *geometry.Sphere, transformA, transformB geometry.Transform, thickness float64) (*constraint.ContactConstraint, bool) {
	centerA := transformA.TransformPosition(sphereA.Center)
	centerB := transformB.TransformPosition(sphereB.Center)

	delta := centerB.Sub(centerA)
	distance := delta.Len()
	penetration := sphereA.Radius + sphereB.Radius - distance
	if -penetration >= thickness {
		return nil, false
	}

	normal := mgl64.Vec3{0, 0, 1}
	if distance > 1e-8 {
		normal = delta.Mul(1 / distance)
	}
	position := centerA.Add(normal.Mul(sphereA.Radius - penetration/2))

	return &constraint.ContactConstraint{
		IndexA: a,
		IndexB: b,
		Normal: normal,
		Points: []constraint.ContactPoint{{Position: position, Penetration: penetration}},
	}, true
}

// sampleAgainst tests the collision samples and collision particles of particle i against
// the distance field of other. sampledIsA tells on which side of the contact i lies.
func sampleAgainst(candidates []contactCandidate, p *particles.RigidParticles, i int, other geometry.ImplicitObject, transform, otherTransform geometry.Transform, thickness float64, sampledIsA bool) []contactCandidate {
	test := func(local mgl64.Vec3, radius float64) {
		world := transform.TransformPosition(local)
		phi, localNormal := other.PhiWithNormal(otherTransform.InverseTransformPosition(world))
		if phi-radius >= thickness {
			return
		}

		outward := otherTransform.TransformVector(localNormal)
		normal := outward
		if sampledIsA {
			normal = outward.Mul(-1)
		}

		candidates = append(candidates, contactCandidate{
			point: constraint.ContactPoint{
				Position:    world.Sub(outward.Mul((radius + phi) / 2)),
				Penetration: radius - phi,
			},
			normal: normal,
		})
	}

	samples := geometry.CollisionSamples(p.Geometry[i])
	for _, sample := range samples {
		test(sample.Point, sample.Radius)
	}

	// level set samples and mesh collision particles are often the same points
	var known map[mgl64.Vec3]bool
	if len(p.CollisionParticles[i]) > 0 && len(samples) > 0 {
		known = make(map[mgl64.Vec3]bool, len(samples))
		for _, sample := range samples {
			known[sample.Point] = true
		}
	}
	for _, point := range p.CollisionParticles[i] {
		if !known[point] {
			test(point, 0)
		}
	}

	return candidates
}

// collideConvex runs GJK then EPA when both objects provide a support mapping
func collideConvex(a, b int, geometryA, geometryB geometry.ImplicitObject, transformA, transformB geometry.Transform, logger *slog.Logger) (*constraint.ContactConstraint, bool) {
	supportA, okA := geometry.AsSupport(geometryA)
	supportB, okB := geometry.AsSupport(geometryB)
	if !okA || !okB {
		return nil, false
	}
	shapeA := gjk.Convex{Object: supportA, Transform: transformA}
	shapeB := gjk.Convex{Object: supportB, Transform: transformB}

	simplex := gjk.SimplexPool.Get().(*gjk.Simplex)
	defer gjk.SimplexPool.Put(simplex)
	simplex.Reset()

	if !gjk.GJK(shapeA, shapeB, simplex) {
		return nil, false
	}

	penetration, err := epa.EPA(shapeA, shapeB, simplex)
	if err != nil {
		logger.Warn("epa failed", slog.Int("a", a), slog.Int("b", b), slog.Any("error", err))
		return nil, false
	}

	return &constraint.ContactConstraint{
		IndexA: a,
		IndexB: b,
		Normal: penetration.Normal,
		Points: []constraint.ContactPoint{{Position: penetration.Midpoint(), Penetration: penetration.Depth}},
	}, true
}

// wakeTouched wakes sleeping particles in contact with a moving one
func wakeTouched(p *particles.RigidParticles, contacts []*constraint.ContactConstraint, velocityThreshold float64) {
	for _, c := range contacts {
		switch {
		case p.Sleeping[c.IndexA] && isMoving(p, c.IndexB, velocityThreshold):
			p.Awake(c.IndexA)
		case p.Sleeping[c.IndexB] && isMoving(p, c.IndexA, velocityThreshold):
			p.Awake(c.IndexB)
		}
	}
}

func isMoving(p *particles.RigidParticles, i int, velocityThreshold float64) bool {
	if p.Sleeping[i] || p.Disabled[i] {
		return false
	}

	return p.V[i].Len() >= velocityThreshold || p.W[i].Len() >= velocityThreshold
}
