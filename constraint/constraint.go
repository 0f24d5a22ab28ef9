package constraint

import (
	"math"

	"github.com/akmonengine/apeiron/particles"
	"github.com/go-gl/mathgl/mgl64"
)

// Constraint is projected on the predicted pose of the particles it references
type Constraint interface {
	SolvePosition(p *particles.RigidParticles, dt float64)
	SolveVelocity(p *particles.RigidParticles, dt float64)
}

func ComputeRestitution(restitutionA, restitutionB float64) float64 {
	// Option 1: Average (more realistic)
	return (restitutionA + restitutionB) / 2.0

	// Option 2: Maximum (if one bounces, it bounces)
	//return math.Max(restitutionA, restitutionB)
}

func ComputeFriction(frictionA, frictionB float64) float64 {
	// geometric mean
	return math.Sqrt(frictionA * frictionB)
}

func clampSmallVelocities(p *particles.RigidParticles, i int) {
	const velocityThreshold = 1e-5

	if p.V[i].Len() < velocityThreshold {
		p.V[i] = mgl64.Vec3{0, 0, 0}
	}
	if p.W[i].Len() < velocityThreshold {
		p.W[i] = mgl64.Vec3{0, 0, 0}
	}
}

// movable reports whether constraints may change the pose of particle i
func movable(p *particles.RigidParticles, i int) bool {
	return !p.IsKinematic(i) && !p.Disabled[i] && !p.Sleeping[i]
}

// inverseMass returns 0 for particles that constraints must not move
func inverseMass(p *particles.RigidParticles, i int) float64 {
	if !movable(p, i) {
		return 0
	}

	return p.InvM[i]
}

func inverseInertia(p *particles.RigidParticles, i int) mgl64.Mat3 {
	if !movable(p, i) {
		return mgl64.Mat3{}
	}

	return p.InverseInertiaWorld(i)
}
