package apeiron

import (
	"github.com/akmonengine/apeiron/particles"
	"github.com/go-gl/mathgl/mgl64"
)

// PerParticleGravity accumulates F += g*M on every dynamic, awake particle
type PerParticleGravity struct {
	// Acceleration (m/s², or N/kg)
	Acceleration mgl64.Vec3
}

func (g PerParticleGravity) Apply(p *particles.RigidParticles, i int) {
	if p.IsKinematic(i) || p.Sleeping[i] || p.Disabled[i] {
		return
	}

	p.F[i] = p.F[i].Add(g.Acceleration.Mul(p.M[i]))
}
