package constraint

import (
	"math"

	"github.com/akmonengine/apeiron/particles"
	"github.com/go-gl/mathgl/mgl64"
)

const (
	// DefaultCompliance controls soft constraint stiffness for contact resolution.
	// Lower values = stiffer contacts (less penetration, potential jitter)
	// Higher values = softer contacts (more penetration, smoother)
	// Typical range: 1e-10 (very stiff) to 1e-6 (soft)
	DefaultCompliance = 1e-7
)

type ContactPoint struct {
	Position    mgl64.Vec3
	Penetration float64
}

// ContactConstraint pushes IndexB away from IndexA along Normal (from A to B)
type ContactConstraint struct {
	IndexA int
	IndexB int
	Points []ContactPoint
	Normal mgl64.Vec3

	Compliance      float64
	Restitution     float64
	StaticFriction  float64
	DynamicFriction float64
}

// SolvePosition resolves penetration (PBD style, no lambda accumulation)
func (c *ContactConstraint) SolvePosition(p *particles.RigidParticles, dt float64) {
	if len(c.Points) == 0 {
		return
	}
	a, b := c.IndexA, c.IndexB
	if !movable(p, a) && !movable(p, b) {
		return
	}

	// ========== 1. Calculate total effective weight ==========
	invMassA := inverseMass(p, a)
	invMassB := inverseMass(p, b)
	IA_inv := inverseInertia(p, a)
	IB_inv := inverseInertia(p, b)

	var totalWeight float64
	var totalPenetration float64

	for _, point := range c.Points {
		penetration := point.Penetration
		if penetration <= 1e-8 {
			continue
		}

		rA := point.Position.Sub(p.P[a])
		rB := point.Position.Sub(p.P[b])

		rA_cross_n := rA.Cross(c.Normal)
		rB_cross_n := rB.Cross(c.Normal)

		angularInertiaA := IA_inv.Mul3x1(rA_cross_n).Dot(rA_cross_n)
		angularInertiaB := IB_inv.Mul3x1(rB_cross_n).Dot(rB_cross_n)

		totalWeight += invMassA + angularInertiaA + invMassB + angularInertiaB
		totalPenetration += penetration
	}

	// ========== 2. Calculate deltaLambda (global correction) ==========
	if totalWeight <= 1e-8 {
		return
	}

	alphaTilde := c.Compliance / (dt * dt)
	deltaLambda := -totalPenetration / (totalWeight + alphaTilde)

	// ========== 3. Apply linear corrections ==========
	totalImpulse := c.Normal.Mul(deltaLambda)

	p.P[a] = p.P[a].Add(totalImpulse.Mul(invMassA))
	p.P[b] = p.P[b].Sub(totalImpulse.Mul(invMassB))

	// ========== 4. Apply angular corrections ==========
	// Accumulate torques from all points, then apply ONE SINGLE correction
	var totalTorqueA, totalTorqueB mgl64.Vec3

	for _, point := range c.Points {
		if point.Penetration <= 1e-8 {
			continue
		}

		rA := point.Position.Sub(p.P[a])
		rB := point.Position.Sub(p.P[b])

		// A receives +totalImpulse, B receives -totalImpulse
		totalTorqueA = totalTorqueA.Add(rA.Cross(totalImpulse))
		totalTorqueB = totalTorqueB.Add(rB.Cross(totalImpulse.Mul(-1)))
	}

	// Δθ = I_inv * (Σ torque)
	rotate(p, a, IA_inv.Mul3x1(totalTorqueA))
	rotate(p, b, IB_inv.Mul3x1(totalTorqueB))
}

// rotate applies a small-angle correction: q_delta ≈ [1, δθ/2]
func rotate(p *particles.RigidParticles, i int, deltaRot mgl64.Vec3) {
	if !movable(p, i) || deltaRot.Len() <= 1e-10 {
		return
	}

	qDelta := mgl64.Quat{W: 1.0, V: deltaRot.Mul(0.5)}.Normalize()
	p.Q[i] = qDelta.Mul(p.Q[i]).Normalize()
}

// SolveVelocity applies restitution and friction impulses after UpdateVelocities
func (c *ContactConstraint) SolveVelocity(p *particles.RigidParticles, dt float64) {
	if len(c.Points) == 0 {
		return
	}
	a, b := c.IndexA, c.IndexB
	if !movable(p, a) && !movable(p, b) {
		return
	}

	invMassA := inverseMass(p, a)
	invMassB := inverseMass(p, b)
	IA_inv := inverseInertia(p, a)
	IB_inv := inverseInertia(p, b)

	// ========== ACCUMULATE all impulses ==========
	var totalLinearImpulseA mgl64.Vec3
	var totalLinearImpulseB mgl64.Vec3
	var totalAngularImpulseA mgl64.Vec3
	var totalAngularImpulseB mgl64.Vec3

	for _, point := range c.Points {
		rA := point.Position.Sub(p.X[a])
		rB := point.Position.Sub(p.X[b])

		// ========== Velocities ==========
		vA := p.V[a].Add(p.W[a].Cross(rA))
		vB := p.V[b].Add(p.W[b].Cross(rB))
		relativeVel := vB.Sub(vA)
		normalVel := relativeVel.Dot(c.Normal)

		// ========== Pre-resolution velocity ==========
		vA_prev := p.PreV[a].Add(p.PreW[a].Cross(rA))
		vB_prev := p.PreV[b].Add(p.PreW[b].Cross(rB))
		normalVelPrev := vB_prev.Sub(vA_prev).Dot(c.Normal)

		// ========== NORMAL IMPULSE (restitution) ==========
		rA_cross_n := rA.Cross(c.Normal)
		rB_cross_n := rB.Cross(c.Normal)

		angularInertiaA := IA_inv.Mul3x1(rA_cross_n).Dot(rA_cross_n)
		angularInertiaB := IB_inv.Mul3x1(rB_cross_n).Dot(rB_cross_n)

		effectiveMassNormal := invMassA + invMassB + angularInertiaA + angularInertiaB
		if effectiveMassNormal < 1e-10 {
			continue
		}

		// separating contacts are left alone, only the approaching ones bounce
		targetVel := 0.0
		if normalVelPrev < 0 {
			targetVel = -c.Restitution * normalVelPrev
		}
		lambdaNormal := (targetVel - normalVel) / effectiveMassNormal

		// no attractive impulses
		if lambdaNormal < 0 {
			lambdaNormal = 0
		}

		normalImpulse := c.Normal.Mul(lambdaNormal)

		totalLinearImpulseA = totalLinearImpulseA.Sub(normalImpulse.Mul(invMassA))
		totalLinearImpulseB = totalLinearImpulseB.Add(normalImpulse.Mul(invMassB))
		totalAngularImpulseA = totalAngularImpulseA.Add(IA_inv.Mul3x1(rA.Cross(normalImpulse.Mul(-1))))
		totalAngularImpulseB = totalAngularImpulseB.Add(IB_inv.Mul3x1(rB.Cross(normalImpulse)))

		// ========== TANGENTIAL IMPULSE (friction) ==========
		if lambdaNormal <= 0 {
			continue
		}

		tangentVel := relativeVel.Sub(c.Normal.Mul(normalVel))
		tangentSpeed := tangentVel.Len()
		if tangentSpeed <= 1e-6 {
			continue
		}

		tangentDir := tangentVel.Mul(1.0 / tangentSpeed)

		rA_cross_t := rA.Cross(tangentDir)
		rB_cross_t := rB.Cross(tangentDir)
		angularInertiaA_t := IA_inv.Mul3x1(rA_cross_t).Dot(rA_cross_t)
		angularInertiaB_t := IB_inv.Mul3x1(rB_cross_t).Dot(rB_cross_t)

		effectiveMassTangent := invMassA + invMassB + angularInertiaA_t + angularInertiaB_t
		if effectiveMassTangent < 1e-10 {
			continue
		}

		lambdaTangent := -tangentSpeed / effectiveMassTangent

		// Coulomb's law: |F_friction| ≤ μ * |F_normal|
		var frictionImpulse mgl64.Vec3
		if math.Abs(lambdaTangent) <= c.StaticFriction*lambdaNormal {
			frictionImpulse = tangentDir.Mul(lambdaTangent)
		} else {
			frictionImpulse = tangentDir.Mul(-c.DynamicFriction * lambdaNormal)
		}

		totalLinearImpulseA = totalLinearImpulseA.Sub(frictionImpulse.Mul(invMassA))
		totalLinearImpulseB = totalLinearImpulseB.Add(frictionImpulse.Mul(invMassB))
		totalAngularImpulseA = totalAngularImpulseA.Add(IA_inv.Mul3x1(rA.Cross(frictionImpulse.Mul(-1))))
		totalAngularImpulseB = totalAngularImpulseB.Add(IB_inv.Mul3x1(rB.Cross(frictionImpulse)))
	}

	// ========== APPLY all impulses ==========
	if movable(p, a) {
		p.V[a] = p.V[a].Add(totalLinearImpulseA)
		p.W[a] = p.W[a].Add(totalAngularImpulseA)
		clampSmallVelocities(p, a)
	}
	if movable(p, b) {
		p.V[b] = p.V[b].Add(totalLinearImpulseB)
		p.W[b] = p.W[b].Add(totalAngularImpulseB)
		clampSmallVelocities(p, b)
	}
}
