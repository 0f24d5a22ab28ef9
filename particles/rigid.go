package particles

import (
	"math"

	"github.com/go-gl/mathgl/mgl64"
)

// Integrate advances particle i by dt from its accumulated force and torque and writes
// the predicted pose into P and Q. Sleeping particles keep their pose; the predicted pose
// of kinematic particles is left to the kinematic target update.
func (p *RigidParticles) Integrate(i int, dt float64, linearDamping float64, angularDamping float64) {
	if p.IsKinematic(i) {
		return
	}
	p.P[i] = p.X[i]
	p.Q[i] = p.R[i]
	if p.Sleeping[i] || p.Disabled[i] {
		return
	}

	// ========== LINEAR INTEGRATION ==========
	p.V[i] = p.V[i].Add(p.F[i].Mul(p.InvM[i] * dt))

	// ========== LINEAR DAMPING ==========
	p.V[i] = p.V[i].Mul(math.Exp(-linearDamping * dt))
	p.P[i] = p.X[i].Add(p.V[i].Mul(dt))

	// ========== ANGULAR INTEGRATION ==========
	// dω = I⁻¹ (τ - ω × Iω) dt
	inertia := p.InertiaWorld(i)
	gyroscopic := p.W[i].Cross(inertia.Mul3x1(p.W[i]))
	angularAccel := p.InverseInertiaWorld(i).Mul3x1(p.Torque[i].Sub(gyroscopic))
	p.W[i] = p.W[i].Add(angularAccel.Mul(dt))

	// ========== ANGULAR DAMPING ==========
	p.W[i] = p.W[i].Mul(math.Exp(-angularDamping * dt))

	// ========== UPDATE QUATERNION ==========
	omegaQuat := mgl64.Quat{V: p.W[i], W: 0}
	qDot := omegaQuat.Mul(p.R[i]).Scale(0.5)
	p.Q[i] = p.R[i].Add(qDot.Scale(dt)).Normalize()
}

// UpdateVelocities derives V and W from the solved pose, then commits P and Q into X and R
func (p *RigidParticles) UpdateVelocities(i int, dt float64) {
	if p.Sleeping[i] || p.Disabled[i] {
		return
	}

	p.V[i] = p.P[i].Sub(p.X[i]).Mul(1.0 / dt)
	qDelta := p.Q[i].Mul(p.R[i].Conjugate()).Normalize()
	if qDelta.W >= 0.0 {
		p.W[i] = qDelta.V.Mul(2.0 / dt)
	} else {
		p.W[i] = qDelta.V.Mul(-2.0 / dt)
	}

	p.X[i] = p.P[i]
	p.R[i] = p.Q[i]
	p.PreV[i] = p.V[i]
	p.PreW[i] = p.W[i]
}

// TrySleep accumulates rest time for slow particles and puts them to sleep once
// timeThreshold is reached. It returns true when the particle fell asleep on this call.
func (p *RigidParticles) TrySleep(i int, dt float64, velocityThreshold float64, timeThreshold float64) bool {
	if p.Sleeping[i] || p.Disabled[i] || p.IsKinematic(i) {
		return false
	}

	if p.V[i].Len() < velocityThreshold && p.W[i].Len() < velocityThreshold {
		p.SleepTimer[i] += dt
		if p.SleepTimer[i] >= timeThreshold {
			p.Sleep(i)
			return true
		}
	} else {
		p.SleepTimer[i] = 0
	}

	return false
}

func (p *RigidParticles) Sleep(i int) {
	p.Sleeping[i] = true
	p.SleepTimer[i] = 0
	p.V[i] = mgl64.Vec3{}
	p.W[i] = mgl64.Vec3{}
	p.ClearForces(i)
}

func (p *RigidParticles) Awake(i int) {
	p.Sleeping[i] = false
	p.SleepTimer[i] = 0
}

func (p *RigidParticles) ClearForces(i int) {
	p.F[i] = mgl64.Vec3{}
	p.Torque[i] = mgl64.Vec3{}
}

// InertiaWorld returns R * I_local * R^T for the predicted rotation
func (p *RigidParticles) InertiaWorld(i int) mgl64.Mat3 {
	r := p.Q[i].Mat4().Mat3()

	return r.Mul3(p.I[i]).Mul3(r.Transpose())
}

// InverseInertiaWorld returns R * I_local^-1 * R^T, zero for kinematic particles
func (p *RigidParticles) InverseInertiaWorld(i int) mgl64.Mat3 {
	if p.IsKinematic(i) {
		return mgl64.Mat3{}
	}
	r := p.Q[i].Mat4().Mat3()

	return r.Mul3(p.InvI[i]).Mul3(r.Transpose())
}

// VelocityAtPoint returns V + W × (point - X)
func (p *RigidParticles) VelocityAtPoint(i int, point mgl64.Vec3) mgl64.Vec3 {
	return p.V[i].Add(p.W[i].Cross(point.Sub(p.X[i])))
}
