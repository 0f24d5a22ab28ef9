package particles

import (
	"github.com/akmonengine/apeiron/geometry"
	"github.com/go-gl/mathgl/mgl64"
)

// RigidParticles stores rigid bodies as a structure of arrays.
// Every slice has Size() entries; index i across all slices is one particle.
type RigidParticles struct {
	// Spatial properties
	X []mgl64.Vec3 // position
	P []mgl64.Vec3 // predicted position
	R []mgl64.Quat // rotation
	Q []mgl64.Quat // predicted rotation

	// Motion
	V    []mgl64.Vec3 // linear velocity (m/s)
	W    []mgl64.Vec3 // angular velocity (rad/s)
	PreV []mgl64.Vec3 // velocities before the contact velocity solve
	PreW []mgl64.Vec3

	F      []mgl64.Vec3
	Torque []mgl64.Vec3

	// Mass properties. InvM == 0 marks kinematic and static particles.
	M    []float64
	InvM []float64
	I    []mgl64.Mat3 // local inertia tensor
	InvI []mgl64.Mat3

	Geometry           []geometry.ImplicitObject
	CollisionParticles [][]mgl64.Vec3

	Disabled   []bool
	Sleeping   []bool
	SleepTimer []float64
}

func NewRigidParticles() *RigidParticles {
	return &RigidParticles{}
}

func (p *RigidParticles) Size() int {
	return len(p.X)
}

// AddParticles appends n default particles and returns the index of the first one
func (p *RigidParticles) AddParticles(n int) int {
	first := p.Size()
	p.Resize(first + n)

	return first
}

// Resize grows or shrinks every array to n. New slots are identity-posed,
// at rest, with unit mass and inertia.
func (p *RigidParticles) Resize(n int) {
	old := p.Size()

	p.X = resize(p.X, n)
	p.P = resize(p.P, n)
	p.R = resize(p.R, n)
	p.Q = resize(p.Q, n)
	p.V = resize(p.V, n)
	p.W = resize(p.W, n)
	p.PreV = resize(p.PreV, n)
	p.PreW = resize(p.PreW, n)
	p.F = resize(p.F, n)
	p.Torque = resize(p.Torque, n)
	p.M = resize(p.M, n)
	p.InvM = resize(p.InvM, n)
	p.I = resize(p.I, n)
	p.InvI = resize(p.InvI, n)
	p.Geometry = resize(p.Geometry, n)
	p.CollisionParticles = resize(p.CollisionParticles, n)
	p.Disabled = resize(p.Disabled, n)
	p.Sleeping = resize(p.Sleeping, n)
	p.SleepTimer = resize(p.SleepTimer, n)

	for i := old; i < n; i++ {
		p.R[i] = mgl64.QuatIdent()
		p.Q[i] = mgl64.QuatIdent()
		p.M[i] = 1
		p.InvM[i] = 1
		p.I[i] = mgl64.Ident3()
		p.InvI[i] = mgl64.Ident3()
	}
}

func resize[T any](s []T, n int) []T {
	if n <= len(s) {
		var zero T
		for i := n; i < len(s); i++ {
			s[i] = zero
		}
		return s[:n]
	}
	if n <= cap(s) {
		return s[:n]
	}

	grown := make([]T, n, max(n, 2*cap(s)))
	copy(grown, s)

	return grown
}

// CopyParticle copies every field of src[srcIndex] into dst[dstIndex].
// The destination's previous geometry is dropped; geometry and collision particles
// are immutable once attached, so both slots may reference them afterwards.
func CopyParticle(dst *RigidParticles, dstIndex int, src *RigidParticles, srcIndex int) {
	CopyFields(dst, dstIndex, src, srcIndex, FieldAll)
}

// Transform returns the committed pose of particle i
func (p *RigidParticles) Transform(i int) geometry.Transform {
	return geometry.Transform{Position: p.X[i], Rotation: p.R[i]}
}

// PredictedTransform returns the pose being solved during a step
func (p *RigidParticles) PredictedTransform(i int) geometry.Transform {
	return geometry.Transform{Position: p.P[i], Rotation: p.Q[i]}
}

func (p *RigidParticles) SetTransform(i int, t geometry.Transform) {
	p.X[i] = t.Position
	p.P[i] = t.Position
	p.R[i] = t.Rotation.Normalize()
	p.Q[i] = p.R[i]
}

// IsKinematic reports whether particle i ignores forces
func (p *RigidParticles) IsKinematic(i int) bool {
	return p.InvM[i] == 0
}

// SetMass updates M and InvM. Kinematic particles keep a zero inverse mass.
func (p *RigidParticles) SetMass(i int, mass float64) {
	kinematic := p.IsKinematic(i)
	p.M[i] = mass
	if !kinematic && mass > 0 {
		p.InvM[i] = 1 / mass
	}
}

// SetInertia updates I and InvI. Kinematic particles keep a zero inverse inertia.
func (p *RigidParticles) SetInertia(i int, inertia mgl64.Mat3) {
	p.I[i] = inertia
	if !p.IsKinematic(i) {
		p.InvI[i] = inertia.Inv()
	}
}

// SetKinematic switches particle i between kinematic and dynamic
func (p *RigidParticles) SetKinematic(i int, kinematic bool) {
	if kinematic {
		p.InvM[i] = 0
		p.InvI[i] = mgl64.Mat3{}
		p.V[i] = mgl64.Vec3{}
		p.W[i] = mgl64.Vec3{}
		return
	}

	if p.M[i] > 0 {
		p.InvM[i] = 1 / p.M[i]
	}
	p.InvI[i] = p.I[i].Inv()
}

// WorldBounds returns the world-space bounds of the committed pose.
// ok is false when the particle has no geometry.
func (p *RigidParticles) WorldBounds(i int) (geometry.AABB, bool) {
	if p.Geometry[i] == nil {
		return geometry.AABB{}, false
	}

	return p.Geometry[i].BoundingBox().Transformed(p.Transform(i)), true
}

// PredictedBounds returns the world-space bounds of the predicted pose
func (p *RigidParticles) PredictedBounds(i int) (geometry.AABB, bool) {
	if p.Geometry[i] == nil {
		return geometry.AABB{}, false
	}

	return p.Geometry[i].BoundingBox().Transformed(p.PredictedTransform(i)), true
}
