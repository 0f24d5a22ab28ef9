package particles

import "github.com/go-gl/mathgl/mgl64"

// Fields is a set of particle field groups
type Fields uint16

const (
	FieldPose            Fields = 1 << iota // X, P, R, Q
	FieldLinearVelocity                     // V
	FieldAngularVelocity                    // W
	FieldMass                               // M, InvM, I, InvI
	FieldGeometry                           // Geometry, CollisionParticles
	FieldDisabled
	FieldSleep  // Sleeping, SleepTimer
	FieldForces // F, Torque, PreV, PreW

	FieldAll = FieldPose | FieldLinearVelocity | FieldAngularVelocity | FieldMass |
		FieldGeometry | FieldDisabled | FieldSleep | FieldForces
)

// CopyFields copies the field groups in fields from src[srcIndex] into dst[dstIndex]
func CopyFields(dst *RigidParticles, dstIndex int, src *RigidParticles, srcIndex int, fields Fields) {
	if fields&FieldPose != 0 {
		dst.X[dstIndex] = src.X[srcIndex]
		dst.P[dstIndex] = src.P[srcIndex]
		dst.R[dstIndex] = src.R[srcIndex]
		dst.Q[dstIndex] = src.Q[srcIndex]
	}
	if fields&FieldLinearVelocity != 0 {
		dst.V[dstIndex] = src.V[srcIndex]
	}
	if fields&FieldAngularVelocity != 0 {
		dst.W[dstIndex] = src.W[srcIndex]
	}
	if fields&FieldMass != 0 {
		dst.M[dstIndex] = src.M[srcIndex]
		dst.InvM[dstIndex] = src.InvM[srcIndex]
		dst.I[dstIndex] = src.I[srcIndex]
		dst.InvI[dstIndex] = src.InvI[srcIndex]
	}
	if fields&FieldGeometry != 0 {
		dst.Geometry[dstIndex] = src.Geometry[srcIndex]
		dst.CollisionParticles[dstIndex] = src.CollisionParticles[srcIndex]
	}
	if fields&FieldDisabled != 0 {
		dst.Disabled[dstIndex] = src.Disabled[srcIndex]
	}
	if fields&FieldSleep != 0 {
		dst.Sleeping[dstIndex] = src.Sleeping[srcIndex]
		dst.SleepTimer[dstIndex] = src.SleepTimer[srcIndex]
	}
	if fields&FieldForces != 0 {
		dst.F[dstIndex] = src.F[srcIndex]
		dst.Torque[dstIndex] = src.Torque[srcIndex]
		dst.PreV[dstIndex] = src.PreV[srcIndex]
		dst.PreW[dstIndex] = src.PreW[srcIndex]
	}
}

// ChangedFields returns the field groups where a[ai] and b[bi] differ.
// Geometry is compared by identity.
func ChangedFields(a *RigidParticles, ai int, b *RigidParticles, bi int) Fields {
	var fields Fields
	if a.X[ai] != b.X[bi] || a.P[ai] != b.P[bi] || a.R[ai] != b.R[bi] || a.Q[ai] != b.Q[bi] {
		fields |= FieldPose
	}
	if a.V[ai] != b.V[bi] {
		fields |= FieldLinearVelocity
	}
	if a.W[ai] != b.W[bi] {
		fields |= FieldAngularVelocity
	}
	if a.M[ai] != b.M[bi] || a.InvM[ai] != b.InvM[bi] || a.I[ai] != b.I[bi] || a.InvI[ai] != b.InvI[bi] {
		fields |= FieldMass
	}
	if a.Geometry[ai] != b.Geometry[bi] || !sameSlice(a.CollisionParticles[ai], b.CollisionParticles[bi]) {
		fields |= FieldGeometry
	}
	if a.Disabled[ai] != b.Disabled[bi] {
		fields |= FieldDisabled
	}
	if a.Sleeping[ai] != b.Sleeping[bi] || a.SleepTimer[ai] != b.SleepTimer[bi] {
		fields |= FieldSleep
	}
	if a.F[ai] != b.F[bi] || a.Torque[ai] != b.Torque[bi] || a.PreV[ai] != b.PreV[bi] || a.PreW[ai] != b.PreW[bi] {
		fields |= FieldForces
	}

	return fields
}

func sameSlice(a, b []mgl64.Vec3) bool {
	if len(a) != len(b) {
		return false
	}

	return len(a) == 0 || &a[0] == &b[0]
}
