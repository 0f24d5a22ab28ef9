package particles

import (
	"math"
	"testing"

	"github.com/akmonengine/apeiron/geometry"
	"github.com/go-gl/mathgl/mgl64"
)

func almostEqual(a, b, epsilon float64) bool {
	return math.Abs(a-b) < epsilon
}

// Helper function to compare Vec3 with epsilon tolerance
func vec3AlmostEqual(a, b mgl64.Vec3, epsilon float64) bool {
	return almostEqual(a.X(), b.X(), epsilon) &&
		almostEqual(a.Y(), b.Y(), epsilon) &&
		almostEqual(a.Z(), b.Z(), epsilon)
}

// ========== STORAGE TESTS ==========
func TestAddParticlesDefaults(t *testing.T) {
	p := NewRigidParticles()

	if first := p.AddParticles(3); first != 0 {
		t.Errorf("AddParticles() first = %d, want 0", first)
	}
	if first := p.AddParticles(2); first != 3 {
		t.Errorf("AddParticles() first = %d, want 3", first)
	}
	if p.Size() != 5 {
		t.Fatalf("Size() = %d, want 5", p.Size())
	}

	for i := 0; i < p.Size(); i++ {
		if p.R[i] != mgl64.QuatIdent() || p.Q[i] != mgl64.QuatIdent() {
			t.Errorf("particle %d rotation = %v, want identity", i, p.R[i])
		}
		if p.M[i] != 1 || p.InvM[i] != 1 {
			t.Errorf("particle %d mass = %v/%v, want 1/1", i, p.M[i], p.InvM[i])
		}
		if p.I[i] != mgl64.Ident3() {
			t.Errorf("particle %d inertia = %v, want identity", i, p.I[i])
		}
		if p.Disabled[i] || p.Sleeping[i] {
			t.Errorf("particle %d starts disabled or sleeping", i)
		}
	}
}

func TestResizeShrinkClearsSlots(t *testing.T) {
	p := NewRigidParticles()
	p.AddParticles(2)
	p.X[1] = mgl64.Vec3{4, 5, 6}
	p.Geometry[1] = geometry.NewSphere(mgl64.Vec3{}, 1)

	p.Resize(1)
	p.Resize(2)

	if p.X[1] != (mgl64.Vec3{}) || p.Geometry[1] != nil {
		t.Errorf("slot reused after shrink kept stale data: %v %v", p.X[1], p.Geometry[1])
	}
	if p.M[1] != 1 {
		t.Errorf("slot reused after shrink mass = %v, want 1", p.M[1])
	}
}

func TestCopyParticle(t *testing.T) {
	src := NewRigidParticles()
	src.AddParticles(1)
	sphere := geometry.NewSphere(mgl64.Vec3{}, 2)
	src.X[0] = mgl64.Vec3{1, 2, 3}
	src.R[0] = mgl64.QuatRotate(1, mgl64.Vec3{0, 0, 1})
	src.V[0] = mgl64.Vec3{0, 1, 0}
	src.M[0] = 4
	src.InvM[0] = 0.25
	src.Geometry[0] = sphere
	src.CollisionParticles[0] = []mgl64.Vec3{{0, 0, 2}}
	src.Sleeping[0] = true

	dst := NewRigidParticles()
	dst.AddParticles(3)
	dst.Geometry[2] = geometry.NewBoxFromHalfExtents(mgl64.Vec3{1, 1, 1})

	CopyParticle(dst, 2, src, 0)

	if dst.X[2] != src.X[0] || dst.R[2] != src.R[0] || dst.V[2] != src.V[0] {
		t.Errorf("CopyParticle() did not copy the state")
	}
	if dst.M[2] != 4 || dst.InvM[2] != 0.25 {
		t.Errorf("CopyParticle() mass = %v/%v, want 4/0.25", dst.M[2], dst.InvM[2])
	}
	if dst.Geometry[2] != geometry.ImplicitObject(sphere) {
		t.Errorf("CopyParticle() geometry = %v, want the source sphere", dst.Geometry[2])
	}
	if len(dst.CollisionParticles[2]) != 1 || !dst.Sleeping[2] {
		t.Errorf("CopyParticle() lost collision particles or sleep flag")
	}
}

func TestSetKinematic(t *testing.T) {
	p := NewRigidParticles()
	p.AddParticles(1)
	p.SetMass(0, 2)
	p.SetInertia(0, mgl64.Diag3(mgl64.Vec3{2, 2, 2}))
	p.V[0] = mgl64.Vec3{1, 0, 0}

	p.SetKinematic(0, true)
	if !p.IsKinematic(0) || p.InvI[0] != (mgl64.Mat3{}) || p.V[0] != (mgl64.Vec3{}) {
		t.Errorf("SetKinematic(true) left InvM=%v InvI=%v V=%v", p.InvM[0], p.InvI[0], p.V[0])
	}

	// mass changes on a kinematic particle keep it kinematic
	p.SetMass(0, 10)
	if !p.IsKinematic(0) {
		t.Errorf("SetMass() made a kinematic particle dynamic")
	}

	p.SetKinematic(0, false)
	if !almostEqual(p.InvM[0], 0.1, 1e-12) {
		t.Errorf("SetKinematic(false) InvM = %v, want 0.1", p.InvM[0])
	}
	if !vec3AlmostEqual(p.InvI[0].Diag(), mgl64.Vec3{0.5, 0.5, 0.5}, 1e-12) {
		t.Errorf("SetKinematic(false) InvI = %v, want 0.5 diagonal", p.InvI[0])
	}
}

func TestWorldBounds(t *testing.T) {
	p := NewRigidParticles()
	p.AddParticles(2)
	p.Geometry[0] = geometry.NewSphere(mgl64.Vec3{}, 1)
	p.SetTransform(0, geometry.Transform{Position: mgl64.Vec3{5, 0, 0}, Rotation: mgl64.QuatIdent()})

	bounds, ok := p.WorldBounds(0)
	if !ok {
		t.Fatalf("WorldBounds() ok = false")
	}
	if !vec3AlmostEqual(bounds.Min, mgl64.Vec3{4, -1, -1}, 1e-9) || !vec3AlmostEqual(bounds.Max, mgl64.Vec3{6, 1, 1}, 1e-9) {
		t.Errorf("WorldBounds() = %v", bounds)
	}

	if _, ok := p.WorldBounds(1); ok {
		t.Errorf("WorldBounds() ok = true for a particle without geometry")
	}
}

// ========== INTEGRATION TESTS ==========
func TestIntegrate(t *testing.T) {
	tests := []struct {
		name      string
		setup     func(p *RigidParticles)
		dt        float64
		wantV     mgl64.Vec3
		wantP     mgl64.Vec3
		wantMoved bool
	}{
		{
			name: "gravity force",
			setup: func(p *RigidParticles) {
				p.SetMass(0, 2)
				p.F[0] = mgl64.Vec3{0, 0, -9.8 * 2}
			},
			dt:        0.1,
			wantV:     mgl64.Vec3{0, 0, -0.98},
			wantP:     mgl64.Vec3{0, 0, -0.098},
			wantMoved: true,
		},
		{
			name: "constant velocity",
			setup: func(p *RigidParticles) {
				p.V[0] = mgl64.Vec3{1, 2, 0}
			},
			dt:        0.5,
			wantV:     mgl64.Vec3{1, 2, 0},
			wantP:     mgl64.Vec3{0.5, 1, 0},
			wantMoved: true,
		},
		{
			name: "kinematic ignores force",
			setup: func(p *RigidParticles) {
				p.SetKinematic(0, true)
				p.F[0] = mgl64.Vec3{0, 0, -100}
			},
			dt: 0.1,
		},
		{
			name: "sleeping does not move",
			setup: func(p *RigidParticles) {
				p.V[0] = mgl64.Vec3{1, 0, 0}
				p.Sleeping[0] = true
			},
			dt:    0.1,
			wantV: mgl64.Vec3{1, 0, 0},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p := NewRigidParticles()
			p.AddParticles(1)
			tt.setup(p)

			p.Integrate(0, tt.dt, 0, 0)

			if !vec3AlmostEqual(p.V[0], tt.wantV, 1e-9) {
				t.Errorf("Integrate() V = %v, want %v", p.V[0], tt.wantV)
			}
			if !vec3AlmostEqual(p.P[0], tt.wantP, 1e-9) {
				t.Errorf("Integrate() P = %v, want %v", p.P[0], tt.wantP)
			}
			if moved := p.P[0] != p.X[0]; moved != tt.wantMoved {
				t.Errorf("Integrate() moved = %v, want %v", moved, tt.wantMoved)
			}
		})
	}
}

func TestIntegrateDamping(t *testing.T) {
	p := NewRigidParticles()
	p.AddParticles(1)
	p.V[0] = mgl64.Vec3{10, 0, 0}
	p.W[0] = mgl64.Vec3{0, 0, 10}

	p.Integrate(0, 0.1, 1, 2)

	if want := 10 * math.Exp(-0.1); !almostEqual(p.V[0].X(), want, 1e-9) {
		t.Errorf("linear damping V = %v, want %v", p.V[0].X(), want)
	}
	if want := 10 * math.Exp(-0.2); !almostEqual(p.W[0].Z(), want, 1e-9) {
		t.Errorf("angular damping W = %v, want %v", p.W[0].Z(), want)
	}
}

func TestIntegrateThenUpdateVelocities(t *testing.T) {
	p := NewRigidParticles()
	p.AddParticles(1)
	p.V[0] = mgl64.Vec3{0, 3, 0}
	p.W[0] = mgl64.Vec3{0, 0, 0.5}
	dt := 0.01

	p.Integrate(0, dt, 0, 0)
	p.UpdateVelocities(0, dt)

	if !vec3AlmostEqual(p.V[0], mgl64.Vec3{0, 3, 0}, 1e-9) {
		t.Errorf("UpdateVelocities() V = %v, want (0, 3, 0)", p.V[0])
	}
	if !vec3AlmostEqual(p.W[0], mgl64.Vec3{0, 0, 0.5}, 1e-4) {
		t.Errorf("UpdateVelocities() W = %v, want (0, 0, 0.5)", p.W[0])
	}
	if !vec3AlmostEqual(p.X[0], mgl64.Vec3{0, 0.03, 0}, 1e-12) || p.X[0] != p.P[0] {
		t.Errorf("UpdateVelocities() did not commit P: X = %v, P = %v", p.X[0], p.P[0])
	}
	if p.PreV[0] != p.V[0] {
		t.Errorf("UpdateVelocities() PreV = %v, want %v", p.PreV[0], p.V[0])
	}
}

func TestTrySleep(t *testing.T) {
	p := NewRigidParticles()
	p.AddParticles(1)
	p.V[0] = mgl64.Vec3{0.001, 0, 0}

	if p.TrySleep(0, 0.3, 0.01, 0.5) {
		t.Fatalf("TrySleep() slept before the time threshold")
	}
	if !p.TrySleep(0, 0.3, 0.01, 0.5) {
		t.Fatalf("TrySleep() did not sleep after the time threshold")
	}
	if !p.Sleeping[0] || p.V[0] != (mgl64.Vec3{}) {
		t.Errorf("Sleep() left Sleeping=%v V=%v", p.Sleeping[0], p.V[0])
	}

	p.Awake(0)
	p.V[0] = mgl64.Vec3{1, 0, 0}
	p.SleepTimer[0] = 0.4
	if p.TrySleep(0, 0.3, 0.01, 0.5) || p.SleepTimer[0] != 0 {
		t.Errorf("TrySleep() on a fast particle should reset the timer, got %v", p.SleepTimer[0])
	}
}

func TestVelocityAtPoint(t *testing.T) {
	p := NewRigidParticles()
	p.AddParticles(1)
	p.X[0] = mgl64.Vec3{1, 0, 0}
	p.V[0] = mgl64.Vec3{0, 0, 1}
	p.W[0] = mgl64.Vec3{0, 0, 2}

	// ω × r = (0,0,2) × (1,0,0) = (0,2,0)
	got := p.VelocityAtPoint(0, mgl64.Vec3{2, 0, 0})
	if !vec3AlmostEqual(got, mgl64.Vec3{0, 2, 1}, 1e-12) {
		t.Errorf("VelocityAtPoint() = %v, want (0, 2, 1)", got)
	}
}
