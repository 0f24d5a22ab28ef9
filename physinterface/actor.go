package physinterface

import (
	"github.com/akmonengine/apeiron/geometry"
	"github.com/akmonengine/apeiron/particles"
	"github.com/go-gl/mathgl/mgl64"
)

// Falloff controls how AddRadialForce decreases with distance
type Falloff uint8

const (
	FalloffConstant Falloff = iota
	FalloffLinear
)

// ActorParams describes an actor at creation. Geometry is added afterwards with AddGeometry.
type ActorParams struct {
	// Pose defaults to identity when left zero
	Pose      geometry.Transform
	Static    bool
	Kinematic bool
	// QueryOnly actors never simulate; they are created disabled
	QueryOnly bool
	// Mass defaults to 1
	Mass float64
	// Inertia is the diagonal of the local inertia tensor and defaults to identity
	Inertia mgl64.Vec3
}

func (s *Scene) CreateActor(params ActorParams) (BodyID, error) {
	if params.Pose == (geometry.Transform{}) {
		params.Pose = geometry.NewTransform()
	}
	if params.Mass == 0 {
		params.Mass = 1
	}
	inertia := mgl64.Ident3()
	if params.Inertia != (mgl64.Vec3{}) {
		if params.Inertia.X() <= 0 || params.Inertia.Y() <= 0 || params.Inertia.Z() <= 0 {
			return 0, invalidInput("inertia %v", params.Inertia)
		}
		inertia = mgl64.Diag3(params.Inertia)
	}

	id, err := s.AddNewRigidParticle(RigidParticleParams{
		Transform: params.Pose,
		Mass:      params.Mass,
		Inertia:   inertia,
		Kinematic: params.Static || params.Kinematic,
		Disabled:  params.QueryOnly,
	})
	if err != nil {
		return 0, err
	}

	if params.Static {
		s.mu.Lock()
		s.static[id] = true
		s.mu.Unlock()
	}

	return id, nil
}

// ReleaseActor disables the body, invalidates its id and breaks its constraints.
// The particle slot is never reused.
func (s *Scene) ReleaseActor(id BodyID) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	err := s.updateOne(id, func(p *particles.RigidParticles, i int) particles.Fields {
		p.Disabled[i] = true
		return particles.FieldDisabled
	})
	if err != nil {
		return err
	}

	for constraintID, bodies := range s.constraintBodies {
		if bodies[0] == id || bodies[1] == id {
			s.releaseConstraint(constraintID)
		}
	}
	for _, sh := range s.shapes {
		if sh.body == id {
			sh.body = 0
			sh.attached = false
		}
	}
	delete(s.bodyIndex, id)
	delete(s.static, id)
	delete(s.targets, id)

	return nil
}

func (s *Scene) IsValid(id BodyID) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	_, ok := s.bodyIndex[id]

	return ok
}

func (s *Scene) GetGlobalPose(id BodyID) (geometry.Transform, error) {
	var pose geometry.Transform
	err := s.read(id, func(p *particles.RigidParticles, i int) {
		pose = p.Transform(i)
	})

	return pose, err
}

// SetGlobalPose teleports the body. A kinematic body also stops at the new pose.
func (s *Scene) SetGlobalPose(id BodyID, pose geometry.Transform) error {
	pose, err := validateTransform(pose)
	if err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	kinematic := false
	err = s.updateOne(id, func(p *particles.RigidParticles, i int) particles.Fields {
		p.SetTransform(i, pose)
		kinematic = p.IsKinematic(i)
		return particles.FieldPose
	})
	if err != nil {
		return err
	}
	if kinematic {
		s.enqueue(operation{kind: opResetKinematicTarget, index: s.bodyIndex[id], transform: pose})
		s.targets[id] = pose
	}

	return nil
}

// GetComTransform returns the center of mass frame. Particles are simulated about their
// center of mass, so it is the global pose.
func (s *Scene) GetComTransform(id BodyID) (geometry.Transform, error) {
	return s.GetGlobalPose(id)
}

// SetKinematicTarget moves a kinematic body to pose over the next frame
func (s *Scene) SetKinematicTarget(id BodyID, pose geometry.Transform) error {
	pose, err := validateTransform(pose)
	if err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	index, err := s.indexOf(id)
	if err != nil {
		return err
	}
	if p, i := s.particlesAndIndex(index); !p.IsKinematic(i) {
		return invalidInput("body %d is not kinematic", id)
	}

	s.enqueue(operation{kind: opKinematicTarget, index: index, transform: pose})
	s.targets[id] = pose

	return nil
}

// GetKinematicTarget returns the last target set, or the current pose when there is none
func (s *Scene) GetKinematicTarget(id BodyID) (geometry.Transform, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	index, err := s.indexOf(id)
	if err != nil {
		return geometry.Transform{}, err
	}
	if target, ok := s.targets[id]; ok {
		return target, nil
	}
	p, i := s.particlesAndIndex(index)

	return p.Transform(i), nil
}

func (s *Scene) SetIsKinematic(id BodyID, kinematic bool) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	var pose geometry.Transform
	err := s.updateOne(id, func(p *particles.RigidParticles, i int) particles.Fields {
		p.SetKinematic(i, kinematic)
		pose = p.Transform(i)
		if kinematic {
			return particles.FieldMass | particles.FieldLinearVelocity | particles.FieldAngularVelocity
		}
		return particles.FieldMass
	})
	if err != nil {
		return err
	}

	delete(s.static, id)
	delete(s.targets, id)
	if kinematic {
		s.enqueue(operation{kind: opResetKinematicTarget, index: s.bodyIndex[id], transform: pose})
	}

	return nil
}

func (s *Scene) GetLinearVelocity(id BodyID) (mgl64.Vec3, error) {
	var v mgl64.Vec3
	err := s.read(id, func(p *particles.RigidParticles, i int) {
		v = p.V[i]
	})

	return v, err
}

func (s *Scene) SetLinearVelocity(id BodyID, velocity mgl64.Vec3) error {
	if !finiteVec3(velocity) {
		return invalidInput("velocity %v", velocity)
	}

	return s.update(id, func(p *particles.RigidParticles, i int) particles.Fields {
		if p.IsKinematic(i) {
			return 0
		}
		p.V[i] = velocity
		p.Awake(i)
		return particles.FieldLinearVelocity | particles.FieldSleep
	})
}

func (s *Scene) GetAngularVelocity(id BodyID) (mgl64.Vec3, error) {
	var w mgl64.Vec3
	err := s.read(id, func(p *particles.RigidParticles, i int) {
		w = p.W[i]
	})

	return w, err
}

func (s *Scene) SetAngularVelocity(id BodyID, velocity mgl64.Vec3) error {
	if !finiteVec3(velocity) {
		return invalidInput("angular velocity %v", velocity)
	}

	return s.update(id, func(p *particles.RigidParticles, i int) particles.Fields {
		if p.IsKinematic(i) {
			return 0
		}
		p.W[i] = velocity
		p.Awake(i)
		return particles.FieldAngularVelocity | particles.FieldSleep
	})
}

// GetWorldVelocityAtPoint returns V + W × (point - X)
func (s *Scene) GetWorldVelocityAtPoint(id BodyID, point mgl64.Vec3) (mgl64.Vec3, error) {
	var v mgl64.Vec3
	err := s.read(id, func(p *particles.RigidParticles, i int) {
		v = p.VelocityAtPoint(i, point)
	})

	return v, err
}

// stageForce requires the staging lock
func (s *Scene) stageForce(id BodyID, kind opKind, vector mgl64.Vec3) error {
	if !finiteVec3(vector) {
		return invalidInput("force %v", vector)
	}
	index, err := s.indexOf(id)
	if err != nil {
		return err
	}
	s.enqueue(operation{kind: kind, index: index, vector: vector})

	return nil
}

func (s *Scene) addForce(id BodyID, kind opKind, vector mgl64.Vec3) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	return s.stageForce(id, kind, vector)
}

// AddForce applies force during every substep of the next frame
func (s *Scene) AddForce(id BodyID, force mgl64.Vec3) error {
	return s.addForce(id, opForce, force)
}

func (s *Scene) AddTorque(id BodyID, torque mgl64.Vec3) error {
	return s.addForce(id, opTorque, torque)
}

// AddForceMassIndependent applies an acceleration change
func (s *Scene) AddForceMassIndependent(id BodyID, acceleration mgl64.Vec3) error {
	return s.addForce(id, opAcceleration, acceleration)
}

func (s *Scene) AddTorqueMassIndependent(id BodyID, angularAcceleration mgl64.Vec3) error {
	return s.addForce(id, opAngularAcceleration, angularAcceleration)
}

// AddForceAtPosition applies force at a world point, adding the torque (point - X) × force
func (s *Scene) AddForceAtPosition(id BodyID, force mgl64.Vec3, position mgl64.Vec3) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	index, err := s.indexOf(id)
	if err != nil {
		return err
	}
	p, i := s.particlesAndIndex(index)
	torque := position.Sub(p.X[i]).Cross(force)

	if err := s.stageForce(id, opForce, force); err != nil {
		return err
	}

	return s.stageForce(id, opTorque, torque)
}

// AddRadialForce pushes the body away from origin when it lies within radius.
// With FalloffLinear the strength drops to zero at radius.
func (s *Scene) AddRadialForce(id BodyID, origin mgl64.Vec3, radius float64, strength float64, falloff Falloff, accelChange bool) error {
	if !finite(radius, strength) || radius <= 0 {
		return invalidInput("radial force radius %v strength %v", radius, strength)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	index, err := s.indexOf(id)
	if err != nil {
		return err
	}
	p, i := s.particlesAndIndex(index)

	delta := p.X[i].Sub(origin)
	distance := delta.Len()
	if distance > radius || distance < 1e-8 {
		return nil
	}
	if falloff == FalloffLinear {
		strength *= 1 - distance/radius
	}

	kind := opForce
	if accelChange {
		kind = opAcceleration
	}

	return s.stageForce(id, kind, delta.Mul(strength/distance))
}

// AddImpulse changes the linear velocity by impulse / mass right away. Unless the velocity
// was also set this frame, the change is added to the simulated velocity at the next frame.
func (s *Scene) AddImpulse(id BodyID, impulse mgl64.Vec3) error {
	if !finiteVec3(impulse) {
		return invalidInput("impulse %v", impulse)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	return s.updateOne(id, func(p *particles.RigidParticles, i int) particles.Fields {
		if p.IsKinematic(i) {
			return 0
		}
		delta := impulse.Mul(p.InvM[i])
		p.V[i] = p.V[i].Add(delta)
		p.Awake(i)

		index := s.bodyIndex[id]
		if index >= s.mergedCount || s.staged[index]&particles.FieldLinearVelocity != 0 {
			return particles.FieldLinearVelocity | particles.FieldSleep
		}
		s.velocityDeltas[index] = s.velocityDeltas[index].Add(delta)
		return particles.FieldSleep
	})
}

func (s *Scene) GetMass(id BodyID) (float64, error) {
	var mass float64
	err := s.read(id, func(p *particles.RigidParticles, i int) {
		mass = p.M[i]
	})

	return mass, err
}

// SetMass changes the mass; the inverse mass of kinematic bodies stays zero
func (s *Scene) SetMass(id BodyID, mass float64) error {
	if err := validateMass(mass); err != nil {
		return err
	}

	return s.update(id, func(p *particles.RigidParticles, i int) particles.Fields {
		p.SetMass(i, mass)
		return particles.FieldMass
	})
}

// GetLocalInertiaTensor returns the diagonal of the local inertia tensor
func (s *Scene) GetLocalInertiaTensor(id BodyID) (mgl64.Vec3, error) {
	var inertia mgl64.Vec3
	err := s.read(id, func(p *particles.RigidParticles, i int) {
		inertia = p.I[i].Diag()
	})

	return inertia, err
}

func (s *Scene) SetMassSpaceInertiaTensor(id BodyID, inertia mgl64.Vec3) error {
	if !finiteVec3(inertia) || inertia.X() <= 0 || inertia.Y() <= 0 || inertia.Z() <= 0 {
		return invalidInput("inertia %v", inertia)
	}

	return s.update(id, func(p *particles.RigidParticles, i int) particles.Fields {
		p.SetInertia(i, mgl64.Diag3(inertia))
		return particles.FieldMass
	})
}

// UpdateMassFromGeometry computes mass and inertia from the attached geometry
func (s *Scene) UpdateMassFromGeometry(id BodyID, density float64) error {
	if !finite(density) || density <= 0 {
		return invalidInput("density %v", density)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	index, err := s.indexOf(id)
	if err != nil {
		return err
	}
	p, i := s.particlesAndIndex(index)
	if p.Geometry[i] == nil {
		return invalidInput("body %d has no geometry", id)
	}
	mass, inertia, ok := geometry.MassProperties(p.Geometry[i], density)
	if !ok || mass <= 0 {
		return invalidInput("body %d geometry has no finite volume", id)
	}

	return s.updateOne(id, func(p *particles.RigidParticles, i int) particles.Fields {
		p.SetMass(i, mass)
		p.SetInertia(i, inertia)
		return particles.FieldMass
	})
}

func (s *Scene) PutToSleep(id BodyID) error {
	return s.update(id, func(p *particles.RigidParticles, i int) particles.Fields {
		if p.IsKinematic(i) {
			return 0
		}
		p.Sleep(i)
		return particles.FieldSleep | particles.FieldLinearVelocity | particles.FieldAngularVelocity
	})
}

func (s *Scene) WakeUp(id BodyID) error {
	return s.update(id, func(p *particles.RigidParticles, i int) particles.Fields {
		p.Awake(i)
		return particles.FieldSleep
	})
}

func (s *Scene) IsSleeping(id BodyID) (bool, error) {
	var sleeping bool
	err := s.read(id, func(p *particles.RigidParticles, i int) {
		sleeping = p.Sleeping[i]
	})

	return sleeping, err
}

// GetBounds returns the world bounds of the body's geometry
func (s *Scene) GetBounds(id BodyID) (geometry.AABB, error) {
	var bounds geometry.AABB
	var ok bool
	err := s.read(id, func(p *particles.RigidParticles, i int) {
		bounds, ok = p.WorldBounds(i)
	})
	if err != nil {
		return geometry.AABB{}, err
	}
	if !ok {
		return geometry.EmptyAABB(), nil
	}

	return bounds, nil
}

// IsDisabled reports whether the body is out of the simulation. Released and unknown
// handles report true; use IsValid to tell them apart.
func (s *Scene) IsDisabled(id BodyID) bool {
	disabled := true
	_ = s.read(id, func(p *particles.RigidParticles, i int) {
		disabled = p.Disabled[i]
	})

	return disabled
}

// IsKinematic, IsDynamic and IsStatic report false for unknown handles
func (s *Scene) IsKinematic(id BodyID) bool {
	kinematic := false
	_ = s.read(id, func(p *particles.RigidParticles, i int) {
		kinematic = p.IsKinematic(i) && !s.static[id]
	})

	return kinematic
}

func (s *Scene) IsDynamic(id BodyID) bool {
	dynamic := false
	_ = s.read(id, func(p *particles.RigidParticles, i int) {
		dynamic = !p.IsKinematic(i)
	})

	return dynamic
}

func (s *Scene) IsStatic(id BodyID) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	return s.static[id]
}
