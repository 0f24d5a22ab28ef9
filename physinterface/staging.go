package physinterface

import (
	"fmt"
	"log/slog"
	"maps"
	"slices"

	"github.com/akmonengine/apeiron/geometry"
	"github.com/akmonengine/apeiron/particles"
	"github.com/go-gl/mathgl/mgl64"
)

// BodyID is the stable handle of a rigid particle. Zero is never allocated.
type BodyID uint64

// ConstraintID is the stable handle of a spring constraint. Zero is never allocated.
type ConstraintID uint64

// RigidParticleParams describes a particle at creation time
type RigidParticleParams struct {
	Transform       geometry.Transform
	LinearVelocity  mgl64.Vec3
	AngularVelocity mgl64.Vec3
	// Mass must be positive unless Kinematic is set
	Mass float64
	// Inertia is the local inertia tensor; the zero matrix means identity
	Inertia            mgl64.Mat3
	Geometry           geometry.ImplicitObject
	CollisionParticles []mgl64.Vec3
	Kinematic          bool
	Disabled           bool
}

func (params RigidParticleParams) validate() (RigidParticleParams, error) {
	t, err := validateTransform(params.Transform)
	if err != nil {
		return params, err
	}
	params.Transform = t

	if !finiteVec3(params.LinearVelocity) || !finiteVec3(params.AngularVelocity) {
		return params, invalidInput("velocity %v / %v", params.LinearVelocity, params.AngularVelocity)
	}
	if params.Kinematic && params.Mass == 0 {
		params.Mass = 1
	}
	if err := validateMass(params.Mass); err != nil {
		return params, err
	}
	if params.Inertia == (mgl64.Mat3{}) {
		params.Inertia = mgl64.Ident3()
	}
	if params.Inertia.Det() <= 0 {
		return params, invalidInput("inertia %v", params.Inertia)
	}

	return params, nil
}

// write fills slot i of p from params
func (params RigidParticleParams) write(p *particles.RigidParticles, i int) {
	p.SetTransform(i, params.Transform)
	p.V[i] = params.LinearVelocity
	p.W[i] = params.AngularVelocity
	p.M[i] = params.Mass
	p.InvM[i] = 1 / params.Mass
	p.SetInertia(i, params.Inertia)
	p.Geometry[i] = params.Geometry
	p.CollisionParticles[i] = params.CollisionParticles
	p.Disabled[i] = params.Disabled
	if params.Kinematic {
		p.SetKinematic(i, true)
	}
}

type opKind uint8

const (
	opGravity opKind = iota
	opCollision
	opForce
	opTorque
	opAcceleration
	opAngularAcceleration
	opKinematicTarget
	opResetKinematicTarget
	opRestLength
)

// operation is an entry of the pending operations log drained at start-frame
type operation struct {
	kind       opKind
	index      int
	other      int
	vector     mgl64.Vec3
	transform  geometry.Transform
	scalar     float64
	enabled    bool
	constraint ConstraintID
}

// UpdateView gives access to the staged copies of the particles passed to
// BeginUpdateRigidParticles, in the same order
type UpdateView struct {
	entries []viewEntry
}

type viewEntry struct {
	particles *particles.RigidParticles
	index     int
}

func (v UpdateView) Len() int {
	return len(v.entries)
}

// At returns the staging array holding the k-th particle and its index in that array
func (v UpdateView) At(k int) (*particles.RigidParticles, int) {
	return v.entries[k].particles, v.entries[k].index
}

// GetIndexFromId returns the global particle index of id
func (s *Scene) GetIndexFromId(id BodyID) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	return s.indexOf(id)
}

func (s *Scene) indexOf(id BodyID) (int, error) {
	index, ok := s.bodyIndex[id]
	if !ok {
		return -1, fmt.Errorf("body %d: %w", id, ErrInvalidHandle)
	}

	return index, nil
}

// AddNewRigidParticle validates params and stages the particle. It is merged into the
// solver at the next Tick but is readable through the scene right away.
func (s *Scene) AddNewRigidParticle(params RigidParticleParams) (BodyID, error) {
	params, err := params.validate()
	if err != nil {
		return 0, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	local := s.newParticles.AddParticles(1)
	params.write(s.newParticles, local)

	return s.allocateIDs(1), nil
}

// allocateIDs registers n ids for the last n particles of the new buffer
func (s *Scene) allocateIDs(n int) BodyID {
	first := s.nextBodyID
	global := s.mergedCount + s.newParticles.Size() - n
	for k := 0; k < n; k++ {
		id := s.nextBodyID
		s.nextBodyID++
		s.bodyIndex[id] = global + k
		s.indexBody = append(s.indexBody, id)
	}

	return first
}

// BeginAddNewRigidParticles reserves n default particles and takes the staging lock.
// The caller fills view from firstIndex on, then calls EndAddNewRigidParticles.
// The k-th particle gets the id firstID+k.
func (s *Scene) BeginAddNewRigidParticles(n int) (view *particles.RigidParticles, firstIndex int, firstID BodyID) {
	s.mu.Lock()

	firstIndex = s.newParticles.AddParticles(n)
	firstID = s.allocateIDs(n)

	return s.newParticles, firstIndex, firstID
}

func (s *Scene) EndAddNewRigidParticles() {
	s.mu.Unlock()
}

// BeginUpdateRigidParticles takes the staging lock and returns mutable staged copies of ids.
// Particles not staged yet this frame are copied from their freshest source first.
// Only the field groups the caller changes are written back to the solver; the others keep
// following the simulation.
// EndUpdateRigidParticles must follow a successful call; on error the lock is already released.
func (s *Scene) BeginUpdateRigidParticles(ids []BodyID) (UpdateView, error) {
	s.mu.Lock()

	view, err := s.stageUpdates(ids)
	if err != nil {
		s.mu.Unlock()
		return UpdateView{}, err
	}

	if s.base.Size() < s.mergedCount {
		s.base.Resize(s.mergedCount)
	}
	s.editing = s.editing[:0]
	for _, entry := range view.entries {
		if entry.particles == s.updateParticles {
			particles.CopyParticle(s.base, entry.index, s.updateParticles, entry.index)
			s.editing = append(s.editing, entry.index)
		}
	}

	return view, nil
}

func (s *Scene) EndUpdateRigidParticles() {
	for _, index := range s.editing {
		s.markStaged(index, particles.ChangedFields(s.updateParticles, index, s.base, index))
	}
	s.editing = s.editing[:0]

	s.mu.Unlock()
}

// stageUpdates requires the staging lock
func (s *Scene) stageUpdates(ids []BodyID) (UpdateView, error) {
	indices := make([]int, len(ids))
	for k, id := range ids {
		index, err := s.indexOf(id)
		if err != nil {
			return UpdateView{}, err
		}
		indices[k] = index
	}

	view := UpdateView{entries: make([]viewEntry, len(indices))}
	for k, index := range indices {
		// not merged yet: the new buffer is already a staging area
		if index >= s.mergedCount {
			view.entries[k] = viewEntry{particles: s.newParticles, index: index - s.mergedCount}
			continue
		}

		if _, ok := s.staged[index]; !ok {
			if s.updateParticles.Size() < s.mergedCount {
				s.updateParticles.Resize(s.mergedCount)
			}
			particles.CopyParticle(s.updateParticles, index, s.snapshot, index)
			s.staged[index] = 0
		}
		view.entries[k] = viewEntry{particles: s.updateParticles, index: index}
	}

	return view, nil
}

// updateOne stages a single particle and applies fn to it. fn returns the field groups it
// wrote. It requires the staging lock.
func (s *Scene) updateOne(id BodyID, fn func(p *particles.RigidParticles, i int) particles.Fields) error {
	view, err := s.stageUpdates([]BodyID{id})
	if err != nil {
		return err
	}
	fields := fn(view.At(0))
	if index := s.bodyIndex[id]; index < s.mergedCount {
		s.markStaged(index, fields)
	}

	return nil
}

// markStaged records fields as written by the caller. An absolute linear velocity
// supersedes the impulses accumulated before it. It requires the staging lock.
func (s *Scene) markStaged(index int, fields particles.Fields) {
	s.staged[index] |= fields
	if fields&particles.FieldLinearVelocity != 0 {
		delete(s.velocityDeltas, index)
	}
}

// update takes the staging lock around updateOne
func (s *Scene) update(id BodyID, fn func(p *particles.RigidParticles, i int) particles.Fields) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	return s.updateOne(id, fn)
}

// particlesAndIndex redirects a global index to the array holding its freshest data:
// the update buffer, the new buffer, or the published snapshot. It requires the staging lock.
func (s *Scene) particlesAndIndex(index int) (*particles.RigidParticles, int) {
	if _, ok := s.staged[index]; ok {
		return s.updateParticles, index
	}
	if index >= s.mergedCount {
		return s.newParticles, index - s.mergedCount
	}

	return s.snapshot, index
}

// read resolves id and calls fn with its freshest data under the staging lock
func (s *Scene) read(id BodyID, fn func(p *particles.RigidParticles, i int)) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	index, err := s.indexOf(id)
	if err != nil {
		return err
	}
	fn(s.particlesAndIndex(index))

	return nil
}

// enqueue appends to the pending operations log. It requires the staging lock.
func (s *Scene) enqueue(op operation) {
	s.ops = append(s.ops, op)
}

// frameForce accumulates what the operations log applies during every substep of a frame
type frameForce struct {
	force               mgl64.Vec3
	torque              mgl64.Vec3
	acceleration        mgl64.Vec3
	angularAcceleration mgl64.Vec3
}

// startFrame merges every staged mutation. It runs on the solver goroutine.
func (s *Scene) startFrame(dt float64) {
	s.mu.Lock()
	defer s.mu.Unlock()

	clear(s.frameForces)

	// animation transforms: new -> old
	for index, target := range s.targetNew {
		s.targetOld[index] = target
	}

	var restLengths []operation
	for _, op := range s.ops {
		switch op.kind {
		case opGravity:
			s.solver.SetGravity(op.vector)
		case opCollision:
			s.solver.SetCollisionEnabled(op.index, op.other, op.enabled)
		case opForce, opTorque, opAcceleration, opAngularAcceleration:
			f := s.frameForces[op.index]
			switch op.kind {
			case opForce:
				f.force = f.force.Add(op.vector)
			case opTorque:
				f.torque = f.torque.Add(op.vector)
			case opAcceleration:
				f.acceleration = f.acceleration.Add(op.vector)
			case opAngularAcceleration:
				f.angularAcceleration = f.angularAcceleration.Add(op.vector)
			}
			s.frameForces[op.index] = f
		case opKinematicTarget:
			// delayed -> new
			if _, ok := s.targetOld[op.index]; !ok {
				p, i := s.particlesAndIndex(op.index)
				s.targetOld[op.index] = p.Transform(i)
			}
			s.targetNew[op.index] = op.transform
		case opResetKinematicTarget:
			s.targetOld[op.index] = op.transform
			s.targetNew[op.index] = op.transform
		case opRestLength:
			restLengths = append(restLengths, op)
		}
	}
	clear(s.ops)
	s.ops = s.ops[:0]

	s.mergeConstraints()
	for _, op := range restLengths {
		if k, ok := s.constraintIndex[op.constraint]; ok {
			s.solver.Springs().Distances[k] = op.scalar
		}
	}

	// staged updates become solver-owned pending data, only the fields that were written
	if s.pending.Size() < s.mergedCount {
		s.pending.Resize(s.mergedCount)
	}
	for _, index := range slices.Sorted(maps.Keys(s.staged)) {
		fields := s.staged[index]
		particles.CopyFields(s.pending, index, s.updateParticles, index, fields)
		particles.CopyFields(s.snapshot, index, s.updateParticles, index, fields)
		s.pendingFields[index] = fields
		if delta, ok := s.velocityDeltas[index]; ok {
			s.pendingDeltas[index] = delta
			s.snapshot.V[index] = s.snapshot.V[index].Add(delta)
		}
		s.pendingIndices = append(s.pendingIndices, index)
	}
	clear(s.staged)
	clear(s.velocityDeltas)

	s.logger.Debug("start frame",
		slog.Float64("dt", dt),
		slog.Int("updated", len(s.pendingIndices)),
		slog.Int("created", s.newParticles.Size()),
		slog.Int("constraints", s.solver.Springs().Size()))
}

// mergeConstraints removes released springs then appends the delayed ones. It requires the staging lock.
func (s *Scene) mergeConstraints() {
	springs := s.solver.Springs()

	for _, id := range s.constraintRemovals {
		k, ok := s.constraintIndex[id]
		if !ok {
			continue
		}
		if moved := springs.Remove(k); moved >= 0 {
			s.liveConstraints[k] = s.liveConstraints[moved]
			s.constraintIndex[s.liveConstraints[k]] = k
		}
		s.liveConstraints = s.liveConstraints[:len(s.liveConstraints)-1]
		delete(s.constraintIndex, id)
		s.logger.Debug("constraint removed", slog.Uint64("id", uint64(id)))
	}
	s.constraintRemovals = s.constraintRemovals[:0]

	from := springs.Size()
	for _, delayed := range s.delayedConstraints {
		k := springs.Add(delayed.indexA, delayed.indexB)
		s.liveConstraints = append(s.liveConstraints, delayed.id)
		s.constraintIndex[delayed.id] = k
		s.logger.Debug("constraint added", slog.Uint64("id", uint64(delayed.id)), slog.Int("a", delayed.indexA), slog.Int("b", delayed.indexB))
	}
	s.delayedConstraints = s.delayedConstraints[:0]

	springs.UpdateDistances(func(index int) mgl64.Vec3 {
		p, i := s.particlesAndIndex(index)
		return p.X[i]
	}, from)
}

// createBodies appends the staged new particles to the solver arrays
func (s *Scene) createBodies(p *particles.RigidParticles) {
	s.mu.Lock()
	defer s.mu.Unlock()

	n := s.newParticles.Size()
	if n == 0 {
		return
	}

	first := p.AddParticles(n)
	s.snapshot.AddParticles(n)
	s.pending.AddParticles(n)
	for k := 0; k < n; k++ {
		particles.CopyParticle(p, first+k, s.newParticles, k)
		particles.CopyParticle(s.snapshot, first+k, s.newParticles, k)
	}
	s.newParticles.Resize(0)
	s.mergedCount += n

	s.logger.Debug("bodies created", slog.Int("first", first), slog.Int("count", n))
}

// parameterUpdate writes the pending staged fields into the solver arrays
func (s *Scene) parameterUpdate(p *particles.RigidParticles, localTime float64) {
	for _, index := range s.pendingIndices {
		fields := s.pendingFields[index]
		particles.CopyFields(p, index, s.pending, index, fields)
		if delta, ok := s.pendingDeltas[index]; ok && !p.IsKinematic(index) {
			p.V[index] = p.V[index].Add(delta)
		}
		if fields&particles.FieldDisabled != 0 && p.Disabled[index] {
			s.solver.DisableParticle(index)
			delete(s.targetOld, index)
			delete(s.targetNew, index)
		}
	}
	s.pendingIndices = s.pendingIndices[:0]
	clear(s.pendingFields)
	clear(s.pendingDeltas)
}

// kinematicUpdate moves kinematic particles from their old to their new target
func (s *Scene) kinematicUpdate(p *particles.RigidParticles, localTime float64, frameStart float64, frameDt float64) {
	alpha := mgl64.Clamp((localTime-frameStart)/frameDt, 0, 1)

	for index, target := range s.targetNew {
		if index >= p.Size() || !p.IsKinematic(index) || p.Disabled[index] {
			continue
		}
		old := s.targetOld[index]
		p.P[index] = old.Position.Add(target.Position.Sub(old.Position).Mul(alpha))
		p.Q[index] = mgl64.QuatSlerp(old.Rotation, target.Rotation, alpha).Normalize()
	}
}

// applyForces adds the forces staged for this frame, after gravity
func (s *Scene) applyForces(p *particles.RigidParticles, dt float64) {
	for index, f := range s.frameForces {
		if index >= p.Size() || p.Disabled[index] || p.IsKinematic(index) {
			continue
		}
		if p.Sleeping[index] {
			p.Awake(index)
		}

		p.F[index] = p.F[index].Add(f.force).Add(f.acceleration.Mul(p.M[index]))
		angular := p.InertiaWorld(index).Mul3x1(f.angularAcceleration)
		p.Torque[index] = p.Torque[index].Add(f.torque).Add(angular)
	}
}

// publish refreshes the snapshot once the frame is solved
func (s *Scene) publish(p *particles.RigidParticles, dt float64) {
	s.mu.Lock()
	defer s.mu.Unlock()

	for i := 0; i < p.Size(); i++ {
		particles.CopyParticle(s.snapshot, i, p, i)
	}
	// entries staged while the frame ran keep their writes and follow the solver elsewhere
	for index, fields := range s.staged {
		particles.CopyFields(s.updateParticles, index, p, index, particles.FieldAll&^fields)
		if delta, ok := s.velocityDeltas[index]; ok {
			s.updateParticles.V[index] = p.V[index].Add(delta)
		}
	}
	s.time = s.solver.Time()
}
