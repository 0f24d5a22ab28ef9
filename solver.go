package apeiron

import (
	"log/slog"

	"github.com/akmonengine/apeiron/constraint"
	"github.com/akmonengine/apeiron/particles"
	"github.com/go-gl/mathgl/mgl64"
)

// StartFrameFunc runs once per Tick, before any particle is created or updated
type StartFrameFunc func(dt float64)

// CreateBodiesFunc appends the particles created since the last Tick
type CreateBodiesFunc func(p *particles.RigidParticles)

// ParameterUpdateFunc copies pending per-particle data into the solver arrays
type ParameterUpdateFunc func(p *particles.RigidParticles, localTime float64)

// KinematicUpdateFunc writes the predicted pose of kinematic particles for localTime,
// frameStart and frameDt delimiting the current frame
type KinematicUpdateFunc func(p *particles.RigidParticles, localTime float64, frameStart float64, frameDt float64)

// ForceFunc accumulates forces and torques after gravity
type ForceFunc func(p *particles.RigidParticles, dt float64)

// ConstraintFunc projects a constraint set on the predicted pose
type ConstraintFunc func(p *particles.RigidParticles, dt float64)

// EndFrameFunc runs once the frame is solved and its events are dispatched
type EndFrameFunc func(p *particles.RigidParticles, dt float64)

// Solver owns the authoritative particles and steps them through a fixed callback pipeline
type Solver struct {
	config    Config
	particles *particles.RigidParticles
	springs   *constraint.SpringConstraints
	grid      *SpatialGrid
	gravity   PerParticleGravity
	events    Events
	logger    *slog.Logger
	time      float64

	collisionDisabled map[pairKey]bool

	startFrame      StartFrameFunc
	createBodies    CreateBodiesFunc
	parameterUpdate ParameterUpdateFunc
	kinematicUpdate KinematicUpdateFunc
	forces          []ForceFunc
	constraints     []ConstraintFunc
	endFrame        EndFrameFunc
}

// NewSolver builds a solver from a validated config. A nil logger discards output.
func NewSolver(config Config, logger *slog.Logger) *Solver {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	config.Workers = max(DEFAULT_WORKERS, config.Workers)
	config.Substeps = max(1, config.Substeps)
	config.Iterations = max(1, config.Iterations)

	s := &Solver{
		config:            config,
		particles:         particles.NewRigidParticles(),
		springs:           constraint.NewSpringConstraints(config.SpringStiffness),
		grid:              NewSpatialGrid(config.CellSize, config.NumCells),
		gravity:           PerParticleGravity{Acceleration: config.Gravity},
		events:            NewEvents(),
		logger:            logger,
		collisionDisabled: make(map[pairKey]bool),
	}
	s.constraints = append(s.constraints, s.springs.Apply)

	return s
}

func (s *Solver) Config() Config {
	return s.config
}

func (s *Solver) Particles() *particles.RigidParticles {
	return s.particles
}

func (s *Solver) Springs() *constraint.SpringConstraints {
	return s.springs
}

func (s *Solver) Time() float64 {
	return s.time
}

func (s *Solver) Logger() *slog.Logger {
	return s.logger
}

func (s *Solver) Gravity() mgl64.Vec3 {
	return s.gravity.Acceleration
}

func (s *Solver) SetGravity(gravity mgl64.Vec3) {
	s.gravity.Acceleration = gravity
}

// Subscribe registers listener for eventType; listeners run on the Tick goroutine
func (s *Solver) Subscribe(eventType EventType, listener EventListener) {
	s.events.Subscribe(eventType, listener)
}

func (s *Solver) SetStartFrame(fn StartFrameFunc) {
	s.startFrame = fn
}

func (s *Solver) SetCreateBodies(fn CreateBodiesFunc) {
	s.createBodies = fn
}

func (s *Solver) SetParameterUpdate(fn ParameterUpdateFunc) {
	s.parameterUpdate = fn
}

func (s *Solver) SetKinematicUpdate(fn KinematicUpdateFunc) {
	s.kinematicUpdate = fn
}

func (s *Solver) AddForce(fn ForceFunc) {
	s.forces = append(s.forces, fn)
}

// AddConstraint appends a projection run in every iteration, after the springs
func (s *Solver) AddConstraint(fn ConstraintFunc) {
	s.constraints = append(s.constraints, fn)
}

func (s *Solver) SetEndFrame(fn EndFrameFunc) {
	s.endFrame = fn
}

// SetCollisionEnabled toggles contact generation between particles a and b
func (s *Solver) SetCollisionEnabled(a, b int, enabled bool) {
	key := makePairKey(a, b)
	if enabled {
		delete(s.collisionDisabled, key)
		return
	}
	s.collisionDisabled[key] = true
}

func (s *Solver) IsCollisionEnabled(a, b int) bool {
	return !s.collisionDisabled[makePairKey(a, b)]
}

// DisableParticle removes particle i from the simulation. Its slot is never reused.
func (s *Solver) DisableParticle(i int) {
	s.particles.Disabled[i] = true
	s.particles.Sleeping[i] = false
	s.particles.V[i] = mgl64.Vec3{}
	s.particles.W[i] = mgl64.Vec3{}
	s.particles.ClearForces(i)
	s.events.forget(i)
	for key := range s.collisionDisabled {
		if key.indexA == i || key.indexB == i {
			delete(s.collisionDisabled, key)
		}
	}
}

// NumAwake counts the enabled dynamic particles that are not sleeping
func (s *Solver) NumAwake() int {
	p := s.particles
	count := 0
	for i := 0; i < p.Size(); i++ {
		if !p.Disabled[i] && !p.Sleeping[i] && !p.IsKinematic(i) {
			count++
		}
	}

	return count
}

// Tick advances the simulation by dt, split into Substeps substeps
func (s *Solver) Tick(dt float64) {
	if dt <= 0 {
		return
	}

	if s.startFrame != nil {
		s.startFrame(dt)
	}
	if s.createBodies != nil {
		s.createBodies(s.particles)
	}

	frameStart := s.time
	h := dt / float64(s.config.Substeps)
	for step := range s.config.Substeps {
		s.substep(h, frameStart+float64(step+1)*h, frameStart, dt)
	}
	s.time = frameStart + dt

	s.events.processSleepEvents(s.particles)
	s.events.flush(s.particles)

	if s.endFrame != nil {
		s.endFrame(s.particles, dt)
	}
}

func (s *Solver) substep(h float64, localTime float64, frameStart float64, frameDt float64) {
	p := s.particles

	if s.parameterUpdate != nil {
		s.parameterUpdate(p, localTime)
	}
	if s.kinematicUpdate != nil {
		s.kinematicUpdate(p, localTime, frameStart, frameDt)
	}

	// Phase 1: forces and prediction
	for i := 0; i < p.Size(); i++ {
		p.ClearForces(i)
		s.gravity.Apply(p, i)
	}
	for _, force := range s.forces {
		force(p, h)
	}
	s.integrate(h)

	// Phase 2: broad and narrow phase on the predicted pose
	contacts := s.detectCollision()
	s.events.recordCollisions(contacts)

	// Phase 3: position projection
	for range s.config.Iterations {
		for _, project := range s.constraints {
			project(p, h)
		}
		for _, contact := range contacts {
			contact.SolvePosition(p, h)
		}
	}

	// Phase 4: velocities from the solved pose, then restitution and friction
	s.update(h)
	for _, contact := range contacts {
		contact.SolveVelocity(p, h)
	}

	wakeTouched(p, contacts, s.config.Sleep.VelocityThreshold)
	if s.config.Sleep.Enabled {
		s.trySleep(h)
	}
}

func (s *Solver) integrate(h float64) {
	p := s.particles
	taskRange(s.config.Workers, p.Size(), func(start, end int) {
		for i := start; i < end; i++ {
			p.Integrate(i, h, s.config.LinearDamping, s.config.AngularDamping)
		}
	})
}

func (s *Solver) detectCollision() []*constraint.ContactConstraint {
	pairs := BroadPhase(s.grid, s.particles, s.config.Thickness, s.collisionDisabled, s.config.Workers)

	return NarrowPhase(s.particles, pairs, s.config.Thickness, ContactMaterial{
		Compliance:      s.config.Compliance,
		Restitution:     s.config.Restitution,
		StaticFriction:  s.config.StaticFriction,
		DynamicFriction: s.config.DynamicFriction,
	}, s.config.Workers, s.logger)
}

func (s *Solver) update(h float64) {
	p := s.particles
	taskRange(s.config.Workers, p.Size(), func(start, end int) {
		for i := start; i < end; i++ {
			p.UpdateVelocities(i, h)
		}
	})
}

// trySleep is too simple to use a task, it slows down in multiple goroutines
func (s *Solver) trySleep(h float64) {
	p := s.particles
	for i := 0; i < p.Size(); i++ {
		p.TrySleep(i, h, s.config.Sleep.VelocityThreshold, s.config.Sleep.TimeThreshold)
	}
}
