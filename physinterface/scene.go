// Package physinterface is the engine-facing API of the solver. Every mutation is staged
// under a single lock and merged by the solver at the start of its next frame; reads go
// through a redirect that returns the freshest staged or published data.
package physinterface

import (
	"log/slog"
	"maps"
	"slices"
	"sync"

	"github.com/akmonengine/apeiron"
	"github.com/akmonengine/apeiron/geometry"
	"github.com/akmonengine/apeiron/particles"
	"github.com/go-gl/mathgl/mgl64"
)

// ActorEvent is a solver event translated to body handles. BodyB is zero for sleep and wake events.
type ActorEvent struct {
	Type  apeiron.EventType
	BodyA BodyID
	BodyB BodyID
}

type delayedConstraint struct {
	id     ConstraintID
	indexA int
	indexB int
}

type Scene struct {
	solver *apeiron.Solver
	config apeiron.Config
	logger *slog.Logger

	// mu is the staging lock: it guards every field below
	mu   sync.Mutex
	dt   float64
	time float64

	nextBodyID BodyID
	bodyIndex  map[BodyID]int
	indexBody  []BodyID
	static     map[BodyID]bool
	targets    map[BodyID]geometry.Transform

	mergedCount     int
	snapshot        *particles.RigidParticles
	newParticles    *particles.RigidParticles
	updateParticles *particles.RigidParticles
	// staged maps an index to the field groups written since the last frame start
	staged map[int]particles.Fields
	// velocityDeltas holds impulses added on top of an unstaged linear velocity
	velocityDeltas map[int]mgl64.Vec3
	ops            []operation
	// base and editing let EndUpdateRigidParticles find what the caller changed
	base    *particles.RigidParticles
	editing []int

	nextConstraintID   ConstraintID
	constraintBodies   map[ConstraintID][2]BodyID
	constraintIndex    map[ConstraintID]int
	liveConstraints    []ConstraintID
	delayedConstraints []delayedConstraint
	constraintRemovals []ConstraintID

	nextShape ShapeHandle
	shapes    map[ShapeHandle]*shape

	// solver-owned, written by startFrame under mu and read by the other hooks
	pending        *particles.RigidParticles
	pendingIndices []int
	pendingFields  map[int]particles.Fields
	pendingDeltas  map[int]mgl64.Vec3
	frameForces    map[int]frameForce
	targetOld      map[int]geometry.Transform
	targetNew      map[int]geometry.Transform
}

// NewScene creates a scene around a new solver. A nil logger discards output.
func NewScene(config apeiron.Config, logger *slog.Logger) *Scene {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}

	s := &Scene{
		solver:           apeiron.NewSolver(config, logger),
		logger:           logger,
		nextBodyID:       1,
		bodyIndex:        make(map[BodyID]int),
		static:           make(map[BodyID]bool),
		targets:          make(map[BodyID]geometry.Transform),
		snapshot:         particles.NewRigidParticles(),
		newParticles:     particles.NewRigidParticles(),
		updateParticles:  particles.NewRigidParticles(),
		staged:           make(map[int]particles.Fields),
		velocityDeltas:   make(map[int]mgl64.Vec3),
		base:             particles.NewRigidParticles(),
		nextConstraintID: 1,
		constraintBodies: make(map[ConstraintID][2]BodyID),
		constraintIndex:  make(map[ConstraintID]int),
		nextShape:        1,
		shapes:           make(map[ShapeHandle]*shape),
		pending:          particles.NewRigidParticles(),
		pendingFields:    make(map[int]particles.Fields),
		pendingDeltas:    make(map[int]mgl64.Vec3),
		frameForces:      make(map[int]frameForce),
		targetOld:        make(map[int]geometry.Transform),
		targetNew:        make(map[int]geometry.Transform),
	}
	s.config = s.solver.Config()

	s.solver.SetStartFrame(s.startFrame)
	s.solver.SetCreateBodies(s.createBodies)
	s.solver.SetParameterUpdate(s.parameterUpdate)
	s.solver.SetKinematicUpdate(s.kinematicUpdate)
	s.solver.AddForce(s.applyForces)
	s.solver.SetEndFrame(s.publish)

	return s
}

// Solver exposes the underlying solver. Its arrays belong to the goroutine calling StartFrame.
func (s *Scene) Solver() *apeiron.Solver {
	return s.solver
}

// SetUpForFrame stages the gravity of the next frame and stores its duration
func (s *Scene) SetUpForFrame(gravity mgl64.Vec3, dt float64) error {
	if !finiteVec3(gravity) {
		return invalidInput("gravity %v", gravity)
	}
	if !finite(dt) || dt <= 0 {
		return invalidInput("dt %v", dt)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	s.dt = dt
	s.enqueue(operation{kind: opGravity, vector: gravity})

	return nil
}

// StartFrame runs one solver frame and publishes its result. Listeners run before it returns.
func (s *Scene) StartFrame() {
	s.mu.Lock()
	dt := s.dt
	s.mu.Unlock()

	s.solver.Tick(dt)
}

// SyncBodies calls fn with the published pose of every live, enabled body in id order
func (s *Scene) SyncBodies(fn func(id BodyID, pose geometry.Transform)) {
	type pose struct {
		id        BodyID
		transform geometry.Transform
	}

	s.mu.Lock()
	poses := make([]pose, 0, len(s.bodyIndex))
	for _, id := range slices.Sorted(maps.Keys(s.bodyIndex)) {
		p, i := s.particlesAndIndex(s.bodyIndex[id])
		if p.Disabled[i] {
			continue
		}
		poses = append(poses, pose{id: id, transform: p.Transform(i)})
	}
	s.mu.Unlock()

	for _, entry := range poses {
		fn(entry.id, entry.transform)
	}
}

// Time returns the simulated time published by the last frame
func (s *Scene) Time() float64 {
	s.mu.Lock()
	defer s.mu.Unlock()

	return s.time
}

func (s *Scene) GetNumAwakeBodies() int {
	s.mu.Lock()
	defer s.mu.Unlock()

	count := 0
	for _, index := range s.bodyIndex {
		p, i := s.particlesAndIndex(index)
		if !p.Disabled[i] && !p.Sleeping[i] && !p.IsKinematic(i) {
			count++
		}
	}

	return count
}

// Subscribe registers listener for eventType. Listeners run on the goroutine calling StartFrame.
func (s *Scene) Subscribe(eventType apeiron.EventType, listener func(ActorEvent)) {
	s.solver.Subscribe(eventType, func(event apeiron.Event) {
		actorEvent := ActorEvent{Type: event.Type()}

		s.mu.Lock()
		switch e := event.(type) {
		case apeiron.CollisionEnterEvent:
			actorEvent.BodyA, actorEvent.BodyB = s.indexBody[e.IndexA], s.indexBody[e.IndexB]
		case apeiron.CollisionStayEvent:
			actorEvent.BodyA, actorEvent.BodyB = s.indexBody[e.IndexA], s.indexBody[e.IndexB]
		case apeiron.CollisionExitEvent:
			actorEvent.BodyA, actorEvent.BodyB = s.indexBody[e.IndexA], s.indexBody[e.IndexB]
		case apeiron.SleepEvent:
			actorEvent.BodyA = s.indexBody[e.Index]
		case apeiron.WakeEvent:
			actorEvent.BodyA = s.indexBody[e.Index]
		}
		s.mu.Unlock()

		listener(actorEvent)
	})
}
