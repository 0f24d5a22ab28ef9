package apeiron

import (
	"github.com/akmonengine/apeiron/constraint"
	"github.com/akmonengine/apeiron/particles"
)

const (
	COLLISION_ENTER EventType = iota
	COLLISION_STAY
	COLLISION_EXIT
	ON_SLEEP
	ON_WAKE
)

type pairKey struct {
	indexA int
	indexB int
}

// makePairKey creates a normalized pair key with consistent ordering
func makePairKey(indexA, indexB int) pairKey {
	if indexB < indexA {
		indexA, indexB = indexB, indexA
	}

	return pairKey{indexA: indexA, indexB: indexB}
}

type EventType uint8

func (t EventType) String() string {
	switch t {
	case COLLISION_ENTER:
		return "CollisionEnter"
	case COLLISION_STAY:
		return "CollisionStay"
	case COLLISION_EXIT:
		return "CollisionExit"
	case ON_SLEEP:
		return "Sleep"
	case ON_WAKE:
		return "Wake"
	}

	return "Unknown"
}

// Event interface - all events implement this
type Event interface {
	Type() EventType
}

// Collision events reference particle indices, IndexA < IndexB
type CollisionEnterEvent struct {
	IndexA int
	IndexB int
}

func (e CollisionEnterEvent) Type() EventType { return COLLISION_ENTER }

type CollisionStayEvent struct {
	IndexA int
	IndexB int
}

func (e CollisionStayEvent) Type() EventType { return COLLISION_STAY }

type CollisionExitEvent struct {
	IndexA int
	IndexB int
}

func (e CollisionExitEvent) Type() EventType { return COLLISION_EXIT }

// Sleep/Wake events
type SleepEvent struct {
	Index int
}

func (e SleepEvent) Type() EventType { return ON_SLEEP }

type WakeEvent struct {
	Index int
}

func (e WakeEvent) Type() EventType { return ON_WAKE }

// EventListener - callback for events
type EventListener func(event Event)

// Events buffers what happened during a frame and dispatches it once the frame is solved
type Events struct {
	// Listeners by event type
	listeners map[EventType][]EventListener

	// Event buffer to send at flush
	buffer []Event

	// Collision tracking for Enter/Stay/Exit detection
	previousActivePairs map[pairKey]bool
	currentActivePairs  map[pairKey]bool

	sleepStates map[int]bool
}

func NewEvents() Events {
	return Events{
		listeners:           make(map[EventType][]EventListener),
		buffer:              make([]Event, 0, 256),
		previousActivePairs: make(map[pairKey]bool),
		currentActivePairs:  make(map[pairKey]bool),
		sleepStates:         make(map[int]bool),
	}
}

// Subscribe adds a listener for an event type
func (e *Events) Subscribe(eventType EventType, listener EventListener) {
	e.listeners[eventType] = append(e.listeners[eventType], listener)
}

// recordCollisions is called during substeps with the contacts found
func (e *Events) recordCollisions(constraints []*constraint.ContactConstraint) {
	for _, c := range constraints {
		e.currentActivePairs[makePairKey(c.IndexA, c.IndexB)] = true
	}
}

// forget drops the tracking of a particle that left the simulation
func (e *Events) forget(index int) {
	delete(e.sleepStates, index)
	for pair := range e.previousActivePairs {
		if pair.indexA == index || pair.indexB == index {
			delete(e.previousActivePairs, pair)
		}
	}
}

// processCollisionEvents compares current and previous pairs to detect Enter/Stay/Exit.
// Should be called after all substeps.
func (e *Events) processCollisionEvents(p *particles.RigidParticles) {
	for pair := range e.currentActivePairs {
		// Skip if both particles are sleeping, to avoid spamming events
		if p.Sleeping[pair.indexA] && p.Sleeping[pair.indexB] {
			continue
		}

		if e.previousActivePairs[pair] {
			e.buffer = append(e.buffer, CollisionStayEvent{IndexA: pair.indexA, IndexB: pair.indexB})
		} else {
			e.buffer = append(e.buffer, CollisionEnterEvent{IndexA: pair.indexA, IndexB: pair.indexB})
		}
	}

	for pair := range e.previousActivePairs {
		if !e.currentActivePairs[pair] {
			e.buffer = append(e.buffer, CollisionExitEvent{IndexA: pair.indexA, IndexB: pair.indexB})
		}
	}

	// Swap for next frame and clear current
	e.previousActivePairs, e.currentActivePairs = e.currentActivePairs, e.previousActivePairs
	clear(e.currentActivePairs)
}

func (e *Events) processSleepEvents(p *particles.RigidParticles) {
	for i := 0; i < p.Size(); i++ {
		if p.Disabled[i] {
			continue
		}

		trackedState, exists := e.sleepStates[i]
		if !exists {
			e.sleepStates[i] = p.Sleeping[i]
			continue
		}

		if !trackedState && p.Sleeping[i] {
			e.buffer = append(e.buffer, SleepEvent{Index: i})
			e.sleepStates[i] = true
		} else if trackedState && !p.Sleeping[i] {
			e.buffer = append(e.buffer, WakeEvent{Index: i})
			e.sleepStates[i] = false
		}
	}
}

// flush sends all buffered events and clears the buffer
func (e *Events) flush(p *particles.RigidParticles) {
	e.processCollisionEvents(p)

	for _, event := range e.buffer {
		if listeners, ok := e.listeners[event.Type()]; ok {
			for _, listener := range listeners {
				listener(event)
			}
		}
	}
	e.buffer = e.buffer[:0]
}
