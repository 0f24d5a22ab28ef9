package physinterface

import (
	"fmt"
	"math"
	"slices"

	"github.com/akmonengine/apeiron/geometry"
	"github.com/go-gl/mathgl/mgl64"
)

// ConstraintFrame selects one of the two bodies of a constraint
type ConstraintFrame uint8

const (
	Frame1 ConstraintFrame = iota
	Frame2
)

// AddSpringConstraint stages a spring between a and b. Its rest length is their distance
// when the spring is merged at the next frame start.
func (s *Scene) AddSpringConstraint(a, b BodyID) (ConstraintID, error) {
	if a == b {
		return 0, invalidInput("spring between body %d and itself", a)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	indexA, err := s.indexOf(a)
	if err != nil {
		return 0, err
	}
	indexB, err := s.indexOf(b)
	if err != nil {
		return 0, err
	}

	id := s.nextConstraintID
	s.nextConstraintID++
	s.delayedConstraints = append(s.delayedConstraints, delayedConstraint{id: id, indexA: indexA, indexB: indexB})
	s.constraintBodies[id] = [2]BodyID{a, b}

	return id, nil
}

// RemoveSpringConstraint drops a spring that is not merged yet, or queues a live one for
// removal before the next projection
func (s *Scene) RemoveSpringConstraint(id ConstraintID) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.constraintBodies[id]; !ok {
		return fmt.Errorf("constraint %d: %w", id, ErrInvalidHandle)
	}
	s.releaseConstraint(id)

	return nil
}

// releaseConstraint requires the staging lock
func (s *Scene) releaseConstraint(id ConstraintID) {
	delete(s.constraintBodies, id)

	k := slices.IndexFunc(s.delayedConstraints, func(d delayedConstraint) bool { return d.id == id })
	if k >= 0 {
		// later delayed springs shift down
		s.delayedConstraints = slices.Delete(s.delayedConstraints, k, k+1)
		return
	}
	s.constraintRemovals = append(s.constraintRemovals, id)
}

// CreateConstraint joins a and b with a spring
func (s *Scene) CreateConstraint(a, b BodyID) (ConstraintID, error) {
	return s.AddSpringConstraint(a, b)
}

func (s *Scene) ReleaseConstraint(id ConstraintID) error {
	return s.RemoveSpringConstraint(id)
}

// IsBroken reports whether id was released or one of its bodies is gone or disabled
func (s *Scene) IsBroken(id ConstraintID) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	return s.broken(id)
}

func (s *Scene) broken(id ConstraintID) bool {
	bodies, ok := s.constraintBodies[id]
	if !ok {
		return true
	}
	for _, body := range bodies {
		index, err := s.indexOf(body)
		if err != nil {
			return true
		}
		if p, i := s.particlesAndIndex(index); p.Disabled[i] {
			return true
		}
	}

	return false
}

// ConstraintView is a copy of a constraint's state taken when the view was created
type ConstraintView struct {
	id         ConstraintID
	actors     [2]BodyID
	poses      [2]geometry.Transform
	restLength float64
	merged     bool
}

func (v ConstraintView) ID() ConstraintID {
	return v.id
}

func (v ConstraintView) GetActors() (BodyID, BodyID) {
	return v.actors[0], v.actors[1]
}

// GetLocalPose returns the attachment frame in body space; springs attach at the center of mass
func (v ConstraintView) GetLocalPose(frame ConstraintFrame) geometry.Transform {
	return geometry.NewTransform()
}

func (v ConstraintView) GetGlobalPose(frame ConstraintFrame) geometry.Transform {
	return v.poses[frame]
}

// GetLocation returns the midpoint of the two attachments
func (v ConstraintView) GetLocation() mgl64.Vec3 {
	return v.poses[Frame1].Position.Add(v.poses[Frame2].Position).Mul(0.5)
}

// relativeRotation returns the rotation of frame 2 expressed in frame 1
func (v ConstraintView) relativeRotation() mgl64.Quat {
	return v.poses[Frame1].Rotation.Conjugate().Mul(v.poses[Frame2].Rotation).Normalize()
}

// swingTwist splits the relative rotation into a twist about X and the remaining swing
func (v ConstraintView) swingTwist() (swing, twist mgl64.Quat) {
	q := v.relativeRotation()
	if q.W < 0 {
		q = q.Scale(-1)
	}
	twist = mgl64.Quat{W: q.W, V: mgl64.Vec3{q.V.X(), 0, 0}}
	if twist.Len() < 1e-8 {
		twist = mgl64.QuatIdent()
	}
	twist = twist.Normalize()
	swing = q.Mul(twist.Conjugate())

	return swing, twist
}

// GetCurrentTwist returns the twist angle about X in radians
func (v ConstraintView) GetCurrentTwist() float64 {
	_, twist := v.swingTwist()

	return 2 * math.Atan2(twist.V.X(), twist.W)
}

// GetCurrentSwing1 returns the swing angle about Z in radians
func (v ConstraintView) GetCurrentSwing1() float64 {
	swing, _ := v.swingTwist()

	return 2 * math.Atan2(swing.V.Z(), swing.W)
}

// GetCurrentSwing2 returns the swing angle about Y in radians
func (v ConstraintView) GetCurrentSwing2() float64 {
	swing, _ := v.swingTwist()

	return 2 * math.Atan2(swing.V.Y(), swing.W)
}

// GetRestLength returns the merged rest length, or the current distance before the merge
func (v ConstraintView) GetRestLength() float64 {
	if v.merged {
		return v.restLength
	}

	return v.poses[Frame1].Position.Sub(v.poses[Frame2].Position).Len()
}

// ConstraintEditor is the writable view passed by ExecuteOnUnbrokenConstraintReadWrite.
// Writes are staged and merged at the next frame start.
type ConstraintEditor struct {
	ConstraintView
	restLength *float64
}

func (e *ConstraintEditor) SetRestLength(length float64) error {
	if !finite(length) || length < 0 {
		return invalidInput("rest length %v", length)
	}
	e.restLength = &length

	return nil
}

func (s *Scene) viewOf(id ConstraintID) (ConstraintView, bool) {
	if s.broken(id) {
		return ConstraintView{}, false
	}

	bodies := s.constraintBodies[id]
	view := ConstraintView{id: id, actors: bodies}
	for frame, body := range bodies {
		p, i := s.particlesAndIndex(s.bodyIndex[body])
		view.poses[frame] = p.Transform(i)
	}
	if k, ok := s.constraintIndex[id]; ok {
		view.merged = true
		view.restLength = s.solver.Springs().Distances[k]
	}

	return view, true
}

// ExecuteOnUnbrokenConstraintReadOnly calls fn with a view of id. A broken constraint is a
// safe no-op: fn is not called and false is returned.
func (s *Scene) ExecuteOnUnbrokenConstraintReadOnly(id ConstraintID, fn func(view ConstraintView)) bool {
	s.mu.Lock()
	view, ok := s.viewOf(id)
	s.mu.Unlock()
	if !ok {
		return false
	}

	fn(view)

	return true
}

// ExecuteOnUnbrokenConstraintReadWrite is ExecuteOnUnbrokenConstraintReadOnly with a
// writable view. A broken constraint is a safe no-op returning false.
func (s *Scene) ExecuteOnUnbrokenConstraintReadWrite(id ConstraintID, fn func(editor *ConstraintEditor)) bool {
	s.mu.Lock()
	view, ok := s.viewOf(id)
	s.mu.Unlock()
	if !ok {
		return false
	}

	editor := &ConstraintEditor{ConstraintView: view}
	fn(editor)

	if editor.restLength != nil {
		s.mu.Lock()
		s.enqueue(operation{kind: opRestLength, constraint: id, scalar: *editor.restLength})
		s.mu.Unlock()
	}

	return true
}

// SetCollisionEnabled stages whether contacts are generated between a and b
func (s *Scene) SetCollisionEnabled(a, b BodyID, enabled bool) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	indexA, err := s.indexOf(a)
	if err != nil {
		return err
	}
	indexB, err := s.indexOf(b)
	if err != nil {
		return err
	}
	s.enqueue(operation{kind: opCollision, index: indexA, other: indexB, enabled: enabled})

	return nil
}
