package constraint

import (
	"github.com/akmonengine/apeiron/particles"
	"github.com/go-gl/mathgl/mgl64"
)

const DefaultStiffness = 1.0

// SpringConstraints keeps pairs of particles at their rest distance.
// Constraints[k], Distances[k] describe spring k; the arrays are projected in order.
type SpringConstraints struct {
	Constraints [][2]int
	Distances   []float64
	Stiffness   float64
}

func NewSpringConstraints(stiffness float64) *SpringConstraints {
	if stiffness <= 0 || stiffness > 1 {
		stiffness = DefaultStiffness
	}

	return &SpringConstraints{Stiffness: stiffness}
}

func (s *SpringConstraints) Size() int {
	return len(s.Constraints)
}

// Add appends a spring between particles i and j and returns its index.
// Its rest distance is zero until UpdateDistances covers it.
func (s *SpringConstraints) Add(i, j int) int {
	s.Constraints = append(s.Constraints, [2]int{i, j})
	s.Distances = append(s.Distances, 0)

	return len(s.Constraints) - 1
}

// Remove swaps the last spring into index and shrinks the arrays.
// It returns the former index of the moved spring, or -1 when index was the last one.
func (s *SpringConstraints) Remove(index int) int {
	last := len(s.Constraints) - 1
	moved := -1
	if index != last {
		s.Constraints[index] = s.Constraints[last]
		s.Distances[index] = s.Distances[last]
		moved = last
	}
	s.Constraints = s.Constraints[:last]
	s.Distances = s.Distances[:last]

	return moved
}

// UpdateDistances measures the rest distance of every spring from index from onwards
func (s *SpringConstraints) UpdateDistances(position func(i int) mgl64.Vec3, from int) {
	for k := from; k < len(s.Constraints); k++ {
		c := s.Constraints[k]
		s.Distances[k] = position(c[0]).Sub(position(c[1])).Len()
	}
}

// Apply runs one Gauss-Seidel pass over the springs on the predicted positions
func (s *SpringConstraints) Apply(p *particles.RigidParticles, dt float64) {
	for k, c := range s.Constraints {
		i, j := c[0], c[1]
		if i >= p.Size() || j >= p.Size() || p.Disabled[i] || p.Disabled[j] {
			continue
		}

		invMassI := p.InvM[i]
		invMassJ := p.InvM[j]
		combined := invMassI + invMassJ
		if combined <= 1e-12 {
			continue
		}

		delta := p.P[j].Sub(p.P[i])
		distance := delta.Len()
		if distance < 1e-8 {
			continue
		}

		offset := delta.Mul((distance - s.Distances[k]) / distance * s.Stiffness / combined)
		p.P[i] = p.P[i].Add(offset.Mul(invMassI))
		p.P[j] = p.P[j].Sub(offset.Mul(invMassJ))
	}
}
