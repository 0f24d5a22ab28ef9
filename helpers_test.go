package apeiron

import (
	"math"

	"github.com/akmonengine/apeiron/geometry"
	"github.com/akmonengine/apeiron/particles"
	"github.com/go-gl/mathgl/mgl64"
)

func almostEqual(a, b, epsilon float64) bool {
	return math.Abs(a-b) < epsilon
}

func vec3AlmostEqual(a, b mgl64.Vec3, epsilon float64) bool {
	return almostEqual(a.X(), b.X(), epsilon) &&
		almostEqual(a.Y(), b.Y(), epsilon) &&
		almostEqual(a.Z(), b.Z(), epsilon)
}

// addBody appends a particle with the given geometry at position and returns its index
func addBody(p *particles.RigidParticles, object geometry.ImplicitObject, position mgl64.Vec3) int {
	i := p.AddParticles(1)
	p.Geometry[i] = object
	p.SetTransform(i, geometry.NewTransformAt(position, mgl64.QuatIdent()))

	return i
}
