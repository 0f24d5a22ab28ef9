package geometry

import (
	"math"

	"github.com/go-gl/mathgl/mgl64"
)

// Sample is a local-space point tested against other objects' distance fields.
// A positive Radius turns the point into a sphere.
type Sample struct {
	Point  mgl64.Vec3
	Radius float64
}

const ringSamples = 8

// CollisionSamples returns the points that represent obj during contact generation
func CollisionSamples(obj ImplicitObject) []Sample {
	switch o := obj.(type) {
	case *Sphere:
		return []Sample{{Point: o.Center, Radius: o.Radius}}

	case *Capsule:
		mid := o.X1().Add(o.X2()).Mul(0.5)
		return []Sample{
			{Point: o.X1(), Radius: o.Radius()},
			{Point: mid, Radius: o.Radius()},
			{Point: o.X2(), Radius: o.Radius()},
		}

	case *TaperedCapsule:
		return []Sample{
			{Point: o.X1(), Radius: o.Radius1()},
			{Point: o.X1().Add(o.X2()).Mul(0.5), Radius: (o.Radius1() + o.Radius2()) / 2},
			{Point: o.X2(), Radius: o.Radius2()},
		}

	case *Box:
		corners := o.Corners()
		samples := make([]Sample, 0, 8+12)
		for _, corner := range corners {
			samples = append(samples, Sample{Point: corner})
		}
		// edge midpoints between corners differing on exactly one axis
		for a := 0; a < 8; a++ {
			for axis := 0; axis < 3; axis++ {
				b := a | (1 << axis)
				if b == a {
					continue
				}
				samples = append(samples, Sample{Point: corners[a].Add(corners[b]).Mul(0.5)})
			}
		}
		return samples

	case *Cylinder:
		return append(ring(o.X1, o.Axis(), o.Radius), ring(o.X2, o.Axis(), o.Radius)...)

	case *TaperedCylinder:
		axis := o.axis()
		return append(ring(o.X1, axis, o.Radius1), ring(o.X2, axis, o.Radius2)...)

	case *LevelSet:
		samples := make([]Sample, len(o.samples))
		for i, v := range o.samples {
			samples[i] = Sample{Point: v}
		}
		return samples

	case *Union:
		var samples []Sample
		for _, child := range o.Objects {
			samples = append(samples, CollisionSamples(child)...)
		}
		return samples

	case *Transformed:
		inner := CollisionSamples(o.object)
		for i := range inner {
			inner[i].Point = o.transform.TransformPosition(inner[i].Point)
		}
		return inner
	}

	return nil
}

func ring(center, axis mgl64.Vec3, radius float64) []Sample {
	u := orthonormal(axis)
	v := axis.Cross(u)

	samples := make([]Sample, 0, ringSamples)
	for i := 0; i < ringSamples; i++ {
		angle := 2 * math.Pi * float64(i) / ringSamples
		offset := u.Mul(math.Cos(angle) * radius).Add(v.Mul(math.Sin(angle) * radius))
		samples = append(samples, Sample{Point: center.Add(offset)})
	}

	return samples
}
