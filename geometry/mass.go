package geometry

import (
	"math"

	"github.com/go-gl/mathgl/mgl64"
)

// MassProperties computes the mass and the local inertia tensor (about the local origin)
// of obj for a uniform density. ok is false for unbounded objects.
func MassProperties(obj ImplicitObject, density float64) (mass float64, inertia mgl64.Mat3, ok bool) {
	switch o := obj.(type) {
	case *Sphere:
		mass = density * 4.0 / 3.0 * math.Pi * o.Radius * o.Radius * o.Radius
		// I = (2/5) * m * r²
		i := 0.4 * mass * o.Radius * o.Radius
		return mass, shiftInertia(mgl64.Diag3(mgl64.Vec3{i, i, i}), mass, o.Center), true

	case *Box:
		x, y, z := o.Max.X()-o.Min.X(), o.Max.Y()-o.Min.Y(), o.Max.Z()-o.Min.Z()
		mass = density * x * y * z

		// Formula for a box: I = (m/12) * (dimension1² + dimension2²)
		factor := mass / 12.0
		local := mgl64.Diag3(mgl64.Vec3{
			factor * (y*y + z*z),
			factor * (x*x + z*z),
			factor * (x*x + y*y),
		})
		return mass, shiftInertia(local, mass, o.Center()), true

	case *Cylinder:
		mass, local := cylinderInertia(o.Radius, o.Height(), density)
		return mass, placeAlongAxis(local, mass, o.X1, o.X2), true

	case *TaperedCylinder:
		radius := (o.Radius1 + o.Radius2) / 2
		mass, local := cylinderInertia(radius, o.X2.Sub(o.X1).Len(), density)
		return mass, placeAlongAxis(local, mass, o.X1, o.X2), true

	case *Capsule:
		r, h := o.Radius(), o.Height()
		cylinderMass := density * math.Pi * r * r * h
		hemisphereMass := density * 2.0 / 3.0 * math.Pi * r * r * r
		mass = cylinderMass + 2*hemisphereMass

		axial := cylinderMass*r*r/2 + 2*hemisphereMass*0.4*r*r
		perpendicular := cylinderMass*(h*h/12+r*r/4) +
			2*hemisphereMass*(0.4*r*r+h*h/4+3*h*r/8)
		local := mgl64.Diag3(mgl64.Vec3{perpendicular, perpendicular, axial})
		return mass, placeAlongAxis(local, mass, o.X1(), o.X2()), true

	case *TaperedCapsule:
		return MassProperties(o.parts, density)

	case *Union:
		for _, child := range o.Objects {
			m, i, childOk := MassProperties(child, density)
			if !childOk {
				return 0, mgl64.Mat3{}, false
			}
			mass += m
			inertia = inertia.Add(i)
		}
		return mass, inertia, len(o.Objects) > 0

	case *Transformed:
		m, i, innerOk := MassProperties(o.object, density)
		if !innerOk {
			return 0, mgl64.Mat3{}, false
		}
		rotation := o.transform.Rotation.Mat4().Mat3()
		rotated := rotation.Mul3(i).Mul3(rotation.Transpose())
		return m, shiftInertia(rotated, m, o.transform.Position), true

	case *LevelSet:
		return levelSetMass(o, density)
	}

	return 0, mgl64.Mat3{}, false
}

// cylinderInertia returns the mass and inertia of a Z-aligned cylinder about its center
func cylinderInertia(radius, height, density float64) (float64, mgl64.Mat3) {
	mass := density * math.Pi * radius * radius * height
	axial := 0.5 * mass * radius * radius
	perpendicular := mass / 12.0 * (3*radius*radius + height*height)

	return mass, mgl64.Diag3(mgl64.Vec3{perpendicular, perpendicular, axial})
}

// placeAlongAxis rotates a Z-aligned inertia onto x1->x2 and moves it to the segment midpoint
func placeAlongAxis(local mgl64.Mat3, mass float64, x1, x2 mgl64.Vec3) mgl64.Mat3 {
	axis := x2.Sub(x1)
	if axis.Len() > Epsilon {
		rotation := mgl64.QuatBetweenVectors(mgl64.Vec3{0, 0, 1}, axis.Normalize()).Mat4().Mat3()
		local = rotation.Mul3(local).Mul3(rotation.Transpose())
	}

	return shiftInertia(local, mass, x1.Add(x2).Mul(0.5))
}

// shiftInertia applies the parallel axis theorem: I + m(|d|²E - d⊗d)
func shiftInertia(inertia mgl64.Mat3, mass float64, offset mgl64.Vec3) mgl64.Mat3 {
	if offset.LenSqr() == 0 {
		return inertia
	}

	shift := mgl64.Ident3().Mul(offset.LenSqr()).Sub(offset.OuterProd3(offset))

	return inertia.Add(shift.Mul(mass))
}

// levelSetMass integrates every inside cell as a small box
func levelSetMass(l *LevelSet, density float64) (float64, mgl64.Mat3, bool) {
	g := l.grid
	cellMass := density * g.Dx.X() * g.Dx.Y() * g.Dx.Z()
	half := g.Dx.Mul(0.5)

	var mass float64
	var inertia mgl64.Mat3
	for i := 0; i < g.Counts[0]; i++ {
		for j := 0; j < g.Counts[1]; j++ {
			for k := 0; k < g.Counts[2]; k++ {
				cell := [3]int{i, j, k}
				if l.phi[g.FlatIndex(cell)] >= 0 {
					continue
				}
				center := g.Location(cell)
				_, cellInertia, _ := MassProperties(&Box{Min: center.Sub(half), Max: center.Add(half)}, density)
				mass += cellMass
				inertia = inertia.Add(cellInertia)
			}
		}
	}

	return mass, inertia, mass > 0
}
