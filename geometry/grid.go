package geometry

import (
	"math"

	"github.com/go-gl/mathgl/mgl64"
)

// UniformGrid is a regular cell grid. Samples live at cell centers.
type UniformGrid struct {
	MinCorner mgl64.Vec3
	MaxCorner mgl64.Vec3
	Counts    [3]int
	Dx        mgl64.Vec3
}

// NewUniformGrid pads the [min, max] box by ghostCells cells on every side
func NewUniformGrid(min, max mgl64.Vec3, counts [3]int, ghostCells int) UniformGrid {
	var dx mgl64.Vec3
	for axis := 0; axis < 3; axis++ {
		if counts[axis] < 1 {
			counts[axis] = 1
		}
		dx[axis] = (max[axis] - min[axis]) / float64(counts[axis])
	}

	ghost := dx.Mul(float64(ghostCells))
	for axis := 0; axis < 3; axis++ {
		counts[axis] += 2 * ghostCells
	}

	return UniformGrid{
		MinCorner: min.Sub(ghost),
		MaxCorner: max.Add(ghost),
		Counts:    counts,
		Dx:        dx,
	}
}

func (g UniformGrid) NumCells() int {
	return g.Counts[0] * g.Counts[1] * g.Counts[2]
}

func (g UniformGrid) FlatIndex(cell [3]int) int {
	return (cell[0]*g.Counts[1]+cell[1])*g.Counts[2] + cell[2]
}

// Location returns the center of cell
func (g UniformGrid) Location(cell [3]int) mgl64.Vec3 {
	return mgl64.Vec3{
		g.MinCorner.X() + (float64(cell[0])+0.5)*g.Dx.X(),
		g.MinCorner.Y() + (float64(cell[1])+0.5)*g.Dx.Y(),
		g.MinCorner.Z() + (float64(cell[2])+0.5)*g.Dx.Z(),
	}
}

// Cell returns the cell containing x, clamped to the grid
func (g UniformGrid) Cell(x mgl64.Vec3) [3]int {
	var cell [3]int
	for axis := 0; axis < 3; axis++ {
		c := int(math.Floor((x[axis] - g.MinCorner[axis]) / g.Dx[axis]))
		cell[axis] = clampInt(c, 0, g.Counts[axis]-1)
	}

	return cell
}

// ClampMinusHalf clamps x to the box spanned by the first and last cell centers
func (g UniformGrid) ClampMinusHalf(x mgl64.Vec3) mgl64.Vec3 {
	half := g.Dx.Mul(0.5)

	return AABB{Min: g.MinCorner.Add(half), Max: g.MaxCorner.Sub(half)}.Clamp(x)
}

func (g UniformGrid) Box() AABB {
	return AABB{Min: g.MinCorner, Max: g.MaxCorner}
}

// interpolationWeights returns the lower cell and fractional offsets for a trilinear lookup
func (g UniformGrid) interpolationWeights(x mgl64.Vec3) ([3]int, mgl64.Vec3) {
	var cell [3]int
	var frac mgl64.Vec3
	for axis := 0; axis < 3; axis++ {
		u := (x[axis]-g.MinCorner[axis])/g.Dx[axis] - 0.5
		i := int(math.Floor(u))
		i = clampInt(i, 0, max(g.Counts[axis]-2, 0))
		cell[axis] = i
		if g.Counts[axis] > 1 {
			frac[axis] = mgl64.Clamp(u-float64(i), 0, 1)
		}
	}

	return cell, frac
}

// InterpolateScalar trilinearly interpolates values stored per cell
func (g UniformGrid) InterpolateScalar(values []float64, x mgl64.Vec3) float64 {
	cell, frac := g.interpolationWeights(x)

	result := 0.0
	g.corners(cell, frac, func(index int, weight float64) {
		result += values[index] * weight
	})

	return result
}

// InterpolateVector trilinearly interpolates vectors stored per cell
func (g UniformGrid) InterpolateVector(values []mgl64.Vec3, x mgl64.Vec3) mgl64.Vec3 {
	cell, frac := g.interpolationWeights(x)

	var result mgl64.Vec3
	g.corners(cell, frac, func(index int, weight float64) {
		result = result.Add(values[index].Mul(weight))
	})

	return result
}

func (g UniformGrid) corners(cell [3]int, frac mgl64.Vec3, fn func(index int, weight float64)) {
	for dx := 0; dx < 2; dx++ {
		for dy := 0; dy < 2; dy++ {
			for dz := 0; dz < 2; dz++ {
				corner := [3]int{
					min(cell[0]+dx, g.Counts[0]-1),
					min(cell[1]+dy, g.Counts[1]-1),
					min(cell[2]+dz, g.Counts[2]-1),
				}
				weight := lerpWeight(frac.X(), dx) * lerpWeight(frac.Y(), dy) * lerpWeight(frac.Z(), dz)
				if weight == 0 {
					continue
				}
				fn(g.FlatIndex(corner), weight)
			}
		}
	}
}

func lerpWeight(frac float64, upper int) float64 {
	if upper == 1 {
		return frac
	}

	return 1 - frac
}

func clampInt(v, low, high int) int {
	if v < low {
		return low
	}
	if v > high {
		return high
	}

	return v
}
