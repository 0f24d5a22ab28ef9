package geometry

import (
	"context"
	"fmt"
	"math"
	"runtime"

	"github.com/go-gl/mathgl/mgl64"
	"golang.org/x/sync/errgroup"
)

// DefaultLevelSetResolution is the number of cells along the longest mesh axis
const DefaultLevelSetResolution = 10

// LevelSet is a signed distance field sampled on a uniform grid
type LevelSet struct {
	grid    UniformGrid
	phi     []float64
	normals []mgl64.Vec3
	samples []mgl64.Vec3
}

// LevelSetCounts derives the per-axis cell counts from the mesh bounds:
// resolution * extent_axis / extent_longest, at least one cell per axis.
func LevelSetCounts(bounds AABB, resolution int) [3]int {
	extents := bounds.Extents()
	longest := extents[bounds.LargestAxis()]

	var counts [3]int
	for axis := 0; axis < 3; axis++ {
		counts[axis] = 1
		if longest > 0 {
			counts[axis] = max(1, int(float64(resolution)*extents[axis]/longest))
		}
	}

	return counts
}

// NewLevelSetFromMesh voxelizes mesh and samples its signed distance at every cell center.
// Slabs along X are sampled concurrently by at most workers goroutines.
func NewLevelSetFromMesh(ctx context.Context, mesh *TriangleMesh, resolution int, workers int) (*LevelSet, error) {
	if err := mesh.Validate(); err != nil {
		return nil, err
	}
	if resolution < 1 {
		resolution = DefaultLevelSetResolution
	}
	if workers < 1 {
		workers = runtime.NumCPU()
	}

	bounds := mesh.Bounds()
	extents := bounds.Extents()
	longest := extents[bounds.LargestAxis()]
	if longest <= 0 {
		return nil, fmt.Errorf("mesh has zero extent: %w", ErrDegenerateMesh)
	}

	// flat axes still need a cell of reasonable size
	counts := LevelSetCounts(bounds, resolution)
	minCell := longest / float64(resolution)
	for axis := 0; axis < 3; axis++ {
		if extents[axis] < minCell {
			pad := (minCell - extents[axis]) / 2
			bounds.Min[axis] -= pad
			bounds.Max[axis] += pad
		}
	}

	grid := NewUniformGrid(bounds.Min, bounds.Max, counts, 1)
	levelSet := &LevelSet{
		grid:    grid,
		phi:     make([]float64, grid.NumCells()),
		normals: make([]mgl64.Vec3, grid.NumCells()),
		samples: mesh.Vertices,
	}

	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(workers)
	for i := 0; i < grid.Counts[0]; i++ {
		g.Go(func() error {
			if err := ctx.Err(); err != nil {
				return err
			}
			for j := 0; j < grid.Counts[1]; j++ {
				for k := 0; k < grid.Counts[2]; k++ {
					cell := [3]int{i, j, k}
					x := grid.Location(cell)
					phi := mesh.ClosestDistance(x)
					if mesh.IsInside(x) {
						phi = -phi
					}
					levelSet.phi[grid.FlatIndex(cell)] = phi
				}
			}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	levelSet.computeNormals()

	return levelSet, nil
}

// computeNormals takes central differences of phi, one-sided on the grid border
func (l *LevelSet) computeNormals() {
	g := l.grid
	for i := 0; i < g.Counts[0]; i++ {
		for j := 0; j < g.Counts[1]; j++ {
			for k := 0; k < g.Counts[2]; k++ {
				cell := [3]int{i, j, k}
				var gradient mgl64.Vec3
				for axis := 0; axis < 3; axis++ {
					lo, hi := cell, cell
					lo[axis] = max(cell[axis]-1, 0)
					hi[axis] = min(cell[axis]+1, g.Counts[axis]-1)
					if span := hi[axis] - lo[axis]; span > 0 {
						gradient[axis] = (l.phi[g.FlatIndex(hi)] - l.phi[g.FlatIndex(lo)]) / (float64(span) * g.Dx[axis])
					}
				}
				if length := gradient.Len(); length > 1e-12 {
					gradient = gradient.Mul(1 / length)
				} else {
					gradient = mgl64.Vec3{0, 0, 1}
				}
				l.normals[g.FlatIndex(cell)] = gradient
			}
		}
	}
}

func (l *LevelSet) Grid() UniformGrid {
	return l.grid
}

// Samples returns the mesh vertices the level set was built from
func (l *LevelSet) Samples() []mgl64.Vec3 {
	return l.samples
}

func (l *LevelSet) Type() ObjectType {
	return ObjectTypeLevelSet
}

func (l *LevelSet) IsConvex() bool {
	return false
}

func (l *LevelSet) BoundingBox() AABB {
	return l.grid.Box()
}

// PhiWithNormal interpolates inside the sampled domain. Outside it, the distance to the
// domain is added to the boundary value and the normal is taken from the grid box.
func (l *LevelSet) PhiWithNormal(x mgl64.Vec3) (float64, mgl64.Vec3) {
	location := l.grid.ClampMinusHalf(x)
	phi := l.grid.InterpolateScalar(l.phi, location)

	if outside := x.Sub(location).Len(); outside > 0 {
		box := &Box{Min: l.grid.MinCorner, Max: l.grid.MaxCorner}
		return outside + phi, Normal(box, x)
	}

	normal := l.grid.InterpolateVector(l.normals, x)
	if length := normal.Len(); length > 1e-12 {
		normal = normal.Mul(1 / length)
	} else {
		normal = mgl64.Vec3{0, 0, 1}
	}

	return phi, normal
}

// FindClosestIntersection sphere-traces with steps capped to half a cell, since interpolated
// values may overestimate the true distance between samples.
func (l *LevelSet) FindClosestIntersection(start, end mgl64.Vec3, thickness float64) (mgl64.Vec3, bool) {
	if startInside(l, start, thickness) {
		return start, true
	}

	ray := end.Sub(start)
	length := ray.Len()
	if length < Epsilon {
		return mgl64.Vec3{}, false
	}
	dir := ray.Mul(1 / length)
	maxStep := 0.5 * math.Min(l.grid.Dx.X(), math.Min(l.grid.Dx.Y(), l.grid.Dx.Z()))
	box := l.grid.Box()

	distance := 0.0
	for step := 0; step < maxTraceSteps*4 && distance <= length; step++ {
		current := start.Add(dir.Mul(distance))
		phi := SignedDistance(l, current) - thickness
		if phi <= Epsilon {
			return current, true
		}
		outside := current.Sub(box.Clamp(current)).Len()
		distance += math.Min(phi, outside+maxStep)
	}

	return mgl64.Vec3{}, false
}
