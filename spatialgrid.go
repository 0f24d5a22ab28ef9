package apeiron

import (
	"math"
	"slices"
	"sort"

	"github.com/akmonengine/apeiron/geometry"
	"github.com/go-gl/mathgl/mgl64"
)

// maxCellsPerBody sends very large bodies to the unbounded list instead of the table
const maxCellsPerBody = 4096

// CellKey is the integer coordinate of a cell in 3D space
type CellKey struct {
	X, Y, Z int
}

// Cell holds the indices of the particles overlapping it
type Cell struct {
	indices []int
}

// Pair is a potentially colliding pair of particle indices, IndexA < IndexB
type Pair struct {
	IndexA int
	IndexB int
}

// SpatialGrid is a uniform grid hashed into a fixed table, used as broad phase
type SpatialGrid struct {
	cellSize float64
	cells    []Cell
	cellMask int

	bounds    []geometry.AABB
	bounded   []int
	unbounded []int
}

func NewSpatialGrid(cellSize float64, numCells int) *SpatialGrid {
	numCells = nextPowerOfTwo(numCells)

	cells := make([]Cell, numCells)
	for i := range cells {
		cells[i].indices = make([]int, 0, 8)
	}

	return &SpatialGrid{
		cellSize: cellSize,
		cells:    cells,
		cellMask: numCells - 1,
	}
}

func nextPowerOfTwo(n int) int {
	if n <= 0 {
		return 1
	}
	n--
	n |= n >> 1
	n |= n >> 2
	n |= n >> 4
	n |= n >> 8
	n |= n >> 16
	n++
	return n
}

// Insert registers particle index with its world bounds in every cell it covers.
// Unbounded boxes and boxes covering too many cells are paired with everything.
func (sg *SpatialGrid) Insert(index int, aabb geometry.AABB) {
	if index >= len(sg.bounds) {
		sg.bounds = slices.Grow(sg.bounds, index+1-len(sg.bounds))[:index+1]
	}
	sg.bounds[index] = aabb

	if aabb.IsUnbounded() {
		sg.unbounded = append(sg.unbounded, index)
		return
	}
	minCell, maxCell, ok := sg.cellRange(aabb)
	if !ok {
		sg.unbounded = append(sg.unbounded, index)
		return
	}
	sg.bounded = append(sg.bounded, index)

	for x := minCell.X; x <= maxCell.X; x++ {
		for y := minCell.Y; y <= maxCell.Y; y++ {
			for z := minCell.Z; z <= maxCell.Z; z++ {
				cellIdx := sg.hashCell(CellKey{x, y, z})
				sg.cells[cellIdx].indices = append(sg.cells[cellIdx].indices, index)
			}
		}
	}
}

// cellRange returns the cells covered by aabb; ok is false past maxCellsPerBody
func (sg *SpatialGrid) cellRange(aabb geometry.AABB) (CellKey, CellKey, bool) {
	minCell := sg.worldToCell(aabb.Min)
	maxCell := sg.worldToCell(aabb.Max)

	count := float64(maxCell.X-minCell.X+1) * float64(maxCell.Y-minCell.Y+1) * float64(maxCell.Z-minCell.Z+1)

	return minCell, maxCell, count <= maxCellsPerBody
}

func (sg *SpatialGrid) Clear() {
	for i := range sg.cells {
		sg.cells[i].indices = sg.cells[i].indices[:0]
	}
	sg.bounded = sg.bounded[:0]
	sg.unbounded = sg.unbounded[:0]
}

func (sg *SpatialGrid) SortCells() {
	for i := range sg.cells {
		if len(sg.cells[i].indices) > 1 {
			sort.Ints(sg.cells[i].indices)
		}
	}
	sort.Ints(sg.bounded)
	sort.Ints(sg.unbounded)
}

// FindPairs returns every overlapping pair accepted by filter, sorted by (IndexA, IndexB).
// filter is called from several goroutines and must only read shared state.
func (sg *SpatialGrid) FindPairs(workersCount int, filter func(a, b int) bool) []Pair {
	if filter == nil {
		filter = func(a, b int) bool { return true }
	}
	perBody := make([][]Pair, len(sg.bounded))

	taskRange(workersCount, len(sg.bounded), func(start, end int) {
		seen := make([]bool, len(sg.bounds))
		var visited []int

		for k := start; k < end; k++ {
			indexA := sg.bounded[k]
			aabbA := sg.bounds[indexA]
			minCell, maxCell, _ := sg.cellRange(aabbA)

			var pairs []Pair
			for x := minCell.X; x <= maxCell.X; x++ {
				for y := minCell.Y; y <= maxCell.Y; y++ {
					for z := minCell.Z; z <= maxCell.Z; z++ {
						cellIdx := sg.hashCell(CellKey{x, y, z})

						for _, indexB := range sg.cells[cellIdx].indices {
							// (A,B) and (B,A) are the same pair
							if indexB <= indexA || seen[indexB] {
								continue
							}
							seen[indexB] = true
							visited = append(visited, indexB)

							if aabbA.Overlaps(sg.bounds[indexB]) && filter(indexA, indexB) {
								pairs = append(pairs, Pair{IndexA: indexA, IndexB: indexB})
							}
						}
					}
				}
			}

			for _, indexB := range sg.unbounded {
				if sg.bounds[indexB].Overlaps(aabbA) && filter(min(indexA, indexB), max(indexA, indexB)) {
					pairs = append(pairs, Pair{IndexA: min(indexA, indexB), IndexB: max(indexA, indexB)})
				}
			}

			for _, v := range visited {
				seen[v] = false
			}
			visited = visited[:0]
			perBody[k] = pairs
		}
	})

	var result []Pair
	for _, pairs := range perBody {
		result = append(result, pairs...)
	}
	for i, indexA := range sg.unbounded {
		for _, indexB := range sg.unbounded[i+1:] {
			if sg.bounds[indexA].Overlaps(sg.bounds[indexB]) && filter(indexA, indexB) {
				result = append(result, Pair{IndexA: indexA, IndexB: indexB})
			}
		}
	}

	sort.Slice(result, func(i, j int) bool {
		if result[i].IndexA != result[j].IndexA {
			return result[i].IndexA < result[j].IndexA
		}
		return result[i].IndexB < result[j].IndexB
	})

	return result
}

// worldToCell converts a world position into cell coordinates
func (sg *SpatialGrid) worldToCell(pos mgl64.Vec3) CellKey {
	return CellKey{
		X: int(math.Floor(pos.X() / sg.cellSize)),
		Y: int(math.Floor(pos.Y() / sg.cellSize)),
		Z: int(math.Floor(pos.Z() / sg.cellSize)),
	}
}

// hashCell maps a cell onto the table
func (sg *SpatialGrid) hashCell(key CellKey) int {
	h := (key.X * 73856093) ^ (key.Y * 19349663) ^ (key.Z * 83492791)
	return h & sg.cellMask
}
