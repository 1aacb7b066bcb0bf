// Package spatial maps particle positions to hashed grid cells and answers
// same-or-adjacent-cell neighbour queries over a sorted cell index.
package spatial

import (
	"fmt"
	"math"

	"github.com/go-gl/mathgl/mgl32"

	"github.com/pthm-cable/sph2d/bitonic"
	"github.com/pthm-cable/sph2d/compute"
)

// KernelUpdateHash is the device kernel name for the entry build pass.
const KernelUpdateHash = "update_spatial_hash"

// Hash multipliers for the two cell coordinates.
const (
	hashK1 uint32 = 15823
	hashK2 uint32 = 9737333
)

// neighbourOffsets lists the query cell and its eight neighbours.
var neighbourOffsets = [9][2]int32{
	{-1, 1}, {0, 1}, {1, 1},
	{-1, 0}, {0, 0}, {1, 0},
	{-1, -1}, {0, -1}, {1, -1},
}

// CellCoord returns the grid cell containing pos for a cell size of radius.
func CellCoord(pos mgl32.Vec2, radius float32) (int32, int32) {
	cx := math.Floor(float64(pos.X() / radius))
	cy := math.Floor(float64(pos.Y() / radius))
	return int32(cx), int32(cy)
}

// CellHash hashes a cell coordinate. Distinct cells may collide.
func CellHash(cx, cy int32) uint32 {
	return uint32(cx)*hashK1 + uint32(cy)*hashK2
}

// KeyFromHash reduces a hash to a bucket in a table of the given size.
func KeyFromHash(hash uint32, size int) uint32 {
	return hash % uint32(size)
}

// Table builds the sorted (particle, cell key) index.
type Table struct {
	dev    compute.Device
	sorter *bitonic.Sorter
}

// NewTable creates a table dispatching on dev.
func NewTable(dev compute.Device, sorter *bitonic.Sorter) *Table {
	return &Table{dev: dev, sorter: sorter}
}

// Build writes one entry per particle in predicted[:n], keyed by the bucket of
// its cell in a table of len(offsets) buckets, then sorts the entries and
// rebuilds offsets. n may not exceed len(offsets), since len(offsets) marks an
// empty bucket.
func (t *Table) Build(predicted []mgl32.Vec2, radius float32, entries []bitonic.Entry, offsets []uint32, n int) error {
	if n > len(entries) || n > len(predicted) {
		panic(fmt.Sprintf("spatial: build of %d particles exceeds capacity %d", n, len(entries)))
	}
	if n > len(offsets) {
		panic(fmt.Sprintf("spatial: build of %d particles exceeds table size %d", n, len(offsets)))
	}
	size := len(offsets)
	if err := t.dev.Dispatch(KernelUpdateHash, n, func(i int) {
		cx, cy := CellCoord(predicted[i], radius)
		entries[i] = bitonic.Entry{
			Index: uint32(i),
			Key:   KeyFromHash(CellHash(cx, cy), size),
		}
	}); err != nil {
		return fmt.Errorf("update spatial hash: %w", err)
	}
	return t.sorter.SortAndComputeOffsets(entries, offsets, n)
}
