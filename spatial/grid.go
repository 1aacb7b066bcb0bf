package spatial

import (
	"fmt"

	"github.com/go-gl/mathgl/mgl32"

	"github.com/pthm-cable/sph2d/bitonic"
)

// Grid is a read-only view of a built table, safe to share across lanes.
// Count must not exceed len(Offsets).
type Grid struct {
	Entries []bitonic.Entry
	Offsets []uint32
	Count   int
	Radius  float32
}

// ForEachCandidate calls fn with the index of every particle stored in the
// buckets of the cell containing pos and its eight neighbours. Buckets may hold
// particles from colliding cells, so callers must still test distance. A bucket
// reached from two neighbour cells is scanned once.
func (g Grid) ForEachCandidate(pos mgl32.Vec2, fn func(j uint32)) {
	size := len(g.Offsets)
	if size == 0 || g.Count == 0 {
		return
	}
	if g.Count > size {
		panic(fmt.Sprintf("spatial: grid of %d entries exceeds table size %d", g.Count, size))
	}
	empty := uint32(size)
	cx, cy := CellCoord(pos, g.Radius)

	var seen [9]uint32
	numSeen := 0

next:
	for _, off := range neighbourOffsets {
		key := KeyFromHash(CellHash(cx+off[0], cy+off[1]), size)
		for _, k := range seen[:numSeen] {
			if k == key {
				continue next
			}
		}
		seen[numSeen] = key
		numSeen++

		start := g.Offsets[key]
		if start == empty {
			continue
		}
		for i := int(start); i < g.Count; i++ {
			e := g.Entries[i]
			if e.Key != key {
				break
			}
			fn(e.Index)
		}
	}
}
