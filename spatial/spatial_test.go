package spatial

import (
	"math/rand"
	"sort"
	"testing"

	"github.com/go-gl/mathgl/mgl32"

	"github.com/pthm-cable/sph2d/bitonic"
	"github.com/pthm-cable/sph2d/compute"
)

func TestCellCoord(t *testing.T) {
	tests := []struct {
		pos    mgl32.Vec2
		radius float32
		cx, cy int32
	}{
		{mgl32.Vec2{0, 0}, 1, 0, 0},
		{mgl32.Vec2{0.99, 1.01}, 1, 0, 1},
		{mgl32.Vec2{-0.01, -1}, 1, -1, -1},
		{mgl32.Vec2{-1.01, 2.5}, 0.5, -3, 5},
	}
	for _, tt := range tests {
		cx, cy := CellCoord(tt.pos, tt.radius)
		if cx != tt.cx || cy != tt.cy {
			t.Errorf("CellCoord(%v, %v) = (%d, %d), want (%d, %d)", tt.pos, tt.radius, cx, cy, tt.cx, tt.cy)
		}
	}
}

func TestKeyFromHashInRange(t *testing.T) {
	rng := rand.New(rand.NewSource(1))
	for i := 0; i < 1000; i++ {
		cx := int32(rng.Intn(2000) - 1000)
		cy := int32(rng.Intn(2000) - 1000)
		size := 1 + rng.Intn(500)
		if k := KeyFromHash(CellHash(cx, cy), size); int(k) >= size {
			t.Fatalf("key %d out of range for size %d", k, size)
		}
	}
}

type built struct {
	positions []mgl32.Vec2
	entries   []bitonic.Entry
	offsets   []uint32
	grid      Grid
}

func buildTable(t *testing.T, positions []mgl32.Vec2, capacity int, radius float32) built {
	t.Helper()
	pool := compute.NewPool(4, 32)
	t.Cleanup(pool.Close)

	entries := make([]bitonic.Entry, capacity)
	offsets := make([]uint32, capacity)
	predicted := make([]mgl32.Vec2, capacity)
	copy(predicted, positions)

	table := NewTable(pool, bitonic.NewSorter(pool))
	if err := table.Build(predicted, radius, entries, offsets, len(positions)); err != nil {
		t.Fatalf("Build: %v", err)
	}
	return built{
		positions: predicted,
		entries:   entries,
		offsets:   offsets,
		grid:      Grid{Entries: entries, Offsets: offsets, Count: len(positions), Radius: radius},
	}
}

func randomPositions(rng *rand.Rand, n int, extent float32) []mgl32.Vec2 {
	out := make([]mgl32.Vec2, n)
	for i := range out {
		out[i] = mgl32.Vec2{(rng.Float32() - 0.5) * extent, (rng.Float32() - 0.5) * extent}
	}
	return out
}

func TestBuildProducesSortedEntriesAndOffsets(t *testing.T) {
	rng := rand.New(rand.NewSource(2))
	positions := randomPositions(rng, 300, 20)
	b := buildTable(t, positions, 512, 1)

	seen := make(map[uint32]bool)
	for i := 0; i < len(positions); i++ {
		e := b.entries[i]
		if i > 0 && b.entries[i-1].Key > e.Key {
			t.Fatalf("entries not sorted at %d", i)
		}
		cx, cy := CellCoord(positions[e.Index], 1)
		if want := KeyFromHash(CellHash(cx, cy), 512); e.Key != want {
			t.Errorf("entry %d key = %d, want %d", i, e.Key, want)
		}
		if seen[e.Index] {
			t.Fatalf("particle %d indexed twice", e.Index)
		}
		seen[e.Index] = true
		if i == 0 || b.entries[i-1].Key != e.Key {
			if b.offsets[e.Key] != uint32(i) {
				t.Errorf("offsets[%d] = %d, want %d", e.Key, b.offsets[e.Key], i)
			}
		}
	}
	if len(seen) != len(positions) {
		t.Errorf("indexed %d particles, want %d", len(seen), len(positions))
	}
}

func TestForEachCandidateFindsAllWithinRadius(t *testing.T) {
	rng := rand.New(rand.NewSource(3))
	const (
		n      = 400
		radius = 0.75
		extent = 30
	)
	// About 1600 cells share n buckets, so distinct cells collide.
	positions := randomPositions(rng, n, extent)
	b := buildTable(t, positions, n, radius)

	cellsByKey := make(map[uint32]map[[2]int32]bool)
	for _, p := range positions {
		cx, cy := CellCoord(p, radius)
		key := KeyFromHash(CellHash(cx, cy), n)
		if cellsByKey[key] == nil {
			cellsByKey[key] = make(map[[2]int32]bool)
		}
		cellsByKey[key][[2]int32{cx, cy}] = true
	}
	collisions := 0
	for _, cells := range cellsByKey {
		if len(cells) > 1 {
			collisions++
		}
	}
	if collisions == 0 {
		t.Fatal("layout produced no bucket collisions")
	}

	queries := make([]mgl32.Vec2, 0, 100)
	for i := 0; i < 50; i++ {
		queries = append(queries, positions[rng.Intn(n)])
		queries = append(queries, mgl32.Vec2{(rng.Float32() - 0.5) * extent, (rng.Float32() - 0.5) * extent})
	}

	for _, q := range queries {
		visits := make(map[uint32]int)
		var got []int
		b.grid.ForEachCandidate(q, func(j uint32) {
			visits[j]++
			if positions[j].Sub(q).Len() <= radius {
				got = append(got, int(j))
			}
		})
		for j, c := range visits {
			if c != 1 {
				t.Fatalf("query %v: particle %d visited %d times", q, j, c)
			}
		}

		var want []int
		for j, p := range positions {
			if p.Sub(q).Len() <= radius {
				want = append(want, j)
			}
		}

		sort.Ints(got)
		if len(got) != len(want) {
			t.Fatalf("query %v: got %d neighbours, want %d", q, len(got), len(want))
		}
		for i := range want {
			if got[i] != want[i] {
				t.Fatalf("query %v: neighbour %d = %d, want %d", q, i, got[i], want[i])
			}
		}
	}
}

func TestForEachCandidateVisitsOnce(t *testing.T) {
	// With a single bucket all nine cells share key 0.
	b := buildTable(t, []mgl32.Vec2{{0.1, 0.1}}, 1, 1)

	visits := 0
	b.grid.ForEachCandidate(mgl32.Vec2{0, 0}, func(j uint32) {
		if j != 0 {
			t.Errorf("visited particle %d", j)
		}
		visits++
	})
	if visits != 1 {
		t.Errorf("particle visited %d times, want 1", visits)
	}
}

func expectPanic(t *testing.T, name string, fn func()) {
	t.Helper()
	defer func() {
		if recover() == nil {
			t.Errorf("%s: expected panic", name)
		}
	}()
	fn()
}

func TestCountBeyondTableSizePanics(t *testing.T) {
	pool := compute.NewPool(2, 32)
	defer pool.Close()
	table := NewTable(pool, bitonic.NewSorter(pool))

	predicted := make([]mgl32.Vec2, 8)
	entries := make([]bitonic.Entry, 8)
	offsets := make([]uint32, 4)
	expectPanic(t, "build", func() {
		_ = table.Build(predicted, 1, entries, offsets, 8)
	})

	g := Grid{Entries: entries, Offsets: offsets, Count: 8, Radius: 1}
	expectPanic(t, "query", func() {
		g.ForEachCandidate(mgl32.Vec2{}, func(uint32) {})
	})
}

func TestForEachCandidateEmpty(t *testing.T) {
	g := Grid{Offsets: []uint32{0, 0}, Radius: 1}
	called := false
	g.ForEachCandidate(mgl32.Vec2{}, func(uint32) { called = true })
	if called {
		t.Error("callback on empty grid")
	}
}

func TestBuildIgnoresInactiveTail(t *testing.T) {
	positions := []mgl32.Vec2{{0, 0}, {3, 3}}
	b := buildTable(t, positions, 16, 1)

	count := 0
	b.grid.ForEachCandidate(mgl32.Vec2{3, 3}, func(j uint32) {
		if j >= 2 {
			t.Errorf("visited inactive particle %d", j)
		}
		count++
	})
	if count == 0 {
		t.Error("expected particle 1 as candidate")
	}
}
