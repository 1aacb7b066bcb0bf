package particles

import (
	"errors"
	"math/rand"
	"testing"

	"github.com/go-gl/mathgl/mgl32"
)

func layout(n int, v float32) ([]mgl32.Vec2, []mgl32.Vec2) {
	pos := make([]mgl32.Vec2, n)
	vel := make([]mgl32.Vec2, n)
	for i := range pos {
		pos[i] = mgl32.Vec2{float32(i), v}
		vel[i] = mgl32.Vec2{v, float32(i)}
	}
	return pos, vel
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

func TestAllocate(t *testing.T) {
	tests := []struct {
		name     string
		budget   int64
		capacity int
		wantErr  error
	}{
		{"ok", 0, 100, nil},
		{"zero", 0, 0, ErrInvalidCapacity},
		{"negative", 0, -3, ErrInvalidCapacity},
		{"within budget", 100 * BytesPerParticle, 100, nil},
		{"over budget", 100 * BytesPerParticle, 101, ErrOutOfMemory},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			b := New(tt.budget)
			err := b.Allocate(tt.capacity)
			if !errors.Is(err, tt.wantErr) {
				t.Fatalf("Allocate(%d) err = %v, want %v", tt.capacity, err, tt.wantErr)
			}
			if tt.wantErr != nil {
				if b.Allocated() || b.Capacity() != 0 {
					t.Error("failed allocation left usable state")
				}
				return
			}
			if b.Capacity() != tt.capacity || b.ActiveCount() != 0 {
				t.Errorf("capacity=%d active=%d", b.Capacity(), b.ActiveCount())
			}
			full := b.Backing()
			if len(full.Positions) != tt.capacity || len(full.Offsets) != tt.capacity || len(full.Entries) != tt.capacity {
				t.Error("arrays not sized to capacity")
			}
		})
	}
}

func TestAllocateTwice(t *testing.T) {
	b := New(0)
	if err := b.Allocate(4); err != nil {
		t.Fatal(err)
	}
	if err := b.Allocate(8); !errors.Is(err, ErrAlreadyAllocated) {
		t.Errorf("err = %v, want ErrAlreadyAllocated", err)
	}
}

func TestReseedSetsActivePrefix(t *testing.T) {
	b := New(0)
	if err := b.Allocate(10); err != nil {
		t.Fatal(err)
	}
	pos, vel := layout(6, 2)
	b.Reseed(pos, vel)

	if b.ActiveCount() != 6 {
		t.Fatalf("ActiveCount = %d, want 6", b.ActiveCount())
	}
	v := b.View()
	if len(v.Positions) != 6 || len(v.Densities) != 6 || len(v.Entries) != 6 || len(v.Offsets) != 10 {
		t.Errorf("view lengths: pos=%d dens=%d entries=%d offsets=%d",
			len(v.Positions), len(v.Densities), len(v.Entries), len(v.Offsets))
	}
	for i := range pos {
		if v.Positions[i] != pos[i] || v.PredictedPositions[i] != pos[i] || v.Velocities[i] != vel[i] {
			t.Errorf("slot %d not seeded", i)
		}
	}
}

func TestReseedShrinkKeepsTail(t *testing.T) {
	b := New(0)
	if err := b.Allocate(1000); err != nil {
		t.Fatal(err)
	}
	pos, vel := layout(1000, 5)
	b.Reseed(pos, vel)

	small, smallVel := layout(10, -1)
	b.Reseed(small, smallVel)

	full := b.Backing()
	for i := 10; i < 1000; i++ {
		if full.Positions[i] != pos[i] || full.Velocities[i] != vel[i] {
			t.Fatalf("slot %d was modified by shrinking reseed", i)
		}
	}
	if b.View().Count != 10 || len(b.View().Positions) != 10 {
		t.Error("view not limited to new active count")
	}
}

func TestReseedContractViolations(t *testing.T) {
	b := New(0)
	expectPanic(t, "before allocate", func() { b.Reseed(nil, nil) })

	if err := b.Allocate(4); err != nil {
		t.Fatal(err)
	}
	pos, vel := layout(5, 0)
	expectPanic(t, "over capacity", func() { b.Reseed(pos, vel) })
	expectPanic(t, "length mismatch", func() { b.Reseed(pos[:3], vel[:2]) })
}

func TestCapacityInvariantUnderRandomReseeds(t *testing.T) {
	rng := rand.New(rand.NewSource(9))
	b := New(0)
	const capacity = 64
	if err := b.Allocate(capacity); err != nil {
		t.Fatal(err)
	}
	for i := 0; i < 200; i++ {
		pos, vel := layout(rng.Intn(capacity+1), float32(i))
		b.Reseed(pos, vel)
		if b.ActiveCount() > b.Capacity() {
			t.Fatalf("active %d > capacity %d", b.ActiveCount(), b.Capacity())
		}
		v := b.View()
		for j := 0; j < v.Count; j++ {
			_ = v.Positions[j]
			_ = v.Densities[j]
			_ = v.Entries[j]
		}
	}
}

func TestRelease(t *testing.T) {
	b := New(0)
	b.Release() // not allocated: no-op

	if err := b.Allocate(8); err != nil {
		t.Fatal(err)
	}
	b.Release()
	b.Release()
	if b.Allocated() || b.Capacity() != 0 || b.ActiveCount() != 0 {
		t.Error("Release left state behind")
	}
	if b.View().Positions != nil {
		t.Error("view still references released arrays")
	}
	if err := b.Allocate(2); err != nil {
		t.Errorf("Allocate after Release: %v", err)
	}
}

func TestRestoreKeepsPredicted(t *testing.T) {
	b := New(0)
	if err := b.Allocate(8); err != nil {
		t.Fatal(err)
	}
	pos, vel := layout(6, 1)
	b.Reseed(pos, vel)

	v := b.View()
	for i := range v.PredictedPositions {
		v.PredictedPositions[i] = mgl32.Vec2{9, 9}
		v.Positions[i] = mgl32.Vec2{-9, -9}
	}

	b.Restore(pos, vel)
	for i := range pos {
		if v.Positions[i] != pos[i] || v.Velocities[i] != vel[i] {
			t.Errorf("slot %d not restored", i)
		}
		if v.PredictedPositions[i] != (mgl32.Vec2{9, 9}) {
			t.Errorf("slot %d predicted = %v, want untouched", i, v.PredictedPositions[i])
		}
	}
	if b.ActiveCount() != 6 {
		t.Errorf("active count = %d, want 6", b.ActiveCount())
	}

	short, shortVel := layout(5, 0)
	expectPanic(t, "length mismatch", func() { b.Restore(short, shortVel) })
}
