// Package bitonic sorts key/value entries with a bitonic merge network and
// derives per-key start offsets from the sorted result.
//
// The network works on the next power of two above the entry count. Lanes
// whose partner index falls past the entry count skip the exchange, which is
// the same as padding the tail with maximum keys.
package bitonic

import (
	"fmt"
	"math/bits"

	"github.com/pthm-cable/sph2d/compute"
)

// Kernel names as seen by the device.
const (
	KernelSort          = "bitonic_sort"
	KernelClearOffsets  = "clear_offsets"
	KernelComputeOffset = "compute_offsets"
)

// Entry is a sort element. Key orders the entries; Index is carried along.
type Entry struct {
	Index uint32
	Key   uint32
}

// Sorter issues sort and offset kernels on a device.
type Sorter struct {
	dev compute.Device
}

// NewSorter creates a sorter dispatching on dev.
func NewSorter(dev compute.Device) *Sorter {
	return &Sorter{dev: dev}
}

// NextPowerOfTwo returns the smallest power of two >= n (1 for n <= 1).
func NextPowerOfTwo(n int) int {
	if n <= 1 {
		return 1
	}
	return 1 << bits.Len(uint(n-1))
}

// Rounds returns the number of compare-exchange rounds needed for n entries.
func Rounds(n int) int {
	stages := bits.TrailingZeros(uint(NextPowerOfTwo(n)))
	return stages * (stages + 1) / 2
}

// Sort orders entries[:n] ascending by Key. It panics if n exceeds len(entries).
func (s *Sorter) Sort(entries []Entry, n int) error {
	if n > len(entries) {
		panic(fmt.Sprintf("bitonic: sort of %d entries exceeds capacity %d", n, len(entries)))
	}
	if n <= 1 {
		return nil
	}

	p := NextPowerOfTwo(n)
	stages := bits.TrailingZeros(uint(p))
	lanes := p / 2

	for stage := 0; stage < stages; stage++ {
		for step := 0; step <= stage; step++ {
			groupWidth := 1 << (stage - step)
			groupHeight := 2*groupWidth - 1
			err := s.dev.Dispatch(KernelSort, lanes, func(i int) {
				compareExchange(entries, n, i, groupWidth, groupHeight, step)
			})
			if err != nil {
				return fmt.Errorf("sort stage %d step %d: %w", stage, step, err)
			}
		}
	}
	return nil
}

// compareExchange is one lane of one network round.
func compareExchange(entries []Entry, n, i, groupWidth, groupHeight, step int) {
	h := i & (groupWidth - 1)
	left := h + (groupHeight+1)*(i/groupWidth)
	var right int
	if step == 0 {
		// First step of a stage mirrors the group.
		right = left + groupHeight - 2*h
	} else {
		right = left + (groupHeight+1)/2
	}
	if right >= n {
		return
	}
	if entries[left].Key > entries[right].Key {
		entries[left], entries[right] = entries[right], entries[left]
	}
}

// ComputeOffsets resets offsets to the empty sentinel len(offsets) and writes,
// for every key present in the sorted entries[:n], the index of its first
// occurrence. Keys must be < len(offsets).
func (s *Sorter) ComputeOffsets(entries []Entry, offsets []uint32, n int) error {
	if n > len(entries) {
		panic(fmt.Sprintf("bitonic: offsets over %d entries exceeds capacity %d", n, len(entries)))
	}
	empty := uint32(len(offsets))
	if err := s.dev.Dispatch(KernelClearOffsets, len(offsets), func(i int) {
		offsets[i] = empty
	}); err != nil {
		return fmt.Errorf("clear offsets: %w", err)
	}
	if err := s.dev.Dispatch(KernelComputeOffset, n, func(i int) {
		key := entries[i].Key
		if i == 0 || key != entries[i-1].Key {
			offsets[key] = uint32(i)
		}
	}); err != nil {
		return fmt.Errorf("compute offsets: %w", err)
	}
	return nil
}

// SortAndComputeOffsets runs Sort followed by ComputeOffsets.
func (s *Sorter) SortAndComputeOffsets(entries []Entry, offsets []uint32, n int) error {
	if err := s.Sort(entries, n); err != nil {
		return err
	}
	return s.ComputeOffsets(entries, offsets, n)
}
