// Package compute provides the data-parallel execution queue the simulation
// dispatches its kernels on.
//
// A dispatch runs fn(i) for every lane i in [0, n) and returns only after all
// lanes have finished, so consecutive dispatches are separated by a full
// barrier. Lanes of one dispatch may run in any order and concurrently; a
// kernel must only write locations owned by its lane.
package compute

import (
	"errors"
	"fmt"
)

var (
	// ErrDeviceFault is wrapped by every error produced by a failing lane.
	ErrDeviceFault = errors.New("compute: device fault")
	// ErrClosed is returned by Dispatch after Close.
	ErrClosed = errors.New("compute: device closed")
)

// Device executes data-parallel kernels in submission order.
type Device interface {
	// Dispatch runs fn for every lane in [0, n) and blocks until all lanes
	// complete. n <= 0 is a no-op.
	Dispatch(kernel string, n int, fn func(i int)) error
	// Close releases the device. Subsequent dispatches fail with ErrClosed.
	Close()
}

// FaultError reports a lane that panicked during a dispatch.
type FaultError struct {
	Kernel string
	Lane   int
	Value  any
}

func (e *FaultError) Error() string {
	return fmt.Sprintf("compute: kernel %q faulted at lane %d: %v", e.Kernel, e.Lane, e.Value)
}

func (e *FaultError) Unwrap() error { return ErrDeviceFault }

// runRange executes lanes [start, end) and converts a panic into a FaultError.
func runRange(kernel string, start, end int, fn func(int)) (err error) {
	lane := start
	defer func() {
		if r := recover(); r != nil {
			err = &FaultError{Kernel: kernel, Lane: lane, Value: r}
		}
	}()
	for ; lane < end; lane++ {
		fn(lane)
	}
	return nil
}
