package compute

import (
	"runtime"
	"sync"
	"sync/atomic"
)

// DefaultThreshold is the lane count below which a dispatch runs inline on the
// calling goroutine. Below this, goroutine handoff costs more than the work.
const DefaultThreshold = 256

// workChunk is a contiguous lane range handed to one worker.
type workChunk struct {
	kernel     string
	start, end int
	fn         func(int)
}

// Pool is a CPU Device backed by persistent worker goroutines.
type Pool struct {
	numWorkers int
	threshold  int

	mu       sync.Mutex // serializes dispatches: one in flight at a time
	workChan chan workChunk
	doneChan chan error
	stopChan chan struct{}
	wg       sync.WaitGroup
	running  bool
	closed   bool

	dispatches  atomic.Uint64
	invocations atomic.Uint64
}

// PoolStats counts the work a pool has executed.
type PoolStats struct {
	Dispatches  uint64
	Invocations uint64
}

// NewPool creates a worker pool. workers <= 0 uses GOMAXPROCS, threshold <= 0
// uses DefaultThreshold. Workers start lazily on the first parallel dispatch.
func NewPool(workers, threshold int) *Pool {
	if workers <= 0 {
		workers = runtime.GOMAXPROCS(0)
	}
	if threshold <= 0 {
		threshold = DefaultThreshold
	}
	return &Pool{numWorkers: workers, threshold: threshold}
}

// Workers returns the number of worker goroutines.
func (p *Pool) Workers() int { return p.numWorkers }

// Stats returns cumulative dispatch counters.
func (p *Pool) Stats() PoolStats {
	return PoolStats{
		Dispatches:  p.dispatches.Load(),
		Invocations: p.invocations.Load(),
	}
}

// Dispatch implements Device. It must not be called from inside a lane.
func (p *Pool) Dispatch(kernel string, n int, fn func(i int)) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.closed {
		return ErrClosed
	}
	if n <= 0 {
		return nil
	}
	p.dispatches.Add(1)
	p.invocations.Add(uint64(n))

	if n < p.threshold || p.numWorkers == 1 {
		return runRange(kernel, 0, n, fn)
	}

	if !p.running {
		p.startWorkers()
	}

	chunkSize := (n + p.numWorkers - 1) / p.numWorkers
	chunksDispatched := 0
	for w := 0; w < p.numWorkers; w++ {
		start := w * chunkSize
		end := start + chunkSize
		if end > n {
			end = n
		}
		if start >= end {
			continue
		}
		p.workChan <- workChunk{kernel: kernel, start: start, end: end, fn: fn}
		chunksDispatched++
	}

	// Barrier: every chunk reports before the next dispatch may start.
	var firstErr error
	for i := 0; i < chunksDispatched; i++ {
		if err := <-p.doneChan; err != nil && firstErr == nil {
			firstErr = err
		}
	}
	return firstErr
}

// Close stops the workers. Safe to call more than once.
func (p *Pool) Close() {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.closed {
		return
	}
	p.closed = true
	p.stopWorkers()
}

func (p *Pool) startWorkers() {
	p.workChan = make(chan workChunk, p.numWorkers)
	p.doneChan = make(chan error, p.numWorkers)
	p.stopChan = make(chan struct{})
	p.running = true

	for i := 0; i < p.numWorkers; i++ {
		p.wg.Add(1)
		go p.worker()
	}
}

func (p *Pool) stopWorkers() {
	if !p.running {
		return
	}
	close(p.stopChan)
	p.wg.Wait()
	close(p.workChan)
	close(p.doneChan)
	p.running = false
}

func (p *Pool) worker() {
	defer p.wg.Done()
	for {
		select {
		case <-p.stopChan:
			return
		case chunk, ok := <-p.workChan:
			if !ok {
				return
			}
			p.doneChan <- runRange(chunk.kernel, chunk.start, chunk.end, chunk.fn)
		}
	}
}
