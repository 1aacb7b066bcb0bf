package compute

import "sync"

// DispatchRecord is one dispatch observed by a Recorder.
type DispatchRecord struct {
	Kernel string
	Lanes  int
}

// Recorder wraps a Device and logs every dispatch it forwards.
type Recorder struct {
	dev     Device
	mu      sync.Mutex
	records []DispatchRecord
}

// NewRecorder wraps dev.
func NewRecorder(dev Device) *Recorder {
	return &Recorder{dev: dev}
}

// Dispatch implements Device.
func (r *Recorder) Dispatch(kernel string, n int, fn func(i int)) error {
	r.mu.Lock()
	r.records = append(r.records, DispatchRecord{Kernel: kernel, Lanes: n})
	r.mu.Unlock()
	return r.dev.Dispatch(kernel, n, fn)
}

// Close implements Device.
func (r *Recorder) Close() { r.dev.Close() }

// Records returns a copy of the dispatches seen since the last Reset.
func (r *Recorder) Records() []DispatchRecord {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]DispatchRecord, len(r.records))
	copy(out, r.records)
	return out
}

// Count returns how many dispatches of kernel were recorded.
func (r *Recorder) Count(kernel string) int {
	r.mu.Lock()
	defer r.mu.Unlock()
	n := 0
	for _, rec := range r.records {
		if rec.Kernel == kernel {
			n++
		}
	}
	return n
}

// Reset clears the recorded dispatches.
func (r *Recorder) Reset() {
	r.mu.Lock()
	r.records = r.records[:0]
	r.mu.Unlock()
}
