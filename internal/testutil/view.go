package testutil

import (
	"sync"
	"sync/atomic"

	"stakefetcher/internal/stake"
)

// ViewCall records one call into a RecordingView.
type ViewCall struct {
	Op       string // "render", "clear" or "failed"
	Snapshot stake.Snapshot
	Key      stake.Key
	Err      error
}

// RecordingView is a publisher.View that records its calls and flags
// overlapping entries.
type RecordingView struct {
	mu      sync.Mutex
	calls   []ViewCall
	entered atomic.Int32
	overlap atomic.Bool

	// C receives every call as it happens.
	C chan ViewCall
}

// NewRecordingView creates a RecordingView with a buffered call stream.
func NewRecordingView() *RecordingView {
	return &RecordingView{C: make(chan ViewCall, 256)}
}

func (v *RecordingView) record(c ViewCall) {
	if v.entered.Add(1) > 1 {
		v.overlap.Store(true)
	}
	defer v.entered.Add(-1)

	v.mu.Lock()
	v.calls = append(v.calls, c)
	v.mu.Unlock()

	select {
	case v.C <- c:
	default:
	}
}

// Render implements publisher.View.
func (v *RecordingView) Render(snap stake.Snapshot) {
	v.record(ViewCall{Op: "render", Snapshot: snap, Key: snap.Key})
}

// Clear implements publisher.View.
func (v *RecordingView) Clear() {
	v.record(ViewCall{Op: "clear"})
}

// Failed implements publisher.FailureView.
func (v *RecordingView) Failed(key stake.Key, err error) {
	v.record(ViewCall{Op: "failed", Key: key, Err: err})
}

// Calls returns every recorded call in order.
func (v *RecordingView) Calls() []ViewCall {
	v.mu.Lock()
	defer v.mu.Unlock()
	out := make([]ViewCall, len(v.calls))
	copy(out, v.calls)
	return out
}

// Rendered returns the keys of every rendered snapshot in order.
func (v *RecordingView) Rendered() []stake.Key {
	var keys []stake.Key
	for _, c := range v.Calls() {
		if c.Op == "render" {
			keys = append(keys, c.Key)
		}
	}
	return keys
}

// Overlapped reports whether two calls were ever in progress at once.
func (v *RecordingView) Overlapped() bool {
	return v.overlap.Load()
}
