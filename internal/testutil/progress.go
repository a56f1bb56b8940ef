package testutil

import (
	"sync"
	"sync/atomic"

	"github.com/input-output-hk/catalyst-forge-libs/chunked/chunktypes"
)

// ProgressCall is one recorded progress notification.
type ProgressCall struct {
	Part       chunktypes.PartRecord
	PartSize   int64
	TotalParts int
}

// ProgressRecorder records progress notifications and flags overlapping calls.
type ProgressRecorder struct {
	mu         sync.Mutex
	calls      []ProgressCall
	active     atomic.Int32
	overlapped atomic.Bool
}

// Func returns the recorder as a chunktypes.ProgressFunc.
func (p *ProgressRecorder) Func() chunktypes.ProgressFunc {
	return func(part chunktypes.PartRecord, partSize int64, totalParts int) {
		if p.active.Add(1) > 1 {
			p.overlapped.Store(true)
		}
		defer p.active.Add(-1)

		p.mu.Lock()
		p.calls = append(p.calls, ProgressCall{Part: part, PartSize: partSize, TotalParts: totalParts})
		p.mu.Unlock()
	}
}

// Calls returns the recorded notifications in call order.
func (p *ProgressRecorder) Calls() []ProgressCall {
	p.mu.Lock()
	defer p.mu.Unlock()
	return append([]ProgressCall(nil), p.calls...)
}

// Offsets returns the part offsets in call order.
func (p *ProgressRecorder) Offsets() []int64 {
	calls := p.Calls()
	offsets := make([]int64, len(calls))
	for i, c := range calls {
		offsets[i] = c.Part.Offset
	}
	return offsets
}

// Overlapped reports whether two notifications ever ran at the same time.
func (p *ProgressRecorder) Overlapped() bool {
	return p.overlapped.Load()
}
