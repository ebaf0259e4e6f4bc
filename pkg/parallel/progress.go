package parallel

import (
	"sync"
	"sync/atomic"
)

// ProgressCallback receives the number of completed pixels out of total.
type ProgressCallback func(completed, total int64)

// Progress accumulates completed pixels from many workers. Workers report in
// coarse steps (a row or a face at a time); the count is exact because it is
// kept in an atomic accumulator, while the callback is throttled to roughly
// every step fraction of the total.
type Progress struct {
	total     int64
	completed atomic.Int64
	step      int64
	lastFired atomic.Int64

	mu       sync.Mutex
	callback ProgressCallback
}

// NewProgress tracks total pixels and fires callback about every 1/steps of
// the work. callback may be nil.
func NewProgress(total int64, steps int, callback ProgressCallback) *Progress {
	if steps < 1 {
		steps = 100
	}
	step := total / int64(steps)
	if step < 1 {
		step = 1
	}
	return &Progress{total: total, step: step, callback: callback}
}

// Add records n completed pixels. Safe for concurrent use. A nil Progress
// ignores the call.
func (p *Progress) Add(n int64) {
	if p == nil || n <= 0 {
		return
	}
	done := p.completed.Add(n)
	if p.callback == nil {
		return
	}
	for {
		last := p.lastFired.Load()
		if done <= last || (done-last < p.step && done < p.total) {
			return
		}
		if p.lastFired.CompareAndSwap(last, done) {
			break
		}
	}
	p.mu.Lock()
	defer p.mu.Unlock()
	p.callback(done, p.total)
}

// Completed returns the number of pixels recorded so far.
func (p *Progress) Completed() int64 {
	if p == nil {
		return 0
	}
	return p.completed.Load()
}

// Total returns the number of pixels expected.
func (p *Progress) Total() int64 {
	if p == nil {
		return 0
	}
	return p.total
}

// Fraction returns the completed fraction in [0, 1].
func (p *Progress) Fraction() float64 {
	if p == nil || p.total == 0 {
		return 0
	}
	f := float64(p.Completed()) / float64(p.total)
	if f > 1 {
		f = 1
	}
	return f
}
