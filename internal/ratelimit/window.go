// Package ratelimit provides a per-key sliding-window rate limiter. Each key
// gets its own window; keys never contend with each other.
package ratelimit

import "time"

// Window is a trailing sliding-window counter over individual event
// timestamps. It is not safe for concurrent use; callers (the per-key actor,
// or a test) own the synchronization.
type Window struct {
	span   time.Duration
	max    int
	stamps []time.Time
}

func NewWindow(max int, span time.Duration) *Window {
	return &Window{
		span:   span,
		max:    max,
		stamps: make([]time.Time, 0, max),
	}
}

// Admit records the event at now if the trailing window still has capacity
// and reports whether it was admitted. Denied events are not recorded, so a
// burst of rejections does not extend the lockout.
func (w *Window) Admit(now time.Time) bool {
	w.prune(now)
	if len(w.stamps) >= w.max {
		return false
	}
	w.stamps = append(w.stamps, now)
	return true
}

// Remaining reports how many admissions are left in the window ending at now.
func (w *Window) Remaining(now time.Time) int {
	w.prune(now)
	return w.max - len(w.stamps)
}

// prune drops timestamps that have slid out of the trailing window.
// Timestamps are appended in order, so the live suffix is contiguous.
func (w *Window) prune(now time.Time) {
	cutoff := now.Add(-w.span)
	i := 0
	for i < len(w.stamps) && !w.stamps[i].After(cutoff) {
		i++
	}
	if i > 0 {
		w.stamps = append(w.stamps[:0], w.stamps[i:]...)
	}
}
