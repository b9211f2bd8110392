package llm

import (
	"fmt"
	"sync"
	"time"
)

// CallLimiter enforces a sliding-window call budget for one kind of external
// operation (verification, expansion, refinement, ...). Each wrapper that
// talks to an external service owns its own limiter, constructed with its
// quota and window; there is no shared global table.
type CallLimiter struct {
	op     string
	max    int
	window time.Duration
	now    func() time.Time

	mu    sync.Mutex
	calls []time.Time
}

// NewCallLimiter creates a limiter allowing max calls per window for the
// named operation. max <= 0 disables limiting.
func NewCallLimiter(op string, max int, window time.Duration) *CallLimiter {
	if window <= 0 {
		window = time.Minute
	}
	return &CallLimiter{
		op:     op,
		max:    max,
		window: window,
		now:    time.Now,
	}
}

// Allow records one call if the budget permits it. When the budget is
// exhausted it returns a retryable rate-limited *Error carrying the wait
// until the oldest call leaves the window; the operation must fail without
// reaching the upstream service.
func (l *CallLimiter) Allow() error {
	if l.max <= 0 {
		return nil
	}

	l.mu.Lock()
	defer l.mu.Unlock()

	now := l.now()
	cutoff := now.Add(-l.window)

	kept := l.calls[:0]
	for _, t := range l.calls {
		if t.After(cutoff) {
			kept = append(kept, t)
		}
	}
	l.calls = kept

	if len(l.calls) >= l.max {
		retryAfter := l.calls[0].Sub(cutoff)
		return &Error{
			Code:       ErrRateLimited,
			Message:    fmt.Sprintf("%s: call budget exceeded (%d calls per %s)", l.op, l.max, l.window),
			Retryable:  true,
			RetryAfter: retryAfter,
		}
	}

	l.calls = append(l.calls, now)
	return nil
}

// Remaining returns the number of calls left in the current window.
func (l *CallLimiter) Remaining() int {
	if l.max <= 0 {
		return int(^uint(0) >> 1)
	}

	l.mu.Lock()
	defer l.mu.Unlock()

	cutoff := l.now().Add(-l.window)
	active := 0
	for _, t := range l.calls {
		if t.After(cutoff) {
			active++
		}
	}
	return l.max - active
}
