package judge

import (
	"sync"
	"time"
)

// Default limiter settings for the judge service.
const (
	DefaultMaxCalls  = 30
	DefaultWindow    = 60 * time.Second
	DefaultCallDelay = 1500 * time.Millisecond
)

// Limiter enforces the judge service call budget: at most maxCalls per
// rolling window, failing fast when the budget is spent, plus a fixed delay
// before every call after the first in a window to spread load. One Limiter
// instance is shared by all concurrent evaluations, so the counter is guarded
// by a mutex.
type Limiter struct {
	mu          sync.Mutex
	maxCalls    int
	window      time.Duration
	delay       time.Duration
	calls       int
	windowStart time.Time

	now   func() time.Time
	sleep func(time.Duration)
}

// NewLimiter constructs a limiter. Non-positive arguments fall back to the
// defaults.
func NewLimiter(maxCalls int, window, delay time.Duration) *Limiter {
	if maxCalls <= 0 {
		maxCalls = DefaultMaxCalls
	}
	if window <= 0 {
		window = DefaultWindow
	}
	if delay < 0 {
		delay = DefaultCallDelay
	}
	return &Limiter{
		maxCalls: maxCalls,
		window:   window,
		delay:    delay,
		now:      time.Now,
		sleep:    time.Sleep,
	}
}

// Acquire charges one call against the rolling window. It returns a
// *RateLimitError when the budget is exhausted rather than blocking until the
// window resets. The inter-call delay is applied outside the lock so waiting
// callers do not serialise behind it.
func (l *Limiter) Acquire() error {
	l.mu.Lock()
	now := l.now()
	if now.Sub(l.windowStart) > l.window {
		l.calls = 0
		l.windowStart = now
	}
	if l.calls >= l.maxCalls {
		wait := l.window - now.Sub(l.windowStart)
		l.mu.Unlock()
		return &RateLimitError{RetryAfter: wait}
	}
	first := l.calls == 0
	l.calls++
	l.mu.Unlock()

	if !first && l.delay > 0 {
		l.sleep(l.delay)
	}
	return nil
}

// Remaining returns how many calls are left in the current window.
func (l *Limiter) Remaining() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.now().Sub(l.windowStart) > l.window {
		return l.maxCalls
	}
	return l.maxCalls - l.calls
}
