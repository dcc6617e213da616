package ratelimit

import (
	"context"
	"sync"
	"time"
)

// DefaultWindow is the length of one counting window
const DefaultWindow = time.Minute

// FixedWindowLimiter bounds outbound requests per wall-clock window.
// Callers over the limit are suspended until the window rolls over instead of being rejected.
// Two full bursts can land back to back across a window boundary.
type FixedWindowLimiter struct {
	mu          sync.Mutex
	limit       int
	window      time.Duration
	count       int
	windowStart time.Time
	waits       int64

	now   func() time.Time
	sleep func(ctx context.Context, d time.Duration) error
}

// Option configures a FixedWindowLimiter
type Option func(*FixedWindowLimiter)

// WithClock replaces the time source and the suspension primitive, used by tests
func WithClock(now func() time.Time, sleep func(ctx context.Context, d time.Duration) error) Option {
	return func(l *FixedWindowLimiter) {
		if now != nil {
			l.now = now
		}
		if sleep != nil {
			l.sleep = sleep
		}
	}
}

// WithWindow overrides the one minute window
func WithWindow(window time.Duration) Option {
	return func(l *FixedWindowLimiter) {
		if window > 0 {
			l.window = window
		}
	}
}

// NewFixedWindowLimiter creates a limiter that accepts at most limit starts per window
func NewFixedWindowLimiter(limit int, opts ...Option) *FixedWindowLimiter {
	if limit < 1 {
		limit = 1
	}
	l := &FixedWindowLimiter{
		limit:  limit,
		window: DefaultWindow,
		now:    time.Now,
		sleep:  sleepContext,
	}
	for _, opt := range opts {
		opt(l)
	}
	l.windowStart = l.now()
	return l
}

// Acquire blocks until a request may start. It only fails when ctx is done while suspended.
// The lock is held across the suspension so check-count-then-increment stays atomic.
func (l *FixedWindowLimiter) Acquire(ctx context.Context) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	elapsed := l.now().Sub(l.windowStart)
	if elapsed >= l.window {
		l.count = 0
		l.windowStart = l.now()
		elapsed = 0
	}

	if l.count >= l.limit {
		l.waits++
		if err := l.sleep(ctx, l.window-elapsed); err != nil {
			return err
		}
		l.count = 0
		l.windowStart = l.now()
	}

	l.count++
	return nil
}

// GetStats returns limiter statistics
func (l *FixedWindowLimiter) GetStats() map[string]interface{} {
	l.mu.Lock()
	defer l.mu.Unlock()

	return map[string]interface{}{
		"limit":        l.limit,
		"window":       l.window.String(),
		"count":        l.count,
		"window_start": l.windowStart,
		"waits":        l.waits,
	}
}

// Reset starts a fresh window
func (l *FixedWindowLimiter) Reset() {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.count = 0
	l.windowStart = l.now()
}

func sleepContext(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return nil
	}
	timer := time.NewTimer(d)
	defer timer.Stop()

	select {
	case <-timer.C:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
