package ratelimit

import (
	"context"
	"sync"
	"time"
)

// Limiter tracks request counts in fixed windows per client key.
type Limiter struct {
	mu     sync.Mutex
	limits map[string]*window
	limit  int
	window time.Duration
	now    func() time.Time
}

type window struct {
	count     int
	windowEnd time.Time
}

// NewLimiter allows limit requests per key in every window. A limit of zero
// or less allows everything.
func NewLimiter(limit int, windowDuration time.Duration) *Limiter {
	return &Limiter{
		limits: make(map[string]*window),
		limit:  limit,
		window: windowDuration,
		now:    time.Now,
	}
}

// Enabled reports whether the limiter rejects anything at all.
func (l *Limiter) Enabled() bool {
	return l.limit > 0
}

// Allow returns true if the request is within the configured limit.
func (l *Limiter) Allow(key string) bool {
	if !l.Enabled() {
		return true
	}

	l.mu.Lock()
	defer l.mu.Unlock()

	now := l.now()

	win := l.limits[key]
	if win == nil || now.After(win.windowEnd) {
		l.limits[key] = &window{
			count:     1,
			windowEnd: now.Add(l.window),
		}
		return true
	}

	if win.count < l.limit {
		win.count++
		return true
	}

	return false
}

// StartCleanup evicts stale windows every interval until ctx is done.
func (l *Limiter) StartCleanup(ctx context.Context, interval time.Duration) {
	ticker := time.NewTicker(interval)
	go func() {
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				l.evict()
			}
		}
	}()
}

func (l *Limiter) evict() {
	l.mu.Lock()
	defer l.mu.Unlock()

	now := l.now()
	for key, win := range l.limits {
		if now.After(win.windowEnd.Add(5 * time.Minute)) {
			delete(l.limits, key)
		}
	}
}
