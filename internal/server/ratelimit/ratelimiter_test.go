package ratelimit

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"go.uber.org/goleak"
)

type fakeClock struct{ t time.Time }

func (c *fakeClock) now() time.Time          { return c.t }
func (c *fakeClock) advance(d time.Duration) { c.t = c.t.Add(d) }

func newTestLimiter(limit int, win time.Duration) (*Limiter, *fakeClock) {
	clock := &fakeClock{t: time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)}
	l := NewLimiter(limit, win)
	l.now = clock.now
	return l, clock
}

func TestAllow_WithinWindow(t *testing.T) {
	l, clock := newTestLimiter(2, time.Minute)

	assert.True(t, l.Allow("10.0.0.1"))
	assert.True(t, l.Allow("10.0.0.1"))
	assert.False(t, l.Allow("10.0.0.1"))
	assert.True(t, l.Allow("10.0.0.2"), "keys are limited independently")

	clock.advance(time.Minute + time.Second)
	assert.True(t, l.Allow("10.0.0.1"), "a new window resets the count")
}

func TestAllow_Disabled(t *testing.T) {
	l := NewLimiter(0, time.Minute)
	assert.False(t, l.Enabled())
	for i := 0; i < 100; i++ {
		assert.True(t, l.Allow("10.0.0.1"))
	}
}

func TestEvict(t *testing.T) {
	l, clock := newTestLimiter(1, time.Minute)
	l.Allow("10.0.0.1")

	clock.advance(3 * time.Minute)
	l.evict()
	assert.Len(t, l.limits, 1)

	clock.advance(5 * time.Minute)
	l.evict()
	assert.Empty(t, l.limits)
}

func TestStartCleanup_StopsWithContext(t *testing.T) {
	defer goleak.VerifyNone(t)

	l := NewLimiter(1, time.Minute)
	ctx, cancel := context.WithCancel(context.Background())
	l.StartCleanup(ctx, time.Millisecond)
	time.Sleep(5 * time.Millisecond)
	cancel()
	// goleak retries until the cleanup goroutine has returned.
}
