// Package ratelimit provides keyed token-bucket limiting for inbound chat
// messages.
package ratelimit

import (
	"context"
	"sync"
	"time"

	"golang.org/x/time/rate"
)

// Limiter keeps one token bucket per key (a Slack user id)
type Limiter struct {
	mu      sync.Mutex
	buckets map[string]*bucket

	rps   float64
	burst int

	// sweepInterval is how often idle buckets are dropped
	sweepInterval time.Duration

	// idleTTL is how long a bucket survives without use
	idleTTL time.Duration

	stop     chan struct{}
	stopOnce sync.Once
}

type bucket struct {
	limiter  *rate.Limiter
	lastSeen time.Time
}

// New creates a limiter allowing rps events per second per key with the
// given burst, and starts its sweeper goroutine.
func New(rps float64, burst int) *Limiter {
	l := &Limiter{
		buckets:       make(map[string]*bucket),
		rps:           rps,
		burst:         burst,
		sweepInterval: 5 * time.Minute,
		idleTTL:       10 * time.Minute,
		stop:          make(chan struct{}),
	}
	go l.sweepLoop()
	return l
}

func (l *Limiter) get(key string) *rate.Limiter {
	b, ok := l.buckets[key]
	if !ok {
		b = &bucket{limiter: rate.NewLimiter(rate.Limit(l.rps), l.burst)}
		l.buckets[key] = b
	}
	b.lastSeen = time.Now()
	return b.limiter
}

// Allow reports whether key may proceed now.
func (l *Limiter) Allow(key string) bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.get(key).Allow()
}

// Wait blocks until key may proceed or ctx is done.
func (l *Limiter) Wait(ctx context.Context, key string) error {
	l.mu.Lock()
	lim := l.get(key)
	l.mu.Unlock()
	return lim.Wait(ctx)
}

func (l *Limiter) sweepLoop() {
	ticker := time.NewTicker(l.sweepInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			l.sweep(time.Now())
		case <-l.stop:
			return
		}
	}
}

func (l *Limiter) sweep(now time.Time) {
	l.mu.Lock()
	defer l.mu.Unlock()

	cutoff := now.Add(-l.idleTTL)
	for key, b := range l.buckets {
		if b.lastSeen.Before(cutoff) {
			delete(l.buckets, key)
		}
	}
}

// Stop ends the sweeper. Safe to call more than once.
func (l *Limiter) Stop() {
	l.stopOnce.Do(func() { close(l.stop) })
}

// Count returns the number of tracked keys
func (l *Limiter) Count() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.buckets)
}

// Reset drops all buckets
func (l *Limiter) Reset() {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.buckets = make(map[string]*bucket)
}
