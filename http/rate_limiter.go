package http

import (
	"sync"
	"time"
)

const (
	idleBucketTTL = time.Hour
	sweepInterval = 30 * time.Minute
)

// tokenBucket holds up to capacity tokens. All of them come back at once
// when a full refill period has passed since the last refill.
type tokenBucket struct {
	tokens     int
	lastRefill time.Time
}

// take spends one token. With none left it returns how long until the
// bucket refills.
func (b *tokenBucket) take(now time.Time, capacity int, refill time.Duration) (bool, time.Duration) {
	if now.Sub(b.lastRefill) >= refill {
		b.tokens, b.lastRefill = capacity, now
	}
	if b.tokens <= 0 {
		return false, refill - now.Sub(b.lastRefill)
	}
	b.tokens--
	return true, 0
}

// RateLimiter caps calls to the calculation service per client key at
// capacity per refill period. Buckets idle for an hour are swept.
type RateLimiter struct {
	capacity int
	refill   time.Duration
	now      func() time.Time

	mu      sync.Mutex
	buckets map[string]*tokenBucket

	done     chan struct{}
	stopOnce sync.Once
}

func NewRateLimiter(capacity int, refill time.Duration) *RateLimiter {
	rl := &RateLimiter{
		capacity: capacity,
		refill:   refill,
		now:      time.Now,
		buckets:  make(map[string]*tokenBucket),
		done:     make(chan struct{}),
	}
	go rl.sweepLoop()
	return rl
}

// Allow spends one of key's tokens. When the bucket is empty it also
// returns the wait until the next refill.
func (r *RateLimiter) Allow(key string) (bool, time.Duration) {
	r.mu.Lock()
	defer r.mu.Unlock()

	now := r.now()
	b, ok := r.buckets[key]
	if !ok {
		b = &tokenBucket{tokens: r.capacity, lastRefill: now}
		r.buckets[key] = b
	}
	return b.take(now, r.capacity, r.refill)
}

// Stop ends the sweeper. Safe to call more than once.
func (r *RateLimiter) Stop() {
	r.stopOnce.Do(func() { close(r.done) })
}

func (r *RateLimiter) sweepLoop() {
	ticker := time.NewTicker(sweepInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			r.sweep()
		case <-r.done:
			return
		}
	}
}

func (r *RateLimiter) sweep() {
	r.mu.Lock()
	defer r.mu.Unlock()

	now := r.now()
	for key, b := range r.buckets {
		if now.Sub(b.lastRefill) > idleBucketTTL {
			delete(r.buckets, key)
		}
	}
}
