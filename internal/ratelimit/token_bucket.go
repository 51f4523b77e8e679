// Package ratelimit throttles ad requests with per-key token buckets.
//
// A bucket holds up to Capacity tokens and regains RefillRate tokens per
// second. Each request takes one token, so a client may burst up to Capacity
// requests and is then held to the sustained rate.
package ratelimit

import (
	"sync"
	"time"
)

// TokenBucket is a thread-safe token bucket.
type TokenBucket struct {
	mu         sync.Mutex
	capacity   int
	tokens     int
	refillRate int
	lastRefill time.Time
	now        func() time.Time

	limited int64
	total   int64
}

// NewTokenBucket creates a full bucket.
func NewTokenBucket(capacity, refillRate int) *TokenBucket {
	return newTokenBucket(capacity, refillRate, time.Now)
}

func newTokenBucket(capacity, refillRate int, now func() time.Time) *TokenBucket {
	return &TokenBucket{
		capacity:   capacity,
		tokens:     capacity,
		refillRate: refillRate,
		lastRefill: now(),
		now:        now,
	}
}

// Allow takes one token, reporting false when the bucket is empty.
func (tb *TokenBucket) Allow() bool {
	tb.mu.Lock()
	defer tb.mu.Unlock()

	tb.total++
	now := tb.now()
	if add := int(now.Sub(tb.lastRefill).Seconds() * float64(tb.refillRate)); add > 0 {
		tb.tokens = min(tb.capacity, tb.tokens+add)
		tb.lastRefill = now
	}
	if tb.tokens > 0 {
		tb.tokens--
		return true
	}
	tb.limited++
	return false
}

// Stats returns how many requests were limited out of the total seen.
func (tb *TokenBucket) Stats() (limited, total int64) {
	tb.mu.Lock()
	defer tb.mu.Unlock()
	return tb.limited, tb.total
}
