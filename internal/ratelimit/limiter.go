package ratelimit

import (
	"fmt"
	"sync"
	"time"

	"github.com/patrickwarner/adunits/internal/observability"
)

// Config holds the bucket shape shared by every key. A zero Capacity
// disables limiting.
type Config struct {
	Capacity   int
	RefillRate int
}

// Enabled reports whether the configuration limits anything.
func (c Config) Enabled() bool { return c.Capacity > 0 }

// Limiter keeps one bucket per key, created on first use.
//
//	limiter := ratelimit.New(ratelimit.Config{Capacity: 10, RefillRate: 2}, "ad", metrics)
//	if !limiter.Allow(userID) {
//	    // answer 429
//	}
type Limiter struct {
	mu      sync.RWMutex
	buckets map[string]*TokenBucket
	config  Config
	scope   string
	metrics observability.MetricsRegistry
	now     func() time.Time
}

// New creates a Limiter. scope labels the rate limit metric.
func New(config Config, scope string, metrics observability.MetricsRegistry) *Limiter {
	if metrics == nil {
		metrics = observability.NewNoOpRegistry()
	}
	return &Limiter{
		buckets: make(map[string]*TokenBucket),
		config:  config,
		scope:   scope,
		metrics: metrics,
		now:     time.Now,
	}
}

// Allow reports whether a request for key may proceed. It always does when
// limiting is disabled.
func (l *Limiter) Allow(key string) bool {
	if l == nil || !l.config.Enabled() {
		return true
	}

	l.mu.RLock()
	bucket, ok := l.buckets[key]
	l.mu.RUnlock()
	if !ok {
		l.mu.Lock()
		if bucket, ok = l.buckets[key]; !ok {
			bucket = newTokenBucket(l.config.Capacity, l.config.RefillRate, l.now)
			l.buckets[key] = bucket
		}
		l.mu.Unlock()
	}

	if !bucket.Allow() {
		l.metrics.IncrementRateLimited(l.scope)
		return false
	}
	return true
}

// Stats returns a snapshot of every bucket.
func (l *Limiter) Stats() map[string]Stats {
	l.mu.RLock()
	defer l.mu.RUnlock()

	out := make(map[string]Stats, len(l.buckets))
	for key, b := range l.buckets {
		limited, total := b.Stats()
		st := Stats{Key: key, Limited: limited, Total: total}
		if total > 0 {
			st.Rate = float64(limited) / float64(total)
		}
		out[key] = st
	}
	return out
}

// Stats describes the limiting applied to one key.
type Stats struct {
	Key     string  `json:"key"`
	Limited int64   `json:"limited"`
	Total   int64   `json:"total"`
	Rate    float64 `json:"rate"`
}

func (s Stats) String() string {
	return fmt.Sprintf("%s: %d/%d limited (%.2f%%)", s.Key, s.Limited, s.Total, s.Rate*100)
}
