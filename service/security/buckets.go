package security

import (
	"sync"
	"time"

	"golang.org/x/time/rate"
)

// ClientLimiters holds one token bucket per client identifier, with idle
// entries swept so the map does not grow with every origin ever seen.
type ClientLimiters struct {
	mu        sync.Mutex
	entries   map[string]*bucketEntry
	limit     rate.Limit
	burst     int
	idleTTL   time.Duration
	lastSweep time.Time
}

type bucketEntry struct {
	lim      *rate.Limiter
	lastSeen time.Time
}

// BucketOption customizes a ClientLimiters.
type BucketOption func(*ClientLimiters)

// WithIdleTTL sets how long an idle client's bucket is retained.
func WithIdleTTL(d time.Duration) BucketOption {
	return func(c *ClientLimiters) { c.idleTTL = d }
}

// NewClientLimiters creates a bucket store granting requestsPerHour tokens
// per hour with the given burst per client.
func NewClientLimiters(requestsPerHour float64, burst int, opts ...BucketOption) *ClientLimiters {
	c := &ClientLimiters{
		entries: make(map[string]*bucketEntry),
		limit:   rate.Limit(requestsPerHour / 3600.0),
		burst:   burst,
		idleTTL: 2 * time.Hour,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Allow consumes one token from clientID's bucket, creating it on first use.
func (c *ClientLimiters) Allow(clientID string) bool {
	now := time.Now()

	c.mu.Lock()
	defer c.mu.Unlock()

	c.sweepLocked(now)

	entry, ok := c.entries[clientID]
	if !ok {
		entry = &bucketEntry{lim: rate.NewLimiter(c.limit, c.burst)}
		c.entries[clientID] = entry
	}
	entry.lastSeen = now

	return entry.lim.Allow()
}

// sweepLocked drops buckets idle for longer than the TTL. Runs at most once
// per TTL so Allow stays cheap.
func (c *ClientLimiters) sweepLocked(now time.Time) {
	if now.Sub(c.lastSweep) < c.idleTTL {
		return
	}
	c.lastSweep = now
	for id, entry := range c.entries {
		if now.Sub(entry.lastSeen) > c.idleTTL {
			delete(c.entries, id)
		}
	}
}
