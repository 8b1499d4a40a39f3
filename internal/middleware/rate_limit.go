package middleware

import (
	"context"
	"strconv"
	"sync"
	"time"

	"catalog/internal/errs"

	"github.com/gofiber/fiber/v2"
	"golang.org/x/time/rate"
)

// RateLimitStore keeps one token bucket per client key and forgets keys that
// stay idle longer than idleTTL.
type RateLimitStore struct {
	mu           sync.Mutex
	entries      map[string]*limiterEntry
	rps          rate.Limit
	burst        int
	idleTTL      time.Duration
	cleanupEvery time.Duration
}

type limiterEntry struct {
	lim      *rate.Limiter
	lastSeen time.Time
}

// NewRateLimitStore creates a store allowing rps requests per second with the
// given burst for each key.
func NewRateLimitStore(rps float64, burst int) *RateLimitStore {
	if burst < 1 {
		burst = 1
	}
	return &RateLimitStore{
		entries:      make(map[string]*limiterEntry),
		rps:          rate.Limit(rps),
		burst:        burst,
		idleTTL:      15 * time.Minute,
		cleanupEvery: 2 * time.Minute,
	}
}

// Get returns the limiter for key, creating it on first use.
func (s *RateLimitStore) Get(key string) *rate.Limiter {
	now := time.Now()

	s.mu.Lock()
	defer s.mu.Unlock()

	if ent, ok := s.entries[key]; ok {
		ent.lastSeen = now
		return ent.lim
	}

	lim := rate.NewLimiter(s.rps, s.burst)
	s.entries[key] = &limiterEntry{lim: lim, lastSeen: now}
	return lim
}

// Len reports the number of tracked keys.
func (s *RateLimitStore) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.entries)
}

// Cleanup drops keys not seen since now-idleTTL.
func (s *RateLimitStore) Cleanup(now time.Time) {
	cutoff := now.Add(-s.idleTTL)

	s.mu.Lock()
	defer s.mu.Unlock()

	for k, ent := range s.entries {
		if ent.lastSeen.Before(cutoff) {
			delete(s.entries, k)
		}
	}
}

// StartJanitor periodically runs Cleanup until ctx is cancelled.
func (s *RateLimitStore) StartJanitor(ctx context.Context) {
	t := time.NewTicker(s.cleanupEvery)
	go func() {
		defer t.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case now := <-t.C:
				s.Cleanup(now)
			}
		}
	}()
}

// RateLimit rejects requests with 429 once the client's bucket is empty.
// Clients are keyed by IP address.
func RateLimit(store *RateLimitStore) fiber.Handler {
	return func(c *fiber.Ctx) error {
		lim := store.Get(c.IP())
		if !lim.Allow() {
			retryAfter := 1
			if store.rps > 0 {
				retryAfter = int(1/float64(store.rps)) + 1
			}
			c.Set(fiber.HeaderRetryAfter, strconv.Itoa(retryAfter))
			return errs.NewTooManyRequestsError()
		}
		return c.Next()
	}
}
