package ratelimit

import (
	"context"
	"sync"

	"golang.org/x/time/rate"
)

// API represents the external APIs we interact with
type API string

const (
	// APIBlockfrost represents the Blockfrost Cardano API
	APIBlockfrost API = "blockfrost"
)

// Blockfrost allows 10 requests per second with a burst of 500; we stay
// well below the burst.
const (
	DefaultRPS   = 10
	DefaultBurst = 10
)

// Limiter manages rate limits for different APIs
type Limiter struct {
	limiters map[API]*rate.Limiter
	mu       sync.RWMutex
}

// New returns a limiter with no configured APIs. Requests for an API
// without a limit are never delayed.
func New() *Limiter {
	return &Limiter{
		limiters: make(map[API]*rate.Limiter),
	}
}

// Set configures the limit for api. A non-positive rps removes the limit.
func (l *Limiter) Set(api API, rps float64, burst int) {
	if burst < 1 {
		burst = 1
	}

	l.mu.Lock()
	defer l.mu.Unlock()

	if rps <= 0 {
		l.limiters[api] = rate.NewLimiter(rate.Inf, burst)
		return
	}
	l.limiters[api] = rate.NewLimiter(rate.Limit(rps), burst)
}

// Wait blocks until the rate limiter permits an event for the given API
// It returns an error if the context is canceled before the event can proceed
func (l *Limiter) Wait(ctx context.Context, api API) error {
	l.mu.RLock()
	limiter, exists := l.limiters[api]
	l.mu.RUnlock()

	if !exists {
		return nil
	}

	return limiter.Wait(ctx)
}

// Allow reports whether an event for the given API may happen now
func (l *Limiter) Allow(api API) bool {
	l.mu.RLock()
	limiter, exists := l.limiters[api]
	l.mu.RUnlock()

	if !exists {
		return true
	}

	return limiter.Allow()
}
