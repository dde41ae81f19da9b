package fetcher

import (
	"context"

	"stakefetcher/internal/stake"
)

// Fetcher is the core interface for assembling the staking data of a key.
// Implementations must not touch shared state: the returned Outcome is the
// only effect of a call.
type Fetcher interface {
	// Fetch runs one complete fetch cycle for key. Every failure is reported
	// inside the Outcome; Fetch never panics on upstream errors.
	Fetch(ctx context.Context, key stake.Key) Outcome
}

// FetcherFunc adapts a function to the Fetcher interface.
type FetcherFunc func(ctx context.Context, key stake.Key) Outcome

// Fetch implements Fetcher.
func (f FetcherFunc) Fetch(ctx context.Context, key stake.Key) Outcome {
	return f(ctx, key)
}
