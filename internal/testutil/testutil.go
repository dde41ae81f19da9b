package testutil

import (
	"context"
	"strings"
	"sync"

	"github.com/shopspring/decimal"

	"stakefetcher/internal/fetcher"
	"stakefetcher/internal/stake"
)

// MockFetcher is a mock implementation of the Fetcher interface for testing
type MockFetcher struct {
	FetchFunc func(ctx context.Context, key stake.Key) fetcher.Outcome

	mu    sync.Mutex
	calls []stake.Key
}

// Fetch implements the Fetcher interface
func (m *MockFetcher) Fetch(ctx context.Context, key stake.Key) fetcher.Outcome {
	m.mu.Lock()
	m.calls = append(m.calls, key)
	m.mu.Unlock()

	if m.FetchFunc != nil {
		return m.FetchFunc(ctx, key)
	}
	return fetcher.Success(SampleSnapshot(key))
}

// Calls returns the keys Fetch was called with, in order.
func (m *MockFetcher) Calls() []stake.Key {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]stake.Key, len(m.calls))
	copy(out, m.calls)
	return out
}

// NewMockFetcher creates a mock fetcher that always returns a snapshot for
// the requested key, or err when it is not nil
func NewMockFetcher(err error) *MockFetcher {
	return &MockFetcher{
		FetchFunc: func(ctx context.Context, key stake.Key) fetcher.Outcome {
			if err != nil {
				return fetcher.Failure(key, err)
			}
			return fetcher.Success(SampleSnapshot(key))
		},
	}
}

// Key builds a complete stake key whose tail is suffix.
func Key(suffix string) stake.Key {
	prefix := "stake1"
	pad := stake.KeyLength - len(prefix) - len(suffix)
	if pad < 0 {
		pad = 0
	}
	return stake.Key(prefix + strings.Repeat("x", pad) + suffix)
}

// SampleSnapshot returns the snapshot of the reference scenario: epoch 300,
// 50 ADA controlled, 6 ADA of rewards earned in epoch 299 at pool ABC.
func SampleSnapshot(key stake.Key) stake.Snapshot {
	return stake.NewSnapshot(key, 300,
		stake.AccountInfo{
			PoolID:           "pool1xyz",
			ControlledAmount: decimal.NewFromInt(50),
			RewardsSum:       decimal.NewFromInt(6),
		},
		stake.PoolMetadata{Ticker: "ABC", Name: "Pool ABC"},
		[]stake.RewardEntry{{Epoch: 299, Amount: decimal.NewFromInt(6)}},
	)
}
