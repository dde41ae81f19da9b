// Package stake holds the Cardano staking data assembled by one fetch cycle.
package stake

import (
	"fmt"
	"sort"
	"time"
	"unicode/utf8"

	"github.com/shopspring/decimal"
)

const (
	// KeyLength is the length of a complete bech32 stake address (stake1...).
	KeyLength = 59

	// lovelaceExponent converts lovelace (micro-ADA) into ADA.
	lovelaceExponent = -6

	// ADASymbol prefixes rendered amounts.
	ADASymbol = "₳"
)

var hundred = decimal.NewFromInt(100)

// Key is a stake address as entered by the user.
type Key string

// Complete reports whether the key has the length of a full stake address.
// Incomplete keys never trigger a fetch.
func (k Key) Complete() bool {
	return utf8.RuneCountInString(string(k)) == KeyLength
}

// String implements fmt.Stringer.
func (k Key) String() string {
	return string(k)
}

// AccountInfo is the account summary for a stake key, amounts in ADA.
type AccountInfo struct {
	PoolID           string
	ControlledAmount decimal.Decimal
	RewardsSum       decimal.Decimal
}

// PoolMetadata describes the pool the account delegates to.
type PoolMetadata struct {
	Ticker string
	Name   string
}

// RewardEntry is the reward earned during one epoch, in ADA.
type RewardEntry struct {
	Epoch  uint64
	Amount decimal.Decimal
}

// Snapshot is the result of one complete fetch cycle. All of its fields come
// from the same cycle; it is never modified after NewSnapshot returns.
type Snapshot struct {
	Epoch     uint64
	Account   AccountInfo
	Pool      PoolMetadata
	Rewards   []RewardEntry
	Key       Key
	FetchedAt time.Time
}

// NewSnapshot assembles a snapshot. Rewards are copied and ordered newest
// epoch first.
func NewSnapshot(key Key, epoch uint64, account AccountInfo, pool PoolMetadata, rewards []RewardEntry) Snapshot {
	sorted := make([]RewardEntry, len(rewards))
	copy(sorted, rewards)
	sort.SliceStable(sorted, func(i, j int) bool {
		return sorted[i].Epoch > sorted[j].Epoch
	})

	return Snapshot{
		Epoch:     epoch,
		Account:   account,
		Pool:      pool,
		Rewards:   sorted,
		Key:       key,
		FetchedAt: time.Now(),
	}
}

// RewardsPercent returns the accumulated rewards as a percentage of the
// controlled amount, or zero when nothing is controlled.
func (s Snapshot) RewardsPercent() decimal.Decimal {
	if s.Account.ControlledAmount.IsZero() {
		return decimal.Zero
	}
	return s.Account.RewardsSum.Div(s.Account.ControlledAmount).Mul(hundred)
}

// ParseLovelace converts a lovelace integer string into ADA. The conversion is
// an exact decimal shift; negative or fractional inputs are rejected.
func ParseLovelace(s string) (decimal.Decimal, error) {
	d, err := decimal.NewFromString(s)
	if err != nil {
		return decimal.Zero, fmt.Errorf("invalid lovelace amount %q: %w", s, err)
	}
	if d.IsNegative() {
		return decimal.Zero, fmt.Errorf("negative lovelace amount %q", s)
	}
	if !d.Equal(d.Truncate(0)) {
		return decimal.Zero, fmt.Errorf("fractional lovelace amount %q", s)
	}
	return d.Shift(lovelaceExponent), nil
}

// FormatADA renders an ADA amount with its symbol.
func FormatADA(d decimal.Decimal) string {
	return ADASymbol + d.String()
}
