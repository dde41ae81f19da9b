package blockfrost

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/sirupsen/logrus"

	"stakefetcher/internal/fetcher"
	"stakefetcher/internal/stake"
)

const (
	pathLatestEpoch    = "/epochs/latest"
	pathAccount        = "/accounts/{stake_address}"
	pathAccountRewards = "/accounts/{stake_address}/rewards"
	pathPoolMetadata   = "/pools/{pool_id}/metadata"
)

var log = logrus.WithField("module", "blockfrost")

// Aggregator runs the four dependent calls of a fetch cycle and assembles a
// stake.Snapshot. It holds no mutable state.
type Aggregator struct {
	client Getter
}

// NewAggregator creates an Aggregator on top of client.
func NewAggregator(client Getter) *Aggregator {
	return &Aggregator{client: client}
}

// Fetch implements fetcher.Fetcher. The first failing step aborts the
// cycle; no partial snapshot is ever returned.
func (a *Aggregator) Fetch(ctx context.Context, key stake.Key) fetcher.Outcome {
	snap, err := a.fetch(ctx, key)
	if err != nil {
		return fetcher.Failure(key, err)
	}
	return fetcher.Success(snap)
}

func (a *Aggregator) fetch(ctx context.Context, key stake.Key) (stake.Snapshot, error) {
	epoch, err := a.latestEpoch(ctx)
	if err != nil {
		return stake.Snapshot{}, fmt.Errorf("latest epoch: %w", err)
	}

	account, err := a.account(ctx, key)
	if err != nil {
		return stake.Snapshot{}, fmt.Errorf("account %s: %w", key, err)
	}

	// The pool lookup depends on the account response.
	pool, err := a.poolMetadata(ctx, account.PoolID)
	if err != nil {
		return stake.Snapshot{}, fmt.Errorf("pool %s metadata: %w", account.PoolID, err)
	}

	rewards, err := a.rewards(ctx, key)
	if err != nil {
		return stake.Snapshot{}, fmt.Errorf("account %s rewards: %w", key, err)
	}

	return stake.NewSnapshot(key, epoch, account, pool, rewards), nil
}

func (a *Aggregator) latestEpoch(ctx context.Context) (uint64, error) {
	var result EpochResponse
	if err := a.client.Get(ctx, pathLatestEpoch, nil, &result); err != nil {
		return 0, err
	}

	if result.Epoch == nil {
		return 0, fetcher.NewMalformedError("epoch not found in response")
	}
	if *result.Epoch < 0 {
		return 0, fetcher.NewMalformedError(fmt.Sprintf("negative epoch %d", *result.Epoch))
	}

	return uint64(*result.Epoch), nil
}

func (a *Aggregator) account(ctx context.Context, key stake.Key) (stake.AccountInfo, error) {
	var result AccountResponse
	params := map[string]string{"stake_address": key.String()}
	if err := a.client.Get(ctx, pathAccount, params, &result); err != nil {
		return stake.AccountInfo{}, err
	}

	if result.PoolID == nil || *result.PoolID == "" {
		return stake.AccountInfo{}, fetcher.NewMalformedError("pool_id not found in response")
	}
	if result.ControlledAmount == nil {
		return stake.AccountInfo{}, fetcher.NewMalformedError("controlled_amount not found in response")
	}
	if result.RewardsSum == nil {
		return stake.AccountInfo{}, fetcher.NewMalformedError("rewards_sum not found in response")
	}

	controlled, err := stake.ParseLovelace(string(*result.ControlledAmount))
	if err != nil {
		return stake.AccountInfo{}, fetcher.NewMalformedError(err.Error())
	}
	rewardsSum, err := stake.ParseLovelace(string(*result.RewardsSum))
	if err != nil {
		return stake.AccountInfo{}, fetcher.NewMalformedError(err.Error())
	}

	return stake.AccountInfo{
		PoolID:           *result.PoolID,
		ControlledAmount: controlled,
		RewardsSum:       rewardsSum,
	}, nil
}

func (a *Aggregator) poolMetadata(ctx context.Context, poolID string) (stake.PoolMetadata, error) {
	var result PoolMetadataResponse
	params := map[string]string{"pool_id": poolID}
	if err := a.client.Get(ctx, pathPoolMetadata, params, &result); err != nil {
		return stake.PoolMetadata{}, err
	}

	if result.Ticker == nil {
		return stake.PoolMetadata{}, fetcher.NewMalformedError("ticker not found in response")
	}
	if result.Name == nil {
		return stake.PoolMetadata{}, fetcher.NewMalformedError("name not found in response")
	}

	return stake.PoolMetadata{
		Ticker: *result.Ticker,
		Name:   *result.Name,
	}, nil
}

// rewards fetches the reward history. Elements that are not well-formed
// reward records are skipped.
func (a *Aggregator) rewards(ctx context.Context, key stake.Key) ([]stake.RewardEntry, error) {
	var raw []json.RawMessage
	params := map[string]string{"stake_address": key.String()}
	if err := a.client.Get(ctx, pathAccountRewards, params, &raw); err != nil {
		return nil, err
	}

	return ParseRewards(raw), nil
}

// ParseRewards converts raw reward elements, dropping the malformed ones.
func ParseRewards(raw []json.RawMessage) []stake.RewardEntry {
	entries := make([]stake.RewardEntry, 0, len(raw))
	for i, elem := range raw {
		var rec RewardRecord
		if err := json.Unmarshal(elem, &rec); err != nil {
			log.WithField("index", i).Debugf("skipping reward element: %v", err)
			continue
		}
		if rec.Epoch == nil || rec.Amount == nil || *rec.Epoch < 0 {
			log.WithField("index", i).Debug("skipping incomplete reward element")
			continue
		}

		amount, err := stake.ParseLovelace(string(*rec.Amount))
		if err != nil {
			log.WithField("index", i).Debugf("skipping reward element: %v", err)
			continue
		}

		entries = append(entries, stake.RewardEntry{
			Epoch:  uint64(*rec.Epoch),
			Amount: amount,
		})
	}
	return entries
}
