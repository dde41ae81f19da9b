package blockfrost

import (
	"encoding/json"
)

// Response payloads of the Blockfrost endpoints we consume. Required fields
// are pointers so that a missing or null field can be told apart from a zero
// value.

// EpochResponse represents GET /epochs/latest
type EpochResponse struct {
	Epoch *int64 `json:"epoch"`
}

// AccountResponse represents GET /accounts/{stake_address}
type AccountResponse struct {
	StakeAddress       string    `json:"stake_address"`
	Active             bool      `json:"active"`
	PoolID             *string   `json:"pool_id"`
	ControlledAmount   *Quantity `json:"controlled_amount"`
	RewardsSum         *Quantity `json:"rewards_sum"`
	WithdrawableAmount *Quantity `json:"withdrawable_amount"`
}

// PoolMetadataResponse represents GET /pools/{pool_id}/metadata
type PoolMetadataResponse struct {
	PoolID      string  `json:"pool_id"`
	Ticker      *string `json:"ticker"`
	Name        *string `json:"name"`
	Description *string `json:"description"`
	Homepage    *string `json:"homepage"`
}

// RewardRecord is one element of GET /accounts/{stake_address}/rewards
type RewardRecord struct {
	Epoch  *int64    `json:"epoch"`
	Amount *Quantity `json:"amount"`
	PoolID string    `json:"pool_id"`
}

// Quantity is a lovelace amount. Blockfrost encodes quantities as JSON
// strings; plain numbers are accepted too.
type Quantity string

// UnmarshalJSON implements json.Unmarshaler.
func (q *Quantity) UnmarshalJSON(b []byte) error {
	if len(b) > 0 && b[0] == '"' {
		var s string
		if err := json.Unmarshal(b, &s); err != nil {
			return err
		}
		*q = Quantity(s)
		return nil
	}

	var n json.Number
	if err := json.Unmarshal(b, &n); err != nil {
		return err
	}
	*q = Quantity(n.String())
	return nil
}
