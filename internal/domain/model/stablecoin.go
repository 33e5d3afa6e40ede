package model

import (
	"math/big"
	"time"

	"github.com/google/uuid"
)

// ZeroAddress is never a token contract and is excluded from detection.
const ZeroAddress = "0x0000000000000000000000000000000000000000"

// Stablecoin is one detected token contract, keyed by unique lowercase
// address. FirstSeenBlock and FirstSeenBlockTime are set once at detection
// and never overwritten; all counters are monotonically non-decreasing.
type Stablecoin struct {
	ID                 uuid.UUID `db:"id"`
	Address            string    `db:"address"`
	Symbol             string    `db:"symbol"`
	Decimals           int       `db:"decimals"`
	TotalSupply        *big.Int  `db:"total_supply"` // snapshot at detection time
	FirstSeenBlock     *int64    `db:"first_seen_block"`
	FirstSeenBlockTime *int64    `db:"first_seen_block_time"`
	TransferCount      int64     `db:"transfer_count"`
	TransferVolume     *big.Int  `db:"transfer_volume"`
	FeePaymentCount    int64     `db:"fee_payment_count"`
	FeeVolume          *big.Int  `db:"fee_volume"`
	LastActivityBlock  *int64    `db:"last_activity_block"`
	CreatedAt          time.Time `db:"created_at"`
	UpdatedAt          time.Time `db:"updated_at"`
}

// BlockStablecoinStats accumulates per-stablecoin activity for a single
// batch of receipts. It is never persisted directly; the deltas are merged
// into the stablecoins row by in-database addition.
type BlockStablecoinStats struct {
	TransferCount   int64
	TransferVolume  *big.Int
	FeePaymentCount int64
	FeeVolume       *big.Int
}

func NewBlockStablecoinStats() *BlockStablecoinStats {
	return &BlockStablecoinStats{
		TransferVolume: new(big.Int),
		FeeVolume:      new(big.Int),
	}
}

// HasActivity reports whether the batch observed any transfer or fee
// payment for the stablecoin. Zero-activity entries are dropped from
// aggregation results.
func (s *BlockStablecoinStats) HasActivity() bool {
	return s.TransferCount > 0 || s.FeePaymentCount > 0
}
