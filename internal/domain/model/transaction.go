package model

import (
	"encoding/json"
	"math/big"
	"time"

	"github.com/google/uuid"
)

type TxStatus string

const (
	TxStatusSuccess TxStatus = "success"
	TxStatusFailed  TxStatus = "failed"
)

// Transaction is one ingested on-chain transaction, keyed by unique hash.
// Re-ingesting the same hash overwrites the row (upsert semantics).
type Transaction struct {
	ID              uuid.UUID       `db:"id"`
	Hash            string          `db:"hash"`
	BlockNumber     int64           `db:"block_number"`
	BlockHash       *string         `db:"block_hash"`
	TxIndex         *int64          `db:"tx_index"`
	From            string          `db:"from_address"`
	To              *string         `db:"to_address"` // nil signals contract creation
	ContractAddress *string         `db:"contract_address"`
	Value           *big.Int        `db:"value"`
	Input           string          `db:"input"`
	Nonce           int64           `db:"nonce"`
	Gas             int64           `db:"gas"`
	GasPrice        *big.Int        `db:"gas_price"`
	GasUsed         *int64          `db:"gas_used"`
	Status          *TxStatus       `db:"status"` // nil = unknown
	BlockTime       *int64          `db:"block_time"`
	RawTx           json.RawMessage `db:"raw_tx"`
	RawReceipt      json.RawMessage `db:"raw_receipt"`
	CreatedAt       time.Time       `db:"created_at"`
	UpdatedAt       time.Time       `db:"updated_at"`
}

// BigIntString serializes v for storage as a decimal string. 256-bit
// quantities round-trip exactly; nil serializes as "0".
func BigIntString(v *big.Int) string {
	if v == nil {
		return "0"
	}
	return v.String()
}

// ParseBigInt parses a stored decimal string back into a big integer.
// Stored values are produced by BigIntString; anything malformed is
// treated as absent and yields zero.
func ParseBigInt(s string) *big.Int {
	v, ok := new(big.Int).SetString(s, 10)
	if !ok {
		return new(big.Int)
	}
	return v
}
