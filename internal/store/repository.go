package store

import (
	"context"
	"database/sql"

	"github.com/raubrey2014/tempo-explorer/internal/domain/model"
)

// TxBeginner abstracts the ability to begin a database transaction.
type TxBeginner interface {
	BeginTx(ctx context.Context, opts *sql.TxOptions) (*sql.Tx, error)
}

// TransactionRepository provides idempotent persistence of ingested
// transactions, keyed by hash.
type TransactionRepository interface {
	UpsertTx(ctx context.Context, tx *sql.Tx, t *model.Transaction) error
	// UpsertBatch applies every record in one database transaction; any
	// failure rolls the whole batch back.
	UpsertBatch(ctx context.Context, records []*model.Transaction) error
	FindByHash(ctx context.Context, hash string) (*model.Transaction, error)
	// DeleteExpiredBatch deletes up to limit rows whose block_time is set
	// and older than cutoff (unix seconds), returning the number deleted.
	DeleteExpiredBatch(ctx context.Context, cutoff int64, limit int) (int64, error)
}

// StablecoinRepository provides access to detected stablecoin contracts
// and their cumulative counters.
type StablecoinRepository interface {
	// InsertIfAbsent records first-seen metadata exactly once. Returns
	// false without error when the address is already known, making the
	// detection idempotence contract explicit in the interface.
	InsertIfAbsent(ctx context.Context, sc *model.Stablecoin) (bool, error)
	Exists(ctx context.Context, address string) (bool, error)
	FindByAddress(ctx context.Context, address string) (*model.Stablecoin, error)
	ListAddresses(ctx context.Context) ([]string, error)
	// ApplyStatsTx merges one batch's deltas into the cumulative counters
	// as in-database atomic additions and advances last_activity_block.
	ApplyStatsTx(ctx context.Context, tx *sql.Tx, address string, stats *model.BlockStablecoinStats, blockNumber int64) error
}
