package postgres

import (
	"context"
	"database/sql"
	"fmt"
	"strings"

	"github.com/raubrey2014/tempo-explorer/internal/domain/model"
	"github.com/raubrey2014/tempo-explorer/internal/store"
)

type StablecoinRepo struct {
	db *DB
}

var _ store.StablecoinRepository = (*StablecoinRepo)(nil)

func NewStablecoinRepo(db *DB) *StablecoinRepo {
	return &StablecoinRepo{db: db}
}

// InsertIfAbsent records a newly detected stablecoin exactly once.
// ON CONFLICT DO NOTHING makes concurrent detection of the same address a
// no-op: returns false when another pass already inserted the row.
// first_seen_block and first_seen_block_time are written only here and
// never touched by any update path.
func (r *StablecoinRepo) InsertIfAbsent(ctx context.Context, sc *model.Stablecoin) (bool, error) {
	ctx, cancel := withTimeout(ctx, DefaultQueryTimeout)
	defer cancel()

	result, err := r.db.ExecContext(ctx, `
		INSERT INTO stablecoins (address, symbol, decimals, total_supply, first_seen_block, first_seen_block_time)
		VALUES ($1, $2, $3, $4::numeric, $5, $6)
		ON CONFLICT (address) DO NOTHING
	`, strings.ToLower(sc.Address), sc.Symbol, sc.Decimals,
		model.BigIntString(sc.TotalSupply), sc.FirstSeenBlock, sc.FirstSeenBlockTime,
	)
	if err != nil {
		return false, fmt.Errorf("insert stablecoin %s: %w", sc.Address, err)
	}

	inserted, err := result.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("insert stablecoin rows affected: %w", err)
	}
	return inserted > 0, nil
}

func (r *StablecoinRepo) Exists(ctx context.Context, address string) (bool, error) {
	ctx, cancel := withTimeout(ctx, DefaultQueryTimeout)
	defer cancel()

	var exists bool
	err := r.db.QueryRowContext(ctx,
		"SELECT EXISTS(SELECT 1 FROM stablecoins WHERE address = $1)",
		strings.ToLower(address),
	).Scan(&exists)
	if err != nil {
		return false, fmt.Errorf("check stablecoin exists: %w", err)
	}
	return exists, nil
}

func (r *StablecoinRepo) FindByAddress(ctx context.Context, address string) (*model.Stablecoin, error) {
	ctx, cancel := withTimeout(ctx, DefaultQueryTimeout)
	defer cancel()

	var (
		sc             model.Stablecoin
		totalSupply    string
		transferVolume string
		feeVolume      string
	)
	err := r.db.QueryRowContext(ctx, `
		SELECT id, address, symbol, decimals, total_supply::text,
		       first_seen_block, first_seen_block_time,
		       transfer_count, transfer_volume::text,
		       fee_payment_count, fee_volume::text,
		       last_activity_block, created_at, updated_at
		FROM stablecoins
		WHERE address = $1
	`, strings.ToLower(address)).Scan(
		&sc.ID, &sc.Address, &sc.Symbol, &sc.Decimals, &totalSupply,
		&sc.FirstSeenBlock, &sc.FirstSeenBlockTime,
		&sc.TransferCount, &transferVolume,
		&sc.FeePaymentCount, &feeVolume,
		&sc.LastActivityBlock, &sc.CreatedAt, &sc.UpdatedAt,
	)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("find stablecoin by address: %w", err)
	}

	sc.TotalSupply = model.ParseBigInt(totalSupply)
	sc.TransferVolume = model.ParseBigInt(transferVolume)
	sc.FeeVolume = model.ParseBigInt(feeVolume)
	return &sc, nil
}

func (r *StablecoinRepo) ListAddresses(ctx context.Context) ([]string, error) {
	ctx, cancel := withTimeout(ctx, DefaultQueryTimeout)
	defer cancel()

	rows, err := r.db.QueryContext(ctx, "SELECT address FROM stablecoins ORDER BY address")
	if err != nil {
		return nil, fmt.Errorf("list stablecoin addresses: %w", err)
	}
	defer rows.Close()

	var addresses []string
	for rows.Next() {
		var addr string
		if err := rows.Scan(&addr); err != nil {
			return nil, fmt.Errorf("scan stablecoin address: %w", err)
		}
		addresses = append(addresses, addr)
	}
	return addresses, rows.Err()
}

// ApplyStatsTx merges one batch's deltas into the cumulative counters.
// Counts and volumes are both applied as in-database additions so
// overlapping aggregation passes cannot lose increments to a
// read-modify-write race; last_activity_block only moves forward.
func (r *StablecoinRepo) ApplyStatsTx(ctx context.Context, tx *sql.Tx, address string, stats *model.BlockStablecoinStats, blockNumber int64) error {
	_, err := tx.ExecContext(ctx, `
		UPDATE stablecoins SET
			transfer_count = transfer_count + $2,
			transfer_volume = transfer_volume + $3::numeric,
			fee_payment_count = fee_payment_count + $4,
			fee_volume = fee_volume + $5::numeric,
			last_activity_block = GREATEST(COALESCE(last_activity_block, 0), $6),
			updated_at = now()
		WHERE address = $1
	`, strings.ToLower(address),
		stats.TransferCount, model.BigIntString(stats.TransferVolume),
		stats.FeePaymentCount, model.BigIntString(stats.FeeVolume),
		blockNumber,
	)
	if err != nil {
		return fmt.Errorf("apply stablecoin stats %s: %w", address, err)
	}
	return nil
}
