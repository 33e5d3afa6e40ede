package postgres

import (
	"context"
	"database/sql"
	"fmt"
	"strings"

	"github.com/raubrey2014/tempo-explorer/internal/domain/model"
	"github.com/raubrey2014/tempo-explorer/internal/store"
)

type TransactionRepo struct {
	db *DB
}

var _ store.TransactionRepository = (*TransactionRepo)(nil)

func NewTransactionRepo(db *DB) *TransactionRepo {
	return &TransactionRepo{db: db}
}

// UpsertTx inserts or fully refreshes one transaction row, keyed on hash.
// Every mutable column takes the incoming value so re-ingestion of a block
// converges on the latest observation.
func (r *TransactionRepo) UpsertTx(ctx context.Context, tx *sql.Tx, t *model.Transaction) error {
	_, err := tx.ExecContext(ctx, `
		INSERT INTO transactions (
			hash, block_number, block_hash, tx_index, from_address, to_address,
			contract_address, value, input, nonce, gas, gas_price, gas_used,
			status, block_time, raw_tx, raw_receipt
		)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8::numeric, $9, $10, $11, $12::numeric, $13, $14, $15, $16, $17)
		ON CONFLICT (hash) DO UPDATE SET
			block_number = EXCLUDED.block_number,
			block_hash = EXCLUDED.block_hash,
			tx_index = EXCLUDED.tx_index,
			from_address = EXCLUDED.from_address,
			to_address = EXCLUDED.to_address,
			contract_address = EXCLUDED.contract_address,
			value = EXCLUDED.value,
			input = EXCLUDED.input,
			nonce = EXCLUDED.nonce,
			gas = EXCLUDED.gas,
			gas_price = EXCLUDED.gas_price,
			gas_used = EXCLUDED.gas_used,
			status = EXCLUDED.status,
			block_time = EXCLUDED.block_time,
			raw_tx = EXCLUDED.raw_tx,
			raw_receipt = EXCLUDED.raw_receipt,
			updated_at = now()
	`,
		strings.ToLower(t.Hash), t.BlockNumber, t.BlockHash, t.TxIndex, t.From, t.To,
		t.ContractAddress, model.BigIntString(t.Value), t.Input, t.Nonce, t.Gas,
		model.BigIntString(t.GasPrice), t.GasUsed, statusValue(t.Status), t.BlockTime,
		rawOrNull(t.RawTx), rawOrNull(t.RawReceipt),
	)
	if err != nil {
		return fmt.Errorf("upsert transaction %s: %w", t.Hash, err)
	}
	return nil
}

// UpsertBatch applies all records in one database transaction. Either every
// record lands or none does; a failure mid-batch observes no partial commit.
func (r *TransactionRepo) UpsertBatch(ctx context.Context, records []*model.Transaction) error {
	if len(records) == 0 {
		return nil
	}

	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin upsert batch: %w", err)
	}
	defer tx.Rollback()

	for _, record := range records {
		if err := r.UpsertTx(ctx, tx, record); err != nil {
			return err
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit upsert batch: %w", err)
	}
	return nil
}

func (r *TransactionRepo) FindByHash(ctx context.Context, hash string) (*model.Transaction, error) {
	ctx, cancel := withTimeout(ctx, DefaultQueryTimeout)
	defer cancel()

	var (
		t        model.Transaction
		value    string
		gasPrice string
		status   sql.NullString
	)
	err := r.db.QueryRowContext(ctx, `
		SELECT id, hash, block_number, block_hash, tx_index, from_address, to_address,
		       contract_address, value::text, input, nonce, gas, gas_price::text, gas_used,
		       status, block_time, raw_tx, raw_receipt, created_at, updated_at
		FROM transactions
		WHERE hash = $1
	`, strings.ToLower(hash)).Scan(
		&t.ID, &t.Hash, &t.BlockNumber, &t.BlockHash, &t.TxIndex, &t.From, &t.To,
		&t.ContractAddress, &value, &t.Input, &t.Nonce, &t.Gas, &gasPrice, &t.GasUsed,
		&status, &t.BlockTime, &t.RawTx, &t.RawReceipt, &t.CreatedAt, &t.UpdatedAt,
	)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("find transaction by hash: %w", err)
	}

	t.Value = model.ParseBigInt(value)
	t.GasPrice = model.ParseBigInt(gasPrice)
	if status.Valid {
		s := model.TxStatus(status.String)
		t.Status = &s
	}
	return &t, nil
}

// DeleteExpiredBatch deletes up to limit rows older than cutoff. Rows with a
// null block_time never match, regardless of TTL.
func (r *TransactionRepo) DeleteExpiredBatch(ctx context.Context, cutoff int64, limit int) (int64, error) {
	ctx, cancel := withTimeout(ctx, DefaultQueryTimeout)
	defer cancel()

	result, err := r.db.ExecContext(ctx, `
		DELETE FROM transactions
		WHERE id IN (
			SELECT id FROM transactions
			WHERE block_time IS NOT NULL AND block_time < $1
			LIMIT $2
		)
	`, cutoff, limit)
	if err != nil {
		return 0, fmt.Errorf("delete expired transactions: %w", err)
	}

	deleted, err := result.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("expired transactions rows affected: %w", err)
	}
	return deleted, nil
}

func statusValue(status *model.TxStatus) interface{} {
	if status == nil {
		return nil
	}
	return string(*status)
}

func rawOrNull(raw []byte) interface{} {
	if len(raw) == 0 {
		return nil
	}
	return raw
}
