package ingest

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/raubrey2014/tempo-explorer/internal/metrics"
	"github.com/raubrey2014/tempo-explorer/internal/store"
)

const defaultSweepBatchSize = 1000

// CleanupResult distinguishes a disabled retention policy from a sweep that
// found nothing to delete.
type CleanupResult struct {
	DeletedCount int64
	Disabled     bool
}

// Sweeper deletes transactions whose block time has aged past the retention
// window. Deletion runs in batches so a large backlog never holds long row
// locks. Rows without a block time are retained indefinitely.
type Sweeper struct {
	repo      store.TransactionRepository
	logger    *slog.Logger
	batchSize int
	now       func() time.Time
}

func NewSweeper(repo store.TransactionRepository, logger *slog.Logger) *Sweeper {
	return &Sweeper{
		repo:      repo,
		logger:    logger,
		batchSize: defaultSweepBatchSize,
		now:       time.Now,
	}
}

// CleanupExpired deletes all transactions older than ttlDays. A ttl of zero
// or below disables retention and deletes nothing.
func (s *Sweeper) CleanupExpired(ctx context.Context, ttlDays int) (*CleanupResult, error) {
	if ttlDays <= 0 {
		s.logger.Debug("retention disabled, skipping sweep")
		metrics.SweeperRuns.WithLabelValues("disabled").Inc()
		return &CleanupResult{Disabled: true}, nil
	}

	cutoff := s.now().Add(-time.Duration(ttlDays) * 24 * time.Hour).Unix()

	var total int64
	for {
		deleted, err := s.repo.DeleteExpiredBatch(ctx, cutoff, s.batchSize)
		if err != nil {
			metrics.SweeperRuns.WithLabelValues("error").Inc()
			return nil, fmt.Errorf("delete expired batch: %w", err)
		}
		total += deleted
		if deleted < int64(s.batchSize) {
			break
		}
	}

	metrics.SweeperRowsDeleted.Add(float64(total))
	metrics.SweeperRuns.WithLabelValues("ok").Inc()
	if total > 0 {
		s.logger.Info("expired transactions deleted", "count", total, "ttl_days", ttlDays)
	}
	return &CleanupResult{DeletedCount: total}, nil
}
