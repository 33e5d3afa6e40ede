package scheduler

import (
	"context"
	"errors"
	"log/slog"
	"strconv"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/raubrey2014/tempo-explorer/internal/ingest"
	"github.com/raubrey2014/tempo-explorer/internal/metrics"
	"github.com/raubrey2014/tempo-explorer/internal/retry"
)

// maxIngestAttempts bounds retries of one head ingestion before giving up
// until the next tick.
const maxIngestAttempts = 5

// headSource resolves the current chain head.
type headSource interface {
	GetBlockNumber(ctx context.Context) (int64, error)
}

// blockIngester runs one full ingestion pass for a block identifier.
type blockIngester interface {
	IngestBlock(ctx context.Context, identifier string) (*ingest.Summary, error)
}

// retentionSweeper deletes transactions past the retention window.
type retentionSweeper interface {
	CleanupExpired(ctx context.Context, ttlDays int) (*ingest.CleanupResult, error)
}

// Scheduler drives the two periodic jobs of the process: ingesting the chain
// head and sweeping expired transactions. Each tick of the ingest job
// resolves the head and ingests every block since the last one seen, so slow
// ticks catch up instead of skipping.
type Scheduler struct {
	head    headSource
	ingest  blockIngester
	sweeper retentionSweeper
	logger  *slog.Logger

	ingestInterval  time.Duration
	cleanupInterval time.Duration
	retentionDays   int

	started      bool // false until the first block lands
	lastIngested int64

	sleep func(ctx context.Context, d time.Duration) error
}

func New(head headSource, ingester blockIngester, sweeper retentionSweeper, logger *slog.Logger, ingestInterval, cleanupInterval time.Duration, retentionDays int) *Scheduler {
	return &Scheduler{
		head:            head,
		ingest:          ingester,
		sweeper:         sweeper,
		logger:          logger,
		ingestInterval:  ingestInterval,
		cleanupInterval: cleanupInterval,
		retentionDays:   retentionDays,
		sleep:           sleepCtx,
	}
}

// Run blocks until ctx is cancelled, driving both jobs on their intervals.
func (s *Scheduler) Run(ctx context.Context) error {
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error { return s.runIngestLoop(gctx) })
	g.Go(func() error { return s.runCleanupLoop(gctx) })

	err := g.Wait()
	if errors.Is(err, context.Canceled) {
		return nil
	}
	return err
}

func (s *Scheduler) runIngestLoop(ctx context.Context) error {
	ticker := time.NewTicker(s.ingestInterval)
	defer ticker.Stop()

	// First pass immediately rather than waiting out a full interval.
	s.tickIngest(ctx)
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
			s.tickIngest(ctx)
		}
	}
}

func (s *Scheduler) tickIngest(ctx context.Context) {
	metrics.SchedulerTicks.WithLabelValues("ingest").Inc()

	head, err := s.head.GetBlockNumber(ctx)
	if err != nil {
		s.logger.Warn("head lookup failed", "error", err)
		return
	}

	// Start at the head on the very first pass; a genesis head of zero is a
	// real block, so the started flag tracks this rather than lastIngested.
	from := s.lastIngested + 1
	if !s.started {
		from = head
	}
	for number := from; number <= head; number++ {
		if ctx.Err() != nil {
			return
		}
		if err := s.ingestWithRetry(ctx, number); err != nil {
			s.logger.Error("block ingestion abandoned", "block_number", number, "error", err)
			return
		}
		s.started = true
		s.lastIngested = number
	}
}

// ingestWithRetry retries transient failures with backoff, honoring any
// server-provided retry-after delay. Terminal failures abandon the block.
func (s *Scheduler) ingestWithRetry(ctx context.Context, blockNumber int64) error {
	identifier := strconv.FormatInt(blockNumber, 10)

	var lastErr error
	for attempt := 0; attempt < maxIngestAttempts; attempt++ {
		summary, err := s.ingest.IngestBlock(ctx, identifier)
		if err == nil {
			s.logger.Debug("scheduled ingestion complete",
				"block_number", summary.BlockNumber,
				"transactions", summary.TransactionsIngested)
			return nil
		}
		lastErr = err

		if delay, limited := retry.IsRateLimited(err); limited {
			metrics.SchedulerRetries.WithLabelValues("ingest", "rate_limited").Inc()
			if delay <= 0 {
				delay = retry.Backoff(attempt)
			}
			s.logger.Warn("rate limited, backing off", "block_number", blockNumber, "delay", delay)
			if err := s.sleep(ctx, delay); err != nil {
				return err
			}
			continue
		}

		decision := retry.Classify(err)
		if !decision.IsTransient() {
			return err
		}
		metrics.SchedulerRetries.WithLabelValues("ingest", decision.Reason).Inc()
		delay := retry.Backoff(attempt)
		s.logger.Warn("transient ingestion failure, retrying",
			"block_number", blockNumber,
			"attempt", attempt+1,
			"delay", delay,
			"reason", decision.Reason)
		if err := s.sleep(ctx, delay); err != nil {
			return err
		}
	}
	return lastErr
}

func (s *Scheduler) runCleanupLoop(ctx context.Context) error {
	if s.cleanupInterval <= 0 {
		<-ctx.Done()
		return ctx.Err()
	}

	ticker := time.NewTicker(s.cleanupInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
			metrics.SchedulerTicks.WithLabelValues("cleanup").Inc()
			result, err := s.sweeper.CleanupExpired(ctx, s.retentionDays)
			if err != nil {
				s.logger.Error("retention sweep failed", "error", err)
				continue
			}
			if !result.Disabled && result.DeletedCount > 0 {
				s.logger.Info("retention sweep complete", "deleted", result.DeletedCount)
			}
		}
	}
}

func sleepCtx(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
