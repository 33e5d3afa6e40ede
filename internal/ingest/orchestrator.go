package ingest

import (
	"context"
	"fmt"
	"log/slog"
	"strconv"
	"strings"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
	"golang.org/x/sync/errgroup"

	"github.com/raubrey2014/tempo-explorer/internal/chain/rpc"
	"github.com/raubrey2014/tempo-explorer/internal/domain/model"
	"github.com/raubrey2014/tempo-explorer/internal/metrics"
	"github.com/raubrey2014/tempo-explorer/internal/store"
	"github.com/raubrey2014/tempo-explorer/internal/tracing"
)

// maxConcurrentTxs bounds the per-block fan-out of transaction and receipt
// fetches so large blocks do not flood the node.
const maxConcurrentTxs = 10

// Summary reports what one ingestion pass persisted.
type Summary struct {
	BlockNumber          int64
	BlockHash            string
	TransactionsIngested int
	Timestamp            *int64
}

// Orchestrator runs the full per-block pipeline: fetch, normalize, persist,
// detect, aggregate. Persistence failures abort the pass; detection and
// aggregation failures are logged and absorbed so transaction data always
// lands even when the enrichment stages are degraded.
type Orchestrator struct {
	client     rpc.ChainClient
	txRepo     store.TransactionRepository
	detector   *Detector
	aggregator *Aggregator
	logger     *slog.Logger
	tracer     trace.Tracer
}

func NewOrchestrator(client rpc.ChainClient, txRepo store.TransactionRepository, detector *Detector, aggregator *Aggregator, logger *slog.Logger) *Orchestrator {
	return &Orchestrator{
		client:     client,
		txRepo:     txRepo,
		detector:   detector,
		aggregator: aggregator,
		logger:     logger,
		tracer:     tracing.Tracer("ingest"),
	}
}

// IngestBlock ingests the block named by identifier, which is either a
// decimal block number or a 0x-prefixed block hash. Re-ingesting the same
// block is idempotent.
func (o *Orchestrator) IngestBlock(ctx context.Context, identifier string) (*Summary, error) {
	ctx, span := o.tracer.Start(ctx, "IngestBlock",
		trace.WithAttributes(attribute.String("block.identifier", identifier)))
	defer span.End()

	started := time.Now()

	block, err := o.fetchBlock(ctx, identifier)
	if err != nil {
		metrics.IngestErrors.WithLabelValues("fetch_block").Inc()
		return nil, err
	}

	blockNumber, err := rpc.ParseHexInt64(block.Number)
	if err != nil {
		metrics.IngestErrors.WithLabelValues("fetch_block").Inc()
		return nil, fmt.Errorf("parse block number %q: %w", block.Number, err)
	}
	var blockTime *int64
	if ts, err := rpc.ParseHexInt64(block.Timestamp); err == nil && block.Timestamp != "" {
		blockTime = &ts
	}

	summary := &Summary{
		BlockNumber: blockNumber,
		BlockHash:   strings.ToLower(block.Hash),
		Timestamp:   blockTime,
	}

	hashes := block.Transactions.TxHashes()
	if len(hashes) == 0 {
		o.logger.Info("block has no transactions", "block_number", blockNumber)
		metrics.BlocksIngested.Inc()
		return summary, nil
	}

	txs, receipts, err := o.fetchTransactions(ctx, hashes)
	if err != nil {
		metrics.IngestErrors.WithLabelValues("fetch_transactions").Inc()
		return nil, err
	}

	records := make([]*model.Transaction, 0, len(txs))
	for i, tx := range txs {
		records = append(records, NormalizeTransaction(tx, receipts[i], blockTime))
	}

	if err := o.txRepo.UpsertBatch(ctx, records); err != nil {
		metrics.IngestErrors.WithLabelValues("persist").Inc()
		return nil, fmt.Errorf("persist block %d transactions: %w", blockNumber, err)
	}
	summary.TransactionsIngested = len(records)
	metrics.TransactionsIngested.Add(float64(len(records)))

	if newCoins := o.detector.CheckAndIngestAddresses(ctx, candidateAddresses(records), blockNumber, blockTime); newCoins > 0 {
		o.logger.Info("new stablecoins in block", "block_number", blockNumber, "count", newCoins)
	}

	if stats, err := o.aggregator.CalculateStablecoinStats(ctx, receipts); err != nil {
		metrics.IngestErrors.WithLabelValues("stats").Inc()
		o.logger.Error("stablecoin stats calculation failed", "block_number", blockNumber, "error", err)
	} else if err := o.aggregator.UpdateStablecoinStats(ctx, stats, blockNumber); err != nil {
		metrics.IngestErrors.WithLabelValues("stats").Inc()
		o.logger.Error("stablecoin stats update failed", "block_number", blockNumber, "error", err)
	}

	metrics.BlocksIngested.Inc()
	metrics.IngestLatency.Observe(time.Since(started).Seconds())
	o.logger.Info("block ingested",
		"block_number", blockNumber,
		"transactions", len(records),
		"duration_ms", time.Since(started).Milliseconds())
	return summary, nil
}

func (o *Orchestrator) fetchBlock(ctx context.Context, identifier string) (*rpc.Block, error) {
	trimmed := strings.TrimSpace(identifier)

	var (
		block *rpc.Block
		err   error
	)
	switch {
	case strings.HasPrefix(trimmed, "0x"):
		block, err = o.client.GetBlockByHash(ctx, strings.ToLower(trimmed), true)
	default:
		number, parseErr := strconv.ParseInt(trimmed, 10, 64)
		if parseErr != nil || number < 0 {
			return nil, fmt.Errorf("%w: %q", ErrInvalidIdentifier, identifier)
		}
		block, err = o.client.GetBlockByNumber(ctx, number, true)
	}
	if err != nil {
		return nil, fmt.Errorf("fetch block %q: %w", identifier, err)
	}
	if block == nil {
		return nil, fmt.Errorf("%w: %q", ErrBlockNotFound, identifier)
	}
	return block, nil
}

// fetchTransactions retrieves full bodies and receipts for every hash with
// bounded concurrency. A missing or failed transaction body fails the pass;
// a missing receipt degrades to nil so aggregation simply skips it.
func (o *Orchestrator) fetchTransactions(ctx context.Context, hashes []string) ([]*rpc.Transaction, []*rpc.TransactionReceipt, error) {
	txs := make([]*rpc.Transaction, len(hashes))
	receipts := make([]*rpc.TransactionReceipt, len(hashes))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(maxConcurrentTxs)

	for i, hash := range hashes {
		i, hash := i, hash
		g.Go(func() error {
			tx, err := o.client.GetTransactionByHash(gctx, hash)
			if err != nil {
				return fmt.Errorf("fetch transaction %s: %w", hash, err)
			}
			if tx == nil {
				return fmt.Errorf("transaction %s not found", hash)
			}
			txs[i] = tx

			receipt, err := o.client.GetTransactionReceipt(gctx, hash)
			if err != nil {
				o.logger.Warn("receipt fetch failed", "hash", hash, "error", err)
				return nil
			}
			receipts[i] = receipt
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, nil, err
	}
	return txs, receipts, nil
}

// candidateAddresses collects the addresses worth probing for stablecoin
// detection: deployed contract addresses and transaction recipients.
func candidateAddresses(records []*model.Transaction) []string {
	out := make([]string, 0, len(records))
	for _, r := range records {
		if r.ContractAddress != nil {
			out = append(out, *r.ContractAddress)
		}
		if r.To != nil {
			out = append(out, *r.To)
		}
	}
	return out
}
