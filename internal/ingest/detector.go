package ingest

import (
	"context"
	"log/slog"
	"math/big"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/raubrey2014/tempo-explorer/internal/cache"
	"github.com/raubrey2014/tempo-explorer/internal/chain/erc20"
	"github.com/raubrey2014/tempo-explorer/internal/chain/rpc"
	"github.com/raubrey2014/tempo-explorer/internal/domain/model"
	"github.com/raubrey2014/tempo-explorer/internal/metrics"
	"github.com/raubrey2014/tempo-explorer/internal/store"
)

const (
	// minCodeBytes rejects self-destructed and near-empty accounts that
	// still report a byte or two of code.
	minCodeBytes = 3

	defaultDetectConcurrency = 10

	// tokenReadTimeout bounds each of the three contract read calls so one
	// hung node connection cannot stall a whole batch.
	tokenReadTimeout = 5 * time.Second
)

// Detector decides whether candidate addresses are stablecoin contracts and
// records newly discovered ones. An address qualifies when it holds contract
// code and answers all three of decimals(), symbol(), and totalSupply().
type Detector struct {
	client      rpc.ChainClient
	tokens      *erc20.Reader
	repo        store.StablecoinRepository
	known       *cache.StablecoinSet // optional
	logger      *slog.Logger
	concurrency int
}

func NewDetector(client rpc.ChainClient, repo store.StablecoinRepository, known *cache.StablecoinSet, logger *slog.Logger) *Detector {
	return &Detector{
		client:      client,
		tokens:      erc20.NewReader(client),
		repo:        repo,
		known:       known,
		logger:      logger,
		concurrency: defaultDetectConcurrency,
	}
}

// WithConcurrency overrides the per-batch probe fan-out. Values below one
// are ignored.
func (d *Detector) WithConcurrency(n int) *Detector {
	if n > 0 {
		d.concurrency = n
	}
	return d
}

// CheckAndIngestAddress probes one address and persists it when it is a
// previously unseen stablecoin contract. Returns true only when this call
// inserted the row; already-known addresses and non-token contracts return
// false without error.
func (d *Detector) CheckAndIngestAddress(ctx context.Context, address string, blockNumber int64, blockTime *int64) (bool, error) {
	addr := strings.ToLower(strings.TrimSpace(address))
	if addr == "" || addr == model.ZeroAddress {
		return false, nil
	}

	exists, err := d.repo.Exists(ctx, addr)
	if err != nil {
		return false, err
	}
	if exists {
		return false, nil
	}

	code, err := d.client.GetCode(ctx, addr)
	if err != nil {
		return false, err
	}
	if codeSize(code) < minCodeBytes {
		return false, nil
	}

	// All three reads must succeed; contracts that implement only part of
	// the token interface are not counted.
	decimals, err := readWithTimeout(ctx, func(ctx context.Context) (uint8, error) {
		return d.tokens.Decimals(ctx, addr)
	})
	if err != nil {
		d.logger.Debug("token read failed", "address", addr, "call", "decimals", "error", err)
		return false, nil
	}
	symbol, err := readWithTimeout(ctx, func(ctx context.Context) (string, error) {
		return d.tokens.Symbol(ctx, addr)
	})
	if err != nil {
		d.logger.Debug("token read failed", "address", addr, "call", "symbol", "error", err)
		return false, nil
	}
	totalSupply, err := readWithTimeout(ctx, func(ctx context.Context) (*big.Int, error) {
		return d.tokens.TotalSupply(ctx, addr)
	})
	if err != nil {
		d.logger.Debug("token read failed", "address", addr, "call", "totalSupply", "error", err)
		return false, nil
	}

	sc := &model.Stablecoin{
		Address:            addr,
		Symbol:             symbol,
		Decimals:           int(decimals),
		TotalSupply:        totalSupply,
		FirstSeenBlock:     &blockNumber,
		FirstSeenBlockTime: blockTime,
	}
	inserted, err := d.repo.InsertIfAbsent(ctx, sc)
	if err != nil {
		return false, err
	}
	if inserted {
		metrics.StablecoinsDetected.Inc()
		if d.known != nil {
			if err := d.known.Invalidate(ctx); err != nil {
				d.logger.Warn("stablecoin cache invalidation failed", "error", err)
			}
		}
		d.logger.Info("stablecoin detected",
			"address", addr,
			"symbol", symbol,
			"decimals", decimals,
			"first_seen_block", blockNumber)
	}
	return inserted, nil
}

// CheckAndIngestAddresses probes a candidate set concurrently and returns
// how many new stablecoins were recorded. Addresses are deduplicated and
// lowercased first; per-address failures are logged and counted but never
// fail the batch.
func (d *Detector) CheckAndIngestAddresses(ctx context.Context, addresses []string, blockNumber int64, blockTime *int64) int {
	candidates := dedupeAddresses(addresses)
	if len(candidates) == 0 {
		return 0
	}

	var (
		wg       sync.WaitGroup
		inserted atomic.Int64
		sem      = make(chan struct{}, d.concurrency)
	)
	for _, addr := range candidates {
		if ctx.Err() != nil {
			break
		}
		wg.Add(1)
		sem <- struct{}{}
		go func(addr string) {
			defer wg.Done()
			defer func() { <-sem }()

			metrics.AddressesChecked.Inc()
			ok, err := d.CheckAndIngestAddress(ctx, addr, blockNumber, blockTime)
			if err != nil {
				metrics.DetectionErrors.Inc()
				d.logger.Warn("address detection failed", "address", addr, "error", err)
				return
			}
			if ok {
				inserted.Add(1)
			}
		}(addr)
	}
	wg.Wait()
	return int(inserted.Load())
}

// readWithTimeout runs a single contract read under its own deadline so the
// clock restarts for each call.
func readWithTimeout[T any](ctx context.Context, read func(context.Context) (T, error)) (T, error) {
	ctx, cancel := context.WithTimeout(ctx, tokenReadTimeout)
	defer cancel()
	return read(ctx)
}

// codeSize returns the byte length of 0x-prefixed runtime code hex.
func codeSize(code string) int {
	trimmed := strings.TrimPrefix(strings.ToLower(strings.TrimSpace(code)), "0x")
	return len(trimmed) / 2
}

func dedupeAddresses(addresses []string) []string {
	seen := make(map[string]struct{}, len(addresses))
	out := make([]string, 0, len(addresses))
	for _, a := range addresses {
		addr := strings.ToLower(strings.TrimSpace(a))
		if addr == "" || addr == model.ZeroAddress {
			continue
		}
		if _, dup := seen[addr]; dup {
			continue
		}
		seen[addr] = struct{}{}
		out = append(out, addr)
	}
	return out
}
