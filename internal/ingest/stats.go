package ingest

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"math/big"
	"sort"
	"strings"

	"github.com/raubrey2014/tempo-explorer/internal/cache"
	"github.com/raubrey2014/tempo-explorer/internal/chain/rpc"
	"github.com/raubrey2014/tempo-explorer/internal/domain/model"
	"github.com/raubrey2014/tempo-explorer/internal/metrics"
	"github.com/raubrey2014/tempo-explorer/internal/store"
)

// transferTopic is keccak256("Transfer(address,address,uint256)"), the
// topic0 of every ERC-20 Transfer event.
const transferTopic = "0xddf252ad1be2c89b69c2b068fc378daa952ba7f163c4a11628f55a4df523b3ef"

// Aggregator folds receipt activity into the cumulative per-stablecoin
// counters. Calculation is pure over the receipt batch; the merge runs as
// atomic in-database additions inside one transaction.
type Aggregator struct {
	db     store.TxBeginner
	repo   store.StablecoinRepository
	known  *cache.StablecoinSet // optional
	logger *slog.Logger
}

func NewAggregator(db store.TxBeginner, repo store.StablecoinRepository, known *cache.StablecoinSet, logger *slog.Logger) *Aggregator {
	return &Aggregator{db: db, repo: repo, known: known, logger: logger}
}

// receiptView is the defensive read of the fields aggregation touches.
// Receipts come from outside the trust boundary, so every field is
// normalized once here rather than re-checked at each use site.
type receiptView struct {
	feeToken          string // lowercase, "" when the fee was native
	gasUsed           *big.Int
	effectiveGasPrice *big.Int
	logs              []logView
}

type logView struct {
	address string // lowercase
	topic0  string
	data    string
}

func viewReceipt(r *rpc.TransactionReceipt) receiptView {
	view := receiptView{
		feeToken:          strings.ToLower(strings.TrimSpace(r.FeeToken)),
		gasUsed:           rpc.ParseHexBig(r.GasUsed),
		effectiveGasPrice: rpc.ParseHexBig(r.EffectiveGasPrice),
	}
	if view.feeToken == model.ZeroAddress {
		view.feeToken = ""
	}
	for _, l := range r.Logs {
		if l == nil {
			continue
		}
		lv := logView{
			address: strings.ToLower(strings.TrimSpace(l.Address)),
			data:    l.Data,
		}
		if len(l.Topics) > 0 {
			lv.topic0 = strings.ToLower(l.Topics[0])
		}
		view.logs = append(view.logs, lv)
	}
	return view
}

// CalculateStablecoinStats scans a batch of receipts for Transfer events
// emitted by known stablecoins and for fees paid in a known stablecoin, and
// returns the per-address deltas. Nil receipts are skipped. Entries with no
// activity never appear in the result.
func (a *Aggregator) CalculateStablecoinStats(ctx context.Context, receipts []*rpc.TransactionReceipt) (map[string]*model.BlockStablecoinStats, error) {
	known, err := a.knownAddresses(ctx)
	if err != nil {
		return nil, fmt.Errorf("list stablecoins: %w", err)
	}
	if len(known) == 0 {
		return map[string]*model.BlockStablecoinStats{}, nil
	}

	stats := make(map[string]*model.BlockStablecoinStats)
	entry := func(addr string) *model.BlockStablecoinStats {
		s, ok := stats[addr]
		if !ok {
			s = model.NewBlockStablecoinStats()
			stats[addr] = s
		}
		return s
	}

	for _, receipt := range receipts {
		if receipt == nil {
			continue
		}
		view := viewReceipt(receipt)

		for _, log := range view.logs {
			if log.topic0 != transferTopic {
				continue
			}
			if _, ok := known[log.address]; !ok {
				continue
			}
			s := entry(log.address)
			s.TransferCount++
			metrics.TransferEvents.Inc()
			if amount := transferAmount(log.data); amount != nil {
				s.TransferVolume.Add(s.TransferVolume, amount)
			}
		}

		if view.feeToken != "" {
			if _, ok := known[view.feeToken]; ok {
				s := entry(view.feeToken)
				s.FeePaymentCount++
				metrics.FeePayments.Inc()
				if view.gasUsed != nil && view.effectiveGasPrice != nil {
					fee := new(big.Int).Mul(view.gasUsed, view.effectiveGasPrice)
					s.FeeVolume.Add(s.FeeVolume, fee)
				}
			}
		}
	}

	for addr, s := range stats {
		if !s.HasActivity() {
			delete(stats, addr)
		}
	}
	return stats, nil
}

// UpdateStablecoinStats merges the deltas into the cumulative counters in a
// single database transaction; either every stablecoin's counters advance or
// none do. Addresses are applied in sorted order so concurrent batches
// cannot deadlock on row lock ordering.
func (a *Aggregator) UpdateStablecoinStats(ctx context.Context, stats map[string]*model.BlockStablecoinStats, blockNumber int64) error {
	if len(stats) == 0 {
		return nil
	}

	addresses := make([]string, 0, len(stats))
	for addr := range stats {
		addresses = append(addresses, addr)
	}
	sort.Strings(addresses)

	tx, err := a.db.BeginTx(ctx, &sql.TxOptions{})
	if err != nil {
		return fmt.Errorf("begin stats tx: %w", err)
	}
	defer tx.Rollback()

	for _, addr := range addresses {
		if err := a.repo.ApplyStatsTx(ctx, tx, addr, stats[addr], blockNumber); err != nil {
			return fmt.Errorf("apply stats for %s: %w", addr, err)
		}
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit stats tx: %w", err)
	}

	metrics.StatsUpdates.Add(float64(len(addresses)))
	return nil
}

// knownAddresses returns the known stablecoin address set, serving from the
// cache when possible and repopulating it best-effort on a miss.
func (a *Aggregator) knownAddresses(ctx context.Context) (map[string]struct{}, error) {
	if a.known != nil {
		if addrs, ok := a.known.Get(ctx); ok {
			return toSet(addrs), nil
		}
	}

	addrs, err := a.repo.ListAddresses(ctx)
	if err != nil {
		return nil, err
	}
	if a.known != nil && len(addrs) > 0 {
		if err := a.known.Set(ctx, addrs); err != nil {
			a.logger.Warn("stablecoin cache refresh failed", "error", err)
		}
	}
	return toSet(addrs), nil
}

func toSet(addrs []string) map[string]struct{} {
	set := make(map[string]struct{}, len(addrs))
	for _, a := range addrs {
		set[strings.ToLower(a)] = struct{}{}
	}
	return set
}

// transferAmount extracts the uint256 value word from Transfer event data.
// Returns nil when the data is shorter than one 32-byte word or malformed;
// the event still counts, its amount just cannot contribute to volume.
func transferAmount(data string) *big.Int {
	payload := strings.TrimPrefix(strings.TrimPrefix(strings.TrimSpace(data), "0x"), "0X")
	if len(payload) < 64 {
		return nil
	}
	amount, ok := new(big.Int).SetString(payload[:64], 16)
	if !ok {
		return nil
	}
	return amount
}
