package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Ingestion stage counters and histograms.

var (
	// Orchestrator
	BlocksIngested = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: "tempo",
		Subsystem: "ingest",
		Name:      "blocks_total",
		Help:      "Total blocks successfully ingested",
	})

	IngestErrors = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "tempo",
		Subsystem: "ingest",
		Name:      "errors_total",
		Help:      "Total block ingestion failures by stage",
	}, []string{"stage"})

	TransactionsIngested = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: "tempo",
		Subsystem: "ingest",
		Name:      "transactions_total",
		Help:      "Total transactions upserted",
	})

	IngestLatency = promauto.NewHistogram(prometheus.HistogramOpts{
		Namespace: "tempo",
		Subsystem: "ingest",
		Name:      "block_duration_seconds",
		Help:      "Block ingestion duration",
		Buckets:   []float64{0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10, 30},
	})

	// Detector
	StablecoinsDetected = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: "tempo",
		Subsystem: "detector",
		Name:      "stablecoins_total",
		Help:      "Total newly detected stablecoin contracts",
	})

	DetectionErrors = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: "tempo",
		Subsystem: "detector",
		Name:      "errors_total",
		Help:      "Total per-address detection failures",
	})

	AddressesChecked = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: "tempo",
		Subsystem: "detector",
		Name:      "addresses_checked_total",
		Help:      "Total candidate addresses run through detection",
	})

	// Aggregator
	StatsUpdates = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: "tempo",
		Subsystem: "stats",
		Name:      "updates_total",
		Help:      "Total per-stablecoin stat updates committed",
	})

	TransferEvents = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: "tempo",
		Subsystem: "stats",
		Name:      "transfer_events_total",
		Help:      "Total stablecoin Transfer events observed",
	})

	FeePayments = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: "tempo",
		Subsystem: "stats",
		Name:      "fee_payments_total",
		Help:      "Total stablecoin-denominated fee payments observed",
	})

	// Sweeper
	SweeperRowsDeleted = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: "tempo",
		Subsystem: "sweeper",
		Name:      "rows_deleted_total",
		Help:      "Total expired transaction rows deleted",
	})

	SweeperRuns = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "tempo",
		Subsystem: "sweeper",
		Name:      "runs_total",
		Help:      "Total retention sweeps by outcome",
	}, []string{"outcome"})

	// RPC
	RPCCallsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "tempo",
		Subsystem: "rpc",
		Name:      "calls_total",
		Help:      "Total chain RPC calls by method and status",
	}, []string{"method", "status"})

	RPCRateLimitWaits = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: "tempo",
		Subsystem: "rpc",
		Name:      "rate_limit_waits_total",
		Help:      "Total outbound calls delayed by the local rate limiter",
	})

	// Scheduler
	SchedulerTicks = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "tempo",
		Subsystem: "scheduler",
		Name:      "ticks_total",
		Help:      "Total scheduler ticks by job",
	}, []string{"job"})

	SchedulerRetries = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "tempo",
		Subsystem: "scheduler",
		Name:      "retries_total",
		Help:      "Total scheduled job retries by reason",
	}, []string{"job", "reason"})
)
