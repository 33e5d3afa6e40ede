package main

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	"golang.org/x/sync/errgroup"

	"github.com/raubrey2014/tempo-explorer/internal/cache"
	"github.com/raubrey2014/tempo-explorer/internal/chain/ratelimit"
	"github.com/raubrey2014/tempo-explorer/internal/chain/rpc"
	"github.com/raubrey2014/tempo-explorer/internal/config"
	"github.com/raubrey2014/tempo-explorer/internal/ingest"
	"github.com/raubrey2014/tempo-explorer/internal/scheduler"
	"github.com/raubrey2014/tempo-explorer/internal/store/postgres"
	"github.com/raubrey2014/tempo-explorer/internal/tracing"
)

const migrationsDir = "migrations"

func main() {
	logLevel := slog.LevelInfo
	cfg, err := config.Load()
	if err != nil {
		slog.Error("failed to load config", "error", err)
		os.Exit(1)
	}

	switch cfg.Log.Level {
	case "debug":
		logLevel = slog.LevelDebug
	case "warn":
		logLevel = slog.LevelWarn
	case "error":
		logLevel = slog.LevelError
	}

	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: logLevel}))
	slog.SetDefault(logger)

	logger.Info("starting tempo-explorer",
		"rpc_url", cfg.Chain.RPCURL,
		"ingest_interval", cfg.Scheduler.IngestInterval,
		"retention_ttl_days", cfg.Scheduler.RetentionTTLDays,
		"redis_enabled", cfg.Redis.URL != "")

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	shutdownTracing, err := tracing.Init(ctx, "tempo-explorer", cfg.Tracing.Endpoint, cfg.Tracing.Insecure)
	if err != nil {
		logger.Error("failed to initialize tracing", "error", err)
		os.Exit(1)
	}
	defer func() {
		shutdownCtx, cancelShutdown := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancelShutdown()
		if err := shutdownTracing(shutdownCtx); err != nil {
			logger.Warn("tracing shutdown error", "error", err)
		}
	}()

	db, err := postgres.New(postgres.Config{
		URL:                cfg.DB.URL,
		MaxOpenConns:       cfg.DB.MaxOpenConns,
		MaxIdleConns:       cfg.DB.MaxIdleConns,
		ConnMaxLifetime:    cfg.DB.ConnMaxLifetime,
		StatementTimeoutMS: cfg.DB.StatementTimeoutMS,
	})
	if err != nil {
		logger.Error("failed to connect to database", "error", err)
		os.Exit(1)
	}
	defer db.Close()

	if err := db.RunMigrations(migrationsDir); err != nil {
		logger.Error("failed to run migrations", "error", err)
		os.Exit(1)
	}

	var known *cache.StablecoinSet
	if cfg.Redis.URL != "" {
		known, err = cache.NewStablecoinSet(cfg.Redis.URL)
		if err != nil {
			logger.Error("failed to connect to redis", "error", err)
			os.Exit(1)
		}
		defer known.Close()
	}

	var clientOpts []rpc.Option
	if cfg.Chain.RPS > 0 {
		clientOpts = append(clientOpts, rpc.WithRateLimiter(ratelimit.NewLimiter(cfg.Chain.RPS, cfg.Chain.Burst)))
	}
	client := rpc.NewClient(cfg.Chain.RPCURL, logger, clientOpts...)

	txRepo := postgres.NewTransactionRepo(db)
	scRepo := postgres.NewStablecoinRepo(db)

	detector := ingest.NewDetector(client, scRepo, known, logger).WithConcurrency(cfg.Detector.Concurrency)
	aggregator := ingest.NewAggregator(db, scRepo, known, logger)
	orchestrator := ingest.NewOrchestrator(client, txRepo, detector, aggregator, logger)
	sweeper := ingest.NewSweeper(txRepo, logger)

	sched := scheduler.New(client, orchestrator, sweeper, logger,
		cfg.Scheduler.IngestInterval,
		cfg.Scheduler.CleanupInterval,
		cfg.Scheduler.RetentionTTLDays)

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	g, gCtx := errgroup.WithContext(ctx)

	g.Go(func() error {
		return runHealthServer(gCtx, cfg.Server.HealthPort, logger)
	})

	g.Go(func() error {
		return sched.Run(gCtx)
	})

	g.Go(func() error {
		select {
		case sig := <-sigCh:
			logger.Info("received signal, shutting down", "signal", sig)
			cancel()
			return nil
		case <-gCtx.Done():
			return nil
		}
	})

	if err := g.Wait(); err != nil && err != context.Canceled {
		logger.Error("tempo-explorer exited with error", "error", err)
		os.Exit(1)
	}

	logger.Info("tempo-explorer shut down gracefully")
}

func runHealthServer(ctx context.Context, port int, logger *slog.Logger) error {
	mux := http.NewServeMux()
	mux.HandleFunc("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		if _, err := w.Write([]byte("ok")); err != nil {
			logger.Warn("failed to write health response", "error", err)
		}
	})
	mux.Handle("/metrics", promhttp.Handler())

	server := &http.Server{
		Addr:    fmt.Sprintf(":%d", port),
		Handler: mux,
	}

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := server.Shutdown(shutdownCtx); err != nil && err != http.ErrServerClosed {
			logger.Warn("health server shutdown error", "error", err)
		}
	}()

	logger.Info("health server started", "port", port)
	if err := server.ListenAndServe(); err != http.ErrServerClosed {
		return fmt.Errorf("health server: %w", err)
	}
	return nil
}
