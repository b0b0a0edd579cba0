package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/ndewijer/Market-Dashboard-Backend/internal/api"
	"github.com/ndewijer/Market-Dashboard-Backend/internal/assets"
	"github.com/ndewijer/Market-Dashboard-Backend/internal/config"
	"github.com/ndewijer/Market-Dashboard-Backend/internal/database"
	"github.com/ndewijer/Market-Dashboard-Backend/internal/github"
	"github.com/ndewijer/Market-Dashboard-Backend/internal/logging"
	"github.com/ndewijer/Market-Dashboard-Backend/internal/metrics"
	"github.com/ndewijer/Market-Dashboard-Backend/internal/repository"
	"github.com/ndewijer/Market-Dashboard-Backend/internal/scheduler"
	"github.com/ndewijer/Market-Dashboard-Backend/internal/service"
	"github.com/ndewijer/Market-Dashboard-Backend/internal/source"
	"github.com/ndewijer/Market-Dashboard-Backend/internal/version"
	"github.com/ndewijer/Market-Dashboard-Backend/internal/yahoo"
)

func main() {
	if err := run(); err != nil {
		slog.Error("server exited with error", "error", err)
		os.Exit(1)
	}
}

func run() error {
	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		return err
	}

	logger := logging.New(cfg.Log)
	slog.SetDefault(logger)

	ctx := context.Background()

	// Open database connection
	db, err := database.Open(ctx, cfg.Database.Path)
	if err != nil {
		return err
	}
	defer db.Close()

	logger.Info("connected to database", "path", cfg.Database.Path)

	registry, err := assets.LoadRegistry(cfg.Assets.File)
	if err != nil {
		return err
	}
	logger.Info("loaded asset registry", "file", cfg.Assets.File, "assets", registry.Len())

	promRegistry := prometheus.NewRegistry()
	promRegistry.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	m := metrics.New(promRegistry)

	// Create repositories
	cacheRepo := repository.NewCacheRepository(db)
	failureRepo := repository.NewFailureRepository(db, cfg.Sync.MaxAttempts)
	derivedRepo := repository.NewDerivedRepository(db)

	// Upstream clients
	repoClient := github.NewClient(cfg.Primary.Owner, cfg.Primary.Repo,
		github.WithBaseURL(cfg.Primary.BaseURL),
		github.WithBranch(cfg.Primary.Branch),
		github.WithToken(cfg.Primary.Token),
		github.WithTimeout(cfg.Primary.Timeout),
		github.WithRateLimit(cfg.Primary.RPS),
	)
	quoteClient := yahoo.NewFinanceClient(
		yahoo.WithBaseURL(cfg.Secondary.BaseURL),
		yahoo.WithTimeout(cfg.Secondary.Timeout),
		yahoo.WithRateLimit(cfg.Secondary.RPS),
	)
	primary := source.NewPrimary(repoClient, cfg.Primary.Timeout)
	secondary := source.NewSecondary(quoteClient, cfg.Secondary.Timeout, cfg.Secondary.HistoryYears)

	// Create services
	syncService := service.NewSyncService(registry, cacheRepo, failureRepo, primary, secondary, cfg.Sync, logger, m)
	if cfg.Primary.WriteBack {
		if cfg.Primary.Token == "" {
			logger.Warn("write-back enabled without a repository token; commits will be rejected")
		}
		syncService.WithPublisher(primary)
	}
	batchService := service.NewBatchService(syncService, registry, cfg.Sync, logger, m)
	priceService := service.NewPriceService(registry, cacheRepo, secondary, logger, m)
	docsService := service.NewDocsService(registry, quoteClient, logger)
	if cfg.Primary.Token != "" {
		docsService.WithPublisher(repoClient)
	}
	reindexService := service.NewReindexService(registry, cacheRepo, derivedRepo, cfg.Reindex, cfg.Sync.DerivedCacheTTL, logger, m)

	sched, err := scheduler.New(cfg.Schedule, batchService, reindexService, logger)
	if err != nil {
		return err
	}

	// Create router
	router := api.NewRouter(api.Services{
		System:   service.NewSystemService(db),
		Assets:   service.NewAssetService(registry, cacheRepo, failureRepo, cfg.Sync.Freshness),
		Sync:     syncService,
		Batch:    batchService,
		Reindex:  reindexService,
		Analysis: service.NewAnalysisService(registry, cacheRepo),
		Prices:   priceService,
		Docs:     docsService,
	}, cfg, logger, promhttp.HandlerFor(promRegistry, promhttp.HandlerOpts{}))

	// Create HTTP server
	server := &http.Server{
		Addr:         cfg.Server.Addr,
		Handler:      router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 5 * time.Minute, // refresh-all responds after the whole run
		IdleTimeout:  60 * time.Second,
	}

	serverErr := make(chan error, 1)
	go func() {
		logger.Info("starting server", "addr", cfg.Server.Addr, "version", version.Version)
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serverErr <- err
		}
	}()
	sched.Start()

	// Wait for interrupt signal for graceful shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	select {
	case <-quit:
	case err := <-serverErr:
		return err
	}

	logger.Info("shutting down server")

	// Graceful shutdown with timeout
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := sched.Stop(shutdownCtx); err != nil {
		logger.Warn("scheduler did not stop in time", "error", err)
	}
	if err := server.Shutdown(shutdownCtx); err != nil {
		return err
	}

	logger.Info("server exited")
	return nil
}
