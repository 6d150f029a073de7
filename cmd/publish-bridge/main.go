package main

import (
	"context"
	"errors"
	"flag"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/meterstack/publish-bridge/internal/api"
	"github.com/meterstack/publish-bridge/internal/bridge"
	"github.com/meterstack/publish-bridge/internal/cache"
	"github.com/meterstack/publish-bridge/internal/config"
	"github.com/meterstack/publish-bridge/internal/eval"
	"github.com/meterstack/publish-bridge/internal/repo"
	"github.com/meterstack/publish-bridge/internal/stats"
	"github.com/meterstack/publish-bridge/internal/subs"
	"github.com/meterstack/publish-bridge/internal/utils"
)

func main() {
	var configPath string
	flag.StringVar(&configPath, "config", "", "Path to configuration file")
	flag.Parse()

	cfg, err := config.Load(configPath)
	if err != nil {
		slog.Error("failed to load config", slog.String("path", configPath), slog.Any("error", err))
		os.Exit(1)
	}

	logger := utils.NewLogger(cfg.Logging.Level, cfg.Logging.JSON)
	logger.Info("starting publish-bridge", slog.String("address", cfg.Server.Address))

	recorder := stats.NewRecorder(cfg.Bridge.Step)
	if err := recorder.Register(prometheus.DefaultRegisterer); err != nil {
		logger.Error("failed to register metrics", slog.Any("error", err))
		os.Exit(1)
	}

	var snapshotCache cache.Provider = cache.NoopProvider{}
	if cfg.Cache.Enabled && cfg.Cache.Addr != "" {
		provider, err := cache.NewRedisProvider(cache.RedisConfig{
			Addr:         cfg.Cache.Addr,
			Username:     cfg.Cache.Username,
			Password:     cfg.Cache.Password,
			DB:           cfg.Cache.DB,
			DialTimeout:  cfg.Cache.DialTimeout,
			ReadTimeout:  cfg.Cache.ReadTimeout,
			WriteTimeout: cfg.Cache.WriteTimeout,
			MaxRetries:   cfg.Cache.MaxRetries,
			TLS:          cfg.Cache.TLS,
		})
		if err != nil {
			logger.Warn("snapshot cache unavailable", slog.Any("error", err))
		} else {
			snapshotCache = provider
			defer provider.Close()
		}
	}

	subscriptionsClient := repo.NewSubscriptionsClient(
		cfg.Clients.Subscriptions.URL,
		cfg.Clients.Subscriptions.Timeout,
	)
	evalClient := repo.NewEvalClient(
		cfg.Clients.Eval.URL,
		cfg.Clients.Eval.Timeout,
	)

	evaluator := eval.NewBatchEvaluator()
	refresher := subs.NewRefresher(logger, subscriptionsClient, evaluator, snapshotCache, eval.DefaultGroup, cfg.Cache.SnapshotTTL)

	publishBridge := bridge.New(logger, bridge.Config{
		Step:                cfg.Bridge.Step,
		RefreshInterval:     cfg.Bridge.RefreshInterval,
		RefreshInitialDelay: cfg.Bridge.RefreshInitialDelay,
	}, recorder, evaluator, evalClient, refresher)

	handler := api.NewHandler(logger, publishBridge)
	server, err := api.NewServer(cfg.Server, handler, prometheus.DefaultRegisterer)
	if err != nil {
		logger.Error("failed to create HTTP server", slog.Any("error", err))
		os.Exit(1)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// Seed from the last snapshot so evaluations between boot and the first
	// successful refresh see the previous working set.
	seedCtx, cancelSeed := context.WithTimeout(ctx, 5*time.Second)
	refresher.Seed(seedCtx)
	cancelSeed()

	go publishBridge.Run(ctx)

	var metricsServer *http.Server
	if cfg.Server.MetricsAddress != "" {
		mux := http.NewServeMux()
		mux.Handle("/metrics", promhttp.Handler())
		metricsServer = &http.Server{
			Addr:         cfg.Server.MetricsAddress,
			Handler:      mux,
			ReadTimeout:  5 * time.Second,
			WriteTimeout: 15 * time.Second,
		}
		go func() {
			logger.Info("metrics server listening", slog.String("address", cfg.Server.MetricsAddress))
			if err := metricsServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				logger.Error("metrics server exited", slog.Any("error", err))
				stop()
			}
		}()
	}

	go func() {
		logger.Info("publish API listening", slog.String("address", server.Address()))
		if serveErr := server.Start(); serveErr != nil {
			logger.Error("publish API exited", slog.Any("error", serveErr))
			stop()
		}
	}()

	<-ctx.Done()
	logger.Info("shutdown signal received")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.GracefulTimeout)
	defer cancel()
	server.Shutdown(shutdownCtx)

	if metricsServer != nil {
		metricsCtx, cancelMetrics := context.WithTimeout(context.Background(), 5*time.Second)
		if err := metricsServer.Shutdown(metricsCtx); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Warn("metrics server shutdown", slog.Any("error", err))
		}
		cancelMetrics()
	}

	// Give detached forward goroutines time to finish logging
	time.Sleep(100 * time.Millisecond)
	logger.Info("publish-bridge stopped")
}
