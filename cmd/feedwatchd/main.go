// Package main runs the feedwatch monitor daemon.
package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/feedwatch/feedwatch/internal/adapters"
	"github.com/feedwatch/feedwatch/internal/adaptive"
	"github.com/feedwatch/feedwatch/internal/api"
	"github.com/feedwatch/feedwatch/internal/clock/system"
	"github.com/feedwatch/feedwatch/internal/config"
	"github.com/feedwatch/feedwatch/internal/feed"
	"github.com/feedwatch/feedwatch/internal/fetch"
	"github.com/feedwatch/feedwatch/internal/logging"
	"github.com/feedwatch/feedwatch/internal/monitor"
	"github.com/feedwatch/feedwatch/internal/progress"
	progresssinks "github.com/feedwatch/feedwatch/internal/progress/sinks"
	"github.com/feedwatch/feedwatch/internal/telemetry"
)

const (
	version       = "0.2.0"
	shutdownGrace = 10 * time.Second
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "%v\n", err)
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	var cfgFile string
	cmd := &cobra.Command{
		Use:   "feedwatchd",
		Short: "Polls official weather warning feeds and tracks what you have seen.",
		Long: `feedwatchd periodically fetches a catalog of official weather warning
feeds, counts which warnings are new relative to per-source watermarks,
and serves the aggregated state over HTTP.`,
		Version:      version,
		SilenceUsage: true,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return run(cmd.Context(), cfgFile)
		},
	}
	cmd.PersistentFlags().StringVar(&cfgFile, "config", "", "path to config file")
	return cmd
}

func run(ctx context.Context, cfgFile string) error {
	cfg, err := config.Load(cfgFile)
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	logger, err := logging.New(cfg.Logging.Development)
	if err != nil {
		return fmt.Errorf("init logger: %w", err)
	}
	defer func() {
		_ = logger.Sync()
	}()
	zap.ReplaceGlobals(logger)

	ctx, stop := signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	tp, err := telemetry.InitTracerProvider(ctx, telemetry.Config{
		ServiceName: "feedwatchd",
		Version:     version,
	})
	if err != nil {
		return fmt.Errorf("init tracing: %w", err)
	}
	defer func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownGrace)
		defer cancel()
		_ = tp.Shutdown(shutdownCtx)
	}()

	client := adapters.NewClient(adapters.ClientConfig{
		UserAgent: cfg.Fetch.UserAgent,
		Timeout:   cfg.Timeout(),
	})
	registry := adapters.NewRegistry(client)
	if err := registry.Validate(cfg.SourceMap()); err != nil {
		return fmt.Errorf("validate sources: %w", err)
	}

	promSink, err := progresssinks.NewPrometheusSink(prometheus.DefaultRegisterer)
	if err != nil {
		return fmt.Errorf("register progress metrics: %w", err)
	}
	hub := progress.NewHub(progress.Config{Logger: logger},
		progresssinks.NewLogSink(logger), promSink)
	defer func() {
		closeCtx, cancel := context.WithTimeout(context.Background(), shutdownGrace)
		defer cancel()
		_ = hub.Close(closeCtx)
	}()

	orch := fetch.New(registry, fetch.Config{
		Timeout: cfg.Timeout(),
		Retry: &feed.RetryPolicy{
			Retries:   cfg.Fetch.Retries,
			BaseDelay: cfg.Backoff(),
		},
		Limiter: fetch.NewHostLimiter(fetch.LimiterConfig{
			DefaultRPS:   cfg.Fetch.HostRPS,
			DefaultBurst: cfg.Fetch.HostBurst,
		}),
		Emitter: hub,
		Logger:  logger,
	})

	budget := cfg.Adaptive.MemoryBudgetBytes
	if budget == 0 {
		budget = adaptive.BudgetFromTotal(adaptive.TotalMemoryBytes())
	}
	controller := adaptive.NewController(budget)
	controller.Min = cfg.Adaptive.MinConcurrency
	controller.Max = cfg.Adaptive.MaxConcurrency
	controller.Step = cfg.Adaptive.Step
	controller.HighWater = cfg.Adaptive.HighWater
	controller.LowWater = cfg.Adaptive.LowWater

	session := monitor.NewSession(monitor.Config{
		Sources:    cfg.Sources,
		Runner:     orch,
		Controller: controller,
		Sampler:    adaptive.NewProcSampler(),
		Clock:      system.New(),
		Logger:     logger,
		StartCap:   cfg.Adaptive.StartConcurrency,
		BatchSize:  cfg.Refresh.BatchSize,
	})

	srv := &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.Server.Port),
		Handler:           api.NewServer(session, session, prometheus.DefaultGatherer, logger).Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Info("http server listening", zap.String("addr", srv.Addr))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	go runScheduler(ctx, session, cfg.RefreshInterval(), logger)

	select {
	case <-ctx.Done():
		logger.Info("shutdown requested")
	case err := <-errCh:
		logger.Error("http server failed", zap.Error(err))
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownGrace)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("http shutdown: %w", err)
	}
	return nil
}

// runScheduler boots with a full round, then refreshes due sources every
// tick until the context ends.
func runScheduler(ctx context.Context, session *monitor.Session, interval time.Duration, logger *zap.Logger) {
	session.RefreshAll(ctx)
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			refreshed := session.RefreshDue(ctx)
			if len(refreshed) > 0 {
				logger.Debug("refreshed sources", zap.Strings("sources", refreshed))
			}
		}
	}
}
