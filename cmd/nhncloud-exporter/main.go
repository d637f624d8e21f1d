package main

import (
	"context"
	"flag"
	"log/slog"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/hanmaru-ops/nhncloud-exporter/internal/api"
	"github.com/hanmaru-ops/nhncloud-exporter/internal/auth"
	"github.com/hanmaru-ops/nhncloud-exporter/internal/cache"
	"github.com/hanmaru-ops/nhncloud-exporter/internal/collector"
	"github.com/hanmaru-ops/nhncloud-exporter/internal/config"
	"github.com/hanmaru-ops/nhncloud-exporter/internal/sched"
	"github.com/hanmaru-ops/nhncloud-exporter/internal/watchdog"
)

const shutdownGrace = 10 * time.Second

func main() {
	configPath := flag.String("config", "", "path to config file (optional; environment variables apply on top)")
	flag.Parse()

	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelInfo}))
	slog.SetDefault(logger)

	slog.Info("nhncloud-exporter starting", "config", *configPath)

	cfg, err := config.Load(*configPath)
	if err != nil {
		slog.Error("failed to load config", "err", err)
		os.Exit(1)
	}
	slog.SetDefault(slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: cfg.Level()})))

	slog.Info("config loaded",
		"environment", cfg.Environment,
		"listen_addr", cfg.ListenAddr,
		"collection_interval", cfg.CollectionInterval,
		"cache_ttl", cfg.CacheTTL,
	)

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	// Watch the config file for changes. Collector wiring is built once at
	// startup, so a reload only takes effect on restart; the watcher makes
	// that visible in the logs.
	if *configPath != "" {
		go func() {
			if err := config.Watch(ctx, *configPath, func(updated *config.Config) {
				slog.Info("config changed on disk, restart to apply",
					"environment", updated.Environment)
			}); err != nil {
				slog.Error("config watcher stopped", "err", err)
			}
		}()
	}

	provider := auth.NewProvider(cfg.Identity, cfg.HTTPTimeout)

	stats := collector.NewStats()
	collectors := collector.New(cfg, provider)
	collectors = append(collectors, collector.NewSelf(stats))
	for _, col := range collectors {
		slog.Info("registered collector", "collector", col.Name())
	}

	store := cache.New(cfg.CacheTTL, cfg.KeepStaleSamples)

	// Collectors run on their own context so the HTTP front can stop
	// accepting scrapes before the workers are signalled.
	schedCtx, schedCancel := context.WithCancel(context.Background())
	defer schedCancel()

	scheduler := sched.New(collectors, store, stats, cfg.CollectionInterval)
	schedDone := make(chan struct{})
	go func() {
		defer close(schedDone)
		if err := scheduler.Run(schedCtx); err != nil {
			slog.Error("scheduler stopped", "err", err)
		}
	}()

	httpSrv := &http.Server{
		Addr:    cfg.ListenAddr,
		Handler: api.New(cfg.Environment, store, collector.FamilyHelp),
	}
	lis, err := net.Listen("tcp", cfg.ListenAddr)
	if err != nil {
		slog.Error("failed to listen", "addr", cfg.ListenAddr, "err", err)
		os.Exit(1)
	}
	go func() {
		slog.Info("HTTP server listening", "addr", cfg.ListenAddr)
		if err := httpSrv.Serve(lis); err != nil && err != http.ErrServerClosed {
			slog.Error("HTTP server stopped", "err", err)
		}
	}()

	wd := watchdog.NewPinger()
	go wd.Start(ctx)
	watchdog.NotifyReady()

	<-ctx.Done()
	slog.Info("nhncloud-exporter shutting down")
	watchdog.NotifyStopping()

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), shutdownGrace)
	defer shutdownCancel()
	httpSrv.Shutdown(shutdownCtx) //nolint:errcheck

	schedCancel()
	select {
	case <-schedDone:
	case <-shutdownCtx.Done():
		slog.Warn("collectors did not reach idle in time, abandoning in-flight cycles")
	}
	slog.Info("shutdown complete")
}
