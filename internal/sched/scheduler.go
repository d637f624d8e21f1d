package sched

import (
	"context"
	"log/slog"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/hanmaru-ops/nhncloud-exporter/internal/cache"
	"github.com/hanmaru-ops/nhncloud-exporter/internal/collector"
	"github.com/hanmaru-ops/nhncloud-exporter/internal/metrics"
)

// Scheduler runs one worker goroutine per collector on a fixed interval.
// The interval is measured from the end of the previous cycle, so a slow
// upstream delays that collector's next start instead of stacking runs.
// Workers are independent: a failing collector never blocks another, and
// results flow only through the cache.
type Scheduler struct {
	collectors []collector.Collector
	cache      *cache.Cache
	stats      *collector.Stats
	interval   time.Duration
}

// New creates a Scheduler over the given collectors. stats may be nil.
func New(collectors []collector.Collector, c *cache.Cache, stats *collector.Stats, interval time.Duration) *Scheduler {
	return &Scheduler{
		collectors: collectors,
		cache:      c,
		stats:      stats,
		interval:   interval,
	}
}

// Run blocks driving all workers until ctx is cancelled, then returns once
// every in-flight cycle has reached its idle boundary.
func (s *Scheduler) Run(ctx context.Context) error {
	g, gctx := errgroup.WithContext(ctx)
	for _, col := range s.collectors {
		g.Go(func() error {
			s.worker(gctx, col)
			return nil
		})
	}
	return g.Wait()
}

// worker cycles one collector: immediate first run, then a full interval
// of idle time between the end of one run and the start of the next.
func (s *Scheduler) worker(ctx context.Context, col collector.Collector) {
	timer := time.NewTimer(0)
	defer timer.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-timer.C:
		}
		s.runOnce(ctx, col)
		timer.Reset(s.interval)
	}
}

func (s *Scheduler) runOnce(ctx context.Context, col collector.Collector) {
	start := time.Now()
	res := col.Collect(ctx)
	elapsed := time.Since(start)

	if s.stats != nil {
		s.stats.Observe(res.Collector, elapsed, res.Status == metrics.StatusFailed)
	}
	s.cache.Put(res)

	switch res.Status {
	case metrics.StatusFailed:
		slog.Error("sched: cycle failed", "collector", res.Collector, "err", res.Err, "elapsed", elapsed)
	case metrics.StatusPartial:
		slog.Warn("sched: cycle partial",
			"collector", res.Collector,
			"collected", res.Collected,
			"skipped", res.Skipped,
			"err", res.Err,
		)
	default:
		slog.Debug("sched: cycle ok", "collector", res.Collector, "samples", len(res.Samples), "elapsed", elapsed)
	}
}
