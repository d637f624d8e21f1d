package collector

import (
	"context"
	"log/slog"
	"os"
	"sync"
	"time"

	"github.com/shirou/gopsutil/v3/process"

	"github.com/hanmaru-ops/nhncloud-exporter/internal/metrics"
)

const (
	metricSelfUp       = "nhn_exporter_up"
	metricSelfDuration = "nhn_exporter_collect_duration_seconds"
	metricSelfErrors   = "nhn_exporter_collect_errors_total"
	metricSelfCPU      = "nhn_exporter_process_cpu_percent"
	metricSelfMemory   = "nhn_exporter_process_memory_bytes"
)

var selfHelp = map[string]string{
	metricSelfUp:       "Exporter liveness (always 1 while serving).",
	metricSelfDuration: "Duration of the last collection cycle per collector.",
	metricSelfErrors:   "Failed collection cycles per collector since start.",
	metricSelfCPU:      "Exporter process CPU usage percent.",
	metricSelfMemory:   "Exporter process resident memory bytes.",
}

// Stats tracks cycle outcomes per collector. The scheduler observes every
// finished cycle; the self collector turns the counters into samples.
type Stats struct {
	mu        sync.Mutex
	durations map[string]float64
	errors    map[string]float64
}

func NewStats() *Stats {
	return &Stats{
		durations: make(map[string]float64),
		errors:    make(map[string]float64),
	}
}

// Observe records one finished cycle: its duration and whether it failed.
func (s *Stats) Observe(collector string, d time.Duration, failed bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.durations[collector] = d.Seconds()
	if _, ok := s.errors[collector]; !ok {
		s.errors[collector] = 0
	}
	if failed {
		s.errors[collector]++
	}
}

func (s *Stats) snapshot() (durations, errCounts map[string]float64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	durations = make(map[string]float64, len(s.durations))
	for k, v := range s.durations {
		durations[k] = v
	}
	errCounts = make(map[string]float64, len(s.errors))
	for k, v := range s.errors {
		errCounts[k] = v
	}
	return durations, errCounts
}

// Self reports the exporter's own health: liveness, per-collector cycle
// durations and failure counts, and process CPU and memory via gopsutil.
type Self struct {
	stats *Stats
	proc  *process.Process
	now   func() time.Time
}

func NewSelf(stats *Stats) *Self {
	proc, err := process.NewProcess(int32(os.Getpid()))
	if err != nil {
		slog.Warn("collector: process introspection unavailable", "err", err)
		proc = nil
	}
	return &Self{stats: stats, proc: proc, now: time.Now}
}

func (s *Self) Name() string { return "exporter" }

func (s *Self) Collect(ctx context.Context) metrics.Result {
	res := metrics.NewResult(s.Name(), s.now())

	res.Add(metrics.NewSample(metricSelfUp, 1, res.CollectedAt))

	durations, errCounts := s.stats.snapshot()
	for name, secs := range durations {
		res.Add(metrics.NewSample(metricSelfDuration, secs, res.CollectedAt).
			WithLabel("collector", name))
	}
	for name, n := range errCounts {
		res.Add(metrics.NewSample(metricSelfErrors, n, res.CollectedAt).
			WithLabel("collector", name))
	}

	if s.proc != nil {
		if cpu, err := s.proc.CPUPercentWithContext(ctx); err == nil {
			res.Add(metrics.NewSample(metricSelfCPU, cpu, res.CollectedAt))
		}
		if mem, err := s.proc.MemoryInfoWithContext(ctx); err == nil {
			res.Add(metrics.NewSample(metricSelfMemory, float64(mem.RSS), res.CollectedAt))
		}
	}

	res.Succeed()
	return res
}
