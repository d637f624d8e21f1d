package collector

import (
	"testing"
	"time"

	"github.com/hanmaru-ops/nhncloud-exporter/internal/auth"
	"github.com/hanmaru-ops/nhncloud-exporter/internal/config"
	"github.com/hanmaru-ops/nhncloud-exporter/internal/metrics"
)

// findSample returns the first sample with the given name whose labels
// include all of want, failing the test when none matches.
func findSample(t *testing.T, samples []metrics.Sample, name string, want map[string]string) metrics.Sample {
	t.Helper()
outer:
	for _, s := range samples {
		if s.Name != name {
			continue
		}
		for k, v := range want {
			if s.Labels[k] != v {
				continue outer
			}
		}
		return s
	}
	t.Fatalf("no sample %s with labels %v in %d samples", name, want, len(samples))
	return metrics.Sample{}
}

func countSamples(samples []metrics.Sample, name string) int {
	n := 0
	for _, s := range samples {
		if s.Name == name {
			n++
		}
	}
	return n
}

func TestFilter(t *testing.T) {
	if f := NewFilter(nil); !f.Admit("anything") {
		t.Error("empty filter should admit everything")
	}

	f := NewFilter([]string{"a", "c"})
	tests := []struct {
		id   string
		want bool
	}{
		{"a", true},
		{"b", false},
		{"c", true},
	}
	for _, tt := range tests {
		if got := f.Admit(tt.id); got != tt.want {
			t.Errorf("Admit(%q) = %v, want %v", tt.id, got, tt.want)
		}
	}
}

func TestFamilyHelp(t *testing.T) {
	tests := []string{
		metricGSLBStatus,
		metricLBPoolMemberStatus,
		metricRDSCPUUsage,
		metricCDNServiceStatus,
		metricOBSContainerBytes,
		metricInstanceStatus,
		metricPhotoCDNCacheHitRate,
		metricSelfUp,
	}
	for _, name := range tests {
		if FamilyHelp(name) == "" {
			t.Errorf("FamilyHelp(%q) is empty", name)
		}
	}
	if got := FamilyHelp("nhn_unknown_family"); got != "" {
		t.Errorf("FamilyHelp(unknown) = %q, want empty", got)
	}
}

func TestNewBuildsEnabledCollectors(t *testing.T) {
	cfg := &config.Config{
		HTTPTimeout: time.Second,
		Collectors: config.CollectorsConfig{
			GSLB:              config.CollectorConfig{Enabled: true},
			RDS:               config.CollectorConfig{Enabled: true},
			ServiceOperations: config.CollectorConfig{Enabled: true},
		},
	}
	provider := auth.NewProvider(cfg.Identity, time.Second)

	var names []string
	for _, c := range New(cfg, provider) {
		names = append(names, c.Name())
	}

	want := []string{"gslb", "rds", "service_operations"}
	if len(names) != len(want) {
		t.Fatalf("collectors = %v, want %v", names, want)
	}
	for i := range want {
		if names[i] != want[i] {
			t.Errorf("collector[%d] = %q, want %q", i, names[i], want[i])
		}
	}
}
