package collector

import (
	"context"
	"log/slog"
	"strings"

	"github.com/hanmaru-ops/nhncloud-exporter/internal/auth"
	"github.com/hanmaru-ops/nhncloud-exporter/internal/config"
	"github.com/hanmaru-ops/nhncloud-exporter/internal/metrics"
	"github.com/hanmaru-ops/nhncloud-exporter/internal/nhn"
)

// Collector gathers one resource type into a metrics.Result. Collect does
// not retry: whatever it returns is cached as-is and the next interval tries
// again. Missing or denied resources are recorded as skips; credential and
// transport failures fail the whole cycle.
type Collector interface {
	Name() string
	Collect(ctx context.Context) metrics.Result
}

// New builds the enabled collectors from cfg. Each collector owns a client
// bound to its service endpoint and auth scheme.
func New(cfg *config.Config, provider *auth.Provider) []Collector {
	timeout := cfg.HTTPTimeout
	var cs []Collector

	if cfg.Collectors.GSLB.Enabled {
		client := nhn.New(cfg.Endpoints.DNSPlus, timeout, auth.AppKeySource(cfg.AppKeys.DNSPlus))
		cs = append(cs, NewGSLB(client, cfg.AppKeys.DNSPlus))
	}
	if cfg.Collectors.LoadBalancer.Enabled {
		client := nhn.New(cfg.Endpoints.LoadBalancer, timeout, provider.TokenSource())
		cs = append(cs, NewLoadBalancer(client, NewFilter(cfg.Collectors.LoadBalancer.Filter)))
	}
	if cfg.Collectors.RDS.Enabled {
		client := nhn.New(cfg.Endpoints.RDS, timeout, provider.RDSSource(cfg.AppKeys.RDS, cfg.AccessKey))
		cs = append(cs, NewRDS(client, NewFilter(cfg.Collectors.RDS.Filter)))
	}
	if cfg.Collectors.CDN.Enabled {
		client := nhn.New(cfg.Endpoints.CDN, timeout, auth.AppKeySource(cfg.AppKeys.CDN))
		cs = append(cs, NewCDN(client, cfg.AppKeys.CDN, NewFilter(cfg.Collectors.CDN.Filter)))
	}
	if cfg.Collectors.ObjectStorage.Enabled {
		client := nhn.New("", timeout, provider.StorageSource())
		cs = append(cs, NewObjectStorage(client, provider, storageFallbackURL(cfg), cfg.Collectors.ObjectStorage.Filter))
	}
	if cfg.Collectors.Instance.Enabled {
		client := nhn.New(cfg.Endpoints.Compute, timeout, provider.TokenSource())
		cs = append(cs, NewInstance(client, NewFilter(cfg.Collectors.Instance.Filter)))
	}
	if cfg.Collectors.ServiceOperations.Enabled {
		cs = append(cs, NewServiceOps(cfg, provider))
	}
	return cs
}

// storageFallbackURL builds the account URL used when the token catalog has
// no object-store entry: {object storage endpoint}/v1/AUTH_{tenant id}.
func storageFallbackURL(cfg *config.Config) string {
	if cfg.Identity.TenantID == "" {
		return ""
	}
	return strings.TrimRight(cfg.Endpoints.ObjectStorage, "/") + "/v1/AUTH_" + cfg.Identity.TenantID
}

// Filter is a resource identifier allow-list. A nil or empty Filter admits
// everything.
type Filter map[string]bool

// NewFilter builds a Filter from a list of identifiers.
func NewFilter(ids []string) Filter {
	if len(ids) == 0 {
		return nil
	}
	f := make(Filter, len(ids))
	for _, id := range ids {
		f[id] = true
	}
	return f
}

// Admit reports whether the identifier passes the filter.
func (f Filter) Admit(id string) bool { return len(f) == 0 || f[id] }

// warnSkip records a skipped resource on the result and logs it. Missing and
// denied resources are routine in partially provisioned projects, so they
// log at warn and the cycle goes on.
func warnSkip(res *metrics.Result, collector, what string, err error) {
	res.Skip(err)
	slog.Warn("collector: resource skipped", "collector", collector, "what", what, "err", err)
}

// statusValue converts a health predicate to the 1/0 gauge convention.
func statusValue(ok bool) float64 {
	if ok {
		return 1
	}
	return 0
}

// familyHelp maps every metric family name to its HELP text, assembled from
// the per-collector tables.
var familyHelp = mergeHelp(gslbHelp, lbHelp, rdsHelp, cdnHelp, obsHelp, instanceHelp, serviceOpsHelp, selfHelp)

// FamilyHelp returns the HELP text for a metric family, or "" when unknown.
func FamilyHelp(name string) string { return familyHelp[name] }

func mergeHelp(maps ...map[string]string) map[string]string {
	out := make(map[string]string)
	for _, m := range maps {
		for k, v := range m {
			out[k] = v
		}
	}
	return out
}
