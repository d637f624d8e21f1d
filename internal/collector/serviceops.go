package collector

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/url"
	"strings"
	"time"

	"github.com/hanmaru-ops/nhncloud-exporter/internal/auth"
	"github.com/hanmaru-ops/nhncloud-exporter/internal/config"
	"github.com/hanmaru-ops/nhncloud-exporter/internal/metrics"
	"github.com/hanmaru-ops/nhncloud-exporter/internal/nhn"
)

const (
	metricPhotoCDNCacheHitRate  = "photo_api_cdn_cache_hit_rate"
	metricPhotoCDNBandwidth     = "photo_api_cdn_bandwidth_bytes"
	metricPhotoCDNRequestsTotal = "photo_api_cdn_requests_total"
	metricPhotoOBSStorageBytes  = "photo_api_obs_storage_bytes"
	metricPhotoOBSObjectCount   = "photo_api_obs_object_count"
	metricPhotoRDSCPUUsage      = "photo_api_rds_cpu_usage_percent"
	metricPhotoRDSQPS           = "photo_api_rds_qps"
	metricPhotoRDSSlowQueries   = "photo_api_rds_slow_query_count"
	metricPhotoRDSConnections   = "photo_api_rds_current_connections"
	metricPhotoRDSNetworkRecv   = "photo_api_rds_network_receive_bytes"
	metricPhotoRDSNetworkSend   = "photo_api_rds_network_send_bytes"
	metricPhotoLBPoolHealth     = "photo_api_lb_pool_member_health_ratio"
	metricPhotoGSLBFailureRate  = "photo_api_gslb_pool_member_health_failure_rate"
)

var serviceOpsHelp = map[string]string{
	metricPhotoCDNCacheHitRate:  "Photo-api CDN cache hit rate over the last hour.",
	metricPhotoCDNBandwidth:     "Photo-api CDN bandwidth bytes over the last hour by direction.",
	metricPhotoCDNRequestsTotal: "Photo-api CDN requests over the last hour by cache status.",
	metricPhotoOBSStorageBytes:  "Photo-api upload container bytes used.",
	metricPhotoOBSObjectCount:   "Photo-api upload container object count.",
	metricPhotoRDSCPUUsage:      "Photo-api database CPU usage percent.",
	metricPhotoRDSQPS:           "Photo-api database queries per second.",
	metricPhotoRDSSlowQueries:   "Photo-api database slow query count.",
	metricPhotoRDSConnections:   "Photo-api database current connections.",
	metricPhotoRDSNetworkRecv:   "Photo-api database network bytes received.",
	metricPhotoRDSNetworkSend:   "Photo-api database network bytes sent.",
	metricPhotoLBPoolHealth:     "Photo-api load balancer pool member health ratio (online / total).",
	metricPhotoGSLBFailureRate:  "Photo-api GSLB pool member failure rate (offline / total).",
}

// photoRDSFamilies maps the database statistics queried for the photo-api
// instance to their exposition families.
var photoRDSFamilies = map[string]string{
	"CPU_USAGE":           metricPhotoRDSCPUUsage,
	"QPS":                 metricPhotoRDSQPS,
	"SLOW_QUERY_COUNT":    metricPhotoRDSSlowQueries,
	"CURRENT_CONNECTIONS": metricPhotoRDSConnections,
	"NETWORK_RECV":        metricPhotoRDSNetworkRecv,
	"NETWORK_SENT":        metricPhotoRDSNetworkSend,
}

const isoLayout = "2006-01-02T15:04:05"

// ServiceOps derives photo-api service health from the resources bound in
// configuration: CDN edge statistics, the upload container, the database
// instance and the load balancer and GSLB pools in front of the service.
// Each section is independent; a section whose resource is not bound is
// silently skipped, and a section whose fetch fails is recorded as a skip
// without touching the others.
type ServiceOps struct {
	cdn     *nhn.Client
	obs     *nhn.Client
	rds     *nhn.Client
	lb      *nhn.Client
	dnsplus *nhn.Client

	provider    *auth.Provider
	ops         config.ServiceOpsConfig
	cdnListKey  func() string
	dnsKey      func() string
	gslbEnabled bool
	obsFallback string
	now         func() time.Time
}

func NewServiceOps(cfg *config.Config, provider *auth.Provider) *ServiceOps {
	timeout := cfg.HTTPTimeout
	return &ServiceOps{
		cdn:         nhn.New(cfg.Endpoints.CDN, timeout, auth.AppKeySource(cfg.AppKeys.CDN)),
		obs:         nhn.New("", timeout, provider.StorageSource()),
		rds:         nhn.New(cfg.Endpoints.RDS, timeout, provider.RDSSource(cfg.AppKeys.RDS, cfg.AccessKey)),
		lb:          nhn.New(cfg.Endpoints.LoadBalancer, timeout, provider.TokenSource()),
		dnsplus:     nhn.New(cfg.Endpoints.DNSPlus, timeout, auth.AppKeySource(cfg.AppKeys.DNSPlus)),
		provider:    provider,
		ops:         cfg.ServiceOps,
		cdnListKey:  cfg.AppKeys.CDN,
		dnsKey:      cfg.AppKeys.DNSPlus,
		gslbEnabled: cfg.Collectors.GSLB.Enabled,
		obsFallback: storageFallbackURL(cfg),
		now:         time.Now,
	}
}

func (s *ServiceOps) Name() string { return "service_operations" }

func (s *ServiceOps) Collect(ctx context.Context) metrics.Result {
	res := metrics.NewResult(s.Name(), s.now())

	s.collectCDN(ctx, &res)
	s.collectOBS(ctx, &res)
	s.collectRDS(ctx, &res)
	s.collectLB(ctx, &res)
	if s.gslbEnabled {
		s.collectGSLB(ctx, &res)
	}
	return res
}

// collectCDN finds the distribution whose app key matches the photo-api
// binding and reports its edge statistics for the last hour.
func (s *ServiceOps) collectCDN(ctx context.Context, res *metrics.Result) {
	photoKey := s.ops.CDNAppKey()
	if photoKey == "" {
		return
	}
	listKey := s.cdnListKey()
	if listKey == "" {
		warnSkip(res, s.Name(), "cdn statistics", fmt.Errorf("%w: CDN app key not configured", nhn.ErrAuth))
		return
	}

	var list nhn.CDNServiceListResponse
	if err := s.cdn.GetJSON(ctx, "/v2.0/appKeys/"+listKey+"/services", nil, &list); err != nil {
		warnSkip(res, s.Name(), "cdn service listing", err)
		return
	}

	var svc *nhn.CDNService
	for i := range list.Services {
		if list.Services[i].AppKey == photoKey {
			svc = &list.Services[i]
			break
		}
	}
	if svc == nil {
		slog.Debug("collector: photo-api cdn distribution not found in listing", "collector", s.Name())
		return
	}
	id, name := svc.Ident(), svc.Title()

	end := s.now().UTC()
	start := end.Add(-time.Hour)
	q := url.Values{
		"startTime": {start.Format(isoLayout) + "Z"},
		"endTime":   {end.Format(isoLayout) + "Z"},
		"interval":  {"1h"},
	}
	var stats nhn.CDNStatisticsResponse
	if err := s.cdn.GetJSON(ctx, "/v2.0/appKeys/"+listKey+"/services/"+id+"/statistics", q, &stats); err != nil {
		if errors.Is(err, nhn.ErrNotFound) {
			slog.Debug("collector: cdn statistics not available", "collector", s.Name(), "service", id)
			return
		}
		warnSkip(res, s.Name(), "cdn statistics of "+id, err)
		return
	}

	var hits, misses, in, out float64
	for _, st := range stats.Statistics {
		hits += st.CacheHits
		misses += st.CacheMisses
		in += st.BandwidthIn
		out += st.BandwidthOut
	}

	if total := hits + misses; total > 0 {
		res.Add(metrics.NewSample(metricPhotoCDNCacheHitRate, hits/total, res.CollectedAt).
			WithLabel("service_id", id).
			WithLabel("service_name", name))
	}
	res.Add(metrics.NewSample(metricPhotoCDNBandwidth, in, res.CollectedAt).
		WithLabel("service_id", id).
		WithLabel("service_name", name).
		WithLabel("direction", "in"))
	res.Add(metrics.NewSample(metricPhotoCDNBandwidth, out, res.CollectedAt).
		WithLabel("service_id", id).
		WithLabel("service_name", name).
		WithLabel("direction", "out"))
	res.Add(metrics.NewSample(metricPhotoCDNRequestsTotal, hits, res.CollectedAt).
		WithLabel("service_id", id).
		WithLabel("service_name", name).
		WithLabel("status", "hit"))
	res.Add(metrics.NewSample(metricPhotoCDNRequestsTotal, misses, res.CollectedAt).
		WithLabel("service_id", id).
		WithLabel("service_name", name).
		WithLabel("status", "miss"))
	res.Succeed()
}

// collectOBS reports usage of the photo upload container.
func (s *ServiceOps) collectOBS(ctx context.Context, res *metrics.Result) {
	container := s.ops.OBSContainer
	if container == "" {
		return
	}

	account, err := s.provider.StorageURL(ctx)
	if err != nil {
		warnSkip(res, s.Name(), "photo container "+container, err)
		return
	}
	if account == "" {
		account = s.obsFallback
	}
	if account == "" {
		warnSkip(res, s.Name(), "photo container "+container,
			fmt.Errorf("no object-store endpoint in catalog and no tenant id for the fallback URL"))
		return
	}

	hdr, err := s.obs.Head(ctx, strings.TrimRight(account, "/")+"/"+container)
	if err != nil {
		warnSkip(res, s.Name(), "photo container "+container, err)
		return
	}
	res.Add(metrics.NewSample(metricPhotoOBSStorageBytes, headerFloat(hdr, "X-Container-Bytes-Used"), res.CollectedAt).
		WithLabel("container_name", container).
		WithLabel("service", "photo-api"))
	res.Add(metrics.NewSample(metricPhotoOBSObjectCount, headerFloat(hdr, "X-Container-Object-Count"), res.CollectedAt).
		WithLabel("container_name", container).
		WithLabel("service", "photo-api"))
	res.Succeed()
}

// collectRDS reports query statistics of the photo-api database instance.
// Only families present in the response are emitted.
func (s *ServiceOps) collectRDS(ctx context.Context, res *metrics.Result) {
	instanceID := s.ops.RDSInstanceID
	if instanceID == "" {
		return
	}

	q := url.Values{
		"dbInstanceId": {instanceID},
		"metricName":   {"CPU_USAGE", "QPS", "SLOW_QUERY_COUNT", "CURRENT_CONNECTIONS", "NETWORK_RECV", "NETWORK_SENT"},
		"period":       {"1m"},
	}
	var stats nhn.MetricStatisticsResponse
	if err := s.rds.GetJSON(ctx, "/rds/api/v2.0/metric-statistics", q, &stats); err != nil {
		warnSkip(res, s.Name(), "rds statistics of "+instanceID, err)
		return
	}
	for _, st := range stats.MetricStatistics {
		family, ok := photoRDSFamilies[st.MetricName]
		if !ok {
			continue
		}
		res.Add(metrics.NewSample(family, float64(st.Value), res.CollectedAt).
			WithLabel("instance_id", instanceID).
			WithLabel("service", "photo-api"))
	}
	res.Succeed()
}

// collectLB reports per-pool member health ratios for the bound load
// balancers.
func (s *ServiceOps) collectLB(ctx context.Context, res *metrics.Result) {
	for _, lbID := range s.ops.LBIDs {
		var lbResp nhn.LoadBalancerResponse
		if err := s.lb.GetJSON(ctx, "/v2.0/lbaas/loadbalancers/"+lbID, nil, &lbResp); err != nil {
			warnSkip(res, s.Name(), "load balancer "+lbID, err)
			continue
		}
		lbName := lbResp.LoadBalancer.Name

		var pools nhn.PoolListResponse
		if err := s.lb.GetJSON(ctx, "/v2.0/lbaas/pools", url.Values{"loadbalancer_id": {lbID}}, &pools); err != nil {
			warnSkip(res, s.Name(), "pools of "+lbID, err)
			continue
		}
		for _, p := range pools.Pools {
			var members nhn.MemberListResponse
			if err := s.lb.GetJSON(ctx, "/v2.0/lbaas/pools/"+p.ID+"/members", nil, &members); err != nil {
				warnSkip(res, s.Name(), "members of pool "+p.ID, err)
				continue
			}
			total := len(members.Members)
			if total == 0 {
				continue
			}
			online := 0
			for _, m := range members.Members {
				if m.MonitorStatus == nhn.StatusOnline {
					online++
				}
			}
			res.Add(metrics.NewSample(metricPhotoLBPoolHealth, float64(online)/float64(total), res.CollectedAt).
				WithLabel("lb_id", lbID).
				WithLabel("lb_name", lbName).
				WithLabel("pool_id", p.ID).
				WithLabel("pool_name", p.Name))
		}
		res.Succeed()
	}
}

// collectGSLB reports per-pool member failure rates across all GSLBs. Runs
// only while the gslb collector is enabled, since the rates describe the
// same resources.
func (s *ServiceOps) collectGSLB(ctx context.Context, res *metrics.Result) {
	key := s.dnsKey()
	if key == "" {
		return
	}
	base := "/dnsplus/v1.0/appkeys/" + key

	var list nhn.GSLBListResponse
	if err := s.dnsplus.GetJSON(ctx, base+"/gslbs", nil, &list); err != nil {
		warnSkip(res, s.Name(), "gslb listing", err)
		return
	}
	for _, gs := range list.GSLBs {
		var pools nhn.GSLBPoolListResponse
		if err := s.dnsplus.GetJSON(ctx, base+"/gslbs/"+gs.ID+"/pools", nil, &pools); err != nil {
			warnSkip(res, s.Name(), "pools of gslb "+gs.ID, err)
			continue
		}
		for _, p := range pools.Pools {
			total := len(p.Members)
			if total == 0 {
				continue
			}
			failed := 0
			for _, m := range p.Members {
				if m.OperatingStatus != nhn.StatusOnline {
					failed++
				}
			}
			res.Add(metrics.NewSample(metricPhotoGSLBFailureRate, float64(failed)/float64(total), res.CollectedAt).
				WithLabel("gslb_id", gs.ID).
				WithLabel("gslb_name", gs.Name).
				WithLabel("pool_id", p.ID).
				WithLabel("pool_name", p.Name))
		}
		res.Succeed()
	}
}
