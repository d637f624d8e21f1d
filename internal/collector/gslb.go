package collector

import (
	"context"
	"fmt"
	"time"

	"github.com/hanmaru-ops/nhncloud-exporter/internal/metrics"
	"github.com/hanmaru-ops/nhncloud-exporter/internal/nhn"
)

const (
	metricGSLBStatus            = "nhn_gslb_status"
	metricGSLBPoolStatus        = "nhn_gslb_pool_status"
	metricGSLBPoolMemberStatus  = "nhn_gslb_pool_member_status"
	metricGSLBHealthCheckStatus = "nhn_gslb_health_check_status"
)

var gslbHelp = map[string]string{
	metricGSLBStatus:            "GSLB operating status (1 = ONLINE).",
	metricGSLBPoolStatus:        "GSLB pool operating status (1 = ONLINE).",
	metricGSLBPoolMemberStatus:  "GSLB pool member operating status (1 = ONLINE).",
	metricGSLBHealthCheckStatus: "GSLB health check registration (1 while configured).",
}

// GSLB collects DNS Plus GSLB, pool, member and health check status. The
// DNS Plus API has no per-resource filter; every GSLB under the app key is
// reported.
type GSLB struct {
	client *nhn.Client
	appKey func() string
	now    func() time.Time
}

func NewGSLB(client *nhn.Client, appKey func() string) *GSLB {
	return &GSLB{client: client, appKey: appKey, now: time.Now}
}

func (g *GSLB) Name() string { return "gslb" }

func (g *GSLB) Collect(ctx context.Context) metrics.Result {
	res := metrics.NewResult(g.Name(), g.now())

	key := g.appKey()
	if key == "" {
		res.Fail(fmt.Errorf("%w: DNS Plus app key not configured", nhn.ErrAuth))
		return res
	}
	base := "/dnsplus/v1.0/appkeys/" + key

	var list nhn.GSLBListResponse
	if err := g.client.GetJSON(ctx, base+"/gslbs", nil, &list); err != nil {
		res.Fail(fmt.Errorf("list gslbs: %w", err))
		return res
	}

	for _, gs := range list.GSLBs {
		res.Add(metrics.NewSample(metricGSLBStatus, statusValue(gs.OperatingStatus == nhn.StatusOnline), res.CollectedAt).
			WithLabel("gslb_id", gs.ID).
			WithLabel("gslb_name", gs.Name))
		res.Succeed()

		var pools nhn.GSLBPoolListResponse
		if err := g.client.GetJSON(ctx, base+"/gslbs/"+gs.ID+"/pools", nil, &pools); err != nil {
			warnSkip(&res, g.Name(), "pools of gslb "+gs.ID, err)
			continue
		}
		for _, p := range pools.Pools {
			res.Add(metrics.NewSample(metricGSLBPoolStatus, statusValue(p.OperatingStatus == nhn.StatusOnline), res.CollectedAt).
				WithLabel("gslb_id", gs.ID).
				WithLabel("pool_id", p.ID).
				WithLabel("pool_name", p.Name))
			for _, m := range p.Members {
				res.Add(metrics.NewSample(metricGSLBPoolMemberStatus, statusValue(m.OperatingStatus == nhn.StatusOnline), res.CollectedAt).
					WithLabel("gslb_id", gs.ID).
					WithLabel("pool_id", p.ID).
					WithLabel("member_id", m.ID).
					WithLabel("member_name", m.Name))
			}
		}
	}

	var hcs nhn.HealthCheckListResponse
	if err := g.client.GetJSON(ctx, base+"/health-checks", nil, &hcs); err != nil {
		warnSkip(&res, g.Name(), "health checks", err)
		return res
	}
	for _, hc := range hcs.HealthChecks {
		res.Add(metrics.NewSample(metricGSLBHealthCheckStatus, 1, res.CollectedAt).
			WithLabel("health_check_id", hc.ID).
			WithLabel("health_check_name", hc.Name))
	}
	if len(hcs.HealthChecks) > 0 {
		res.Succeed()
	}

	return res
}
