package collector

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/hanmaru-ops/nhncloud-exporter/internal/metrics"
	"github.com/hanmaru-ops/nhncloud-exporter/internal/nhn"
)

const metricCDNServiceStatus = "nhn_cdn_service_status"

var cdnHelp = map[string]string{
	metricCDNServiceStatus: "CDN service status (1 = ACTIVE).",
}

// CDN collects service status from the CDN API. A 404 on the listing is
// normal for projects without CDN in use and yields an empty result rather
// than a failure.
type CDN struct {
	client *nhn.Client
	appKey func() string
	filter Filter
	now    func() time.Time
}

func NewCDN(client *nhn.Client, appKey func() string, filter Filter) *CDN {
	return &CDN{client: client, appKey: appKey, filter: filter, now: time.Now}
}

func (c *CDN) Name() string { return "cdn" }

func (c *CDN) Collect(ctx context.Context) metrics.Result {
	res := metrics.NewResult(c.Name(), c.now())

	key := c.appKey()
	if key == "" {
		res.Fail(fmt.Errorf("%w: CDN app key not configured", nhn.ErrAuth))
		return res
	}

	var list nhn.CDNServiceListResponse
	if err := c.client.GetJSON(ctx, "/v2.0/appKeys/"+key+"/services", nil, &list); err != nil {
		if errors.Is(err, nhn.ErrNotFound) {
			slog.Warn("collector: cdn service listing returned 404, service not in use", "collector", c.Name())
			return res
		}
		res.Fail(fmt.Errorf("list cdn services: %w", err))
		return res
	}

	for _, svc := range list.Services {
		id := svc.Ident()
		if !c.filter.Admit(id) {
			continue
		}
		res.Add(metrics.NewSample(metricCDNServiceStatus, statusValue(svc.Status == nhn.StatusActive), res.CollectedAt).
			WithLabel("service_id", id).
			WithLabel("service_name", svc.Title()).
			WithLabel("domain", svc.Domain))
		res.Succeed()
	}
	return res
}
