package collector

import (
	"context"
	"fmt"
	"time"

	"github.com/hanmaru-ops/nhncloud-exporter/internal/metrics"
	"github.com/hanmaru-ops/nhncloud-exporter/internal/nhn"
)

const metricInstanceStatus = "nhn_instance_status"

var instanceHelp = map[string]string{
	metricInstanceStatus: "Compute instance status (1 = ACTIVE).",
}

// Instance collects compute instance status from the compute API.
type Instance struct {
	client *nhn.Client
	filter Filter
	now    func() time.Time
}

func NewInstance(client *nhn.Client, filter Filter) *Instance {
	return &Instance{client: client, filter: filter, now: time.Now}
}

func (i *Instance) Name() string { return "instance" }

func (i *Instance) Collect(ctx context.Context) metrics.Result {
	res := metrics.NewResult(i.Name(), i.now())

	var list nhn.ServerListResponse
	if err := i.client.GetJSON(ctx, "/v2.0/servers", nil, &list); err != nil {
		res.Fail(fmt.Errorf("list servers: %w", err))
		return res
	}

	for _, srv := range list.Servers {
		if !i.filter.Admit(srv.ID) {
			continue
		}
		res.Add(metrics.NewSample(metricInstanceStatus, statusValue(srv.Status == nhn.StatusActive), res.CollectedAt).
			WithLabel("instance_id", srv.ID).
			WithLabel("instance_name", srv.Name).
			WithLabel("status", srv.Status).
			WithLabel("flavor_id", srv.Flavor.ID))
		res.Succeed()
	}
	return res
}
