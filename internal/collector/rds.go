package collector

import (
	"context"
	"fmt"
	"net/url"
	"time"

	"github.com/hanmaru-ops/nhncloud-exporter/internal/metrics"
	"github.com/hanmaru-ops/nhncloud-exporter/internal/nhn"
)

const (
	metricRDSInstanceStatus = "nhn_rds_instance_status"
	metricRDSCPUUsage       = "nhn_rds_cpu_usage_percent"
	metricRDSNetworkRecv    = "nhn_rds_network_receive_bytes"
	metricRDSNetworkSend    = "nhn_rds_network_send_bytes"
)

var rdsHelp = map[string]string{
	metricRDSInstanceStatus: "RDS instance status (1 = available).",
	metricRDSCPUUsage:       "RDS instance CPU usage percent.",
	metricRDSNetworkRecv:    "RDS instance network bytes received.",
	metricRDSNetworkSend:    "RDS instance network bytes sent.",
}

// rdsStatFamilies maps the metric-statistics names queried per instance to
// their exposition families.
var rdsStatFamilies = map[string]string{
	"CPU_USAGE":    metricRDSCPUUsage,
	"NETWORK_RECV": metricRDSNetworkRecv,
	"NETWORK_SENT": metricRDSNetworkSend,
}

// RDS collects database instance status from the v3 API and per-instance
// utilisation statistics from the v2 metric-statistics API.
type RDS struct {
	client *nhn.Client
	filter Filter
	now    func() time.Time
}

func NewRDS(client *nhn.Client, filter Filter) *RDS {
	return &RDS{client: client, filter: filter, now: time.Now}
}

func (r *RDS) Name() string { return "rds" }

func (r *RDS) Collect(ctx context.Context) metrics.Result {
	res := metrics.NewResult(r.Name(), r.now())

	var list nhn.DBInstanceListResponse
	if err := r.client.GetJSON(ctx, "/rds/api/v3.0/db-instances", nil, &list); err != nil {
		res.Fail(fmt.Errorf("list db instances: %w", err))
		return res
	}

	for _, inst := range list.DBInstances {
		if !r.filter.Admit(inst.ID) {
			continue
		}
		res.Add(metrics.NewSample(metricRDSInstanceStatus, statusValue(inst.Status == nhn.StatusAvailable), res.CollectedAt).
			WithLabel("instance_id", inst.ID).
			WithLabel("instance_name", inst.Name).
			WithLabel("db_engine", inst.Engine).
			WithLabel("status", inst.Status))
		res.Succeed()

		r.collectStatistics(ctx, &res, inst)
	}
	return res
}

func (r *RDS) collectStatistics(ctx context.Context, res *metrics.Result, inst nhn.DBInstance) {
	q := url.Values{
		"dbInstanceId": {inst.ID},
		"metricName":   {"CPU_USAGE", "NETWORK_RECV", "NETWORK_SENT"},
		"period":       {"1m"},
	}
	var stats nhn.MetricStatisticsResponse
	if err := r.client.GetJSON(ctx, "/rds/api/v2.0/metric-statistics", q, &stats); err != nil {
		warnSkip(res, r.Name(), "statistics of "+inst.ID, err)
		return
	}
	for _, st := range stats.MetricStatistics {
		family, ok := rdsStatFamilies[st.MetricName]
		if !ok {
			continue
		}
		res.Add(metrics.NewSample(family, float64(st.Value), res.CollectedAt).
			WithLabel("instance_id", inst.ID).
			WithLabel("instance_name", inst.Name))
	}
}
