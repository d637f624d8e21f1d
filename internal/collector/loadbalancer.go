package collector

import (
	"context"
	"fmt"
	"net/url"
	"strconv"
	"time"

	"github.com/hanmaru-ops/nhncloud-exporter/internal/metrics"
	"github.com/hanmaru-ops/nhncloud-exporter/internal/nhn"
)

const (
	metricLBOperatingStatus    = "nhn_lb_operating_status"
	metricLBProvisioningStatus = "nhn_lb_provisioning_status"
	metricLBListenerStatus     = "nhn_lb_listener_status"
	metricLBPoolStatus         = "nhn_lb_pool_status"
	metricLBPoolMemberStatus   = "nhn_lb_pool_member_status"
)

var lbHelp = map[string]string{
	metricLBOperatingStatus:    "Load balancer operating status (1 = ONLINE).",
	metricLBProvisioningStatus: "Load balancer provisioning status (1 = ACTIVE).",
	metricLBListenerStatus:     "Listener operating status (1 = ONLINE).",
	metricLBPoolStatus:         "Load balancer pool operating status (1 = ONLINE).",
	metricLBPoolMemberStatus:   "Pool member monitor status (1 = ONLINE).",
}

// LoadBalancer collects LBaaS load balancer, listener, pool and member
// health over the token-authenticated network API.
type LoadBalancer struct {
	client *nhn.Client
	filter Filter
	now    func() time.Time
}

func NewLoadBalancer(client *nhn.Client, filter Filter) *LoadBalancer {
	return &LoadBalancer{client: client, filter: filter, now: time.Now}
}

func (l *LoadBalancer) Name() string { return "lb" }

func (l *LoadBalancer) Collect(ctx context.Context) metrics.Result {
	res := metrics.NewResult(l.Name(), l.now())

	var list nhn.LoadBalancerListResponse
	if err := l.client.GetJSON(ctx, "/v2.0/lbaas/loadbalancers", nil, &list); err != nil {
		res.Fail(fmt.Errorf("list load balancers: %w", err))
		return res
	}

	for _, lb := range list.LoadBalancers {
		if !l.filter.Admit(lb.ID) {
			continue
		}
		res.Add(metrics.NewSample(metricLBOperatingStatus, statusValue(lb.OperatingStatus == nhn.StatusOnline), res.CollectedAt).
			WithLabel("lb_id", lb.ID).
			WithLabel("lb_name", lb.Name).
			WithLabel("vip_address", lb.VIPAddress))
		res.Add(metrics.NewSample(metricLBProvisioningStatus, statusValue(lb.ProvisioningStatus == nhn.StatusActive), res.CollectedAt).
			WithLabel("lb_id", lb.ID).
			WithLabel("lb_name", lb.Name).
			WithLabel("status", lb.ProvisioningStatus))
		res.Succeed()

		l.collectListeners(ctx, &res, lb.ID)
		l.collectPools(ctx, &res, lb.ID)
	}
	return res
}

func (l *LoadBalancer) collectListeners(ctx context.Context, res *metrics.Result, lbID string) {
	var list nhn.ListenerListResponse
	q := url.Values{"loadbalancer_id": {lbID}}
	if err := l.client.GetJSON(ctx, "/v2.0/lbaas/listeners", q, &list); err != nil {
		warnSkip(res, l.Name(), "listeners of "+lbID, err)
		return
	}
	for _, ln := range list.Listeners {
		res.Add(metrics.NewSample(metricLBListenerStatus, statusValue(ln.OperatingStatus == nhn.StatusOnline), res.CollectedAt).
			WithLabel("lb_id", lbID).
			WithLabel("listener_id", ln.ID).
			WithLabel("listener_name", ln.Name).
			WithLabel("protocol", ln.Protocol).
			WithLabel("port", strconv.Itoa(ln.ProtocolPort)))
	}
}

func (l *LoadBalancer) collectPools(ctx context.Context, res *metrics.Result, lbID string) {
	var list nhn.PoolListResponse
	q := url.Values{"loadbalancer_id": {lbID}}
	if err := l.client.GetJSON(ctx, "/v2.0/lbaas/pools", q, &list); err != nil {
		warnSkip(res, l.Name(), "pools of "+lbID, err)
		return
	}
	for _, p := range list.Pools {
		res.Add(metrics.NewSample(metricLBPoolStatus, statusValue(p.OperatingStatus == nhn.StatusOnline), res.CollectedAt).
			WithLabel("lb_id", lbID).
			WithLabel("pool_id", p.ID).
			WithLabel("pool_name", p.Name).
			WithLabel("protocol", p.Protocol))

		var members nhn.MemberListResponse
		if err := l.client.GetJSON(ctx, "/v2.0/lbaas/pools/"+p.ID+"/members", nil, &members); err != nil {
			warnSkip(res, l.Name(), "members of pool "+p.ID, err)
			continue
		}
		for _, m := range members.Members {
			res.Add(metrics.NewSample(metricLBPoolMemberStatus, statusValue(m.MonitorStatus == nhn.StatusOnline), res.CollectedAt).
				WithLabel("lb_id", lbID).
				WithLabel("pool_id", p.ID).
				WithLabel("member_id", m.ID).
				WithLabel("member_address", m.Address).
				WithLabel("member_port", strconv.Itoa(m.ProtocolPort)))
		}
	}
}
