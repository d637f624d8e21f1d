package collector

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/hanmaru-ops/nhncloud-exporter/internal/metrics"
	"github.com/hanmaru-ops/nhncloud-exporter/internal/nhn"
)

func lbFixture(t *testing.T) *httptest.Server {
	t.Helper()
	mux := http.NewServeMux()
	mux.HandleFunc("/v2.0/lbaas/loadbalancers", func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"loadbalancers":[
			{"id":"lb-a","name":"edge","operating_status":"ONLINE","provisioning_status":"ACTIVE","vip_address":"10.0.0.1"},
			{"id":"lb-b","name":"internal","operating_status":"ONLINE","provisioning_status":"ACTIVE","vip_address":"10.0.0.2"},
			{"id":"lb-c","name":"batch","operating_status":"OFFLINE","provisioning_status":"PENDING_UPDATE","vip_address":"10.0.0.3"}]}`))
	})
	mux.HandleFunc("/v2.0/lbaas/listeners", func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Query().Get("loadbalancer_id") == "lb-a" {
			w.Write([]byte(`{"listeners":[{"id":"ls-1","name":"https","protocol":"TERMINATED_HTTPS","protocol_port":443,"operating_status":"ONLINE"}]}`))
			return
		}
		w.Write([]byte(`{"listeners":[]}`))
	})
	mux.HandleFunc("/v2.0/lbaas/pools", func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Query().Get("loadbalancer_id") == "lb-a" {
			w.Write([]byte(`{"pools":[{"id":"p-1","name":"web","protocol":"HTTP","operating_status":"ONLINE"}]}`))
			return
		}
		w.Write([]byte(`{"pools":[]}`))
	})
	mux.HandleFunc("/v2.0/lbaas/pools/p-1/members", func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"members":[
			{"id":"m-1","address":"192.168.0.10","protocol_port":8080,"monitor_status":"ONLINE"},
			{"id":"m-2","address":"192.168.0.11","protocol_port":8081,"monitor_status":"OFFLINE"}]}`))
	})
	return httptest.NewServer(mux)
}

func TestLoadBalancerCollect(t *testing.T) {
	srv := lbFixture(t)
	defer srv.Close()

	l := NewLoadBalancer(nhn.New(srv.URL, time.Second, nil), NewFilter([]string{"lb-a", "lb-c"}))
	res := l.Collect(context.Background())

	if res.Status != metrics.StatusOK {
		t.Errorf("Status = %q, want ok (err %v)", res.Status, res.Err)
	}

	// lb-b is excluded by the filter before any sub-query runs.
	if got := countSamples(res.Samples, metricLBOperatingStatus); got != 2 {
		t.Errorf("operating status samples = %d, want 2", got)
	}

	op := findSample(t, res.Samples, metricLBOperatingStatus, map[string]string{"lb_id": "lb-a"})
	if op.Value != 1 || op.Labels["vip_address"] != "10.0.0.1" {
		t.Errorf("lb-a operating = %+v, want value 1 vip 10.0.0.1", op)
	}

	prov := findSample(t, res.Samples, metricLBProvisioningStatus, map[string]string{"lb_id": "lb-c"})
	if prov.Value != 0 || prov.Labels["status"] != "PENDING_UPDATE" {
		t.Errorf("lb-c provisioning = %+v, want value 0 status PENDING_UPDATE", prov)
	}

	ls := findSample(t, res.Samples, metricLBListenerStatus, map[string]string{"listener_id": "ls-1"})
	if ls.Value != 1 || ls.Labels["port"] != "443" {
		t.Errorf("listener = %+v, want value 1 port 443", ls)
	}

	pm := findSample(t, res.Samples, metricLBPoolMemberStatus, map[string]string{"member_id": "m-2"})
	if pm.Value != 0 || pm.Labels["member_port"] != "8081" || pm.Labels["member_address"] != "192.168.0.11" {
		t.Errorf("member m-2 = %+v", pm)
	}
}

func TestLoadBalancerSubQueryFailure(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("/v2.0/lbaas/loadbalancers", func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"loadbalancers":[{"id":"lb-a","name":"edge","operating_status":"ONLINE","provisioning_status":"ACTIVE","vip_address":"10.0.0.1"}]}`))
	})
	mux.HandleFunc("/v2.0/lbaas/listeners", func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "denied", http.StatusForbidden)
	})
	mux.HandleFunc("/v2.0/lbaas/pools", func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"pools":[]}`))
	})
	srv := httptest.NewServer(mux)
	defer srv.Close()

	l := NewLoadBalancer(nhn.New(srv.URL, time.Second, nil), nil)
	res := l.Collect(context.Background())

	if res.Status != metrics.StatusPartial {
		t.Errorf("Status = %q, want partial", res.Status)
	}
	if got := countSamples(res.Samples, metricLBOperatingStatus); got != 1 {
		t.Errorf("operating status samples = %d, want 1 despite listener failure", got)
	}
}

func TestLoadBalancerListFailure(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
	}))
	defer srv.Close()

	l := NewLoadBalancer(nhn.New(srv.URL, time.Second, nil), nil)
	res := l.Collect(context.Background())

	if res.Status != metrics.StatusFailed {
		t.Errorf("Status = %q, want failed", res.Status)
	}
}
