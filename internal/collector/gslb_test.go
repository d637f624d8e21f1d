package collector

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/hanmaru-ops/nhncloud-exporter/internal/metrics"
	"github.com/hanmaru-ops/nhncloud-exporter/internal/nhn"
)

func gslbFixture(t *testing.T) *httptest.Server {
	t.Helper()
	mux := http.NewServeMux()
	mux.HandleFunc("/dnsplus/v1.0/appkeys/ak/gslbs", func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"gslbs":[
			{"gslbId":"g-1","gslbName":"photo","operatingStatus":"ONLINE"},
			{"gslbId":"g-2","gslbName":"web","operatingStatus":"OFFLINE"}]}`))
	})
	mux.HandleFunc("/dnsplus/v1.0/appkeys/ak/gslbs/g-1/pools", func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"pools":[
			{"poolId":"p-1","poolName":"kr1","operatingStatus":"ONLINE","members":[
				{"memberId":"m-1","memberName":"origin-a","operatingStatus":"ONLINE"},
				{"memberId":"m-2","memberName":"origin-b","operatingStatus":"OFFLINE"}]}]}`))
	})
	mux.HandleFunc("/dnsplus/v1.0/appkeys/ak/gslbs/g-2/pools", func(w http.ResponseWriter, r *http.Request) {
		http.NotFound(w, r)
	})
	mux.HandleFunc("/dnsplus/v1.0/appkeys/ak/health-checks", func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"healthChecks":[{"healthCheckId":"hc-1","healthCheckName":"http-80"}]}`))
	})
	return httptest.NewServer(mux)
}

func TestGSLBCollect(t *testing.T) {
	srv := gslbFixture(t)
	defer srv.Close()

	g := NewGSLB(nhn.New(srv.URL, time.Second, nil), func() string { return "ak" })
	res := g.Collect(context.Background())

	// g-2's pools returned 404, so the cycle is partial but keeps g-2's own
	// status sample.
	if res.Status != metrics.StatusPartial {
		t.Errorf("Status = %q, want partial", res.Status)
	}
	if !errors.Is(res.Err, nhn.ErrNotFound) {
		t.Errorf("Err = %v, want wrapped ErrNotFound", res.Err)
	}

	if got := findSample(t, res.Samples, metricGSLBStatus, map[string]string{"gslb_id": "g-1"}); got.Value != 1 {
		t.Errorf("gslb g-1 status = %v, want 1", got.Value)
	}
	if got := findSample(t, res.Samples, metricGSLBStatus, map[string]string{"gslb_id": "g-2"}); got.Value != 0 {
		t.Errorf("gslb g-2 status = %v, want 0", got.Value)
	}
	if got := findSample(t, res.Samples, metricGSLBPoolStatus, map[string]string{"pool_id": "p-1"}); got.Value != 1 {
		t.Errorf("pool p-1 status = %v, want 1", got.Value)
	}
	if got := findSample(t, res.Samples, metricGSLBPoolMemberStatus, map[string]string{"member_id": "m-2"}); got.Value != 0 {
		t.Errorf("member m-2 status = %v, want 0", got.Value)
	}

	hc := findSample(t, res.Samples, metricGSLBHealthCheckStatus, map[string]string{"health_check_id": "hc-1"})
	if hc.Value != 1 {
		t.Errorf("health check value = %v, want 1", hc.Value)
	}
	if _, ok := hc.Labels["gslb_id"]; ok {
		t.Error("health check sample carries a gslb_id label")
	}
}

func TestGSLBListFailure(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "boom", http.StatusInternalServerError)
	}))
	defer srv.Close()

	g := NewGSLB(nhn.New(srv.URL, time.Second, nil), func() string { return "ak" })
	res := g.Collect(context.Background())

	if res.Status != metrics.StatusFailed {
		t.Errorf("Status = %q, want failed", res.Status)
	}
	if len(res.Samples) != 0 {
		t.Errorf("samples = %d, want 0 on failed listing", len(res.Samples))
	}
}

func TestGSLBMissingAppKey(t *testing.T) {
	g := NewGSLB(nhn.New("https://unreachable.invalid", time.Second, nil), func() string { return "" })
	res := g.Collect(context.Background())

	if res.Status != metrics.StatusFailed {
		t.Errorf("Status = %q, want failed", res.Status)
	}
	if !errors.Is(res.Err, nhn.ErrAuth) {
		t.Errorf("Err = %v, want wrapped ErrAuth", res.Err)
	}
}

func TestGSLBEmptyListing(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("/dnsplus/v1.0/appkeys/ak/gslbs", func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"gslbs":[]}`))
	})
	mux.HandleFunc("/dnsplus/v1.0/appkeys/ak/health-checks", func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"healthChecks":[]}`))
	})
	srv := httptest.NewServer(mux)
	defer srv.Close()

	g := NewGSLB(nhn.New(srv.URL, time.Second, nil), func() string { return "ak" })
	res := g.Collect(context.Background())

	if res.Status != metrics.StatusOK {
		t.Errorf("Status = %q, want ok for empty project", res.Status)
	}
	if len(res.Samples) != 0 {
		t.Errorf("samples = %d, want 0", len(res.Samples))
	}
}
