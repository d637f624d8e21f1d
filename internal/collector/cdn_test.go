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

func TestCDNCollect(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/v2.0/appKeys/cdn-ak/services" {
			t.Errorf("path = %q", r.URL.Path)
		}
		w.Write([]byte(`{"services":[
			{"serviceId":"svc-1","serviceName":"photo-cdn","domain":"img.example.com","status":"ACTIVE","appKey":"k1"},
			{"serviceId":"svc-2","serviceName":"web-cdn","domain":"www.example.com","status":"SUSPENDED","appKey":"k2"},
			{"serviceId":"svc-3","serviceName":"old-cdn","domain":"old.example.com","status":"ACTIVE","appKey":"k3"}]}`))
	}))
	defer srv.Close()

	c := NewCDN(nhn.New(srv.URL, time.Second, nil), func() string { return "cdn-ak" },
		NewFilter([]string{"svc-1", "svc-2"}))
	res := c.Collect(context.Background())

	if res.Status != metrics.StatusOK {
		t.Errorf("Status = %q, want ok", res.Status)
	}
	if got := countSamples(res.Samples, metricCDNServiceStatus); got != 2 {
		t.Errorf("service samples = %d, want 2 after filter", got)
	}

	active := findSample(t, res.Samples, metricCDNServiceStatus, map[string]string{"service_id": "svc-1"})
	if active.Value != 1 || active.Labels["domain"] != "img.example.com" {
		t.Errorf("svc-1 = %+v", active)
	}
	if got := findSample(t, res.Samples, metricCDNServiceStatus, map[string]string{"service_id": "svc-2"}); got.Value != 0 {
		t.Errorf("suspended service value = %v, want 0", got.Value)
	}
}

func TestCDNListingNotFoundIsOK(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.NotFound(w, r)
	}))
	defer srv.Close()

	c := NewCDN(nhn.New(srv.URL, time.Second, nil), func() string { return "cdn-ak" }, nil)
	res := c.Collect(context.Background())

	// 404 on the listing means CDN is simply not in use for this project.
	if res.Status != metrics.StatusOK {
		t.Errorf("Status = %q, want ok", res.Status)
	}
	if len(res.Samples) != 0 {
		t.Errorf("samples = %d, want 0", len(res.Samples))
	}
	if res.Err != nil {
		t.Errorf("Err = %v, want nil", res.Err)
	}
}

func TestCDNListingForbiddenFails(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "denied", http.StatusForbidden)
	}))
	defer srv.Close()

	c := NewCDN(nhn.New(srv.URL, time.Second, nil), func() string { return "cdn-ak" }, nil)
	res := c.Collect(context.Background())

	if res.Status != metrics.StatusFailed {
		t.Errorf("Status = %q, want failed", res.Status)
	}
	if !errors.Is(res.Err, nhn.ErrAccessDenied) {
		t.Errorf("Err = %v, want wrapped ErrAccessDenied", res.Err)
	}
}

func TestCDNAlternateFieldNames(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"services":[{"id":"alt-1","name":"alt-cdn","domain":"alt.example.com","status":"ACTIVE","appKey":"k9"}]}`))
	}))
	defer srv.Close()

	c := NewCDN(nhn.New(srv.URL, time.Second, nil), func() string { return "cdn-ak" }, nil)
	res := c.Collect(context.Background())

	got := findSample(t, res.Samples, metricCDNServiceStatus, map[string]string{"service_id": "alt-1"})
	if got.Labels["service_name"] != "alt-cdn" {
		t.Errorf("service_name = %q, want alt-cdn", got.Labels["service_name"])
	}
}
