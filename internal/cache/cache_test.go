package cache

import (
	"errors"
	"testing"
	"time"

	"github.com/hanmaru-ops/nhncloud-exporter/internal/metrics"
)

func okResult(collector string, at time.Time, sampleNames ...string) metrics.Result {
	res := metrics.NewResult(collector, at)
	for _, name := range sampleNames {
		res.Add(metrics.NewSample(name, 1, at))
		res.Succeed()
	}
	return res
}

func failedResult(collector string, at time.Time) metrics.Result {
	res := metrics.NewResult(collector, at)
	res.Fail(errors.New("listing failed"))
	return res
}

func TestPutGet(t *testing.T) {
	now := time.Now()
	c := New(30*time.Second, true)
	c.now = func() time.Time { return now }

	c.Put(okResult("gslb", now, "nhn_gslb_status"))

	e, ok := c.Get("gslb")
	if !ok {
		t.Fatal("Get returned no entry")
	}
	if e.Stale {
		t.Error("fresh entry marked stale")
	}
	if len(e.Result.Samples) != 1 || e.Result.Samples[0].Name != "nhn_gslb_status" {
		t.Errorf("samples = %+v", e.Result.Samples)
	}
	if !e.UpdatedAt.Equal(now) || !e.LastSuccess.Equal(now) {
		t.Errorf("UpdatedAt = %v, LastSuccess = %v, want %v", e.UpdatedAt, e.LastSuccess, now)
	}

	if _, ok := c.Get("lb"); ok {
		t.Error("Get returned an entry for an unknown collector")
	}
}

func TestPutOverwritesWholeSnapshot(t *testing.T) {
	now := time.Now()
	c := New(30*time.Second, true)
	c.now = func() time.Time { return now }

	c.Put(okResult("lb", now, "nhn_lb_operating_status", "nhn_lb_pool_status"))
	c.Put(okResult("lb", now.Add(time.Minute), "nhn_lb_operating_status"))

	e, _ := c.Get("lb")
	// Replacement, not merge: the pool sample from the first cycle is gone.
	if len(e.Result.Samples) != 1 {
		t.Errorf("samples after overwrite = %d, want 1", len(e.Result.Samples))
	}
}

func TestStaleMarkedNotEvicted(t *testing.T) {
	now := time.Now()
	c := New(30*time.Second, true)
	c.now = func() time.Time { return now }

	c.Put(okResult("cdn", now, "nhn_cdn_service_status"))

	c.now = func() time.Time { return now.Add(31 * time.Second) }
	e, ok := c.Get("cdn")
	if !ok {
		t.Fatal("entry evicted after TTL")
	}
	if !e.Stale {
		t.Error("entry not marked stale after TTL")
	}
	if len(e.Result.Samples) != 1 {
		t.Errorf("stale entry lost its samples: %d", len(e.Result.Samples))
	}
	if c.Count() != 1 {
		t.Errorf("Count = %d, want 1", c.Count())
	}
}

func TestFailedCycleKeepsPreviousSamples(t *testing.T) {
	t0 := time.Now()
	c := New(30*time.Second, true)
	c.now = func() time.Time { return t0 }

	c.Put(okResult("cdn", t0, "nhn_cdn_service_status"))

	t1 := t0.Add(60 * time.Second)
	c.now = func() time.Time { return t1 }
	c.Put(failedResult("cdn", t1))

	e, _ := c.Get("cdn")
	if e.Result.Status != metrics.StatusFailed {
		t.Errorf("Status = %q, want failed", e.Result.Status)
	}
	if e.Result.Err == nil {
		t.Error("Err lost on failed cycle")
	}
	if len(e.Result.Samples) != 1 {
		t.Errorf("samples = %d, want previous cycle's 1", len(e.Result.Samples))
	}
	if !e.UpdatedAt.Equal(t1) {
		t.Errorf("UpdatedAt = %v, want %v", e.UpdatedAt, t1)
	}
	// Staleness is measured from the last successful refresh, not the
	// failed write.
	if !e.LastSuccess.Equal(t0) {
		t.Errorf("LastSuccess = %v, want %v", e.LastSuccess, t0)
	}
	if !e.Stale {
		t.Error("entry should be stale, last success is beyond the TTL")
	}
}

func TestKeepStaleDisabled(t *testing.T) {
	t0 := time.Now()
	c := New(30*time.Second, false)
	c.now = func() time.Time { return t0 }

	c.Put(okResult("obs", t0, "nhn_obs_container_storage_bytes"))
	c.Put(failedResult("obs", t0.Add(time.Second)))

	e, _ := c.Get("obs")
	if len(e.Result.Samples) != 0 {
		t.Errorf("samples = %d, want 0 with keep-stale off", len(e.Result.Samples))
	}
	if !e.Stale {
		t.Error("sampleless failed entry should read as stale")
	}
}

func TestFailedFirstCycle(t *testing.T) {
	now := time.Now()
	c := New(30*time.Second, true)
	c.now = func() time.Time { return now }

	c.Put(failedResult("rds", now))

	e, ok := c.Get("rds")
	if !ok {
		t.Fatal("failed cycle not cached")
	}
	if len(e.Result.Samples) != 0 {
		t.Errorf("samples = %d, want 0", len(e.Result.Samples))
	}
	if !e.Stale {
		t.Error("first failed cycle should read as stale")
	}
}

func TestListSortedByCollector(t *testing.T) {
	now := time.Now()
	c := New(30*time.Second, true)
	c.now = func() time.Time { return now }

	for _, name := range []string{"lb", "cdn", "gslb"} {
		c.Put(okResult(name, now, "nhn_"+name+"_x"))
	}

	var got []string
	for _, e := range c.List() {
		got = append(got, e.Result.Collector)
	}
	want := []string{"cdn", "gslb", "lb"}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("List order = %v, want %v", got, want)
		}
	}
}
