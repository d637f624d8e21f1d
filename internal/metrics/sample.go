package metrics

import "time"

// Cycle status values carried on a Result.
const (
	StatusOK      = "ok"
	StatusPartial = "partial"
	StatusFailed  = "failed"
)

// Sample is one normalized measurement: a metric family name, a label set,
// and a float value. Label keys for a given family name must form a stable
// set across all samples of that name — the exposition format requires
// consistent label dimensions per family.
type Sample struct {
	Name       string
	Labels     map[string]string
	Value      float64
	ObservedAt time.Time
}

// NewSample creates a Sample with an empty label set.
func NewSample(name string, value float64, at time.Time) Sample {
	return Sample{
		Name:       name,
		Labels:     make(map[string]string),
		Value:      value,
		ObservedAt: at,
	}
}

// WithLabel returns the sample with one label added, for chained construction.
func (s Sample) WithLabel(key, value string) Sample {
	s.Labels[key] = value
	return s
}

// Result is the outcome of one collection cycle for a single collector.
// It is produced exactly once per cycle and written to the cache whole;
// readers never observe a partially built Result.
type Result struct {
	Collector   string
	Samples     []Sample
	Status      string
	Err         error
	CollectedAt time.Time

	// Collected counts resources that were fetched and mapped successfully.
	// Skipped counts resources (or sub-queries) that failed and were dropped
	// from this cycle with a warning.
	Collected int
	Skipped   int
}

// NewResult creates an empty ok Result for the named collector.
func NewResult(collector string, at time.Time) Result {
	return Result{
		Collector:   collector,
		Status:      StatusOK,
		CollectedAt: at,
	}
}

// Add appends a sample to the result.
func (r *Result) Add(s Sample) {
	r.Samples = append(r.Samples, s)
}

// Succeed records one successfully collected resource.
func (r *Result) Succeed() {
	r.Collected++
	r.Status = statusOf(r.Collected, r.Skipped)
}

// Skip records one skipped resource or sub-query, keeping the first cause.
func (r *Result) Skip(err error) {
	r.Skipped++
	if r.Err == nil {
		r.Err = err
	}
	r.Status = statusOf(r.Collected, r.Skipped)
}

// Fail marks the whole cycle as failed, discarding any samples gathered so
// far. Used when the cycle cannot proceed at all (credential refresh failed,
// listing call failed).
func (r *Result) Fail(err error) {
	r.Samples = nil
	r.Status = StatusFailed
	r.Err = err
}

// statusOf derives the cycle status from per-resource outcomes: every
// resource failed means failed, some means partial, none means ok. A cycle
// that discovered no resources at all is vacuously ok.
func statusOf(collected, skipped int) string {
	switch {
	case skipped == 0:
		return StatusOK
	case collected == 0:
		return StatusFailed
	default:
		return StatusPartial
	}
}
