// Package sched owns the collection lifecycle. It starts one worker per
// enabled collector, spaces cycles a fixed interval apart measured from
// the previous cycle's end, and writes every finished metrics.Result
// into the metric cache. Collectors never talk to each other; the cache
// is the only shared state.
package sched
