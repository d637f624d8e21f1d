// Package api implements the exporter's HTTP surface.
//
// New(env, cache, help) returns an http.Handler that serves:
//
//	GET /         — static service info (name, version, environment)
//	GET /health   — process liveness, always 200 while the front is up
//	GET /metrics  — Prometheus text exposition rendered from the cache
//
// All endpoints:
//   - Return 405 for non-GET methods
//   - Block only on a cache read, never on an upstream call
//
// /metrics always answers 200 with whatever is cached, including stale
// snapshots retained across failed cycles and an empty body before the
// first collection completes.
package api
