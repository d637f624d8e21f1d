// Package collector implements the per-resource-type collectors that poll
// NHN Cloud APIs and normalize the responses into metric samples.
//
// Each collector owns an nhn.Client bound to its service endpoint and auth
// scheme and implements Collect(ctx) → metrics.Result. A missing or denied
// resource (404, 403) is skipped with a warning and marks the result
// partial; a failed listing or credential acquisition fails the whole cycle.
// Collect never retries; the scheduler caches whatever comes back and the
// next interval tries again.
//
// Collectors: gslb, lb, rds, cdn, obs, instance, service_operations (derived
// photo-api health) and exporter (the exporter's own process metrics).
// FamilyHelp exposes the HELP text for every family they emit.
package collector
