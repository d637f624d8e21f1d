// Package nhn is the shared HTTP client for NHN Cloud service APIs.
//
// Client wraps one service endpoint and performs JSON GET/POST and HEAD
// calls. Authentication is pluggable through AuthSource: headers are resolved
// per request, and a 401 response invalidates the source and replays the
// request once with fresh credentials.
//
// Failures are classified onto four sentinels (ErrNotFound, ErrAccessDenied,
// ErrAuth, ErrTransport) matched with errors.Is. Collectors use the first two
// to skip individual resources and the last two to fail a cycle.
//
// The wire types in types.go mirror the response shapes of the DNS Plus,
// LBaaS, RDS, CDN, object storage and compute endpoints, trimmed to the
// fields the metrics need.
package nhn
