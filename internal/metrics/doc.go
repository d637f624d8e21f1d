// Package metrics defines the shared types carried between collectors, the
// cache, and the exporter. These are the canonical in-memory representations
// of collected measurement data, separate from the exposition wire format.
package metrics
