// Package config loads and watches the exporter configuration.
//
// Top-level types:
//   - Config — environment, listen_addr, log_level, collection_interval,
//     cache_ttl, http_timeout, keep_stale_samples plus the nested sections
//   - IdentityConfig — IAM auth_url, tenant_id, username; password_env and
//     storage_password_env name the environment variables holding secrets,
//     resolved by Password() and StoragePassword()
//   - EndpointsConfig — per-service API base URLs (DNS Plus, load balancer,
//     RDS, CDN, object storage, compute)
//   - AppKeysConfig / AccessKeyConfig — environment variable names for app
//     keys and the RDS access key pair, with resolver methods
//   - CollectorsConfig — per-collector Enabled flag and identifier Filter
//   - ServiceOpsConfig — resource bindings for the derived photo-api metrics
//
// Load(path) reads the optional YAML file, overlays environment variables
// (NHN_*, *_ENABLED, METRICS_*, PHOTO_API_*; environment wins), then applies
// defaults and validates enums and intervals. Secrets never live in the file:
// the file names environment variables and the getters resolve them at call
// time.
//
// Watch(ctx, path, onChange) uses fsnotify to detect file changes and calls
// onChange with the newly parsed Config. It handles the rename→create pattern
// used by atomic-save editors by re-adding the watch after the reload.
package config
