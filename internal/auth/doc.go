// Package auth issues and caches NHN Cloud IAM tokens and builds the
// per-service auth header sources.
//
// Provider posts to {auth_url}/tokens with tenant id and password
// credentials and caches the returned token until five minutes before its
// expiry. Two schemes are cached independently: "identity" uses the IAM
// password, "storage" uses the object storage API password (falling back to
// the IAM password with a warning) and additionally captures the
// object-store endpoint from the service catalog. Concurrent acquisitions
// collapse into one issuance via singleflight.
//
// The source constructors adapt credentials to nhn.AuthSource:
//   - TokenSource / StorageSource — X-Auth-Token per scheme
//   - AppKeySource — X-TC-APP-KEY resolved per request
//   - RDSSource — app key plus access key pair, or app key plus IAM token
//     when the pair is not configured
//
// A 401 from a service API invalidates the cached token through the source,
// so the replayed request runs with a freshly issued one.
package auth
