package nhn

import "errors"

// Sentinel errors classifying API call failures. Callers match with errors.Is
// to decide whether a failure skips one resource (ErrNotFound, ErrAccessDenied)
// or fails the whole cycle (ErrAuth, ErrTransport).
var (
	// ErrNotFound maps HTTP 404: the resource does not exist or the service
	// is not activated for the project.
	ErrNotFound = errors.New("nhn: not found")

	// ErrAccessDenied maps HTTP 403: the credential lacks permission for the
	// resource.
	ErrAccessDenied = errors.New("nhn: access denied")

	// ErrAuth maps HTTP 401 and credential acquisition failures.
	ErrAuth = errors.New("nhn: authentication failed")

	// ErrTransport covers connection, timeout, decode and unclassified HTTP
	// failures.
	ErrTransport = errors.New("nhn: transport error")
)
