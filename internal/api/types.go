package api

// InfoResponse is the payload for GET /.
type InfoResponse struct {
	Name            string `json:"name"`
	Version         string `json:"version"`
	Environment     string `json:"environment"`
	MetricsEndpoint string `json:"metrics_endpoint"`
	HealthEndpoint  string `json:"health_endpoint"`
}

// HealthResponse is the payload for GET /health.
type HealthResponse struct {
	Status string `json:"status"`
}

// errorResponse is a generic JSON error body.
type errorResponse struct {
	Error string `json:"error"`
}
