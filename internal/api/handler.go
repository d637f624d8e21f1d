package api

import (
	"encoding/json"
	"log/slog"
	"net/http"

	"github.com/hanmaru-ops/nhncloud-exporter/internal/cache"
	"github.com/hanmaru-ops/nhncloud-exporter/internal/export"
)

const (
	serviceName    = "NHN Cloud Exporter"
	serviceVersion = "1.0.0"
)

// Handler is the HTTP handler for the exporter's three endpoints.
// It reads snapshots from the metric cache and never contacts an
// upstream API itself.
type Handler struct {
	env   string
	cache *cache.Cache
	help  func(name string) string
	mux   *http.ServeMux
}

// New creates a Handler wired to the given cache and registers all routes.
// help supplies the # HELP text per metric family for the exposition.
func New(env string, c *cache.Cache, help func(name string) string) http.Handler {
	h := &Handler{env: env, cache: c, help: help, mux: http.NewServeMux()}

	h.mux.HandleFunc("/", h.root)
	h.mux.HandleFunc("/health", h.health)
	h.mux.HandleFunc("/metrics", h.metrics)

	return h
}

func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	h.mux.ServeHTTP(w, r)
}

// --- route handlers ---------------------------------------------------------

// root returns GET / — static service info.
func (h *Handler) root(w http.ResponseWriter, r *http.Request) {
	if r.URL.Path != "/" {
		// "/" is a subtree pattern; anything unrouted lands here.
		jsonErr(w, http.StatusNotFound, "not found")
		return
	}
	if r.Method != http.MethodGet {
		jsonErr(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}

	jsonResp(w, http.StatusOK, InfoResponse{
		Name:            serviceName,
		Version:         serviceVersion,
		Environment:     h.env,
		MetricsEndpoint: "/metrics",
		HealthEndpoint:  "/health",
	})
}

// health returns GET /health — process liveness, independent of collector
// health.
func (h *Handler) health(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		jsonErr(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}
	jsonResp(w, http.StatusOK, HealthResponse{Status: "healthy"})
}

// metrics returns GET /metrics — the exposition rendered from whatever is
// cached right now. Stale and failed entries are served as-is; an empty
// cache yields an empty 200 body.
func (h *Handler) metrics(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		jsonErr(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}

	body, err := export.Render(h.cache.List(), h.help)
	if err != nil {
		slog.Error("api: metrics render failed", "err", err)
		w.Header().Set("Content-Type", "text/plain; charset=utf-8")
		w.WriteHeader(http.StatusInternalServerError)
		w.Write([]byte("# Error collecting metrics\n")) //nolint:errcheck
		return
	}

	w.Header().Set("Content-Type", export.ContentType())
	w.WriteHeader(http.StatusOK)
	w.Write(body) //nolint:errcheck
}

// --- helpers ----------------------------------------------------------------

func jsonResp(w http.ResponseWriter, code int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	json.NewEncoder(w).Encode(v) //nolint:errcheck
}

func jsonErr(w http.ResponseWriter, code int, msg string) {
	jsonResp(w, code, errorResponse{Error: msg})
}
