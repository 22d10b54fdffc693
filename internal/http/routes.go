package httpx

import (
	"log/slog"
	"net/http"
	"time"
)

// RouterServices holds the dependencies of the HTTP router.
type RouterServices struct {
	Dispatch     DispatchAPI
	Counters     CounterReader  // Optional
	Monitor      HealthSnapshot // Optional
	MaxBodyBytes int64
	Timeout      time.Duration
	Logger       *slog.Logger // Optional
}

// NewRouter registers the API routes.
func NewRouter(services RouterServices) http.Handler {
	mux := http.NewServeMux()

	h := &DispatchHandlers{
		Svc:          services.Dispatch,
		Counters:     services.Counters,
		Monitor:      services.Monitor,
		MaxBodyBytes: services.MaxBodyBytes,
		Timeout:      services.Timeout,
		Logger:       services.Logger,
	}

	mux.HandleFunc("POST /api/v1/push", h.Push)
	mux.HandleFunc("GET /api/v1/health", h.Health)
	mux.HandleFunc("GET /api/v1/health/last", h.LastHealth)
	mux.HandleFunc("GET /api/v1/plugins", h.Plugins)
	mux.HandleFunc("GET /api/v1/filter", h.Filter)
	mux.HandleFunc("GET /api/v1/metrics", h.Metrics)
	mux.Handle("GET /healthz", http.HandlerFunc(healthHandler))
	mux.Handle("HEAD /healthz", http.HandlerFunc(healthHandler))

	return mux
}
