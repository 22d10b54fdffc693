package httpx

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"time"

	"github.com/target/mmk-alert-router/internal/domain/filter"
	"github.com/target/mmk-alert-router/internal/domain/model"
	apperrors "github.com/target/mmk-alert-router/internal/errors"
	"github.com/target/mmk-alert-router/internal/observability/metrics"
	"github.com/target/mmk-alert-router/internal/service"
)

// DispatchAPI is the dispatch surface the handlers call.
type DispatchAPI interface {
	Select(expr string) (service.Selection, error)
	Health(ctx context.Context, expr string) (*model.AggregatedResult, error)
	Push(ctx context.Context, expr string, group *model.AlertGroup) (*model.AggregatedResult, error)
}

// CounterReader exposes persisted per-plugin counters.
type CounterReader interface {
	Snapshot(ctx context.Context) ([]metrics.PluginCounter, error)
}

// HealthSnapshot exposes the background health monitor's latest result.
type HealthSnapshot interface {
	Last() (*model.AggregatedResult, time.Time)
}

const defaultMaxBodyBytes = 1 << 20

// DispatchHandlers serves the push, health and introspection endpoints.
type DispatchHandlers struct {
	Svc      DispatchAPI
	Counters CounterReader  // Optional: nil disables /api/v1/metrics
	Monitor  HealthSnapshot // Optional: nil disables /api/v1/health/last
	// MaxBodyBytes caps the push body. 0 uses 1 MiB.
	MaxBodyBytes int64
	// Timeout bounds each dispatch. 0 leaves the request context as is.
	Timeout time.Duration
	Logger  *slog.Logger
}

// StatusCode maps an aggregated status to the HTTP response status.
func StatusCode(s model.DispatchStatus) int {
	switch s {
	case model.DispatchStatusPartial:
		return http.StatusMultiStatus
	case model.DispatchStatusFailed:
		return http.StatusBadGateway
	default:
		return http.StatusOK
	}
}

func (h *DispatchHandlers) logger() *slog.Logger {
	if h.Logger != nil {
		return h.Logger
	}
	return slog.Default()
}

func (h *DispatchHandlers) dispatchContext(r *http.Request) (context.Context, context.CancelFunc) {
	if h.Timeout <= 0 {
		return context.WithCancel(r.Context())
	}
	return context.WithTimeout(r.Context(), h.Timeout)
}

// Push handles POST /api/v1/push?filter=.
func (h *DispatchHandlers) Push(w http.ResponseWriter, r *http.Request) {
	limit := h.MaxBodyBytes
	if limit <= 0 {
		limit = defaultMaxBodyBytes
	}
	body, err := io.ReadAll(http.MaxBytesReader(w, r.Body, limit))
	if err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			WriteError(w, ErrorParams{Code: http.StatusRequestEntityTooLarge, ErrCode: "payload_too_large", Err: err})
			return
		}
		WriteError(w, ErrorParams{Code: http.StatusBadRequest, ErrCode: "invalid_body", Err: err})
		return
	}

	group, err := model.ParseAlertGroup(body)
	if err != nil {
		WriteError(w, ErrorParams{Code: http.StatusBadRequest, ErrCode: "invalid_json", Err: err})
		return
	}

	ctx, cancel := h.dispatchContext(r)
	defer cancel()

	res, err := h.Svc.Push(ctx, r.URL.Query().Get("filter"), group)
	if err != nil {
		WriteServiceError(w, err)
		return
	}
	WriteJSON(w, StatusCode(res.Status), res)
}

// Health handles GET /api/v1/health?filter=.
func (h *DispatchHandlers) Health(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := h.dispatchContext(r)
	defer cancel()

	res, err := h.Svc.Health(ctx, r.URL.Query().Get("filter"))
	if err != nil {
		WriteServiceError(w, err)
		return
	}
	WriteJSON(w, StatusCode(res.Status), res)
}

type lastHealthResponse struct {
	CheckedAt time.Time `json:"checked_at"`
	*model.AggregatedResult
}

// LastHealth handles GET /api/v1/health/last.
func (h *DispatchHandlers) LastHealth(w http.ResponseWriter, _ *http.Request) {
	if h.Monitor == nil {
		WriteError(w, ErrorParams{Code: http.StatusNotFound, ErrCode: "not_found", Err: errors.New("health monitor is not running")})
		return
	}
	res, at := h.Monitor.Last()
	if res == nil {
		WriteError(w, ErrorParams{Code: http.StatusNotFound, ErrCode: "not_found", Err: errors.New("no health probe has completed yet")})
		return
	}
	WriteJSON(w, StatusCode(res.Status), lastHealthResponse{CheckedAt: at.UTC(), AggregatedResult: res})
}

type pluginsResponse struct {
	Filter  string                 `json:"filter"`
	Plugins []model.PluginIdentity `json:"plugins"`
}

// Plugins handles GET /api/v1/plugins?filter= and lists the selected identities.
func (h *DispatchHandlers) Plugins(w http.ResponseWriter, r *http.Request) {
	sel, err := h.Svc.Select(r.URL.Query().Get("filter"))
	if err != nil {
		WriteServiceError(w, err)
		return
	}
	WriteJSON(w, http.StatusOK, pluginsResponse{Filter: sel.Filter.String(), Plugins: sel.Identities()})
}

// FilterResponse is the parsed and reduced rendering of a filter expression.
type FilterResponse struct {
	Expr       string `json:"expr"`
	Parsed     string `json:"parsed"`
	Reduced    string `json:"reduced"`
	SelectsAll bool   `json:"selects_all"`
}

// DescribeFilter compiles expr and renders both trees.
func DescribeFilter(expr string) (FilterResponse, error) {
	f, err := filter.Compile(expr)
	if err != nil {
		return FilterResponse{}, apperrors.InvalidFilter(err)
	}
	out := FilterResponse{Expr: expr, Reduced: f.String(), SelectsAll: f.SelectsAll()}
	if f.Parsed != nil {
		out.Parsed = f.Parsed.String()
	}
	return out, nil
}

// Filter handles GET /api/v1/filter?expr=.
func (h *DispatchHandlers) Filter(w http.ResponseWriter, r *http.Request) {
	out, err := DescribeFilter(r.URL.Query().Get("expr"))
	if err != nil {
		WriteServiceError(w, err)
		return
	}
	WriteJSON(w, http.StatusOK, out)
}

type metricsResponse struct {
	Plugins []metrics.PluginCounter `json:"plugins"`
}

// Metrics handles GET /api/v1/metrics.
func (h *DispatchHandlers) Metrics(w http.ResponseWriter, r *http.Request) {
	if h.Counters == nil {
		WriteError(w, ErrorParams{Code: http.StatusNotFound, ErrCode: "not_found", Err: errors.New("plugin counters are disabled")})
		return
	}
	counters, err := h.Counters.Snapshot(r.Context())
	if err != nil {
		h.logger().ErrorContext(r.Context(), "read plugin counters failed", "error", err)
		WriteError(w, ErrorParams{Code: http.StatusServiceUnavailable, ErrCode: "unavailable", Err: errors.New("plugin counters unavailable")})
		return
	}
	if counters == nil {
		counters = []metrics.PluginCounter{}
	}
	WriteJSON(w, http.StatusOK, metricsResponse{Plugins: counters})
}
