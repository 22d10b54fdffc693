package service

import (
	"context"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/target/mmk-alert-router/internal/core"
	"github.com/target/mmk-alert-router/internal/domain/filter"
	"github.com/target/mmk-alert-router/internal/domain/model"
	apperrors "github.com/target/mmk-alert-router/internal/errors"
	"github.com/target/mmk-alert-router/internal/observability/metrics"
	"github.com/target/mmk-alert-router/internal/observability/statsd"
)

// DispatchServiceOptions groups dependencies for DispatchService.
type DispatchServiceOptions struct {
	Plugins core.PluginSelector // Required: registry to select targets from
	Engine  *DispatchEngine     // Optional: defaults to an engine without metrics
	Stats   statsd.Sink         // Optional: dispatch-level metrics
	Logger  *slog.Logger        // Optional: structured logger
}

// DispatchService selects plugins with a filter expression and fans an
// operation out to them.
type DispatchService struct {
	plugins core.PluginSelector
	engine  *DispatchEngine
	stats   statsd.Sink
	logger  *slog.Logger
	newID   func() string
}

// NewDispatchService constructs a DispatchService. It panics if Plugins is nil.
func NewDispatchService(opts DispatchServiceOptions) *DispatchService {
	if opts.Plugins == nil {
		panic("dispatch service: plugin selector is required")
	}
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}
	engine := opts.Engine
	if engine == nil {
		engine = NewDispatchEngine(DispatchEngineOptions{Logger: logger})
	}
	return &DispatchService{
		plugins: opts.Plugins,
		engine:  engine,
		stats:   opts.Stats,
		logger:  logger.With("component", "dispatch_service"),
		newID:   uuid.NewString,
	}
}

// Selection is the outcome of resolving a filter against the registry.
type Selection struct {
	Filter  *filter.Filter
	Targets []core.Plugin
}

// Identities returns the identities of the selected plugins in order.
func (s Selection) Identities() []model.PluginIdentity {
	ids := make([]model.PluginIdentity, len(s.Targets))
	for i, p := range s.Targets {
		ids[i] = p.Meta()
	}
	return ids
}

// Select compiles expr and returns the plugins it selects. The only error is
// an invalid_filter AppError.
func (s *DispatchService) Select(expr string) (Selection, error) {
	f, err := filter.Compile(expr)
	if err != nil {
		return Selection{}, apperrors.InvalidFilter(err)
	}
	return Selection{Filter: f, Targets: s.plugins.Select(f.Match)}, nil
}

// Health runs a health probe against every plugin expr selects.
func (s *DispatchService) Health(ctx context.Context, expr string) (*model.AggregatedResult, error) {
	return s.dispatch(ctx, model.DispatchOperationHealth, expr, core.HealthOperation())
}

// Push delivers group to every plugin expr selects. group is passed to each
// plugin unmodified.
func (s *DispatchService) Push(ctx context.Context, expr string, group *model.AlertGroup) (*model.AggregatedResult, error) {
	if group == nil {
		return nil, apperrors.ValidationField("body", "alert group is required")
	}
	return s.dispatch(ctx, model.DispatchOperationPush, expr, core.PushOperation(group))
}

func (s *DispatchService) dispatch(
	ctx context.Context,
	op model.DispatchOperation,
	expr string,
	fn core.PluginOperation,
) (*model.AggregatedResult, error) {
	sel, err := s.Select(expr)
	if err != nil {
		s.logger.InfoContext(ctx, "rejected invalid filter", "operation", op, "filter", expr, "error", err)
		metrics.EmitDispatch(s.stats, metrics.DispatchMetric{Operation: string(op), Status: "rejected", Err: err})
		return nil, err
	}

	id := s.newID()
	start := time.Now()
	res := s.engine.Run(ctx, sel.Targets, fn)
	res.DispatchID = id
	res.Operation = op
	res.Filter = sel.Filter.String()

	ok, failed := res.Counts()
	level := slog.LevelInfo
	if failed > 0 {
		level = slog.LevelWarn
	}
	s.logger.Log(ctx, level, "dispatch completed",
		"dispatch_id", id,
		"operation", op,
		"filter", res.Filter,
		"status", res.Status,
		"targets", len(sel.Targets),
		"succeeded", ok,
		"failed", failed,
	)
	metrics.EmitDispatch(s.stats, metrics.DispatchMetric{
		Operation: string(op),
		Status:    string(res.Status),
		Targets:   len(sel.Targets),
		Failed:    failed,
		Duration:  time.Since(start),
	})

	return &res, nil
}
