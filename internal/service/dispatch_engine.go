package service

import (
	"context"
	"fmt"
	"log/slog"
	"runtime/debug"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/target/mmk-alert-router/internal/core"
	"github.com/target/mmk-alert-router/internal/domain/model"
	obserrors "github.com/target/mmk-alert-router/internal/observability/errors"
)

// DispatchEngineConfig tunes the engine.
type DispatchEngineConfig struct {
	// MaxConcurrency bounds how many plugin operations run at once. 0 means unbounded.
	MaxConcurrency int
}

// DispatchEngineOptions groups dependencies for DispatchEngine.
type DispatchEngineOptions struct {
	Metrics core.PluginMetrics // Optional: per-outcome counters
	Logger  *slog.Logger       // Optional: structured logger
	Config  DispatchEngineConfig
}

// DispatchEngine runs one operation against a set of plugins concurrently and
// folds the outcomes into an AggregatedResult. Every failure mode of a single
// plugin (returned error, panic, cancellation) is contained to that plugin's outcome.
type DispatchEngine struct {
	metrics        core.PluginMetrics
	logger         *slog.Logger
	maxConcurrency int
}

// NewDispatchEngine constructs a DispatchEngine.
func NewDispatchEngine(opts DispatchEngineOptions) *DispatchEngine {
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}
	return &DispatchEngine{
		metrics:        opts.Metrics,
		logger:         logger.With("component", "dispatch_engine"),
		maxConcurrency: max(opts.Config.MaxConcurrency, 0),
	}
}

// Run invokes op once per target and returns the outcomes in target order.
// An empty target list yields no_targets without invoking op or touching metrics.
func (e *DispatchEngine) Run(ctx context.Context, targets []core.Plugin, op core.PluginOperation) model.AggregatedResult {
	if len(targets) == 0 {
		return model.Aggregate(nil)
	}

	outcomes := make([]model.PluginOutcome, len(targets))

	var g errgroup.Group
	if e.maxConcurrency > 0 {
		g.SetLimit(e.maxConcurrency)
	}
	for i, p := range targets {
		g.Go(func() error {
			finished := false
			defer func() {
				if !finished {
					outcomes[i] = e.terminated(ctx, p)
					e.record(ctx, outcomes[i])
				}
			}()
			outcomes[i] = e.runOne(ctx, p, op)
			finished = true
			e.record(ctx, outcomes[i])
			return nil
		})
	}
	// Units never return errors; failures live in outcomes.
	_ = g.Wait()

	return model.Aggregate(outcomes)
}

func (e *DispatchEngine) runOne(ctx context.Context, p core.Plugin, op core.PluginOperation) (out model.PluginOutcome) {
	var id model.PluginIdentity
	start := time.Now()

	defer func() {
		if r := recover(); r != nil {
			e.logger.ErrorContext(ctx, "plugin operation panicked",
				"plugin_name", id.Name,
				"plugin_group", id.Group,
				"plugin_type", id.Type,
				"panic", r,
				"stack", string(debug.Stack()),
			)
			out = model.NewFailedOutcome(id, fmt.Sprintf("panic: %v", r))
		}
		out.DurationMS = time.Since(start).Milliseconds()
	}()

	id = p.Meta()

	if err := ctx.Err(); err != nil {
		return model.NewFailedOutcome(id, fmt.Sprintf("not started: %v", err))
	}

	if err := op(ctx, p); err != nil {
		msg := err.Error()
		if msg == "" {
			msg = "unknown error"
		}
		e.logger.WarnContext(ctx, "plugin operation failed",
			"plugin_name", id.Name,
			"plugin_group", id.Group,
			"plugin_type", id.Type,
			"error", err,
			"error_class", obserrors.Classify(err),
		)
		return model.NewFailedOutcome(id, msg)
	}
	return model.NewOKOutcome(id)
}

// terminated builds the outcome for a unit whose goroutine exited without
// returning, e.g. via runtime.Goexit.
func (e *DispatchEngine) terminated(ctx context.Context, p core.Plugin) model.PluginOutcome {
	id := metaOf(p)
	e.logger.ErrorContext(ctx, "plugin operation terminated abnormally",
		"plugin_name", id.Name,
		"plugin_group", id.Group,
		"plugin_type", id.Type,
	)
	return model.NewFailedOutcome(id, "operation terminated abnormally")
}

func metaOf(p core.Plugin) (id model.PluginIdentity) {
	defer func() { _ = recover() }()
	return p.Meta()
}

func (e *DispatchEngine) record(ctx context.Context, o model.PluginOutcome) {
	if e.metrics == nil {
		return
	}
	defer func() {
		if r := recover(); r != nil {
			e.logger.WarnContext(ctx, "plugin metrics sink panicked",
				"plugin_name", o.Identity.Name,
				"panic", r,
			)
		}
	}()

	if o.Succeeded() {
		e.metrics.RecordSuccess(o.Identity)
		return
	}
	e.metrics.RecordFailure(o.Identity)
}
