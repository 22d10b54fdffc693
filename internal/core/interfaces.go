package core

import (
	"context"
	"errors"

	"github.com/target/mmk-alert-router/internal/domain/model"
)

// This file holds the ports the dispatch service depends on. Sinks live under
// internal/adapters/plugins and are wired to these interfaces in bootstrap.

// Plugin is the capability set every sink implements.
//
// Meta must be pure and safe for concurrent use. Initialize is called exactly
// once before the plugin is registered. Health and Push may be called
// concurrently and repeatedly, including for overlapping requests; the plugin
// owns whatever synchronization its resources need. Push makes a single
// delivery attempt and is never retried by the caller.
type Plugin interface {
	Meta() model.PluginIdentity
	Initialize(ctx context.Context) error
	Health(ctx context.Context) error
	Push(ctx context.Context, group *model.AlertGroup) error
}

// PluginOperation is one unit of work the dispatch engine runs against a plugin.
type PluginOperation func(ctx context.Context, p Plugin) error

// HealthOperation probes the plugin.
func HealthOperation() PluginOperation {
	return func(ctx context.Context, p Plugin) error { return p.Health(ctx) }
}

// PushOperation delivers group to the plugin.
func PushOperation(group *model.AlertGroup) PluginOperation {
	return func(ctx context.Context, p Plugin) error { return p.Push(ctx, group) }
}

// PluginMetrics receives one success or failure per dispatched outcome.
// Implementations should not block; the engine swallows any panic they raise.
type PluginMetrics interface {
	RecordSuccess(id model.PluginIdentity)
	RecordFailure(id model.PluginIdentity)
}

// PluginSelector returns the registered plugins a predicate selects, in registration order.
type PluginSelector interface {
	Select(match func(model.PluginIdentity) bool) []Plugin
}

// ErrPluginNotInitialized is returned by plugins whose Health or Push is
// called before a successful Initialize.
var ErrPluginNotInitialized = errors.New("plugin not initialized")
