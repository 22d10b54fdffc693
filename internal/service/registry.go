package service

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"runtime/debug"

	"golang.org/x/sync/errgroup"

	"github.com/target/mmk-alert-router/internal/core"
	"github.com/target/mmk-alert-router/internal/domain/model"
)

// ErrPluginInitFailed is returned by NewPluginRegistry when RequireAll is set
// and at least one plugin failed to initialize.
var ErrPluginInitFailed = errors.New("plugin registry: plugin initialization failed")

// ExcludedPlugin records a plugin left out of the registry and why.
type ExcludedPlugin struct {
	Identity model.PluginIdentity
	Err      error
}

// PluginRegistryOptions configures NewPluginRegistry.
type PluginRegistryOptions struct {
	Plugins []core.Plugin // in declaration order
	Logger  *slog.Logger
	// RequireAll turns any initialization failure into a startup error.
	RequireAll bool
}

// PluginRegistry is the read-only set of initialized plugins. It is built once
// at startup, so Select needs no locking.
type PluginRegistry struct {
	plugins  []core.Plugin
	excluded []ExcludedPlugin
	logger   *slog.Logger
}

var _ core.PluginSelector = (*PluginRegistry)(nil)

// NewPluginRegistry initializes every plugin concurrently and keeps the ones
// that succeeded, preserving declaration order. Duplicate names are excluded
// after the first occurrence.
func NewPluginRegistry(ctx context.Context, opts PluginRegistryOptions) (*PluginRegistry, error) {
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}
	logger = logger.With("component", "plugin_registry")

	candidates, excluded := dedupePlugins(opts.Plugins)

	initErrs := make([]error, len(candidates))
	var g errgroup.Group
	for i, p := range candidates {
		g.Go(func() error {
			initErrs[i] = initializePlugin(ctx, p)
			return nil
		})
	}
	_ = g.Wait()

	reg := &PluginRegistry{logger: logger}
	for i, p := range candidates {
		id := p.Meta()
		if err := initErrs[i]; err != nil {
			excluded = append(excluded, ExcludedPlugin{Identity: id, Err: err})
			logger.ErrorContext(ctx, "plugin initialization failed, excluding from registry",
				"plugin_name", id.Name,
				"plugin_group", id.Group,
				"plugin_type", id.Type,
				"error", err,
			)
			continue
		}
		reg.plugins = append(reg.plugins, p)
		logger.InfoContext(ctx, "plugin registered",
			"plugin_name", id.Name,
			"plugin_group", id.Group,
			"plugin_type", id.Type,
		)
	}
	reg.excluded = excluded

	logger.InfoContext(ctx, "plugin registry ready",
		"registered", len(reg.plugins),
		"excluded", len(reg.excluded),
	)

	if opts.RequireAll && len(reg.excluded) > 0 {
		errs := make([]error, 0, len(reg.excluded)+1)
		errs = append(errs, ErrPluginInitFailed)
		for _, ex := range reg.excluded {
			errs = append(errs, fmt.Errorf("%s: %w", ex.Identity.Name, ex.Err))
		}
		closeErr := reg.Close()
		return nil, errors.Join(append(errs, closeErr)...)
	}

	return reg, nil
}

func dedupePlugins(plugins []core.Plugin) ([]core.Plugin, []ExcludedPlugin) {
	seen := make(map[string]struct{}, len(plugins))
	out := make([]core.Plugin, 0, len(plugins))
	var excluded []ExcludedPlugin
	for _, p := range plugins {
		if p == nil {
			continue
		}
		id := p.Meta()
		if _, dup := seen[id.Name]; dup {
			excluded = append(excluded, ExcludedPlugin{
				Identity: id,
				Err:      fmt.Errorf("duplicate plugin name %q", id.Name),
			})
			continue
		}
		seen[id.Name] = struct{}{}
		out = append(out, p)
	}
	return out, excluded
}

func initializePlugin(ctx context.Context, p core.Plugin) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("initialize panicked: %v\n%s", r, debug.Stack())
		}
	}()
	return p.Initialize(ctx)
}

// Select returns the registered plugins whose identity satisfies match, in
// registration order. A nil match selects everything.
func (r *PluginRegistry) Select(match func(model.PluginIdentity) bool) []core.Plugin {
	out := make([]core.Plugin, 0, len(r.plugins))
	for _, p := range r.plugins {
		if match == nil || match(p.Meta()) {
			out = append(out, p)
		}
	}
	return out
}

// Identities returns the identities of all registered plugins.
func (r *PluginRegistry) Identities() []model.PluginIdentity {
	ids := make([]model.PluginIdentity, len(r.plugins))
	for i, p := range r.plugins {
		ids[i] = p.Meta()
	}
	return ids
}

// Excluded returns plugins that were declared but not registered.
func (r *PluginRegistry) Excluded() []ExcludedPlugin {
	return append([]ExcludedPlugin(nil), r.excluded...)
}

// Len returns the number of registered plugins.
func (r *PluginRegistry) Len() int {
	return len(r.plugins)
}

// Close releases plugin resources in reverse registration order. Plugins that
// do not implement io.Closer are skipped.
func (r *PluginRegistry) Close() error {
	var errs []error
	for i := len(r.plugins) - 1; i >= 0; i-- {
		c, ok := r.plugins[i].(io.Closer)
		if !ok {
			continue
		}
		if err := c.Close(); err != nil {
			id := r.plugins[i].Meta()
			r.logger.Warn("plugin close failed", "plugin_name", id.Name, "error", err)
			errs = append(errs, fmt.Errorf("close plugin %s: %w", id.Name, err))
		}
	}
	return errors.Join(errs...)
}
