package bootstrap

import (
	"context"
	"fmt"
	"io"
	"log/slog"

	"github.com/target/mmk-alert-router/config"
	"github.com/target/mmk-alert-router/internal/adapters/plugins"
	"github.com/target/mmk-alert-router/internal/service"
)

// RegistryDeps groups dependencies for BuildRegistry.
type RegistryDeps struct {
	Config config.PluginsConfig
	Logger *slog.Logger
	// Stdout overrides where print plugins write.
	Stdout io.Writer
}

// LoadDeclarations reads and validates the plugin declaration file.
func LoadDeclarations(cfg config.PluginsConfig) ([]config.PluginDecl, error) {
	decls, err := config.LoadPluginDecls(cfg.Path)
	if err != nil {
		return nil, err
	}
	if err := config.ValidatePluginDecls(decls, plugins.KnownTypes()); err != nil {
		return nil, fmt.Errorf("%s: invalid plugin declarations:\n%w", cfg.Path, err)
	}
	return decls, nil
}

// BuildRegistry loads declarations, constructs the plugins and initializes
// them. Declarations that fail to construct or initialize are excluded unless
// RequireAll is set.
func BuildRegistry(ctx context.Context, deps RegistryDeps) (*service.PluginRegistry, error) {
	logger := deps.Logger
	if logger == nil {
		logger = slog.Default()
	}

	decls, err := LoadDeclarations(deps.Config)
	if err != nil {
		return nil, err
	}
	logger.InfoContext(ctx, "plugin declarations loaded", "path", deps.Config.Path, "count", len(decls))

	factory := plugins.NewFactory(plugins.FactoryOptions{Logger: logger, Stdout: deps.Stdout})
	return service.NewPluginRegistry(ctx, service.PluginRegistryOptions{
		Plugins:    factory.Build(decls),
		Logger:     logger,
		RequireAll: deps.Config.RequireAll,
	})
}

// DispatchDeps groups dependencies for NewDispatchService.
type DispatchDeps struct {
	Registry      *service.PluginRegistry
	Config        config.DispatchConfig
	Observability ObservabilityContainer
	Logger        *slog.Logger
}

// NewDispatchService wires the engine and service over the registry.
func NewDispatchService(deps DispatchDeps) *service.DispatchService {
	engine := service.NewDispatchEngine(service.DispatchEngineOptions{
		Metrics: deps.Observability.PluginMetrics,
		Logger:  deps.Logger,
		Config:  service.DispatchEngineConfig{MaxConcurrency: deps.Config.MaxConcurrency},
	})
	opts := service.DispatchServiceOptions{
		Plugins: deps.Registry,
		Engine:  engine,
		Logger:  deps.Logger,
	}
	if deps.Observability.Stats != nil {
		opts.Stats = deps.Observability.Stats
	}
	return service.NewDispatchService(opts)
}
