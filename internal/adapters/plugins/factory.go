// Package plugins builds sink plugins from their YAML declarations.
package plugins

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/http"

	"github.com/target/mmk-alert-router/config"
	"github.com/target/mmk-alert-router/internal/adapters/plugins/email"
	"github.com/target/mmk-alert-router/internal/adapters/plugins/file"
	"github.com/target/mmk-alert-router/internal/adapters/plugins/kafka"
	"github.com/target/mmk-alert-router/internal/adapters/plugins/pagerduty"
	"github.com/target/mmk-alert-router/internal/adapters/plugins/postgres"
	"github.com/target/mmk-alert-router/internal/adapters/plugins/print"
	"github.com/target/mmk-alert-router/internal/adapters/plugins/redisstream"
	"github.com/target/mmk-alert-router/internal/adapters/plugins/slack"
	"github.com/target/mmk-alert-router/internal/adapters/plugins/webhook"
	"github.com/target/mmk-alert-router/internal/core"
	"github.com/target/mmk-alert-router/internal/domain/model"
)

// KnownTypes lists every plugin type the factory can build.
func KnownTypes() []string {
	return []string{
		postgres.Type,
		redisstream.Type,
		kafka.Type,
		webhook.Type,
		slack.Type,
		pagerduty.Type,
		email.Type,
		file.Type,
		print.Type,
	}
}

// FactoryOptions configures Factory.
type FactoryOptions struct {
	Logger *slog.Logger
	// HTTPClient overrides the per-plugin client built from each timeout.
	HTTPClient *http.Client
	// Stdout is where print plugins write. Defaults to os.Stdout.
	Stdout io.Writer
	// EmailProviders overrides the email provider constructor.
	EmailProviders email.ProviderFactory
}

// Factory turns declarations into plugins.
type Factory struct {
	logger         *slog.Logger
	httpClient     *http.Client
	stdout         io.Writer
	emailProviders email.ProviderFactory
}

// NewFactory creates a Factory.
func NewFactory(opts FactoryOptions) *Factory {
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}
	providers := opts.EmailProviders
	if providers == nil {
		providers = email.DefaultProvider
	}
	return &Factory{
		logger:         logger,
		httpClient:     opts.HTTPClient,
		stdout:         opts.Stdout,
		emailProviders: providers,
	}
}

// Build constructs one plugin per declaration, in order. A declaration whose
// options are invalid yields a plugin that fails Initialize with the
// construction error, so the registry excludes and reports it like any other
// startup failure.
func (f *Factory) Build(decls []config.PluginDecl) []core.Plugin {
	out := make([]core.Plugin, 0, len(decls))
	for _, d := range decls {
		p, err := f.New(d)
		if err != nil {
			f.logger.Warn("plugin declaration rejected",
				"plugin_name", d.Name,
				"plugin_type", d.Type,
				"line", d.Line(),
				"error", err,
			)
			p = &rejected{id: d.Identity(), err: err}
		}
		out = append(out, p)
	}
	return out
}

// New constructs the plugin for a single declaration.
func (f *Factory) New(d config.PluginDecl) (core.Plugin, error) {
	id := d.Identity()
	if err := id.Validate(); err != nil {
		return nil, err
	}

	switch d.Type {
	case postgres.Type:
		var cfg postgres.Config
		if err := d.DecodeOptions(&cfg); err != nil {
			return nil, err
		}
		return postgres.New(id, cfg, f.logger)
	case redisstream.Type:
		var cfg redisstream.Config
		if err := d.DecodeOptions(&cfg); err != nil {
			return nil, err
		}
		return redisstream.New(id, cfg, f.logger)
	case kafka.Type:
		var cfg kafka.Config
		if err := d.DecodeOptions(&cfg); err != nil {
			return nil, err
		}
		return kafka.New(id, cfg, f.logger)
	case webhook.Type:
		var cfg webhook.Config
		if err := d.DecodeOptions(&cfg); err != nil {
			return nil, err
		}
		return webhook.New(id, cfg, f.httpClient, f.logger)
	case slack.Type:
		var cfg slack.Config
		if err := d.DecodeOptions(&cfg); err != nil {
			return nil, err
		}
		return slack.New(id, cfg, f.httpClient, f.logger)
	case pagerduty.Type:
		var cfg pagerduty.Config
		if err := d.DecodeOptions(&cfg); err != nil {
			return nil, err
		}
		return pagerduty.New(id, cfg, f.httpClient, f.logger)
	case email.Type:
		var cfg email.Config
		if err := d.DecodeOptions(&cfg); err != nil {
			return nil, err
		}
		return email.New(id, cfg, f.emailProviders, f.logger)
	case file.Type:
		var cfg file.Config
		if err := d.DecodeOptions(&cfg); err != nil {
			return nil, err
		}
		return file.New(id, cfg, f.logger)
	case print.Type:
		var cfg print.Config
		if err := d.DecodeOptions(&cfg); err != nil {
			return nil, err
		}
		return print.New(id, cfg, f.stdout, f.logger)
	default:
		return nil, fmt.Errorf("plugin %q: unknown type %q", d.Name, d.Type)
	}
}

// rejected stands in for a declaration that could not be constructed.
type rejected struct {
	id  model.PluginIdentity
	err error
}

func (r *rejected) Meta() model.PluginIdentity { return r.id }

func (r *rejected) Initialize(context.Context) error { return r.err }

func (r *rejected) Health(context.Context) error { return core.ErrPluginNotInitialized }

func (r *rejected) Push(context.Context, *model.AlertGroup) error {
	return core.ErrPluginNotInitialized
}
