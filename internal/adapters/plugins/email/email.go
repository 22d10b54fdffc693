// Package email sends a plain-text summary of each alert group through Resend
// or Amazon SES.
package email

import (
	"context"
	"fmt"
	"log/slog"
	"net/mail"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/target/mmk-alert-router/internal/core"
	"github.com/target/mmk-alert-router/internal/domain/model"
	apperrors "github.com/target/mmk-alert-router/internal/errors"
)

// Type is the plugin type name used in declarations.
const Type = "email"

// Provider names.
const (
	ProviderResend = "resend"
	ProviderSES    = "ses"
)

// Config is the type-specific block of an email declaration.
type Config struct {
	Provider      string   `yaml:"provider"`
	From          string   `yaml:"from"`
	To            []string `yaml:"to"`
	SubjectPrefix string   `yaml:"subject_prefix"`

	// Resend settings.
	APIKey  string `yaml:"api_key"`
	BaseURL string `yaml:"base_url"`

	// SES settings.
	Region   string `yaml:"region"`
	Endpoint string `yaml:"endpoint"`

	Timeout time.Duration `yaml:"timeout"`
}

// Validate checks required settings.
func (c Config) Validate() error {
	switch c.Provider {
	case ProviderResend:
		if strings.TrimSpace(c.APIKey) == "" {
			return apperrors.ValidationField("api_key", "api_key is required for resend")
		}
	case ProviderSES:
	default:
		return apperrors.ValidationField("provider", fmt.Sprintf("unknown provider %q (want resend or ses)", c.Provider))
	}
	if _, err := mail.ParseAddress(c.From); err != nil {
		return apperrors.ValidationField("from", "from must be an email address")
	}
	if len(c.To) == 0 {
		return apperrors.ValidationField("to", "at least one recipient is required")
	}
	for _, to := range c.To {
		if _, err := mail.ParseAddress(to); err != nil {
			return apperrors.ValidationField("to", fmt.Sprintf("invalid recipient %q", to))
		}
	}
	return nil
}

// Message is one outbound email.
type Message struct {
	From    string
	To      []string
	Subject string
	Text    string
}

// Provider delivers a Message. Implementations make one attempt.
type Provider interface {
	Name() string
	Send(ctx context.Context, msg Message) error
}

// ProviderFactory builds the provider on Initialize.
type ProviderFactory func(ctx context.Context, cfg Config) (Provider, error)

// Plugin is the email sink.
type Plugin struct {
	id      model.PluginIdentity
	cfg     Config
	factory ProviderFactory
	logger  *slog.Logger

	mu       sync.RWMutex
	provider Provider
}

var _ core.Plugin = (*Plugin)(nil)

// New validates cfg and returns an uninitialized plugin. A nil factory selects
// the provider named in cfg.
func New(id model.PluginIdentity, cfg Config, factory ProviderFactory, logger *slog.Logger) (*Plugin, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if factory == nil {
		factory = DefaultProvider
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Plugin{
		id:      id,
		cfg:     cfg,
		factory: factory,
		logger:  logger.With("component", "plugin", "plugin_type", Type, "plugin_name", id.Name),
	}, nil
}

// DefaultProvider builds the Resend or SES provider named in cfg.
func DefaultProvider(ctx context.Context, cfg Config) (Provider, error) {
	switch cfg.Provider {
	case ProviderResend:
		return NewResendProvider(cfg)
	case ProviderSES:
		return NewSESProvider(ctx, cfg)
	default:
		return nil, fmt.Errorf("unknown email provider %q", cfg.Provider)
	}
}

// Meta implements core.Plugin.
func (p *Plugin) Meta() model.PluginIdentity { return p.id }

// Initialize builds the provider client.
func (p *Plugin) Initialize(ctx context.Context) error {
	provider, err := p.factory(ctx, p.cfg)
	if err != nil {
		return fmt.Errorf("init %s provider: %w", p.cfg.Provider, err)
	}
	p.mu.Lock()
	p.provider = provider
	p.mu.Unlock()
	p.logger.InfoContext(ctx, "email sink ready", "provider", provider.Name(), "recipients", len(p.cfg.To))
	return nil
}

func (p *Plugin) current() (Provider, error) {
	p.mu.RLock()
	defer p.mu.RUnlock()
	if p.provider == nil {
		return nil, core.ErrPluginNotInitialized
	}
	return p.provider, nil
}

// Health checks that the provider is configured.
func (p *Plugin) Health(context.Context) error {
	_, err := p.current()
	return err
}

// Push emails a summary of group to every recipient.
func (p *Plugin) Push(ctx context.Context, group *model.AlertGroup) error {
	provider, err := p.current()
	if err != nil {
		return err
	}
	msg := Message{
		From:    p.cfg.From,
		To:      p.cfg.To,
		Subject: p.subject(group),
		Text:    renderText(group),
	}
	if err := provider.Send(ctx, msg); err != nil {
		return fmt.Errorf("%s send: %w", provider.Name(), err)
	}
	return nil
}

func (p *Plugin) subject(group *model.AlertGroup) string {
	s := group.Title()
	if prefix := strings.TrimSpace(p.cfg.SubjectPrefix); prefix != "" {
		s = prefix + " " + s
	}
	return s
}

func renderText(group *model.AlertGroup) string {
	var b strings.Builder
	fmt.Fprintf(&b, "%s\n\n", group.Title())
	fmt.Fprintf(&b, "Status:   %s\n", group.Status)
	fmt.Fprintf(&b, "Severity: %s\n", group.Severity())
	if group.Receiver != "" {
		fmt.Fprintf(&b, "Receiver: %s\n", group.Receiver)
	}
	if s := group.CommonAnnotations["summary"]; s != "" {
		fmt.Fprintf(&b, "Summary:  %s\n", s)
	}
	writeMap(&b, "Labels", group.CommonLabels)

	if len(group.Alerts) > 0 {
		fmt.Fprintf(&b, "\nAlerts (%d):\n", len(group.Alerts))
		for _, a := range group.Alerts {
			fmt.Fprintf(&b, "- [%s]", strings.ToUpper(a.Status))
			if a.Fingerprint != "" {
				fmt.Fprintf(&b, " %s", a.Fingerprint)
			}
			if !a.StartsAt.IsZero() {
				fmt.Fprintf(&b, " since %s", a.StartsAt.UTC().Format(time.RFC3339))
			}
			b.WriteByte('\n')
			if d := a.Annotations["description"]; d != "" {
				fmt.Fprintf(&b, "  %s\n", d)
			}
		}
	}
	if group.ExternalURL != "" {
		fmt.Fprintf(&b, "\nSource: %s\n", group.ExternalURL)
	}
	return b.String()
}

func writeMap(b *strings.Builder, title string, m map[string]string) {
	if len(m) == 0 {
		return
	}
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	fmt.Fprintf(b, "%s:\n", title)
	for _, k := range keys {
		fmt.Fprintf(b, "  %s=%s\n", k, m[k])
	}
}
