// Package webhook delivers alert groups to an arbitrary HTTP endpoint, with an
// optional JMESPath expression to reshape the body.
package webhook

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
	"sort"
	"strings"
	"time"

	jmespath "github.com/jmespath-community/go-jmespath"

	"github.com/target/mmk-alert-router/internal/adapters/plugins/httpsink"
	"github.com/target/mmk-alert-router/internal/core"
	"github.com/target/mmk-alert-router/internal/domain/model"
	apperrors "github.com/target/mmk-alert-router/internal/errors"
)

// Type is the plugin type name used in declarations.
const Type = "webhook"

// Config is the type-specific block of a webhook declaration.
type Config struct {
	URL     string            `yaml:"url"`
	Method  string            `yaml:"method"`
	Headers map[string]string `yaml:"headers"`
	Query   map[string]string `yaml:"query"`
	// Body is a JMESPath expression evaluated against the alert group JSON.
	// Empty sends the payload unchanged.
	Body     string        `yaml:"body"`
	OKStatus int           `yaml:"ok_status"`
	Timeout  time.Duration `yaml:"timeout"`
	// HealthURL, when set, is fetched with GET by Health.
	HealthURL string `yaml:"health_url"`
	// Secrets lists extra literal values to scrub from error messages.
	Secrets []string `yaml:"secrets"`
}

var allowedMethods = map[string]bool{
	http.MethodPost:  true,
	http.MethodPut:   true,
	http.MethodPatch: true,
}

// Validate checks required settings.
func (c Config) Validate() error {
	if strings.TrimSpace(c.URL) == "" {
		return apperrors.ValidationField("url", "url is required")
	}
	if err := httpsink.ValidateURL(c.URL); err != nil {
		return apperrors.ValidationField("url", err.Error())
	}
	if m := strings.ToUpper(strings.TrimSpace(c.Method)); m != "" && !allowedMethods[m] {
		return apperrors.ValidationField("method", fmt.Sprintf("unsupported method %q", c.Method))
	}
	if c.OKStatus != 0 && (c.OKStatus < 100 || c.OKStatus > 599) {
		return apperrors.ValidationField("ok_status", "ok_status must be a valid HTTP status")
	}
	if strings.TrimSpace(c.Body) != "" {
		if _, err := jmespath.Compile(c.Body); err != nil {
			return apperrors.ValidationField("body", "invalid body JMESPath: "+err.Error())
		}
	}
	if c.HealthURL != "" {
		if err := httpsink.ValidateURL(c.HealthURL); err != nil {
			return apperrors.ValidationField("health_url", err.Error())
		}
	}
	for k := range c.Headers {
		if strings.TrimSpace(k) == "" {
			return apperrors.ValidationField("headers", "empty header name")
		}
	}
	return nil
}

// Plugin is the generic webhook sink.
type Plugin struct {
	id       model.PluginIdentity
	cfg      Config
	target   string
	client   *http.Client
	redactor httpsink.Redactor
	logger   *slog.Logger
}

var _ core.Plugin = (*Plugin)(nil)

// New validates cfg and returns the plugin. client may be nil.
func New(id model.PluginIdentity, cfg Config, client *http.Client, logger *slog.Logger) (*Plugin, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	cfg.Method = strings.ToUpper(strings.TrimSpace(cfg.Method))
	if cfg.Method == "" {
		cfg.Method = http.MethodPost
	}
	cfg.Body = strings.TrimSpace(cfg.Body)

	target, err := buildURLWithQuery(cfg.URL, cfg.Query)
	if err != nil {
		return nil, apperrors.ValidationField("query", err.Error())
	}
	if client == nil {
		client = httpsink.NewClient(cfg.Timeout)
	}
	if logger == nil {
		logger = slog.Default()
	}

	secrets := append([]string{}, cfg.Secrets...)
	secrets = append(secrets, httpsink.SensitiveHeaderValues(cfg.Headers)...)
	for _, v := range cfg.Query {
		secrets = append(secrets, v)
	}

	return &Plugin{
		id:       id,
		cfg:      cfg,
		target:   target,
		client:   client,
		redactor: httpsink.NewRedactor(secrets...),
		logger:   logger.With("component", "plugin", "plugin_type", Type, "plugin_name", id.Name),
	}, nil
}

// Meta implements core.Plugin.
func (p *Plugin) Meta() model.PluginIdentity { return p.id }

// Initialize has nothing to connect; configuration was validated by New.
func (p *Plugin) Initialize(context.Context) error { return nil }

// Health fetches HealthURL when configured, otherwise it re-validates the configuration.
func (p *Plugin) Health(ctx context.Context) error {
	if p.cfg.HealthURL == "" {
		return p.cfg.Validate()
	}
	req := httpsink.Request{Method: http.MethodGet, URL: p.cfg.HealthURL, Header: p.cfg.Headers}
	if err := httpsink.Send(ctx, p.client, req, p.redactor); err != nil {
		return fmt.Errorf("webhook health: %w", err)
	}
	return nil
}

// Push sends the (optionally reshaped) payload once.
func (p *Plugin) Push(ctx context.Context, group *model.AlertGroup) error {
	payload, err := group.Payload()
	if err != nil {
		return err
	}
	body, err := deriveBody(p.cfg.Body, payload)
	if err != nil {
		return err
	}
	req := httpsink.Request{
		Method:   p.cfg.Method,
		URL:      p.target,
		Header:   p.cfg.Headers,
		Body:     body,
		OKStatus: p.cfg.OKStatus,
	}
	if err := httpsink.Send(ctx, p.client, req, p.redactor); err != nil {
		return fmt.Errorf("webhook: %w", err)
	}
	return nil
}

func deriveBody(expr string, payload []byte) ([]byte, error) {
	if expr == "" {
		return payload, nil
	}
	var data any
	if err := json.Unmarshal(payload, &data); err != nil {
		return nil, fmt.Errorf("invalid payload JSON: %w", err)
	}
	res, err := jmespath.Search(expr, data)
	if err != nil {
		return nil, fmt.Errorf("evaluate body JMESPath: %w", err)
	}
	b, err := json.Marshal(res)
	if err != nil {
		return nil, fmt.Errorf("marshal derived body: %w", err)
	}
	return b, nil
}

// buildURLWithQuery appends query parameters in key order, preserving any
// query already on base.
func buildURLWithQuery(base string, query map[string]string) (string, error) {
	u, err := url.Parse(strings.TrimSpace(base))
	if err != nil {
		return "", fmt.Errorf("invalid url: %w", err)
	}
	if len(query) == 0 {
		return u.String(), nil
	}
	q := u.Query()
	keys := make([]string, 0, len(query))
	for k := range query {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		q.Add(k, query[k])
	}
	u.RawQuery = q.Encode()
	return u.String(), nil
}
