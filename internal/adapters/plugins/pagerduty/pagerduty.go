// Package pagerduty triggers and resolves PagerDuty incidents through the
// Events API v2, using the alert group key as the dedup key.
package pagerduty

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/target/mmk-alert-router/internal/adapters/plugins/httpsink"
	"github.com/target/mmk-alert-router/internal/core"
	"github.com/target/mmk-alert-router/internal/domain/model"
	apperrors "github.com/target/mmk-alert-router/internal/errors"
)

// Type is the plugin type name used in declarations.
const Type = "pagerduty"

// APIEndpoint is the PagerDuty Events API v2 ingest URL.
const APIEndpoint = "https://events.pagerduty.com/v2/enqueue"

// Event actions.
const (
	ActionTrigger = "trigger"
	ActionResolve = "resolve"
)

// maxSummaryLen is the Events API limit on payload.summary.
const maxSummaryLen = 1024

// Config is the type-specific block of a pagerduty declaration.
type Config struct {
	RoutingKey string        `yaml:"routing_key"`
	Source     string        `yaml:"source"`
	Component  string        `yaml:"component"`
	Endpoint   string        `yaml:"endpoint"`
	Timeout    time.Duration `yaml:"timeout"`
}

// Validate checks required settings.
func (c Config) Validate() error {
	if strings.TrimSpace(c.RoutingKey) == "" {
		return apperrors.ValidationField("routing_key", "routing_key is required")
	}
	if c.Endpoint != "" {
		if err := httpsink.ValidateURL(c.Endpoint); err != nil {
			return apperrors.ValidationField("endpoint", err.Error())
		}
	}
	return nil
}

// Plugin is the PagerDuty sink.
type Plugin struct {
	id       model.PluginIdentity
	cfg      Config
	client   *http.Client
	redactor httpsink.Redactor
	logger   *slog.Logger
	now      func() time.Time
}

var _ core.Plugin = (*Plugin)(nil)

// New validates cfg and returns the plugin. client may be nil.
func New(id model.PluginIdentity, cfg Config, client *http.Client, logger *slog.Logger) (*Plugin, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	cfg.RoutingKey = strings.TrimSpace(cfg.RoutingKey)
	cfg.Source = fallbackString(strings.TrimSpace(cfg.Source), "alert-router")
	cfg.Component = strings.TrimSpace(cfg.Component)
	cfg.Endpoint = fallbackString(cfg.Endpoint, APIEndpoint)
	if client == nil {
		client = httpsink.NewClient(cfg.Timeout)
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Plugin{
		id:       id,
		cfg:      cfg,
		client:   client,
		redactor: httpsink.NewRedactor(cfg.RoutingKey),
		logger:   logger.With("component", "plugin", "plugin_type", Type, "plugin_name", id.Name),
		now:      time.Now,
	}, nil
}

// Meta implements core.Plugin.
func (p *Plugin) Meta() model.PluginIdentity { return p.id }

// Initialize has nothing to connect; configuration was validated by New.
func (p *Plugin) Initialize(context.Context) error { return nil }

// Health reports whether the configuration is usable. The Events API has no
// probe that does not create an event.
func (p *Plugin) Health(context.Context) error { return p.cfg.Validate() }

// Push sends a trigger for firing groups and a resolve otherwise.
func (p *Plugin) Push(ctx context.Context, group *model.AlertGroup) error {
	if strings.TrimSpace(group.GroupKey) == "" {
		return apperrors.ValidationField("groupKey", "pagerduty requires a group key for deduplication")
	}
	body, err := json.Marshal(p.buildEvent(group))
	if err != nil {
		return fmt.Errorf("encode pagerduty payload: %w", err)
	}
	req := httpsink.Request{URL: p.cfg.Endpoint, Body: body}
	if err := httpsink.Send(ctx, p.client, req, p.redactor); err != nil {
		return fmt.Errorf("pagerduty events api: %w", err)
	}
	return nil
}

func (p *Plugin) buildEvent(group *model.AlertGroup) map[string]any {
	event := map[string]any{
		"routing_key": p.cfg.RoutingKey,
		"dedup_key":   group.GroupKey,
	}
	if !group.Firing() {
		event["event_action"] = ActionResolve
		return event
	}

	custom := map[string]any{
		"receiver":      group.Receiver,
		"firing":        group.FiringCount(),
		"alerts":        len(group.Alerts),
		"common_labels": group.CommonLabels,
	}
	for k, v := range group.CommonAnnotations {
		if _, exists := custom[k]; !exists {
			custom[k] = v
		}
	}

	payload := map[string]any{
		"summary":        truncate(group.Title(), maxSummaryLen),
		"severity":       eventSeverity(group.Severity()),
		"source":         p.cfg.Source,
		"timestamp":      p.now().UTC().Format(time.RFC3339),
		"custom_details": custom,
	}
	if component := fallbackString(p.cfg.Component, group.Label("service")); component != "" {
		payload["component"] = component
	}
	if name := group.Label("alertname"); name != "" {
		payload["class"] = name
	}

	event["event_action"] = ActionTrigger
	event["payload"] = payload
	if group.ExternalURL != "" {
		event["links"] = []map[string]string{{"href": group.ExternalURL, "text": "Alertmanager"}}
	}
	return event
}

// eventSeverity maps free-form severities onto the four the Events API accepts.
func eventSeverity(s string) string {
	switch s {
	case "critical", "error", "warning", "info":
		return s
	case "page", "high", "fatal":
		return "critical"
	case "warn", "medium":
		return "warning"
	case "low", "none":
		return "info"
	default:
		return "error"
	}
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n]
}

func fallbackString(value, fallback string) string {
	if strings.TrimSpace(value) == "" {
		return fallback
	}
	return value
}
