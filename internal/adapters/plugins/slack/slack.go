// Package slack posts alert group summaries to a Slack incoming webhook.
package slack

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"sort"
	"strings"
	"time"

	"github.com/target/mmk-alert-router/internal/adapters/plugins/httpsink"
	"github.com/target/mmk-alert-router/internal/core"
	"github.com/target/mmk-alert-router/internal/domain/model"
	apperrors "github.com/target/mmk-alert-router/internal/errors"
)

// Type is the plugin type name used in declarations.
const Type = "slack"

// maxListedAlerts caps the per-alert lines in one message.
const maxListedAlerts = 10

// Config is the type-specific block of a slack declaration.
type Config struct {
	WebhookURL string        `yaml:"webhook_url"`
	Channel    string        `yaml:"channel"`
	Username   string        `yaml:"username"`
	IconEmoji  string        `yaml:"icon_emoji"`
	Timeout    time.Duration `yaml:"timeout"`
}

// Validate checks required settings.
func (c Config) Validate() error {
	webhook := strings.TrimSpace(c.WebhookURL)
	if webhook == "" {
		return apperrors.ValidationField("webhook_url", "webhook_url is required")
	}
	if err := httpsink.ValidateURL(webhook); err != nil {
		return apperrors.ValidationField("webhook_url", err.Error())
	}
	return nil
}

// Plugin is the Slack sink.
type Plugin struct {
	id       model.PluginIdentity
	cfg      Config
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
	cfg.WebhookURL = strings.TrimSpace(cfg.WebhookURL)
	cfg.Channel = strings.TrimSpace(cfg.Channel)
	cfg.Username = fallbackString(strings.TrimSpace(cfg.Username), "alert-router")
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
		redactor: httpsink.NewRedactor(cfg.WebhookURL),
		logger:   logger.With("component", "plugin", "plugin_type", Type, "plugin_name", id.Name),
	}, nil
}

// Meta implements core.Plugin.
func (p *Plugin) Meta() model.PluginIdentity { return p.id }

// Initialize has nothing to connect; configuration was validated by New.
func (p *Plugin) Initialize(context.Context) error { return nil }

// Health reports whether the configuration is usable. Incoming webhooks have
// no side-effect-free probe.
func (p *Plugin) Health(context.Context) error { return p.cfg.Validate() }

// Push posts one message summarizing group.
func (p *Plugin) Push(ctx context.Context, group *model.AlertGroup) error {
	body, err := json.Marshal(p.formatMessage(group))
	if err != nil {
		return fmt.Errorf("encode slack payload: %w", err)
	}
	if err := httpsink.Send(ctx, p.client, httpsink.Request{URL: p.cfg.WebhookURL, Body: body}, p.redactor); err != nil {
		return fmt.Errorf("slack webhook: %w", err)
	}
	return nil
}

func (p *Plugin) formatMessage(group *model.AlertGroup) map[string]any {
	text := strings.Builder{}
	writeHeader(&text, group)
	appendField(&text, "Severity", group.Severity())
	appendField(&text, "Receiver", escapeSlackText(group.Receiver))
	appendField(&text, "Summary", escapeSlackText(group.CommonAnnotations["summary"]))
	appendField(&text, "Description", escapeSlackText(group.CommonAnnotations["description"]))
	appendLabels(&text, group.CommonLabels)
	appendAlerts(&text, group.Alerts)
	if src := sourceLink(group.ExternalURL); src != "" {
		appendField(&text, "Source", src)
	}

	msg := map[string]any{
		"text":     strings.TrimRight(text.String(), "\n"),
		"username": p.cfg.Username,
	}
	if p.cfg.Channel != "" {
		msg["channel"] = p.cfg.Channel
	}
	if p.cfg.IconEmoji != "" {
		msg["icon_emoji"] = p.cfg.IconEmoji
	}
	return msg
}

func writeHeader(text *strings.Builder, group *model.AlertGroup) {
	icon := ":red_circle:"
	if !group.Firing() {
		icon = ":large_green_circle:"
	}
	text.WriteString(icon)
	text.WriteString(" *")
	text.WriteString(escapeSlackText(group.Title()))
	text.WriteString("*\n")
}

func appendField(text *strings.Builder, label, value string) {
	if strings.TrimSpace(value) == "" {
		return
	}
	text.WriteString("• ")
	text.WriteString(label)
	text.WriteString(": ")
	text.WriteString(value)
	text.WriteByte('\n')
}

func appendLabels(text *strings.Builder, labels map[string]string) {
	if len(labels) == 0 {
		return
	}
	keys := make([]string, 0, len(labels))
	for k := range labels {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	text.WriteString("• Labels:")
	for _, k := range keys {
		text.WriteString(" `")
		text.WriteString(escapeSlackText(k))
		text.WriteByte('=')
		text.WriteString(escapeSlackText(labels[k]))
		text.WriteByte('`')
	}
	text.WriteByte('\n')
}

func appendAlerts(text *strings.Builder, alerts []model.GroupedAlert) {
	if len(alerts) == 0 {
		return
	}
	text.WriteString("• Alerts:\n")
	for i, a := range alerts {
		if i == maxListedAlerts {
			fmt.Fprintf(text, "    • …and %d more\n", len(alerts)-maxListedAlerts)
			return
		}
		desc := fallbackString(a.Annotations["summary"], a.Annotations["description"])
		desc = fallbackString(desc, a.Labels["instance"])
		fmt.Fprintf(text, "    • [%s] %s", strings.ToUpper(a.Status), escapeSlackText(desc))
		if !a.StartsAt.IsZero() {
			text.WriteString(" (since ")
			text.WriteString(a.StartsAt.UTC().Format(time.RFC3339))
			text.WriteByte(')')
		}
		text.WriteByte('\n')
	}
}

func sourceLink(externalURL string) string {
	if httpsink.ValidateURL(externalURL) != nil {
		return ""
	}
	return "<" + externalURL + "|Alertmanager>"
}

func escapeSlackText(value string) string {
	if value == "" {
		return ""
	}
	return strings.NewReplacer(
		"&", "&amp;",
		"<", "&lt;",
		">", "&gt;",
	).Replace(value)
}

func fallbackString(value, fallback string) string {
	if strings.TrimSpace(value) == "" {
		return fallback
	}
	return value
}
