// Package print writes each alert group as a JSON line to stdout or another writer.
package print

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"os"
	"sync"
	"time"

	"github.com/target/mmk-alert-router/internal/core"
	"github.com/target/mmk-alert-router/internal/domain/model"
	apperrors "github.com/target/mmk-alert-router/internal/errors"
)

// Type is the plugin type name used in declarations.
const Type = "print"

// Output formats.
const (
	FormatJSON    = "json"
	FormatSummary = "summary"
)

// Config is the type-specific block of a print declaration.
type Config struct {
	Format string `yaml:"format"`
}

// Validate checks required settings.
func (c Config) Validate() error {
	switch c.Format {
	case "", FormatJSON, FormatSummary:
		return nil
	default:
		return apperrors.ValidationField("format", fmt.Sprintf("unknown format %q", c.Format))
	}
}

// Plugin is the print sink.
type Plugin struct {
	id     model.PluginIdentity
	format string
	now    func() time.Time

	mu sync.Mutex
	w  io.Writer
}

var _ core.Plugin = (*Plugin)(nil)

// New validates cfg and returns the plugin. A nil w writes to os.Stdout.
func New(id model.PluginIdentity, cfg Config, w io.Writer, _ *slog.Logger) (*Plugin, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if w == nil {
		w = os.Stdout
	}
	format := cfg.Format
	if format == "" {
		format = FormatJSON
	}
	return &Plugin{id: id, format: format, w: w, now: time.Now}, nil
}

// Meta implements core.Plugin.
func (p *Plugin) Meta() model.PluginIdentity { return p.id }

// Initialize implements core.Plugin.
func (p *Plugin) Initialize(context.Context) error { return nil }

// Health always succeeds.
func (p *Plugin) Health(context.Context) error { return nil }

// Push writes one line describing group.
func (p *Plugin) Push(_ context.Context, group *model.AlertGroup) error {
	line, err := p.render(group)
	if err != nil {
		return err
	}
	p.mu.Lock()
	defer p.mu.Unlock()
	if _, err := p.w.Write(line); err != nil {
		return fmt.Errorf("write: %w", err)
	}
	return nil
}

func (p *Plugin) render(group *model.AlertGroup) ([]byte, error) {
	ts := p.now().UTC().Format(time.RFC3339)
	if p.format == FormatSummary {
		return fmt.Appendf(nil, "%s %s %s alerts=%d\n", ts, p.id.Name, group.Title(), len(group.Alerts)), nil
	}

	payload, err := group.Payload()
	if err != nil {
		return nil, err
	}
	var compact bytes.Buffer
	if err := json.Compact(&compact, payload); err != nil {
		return nil, fmt.Errorf("compact payload: %w", err)
	}
	line, err := json.Marshal(struct {
		Time   string          `json:"time"`
		Plugin string          `json:"plugin"`
		Group  json.RawMessage `json:"group"`
	}{Time: ts, Plugin: p.id.Name, Group: compact.Bytes()})
	if err != nil {
		return nil, fmt.Errorf("encode line: %w", err)
	}
	return append(line, '\n'), nil
}
