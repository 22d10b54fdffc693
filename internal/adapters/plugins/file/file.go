// Package file appends alert groups to a local JSON-lines file.
package file

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"strconv"
	"sync"

	"github.com/target/mmk-alert-router/internal/core"
	"github.com/target/mmk-alert-router/internal/domain/model"
	apperrors "github.com/target/mmk-alert-router/internal/errors"
)

// Type is the plugin type name used in declarations.
const Type = "file"

const defaultFileMode fs.FileMode = 0o640

// Config is the type-specific block of a file declaration.
type Config struct {
	Path string `yaml:"path"`
	// Mode is the octal permission for a newly created file, e.g. "0640".
	Mode string `yaml:"mode"`
}

// Validate checks required settings.
func (c Config) Validate() error {
	if c.Path == "" {
		return apperrors.ValidationField("path", "path is required")
	}
	if _, err := c.fileMode(); err != nil {
		return apperrors.ValidationField("mode", err.Error())
	}
	return nil
}

func (c Config) fileMode() (fs.FileMode, error) {
	if c.Mode == "" {
		return defaultFileMode, nil
	}
	m, err := strconv.ParseUint(c.Mode, 8, 32)
	if err != nil || m > 0o777 {
		return 0, fmt.Errorf("invalid mode %q", c.Mode)
	}
	return fs.FileMode(m), nil
}

// Plugin is the JSON-lines file sink. Writes are serialized so concurrent
// pushes never interleave within a line.
type Plugin struct {
	id     model.PluginIdentity
	path   string
	mode   fs.FileMode
	logger *slog.Logger

	mu sync.Mutex
	f  *os.File
}

var _ core.Plugin = (*Plugin)(nil)

// New validates cfg and returns an uninitialized plugin.
func New(id model.PluginIdentity, cfg Config, logger *slog.Logger) (*Plugin, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	mode, _ := cfg.fileMode()
	if logger == nil {
		logger = slog.Default()
	}
	return &Plugin{
		id:     id,
		path:   filepath.Clean(cfg.Path),
		mode:   mode,
		logger: logger.With("component", "plugin", "plugin_type", Type, "plugin_name", id.Name),
	}, nil
}

// Meta implements core.Plugin.
func (p *Plugin) Meta() model.PluginIdentity { return p.id }

// Initialize opens the file for appending, creating it if needed.
func (p *Plugin) Initialize(context.Context) error {
	f, err := os.OpenFile(p.path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, p.mode)
	if err != nil {
		return fmt.Errorf("open %s: %w", p.path, err)
	}
	p.mu.Lock()
	p.f = f
	p.mu.Unlock()
	return nil
}

// Health checks the target directory still accepts new files.
func (p *Plugin) Health(context.Context) error {
	p.mu.Lock()
	open := p.f != nil
	p.mu.Unlock()
	if !open {
		return core.ErrPluginNotInitialized
	}

	probe, err := os.CreateTemp(filepath.Dir(p.path), ".alert-router-probe-*")
	if err != nil {
		return fmt.Errorf("directory not writable: %w", err)
	}
	name := probe.Name()
	_ = probe.Close()
	if err := os.Remove(name); err != nil {
		return fmt.Errorf("remove probe file: %w", err)
	}
	return nil
}

// Push appends the payload as one compact JSON line.
func (p *Plugin) Push(_ context.Context, group *model.AlertGroup) error {
	payload, err := group.Payload()
	if err != nil {
		return err
	}
	var line bytes.Buffer
	if err := json.Compact(&line, payload); err != nil {
		return fmt.Errorf("compact payload: %w", err)
	}
	line.WriteByte('\n')

	p.mu.Lock()
	defer p.mu.Unlock()
	if p.f == nil {
		return core.ErrPluginNotInitialized
	}
	if _, err := p.f.Write(line.Bytes()); err != nil {
		return fmt.Errorf("append to %s: %w", p.path, err)
	}
	return nil
}

// Close syncs and closes the file.
func (p *Plugin) Close() error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.f == nil {
		return nil
	}
	syncErr := p.f.Sync()
	closeErr := p.f.Close()
	p.f = nil
	if syncErr != nil {
		return fmt.Errorf("sync %s: %w", p.path, syncErr)
	}
	return closeErr
}
