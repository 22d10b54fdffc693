// Package redisstream appends alert groups to a Redis stream.
package redisstream

import (
	"context"
	"fmt"
	"log/slog"
	"sync"

	"github.com/redis/go-redis/v9"

	"github.com/target/mmk-alert-router/internal/core"
	"github.com/target/mmk-alert-router/internal/domain/model"
	apperrors "github.com/target/mmk-alert-router/internal/errors"
)

// Type is the plugin type name used in declarations.
const Type = "redis"

// Stream entry field names.
const (
	FieldGroupKey = "group_key"
	FieldStatus   = "status"
	FieldPayload  = "payload"
)

// Config is the type-specific block of a redis declaration. Either URL or
// Addrs must be set; Addrs with MasterName selects sentinel mode and several
// Addrs without it select cluster mode.
type Config struct {
	URL        string   `yaml:"url"`
	Addrs      []string `yaml:"addrs"`
	MasterName string   `yaml:"master_name"`
	Username   string   `yaml:"username"`
	Password   string   `yaml:"password"`
	DB         int      `yaml:"db"`
	Stream     string   `yaml:"stream"`
	// MaxLen trims the stream to roughly this many entries. 0 disables trimming.
	MaxLen int64 `yaml:"max_len"`
}

// Validate checks required settings.
func (c Config) Validate() error {
	if c.URL == "" && len(c.Addrs) == 0 {
		return apperrors.ValidationField("url", "url or addrs is required")
	}
	if c.Stream == "" {
		return apperrors.ValidationField("stream", "stream is required")
	}
	if c.MaxLen < 0 {
		return apperrors.ValidationField("max_len", "max_len must not be negative")
	}
	if c.URL != "" {
		if _, err := redis.ParseURL(c.URL); err != nil {
			return apperrors.ValidationField("url", "invalid redis url")
		}
	}
	return nil
}

// Plugin is the Redis stream sink.
type Plugin struct {
	id     model.PluginIdentity
	cfg    Config
	logger *slog.Logger

	mu     sync.RWMutex
	client redis.UniversalClient
}

var _ core.Plugin = (*Plugin)(nil)

// New validates cfg and returns an uninitialized plugin.
func New(id model.PluginIdentity, cfg Config, logger *slog.Logger) (*Plugin, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Plugin{
		id:     id,
		cfg:    cfg,
		logger: logger.With("component", "plugin", "plugin_type", Type, "plugin_name", id.Name),
	}, nil
}

// Meta implements core.Plugin.
func (p *Plugin) Meta() model.PluginIdentity { return p.id }

func (p *Plugin) newClient() (redis.UniversalClient, error) {
	if p.cfg.URL != "" {
		opts, err := redis.ParseURL(p.cfg.URL)
		if err != nil {
			return nil, fmt.Errorf("parse redis url: %w", err)
		}
		return redis.NewClient(opts), nil
	}
	return redis.NewUniversalClient(&redis.UniversalOptions{
		Addrs:      p.cfg.Addrs,
		MasterName: p.cfg.MasterName,
		Username:   p.cfg.Username,
		Password:   p.cfg.Password,
		DB:         p.cfg.DB,
	}), nil
}

// Initialize connects and pings the server.
func (p *Plugin) Initialize(ctx context.Context) error {
	client, err := p.newClient()
	if err != nil {
		return err
	}
	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return fmt.Errorf("redis ping: %w", err)
	}

	p.mu.Lock()
	p.client = client
	p.mu.Unlock()
	p.logger.InfoContext(ctx, "redis stream sink ready", "stream", p.cfg.Stream, "max_len", p.cfg.MaxLen)
	return nil
}

func (p *Plugin) conn() (redis.UniversalClient, error) {
	p.mu.RLock()
	defer p.mu.RUnlock()
	if p.client == nil {
		return nil, core.ErrPluginNotInitialized
	}
	return p.client, nil
}

// Health sends PING.
func (p *Plugin) Health(ctx context.Context) error {
	client, err := p.conn()
	if err != nil {
		return err
	}
	if err := client.Ping(ctx).Err(); err != nil {
		return fmt.Errorf("redis ping: %w", err)
	}
	return nil
}

// Push appends one stream entry carrying the group's payload.
func (p *Plugin) Push(ctx context.Context, group *model.AlertGroup) error {
	client, err := p.conn()
	if err != nil {
		return err
	}
	args, err := p.addArgs(group)
	if err != nil {
		return err
	}
	if err := client.XAdd(ctx, args).Err(); err != nil {
		return fmt.Errorf("xadd %s: %w", p.cfg.Stream, err)
	}
	return nil
}

func (p *Plugin) addArgs(group *model.AlertGroup) (*redis.XAddArgs, error) {
	payload, err := group.Payload()
	if err != nil {
		return nil, err
	}
	args := &redis.XAddArgs{
		Stream: p.cfg.Stream,
		Values: []any{
			FieldGroupKey, group.GroupKey,
			FieldStatus, group.Status,
			FieldPayload, string(payload),
		},
	}
	if p.cfg.MaxLen > 0 {
		args.MaxLen = p.cfg.MaxLen
		args.Approx = true
	}
	return args, nil
}

// Close releases the client.
func (p *Plugin) Close() error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.client == nil {
		return nil
	}
	err := p.client.Close()
	p.client = nil
	return err
}
