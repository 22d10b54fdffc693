// Package postgres archives alert groups and their alerts in PostgreSQL.
package postgres

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/jackc/pgx/v5"

	// Register the pgx database/sql driver.
	_ "github.com/jackc/pgx/v5/stdlib"

	"github.com/target/mmk-alert-router/internal/core"
	"github.com/target/mmk-alert-router/internal/data/pgxutil"
	"github.com/target/mmk-alert-router/internal/domain/model"
	apperrors "github.com/target/mmk-alert-router/internal/errors"
	"github.com/target/mmk-alert-router/internal/migrate"
)

// Type is the plugin type name used in declarations.
const Type = "postgres"

// Config is the type-specific block of a postgres declaration.
type Config struct {
	DSN             string        `yaml:"dsn"`
	MaxOpenConns    int           `yaml:"max_open_conns"`
	MaxIdleConns    int           `yaml:"max_idle_conns"`
	ConnMaxLifetime time.Duration `yaml:"conn_max_lifetime"`
	SkipMigrations  bool          `yaml:"skip_migrations"`
}

// Validate checks required settings.
func (c Config) Validate() error {
	if c.DSN == "" {
		return apperrors.ValidationField("dsn", "dsn is required")
	}
	if c.MaxOpenConns < 0 || c.MaxIdleConns < 0 {
		return apperrors.Validation("connection pool sizes must not be negative")
	}
	return nil
}

// Plugin is the postgres sink.
type Plugin struct {
	id     model.PluginIdentity
	cfg    Config
	logger *slog.Logger

	mu sync.RWMutex
	db *sql.DB
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
	if cfg.MaxOpenConns == 0 {
		cfg.MaxOpenConns = 10
	}
	if cfg.MaxIdleConns == 0 {
		cfg.MaxIdleConns = 2
	}
	if cfg.ConnMaxLifetime == 0 {
		cfg.ConnMaxLifetime = 30 * time.Minute
	}
	return &Plugin{
		id:     id,
		cfg:    cfg,
		logger: logger.With("component", "plugin", "plugin_type", Type, "plugin_name", id.Name),
	}, nil
}

// Meta implements core.Plugin.
func (p *Plugin) Meta() model.PluginIdentity { return p.id }

// Initialize opens the pool, checks connectivity and applies migrations.
func (p *Plugin) Initialize(ctx context.Context) error {
	db, err := sql.Open("pgx", p.cfg.DSN)
	if err != nil {
		return fmt.Errorf("open database: %w", err)
	}
	db.SetMaxOpenConns(p.cfg.MaxOpenConns)
	db.SetMaxIdleConns(p.cfg.MaxIdleConns)
	db.SetConnMaxLifetime(p.cfg.ConnMaxLifetime)

	if err = db.PingContext(ctx); err != nil {
		_ = db.Close()
		return fmt.Errorf("ping database: %w", apperrors.MapDBError(err))
	}

	if !p.cfg.SkipMigrations {
		applied, runErr := migrate.Run(ctx, db, migrate.Options{Logger: p.logger})
		if runErr != nil {
			_ = db.Close()
			return fmt.Errorf("apply migrations: %w", apperrors.MapDBError(runErr))
		}
		if len(applied) > 0 {
			p.logger.InfoContext(ctx, "applied migrations", "versions", applied)
		}
	}

	p.mu.Lock()
	p.db = db
	p.mu.Unlock()
	return nil
}

func (p *Plugin) pool() (*sql.DB, error) {
	p.mu.RLock()
	defer p.mu.RUnlock()
	if p.db == nil {
		return nil, core.ErrPluginNotInitialized
	}
	return p.db, nil
}

// Health pings the database.
func (p *Plugin) Health(ctx context.Context) error {
	db, err := p.pool()
	if err != nil {
		return err
	}
	if err := db.PingContext(ctx); err != nil {
		return fmt.Errorf("ping database: %w", apperrors.MapDBError(err))
	}
	return nil
}

// Push stores the group row and copies its alerts in one transaction.
func (p *Plugin) Push(ctx context.Context, group *model.AlertGroup) error {
	db, err := p.pool()
	if err != nil {
		return err
	}
	payload, err := group.Payload()
	if err != nil {
		return err
	}
	rec, err := newGroupRecord(group, payload)
	if err != nil {
		return err
	}

	err = pgxutil.WithPgxTx(ctx, db, pgxutil.TxConfig{Fn: func(tx pgx.Tx) error {
		var groupID int64
		if err := tx.QueryRow(ctx, insertGroupSQL,
			rec.groupKey, rec.status, rec.receiver, rec.commonLabels, rec.alertCount, rec.payload,
		).Scan(&groupID); err != nil {
			return fmt.Errorf("insert alert group: %w", err)
		}
		if len(rec.alerts) == 0 {
			return nil
		}
		_, err := tx.CopyFrom(ctx, pgx.Identifier{"alerts"}, alertColumns, pgx.CopyFromSlice(len(rec.alerts), func(i int) ([]any, error) {
			return append([]any{groupID}, rec.alerts[i]...), nil
		}))
		if err != nil {
			return fmt.Errorf("copy alerts: %w", err)
		}
		return nil
	}})
	if err != nil {
		return mapPushError(err)
	}
	return nil
}

// Close releases the pool.
func (p *Plugin) Close() error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.db == nil {
		return nil
	}
	err := p.db.Close()
	p.db = nil
	return err
}

const insertGroupSQL = `
	INSERT INTO alert_groups (group_key, status, receiver, common_labels, alert_count, payload)
	VALUES ($1, $2, $3, $4, $5, $6)
	RETURNING id`

var alertColumns = []string{
	"group_id", "fingerprint", "status", "labels", "annotations", "starts_at", "ends_at", "generator_url",
}

type groupRecord struct {
	groupKey     string
	status       string
	receiver     string
	commonLabels []byte
	alertCount   int
	payload      []byte
	alerts       [][]any
}

func newGroupRecord(g *model.AlertGroup, payload []byte) (groupRecord, error) {
	commonLabels, err := jsonObject(g.CommonLabels)
	if err != nil {
		return groupRecord{}, err
	}
	rec := groupRecord{
		groupKey:     g.GroupKey,
		status:       g.Status,
		receiver:     g.Receiver,
		commonLabels: commonLabels,
		alertCount:   len(g.Alerts),
		payload:      payload,
		alerts:       make([][]any, 0, len(g.Alerts)),
	}
	for _, a := range g.Alerts {
		labels, err := jsonObject(a.Labels)
		if err != nil {
			return groupRecord{}, err
		}
		annotations, err := jsonObject(a.Annotations)
		if err != nil {
			return groupRecord{}, err
		}
		rec.alerts = append(rec.alerts, []any{
			a.Fingerprint, a.Status, labels, annotations, nullTime(a.StartsAt), nullTime(a.EndsAt), a.GeneratorURL,
		})
	}
	return rec, nil
}

func jsonObject(m map[string]string) ([]byte, error) {
	if len(m) == 0 {
		return []byte("{}"), nil
	}
	b, err := json.Marshal(m)
	if err != nil {
		return nil, fmt.Errorf("encode labels: %w", err)
	}
	return b, nil
}

func nullTime(t time.Time) *time.Time {
	if t.IsZero() {
		return nil
	}
	return &t
}

func mapPushError(err error) error {
	return fmt.Errorf("store alert group: %w", apperrors.MapDBError(err))
}
