package service

import (
	"context"
	"crypto/rand"
	"encoding/binary"
	"errors"
	"log/slog"
	"sync"
	"time"

	"github.com/target/mmk-alert-router/internal/domain/filter"
	"github.com/target/mmk-alert-router/internal/domain/model"
	apperrors "github.com/target/mmk-alert-router/internal/errors"
)

// HealthProber is the subset of DispatchService the monitor needs.
type HealthProber interface {
	Health(ctx context.Context, expr string) (*model.AggregatedResult, error)
}

// HealthMonitorOptions groups dependencies for HealthMonitor.
type HealthMonitorOptions struct {
	Prober   HealthProber  // Required
	Interval time.Duration // Required: time between probes
	Filter   string        // Optional: selects which plugins are probed
	Timeout  time.Duration // Optional: per-probe deadline, defaults to Interval
	Logger   *slog.Logger  // Optional
}

// HealthMonitor probes plugin health on a fixed interval and keeps the most
// recent aggregated result.
type HealthMonitor struct {
	prober   HealthProber
	interval time.Duration
	timeout  time.Duration
	filter   string
	logger   *slog.Logger

	mu   sync.RWMutex
	last *model.AggregatedResult
	at   time.Time
}

// NewHealthMonitor constructs a HealthMonitor. A filter that does not parse
// is an invalid_filter error.
func NewHealthMonitor(opts HealthMonitorOptions) (*HealthMonitor, error) {
	if opts.Prober == nil {
		return nil, errors.New("health monitor: prober is required")
	}
	if opts.Interval <= 0 {
		return nil, errors.New("health monitor: interval must be positive")
	}
	if _, err := filter.Compile(opts.Filter); err != nil {
		return nil, apperrors.InvalidFilter(err)
	}
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}
	timeout := opts.Timeout
	if timeout <= 0 || timeout > opts.Interval {
		timeout = opts.Interval
	}
	return &HealthMonitor{
		prober:   opts.Prober,
		interval: opts.Interval,
		timeout:  timeout,
		filter:   opts.Filter,
		logger:   logger.With("component", "health_monitor"),
	}, nil
}

// Run probes immediately after a short jitter and then on every tick until ctx
// is canceled. It returns nil on cancellation.
func (m *HealthMonitor) Run(ctx context.Context) error {
	m.logger.InfoContext(ctx, "starting health monitor", "interval", m.interval, "filter", m.filter)

	m.waitWithJitter(ctx)
	if ctx.Err() != nil {
		return nil
	}

	ticker := time.NewTicker(m.interval)
	defer ticker.Stop()

	m.probe(ctx)
	for {
		select {
		case <-ctx.Done():
			m.logger.InfoContext(ctx, "health monitor stopping", "reason", ctx.Err())
			if errors.Is(ctx.Err(), context.Canceled) {
				return nil
			}
			return ctx.Err()
		case <-ticker.C:
			m.probe(ctx)
		}
	}
}

// Last returns the most recent probe result and when it completed. The result
// is nil before the first probe.
func (m *HealthMonitor) Last() (*model.AggregatedResult, time.Time) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.last, m.at
}

func (m *HealthMonitor) probe(ctx context.Context) {
	probeCtx, cancel := context.WithTimeout(ctx, m.timeout)
	defer cancel()

	res, err := m.prober.Health(probeCtx, m.filter)
	if err != nil {
		m.logger.ErrorContext(ctx, "health probe rejected", "filter", m.filter, "error", err)
		return
	}

	m.mu.Lock()
	m.last, m.at = res, time.Now()
	m.mu.Unlock()

	if res.Status == model.DispatchStatusOK || res.Status == model.DispatchStatusNoTargets {
		return
	}
	for _, o := range res.Plugins {
		if o.Succeeded() {
			continue
		}
		m.logger.WarnContext(ctx, "plugin unhealthy",
			"dispatch_id", res.DispatchID,
			"plugin_name", o.Identity.Name,
			"plugin_group", o.Identity.Group,
			"plugin_type", o.Identity.Type,
			"error", o.Message,
		)
	}
}

// waitWithJitter delays up to 10% of the interval so replicas started together
// do not probe in lockstep.
func (m *HealthMonitor) waitWithJitter(ctx context.Context) {
	maxJitter := int64(m.interval / 10)
	if maxJitter <= 0 {
		return
	}

	var buf [8]byte
	if _, err := rand.Read(buf[:]); err != nil {
		m.logger.WarnContext(ctx, "failed to generate jitter, skipping", "error", err)
		return
	}
	jitter := time.Duration(int64(binary.BigEndian.Uint64(buf[:]) % uint64(maxJitter))) // #nosec G115 - bounded by maxJitter

	t := time.NewTimer(jitter)
	defer t.Stop()
	select {
	case <-t.C:
	case <-ctx.Done():
	}
}
