// Package metrics adapts plugin outcomes and dispatches to metric backends.
package metrics

import (
	"log/slog"

	"github.com/target/mmk-alert-router/internal/core"
	"github.com/target/mmk-alert-router/internal/domain/model"
	"github.com/target/mmk-alert-router/internal/observability/statsd"
)

// Plugin outcome labels.
const (
	OutcomeSuccess = "success"
	OutcomeFailure = "failure"
)

// StatsdPluginMetrics counts plugin outcomes as "plugin.outcome" with identity tags.
type StatsdPluginMetrics struct {
	sink statsd.Sink
}

var _ core.PluginMetrics = (*StatsdPluginMetrics)(nil)

// NewStatsdPluginMetrics wraps a StatsD sink. A nil sink drops everything.
func NewStatsdPluginMetrics(sink statsd.Sink) *StatsdPluginMetrics {
	return &StatsdPluginMetrics{sink: sink}
}

// RecordSuccess implements core.PluginMetrics.
func (m *StatsdPluginMetrics) RecordSuccess(id model.PluginIdentity) { m.emit(id, OutcomeSuccess) }

// RecordFailure implements core.PluginMetrics.
func (m *StatsdPluginMetrics) RecordFailure(id model.PluginIdentity) { m.emit(id, OutcomeFailure) }

func (m *StatsdPluginMetrics) emit(id model.PluginIdentity, result string) {
	if m == nil || m.sink == nil {
		return
	}
	m.sink.Count("plugin.outcome", 1, IdentityTags(id, result))
}

// IdentityTags builds the tag set shared by every per-plugin metric.
func IdentityTags(id model.PluginIdentity, result string) map[string]string {
	tags := map[string]string{
		"plugin_name":  id.Name,
		"plugin_group": id.Group,
		"plugin_type":  id.Type,
	}
	if result != "" {
		tags["result"] = result
	}
	return tags
}

// Multi fans each record out to several sinks in order.
type Multi []core.PluginMetrics

var _ core.PluginMetrics = Multi(nil)

// NewMulti drops nil entries and returns a Multi.
func NewMulti(sinks ...core.PluginMetrics) Multi {
	out := make(Multi, 0, len(sinks))
	for _, s := range sinks {
		if s != nil {
			out = append(out, s)
		}
	}
	return out
}

// RecordSuccess implements core.PluginMetrics.
func (m Multi) RecordSuccess(id model.PluginIdentity) {
	for _, s := range m {
		recordIsolated(s.RecordSuccess, id)
	}
}

// RecordFailure implements core.PluginMetrics.
func (m Multi) RecordFailure(id model.PluginIdentity) {
	for _, s := range m {
		recordIsolated(s.RecordFailure, id)
	}
}

// recordIsolated keeps a panicking sink from starving the sinks after it.
func recordIsolated(record func(model.PluginIdentity), id model.PluginIdentity) {
	defer func() {
		if r := recover(); r != nil {
			slog.Default().Warn("plugin metrics sink panicked",
				"component", "plugin_metrics",
				"plugin_name", id.Name,
				"panic", r,
			)
		}
	}()
	record(id)
}

// Nop discards every record.
type Nop struct{}

var _ core.PluginMetrics = Nop{}

// RecordSuccess implements core.PluginMetrics.
func (Nop) RecordSuccess(model.PluginIdentity) {}

// RecordFailure implements core.PluginMetrics.
func (Nop) RecordFailure(model.PluginIdentity) {}
