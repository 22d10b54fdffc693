package testutil

import (
	"encoding/json"
	"time"

	"github.com/target/mmk-alert-router/internal/domain/model"
)

// AlertGroupBuilder assembles Alertmanager-style groups for tests.
type AlertGroupBuilder struct {
	group model.AlertGroup
}

// NewAlertGroup starts a firing group for alertname=HighLatency, service=api.
func NewAlertGroup() *AlertGroupBuilder {
	return &AlertGroupBuilder{group: model.AlertGroup{
		Version:      "4",
		GroupKey:     `{}:{alertname="HighLatency"}`,
		Status:       model.AlertStatusFiring,
		Receiver:     "alert-router",
		GroupLabels:  map[string]string{"alertname": "HighLatency"},
		CommonLabels: map[string]string{"alertname": "HighLatency", "service": "api", "severity": "warning"},
		CommonAnnotations: map[string]string{
			"summary": "p99 latency above 2s",
		},
		ExternalURL: "http://alertmanager.local",
	}}
}

// WithStatus sets the group status.
func (b *AlertGroupBuilder) WithStatus(status string) *AlertGroupBuilder {
	b.group.Status = status
	return b
}

// WithGroupKey sets the group key.
func (b *AlertGroupBuilder) WithGroupKey(key string) *AlertGroupBuilder {
	b.group.GroupKey = key
	return b
}

// WithCommonLabel sets a common label.
func (b *AlertGroupBuilder) WithCommonLabel(key, value string) *AlertGroupBuilder {
	if b.group.CommonLabels == nil {
		b.group.CommonLabels = map[string]string{}
	}
	b.group.CommonLabels[key] = value
	return b
}

// AddAlert appends an alert with the given status and fingerprint.
func (b *AlertGroupBuilder) AddAlert(status, fingerprint string) *AlertGroupBuilder {
	a := model.GroupedAlert{
		Status:       status,
		Labels:       map[string]string{"alertname": "HighLatency", "instance": "api-" + fingerprint},
		Annotations:  map[string]string{"description": "latency on " + fingerprint},
		StartsAt:     TestTime(),
		GeneratorURL: "http://prometheus.local/graph",
		Fingerprint:  fingerprint,
	}
	if status == model.AlertStatusResolved {
		a.EndsAt = TestTime().Add(5 * time.Minute)
	}
	b.group.Alerts = append(b.group.Alerts, a)
	return b
}

// Build returns the group as the HTTP layer would hand it over, with Raw set.
func (b *AlertGroupBuilder) Build() *model.AlertGroup {
	g := b.group
	if g.Alerts == nil {
		g.Alerts = []model.GroupedAlert{}
	}
	raw, err := json.Marshal(g)
	if err != nil {
		panic(err)
	}
	parsed, err := model.ParseAlertGroup(raw)
	if err != nil {
		panic(err)
	}
	return parsed
}
