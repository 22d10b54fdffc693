//revive:disable-next-line:var-naming // legacy package name widely used across the project
package model

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"sort"
	"strings"
	"time"
)

// Alert group statuses as reported by the upstream alert manager.
const (
	AlertStatusFiring   = "firing"
	AlertStatusResolved = "resolved"
)

// AlertGroup is one grouped notification in the Alertmanager webhook format.
// The router only reads a handful of fields; the original request body is kept
// in Raw and is what sinks persist or forward.
type AlertGroup struct {
	Version           string            `json:"version,omitempty"`
	GroupKey          string            `json:"groupKey"`
	TruncatedAlerts   int               `json:"truncatedAlerts,omitempty"`
	Status            string            `json:"status"`
	Receiver          string            `json:"receiver"`
	GroupLabels       map[string]string `json:"groupLabels,omitempty"`
	CommonLabels      map[string]string `json:"commonLabels,omitempty"`
	CommonAnnotations map[string]string `json:"commonAnnotations,omitempty"`
	ExternalURL       string            `json:"externalURL,omitempty"`
	Alerts            []GroupedAlert    `json:"alerts"`

	Raw json.RawMessage `json:"-"`
}

// GroupedAlert is a single alert inside an AlertGroup.
type GroupedAlert struct {
	Status       string            `json:"status"`
	Labels       map[string]string `json:"labels,omitempty"`
	Annotations  map[string]string `json:"annotations,omitempty"`
	StartsAt     time.Time         `json:"startsAt"`
	EndsAt       time.Time         `json:"endsAt,omitempty"`
	GeneratorURL string            `json:"generatorURL,omitempty"`
	Fingerprint  string            `json:"fingerprint,omitempty"`
}

var errAlertGroupNotObject = errors.New("body must be a JSON object")

// ParseAlertGroup decodes an Alertmanager webhook body and keeps the raw bytes.
// The body must be a JSON object.
func ParseAlertGroup(data []byte) (*AlertGroup, error) {
	if trimmed := bytes.TrimSpace(data); len(trimmed) == 0 || trimmed[0] != '{' {
		return nil, fmt.Errorf("decode alert group: %w", errAlertGroupNotObject)
	}
	var g AlertGroup
	if err := json.Unmarshal(data, &g); err != nil {
		return nil, fmt.Errorf("decode alert group: %w", err)
	}
	g.Raw = append(json.RawMessage(nil), data...)
	return &g, nil
}

// Payload returns the bytes sinks should deliver: the original body when known,
// otherwise the re-encoded group.
func (g *AlertGroup) Payload() ([]byte, error) {
	if g == nil {
		return nil, fmt.Errorf("alert group is nil")
	}
	if len(g.Raw) > 0 {
		return g.Raw, nil
	}
	return json.Marshal(g)
}

// Firing reports whether the group status is firing.
func (g *AlertGroup) Firing() bool {
	return strings.EqualFold(g.Status, AlertStatusFiring)
}

// FiringCount returns how many alerts in the group are firing.
func (g *AlertGroup) FiringCount() int {
	n := 0
	for _, a := range g.Alerts {
		if strings.EqualFold(a.Status, AlertStatusFiring) {
			n++
		}
	}
	return n
}

// Label looks up a label on the group, falling back to common labels.
func (g *AlertGroup) Label(key string) string {
	if v, ok := g.GroupLabels[key]; ok {
		return v
	}
	return g.CommonLabels[key]
}

// Title renders a one-line summary in the Alertmanager default style,
// e.g. "[FIRING:2] HighLatency (api prod)".
func (g *AlertGroup) Title() string {
	status := strings.ToUpper(g.Status)
	if status == "" {
		status = "UNKNOWN"
	}

	var b strings.Builder
	b.WriteByte('[')
	b.WriteString(status)
	if g.Firing() {
		fmt.Fprintf(&b, ":%d", g.FiringCount())
	}
	b.WriteByte(']')

	name := g.Label("alertname")
	if name != "" {
		b.WriteByte(' ')
		b.WriteString(name)
	}

	rest := make([]string, 0, len(g.GroupLabels))
	for _, k := range sortedKeys(g.GroupLabels) {
		if k == "alertname" {
			continue
		}
		rest = append(rest, g.GroupLabels[k])
	}
	if len(rest) > 0 {
		b.WriteString(" (")
		b.WriteString(strings.Join(rest, " "))
		b.WriteByte(')')
	}
	return b.String()
}

// Severity returns the severity label, defaulting to "critical" for firing groups
// and "info" for resolved ones.
func (g *AlertGroup) Severity() string {
	if s := strings.ToLower(strings.TrimSpace(g.Label("severity"))); s != "" {
		return s
	}
	if g.Firing() {
		return "critical"
	}
	return "info"
}

func sortedKeys(m map[string]string) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
