//revive:disable-next-line:var-naming // legacy package name widely used across the project
package model

import (
	"fmt"
	"strings"
)

// PluginIdentity is the immutable (name, group, type) triple a plugin reports about itself.
// Identities are compared by value and are what filter expressions match against.
type PluginIdentity struct {
	Name  string `json:"name"  yaml:"name"`
	Group string `json:"group" yaml:"group"`
	Type  string `json:"type"  yaml:"type"`
}

// String renders the identity as type/group/name for logs.
func (p PluginIdentity) String() string {
	return fmt.Sprintf("%s/%s/%s", p.Type, p.Group, p.Name)
}

// Validate reports whether the identity carries the fields the registry requires.
func (p PluginIdentity) Validate() error {
	if strings.TrimSpace(p.Name) == "" {
		return fmt.Errorf("plugin name is required")
	}
	if strings.TrimSpace(p.Type) == "" {
		return fmt.Errorf("plugin %q: type is required", p.Name)
	}
	return nil
}

// OutcomeResult is the per-plugin result of one dispatched operation.
type OutcomeResult string

const (
	OutcomeOK     OutcomeResult = "ok"
	OutcomeFailed OutcomeResult = "failed"
)

// PluginOutcome records what happened when an operation ran against one plugin.
// Message is only set for failed outcomes.
type PluginOutcome struct {
	Identity   PluginIdentity `json:"plugin"`
	Result     OutcomeResult  `json:"result"`
	Message    string         `json:"message,omitempty"`
	DurationMS int64          `json:"duration_ms"`
}

// Succeeded reports whether the outcome is Ok.
func (o PluginOutcome) Succeeded() bool {
	return o.Result == OutcomeOK
}

// NewOKOutcome builds a successful outcome for id.
func NewOKOutcome(id PluginIdentity) PluginOutcome {
	return PluginOutcome{Identity: id, Result: OutcomeOK}
}

// NewFailedOutcome builds a failed outcome for id carrying msg.
func NewFailedOutcome(id PluginIdentity, msg string) PluginOutcome {
	return PluginOutcome{Identity: id, Result: OutcomeFailed, Message: msg}
}
