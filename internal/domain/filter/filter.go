// Package filter implements the plugin selection language: a small boolean
// query over a plugin's name, group and type, e.g.
//
//	type == postgres or (group in [paging, chat] and not name matches /^test-/)
package filter

import "github.com/target/mmk-alert-router/internal/domain/model"

// Filter is a parsed and reduced selection expression.
// The zero value and a nil *Filter both select every plugin.
type Filter struct {
	// Source is the text the filter was compiled from.
	Source string
	// Parsed is the tree as written; Reduced is what Match evaluates.
	Parsed  Expr
	Reduced Expr
}

// Compile parses and reduces a filter string.
func Compile(source string) (*Filter, error) {
	parsed, err := Parse(source)
	if err != nil {
		return nil, err
	}
	return &Filter{Source: source, Parsed: parsed, Reduced: Reduce(parsed)}, nil
}

// SelectsAll reports whether the filter has no expression.
func (f *Filter) SelectsAll() bool {
	return f == nil || f.Reduced == nil
}

// Match reports whether the filter selects id.
func (f *Filter) Match(id model.PluginIdentity) bool {
	if f.SelectsAll() {
		return true
	}
	return f.Reduced.Eval(id)
}

// String renders the reduced expression, or "" when the filter selects everything.
func (f *Filter) String() string {
	if f.SelectsAll() {
		return ""
	}
	return f.Reduced.String()
}
