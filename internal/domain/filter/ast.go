package filter

import (
	"regexp"
	"slices"
	"strconv"
	"strings"

	"github.com/target/mmk-alert-router/internal/domain/model"
)

// Field names the part of a plugin identity a test inspects.
type Field string

const (
	FieldName  Field = "name"
	FieldGroup Field = "group"
	FieldType  Field = "type"
)

// Valid returns true if the field is one of the supported identity fields.
func (f Field) Valid() bool {
	switch f {
	case FieldName, FieldGroup, FieldType:
		return true
	default:
		return false
	}
}

func (f Field) valueOf(id model.PluginIdentity) string {
	switch f {
	case FieldName:
		return id.Name
	case FieldGroup:
		return id.Group
	case FieldType:
		return id.Type
	default:
		return ""
	}
}

// Expr is an immutable filter expression tree. Eval is pure.
type Expr interface {
	Eval(id model.PluginIdentity) bool
	// String renders the expression in a form Parse accepts.
	String() string
	expr()
}

// Predicate tests a single field value.
type Predicate interface {
	Test(value string) bool
	String() string
	predicate()
}

// FieldTest is a leaf applying Pred to one identity field.
type FieldTest struct {
	Field Field
	Pred  Predicate
}

// And is true when both sides are true.
type And struct{ Left, Right Expr }

// Or is true when either side is true.
type Or struct{ Left, Right Expr }

// Not negates Inner.
type Not struct{ Inner Expr }

func (FieldTest) expr() {}
func (And) expr()       {}
func (Or) expr()        {}
func (Not) expr()       {}

func (t FieldTest) Eval(id model.PluginIdentity) bool { return t.Pred.Test(t.Field.valueOf(id)) }

func (a And) Eval(id model.PluginIdentity) bool {
	l := a.Left.Eval(id)
	r := a.Right.Eval(id)
	return l && r
}

func (o Or) Eval(id model.PluginIdentity) bool {
	l := o.Left.Eval(id)
	r := o.Right.Eval(id)
	return l || r
}

func (n Not) Eval(id model.PluginIdentity) bool { return !n.Inner.Eval(id) }

func (t FieldTest) String() string { return string(t.Field) + " " + t.Pred.String() }
func (a And) String() string       { return "(" + a.Left.String() + " and " + a.Right.String() + ")" }
func (o Or) String() string        { return "(" + o.Left.String() + " or " + o.Right.String() + ")" }
func (n Not) String() string       { return "not " + n.Inner.String() }

// Is matches an exact value.
type Is struct{ Value string }

// IsNot matches anything but Value.
type IsNot struct{ Value string }

// In matches any member of Values.
type In struct{ Values []string }

// NotIn matches anything outside Values.
type NotIn struct{ Values []string }

// Matches searches the value with Pattern. Anchoring is up to the pattern.
type Matches struct{ Pattern *regexp.Regexp }

func (Is) predicate()      {}
func (IsNot) predicate()   {}
func (In) predicate()      {}
func (NotIn) predicate()   {}
func (Matches) predicate() {}

func (p Is) Test(v string) bool      { return v == p.Value }
func (p IsNot) Test(v string) bool   { return v != p.Value }
func (p In) Test(v string) bool      { return slices.Contains(p.Values, v) }
func (p NotIn) Test(v string) bool   { return !slices.Contains(p.Values, v) }
func (p Matches) Test(v string) bool { return p.Pattern.MatchString(v) }

func (p Is) String() string      { return "is " + renderValue(p.Value) }
func (p IsNot) String() string   { return "is not " + renderValue(p.Value) }
func (p In) String() string      { return "in " + renderList(p.Values) }
func (p NotIn) String() string   { return "not in " + renderList(p.Values) }
func (p Matches) String() string { return "matches " + renderRegex(p.Pattern.String()) }

var keywords = map[string]struct{}{
	"and": {}, "or": {}, "not": {}, "is": {}, "in": {}, "matches": {},
}

func isKeyword(s string) bool {
	_, ok := keywords[s]
	return ok
}

func isBareValue(s string) bool {
	if s == "" || isKeyword(s) {
		return false
	}
	for _, r := range s {
		if !isIdentRune(r) {
			return false
		}
	}
	return true
}

func renderValue(v string) string {
	if isBareValue(v) {
		return v
	}
	var b strings.Builder
	b.WriteByte('"')
	for i := 0; i < len(v); i++ {
		if v[i] == '"' || v[i] == '\\' {
			b.WriteByte('\\')
		}
		b.WriteByte(v[i])
	}
	b.WriteByte('"')
	return b.String()
}

func renderList(values []string) string {
	parts := make([]string, len(values))
	for i, v := range values {
		parts[i] = renderValue(v)
	}
	return "[" + strings.Join(parts, ", ") + "]"
}

func renderRegex(src string) string {
	var b strings.Builder
	b.WriteByte('/')
	for i := 0; i < len(src); i++ {
		switch {
		case src[i] == '\\' && i+1 < len(src):
			b.WriteByte('\\')
			b.WriteByte(src[i+1])
			i++
		case src[i] == '/':
			b.WriteString(`\/`)
		default:
			b.WriteByte(src[i])
		}
	}
	b.WriteByte('/')
	return b.String()
}

// quote is used in error messages only.
func quote(s string) string { return strconv.Quote(s) }
