package filter

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/target/mmk-alert-router/internal/domain/model"
)

func TestParseRendersCanonicalForm(t *testing.T) {
	t.Parallel()

	tests := []struct {
		in   string
		want string
	}{
		{in: "name is a", want: "name is a"},
		{in: "name == a", want: "name is a"},
		{in: "group is not b", want: "group is not b"},
		{in: "group != b", want: "group is not b"},
		{in: "type in [postgres, redis]", want: "type in [postgres, redis]"},
		{in: "type not in [file,print]", want: "type not in [file, print]"},
		{in: "name matches /^mysql.*$/", want: "name matches /^mysql.*$/"},
		{in: `name matches /a\/b/`, want: `name matches /a\/b/`},
		{in: `name is "and"`, want: `name is "and"`},
		{in: `name is "with space"`, want: `name is "with space"`},
		{in: `name is "q\"uote"`, want: `name is "q\"uote"`},
		{in: "name is a and group is b or type is c", want: "((name is a and group is b) or type is c)"},
		{in: "name is a || group is b && type is c", want: "(name is a or (group is b and type is c))"},
		{in: "not name is a and group is b", want: "(not name is a and group is b)"},
		{in: "!(name is a or group is b)", want: "not (name is a or group is b)"},
		{in: "  (  name is a  )  ", want: "name is a"},
		{in: "name is db-01_x", want: "name is db-01_x"},
	}

	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			t.Parallel()
			e, err := Parse(tt.in)
			require.NoError(t, err)
			require.NotNil(t, e)
			assert.Equal(t, tt.want, e.String())

			again, err := Parse(e.String())
			require.NoError(t, err)
			assert.Equal(t, e.String(), again.String())
		})
	}
}

func TestParseEmptySelectsAll(t *testing.T) {
	t.Parallel()

	for _, in := range []string{"", "   ", "\t\n"} {
		e, err := Parse(in)
		require.NoError(t, err)
		assert.Nil(t, e)
	}
}

func TestParseErrors(t *testing.T) {
	t.Parallel()

	tests := []struct {
		in     string
		offset int
		msg    string
	}{
		{in: "name", offset: 4, msg: "expected operator"},
		{in: "colour is red", offset: 0, msg: "unknown field"},
		{in: "name is", offset: 7, msg: "expected value"},
		{in: "name is a and", offset: 13, msg: "unexpected end of input"},
		{in: "name is a b", offset: 10, msg: "unexpected 'b'"},
		{in: "(name is a", offset: 10, msg: "expected ')'"},
		{in: "name in []", offset: 9, msg: "expected value"},
		{in: "name in [a,", offset: 11, msg: "expected value"},
		{in: "name in [a b]", offset: 11, msg: "expected ',' or ']'"},
		{in: "name not a", offset: 9, msg: "expected 'in' after 'not'"},
		{in: "name matches /(/", offset: 13, msg: "invalid regex"},
		{in: "name matches /abc", offset: 13, msg: "unterminated regex"},
		{in: "name matches abc", offset: 13, msg: "expected regex"},
		{in: "name is a & group is b", offset: 10, msg: "expected '&&'"},
		{in: "name = a", offset: 5, msg: "expected '=='"},
		{in: `name is "abc`, offset: 8, msg: "unterminated string"},
		{in: "name is a $", offset: 10, msg: "unexpected character"},
		{in: "name is or", offset: 8, msg: "keyword"},
	}

	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			t.Parallel()
			_, err := Parse(tt.in)
			require.Error(t, err)
			assert.ErrorIs(t, err, ErrInvalidFilter)

			var perr *ParseError
			require.True(t, errors.As(err, &perr))
			assert.Equal(t, tt.offset, perr.Offset)
			assert.Contains(t, perr.Msg, tt.msg)
		})
	}
}

func TestEvalScenarios(t *testing.T) {
	t.Parallel()

	n1 := model.PluginIdentity{Name: "n1", Group: "g", Type: "postgres"}
	n2 := model.PluginIdentity{Name: "n2", Group: "g", Type: "sqlite"}

	e, err := Parse("type == postgres")
	require.NoError(t, err)
	assert.True(t, e.Eval(n1))
	assert.False(t, e.Eval(n2))

	e, err = Parse("name matches /^mysql.*$/")
	require.NoError(t, err)
	assert.True(t, e.Eval(model.PluginIdentity{Name: "mysql_01"}))
	assert.False(t, e.Eval(model.PluginIdentity{Name: "postgres_01"}))

	e, err = Parse("name matches /sql/")
	require.NoError(t, err)
	assert.True(t, e.Eval(model.PluginIdentity{Name: "postgresql"}), "matches is an unanchored search")
}

func TestEvalPredicates(t *testing.T) {
	t.Parallel()

	id := model.PluginIdentity{Name: "pager-1", Group: "paging", Type: "pagerduty"}

	tests := []struct {
		expr string
		want bool
	}{
		{expr: "name is pager-1", want: true},
		{expr: "name is not pager-1", want: false},
		{expr: "group in [chat, paging]", want: true},
		{expr: "group not in [chat, paging]", want: false},
		{expr: "type not in [file]", want: true},
		{expr: "type matches /duty$/", want: true},
		{expr: "type matches /^duty/", want: false},
		{expr: "name is pager-1 and group is chat", want: false},
		{expr: "name is pager-1 or group is chat", want: true},
		{expr: "not group is chat", want: true},
		{expr: "!(name is pager-1)", want: false},
	}

	for _, tt := range tests {
		t.Run(tt.expr, func(t *testing.T) {
			t.Parallel()
			e, err := Parse(tt.expr)
			require.NoError(t, err)
			assert.Equal(t, tt.want, e.Eval(id))
		})
	}
}
