package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/target/mmk-alert-router/internal/domain/model"
)

func mapLookup(vars map[string]string) LookupFunc {
	return func(k string) (string, bool) {
		v, ok := vars[k]
		return v, ok
	}
}

const sampleDecls = `
plugins:
  - name: audit-db
    group: storage
    type: postgres
    options:
      dsn: postgres://router:${DB_PASSWORD}@db:5432/router
      max_open_conns: ${DB_POOL:-8}
  - name: ops-slack
    group: chat
    type: slack
    options:
      webhook_url: "${SLACK_URL}"
  - name: stdout
    type: print
`

func TestParsePluginDecls(t *testing.T) {
	decls, err := ParsePluginDecls([]byte(sampleDecls), mapLookup(map[string]string{
		"DB_PASSWORD": "s3cret",
		"SLACK_URL":   "https://hooks.slack.test/T/B/X",
	}))
	require.NoError(t, err)
	require.Len(t, decls, 3)

	assert.Equal(t, model.PluginIdentity{Name: "audit-db", Group: "storage", Type: "postgres"}, decls[0].Identity())
	assert.Equal(t, 3, decls[0].Line())
	assert.Equal(t, model.PluginIdentity{Name: "stdout", Type: "print"}, decls[2].Identity())

	var pg struct {
		DSN          string `yaml:"dsn"`
		MaxOpenConns int    `yaml:"max_open_conns"`
	}
	require.NoError(t, decls[0].DecodeOptions(&pg))
	assert.Equal(t, "postgres://router:s3cret@db:5432/router", pg.DSN)
	assert.Equal(t, 8, pg.MaxOpenConns, "default applies and plain scalar re-resolves to int")

	var slack struct {
		WebhookURL string `yaml:"webhook_url"`
	}
	require.NoError(t, decls[1].DecodeOptions(&slack))
	assert.Equal(t, "https://hooks.slack.test/T/B/X", slack.WebhookURL)

	var none struct{ Format string }
	require.NoError(t, decls[2].DecodeOptions(&none), "missing options block is allowed")
}

func TestParsePluginDecls_UndefinedVariable(t *testing.T) {
	_, err := ParsePluginDecls([]byte(sampleDecls), mapLookup(map[string]string{"SLACK_URL": "x"}))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "DB_PASSWORD")
	assert.Contains(t, err.Error(), "line 7")
}

func TestParsePluginDecls_Empty(t *testing.T) {
	decls, err := ParsePluginDecls(nil, mapLookup(nil))
	require.NoError(t, err)
	assert.Empty(t, decls)
}

func TestParsePluginDecls_Malformed(t *testing.T) {
	_, err := ParsePluginDecls([]byte("plugins: [name: a"), mapLookup(nil))
	require.Error(t, err)
}

func TestDecodeOptions_RejectsNonMapping(t *testing.T) {
	decls, err := ParsePluginDecls([]byte("plugins:\n  - name: a\n    type: print\n    options: [1, 2]\n"), mapLookup(nil))
	require.NoError(t, err)
	var out map[string]any
	err = decls[0].DecodeOptions(&out)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "must be a mapping")
}

func TestLoadPluginDecls(t *testing.T) {
	path := filepath.Join(t.TempDir(), "plugins.yaml")
	require.NoError(t, os.WriteFile(path, []byte("plugins:\n  - name: f\n    type: file\n    options:\n      path: ${ROUTER_TEST_DIR}/out.jsonl\n"), 0o600))
	t.Setenv("ROUTER_TEST_DIR", "/var/log/router")

	decls, err := LoadPluginDecls(path)
	require.NoError(t, err)
	require.Len(t, decls, 1)
	var opts struct {
		Path string `yaml:"path"`
	}
	require.NoError(t, decls[0].DecodeOptions(&opts))
	assert.Equal(t, "/var/log/router/out.jsonl", opts.Path)

	_, err = LoadPluginDecls(filepath.Join(t.TempDir(), "missing.yaml"))
	require.Error(t, err)
}

func TestValidatePluginDecls(t *testing.T) {
	known := []string{"print", "file"}

	tests := []struct {
		name    string
		decls   []PluginDecl
		wantErr []string
	}{
		{
			name:  "valid",
			decls: []PluginDecl{{Name: "a", Type: "print"}, {Name: "b", Group: "g", Type: "file"}},
		},
		{
			name:    "missing name and type",
			decls:   []PluginDecl{{}},
			wantErr: []string{"plugins[0]: name is required", "plugins[0]: type is required"},
		},
		{
			name:    "duplicate name",
			decls:   []PluginDecl{{Name: "a", Type: "print"}, {Name: "a", Type: "file"}},
			wantErr: []string{`plugins[1] (a): duplicate name "a" (first declared at plugins[0])`},
		},
		{
			name:    "unknown type",
			decls:   []PluginDecl{{Name: "a", Type: "carrier-pigeon"}},
			wantErr: []string{`unknown type "carrier-pigeon"`},
		},
		{
			name:    "padded name",
			decls:   []PluginDecl{{Name: " a", Type: "print"}},
			wantErr: []string{"surrounding whitespace"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := ValidatePluginDecls(tt.decls, known)
			if len(tt.wantErr) == 0 {
				assert.NoError(t, err)
				return
			}
			require.Error(t, err)
			for _, want := range tt.wantErr {
				assert.Contains(t, err.Error(), want)
			}
		})
	}
}
