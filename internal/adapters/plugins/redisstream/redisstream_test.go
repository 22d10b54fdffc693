package redisstream

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/target/mmk-alert-router/internal/core"
	"github.com/target/mmk-alert-router/internal/domain/model"
	apperrors "github.com/target/mmk-alert-router/internal/errors"
	"github.com/target/mmk-alert-router/internal/testutil"
)

var testID = model.PluginIdentity{Name: "stream", Group: "bus", Type: Type}

func TestConfigValidate(t *testing.T) {
	tests := []struct {
		name      string
		cfg       Config
		wantField string
	}{
		{name: "missing address", cfg: Config{Stream: "s"}, wantField: "url"},
		{name: "missing stream", cfg: Config{URL: "redis://localhost:6379/0"}, wantField: "stream"},
		{name: "bad url", cfg: Config{URL: "http://x", Stream: "s"}, wantField: "url"},
		{name: "negative max len", cfg: Config{Addrs: []string{"a:1"}, Stream: "s", MaxLen: -1}, wantField: "max_len"},
		{name: "ok", cfg: Config{Addrs: []string{"a:1"}, Stream: "s"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.cfg.Validate()
			if tt.wantField == "" {
				require.NoError(t, err)
				return
			}
			require.Error(t, err)
			assert.True(t, apperrors.IsValidation(err))
			assert.Equal(t, tt.wantField, apperrors.GetField(err))
		})
	}
}

func TestAddArgs(t *testing.T) {
	p, err := New(testID, Config{URL: "redis://localhost:6379/0", Stream: "alerts", MaxLen: 1000}, nil)
	require.NoError(t, err)

	g := testutil.NewAlertGroup().Build()
	args, err := p.addArgs(g)
	require.NoError(t, err)
	assert.Equal(t, "alerts", args.Stream)
	assert.Equal(t, int64(1000), args.MaxLen)
	assert.True(t, args.Approx)
	assert.Equal(t, []any{FieldGroupKey, g.GroupKey, FieldStatus, "firing", FieldPayload, string(g.Raw)}, args.Values)

	p.cfg.MaxLen = 0
	args, err = p.addArgs(g)
	require.NoError(t, err)
	assert.Zero(t, args.MaxLen)
	assert.False(t, args.Approx)
}

func TestUninitialized(t *testing.T) {
	p, err := New(testID, Config{URL: "redis://localhost:6379/0", Stream: "s"}, nil)
	require.NoError(t, err)
	assert.ErrorIs(t, p.Health(context.Background()), core.ErrPluginNotInitialized)
	assert.ErrorIs(t, p.Push(context.Background(), testutil.NewAlertGroup().Build()), core.ErrPluginNotInitialized)
}

func TestPluginIntegration(t *testing.T) {
	if testing.Short() {
		t.Skip("integration test")
	}
	uri := testutil.TestRedisURI(t)
	ctx := context.Background()

	p, err := New(testID, Config{URL: uri, Stream: "alerts:test", MaxLen: 100}, nil)
	require.NoError(t, err)
	require.NoError(t, p.Initialize(ctx))
	t.Cleanup(func() { _ = p.Close() })

	require.NoError(t, p.Health(ctx))
	g := testutil.NewAlertGroup().AddAlert(model.AlertStatusFiring, "a1").Build()
	require.NoError(t, p.Push(ctx, g))

	client, err := p.conn()
	require.NoError(t, err)
	entries, err := client.XRange(ctx, "alerts:test", "-", "+").Result()
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Equal(t, g.GroupKey, entries[0].Values[FieldGroupKey])
	assert.JSONEq(t, string(g.Raw), entries[0].Values[FieldPayload].(string))
}
