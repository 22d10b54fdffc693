package postgres

import (
	"context"
	"database/sql"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/target/mmk-alert-router/internal/core"
	"github.com/target/mmk-alert-router/internal/domain/model"
	apperrors "github.com/target/mmk-alert-router/internal/errors"
	"github.com/target/mmk-alert-router/internal/testutil"
)

var testID = model.PluginIdentity{Name: "archive", Group: "storage", Type: Type}

func TestConfigValidate(t *testing.T) {
	err := Config{}.Validate()
	require.Error(t, err)
	assert.Equal(t, "dsn", apperrors.GetField(err))

	assert.Error(t, Config{DSN: "postgres://x", MaxOpenConns: -1}.Validate())
	assert.NoError(t, Config{DSN: "postgres://x"}.Validate())
}

func TestNewAppliesPoolDefaults(t *testing.T) {
	p, err := New(testID, Config{DSN: "postgres://x"}, nil)
	require.NoError(t, err)
	assert.Equal(t, 10, p.cfg.MaxOpenConns)
	assert.Equal(t, 2, p.cfg.MaxIdleConns)
	assert.Equal(t, testID, p.Meta())
}

func TestUninitializedPluginFails(t *testing.T) {
	p, err := New(testID, Config{DSN: "postgres://x"}, nil)
	require.NoError(t, err)

	require.ErrorIs(t, p.Health(context.Background()), core.ErrPluginNotInitialized)
	require.ErrorIs(t, p.Push(context.Background(), testutil.NewAlertGroup().Build()), core.ErrPluginNotInitialized)
	assert.NoError(t, p.Close())
}

func TestNewGroupRecord(t *testing.T) {
	g := testutil.NewAlertGroup().
		AddAlert(model.AlertStatusFiring, "a1").
		AddAlert(model.AlertStatusResolved, "a2").
		Build()
	payload, err := g.Payload()
	require.NoError(t, err)

	rec, err := newGroupRecord(g, payload)
	require.NoError(t, err)
	assert.Equal(t, g.GroupKey, rec.groupKey)
	assert.Equal(t, 2, rec.alertCount)
	require.Len(t, rec.alerts, 2)
	assert.Len(t, rec.alerts[0], len(alertColumns)-1)
	assert.Nil(t, rec.alerts[0][5], "firing alert has no end time")
	assert.NotNil(t, rec.alerts[1][5])
	assert.JSONEq(t, `{"alertname":"HighLatency","service":"api","severity":"warning"}`, string(rec.commonLabels))
}

func TestJSONObjectEmpty(t *testing.T) {
	b, err := jsonObject(nil)
	require.NoError(t, err)
	assert.Equal(t, "{}", string(b))
}

func TestPluginIntegration(t *testing.T) {
	if testing.Short() {
		t.Skip("integration test")
	}
	dsn := testutil.EphemeralSchemaDSN(t)
	ctx := context.Background()

	p, err := New(testID, Config{DSN: dsn}, nil)
	require.NoError(t, err)
	require.NoError(t, p.Initialize(ctx))
	t.Cleanup(func() { _ = p.Close() })

	require.NoError(t, p.Health(ctx))

	g := testutil.NewAlertGroup().
		AddAlert(model.AlertStatusFiring, "a1").
		AddAlert(model.AlertStatusFiring, "a2").
		Build()
	require.NoError(t, p.Push(ctx, g))
	require.NoError(t, p.Push(ctx, testutil.NewAlertGroup().Build()))

	db, err := sql.Open("pgx", dsn)
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })

	var groups, alerts int
	require.NoError(t, db.QueryRowContext(ctx, `SELECT count(*) FROM alert_groups`).Scan(&groups))
	require.NoError(t, db.QueryRowContext(ctx, `SELECT count(*) FROM alerts`).Scan(&alerts))
	assert.Equal(t, 2, groups)
	assert.Equal(t, 2, alerts)

	var service string
	require.NoError(t, db.QueryRowContext(ctx,
		`SELECT payload->'commonLabels'->>'service' FROM alert_groups ORDER BY id LIMIT 1`,
	).Scan(&service))
	assert.Equal(t, "api", service)

	require.NoError(t, p.Close())
	assert.ErrorIs(t, p.Health(ctx), core.ErrPluginNotInitialized)
}

func TestInitializeUnreachableDatabase(t *testing.T) {
	p, err := New(testID, Config{DSN: "postgres://u:p@127.0.0.1:1/db?connect_timeout=1"}, nil)
	require.NoError(t, err)

	err = p.Initialize(context.Background())
	require.Error(t, err)
	assert.True(t, apperrors.IsUnavailable(err), "got %v", err)
}
