package slack

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/target/mmk-alert-router/internal/domain/model"
	apperrors "github.com/target/mmk-alert-router/internal/errors"
	"github.com/target/mmk-alert-router/internal/testutil"
)

var testID = model.PluginIdentity{Name: "ops-slack", Group: "ops", Type: Type}

func TestConfigValidate(t *testing.T) {
	err := Config{}.Validate()
	require.Error(t, err)
	assert.Equal(t, "webhook_url", apperrors.GetField(err))

	err = Config{WebhookURL: "ftp://hooks.slack.com/x"}.Validate()
	require.Error(t, err)

	assert.NoError(t, Config{WebhookURL: " https://hooks.slack.com/services/T/B/X "}.Validate())
}

func TestPushPostsSummary(t *testing.T) {
	var payload map[string]any
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.NoError(t, json.NewDecoder(r.Body).Decode(&payload))
		_, _ = w.Write([]byte("ok"))
	}))
	defer srv.Close()

	p, err := New(testID, Config{WebhookURL: srv.URL, Channel: "#ops"}, srv.Client(), nil)
	require.NoError(t, err)

	g := testutil.NewAlertGroup().
		AddAlert(model.AlertStatusFiring, "a1").
		AddAlert(model.AlertStatusResolved, "a2").
		Build()
	require.NoError(t, p.Initialize(context.Background()))
	require.NoError(t, p.Health(context.Background()))
	require.NoError(t, p.Push(context.Background(), g))

	assert.Equal(t, "#ops", payload["channel"])
	assert.Equal(t, "alert-router", payload["username"])
	text, _ := payload["text"].(string)
	assert.Contains(t, text, ":red_circle: *[FIRING:1] HighLatency*")
	assert.Contains(t, text, "• Severity: warning")
	assert.Contains(t, text, "• Summary: p99 latency above 2s")
	assert.Contains(t, text, "`service=api`")
	assert.Contains(t, text, "[FIRING] latency on a1 (since 2024-05-01T10:00:00Z)")
	assert.Contains(t, text, "<http://alertmanager.local|Alertmanager>")
}

func TestPushErrorRedactsWebhook(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusForbidden)
		_, _ = w.Write([]byte("invalid_token for " + r.URL.Path))
	}))
	defer srv.Close()

	hook := srv.URL + "/services/T000/B000/XXXX"
	p, err := New(testID, Config{WebhookURL: hook}, srv.Client(), nil)
	require.NoError(t, err)

	err = p.Push(context.Background(), testutil.NewAlertGroup().Build())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "slack webhook: unexpected status 403 Forbidden")
	assert.NotContains(t, err.Error(), hook)
}

func TestFormatMessageTruncatesAlerts(t *testing.T) {
	p, err := New(testID, Config{WebhookURL: "https://hooks.slack.com/x"}, nil, nil)
	require.NoError(t, err)

	b := testutil.NewAlertGroup().WithStatus(model.AlertStatusResolved)
	for i := range maxListedAlerts + 3 {
		b.AddAlert(model.AlertStatusResolved, string(rune('a'+i)))
	}
	msg := p.formatMessage(b.Build())
	text := msg["text"].(string)
	assert.Contains(t, text, ":large_green_circle: *[RESOLVED] HighLatency*")
	assert.Contains(t, text, "…and 3 more")
	_, hasChannel := msg["channel"]
	assert.False(t, hasChannel)
}

func TestEscapeSlackText(t *testing.T) {
	assert.Equal(t, "a &lt;b&gt; &amp; c", escapeSlackText("a <b> & c"))
}
