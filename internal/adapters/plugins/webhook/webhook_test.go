package webhook

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/target/mmk-alert-router/internal/domain/model"
	apperrors "github.com/target/mmk-alert-router/internal/errors"
	"github.com/target/mmk-alert-router/internal/testutil"
)

var testID = model.PluginIdentity{Name: "hook", Group: "ops", Type: Type}

func TestConfigValidate(t *testing.T) {
	tests := []struct {
		name      string
		cfg       Config
		wantField string
	}{
		{name: "missing url", cfg: Config{}, wantField: "url"},
		{name: "bad scheme", cfg: Config{URL: "file:///etc/passwd"}, wantField: "url"},
		{name: "bad method", cfg: Config{URL: "https://x.test", Method: "DELETE"}, wantField: "method"},
		{name: "bad ok status", cfg: Config{URL: "https://x.test", OKStatus: 42}, wantField: "ok_status"},
		{name: "bad jmespath", cfg: Config{URL: "https://x.test", Body: "alerts[?"}, wantField: "body"},
		{name: "bad health url", cfg: Config{URL: "https://x.test", HealthURL: "x"}, wantField: "health_url"},
		{name: "empty header", cfg: Config{URL: "https://x.test", Headers: map[string]string{" ": "v"}}, wantField: "headers"},
		{name: "ok", cfg: Config{URL: "https://x.test", Method: "put", Body: "commonLabels", OKStatus: 204}},
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

func TestBuildURLWithQuery(t *testing.T) {
	got, err := buildURLWithQuery("https://x.test/hook?a=1", map[string]string{"token": "t k", "b": "2"})
	require.NoError(t, err)
	assert.Equal(t, "https://x.test/hook?a=1&b=2&token=t+k", got)

	got, err = buildURLWithQuery("https://x.test/hook", nil)
	require.NoError(t, err)
	assert.Equal(t, "https://x.test/hook", got)
}

func TestDeriveBody(t *testing.T) {
	payload := []byte(`{"status":"firing","commonLabels":{"service":"api"},"alerts":[{"fingerprint":"a1"},{"fingerprint":"a2"}]}`)

	b, err := deriveBody("", payload)
	require.NoError(t, err)
	assert.Equal(t, payload, b)

	b, err = deriveBody("{service: commonLabels.service, ids: alerts[].fingerprint}", payload)
	require.NoError(t, err)
	assert.JSONEq(t, `{"service":"api","ids":["a1","a2"]}`, string(b))

	_, err = deriveBody("status", []byte("not json"))
	require.Error(t, err)
}

func TestPushSendsShapedBody(t *testing.T) {
	var (
		gotMethod, gotQuery, gotHeader string
		gotBody                        []byte
	)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotMethod = r.Method
		gotQuery = r.URL.RawQuery
		gotHeader = r.Header.Get("X-Team")
		gotBody, _ = io.ReadAll(r.Body)
		w.WriteHeader(http.StatusNoContent)
	}))
	defer srv.Close()

	p, err := New(testID, Config{
		URL:      srv.URL + "/hook",
		Method:   "put",
		Headers:  map[string]string{"X-Team": "sre"},
		Query:    map[string]string{"source": "router"},
		Body:     "{title: commonAnnotations.summary, status: status}",
		OKStatus: http.StatusNoContent,
	}, srv.Client(), nil)
	require.NoError(t, err)

	require.NoError(t, p.Push(context.Background(), testutil.NewAlertGroup().Build()))
	assert.Equal(t, http.MethodPut, gotMethod)
	assert.Equal(t, "source=router", gotQuery)
	assert.Equal(t, "sre", gotHeader)
	assert.JSONEq(t, `{"title":"p99 latency above 2s","status":"firing"}`, string(gotBody))
}

func TestPushFailureRedactsSecrets(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
		_, _ = w.Write([]byte("bad credentials: " + r.Header.Get("Authorization") + " " + r.URL.Query().Get("api_key")))
	}))
	defer srv.Close()

	p, err := New(testID, Config{
		URL:     srv.URL,
		Headers: map[string]string{"Authorization": "Bearer sekrit-token"},
		Query:   map[string]string{"api_key": "qk-999"},
	}, srv.Client(), nil)
	require.NoError(t, err)

	err = p.Push(context.Background(), testutil.NewAlertGroup().Build())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "webhook: unexpected status 401 Unauthorized")
	assert.NotContains(t, err.Error(), "sekrit-token")
	assert.NotContains(t, err.Error(), "qk-999")
}

func TestHealth(t *testing.T) {
	var status atomic.Int32
	status.Store(http.StatusOK)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodGet, r.Method)
		w.WriteHeader(int(status.Load()))
	}))
	defer srv.Close()

	p, err := New(testID, Config{URL: srv.URL, HealthURL: srv.URL + "/health"}, srv.Client(), nil)
	require.NoError(t, err)
	require.NoError(t, p.Health(context.Background()))

	status.Store(http.StatusServiceUnavailable)
	err = p.Health(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "webhook health")

	noProbe, err := New(testID, Config{URL: "https://x.test"}, nil, nil)
	require.NoError(t, err)
	assert.NoError(t, noProbe.Health(context.Background()))
}
