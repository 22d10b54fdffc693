package httpx

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"

	"github.com/target/mmk-alert-router/internal/core"
	"github.com/target/mmk-alert-router/internal/domain/model"
	"github.com/target/mmk-alert-router/internal/mocks"
	"github.com/target/mmk-alert-router/internal/observability/metrics"
	"github.com/target/mmk-alert-router/internal/service"
	"github.com/target/mmk-alert-router/internal/testutil"
)

type staticSelector []core.Plugin

func (s staticSelector) Select(match func(model.PluginIdentity) bool) []core.Plugin {
	var out []core.Plugin
	for _, p := range s {
		if match == nil || match(p.Meta()) {
			out = append(out, p)
		}
	}
	return out
}

// newMockPlugin returns a plugin whose Push and Health return err.
func newMockPlugin(ctrl *gomock.Controller, name, group, typ string, err error) *mocks.MockPlugin {
	p := mocks.NewMockPlugin(ctrl)
	p.EXPECT().Meta().Return(model.PluginIdentity{Name: name, Group: group, Type: typ}).AnyTimes()
	p.EXPECT().Push(gomock.Any(), gomock.Any()).Return(err).AnyTimes()
	p.EXPECT().Health(gomock.Any()).Return(err).AnyTimes()
	return p
}

type routerOpts struct {
	counters CounterReader
	monitor  HealthSnapshot
	maxBody  int64
}

func newTestRouter(t *testing.T, opts routerOpts) http.Handler {
	t.Helper()
	ctrl := gomock.NewController(t)
	sel := staticSelector{
		newMockPlugin(ctrl, "audit-db", "storage", "postgres", nil),
		newMockPlugin(ctrl, "ops-slack", "chat", "slack", nil),
		newMockPlugin(ctrl, "pager", "paging", "pagerduty", errors.New("routing key revoked")),
	}
	svc := service.NewDispatchService(service.DispatchServiceOptions{Plugins: sel})
	return NewRouter(RouterServices{
		Dispatch:     svc,
		Counters:     opts.counters,
		Monitor:      opts.monitor,
		MaxBodyBytes: opts.maxBody,
		Timeout:      time.Second,
	})
}

func do(t *testing.T, h http.Handler, method, target string, body io.Reader) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(method, target, body)
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

func decodeResult(t *testing.T, rec *httptest.ResponseRecorder) model.AggregatedResult {
	t.Helper()
	var res model.AggregatedResult
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &res))
	return res
}

func alertBody(t *testing.T) io.Reader {
	t.Helper()
	g := testutil.NewAlertGroup().AddAlert(model.AlertStatusFiring, "a1").Build()
	return strings.NewReader(string(g.Raw))
}

func TestPushStatusMapping(t *testing.T) {
	h := newTestRouter(t, routerOpts{})

	tests := []struct {
		name       string
		filter     string
		wantCode   int
		wantStatus model.DispatchStatus
		wantN      int
	}{
		{name: "all ok", filter: "group in [storage, chat]", wantCode: http.StatusOK, wantStatus: model.DispatchStatusOK, wantN: 2},
		{name: "partial", filter: "", wantCode: http.StatusMultiStatus, wantStatus: model.DispatchStatusPartial, wantN: 3},
		{name: "failed", filter: "type is pagerduty", wantCode: http.StatusBadGateway, wantStatus: model.DispatchStatusFailed, wantN: 1},
		{name: "no targets", filter: "name is nobody", wantCode: http.StatusOK, wantStatus: model.DispatchStatusNoTargets, wantN: 0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			target := "/api/v1/push?filter=" + url.QueryEscape(tt.filter)
			rec := do(t, h, http.MethodPost, target, alertBody(t))
			require.Equal(t, tt.wantCode, rec.Code, rec.Body.String())

			res := decodeResult(t, rec)
			assert.Equal(t, tt.wantStatus, res.Status)
			assert.Len(t, res.Plugins, tt.wantN)
			assert.Equal(t, model.DispatchOperationPush, res.Operation)
			assert.NotEmpty(t, res.DispatchID)
			assert.NotNil(t, res.Plugins, "plugins is always present")
		})
	}
}

func TestPushFailureMessageIsReported(t *testing.T) {
	h := newTestRouter(t, routerOpts{})
	rec := do(t, h, http.MethodPost, "/api/v1/push?filter=name+is+pager", alertBody(t))
	res := decodeResult(t, rec)
	require.Len(t, res.Plugins, 1)
	assert.Equal(t, model.OutcomeFailed, res.Plugins[0].Result)
	assert.Contains(t, res.Plugins[0].Message, "routing key revoked")
}

func TestPushRejectsBadInput(t *testing.T) {
	h := newTestRouter(t, routerOpts{maxBody: 64})

	rec := do(t, h, http.MethodPost, "/api/v1/push", strings.NewReader("{not json"))
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Contains(t, rec.Body.String(), `"error":"invalid_json"`)

	rec = do(t, h, http.MethodPost, "/api/v1/push", strings.NewReader("null"))
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Contains(t, rec.Body.String(), `"error":"invalid_json"`)

	rec = do(t, h, http.MethodPost, "/api/v1/push?filter=name+is", strings.NewReader(`{"status":"firing"}`))
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Contains(t, rec.Body.String(), `"error":"invalid_filter"`)
	assert.Contains(t, rec.Body.String(), `"field":"filter"`)

	rec = do(t, h, http.MethodPost, "/api/v1/push", strings.NewReader(`{"receiver":"`+strings.Repeat("x", 128)+`"}`))
	assert.Equal(t, http.StatusRequestEntityTooLarge, rec.Code)
}

func TestHealthEndpoint(t *testing.T) {
	h := newTestRouter(t, routerOpts{})

	rec := do(t, h, http.MethodGet, "/api/v1/health?filter=group+is+storage", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	res := decodeResult(t, rec)
	assert.Equal(t, model.DispatchOperationHealth, res.Operation)
	assert.Equal(t, "group is storage", res.Filter)
	assert.Len(t, res.Plugins, 1)

	rec = do(t, h, http.MethodGet, "/api/v1/health?filter=((", nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestPluginsEndpoint(t *testing.T) {
	h := newTestRouter(t, routerOpts{})

	rec := do(t, h, http.MethodGet, "/api/v1/plugins?filter=not+type+is+postgres", nil)
	require.Equal(t, http.StatusOK, rec.Code)

	var body pluginsResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	names := make([]string, 0, len(body.Plugins))
	for _, p := range body.Plugins {
		names = append(names, p.Name)
	}
	assert.Equal(t, []string{"ops-slack", "pager"}, names)
}

func TestFilterEndpoint(t *testing.T) {
	h := newTestRouter(t, routerOpts{})

	rec := do(t, h, http.MethodGet, "/api/v1/filter?expr="+url.QueryEscape("not not name is a"), nil)
	require.Equal(t, http.StatusOK, rec.Code)
	var body FilterResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, "not not name is a", body.Expr)
	assert.Equal(t, "not not name is a", body.Parsed)
	assert.Equal(t, "name is a", body.Reduced)
	assert.False(t, body.SelectsAll)

	rec = do(t, h, http.MethodGet, "/api/v1/filter", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.True(t, body.SelectsAll)
	assert.Empty(t, body.Reduced)
}

type fakeCounters struct {
	counters []metrics.PluginCounter
	err      error
}

func (f fakeCounters) Snapshot(context.Context) ([]metrics.PluginCounter, error) {
	return f.counters, f.err
}

func TestMetricsEndpoint(t *testing.T) {
	rec := do(t, newTestRouter(t, routerOpts{}), http.MethodGet, "/api/v1/metrics", nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)

	counters := fakeCounters{counters: []metrics.PluginCounter{
		{Plugin: model.PluginIdentity{Name: "audit-db", Group: "storage", Type: "postgres"}, Success: 4, Failure: 1},
	}}
	rec = do(t, newTestRouter(t, routerOpts{counters: counters}), http.MethodGet, "/api/v1/metrics", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	var body metricsResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	require.Len(t, body.Plugins, 1)
	assert.EqualValues(t, 4, body.Plugins[0].Success)

	rec = do(t, newTestRouter(t, routerOpts{counters: fakeCounters{err: errors.New("dial tcp: refused")}}), http.MethodGet, "/api/v1/metrics", nil)
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
	assert.NotContains(t, rec.Body.String(), "refused")
}

type fakeSnapshot struct {
	res *model.AggregatedResult
	at  time.Time
}

func (f fakeSnapshot) Last() (*model.AggregatedResult, time.Time) { return f.res, f.at }

func TestLastHealthEndpoint(t *testing.T) {
	rec := do(t, newTestRouter(t, routerOpts{}), http.MethodGet, "/api/v1/health/last", nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)

	rec = do(t, newTestRouter(t, routerOpts{monitor: fakeSnapshot{}}), http.MethodGet, "/api/v1/health/last", nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)

	res := model.Aggregate([]model.PluginOutcome{
		model.NewFailedOutcome(model.PluginIdentity{Name: "pager", Type: "pagerduty"}, "down"),
	})
	rec = do(t, newTestRouter(t, routerOpts{monitor: fakeSnapshot{res: &res, at: testutil.TestTime()}}), http.MethodGet, "/api/v1/health/last", nil)
	assert.Equal(t, http.StatusBadGateway, rec.Code)
	assert.Contains(t, rec.Body.String(), `"checked_at":"2024-05-01T10:00:00Z"`)
	assert.Contains(t, rec.Body.String(), `"status":"failed"`)
}

func TestStatusCode(t *testing.T) {
	assert.Equal(t, http.StatusOK, StatusCode(model.DispatchStatusOK))
	assert.Equal(t, http.StatusMultiStatus, StatusCode(model.DispatchStatusPartial))
	assert.Equal(t, http.StatusBadGateway, StatusCode(model.DispatchStatusFailed))
	assert.Equal(t, http.StatusOK, StatusCode(model.DispatchStatusNoTargets))
}

func TestUnknownRoute(t *testing.T) {
	rec := do(t, newTestRouter(t, routerOpts{}), http.MethodGet, "/api/v1/push", nil)
	assert.Equal(t, http.StatusMethodNotAllowed, rec.Code)
}
