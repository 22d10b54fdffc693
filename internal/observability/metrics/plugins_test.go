package metrics

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"

	"github.com/target/mmk-alert-router/internal/domain/model"
	"github.com/target/mmk-alert-router/internal/mocks"
)

var testIdentity = model.PluginIdentity{Name: "ops-slack", Group: "ops", Type: "slack"}

func TestStatsdPluginMetrics(t *testing.T) {
	sink := &fakeSink{}
	m := NewStatsdPluginMetrics(sink)

	m.RecordSuccess(testIdentity)
	m.RecordFailure(testIdentity)
	m.RecordFailure(testIdentity)

	got := sink.byName("plugin.outcome")
	require.Len(t, got, 3)
	assert.Equal(t, map[string]string{
		"plugin_name":  "ops-slack",
		"plugin_group": "ops",
		"plugin_type":  "slack",
		"result":       OutcomeSuccess,
	}, got[0].tags)
	assert.Equal(t, OutcomeFailure, got[1].tags["result"])
	assert.Equal(t, "count", got[2].kind)
	assert.InDelta(t, 1, got[2].value, 0)
}

func TestStatsdPluginMetricsNilSink(t *testing.T) {
	assert.NotPanics(t, func() {
		NewStatsdPluginMetrics(nil).RecordSuccess(testIdentity)
		var m *StatsdPluginMetrics
		m.RecordFailure(testIdentity)
	})
}

func TestIdentityTagsOmitsEmptyResult(t *testing.T) {
	tags := IdentityTags(testIdentity, "")
	_, ok := tags["result"]
	assert.False(t, ok)
	assert.Len(t, tags, 3)
}

func TestMultiFansOutInOrder(t *testing.T) {
	ctrl := gomock.NewController(t)
	first := mocks.NewMockPluginMetrics(ctrl)
	second := mocks.NewMockPluginMetrics(ctrl)

	gomock.InOrder(
		first.EXPECT().RecordSuccess(testIdentity),
		second.EXPECT().RecordSuccess(testIdentity),
		first.EXPECT().RecordFailure(testIdentity),
		second.EXPECT().RecordFailure(testIdentity),
	)

	m := NewMulti(first, nil, second)
	require.Len(t, m, 2)
	m.RecordSuccess(testIdentity)
	m.RecordFailure(testIdentity)
}

func TestMultiContinuesPastPanickingSink(t *testing.T) {
	ctrl := gomock.NewController(t)
	broken := mocks.NewMockPluginMetrics(ctrl)
	counters := mocks.NewMockPluginMetrics(ctrl)

	broken.EXPECT().RecordSuccess(testIdentity).Do(func(model.PluginIdentity) { panic("statsd socket closed") })
	broken.EXPECT().RecordFailure(testIdentity).Do(func(model.PluginIdentity) { panic("statsd socket closed") })
	counters.EXPECT().RecordSuccess(testIdentity)
	counters.EXPECT().RecordFailure(testIdentity)

	m := NewMulti(broken, counters)
	assert.NotPanics(t, func() {
		m.RecordSuccess(testIdentity)
		m.RecordFailure(testIdentity)
	})
}

func TestNop(t *testing.T) {
	assert.NotPanics(t, func() {
		Nop{}.RecordSuccess(testIdentity)
		Nop{}.RecordFailure(testIdentity)
	})
}
