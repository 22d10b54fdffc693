package model

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestAggregate(t *testing.T) {
	a := PluginIdentity{Name: "a", Group: "g", Type: "file"}
	b := PluginIdentity{Name: "b", Group: "g", Type: "webhook"}

	tests := []struct {
		name     string
		outcomes []PluginOutcome
		want     DispatchStatus
	}{
		{name: "nil outcomes", outcomes: nil, want: DispatchStatusNoTargets},
		{name: "empty outcomes", outcomes: []PluginOutcome{}, want: DispatchStatusNoTargets},
		{name: "all ok", outcomes: []PluginOutcome{NewOKOutcome(a), NewOKOutcome(b)}, want: DispatchStatusOK},
		{
			name:     "all failed",
			outcomes: []PluginOutcome{NewFailedOutcome(a, "x"), NewFailedOutcome(b, "y")},
			want:     DispatchStatusFailed,
		},
		{
			name:     "mixed",
			outcomes: []PluginOutcome{NewOKOutcome(a), NewFailedOutcome(b, "timeout")},
			want:     DispatchStatusPartial,
		},
		{name: "single ok", outcomes: []PluginOutcome{NewOKOutcome(a)}, want: DispatchStatusOK},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Aggregate(tt.outcomes)
			assert.Equal(t, tt.want, got.Status)
			assert.NotNil(t, got.Plugins)
			assert.Len(t, got.Plugins, len(tt.outcomes))
		})
	}
}

func TestAggregatePreservesOrder(t *testing.T) {
	outcomes := []PluginOutcome{
		NewFailedOutcome(PluginIdentity{Name: "z"}, "boom"),
		NewOKOutcome(PluginIdentity{Name: "a"}),
		NewOKOutcome(PluginIdentity{Name: "m"}),
	}

	got := Aggregate(outcomes)

	assert.Equal(t, DispatchStatusPartial, got.Status)
	assert.Equal(t, []string{"z", "a", "m"}, []string{
		got.Plugins[0].Identity.Name,
		got.Plugins[1].Identity.Name,
		got.Plugins[2].Identity.Name,
	})
	assert.Equal(t, "boom", got.Plugins[0].Message)
}

func TestAggregatedResultCounts(t *testing.T) {
	res := Aggregate([]PluginOutcome{
		NewOKOutcome(PluginIdentity{Name: "a"}),
		NewFailedOutcome(PluginIdentity{Name: "b"}, "x"),
		NewFailedOutcome(PluginIdentity{Name: "c"}, "y"),
	})
	ok, failed := res.Counts()
	assert.Equal(t, 1, ok)
	assert.Equal(t, 2, failed)
}

func TestPluginIdentityValidate(t *testing.T) {
	assert.NoError(t, PluginIdentity{Name: "n", Type: "file"}.Validate())
	assert.Error(t, PluginIdentity{Type: "file"}.Validate())
	assert.Error(t, PluginIdentity{Name: "n", Group: "g"}.Validate())
	assert.Equal(t, "file/g/n", PluginIdentity{Name: "n", Group: "g", Type: "file"}.String())
}
