package service

import (
	"context"
	"sync"
	"sync/atomic"

	"github.com/target/mmk-alert-router/internal/domain/model"
)

// fakePlugin is a hand-written test double with function hooks.
type fakePlugin struct {
	id         model.PluginIdentity
	initFunc   func(ctx context.Context) error
	healthFunc func(ctx context.Context) error
	pushFunc   func(ctx context.Context, g *model.AlertGroup) error
	closeErr   error

	pushes atomic.Int32
	closed atomic.Bool
}

func newFake(name, group, typ string) *fakePlugin {
	return &fakePlugin{id: model.PluginIdentity{Name: name, Group: group, Type: typ}}
}

func (f *fakePlugin) Meta() model.PluginIdentity { return f.id }

func (f *fakePlugin) Initialize(ctx context.Context) error {
	if f.initFunc != nil {
		return f.initFunc(ctx)
	}
	return nil
}

func (f *fakePlugin) Health(ctx context.Context) error {
	if f.healthFunc != nil {
		return f.healthFunc(ctx)
	}
	return nil
}

func (f *fakePlugin) Push(ctx context.Context, g *model.AlertGroup) error {
	f.pushes.Add(1)
	if f.pushFunc != nil {
		return f.pushFunc(ctx, g)
	}
	return nil
}

func (f *fakePlugin) Close() error {
	f.closed.Store(true)
	return f.closeErr
}

// recordingMetrics counts outcomes per plugin name.
type recordingMetrics struct {
	mu        sync.Mutex
	successes map[string]int
	failures  map[string]int
}

func newRecordingMetrics() *recordingMetrics {
	return &recordingMetrics{successes: map[string]int{}, failures: map[string]int{}}
}

func (m *recordingMetrics) RecordSuccess(id model.PluginIdentity) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.successes[id.Name]++
}

func (m *recordingMetrics) RecordFailure(id model.PluginIdentity) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.failures[id.Name]++
}

func (m *recordingMetrics) total() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	n := 0
	for _, v := range m.successes {
		n += v
	}
	for _, v := range m.failures {
		n += v
	}
	return n
}
