// Package mocks provides gomock implementations of the core ports for tests.
//
// To regenerate mocks after interface changes, run:
//
//	go generate ./internal/mocks
//
// Usage in tests:
//
//	ctrl := gomock.NewController(t)
//	plugin := mocks.NewMockPlugin(ctrl)
//	plugin.EXPECT().Meta().Return(model.PluginIdentity{Name: "pg"}).AnyTimes()
//	plugin.EXPECT().Push(gomock.Any(), group).Return(nil)
package mocks

// Generate mocks for the Plugin and PluginMetrics interfaces from internal/core.
//go:generate go run go.uber.org/mock/mockgen@v0.6.0 -package=mocks -destination=plugin_mock.go github.com/target/mmk-alert-router/internal/core Plugin,PluginMetrics
