//go:build tools
// +build tools

// Package tools documents development tool dependencies.
// These tools run via `go run` or `go install` and are not tracked in go.mod.
package tools

// Development tools:
//
// mockgen - regenerates internal/mocks from the core ports
//   Run: go generate ./internal/mocks
//   Version: go.uber.org/mock/mockgen@v0.6.0
//
// golangci-lint - the nolint directives in cmd/ target its forbidigo and ireturn linters
//   Install: go install github.com/golangci/golangci-lint/v2/cmd/golangci-lint@latest
