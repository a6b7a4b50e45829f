//go:build tools

// Package tools documents development tool dependencies. They are installed
// with `go install` and are not tracked in go.mod.
package tools

// Development tools (install via `go install`):
//
// Air - live reload for cmd/demobank during frontend work
//   Install: go install github.com/air-verse/air@v1.63.0
//   Run:     air --build.cmd "go build -o ./tmp/demobank ./cmd/demobank" --build.bin ./tmp/demobank
//
// mockgen - regenerates internal/mocks (see internal/mocks/generate.go)
//   Install: go install go.uber.org/mock/mockgen@v0.6.0
