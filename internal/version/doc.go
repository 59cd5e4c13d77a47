// Package version exposes build metadata for flow-monitor.
//
// Version, Commit and BuildTime are injected via Go ldflags.
package version
