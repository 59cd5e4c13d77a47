// Package common holds helpers shared by several services.
//
// It provides a lightweight gRPC client for the monitor with timeouts and a
// helper that detects the current operator (user@host) for audit logs.
//
//nolint:revive,nolintlint // Package name "common" is intentional for shared helpers.
package common
