// Package client implements the operator commands that talk to a running
// monitor over gRPC: forced refresh, flow selection and view dump.
package client
