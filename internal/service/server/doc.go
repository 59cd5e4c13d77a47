// Package server runs the monitor process: it wires the engine to the
// backend, the renderers and notifiers, and serves the gRPC and HTTP APIs.
package server
