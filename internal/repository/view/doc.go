// Package view persists the derived diagram view for external renderers.
//
// The FileRepository writes the view as protobuf JSON, the same document the
// gRPC GetView call returns.
package view
