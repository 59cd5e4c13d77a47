// Package pb describes the flowmonitor.v1.MonitorService gRPC API.
//
// Messages are protobuf well-known types: wrappers carry scalars and
// structpb.Struct carries views and alarm events, so no generated message
// code is needed.
package pb
