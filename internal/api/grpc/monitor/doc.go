// Package monitor implements the gRPC transport of the flow monitor.
//
// It adapts engine results to well-known protobuf types and streams alarm
// events to subscribed clients through a Hub.
package monitor
