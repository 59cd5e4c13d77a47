// Package web implements the HTTP API of the flow monitor on gin, including
// the /ws WebSocket push of views, transient resets and alarms.
package web
