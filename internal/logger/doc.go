// Package logger wraps zap to offer:
//   - a global sugared logger with a console encoder writing to stderr,
//   - context helpers (WithName/WithKV),
//   - level configuration and parsing utilities,
//   - convenience functions (Info, WarnKV, ErrorKV, etc.).
//
// Every component of the monitor accepts a context and extracts the logger
// from it, so a cycle, a transport or a command logs with its own name.
package logger
