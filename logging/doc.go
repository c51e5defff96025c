// Package logging provides a minimal logging interface and adapters for the
// session table.
//
// The Logger interface defines the leveled methods (Debug, Info, Warn, Error)
// the session map and the journal stores use. This package includes:
//
//   - Logger interface for dependency injection
//   - SlogAdapter wrapping an existing *slog.Logger
//   - SessionLogger, a configurable slog logger with contextual helpers
//   - NoOpLogger for silent operation (tests, minimal setups)
//
// Usage:
//
//	logger := logging.NewSlogLogger(logging.LogLevelInfo, "json", false)
//	sessions := sessionmap.New(store, func(o *sessionmap.Options) { o.Logger = logger })
//
// Arguments after the message are slog style key/value pairs.
package logging
