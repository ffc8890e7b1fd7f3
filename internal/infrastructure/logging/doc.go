// Package logging provides structured logging for grow-core.
//
// It wraps log/slog with config-driven level, format, and output selection
// and stamps every record with the service name and version. Components
// receive a *Logger through their constructors; there is no package-level
// default in use outside early startup.
package logging
