// Package logging configures the process-wide structured logger.
//
// Keel components obtain loggers via slog.Default().With("component", ...),
// so Setup installs the configured handler as the slog default once at
// startup and every component inherits the level and format.
package logging
