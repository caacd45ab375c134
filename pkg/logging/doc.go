// Package logging provides structured logging setup built on log/slog.
//
// Components receive a *slog.Logger by handle; there is no package-level
// default logger. Use Nop when a logger is required but output is unwanted.
package logging
