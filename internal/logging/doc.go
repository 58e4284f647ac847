// Package logging provides structured logging for the node daemon.
//
// It wraps log/slog with the daemon's default fields (service, version)
// and config-driven level, format and output selection. Protocol
// packages define their own small Logger interfaces; *Logger satisfies
// them all.
package logging
