// Package logging configures slog output for the daemon and CLI, with a
// human-oriented console handler and a JSON handler for machine ingestion.
package logging
