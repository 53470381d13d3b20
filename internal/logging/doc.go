// Package logging builds the process-wide slog logger. It offers a
// human-oriented console handler for interactive use, a JSON handler for
// log files, attribute helpers shared across components, and age-based
// pruning of old run logs.
package logging
