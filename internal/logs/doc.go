// Package logs reads daemon log files for the CLI: tail-style reads with
// an offset cursor so a client can page or follow.
package logs
