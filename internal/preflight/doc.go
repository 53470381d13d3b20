// Package preflight checks the runtime environment the monitor expects:
// readable watch roots, a writable log directory, and a resolvable
// extraction command. Results feed daemon startup logging and the CLI
// status output.
package preflight
