// Package daemon owns the long-running process: single-instance locking,
// monitor lifecycle, the optional filesystem watcher, and the surface the
// IPC layer exposes to control clients.
package daemon
