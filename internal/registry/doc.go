// Package registry tracks every file the monitor currently knows about.
// It is purely in-memory: the process starts with an empty registry and
// relies on sidecar files on disk to avoid re-processing after a restart.
package registry
