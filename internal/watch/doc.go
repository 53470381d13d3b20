// Package watch optionally accelerates discovery with fsnotify events.
// Disabled by default; the polling scanner works without it.
package watch
