// Package events defines the status events the monitor emits as it works
// and the sinks that consume them.
package events
