// Package dispatch owns the handoff from a settled file to the metadata
// extractor and the terminal bookkeeping that follows: sidecar writing,
// registry transitions, status events, and notifications.
package dispatch
