// Package config loads, normalizes, and validates txrmwatch configuration data.
//
// It supplies repository defaults, expands user paths (including tilde
// shortcuts), and reads TOML files. The Config type centralizes every knob the
// daemon and CLI need: monitored roots, monitoring cadence, the extractor
// command, and ambient settings such as logging and notifications.
//
// Always obtain settings through this package so downstream code receives
// sanitized absolute paths, canonical log formats, and clear validation errors.
package config
