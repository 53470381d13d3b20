// Package scanner performs the periodic discovery walk over the configured
// directory roots. Every cycle is a complete fresh traversal; files are
// eligible when they carry the watched extension and no sidecar exists.
package scanner
