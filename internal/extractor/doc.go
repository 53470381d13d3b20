// Package extractor runs the external metadata-extraction tool against a
// settled scan file and parses its JSON output into a field map.
package extractor
