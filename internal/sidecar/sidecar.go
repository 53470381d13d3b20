package sidecar

import (
	"fmt"
	"os"
	"strings"
	"time"
)

// Extension is appended to a scan file's full name to form its sidecar path.
const Extension = ".txt"

// ErrorMarker is the first line of a failure sidecar. Downstream tooling
// matches on this exact string.
const ErrorMarker = "ERROR PROCESSING METADATA"

// PathFor returns the sidecar path for a scan file. The extension is
// appended to the full name, so `scan.txrm` maps to `scan.txrm.txt`.
func PathFor(scanPath string) string {
	return scanPath + Extension
}

// Exists reports whether the scan file already has a sidecar. Presence is
// the sole signal that a file has been handled, in this or any earlier run.
func Exists(scanPath string) bool {
	info, err := os.Stat(PathFor(scanPath))
	return err == nil && info.Mode().IsRegular()
}

// DefaultFields is the metadata field order used when rendering a success
// sidecar. It matches what the extraction tool reports.
var DefaultFields = []string{
	"image_width", "image_height", "data_type", "number_of_images",
	"pixel_size", "reference_exposure_time", "reference_current",
	"reference_voltage", "reference_data_type", "image_data_type",
	"align-mode", "center_shift", "rotation_angle",
	"source_isocenter_distance", "detector_isocenter_distance", "cone_angle",
	"fan_angle", "camera_offset", "source_drift", "current", "voltage",
	"power", "exposure_time", "binning", "filter",
	"scaling_min", "scaling_max", "objective_id", "objective_mag",
}

// RenderSuccess formats the success sidecar body: a header naming the scan
// file and extraction time, then one `field: value` line per known field in
// a fixed order. Fields absent from the extracted metadata render as
// `Not found in metadata`.
func RenderSuccess(scanPath string, fields map[string]string, at time.Time) string {
	var b strings.Builder
	b.Grow(512 + len(DefaultFields)*32)
	fmt.Fprintf(&b, "Metadata extracted from: %s\n", scanPath)
	fmt.Fprintf(&b, "Extraction date: %s\n\n", at.Format("2006-01-02 15:04:05"))
	for _, field := range DefaultFields {
		value, ok := fields[field]
		if !ok || value == "" {
			fmt.Fprintf(&b, "%s: Not found in metadata\n", field)
			continue
		}
		fmt.Fprintf(&b, "%s: %s\n", field, value)
	}
	return b.String()
}

// RenderFailure formats the failure sidecar body. The marker line comes
// first so consumers can match on it without parsing the rest.
func RenderFailure(scanPath string, cause error, at time.Time) string {
	detail := "unknown error"
	if cause != nil {
		detail = cause.Error()
	}
	var b strings.Builder
	b.WriteString(ErrorMarker)
	b.WriteByte('\n')
	fmt.Fprintf(&b, "Error: %s\n", detail)
	fmt.Fprintf(&b, "File: %s\n", scanPath)
	fmt.Fprintf(&b, "Date: %s\n", at.Format("2006-01-02 15:04:05"))
	return b.String()
}

// WriteSuccess writes the success sidecar next to the scan file.
func WriteSuccess(scanPath string, fields map[string]string, at time.Time) error {
	return write(scanPath, RenderSuccess(scanPath, fields, at))
}

// WriteFailure writes the failure-marker sidecar next to the scan file.
func WriteFailure(scanPath string, cause error, at time.Time) error {
	return write(scanPath, RenderFailure(scanPath, cause, at))
}

func write(scanPath, content string) error {
	path := PathFor(scanPath)
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		return fmt.Errorf("write sidecar %s: %w", path, err)
	}
	return nil
}
