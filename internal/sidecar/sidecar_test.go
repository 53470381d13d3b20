package sidecar

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

func TestPathFor(t *testing.T) {
	if got := PathFor("/data/scan.txrm"); got != "/data/scan.txrm.txt" {
		t.Fatalf("PathFor = %q", got)
	}
}

func TestRenderSuccess(t *testing.T) {
	at := time.Date(2026, 3, 14, 9, 30, 0, 0, time.UTC)
	body := RenderSuccess("/data/scan.txrm", map[string]string{
		"image_width":  "2048",
		"image_height": "2048",
		"voltage":      "80.0",
	}, at)

	if !strings.HasPrefix(body, "Metadata extracted from: /data/scan.txrm\n") {
		t.Fatalf("missing header: %q", body)
	}
	if !strings.Contains(body, "Extraction date: 2026-03-14 09:30:00") {
		t.Errorf("missing date line: %q", body)
	}
	if !strings.Contains(body, "image_width: 2048\n") {
		t.Errorf("missing field line: %q", body)
	}
	if !strings.Contains(body, "pixel_size: Not found in metadata\n") {
		t.Errorf("absent field not marked: %q", body)
	}
	if strings.Contains(body, ErrorMarker) {
		t.Error("success body contains the error marker")
	}

	// Field order is fixed: width before voltage.
	if strings.Index(body, "image_width:") > strings.Index(body, "voltage:") {
		t.Error("field order not preserved")
	}
}

func TestRenderFailureStartsWithMarker(t *testing.T) {
	body := RenderFailure("/data/scan.txrm", errors.New("extractor exited 1"), time.Now())
	if !strings.HasPrefix(body, ErrorMarker+"\n") {
		t.Fatalf("marker not first line: %q", body)
	}
	if !strings.Contains(body, "Error: extractor exited 1\n") {
		t.Errorf("missing cause: %q", body)
	}
	if !strings.Contains(body, "File: /data/scan.txrm\n") {
		t.Errorf("missing file line: %q", body)
	}
}

func TestRenderFailureNilCause(t *testing.T) {
	body := RenderFailure("/data/scan.txrm", nil, time.Now())
	if !strings.Contains(body, "Error: unknown error\n") {
		t.Fatalf("nil cause not handled: %q", body)
	}
}

func TestWriteAndExists(t *testing.T) {
	dir := t.TempDir()
	scan := filepath.Join(dir, "scan.txrm")
	if err := os.WriteFile(scan, []byte("x"), 0o644); err != nil {
		t.Fatal(err)
	}

	if Exists(scan) {
		t.Fatal("Exists true before write")
	}
	if err := WriteFailure(scan, errors.New("boom"), time.Now()); err != nil {
		t.Fatalf("WriteFailure: %v", err)
	}
	if !Exists(scan) {
		t.Fatal("Exists false after write")
	}

	data, err := os.ReadFile(PathFor(scan))
	if err != nil {
		t.Fatal(err)
	}
	if !strings.HasPrefix(string(data), ErrorMarker) {
		t.Fatalf("written body wrong: %q", data)
	}
}

func TestExistsIgnoresDirectories(t *testing.T) {
	dir := t.TempDir()
	scan := filepath.Join(dir, "scan.txrm")
	if err := os.Mkdir(PathFor(scan), 0o755); err != nil {
		t.Fatal(err)
	}
	if Exists(scan) {
		t.Fatal("directory counted as sidecar")
	}
}
