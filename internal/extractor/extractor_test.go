package extractor

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"strings"
	"testing"
	"time"
)

func TestParseFields(t *testing.T) {
	fields, err := ParseFields([]byte(`{"image_width": 2048, "pixel_size": 1.25, "filter": "LE4", "binning": null, "center_shift": [0.1, 0.2]}`))
	if err != nil {
		t.Fatalf("ParseFields: %v", err)
	}
	want := map[string]string{
		"image_width":  "2048",
		"pixel_size":   "1.25",
		"filter":       "LE4",
		"binning":      "",
		"center_shift": "[0.1, 0.2]",
	}
	for key, value := range want {
		if fields[key] != value {
			t.Errorf("fields[%q] = %q, want %q", key, fields[key], value)
		}
	}
}

func TestParseFieldsRejectsEmptyAndInvalid(t *testing.T) {
	if _, err := ParseFields(nil); !errors.Is(err, ErrNoFields) {
		t.Errorf("nil input: got %v, want ErrNoFields", err)
	}
	if _, err := ParseFields([]byte("{}")); !errors.Is(err, ErrNoFields) {
		t.Errorf("empty object: got %v, want ErrNoFields", err)
	}
	if _, err := ParseFields([]byte("not json")); err == nil {
		t.Error("invalid json accepted")
	}
	if _, err := ParseFields([]byte(`["a"]`)); err == nil {
		t.Error("json array accepted as field object")
	}
}

func TestBuildArgsPlaceholder(t *testing.T) {
	c := NewCommand("tool", []string{"--input", PathPlaceholder, "--json"}, 0, nil)
	got := c.buildArgs("/data/a.txrm")
	want := []string{"--input", "/data/a.txrm", "--json"}
	if len(got) != len(want) {
		t.Fatalf("args = %v, want %v", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("args = %v, want %v", got, want)
		}
	}
}

func TestBuildArgsAppendsPathByDefault(t *testing.T) {
	c := NewCommand("tool", []string{"--json"}, 0, nil)
	got := c.buildArgs("/data/a.txrm")
	if len(got) != 2 || got[1] != "/data/a.txrm" {
		t.Fatalf("args = %v", got)
	}
}

func TestExtractMetadataSuccess(t *testing.T) {
	setHelperCommand(t, "success")
	c := NewCommand("extract-metadata", nil, time.Minute, nil)
	fields, err := c.ExtractMetadata(context.Background(), "/data/a.txrm")
	if err != nil {
		t.Fatalf("ExtractMetadata: %v", err)
	}
	if fields["voltage"] != "80" {
		t.Fatalf("fields = %v", fields)
	}
}

func TestExtractMetadataFailureIncludesStderr(t *testing.T) {
	setHelperCommand(t, "failure")
	c := NewCommand("extract-metadata", nil, time.Minute, nil)
	_, err := c.ExtractMetadata(context.Background(), "/data/a.txrm")
	if err == nil {
		t.Fatal("expected error from failing tool")
	}
	if got := err.Error(); !strings.Contains(got, "cannot open txrm stream") {
		t.Fatalf("error lacks tool stderr: %v", got)
	}
}

func TestExtractMetadataTimeout(t *testing.T) {
	setHelperCommand(t, "hang")
	c := NewCommand("extract-metadata", nil, 100*time.Millisecond, nil)
	_, err := c.ExtractMetadata(context.Background(), "/data/a.txrm")
	if err == nil {
		t.Fatal("expected timeout error")
	}
	if !errors.Is(err, context.DeadlineExceeded) {
		t.Fatalf("got %v, want deadline exceeded", err)
	}
}

func setHelperCommand(t *testing.T, mode string) {
	t.Helper()
	original := commandContext
	commandContext = func(ctx context.Context, name string, args ...string) *exec.Cmd {
		cmd := exec.CommandContext(ctx, os.Args[0], "-test.run=TestHelperProcess")
		cmd.Env = append(os.Environ(), "GO_WANT_HELPER_PROCESS=1", fmt.Sprintf("TXRM_HELPER_MODE=%s", mode))
		return cmd
	}
	t.Cleanup(func() {
		commandContext = original
	})
}

func TestHelperProcess(t *testing.T) {
	if os.Getenv("GO_WANT_HELPER_PROCESS") != "1" {
		return
	}
	switch os.Getenv("TXRM_HELPER_MODE") {
	case "success":
		fmt.Println(`{"voltage": 80, "image_width": 2048}`)
		os.Exit(0)
	case "failure":
		fmt.Fprintln(os.Stderr, "cannot open txrm stream")
		os.Exit(1)
	case "hang":
		time.Sleep(10 * time.Second)
		os.Exit(0)
	default:
		os.Exit(2)
	}
}
