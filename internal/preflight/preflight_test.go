package preflight

import (
	"os"
	"path/filepath"
	"testing"
)

func TestCheckReadableDir(t *testing.T) {
	dir := t.TempDir()
	result := CheckReadableDir("root", dir)
	if !result.Passed {
		t.Fatalf("readable dir failed: %+v", result)
	}

	result = CheckReadableDir("root", filepath.Join(dir, "missing"))
	if result.Passed {
		t.Fatal("missing dir passed")
	}

	file := filepath.Join(dir, "file")
	if err := os.WriteFile(file, []byte("x"), 0o644); err != nil {
		t.Fatal(err)
	}
	result = CheckReadableDir("root", file)
	if result.Passed {
		t.Fatal("regular file passed as directory")
	}
}

func TestCheckExtractor(t *testing.T) {
	if result := CheckExtractor("sh"); !result.Passed {
		t.Fatalf("sh not found: %+v", result)
	}
	if result := CheckExtractor("definitely-not-a-binary-xyz"); result.Passed {
		t.Fatal("missing binary passed")
	}
	if result := CheckExtractor(""); result.Passed {
		t.Fatal("empty command passed")
	}
}

func TestSummarize(t *testing.T) {
	passed, failed := Summarize([]Result{
		{Passed: true},
		{Passed: false},
		{Passed: true},
	})
	if passed != 2 || failed != 1 {
		t.Fatalf("passed=%d failed=%d", passed, failed)
	}
}
