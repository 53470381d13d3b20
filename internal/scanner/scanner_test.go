package scanner

import (
	"context"
	"os"
	"path/filepath"
	"sort"
	"testing"

	"txrmwatch/internal/sidecar"
)

func writeFile(t *testing.T, path string, size int) {
	t.Helper()
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(path, make([]byte, size), 0o644); err != nil {
		t.Fatal(err)
	}
}

func candidatePaths(result Result) []string {
	paths := make([]string, 0, len(result.Candidates))
	for _, c := range result.Candidates {
		paths = append(paths, c.Path)
	}
	sort.Strings(paths)
	return paths
}

func TestScanFindsMatchingFiles(t *testing.T) {
	root := t.TempDir()
	writeFile(t, filepath.Join(root, "a.txrm"), 10)
	writeFile(t, filepath.Join(root, "nested", "deep", "b.txrm"), 20)
	writeFile(t, filepath.Join(root, "upper.TXRM"), 5)
	writeFile(t, filepath.Join(root, "other.txm"), 5)
	writeFile(t, filepath.Join(root, "notes.txt"), 5)

	s := New([]string{root}, ".txrm", nil)
	result, err := s.Scan(context.Background())
	if err != nil {
		t.Fatalf("Scan: %v", err)
	}

	want := []string{
		filepath.Join(root, "a.txrm"),
		filepath.Join(root, "nested", "deep", "b.txrm"),
		filepath.Join(root, "upper.TXRM"),
	}
	got := candidatePaths(result)
	if len(got) != len(want) {
		t.Fatalf("candidates = %v, want %v", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("candidates = %v, want %v", got, want)
		}
	}
	if result.Candidates[0].Size == 0 && result.Candidates[1].Size == 0 {
		t.Error("candidate sizes not populated")
	}
}

func TestScanSkipsFilesWithSidecar(t *testing.T) {
	root := t.TempDir()
	done := filepath.Join(root, "done.txrm")
	fresh := filepath.Join(root, "fresh.txrm")
	writeFile(t, done, 10)
	writeFile(t, fresh, 10)
	writeFile(t, sidecar.PathFor(done), 1)

	s := New([]string{root}, ".txrm", nil)
	result, err := s.Scan(context.Background())
	if err != nil {
		t.Fatalf("Scan: %v", err)
	}
	got := candidatePaths(result)
	if len(got) != 1 || got[0] != fresh {
		t.Fatalf("candidates = %v, want only %s", got, fresh)
	}
}

func TestScanMissingRootIsNotFatal(t *testing.T) {
	root := t.TempDir()
	writeFile(t, filepath.Join(root, "a.txrm"), 10)
	missing := filepath.Join(root, "does-not-exist")

	s := New([]string{missing, root}, ".txrm", nil)
	result, err := s.Scan(context.Background())
	if err != nil {
		t.Fatalf("Scan: %v", err)
	}
	if len(result.Candidates) != 1 {
		t.Fatalf("candidates = %v", candidatePaths(result))
	}
	if result.Skipped == 0 {
		t.Error("missing root not counted as skipped")
	}
}

func TestScanIsIdempotent(t *testing.T) {
	root := t.TempDir()
	writeFile(t, filepath.Join(root, "a.txrm"), 10)

	s := New([]string{root}, ".txrm", nil)
	first, err := s.Scan(context.Background())
	if err != nil {
		t.Fatal(err)
	}
	second, err := s.Scan(context.Background())
	if err != nil {
		t.Fatal(err)
	}
	if len(first.Candidates) != 1 || len(second.Candidates) != 1 {
		t.Fatalf("repeat scans diverged: %d then %d", len(first.Candidates), len(second.Candidates))
	}
}

func TestScanHonorsCancellation(t *testing.T) {
	root := t.TempDir()
	writeFile(t, filepath.Join(root, "a.txrm"), 10)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	s := New([]string{root}, ".txrm", nil)
	if _, err := s.Scan(ctx); err == nil {
		t.Fatal("expected error from cancelled context")
	}
}

func TestScanZeroSizeFileIsCandidate(t *testing.T) {
	root := t.TempDir()
	writeFile(t, filepath.Join(root, "empty.txrm"), 0)

	s := New([]string{root}, ".txrm", nil)
	result, err := s.Scan(context.Background())
	if err != nil {
		t.Fatal(err)
	}
	if len(result.Candidates) != 1 {
		t.Fatalf("zero-size file not discovered: %v", candidatePaths(result))
	}
	if result.Candidates[0].Size != 0 {
		t.Fatalf("size = %d, want 0", result.Candidates[0].Size)
	}
}
