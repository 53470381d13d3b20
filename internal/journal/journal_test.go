package journal

import (
	"context"
	"testing"
	"time"

	"txrmwatch/internal/events"
)

func openTestStore(t *testing.T) *Store {
	t.Helper()
	store, err := Open(t.TempDir(), nil)
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	t.Cleanup(func() {
		if err := store.Close(); err != nil {
			t.Errorf("Close: %v", err)
		}
	})
	return store
}

func TestAppendAndRecent(t *testing.T) {
	store := openTestStore(t)
	ctx := context.Background()

	first := events.New(events.KindFileDiscovered, "/data/a.txrm", "")
	first.Timestamp = time.Now().UTC().Add(-time.Minute)
	second := events.New(events.KindFileStable, "/data/a.txrm", "settled")

	for _, event := range []events.Event{first, second} {
		if err := store.Append(ctx, event); err != nil {
			t.Fatalf("Append: %v", err)
		}
	}

	recent, err := store.Recent(ctx, 10)
	if err != nil {
		t.Fatalf("Recent: %v", err)
	}
	if len(recent) != 2 {
		t.Fatalf("len = %d, want 2", len(recent))
	}
	if recent[0].Kind != events.KindFileStable {
		t.Fatalf("newest first violated: %+v", recent)
	}
	if recent[0].Detail != "settled" || recent[1].Path != "/data/a.txrm" {
		t.Fatalf("fields lost on round trip: %+v", recent)
	}
}

func TestRecentHonorsLimit(t *testing.T) {
	store := openTestStore(t)
	ctx := context.Background()

	for i := 0; i < 5; i++ {
		if err := store.Append(ctx, events.New(events.KindScanStart, "", "")); err != nil {
			t.Fatal(err)
		}
	}
	recent, err := store.Recent(ctx, 3)
	if err != nil {
		t.Fatal(err)
	}
	if len(recent) != 3 {
		t.Fatalf("len = %d, want 3", len(recent))
	}
}

func TestPruneRemovesOldEvents(t *testing.T) {
	store := openTestStore(t)
	ctx := context.Background()

	old := events.New(events.KindScanEnd, "", "")
	old.Timestamp = time.Now().UTC().Add(-48 * time.Hour)
	fresh := events.New(events.KindScanEnd, "", "")

	for _, event := range []events.Event{old, fresh} {
		if err := store.Append(ctx, event); err != nil {
			t.Fatal(err)
		}
	}

	removed, err := store.Prune(ctx, 24*time.Hour)
	if err != nil {
		t.Fatalf("Prune: %v", err)
	}
	if removed != 1 {
		t.Fatalf("removed = %d, want 1", removed)
	}
	recent, err := store.Recent(ctx, 10)
	if err != nil {
		t.Fatal(err)
	}
	if len(recent) != 1 || recent[0].ID != fresh.ID {
		t.Fatalf("wrong survivor: %+v", recent)
	}
}

func TestReopenKeepsEvents(t *testing.T) {
	dir := t.TempDir()
	store, err := Open(dir, nil)
	if err != nil {
		t.Fatal(err)
	}
	if err := store.Append(context.Background(), events.New(events.KindScanStart, "", "")); err != nil {
		t.Fatal(err)
	}
	if err := store.Close(); err != nil {
		t.Fatal(err)
	}

	reopened, err := Open(dir, nil)
	if err != nil {
		t.Fatalf("reopen: %v", err)
	}
	defer reopened.Close()

	recent, err := reopened.Recent(context.Background(), 10)
	if err != nil {
		t.Fatal(err)
	}
	if len(recent) != 1 {
		t.Fatalf("events lost across reopen: %d", len(recent))
	}
}

func TestSinkSwallowsNilStore(t *testing.T) {
	var sink *Sink
	sink.Emit(events.New(events.KindScanStart, "", ""))

	NewSink(nil, nil).Emit(events.New(events.KindScanStart, "", ""))
}
