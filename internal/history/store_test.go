package history

import (
	"context"
	"path/filepath"
	"testing"
	"time"
)

func newTestStore(t *testing.T) *Store {
	t.Helper()
	store, err := Open(filepath.Join(t.TempDir(), "history.db"))
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	t.Cleanup(func() { _ = store.Close() })
	return store
}

func TestRecordStartAndStop(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	if err := store.RecordStart("ref-1", "rtmp://in/live", 3); err != nil {
		t.Fatalf("RecordStart: %v", err)
	}

	open, err := store.OpenSessions(ctx)
	if err != nil {
		t.Fatalf("OpenSessions: %v", err)
	}
	if len(open) != 1 || open[0].Reference != "ref-1" {
		t.Fatalf("unexpected open sessions %+v", open)
	}

	if err := store.RecordStop("ref-1"); err != nil {
		t.Fatalf("RecordStop: %v", err)
	}

	open, err = store.OpenSessions(ctx)
	if err != nil {
		t.Fatalf("OpenSessions: %v", err)
	}
	if len(open) != 0 {
		t.Errorf("session should be closed, got %+v", open)
	}

	entries, err := store.List(ctx, 0)
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	if len(entries) != 1 {
		t.Fatalf("expected one entry, got %d", len(entries))
	}
	entry := entries[0]
	if entry.InputURL != "rtmp://in/live" || entry.DestinationCount != 3 {
		t.Errorf("entry fields mismatch: %+v", entry)
	}
	if entry.StoppedAt.IsZero() {
		t.Error("stopped_at should be set")
	}
	if entry.Duration() < 0 {
		t.Errorf("negative duration: %v", entry.Duration())
	}
}

func TestRecordStopWithoutStart(t *testing.T) {
	store := newTestStore(t)
	if err := store.RecordStop("unknown"); err != nil {
		t.Fatalf("RecordStop should tolerate missing sessions: %v", err)
	}
}

func TestStopClosesNewestOpenSession(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	if err := store.RecordStart("ref-1", "rtmp://in/a", 1); err != nil {
		t.Fatalf("RecordStart: %v", err)
	}
	time.Sleep(2 * time.Millisecond)
	if err := store.RecordStart("ref-1", "rtmp://in/b", 2); err != nil {
		t.Fatalf("RecordStart: %v", err)
	}

	if err := store.RecordStop("ref-1"); err != nil {
		t.Fatalf("RecordStop: %v", err)
	}

	open, err := store.OpenSessions(ctx)
	if err != nil {
		t.Fatalf("OpenSessions: %v", err)
	}
	if len(open) != 1 {
		t.Fatalf("expected one session still open, got %d", len(open))
	}
	if open[0].InputURL != "rtmp://in/a" {
		t.Errorf("oldest session should remain open, got %+v", open[0])
	}
}

func TestListLimitAndOrder(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	for i, ref := range []string{"ref-a", "ref-b", "ref-c"} {
		if err := store.RecordStart(ref, "rtmp://in/live", i+1); err != nil {
			t.Fatalf("RecordStart: %v", err)
		}
		time.Sleep(2 * time.Millisecond)
	}

	entries, err := store.List(ctx, 2)
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	if len(entries) != 2 {
		t.Fatalf("expected two entries, got %d", len(entries))
	}
	if entries[0].Reference != "ref-c" || entries[1].Reference != "ref-b" {
		t.Errorf("entries should be newest first: %+v", entries)
	}
}

func TestPrune(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	if err := store.RecordStart("ref-old", "rtmp://in/live", 1); err != nil {
		t.Fatalf("RecordStart: %v", err)
	}

	removed, err := store.Prune(ctx, time.Now().Add(time.Minute))
	if err != nil {
		t.Fatalf("Prune: %v", err)
	}
	if removed != 1 {
		t.Errorf("expected one pruned row, got %d", removed)
	}

	entries, err := store.List(ctx, 0)
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	if len(entries) != 0 {
		t.Errorf("history should be empty after prune, got %+v", entries)
	}
}
