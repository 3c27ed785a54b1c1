package store

import (
	"path/filepath"
	"testing"
	"time"

	"github.com/amishk599/jobscout/internal/model"
)

func newTestStore(t *testing.T) *SQLiteStore {
	t.Helper()
	dbPath := filepath.Join(t.TempDir(), "seen.db")
	s, err := NewSQLiteStore(dbPath)
	if err != nil {
		t.Fatalf("NewSQLiteStore: %v", err)
	}
	t.Cleanup(func() { s.Close() })
	return s
}

func listing(id string) model.Job {
	return model.Job{ID: id, Title: "Go Engineer", Company: "Acme", URL: "https://www.linkedin.com/jobs/view/" + id + "/"}
}

func TestMarkSeenThenHasSeen(t *testing.T) {
	s := newTestStore(t)

	if err := s.MarkSeen("go-berlin", listing("3801")); err != nil {
		t.Fatalf("MarkSeen: %v", err)
	}
	seen, err := s.HasSeen("3801")
	if err != nil {
		t.Fatalf("HasSeen: %v", err)
	}
	if !seen {
		t.Error("expected HasSeen to return true after MarkSeen")
	}

	seen, err = s.HasSeen("9999")
	if err != nil {
		t.Fatalf("HasSeen: %v", err)
	}
	if seen {
		t.Error("expected HasSeen to return false for unknown listing")
	}
}

func TestMarkSeen_KeepsFirstRecord(t *testing.T) {
	s := newTestStore(t)
	base := time.Date(2025, 3, 1, 10, 0, 0, 0, time.UTC)
	s.now = func() time.Time { return base }

	if err := s.MarkSeen("first-watch", listing("42")); err != nil {
		t.Fatalf("first MarkSeen: %v", err)
	}
	s.now = func() time.Time { return base.Add(time.Hour) }
	if err := s.MarkSeen("second-watch", listing("42")); err != nil {
		t.Fatalf("duplicate MarkSeen: %v", err)
	}

	recent, err := s.Recent(10)
	if err != nil {
		t.Fatalf("Recent: %v", err)
	}
	if len(recent) != 1 {
		t.Fatalf("expected 1 row, got %d", len(recent))
	}
	if recent[0].Watch != "first-watch" || !recent[0].FirstSeen.Equal(base) {
		t.Errorf("expected original record, got %+v", recent[0])
	}
}

func TestCleanupRemovesOldKeepsFresh(t *testing.T) {
	s := newTestStore(t)
	now := time.Date(2025, 3, 10, 0, 0, 0, 0, time.UTC)

	s.now = func() time.Time { return now.Add(-48 * time.Hour) }
	if err := s.MarkSeen("w", listing("old")); err != nil {
		t.Fatalf("MarkSeen old: %v", err)
	}
	s.now = func() time.Time { return now }
	if err := s.MarkSeen("w", listing("fresh")); err != nil {
		t.Fatalf("MarkSeen fresh: %v", err)
	}

	if err := s.Cleanup(24 * time.Hour); err != nil {
		t.Fatalf("Cleanup: %v", err)
	}

	if seen, _ := s.HasSeen("old"); seen {
		t.Error("expected old listing to be cleaned up")
	}
	if seen, _ := s.HasSeen("fresh"); !seen {
		t.Error("expected fresh listing to survive cleanup")
	}
}

func TestIsEmptyAndRecentOrder(t *testing.T) {
	s := newTestStore(t)

	empty, err := s.IsEmpty()
	if err != nil {
		t.Fatalf("IsEmpty: %v", err)
	}
	if !empty {
		t.Fatal("expected new store to be empty")
	}

	base := time.Date(2025, 3, 1, 0, 0, 0, 0, time.UTC)
	for i, id := range []string{"1", "2", "3"} {
		s.now = func() time.Time { return base.Add(time.Duration(i) * time.Minute) }
		if err := s.MarkSeen("w", listing(id)); err != nil {
			t.Fatalf("MarkSeen: %v", err)
		}
	}

	if empty, _ := s.IsEmpty(); empty {
		t.Error("expected store to be non-empty")
	}
	recent, err := s.Recent(2)
	if err != nil {
		t.Fatalf("Recent: %v", err)
	}
	if len(recent) != 2 || recent[0].ID != "3" || recent[1].ID != "2" {
		t.Errorf("expected newest first [3 2], got %+v", recent)
	}
}
