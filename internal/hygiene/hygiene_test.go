package hygiene

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/nanobot-ai/memory/internal/model"
	"github.com/nanobot-ai/memory/internal/store"
)

func newTestStore(t *testing.T) *store.SQLiteStore {
	t.Helper()
	dir := t.TempDir()
	s, err := store.Open(filepath.Join(dir, "memory.db"))
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	t.Cleanup(func() { s.Close() })
	return s
}

func TestMaybeRun_NoOpWithoutActivity(t *testing.T) {
	s := newTestStore(t)
	h := New(s)

	n, err := h.MaybeRun(context.Background())
	if err != nil {
		t.Fatalf("MaybeRun: %v", err)
	}
	if n != 0 {
		t.Errorf("expected no sweep without recorded activity, got %d pruned", n)
	}
}

// TestMaybeRun_PrunesExpired exercises P5: after hygiene, no row has
// expires_at < now.
func TestMaybeRun_PrunesExpired(t *testing.T) {
	s := newTestStore(t)
	now := time.Now().UTC()

	_, _, err := s.Upsert(context.Background(), model.Entry{
		Kind: model.KindEpisodic, ScopeKey: "channel:cli:chat:A", Text: "stale note",
		Importance: 0.6, Confidence: 0.8, CreatedAt: now, UpdatedAt: now, LastSeenAt: now,
		Source: model.SourceAuto, ExpiresAt: now.AddDate(0, 0, -1),
	})
	if err != nil {
		t.Fatalf("Upsert: %v", err)
	}

	h := New(s)
	h.NoteActivity()

	n, err := h.MaybeRun(context.Background())
	if err != nil {
		t.Fatalf("MaybeRun: %v", err)
	}
	if n != 1 {
		t.Errorf("expected 1 expired row pruned, got %d", n)
	}

	st, err := s.Stats(context.Background())
	if err != nil {
		t.Fatalf("Stats: %v", err)
	}
	if st.TotalEntries != 0 {
		t.Errorf("expected 0 remaining entries, got %d", st.TotalEntries)
	}
}

func TestMaybeRun_ThrottledWithinHour(t *testing.T) {
	s := newTestStore(t)
	h := New(s)
	h.NoteActivity()

	if _, err := h.MaybeRun(context.Background()); err != nil {
		t.Fatalf("first MaybeRun: %v", err)
	}

	h.NoteActivity()
	n, err := h.MaybeRun(context.Background())
	if err != nil {
		t.Fatalf("second MaybeRun: %v", err)
	}
	if n != 0 {
		t.Errorf("expected second sweep within the hour to be throttled, got %d", n)
	}
}
