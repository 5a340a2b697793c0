package backfill

import (
	"context"
	"os"
	"path/filepath"
	"testing"

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

func writeFile(t *testing.T, path, content string) {
	t.Helper()
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		t.Fatalf("MkdirAll: %v", err)
	}
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("WriteFile: %v", err)
	}
}

func TestRun_ImportsLegacyFiles(t *testing.T) {
	s := newTestStore(t)
	root := t.TempDir()

	writeFile(t, filepath.Join(root, "MEMORY.md"), "# Legacy notes\n- User is a backend engineer\n\n- Prefers terse answers\n")
	writeFile(t, filepath.Join(root, "memory", "semantic", "preferences.md"), "- Uses vim keybindings\n")

	ctx := context.Background()
	res, err := Run(ctx, s, root)
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if res.AlreadyComplete {
		t.Fatal("expected first run to not be already complete")
	}
	if res.Inserted != 3 {
		t.Errorf("expected 3 inserted rows, got %d", res.Inserted)
	}

	st, err := s.Stats(ctx)
	if err != nil {
		t.Fatalf("Stats: %v", err)
	}
	if st.TotalEntries != 3 {
		t.Errorf("expected 3 total entries, got %d", st.TotalEntries)
	}
}

func TestRun_SecondRunIsNoOp(t *testing.T) {
	s := newTestStore(t)
	root := t.TempDir()
	writeFile(t, filepath.Join(root, "MEMORY.md"), "- A fact\n")

	ctx := context.Background()
	if _, err := Run(ctx, s, root); err != nil {
		t.Fatalf("first Run: %v", err)
	}

	res, err := Run(ctx, s, root)
	if err != nil {
		t.Fatalf("second Run: %v", err)
	}
	if !res.AlreadyComplete {
		t.Error("expected second run to report already complete")
	}
}
