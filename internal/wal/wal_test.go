package wal

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestSafe_BoundsLengthWithHashSuffix(t *testing.T) {
	long := strings.Repeat("Session/Key With Spaces!", 20)
	got := safe(long)
	if len(got) > maxSafeKeyLen {
		t.Fatalf("expected length <= %d, got %d", maxSafeKeyLen, len(got))
	}
	if unsafeCharRe.MatchString(got) {
		t.Errorf("expected only [a-z0-9_-] characters, got %q", got)
	}
}

func TestSafe_DistinctLongKeysDoNotCollide(t *testing.T) {
	a := safe(strings.Repeat("a", 200))
	b := safe(strings.Repeat("a", 199) + "b")
	if a == b {
		t.Error("expected distinct truncation-hash suffixes for distinct long keys")
	}
}

func TestAppendPreThenPost_OrderedInFile(t *testing.T) {
	dir := t.TempDir()
	w := New(dir)

	if err := w.AppendPre("chat-1", "turn meta"); err != nil {
		t.Fatalf("AppendPre: %v", err)
	}
	if err := w.AppendPost("chat-1", "assistant summary"); err != nil {
		t.Fatalf("AppendPost: %v", err)
	}
	if err := w.AppendPre("chat-1", "turn 2 meta"); err != nil {
		t.Fatalf("AppendPre 2: %v", err)
	}

	data, err := os.ReadFile(filepath.Join(dir, safe("chat-1")+".md"))
	if err != nil {
		t.Fatalf("ReadFile: %v", err)
	}
	lines := strings.Split(strings.TrimSpace(string(data)), "\n")
	if len(lines) != 3 {
		t.Fatalf("expected 3 lines, got %d: %v", len(lines), lines)
	}
	if !strings.Contains(lines[0], "PRE") || !strings.Contains(lines[1], "POST") || !strings.Contains(lines[2], "PRE") {
		t.Errorf("expected PRE, POST, PRE order, got %v", lines)
	}
}

func TestAppend_SeparatesDistinctSessions(t *testing.T) {
	dir := t.TempDir()
	w := New(dir)

	if err := w.AppendPre("session-a", "meta-a"); err != nil {
		t.Fatalf("AppendPre a: %v", err)
	}
	if err := w.AppendPre("session-b", "meta-b"); err != nil {
		t.Fatalf("AppendPre b: %v", err)
	}

	entries, err := os.ReadDir(dir)
	if err != nil {
		t.Fatalf("ReadDir: %v", err)
	}
	if len(entries) != 2 {
		t.Fatalf("expected 2 session files, got %d", len(entries))
	}
}
