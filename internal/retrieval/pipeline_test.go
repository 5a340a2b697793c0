package retrieval

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/nanobot-ai/memory/internal/config"
	"github.com/nanobot-ai/memory/internal/metrics"
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

func mustUpsert(t *testing.T, s store.Store, e model.Entry) model.Entry {
	t.Helper()
	out, _, err := s.Upsert(context.Background(), e)
	if err != nil {
		t.Fatalf("Upsert: %v", err)
	}
	return out
}

// TestRun_CrossChatIsolation exercises scenario 2 from §8.
func TestRun_CrossChatIsolation(t *testing.T) {
	s := newTestStore(t)
	now := time.Now().UTC()

	mustUpsert(t, s, model.Entry{
		Kind: model.KindDecision, ScopeKey: "channel:cli:chat:A", Text: "We decided to use Postgres.",
		Channel: "cli", ChatID: "A", Importance: 0.6, Confidence: 0.9,
		CreatedAt: now, UpdatedAt: now, LastSeenAt: now, Source: model.SourceAuto, ExpiresAt: now.AddDate(0, 0, 90),
	})

	cfg := config.Default().Recall
	p := New(cfg, s, metrics.New())

	res := p.Run(context.Background(), Request{Channel: "cli", ChatID: "B", SenderID: "s1", WorkspaceID: "ws", UserText: "postgres decision"})
	if len(res.Entries) != 0 {
		t.Errorf("expected 0 results across chats, got %d", len(res.Entries))
	}
}

// TestRun_UserLayerBleed exercises scenario 3 from §8: a preference scoped
// to a user is visible from a different chat under the same sender.
func TestRun_UserLayerBleed(t *testing.T) {
	s := newTestStore(t)
	now := time.Now().UTC()

	mustUpsert(t, s, model.Entry{
		Kind: model.KindPreference, ScopeKey: "channel:cli:user:S", Text: "I prefer dark mode everywhere.",
		Channel: "cli", ChatID: "A", SenderID: "S", Importance: 0.7, Confidence: 0.9,
		CreatedAt: now, UpdatedAt: now, LastSeenAt: now, Source: model.SourceAuto, ExpiresAt: now.AddDate(0, 0, 3650),
	})

	cfg := config.Default().Recall
	p := New(cfg, s, metrics.New())

	res := p.Run(context.Background(), Request{Channel: "cli", ChatID: "B", SenderID: "S", WorkspaceID: "ws", UserText: "dark mode preference"})
	if len(res.Entries) != 1 {
		t.Fatalf("expected 1 result via user layer, got %d", len(res.Entries))
	}
}

// TestRun_RecallRanking exercises scenario 1 from §8: the entry whose text
// matches a query term ("tailwind") ranks first. The FTS index does no
// stemming, so "preference" does not match "prefer concise responses".
func TestRun_RecallRanking(t *testing.T) {
	s := newTestStore(t)
	now := time.Now().UTC()

	mustUpsert(t, s, model.Entry{
		Kind: model.KindPreference, ScopeKey: "channel:cli:user:S", Text: "prefer concise responses",
		Channel: "cli", ChatID: "direct", SenderID: "S", Importance: 0.7, Confidence: 0.9,
		CreatedAt: now.AddDate(0, 0, -1), UpdatedAt: now, LastSeenAt: now.AddDate(0, 0, -1),
		Source: model.SourceAuto, ExpiresAt: now.AddDate(0, 0, 3650),
	})
	mustUpsert(t, s, model.Entry{
		Kind: model.KindFact, ScopeKey: "channel:cli:user:S", Text: "uses tailwind",
		Channel: "cli", ChatID: "direct", SenderID: "S", Importance: 0.5, Confidence: 0.9,
		CreatedAt: now.AddDate(0, 0, -30), UpdatedAt: now, LastSeenAt: now.AddDate(0, 0, -30),
		Source: model.SourceAuto, ExpiresAt: now.AddDate(0, 0, 3650),
	})

	cfg := config.Default().Recall
	p := New(cfg, s, metrics.New())

	res := p.Run(context.Background(), Request{Channel: "cli", ChatID: "direct", SenderID: "S", WorkspaceID: "ws", UserText: "tailwind preference"})
	if len(res.Entries) == 0 {
		t.Fatal("expected at least one result")
	}
	if res.Entries[0].Entry.Text != "uses tailwind" {
		t.Errorf("expected 'uses tailwind' to rank first via stronger fts_norm, got %q", res.Entries[0].Entry.Text)
	}
}

// TestRender_BoundedByWholeLines exercises P3/scenario 6.
func TestRender_BoundedByWholeLines(t *testing.T) {
	var entries []model.Scored
	for i := 0; i < 20; i++ {
		entries = append(entries, model.Scored{Entry: model.Entry{
			ID: string(rune('a' + i)), Kind: model.KindFact, Text: "a moderately long fact entry text here",
		}})
	}

	block := render(entries, 200)
	if len(block) > 200 {
		t.Fatalf("expected block bounded to 200 chars, got %d", len(block))
	}
	for _, line := range splitLinesForTest(block) {
		if line == "" {
			continue
		}
		if line[0] != '-' {
			t.Errorf("expected only whole '- [kind] text' lines, got %q", line)
		}
	}
}

func splitLinesForTest(s string) []string {
	var out []string
	start := 0
	for i, r := range s {
		if r == '\n' {
			out = append(out, s[start:i])
			start = i + 1
		}
	}
	out = append(out, s[start:])
	return out
}
