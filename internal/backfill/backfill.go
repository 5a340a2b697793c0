// Package backfill implements the one-time import of legacy MEMORY.md and
// mirror files into the Store (spec.md §9's "Legacy MEMORY.md").
package backfill

import (
	"bufio"
	"context"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/nanobot-ai/memory/internal/model"
	"github.com/nanobot-ai/memory/internal/store"
)

const metaKey = "backfill_complete"

// legacyFile pairs a mirror path with the kind its lines should become.
type legacyFile struct {
	relPath string
	kind    model.Kind
}

var legacyFiles = []legacyFile{
	{filepath.Join("memory", "semantic", "preferences.md"), model.KindPreference},
	{filepath.Join("memory", "semantic", "facts.md"), model.KindFact},
	{filepath.Join("memory", "semantic", "decisions.md"), model.KindDecision},
}

// Result summarizes one backfill run.
type Result struct {
	AlreadyComplete bool
	Inserted        int
	Skipped         int
}

// Run imports MEMORY.md (if present at workspaceRoot) and the three
// semantic mirror files under workspaceRoot/memory/semantic, guarded by a
// memory_meta marker so re-running is a no-op.
func Run(ctx context.Context, s store.Store, workspaceRoot string) (Result, error) {
	if v, ok, err := s.GetMeta(ctx, metaKey); err != nil {
		return Result{}, err
	} else if ok && v != "" {
		return Result{AlreadyComplete: true}, nil
	}

	res := Result{}
	globalScope := "workspace:backfill:global"

	if legacyPath := filepath.Join(workspaceRoot, "MEMORY.md"); fileExists(legacyPath) {
		n, skipped, err := importLines(ctx, s, legacyPath, model.KindFact, globalScope)
		if err != nil {
			return res, err
		}
		res.Inserted += n
		res.Skipped += skipped
	}

	for _, lf := range legacyFiles {
		path := filepath.Join(workspaceRoot, lf.relPath)
		if !fileExists(path) {
			continue
		}
		n, skipped, err := importLines(ctx, s, path, lf.kind, globalScope)
		if err != nil {
			return res, err
		}
		res.Inserted += n
		res.Skipped += skipped
	}

	if err := s.SetMeta(ctx, metaKey, time.Now().UTC().Format(time.RFC3339)); err != nil {
		return res, err
	}
	return res, nil
}

func fileExists(path string) bool {
	_, err := os.Stat(path)
	return err == nil
}

// importLines reads one-line-per-entry markdown and inserts each
// non-blank, non-heading line as a source=backfill entry with
// confidence=1.0.
func importLines(ctx context.Context, s store.Store, path string, kind model.Kind, scopeKey string) (inserted, skipped int, err error) {
	f, err := os.Open(path)
	if err != nil {
		return 0, 0, err
	}
	defer f.Close()

	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		line = strings.TrimPrefix(line, "- ")
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}

		now := time.Now().UTC()
		_, outcome, err := s.Upsert(ctx, model.Entry{
			Kind:       kind,
			ScopeKey:   scopeKey,
			Text:       line,
			Importance: 1.0,
			Confidence: 1.0,
			CreatedAt:  now,
			UpdatedAt:  now,
			LastSeenAt: now,
			Source:     model.SourceBackfill,
			ExpiresAt:  now.AddDate(10, 0, 0),
		})
		if err != nil {
			return inserted, skipped, err
		}
		if outcome == model.OutcomeInserted {
			inserted++
		} else {
			skipped++
		}
	}
	return inserted, skipped, scanner.Err()
}
