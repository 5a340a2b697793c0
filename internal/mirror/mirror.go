// Package mirror appends human-readable markdown copies of accepted
// entries under the workspace directory (spec.md §4.9). Mirrors are
// informational only; the Store remains canonical.
package mirror

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/nanobot-ai/memory/internal/model"
)

// Writer appends one-line mirror entries to the per-kind destination file.
type Writer struct {
	workspaceDir string
}

// New creates a Writer rooted at workspaceDir (the directory containing
// the episodic/ and semantic/ subdirectories).
func New(workspaceDir string) *Writer {
	return &Writer{workspaceDir: workspaceDir}
}

// Write appends a mirror line for e to its kind's destination file. Mirror
// failures are the caller's to log; they are never fatal to capture.
func (w *Writer) Write(e model.Entry) error {
	path, err := w.destPath(e)
	if err != nil {
		return err
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("mirror mkdir: %w", err)
	}

	f, err := os.OpenFile(path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o644)
	if err != nil {
		return fmt.Errorf("mirror open: %w", err)
	}
	defer f.Close()

	line := fmt.Sprintf("[%s] (%s) %s\n", e.CreatedAt.UTC().Format(time.RFC3339), e.ScopeKey, e.Text)
	if _, err := f.WriteString(line); err != nil {
		return fmt.Errorf("mirror write: %w", err)
	}
	return nil
}

func (w *Writer) destPath(e model.Entry) (string, error) {
	switch e.Kind {
	case model.KindEpisodic:
		day := e.CreatedAt.UTC().Format("2006-01-02")
		return filepath.Join(w.workspaceDir, "episodic", day+".md"), nil
	case model.KindPreference:
		return filepath.Join(w.workspaceDir, "semantic", "preferences.md"), nil
	case model.KindFact:
		return filepath.Join(w.workspaceDir, "semantic", "facts.md"), nil
	case model.KindDecision:
		return filepath.Join(w.workspaceDir, "semantic", "decisions.md"), nil
	default:
		return "", fmt.Errorf("mirror: unknown kind %q", e.Kind)
	}
}
