// Package engine wires the Store, Safety Filter, Extractor, Capture and
// Retrieval pipelines, WAL writer, Hygiene sweeper, Mirrors, and Telemetry
// into the single handle the chat-assistant runtime holds (spec.md §9's
// "global state → explicit engine handle").
package engine

import (
	"context"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"time"

	"github.com/nanobot-ai/memory/internal/backfill"
	"github.com/nanobot-ai/memory/internal/capture"
	"github.com/nanobot-ai/memory/internal/config"
	"github.com/nanobot-ai/memory/internal/hygiene"
	"github.com/nanobot-ai/memory/internal/metrics"
	"github.com/nanobot-ai/memory/internal/mirror"
	"github.com/nanobot-ai/memory/internal/model"
	"github.com/nanobot-ai/memory/internal/retrieval"
	"github.com/nanobot-ai/memory/internal/scope"
	"github.com/nanobot-ai/memory/internal/store"
	"github.com/nanobot-ai/memory/internal/wal"
)

// Engine is the memory core's single handle: constructed once from a
// config and injected into the responder path, no process-wide
// singletons.
type Engine struct {
	cfg     *config.Config
	store   store.Store
	capture *capture.Pipeline
	recall  *retrieval.Pipeline
	wal     *wal.Writer
	hygiene *hygiene.Sweeper
	metrics *metrics.Registry
	log     *slog.Logger
}

// New constructs an Engine from a validated config. workspaceDir is the
// `workspace/` root under which `memory/episodic`, `memory/semantic`, and
// the WAL's configured state dir live (spec.md §6's on-disk layout).
func New(cfg *config.Config, workspaceDir string, log *slog.Logger) (*Engine, error) {
	if log == nil {
		log = slog.Default()
	}

	dbPath, err := expandHome(cfg.Memory.DBPath)
	if err != nil {
		return nil, err
	}

	s, err := store.Open(dbPath)
	if err != nil {
		return nil, err
	}

	reg := metrics.New()
	mirrorWriter := mirror.New(filepath.Join(workspaceDir, "memory"))
	walWriter := wal.New(filepath.Join(workspaceDir, cfg.WAL.StateDir))

	e := &Engine{
		cfg:     cfg,
		store:   s,
		capture: capture.New(cfg.Capture, cfg.Retention, s, mirrorWriter, reg, log),
		recall:  retrieval.New(cfg.Recall, s, reg),
		wal:     walWriter,
		hygiene: hygiene.New(s),
		metrics: reg,
		log:     log,
	}
	return e, nil
}

func expandHome(path string) (string, error) {
	if !strings.HasPrefix(path, "~") {
		return path, nil
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(home, strings.TrimPrefix(path, "~")), nil
}

// Metrics exposes the telemetry registry for the host process to scrape.
func (e *Engine) Metrics() *metrics.Registry { return e.metrics }

// Store exposes the underlying store for the operator CLI surface.
func (e *Engine) Store() store.Store { return e.store }

// WALPre writes the pre-generation marker for a session, honoring
// cfg.WAL.Enabled. Failures are logged, never fatal to the turn.
func (e *Engine) WALPre(sessionKey, turnMeta string) {
	if !e.cfg.WAL.Enabled {
		return
	}
	if err := e.wal.AppendPre(sessionKey, turnMeta); err != nil {
		e.log.Warn("wal append_pre failed", "session", sessionKey, "error", err)
	}
}

// WALPost writes the post-generation marker for a session.
func (e *Engine) WALPost(sessionKey, assistantSummary string) {
	if !e.cfg.WAL.Enabled {
		return
	}
	if err := e.wal.AppendPost(sessionKey, assistantSummary); err != nil {
		e.log.Warn("wal append_post failed", "session", sessionKey, "error", err)
	}
}

// Retrieve runs the retrieval pipeline for one turn.
func (e *Engine) Retrieve(ctx context.Context, req retrieval.Request) retrieval.Result {
	if !e.cfg.Memory.Enabled {
		return retrieval.Result{}
	}
	e.hygiene.NoteActivity()
	return e.recall.Run(ctx, req)
}

// Capture runs the capture pipeline for one turn.
func (e *Engine) Capture(ctx context.Context, turn capture.Turn) error {
	if !e.cfg.Memory.Enabled {
		return nil
	}
	e.hygiene.NoteActivity()
	return e.capture.Run(ctx, turn)
}

// MaybeSweep runs the opportunistic hygiene sweep if the throttle and
// activity conditions allow it, per §4.8. Callers invoke this once per
// turn, after session save.
func (e *Engine) MaybeSweep(ctx context.Context) (int, error) {
	return e.hygiene.MaybeRun(ctx)
}

// Status is the operator-surface payload for `memory status`.
type Status struct {
	DBPath        string            `json:"db_path"`
	TotalEntries  int               `json:"total_entries"`
	EntriesByKind map[model.Kind]int `json:"entries_by_kind"`
	ScopeCount    int               `json:"scope_count"`
}

// Status returns aggregate counters for the operator surface.
func (e *Engine) Status(ctx context.Context) (Status, error) {
	st, err := e.store.Stats(ctx)
	if err != nil {
		return Status{}, err
	}
	return Status{
		DBPath:        st.DBPath,
		TotalEntries:  st.TotalEntries,
		EntriesByKind: st.EntriesByKind,
		ScopeCount:    st.ScopeCount,
	}, nil
}

// Prune runs an explicit operator-triggered prune, bypassing the hygiene
// throttle.
func (e *Engine) Prune(ctx context.Context, p store.PruneParams) (int, error) {
	return e.hygiene.RunNow(ctx, p)
}

// Reindex rebuilds (or, if probeOnly, just checks) the FTS index.
func (e *Engine) Reindex(ctx context.Context, probeOnly bool) (bool, error) {
	return e.store.Reindex(ctx, probeOnly)
}

// AddParams is the operator surface's explicit manual insert. Unlike
// Extractor output, a manual insert's Scope MAY override the kind→scope
// default (§4.2).
type AddParams struct {
	Text     string
	Kind     model.Kind
	Scope    string // "chat", "user", or "global"
	Channel  string
	ChatID   string
	SenderID string
}

// Add performs a manual, confidence=1.0 insert (operator `memory add`).
func (e *Engine) Add(ctx context.Context, p AddParams) (model.Entry, model.UpsertOutcome, error) {
	keys := scope.Resolve(p.Channel, p.ChatID, p.SenderID, "operator")

	var scopeKey string
	switch p.Scope {
	case "user":
		scopeKey = keys.User
	case "global":
		scopeKey = keys.Global
	default:
		scopeKey = keys.Chat
	}

	now := time.Now().UTC()
	entry := model.Entry{
		Kind:       p.Kind,
		ScopeKey:   scopeKey,
		Text:       p.Text,
		Channel:    p.Channel,
		ChatID:     p.ChatID,
		SenderID:   p.SenderID,
		Importance: 1.0,
		Confidence: 1.0,
		CreatedAt:  now,
		UpdatedAt:  now,
		LastSeenAt: now,
		Source:     model.SourceManual,
		ExpiresAt:  now.AddDate(0, 0, e.cfg.Retention.Days(string(p.Kind))),
	}
	return e.store.Upsert(ctx, entry)
}

// Backfill runs the one-time legacy MEMORY.md/mirror import.
func (e *Engine) Backfill(ctx context.Context, workspaceRoot string) (backfill.Result, error) {
	return backfill.Run(ctx, e.store, workspaceRoot)
}

// Close releases the underlying store's resources.
func (e *Engine) Close() error {
	return e.store.Close()
}
