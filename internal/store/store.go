// Package store implements the canonical entry table, lexical FTS index,
// and metadata markers (spec.md §4.1, component C1).
package store

import (
	"context"
	"time"

	"github.com/nanobot-ai/memory/internal/model"
)

// SearchParams bounds a lexical query to a set of scopes and kinds.
type SearchParams struct {
	ScopeKeys []string
	Kinds     []model.Kind
	Query     string
	K         int
}

// PruneParams selects rows for deletion.
type PruneParams struct {
	// ExpiredOnly deletes rows whose expires_at has passed (Hygiene's mode).
	ExpiredOnly bool
	// OlderThanDays, when > 0, deletes rows created more than N days ago,
	// regardless of kind retention (the operator's explicit override).
	OlderThanDays int
	// DryRun counts matching rows without deleting them.
	DryRun bool
}

// Stats holds aggregate counters for the operator `memory status` surface.
type Stats struct {
	DBPath        string
	TotalEntries  int
	EntriesByKind map[model.Kind]int
	ScopeCount    int
}

// Store is the storage interface backing the memory engine. The only
// implementation is SQLiteStore; "reserved_hybrid" is a named stub for a
// future vector-augmented backend (§9) — callers program against this
// interface so that swap-in requires no change at the call sites.
type Store interface {
	// Upsert inserts a new entry or merges into an existing row sharing the
	// same dedupe key (scope_key, kind, normalized text), per I2. It is
	// transactional: the canonical row and FTS index are updated atomically
	// (I3), and the outcome discriminates insert from merge for telemetry.
	Upsert(ctx context.Context, e model.Entry) (model.Entry, model.UpsertOutcome, error)

	// Search runs a lexical query constrained by scope and kind, returning
	// raw (backend-native) relevance scores alongside each entry.
	Search(ctx context.Context, p SearchParams) ([]model.Scored, error)

	// Prune deletes rows matching p, returning the count affected.
	Prune(ctx context.Context, p PruneParams) (int, error)

	// Reindex rebuilds the FTS index from the canonical table. probeOnly
	// instead reports whether the two are already consistent, without
	// rebuilding — used to detect Corrupt.
	Reindex(ctx context.Context, probeOnly bool) (consistent bool, err error)

	// Stats returns aggregate counters for the operator surface.
	Stats(ctx context.Context) (Stats, error)

	// GetMeta/SetMeta read and write memory_meta markers (schema version,
	// backfill_complete).
	GetMeta(ctx context.Context, key string) (string, bool, error)
	SetMeta(ctx context.Context, key, value string) error

	Close() error
}

// RetentionFunc is implemented by callers that know kind→days mapping; kept
// here as a function type so Store stays decoupled from internal/config.
type RetentionFunc func(kind model.Kind) time.Duration
