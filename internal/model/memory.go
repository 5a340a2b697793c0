// Package model defines the core long-term memory data types.
package model

import "time"

// Kind is the typed category of a memory entry.
type Kind string

const (
	KindPreference Kind = "preference"
	KindFact       Kind = "fact"
	KindDecision   Kind = "decision"
	KindEpisodic   Kind = "episodic"
)

// ValidKinds are the allowed memory kinds.
var ValidKinds = map[Kind]bool{
	KindPreference: true,
	KindFact:       true,
	KindDecision:   true,
	KindEpisodic:   true,
}

// Source identifies how an entry entered the store.
type Source string

const (
	SourceAuto     Source = "auto"
	SourceManual   Source = "manual"
	SourceBackfill Source = "backfill"
)

// Entry is the canonical long-term memory record (spec.md §3 MemoryEntry).
type Entry struct {
	ID          string
	Kind        Kind
	ScopeKey    string
	Text        string
	Channel     string
	ChatID      string
	SenderID    string
	Importance  float64
	Confidence  float64
	CreatedAt   time.Time
	UpdatedAt   time.Time
	LastSeenAt  time.Time
	HitCount    int
	Source      Source
	ExpiresAt   time.Time
}

// Scored pairs an entry with a backend-native FTS relevance score.
type Scored struct {
	Entry Entry
	Score float64
}

// UpsertOutcome tells the caller whether an upsert inserted a new row or
// merged into an existing one via the dedupe key.
type UpsertOutcome string

const (
	OutcomeInserted UpsertOutcome = "inserted"
	OutcomeMerged   UpsertOutcome = "merged"
)
