// Package extract implements the heuristic candidate extractor
// (spec.md §4.4, capture.mode="heuristic").
package extract

import (
	"regexp"
	"strings"

	"github.com/nanobot-ai/memory/internal/model"
	"github.com/nanobot-ai/memory/internal/norm"
)

// Candidate is a typed, unpersisted memory candidate produced from a turn.
type Candidate struct {
	Kind       model.Kind
	Text       string
	Importance float64
	Confidence float64
}

var (
	preferenceRe = regexp.MustCompile(`(?i)\b(prefer|prefers|preferring)\b|\b(always|never)\s+use\b|\bi\s+(like|love|hate|dislike)\b|\bdon'?t\s+use\b`)
	alwaysNeverRe = regexp.MustCompile(`(?i)\b(always|never)\b`)
	factRe       = regexp.MustCompile(`(?i)\bmy\s+\w+\s+is\b|\bi\s+work\s+on\b|\bi\s+(use|run|have)\b`)
	decisionRe   = regexp.MustCompile(`(?i)\bwe'?ll\s+go\s+with\b|\bdecided\s+to\b|\blet'?s\s+go\s+with\b`)
	sentenceSplitRe = regexp.MustCompile(`[.!?\n]+`)
)

const (
	episodicMinChars = 120
	episodicMaxChars = 200
)

// Extractor derives typed candidates from turn text.
type Extractor struct{}

// New creates a heuristic Extractor.
func New() *Extractor {
	return &Extractor{}
}

// Extract derives candidates from a single turn's text. Candidates are
// deduped within the turn by normalized text before being returned, so the
// Gate and Store downstream never see intra-turn duplicates.
func (e *Extractor) Extract(text string) []Candidate {
	sentences := splitSentences(text)

	var candidates []Candidate
	seen := map[string]bool{}
	addIfNew := func(c Candidate) {
		key := string(c.Kind) + "|" + norm.Text(c.Text)
		if seen[key] {
			return
		}
		seen[key] = true
		candidates = append(candidates, c)
	}

	matchedAny := false
	for _, s := range sentences {
		s = strings.TrimSpace(s)
		if s == "" {
			continue
		}
		switch {
		case preferenceRe.MatchString(s):
			matchedAny = true
			importance := 0.6
			if alwaysNeverRe.MatchString(s) {
				importance = min1(importance + 0.1)
			}
			addIfNew(Candidate{Kind: model.KindPreference, Text: s, Importance: importance, Confidence: 0.82})
		case decisionRe.MatchString(s):
			matchedAny = true
			addIfNew(Candidate{Kind: model.KindDecision, Text: s, Importance: 0.65, Confidence: 0.85})
		case factRe.MatchString(s):
			matchedAny = true
			addIfNew(Candidate{Kind: model.KindFact, Text: s, Importance: 0.55, Confidence: 0.8})
		}
	}

	if !matchedAny {
		if summary, ok := episodicSummary(text); ok {
			addIfNew(Candidate{Kind: model.KindEpisodic, Text: summary, Importance: 0.6, Confidence: 0.78})
		}
	}

	return candidates
}

// episodicSummary produces a compact continuity marker for long turns that
// matched no other rule, truncated to episodicMaxChars.
func episodicSummary(text string) (string, bool) {
	trimmed := strings.TrimSpace(text)
	if len(trimmed) <= episodicMinChars {
		return "", false
	}
	sentences := splitSentences(trimmed)
	summary := trimmed
	if len(sentences) > 0 && strings.TrimSpace(sentences[0]) != "" {
		summary = strings.TrimSpace(sentences[0])
	}
	if len(summary) > episodicMaxChars {
		summary = strings.TrimSpace(summary[:episodicMaxChars-1]) + "…"
	}
	return summary, true
}

func splitSentences(text string) []string {
	return sentenceSplitRe.Split(text, -1)
}

func min1(v float64) float64 {
	if v > 1.0 {
		return 1.0
	}
	return v
}
