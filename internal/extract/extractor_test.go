package extract

import (
	"testing"

	"github.com/nanobot-ai/memory/internal/model"
)

func TestExtract_Preference(t *testing.T) {
	e := New()
	cands := e.Extract("I always prefer dark mode in my editor.")
	if len(cands) != 1 {
		t.Fatalf("expected 1 candidate, got %d", len(cands))
	}
	if cands[0].Kind != model.KindPreference {
		t.Errorf("expected preference, got %s", cands[0].Kind)
	}
	if cands[0].Importance <= 0.6 {
		t.Errorf("expected importance boosted above base 0.6, got %v", cands[0].Importance)
	}
}

func TestExtract_Fact(t *testing.T) {
	e := New()
	cands := e.Extract("My city is Austin.")
	if len(cands) != 1 || cands[0].Kind != model.KindFact {
		t.Fatalf("expected 1 fact candidate, got %+v", cands)
	}
}

func TestExtract_Decision(t *testing.T) {
	e := New()
	cands := e.Extract("We decided to use Postgres for the new service.")
	if len(cands) != 1 || cands[0].Kind != model.KindDecision {
		t.Fatalf("expected 1 decision candidate, got %+v", cands)
	}
}

func TestExtract_DedupesWithinTurn(t *testing.T) {
	e := New()
	cands := e.Extract("I always prefer dark mode. I always prefer dark mode!")
	if len(cands) != 1 {
		t.Fatalf("expected dedupe to 1 candidate, got %d", len(cands))
	}
}

func TestExtract_NoMatchIsSilent(t *testing.T) {
	e := New()
	cands := e.Extract("ok")
	if len(cands) != 0 {
		t.Fatalf("expected no candidates, got %d", len(cands))
	}
}

func TestExtract_EpisodicFallback(t *testing.T) {
	e := New()
	text := "We spent the afternoon restructuring the onboarding flow and walking through every edge case in the signup form together, step by step, until it finally clicked."
	cands := e.Extract(text)
	if len(cands) != 1 || cands[0].Kind != model.KindEpisodic {
		t.Fatalf("expected 1 episodic candidate, got %+v", cands)
	}
	if len(cands[0].Text) > episodicMaxChars {
		t.Errorf("expected summary bounded to %d chars, got %d", episodicMaxChars, len(cands[0].Text))
	}
}
