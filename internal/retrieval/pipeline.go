// Package retrieval builds the query, runs the dual-scope search, fuses
// scores, and renders the bounded recall block for one turn (spec.md §4.6).
package retrieval

import (
	"context"
	"fmt"
	"math"
	"sort"
	"strings"
	"time"

	"github.com/nanobot-ai/memory/internal/config"
	"github.com/nanobot-ai/memory/internal/metrics"
	"github.com/nanobot-ai/memory/internal/model"
	"github.com/nanobot-ai/memory/internal/scope"
	"github.com/nanobot-ai/memory/internal/store"
)

// recencyHalfLife is the fixed 7-day exponential decay half-life the spec
// requires as a default (§9's open-question resolution).
const recencyHalfLife = 7 * 24 * time.Hour

// Score weights from §4.6's fusion formula.
const (
	weightFTS        = 0.65
	weightImportance = 0.20
	weightRecency    = 0.15
)

// Request carries the inputs to one retrieval invocation.
type Request struct {
	Channel     string
	ChatID      string
	SenderID    string
	WorkspaceID string
	UserText    string
	ReplyToText string
}

// Result is the outcome of one retrieval: the ranked entries and the
// rendered, bounded system-message block.
type Result struct {
	Entries []model.Scored
	Block   string
}

// Pipeline runs the eight-step retrieval algorithm against a Store.
type Pipeline struct {
	cfg     config.RecallConfig
	store   store.Store
	metrics *metrics.Registry
}

// New constructs a Pipeline.
func New(cfg config.RecallConfig, s store.Store, m *metrics.Registry) *Pipeline {
	return &Pipeline{cfg: cfg, store: s, metrics: m}
}

// Run executes the retrieval algorithm and returns the fused, rendered
// result. On error from the Store, it degrades to an empty miss rather
// than surfacing the error to the caller (§7: StoreUnavailable/Busy →
// recall returns empty and counts as miss).
func (p *Pipeline) Run(ctx context.Context, req Request) Result {
	query := buildQuery(req.UserText, req.ReplyToText)
	if query == "" {
		return p.emptyResult()
	}

	keys := scope.Resolve(req.Channel, req.ChatID, req.SenderID, req.WorkspaceID)

	chatResults, err := p.store.Search(ctx, store.SearchParams{
		ScopeKeys: []string{keys.Chat},
		Kinds:     nil,
		Query:     query,
		K:         p.cfg.MaxResults,
	})
	if err != nil {
		chatResults = nil
	}

	userResults, err := p.store.Search(ctx, store.SearchParams{
		ScopeKeys: []string{keys.User},
		Kinds:     []model.Kind{model.KindPreference, model.KindFact},
		Query:     query,
		K:         p.cfg.UserPreferenceLayerResults,
	})
	if err != nil {
		userResults = nil
	}

	fused := fuseLayer(chatResults, time.Now().UTC())
	fused = append(fused, fuseLayer(userResults, time.Now().UTC())...)

	merged := dedupeByID(fused)
	sort.SliceStable(merged, func(i, j int) bool {
		return rankLess(merged[j], merged[i])
	})
	if len(merged) > p.cfg.MaxResults {
		merged = merged[:p.cfg.MaxResults]
	}

	block := render(merged, p.cfg.MaxPromptChars)

	if p.metrics != nil {
		p.metrics.PromptChars.Observe(float64(len(block)))
		if len(merged) > 0 {
			p.metrics.RecallHit.Inc()
		} else {
			p.metrics.RecallMiss.Inc()
		}
	}

	return Result{Entries: merged, Block: block}
}

func (p *Pipeline) emptyResult() Result {
	if p.metrics != nil {
		p.metrics.RecallMiss.Inc()
	}
	return Result{}
}

func buildQuery(userText, replyToText string) string {
	q := userText
	if replyToText != "" {
		q = q + " " + replyToText
	}
	return strings.Join(strings.Fields(q), " ")
}

// fuseLayer normalizes each entry's raw FTS score against the layer's max
// (fts_norm), computes recency decay, and fuses per the §4.6 weights.
func fuseLayer(scored []model.Scored, now time.Time) []model.Scored {
	if len(scored) == 0 {
		return nil
	}

	maxScore := 0.0
	for _, s := range scored {
		if s.Score > maxScore {
			maxScore = s.Score
		}
	}

	out := make([]model.Scored, 0, len(scored))
	for _, s := range scored {
		ftsNorm := 0.0
		if maxScore > 0 {
			ftsNorm = s.Score / maxScore
		}
		recency := recencyDecay(now.Sub(s.Entry.LastSeenAt))
		final := weightFTS*ftsNorm + weightImportance*s.Entry.Importance + weightRecency*recency
		out = append(out, model.Scored{Entry: s.Entry, Score: final})
	}
	return out
}

// recencyDecay computes an exponential decay with a fixed half-life,
// clamped to [0,1].
func recencyDecay(age time.Duration) float64 {
	if age < 0 {
		age = 0
	}
	v := math.Exp(-math.Ln2 * float64(age) / float64(recencyHalfLife))
	if v > 1 {
		return 1
	}
	if v < 0 {
		return 0
	}
	return v
}

// dedupeByID keeps the highest-scored occurrence of each entry id, which
// can appear in both layers.
func dedupeByID(scored []model.Scored) []model.Scored {
	best := map[string]model.Scored{}
	for _, s := range scored {
		if existing, ok := best[s.Entry.ID]; !ok || s.Score > existing.Score {
			best[s.Entry.ID] = s
		}
	}
	out := make([]model.Scored, 0, len(best))
	for _, s := range best {
		out = append(out, s)
	}
	return out
}

// rankLess reports whether a ranks strictly below (after) b under the §4.6
// tie-break order: final_score desc, importance desc, last_seen_at desc,
// id asc. The SliceStable call above passes (merged[j], merged[i]), so
// higher-ranked entries sort first.
func rankLess(a, b model.Scored) bool {
	if a.Score != b.Score {
		return a.Score < b.Score
	}
	if a.Entry.Importance != b.Entry.Importance {
		return a.Entry.Importance < b.Entry.Importance
	}
	if !a.Entry.LastSeenAt.Equal(b.Entry.LastSeenAt) {
		return a.Entry.LastSeenAt.Before(b.Entry.LastSeenAt)
	}
	return a.Entry.ID > b.Entry.ID
}

// render joins entries into "- [{kind}] {text}" lines, truncating whole
// lines from the tail so the block never exceeds maxChars and never emits
// a partial line (P3).
func render(entries []model.Scored, maxChars int) string {
	var lines []string
	total := 0
	for _, e := range entries {
		line := fmt.Sprintf("- [%s] %s", e.Entry.Kind, e.Entry.Text)
		lineLen := len(line)
		if len(lines) > 0 {
			lineLen++ // account for the joining newline
		}
		if total+lineLen > maxChars {
			break
		}
		lines = append(lines, line)
		total += lineLen
	}
	return strings.Join(lines, "\n")
}
