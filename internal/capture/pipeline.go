// Package capture orchestrates extract→filter→gate→dedupe→upsert→mirror
// for one turn (spec.md §4.5).
package capture

import (
	"context"
	"log/slog"
	"sort"
	"time"

	"github.com/nanobot-ai/memory/internal/config"
	"github.com/nanobot-ai/memory/internal/extract"
	"github.com/nanobot-ai/memory/internal/metrics"
	"github.com/nanobot-ai/memory/internal/mirror"
	"github.com/nanobot-ai/memory/internal/model"
	"github.com/nanobot-ai/memory/internal/safety"
	"github.com/nanobot-ai/memory/internal/scope"
	"github.com/nanobot-ai/memory/internal/store"
)

// Turn carries the inputs to one capture invocation.
type Turn struct {
	Channel       string
	ChatID        string
	SenderID      string
	WorkspaceID   string
	UserText      string
	AssistantText string
}

// Pipeline wires the Extractor, Safety Filter, gate, Store, and Mirror
// into the seven-step sequence from §4.5.
type Pipeline struct {
	cfg       config.CaptureConfig
	retention config.RetentionConfig
	extractor *extract.Extractor
	filter    *safety.Filter
	store     store.Store
	mirror    *mirror.Writer
	metrics   *metrics.Registry
	log       *slog.Logger
}

// New constructs a Pipeline. mirrorWriter may be nil to disable mirroring.
func New(cfg config.CaptureConfig, retention config.RetentionConfig, s store.Store, mirrorWriter *mirror.Writer, m *metrics.Registry, log *slog.Logger) *Pipeline {
	return &Pipeline{
		cfg:       cfg,
		retention: retention,
		extractor: extract.New(),
		filter:    safety.New(safety.DefaultConfig()),
		store:     s,
		mirror:    mirrorWriter,
		metrics:   m,
		log:       log,
	}
}

// Run executes the pipeline for one turn. It is idempotent: replaying the
// same turn can only produce dedupe merges, never duplicate rows (I2).
func (p *Pipeline) Run(ctx context.Context, t Turn) error {
	if !p.cfg.Enabled || !channelAllowed(p.cfg.Channels, t.Channel) {
		return nil
	}

	var candidates []extract.Candidate
	candidates = append(candidates, p.extractor.Extract(t.UserText)...)
	if p.cfg.CaptureAssistant && t.AssistantText != "" {
		candidates = append(candidates, p.extractor.Extract(t.AssistantText)...)
	}

	var survivors []extract.Candidate
	for _, c := range candidates {
		result := p.filter.Check(c.Text)
		if !result.Accepted {
			if p.metrics != nil {
				p.metrics.CaptureDroppedSafety.WithLabelValues(string(result.Reason)).Inc()
			}
			continue
		}
		if c.Confidence < p.cfg.MinConfidence || c.Importance < p.cfg.MinImportance {
			if p.metrics != nil {
				p.metrics.CaptureDroppedLowConf.Inc()
			}
			continue
		}
		survivors = append(survivors, c)
	}

	sort.SliceStable(survivors, func(i, j int) bool {
		return (survivors[i].Confidence + survivors[i].Importance) > (survivors[j].Confidence + survivors[j].Importance)
	})
	if len(survivors) > p.cfg.MaxEntriesPerTurn {
		survivors = survivors[:p.cfg.MaxEntriesPerTurn]
	}

	keys := scope.Resolve(t.Channel, t.ChatID, t.SenderID, t.WorkspaceID)

	for _, c := range survivors {
		scopeKey := scope.DefaultForKind(c.Kind, keys)
		now := time.Now().UTC()
		entry := model.Entry{
			Kind:       c.Kind,
			ScopeKey:   scopeKey,
			Text:       c.Text,
			Channel:    t.Channel,
			ChatID:     t.ChatID,
			SenderID:   t.SenderID,
			Importance: c.Importance,
			Confidence: c.Confidence,
			CreatedAt:  now,
			UpdatedAt:  now,
			LastSeenAt: now,
			Source:     model.SourceAuto,
			ExpiresAt:  now.AddDate(0, 0, p.retention.Days(string(c.Kind))),
		}

		saved, outcome, err := p.store.Upsert(ctx, entry)
		if err != nil {
			p.log.Warn("capture upsert failed", "kind", c.Kind, "error", err)
			continue
		}

		if p.metrics != nil {
			if outcome == model.OutcomeInserted {
				p.metrics.CaptureSaved.Inc()
			} else {
				p.metrics.CaptureDeduped.Inc()
			}
		}

		if outcome == model.OutcomeInserted && p.mirror != nil {
			if err := p.mirror.Write(saved); err != nil {
				p.log.Warn("mirror write failed", "kind", c.Kind, "error", err)
			}
		}
	}

	return nil
}

func channelAllowed(allowed []string, channel string) bool {
	if len(allowed) == 0 {
		return true
	}
	for _, a := range allowed {
		if a == channel {
			return true
		}
	}
	return false
}
