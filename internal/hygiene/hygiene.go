// Package hygiene implements the kind-aware retention sweep, throttled to
// at most once per hour per process (spec.md §4.8).
package hygiene

import (
	"context"
	"sync"
	"time"

	"github.com/nanobot-ai/memory/internal/store"
)

const minInterval = time.Hour

// Sweeper throttles retention sweeps and tracks whether any capture or
// recall has run since the last sweep, per §4.8's "only if at least one
// capture or recall has run since the last sweep" condition.
type Sweeper struct {
	store store.Store

	mu          sync.Mutex
	lastRun     time.Time
	activitySince bool
}

// New constructs a Sweeper.
func New(s store.Store) *Sweeper {
	return &Sweeper{store: s}
}

// NoteActivity records that a capture or recall has run, arming the next
// sweep. Safe to call concurrently.
func (h *Sweeper) NoteActivity() {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.activitySince = true
}

// MaybeRun sweeps expired entries if the throttle and activity conditions
// both allow it. It is a no-op (returning 0, nil) when throttled.
func (h *Sweeper) MaybeRun(ctx context.Context) (int, error) {
	h.mu.Lock()
	now := time.Now()
	if !h.activitySince || now.Sub(h.lastRun) < minInterval {
		h.mu.Unlock()
		return 0, nil
	}
	h.lastRun = now
	h.activitySince = false
	h.mu.Unlock()

	return h.store.Prune(ctx, store.PruneParams{ExpiredOnly: true})
}

// RunNow sweeps immediately, bypassing the throttle. Used by the operator
// `memory prune` surface, which supports its own `--older-than-days`
// override independent of kind retention.
func (h *Sweeper) RunNow(ctx context.Context, p store.PruneParams) (int, error) {
	return h.store.Prune(ctx, p)
}
