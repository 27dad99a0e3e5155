// Package counts maintains per-period submission tallies. Snapshots are
// always recomputed from a full scan of the registry; there is no delta
// path, so a missed event can only make a snapshot stale, never wrong.
package counts

import (
	"context"
	"sync"
	"time"

	"go.uber.org/zap"

	"memoria.io/portal/internal/domain"
	"memoria.io/portal/internal/pkg/logger"
	"memoria.io/portal/internal/registry"
)

// Projector computes and caches CountSnapshots per review period.
type Projector struct {
	reg registry.Registry
	now func() time.Time

	mu      sync.Mutex
	periods map[string]*periodEntry
}

// periodEntry serializes recomputes for one period. Concurrent callers
// that arrive during a recompute block on mu and then reuse the fresh
// snapshot instead of scanning again.
type periodEntry struct {
	mu       sync.Mutex
	snapshot *domain.CountSnapshot
	dirty    bool
}

func NewProjector(reg registry.Registry) *Projector {
	return &Projector{
		reg:     reg,
		now:     time.Now,
		periods: make(map[string]*periodEntry),
	}
}

func (p *Projector) entry(periodID string) *periodEntry {
	p.mu.Lock()
	defer p.mu.Unlock()
	e, ok := p.periods[periodID]
	if !ok {
		e = &periodEntry{dirty: true}
		p.periods[periodID] = e
	}
	return e
}

// Get returns the snapshot for a period, recomputing it first if a
// decision has invalidated it since the last scan.
func (p *Projector) Get(ctx context.Context, periodID string) (domain.CountSnapshot, error) {
	e := p.entry(periodID)

	e.mu.Lock()
	defer e.mu.Unlock()

	if e.snapshot != nil && !e.dirty {
		return *e.snapshot, nil
	}

	snap, err := p.recompute(ctx, periodID)
	if err != nil {
		// Readers get the last-known tallies when the registry is down;
		// dirty stays set so the next Get retries the scan.
		if e.snapshot != nil {
			logger.Warn("count recompute failed, serving stale snapshot",
				zap.String("period_id", periodID), zap.Error(err))
			return *e.snapshot, nil
		}
		return domain.CountSnapshot{}, err
	}

	e.snapshot = &snap
	e.dirty = false
	return snap, nil
}

// Invalidate marks a period's snapshot stale. The next Get recomputes.
func (p *Projector) Invalidate(periodID string) {
	e := p.entry(periodID)
	e.mu.Lock()
	e.dirty = true
	e.mu.Unlock()
	logger.Debug("count snapshot invalidated", zap.String("period_id", periodID))
}

func (p *Projector) recompute(ctx context.Context, periodID string) (domain.CountSnapshot, error) {
	subs, err := p.reg.List(ctx, periodID, registry.Filter{})
	if err != nil {
		return domain.CountSnapshot{}, err
	}

	snap := domain.CountSnapshot{PeriodID: periodID, ComputedAt: p.now()}
	for _, sub := range subs {
		switch sub.Status {
		case domain.StatusPending:
			snap.PendingCount++
		case domain.StatusApproved:
			snap.ApprovedCount++
		case domain.StatusRejected:
			snap.RejectedCount++
		}
	}
	return snap, nil
}
