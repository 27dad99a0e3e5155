package jobs

import (
	"context"
	"fmt"
	"time"

	"github.com/riverqueue/river"
	"go.uber.org/zap"

	"memoria.io/portal/internal/counts"
	"memoria.io/portal/internal/pkg/logger"
	"memoria.io/portal/internal/registry"
)

// CountReconcileArgs is a periodic job that force-recomputes the count
// snapshot of every active review period. The decision path already
// invalidates snapshots; this job covers writes that bypassed this process.
type CountReconcileArgs struct{}

// Kind returns the job kind identifier for count reconciliation.
func (CountReconcileArgs) Kind() string { return "count_reconcile" }

// InsertOpts deduplicates overlapping reconcile runs.
func (CountReconcileArgs) InsertOpts() river.InsertOpts {
	return river.InsertOpts{
		Queue:       river.QueueDefault,
		MaxAttempts: 1,
		UniqueOpts: river.UniqueOpts{
			ByPeriod: time.Minute,
			ByQueue:  true,
			ByArgs:   true,
		},
	}
}

// CountReconcileWorker rebuilds snapshots from full registry scans.
type CountReconcileWorker struct {
	river.WorkerDefaults[CountReconcileArgs]
	reg       registry.Registry
	projector *counts.Projector
}

func NewCountReconcileWorker(reg registry.Registry, projector *counts.Projector) *CountReconcileWorker {
	return &CountReconcileWorker{reg: reg, projector: projector}
}

// Work recomputes every active period's snapshot.
func (w *CountReconcileWorker) Work(ctx context.Context, _ *river.Job[CountReconcileArgs]) error {
	if w == nil || w.reg == nil || w.projector == nil {
		return fmt.Errorf("count reconcile worker is not initialized")
	}

	periods, err := w.reg.ActivePeriods(ctx)
	if err != nil {
		return fmt.Errorf("list active periods: %w", err)
	}

	for _, periodID := range periods {
		w.projector.Invalidate(periodID)
		snap, err := w.projector.Get(ctx, periodID)
		if err != nil {
			return fmt.Errorf("recompute counts for period %s: %w", periodID, err)
		}
		logger.Debug("count snapshot reconciled",
			zap.String("period_id", periodID),
			zap.Int("total", snap.Total()),
		)
	}

	logger.Info("count reconcile completed", zap.Int("periods", len(periods)))
	return nil
}
