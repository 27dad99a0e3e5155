// Package moderation implements the approval state machine. Every decision
// flows through the Gateway, which serializes writes per submission and
// drives the downstream pipeline in a fixed order: registry write, decision
// event, count invalidation, notification, refresh broadcast.
package moderation

import (
	"context"
	"hash/fnv"
	"sync"
	"time"

	"go.uber.org/zap"

	"memoria.io/portal/internal/counts"
	"memoria.io/portal/internal/domain"
	"memoria.io/portal/internal/notification"
	apperrors "memoria.io/portal/internal/pkg/errors"
	"memoria.io/portal/internal/pkg/logger"
	"memoria.io/portal/internal/refresh"
	"memoria.io/portal/internal/registry"
)

// Notifier receives the notification side of a decision. Implemented by
// notification.Dispatcher; nil disables dispatch.
type Notifier interface {
	OnDecision(ctx context.Context, ev domain.DecisionEvent, target notification.Target) (*domain.Notification, error)
}

// Refresher receives change kicks after a decision commits. Implemented by
// refresh.Coordinator; nil disables broadcasting.
type Refresher interface {
	Kick(topic refresh.Topic, periodID, scope string)
}

const lockStripes = 64

// Gateway is the only writer of submission review state.
type Gateway struct {
	reg       registry.Registry
	projector *counts.Projector
	notifier  Notifier
	refresher Refresher
	now       func() time.Time

	// locks serialize decisions per submission so two concurrent reviewers
	// cannot both observe PENDING. The registry's compare-and-set version
	// covers writers outside this process.
	locks [lockStripes]sync.Mutex
}

func NewGateway(reg registry.Registry, projector *counts.Projector, notifier Notifier, refresher Refresher) *Gateway {
	return &Gateway{
		reg:       reg,
		projector: projector,
		notifier:  notifier,
		refresher: refresher,
		now:       time.Now,
	}
}

func (g *Gateway) lock(submissionID string) *sync.Mutex {
	h := fnv.New32a()
	h.Write([]byte(submissionID))
	return &g.locks[h.Sum32()%lockStripes]
}

// Approve moves a pending submission to APPROVED. Approving a submission
// that is not pending is an invalid transition, including a second approve.
func (g *Gateway) Approve(ctx context.Context, submissionID, reviewerID string) (*domain.Submission, error) {
	mu := g.lock(submissionID)
	mu.Lock()
	defer mu.Unlock()

	sub, err := g.reg.Get(ctx, submissionID)
	if err != nil {
		return nil, err
	}
	if sub.Status != domain.StatusPending {
		return nil, apperrors.ErrInvalidTransitionf(submissionID, string(sub.Status))
	}

	at := g.now()
	sub.Status = domain.StatusApproved
	sub.ReviewedAt = &at
	sub.ReviewedBy = reviewerID
	sub.DecisionReasons = nil
	sub.FreeformNote = ""

	updated, err := g.reg.Update(ctx, sub)
	if err != nil {
		return nil, err
	}

	g.afterDecision(ctx, updated, domain.DecisionEvent{
		SubmissionID: updated.ID,
		PeriodID:     updated.PeriodID,
		Outcome:      domain.OutcomeApproved,
		ReviewerID:   reviewerID,
		ReviewCycle:  updated.ReviewCycle,
		OccurredAt:   at,
	})
	return updated, nil
}

// Reject moves a pending submission to REJECTED. The decision must carry
// at least one reason code or a non-empty note; otherwise the submission
// is left untouched and EMPTY_REASON_SET is returned.
func (g *Gateway) Reject(ctx context.Context, submissionID, reviewerID string, reasons []domain.ReasonCode, note string) (*domain.Submission, error) {
	if len(reasons) == 0 && note == "" {
		return nil, apperrors.ErrEmptyReasonSetf(submissionID)
	}
	for _, r := range reasons {
		if !r.Valid() {
			return nil, apperrors.BadRequest(apperrors.CodeValidationFailed, "unknown reason code "+string(r))
		}
	}

	mu := g.lock(submissionID)
	mu.Lock()
	defer mu.Unlock()

	sub, err := g.reg.Get(ctx, submissionID)
	if err != nil {
		return nil, err
	}
	if sub.Status != domain.StatusPending {
		return nil, apperrors.ErrInvalidTransitionf(submissionID, string(sub.Status))
	}

	at := g.now()
	sub.Status = domain.StatusRejected
	sub.ReviewedAt = &at
	sub.ReviewedBy = reviewerID
	sub.DecisionReasons = append([]domain.ReasonCode(nil), reasons...)
	sub.FreeformNote = note

	updated, err := g.reg.Update(ctx, sub)
	if err != nil {
		return nil, err
	}

	g.afterDecision(ctx, updated, domain.DecisionEvent{
		SubmissionID: updated.ID,
		PeriodID:     updated.PeriodID,
		Outcome:      domain.OutcomeRejected,
		ReviewerID:   reviewerID,
		Reasons:      updated.DecisionReasons,
		ReviewCycle:  updated.ReviewCycle,
		OccurredAt:   at,
	})
	return updated, nil
}

// Reopen returns a decided submission to PENDING for another review cycle.
// The displaced decision is preserved in the archive, never destroyed.
func (g *Gateway) Reopen(ctx context.Context, submissionID, reviewerID string) (*domain.Submission, error) {
	mu := g.lock(submissionID)
	mu.Lock()
	defer mu.Unlock()

	sub, err := g.reg.Get(ctx, submissionID)
	if err != nil {
		return nil, err
	}
	if sub.Status != domain.StatusApproved && sub.Status != domain.StatusRejected {
		return nil, apperrors.ErrInvalidTransitionf(submissionID, string(sub.Status))
	}

	at := g.now()
	archived := domain.ArchivedDecision{
		SubmissionID: sub.ID,
		ReviewCycle:  sub.ReviewCycle,
		Outcome:      sub.Status,
		ReviewedBy:   sub.ReviewedBy,
		Reasons:      append([]domain.ReasonCode(nil), sub.DecisionReasons...),
		FreeformNote: sub.FreeformNote,
		ArchivedAt:   at,
	}
	if sub.ReviewedAt != nil {
		archived.ReviewedAt = *sub.ReviewedAt
	}
	if err := g.reg.AppendDecisionArchive(ctx, archived); err != nil {
		return nil, err
	}

	sub.Status = domain.StatusPending
	sub.ReviewedAt = nil
	sub.ReviewedBy = ""
	sub.DecisionReasons = nil
	sub.FreeformNote = ""
	sub.ReviewCycle++

	updated, err := g.reg.Update(ctx, sub)
	if err != nil {
		return nil, err
	}

	g.afterDecision(ctx, updated, domain.DecisionEvent{
		SubmissionID: updated.ID,
		PeriodID:     updated.PeriodID,
		Outcome:      domain.OutcomeReopened,
		ReviewerID:   reviewerID,
		ReviewCycle:  updated.ReviewCycle,
		OccurredAt:   at,
	})
	return updated, nil
}

// afterDecision runs the post-commit pipeline. The decision is already
// durable at this point; downstream failures are logged, never unwound,
// and the poll backstop repairs any missed signal.
func (g *Gateway) afterDecision(ctx context.Context, sub *domain.Submission, ev domain.DecisionEvent) {
	logger.Info("moderation decision",
		zap.String("submission_id", ev.SubmissionID),
		zap.String("period_id", ev.PeriodID),
		zap.String("outcome", string(ev.Outcome)),
		zap.String("reviewer_id", ev.ReviewerID),
		zap.Int("review_cycle", ev.ReviewCycle))

	if g.projector != nil {
		g.projector.Invalidate(ev.PeriodID)
	}

	target := notification.SubmissionTarget(sub)
	if g.notifier != nil {
		if _, err := g.notifier.OnDecision(ctx, ev, target); err != nil {
			logger.Error("notification dispatch failed",
				zap.String("submission_id", ev.SubmissionID),
				zap.Error(err))
		}
	}

	if g.refresher != nil {
		g.refresher.Kick(refresh.TopicSubmissions, ev.PeriodID, "")
		g.refresher.Kick(refresh.TopicCounts, ev.PeriodID, "")
		g.refresher.Kick(refresh.TopicNotifications, ev.PeriodID, target.Scope)
	}
}
