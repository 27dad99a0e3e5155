package notification

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"memoria.io/portal/internal/domain"
	"memoria.io/portal/internal/pkg/logger"
)

// Target addresses a notification: the inbox scope it lands in and the
// display name used when rendering.
type Target struct {
	Scope       string
	SubjectName string
}

// SubmissionTarget derives the inbox target for a submission's owner.
func SubmissionTarget(sub *domain.Submission) Target {
	return Target{
		Scope:       "subject:" + sub.ID,
		SubjectName: sub.Subject.DisplayName(),
	}
}

// ReviewerScope is the shared inbox scope of a period's review team.
func ReviewerScope(periodID string) string {
	return "reviewers:" + periodID
}

// Dispatcher maps decision and registry events onto inbox records via a
// fixed rule table. Category and priority are derived here, never chosen
// by the caller.
type Dispatcher struct {
	store Store
	now   func() time.Time
}

func NewDispatcher(store Store) *Dispatcher {
	return &Dispatcher{store: store, now: time.Now}
}

// OnDecision persists the notification for one decision event. Rejections
// inherit their priority from the most severe reason code; a note-only
// rejection stays at medium.
func (d *Dispatcher) OnDecision(ctx context.Context, ev domain.DecisionEvent, target Target) (*domain.Notification, error) {
	n := &domain.Notification{
		ID:         uuid.Must(uuid.NewV7()).String(),
		PeriodID:   ev.PeriodID,
		Scope:      target.Scope,
		SubjectRef: ev.SubmissionID,
		CreatedAt:  d.now(),
	}

	switch ev.Outcome {
	case domain.OutcomeApproved:
		n.Category = domain.CategoryProfile
		n.Priority = domain.PriorityMedium
		n.RenderedTitle = "Submission approved"
		n.RenderedBody = fmt.Sprintf("The submission for %s has been approved.", target.SubjectName)

	case domain.OutcomeRejected:
		n.Category = domain.CategoryModeration
		n.Priority = domain.MaxSeverity(ev.Reasons)
		n.RenderedTitle = "Submission rejected"
		n.RenderedBody = rejectionBody(target.SubjectName, ev.Reasons)

	case domain.OutcomeReopened:
		n.Category = domain.CategoryModeration
		n.Priority = domain.PriorityLow
		n.RenderedTitle = "Submission reopened"
		n.RenderedBody = fmt.Sprintf("The submission for %s is back under review.", target.SubjectName)

	default:
		return nil, fmt.Errorf("unknown decision outcome %q", ev.Outcome)
	}

	if err := d.store.Insert(ctx, n); err != nil {
		return nil, err
	}

	logger.Info("notification dispatched",
		zap.String("notification_id", n.ID),
		zap.String("submission_id", ev.SubmissionID),
		zap.String("outcome", string(ev.Outcome)),
		zap.String("priority", string(n.Priority)))
	return n, nil
}

// OnRegistryEvent persists a low-priority general notification for a
// registry change outside the decision path.
func (d *Dispatcher) OnRegistryEvent(ctx context.Context, ev domain.RegistryEvent, scope string) (*domain.Notification, error) {
	n := &domain.Notification{
		ID:         uuid.Must(uuid.NewV7()).String(),
		PeriodID:   ev.PeriodID,
		Scope:      scope,
		Category:   domain.CategoryGeneral,
		Priority:   domain.PriorityLow,
		SubjectRef: ev.SubmissionID,
		CreatedAt:  d.now(),
	}

	switch ev.Kind {
	case domain.RegistryEventSubmitted:
		n.RenderedTitle = "New submission received"
		n.RenderedBody = fmt.Sprintf("A submission for %s entered the review queue.", ev.SubjectName)
	case domain.RegistryEventUpdated:
		n.RenderedTitle = "Submission updated"
		n.RenderedBody = fmt.Sprintf("The submission for %s was edited.", ev.SubjectName)
	default:
		return nil, fmt.Errorf("unknown registry event kind %q", ev.Kind)
	}

	if err := d.store.Insert(ctx, n); err != nil {
		return nil, err
	}
	return n, nil
}

var reasonText = map[domain.ReasonCode]string{
	domain.ReasonIncompleteInformation: "incomplete information",
	domain.ReasonInappropriateContent:  "inappropriate content",
	domain.ReasonDuplicateSubmission:   "duplicate submission",
	domain.ReasonInvalidFormat:         "invalid format",
	domain.ReasonMissingRequiredFields: "missing required fields",
}

func rejectionBody(subjectName string, reasons []domain.ReasonCode) string {
	if len(reasons) == 0 {
		return fmt.Sprintf("The submission for %s was rejected. See the reviewer's note for details.", subjectName)
	}
	parts := make([]string, 0, len(reasons))
	for _, r := range reasons {
		if text, ok := reasonText[r]; ok {
			parts = append(parts, text)
		} else {
			parts = append(parts, string(r))
		}
	}
	return fmt.Sprintf("The submission for %s was rejected: %s.", subjectName, strings.Join(parts, ", "))
}
