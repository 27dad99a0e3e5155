// Package registry provides access to the submission store. The store of
// record is the external data service; this package defines the contract
// the moderation core requires of it, an HTTP client speaking that
// contract, and an in-memory implementation for tests and dev mode.
package registry

import (
	"context"

	"memoria.io/portal/internal/domain"
)

// Filter narrows a submission listing.
type Filter struct {
	// Status limits results to one review state when non-nil.
	Status *domain.Status
}

// Registry is the submission accessor the moderation core depends on.
// Update is compare-and-set on the submission version: a stale write fails
// with a version-conflict error so concurrent decisions cannot both win.
type Registry interface {
	// List returns submissions for a review period, optionally filtered.
	List(ctx context.Context, periodID string, filter Filter) ([]*domain.Submission, error)

	// Get returns one submission by id.
	Get(ctx context.Context, submissionID string) (*domain.Submission, error)

	// Create registers a newly authored submission (status PENDING).
	Create(ctx context.Context, sub *domain.Submission) error

	// Update writes a modified submission if sub.Version still matches the
	// stored version, and returns the stored result with the new version.
	Update(ctx context.Context, sub *domain.Submission) (*domain.Submission, error)

	// AppendDecisionArchive preserves a prior decision during Reopen.
	AppendDecisionArchive(ctx context.Context, archived domain.ArchivedDecision) error

	// ListDecisionArchive returns the archived decisions of a submission,
	// oldest first.
	ListDecisionArchive(ctx context.Context, submissionID string) ([]domain.ArchivedDecision, error)

	// ActivePeriods returns the review periods that currently hold
	// submissions; used by the reconcile backstop.
	ActivePeriods(ctx context.Context) ([]string, error)
}
