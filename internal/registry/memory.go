package registry

import (
	"context"
	"sort"
	"sync"

	"memoria.io/portal/internal/domain"
	apperrors "memoria.io/portal/internal/pkg/errors"
)

// MemoryRegistry is a mutex-guarded in-memory Registry. It mirrors the
// data service's compare-and-set contract exactly so tests exercise the
// same conflict behavior the HTTP client surfaces.
type MemoryRegistry struct {
	mu          sync.RWMutex
	submissions map[string]*domain.Submission
	archives    map[string][]domain.ArchivedDecision
}

// NewMemoryRegistry creates an empty in-memory registry.
func NewMemoryRegistry() *MemoryRegistry {
	return &MemoryRegistry{
		submissions: make(map[string]*domain.Submission),
		archives:    make(map[string][]domain.ArchivedDecision),
	}
}

// List returns copies of submissions in the period, ordered by submission time.
func (r *MemoryRegistry) List(_ context.Context, periodID string, filter Filter) ([]*domain.Submission, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	var out []*domain.Submission
	for _, sub := range r.submissions {
		if sub.PeriodID != periodID {
			continue
		}
		if filter.Status != nil && sub.Status != *filter.Status {
			continue
		}
		out = append(out, copySubmission(sub))
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].SubmittedAt.Equal(out[j].SubmittedAt) {
			return out[i].ID < out[j].ID
		}
		return out[i].SubmittedAt.Before(out[j].SubmittedAt)
	})
	return out, nil
}

// Get returns a copy of one submission.
func (r *MemoryRegistry) Get(_ context.Context, submissionID string) (*domain.Submission, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	sub, ok := r.submissions[submissionID]
	if !ok {
		return nil, apperrors.ErrSubmissionNotFoundf(submissionID)
	}
	return copySubmission(sub), nil
}

// Create stores a new submission at version 1.
func (r *MemoryRegistry) Create(_ context.Context, sub *domain.Submission) error {
	if err := sub.Validate(); err != nil {
		return apperrors.Wrap(err, apperrors.CodeValidationFailed, "invalid submission", 400)
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.submissions[sub.ID]; exists {
		return apperrors.Conflict(apperrors.CodeSubmissionConflict, "submission already exists")
	}
	stored := copySubmission(sub)
	stored.Version = 1
	r.submissions[sub.ID] = stored
	sub.Version = 1
	return nil
}

// Update applies a compare-and-set write keyed on sub.Version.
func (r *MemoryRegistry) Update(_ context.Context, sub *domain.Submission) (*domain.Submission, error) {
	if err := sub.Validate(); err != nil {
		return nil, apperrors.Wrap(err, apperrors.CodeValidationFailed, "invalid submission", 400)
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	current, ok := r.submissions[sub.ID]
	if !ok {
		return nil, apperrors.ErrSubmissionNotFoundf(sub.ID)
	}
	if current.Version != sub.Version {
		return nil, apperrors.Conflict(apperrors.CodeSubmissionConflict,
			"submission was modified by another writer")
	}

	stored := copySubmission(sub)
	stored.Version = current.Version + 1
	r.submissions[sub.ID] = stored
	return copySubmission(stored), nil
}

// AppendDecisionArchive preserves a prior decision.
func (r *MemoryRegistry) AppendDecisionArchive(_ context.Context, archived domain.ArchivedDecision) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.archives[archived.SubmissionID] = append(r.archives[archived.SubmissionID], archived)
	return nil
}

// ListDecisionArchive returns archived decisions, oldest first.
func (r *MemoryRegistry) ListDecisionArchive(_ context.Context, submissionID string) ([]domain.ArchivedDecision, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	archive := r.archives[submissionID]
	out := make([]domain.ArchivedDecision, len(archive))
	copy(out, archive)
	return out, nil
}

// ActivePeriods returns the distinct period ids holding submissions.
func (r *MemoryRegistry) ActivePeriods(_ context.Context) ([]string, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	seen := make(map[string]struct{})
	var out []string
	for _, sub := range r.submissions {
		if _, ok := seen[sub.PeriodID]; !ok {
			seen[sub.PeriodID] = struct{}{}
			out = append(out, sub.PeriodID)
		}
	}
	sort.Strings(out)
	return out, nil
}

// compile-time check
var _ Registry = (*MemoryRegistry)(nil)

func copySubmission(sub *domain.Submission) *domain.Submission {
	out := *sub
	if sub.ReviewedAt != nil {
		t := *sub.ReviewedAt
		out.ReviewedAt = &t
	}
	if len(sub.DecisionReasons) > 0 {
		out.DecisionReasons = append([]domain.ReasonCode(nil), sub.DecisionReasons...)
	}
	out.Subject = copySubject(sub.Subject)
	return &out
}

func copySubject(s domain.Subject) domain.Subject {
	out := s
	if s.Student != nil {
		v := *s.Student
		out.Student = &v
	}
	if s.Faculty != nil {
		v := *s.Faculty
		v.Subjects = append([]string(nil), s.Faculty.Subjects...)
		out.Faculty = &v
	}
	if s.Alumni != nil {
		v := *s.Alumni
		out.Alumni = &v
	}
	if s.Staff != nil {
		v := *s.Staff
		out.Staff = &v
	}
	if s.Utility != nil {
		v := *s.Utility
		out.Utility = &v
	}
	return out
}
