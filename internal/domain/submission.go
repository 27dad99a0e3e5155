// Package domain defines the moderation core's data model: submissions,
// subject roles, decision reasons, and the events a decision emits.
package domain

import (
	"fmt"
	"time"
)

// Status is the review state of a submission.
type Status string

const (
	StatusPending  Status = "PENDING"
	StatusApproved Status = "APPROVED"
	StatusRejected Status = "REJECTED"
)

// Valid reports whether s is a known status value.
func (s Status) Valid() bool {
	switch s {
	case StatusPending, StatusApproved, StatusRejected:
		return true
	}
	return false
}

// Submission is one person's profile awaiting or having received a
// moderation decision. Submissions are always partitioned by review period.
type Submission struct {
	ID       string `json:"id"`
	PeriodID string `json:"period_id"`

	Subject Subject `json:"subject"`

	Status      Status     `json:"status"`
	ReviewCycle int        `json:"review_cycle"`
	SubmittedAt time.Time  `json:"submitted_at"`
	ReviewedAt  *time.Time `json:"reviewed_at,omitempty"`
	ReviewedBy  string     `json:"reviewed_by,omitempty"`

	// DecisionReasons is ordered and empty unless Status is REJECTED.
	DecisionReasons []ReasonCode `json:"decision_reasons,omitempty"`
	FreeformNote    string       `json:"freeform_note,omitempty"`

	// Version is a compare-and-set token owned by the registry. Concurrent
	// decisions on the same submission race on it; exactly one write wins.
	Version int64 `json:"version"`
}

// Validate enforces the submission invariants:
//   - PENDING implies reviewed_at, reviewed_by, and decision_reasons unset;
//   - REJECTED implies a non-empty reason list or a non-empty note.
func (s *Submission) Validate() error {
	if s.ID == "" {
		return fmt.Errorf("submission id is required")
	}
	if s.PeriodID == "" {
		return fmt.Errorf("submission %s: period id is required", s.ID)
	}
	if !s.Status.Valid() {
		return fmt.Errorf("submission %s: unknown status %q", s.ID, s.Status)
	}
	if err := s.Subject.Validate(); err != nil {
		return fmt.Errorf("submission %s: %w", s.ID, err)
	}

	switch s.Status {
	case StatusPending:
		if s.ReviewedAt != nil || s.ReviewedBy != "" || len(s.DecisionReasons) > 0 {
			return fmt.Errorf("submission %s: pending submission carries review fields", s.ID)
		}
	case StatusRejected:
		if len(s.DecisionReasons) == 0 && s.FreeformNote == "" {
			return fmt.Errorf("submission %s: rejection requires reasons or a note", s.ID)
		}
		fallthrough
	case StatusApproved:
		if s.ReviewedAt == nil || s.ReviewedBy == "" {
			return fmt.Errorf("submission %s: decided submission is missing reviewer fields", s.ID)
		}
	}
	return nil
}

// ArchivedDecision is a prior decision preserved by Reopen. The current
// decision fields on the submission are reset; history is append-only.
type ArchivedDecision struct {
	SubmissionID string       `json:"submission_id"`
	ReviewCycle  int          `json:"review_cycle"`
	Outcome      Status       `json:"outcome"`
	ReviewedAt   time.Time    `json:"reviewed_at"`
	ReviewedBy   string       `json:"reviewed_by"`
	Reasons      []ReasonCode `json:"reasons,omitempty"`
	FreeformNote string       `json:"freeform_note,omitempty"`
	ArchivedAt   time.Time    `json:"archived_at"`
}

// CountSnapshot is a cached per-period aggregate, recomputed on invalidate.
// No caller may patch a snapshot incrementally.
type CountSnapshot struct {
	PeriodID      string    `json:"period_id"`
	PendingCount  int       `json:"pending_count"`
	ApprovedCount int       `json:"approved_count"`
	RejectedCount int       `json:"rejected_count"`
	ComputedAt    time.Time `json:"computed_at"`
}

// Total returns the number of submissions covered by the snapshot.
func (c CountSnapshot) Total() int {
	return c.PendingCount + c.ApprovedCount + c.RejectedCount
}
