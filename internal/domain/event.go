package domain

import (
	"encoding/json"
	"time"
)

// Outcome names the result of a moderation decision.
type Outcome string

const (
	OutcomeApproved Outcome = "APPROVED"
	OutcomeRejected Outcome = "REJECTED"
	OutcomeReopened Outcome = "REOPENED"
)

// DecisionEvent is emitted exactly once per successful state-machine
// transition. Consumers (count projector, notification dispatcher, refresh
// coordinator) re-fetch through the registry; the event never carries the
// changed submission itself.
type DecisionEvent struct {
	SubmissionID string       `json:"submission_id"`
	PeriodID     string       `json:"period_id"`
	Outcome      Outcome      `json:"outcome"`
	ReviewerID   string       `json:"reviewer_id,omitempty"`
	Reasons      []ReasonCode `json:"reasons,omitempty"`
	ReviewCycle  int          `json:"review_cycle"`
	OccurredAt   time.Time    `json:"occurred_at"`
}

// ToJSON converts the event to JSON bytes.
func (e DecisionEvent) ToJSON() ([]byte, error) {
	return json.Marshal(e)
}

// RegistryEventKind names a registry change that is not a decision.
type RegistryEventKind string

const (
	RegistryEventSubmitted RegistryEventKind = "SUBMISSION_CREATED"
	RegistryEventUpdated   RegistryEventKind = "SUBMISSION_UPDATED"
)

// RegistryEvent is emitted when a submission is created or edited outside
// the decision path (e.g. a new profile enters the review queue).
type RegistryEvent struct {
	Kind         RegistryEventKind `json:"kind"`
	SubmissionID string            `json:"submission_id"`
	PeriodID     string            `json:"period_id"`
	SubjectName  string            `json:"subject_name,omitempty"`
	OccurredAt   time.Time         `json:"occurred_at"`
}

// ToJSON converts the event to JSON bytes.
func (e RegistryEvent) ToJSON() ([]byte, error) {
	return json.Marshal(e)
}
