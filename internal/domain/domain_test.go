package domain

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func studentSubject() Subject {
	return Subject{
		Role: RoleStudent,
		Student: &StudentProfile{
			FullName:   "Ana Reyes",
			Department: "college",
			Program:    "BSIT",
			YearLevel:  "4th Year",
			Section:    "A",
		},
	}
}

func TestSubmission_Validate_PendingInvariant(t *testing.T) {
	now := time.Now()
	sub := Submission{
		ID:          "sub-1",
		PeriodID:    "period-2026",
		Subject:     studentSubject(),
		Status:      StatusPending,
		SubmittedAt: now,
	}
	require.NoError(t, sub.Validate())

	// Pending must not carry review fields.
	sub.ReviewedBy = "admin-1"
	require.Error(t, sub.Validate())

	sub.ReviewedBy = ""
	sub.DecisionReasons = []ReasonCode{ReasonInvalidFormat}
	require.Error(t, sub.Validate())
}

func TestSubmission_Validate_RejectedRequiresReasonsOrNote(t *testing.T) {
	now := time.Now()
	sub := Submission{
		ID:          "sub-1",
		PeriodID:    "period-2026",
		Subject:     studentSubject(),
		Status:      StatusRejected,
		SubmittedAt: now,
		ReviewedAt:  &now,
		ReviewedBy:  "admin-1",
	}
	require.Error(t, sub.Validate(), "rejection without reasons or note must fail")

	sub.FreeformNote = "photo is cropped"
	require.NoError(t, sub.Validate())

	sub.FreeformNote = ""
	sub.DecisionReasons = []ReasonCode{ReasonIncompleteInformation}
	require.NoError(t, sub.Validate())
}

func TestSubject_Validate(t *testing.T) {
	tests := []struct {
		name    string
		subject Subject
		wantErr bool
	}{
		{"valid student", studentSubject(), false},
		{
			"valid faculty",
			Subject{Role: RoleFaculty, Faculty: &FacultyProfile{FullName: "Jose Cruz", Department: "college", Position: "Instructor"}},
			false,
		},
		{"unknown role", Subject{Role: Role("PET"), Student: &StudentProfile{}}, true},
		{"no payload", Subject{Role: RoleStudent}, true},
		{
			"two payloads",
			Subject{Role: RoleStudent, Student: &StudentProfile{}, Staff: &StaffProfile{}},
			true,
		},
		{
			"payload role mismatch",
			Subject{Role: RoleAlumni, Staff: &StaffProfile{FullName: "X"}},
			true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.subject.Validate()
			if tt.wantErr {
				require.Error(t, err)
			} else {
				require.NoError(t, err)
			}
		})
	}
}

func TestParseReasonCodes(t *testing.T) {
	codes, err := ParseReasonCodes([]string{"INCOMPLETE_INFORMATION", "INVALID_FORMAT"})
	require.NoError(t, err)
	require.Equal(t, []ReasonCode{ReasonIncompleteInformation, ReasonInvalidFormat}, codes)

	_, err = ParseReasonCodes([]string{"TOO_TALL"})
	require.Error(t, err)

	codes, err = ParseReasonCodes(nil)
	require.NoError(t, err)
	require.Nil(t, codes)
}

func TestMaxSeverity(t *testing.T) {
	require.Equal(t, PriorityMedium, MaxSeverity(nil))
	require.Equal(t, PriorityMedium, MaxSeverity([]ReasonCode{ReasonDuplicateSubmission}))
	require.Equal(t, PriorityUrgent, MaxSeverity([]ReasonCode{
		ReasonDuplicateSubmission,
		ReasonInappropriateContent,
	}))
}

func TestDecisionEvent_ToJSON(t *testing.T) {
	ts := time.Date(2026, 3, 9, 8, 30, 0, 0, time.UTC)
	event := DecisionEvent{
		SubmissionID: "sub-9",
		PeriodID:     "period-2026",
		Outcome:      OutcomeRejected,
		ReviewerID:   "admin-2",
		Reasons:      []ReasonCode{ReasonInappropriateContent},
		ReviewCycle:  2,
		OccurredAt:   ts,
	}

	data, err := event.ToJSON()
	require.NoError(t, err)

	var decoded DecisionEvent
	require.NoError(t, json.Unmarshal(data, &decoded))
	require.Equal(t, event, decoded)
}

func TestPriority_Rank(t *testing.T) {
	require.Greater(t, PriorityUrgent.Rank(), PriorityHigh.Rank())
	require.Greater(t, PriorityHigh.Rank(), PriorityMedium.Rank())
	require.Greater(t, PriorityMedium.Rank(), PriorityLow.Rank())
}
