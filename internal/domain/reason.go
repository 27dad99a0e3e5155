package domain

import "fmt"

// ReasonCode is a closed enumeration of rejection causes. A decision may
// carry several codes plus one optional free-text elaboration; "empty
// reason" validation is exhaustive rather than a truthiness check.
type ReasonCode string

const (
	ReasonIncompleteInformation ReasonCode = "INCOMPLETE_INFORMATION"
	ReasonInappropriateContent  ReasonCode = "INAPPROPRIATE_CONTENT"
	ReasonDuplicateSubmission   ReasonCode = "DUPLICATE_SUBMISSION"
	ReasonInvalidFormat         ReasonCode = "INVALID_FORMAT"
	ReasonMissingRequiredFields ReasonCode = "MISSING_REQUIRED_FIELDS"
)

// ReasonCodes lists every valid code, in display order.
var ReasonCodes = []ReasonCode{
	ReasonIncompleteInformation,
	ReasonInappropriateContent,
	ReasonDuplicateSubmission,
	ReasonInvalidFormat,
	ReasonMissingRequiredFields,
}

// Valid reports whether c is a known reason code.
func (c ReasonCode) Valid() bool {
	switch c {
	case ReasonIncompleteInformation, ReasonInappropriateContent,
		ReasonDuplicateSubmission, ReasonInvalidFormat, ReasonMissingRequiredFields:
		return true
	}
	return false
}

// ParseReasonCode converts a wire string into a ReasonCode.
func ParseReasonCode(s string) (ReasonCode, error) {
	c := ReasonCode(s)
	if !c.Valid() {
		return "", fmt.Errorf("unknown reason code %q", s)
	}
	return c, nil
}

// ParseReasonCodes converts a wire string list, rejecting unknown entries.
func ParseReasonCodes(raw []string) ([]ReasonCode, error) {
	if len(raw) == 0 {
		return nil, nil
	}
	codes := make([]ReasonCode, 0, len(raw))
	for _, s := range raw {
		c, err := ParseReasonCode(s)
		if err != nil {
			return nil, err
		}
		codes = append(codes, c)
	}
	return codes, nil
}

// Severity grades a reason for notification priority derivation.
// InappropriateContent is the only urgent-tier cause.
func (c ReasonCode) Severity() Priority {
	if c == ReasonInappropriateContent {
		return PriorityUrgent
	}
	return PriorityMedium
}

// MaxSeverity returns the highest severity among the given codes, or
// PriorityMedium when the list is empty (note-only rejections).
func MaxSeverity(codes []ReasonCode) Priority {
	max := PriorityMedium
	for _, c := range codes {
		if c.Severity().Rank() > max.Rank() {
			max = c.Severity()
		}
	}
	return max
}
