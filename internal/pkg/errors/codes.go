package errors

import "net/http"

// Error code constants. Errors carry code + params; the frontend owns
// message translation, backend logs stay in English.

// Moderation error codes.
const (
	CodeInvalidTransition   = "INVALID_TRANSITION"
	CodeEmptyReasonSet      = "EMPTY_REASON_SET"
	CodeSubmissionNotFound  = "SUBMISSION_NOT_FOUND"
	CodeSubmissionConflict  = "SUBMISSION_VERSION_CONFLICT"
	CodeUnknownReviewPeriod = "REVIEW_PERIOD_NOT_FOUND"
)

// Notification error codes.
const (
	CodeNotificationNotFound = "NOTIFICATION_NOT_FOUND"
)

// Taxonomy error codes.
const (
	CodeTaxonomyNotLoaded = "TAXONOMY_NOT_LOADED"
)

// Transport/availability error codes.
const (
	CodeUpstreamUnavailable = "UPSTREAM_UNAVAILABLE"
)

// Validation error codes.
const (
	CodeValidationFailed = "VALIDATION_FAILED"
	CodeInvalidSubject   = "INVALID_SUBJECT_ROLE"
)

// Convenience constructors using predefined codes.

// ErrSubmissionNotFoundf creates a submission not found error.
func ErrSubmissionNotFoundf(submissionID string) *AppError {
	return (&AppError{
		Code:       CodeSubmissionNotFound,
		Message:    "submission not found",
		HTTPStatus: http.StatusNotFound,
		Err:        ErrNotFound,
	}).WithParams(map[string]interface{}{"submission_id": submissionID})
}

// ErrInvalidTransitionf creates an illegal state change error (409).
func ErrInvalidTransitionf(submissionID, current string) *AppError {
	return (&AppError{
		Code:       CodeInvalidTransition,
		Message:    "submission is not in a state that allows this decision",
		HTTPStatus: http.StatusConflict,
		Err:        ErrInvalidTransition,
	}).WithParams(map[string]interface{}{
		"submission_id": submissionID,
		"current":       current,
	})
}

// ErrEmptyReasonSetf creates a rejection validation error (400).
func ErrEmptyReasonSetf(submissionID string) *AppError {
	return (&AppError{
		Code:       CodeEmptyReasonSet,
		Message:    "a rejection requires at least one reason code or a note",
		HTTPStatus: http.StatusBadRequest,
		Err:        ErrEmptyReasonSet,
	}).WithParams(map[string]interface{}{"submission_id": submissionID})
}

// ErrTaxonomyNotLoadedf signals that no hierarchy is loaded for a period.
func ErrTaxonomyNotLoadedf(periodID string) *AppError {
	return (&AppError{
		Code:       CodeTaxonomyNotLoaded,
		Message:    "no taxonomy loaded for this review period",
		HTTPStatus: http.StatusNotFound,
		Err:        ErrNotFound,
	}).WithParams(map[string]interface{}{"period_id": periodID})
}

// ErrNotificationNotFoundf creates a notification not found error.
func ErrNotificationNotFoundf(notificationID string) *AppError {
	return (&AppError{
		Code:       CodeNotificationNotFound,
		Message:    "notification not found",
		HTTPStatus: http.StatusNotFound,
		Err:        ErrNotFound,
	}).WithParams(map[string]interface{}{"notification_id": notificationID})
}

// ErrUpstreamUnavailablef creates a 503 error for registry/store outages.
func ErrUpstreamUnavailablef(op string, cause error) *AppError {
	return &AppError{
		Code:       CodeUpstreamUnavailable,
		Message:    "the data service is unreachable",
		HTTPStatus: http.StatusServiceUnavailable,
		Err:        cause,
		Params:     map[string]interface{}{"op": op},
	}
}
