package registry

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"

	"go.uber.org/zap"

	"memoria.io/portal/internal/domain"
	apperrors "memoria.io/portal/internal/pkg/errors"
	"memoria.io/portal/internal/pkg/logger"
)

// HTTPRegistry is the Registry client of the external data service.
// Transport failures surface as UPSTREAM_UNAVAILABLE; the refresh
// coordinator's poll cycle absorbs them, callers never retry inline.
type HTTPRegistry struct {
	baseURL string
	client  *http.Client
}

// NewHTTPRegistry creates a registry client for the data service at baseURL.
func NewHTTPRegistry(baseURL string, timeout time.Duration) *HTTPRegistry {
	return &HTTPRegistry{
		baseURL: baseURL,
		client:  &http.Client{Timeout: timeout},
	}
}

// List fetches GET /submissions?periodId=&status=.
func (r *HTTPRegistry) List(ctx context.Context, periodID string, filter Filter) ([]*domain.Submission, error) {
	q := url.Values{}
	q.Set("periodId", periodID)
	if filter.Status != nil {
		q.Set("status", string(*filter.Status))
	}

	var out []*domain.Submission
	if err := r.do(ctx, http.MethodGet, "/submissions?"+q.Encode(), nil, &out); err != nil {
		return nil, err
	}
	return out, nil
}

// Get fetches GET /submissions/{id}.
func (r *HTTPRegistry) Get(ctx context.Context, submissionID string) (*domain.Submission, error) {
	var out domain.Submission
	if err := r.do(ctx, http.MethodGet, "/submissions/"+url.PathEscape(submissionID), nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// Create posts POST /submissions.
func (r *HTTPRegistry) Create(ctx context.Context, sub *domain.Submission) error {
	return r.do(ctx, http.MethodPost, "/submissions", sub, sub)
}

// Update puts PUT /submissions/{id} with If-Match semantics on Version.
func (r *HTTPRegistry) Update(ctx context.Context, sub *domain.Submission) (*domain.Submission, error) {
	var out domain.Submission
	if err := r.do(ctx, http.MethodPut, "/submissions/"+url.PathEscape(sub.ID), sub, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// AppendDecisionArchive posts POST /submissions/{id}/archive.
func (r *HTTPRegistry) AppendDecisionArchive(ctx context.Context, archived domain.ArchivedDecision) error {
	path := "/submissions/" + url.PathEscape(archived.SubmissionID) + "/archive"
	return r.do(ctx, http.MethodPost, path, archived, nil)
}

// ListDecisionArchive fetches GET /submissions/{id}/archive.
func (r *HTTPRegistry) ListDecisionArchive(ctx context.Context, submissionID string) ([]domain.ArchivedDecision, error) {
	var out []domain.ArchivedDecision
	path := "/submissions/" + url.PathEscape(submissionID) + "/archive"
	if err := r.do(ctx, http.MethodGet, path, nil, &out); err != nil {
		return nil, err
	}
	return out, nil
}

// ActivePeriods fetches GET /periods?active=true.
func (r *HTTPRegistry) ActivePeriods(ctx context.Context) ([]string, error) {
	var out []string
	if err := r.do(ctx, http.MethodGet, "/periods?active=true", nil, &out); err != nil {
		return nil, err
	}
	return out, nil
}

// compile-time check
var _ Registry = (*HTTPRegistry)(nil)

// do executes one request against the data service and decodes the response.
func (r *HTTPRegistry) do(ctx context.Context, method, path string, body, result interface{}) error {
	var reqBody io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("marshal %s %s body: %w", method, path, err)
		}
		reqBody = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, r.baseURL+path, reqBody)
	if err != nil {
		return fmt.Errorf("build %s %s: %w", method, path, err)
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := r.client.Do(req)
	if err != nil {
		return apperrors.ErrUpstreamUnavailablef(method+" "+path, err)
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode == http.StatusNotFound:
		return apperrors.NotFound(apperrors.CodeSubmissionNotFound, "submission not found")
	case resp.StatusCode == http.StatusConflict:
		return apperrors.Conflict(apperrors.CodeSubmissionConflict,
			"submission was modified by another writer")
	case resp.StatusCode >= 500:
		return apperrors.ErrUpstreamUnavailablef(method+" "+path,
			fmt.Errorf("data service returned %d", resp.StatusCode))
	case resp.StatusCode >= 400:
		return r.decodeError(resp, method, path)
	}

	if result == nil {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(result); err != nil {
		return fmt.Errorf("decode %s %s response: %w", method, path, err)
	}
	return nil
}

// decodeError maps a structured upstream error body onto an AppError.
func (r *HTTPRegistry) decodeError(resp *http.Response, method, path string) error {
	var payload struct {
		Code    string `json:"code"`
		Message string `json:"message"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil || payload.Code == "" {
		logger.Warn("unstructured error from data service",
			zap.String("method", method),
			zap.String("path", path),
			zap.Int("status", resp.StatusCode),
		)
		return apperrors.New(apperrors.CodeValidationFailed,
			fmt.Sprintf("data service rejected %s %s", method, path), resp.StatusCode)
	}
	return apperrors.New(payload.Code, payload.Message, resp.StatusCode)
}
