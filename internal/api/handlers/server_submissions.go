package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"memoria.io/portal/internal/domain"
	apperrors "memoria.io/portal/internal/pkg/errors"
	"memoria.io/portal/internal/registry"
)

// ListSubmissions handles GET /periods/:periodId/submissions.
func (s *Server) ListSubmissions(c *gin.Context) {
	periodID := c.Param("periodId")

	var filter registry.Filter
	if raw := c.Query("status"); raw != "" {
		status := domain.Status(raw)
		if !status.Valid() {
			_ = c.Error(apperrors.BadRequest(apperrors.CodeValidationFailed,
				"unknown status filter "+raw))
			return
		}
		filter.Status = &status
	}

	subs, err := s.registry.List(c.Request.Context(), periodID, filter)
	if err != nil {
		_ = c.Error(err)
		return
	}
	if subs == nil {
		subs = []*domain.Submission{}
	}
	c.JSON(http.StatusOK, gin.H{"items": subs, "total": len(subs)})
}

// GetSubmission handles GET /submissions/:id.
func (s *Server) GetSubmission(c *gin.Context) {
	sub, err := s.registry.Get(c.Request.Context(), c.Param("id"))
	if err != nil {
		_ = c.Error(err)
		return
	}
	c.JSON(http.StatusOK, sub)
}

// GetDecisionArchive handles GET /submissions/:id/archive.
func (s *Server) GetDecisionArchive(c *gin.Context) {
	id := c.Param("id")

	// 404 for unknown submissions rather than an empty archive.
	if _, err := s.registry.Get(c.Request.Context(), id); err != nil {
		_ = c.Error(err)
		return
	}

	archive, err := s.registry.ListDecisionArchive(c.Request.Context(), id)
	if err != nil {
		_ = c.Error(err)
		return
	}
	if archive == nil {
		archive = []domain.ArchivedDecision{}
	}
	c.JSON(http.StatusOK, gin.H{"items": archive})
}

// ApproveSubmission handles POST /submissions/:id/approve.
func (s *Server) ApproveSubmission(c *gin.Context) {
	updated, err := s.gateway.Approve(c.Request.Context(), c.Param("id"), reviewerFromCtx(c))
	if err != nil {
		_ = c.Error(err)
		return
	}
	c.JSON(http.StatusOK, updated)
}

type rejectRequest struct {
	Reasons []string `json:"reasons"`
	Note    string   `json:"note"`
}

// RejectSubmission handles POST /submissions/:id/reject.
func (s *Server) RejectSubmission(c *gin.Context) {
	var req rejectRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		_ = c.Error(apperrors.BadRequest(apperrors.CodeValidationFailed, "invalid request body"))
		return
	}

	reasons, err := domain.ParseReasonCodes(req.Reasons)
	if err != nil {
		_ = c.Error(apperrors.BadRequest(apperrors.CodeValidationFailed, err.Error()))
		return
	}

	updated, err := s.gateway.Reject(c.Request.Context(), c.Param("id"), reviewerFromCtx(c), reasons, req.Note)
	if err != nil {
		_ = c.Error(err)
		return
	}
	c.JSON(http.StatusOK, updated)
}

// ReopenSubmission handles POST /submissions/:id/reopen.
func (s *Server) ReopenSubmission(c *gin.Context) {
	updated, err := s.gateway.Reopen(c.Request.Context(), c.Param("id"), reviewerFromCtx(c))
	if err != nil {
		_ = c.Error(err)
		return
	}
	c.JSON(http.StatusOK, updated)
}

// ListReasonCodes handles GET /reason-codes. The closed enumeration the
// rejection form renders its choices from.
func (s *Server) ListReasonCodes(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"items": domain.ReasonCodes})
}
