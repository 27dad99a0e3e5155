package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"memoria.io/portal/internal/api/middleware"
	apperrors "memoria.io/portal/internal/pkg/errors"
)

type tokenRequest struct {
	ReviewerID string   `json:"reviewer_id" binding:"required"`
	Username   string   `json:"username"`
	Roles      []string `json:"roles"`
}

// IssueToken handles POST /auth/token. Identity is established by the
// school portal in front of this service; this endpoint mints the service
// token its session exchange needs.
func (s *Server) IssueToken(c *gin.Context) {
	var req tokenRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		_ = c.Error(apperrors.BadRequest(apperrors.CodeValidationFailed, "reviewer_id is required"))
		return
	}

	token, expiresAt, err := middleware.GenerateToken(s.jwtCfg, req.ReviewerID, req.Username, req.Roles)
	if err != nil {
		_ = c.Error(apperrors.Internal("TOKEN_ISSUE_FAILED", "could not issue token"))
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"token":      token,
		"expires_at": expiresAt,
	})
}
