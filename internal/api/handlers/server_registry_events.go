package handlers

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"memoria.io/portal/internal/domain"
	"memoria.io/portal/internal/notification"
	apperrors "memoria.io/portal/internal/pkg/errors"
	"memoria.io/portal/internal/refresh"
)

type registryEventRequest struct {
	Kind         string `json:"kind" binding:"required"`
	SubmissionID string `json:"submission_id" binding:"required"`
	PeriodID     string `json:"period_id" binding:"required"`
	SubjectName  string `json:"subject_name"`
}

// IngestRegistryEvent handles POST /registry-events. The data service calls
// this when a submission is created or edited outside the decision path, so
// reviewer queues and counts update without waiting for the next poll.
func (s *Server) IngestRegistryEvent(c *gin.Context) {
	var req registryEventRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		_ = c.Error(apperrors.BadRequest(apperrors.CodeValidationFailed, "invalid request body"))
		return
	}

	kind := domain.RegistryEventKind(req.Kind)
	switch kind {
	case domain.RegistryEventSubmitted, domain.RegistryEventUpdated:
	default:
		_ = c.Error(apperrors.BadRequest(apperrors.CodeValidationFailed,
			"unknown event kind "+req.Kind))
		return
	}

	ev := domain.RegistryEvent{
		Kind:         kind,
		SubmissionID: req.SubmissionID,
		PeriodID:     req.PeriodID,
		SubjectName:  req.SubjectName,
		OccurredAt:   time.Now(),
	}

	// Review queue announcements land in the period-wide reviewer scope.
	scope := notification.ReviewerScope(req.PeriodID)
	if _, err := s.dispatcher.OnRegistryEvent(c.Request.Context(), ev, scope); err != nil {
		_ = c.Error(err)
		return
	}

	s.projector.Invalidate(req.PeriodID)
	s.broadcaster.Publish(refresh.Signal{Topic: refresh.TopicSubmissions, PeriodID: req.PeriodID})
	s.broadcaster.Publish(refresh.Signal{Topic: refresh.TopicCounts, PeriodID: req.PeriodID})
	s.broadcaster.Publish(refresh.Signal{Topic: refresh.TopicNotifications, PeriodID: req.PeriodID, Scope: scope})

	c.Status(http.StatusAccepted)
}
