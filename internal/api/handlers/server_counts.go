package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
)

// GetCounts handles GET /periods/:periodId/counts. The snapshot is served
// from cache and recomputed lazily after invalidation.
func (s *Server) GetCounts(c *gin.Context) {
	snap, err := s.projector.Get(c.Request.Context(), c.Param("periodId"))
	if err != nil {
		_ = c.Error(err)
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"period_id":   snap.PeriodID,
		"pending":     snap.PendingCount,
		"approved":    snap.ApprovedCount,
		"rejected":    snap.RejectedCount,
		"total":       snap.Total(),
		"computed_at": snap.ComputedAt,
	})
}
