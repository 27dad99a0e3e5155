package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
)

// GetLiveness handles GET /health/live, the liveness probe.
func (s *Server) GetLiveness(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

// GetReadiness handles GET /health/ready, the readiness probe. The upstream
// registry is checked with a cheap active-periods call.
func (s *Server) GetReadiness(c *gin.Context) {
	checks := make(map[string]string)
	allHealthy := true

	if _, err := s.registry.ActivePeriods(c.Request.Context()); err != nil {
		checks["registry"] = "error"
		allHealthy = false
	} else {
		checks["registry"] = "ok"
	}

	status := "ok"
	httpStatus := http.StatusOK
	if !allHealthy {
		status = "degraded"
		httpStatus = http.StatusServiceUnavailable
	}

	c.JSON(httpStatus, gin.H{
		"status": status,
		"checks": checks,
	})
}

// GetWorkerMetrics handles GET /system/workers, reporting pool utilization.
func (s *Server) GetWorkerMetrics(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"pools":             s.pools.Metrics(),
		"event_subscribers": s.broadcaster.SubscriberCount(),
		"dropped_signals":   s.broadcaster.Dropped(),
	})
}
