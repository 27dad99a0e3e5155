package app

import (
	"strings"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"

	"memoria.io/portal/internal/api/handlers"
	"memoria.io/portal/internal/api/middleware"
	"memoria.io/portal/internal/pkg/logger"
)

// Public routes that do NOT require JWT authentication.
var publicPrefixes = []string{
	"/api/v1/auth/token",
	"/api/v1/health/",
}

func newRouter(server *handlers.Server, signingKey []byte) *gin.Engine {
	router := gin.New()
	router.Use(gin.Recovery(), middleware.RequestID(), middleware.ErrorHandler())
	router.Use(cors.New(cors.Config{
		AllowOrigins:     []string{"*"},
		AllowMethods:     []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowHeaders:     []string{"Authorization", "Content-Type", middleware.RequestIDHeader},
		ExposeHeaders:    []string{middleware.RequestIDHeader},
		MaxAge:           12 * time.Hour,
		AllowCredentials: false,
	}))
	router.Use(jwtSkipPublic(signingKey))

	api := router.Group("/api/v1")
	{
		api.POST("/auth/token", server.IssueToken)

		api.GET("/health/live", server.GetLiveness)
		api.GET("/health/ready", server.GetReadiness)
		api.GET("/system/workers", server.GetWorkerMetrics)
		api.DELETE("/system/notifications", server.PurgeAllNotifications)
		api.PUT("/system/log-level", gin.WrapH(logger.LevelHandler()))
		api.GET("/system/log-level", gin.WrapH(logger.LevelHandler()))

		api.GET("/periods/:periodId/submissions", server.ListSubmissions)
		api.GET("/periods/:periodId/counts", server.GetCounts)
		api.GET("/periods/:periodId/taxonomy", server.GetTaxonomyOptions)
		api.POST("/periods/:periodId/taxonomy/resolve", server.ResolveSelection)

		api.GET("/submissions/:id", server.GetSubmission)
		api.GET("/submissions/:id/archive", server.GetDecisionArchive)
		api.POST("/submissions/:id/approve", server.ApproveSubmission)
		api.POST("/submissions/:id/reject", server.RejectSubmission)
		api.POST("/submissions/:id/reopen", server.ReopenSubmission)
		api.GET("/reason-codes", server.ListReasonCodes)

		api.GET("/notifications", server.ListNotifications)
		api.GET("/notifications/unread-count", server.GetUnreadCount)
		api.POST("/notifications/read-all", server.MarkAllNotificationsRead)
		api.POST("/notifications/:id/read", server.MarkNotificationRead)
		api.DELETE("/notifications/:id", server.DeleteNotification)
		api.DELETE("/notifications", server.DeleteAllNotifications)

		api.POST("/registry-events", server.IngestRegistryEvent)

		api.GET("/events", server.StreamEvents)
	}

	return router
}

// jwtSkipPublic returns middleware that applies JWT auth only on non-public routes.
func jwtSkipPublic(signingKey []byte) gin.HandlerFunc {
	jwtMw := middleware.JWTAuth(signingKey)
	return func(c *gin.Context) {
		for _, prefix := range publicPrefixes {
			if strings.HasPrefix(c.Request.URL.Path, prefix) {
				c.Next()
				return
			}
		}
		jwtMw(c)
	}
}
