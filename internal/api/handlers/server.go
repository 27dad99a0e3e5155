// Package handlers implements the HTTP surface of the moderation service.
// Handlers bind and validate input, delegate to the moderation core, and
// push failures to the centralized error handler via c.Error.
package handlers

import (
	"github.com/gin-gonic/gin"

	"memoria.io/portal/internal/api/middleware"
	"memoria.io/portal/internal/counts"
	"memoria.io/portal/internal/moderation"
	"memoria.io/portal/internal/notification"
	"memoria.io/portal/internal/pkg/worker"
	"memoria.io/portal/internal/refresh"
	"memoria.io/portal/internal/registry"
	"memoria.io/portal/internal/taxonomy"
)

// Server holds all handler dependencies.
type Server struct {
	registry    registry.Registry
	gateway     *moderation.Gateway
	projector   *counts.Projector
	store       notification.Store
	dispatcher  *notification.Dispatcher
	taxonomies  *taxonomy.Cache
	broadcaster *refresh.Broadcaster
	pools       *worker.Pools
	jwtCfg      middleware.JWTConfig
}

// ServerDeps holds all dependencies for creating a Server. Manual DI.
type ServerDeps struct {
	Registry    registry.Registry
	Gateway     *moderation.Gateway
	Projector   *counts.Projector
	Store       notification.Store
	Dispatcher  *notification.Dispatcher
	Taxonomies  *taxonomy.Cache
	Broadcaster *refresh.Broadcaster
	Pools       *worker.Pools
	JWTCfg      middleware.JWTConfig
}

// NewServer creates a new Server with all dependencies.
func NewServer(deps ServerDeps) *Server {
	return &Server{
		registry:    deps.Registry,
		gateway:     deps.Gateway,
		projector:   deps.Projector,
		store:       deps.Store,
		dispatcher:  deps.Dispatcher,
		taxonomies:  deps.Taxonomies,
		broadcaster: deps.Broadcaster,
		pools:       deps.Pools,
		jwtCfg:      deps.JWTCfg,
	}
}

// reviewerFromCtx extracts the authenticated reviewer ID. Decisions always
// attribute to the token identity, never to a body field.
func reviewerFromCtx(c *gin.Context) string {
	if rid := middleware.GetReviewerID(c.Request.Context()); rid != "" {
		return rid
	}
	return c.GetString("reviewer_id")
}
