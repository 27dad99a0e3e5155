package handlers

import (
	"net/http"
	"slices"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"

	"memoria.io/portal/internal/api/middleware"
	"memoria.io/portal/internal/domain"
	"memoria.io/portal/internal/notification"
	apperrors "memoria.io/portal/internal/pkg/errors"
)

// resolveScope returns the inbox scope the request may act on. With no
// scope parameter it is the caller's own reviewer inbox. Any reviewer may
// name a period-wide reviewer scope; every other scope, including
// submission owner inboxes, requires the admin role.
func (s *Server) resolveScope(c *gin.Context) (string, error) {
	rid := reviewerFromCtx(c)
	if rid == "" {
		return "", apperrors.Unauthorized("UNAUTHORIZED", "no authenticated viewer")
	}

	requested := c.Query("scope")
	switch {
	case requested == "" || requested == "reviewer:"+rid:
		return "reviewer:" + rid, nil
	case strings.HasPrefix(requested, "reviewers:"):
		return requested, nil
	}

	if slices.Contains(middleware.GetRoles(c.Request.Context()), "admin") {
		return requested, nil
	}
	return "", apperrors.New("FORBIDDEN",
		"scope "+requested+" is not accessible to this viewer", http.StatusForbidden)
}

// ListNotifications handles GET /notifications. The listing is always the
// caller's own inbox; there is no cross-scope read.
func (s *Server) ListNotifications(c *gin.Context) {
	scope, err := s.resolveScope(c)
	if err != nil {
		_ = c.Error(err)
		return
	}

	var filter notification.ListFilter
	if raw := c.Query("read"); raw != "" {
		read, err := strconv.ParseBool(raw)
		if err != nil {
			_ = c.Error(apperrors.BadRequest(apperrors.CodeValidationFailed, "invalid read filter"))
			return
		}
		filter.Read = &read
	}
	if raw := c.Query("priority"); raw != "" {
		p := domain.Priority(raw)
		if !p.Valid() {
			_ = c.Error(apperrors.BadRequest(apperrors.CodeValidationFailed, "unknown priority "+raw))
			return
		}
		filter.Priority = &p
	}
	if raw := c.Query("category"); raw != "" {
		cat := domain.Category(raw)
		if !cat.Valid() {
			_ = c.Error(apperrors.BadRequest(apperrors.CodeValidationFailed, "unknown category "+raw))
			return
		}
		filter.Category = &cat
	}
	if raw := c.Query("limit"); raw != "" {
		limit, err := strconv.Atoi(raw)
		if err != nil || limit < 0 {
			_ = c.Error(apperrors.BadRequest(apperrors.CodeValidationFailed, "invalid limit"))
			return
		}
		filter.Limit = limit
	}

	items, err := s.store.List(c.Request.Context(), scope, filter)
	if err != nil {
		_ = c.Error(err)
		return
	}
	if items == nil {
		items = []*domain.Notification{}
	}
	c.JSON(http.StatusOK, gin.H{"items": items, "total": len(items)})
}

// GetUnreadCount handles GET /notifications/unread-count.
func (s *Server) GetUnreadCount(c *gin.Context) {
	scope, err := s.resolveScope(c)
	if err != nil {
		_ = c.Error(err)
		return
	}

	count, err := s.store.CountUnread(c.Request.Context(), scope)
	if err != nil {
		_ = c.Error(err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"count": count})
}

// MarkNotificationRead handles POST /notifications/:id/read.
func (s *Server) MarkNotificationRead(c *gin.Context) {
	scope, err := s.resolveScope(c)
	if err != nil {
		_ = c.Error(err)
		return
	}

	if err := s.store.MarkRead(c.Request.Context(), scope, c.Param("id")); err != nil {
		_ = c.Error(err)
		return
	}
	c.Status(http.StatusNoContent)
}

// MarkAllNotificationsRead handles POST /notifications/read-all.
func (s *Server) MarkAllNotificationsRead(c *gin.Context) {
	scope, err := s.resolveScope(c)
	if err != nil {
		_ = c.Error(err)
		return
	}

	changed, err := s.store.MarkAllRead(c.Request.Context(), scope)
	if err != nil {
		_ = c.Error(err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"updated": changed})
}

// DeleteNotification handles DELETE /notifications/:id.
func (s *Server) DeleteNotification(c *gin.Context) {
	scope, err := s.resolveScope(c)
	if err != nil {
		_ = c.Error(err)
		return
	}

	if err := s.store.Delete(c.Request.Context(), scope, c.Param("id")); err != nil {
		_ = c.Error(err)
		return
	}
	c.Status(http.StatusNoContent)
}

// DeleteAllNotifications handles DELETE /notifications.
func (s *Server) DeleteAllNotifications(c *gin.Context) {
	scope, err := s.resolveScope(c)
	if err != nil {
		_ = c.Error(err)
		return
	}

	removed, err := s.store.DeleteAll(c.Request.Context(), scope)
	if err != nil {
		_ = c.Error(err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"deleted": removed})
}

// PurgeAllNotifications handles DELETE /system/notifications, the global
// wipe, distinct from the scoped DeleteAll. Admin role required.
func (s *Server) PurgeAllNotifications(c *gin.Context) {
	roles := middleware.GetRoles(c.Request.Context())
	if !slices.Contains(roles, "admin") {
		_ = c.Error(apperrors.New("FORBIDDEN", "admin role required", http.StatusForbidden))
		return
	}

	removed, err := s.store.PurgeAllScopes(c.Request.Context())
	if err != nil {
		_ = c.Error(err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"deleted": removed})
}
