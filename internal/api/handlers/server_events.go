package handlers

import (
	"io"
	"time"

	"github.com/gin-gonic/gin"

	apperrors "memoria.io/portal/internal/pkg/errors"
	"memoria.io/portal/internal/refresh"
)

const heartbeatInterval = 25 * time.Second

// StreamEvents handles GET /events: a server-sent-event stream of change
// signals. Events carry only the topic and addressing; the client re-fetches
// through the regular endpoints. Missing an event is safe because the poll
// backstop republishes within one interval.
func (s *Server) StreamEvents(c *gin.Context) {
	var topics []refresh.Topic
	for _, raw := range c.QueryArray("topic") {
		switch t := refresh.Topic(raw); t {
		case refresh.TopicSubmissions, refresh.TopicCounts, refresh.TopicNotifications:
			topics = append(topics, t)
		default:
			_ = c.Error(apperrors.BadRequest(apperrors.CodeValidationFailed,
				"unknown topic "+raw))
			return
		}
	}

	sub := s.broadcaster.Subscribe(topics...)
	defer s.broadcaster.Unsubscribe(sub)

	c.Writer.Header().Set("Content-Type", "text/event-stream")
	c.Writer.Header().Set("Cache-Control", "no-cache")
	c.Writer.Header().Set("Connection", "keep-alive")
	c.Writer.Flush()

	heartbeat := time.NewTicker(heartbeatInterval)
	defer heartbeat.Stop()

	ctx := c.Request.Context()
	c.Stream(func(w io.Writer) bool {
		select {
		case <-ctx.Done():
			return false
		case sig, ok := <-sub.C:
			if !ok {
				return false
			}
			c.SSEvent("change", sig)
			return true
		case <-heartbeat.C:
			c.SSEvent("heartbeat", time.Now().UTC().Format(time.RFC3339))
			return true
		}
	})
}
