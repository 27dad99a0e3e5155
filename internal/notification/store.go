// Package notification turns moderation decisions into addressed inbox
// records and manages their lifecycle. Persistence failure here is a real
// error: a silently dropped notification is a missed rejection notice.
package notification

import (
	"context"
	"time"

	"memoria.io/portal/internal/domain"
)

// ListFilter narrows a scoped inbox listing. Nil fields match everything.
type ListFilter struct {
	Read     *bool
	Priority *domain.Priority
	Category *domain.Category
	Limit    int
}

// Store is the notification inbox. Every operation that touches existing
// records is keyed by scope: a viewer can only ever see or mutate their
// own inbox, and the bulk operations are scoped by construction.
type Store interface {
	// Insert persists a new notification.
	Insert(ctx context.Context, n *domain.Notification) error

	// List returns the scope's notifications, newest first, then by
	// priority rank within the same instant.
	List(ctx context.Context, scope string, filter ListFilter) ([]*domain.Notification, error)

	// MarkRead marks one notification read. Marking an already-read
	// notification is a no-op, not an error.
	MarkRead(ctx context.Context, scope, notificationID string) error

	// MarkAllRead marks every unread notification in the scope read and
	// returns how many changed.
	MarkAllRead(ctx context.Context, scope string) (int64, error)

	// Delete removes one notification from the scope.
	Delete(ctx context.Context, scope, notificationID string) error

	// DeleteAll clears the scope's inbox and returns how many were removed.
	DeleteAll(ctx context.Context, scope string) (int64, error)

	// CountUnread returns the scope's unread badge count.
	CountUnread(ctx context.Context, scope string) (int64, error)

	// PurgeOlderThan removes read notifications created before the cutoff,
	// across all scopes. Used by the retention job only.
	PurgeOlderThan(ctx context.Context, cutoff time.Time) (int64, error)

	// PurgeAllScopes wipes the entire inbox table. Admin-only; every
	// viewer-facing wipe goes through DeleteAll with a scope.
	PurgeAllScopes(ctx context.Context) (int64, error)
}
