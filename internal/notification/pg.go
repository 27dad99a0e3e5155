package notification

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"memoria.io/portal/internal/domain"
	apperrors "memoria.io/portal/internal/pkg/errors"
)

// PGStore is the Postgres-backed Store used in real deployments. The
// schema is created by infrastructure.AutoMigrate.
type PGStore struct {
	pool *pgxpool.Pool
}

func NewPGStore(pool *pgxpool.Pool) *PGStore {
	return &PGStore{pool: pool}
}

const insertSQL = `
INSERT INTO notifications
	(id, period_id, scope, category, priority, read, subject_ref,
	 rendered_title, rendered_body, created_at, read_at)
VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)`

func (s *PGStore) Insert(ctx context.Context, n *domain.Notification) error {
	_, err := s.pool.Exec(ctx, insertSQL,
		n.ID, n.PeriodID, n.Scope, string(n.Category), string(n.Priority),
		n.Read, n.SubjectRef, n.RenderedTitle, n.RenderedBody, n.CreatedAt, n.ReadAt)
	if err != nil {
		return apperrors.ErrUpstreamUnavailablef("notification insert", err)
	}
	return nil
}

func (s *PGStore) List(ctx context.Context, scope string, filter ListFilter) ([]*domain.Notification, error) {
	query := `
SELECT id, period_id, scope, category, priority, read, subject_ref,
	rendered_title, rendered_body, created_at, read_at
FROM notifications
WHERE scope = $1`
	args := []interface{}{scope}

	if filter.Read != nil {
		args = append(args, *filter.Read)
		query += fmt.Sprintf(" AND read = $%d", len(args))
	}
	if filter.Priority != nil {
		args = append(args, string(*filter.Priority))
		query += fmt.Sprintf(" AND priority = $%d", len(args))
	}
	if filter.Category != nil {
		args = append(args, string(*filter.Category))
		query += fmt.Sprintf(" AND category = $%d", len(args))
	}

	query += `
ORDER BY created_at DESC,
	CASE priority
		WHEN 'URGENT' THEN 3 WHEN 'HIGH' THEN 2 WHEN 'MEDIUM' THEN 1 ELSE 0
	END DESC, id`

	if filter.Limit > 0 {
		args = append(args, filter.Limit)
		query += fmt.Sprintf(" LIMIT $%d", len(args))
	}

	rows, err := s.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, apperrors.ErrUpstreamUnavailablef("notification list", err)
	}
	defer rows.Close()

	var out []*domain.Notification
	for rows.Next() {
		var n domain.Notification
		var category, priority string
		if err := rows.Scan(&n.ID, &n.PeriodID, &n.Scope, &category, &priority,
			&n.Read, &n.SubjectRef, &n.RenderedTitle, &n.RenderedBody,
			&n.CreatedAt, &n.ReadAt); err != nil {
			return nil, apperrors.ErrUpstreamUnavailablef("notification scan", err)
		}
		n.Category = domain.Category(category)
		n.Priority = domain.Priority(priority)
		out = append(out, &n)
	}
	if err := rows.Err(); err != nil {
		return nil, apperrors.ErrUpstreamUnavailablef("notification list", err)
	}
	return out, nil
}

func (s *PGStore) MarkRead(ctx context.Context, scope, notificationID string) error {
	tag, err := s.pool.Exec(ctx, `
UPDATE notifications SET read = TRUE, read_at = NOW()
WHERE id = $1 AND scope = $2 AND read = FALSE`, notificationID, scope)
	if err != nil {
		return apperrors.ErrUpstreamUnavailablef("notification mark read", err)
	}
	if tag.RowsAffected() == 0 {
		// Distinguish "already read" (no-op) from "not yours / not there".
		var exists bool
		err := s.pool.QueryRow(ctx,
			`SELECT TRUE FROM notifications WHERE id = $1 AND scope = $2`,
			notificationID, scope).Scan(&exists)
		if errors.Is(err, pgx.ErrNoRows) {
			return apperrors.ErrNotificationNotFoundf(notificationID)
		}
		if err != nil {
			return apperrors.ErrUpstreamUnavailablef("notification mark read", err)
		}
	}
	return nil
}

func (s *PGStore) MarkAllRead(ctx context.Context, scope string) (int64, error) {
	tag, err := s.pool.Exec(ctx, `
UPDATE notifications SET read = TRUE, read_at = NOW()
WHERE scope = $1 AND read = FALSE`, scope)
	if err != nil {
		return 0, apperrors.ErrUpstreamUnavailablef("notification mark all read", err)
	}
	return tag.RowsAffected(), nil
}

func (s *PGStore) Delete(ctx context.Context, scope, notificationID string) error {
	tag, err := s.pool.Exec(ctx,
		`DELETE FROM notifications WHERE id = $1 AND scope = $2`, notificationID, scope)
	if err != nil {
		return apperrors.ErrUpstreamUnavailablef("notification delete", err)
	}
	if tag.RowsAffected() == 0 {
		return apperrors.ErrNotificationNotFoundf(notificationID)
	}
	return nil
}

func (s *PGStore) DeleteAll(ctx context.Context, scope string) (int64, error) {
	tag, err := s.pool.Exec(ctx, `DELETE FROM notifications WHERE scope = $1`, scope)
	if err != nil {
		return 0, apperrors.ErrUpstreamUnavailablef("notification delete all", err)
	}
	return tag.RowsAffected(), nil
}

func (s *PGStore) CountUnread(ctx context.Context, scope string) (int64, error) {
	var count int64
	err := s.pool.QueryRow(ctx,
		`SELECT COUNT(*) FROM notifications WHERE scope = $1 AND read = FALSE`,
		scope).Scan(&count)
	if err != nil {
		return 0, apperrors.ErrUpstreamUnavailablef("notification count", err)
	}
	return count, nil
}

func (s *PGStore) PurgeOlderThan(ctx context.Context, cutoff time.Time) (int64, error) {
	tag, err := s.pool.Exec(ctx,
		`DELETE FROM notifications WHERE read = TRUE AND created_at < $1`, cutoff)
	if err != nil {
		return 0, apperrors.ErrUpstreamUnavailablef("notification purge", err)
	}
	return tag.RowsAffected(), nil
}

func (s *PGStore) PurgeAllScopes(ctx context.Context) (int64, error) {
	tag, err := s.pool.Exec(ctx, `DELETE FROM notifications`)
	if err != nil {
		return 0, apperrors.ErrUpstreamUnavailablef("notification purge", err)
	}
	return tag.RowsAffected(), nil
}

var _ Store = (*PGStore)(nil)
