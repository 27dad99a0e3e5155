package notification

import (
	"context"
	"sort"
	"sync"
	"time"

	"memoria.io/portal/internal/domain"
	apperrors "memoria.io/portal/internal/pkg/errors"
)

// MemoryStore is a mutex-guarded in-memory Store for tests and for
// deployments running without Postgres.
type MemoryStore struct {
	mu      sync.RWMutex
	records map[string]*domain.Notification
	now     func() time.Time
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		records: make(map[string]*domain.Notification),
		now:     time.Now,
	}
}

func (s *MemoryStore) Insert(_ context.Context, n *domain.Notification) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	stored := *n
	s.records[n.ID] = &stored
	return nil
}

func (s *MemoryStore) List(_ context.Context, scope string, filter ListFilter) ([]*domain.Notification, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var out []*domain.Notification
	for _, n := range s.records {
		if n.Scope != scope {
			continue
		}
		if filter.Read != nil && n.Read != *filter.Read {
			continue
		}
		if filter.Priority != nil && n.Priority != *filter.Priority {
			continue
		}
		if filter.Category != nil && n.Category != *filter.Category {
			continue
		}
		copied := *n
		out = append(out, &copied)
	}

	sort.Slice(out, func(i, j int) bool {
		if !out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].CreatedAt.After(out[j].CreatedAt)
		}
		if out[i].Priority.Rank() != out[j].Priority.Rank() {
			return out[i].Priority.Rank() > out[j].Priority.Rank()
		}
		return out[i].ID < out[j].ID
	})

	if filter.Limit > 0 && len(out) > filter.Limit {
		out = out[:filter.Limit]
	}
	return out, nil
}

func (s *MemoryStore) MarkRead(_ context.Context, scope, notificationID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	n, ok := s.records[notificationID]
	if !ok || n.Scope != scope {
		return apperrors.ErrNotificationNotFoundf(notificationID)
	}
	if !n.Read {
		n.Read = true
		at := s.now()
		n.ReadAt = &at
	}
	return nil
}

func (s *MemoryStore) MarkAllRead(_ context.Context, scope string) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var changed int64
	at := s.now()
	for _, n := range s.records {
		if n.Scope != scope || n.Read {
			continue
		}
		n.Read = true
		readAt := at
		n.ReadAt = &readAt
		changed++
	}
	return changed, nil
}

func (s *MemoryStore) Delete(_ context.Context, scope, notificationID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	n, ok := s.records[notificationID]
	if !ok || n.Scope != scope {
		return apperrors.ErrNotificationNotFoundf(notificationID)
	}
	delete(s.records, notificationID)
	return nil
}

func (s *MemoryStore) DeleteAll(_ context.Context, scope string) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var removed int64
	for id, n := range s.records {
		if n.Scope != scope {
			continue
		}
		delete(s.records, id)
		removed++
	}
	return removed, nil
}

func (s *MemoryStore) CountUnread(_ context.Context, scope string) (int64, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var count int64
	for _, n := range s.records {
		if n.Scope == scope && !n.Read {
			count++
		}
	}
	return count, nil
}

func (s *MemoryStore) PurgeOlderThan(_ context.Context, cutoff time.Time) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var purged int64
	for id, n := range s.records {
		if n.Read && n.CreatedAt.Before(cutoff) {
			delete(s.records, id)
			purged++
		}
	}
	return purged, nil
}

func (s *MemoryStore) PurgeAllScopes(_ context.Context) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	removed := int64(len(s.records))
	s.records = make(map[string]*domain.Notification)
	return removed, nil
}

var _ Store = (*MemoryStore)(nil)
