package domain

import "time"

// Category classifies a notification for filtering and badge grouping.
type Category string

const (
	CategoryProfile    Category = "PROFILE"
	CategoryAlbum      Category = "ALBUM"
	CategorySystem     Category = "SYSTEM"
	CategoryModeration Category = "MODERATION"
	CategoryUser       Category = "USER"
	CategoryGeneral    Category = "GENERAL"
)

// Valid reports whether c is a known category.
func (c Category) Valid() bool {
	switch c {
	case CategoryProfile, CategoryAlbum, CategorySystem,
		CategoryModeration, CategoryUser, CategoryGeneral:
		return true
	}
	return false
}

// Priority orders notifications for badge rendering.
type Priority string

const (
	PriorityLow    Priority = "LOW"
	PriorityMedium Priority = "MEDIUM"
	PriorityHigh   Priority = "HIGH"
	PriorityUrgent Priority = "URGENT"
)

// Rank returns a comparable ordering value; higher is more urgent.
func (p Priority) Rank() int {
	switch p {
	case PriorityUrgent:
		return 3
	case PriorityHigh:
		return 2
	case PriorityMedium:
		return 1
	default:
		return 0
	}
}

// Valid reports whether p is a known priority.
func (p Priority) Valid() bool {
	switch p {
	case PriorityLow, PriorityMedium, PriorityHigh, PriorityUrgent:
		return true
	}
	return false
}

// Notification is an addressed event record. Scope identifies the owning
// viewer; bulk operations are always scoped, never global by default.
type Notification struct {
	ID       string `json:"id"`
	PeriodID string `json:"period_id"`
	Scope    string `json:"scope"`

	Category Category `json:"category"`
	Priority Priority `json:"priority"`
	Read     bool     `json:"read"`

	// SubjectRef links back to the submission or other entity that caused
	// the notification; consumers re-fetch through the authoritative path.
	SubjectRef string `json:"subject_ref"`

	RenderedTitle string     `json:"rendered_title"`
	RenderedBody  string     `json:"rendered_body"`
	CreatedAt     time.Time  `json:"created_at"`
	ReadAt        *time.Time `json:"read_at,omitempty"`
}
