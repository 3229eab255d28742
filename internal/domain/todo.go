package domain

import (
	"strings"
	"time"
)

const MaxTitleLength = 200

// Priority is an advisory tag; the store does not enforce it.
type Priority string

const (
	PriorityLow    Priority = "low"
	PriorityMedium Priority = "medium"
	PriorityHigh   Priority = "high"
)

func (p Priority) Valid() bool {
	switch p {
	case PriorityLow, PriorityMedium, PriorityHigh:
		return true
	}
	return false
}

// Lifecycle is either Active or Deleted at a point in time.
type Lifecycle struct {
	deletedAt *time.Time
}

func LifecycleActive() Lifecycle { return Lifecycle{} }

func LifecycleDeleted(at time.Time) Lifecycle {
	at = at.UTC()
	return Lifecycle{deletedAt: &at}
}

// LifecycleFrom maps a nullable deletion timestamp to a lifecycle.
func LifecycleFrom(deletedAt *time.Time) Lifecycle {
	if deletedAt == nil {
		return LifecycleActive()
	}
	return LifecycleDeleted(*deletedAt)
}

func (l Lifecycle) IsDeleted() bool { return l.deletedAt != nil }

// DeletedAt returns nil for an active todo.
func (l Lifecycle) DeletedAt() *time.Time {
	if l.deletedAt == nil {
		return nil
	}
	t := *l.deletedAt
	return &t
}

func (l Lifecycle) String() string {
	if l.IsDeleted() {
		return "deleted"
	}
	return "active"
}

type Todo struct {
	ID        int64
	Title     string
	Completed bool
	CreatedAt time.Time
	DueAt     *time.Time
	Priority  *Priority
	Lifecycle Lifecycle
}

// IsOverdue reports whether the todo has a deadline strictly before now.
func (t Todo) IsOverdue(now time.Time) bool {
	return t.DueAt != nil && t.DueAt.Before(now)
}

// NormalizeTitle trims the title and reports whether it is acceptable.
func NormalizeTitle(title string) (string, bool) {
	title = strings.TrimSpace(title)
	if title == "" || len([]rune(title)) > MaxTitleLength {
		return title, false
	}
	return title, true
}
