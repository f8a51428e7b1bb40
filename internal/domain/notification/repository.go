package notification

import (
	"context"
	"time"
)

// Repository is the persistence contract for notifications.
type Repository interface {
	// Create persists a new notification.
	Create(ctx context.Context, n *Notification) error

	// UnreadCount returns how many of the owner's notifications are unread.
	UnreadCount(ctx context.Context, ownerID string) (int64, error)

	// HighPriorityCount returns how many of the owner's unread notifications
	// have priority >= threshold.
	HighPriorityCount(ctx context.Context, ownerID string, threshold int) (int64, error)

	// MarkAllRead stamps every unread notification of the owner as read at
	// the given time and returns how many rows were updated.
	MarkAllRead(ctx context.Context, ownerID string, at time.Time) (int64, error)

	// DeleteReadBefore removes notifications that are both read and created
	// before cutoff.  Unread notifications are never removed.
	DeleteReadBefore(ctx context.Context, cutoff time.Time) (int64, error)
}

// RuleRepository is the persistence contract for notification rules.
type RuleRepository interface {
	// Create persists a new rule.
	Create(ctx context.Context, r *Rule) error

	// ListEnabled returns the owner's enabled rules.
	ListEnabled(ctx context.Context, ownerID string) ([]Rule, error)
}
