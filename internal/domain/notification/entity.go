// Package notification defines user notifications and the user-configurable
// rules that boost their priority.
package notification

import (
	"time"

	"github.com/google/uuid"

	"github.com/1128026Go/Arconte-sub000/pkg/errors"
)

// Priority bounds.  Every computed priority is clamped into this range.
const (
	PriorityMin = 0
	PriorityMax = 10
)

// DefaultHighPriorityThreshold is the cutoff used by high-priority counts
// when the caller does not supply one.
const DefaultHighPriorityThreshold = 7

// DefaultRetentionDays is how long read notifications are kept before the
// retention sweep removes them.  Unread notifications are never purged.
const DefaultRetentionDays = 90

// Notification is one alert delivered to a case owner.  It is created unread;
// marking it read is what makes it eligible for the retention sweep.
type Notification struct {
	ID       string         `json:"id"`
	OwnerID  string         `json:"owner_id"`
	CaseID   *string        `json:"case_id,omitempty"`
	Type     string         `json:"type"`
	Priority int            `json:"priority"`
	Title    string         `json:"title"`
	Message  string         `json:"message"`
	Metadata map[string]any `json:"metadata,omitempty"`
	ReadAt   *time.Time     `json:"read_at,omitempty"`
	SentAt   *time.Time     `json:"sent_at,omitempty"`

	CreatedAt time.Time `json:"created_at"`
}

// New constructs an unread Notification with a clamped priority.
func New(ownerID string, caseID *string, typ, title, message string, priority int, metadata map[string]any) (*Notification, error) {
	if ownerID == "" {
		return nil, errors.NewValidation("owner id cannot be empty")
	}
	if typ == "" {
		return nil, errors.NewValidation("notification type cannot be empty")
	}
	return &Notification{
		ID:        uuid.NewString(),
		OwnerID:   ownerID,
		CaseID:    caseID,
		Type:      typ,
		Priority:  ClampPriority(priority),
		Title:     title,
		Message:   message,
		Metadata:  metadata,
		CreatedAt: time.Now().UTC(),
	}, nil
}

// IsRead reports whether the notification has been read.
func (n *Notification) IsRead() bool {
	return n.ReadAt != nil
}

// MarkRead stamps the notification read at the given time.
func (n *Notification) MarkRead(at time.Time) {
	t := at.UTC()
	n.ReadAt = &t
}

// ClampPriority forces p into [PriorityMin, PriorityMax].
func ClampPriority(p int) int {
	if p < PriorityMin {
		return PriorityMin
	}
	if p > PriorityMax {
		return PriorityMax
	}
	return p
}
