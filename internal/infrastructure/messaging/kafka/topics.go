// Package kafka publishes and consumes case-tracking events.
package kafka

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"

	"github.com/1128026Go/Arconte-sub000/internal/domain/caserecord"
)

// Topics.
const (
	TopicCaseChanged         = "case.changed"
	TopicNotificationCreated = "notification.created"
)

const schemaVersion = "1.0"

// eventSource identifies this service in envelopes.
const eventSource = "arconte-core"

// EventEnvelope is the wire form of every published event.
type EventEnvelope struct {
	EventID       string            `json:"event_id"`
	EventType     string            `json:"event_type"`
	Source        string            `json:"source"`
	Timestamp     time.Time         `json:"timestamp"`
	SchemaVersion string            `json:"schema_version"`
	Payload       json.RawMessage   `json:"payload"`
	Metadata      map[string]string `json:"metadata,omitempty"`
}

// NewEnvelope wraps a payload for publication.
func NewEnvelope(eventType string, payload any) (*EventEnvelope, error) {
	raw, err := json.Marshal(payload)
	if err != nil {
		return nil, err
	}
	return &EventEnvelope{
		EventID:       uuid.NewString(),
		EventType:     eventType,
		Source:        eventSource,
		Timestamp:     time.Now().UTC(),
		SchemaVersion: schemaVersion,
		Payload:       raw,
	}, nil
}

// CaseChangedPayload is the payload of TopicCaseChanged events.
type CaseChangedPayload struct {
	CaseID         string                `json:"case_id"`
	Radicado       string                `json:"radicado"`
	ChangeType     caserecord.ChangeType `json:"change_type"`
	ActType        string                `json:"act_type,omitempty"`
	ActDate        string                `json:"act_date,omitempty"`
	Detail         string                `json:"detail,omitempty"`
	Deadline       string                `json:"deadline,omitempty"`
	Classification string                `json:"classification,omitempty"`
	Extra          map[string]any        `json:"extra,omitempty"`
	ObservedAt     time.Time             `json:"observed_at"`
}

// NotificationCreatedPayload is the payload of TopicNotificationCreated
// events.
type NotificationCreatedPayload struct {
	NotificationID string    `json:"notification_id"`
	OwnerID        string    `json:"owner_id"`
	CaseID         string    `json:"case_id,omitempty"`
	Priority       int       `json:"priority"`
	Title          string    `json:"title"`
	CreatedAt      time.Time `json:"created_at"`
}
