// Package event provides the cross-module event dispatch core.
//
// Modules publish DomainEvents instead of calling each other directly:
//   - DomainEvent is an immutable record of something that happened
//   - Factory builds well-known event types with normalized payloads
//   - Dispatcher queues events and delivers them to listeners in FIFO order
//   - Journal optionally records dispatched events for inspection
//
// Events are decoupling primitives: a publisher never learns who, if
// anyone, consumed its event.
package event

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"
)

// DomainEvent is an immutable record of a business occurrence.
// All accessors that return maps return copies so no caller can mutate
// an event after creation.
type DomainEvent struct {
	id         string
	eventType  string
	payload    map[string]any
	userID     int64
	projectID  int64
	metadata   map[string]any
	occurredAt time.Time
}

// Option configures event creation.
type Option func(*eventConfig)

type eventConfig struct {
	id         string
	userID     int64
	projectID  int64
	metadata   map[string]any
	occurredAt time.Time
}

// WithEventID sets a specific event ID (default: auto-generated UUID).
func WithEventID(id string) Option {
	return func(cfg *eventConfig) {
		cfg.id = id
	}
}

// WithUserID attributes the event to a user.
func WithUserID(id int64) Option {
	return func(cfg *eventConfig) {
		cfg.userID = id
	}
}

// WithProjectID scopes the event to a project.
func WithProjectID(id int64) Option {
	return func(cfg *eventConfig) {
		cfg.projectID = id
	}
}

// WithMetadata attaches auxiliary context (source module, request ID).
func WithMetadata(metadata map[string]any) Option {
	return func(cfg *eventConfig) {
		cfg.metadata = metadata
	}
}

// WithOccurredAt sets a specific occurrence time (default: time.Now()).
func WithOccurredAt(t time.Time) Option {
	return func(cfg *eventConfig) {
		cfg.occurredAt = t
	}
}

// New creates a DomainEvent of the given type. The payload map is copied
// so later mutations by the caller do not leak into the event.
func New(eventType string, payload map[string]any, opts ...Option) *DomainEvent {
	cfg := &eventConfig{
		id:         uuid.New().String(),
		occurredAt: time.Now().UTC(),
	}
	for _, opt := range opts {
		opt(cfg)
	}

	return &DomainEvent{
		id:         cfg.id,
		eventType:  eventType,
		payload:    copyMap(payload),
		userID:     cfg.userID,
		projectID:  cfg.projectID,
		metadata:   copyMap(cfg.metadata),
		occurredAt: cfg.occurredAt,
	}
}

// ID returns the unique event identifier.
func (e *DomainEvent) ID() string {
	return e.id
}

// Type returns the event type, e.g. "lead.created".
func (e *DomainEvent) Type() string {
	return e.eventType
}

// Payload returns a copy of the event payload.
func (e *DomainEvent) Payload() map[string]any {
	return copyMap(e.payload)
}

// UserID returns the acting user, or 0 when not attributed.
func (e *DomainEvent) UserID() int64 {
	return e.userID
}

// ProjectID returns the owning project, or 0 when not scoped.
func (e *DomainEvent) ProjectID() int64 {
	return e.projectID
}

// Metadata returns a copy of the auxiliary context map.
func (e *DomainEvent) Metadata() map[string]any {
	return copyMap(e.metadata)
}

// OccurredAt returns when the event happened.
func (e *DomainEvent) OccurredAt() time.Time {
	return e.occurredAt
}

// eventJSON is the wire shape of a DomainEvent.
type eventJSON struct {
	ID         string         `json:"event_id"`
	Type       string         `json:"event_type"`
	Payload    map[string]any `json:"payload"`
	UserID     int64          `json:"user_id,omitempty"`
	ProjectID  int64          `json:"project_id,omitempty"`
	Metadata   map[string]any `json:"metadata,omitempty"`
	OccurredAt time.Time      `json:"occurred_at"`
}

// MarshalJSON implements json.Marshaler.
func (e *DomainEvent) MarshalJSON() ([]byte, error) {
	return json.Marshal(eventJSON{
		ID:         e.id,
		Type:       e.eventType,
		Payload:    e.payload,
		UserID:     e.userID,
		ProjectID:  e.projectID,
		Metadata:   e.metadata,
		OccurredAt: e.occurredAt,
	})
}

// UnmarshalJSON implements json.Unmarshaler.
func (e *DomainEvent) UnmarshalJSON(data []byte) error {
	var wire eventJSON
	if err := json.Unmarshal(data, &wire); err != nil {
		return err
	}
	e.id = wire.ID
	e.eventType = wire.Type
	e.payload = wire.Payload
	e.userID = wire.UserID
	e.projectID = wire.ProjectID
	e.metadata = wire.Metadata
	e.occurredAt = wire.OccurredAt
	return nil
}

func copyMap(m map[string]any) map[string]any {
	if m == nil {
		return map[string]any{}
	}
	out := make(map[string]any, len(m))
	for k, v := range m {
		out[k] = v
	}
	return out
}
