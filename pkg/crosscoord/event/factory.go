package event

import (
	crosserrors "github.com/suitecore/crosscoord/pkg/crosscoord/errors"
	"github.com/suitecore/crosscoord/pkg/crosscoord/registry"
)

// Well-known event types built by the default Factory.
const (
	TypeUserCreated          = "user.created"
	TypeProjectCreated       = "project.created"
	TypeLeadCreated          = "lead.created"
	TypeEmailCampaignCreated = "email_campaign.created"
	TypePostPublished        = "post.published"
)

// Constructor builds a DomainEvent from a raw payload. The factory has
// already normalized missing fields before the constructor runs.
type Constructor func(payload map[string]any, opts ...Option) *DomainEvent

// Factory builds DomainEvents for registered types. Unknown types are
// rejected rather than passed through, so publishers cannot invent event
// names the rest of the system has never heard of.
type Factory struct {
	constructors *registry.Registry[string, Constructor]
}

// NewFactory returns a Factory with the well-known event types registered.
func NewFactory() *Factory {
	f := &Factory{
		constructors: registry.New[string, Constructor](),
	}
	f.constructors.RegisterMany(map[string]Constructor{
		TypeUserCreated:          newUserCreated,
		TypeProjectCreated:       newProjectCreated,
		TypeLeadCreated:          newLeadCreated,
		TypeEmailCampaignCreated: newEmailCampaignCreated,
		TypePostPublished:        newPostPublished,
	})
	return f
}

// RegisterType adds or replaces a constructor for an event type.
// Registering an existing type overwrites the previous constructor.
func (f *Factory) RegisterType(eventType string, ctor Constructor) {
	f.constructors.Register(eventType, ctor)
}

// SupportedTypes returns the registered event type names.
func (f *Factory) SupportedTypes() []string {
	return f.constructors.Keys()
}

// Supports reports whether the factory can build the given event type.
func (f *Factory) Supports(eventType string) bool {
	return f.constructors.Has(eventType)
}

// Create builds a DomainEvent of the given type from a raw payload.
// Returns UnsupportedEventTypeError for unregistered types.
func (f *Factory) Create(eventType string, payload map[string]any, opts ...Option) (*DomainEvent, error) {
	ctor, ok := f.constructors.Get(eventType)
	if !ok {
		return nil, &crosserrors.UnsupportedEventTypeError{EventType: eventType}
	}
	return ctor(payload, opts...), nil
}

// The built-in constructors normalize payload fields so downstream
// listeners can rely on the keys existing even when publishers omit them.

func newUserCreated(payload map[string]any, opts ...Option) *DomainEvent {
	return New(TypeUserCreated, map[string]any{
		"user_id":    intField(payload, "user_id"),
		"user_name":  stringField(payload, "user_name"),
		"user_email": stringField(payload, "user_email"),
	}, opts...)
}

func newProjectCreated(payload map[string]any, opts ...Option) *DomainEvent {
	return New(TypeProjectCreated, map[string]any{
		"project_id":   intField(payload, "project_id"),
		"project_name": stringField(payload, "project_name"),
		"project_type": payload["project_type"],
	}, opts...)
}

func newLeadCreated(payload map[string]any, opts ...Option) *DomainEvent {
	return New(TypeLeadCreated, map[string]any{
		"lead_id":     intField(payload, "lead_id"),
		"lead_name":   stringField(payload, "lead_name"),
		"lead_email":  stringField(payload, "lead_email"),
		"lead_source": payload["lead_source"],
	}, opts...)
}

func newEmailCampaignCreated(payload map[string]any, opts ...Option) *DomainEvent {
	return New(TypeEmailCampaignCreated, map[string]any{
		"campaign_id":   intField(payload, "campaign_id"),
		"campaign_name": stringField(payload, "campaign_name"),
		"campaign_type": payload["campaign_type"],
	}, opts...)
}

func newPostPublished(payload map[string]any, opts ...Option) *DomainEvent {
	return New(TypePostPublished, map[string]any{
		"post_id":         intField(payload, "post_id"),
		"post_content":    stringField(payload, "post_content"),
		"post_type":       payload["post_type"],
		"social_accounts": payload["social_accounts"],
	}, opts...)
}

// intField extracts an integer payload field, tolerating the float64
// values JSON decoding produces. Missing or mistyped fields become 0.
func intField(payload map[string]any, key string) int64 {
	switch v := payload[key].(type) {
	case int64:
		return v
	case int:
		return int64(v)
	case float64:
		return int64(v)
	default:
		return 0
	}
}

func stringField(payload map[string]any, key string) string {
	if s, ok := payload[key].(string); ok {
		return s
	}
	return ""
}
