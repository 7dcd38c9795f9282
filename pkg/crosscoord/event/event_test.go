package event_test

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/suitecore/crosscoord/pkg/crosscoord/event"
)

func TestEventCreation(t *testing.T) {
	evt := event.New("lead.created", map[string]any{
		"lead_id":   int64(42),
		"lead_name": "Jordan",
	},
		event.WithUserID(7),
		event.WithProjectID(3),
		event.WithMetadata(map[string]any{"source": "crm"}),
	)

	if evt.ID() == "" {
		t.Error("expected auto-generated event ID")
	}
	if evt.Type() != "lead.created" {
		t.Errorf("expected type lead.created, got %s", evt.Type())
	}
	if evt.UserID() != 7 {
		t.Errorf("expected user ID 7, got %d", evt.UserID())
	}
	if evt.ProjectID() != 3 {
		t.Errorf("expected project ID 3, got %d", evt.ProjectID())
	}
	if evt.Payload()["lead_name"] != "Jordan" {
		t.Errorf("unexpected payload: %v", evt.Payload())
	}
	if evt.Metadata()["source"] != "crm" {
		t.Errorf("unexpected metadata: %v", evt.Metadata())
	}
	if evt.OccurredAt().IsZero() {
		t.Error("expected occurred_at to be set")
	}
}

func TestEventImmutability(t *testing.T) {
	payload := map[string]any{"key": "original"}
	evt := event.New("user.created", payload)

	// Mutating the source map must not affect the event
	payload["key"] = "mutated"
	if evt.Payload()["key"] != "original" {
		t.Error("event payload changed when source map was mutated")
	}

	// Mutating the returned copy must not affect the event
	copy1 := evt.Payload()
	copy1["key"] = "mutated again"
	if evt.Payload()["key"] != "original" {
		t.Error("event payload changed when returned copy was mutated")
	}

	meta := evt.Metadata()
	meta["injected"] = true
	if _, ok := evt.Metadata()["injected"]; ok {
		t.Error("event metadata changed when returned copy was mutated")
	}
}

func TestEventOptions(t *testing.T) {
	at := time.Date(2026, 3, 15, 10, 0, 0, 0, time.UTC)
	evt := event.New("project.created", nil,
		event.WithEventID("fixed-id"),
		event.WithOccurredAt(at),
	)

	if evt.ID() != "fixed-id" {
		t.Errorf("expected fixed-id, got %s", evt.ID())
	}
	if !evt.OccurredAt().Equal(at) {
		t.Errorf("expected %v, got %v", at, evt.OccurredAt())
	}
}

func TestEventUniqueIDs(t *testing.T) {
	a := event.New("user.created", nil)
	b := event.New("user.created", nil)
	if a.ID() == b.ID() {
		t.Error("expected distinct event IDs")
	}
}

func TestEventJSONRoundTrip(t *testing.T) {
	evt := event.New("post.published", map[string]any{"post_id": float64(9)},
		event.WithUserID(1),
		event.WithProjectID(2),
	)

	data, err := json.Marshal(evt)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}

	var decoded event.DomainEvent
	if err := json.Unmarshal(data, &decoded); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}

	if decoded.ID() != evt.ID() {
		t.Errorf("expected ID %s, got %s", evt.ID(), decoded.ID())
	}
	if decoded.Type() != "post.published" {
		t.Errorf("unexpected type: %s", decoded.Type())
	}
	if decoded.UserID() != 1 || decoded.ProjectID() != 2 {
		t.Errorf("identity fields lost: user=%d project=%d", decoded.UserID(), decoded.ProjectID())
	}
	if decoded.Payload()["post_id"] != float64(9) {
		t.Errorf("unexpected payload: %v", decoded.Payload())
	}
}
