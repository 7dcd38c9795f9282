package event_test

import (
	"context"
	"testing"

	"github.com/suitecore/crosscoord/pkg/crosscoord/event"
)

func newTestJournal(t *testing.T) *event.Journal {
	t.Helper()
	j, err := event.NewJournal(":memory:")
	if err != nil {
		t.Fatalf("open journal: %v", err)
	}
	t.Cleanup(func() { j.Close() })
	return j
}

func TestJournalAppendAndRecent(t *testing.T) {
	j := newTestJournal(t)
	ctx := context.Background()

	first := event.New("user.created", map[string]any{"user_id": int64(1)})
	second := event.New("lead.created", map[string]any{"lead_id": int64(2)})

	if err := j.Append(ctx, first); err != nil {
		t.Fatalf("append: %v", err)
	}
	if err := j.Append(ctx, second); err != nil {
		t.Fatalf("append: %v", err)
	}

	entries, err := j.Recent(ctx, 10)
	if err != nil {
		t.Fatalf("recent: %v", err)
	}
	if len(entries) != 2 {
		t.Fatalf("expected 2 entries, got %d", len(entries))
	}

	ids := map[string]bool{entries[0].EventID: true, entries[1].EventID: true}
	if !ids[first.ID()] || !ids[second.ID()] {
		t.Error("journal entries do not match appended events")
	}
}

func TestJournalAppendIdempotent(t *testing.T) {
	j := newTestJournal(t)
	ctx := context.Background()

	evt := event.New("post.published", map[string]any{"post_id": int64(9)})
	if err := j.Append(ctx, evt); err != nil {
		t.Fatalf("append: %v", err)
	}
	if err := j.Append(ctx, evt); err != nil {
		t.Fatalf("second append: %v", err)
	}

	entries, err := j.Recent(ctx, 10)
	if err != nil {
		t.Fatalf("recent: %v", err)
	}
	if len(entries) != 1 {
		t.Errorf("expected 1 entry after duplicate append, got %d", len(entries))
	}
}

func TestJournalCountByType(t *testing.T) {
	j := newTestJournal(t)
	ctx := context.Background()

	j.Append(ctx, event.New("user.created", nil))
	j.Append(ctx, event.New("user.created", nil))
	j.Append(ctx, event.New("lead.created", nil))

	counts, err := j.CountByType(ctx)
	if err != nil {
		t.Fatalf("count: %v", err)
	}
	if counts["user.created"] != 2 {
		t.Errorf("expected 2 user.created, got %d", counts["user.created"])
	}
	if counts["lead.created"] != 1 {
		t.Errorf("expected 1 lead.created, got %d", counts["lead.created"])
	}
}

func TestJournalClosed(t *testing.T) {
	j := newTestJournal(t)
	ctx := context.Background()

	if err := j.Close(); err != nil {
		t.Fatalf("close: %v", err)
	}

	if err := j.Append(ctx, event.New("user.created", nil)); err != event.ErrJournalClosed {
		t.Errorf("expected ErrJournalClosed, got %v", err)
	}
	if _, err := j.Recent(ctx, 1); err != event.ErrJournalClosed {
		t.Errorf("expected ErrJournalClosed, got %v", err)
	}
}

func TestDispatcherWritesJournal(t *testing.T) {
	j := newTestJournal(t)
	ctx := context.Background()

	d := event.NewDispatcher(event.WithJournal(j))
	evt := event.New("email_campaign.created", map[string]any{"campaign_id": int64(5)})
	if err := d.Dispatch(ctx, evt); err != nil {
		t.Fatalf("dispatch: %v", err)
	}

	entries, err := j.Recent(ctx, 1)
	if err != nil {
		t.Fatalf("recent: %v", err)
	}
	if len(entries) != 1 || entries[0].EventID != evt.ID() {
		t.Error("dispatched event not journaled")
	}
}
