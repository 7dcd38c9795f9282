package event

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	_ "modernc.org/sqlite" // Pure Go SQLite driver
)

// ErrJournalClosed is returned by operations on a closed journal.
var ErrJournalClosed = errors.New("event journal is closed")

// JournalEntry is one recorded event.
type JournalEntry struct {
	EventID    string         `json:"event_id"`
	EventType  string         `json:"event_type"`
	Payload    map[string]any `json:"payload"`
	UserID     int64          `json:"user_id"`
	ProjectID  int64          `json:"project_id"`
	OccurredAt time.Time      `json:"occurred_at"`
	RecordedAt time.Time      `json:"recorded_at"`
}

// Journal records dispatched events to SQLite for inspection and audit.
// It observes the dispatch path and never participates in delivery; the
// queue itself stays in memory.
type Journal struct {
	db     *sql.DB
	mu     sync.RWMutex
	closed bool
}

// NewJournal opens a journal at the given path. Use ":memory:" for tests.
func NewJournal(path string) (*Journal, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open journal: %w", err)
	}

	// WAL mode for better concurrent read performance
	if _, err := db.Exec("PRAGMA journal_mode=WAL"); err != nil {
		db.Close()
		return nil, fmt.Errorf("enable WAL mode: %w", err)
	}

	if _, err := db.Exec(`
		CREATE TABLE IF NOT EXISTS events (
			event_id TEXT PRIMARY KEY,
			event_type TEXT NOT NULL,
			payload TEXT NOT NULL,
			user_id INTEGER NOT NULL,
			project_id INTEGER NOT NULL,
			occurred_at TEXT NOT NULL,
			recorded_at TEXT NOT NULL
		)
	`); err != nil {
		db.Close()
		return nil, fmt.Errorf("create table: %w", err)
	}

	if _, err := db.Exec(`
		CREATE INDEX IF NOT EXISTS idx_events_type
		ON events(event_type)
	`); err != nil {
		db.Close()
		return nil, fmt.Errorf("create index: %w", err)
	}

	return &Journal{db: db}, nil
}

// Append records one event. Re-appending the same event ID replaces the
// previous row, keeping appends idempotent.
func (j *Journal) Append(ctx context.Context, evt *DomainEvent) error {
	j.mu.Lock()
	defer j.mu.Unlock()

	if j.closed {
		return ErrJournalClosed
	}

	payload, err := json.Marshal(evt.Payload())
	if err != nil {
		return fmt.Errorf("marshal payload: %w", err)
	}

	_, err = j.db.ExecContext(ctx, `
		INSERT OR REPLACE INTO events
			(event_id, event_type, payload, user_id, project_id, occurred_at, recorded_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)
	`, evt.ID(), evt.Type(), string(payload), evt.UserID(), evt.ProjectID(),
		evt.OccurredAt().UTC().Format(time.RFC3339Nano),
		time.Now().UTC().Format(time.RFC3339Nano))

	if err != nil {
		return fmt.Errorf("append event: %w", err)
	}
	return nil
}

// Recent returns the most recently recorded entries, newest first.
func (j *Journal) Recent(ctx context.Context, limit int) ([]JournalEntry, error) {
	j.mu.RLock()
	defer j.mu.RUnlock()

	if j.closed {
		return nil, ErrJournalClosed
	}
	if limit <= 0 {
		limit = 50
	}

	rows, err := j.db.QueryContext(ctx, `
		SELECT event_id, event_type, payload, user_id, project_id, occurred_at, recorded_at
		FROM events
		ORDER BY recorded_at DESC
		LIMIT ?
	`, limit)
	if err != nil {
		return nil, fmt.Errorf("query events: %w", err)
	}
	defer rows.Close()

	var entries []JournalEntry
	for rows.Next() {
		var (
			entry      JournalEntry
			payload    string
			occurredAt string
			recordedAt string
		)
		if err := rows.Scan(&entry.EventID, &entry.EventType, &payload,
			&entry.UserID, &entry.ProjectID, &occurredAt, &recordedAt); err != nil {
			return nil, fmt.Errorf("scan event: %w", err)
		}
		if err := json.Unmarshal([]byte(payload), &entry.Payload); err != nil {
			return nil, fmt.Errorf("unmarshal payload: %w", err)
		}
		entry.OccurredAt, _ = time.Parse(time.RFC3339Nano, occurredAt)
		entry.RecordedAt, _ = time.Parse(time.RFC3339Nano, recordedAt)
		entries = append(entries, entry)
	}
	return entries, rows.Err()
}

// CountByType returns how many events of each type have been recorded.
func (j *Journal) CountByType(ctx context.Context) (map[string]int64, error) {
	j.mu.RLock()
	defer j.mu.RUnlock()

	if j.closed {
		return nil, ErrJournalClosed
	}

	rows, err := j.db.QueryContext(ctx, `
		SELECT event_type, COUNT(*) FROM events GROUP BY event_type
	`)
	if err != nil {
		return nil, fmt.Errorf("count events: %w", err)
	}
	defer rows.Close()

	counts := make(map[string]int64)
	for rows.Next() {
		var (
			eventType string
			count     int64
		)
		if err := rows.Scan(&eventType, &count); err != nil {
			return nil, fmt.Errorf("scan count: %w", err)
		}
		counts[eventType] = count
	}
	return counts, rows.Err()
}

// Close releases the underlying database.
func (j *Journal) Close() error {
	j.mu.Lock()
	defer j.mu.Unlock()

	if j.closed {
		return nil
	}
	j.closed = true
	return j.db.Close()
}
