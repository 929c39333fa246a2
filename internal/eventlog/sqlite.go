package eventlog

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	_ "modernc.org/sqlite"

	"github.com/gridlog/gridlog-go/pkg/eventlog"
)

const sqliteSchema = `
CREATE TABLE IF NOT EXISTS events (
	seq        INTEGER PRIMARY KEY AUTOINCREMENT,
	id         TEXT    NOT NULL UNIQUE,
	channel    TEXT    NOT NULL,
	created_ms INTEGER NOT NULL,
	payload    TEXT    NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_events_channel_created ON events (channel, created_ms);
`

// SQLiteStore implements eventlog.EventStore on a local sqlite database.
// Unlike MemoryStore it survives restarts: Close releases the handle
// without purging the log.
type SQLiteStore struct {
	db *sql.DB

	now func() time.Time // test hook
}

// OpenSQLiteStore opens (creating if needed) the event database at path.
func OpenSQLiteStore(path string) (*SQLiteStore, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open event database: %w", err)
	}

	// modernc sqlite allows a single writer; serialize through one conn.
	db.SetMaxOpenConns(1)

	if _, err := db.Exec(sqliteSchema); err != nil {
		db.Close()
		return nil, fmt.Errorf("bootstrap event schema: %w", err)
	}

	return &SQLiteStore{db: db, now: time.Now}, nil
}

func (s *SQLiteStore) Append(ctx context.Context, channel, payload string) (*eventlog.Event, error) {
	channel, err := eventlog.SanitizeChannel(channel)
	if err != nil {
		return nil, err
	}
	if err := eventlog.ValidatePayload(payload); err != nil {
		return nil, err
	}

	event := &eventlog.Event{
		ID:        eventlog.NewID(),
		Channel:   channel,
		CreatedAt: s.now().UTC().Truncate(time.Millisecond),
		Payload:   payload,
	}

	_, err = s.db.ExecContext(ctx,
		`INSERT INTO events (id, channel, created_ms, payload) VALUES (?, ?, ?, ?)`,
		event.ID, event.Channel, event.CreatedAt.UnixMilli(), event.Payload,
	)
	if err != nil {
		return nil, fmt.Errorf("append event: %w", err)
	}

	return event, nil
}

func (s *SQLiteStore) Read(ctx context.Context, channel string, from *time.Time) ([]*eventlog.Event, error) {
	channel, err := eventlog.SanitizeChannel(channel)
	if err != nil {
		return nil, err
	}

	fromMs := int64(0)
	if from != nil {
		fromMs = from.UnixMilli()
	}

	rows, err := s.db.QueryContext(ctx,
		`SELECT id, created_ms, payload FROM events
		 WHERE channel = ? AND created_ms >= ?
		 ORDER BY created_ms, seq`,
		channel, fromMs,
	)
	if err != nil {
		return nil, fmt.Errorf("read channel %s: %w", channel, err)
	}
	defer rows.Close()

	results := make([]*eventlog.Event, 0)
	for rows.Next() {
		var (
			id        string
			createdMs int64
			payload   string
		)
		if err := rows.Scan(&id, &createdMs, &payload); err != nil {
			return nil, fmt.Errorf("scan event row: %w", err)
		}
		results = append(results, &eventlog.Event{
			ID:        id,
			Channel:   channel,
			CreatedAt: time.UnixMilli(createdMs).UTC(),
			Payload:   payload,
		})
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("read channel %s: %w", channel, err)
	}

	return results, nil
}

// Close releases the database handle. The log is kept on disk.
func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

var _ eventlog.EventStore = (*SQLiteStore)(nil)
