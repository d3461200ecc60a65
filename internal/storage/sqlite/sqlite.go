// Package sqlite stores the event log in a local SQLite file, for boxes
// that run without a Postgres server.
package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "github.com/mattn/go-sqlite3" // SQLite driver

	"github.com/AaronLay10/QuestBox/internal/config"
	"github.com/AaronLay10/QuestBox/internal/events"
)

const (
	dirPermissions  = 0750
	filePermissions = 0600
	msPerSecond     = 1000

	connectTimeout = 5 * time.Second
	defaultLimit   = 200
	maxLimit       = 10000
)

// Store is an events.Store and events.Reader on one SQLite file.
type Store struct {
	db    *sql.DB
	path  string
	boxID string
}

// Open creates the directory and file if needed and prepares the schema.
func Open(ctx context.Context, cfg config.SQLiteConfig, boxID string) (*Store, error) {
	if err := os.MkdirAll(filepath.Dir(cfg.Path), dirPermissions); err != nil {
		return nil, fmt.Errorf("creating database directory: %w", err)
	}

	connStr := fmt.Sprintf("file:%s?_busy_timeout=%d&_journal_mode=WAL&_synchronous=NORMAL",
		cfg.Path, cfg.BusyTimeout*msPerSecond)
	db, err := sql.Open("sqlite3", connStr)
	if err != nil {
		return nil, fmt.Errorf("opening database: %w", err)
	}
	// One writer; the event log is append-mostly.
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)

	ctx, cancel := context.WithTimeout(ctx, connectTimeout)
	defer cancel()
	if err := db.PingContext(ctx); err != nil {
		db.Close() //nolint:errcheck
		return nil, fmt.Errorf("verifying database connection: %w", err)
	}
	_ = os.Chmod(cfg.Path, filePermissions)

	s := &Store{db: db, path: cfg.Path, boxID: boxID}
	if err := s.migrate(ctx); err != nil {
		db.Close() //nolint:errcheck
		return nil, fmt.Errorf("creating events table: %w", err)
	}
	return s, nil
}

func (s *Store) migrate(ctx context.Context) error {
	_, err := s.db.ExecContext(ctx, `
		CREATE TABLE IF NOT EXISTS events (
			event_id   INTEGER PRIMARY KEY AUTOINCREMENT,
			ts         INTEGER NOT NULL,
			level      TEXT NOT NULL,
			event      TEXT NOT NULL,
			msg        TEXT,
			fields     TEXT,
			box_id     TEXT NOT NULL,
			session_id TEXT
		);
		CREATE INDEX IF NOT EXISTS idx_events_ts ON events(ts DESC);
		CREATE INDEX IF NOT EXISTS idx_events_session_id ON events(session_id);
	`)
	return err
}

// Path is the database file.
func (s *Store) Path() string { return s.path }

// Append inserts an event. Timestamps are stored as Unix nanoseconds.
func (s *Store) Append(ts time.Time, level, event, msg string, fields map[string]interface{}, sessionID string) error {
	var fieldsJSON sql.NullString
	if fields != nil {
		b, err := json.Marshal(fields)
		if err != nil {
			return fmt.Errorf("failed to marshal fields: %w", err)
		}
		fieldsJSON = sql.NullString{String: string(b), Valid: true}
	}

	_, err := s.db.Exec(`
		INSERT INTO events (ts, level, event, msg, fields, box_id, session_id)
		VALUES (?, ?, ?, ?, ?, ?, ?)`,
		ts.UnixNano(), level, event,
		sql.NullString{String: msg, Valid: msg != ""},
		fieldsJSON, s.boxID,
		sql.NullString{String: sessionID, Valid: sessionID != ""},
	)
	if err != nil {
		return fmt.Errorf("executing query: %w", err)
	}
	return nil
}

// Query returns the last limit events of this box, newest first.
func (s *Store) Query(limit int) ([]events.Record, error) {
	if limit <= 0 {
		limit = defaultLimit
	}
	if limit > maxLimit {
		limit = maxLimit
	}

	rows, err := s.db.Query(`
		SELECT event_id, ts, level, event, msg, fields, box_id, session_id
		FROM events
		WHERE box_id = ?
		ORDER BY ts DESC, event_id DESC
		LIMIT ?`, s.boxID, limit)
	if err != nil {
		return nil, fmt.Errorf("querying events: %w", err)
	}
	defer rows.Close()

	var out []events.Record
	for rows.Next() {
		var r events.Record
		var ts int64
		var msg, fields, sessionID sql.NullString
		if err := rows.Scan(&r.ID, &ts, &r.Level, &r.Event, &msg, &fields, &r.BoxID, &sessionID); err != nil {
			return nil, err
		}
		r.Timestamp = time.Unix(0, ts).UTC()
		r.Message = msg.String
		r.SessionID = sessionID.String
		if fields.Valid && fields.String != "" {
			if err := json.Unmarshal([]byte(fields.String), &r.Fields); err != nil {
				return nil, fmt.Errorf("failed to unmarshal fields: %w", err)
			}
		}
		out = append(out, r)
	}
	return out, rows.Err()
}

// Close closes the database.
func (s *Store) Close() error {
	if s.db == nil {
		return nil
	}
	if err := s.db.Close(); err != nil {
		return fmt.Errorf("closing database: %w", err)
	}
	return nil
}
