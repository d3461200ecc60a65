// Package postgres stores the event log in PostgreSQL.
package postgres

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	_ "github.com/lib/pq"

	"github.com/AaronLay10/QuestBox/internal/config"
	"github.com/AaronLay10/QuestBox/internal/events"
)

const (
	connectTimeout = 5 * time.Second
	defaultLimit   = 200
	maxLimit       = 10000
)

// Client is an events.Store and events.Reader backed by one events table
// shared by every box; rows are scoped by box id.
type Client struct {
	db    *sql.DB
	boxID string
}

// New connects, pings and creates the events table if needed.
func New(ctx context.Context, cfg config.PostgresConfig, password, boxID string) (*Client, error) {
	db, err := sql.Open("postgres", connString(cfg, password))
	if err != nil {
		return nil, fmt.Errorf("failed to open postgres: %w", err)
	}

	ctx, cancel := context.WithTimeout(ctx, connectTimeout)
	defer cancel()
	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to ping postgres: %w", err)
	}

	client := &Client{db: db, boxID: boxID}
	if err := client.createTable(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to create events table: %w", err)
	}
	return client, nil
}

// connString builds a lib/pq key/value connection string. Values are quoted
// so passwords with spaces survive.
func connString(cfg config.PostgresConfig, password string) string {
	parts := []string{
		"host=" + quote(cfg.Host),
		fmt.Sprintf("port=%d", cfg.Port),
		"user=" + quote(cfg.User),
		"dbname=" + quote(cfg.Database),
	}
	if password != "" {
		parts = append(parts, "password="+quote(password))
	}
	sslmode := cfg.SSLMode
	if sslmode == "" {
		sslmode = "disable"
	}
	parts = append(parts, "sslmode="+sslmode)
	return strings.Join(parts, " ")
}

func quote(v string) string {
	v = strings.ReplaceAll(v, `\`, `\\`)
	v = strings.ReplaceAll(v, `'`, `\'`)
	return "'" + v + "'"
}

func (c *Client) createTable(ctx context.Context) error {
	query := `
		CREATE TABLE IF NOT EXISTS events (
			event_id   BIGSERIAL PRIMARY KEY,
			ts         TIMESTAMPTZ NOT NULL,
			level      TEXT NOT NULL,
			event      TEXT NOT NULL,
			msg        TEXT,
			fields     JSONB,
			box_id     TEXT NOT NULL,
			session_id TEXT
		);
		CREATE INDEX IF NOT EXISTS idx_events_ts ON events(ts DESC);
		CREATE INDEX IF NOT EXISTS idx_events_box_id ON events(box_id);
		CREATE INDEX IF NOT EXISTS idx_events_session_id ON events(session_id);
	`
	_, err := c.db.ExecContext(ctx, query)
	return err
}

// Append inserts an event.
func (c *Client) Append(ts time.Time, level, event, msg string, fields map[string]interface{}, sessionID string) error {
	var fieldsJSON []byte
	if fields != nil {
		var err error
		fieldsJSON, err = json.Marshal(fields)
		if err != nil {
			return fmt.Errorf("failed to marshal fields: %w", err)
		}
	}

	query := `
		INSERT INTO events (ts, level, event, msg, fields, box_id, session_id)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
	`
	_, err := c.db.Exec(query, ts, level, event, nullable(msg), fieldsJSON, c.boxID, nullable(sessionID))
	return err
}

func nullable(s string) sql.NullString {
	return sql.NullString{String: s, Valid: s != ""}
}

// Query returns the last limit events of this box, newest first.
func (c *Client) Query(limit int) ([]events.Record, error) {
	if limit <= 0 {
		limit = defaultLimit
	}
	if limit > maxLimit {
		limit = maxLimit
	}

	query := `
		SELECT event_id, ts, level, event, msg, fields, box_id, session_id
		FROM events
		WHERE box_id = $1
		ORDER BY ts DESC, event_id DESC
		LIMIT $2
	`
	rows, err := c.db.Query(query, c.boxID, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []events.Record
	for rows.Next() {
		var r events.Record
		var fieldsJSON []byte
		var msg, sessionID sql.NullString

		if err := rows.Scan(&r.ID, &r.Timestamp, &r.Level, &r.Event, &msg, &fieldsJSON, &r.BoxID, &sessionID); err != nil {
			return nil, err
		}
		r.Message = msg.String
		r.SessionID = sessionID.String
		if len(fieldsJSON) > 0 {
			if err := json.Unmarshal(fieldsJSON, &r.Fields); err != nil {
				return nil, fmt.Errorf("failed to unmarshal fields: %w", err)
			}
		}
		out = append(out, r)
	}
	return out, rows.Err()
}

// Close closes the connection pool.
func (c *Client) Close() error {
	if c.db != nil {
		return c.db.Close()
	}
	return nil
}
