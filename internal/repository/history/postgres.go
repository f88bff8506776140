package history

import (
	"context"
	"database/sql"
	"fmt"

	_ "github.com/lib/pq" // Registers the postgres driver.
)

const (
	createTableStmt = `CREATE TABLE IF NOT EXISTS alarm_history (
	id          BIGSERIAL PRIMARY KEY,
	recorded_at TIMESTAMPTZ NOT NULL,
	kind        TEXT NOT NULL,
	subject     TEXT NOT NULL DEFAULT '',
	value       TEXT NOT NULL
)`
	insertStmt = `INSERT INTO alarm_history (recorded_at, kind, subject, value) VALUES ($1, $2, $3, $4)`
	recentStmt = `SELECT recorded_at, kind, subject, value FROM alarm_history ORDER BY id DESC LIMIT $1`
)

// Postgres stores events in the alarm_history table.
type Postgres struct {
	db *sql.DB
}

// OpenPostgres connects to the database and creates the table if needed.
func OpenPostgres(ctx context.Context, databaseURL string) (*Postgres, error) {
	db, err := sql.Open("postgres", databaseURL)
	if err != nil {
		return nil, fmt.Errorf("open postgres: %w", err)
	}

	if err = db.PingContext(ctx); err != nil {
		_ = db.Close()

		return nil, fmt.Errorf("ping postgres: %w", err)
	}

	if _, err = db.ExecContext(ctx, createTableStmt); err != nil {
		_ = db.Close()

		return nil, fmt.Errorf("create alarm_history: %w", err)
	}

	return &Postgres{db: db}, nil
}

// Insert writes one event.
func (p *Postgres) Insert(ctx context.Context, event Event) error {
	_, err := p.db.ExecContext(ctx, insertStmt, event.RecordedAt, string(event.Kind), event.Subject, event.Value)
	if err != nil {
		return fmt.Errorf("insert %s event: %w", event.Kind, err)
	}

	return nil
}

// Recent returns up to limit events, newest first.
func (p *Postgres) Recent(ctx context.Context, limit int) ([]Event, error) {
	rows, err := p.db.QueryContext(ctx, recentStmt, limit)
	if err != nil {
		return nil, fmt.Errorf("query alarm_history: %w", err)
	}
	defer rows.Close()

	var events []Event

	for rows.Next() {
		var (
			event Event
			kind  string
		)

		if err = rows.Scan(&event.RecordedAt, &kind, &event.Subject, &event.Value); err != nil {
			return nil, fmt.Errorf("scan alarm_history: %w", err)
		}

		event.Kind = Kind(kind)
		events = append(events, event)
	}

	if err = rows.Err(); err != nil {
		return nil, fmt.Errorf("read alarm_history: %w", err)
	}

	return events, nil
}

// Close releases the connection pool.
func (p *Postgres) Close() error {
	return p.db.Close()
}
