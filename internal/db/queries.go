package db

import (
	"context"
	"database/sql"
	"strings"
	"time"

	"github.com/mocho-app/mocho/internal/cycle"
	"github.com/mocho-app/mocho/internal/errors"
)

// ErrUniqueConstraint is returned when an insert violates a UNIQUE constraint.
var ErrUniqueConstraint = &errors.MochoError{
	Code:    "UNIQUE_CONSTRAINT",
	Status:  409,
	Message: "unique constraint violation",
}

// Querier is satisfied by both *sql.DB and *sql.Tx.
type Querier interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

// ReadRecord returns the stored value for key. found is false when no row exists.
func ReadRecord(ctx context.Context, q Querier, key string) (value []byte, found bool, err error) {
	var s string
	err = q.QueryRowContext(ctx, `SELECT value FROM records WHERE key = ?`, key).Scan(&s)
	if err == sql.ErrNoRows {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, errors.NewStoreRead(key, err)
	}
	return []byte(s), true, nil
}

// WriteRecord replaces the stored value for key.
func WriteRecord(ctx context.Context, q Querier, key string, value []byte) error {
	query := `
		INSERT INTO records (key, value, updated_at) VALUES (?, ?, ?)
		ON CONFLICT(key) DO UPDATE SET value = excluded.value, updated_at = excluded.updated_at
	`
	if _, err := q.ExecContext(ctx, query, key, string(value), time.Now().Unix()); err != nil {
		return errors.NewStoreWrite(key, err)
	}
	return nil
}

// InsertEvent appends a history event.
func InsertEvent(ctx context.Context, q Querier, e cycle.Event) error {
	query := `INSERT INTO events (id, kind, on_date, created_at) VALUES (?, ?, ?, ?)`
	_, err := q.ExecContext(ctx, query, e.ID, string(e.Kind), e.Date.String(), e.CreatedAt)
	if err != nil {
		if isUniqueConstraintError(err) {
			return ErrUniqueConstraint
		}
		return errors.NewInternal(err)
	}
	return nil
}

// isUniqueConstraintError checks if the error is a SQLite UNIQUE constraint violation.
func isUniqueConstraintError(err error) bool {
	if err == nil {
		return false
	}
	return strings.Contains(err.Error(), "UNIQUE constraint failed")
}

// EventExists reports whether an event with the given ID is stored.
func EventExists(ctx context.Context, q Querier, id string) (bool, error) {
	var exists int
	err := q.QueryRowContext(ctx, `SELECT 1 FROM events WHERE id = ? LIMIT 1`, id).Scan(&exists)
	if err == sql.ErrNoRows {
		return false, nil
	}
	if err != nil {
		return false, errors.NewInternal(err)
	}
	return true, nil
}

// ListEvents returns events newest first.
func ListEvents(ctx context.Context, q Querier, limit, offset int) ([]cycle.Event, error) {
	query := `
		SELECT id, kind, on_date, created_at
		FROM events
		ORDER BY created_at DESC, id DESC
		LIMIT ? OFFSET ?
	`
	rows, err := q.QueryContext(ctx, query, limit, offset)
	if err != nil {
		return nil, errors.NewInternal(err)
	}
	defer rows.Close()

	events := make([]cycle.Event, 0)
	for rows.Next() {
		e, err := ScanEventFromRows(rows)
		if err != nil {
			return nil, errors.NewInternal(err)
		}
		events = append(events, *e)
	}
	if err := rows.Err(); err != nil {
		return nil, errors.NewInternal(err)
	}
	return events, nil
}

// CountEvents returns the number of stored events.
func CountEvents(ctx context.Context, q Querier) (int, error) {
	var n int
	if err := q.QueryRowContext(ctx, `SELECT COUNT(*) FROM events`).Scan(&n); err != nil {
		return 0, errors.NewInternal(err)
	}
	return n, nil
}

// StreamEvents returns all events oldest first for export. Caller closes rows.
func StreamEvents(ctx context.Context, q Querier) (*sql.Rows, error) {
	rows, err := q.QueryContext(ctx, `SELECT id, kind, on_date, created_at FROM events ORDER BY created_at ASC, id ASC`)
	if err != nil {
		return nil, errors.NewInternal(err)
	}
	return rows, nil
}

// DeleteEvents removes all history and returns the number of rows removed.
func DeleteEvents(ctx context.Context, q Querier) (int64, error) {
	result, err := q.ExecContext(ctx, `DELETE FROM events`)
	if err != nil {
		return 0, errors.NewInternal(err)
	}
	n, err := result.RowsAffected()
	if err != nil {
		return 0, errors.NewInternal(err)
	}
	return n, nil
}

// ScanEventFromRows scans the current row into an Event.
func ScanEventFromRows(rows *sql.Rows) (*cycle.Event, error) {
	var (
		e      cycle.Event
		kind   string
		onDate string
	)
	if err := rows.Scan(&e.ID, &kind, &onDate, &e.CreatedAt); err != nil {
		return nil, err
	}
	d, err := cycle.ParseDate(onDate)
	if err != nil {
		return nil, err
	}
	e.Kind = cycle.EventKind(kind)
	e.Date = d
	return &e, nil
}
