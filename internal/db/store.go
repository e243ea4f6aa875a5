package db

import (
	"context"
	"database/sql"

	"github.com/mocho-app/mocho/internal/cycle"
)

// Store exposes the records and events tables as a key-value record store
// and an append-only history journal.
type Store struct {
	db *sql.DB
}

// NewStore wraps an initialized database.
func NewStore(db *sql.DB) *Store {
	return &Store{db: db}
}

// Read returns the serialized record for key. found is false when absent.
func (s *Store) Read(ctx context.Context, key string) ([]byte, bool, error) {
	return ReadRecord(ctx, s.db, key)
}

// Write replaces the serialized record for key.
func (s *Store) Write(ctx context.Context, key string, value []byte) error {
	return WriteRecord(ctx, s.db, key, value)
}

// Append records a history event.
func (s *Store) Append(ctx context.Context, e cycle.Event) error {
	return InsertEvent(ctx, s.db, e)
}
