package ops

import (
	"context"
	"database/sql"

	"github.com/mocho-app/mocho/internal/cycle"
	"github.com/mocho-app/mocho/internal/db"
)

// HistoryInput contains parameters for the History operation.
type HistoryInput struct {
	Limit  int // default 20, max 100
	Offset int
}

// HistoryOutput contains the result of the History operation.
type HistoryOutput struct {
	Items      []cycle.Event `json:"items"`
	Pagination Pagination    `json:"pagination"`
}

// History lists logged actions, newest first.
func History(ctx context.Context, database *sql.DB, input HistoryInput) (*HistoryOutput, error) {
	limit, offset := normalizePaging(input.Limit, input.Offset)

	items, err := db.ListEvents(ctx, database, limit, offset)
	if err != nil {
		return nil, err
	}
	total, err := db.CountEvents(ctx, database)
	if err != nil {
		return nil, err
	}

	return &HistoryOutput{
		Items: items,
		Pagination: Pagination{
			Limit:   limit,
			Offset:  offset,
			HasMore: offset+len(items) < total,
			Total:   total,
		},
	}, nil
}
