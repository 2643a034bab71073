package database

import (
	"context"

	"go-job-feed-watcher/internal/models"
)

// Store persists postings and their review status. Every method is a single
// transaction; storage errors are returned to the caller, never swallowed.
type Store interface {
	// Init creates the schema if it does not exist.
	Init(ctx context.Context) error

	// Create inserts a pending posting and returns its id.
	Create(ctx context.Context, link, text string) (int64, error)

	// Get returns the posting, or nil if no row has that id.
	Get(ctx context.Context, id int64) (*models.Posting, error)

	// SetAccepted marks the posting accepted and reports whether a row existed.
	SetAccepted(ctx context.Context, id int64) (bool, error)

	// Accept marks the posting accepted and reports whether it was pending,
	// already accepted, or missing.
	Accept(ctx context.Context, id int64) (models.ReviewOutcome, error)

	// Reject deletes a pending posting. An accepted posting is left in place
	// and reported as OutcomeAlreadyApplied.
	Reject(ctx context.Context, id int64) (models.ReviewOutcome, error)

	// Delete removes the posting and reports whether a row existed.
	Delete(ctx context.Context, id int64) (bool, error)

	// ListAll returns every posting ordered by id.
	ListAll(ctx context.Context) ([]models.Posting, error)

	Close() error
}

// Open picks Postgres when a connection URL is given, otherwise a local SQLite file.
func Open(ctx context.Context, databaseURL, sqlitePath string) (Store, error) {
	if databaseURL != "" {
		return ConnectDB(ctx, databaseURL)
	}
	return OpenSQLite(sqlitePath)
}
