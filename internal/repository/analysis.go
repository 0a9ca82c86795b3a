package repository

import (
	"context"

	"specsum/internal/model"
)

// AnalysisRepository defines data access for analysis records using SQL
// queries only. No business logic here — strictly persistence operations.
//
// The store is append-only: Create never updates existing rows, and multiple
// rows for the same filename are expected. Callers that want "the" analysis
// for a filename use FindLatestByFilename, which orders by creation time.
type AnalysisRepository interface {
	// Create inserts a new analysis record and returns the stored row
	// (may include values set by the DB).
	Create(ctx context.Context, rec *model.AnalysisRecord) (*model.AnalysisRecord, error)

	// FindByID returns one record by its ID, or sql.ErrNoRows.
	FindByID(ctx context.Context, id string) (*model.AnalysisRecord, error)

	// FindLatestByFilename returns the most recent record whose filename
	// matches exactly, or sql.ErrNoRows when the filename was never analyzed.
	FindLatestByFilename(ctx context.Context, filename string) (*model.AnalysisRecord, error)

	// List returns history rows, newest first, optionally filtered by username.
	List(ctx context.Context, q HistoryQuery) ([]model.AnalysisRecord, error)

	// Search returns records whose filename or summary contains the term,
	// case-insensitively, newest first.
	Search(ctx context.Context, term string) ([]model.AnalysisRecord, error)

	// Delete removes a record by ID. It returns sql.ErrNoRows if no row matched.
	Delete(ctx context.Context, id string) error

	// Stats returns aggregate usage numbers.
	Stats(ctx context.Context) (*Stats, error)
}

// HistoryQuery holds filters for history listing. A zero Username means all
// users; Limit <= 0 lets the implementation apply its default.
type HistoryQuery struct {
	Username string
	Limit    int
}

// UserCount pairs a username with its number of analyses.
type UserCount struct {
	Username string `json:"username"`
	Count    int    `json:"count"`
}

// Stats aggregates store-wide usage numbers.
type Stats struct {
	TotalAnalyses int         `json:"total_analyses"`
	TotalUsers    int         `json:"total_users"`
	TopUsers      []UserCount `json:"top_users"`
}
