package postgres

import (
	"context"
	"database/sql"

	"specsum/internal/model"
	"specsum/internal/repository"
)

const defaultHistoryLimit = 50

// AnalysisPostgres is a PostgreSQL implementation of
// repository.AnalysisRepository. It uses database/sql with parameterized
// queries and contains no business logic.
type AnalysisPostgres struct {
	db *sql.DB
}

// NewAnalysisPostgres creates a new AnalysisPostgres repository.
func NewAnalysisPostgres(db *sql.DB) *AnalysisPostgres {
	return &AnalysisPostgres{db: db}
}

var _ repository.AnalysisRepository = (*AnalysisPostgres)(nil)

// Create inserts a new analysis row and returns the stored record.
// There is deliberately no ON CONFLICT clause: duplicates per filename are
// part of the data model.
func (r *AnalysisPostgres) Create(ctx context.Context, rec *model.AnalysisRecord) (*model.AnalysisRecord, error) {
	const q = `
		INSERT INTO analyses (id, username, filename, summary, tables_md, created_at)
		VALUES ($1, $2, $3, $4, $5, $6)
		RETURNING id, username, filename, summary, tables_md, created_at
	`
	row := r.db.QueryRowContext(ctx, q,
		rec.ID,
		rec.Username,
		rec.Filename,
		rec.Summary,
		rec.Tables,
		rec.CreatedAt,
	)
	var out model.AnalysisRecord
	if err := scanRecord(row, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// FindByID fetches a single analysis by its ID.
func (r *AnalysisPostgres) FindByID(ctx context.Context, id string) (*model.AnalysisRecord, error) {
	const q = `
		SELECT id, username, filename, summary, tables_md, created_at
		FROM analyses
		WHERE id = $1
	`
	var rec model.AnalysisRecord
	if err := scanRecord(r.db.QueryRowContext(ctx, q, id), &rec); err != nil {
		return nil, err
	}
	return &rec, nil
}

// FindLatestByFilename returns the newest row for an exact filename match.
// Ordering by created_at DESC is load-bearing: history rows for the same
// filename coexist and the most recent one is the authoritative analysis.
func (r *AnalysisPostgres) FindLatestByFilename(ctx context.Context, filename string) (*model.AnalysisRecord, error) {
	const q = `
		SELECT id, username, filename, summary, tables_md, created_at
		FROM analyses
		WHERE filename = $1
		ORDER BY created_at DESC
		LIMIT 1
	`
	var rec model.AnalysisRecord
	if err := scanRecord(r.db.QueryRowContext(ctx, q, filename), &rec); err != nil {
		return nil, err
	}
	return &rec, nil
}

// List returns analysis history, newest first, optionally filtered by username.
func (r *AnalysisPostgres) List(ctx context.Context, q repository.HistoryQuery) ([]model.AnalysisRecord, error) {
	limit := q.Limit
	if limit <= 0 {
		limit = defaultHistoryLimit
	}

	var (
		rows *sql.Rows
		err  error
	)
	if q.Username != "" {
		const qUser = `
			SELECT id, username, filename, summary, tables_md, created_at
			FROM analyses
			WHERE username = $1
			ORDER BY created_at DESC
			LIMIT $2
		`
		rows, err = r.db.QueryContext(ctx, qUser, q.Username, limit)
	} else {
		const qAll = `
			SELECT id, username, filename, summary, tables_md, created_at
			FROM analyses
			ORDER BY created_at DESC
			LIMIT $1
		`
		rows, err = r.db.QueryContext(ctx, qAll, limit)
	}
	if err != nil {
		return nil, err
	}
	return collectRecords(rows)
}

// Search matches the term against filename and summary, case-insensitively.
func (r *AnalysisPostgres) Search(ctx context.Context, term string) ([]model.AnalysisRecord, error) {
	const q = `
		SELECT id, username, filename, summary, tables_md, created_at
		FROM analyses
		WHERE filename ILIKE $1 OR summary ILIKE $1
		ORDER BY created_at DESC
	`
	rows, err := r.db.QueryContext(ctx, q, "%"+term+"%")
	if err != nil {
		return nil, err
	}
	return collectRecords(rows)
}

// Delete removes an analysis by ID; sql.ErrNoRows if nothing matched.
func (r *AnalysisPostgres) Delete(ctx context.Context, id string) error {
	const q = `DELETE FROM analyses WHERE id = $1`
	res, err := r.db.ExecContext(ctx, q, id)
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return sql.ErrNoRows
	}
	return nil
}

// Stats aggregates totals and the five most active users.
func (r *AnalysisPostgres) Stats(ctx context.Context) (*repository.Stats, error) {
	var st repository.Stats

	const qTotals = `SELECT COUNT(*), COUNT(DISTINCT username) FROM analyses`
	if err := r.db.QueryRowContext(ctx, qTotals).Scan(&st.TotalAnalyses, &st.TotalUsers); err != nil {
		return nil, err
	}

	const qTop = `
		SELECT username, COUNT(*) AS total
		FROM analyses
		GROUP BY username
		ORDER BY total DESC
		LIMIT 5
	`
	rows, err := r.db.QueryContext(ctx, qTop)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	for rows.Next() {
		var uc repository.UserCount
		if err := rows.Scan(&uc.Username, &uc.Count); err != nil {
			return nil, err
		}
		st.TopUsers = append(st.TopUsers, uc)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return &st, nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanRecord(row rowScanner, rec *model.AnalysisRecord) error {
	return row.Scan(
		&rec.ID,
		&rec.Username,
		&rec.Filename,
		&rec.Summary,
		&rec.Tables,
		&rec.CreatedAt,
	)
}

func collectRecords(rows *sql.Rows) ([]model.AnalysisRecord, error) {
	defer rows.Close()
	items := make([]model.AnalysisRecord, 0)
	for rows.Next() {
		var rec model.AnalysisRecord
		if err := scanRecord(rows, &rec); err != nil {
			return nil, err
		}
		items = append(items, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return items, nil
}
