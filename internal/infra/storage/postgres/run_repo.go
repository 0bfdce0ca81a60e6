package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/vietddude/docket/internal/core/domain"
)

// RunRepo implements storage.RunRepository using PostgreSQL.
type RunRepo struct {
	db *DB
}

// NewRunRepo creates a new PostgreSQL run repository.
func NewRunRepo(db *DB) *RunRepo {
	return &RunRepo{db: db}
}

// Start inserts the run row.
func (r *RunRepo) Start(ctx context.Context, run *domain.Run) error {
	query := `
		INSERT INTO runs (id, county, status, requested, started_at)
		VALUES (:id, :county, :status, :requested, :started_at)
	`
	if _, err := r.db.NamedExecContext(ctx, query, run); err != nil {
		return fmt.Errorf("failed to start run: %w", err)
	}
	return nil
}

// Finish stores the final counters of the run.
func (r *RunRepo) Finish(ctx context.Context, run *domain.Run) error {
	query := `
		UPDATE runs SET
			status = :status,
			fetched = :fetched,
			fetch_failed = :fetch_failed,
			persist_failed = :persist_failed,
			attempts = :attempts,
			finished_at = :finished_at
		WHERE id = :id
	`
	if _, err := r.db.NamedExecContext(ctx, query, run); err != nil {
		return fmt.Errorf("failed to finish run: %w", err)
	}
	return nil
}

// Recent returns the latest runs, newest first.
func (r *RunRepo) Recent(ctx context.Context, limit int) ([]*domain.Run, error) {
	query := `
		SELECT id, county, status, requested, fetched, fetch_failed, persist_failed,
		       attempts, started_at, finished_at
		FROM runs
		ORDER BY started_at DESC
		LIMIT $1
	`
	var runs []*domain.Run
	if err := r.db.SelectContext(ctx, &runs, query, limit); err != nil {
		return nil, fmt.Errorf("failed to list runs: %w", err)
	}
	return runs, nil
}

func isNoRows(err error) bool {
	return errors.Is(err, sql.ErrNoRows)
}
