package storage

import (
	"context"
	"errors"

	"github.com/vietddude/docket/internal/core/domain"
)

var (
	// ErrMissingCaseNumber is returned when a record cannot be keyed for storage
	ErrMissingCaseNumber = errors.New("record has no case number")
)

// CaseRepository handles case record storage
type CaseRepository interface {
	// SaveCase inserts or replaces a case record
	SaveCase(ctx context.Context, county string, rec domain.CaseRecord) error

	// Known returns the subset of ids that are already stored
	Known(ctx context.Context, county string, ids []domain.CaseID) ([]domain.CaseID, error)
}

// RunRepository handles run bookkeeping
type RunRepository interface {
	// Start records a new run
	Start(ctx context.Context, run *domain.Run) error

	// Finish stores the final counters of a run
	Finish(ctx context.Context, run *domain.Run) error

	// Recent returns the latest runs, newest first
	Recent(ctx context.Context, limit int) ([]*domain.Run, error)
}

// FailedCaseRepository handles the ledger of identifiers that failed
type FailedCaseRepository interface {
	// Add records failed identifiers
	Add(ctx context.Context, failed []domain.FailedCase) error

	// List returns the ledger of a county, oldest first
	List(ctx context.Context, county string) ([]domain.FailedCase, error)

	// Resolve removes ids from the ledger
	Resolve(ctx context.Context, county string, ids []domain.CaseID) error

	// Clear empties the ledger of a county
	Clear(ctx context.Context, county string) error
}
