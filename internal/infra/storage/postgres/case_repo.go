package postgres

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/lib/pq"

	"github.com/vietddude/docket/internal/core/domain"
	"github.com/vietddude/docket/internal/infra/storage"
)

// CaseRepo implements storage.CaseRepository using PostgreSQL.
type CaseRepo struct {
	db *DB
}

// NewCaseRepo creates a new PostgreSQL case repository.
func NewCaseRepo(db *DB) *CaseRepo {
	return &CaseRepo{db: db}
}

// SaveCase upserts the record keyed by county and case number.
func (r *CaseRepo) SaveCase(ctx context.Context, county string, rec domain.CaseRecord) error {
	caseNumber, ok := rec.CaseNumber()
	if !ok {
		return storage.ErrMissingCaseNumber
	}

	payload, err := json.Marshal(rec)
	if err != nil {
		return fmt.Errorf("failed to encode case %s: %w", caseNumber, err)
	}

	query := `
		INSERT INTO cases (case_number, county, payload, fetched_at, updated_at)
		VALUES ($1, $2, $3, NOW(), NOW())
		ON CONFLICT (county, case_number) DO UPDATE SET
			payload = EXCLUDED.payload,
			updated_at = NOW()
	`
	_, err = r.db.ExecContext(ctx, query, string(caseNumber), county, string(payload))
	if err != nil {
		return fmt.Errorf("failed to save case %s: %w", caseNumber, err)
	}
	return nil
}

// Known returns the ids already stored for county.
func (r *CaseRepo) Known(
	ctx context.Context,
	county string,
	ids []domain.CaseID,
) ([]domain.CaseID, error) {
	if len(ids) == 0 {
		return nil, nil
	}

	numbers := make([]string, len(ids))
	for i, id := range ids {
		numbers[i] = string(id)
	}

	query := `
		SELECT case_number
		FROM cases
		WHERE county = $1 AND case_number = ANY($2)
	`
	var found []string
	if err := r.db.SelectContext(ctx, &found, query, county, pq.Array(numbers)); err != nil {
		return nil, fmt.Errorf("failed to look up cases: %w", err)
	}

	known := make([]domain.CaseID, len(found))
	for i, n := range found {
		known[i] = domain.CaseID(n)
	}
	return known, nil
}

// Get returns the stored record of a case, or nil when absent.
func (r *CaseRepo) Get(ctx context.Context, county string, id domain.CaseID) (domain.CaseRecord, error) {
	query := `SELECT payload FROM cases WHERE county = $1 AND case_number = $2`

	var payload []byte
	err := r.db.GetContext(ctx, &payload, query, county, string(id))
	if isNoRows(err) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get case %s: %w", id, err)
	}

	var rec domain.CaseRecord
	if err := json.Unmarshal(payload, &rec); err != nil {
		return nil, fmt.Errorf("failed to decode case %s: %w", id, err)
	}
	return rec, nil
}
