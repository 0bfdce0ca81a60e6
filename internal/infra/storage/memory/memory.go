package memory

import (
	"context"
	"sort"
	"sync"

	"github.com/vietddude/docket/internal/core/domain"
	"github.com/vietddude/docket/internal/infra/storage"
)

type MemoryStorage struct {
	cases  map[string]domain.CaseRecord
	runs   []*domain.Run
	failed map[string][]domain.FailedCase
	mu     sync.RWMutex
}

func NewMemoryStorage() *MemoryStorage {
	return &MemoryStorage{
		cases:  make(map[string]domain.CaseRecord),
		failed: make(map[string][]domain.FailedCase),
	}
}

func caseKey(county string, id domain.CaseID) string {
	return county + "/" + string(id)
}

// -----------------------------------------------------------------------------
// Case Repository
// -----------------------------------------------------------------------------

type CaseRepo struct {
	store *MemoryStorage
}

func NewCaseRepo(store *MemoryStorage) *CaseRepo {
	return &CaseRepo{store: store}
}

func (r *CaseRepo) SaveCase(ctx context.Context, county string, rec domain.CaseRecord) error {
	id, ok := rec.CaseNumber()
	if !ok {
		return storage.ErrMissingCaseNumber
	}
	r.store.mu.Lock()
	defer r.store.mu.Unlock()
	r.store.cases[caseKey(county, id)] = rec
	return nil
}

func (r *CaseRepo) Known(ctx context.Context, county string, ids []domain.CaseID) ([]domain.CaseID, error) {
	r.store.mu.RLock()
	defer r.store.mu.RUnlock()
	var known []domain.CaseID
	for _, id := range ids {
		if _, ok := r.store.cases[caseKey(county, id)]; ok {
			known = append(known, id)
		}
	}
	return known, nil
}

func (r *CaseRepo) Get(ctx context.Context, county string, id domain.CaseID) (domain.CaseRecord, error) {
	r.store.mu.RLock()
	defer r.store.mu.RUnlock()
	return r.store.cases[caseKey(county, id)], nil
}

// -----------------------------------------------------------------------------
// Run Repository
// -----------------------------------------------------------------------------

type RunRepo struct {
	store *MemoryStorage
}

func NewRunRepo(store *MemoryStorage) *RunRepo {
	return &RunRepo{store: store}
}

func (r *RunRepo) Start(ctx context.Context, run *domain.Run) error {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()
	cp := *run
	r.store.runs = append(r.store.runs, &cp)
	return nil
}

func (r *RunRepo) Finish(ctx context.Context, run *domain.Run) error {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()
	for i, existing := range r.store.runs {
		if existing.ID == run.ID {
			cp := *run
			r.store.runs[i] = &cp
			return nil
		}
	}
	return nil
}

func (r *RunRepo) Recent(ctx context.Context, limit int) ([]*domain.Run, error) {
	r.store.mu.RLock()
	defer r.store.mu.RUnlock()
	runs := make([]*domain.Run, len(r.store.runs))
	copy(runs, r.store.runs)
	sort.SliceStable(runs, func(i, j int) bool {
		return runs[i].StartedAt.After(runs[j].StartedAt)
	})
	if limit > 0 && len(runs) > limit {
		runs = runs[:limit]
	}
	return runs, nil
}

// -----------------------------------------------------------------------------
// Failed Case Repository
// -----------------------------------------------------------------------------

type FailedRepo struct {
	store *MemoryStorage
}

func NewFailedRepo(store *MemoryStorage) *FailedRepo {
	return &FailedRepo{store: store}
}

func (r *FailedRepo) Add(ctx context.Context, failed []domain.FailedCase) error {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()
	for _, fc := range failed {
		entries := r.store.failed[fc.County]
		replaced := false
		for i := range entries {
			if entries[i].CaseID == fc.CaseID {
				entries[i] = fc
				replaced = true
				break
			}
		}
		if !replaced {
			entries = append(entries, fc)
		}
		r.store.failed[fc.County] = entries
	}
	return nil
}

func (r *FailedRepo) List(ctx context.Context, county string) ([]domain.FailedCase, error) {
	r.store.mu.RLock()
	defer r.store.mu.RUnlock()
	out := make([]domain.FailedCase, len(r.store.failed[county]))
	copy(out, r.store.failed[county])
	sort.SliceStable(out, func(i, j int) bool {
		return out[i].RecordedAt.Before(out[j].RecordedAt)
	})
	return out, nil
}

func (r *FailedRepo) Resolve(ctx context.Context, county string, ids []domain.CaseID) error {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()
	drop := make(map[domain.CaseID]bool, len(ids))
	for _, id := range ids {
		drop[id] = true
	}
	kept := r.store.failed[county][:0]
	for _, fc := range r.store.failed[county] {
		if !drop[fc.CaseID] {
			kept = append(kept, fc)
		}
	}
	r.store.failed[county] = kept
	return nil
}

func (r *FailedRepo) Clear(ctx context.Context, county string) error {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()
	delete(r.store.failed, county)
	return nil
}
