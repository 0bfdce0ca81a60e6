package pipeline

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/vietddude/docket/internal/core/domain"
)

var errPortalDown = errors.New("portal unreachable")

// fakeSource answers from a fixed table. Identifiers missing from records
// are misses; identifiers in faults fail the batch.
type fakeSource struct {
	mu      sync.Mutex
	records map[domain.CaseID]domain.CaseRecord
	faults  map[domain.CaseID]error
	calls   []domain.CaseID
}

func newFakeSource(ids ...domain.CaseID) *fakeSource {
	s := &fakeSource{
		records: make(map[domain.CaseID]domain.CaseRecord),
		faults:  make(map[domain.CaseID]error),
	}
	for _, id := range ids {
		s.records[id] = caseRecord(id)
	}
	return s
}

func (s *fakeSource) FetchCase(ctx context.Context, id domain.CaseID) (domain.CaseRecord, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.calls = append(s.calls, id)
	if err, ok := s.faults[id]; ok {
		return nil, false, err
	}
	rec, ok := s.records[id]
	return rec, ok, nil
}

func (s *fakeSource) callCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.calls)
}

func caseRecord(id domain.CaseID) domain.CaseRecord {
	return domain.CaseRecord{
		domain.CaseNumberField: string(id),
		"style":                "State v. Doe <" + string(id) + ">",
	}
}

// recordingNotifier keeps every notification it is handed.
type recordingNotifier struct {
	mu   sync.Mutex
	sent []domain.Notification
}

func (n *recordingNotifier) Notify(ctx context.Context, note domain.Notification) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.sent = append(n.sent, note)
	return nil
}

func (n *recordingNotifier) withSubject(subject string) []domain.Notification {
	n.mu.Lock()
	defer n.mu.Unlock()
	var out []domain.Notification
	for _, note := range n.sent {
		if note.Subject == subject {
			out = append(out, note)
		}
	}
	return out
}

// scriptedFetcher returns one scripted answer per call; the last repeats.
type scriptedFetcher struct {
	results []domain.FetchResult
	errs    []error
	calls   int
}

func (f *scriptedFetcher) Fetch(ctx context.Context, ids []domain.CaseID) (domain.FetchResult, error) {
	i := f.calls
	if i >= len(f.errs) {
		i = len(f.errs) - 1
	}
	f.calls++
	return f.results[i], f.errs[i]
}

// memoryWriter captures the JSON artifact.
type memoryWriter struct {
	body   []byte
	writes int
	err    error
}

func (w *memoryWriter) Write(ctx context.Context, body []byte) error {
	if w.err != nil {
		return w.err
	}
	w.writes++
	w.body = append([]byte(nil), body...)
	return nil
}

func (w *memoryWriter) Destination() string { return "memory" }

// failingRepo rejects chosen case numbers and panics on records without one.
type failingRepo struct {
	reject map[domain.CaseID]bool
	saved  []domain.CaseID
	panics bool
}

func (r *failingRepo) SaveCase(ctx context.Context, county string, rec domain.CaseRecord) error {
	id, ok := rec.CaseNumber()
	if !ok {
		if r.panics {
			panic("record without case number")
		}
		return errors.New("record without case number")
	}
	if r.reject[id] {
		return errors.New("constraint violation")
	}
	r.saved = append(r.saved, id)
	return nil
}

func (r *failingRepo) Known(ctx context.Context, county string, ids []domain.CaseID) ([]domain.CaseID, error) {
	return nil, nil
}

// throttledFetcher is a scriptedFetcher whose source reports a retry-after.
type throttledFetcher struct {
	scriptedFetcher
	retryAfter time.Duration
}

func (f *throttledFetcher) RetryAfter() time.Duration { return f.retryAfter }
