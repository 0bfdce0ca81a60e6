package pipeline

import (
	"context"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"

	"github.com/vietddude/docket/internal/core/domain"
	"github.com/vietddude/docket/internal/infra/source"
)

func noSleep(ctx context.Context, d time.Duration) error { return ctx.Err() }

func TestRunner_ExhaustionReturnsEmpty(t *testing.T) {
	src := newFakeSource("A1")
	src.faults["A1"] = errPortalDown
	notifier := &recordingNotifier{}

	r := NewRunner(NewFetcher(src, notifier, FetcherConfig{}), notifier, RetryConfig{MaxAttempts: 5}, "travis")
	r.sleep = noSleep

	out := r.RunDetailed(context.Background(), []domain.CaseID{"A1"})

	if !out.Exhausted || out.Attempts != 5 {
		t.Errorf("expected exhausted after 5 attempts, got %+v", out)
	}
	if got := src.callCount(); got != 5 {
		t.Errorf("expected 5 source calls, got %d", got)
	}
	if out.Result.Cases == nil || len(out.Result.Cases) != 0 || len(out.Result.Failed) != 0 {
		t.Errorf("expected empty result, got %+v", out.Result)
	}

	attempts := notifier.withSubject(SubjectFetchAttempt)
	if len(attempts) != 5 {
		t.Fatalf("expected 5 attempt notifications, got %d", len(attempts))
	}
	for _, n := range attempts {
		if !n.LogOnly {
			t.Errorf("attempt notification should be log only: %+v", n)
		}
	}
	if len(notifier.withSubject(SubjectFetchAborted)) != 1 {
		t.Errorf("expected one aborted notification")
	}
}

func TestRunner_ReplacesEarlierAttempts(t *testing.T) {
	partial := domain.FetchResult{Cases: []domain.CaseRecord{caseRecord("STALE")}}
	final := domain.FetchResult{
		Cases:  []domain.CaseRecord{caseRecord("A1")},
		Failed: []domain.CaseID{"A2"},
	}
	fetcher := &scriptedFetcher{
		results: []domain.FetchResult{partial, partial, final},
		errs:    []error{errPortalDown, errPortalDown, nil},
	}
	notifier := &recordingNotifier{}

	r := NewRunner(fetcher, notifier, RetryConfig{MaxAttempts: 5}, "travis")
	r.sleep = noSleep

	out := r.RunDetailed(context.Background(), []domain.CaseID{"A1", "A2"})
	if out.Attempts != 3 || out.Exhausted {
		t.Errorf("expected success on attempt 3, got %+v", out)
	}
	if diff := cmp.Diff(final, out.Result); diff != "" {
		t.Errorf("result mismatch (-want +got):\n%s", diff)
	}
	if got := len(notifier.withSubject(SubjectFetchAttempt)); got != 2 {
		t.Errorf("expected 2 attempt notifications, got %d", got)
	}
	if got := len(notifier.withSubject(SubjectFetchAborted)); got != 0 {
		t.Errorf("expected no aborted notification, got %d", got)
	}
}

func TestRunner_BacksOffBetweenAttempts(t *testing.T) {
	fetcher := &scriptedFetcher{
		results: []domain.FetchResult{{}},
		errs:    []error{errPortalDown},
	}
	r := NewRunner(fetcher, &recordingNotifier{}, RetryConfig{
		MaxAttempts:  4,
		InitialDelay: time.Second,
		MaxDelay:     3 * time.Second,
	}, "travis")

	var waits []time.Duration
	r.sleep = func(ctx context.Context, d time.Duration) error {
		waits = append(waits, d)
		return nil
	}

	r.Run(context.Background(), []domain.CaseID{"A1"})

	want := []time.Duration{time.Second, 2 * time.Second, 3 * time.Second}
	if diff := cmp.Diff(want, waits); diff != "" {
		t.Errorf("backoff mismatch (-want +got):\n%s", diff)
	}
}

func TestRunner_CancellationStopsRetrying(t *testing.T) {
	fetcher := &scriptedFetcher{
		results: []domain.FetchResult{{}},
		errs:    []error{errPortalDown},
	}
	notifier := &recordingNotifier{}
	r := NewRunner(fetcher, notifier, RetryConfig{MaxAttempts: 5, InitialDelay: time.Hour}, "travis")

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	out := r.RunDetailed(ctx, []domain.CaseID{"A1"})
	if fetcher.calls != 1 {
		t.Errorf("expected 1 attempt, got %d", fetcher.calls)
	}
	if !out.Result.Empty() {
		t.Errorf("expected empty result, got %+v", out.Result)
	}
	if got := len(notifier.withSubject(SubjectFetchAborted)); got != 1 {
		t.Errorf("expected one aborted notification, got %d", got)
	}
}

func TestRunner_WaitsForPortalRetryAfter(t *testing.T) {
	fetcher := &throttledFetcher{
		scriptedFetcher: scriptedFetcher{
			results: []domain.FetchResult{{}, {Cases: []domain.CaseRecord{caseRecord("A1")}}},
			errs:    []error{errPortalDown, nil},
		},
		retryAfter: 45 * time.Second,
	}
	r := NewRunner(fetcher, &recordingNotifier{}, RetryConfig{MaxAttempts: 5, InitialDelay: 2 * time.Second}, "travis")

	var waits []time.Duration
	r.sleep = func(ctx context.Context, d time.Duration) error {
		waits = append(waits, d)
		return nil
	}

	out := r.RunDetailed(context.Background(), []domain.CaseID{"A1"})
	if out.Attempts != 2 || out.Exhausted {
		t.Errorf("expected success on attempt 2, got %+v", out)
	}
	if diff := cmp.Diff([]time.Duration{45 * time.Second}, waits); diff != "" {
		t.Errorf("wait mismatch (-want +got):\n%s", diff)
	}
}

const minimalCasePage = `<html><body>
<div class="ssCaseDetailCaseNbr">Case No. <span>J1-CV-20-001</span></div>
</body></html>`

func TestRunner_RecoversFromPortalThrottle(t *testing.T) {
	var hits atomic.Int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if hits.Add(1) == 1 {
			w.Header().Set("Retry-After", "1")
			w.WriteHeader(http.StatusTooManyRequests)
			return
		}
		_, _ = w.Write([]byte(minimalCasePage))
	}))
	defer server.Close()

	variant := source.Variant{
		Name:        "test",
		URLTemplate: server.URL + "/case/{id}",
		Parse:       source.OdysseyParser("test"),
	}
	src := source.NewPageSource(variant, source.NewHTTPLoader("test", 5*time.Second))
	notifier := &recordingNotifier{}
	retry := DefaultRetryConfig
	retry.InitialDelay = 0

	r := NewRunner(NewFetcher(src, notifier, FetcherConfig{}), notifier, retry, "test")

	out := r.RunDetailed(context.Background(), []domain.CaseID{"J1-CV-20-001"})
	if out.Exhausted || out.Attempts != 2 {
		t.Fatalf("expected success on attempt 2, got attempts=%d exhausted=%v", out.Attempts, out.Exhausted)
	}
	if got := hits.Load(); got != 2 {
		t.Errorf("expected the portal to see 2 requests, got %d", got)
	}
	if len(out.Result.Cases) != 1 {
		t.Errorf("expected 1 case, got %+v", out.Result)
	}
}

func TestCalculateBackoff(t *testing.T) {
	cfg := RetryConfig{InitialDelay: 2 * time.Second, MaxDelay: 60 * time.Second, BackoffMultiple: 2}

	tests := []struct {
		attempt int
		want    time.Duration
	}{
		{0, 2 * time.Second},
		{1, 4 * time.Second},
		{4, 32 * time.Second},
		{5, 60 * time.Second},
	}
	for _, tt := range tests {
		if got := calculateBackoff(tt.attempt, cfg); got != tt.want {
			t.Errorf("calculateBackoff(%d) = %v, want %v", tt.attempt, got, tt.want)
		}
	}

	if got := calculateBackoff(3, RetryConfig{}); got != 0 {
		t.Errorf("zero initial delay should not wait, got %v", got)
	}
}
