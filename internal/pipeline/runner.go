package pipeline

import (
	"context"
	"log/slog"
	"time"

	"github.com/vietddude/docket/internal/core/domain"
	"github.com/vietddude/docket/internal/infra/notify"
	"github.com/vietddude/docket/internal/infra/source"
	"github.com/vietddude/docket/internal/metrics"
)

// BatchFetcher performs one fetch pass over a batch.
type BatchFetcher interface {
	Fetch(ctx context.Context, ids []domain.CaseID) (domain.FetchResult, error)
}

// RunOutcome describes how a batch run ended.
type RunOutcome struct {
	Result    domain.FetchResult
	Attempts  int
	Exhausted bool // every attempt faulted
}

// Runner retries the whole batch when a fetch pass faults.
type Runner struct {
	fetcher  BatchFetcher
	notifier notify.Notifier
	cfg      RetryConfig
	county   string
	log      *slog.Logger
	sleep    func(ctx context.Context, d time.Duration) error
}

// NewRunner wraps fetcher with bounded whole-batch retry.
func NewRunner(fetcher BatchFetcher, notifier notify.Notifier, cfg RetryConfig, county string) *Runner {
	if cfg.MaxAttempts <= 0 {
		cfg.MaxAttempts = DefaultRetryConfig.MaxAttempts
	}
	if cfg.BackoffMultiple == 0 {
		cfg.BackoffMultiple = DefaultRetryConfig.BackoffMultiple
	}
	return &Runner{
		fetcher:  fetcher,
		notifier: notifier,
		cfg:      cfg,
		county:   county,
		log:      slog.Default().With("component", "runner", "county", county),
		sleep:    sleepContext,
	}
}

// Run fetches ids, retrying the entire batch on a fault. It never fails:
// when every attempt faults the result is empty.
func (r *Runner) Run(ctx context.Context, ids []domain.CaseID) domain.FetchResult {
	return r.RunDetailed(ctx, ids).Result
}

// RunDetailed is Run with the attempt count.
// Results of faulted attempts are discarded, never merged into a later attempt.
func (r *Runner) RunDetailed(ctx context.Context, ids []domain.CaseID) RunOutcome {
	var lastErr error

	for attempt := 1; attempt <= r.cfg.MaxAttempts; attempt++ {
		result, err := r.fetcher.Fetch(ctx, ids)
		if err == nil {
			metrics.FetchAttempts.WithLabelValues(r.county, "ok").Inc()
			return RunOutcome{Result: result, Attempts: attempt}
		}

		lastErr = err
		metrics.FetchAttempts.WithLabelValues(r.county, "fault").Inc()
		r.notify(ctx, attemptFailureReport(attempt, r.cfg.MaxAttempts, err))

		if attempt == r.cfg.MaxAttempts {
			break
		}

		if err := r.sleep(ctx, r.nextDelay(attempt)); err != nil {
			r.log.Warn("Batch retry cancelled", "attempt", attempt, "error", err)
			r.notify(ctx, abortedReport(attempt, len(ids), lastErr))
			return RunOutcome{Result: domain.EmptyResult(), Attempts: attempt, Exhausted: true}
		}
	}

	r.notify(ctx, abortedReport(r.cfg.MaxAttempts, len(ids), lastErr))
	return RunOutcome{Result: domain.EmptyResult(), Attempts: r.cfg.MaxAttempts, Exhausted: true}
}

// nextDelay is the backoff after the given failed attempt, stretched to the
// portal's retry-after so the next attempt is not refused locally.
func (r *Runner) nextDelay(attempt int) time.Duration {
	delay := calculateBackoff(attempt-1, r.cfg)
	if ra, ok := r.fetcher.(source.RetryAfterer); ok {
		if wait := ra.RetryAfter(); wait > delay {
			r.log.Info("Waiting for portal throttle to clear", "attempt", attempt, "retry_after", wait)
			delay = wait
		}
	}
	return delay
}

func (r *Runner) notify(ctx context.Context, n domain.Notification) {
	// A cancelled run still reports, so detach from ctx cancellation.
	if err := r.notifier.Notify(context.WithoutCancel(ctx), n); err != nil {
		r.log.Warn("Failed to send notification", "subject", n.Subject, "error", err)
	}
}
