package control

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/vietddude/docket/internal/core/config"
	"github.com/vietddude/docket/internal/core/domain"
	"github.com/vietddude/docket/internal/infra/notify"
	"github.com/vietddude/docket/internal/infra/output"
	redisclient "github.com/vietddude/docket/internal/infra/redis"
	"github.com/vietddude/docket/internal/infra/source"
	"github.com/vietddude/docket/internal/infra/storage"
	"github.com/vietddude/docket/internal/infra/storage/memory"
	"github.com/vietddude/docket/internal/infra/storage/postgres"
	"github.com/vietddude/docket/internal/metrics"
	"github.com/vietddude/docket/internal/pipeline"
)

// Options adjusts how an App is assembled.
type Options struct {
	// Source replaces the registry lookup when set.
	Source source.Source
	// Notifier replaces the log and email notifiers when set.
	Notifier notify.Notifier
}

// App wires a source, the pipeline and its sinks for one county.
type App struct {
	cfg      *config.AppConfig
	county   string
	source   source.Source
	runner   *pipeline.Runner
	notifier notify.Notifier

	cases  storage.CaseRepository
	runs   storage.RunRepository
	failed storage.FailedCaseRepository

	store       *memory.MemoryStorage
	db          *postgres.DB
	redisClient *redisclient.Client
	closers     []func() error

	log *slog.Logger
	now func() time.Time
}

// NewApp creates an App with all dependencies initialized.
// An unknown county fails here, before any identifier is read.
func NewApp(ctx context.Context, cfg *config.AppConfig, opts Options) (*App, error) {
	a := &App{
		cfg:    cfg,
		county: cfg.County,
		log:    slog.Default().With("county", cfg.County),
		now:    time.Now,
	}

	// 1. Source
	if opts.Source != nil {
		a.source = opts.Source
	} else if err := a.initSource(); err != nil {
		return nil, err
	}

	// 2. Storage
	if err := a.initStorage(ctx); err != nil {
		a.Close()
		return nil, err
	}

	// 3. Notifications
	if opts.Notifier != nil {
		a.notifier = opts.Notifier
	} else if err := a.initNotifier(); err != nil {
		a.Close()
		return nil, err
	}

	// 4. Pipeline
	fetcher := pipeline.NewFetcher(a.source, a.notifier, pipeline.FetcherConfig{
		County:      a.county,
		Workers:     cfg.Fetch.Workers,
		CallTimeout: cfg.Fetch.Timeout(),
	})
	a.runner = pipeline.NewRunner(fetcher, a.notifier, pipeline.RetryConfig{
		MaxAttempts:     cfg.Fetch.MaxAttempts,
		InitialDelay:    cfg.Fetch.RetryDelay(),
		MaxDelay:        cfg.Fetch.MaxDelay,
		BackoffMultiple: pipeline.DefaultRetryConfig.BackoffMultiple,
	}, a.county)

	return a, nil
}

func (a *App) initSource() error {
	registry, err := source.NewRegistry(a.cfg.Sources...)
	if err != nil {
		return err
	}
	variant, err := registry.Lookup(a.county)
	if err != nil {
		return err
	}

	var loader source.PageLoader
	if a.cfg.Browser.Enabled {
		browser, err := source.NewBrowserLoader(variant.Name, a.cfg.Browser)
		if err != nil {
			return fmt.Errorf("failed to start browser: %w", err)
		}
		a.closers = append(a.closers, browser.Close)
		loader = browser
		slog.Info("Using browser page loader", "show_browser", a.cfg.Browser.ShowBrowser)
	} else {
		loader = source.NewHTTPLoader(variant.Name, a.cfg.Fetch.Timeout())
		slog.Info("Using HTTP page loader")
	}

	a.source = source.NewPageSource(variant, loader)
	return nil
}

func (a *App) initStorage(ctx context.Context) error {
	if a.cfg.Database.URL != "" {
		db, err := postgres.NewDB(ctx, a.cfg.Database)
		if err != nil {
			return fmt.Errorf("failed to init db: %w", err)
		}
		a.db = db
		if err := postgres.Migrate(ctx, db); err != nil {
			return err
		}
		a.cases = postgres.NewCaseRepo(db)
		a.runs = postgres.NewRunRepo(db)
		slog.Info("Using PostgreSQL storage")
	} else {
		a.store = memory.NewMemoryStorage()
		a.cases = memory.NewCaseRepo(a.store)
		a.runs = memory.NewRunRepo(a.store)
		slog.Info("Using Memory storage")
	}

	if a.cfg.Redis.URL != "" {
		client, err := redisclient.NewClient(a.cfg.Redis)
		if err != nil {
			return fmt.Errorf("failed to init redis: %w", err)
		}
		a.redisClient = client
		a.failed = redisclient.NewFailedCaseRepo(client, a.cfg.Redis.TTL)
		slog.Info("Using Redis failure ledger")
	} else {
		if a.store == nil {
			a.store = memory.NewMemoryStorage()
		}
		a.failed = memory.NewFailedRepo(a.store)
	}
	return nil
}

func (a *App) initNotifier() error {
	notifiers := []notify.Notifier{notify.NewLogNotifier(nil)}
	if a.cfg.Email.Enabled() {
		email, err := notify.NewEmailNotifier(a.cfg.Email)
		if err != nil {
			return fmt.Errorf("failed to init email notifier: %w", err)
		}
		notifiers = append(notifiers, email)
	}
	a.notifier = notify.NewMulti(notifiers...)
	return nil
}

// Run fetches ids and delivers the result to the enabled sinks.
// Fetch and persist degradation is reported through notifications; the
// returned error only concerns the JSON artifact.
func (a *App) Run(ctx context.Context, ids []domain.CaseID) (domain.FetchResult, error) {
	run := &domain.Run{
		ID:        uuid.NewString(),
		County:    a.county,
		Status:    domain.RunStatusRunning,
		Requested: len(ids),
		StartedAt: a.now().UTC(),
	}
	if err := a.runs.Start(ctx, run); err != nil {
		a.log.Warn("Failed to record run start", "run_id", run.ID, "error", err)
	}
	a.log.Info("Fetching cases", "run_id", run.ID, "count", len(ids))

	outcome := a.runner.RunDetailed(ctx, ids)
	result := outcome.Result

	opts := pipeline.EmitOptions{JSON: a.cfg.JSONEnabled(), Persist: a.cfg.PersistEnabled()}
	var writer output.Writer
	var writerErr error
	if opts.JSON {
		writer, writerErr = output.ForDestination(ctx, a.cfg.Output, a.cfg.S3)
		if writerErr != nil {
			a.log.Error("Failed to open JSON output", "destination", a.cfg.Output, "error", writerErr)
			opts.JSON = false
		}
	}

	sink := pipeline.NewSink(a.county, writer, a.cases, a.notifier)
	report, emitErr := sink.Emit(ctx, result, opts)

	fetchFailed := result.Failed
	if outcome.Exhausted {
		fetchFailed = ids
	}
	a.updateLedger(ctx, run.ID, fetchFailed, result.Cases, report)

	run.Finish(result, outcome.Attempts, len(report.PersistFailed)+report.Unidentified, a.now().UTC())
	if err := a.runs.Finish(ctx, run); err != nil {
		a.log.Warn("Failed to record run finish", "run_id", run.ID, "error", err)
	}
	a.log.Info("Run finished",
		"run_id", run.ID,
		"status", run.Status,
		"fetched", run.Fetched,
		"fetch_failed", run.FetchFailed,
		"persist_failed", run.PersistFailed,
		"attempts", run.Attempts,
	)

	metrics.LastRunCases.WithLabelValues(a.county).Set(float64(len(result.Cases)))
	if err := metrics.Push(a.cfg.Metrics, a.county); err != nil {
		a.log.Warn("Failed to push metrics", "error", err)
	}

	return result, errors.Join(writerErr, emitErr)
}

// updateLedger records this run's failures and clears identifiers that
// made it all the way through. An aborted run records every identifier.
func (a *App) updateLedger(
	ctx context.Context,
	runID string,
	fetchFailed []domain.CaseID,
	cases []domain.CaseRecord,
	report pipeline.EmitReport,
) {
	at := a.now().UTC()
	var entries []domain.FailedCase
	for _, id := range fetchFailed {
		entries = append(entries, domain.FailedCase{County: a.county, CaseID: id, Stage: domain.FailureStageFetch, RunID: runID, RecordedAt: at})
	}
	for _, id := range report.PersistFailed {
		entries = append(entries, domain.FailedCase{County: a.county, CaseID: id, Stage: domain.FailureStagePersist, RunID: runID, RecordedAt: at})
	}
	if len(entries) > 0 {
		if err := a.failed.Add(ctx, entries); err != nil {
			a.log.Warn("Failed to record failed cases", "count", len(entries), "error", err)
		}
	}

	persistFailed := make(map[domain.CaseID]bool, len(report.PersistFailed))
	for _, id := range report.PersistFailed {
		persistFailed[id] = true
	}
	var done []domain.CaseID
	for _, rec := range cases {
		if id, ok := rec.CaseNumber(); ok && !persistFailed[id] {
			done = append(done, id)
		}
	}
	if len(done) > 0 {
		if err := a.failed.Resolve(ctx, a.county, done); err != nil {
			a.log.Warn("Failed to resolve failed cases", "count", len(done), "error", err)
		}
	}
}

// Failures lists the ledger for the App's county.
func (a *App) Failures(ctx context.Context) ([]domain.FailedCase, error) {
	return a.failed.List(ctx, a.county)
}

// RetryFailures runs the pipeline again over every identifier in the ledger.
func (a *App) RetryFailures(ctx context.Context) (domain.FetchResult, error) {
	entries, err := a.failed.List(ctx, a.county)
	if err != nil {
		return domain.EmptyResult(), fmt.Errorf("failed to list failed cases: %w", err)
	}
	if len(entries) == 0 {
		a.log.Info("No failed cases to retry")
		return domain.EmptyResult(), nil
	}

	ids := make([]domain.CaseID, 0, len(entries))
	for _, e := range entries {
		ids = append(ids, e.CaseID)
	}
	return a.Run(ctx, ids)
}

// ClearFailures empties the ledger for the App's county.
func (a *App) ClearFailures(ctx context.Context) error {
	return a.failed.Clear(ctx, a.county)
}

// RecentRuns returns the latest run records.
func (a *App) RecentRuns(ctx context.Context, limit int) ([]*domain.Run, error) {
	return a.runs.Recent(ctx, limit)
}

// Close releases the browser, database and redis connections.
func (a *App) Close() error {
	var errs []error
	for _, c := range a.closers {
		errs = append(errs, c())
	}
	if a.db != nil {
		errs = append(errs, a.db.Close())
	}
	if a.redisClient != nil {
		errs = append(errs, a.redisClient.Close())
	}
	return errors.Join(errs...)
}
