package pipeline

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/vietddude/docket/internal/core/domain"
	"github.com/vietddude/docket/internal/infra/notify"
	"github.com/vietddude/docket/internal/infra/source"
	"github.com/vietddude/docket/internal/metrics"
)

// FetcherConfig tunes a single fetch pass.
type FetcherConfig struct {
	County      string
	Workers     int           // concurrent source calls; 1 keeps calls strictly sequential
	CallTimeout time.Duration // per identifier; 0 disables
}

// Fetcher drives a Source over a list of identifiers, partitioning the
// outcome into parsed records and failed identifiers.
type Fetcher struct {
	source   source.Source
	notifier notify.Notifier
	cfg      FetcherConfig
	log      *slog.Logger
}

// NewFetcher creates a fetcher reusing src for every identifier.
func NewFetcher(src source.Source, notifier notify.Notifier, cfg FetcherConfig) *Fetcher {
	if cfg.Workers <= 0 {
		cfg.Workers = 1
	}
	return &Fetcher{
		source:   src,
		notifier: notifier,
		cfg:      cfg,
		log:      slog.Default().With("component", "fetcher", "county", cfg.County),
	}
}

// RetryAfter forwards the source's throttle wait, if it reports one.
func (f *Fetcher) RetryAfter() time.Duration {
	if ra, ok := f.source.(source.RetryAfterer); ok {
		return ra.RetryAfter()
	}
	return 0
}

type lookup struct {
	rec   domain.CaseRecord
	found bool
}

// Fetch calls the source once per identifier. A miss never stops the pass;
// a returned error means the whole pass faulted and its results are void.
// When misses occur, exactly one failure report is sent after the pass.
func (f *Fetcher) Fetch(ctx context.Context, ids []domain.CaseID) (domain.FetchResult, error) {
	lookups := make([]lookup, len(ids))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(f.cfg.Workers)

	for i, id := range ids {
		g.Go(func() (err error) {
			if gctx.Err() != nil {
				return nil
			}
			defer func() {
				if r := recover(); r != nil {
					err = fmt.Errorf("source panicked on case %s: %v", id, r)
				}
			}()

			callCtx := gctx
			if f.cfg.CallTimeout > 0 {
				var cancel context.CancelFunc
				callCtx, cancel = context.WithTimeout(gctx, f.cfg.CallTimeout)
				defer cancel()
			}

			rec, found, err := f.source.FetchCase(callCtx, id)
			if err != nil {
				return err
			}
			lookups[i] = lookup{rec: rec, found: found}
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return domain.FetchResult{}, err
	}
	if err := ctx.Err(); err != nil {
		return domain.FetchResult{}, err
	}

	result := domain.EmptyResult()
	for i, l := range lookups {
		if l.found {
			result.Cases = append(result.Cases, l.rec)
		} else {
			result.Failed = append(result.Failed, ids[i])
		}
	}

	metrics.CasesFetched.WithLabelValues(f.cfg.County).Add(float64(len(result.Cases)))
	f.log.Info("Finished fetch pass", "requested", len(ids), "fetched", len(result.Cases), "failed", len(result.Failed))

	if len(result.Failed) > 0 {
		metrics.CasesFailed.WithLabelValues(f.cfg.County, string(domain.FailureStageFetch)).Add(float64(len(result.Failed)))
		if err := f.notifier.Notify(ctx, fetchFailureReport(result.Failed)); err != nil {
			f.log.Warn("Failed to report fetch failures", "error", err)
		}
	}

	return result, nil
}
