package pipeline

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"

	"github.com/vietddude/docket/internal/core/domain"
	"github.com/vietddude/docket/internal/infra/notify"
	"github.com/vietddude/docket/internal/infra/output"
	"github.com/vietddude/docket/internal/infra/storage"
	"github.com/vietddude/docket/internal/metrics"
)

// EmitOptions selects the sinks a result is delivered to.
type EmitOptions struct {
	JSON    bool
	Persist bool
}

// EmitReport summarises what Emit delivered.
type EmitReport struct {
	Written       bool
	Stored        int
	PersistFailed []domain.CaseID
	Unidentified  int
}

// Sink delivers fetched records to the JSON artifact and the case store.
type Sink struct {
	county   string
	writer   output.Writer
	repo     storage.CaseRepository
	notifier notify.Notifier
	log      *slog.Logger
}

// NewSink creates a sink. writer and repo may be nil when the matching
// option is never enabled.
func NewSink(county string, writer output.Writer, repo storage.CaseRepository, notifier notify.Notifier) *Sink {
	return &Sink{
		county:   county,
		writer:   writer,
		repo:     repo,
		notifier: notifier,
		log:      slog.Default().With("component", "sink", "county", county),
	}
}

// Emit writes the JSON artifact, then stores each record. Persistence still
// runs when the artifact fails; the artifact error is returned afterwards.
func (s *Sink) Emit(ctx context.Context, result domain.FetchResult, opts EmitOptions) (EmitReport, error) {
	var report EmitReport
	var jsonErr error

	if opts.JSON {
		if jsonErr = s.writeJSON(ctx, result.Cases); jsonErr == nil {
			report.Written = true
		} else {
			s.log.Error("Failed to write JSON output", "error", jsonErr)
		}
	}

	if opts.Persist {
		if s.repo == nil {
			return report, errors.Join(jsonErr, errors.New("persistence enabled without a case repository"))
		}
		s.persist(ctx, result.Cases, &report)
	}

	return report, jsonErr
}

func (s *Sink) writeJSON(ctx context.Context, cases []domain.CaseRecord) error {
	if s.writer == nil {
		return errors.New("JSON output enabled without a writer")
	}
	if cases == nil {
		cases = []domain.CaseRecord{}
	}

	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	if err := enc.Encode(cases); err != nil {
		return fmt.Errorf("failed to encode cases: %w", err)
	}
	if err := s.writer.Write(ctx, buf.Bytes()); err != nil {
		return fmt.Errorf("failed to write %s: %w", s.writer.Destination(), err)
	}
	s.log.Info("Wrote cases", "destination", s.writer.Destination(), "count", len(cases))
	return nil
}

func (s *Sink) persist(ctx context.Context, cases []domain.CaseRecord, report *EmitReport) {
	s.log.Info(fmt.Sprintf("Finished making case list, now will send all %d cases to SQL.", len(cases)))

	for _, rec := range cases {
		outcome := s.persistOne(ctx, rec)
		switch outcome.Status {
		case domain.PersistStored:
			report.Stored++
		case domain.PersistFailedIdentified:
			report.PersistFailed = append(report.PersistFailed, outcome.CaseID)
			s.log.Error("Failed to store case", "case_number", outcome.CaseID, "error", outcome.Err)
		case domain.PersistFailedUnidentified:
			report.Unidentified++
			s.log.Warn("Failed to store case without a case number", "error", outcome.Err)
		default:
			panic(fmt.Sprintf("unhandled persist status %v", outcome.Status))
		}
	}

	failed := len(report.PersistFailed) + report.Unidentified
	if failed > 0 {
		metrics.CasesFailed.WithLabelValues(s.county, string(domain.FailureStagePersist)).Add(float64(failed))
	}
	if len(report.PersistFailed) > 0 {
		if err := s.notifier.Notify(ctx, persistFailureReport(report.PersistFailed)); err != nil {
			s.log.Warn("Failed to report persist failures", "error", err)
		}
	}

	s.log.Info("Finished sending cases to SQL.")
}

// persistOne stores rec, turning every failure, panics included, into an outcome.
func (s *Sink) persistOne(ctx context.Context, rec domain.CaseRecord) (outcome domain.PersistOutcome) {
	defer func() {
		if r := recover(); r != nil {
			outcome = domain.PersistFailed(rec, fmt.Errorf("panic while storing case: %v", r))
		}
	}()

	if err := s.repo.SaveCase(ctx, s.county, rec); err != nil {
		return domain.PersistFailed(rec, err)
	}
	return domain.Stored()
}
