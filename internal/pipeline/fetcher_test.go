package pipeline

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"

	"github.com/vietddude/docket/internal/core/domain"
)

func TestFetcher_PartitionsIdentifiers(t *testing.T) {
	src := newFakeSource("A1", "A3")
	notifier := &recordingNotifier{}
	f := NewFetcher(src, notifier, FetcherConfig{County: "travis"})

	ids := []domain.CaseID{"A1", "A2", "A3", "A4"}
	res, err := f.Fetch(context.Background(), ids)
	if err != nil {
		t.Fatalf("Fetch failed: %v", err)
	}

	if diff := cmp.Diff([]domain.CaseRecord{caseRecord("A1"), caseRecord("A3")}, res.Cases); diff != "" {
		t.Errorf("cases mismatch (-want +got):\n%s", diff)
	}
	if diff := cmp.Diff([]domain.CaseID{"A2", "A4"}, res.Failed); diff != "" {
		t.Errorf("failed mismatch (-want +got):\n%s", diff)
	}
	if res.Len() != len(ids) {
		t.Errorf("expected %d outcomes, got %d", len(ids), res.Len())
	}
	if diff := cmp.Diff(ids, src.calls); diff != "" {
		t.Errorf("source calls mismatch (-want +got):\n%s", diff)
	}
}

func TestFetcher_AllMissesSendOneNotification(t *testing.T) {
	src := newFakeSource()
	notifier := &recordingNotifier{}
	f := NewFetcher(src, notifier, FetcherConfig{County: "travis"})

	res, err := f.Fetch(context.Background(), []domain.CaseID{"X", "Y"})
	if err != nil {
		t.Fatalf("Fetch failed: %v", err)
	}
	if len(res.Cases) != 0 {
		t.Errorf("expected no cases, got %d", len(res.Cases))
	}

	if len(notifier.sent) != 1 {
		t.Fatalf("expected exactly 1 notification, got %d", len(notifier.sent))
	}
	note := notifier.sent[0]
	if note.Subject != SubjectFetchFailures {
		t.Errorf("unexpected subject %q", note.Subject)
	}
	if note.Severity != domain.SeverityError {
		t.Errorf("expected error severity, got %s", note.Severity)
	}
	want := "Failed to parse the following 2 case numbers:\nX, Y"
	if note.Message != want {
		t.Errorf("message = %q, want %q", note.Message, want)
	}
}

func TestFetcher_NoNotificationWithoutFailures(t *testing.T) {
	notifier := &recordingNotifier{}
	f := NewFetcher(newFakeSource("A1"), notifier, FetcherConfig{})

	if _, err := f.Fetch(context.Background(), []domain.CaseID{"A1"}); err != nil {
		t.Fatalf("Fetch failed: %v", err)
	}
	if len(notifier.sent) != 0 {
		t.Errorf("expected no notifications, got %v", notifier.sent)
	}
}

func TestFetcher_FaultAbortsPass(t *testing.T) {
	src := newFakeSource("A1", "A3")
	src.faults["A2"] = errPortalDown
	notifier := &recordingNotifier{}
	f := NewFetcher(src, notifier, FetcherConfig{})

	_, err := f.Fetch(context.Background(), []domain.CaseID{"A1", "A2", "A3", "A4"})
	if !errors.Is(err, errPortalDown) {
		t.Fatalf("expected portal error, got %v", err)
	}
	if len(notifier.sent) != 0 {
		t.Errorf("aborted pass must not notify, got %v", notifier.sent)
	}
	if got := src.callCount(); got != 2 {
		t.Errorf("expected source to stop after the fault, got %d calls", got)
	}
}

func TestFetcher_ConcurrentPassKeepsInputOrder(t *testing.T) {
	var ids []domain.CaseID
	src := newFakeSource()
	for _, n := range strings.Split("a b c d e f g h i j k l", " ") {
		id := domain.CaseID(n)
		ids = append(ids, id)
		if n != "c" && n != "h" {
			src.records[id] = caseRecord(id)
		}
	}
	notifier := &recordingNotifier{}
	f := NewFetcher(src, notifier, FetcherConfig{Workers: 4})

	res, err := f.Fetch(context.Background(), ids)
	if err != nil {
		t.Fatalf("Fetch failed: %v", err)
	}
	if len(res.Cases) != 10 {
		t.Fatalf("expected 10 cases, got %d", len(res.Cases))
	}
	for i, rec := range res.Cases[1:] {
		prev, _ := res.Cases[i].CaseNumber()
		cur, _ := rec.CaseNumber()
		if prev >= cur {
			t.Errorf("cases out of order: %s before %s", prev, cur)
		}
	}
	if diff := cmp.Diff([]domain.CaseID{"c", "h"}, res.Failed); diff != "" {
		t.Errorf("failed mismatch (-want +got):\n%s", diff)
	}
	if len(notifier.sent) != 1 {
		t.Errorf("expected 1 notification, got %d", len(notifier.sent))
	}
}

type slowSource struct{}

func (slowSource) FetchCase(ctx context.Context, id domain.CaseID) (domain.CaseRecord, bool, error) {
	<-ctx.Done()
	return nil, false, ctx.Err()
}

func TestFetcher_CallTimeoutIsFatal(t *testing.T) {
	f := NewFetcher(slowSource{}, &recordingNotifier{}, FetcherConfig{CallTimeout: 10 * time.Millisecond})

	_, err := f.Fetch(context.Background(), []domain.CaseID{"A1"})
	if !errors.Is(err, context.DeadlineExceeded) {
		t.Fatalf("expected deadline exceeded, got %v", err)
	}
}

type panickySource struct{}

func (panickySource) FetchCase(ctx context.Context, id domain.CaseID) (domain.CaseRecord, bool, error) {
	panic("selector exploded")
}

func TestFetcher_SourcePanicIsFatal(t *testing.T) {
	f := NewFetcher(panickySource{}, &recordingNotifier{}, FetcherConfig{})

	_, err := f.Fetch(context.Background(), []domain.CaseID{"A1"})
	if err == nil || !strings.Contains(err.Error(), "selector exploded") {
		t.Fatalf("expected panic to surface as an error, got %v", err)
	}
}
