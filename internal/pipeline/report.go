package pipeline

import (
	"fmt"

	"github.com/vietddude/docket/internal/core/domain"
)

// Notification subjects. Fetch and persist failures use distinct subjects so
// operators can tell "failed to scrape" from "failed to store".
const (
	SubjectFetchFailures   = "Case Numbers for Which Parsing Failed"
	SubjectPersistFailures = "Case Numbers for Which Sending to SQL Failed"
	SubjectFetchAttempt    = "Case Fetch Attempt Failed"
	SubjectFetchAborted    = "Case Fetch Aborted"
)

func fetchFailureReport(failed []domain.CaseID) domain.Notification {
	return domain.Notification{
		Subject: SubjectFetchFailures,
		Message: fmt.Sprintf(
			"Failed to parse the following %d case numbers:\n%s",
			len(failed), domain.JoinCaseIDs(failed),
		),
		Severity: domain.SeverityError,
	}
}

func persistFailureReport(failed []domain.CaseID) domain.Notification {
	return domain.Notification{
		Subject: SubjectPersistFailures,
		Message: fmt.Sprintf(
			"Failed to send the following case numbers to SQL:\n%s",
			domain.JoinCaseIDs(failed),
		),
		Severity: domain.SeverityError,
	}
}

func attemptFailureReport(attempt, maxAttempts int, err error) domain.Notification {
	return domain.Notification{
		Subject:  SubjectFetchAttempt,
		Message:  fmt.Sprintf("Failed to fetch cases on attempt %d of %d: %v", attempt, maxAttempts, err),
		Severity: domain.SeverityError,
		LogOnly:  true,
	}
}

func abortedReport(attempts, requested int, err error) domain.Notification {
	return domain.Notification{
		Subject: SubjectFetchAborted,
		Message: fmt.Sprintf(
			"Gave up after %d attempts; none of the %d requested case numbers were fetched. Last error: %v",
			attempts, requested, err,
		),
		Severity: domain.SeverityError,
	}
}
