package domain

import "time"

// FailureStage tells which pipeline stage lost a case.
type FailureStage string

const (
	FailureStageFetch   FailureStage = "fetch"
	FailureStagePersist FailureStage = "persist"
)

// FailedCase is a ledger entry for an identifier that failed during a run.
type FailedCase struct {
	County     string       `json:"county"`
	CaseID     CaseID       `json:"case_id"`
	Stage      FailureStage `json:"stage"`
	RunID      string       `json:"run_id"`
	RecordedAt time.Time    `json:"recorded_at"`
}
