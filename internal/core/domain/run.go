package domain

import "time"

type RunStatus string

const (
	RunStatusRunning   RunStatus = "running"
	RunStatusCompleted RunStatus = "completed"
	RunStatusDegraded  RunStatus = "degraded"
	RunStatusAborted   RunStatus = "aborted"
)

// Run records one invocation of the pipeline.
type Run struct {
	ID            string     `db:"id"`
	County        string     `db:"county"`
	Status        RunStatus  `db:"status"`
	Requested     int        `db:"requested"`
	Fetched       int        `db:"fetched"`
	FetchFailed   int        `db:"fetch_failed"`
	PersistFailed int        `db:"persist_failed"`
	Attempts      int        `db:"attempts"`
	StartedAt     time.Time  `db:"started_at"`
	FinishedAt    *time.Time `db:"finished_at"`
}

// Finish fills in the counters from a completed invocation.
func (r *Run) Finish(res FetchResult, attempts, persistFailed int, at time.Time) {
	r.Fetched = len(res.Cases)
	r.FetchFailed = len(res.Failed)
	r.PersistFailed = persistFailed
	r.Attempts = attempts
	r.FinishedAt = &at

	switch {
	case res.Empty() && r.Requested > 0:
		r.Status = RunStatusAborted
	case r.FetchFailed > 0 || r.PersistFailed > 0:
		r.Status = RunStatusDegraded
	default:
		r.Status = RunStatusCompleted
	}
}
