package logging

import "time"

// #region run-entry
// RunEntry is a single row in the run_log table.
type RunEntry struct {
	RunID       string // empty when the run was not recorded
	TriggerType string // "cli" | "grpc"
	Dataset     string
	N           int
	EntityCount int
	Duration    time.Duration
	Outcome     string // "ok" | "error"
	Reason      string
	CreatedAt   time.Time
}

// #endregion run-entry

const (
	OutcomeOK    = "ok"
	OutcomeError = "error"
)
