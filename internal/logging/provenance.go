package logging

import (
	"database/sql"
	"fmt"
	"time"
)

// #region log-run
// LogRun writes an evaluation entry to the run_log table.
func LogRun(db *sql.DB, entry RunEntry) error {
	if entry.CreatedAt.IsZero() {
		entry.CreatedAt = time.Now().UTC()
	}

	_, err := db.Exec(
		`INSERT INTO run_log (run_id, trigger_type, dataset, n, entity_count, duration_ms, outcome, reason, created_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		nullIfEmpty(entry.RunID),
		entry.TriggerType,
		nullIfEmpty(entry.Dataset),
		entry.N,
		entry.EntityCount,
		float64(entry.Duration)/float64(time.Millisecond),
		entry.Outcome,
		nullIfEmpty(entry.Reason),
		entry.CreatedAt.UTC().Format(time.RFC3339Nano),
	)
	if err != nil {
		return fmt.Errorf("log run: %w", err)
	}
	return nil
}

// #endregion log-run

// #region recent-runs
// RecentRuns returns up to limit run_log entries, newest first.
func RecentRuns(db *sql.DB, limit int) ([]RunEntry, error) {
	rows, err := db.Query(
		`SELECT run_id, trigger_type, dataset, n, entity_count, duration_ms, outcome, reason, created_at
		 FROM run_log ORDER BY id DESC LIMIT ?`, limit,
	)
	if err != nil {
		return nil, fmt.Errorf("recent runs: %w", err)
	}
	defer rows.Close()

	var entries []RunEntry
	for rows.Next() {
		var e RunEntry
		var runID, dataset, reason sql.NullString
		var durationMS float64
		var createdStr string
		if err := rows.Scan(&runID, &e.TriggerType, &dataset, &e.N, &e.EntityCount,
			&durationMS, &e.Outcome, &reason, &createdStr); err != nil {
			return nil, fmt.Errorf("scan row: %w", err)
		}
		e.RunID = runID.String
		e.Dataset = dataset.String
		e.Reason = reason.String
		e.Duration = time.Duration(durationMS * float64(time.Millisecond))
		e.CreatedAt, _ = time.Parse(time.RFC3339Nano, createdStr)
		entries = append(entries, e)
	}
	return entries, rows.Err()
}

// #endregion recent-runs

// #region helpers
func nullIfEmpty(s string) interface{} {
	if s == "" {
		return nil
	}
	return s
}

// #endregion helpers
