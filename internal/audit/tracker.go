package audit

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"
)

// Tracker records batch runs in the sync_runs table so that operators can
// see what each pass did and when it last ran.
type Tracker struct {
	db *sql.DB
}

// NewTracker creates a run tracker
func NewTracker(db *sql.DB) *Tracker {
	return &Tracker{db: db}
}

// RunResult accumulates the counters of one batch run. Per-record failures
// land in ErrorDetails and never abort the batch.
type RunResult struct {
	Kind         string    `json:"kind"`
	StartTime    time.Time `json:"start_time"`
	EndTime      time.Time `json:"end_time"`
	Fetched      int       `json:"fetched"`
	Resolved     int       `json:"resolved"`
	Matched      int       `json:"matched"`
	Updated      int       `json:"updated"`
	Unchanged    int       `json:"unchanged"`
	Conflicts    int       `json:"conflicts"`
	Failures     int       `json:"failures"`
	Skipped      int       `json:"skipped"`
	ErrorDetails []string  `json:"error_details,omitempty"`
}

// Duration renders the run's elapsed time.
func (r *RunResult) Duration() string {
	return r.EndTime.Sub(r.StartTime).String()
}

// Run is a persisted sync_runs row.
type Run struct {
	ID         int64      `json:"id"`
	Kind       string     `json:"kind"`
	StartedAt  time.Time  `json:"started_at"`
	FinishedAt *time.Time `json:"finished_at,omitempty"`
	Fetched    int        `json:"fetched"`
	Resolved   int        `json:"resolved"`
	Matched    int        `json:"matched"`
	Updated    int        `json:"updated"`
	Unchanged  int        `json:"unchanged"`
	Conflicts  int        `json:"conflicts"`
	Failures   int        `json:"failures"`
	Skipped    int        `json:"skipped"`
	Errors     []string   `json:"errors,omitempty"`
}

// Start inserts a new in-progress run row and returns its id.
func (t *Tracker) Start(ctx context.Context, kind string) (int64, error) {
	var id int64
	err := t.db.QueryRowContext(ctx, `
		INSERT INTO sync_runs (kind, started_at) VALUES ($1, $2) RETURNING id`,
		kind, time.Now()).Scan(&id)
	if err != nil {
		return 0, fmt.Errorf("failed to start run: %w", err)
	}
	return id, nil
}

// Finish stamps the run row with its final counters.
func (t *Tracker) Finish(ctx context.Context, runID int64, result *RunResult) error {
	var details interface{}
	if len(result.ErrorDetails) > 0 {
		raw, err := json.Marshal(result.ErrorDetails)
		if err != nil {
			return fmt.Errorf("failed to marshal error details: %w", err)
		}
		details = raw
	}

	_, err := t.db.ExecContext(ctx, `
		UPDATE sync_runs SET
			finished_at = $2,
			fetched = $3, resolved = $4, matched = $5, updated = $6,
			unchanged = $7, conflicts = $8, failures = $9, skipped = $10,
			error_details = $11
		WHERE id = $1`,
		runID, time.Now(), result.Fetched, result.Resolved, result.Matched,
		result.Updated, result.Unchanged, result.Conflicts, result.Failures,
		result.Skipped, details)
	if err != nil {
		return fmt.Errorf("failed to finish run %d: %w", runID, err)
	}
	return nil
}

// ListRecent returns the most recent runs, newest first.
func (t *Tracker) ListRecent(ctx context.Context, limit int) ([]Run, error) {
	if limit <= 0 {
		limit = 20
	}

	rows, err := t.db.QueryContext(ctx, `
		SELECT id, kind, started_at, finished_at, fetched, resolved, matched,
			updated, unchanged, conflicts, failures, skipped, error_details
		FROM sync_runs
		ORDER BY started_at DESC
		LIMIT $1`, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to list runs: %w", err)
	}
	defer rows.Close()

	var runs []Run
	for rows.Next() {
		var (
			run      Run
			finished sql.NullTime
			details  []byte
		)
		err := rows.Scan(&run.ID, &run.Kind, &run.StartedAt, &finished,
			&run.Fetched, &run.Resolved, &run.Matched, &run.Updated,
			&run.Unchanged, &run.Conflicts, &run.Failures, &run.Skipped, &details)
		if err != nil {
			return nil, err
		}
		if finished.Valid {
			t := finished.Time
			run.FinishedAt = &t
		}
		if len(details) > 0 {
			_ = json.Unmarshal(details, &run.Errors)
		}
		runs = append(runs, run)
	}
	return runs, rows.Err()
}
