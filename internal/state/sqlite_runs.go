package state

import (
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/leapstack-labs/leapfeat/pkg/core"
)

// --- Run operations ---

// CreateRun creates a new pipeline run in the running state.
func (s *SQLiteStore) CreateRun(config string) (*core.Run, error) {
	if s.db == nil {
		return nil, fmt.Errorf("database not opened")
	}

	run := &core.Run{
		ID:        generateID(),
		Config:    config,
		Status:    core.RunStatusRunning,
		StartedAt: time.Now().UTC(),
	}

	s.logger.Debug("creating run", slog.String("id", run.ID), slog.String("config", config))

	_, err := s.db.Exec(
		`INSERT INTO runs (id, config, status, started_at) VALUES (?, ?, ?, ?)`,
		run.ID, run.Config, string(run.Status), formatTime(run.StartedAt),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create run: %w", err)
	}
	return run, nil
}

// GetRun retrieves a run by ID.
func (s *SQLiteStore) GetRun(id string) (*core.Run, error) {
	if s.db == nil {
		return nil, fmt.Errorf("database not opened")
	}

	row := s.db.QueryRow(
		`SELECT id, config, status, started_at, completed_at, error FROM runs WHERE id = ?`, id)
	run, err := scanRun(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("run not found: %s", id)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get run: %w", err)
	}
	return run, nil
}

// CompleteRun marks a run as finished with the given status.
func (s *SQLiteStore) CompleteRun(id string, status core.RunStatus, errMsg string) error {
	if s.db == nil {
		return fmt.Errorf("database not opened")
	}

	res, err := s.db.Exec(
		`UPDATE runs SET status = ?, completed_at = ?, error = ? WHERE id = ?`,
		string(status), formatTime(time.Now()), nullString(errMsg), id,
	)
	if err != nil {
		return fmt.Errorf("failed to complete run: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return fmt.Errorf("run not found: %s", id)
	}
	return nil
}

// ListRuns returns the most recent runs, newest first. A limit <= 0 returns all runs.
func (s *SQLiteStore) ListRuns(limit int) ([]*core.Run, error) {
	if s.db == nil {
		return nil, fmt.Errorf("database not opened")
	}
	if limit <= 0 {
		limit = -1
	}

	rows, err := s.db.Query(
		`SELECT id, config, status, started_at, completed_at, error FROM runs
		 ORDER BY started_at DESC, rowid DESC LIMIT ?`, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to list runs: %w", err)
	}
	defer rows.Close()

	var runs []*core.Run
	for rows.Next() {
		run, err := scanRun(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan run: %w", err)
		}
		runs = append(runs, run)
	}
	return runs, rows.Err()
}

type scanner interface {
	Scan(dest ...any) error
}

func scanRun(sc scanner) (*core.Run, error) {
	var (
		run         core.Run
		status      string
		startedAt   string
		completedAt sql.NullString
		errMsg      sql.NullString
	)
	if err := sc.Scan(&run.ID, &run.Config, &status, &startedAt, &completedAt, &errMsg); err != nil {
		return nil, err
	}

	var err error
	run.Status = core.RunStatus(status)
	run.Error = errMsg.String
	if run.StartedAt, err = parseTime(startedAt); err != nil {
		return nil, err
	}
	if run.CompletedAt, err = parseNullTime(completedAt); err != nil {
		return nil, err
	}
	return &run, nil
}

// --- Stage run operations ---

// RecordStageRun inserts a stage run. An empty ID is filled in, and a zero
// StartedAt defaults to now.
func (s *SQLiteStore) RecordStageRun(stageRun *core.StageRun) error {
	if s.db == nil {
		return fmt.Errorf("database not opened")
	}
	if stageRun.ID == "" {
		stageRun.ID = generateID()
	}
	if stageRun.StartedAt.IsZero() {
		stageRun.StartedAt = time.Now().UTC()
	}
	if stageRun.Status == "" {
		stageRun.Status = core.StageRunStatusPending
	}

	var completedAt sql.NullString
	if stageRun.CompletedAt != nil {
		completedAt = nullString(formatTime(*stageRun.CompletedAt))
	}

	_, err := s.db.Exec(
		`INSERT INTO stage_runs (id, run_id, stage, kind, status, rows, error, started_at, completed_at, execution_ms)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		stageRun.ID, stageRun.RunID, stageRun.Stage, stageRun.Kind, string(stageRun.Status),
		stageRun.Rows, nullString(stageRun.Error), formatTime(stageRun.StartedAt), completedAt,
		stageRun.ExecutionMS,
	)
	if err != nil {
		return fmt.Errorf("failed to record stage run %s: %w", stageRun.Stage, err)
	}
	return nil
}

// UpdateStageRun updates the outcome of a stage run. Terminal statuses also set
// the completion time.
func (s *SQLiteStore) UpdateStageRun(id string, status core.StageRunStatus, rows int64, errMsg string, executionMS int64) error {
	if s.db == nil {
		return fmt.Errorf("database not opened")
	}

	var completedAt sql.NullString
	switch status {
	case core.StageRunStatusSuccess, core.StageRunStatusFailed, core.StageRunStatusSkipped:
		completedAt = nullString(formatTime(time.Now()))
	}

	res, err := s.db.Exec(
		`UPDATE stage_runs SET status = ?, rows = ?, error = ?, execution_ms = ?, completed_at = ? WHERE id = ?`,
		string(status), rows, nullString(errMsg), executionMS, completedAt, id,
	)
	if err != nil {
		return fmt.Errorf("failed to update stage run: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return fmt.Errorf("stage run not found: %s", id)
	}
	return nil
}

// GetStageRunsForRun returns the stage runs of a run in recording order.
func (s *SQLiteStore) GetStageRunsForRun(runID string) ([]*core.StageRun, error) {
	if s.db == nil {
		return nil, fmt.Errorf("database not opened")
	}

	rows, err := s.db.Query(
		`SELECT id, run_id, stage, kind, status, rows, error, started_at, completed_at, execution_ms
		 FROM stage_runs WHERE run_id = ? ORDER BY rowid`, runID)
	if err != nil {
		return nil, fmt.Errorf("failed to get stage runs: %w", err)
	}
	defer rows.Close()

	var out []*core.StageRun
	for rows.Next() {
		var (
			sr          core.StageRun
			status      string
			errMsg      sql.NullString
			startedAt   string
			completedAt sql.NullString
		)
		if err := rows.Scan(&sr.ID, &sr.RunID, &sr.Stage, &sr.Kind, &status, &sr.Rows,
			&errMsg, &startedAt, &completedAt, &sr.ExecutionMS); err != nil {
			return nil, fmt.Errorf("failed to scan stage run: %w", err)
		}
		sr.Status = core.StageRunStatus(status)
		sr.Error = errMsg.String
		if sr.StartedAt, err = parseTime(startedAt); err != nil {
			return nil, err
		}
		if sr.CompletedAt, err = parseNullTime(completedAt); err != nil {
			return nil, err
		}
		out = append(out, &sr)
	}
	return out, rows.Err()
}
