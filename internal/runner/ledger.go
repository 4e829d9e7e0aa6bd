package runner

import (
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/leapstack-labs/leapfeat/internal/pipeline"
	"github.com/leapstack-labs/leapfeat/pkg/core"
)

// Ledger writes are best effort: a failing run store never fails a run,
// except for creating the run itself.

func (r *Runner) createRun(state *run) error {
	if r.opts.Store == nil {
		state.id = uuid.NewString()
		return nil
	}
	created, err := r.opts.Store.CreateRun(r.opts.ConfigLabel)
	if err != nil {
		return fmt.Errorf("failed to create run: %w", err)
	}
	state.id = created.ID
	return nil
}

func (r *Runner) completeRun(id string, status core.RunStatus, errMsg string) {
	if r.opts.Store == nil {
		return
	}
	if err := r.opts.Store.CompleteRun(id, status, errMsg); err != nil {
		r.logger.Warn("failed to complete run", "run_id", id, "error", err.Error())
	}
}

func (r *Runner) recordStart(runID string, s *pipeline.Stage) *core.StageRun {
	if r.opts.Store == nil {
		return nil
	}
	sr := &core.StageRun{
		RunID:     runID,
		Stage:     s.Name,
		Kind:      string(s.Kind),
		Status:    core.StageRunStatusRunning,
		StartedAt: time.Now(),
	}
	if err := r.opts.Store.RecordStageRun(sr); err != nil {
		r.logger.Warn("failed to record stage run", "stage", s.Name, "error", err.Error())
		return nil
	}
	return sr
}

func (r *Runner) updateStage(stageRun *core.StageRun, res *StageResult) {
	if stageRun == nil {
		return
	}
	errMsg := ""
	if res.Err != nil {
		errMsg = res.Err.Error()
	}
	if err := r.opts.Store.UpdateStageRun(stageRun.ID, res.Status, res.Rows, errMsg, res.Duration.Milliseconds()); err != nil {
		r.logger.Warn("failed to update stage run", "stage", res.Name, "error", err.Error())
	}
}

func (r *Runner) recordSkipped(runID string, res *StageResult) {
	if r.opts.Store == nil {
		return
	}
	now := time.Now()
	sr := &core.StageRun{
		RunID:       runID,
		Stage:       res.Name,
		Kind:        string(res.Kind),
		Status:      core.StageRunStatusSkipped,
		StartedAt:   now,
		CompletedAt: &now,
	}
	if err := r.opts.Store.RecordStageRun(sr); err != nil {
		r.logger.Warn("failed to record skipped stage", "stage", res.Name, "error", err.Error())
	}
}
