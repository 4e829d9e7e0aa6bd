// Package runner executes a pipeline locally, level by level, with bounded
// concurrency inside each level.
package runner

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/leapstack-labs/leapfeat/internal/pipeline"
	"github.com/leapstack-labs/leapfeat/pkg/core"
	"golang.org/x/sync/errgroup"
)

// DefaultParallelism is used when Options.Parallelism is not positive.
const DefaultParallelism = 4

// Options configures a Runner.
type Options struct {
	// Parallelism bounds concurrently running stages within a level.
	Parallelism int
	// Store records runs and stage runs. Optional.
	Store core.RunStore
	// ConfigLabel is stored with the run, typically the aggregations file path.
	ConfigLabel string
	// RowCount reports the row count of a stage output. Frames are counted
	// when nil.
	RowCount func(output any) int64
	// Logger is the structured logger (optional, uses discard if nil)
	Logger *slog.Logger
}

// Runner executes pipelines.
type Runner struct {
	opts   Options
	logger *slog.Logger
}

// StageResult is the outcome of one stage.
type StageResult struct {
	Name     string
	Kind     pipeline.StageKind
	Level    int
	Status   core.StageRunStatus
	Rows     int64
	Duration time.Duration
	Err      error
}

// Result is the outcome of a run.
type Result struct {
	RunID   string
	Status  core.RunStatus
	Stages  []StageResult
	Outputs map[string]any
}

// Output returns the value produced for dataset.
func (r *Result) Output(dataset string) (any, bool) {
	v, ok := r.Outputs[dataset]
	return v, ok
}

// New creates a runner.
func New(opts Options) *Runner {
	logger := opts.Logger
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	if opts.Parallelism <= 0 {
		opts.Parallelism = DefaultParallelism
	}
	if opts.RowCount == nil {
		opts.RowCount = countFrame
	}
	return &Runner{opts: opts, logger: logger}
}

func countFrame(v any) int64 {
	if f, ok := v.(*core.Frame); ok {
		return int64(f.Len())
	}
	return 0
}

// run holds the mutable state of one execution.
type run struct {
	id      string
	mu      sync.Mutex
	outputs map[string]any
	results map[string]*StageResult
	order   []string
}

// Run executes every level of p in order. A failed stage stops the run after
// its level; stages that did not run are reported as skipped.
func (r *Runner) Run(ctx context.Context, p *pipeline.Pipeline) (*Result, error) {
	levels, err := p.Levels()
	if err != nil {
		return nil, err
	}

	state := &run{
		outputs: make(map[string]any),
		results: make(map[string]*StageResult),
	}
	if err := r.createRun(state); err != nil {
		return nil, err
	}
	logger := r.logger.With(slog.String("run_id", state.id))
	logger.Info("starting run", slog.Int("stages", len(p.Stages())), slog.Int("levels", len(levels)))

	for i, level := range levels {
		for _, s := range level {
			state.order = append(state.order, s.Name)
			state.results[s.Name] = &StageResult{Name: s.Name, Kind: s.Kind, Level: i, Status: core.StageRunStatusPending}
		}
	}

	var runErr error
	for i, level := range levels {
		if runErr != nil {
			break
		}
		if err := ctx.Err(); err != nil {
			runErr = err
			break
		}
		logger.Debug("executing level", slog.Int("level", i), slog.Int("stages", len(level)))
		runErr = r.runLevel(ctx, logger, state, level)
	}

	result := &Result{RunID: state.id, Outputs: state.outputs, Status: core.RunStatusCompleted}
	for _, name := range state.order {
		sr := state.results[name]
		if sr.Status == core.StageRunStatusPending {
			sr.Status = core.StageRunStatusSkipped
			r.recordSkipped(state.id, sr)
		}
		result.Stages = append(result.Stages, *sr)
	}

	if runErr != nil {
		result.Status = core.RunStatusFailed
		logger.Info("run failed", slog.String("error", runErr.Error()))
		r.completeRun(state.id, core.RunStatusFailed, runErr.Error())
		return result, runErr
	}

	logger.Info("run completed", slog.Int("stages", len(result.Stages)))
	r.completeRun(state.id, core.RunStatusCompleted, "")
	return result, nil
}

func (r *Runner) runLevel(ctx context.Context, logger *slog.Logger, state *run, level []*pipeline.Stage) error {
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(r.opts.Parallelism)

	var mu sync.Mutex
	var errs []error
	for _, s := range level {
		g.Go(func() error {
			if gctx.Err() != nil {
				return nil // stays pending, reported as skipped
			}
			if err := r.runStage(gctx, logger, state, s); err != nil {
				mu.Lock()
				errs = append(errs, err)
				mu.Unlock()
				return err
			}
			return nil
		})
	}
	_ = g.Wait()
	return errors.Join(errs...)
}

func (r *Runner) runStage(ctx context.Context, logger *slog.Logger, state *run, s *pipeline.Stage) error {
	state.mu.Lock()
	inputs := make(map[string]any, len(s.Inputs))
	for _, in := range s.Inputs {
		if v, ok := state.outputs[in]; ok {
			inputs[in] = v
		}
	}
	sr := state.results[s.Name]
	sr.Status = core.StageRunStatusRunning
	state.mu.Unlock()

	stageRun := r.recordStart(state.id, s)
	slogger := logger.With(slog.String("stage", s.Name), slog.String("kind", string(s.Kind)))
	slogger.Info("stage started")

	start := time.Now()
	out, err := s.Func(ctx, inputs)
	elapsed := time.Since(start)

	state.mu.Lock()
	defer state.mu.Unlock()

	sr.Duration = elapsed
	if err != nil {
		sr.Status = core.StageRunStatusFailed
		sr.Err = err
		r.updateStage(stageRun, sr)
		slogger.Error("stage failed", slog.String("error", err.Error()), slog.Duration("duration", elapsed))
		return fmt.Errorf("stage %s: %w", s.Name, err)
	}

	state.outputs[s.Output] = out
	sr.Status = core.StageRunStatusSuccess
	sr.Rows = r.opts.RowCount(out)
	r.updateStage(stageRun, sr)
	slogger.Info("stage completed", slog.Int64("rows", sr.Rows), slog.Duration("duration", elapsed))
	return nil
}
