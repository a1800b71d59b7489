// Package batch is the top-level driver that walks an execution plan batch
// by batch, coordinating the Parallel Executor and Merge Validator, emitting
// progress events, and honoring stop requests.
package batch

import (
	"context"
	"time"

	"github.com/harrison/conductor/internal/engine/domain"
	"github.com/harrison/conductor/internal/engine/mergevalidate"
	"github.com/harrison/conductor/internal/engine/parallel"
)

// ProgressEvent is one structured update emitted to the progress sink.
type ProgressEvent struct {
	Type      string
	ProjectID string
	BatchID   int
	Timestamp time.Time
	Extra     map[string]any
}

// ProgressSink receives progress events. The CLI/logger adapter implements this.
type ProgressSink func(ProgressEvent)

// StopChecker reports whether a stop has been requested, combining an
// in-memory flag with a persisted per-project hint so a replacement process
// observes the same intent after a crash.
type StopChecker func(projectID string) bool

// TaskLookup resolves the task rows, epic membership, and epic names needed
// to dispatch a batch.
type TaskLookup interface {
	TasksByID(ids []int64) ([]domain.EngineTask, error)
	EpicOf(taskIDs []int64) (map[int64]int64, error)
	EpicNames(epicIDs []int64) (map[int64]string, error)
}

// BatchResult is the outcome of running and validating one batch.
type BatchResult struct {
	BatchID     int
	Success     bool
	TaskResults []parallel.ExecutionResult
	Duration    time.Duration
	MergeStatus domain.MergeStatus
	Errors      []string
	Cost        float64
}

// PlanExecutionResult is the overall outcome of walking a plan.
type PlanExecutionResult struct {
	Success          bool
	BatchResults     []BatchResult
	TotalDuration    time.Duration
	TotalCost        float64
	BatchesCompleted int
	BatchesTotal     int
	StoppedEarly     bool
}

// Executor drives a full execution plan to completion, failure, or
// cancellation.
type Executor struct {
	Parallel    *parallel.Executor
	Validator   *mergevalidate.Validator
	Lookup      TaskLookup
	Progress    ProgressSink
	StopRequested StopChecker
}

// New constructs a batch Executor.
func New(p *parallel.Executor, v *mergevalidate.Validator, lookup TaskLookup, progress ProgressSink, stop StopChecker) *Executor {
	if progress == nil {
		progress = func(ProgressEvent) {}
	}
	if stop == nil {
		stop = func(string) bool { return false }
	}
	return &Executor{Parallel: p, Validator: v, Lookup: lookup, Progress: progress, StopRequested: stop}
}

// ExecutePlan walks the plan's batches in order. Strict happens-before is
// enforced across batches: batch N+1 is never dispatched until batch N has
// completed and, for parallel batches, merge validation has finished.
func (e *Executor) ExecutePlan(ctx context.Context, projectID string, plan *domain.ExecutionPlan) PlanExecutionResult {
	start := time.Now()
	result := PlanExecutionResult{BatchesTotal: len(plan.Batches)}

	for _, b := range plan.Batches {
		if ctx.Err() != nil || e.StopRequested(projectID) {
			result.StoppedEarly = true
			break
		}

		e.emit(projectID, b.BatchID, "batch_started", nil)

		br := e.executeBatch(ctx, projectID, b)
		result.BatchResults = append(result.BatchResults, br)
		result.TotalCost += br.Cost
		result.BatchesCompleted++

		e.emit(projectID, b.BatchID, "batch_completed", map[string]any{
			"success":      br.Success,
			"merge_status": string(br.MergeStatus),
		})

		if !br.Success {
			break
		}
	}

	result.TotalDuration = time.Since(start)
	result.Success = result.BatchesCompleted == result.BatchesTotal && allSucceeded(result.BatchResults) && !result.StoppedEarly
	return result
}

func allSucceeded(results []BatchResult) bool {
	for _, r := range results {
		if !r.Success {
			return false
		}
	}
	return true
}

func (e *Executor) emit(projectID string, batchID int, eventType string, extra map[string]any) {
	e.Progress(ProgressEvent{Type: eventType, ProjectID: projectID, BatchID: batchID, Timestamp: time.Now(), Extra: extra})
}

func (e *Executor) executeBatch(ctx context.Context, projectID string, b domain.Batch) BatchResult {
	start := time.Now()
	tasks, err := e.Lookup.TasksByID(b.TaskIDs)
	if err != nil {
		return BatchResult{BatchID: b.BatchID, Success: false, Errors: []string{err.Error()}, Duration: time.Since(start)}
	}
	epicOf, err := e.Lookup.EpicOf(b.TaskIDs)
	if err != nil {
		return BatchResult{BatchID: b.BatchID, Success: false, Errors: []string{err.Error()}, Duration: time.Since(start)}
	}
	var epicIDs []int64
	seen := map[int64]bool{}
	for _, id := range epicOf {
		if !seen[id] {
			seen[id] = true
			epicIDs = append(epicIDs, id)
		}
	}
	epicNames, err := e.Lookup.EpicNames(epicIDs)
	if err != nil {
		return BatchResult{BatchID: b.BatchID, Success: false, Errors: []string{err.Error()}, Duration: time.Since(start)}
	}

	var taskResults []parallel.ExecutionResult
	if b.CanParallel && len(tasks) > 1 {
		taskResults, err = e.Parallel.ExecuteBatch(ctx, projectID, epicOf, epicNames, tasks)
	} else {
		taskResults, err = e.executeSequential(ctx, projectID, epicOf, epicNames, tasks)
	}
	if err != nil {
		return BatchResult{BatchID: b.BatchID, Success: false, Errors: []string{err.Error()}, Duration: time.Since(start)}
	}

	allTaskSuccess := true
	var cost float64
	var errs []string
	for _, r := range taskResults {
		cost += r.Cost
		if !r.Success {
			allTaskSuccess = false
			if r.Error != "" {
				errs = append(errs, r.Error)
			}
		}
	}

	mergeStatus := domain.MergeSkipped
	if allTaskSuccess && b.CanParallel && len(tasks) > 1 {
		mr := e.Validator.ValidateBatch(ctx, epicIDs)
		mergeStatus = mr.Status
		if mr.Status != domain.MergeSuccess {
			allTaskSuccess = false
			errs = append(errs, mr.Conflicts...)
			if mr.TestOutput != "" {
				errs = append(errs, mr.TestOutput)
			}
		}
	}

	return BatchResult{
		BatchID:     b.BatchID,
		Success:     allTaskSuccess,
		TaskResults: taskResults,
		Duration:    time.Since(start),
		MergeStatus: mergeStatus,
		Errors:      errs,
		Cost:        cost,
	}
}

// executeSequential runs tasks one at a time via the same per-task codepath
// as the parallel executor, but with concurrency forced to one and no merge
// validation (sequential batches commit inline in their single worktree).
func (e *Executor) executeSequential(ctx context.Context, projectID string, epicOf map[int64]int64, epicNames map[int64]string, tasks []domain.EngineTask) ([]parallel.ExecutionResult, error) {
	var results []parallel.ExecutionResult
	for _, t := range tasks {
		if ctx.Err() != nil {
			results = append(results, parallel.ExecutionResult{TaskID: t.ID, Success: false, Error: "cancelled"})
			continue
		}
		single, err := e.Parallel.ExecuteBatch(ctx, projectID, epicOf, epicNames, []domain.EngineTask{t})
		if err != nil {
			return nil, err
		}
		results = append(results, single...)
	}
	return results, nil
}
