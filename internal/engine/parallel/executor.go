// Package parallel runs one batch's tasks under a bounded-concurrency gate,
// dispatching each task to its assigned worktree and invoking the agent
// callable. The scheduling mechanics are modeled directly on the Go
// teacher's wave executor: a counted semaphore channel, sync.WaitGroup join,
// and context cancellation checked at every suspension point.
package parallel

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/harrison/conductor/internal/engine/domain"
	"github.com/harrison/conductor/internal/engine/expertise"
	"github.com/harrison/conductor/internal/engine/modelselect"
	"github.com/harrison/conductor/internal/engine/worktree"
)

// ExecutionResult is the outcome of running one task.
type ExecutionResult struct {
	TaskID   int64
	Success  bool
	Duration time.Duration
	Error    string
	Cost     float64
}

// SessionSink records session lifecycle transitions; the persistence layer
// implements this.
type SessionSink interface {
	BeginSession(task domain.EngineTask, tier domain.ModelTier) (sessionID string, err error)
	Heartbeat(sessionID string) error
	EndSession(sessionID string, status domain.SessionStatus, reason string, outcome Outcome) error
}

// TaskStore resolves which worktree a task is assigned to and marks tasks done.
type TaskStore interface {
	WorktreeNameFor(taskID int64) (string, error)
	MarkDone(taskID int64) error
}

// Executor runs batches of tasks with bounded concurrency.
type Executor struct {
	MaxConcurrency int
	Agent          Agent
	Worktrees      *worktree.Manager
	Selector       *modelselect.Selector
	Sessions       SessionSink
	Tasks          TaskStore
	Expertise      *expertise.Store
	HeartbeatEvery time.Duration
}

// New constructs an Executor. MaxConcurrency is clamped to [1,10]. Expertise
// is nil by default; callers that want prompt context injection and
// post-session learning set the field after construction.
func New(maxConcurrency int, agent Agent, wt *worktree.Manager, selector *modelselect.Selector, sessions SessionSink, tasks TaskStore) *Executor {
	if maxConcurrency < 1 {
		maxConcurrency = 1
	}
	if maxConcurrency > 10 {
		maxConcurrency = 10
	}
	return &Executor{
		MaxConcurrency: maxConcurrency,
		Agent:          agent,
		Worktrees:      wt,
		Selector:       selector,
		Sessions:       sessions,
		Tasks:          tasks,
		HeartbeatEvery: 60 * time.Second,
	}
}

// ExecuteBatch runs every task in the batch, bounded by MaxConcurrency. A
// failed task does not cancel its peers; failures are reported in the
// returned results, not via the error return (which is reserved for setup
// failures that prevent the batch from starting at all).
func (e *Executor) ExecuteBatch(ctx context.Context, projectID string, epicOf map[int64]int64, epicNames map[int64]string, tasks []domain.EngineTask) ([]ExecutionResult, error) {
	sem := make(chan struct{}, e.MaxConcurrency)
	var wg sync.WaitGroup
	results := make([]ExecutionResult, len(tasks))

	for i, task := range tasks {
		select {
		case <-ctx.Done():
			results[i] = ExecutionResult{TaskID: task.ID, Success: false, Error: "cancelled before dispatch"}
			continue
		case sem <- struct{}{}:
		}

		wg.Add(1)
		go func(i int, task domain.EngineTask) {
			defer wg.Done()
			defer func() { <-sem }()
			results[i] = e.runOne(ctx, projectID, epicOf[task.ID], epicNames[epicOf[task.ID]], task)
		}(i, task)
	}

	wg.Wait()
	return results, nil
}

func (e *Executor) runOne(ctx context.Context, projectID string, epicID int64, epicName string, task domain.EngineTask) ExecutionResult {
	start := time.Now()

	if ctx.Err() != nil {
		return ExecutionResult{TaskID: task.ID, Success: false, Error: "cancelled before start"}
	}

	wt, err := e.Worktrees.Create(ctx, epicID, epicName)
	if err != nil {
		return ExecutionResult{TaskID: task.ID, Success: false, Duration: time.Since(start), Error: fmt.Sprintf("worktree create: %v", err)}
	}

	rec := e.Selector.Recommend(task, projectID)

	sessionID, err := e.Sessions.BeginSession(task, rec.Tier)
	if err != nil {
		return ExecutionResult{TaskID: task.ID, Success: false, Duration: time.Since(start), Error: fmt.Sprintf("begin session: %v", err)}
	}

	stopHeartbeat := e.startHeartbeat(ctx, sessionID)
	defer stopHeartbeat()

	var promptContext string
	var expertiseDomain expertise.Domain
	if e.Expertise != nil {
		expertiseDomain = expertise.Classify(task.Action, task.PredictedFiles)
		promptContext = e.Expertise.Get(expertiseDomain)
	}

	outcome, runErr := e.Agent.Run(ctx, Invocation{
		WorkingDir:    wt.Path,
		TaskText:      task.Action,
		PromptContext: promptContext,
		ModelTier:     rec.Tier,
	})

	duration := time.Since(start)

	if e.Expertise != nil {
		e.Expertise.Observe(task.Action, task.PredictedFiles, expertise.SessionLog{
			TaskID:        task.ID,
			ModifiedFiles: outcome.ModifiedFiles,
			Success:       runErr == nil && outcome.OK,
			FailureNote:   failureNote(runErr, outcome),
		})
	}

	if ctx.Err() != nil {
		_ = e.Sessions.EndSession(sessionID, domain.SessionInterrupted, "cancelled", outcome)
		return ExecutionResult{TaskID: task.ID, Success: false, Duration: duration, Error: "cancelled"}
	}

	if runErr != nil || !outcome.OK {
		msg := "agent reported failure"
		if runErr != nil {
			msg = runErr.Error()
		}
		_ = e.Sessions.EndSession(sessionID, domain.SessionError, msg, outcome)
		e.Selector.RecordOutcome(task, rec.Tier, false)
		return ExecutionResult{TaskID: task.ID, Success: false, Duration: duration, Error: msg, Cost: outcome.CostUSD}
	}

	_ = e.Sessions.EndSession(sessionID, domain.SessionCompleted, "", outcome)
	e.Selector.RecordOutcome(task, rec.Tier, true)
	_ = e.Tasks.MarkDone(task.ID)

	return ExecutionResult{TaskID: task.ID, Success: true, Duration: duration, Cost: outcome.CostUSD}
}

func failureNote(runErr error, outcome Outcome) string {
	if runErr != nil {
		return runErr.Error()
	}
	if !outcome.OK {
		return "agent reported failure"
	}
	return ""
}

func (e *Executor) startHeartbeat(ctx context.Context, sessionID string) func() {
	interval := e.HeartbeatEvery
	if interval <= 0 {
		interval = 60 * time.Second
	}
	done := make(chan struct{})
	go func() {
		ticker := time.NewTicker(interval)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-done:
				return
			case <-ticker.C:
				_ = e.Sessions.Heartbeat(sessionID)
			}
		}
	}()
	return func() { close(done) }
}
