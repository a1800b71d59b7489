// Package domain holds the core entities shared across the parallel execution
// engine: tasks, epics, sessions, plans, batches, worktrees, and costs.
//
// These types are distinct from internal/models, which describes the
// YAML plan-file task format. The engine operates on a persisted,
// multi-epic task graph instead.
package domain

import "time"

// DependencyType distinguishes edges that block scheduling from edges that
// are informational only.
type DependencyType string

const (
	DependencyHard DependencyType = "hard"
	DependencySoft DependencyType = "soft"
)

// PriorityUnset marks a task as having no priority, distinct from a
// priority of 0. Lower numbers sort earlier, so 0 is the most urgent
// priority a task can carry; a task whose Priority field is never assigned
// holds the zero value 0, not PriorityUnset. Only a task explicitly given
// PriorityUnset sorts last.
const PriorityUnset = -1

// EngineTask is one unit of work belonging to an Epic.
type EngineTask struct {
	ID             int64
	EpicID         int64
	ProjectID      string
	Description    string
	Action         string
	Priority       int
	Done           bool
	DependsOn      []int64
	DependencyType DependencyType
	PredictedFiles []string
	ModelOverride  string
	Metadata       map[string]any
}

// Epic groups tasks under a name with a scheduling priority.
type Epic struct {
	ID        int64
	ProjectID string
	Name      string
	Priority  int
	DependsOn []int64
}

// SessionType distinguishes agent invocation kinds for heartbeat thresholds.
type SessionType string

const (
	SessionInitializer SessionType = "initializer"
	SessionCoding       SessionType = "coding"
	SessionReview       SessionType = "review"
)

// SessionStatus is the lifecycle state of a Session.
type SessionStatus string

const (
	SessionPending     SessionStatus = "pending"
	SessionRunning     SessionStatus = "running"
	SessionCompleted   SessionStatus = "completed"
	SessionError       SessionStatus = "error"
	SessionInterrupted SessionStatus = "interrupted"
)

// Session is one invocation of an agent against a task.
type Session struct {
	ID               string
	ProjectID        string
	Seq              int64
	Type             SessionType
	Model            string
	TaskID           int64
	CreatedAt        time.Time
	StartedAt        time.Time
	LastHeartbeat    time.Time
	EndedAt          time.Time
	Status           SessionStatus
	InterruptReason  string
	InputTokens      int64
	OutputTokens     int64
	CostUSD          float64
}

// ModelTier is the closed set of agent tiers the Model Selector emits.
type ModelTier string

const (
	TierCheap   ModelTier = "cheap"
	TierMid     ModelTier = "mid"
	TierPremium ModelTier = "premium"
)

// ConflictKind classifies a predicted file conflict.
type ConflictKind string

const (
	ConflictSameFile      ConflictKind = "same_file"
	ConflictSameDirectory ConflictKind = "same_directory"
	ConflictPotential     ConflictKind = "potential"
)

// PredictedConflict records tasks expected to touch overlapping paths.
type PredictedConflict struct {
	TaskIDs        []int64
	PredictedFiles []string
	Kind           ConflictKind
}

// Batch is one wave of the execution plan.
type Batch struct {
	BatchID     int
	TaskIDs     []int64
	CanParallel bool
	DependsOn   []int
}

// ExecutionPlan is the immutable output of the planning pipeline.
type ExecutionPlan struct {
	ProjectID           string
	CreatedAt           time.Time
	Batches             []Batch
	WorktreeAssignments map[int64]string
	PredictedConflicts  []PredictedConflict
	Metadata            PlanMetadata
}

// PlanMetadata carries summary counters persisted alongside the plan.
type PlanMetadata struct {
	TotalTasks          int `json:"total_tasks"`
	TotalBatches        int `json:"total_batches"`
	ParallelPossible    int `json:"parallel_possible"`
	ConflictsDetected   int `json:"conflicts_detected"`
	CircularDependencies int `json:"circular_dependencies"`
	MissingDependencies  int `json:"missing_dependencies"`
}

// TotalTasksIn returns the number of tasks referenced across all batches.
func (p *ExecutionPlan) TotalTasksIn() int {
	n := 0
	for _, b := range p.Batches {
		n += len(b.TaskIDs)
	}
	return n
}

// ParallelBatches returns the number of batches eligible for parallel execution.
func (p *ExecutionPlan) ParallelBatches() int {
	n := 0
	for _, b := range p.Batches {
		if b.CanParallel {
			n++
		}
	}
	return n
}

// WorktreeStatus is the lifecycle state of an isolated working copy.
type WorktreeStatus string

const (
	WorktreeActive   WorktreeStatus = "active"
	WorktreeMerged   WorktreeStatus = "merged"
	WorktreeConflict WorktreeStatus = "conflict"
	WorktreeCleanup  WorktreeStatus = "cleanup"
	WorktreeAbandoned WorktreeStatus = "abandoned"
)

// Worktree is a per-epic isolated working copy.
type Worktree struct {
	EpicID      int64
	ProjectID   string
	Path        string
	Branch      string
	Status      WorktreeStatus
	CreatedAt   time.Time
	MergeCommit string
	MergedAt    time.Time
}

// BatchStatus tracks the live status of a persisted batch row.
type BatchStatus string

const (
	BatchPending   BatchStatus = "pending"
	BatchRunning   BatchStatus = "running"
	BatchCompleted BatchStatus = "completed"
	BatchFailed    BatchStatus = "failed"
	BatchCancelled BatchStatus = "cancelled"
)

// MergeStatus is the outcome of validating and merging a batch's worktrees.
type MergeStatus string

const (
	MergeSuccess    MergeStatus = "success"
	MergeConflicts  MergeStatus = "conflicts"
	MergeTestFailed MergeStatus = "test_failed"
	MergeSkipped    MergeStatus = "skipped"
)

// AgentCost is one append-only cost ledger row.
type AgentCost struct {
	ProjectID    string
	SessionID    string
	TaskID       int64
	Model        string
	InputTokens  int64
	OutputTokens int64
	CostUSD      float64
	RecordedAt   time.Time
}

// Mode is the top-level execution strategy chosen for a plan.
type Mode string

const (
	ModeParallel   Mode = "parallel"
	ModeSequential Mode = "sequential"
)

// SelectMode is a pure function: a plan is parallel-worthwhile iff it
// contains any batch with CanParallel and at least two tasks.
func SelectMode(plan *ExecutionPlan) Mode {
	for _, b := range plan.Batches {
		if b.CanParallel && len(b.TaskIDs) >= 2 {
			return ModeParallel
		}
	}
	return ModeSequential
}
