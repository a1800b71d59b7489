// Package planbuilder combines dependency resolution with file-conflict
// prediction and worktree pre-assignment to produce an immutable
// domain.ExecutionPlan.
package planbuilder

import (
	"fmt"
	"regexp"
	"sort"
	"strings"
	"time"

	"github.com/harrison/conductor/internal/engine/domain"
	"github.com/harrison/conductor/internal/engine/resolver"
)

// Builder constructs execution plans for a project's pending tasks.
type Builder struct {
	MaxWorktrees int
	Resolver     *resolver.Resolver
}

// New returns a Builder with the given worktree ceiling.
func New(maxWorktrees int) *Builder {
	if maxWorktrees <= 0 {
		maxWorktrees = 4
	}
	return &Builder{MaxWorktrees: maxWorktrees, Resolver: resolver.New()}
}

// Build runs the full pipeline: resolve dependencies, predict conflicts,
// mark batch parallelism, assign worktrees, and return the assembled plan.
func (b *Builder) Build(projectID string, tasks []domain.EngineTask, epics []domain.Epic) (*domain.ExecutionPlan, error) {
	epicByID := make(map[int64]domain.Epic, len(epics))
	for _, e := range epics {
		epicByID[e.ID] = e
	}
	taskByID := make(map[int64]domain.EngineTask, len(tasks))
	for _, t := range tasks {
		taskByID[t.ID] = t
	}

	graph, err := b.Resolver.Resolve(tasks)
	if err != nil {
		return nil, fmt.Errorf("resolve dependencies: %w", err)
	}
	if len(graph.Cycles) > 0 {
		return nil, fmt.Errorf("circular dependencies detected: %d cycle(s)", len(graph.Cycles))
	}

	conflicts, predictedFiles := AnalyzeFileConflicts(tasks)

	batches := make([]domain.Batch, 0, len(graph.Batches))
	for idx, taskIDs := range graph.Batches {
		canParallel := len(taskIDs) > 1 && !batchHasConflict(taskIDs, conflicts)
		var dependsOn []int
		if idx > 0 {
			dependsOn = []int{idx - 1}
		}
		batches = append(batches, domain.Batch{
			BatchID:     idx,
			TaskIDs:     taskIDs,
			CanParallel: canParallel,
			DependsOn:   dependsOn,
		})
	}

	assignments := assignWorktrees(tasks, epicByID, b.MaxWorktrees)

	for id, files := range predictedFiles {
		if t, ok := taskByID[id]; ok {
			t.PredictedFiles = files
			taskByID[id] = t
		}
	}

	plan := &domain.ExecutionPlan{
		ProjectID:           projectID,
		CreatedAt:           nowFunc(),
		Batches:             batches,
		WorktreeAssignments: assignments,
		PredictedConflicts:  conflicts,
		Metadata: domain.PlanMetadata{
			TotalTasks:           len(tasks),
			TotalBatches:         len(batches),
			ParallelPossible:     countParallel(batches),
			ConflictsDetected:    len(conflicts),
			CircularDependencies: len(graph.Cycles),
			MissingDependencies:  countMissing(graph.MissingDeps),
		},
	}
	return plan, nil
}

// nowFunc is overridable in tests.
var nowFunc = time.Now

func countParallel(batches []domain.Batch) int {
	n := 0
	for _, b := range batches {
		if b.CanParallel {
			n++
		}
	}
	return n
}

func countMissing(missing map[int64][]int64) int {
	n := 0
	for _, m := range missing {
		n += len(m)
	}
	return n
}

// batchHasConflict reports whether any predicted conflict's task set is
// entirely contained within this batch (an intra-batch conflict, which
// forces the batch to run sequentially).
func batchHasConflict(taskIDs []int64, conflicts []domain.PredictedConflict) bool {
	inBatch := make(map[int64]bool, len(taskIDs))
	for _, id := range taskIDs {
		inBatch[id] = true
	}
	for _, c := range conflicts {
		if len(c.TaskIDs) < 2 {
			continue
		}
		allIn := true
		for _, id := range c.TaskIDs {
			if !inBatch[id] {
				allIn = false
				break
			}
		}
		if allIn {
			return true
		}
	}
	return false
}

var nonSlugChars = regexp.MustCompile(`[^a-zA-Z0-9\-]`)

func slugify(name string, maxLen int) string {
	slug := nonSlugChars.ReplaceAllString(strings.ToLower(name), "-")
	if len(slug) > maxLen {
		slug = slug[:maxLen]
	}
	return slug
}

// assignWorktrees groups tasks by epic, gives the busiest epics (up to
// MaxWorktrees) a dedicated worktree, and round-robins the remainder across
// the assigned set. Tasks without an epic land in a shared default worktree.
func assignWorktrees(tasks []domain.EngineTask, epics map[int64]domain.Epic, maxWorktrees int) map[int64]string {
	tasksByEpic := map[int64][]int64{}
	var unassigned []int64
	for _, t := range tasks {
		if t.EpicID == 0 {
			unassigned = append(unassigned, t.ID)
			continue
		}
		tasksByEpic[t.EpicID] = append(tasksByEpic[t.EpicID], t.ID)
	}

	epicIDs := make([]int64, 0, len(tasksByEpic))
	for epicID := range tasksByEpic {
		epicIDs = append(epicIDs, epicID)
	}
	sort.Slice(epicIDs, func(i, j int) bool {
		if len(tasksByEpic[epicIDs[i]]) != len(tasksByEpic[epicIDs[j]]) {
			return len(tasksByEpic[epicIDs[i]]) > len(tasksByEpic[epicIDs[j]])
		}
		return epicIDs[i] < epicIDs[j]
	})

	assignments := map[int64]string{}
	var worktreeNames []string
	for i, epicID := range epicIDs {
		var name string
		if i < maxWorktrees {
			epicName := fmt.Sprintf("epic-%d", epicID)
			if e, ok := epics[epicID]; ok {
				epicName = e.Name
			}
			name = "worktree-" + slugify(epicName, 30)
			worktreeNames = append(worktreeNames, name)
		} else if len(worktreeNames) > 0 {
			name = worktreeNames[int(epicID)%len(worktreeNames)]
		} else {
			name = "worktree-default"
		}
		for _, taskID := range tasksByEpic[epicID] {
			assignments[taskID] = name
		}
	}
	for _, taskID := range unassigned {
		assignments[taskID] = "worktree-default"
	}
	return assignments
}

// Validate flags structural issues in an already-built plan. It never
// refuses a plan outright; a high conflict rate is a warning only.
type ValidationResult struct {
	EmptyBatches      []int
	UnassignedTasks   []int64
	ConflictRateAbove50 bool
}

func Validate(plan *domain.ExecutionPlan) ValidationResult {
	var result ValidationResult
	for _, b := range plan.Batches {
		if len(b.TaskIDs) == 0 {
			result.EmptyBatches = append(result.EmptyBatches, b.BatchID)
		}
		for _, taskID := range b.TaskIDs {
			if _, ok := plan.WorktreeAssignments[taskID]; !ok {
				result.UnassignedTasks = append(result.UnassignedTasks, taskID)
			}
		}
	}
	total := plan.TotalTasksIn()
	if total > 0 && float64(len(plan.PredictedConflicts))/float64(total) > 0.5 {
		result.ConflictRateAbove50 = true
	}
	return result
}
