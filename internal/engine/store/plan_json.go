package store

import (
	"strconv"
	"time"

	"github.com/harrison/conductor/internal/engine/domain"
)

// planJSONShape is the wire shape for a persisted execution plan. Keeping it
// separate from domain.ExecutionPlan lets the relational-ish domain struct
// stay free of json tags while giving the stored document a stable shape.
type planJSONShape struct {
	ProjectID           string                `json:"project_id"`
	CreatedAt           time.Time             `json:"created_at"`
	Batches             []batchJSON           `json:"batches"`
	WorktreeAssignments map[string]string     `json:"worktree_assignments"`
	PredictedConflicts  []conflictJSON        `json:"predicted_conflicts"`
	Metadata            domain.PlanMetadata   `json:"metadata"`
}

type batchJSON struct {
	BatchID     int     `json:"batch_id"`
	TaskIDs     []int64 `json:"task_ids"`
	CanParallel bool    `json:"can_parallel"`
	DependsOn   []int   `json:"depends_on"`
}

type conflictJSON struct {
	TaskIDs        []int64  `json:"task_ids"`
	PredictedFiles []string `json:"predicted_files"`
	Kind           string   `json:"kind"`
}

// planJSON converts a domain plan into its persisted wire shape.
func planJSON(p *domain.ExecutionPlan) planJSONShape {
	assignments := make(map[string]string, len(p.WorktreeAssignments))
	for epicID, path := range p.WorktreeAssignments {
		assignments[strconv.FormatInt(epicID, 10)] = path
	}
	batches := make([]batchJSON, 0, len(p.Batches))
	for _, b := range p.Batches {
		batches = append(batches, batchJSON{BatchID: b.BatchID, TaskIDs: b.TaskIDs, CanParallel: b.CanParallel, DependsOn: b.DependsOn})
	}
	conflicts := make([]conflictJSON, 0, len(p.PredictedConflicts))
	for _, c := range p.PredictedConflicts {
		conflicts = append(conflicts, conflictJSON{TaskIDs: c.TaskIDs, PredictedFiles: c.PredictedFiles, Kind: string(c.Kind)})
	}
	return planJSONShape{
		ProjectID:           p.ProjectID,
		CreatedAt:           p.CreatedAt,
		Batches:             batches,
		WorktreeAssignments: assignments,
		PredictedConflicts:  conflicts,
		Metadata:            p.Metadata,
	}
}

// toDomain converts a persisted wire shape back into a domain plan.
func (pj planJSONShape) toDomain() *domain.ExecutionPlan {
	assignments := make(map[int64]string, len(pj.WorktreeAssignments))
	for k, v := range pj.WorktreeAssignments {
		id, err := strconv.ParseInt(k, 10, 64)
		if err != nil {
			continue
		}
		assignments[id] = v
	}
	batches := make([]domain.Batch, 0, len(pj.Batches))
	for _, b := range pj.Batches {
		batches = append(batches, domain.Batch{BatchID: b.BatchID, TaskIDs: b.TaskIDs, CanParallel: b.CanParallel, DependsOn: b.DependsOn})
	}
	conflicts := make([]domain.PredictedConflict, 0, len(pj.PredictedConflicts))
	for _, c := range pj.PredictedConflicts {
		conflicts = append(conflicts, domain.PredictedConflict{TaskIDs: c.TaskIDs, PredictedFiles: c.PredictedFiles, Kind: domain.ConflictKind(c.Kind)})
	}
	return &domain.ExecutionPlan{
		ProjectID:           pj.ProjectID,
		CreatedAt:           pj.CreatedAt,
		Batches:             batches,
		WorktreeAssignments: assignments,
		PredictedConflicts:  conflicts,
		Metadata:            pj.Metadata,
	}
}
