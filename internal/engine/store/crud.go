package store

import (
	"encoding/json"
	"fmt"

	"github.com/google/uuid"

	"github.com/harrison/conductor/internal/engine/domain"
)

// CreateProject inserts a new project and returns its generated id.
func (s *Store) CreateProject(name, workingDir string) (string, error) {
	id := uuid.NewString()
	_, err := s.db.Exec(`INSERT INTO projects (id, name, working_dir, metadata) VALUES (?, ?, ?, '{}')`, id, name, workingDir)
	if err != nil {
		return "", fmt.Errorf("create project: %w", err)
	}
	return id, nil
}

// CreateEpic inserts a new epic and returns its generated id.
func (s *Store) CreateEpic(projectID, name string, priority int, dependsOn []int64) (int64, error) {
	deps, _ := json.Marshal(dependsOn)
	res, err := s.db.Exec(`INSERT INTO epics (project_id, name, priority, depends_on) VALUES (?, ?, ?, ?)`,
		projectID, name, priority, string(deps))
	if err != nil {
		return 0, fmt.Errorf("create epic: %w", err)
	}
	return res.LastInsertId()
}

// CreateTask inserts a pending task and returns its generated id.
func (s *Store) CreateTask(t domain.EngineTask) (int64, error) {
	deps, _ := json.Marshal(t.DependsOn)
	files, _ := json.Marshal(t.PredictedFiles)
	meta, _ := json.Marshal(t.Metadata)
	depType := string(t.DependencyType)
	if depType == "" {
		depType = string(domain.DependencyHard)
	}
	var epicID any
	if t.EpicID != 0 {
		epicID = t.EpicID
	}
	res, err := s.db.Exec(`
		INSERT INTO tasks (project_id, epic_id, description, action, priority, done, depends_on, dependency_type, predicted_files, model_override, metadata)
		VALUES (?, ?, ?, ?, ?, 0, ?, ?, ?, ?, ?)`,
		t.ProjectID, epicID, t.Description, t.Action, t.Priority, string(deps), depType, string(files), t.ModelOverride, string(meta))
	if err != nil {
		return 0, fmt.Errorf("create task: %w", err)
	}
	return res.LastInsertId()
}

// PendingTasks returns all tasks for a project that are not yet done.
func (s *Store) PendingTasks(projectID string) ([]domain.EngineTask, error) {
	rows, err := s.db.Query(`
		SELECT id, project_id, COALESCE(epic_id,0), description, action, priority, done, depends_on, dependency_type, predicted_files, model_override, metadata
		FROM tasks WHERE project_id = ? AND done = 0`, projectID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []domain.EngineTask
	for rows.Next() {
		var t domain.EngineTask
		var depType, dependsOn, predictedFiles, metadata string
		if err := rows.Scan(&t.ID, &t.ProjectID, &t.EpicID, &t.Description, &t.Action, &t.Priority, &t.Done, &dependsOn, &depType, &predictedFiles, &t.ModelOverride, &metadata); err != nil {
			return nil, err
		}
		t.DependencyType = domain.DependencyType(depType)
		_ = json.Unmarshal([]byte(dependsOn), &t.DependsOn)
		_ = json.Unmarshal([]byte(predictedFiles), &t.PredictedFiles)
		_ = json.Unmarshal([]byte(metadata), &t.Metadata)
		out = append(out, t)
	}
	return out, rows.Err()
}

// Epics returns every epic belonging to a project.
func (s *Store) Epics(projectID string) ([]domain.Epic, error) {
	rows, err := s.db.Query(`SELECT id, project_id, name, priority, depends_on FROM epics WHERE project_id = ?`, projectID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []domain.Epic
	for rows.Next() {
		var e domain.Epic
		var deps string
		if err := rows.Scan(&e.ID, &e.ProjectID, &e.Name, &e.Priority, &deps); err != nil {
			return nil, err
		}
		_ = json.Unmarshal([]byte(deps), &e.DependsOn)
		out = append(out, e)
	}
	return out, rows.Err()
}

// SavePlan persists an execution plan as JSON inside the project's metadata,
// matching the original's JSON-metadata-over-relational-columns choice for
// this read-mostly, versioned document.
func (s *Store) SavePlan(plan *domain.ExecutionPlan) error {
	blob, err := json.Marshal(planJSON(plan))
	if err != nil {
		return err
	}
	_, err = s.db.Exec(`UPDATE projects SET metadata = json_set(metadata, '$.execution_plan', json(?)) WHERE id = ?`,
		string(blob), plan.ProjectID)
	return err
}

// LoadPlan reads back a previously saved plan for the project.
func (s *Store) LoadPlan(projectID string) (*domain.ExecutionPlan, error) {
	var blob []byte
	err := s.db.QueryRow(`SELECT json_extract(metadata, '$.execution_plan') FROM projects WHERE id = ?`, projectID).Scan(&blob)
	if err != nil || len(blob) == 0 {
		return nil, err
	}
	var pj planJSONShape
	if err := json.Unmarshal(blob, &pj); err != nil {
		return nil, err
	}
	return pj.toDomain(), nil
}
