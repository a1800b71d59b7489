// Package store is the SQLite-backed persistence adapter for the engine,
// following the teacher's embed-schema pattern from internal/learning.
package store

import (
	"context"
	_ "embed"
	"database/sql"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "github.com/mattn/go-sqlite3"

	"github.com/harrison/conductor/internal/engine/domain"
	"github.com/harrison/conductor/internal/engine/parallel"
	"github.com/harrison/conductor/internal/filelock"
)

//go:embed schema.sql
var schemaSQL string

// dbLockTimeout bounds how long Open waits for another engine process to
// release the database file lock before giving up.
const dbLockTimeout = 10 * time.Second

// Store wraps a SQLite database implementing every interface the engine
// packages need (worktree.Store, parallel.SessionSink, parallel.TaskStore,
// batch.TaskLookup) plus the project/cost/plan persistence surface.
type Store struct {
	db   *sql.DB
	lock *filelock.FileLock
}

// Open opens (creating if needed) the database at path and applies schema.sql.
// A sibling ".lock" file guards the path for the lifetime of the returned
// Store, so two engine processes can never open the same database at once -
// SQLite's own locking covers concurrent statements but not the window
// between schema migration and first use.
func Open(path string) (*Store, error) {
	var lock *filelock.FileLock
	if path != ":memory:" {
		if dir := filepath.Dir(path); dir != "." {
			if err := os.MkdirAll(dir, 0o755); err != nil {
				return nil, fmt.Errorf("create db dir: %w", err)
			}
		}
		lock = filelock.NewFileLock(path + ".lock")
		if err := lock.LockWithTimeout(dbLockTimeout); err != nil {
			return nil, fmt.Errorf("lock db %s: %w", path, err)
		}
	}
	db, err := sql.Open("sqlite3", path)
	if err != nil {
		if lock != nil {
			lock.Unlock()
		}
		return nil, fmt.Errorf("open sqlite: %w", err)
	}
	if _, err := db.Exec(schemaSQL); err != nil {
		db.Close()
		if lock != nil {
			lock.Unlock()
		}
		return nil, fmt.Errorf("apply schema: %w", err)
	}
	return &Store{db: db, lock: lock}, nil
}

// Close releases the underlying database handle and its file lock.
func (s *Store) Close() error {
	err := s.db.Close()
	if s.lock != nil {
		if unlockErr := s.lock.Unlock(); unlockErr != nil && err == nil {
			err = unlockErr
		}
	}
	return err
}

// --- worktree.Store ---

func (s *Store) UpsertWorktree(w domain.Worktree) error {
	_, err := s.db.Exec(`
		INSERT INTO worktrees (epic_id, project_id, path, branch, status, merge_commit, merged_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(epic_id) DO UPDATE SET
			path=excluded.path, branch=excluded.branch, status=excluded.status,
			merge_commit=excluded.merge_commit, merged_at=excluded.merged_at`,
		w.EpicID, w.ProjectID, w.Path, w.Branch, string(w.Status), w.MergeCommit, nullTime(w.MergedAt))
	return err
}

func (s *Store) GetWorktree(epicID int64) (domain.Worktree, bool, error) {
	row := s.db.QueryRow(`SELECT epic_id, project_id, path, branch, status, created_at, merge_commit, merged_at FROM worktrees WHERE epic_id = ?`, epicID)
	var w domain.Worktree
	var status string
	var createdAt, mergedAt sql.NullString
	if err := row.Scan(&w.EpicID, &w.ProjectID, &w.Path, &w.Branch, &status, &createdAt, &w.MergeCommit, &mergedAt); err != nil {
		if err == sql.ErrNoRows {
			return domain.Worktree{}, false, nil
		}
		return domain.Worktree{}, false, err
	}
	w.Status = domain.WorktreeStatus(status)
	return w, true, nil
}

func (s *Store) ListWorktrees(projectID string) ([]domain.Worktree, error) {
	rows, err := s.db.Query(`SELECT epic_id, project_id, path, branch, status, merge_commit FROM worktrees WHERE project_id = ?`, projectID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []domain.Worktree
	for rows.Next() {
		var w domain.Worktree
		var status string
		if err := rows.Scan(&w.EpicID, &w.ProjectID, &w.Path, &w.Branch, &status, &w.MergeCommit); err != nil {
			return nil, err
		}
		w.Status = domain.WorktreeStatus(status)
		out = append(out, w)
	}
	return out, rows.Err()
}

func nullTime(t time.Time) any {
	if t.IsZero() {
		return nil
	}
	return t
}

// --- parallel.SessionSink ---

func (s *Store) BeginSession(task domain.EngineTask, tier domain.ModelTier) (string, error) {
	id := fmt.Sprintf("sess-%d-%d", task.ID, time.Now().UnixNano())
	var seq int64
	_ = s.db.QueryRow(`SELECT COALESCE(MAX(seq), 0) + 1 FROM sessions WHERE project_id = ?`, task.ProjectID).Scan(&seq)
	_, err := s.db.Exec(`
		INSERT INTO sessions (id, project_id, seq, task_id, type, model, status, started_at, last_heartbeat)
		VALUES (?, ?, ?, ?, 'coding', ?, 'running', CURRENT_TIMESTAMP, CURRENT_TIMESTAMP)`,
		id, task.ProjectID, seq, task.ID, string(tier))
	return id, err
}

func (s *Store) Heartbeat(sessionID string) error {
	_, err := s.db.Exec(`UPDATE sessions SET last_heartbeat = CURRENT_TIMESTAMP WHERE id = ?`, sessionID)
	return err
}

func (s *Store) EndSession(sessionID string, status domain.SessionStatus, reason string, outcome parallel.Outcome) error {
	_, err := s.db.Exec(`
		UPDATE sessions SET status = ?, interrupt_reason = ?, ended_at = CURRENT_TIMESTAMP WHERE id = ?`,
		string(status), reason, sessionID)
	return err
}

// --- parallel.TaskStore ---

func (s *Store) WorktreeNameFor(taskID int64) (string, error) {
	var path string
	err := s.db.QueryRow(`
		SELECT w.path FROM worktrees w JOIN tasks t ON t.epic_id = w.epic_id WHERE t.id = ?`, taskID).Scan(&path)
	if err == sql.ErrNoRows {
		return "", nil
	}
	return path, err
}

func (s *Store) MarkDone(taskID int64) error {
	_, err := s.db.Exec(`UPDATE tasks SET done = 1 WHERE id = ?`, taskID)
	return err
}

// --- batch.TaskLookup ---

func (s *Store) TasksByID(ids []int64) ([]domain.EngineTask, error) {
	out := make([]domain.EngineTask, 0, len(ids))
	for _, id := range ids {
		var t domain.EngineTask
		var depType string
		var dependsOn, predictedFiles, metadata string
		row := s.db.QueryRow(`SELECT id, project_id, COALESCE(epic_id,0), description, action, priority, done, depends_on, dependency_type, predicted_files, model_override, metadata FROM tasks WHERE id = ?`, id)
		if err := row.Scan(&t.ID, &t.ProjectID, &t.EpicID, &t.Description, &t.Action, &t.Priority, &t.Done, &dependsOn, &depType, &predictedFiles, &t.ModelOverride, &metadata); err != nil {
			return nil, fmt.Errorf("load task %d: %w", id, err)
		}
		t.DependencyType = domain.DependencyType(depType)
		_ = json.Unmarshal([]byte(dependsOn), &t.DependsOn)
		_ = json.Unmarshal([]byte(predictedFiles), &t.PredictedFiles)
		_ = json.Unmarshal([]byte(metadata), &t.Metadata)
		out = append(out, t)
	}
	return out, nil
}

func (s *Store) EpicOf(taskIDs []int64) (map[int64]int64, error) {
	out := map[int64]int64{}
	for _, id := range taskIDs {
		var epicID int64
		if err := s.db.QueryRow(`SELECT COALESCE(epic_id,0) FROM tasks WHERE id = ?`, id).Scan(&epicID); err != nil {
			return nil, err
		}
		out[id] = epicID
	}
	return out, nil
}

func (s *Store) EpicNames(epicIDs []int64) (map[int64]string, error) {
	out := map[int64]string{}
	for _, id := range epicIDs {
		if id == 0 {
			continue
		}
		var name string
		if err := s.db.QueryRow(`SELECT name FROM epics WHERE id = ?`, id).Scan(&name); err != nil {
			return nil, err
		}
		out[id] = name
	}
	return out, nil
}

// --- agent costs ---

// RecordCost appends one cost ledger row.
func (s *Store) RecordCost(c domain.AgentCost) error {
	_, err := s.db.Exec(`
		INSERT INTO agent_costs (project_id, session_id, task_id, model, input_tokens, output_tokens, cost_usd)
		VALUES (?, ?, ?, ?, ?, ?, ?)`,
		c.ProjectID, nullString(c.SessionID), c.TaskID, c.Model, c.InputTokens, c.OutputTokens, c.CostUSD)
	return err
}

func nullString(s string) any {
	if s == "" {
		return nil
	}
	return s
}

// TotalCost returns the project's cumulative spend from the cost ledger.
func (s *Store) TotalCost(ctx context.Context, projectID string) (float64, error) {
	var total sql.NullFloat64
	err := s.db.QueryRowContext(ctx, `SELECT SUM(cost_usd) FROM agent_costs WHERE project_id = ?`, projectID).Scan(&total)
	if err != nil {
		return 0, err
	}
	return total.Float64, nil
}

// BudgetAdapter implements modelselect.BudgetSource against a fixed
// per-project limit, looking up cumulative spend from the cost ledger.
type BudgetAdapter struct {
	Store *Store
	Limit float64
}

func (b BudgetAdapter) RemainingUSD(projectID string) (remaining, limit float64, ok bool) {
	spent, err := b.Store.TotalCost(context.Background(), projectID)
	if err != nil || b.Limit <= 0 {
		return 0, 0, false
	}
	return b.Limit - spent, b.Limit, true
}

// --- batch status ---

// UpsertBatchStatus persists the live status of one plan batch. There is a
// single setter for this; no duplicate exists.
func (s *Store) UpsertBatchStatus(projectID string, batchID int, status domain.BatchStatus) error {
	_, err := s.db.Exec(`
		INSERT INTO parallel_batches (project_id, batch_id, status)
		VALUES (?, ?, ?)
		ON CONFLICT(project_id, batch_id) DO UPDATE SET status = excluded.status`,
		projectID, batchID, string(status))
	return err
}

// --- stop-request hint ---

// RequestStop persists a stop hint on the project's metadata so a
// replacement process after a crash observes the same cancellation intent.
func (s *Store) RequestStop(projectID string) error {
	_, err := s.db.Exec(`
		UPDATE projects SET metadata = json_set(metadata, '$.parallel_stop_requested', 1) WHERE id = ?`,
		projectID)
	return err
}

// StopRequested reads the persisted stop hint.
func (s *Store) StopRequested(projectID string) bool {
	var flag sql.NullInt64
	_ = s.db.QueryRow(`SELECT json_extract(metadata, '$.parallel_stop_requested') FROM projects WHERE id = ?`, projectID).Scan(&flag)
	return flag.Valid && flag.Int64 != 0
}

// --- stale session reaping ---

var reapThresholds = map[domain.SessionType]time.Duration{
	domain.SessionInitializer: 35 * time.Minute,
	domain.SessionCoding:      15 * time.Minute,
	domain.SessionReview:      10 * time.Minute,
}

// ReapStaleSessions transitions any running session whose last heartbeat
// exceeds its type's threshold to interrupted, and returns how many it swept.
func (s *Store) ReapStaleSessions(ctx context.Context) (int, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT id, type, last_heartbeat FROM sessions WHERE status = 'running'`)
	if err != nil {
		return 0, err
	}
	type stale struct {
		id string
	}
	var toReap []stale
	now := time.Now()
	for rows.Next() {
		var id, sessionType string
		var lastHeartbeat sql.NullTime
		if err := rows.Scan(&id, &sessionType, &lastHeartbeat); err != nil {
			rows.Close()
			return 0, err
		}
		threshold, ok := reapThresholds[domain.SessionType(sessionType)]
		if !ok {
			threshold = 15 * time.Minute
		}
		if lastHeartbeat.Valid && now.Sub(lastHeartbeat.Time) > threshold {
			toReap = append(toReap, stale{id: id})
		}
	}
	rows.Close()

	for _, st := range toReap {
		if _, err := s.db.ExecContext(ctx, `
			UPDATE sessions SET status = 'interrupted', interrupt_reason = 'stale: heartbeat exceeded threshold', ended_at = CURRENT_TIMESTAMP
			WHERE id = ?`, st.id); err != nil {
			return 0, err
		}
	}
	return len(toReap), nil
}
