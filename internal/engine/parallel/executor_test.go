package parallel

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/harrison/conductor/internal/engine/domain"
	"github.com/harrison/conductor/internal/engine/modelselect"
	"github.com/harrison/conductor/internal/engine/worktree"
)

type fakeAgent struct {
	mu      sync.Mutex
	active  int32
	peak    int32
	delay   time.Duration
	fail    bool
}

func (f *fakeAgent) Run(ctx context.Context, inv Invocation) (Outcome, error) {
	cur := atomic.AddInt32(&f.active, 1)
	f.mu.Lock()
	if cur > f.peak {
		f.peak = cur
	}
	f.mu.Unlock()
	defer atomic.AddInt32(&f.active, -1)

	select {
	case <-time.After(f.delay):
	case <-ctx.Done():
		return Outcome{}, ctx.Err()
	}
	return Outcome{OK: !f.fail, CostUSD: 0.01}, nil
}

type fakeSessions struct{ mu sync.Mutex; ended []domain.SessionStatus }

func (s *fakeSessions) BeginSession(task domain.EngineTask, tier domain.ModelTier) (string, error) {
	return fmt.Sprintf("sess-%d", task.ID), nil
}
func (s *fakeSessions) Heartbeat(sessionID string) error { return nil }
func (s *fakeSessions) EndSession(sessionID string, status domain.SessionStatus, reason string, outcome Outcome) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.ended = append(s.ended, status)
	return nil
}

type fakeTasks struct{ mu sync.Mutex; done []int64 }

func (t *fakeTasks) WorktreeNameFor(taskID int64) (string, error) { return "worktree-default", nil }
func (t *fakeTasks) MarkDone(taskID int64) error {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.done = append(t.done, taskID)
	return nil
}

type fakeWTRunner struct{}

func (fakeWTRunner) Run(ctx context.Context, dir string, args ...string) (string, error) {
	return "refs/remotes/origin/main", nil
}

type fakeWTStore struct {
	mu   sync.Mutex
	rows map[int64]domain.Worktree
}

func newFakeWTStore() *fakeWTStore { return &fakeWTStore{rows: map[int64]domain.Worktree{}} }
func (s *fakeWTStore) UpsertWorktree(w domain.Worktree) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.rows[w.EpicID] = w
	return nil
}
func (s *fakeWTStore) GetWorktree(epicID int64) (domain.Worktree, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	w, ok := s.rows[epicID]
	return w, ok, nil
}
func (s *fakeWTStore) ListWorktrees(projectID string) ([]domain.Worktree, error) { return nil, nil }

func TestExecuteBatchRespectsConcurrencyBound(t *testing.T) {
	agent := &fakeAgent{delay: 20 * time.Millisecond}
	wt := worktree.New(t.TempDir(), fakeWTRunner{}, newFakeWTStore())
	wt.WorktreeRoot = t.TempDir()

	exec := New(2, agent, wt, modelselect.New(nil), &fakeSessions{}, &fakeTasks{})

	tasks := []domain.EngineTask{{ID: 1}, {ID: 2}, {ID: 3}, {ID: 4}}
	results, err := exec.ExecuteBatch(context.Background(), "proj", map[int64]int64{1: 1, 2: 1, 3: 1, 4: 1}, map[int64]string{1: "Epic"}, tasks)
	require.NoError(t, err)
	require.Len(t, results, 4)
	for _, r := range results {
		assert.True(t, r.Success)
	}
	assert.LessOrEqual(t, agent.peak, int32(2))
}

func TestExecuteBatchCancellationInterruptsInFlight(t *testing.T) {
	agent := &fakeAgent{delay: 500 * time.Millisecond}
	wt := worktree.New(t.TempDir(), fakeWTRunner{}, newFakeWTStore())
	wt.WorktreeRoot = t.TempDir()
	sessions := &fakeSessions{}

	exec := New(2, agent, wt, modelselect.New(nil), sessions, &fakeTasks{})

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()

	tasks := []domain.EngineTask{{ID: 1}, {ID: 2}}
	results, err := exec.ExecuteBatch(ctx, "proj", map[int64]int64{1: 1, 2: 1}, map[int64]string{1: "Epic"}, tasks)
	require.NoError(t, err)
	for _, r := range results {
		assert.False(t, r.Success)
	}
}
