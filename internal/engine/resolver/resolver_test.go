package resolver

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/harrison/conductor/internal/engine/domain"
)

func hardTask(id int64, priority int, deps ...int64) domain.EngineTask {
	return domain.EngineTask{ID: id, Priority: priority, DependsOn: deps, DependencyType: domain.DependencyHard}
}

func TestResolveLinearChain(t *testing.T) {
	tasks := []domain.EngineTask{
		hardTask(1, 0),
		hardTask(2, 0, 1),
		hardTask(3, 0, 2),
	}
	g, err := New().Resolve(tasks)
	require.NoError(t, err)
	require.Len(t, g.Batches, 3)
	assert.Equal(t, []int64{1}, g.Batches[0])
	assert.Equal(t, []int64{2}, g.Batches[1])
	assert.Equal(t, []int64{3}, g.Batches[2])
	assert.Empty(t, g.Cycles)
}

func TestResolveDiamond(t *testing.T) {
	tasks := []domain.EngineTask{
		hardTask(1, 0),
		hardTask(2, 0, 1),
		hardTask(3, 0, 1),
		hardTask(4, 0, 2, 3),
	}
	g, err := New().Resolve(tasks)
	require.NoError(t, err)
	require.Len(t, g.Batches, 3)
	assert.ElementsMatch(t, []int64{2, 3}, g.Batches[1])
}

func TestResolvePriorityOrderingWithinBatch(t *testing.T) {
	tasks := []domain.EngineTask{
		hardTask(1, 5),
		hardTask(2, 1),
		hardTask(3, 3),
	}
	g, err := New().Resolve(tasks)
	require.NoError(t, err)
	require.Len(t, g.Batches, 1)
	assert.Equal(t, []int64{2, 3, 1}, g.Batches[0])
}

func TestResolveCycleDetected(t *testing.T) {
	tasks := []domain.EngineTask{
		hardTask(1, 0, 2),
		hardTask(2, 0, 1),
	}
	g, err := New().Resolve(tasks)
	require.NoError(t, err)
	assert.NotEmpty(t, g.Cycles)
	assert.Empty(t, g.Batches)
}

func TestResolveSelfDependencyIsCycle(t *testing.T) {
	tasks := []domain.EngineTask{hardTask(1, 0, 1)}
	g, err := New().Resolve(tasks)
	require.NoError(t, err)
	assert.NotEmpty(t, g.Cycles)
}

func TestResolveSoftEdgeDoesNotBlock(t *testing.T) {
	soft := domain.EngineTask{ID: 2, DependsOn: []int64{1}, DependencyType: domain.DependencySoft}
	tasks := []domain.EngineTask{hardTask(1, 0), soft}
	g, err := New().Resolve(tasks)
	require.NoError(t, err)
	require.Len(t, g.Batches, 1)
	assert.ElementsMatch(t, []int64{1, 2}, g.Batches[0])
}

func TestResolveMissingDependencyRecordedNotBlocking(t *testing.T) {
	tasks := []domain.EngineTask{hardTask(1, 0, 99)}
	g, err := New().Resolve(tasks)
	require.NoError(t, err)
	require.Len(t, g.Batches, 1)
	assert.Equal(t, []int64{99}, g.MissingDeps[1])
}

func TestResolveDuplicateDependencyIdsDeduplicated(t *testing.T) {
	tasks := []domain.EngineTask{
		hardTask(1, 0),
		hardTask(2, 0, 1, 1, 1),
	}
	g, err := New().Resolve(tasks)
	require.NoError(t, err)
	require.Equal(t, [][]int64{{1}, {2}}, g.Batches)
	assert.Empty(t, g.Cycles)
}

func TestResolveEmptyInput(t *testing.T) {
	g, err := New().Resolve(nil)
	require.NoError(t, err)
	assert.Empty(t, g.Batches)
	assert.Empty(t, g.Cycles)
}

func TestCriticalPath(t *testing.T) {
	r := New()
	tasks := []domain.EngineTask{
		hardTask(1, 0),
		hardTask(2, 0, 1),
		hardTask(3, 0, 2),
	}
	_, err := r.Resolve(tasks)
	require.NoError(t, err)
	path := r.CriticalPath()
	assert.Equal(t, []int64{1, 2, 3}, path)
}
