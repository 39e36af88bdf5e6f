package workflow_test

import (
	"errors"
	"sync"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/useneurox-company/ERP--sub000/internal/domain"
	"github.com/useneurox-company/ERP--sub000/internal/workflow"
)

func statuses(m map[uuid.UUID]domain.StageStatus) workflow.StatusFunc {
	return func(id uuid.UUID) domain.StageStatus { return m[id] }
}

func TestGraph_AddDependency(t *testing.T) {
	a, b, c := uuid.New(), uuid.New(), uuid.New()

	t.Run("rejects self dependency", func(t *testing.T) {
		g := workflow.NewGraph()
		err := g.AddDependency(a, a)
		require.Error(t, err)
		assert.True(t, errors.Is(err, domain.ErrCycleDetected))
		assert.Empty(t, g.Dependencies(a))
	})

	t.Run("rejects a cycle and leaves the graph unchanged", func(t *testing.T) {
		g := workflow.NewGraph()
		require.NoError(t, g.AddDependency(a, b))
		require.NoError(t, g.AddDependency(b, c))

		before := map[uuid.UUID][]uuid.UUID{a: g.Dependencies(a), b: g.Dependencies(b), c: g.Dependencies(c)}

		for i := 0; i < 3; i++ {
			err := g.AddDependency(c, a)
			var cycleErr *domain.CycleError
			require.True(t, errors.As(err, &cycleErr))
			assert.Equal(t, c, cycleErr.StageID)
		}

		assert.Equal(t, before[a], g.Dependencies(a))
		assert.Equal(t, before[b], g.Dependencies(b))
		assert.Equal(t, before[c], g.Dependencies(c))
		assert.Equal(t, []uuid.UUID{b}, g.Dependents(c))
	})

	t.Run("duplicate edges are idempotent", func(t *testing.T) {
		g := workflow.NewGraph()
		require.NoError(t, g.AddDependency(a, b))
		require.NoError(t, g.AddDependency(a, b))
		assert.Equal(t, []uuid.UUID{b}, g.Dependencies(a))
		assert.Equal(t, []uuid.UUID{a}, g.Dependents(b))
	})

	t.Run("diamond is not a cycle", func(t *testing.T) {
		d := uuid.New()
		g := workflow.NewGraph()
		require.NoError(t, g.AddDependency(b, a))
		require.NoError(t, g.AddDependency(c, a))
		require.NoError(t, g.AddDependency(d, b))
		require.NoError(t, g.AddDependency(d, c))
		assert.Len(t, g.Dependents(a), 2)
	})

	t.Run("stored cyclic edges are reported", func(t *testing.T) {
		edges := []domain.StageDependency{
			{StageID: a, DependsOnStageID: b},
			{StageID: b, DependsOnStageID: a},
		}
		_, err := workflow.NewGraphFromEdges(edges)
		assert.True(t, errors.Is(err, domain.ErrCycleDetected))
	})
}

func TestGraph_RemoveDependency(t *testing.T) {
	a, b := uuid.New(), uuid.New()
	g := workflow.NewGraph()
	require.NoError(t, g.AddDependency(a, b))

	assert.True(t, g.RemoveDependency(a, b))
	assert.False(t, g.RemoveDependency(a, b))
	assert.False(t, g.HasDependency(a, b))
	assert.Empty(t, g.Dependents(b))

	// the reverse edge is now legal
	assert.NoError(t, g.AddDependency(b, a))
}

func TestGraph_IsBlocked(t *testing.T) {
	a, b, c := uuid.New(), uuid.New(), uuid.New()

	g := workflow.NewGraph()
	require.NoError(t, g.AddDependency(a, b))
	require.NoError(t, g.AddDependency(b, c))

	t.Run("incomplete direct dependency blocks", func(t *testing.T) {
		for _, st := range []domain.StageStatus{domain.StageStatusPending, domain.StageStatusInProgress, ""} {
			state := g.IsBlocked(a, statuses(map[uuid.UUID]domain.StageStatus{b: st}))
			assert.True(t, state.Blocked)
			assert.Equal(t, []uuid.UUID{b}, state.Blockers)
		}
	})

	t.Run("only direct edges are checked", func(t *testing.T) {
		state := g.IsBlocked(a, statuses(map[uuid.UUID]domain.StageStatus{
			b: domain.StageStatusCompleted,
			c: domain.StageStatusPending,
		}))
		assert.False(t, state.Blocked)
		assert.Empty(t, state.Blockers)
	})

	t.Run("stage without dependencies", func(t *testing.T) {
		assert.False(t, g.IsBlocked(c, statuses(nil)).Blocked)
	})
}

func TestGraph_TopologicalOrder(t *testing.T) {
	a, b, c, d := uuid.New(), uuid.New(), uuid.New(), uuid.New()

	g := workflow.NewGraph()
	require.NoError(t, g.AddDependency(a, c))
	require.NoError(t, g.AddDependency(b, a))

	order, err := g.TopologicalOrder([]uuid.UUID{a, b, c, d})
	require.NoError(t, err)
	assert.Equal(t, []uuid.UUID{c, a, b, d}, order)
}

func TestGraph_ConcurrentReaders(t *testing.T) {
	root := uuid.New()
	g := workflow.NewGraph()

	var wg sync.WaitGroup
	for i := 0; i < 20; i++ {
		wg.Add(2)
		go func() {
			defer wg.Done()
			_ = g.AddDependency(uuid.New(), root)
		}()
		go func() {
			defer wg.Done()
			_ = g.Dependents(root)
			_ = g.IsBlocked(root, statuses(nil))
		}()
	}
	wg.Wait()

	assert.Len(t, g.Dependents(root), 20)
}
