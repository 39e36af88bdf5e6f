package service_test

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/useneurox-company/ERP--sub000/internal/domain"
	"github.com/useneurox-company/ERP--sub000/internal/testutil"
)

func TestStageService_Lifecycle(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()

	project := testutil.CreateProject(t, e.db, "Kitchen")
	design := testutil.CreateStage(t, e.db, project.ID, "Design", domain.StageTypeConstructorDocumentation, 0)
	build := testutil.CreateStage(t, e.db, project.ID, "Build", domain.StageTypeProduction, 1)
	require.NoError(t, e.db.Model(&domain.Stage{}).Where("id = ?", build.ID).Update("assignee_id", "carpenter").Error)

	require.NoError(t, e.stages.AddDependency(ctx, build.ID, design.ID, actor))

	t.Run("blocked stage cannot start", func(t *testing.T) {
		_, err := e.stages.Start(ctx, build.ID, actor)
		var blocked *domain.BlockedError
		require.True(t, errors.As(err, &blocked))
		assert.Equal(t, []uuid.UUID{design.ID}, blocked.Blockers)

		state, err := e.stages.IsBlocked(ctx, build.ID)
		require.NoError(t, err)
		assert.True(t, state.Blocked)
	})

	t.Run("complete unblocks dependents and notifies", func(t *testing.T) {
		started, err := e.stages.Start(ctx, design.ID, actor)
		require.NoError(t, err)
		assert.Equal(t, domain.StageStatusInProgress, started.Status)
		assert.NotNil(t, started.ActualStartDate)

		result, err := e.stages.Complete(ctx, design.ID, actor)
		require.NoError(t, err)
		assert.Equal(t, domain.StageStatusCompleted, result.Stage.Status)
		assert.Equal(t, []uuid.UUID{build.ID}, result.Dependents)
		assert.Equal(t, []uuid.UUID{build.ID}, result.Unblocked)

		require.Len(t, e.sink.completed, 1)
		assert.Equal(t, []uuid.UUID{build.ID}, e.sink.completed[0].Unblocked)
		require.Len(t, e.sink.completed[0].Dependents, 1)
		assert.Equal(t, "carpenter", *e.sink.completed[0].Dependents[0].AssigneeID)

		dto, err := e.stages.Start(ctx, build.ID, actor)
		require.NoError(t, err)
		assert.False(t, dto.Blocked)
		assert.Equal(t, []uuid.UUID{design.ID}, dto.DependsOn)
	})

	t.Run("complete twice is an invalid transition", func(t *testing.T) {
		_, err := e.stages.Complete(ctx, design.ID, actor)
		assert.ErrorIs(t, err, domain.ErrInvalidTransition)
	})

	t.Run("reopen needs a reason", func(t *testing.T) {
		_, err := e.stages.Reopen(ctx, design.ID, actor, "  ")
		assert.ErrorIs(t, err, domain.ErrValidation)
	})

	t.Run("reopen records history", func(t *testing.T) {
		dto, err := e.stages.Reopen(ctx, design.ID, actor, "client changed the layout")
		require.NoError(t, err)
		assert.Equal(t, domain.StageStatusInProgress, dto.Status)
		assert.Nil(t, dto.ActualEndDate)

		require.Len(t, e.sink.reopened, 1)
		assert.Equal(t, "client changed the layout", e.sink.reopened[0].Reason)

		var stored domain.Stage
		require.NoError(t, e.db.First(&stored, "id = ?", design.ID).Error)
		require.Len(t, stored.ReopenHistory, 1)
		assert.Equal(t, actor, stored.ReopenHistory[0].ReopenedBy)

		history, err := e.stages.History(ctx, design.ID)
		require.NoError(t, err)
		require.Len(t, history, 3)
		assert.Equal(t, domain.StageStatusPending, history[0].FromStatus)
		assert.Equal(t, domain.StageStatusCompleted, history[1].ToStatus)
		assert.Equal(t, "client changed the layout", history[2].Reason)
	})
}

func TestStageService_ActorRequired(t *testing.T) {
	e := newEnv(t)
	project := testutil.CreateProject(t, e.db, "P")
	stage := testutil.CreateStage(t, e.db, project.ID, "S", domain.StageTypeGeneric, 0)

	_, err := e.stages.Start(context.Background(), stage.ID, "")
	assert.ErrorIs(t, err, domain.ErrValidation)

	history, err := e.stages.History(context.Background(), stage.ID)
	require.NoError(t, err)
	assert.Empty(t, history)
}

func TestStageService_UnknownStage(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()

	_, err := e.stages.Start(ctx, uuid.New(), actor)
	assert.ErrorIs(t, err, domain.ErrNotFound)

	_, err = e.stages.GetByID(ctx, uuid.New())
	assert.ErrorIs(t, err, domain.ErrNotFound)

	_, err = e.stages.Dependents(ctx, uuid.New())
	assert.ErrorIs(t, err, domain.ErrNotFound)
}

func TestStageService_SinkFailureDoesNotFailTransition(t *testing.T) {
	e := newEnv(t)
	e.sink.err = errors.New("mail server down")
	ctx := context.Background()

	project := testutil.CreateProject(t, e.db, "P")
	stage := testutil.CreateStage(t, e.db, project.ID, "S", domain.StageTypeGeneric, 0)

	_, err := e.stages.Start(ctx, stage.ID, actor)
	require.NoError(t, err)
	result, err := e.stages.Complete(ctx, stage.ID, actor)
	require.NoError(t, err)
	assert.Equal(t, domain.StageStatusCompleted, result.Stage.Status)
	assert.Empty(t, result.Unblocked)
}

func TestStageService_Dependencies(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()

	project := testutil.CreateProject(t, e.db, "P")
	a := testutil.CreateStage(t, e.db, project.ID, "A", domain.StageTypeGeneric, 0)
	b := testutil.CreateStage(t, e.db, project.ID, "B", domain.StageTypeGeneric, 1)
	c := testutil.CreateStage(t, e.db, project.ID, "C", domain.StageTypeGeneric, 2)

	require.NoError(t, e.stages.AddDependency(ctx, b.ID, a.ID, actor))
	require.NoError(t, e.stages.AddDependency(ctx, c.ID, b.ID, actor))

	t.Run("duplicate edge is a no-op", func(t *testing.T) {
		require.NoError(t, e.stages.AddDependency(ctx, b.ID, a.ID, actor))
		var count int64
		require.NoError(t, e.db.Model(&domain.StageDependency{}).Where("stage_id = ?", b.ID).Count(&count).Error)
		assert.Equal(t, int64(1), count)
	})

	t.Run("cycle is rejected", func(t *testing.T) {
		err := e.stages.AddDependency(ctx, a.ID, c.ID, actor)
		assert.ErrorIs(t, err, domain.ErrCycleDetected)

		err = e.stages.AddDependency(ctx, a.ID, a.ID, actor)
		assert.ErrorIs(t, err, domain.ErrCycleDetected)
	})

	t.Run("other project is rejected", func(t *testing.T) {
		other := testutil.CreateProject(t, e.db, "Other")
		x := testutil.CreateStage(t, e.db, other.ID, "X", domain.StageTypeGeneric, 0)
		err := e.stages.AddDependency(ctx, x.ID, a.ID, actor)
		assert.ErrorIs(t, err, domain.ErrValidation)
	})

	t.Run("missing target is a validation error", func(t *testing.T) {
		err := e.stages.AddDependency(ctx, a.ID, uuid.New(), actor)
		assert.ErrorIs(t, err, domain.ErrValidation)
	})

	t.Run("dependents", func(t *testing.T) {
		ids, err := e.stages.Dependents(ctx, a.ID)
		require.NoError(t, err)
		assert.Equal(t, []uuid.UUID{b.ID}, ids)
	})

	t.Run("remove", func(t *testing.T) {
		require.NoError(t, e.stages.RemoveDependency(ctx, c.ID, b.ID, actor))
		err := e.stages.RemoveDependency(ctx, c.ID, b.ID, actor)
		assert.ErrorIs(t, err, domain.ErrNotFound)

		state, err := e.stages.IsBlocked(ctx, c.ID)
		require.NoError(t, err)
		assert.False(t, state.Blocked)
	})
}

func TestStageService_Create(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()
	project := testutil.CreateProject(t, e.db, "P")
	first := testutil.CreateStage(t, e.db, project.ID, "Measure", domain.StageTypeMeasurement, 0)

	start := "2026-03-01"
	dto, err := e.stages.Create(ctx, project.ID, &domain.CreateStageRequest{
		Name:             "Spec",
		StageType:        domain.StageTypeTechnicalSpecification,
		DisplayOrder:     1,
		PlannedStartDate: &start,
		DependsOn:        []uuid.UUID{first.ID},
	}, actor)
	require.NoError(t, err)
	assert.Equal(t, domain.StageStatusPending, dto.Status)
	assert.Equal(t, []uuid.UUID{first.ID}, dto.DependsOn)
	assert.True(t, dto.Blocked)
	require.NotNil(t, dto.PlannedStartDate)
	assert.Equal(t, "2026-03-01T00:00:00Z", *dto.PlannedStartDate)
	assert.NotNil(t, dto.TypeData)

	_, err = e.stages.Create(ctx, project.ID, &domain.CreateStageRequest{Name: "X", StageType: "painting"}, actor)
	assert.ErrorIs(t, err, domain.ErrValidation)

	bad := "next week"
	_, err = e.stages.Create(ctx, project.ID, &domain.CreateStageRequest{Name: "X", StageType: domain.StageTypeGeneric, PlannedEndDate: &bad}, actor)
	assert.ErrorIs(t, err, domain.ErrValidation)

	_, err = e.stages.Create(ctx, uuid.New(), &domain.CreateStageRequest{Name: "X", StageType: domain.StageTypeGeneric}, actor)
	assert.ErrorIs(t, err, domain.ErrNotFound)

	_, err = e.stages.Create(ctx, project.ID, &domain.CreateStageRequest{
		Name: "Orphan", StageType: domain.StageTypeGeneric, DependsOn: []uuid.UUID{uuid.New()},
	}, actor)
	assert.ErrorIs(t, err, domain.ErrValidation)

	var count int64
	require.NoError(t, e.db.Model(&domain.Stage{}).Where("name = ?", "Orphan").Count(&count).Error)
	assert.Zero(t, count, "a rejected dependency rolls back the stage")
}

func TestStageService_ConcurrentOppositeDependenciesNeverFormCycle(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()

	for i := 0; i < 20; i++ {
		project := testutil.CreateProject(t, e.db, fmt.Sprintf("Wardrobe %d", i))
		a := testutil.CreateStage(t, e.db, project.ID, "Measure", domain.StageTypeGeneric, 0)
		b := testutil.CreateStage(t, e.db, project.ID, "Design", domain.StageTypeGeneric, 1)

		var wg sync.WaitGroup
		errs := make([]error, 2)
		wg.Add(2)
		go func() {
			defer wg.Done()
			errs[0] = e.stages.AddDependency(ctx, a.ID, b.ID, actor)
		}()
		go func() {
			defer wg.Done()
			errs[1] = e.stages.AddDependency(ctx, b.ID, a.ID, actor)
		}()
		wg.Wait()

		var ok, cycles int
		for _, err := range errs {
			switch {
			case err == nil:
				ok++
			case errors.Is(err, domain.ErrCycleDetected):
				cycles++
			default:
				t.Fatalf("unexpected error: %v", err)
			}
		}
		assert.Equal(t, 1, ok)
		assert.Equal(t, 1, cycles)

		var edges int64
		require.NoError(t, e.db.Model(&domain.StageDependency{}).Where("project_id = ?", project.ID).Count(&edges).Error)
		assert.Equal(t, int64(1), edges)

		// the graph still loads and exactly one stage is blocked
		stateA, err := e.stages.IsBlocked(ctx, a.ID)
		require.NoError(t, err)
		stateB, err := e.stages.IsBlocked(ctx, b.ID)
		require.NoError(t, err)
		assert.NotEqual(t, stateA.Blocked, stateB.Blocked)
	}
}

// assertStartedAfterDependency walks the transition ledger in commit order and
// fails if stage entered in_progress while dep was not completed
func assertStartedAfterDependency(t *testing.T, e *env, stage, dep uuid.UUID, depStatus domain.StageStatus) {
	t.Helper()
	var ledger []domain.StageTransition
	require.NoError(t, e.db.Where("stage_id IN ?", []uuid.UUID{stage, dep}).Order("rowid").Find(&ledger).Error)
	for _, tr := range ledger {
		if tr.StageID == dep {
			depStatus = tr.ToStatus
			continue
		}
		if tr.ToStatus == domain.StageStatusInProgress {
			assert.Equal(t, domain.StageStatusCompleted, depStatus, "stage started while its dependency was %s", depStatus)
		}
	}
}

func TestStageService_StartRacingDependencyTransitions(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()

	setStatus := func(id uuid.UUID, status domain.StageStatus) {
		require.NoError(t, e.db.Model(&domain.Stage{}).Where("id = ?", id).Update("status", status).Error)
	}

	checkStart := func(t *testing.T, stageID uuid.UUID, dto *domain.StageDTO, err error) {
		t.Helper()
		var stored domain.Stage
		require.NoError(t, e.db.First(&stored, "id = ?", stageID).Error)
		if err != nil {
			var blocked *domain.BlockedError
			require.True(t, errors.As(err, &blocked), "unexpected error: %v", err)
			assert.Equal(t, domain.StageStatusPending, stored.Status)
			return
		}
		assert.Equal(t, domain.StageStatusInProgress, dto.Status)
		assert.Equal(t, domain.StageStatusInProgress, stored.Status)
	}

	t.Run("start against reopen", func(t *testing.T) {
		for i := 0; i < 20; i++ {
			project := testutil.CreateProject(t, e.db, fmt.Sprintf("Kitchen %d", i))
			dep := testutil.CreateStage(t, e.db, project.ID, "Measure", domain.StageTypeGeneric, 0)
			stage := testutil.CreateStage(t, e.db, project.ID, "Assemble", domain.StageTypeGeneric, 1)
			require.NoError(t, e.stages.AddDependency(ctx, stage.ID, dep.ID, actor))
			setStatus(dep.ID, domain.StageStatusCompleted)

			var wg sync.WaitGroup
			var started *domain.StageDTO
			var startErr, reopenErr error
			wg.Add(2)
			go func() {
				defer wg.Done()
				started, startErr = e.stages.Start(ctx, stage.ID, actor)
			}()
			go func() {
				defer wg.Done()
				_, reopenErr = e.stages.Reopen(ctx, dep.ID, actor, "wrong measurements")
			}()
			wg.Wait()

			require.NoError(t, reopenErr)
			checkStart(t, stage.ID, started, startErr)
			assertStartedAfterDependency(t, e, stage.ID, dep.ID, domain.StageStatusCompleted)
		}
	})

	t.Run("start against complete", func(t *testing.T) {
		for i := 0; i < 20; i++ {
			project := testutil.CreateProject(t, e.db, fmt.Sprintf("Bathroom %d", i))
			dep := testutil.CreateStage(t, e.db, project.ID, "Measure", domain.StageTypeGeneric, 0)
			stage := testutil.CreateStage(t, e.db, project.ID, "Assemble", domain.StageTypeGeneric, 1)
			require.NoError(t, e.stages.AddDependency(ctx, stage.ID, dep.ID, actor))
			setStatus(dep.ID, domain.StageStatusInProgress)

			var wg sync.WaitGroup
			var started *domain.StageDTO
			var startErr, completeErr error
			wg.Add(2)
			go func() {
				defer wg.Done()
				started, startErr = e.stages.Start(ctx, stage.ID, actor)
			}()
			go func() {
				defer wg.Done()
				_, completeErr = e.stages.Complete(ctx, dep.ID, actor)
			}()
			wg.Wait()

			require.NoError(t, completeErr)
			checkStart(t, stage.ID, started, startErr)
			assertStartedAfterDependency(t, e, stage.ID, dep.ID, domain.StageStatusInProgress)
		}
	})
}
