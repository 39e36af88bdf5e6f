package workflow_test

import (
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/useneurox-company/ERP--sub000/internal/domain"
	"github.com/useneurox-company/ERP--sub000/internal/workflow"
)

var now = time.Date(2024, 5, 10, 9, 30, 0, 0, time.UTC)

func newStage(status domain.StageStatus) *domain.Stage {
	s := &domain.Stage{Name: "Measurement", StageType: domain.StageTypeMeasurement, Status: status}
	s.ID = uuid.New()
	return s
}

func TestStart(t *testing.T) {
	t.Run("pending unblocked stage starts", func(t *testing.T) {
		s := newStage(domain.StageStatusPending)
		require.NoError(t, workflow.Start(s, workflow.BlockState{}, now))
		assert.Equal(t, domain.StageStatusInProgress, s.Status)
		require.NotNil(t, s.ActualStartDate)
		assert.True(t, s.ActualStartDate.Equal(now))
	})

	t.Run("blocked stage is rejected with its blockers", func(t *testing.T) {
		s := newStage(domain.StageStatusPending)
		dep := uuid.New()

		err := workflow.Start(s, workflow.BlockState{Blocked: true, Blockers: []uuid.UUID{dep}}, now)
		require.Error(t, err)
		assert.True(t, errors.Is(err, domain.ErrBlocked))

		var blocked *domain.BlockedError
		require.True(t, errors.As(err, &blocked))
		assert.Equal(t, []uuid.UUID{dep}, blocked.Blockers)
		assert.Equal(t, domain.StageStatusPending, s.Status)
		assert.Nil(t, s.ActualStartDate)
	})

	t.Run("starting twice is a rejection, not a no-op", func(t *testing.T) {
		s := newStage(domain.StageStatusInProgress)
		err := workflow.Start(s, workflow.BlockState{}, now)
		assert.True(t, errors.Is(err, domain.ErrInvalidTransition))
	})

	t.Run("completed stage cannot start", func(t *testing.T) {
		s := newStage(domain.StageStatusCompleted)
		err := workflow.Start(s, workflow.BlockState{}, now)
		assert.True(t, errors.Is(err, domain.ErrInvalidTransition))
	})
}

func TestComplete(t *testing.T) {
	t.Run("in progress stage completes", func(t *testing.T) {
		s := newStage(domain.StageStatusInProgress)
		require.NoError(t, workflow.Complete(s, now))
		assert.Equal(t, domain.StageStatusCompleted, s.Status)
		require.NotNil(t, s.ActualEndDate)
	})

	for _, st := range []domain.StageStatus{domain.StageStatusPending, domain.StageStatusCompleted} {
		t.Run("rejects "+string(st), func(t *testing.T) {
			s := newStage(st)
			err := workflow.Complete(s, now)
			var te *domain.TransitionError
			require.True(t, errors.As(err, &te))
			assert.Equal(t, string(st), te.From)
			assert.NotEmpty(t, te.Reason)
		})
	}
}

func TestReopen(t *testing.T) {
	t.Run("completed stage goes back to in progress", func(t *testing.T) {
		s := newStage(domain.StageStatusInProgress)
		require.NoError(t, workflow.Complete(s, now))

		require.NoError(t, workflow.Reopen(s, "user-1", "Client changed dimensions", now.Add(time.Hour)))
		assert.Equal(t, domain.StageStatusInProgress, s.Status)
		assert.Nil(t, s.ActualEndDate)
		require.Len(t, s.ReopenHistory, 1)
		assert.Equal(t, "user-1", s.ReopenHistory[0].ReopenedBy)
		assert.Equal(t, "Client changed dimensions", s.ReopenHistory[0].Reason)

		require.NoError(t, workflow.Complete(s, now.Add(2*time.Hour)))
		require.NoError(t, workflow.Reopen(s, "user-2", "Again", now.Add(3*time.Hour)))
		assert.Len(t, s.ReopenHistory, 2)
	})

	t.Run("requires a reason", func(t *testing.T) {
		s := newStage(domain.StageStatusCompleted)
		err := workflow.Reopen(s, "user-1", "   ", now)
		assert.True(t, errors.Is(err, domain.ErrValidation))
		assert.Equal(t, domain.StageStatusCompleted, s.Status)
		assert.Empty(t, s.ReopenHistory)
	})

	t.Run("only from completed", func(t *testing.T) {
		for _, st := range []domain.StageStatus{domain.StageStatusPending, domain.StageStatusInProgress} {
			s := newStage(st)
			err := workflow.Reopen(s, "user-1", "why", now)
			assert.True(t, errors.Is(err, domain.ErrInvalidTransition))
			assert.Empty(t, s.ReopenHistory)
		}
	})
}

func TestStageLocks(t *testing.T) {
	locks := workflow.NewStageLocks()
	id := uuid.New()

	var mu sync.Mutex
	inside := 0
	maxInside := 0

	var wg sync.WaitGroup
	for i := 0; i < 10; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			unlock := locks.Lock(id)
			defer unlock()

			mu.Lock()
			inside++
			if inside > maxInside {
				maxInside = inside
			}
			mu.Unlock()

			time.Sleep(time.Millisecond)

			mu.Lock()
			inside--
			mu.Unlock()
		}()
	}
	wg.Wait()

	assert.Equal(t, 1, maxInside)

	// a different stage is not held up
	unlock := locks.Lock(uuid.New())
	unlock()
}
