package service_test

import (
	"context"
	"strings"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/useneurox-company/ERP--sub000/internal/domain"
	"github.com/useneurox-company/ERP--sub000/internal/service"
)

func strPtr(s string) *string { return &s }

func TestNotificationService_StageEvents(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()

	completed := domain.Stage{BaseModel: domain.BaseModel{ID: uuid.New()}, Name: "Measurement"}
	ready := domain.Stage{BaseModel: domain.BaseModel{ID: uuid.New()}, Name: "Specification", AssigneeID: strPtr("anna")}
	waiting := domain.Stage{BaseModel: domain.BaseModel{ID: uuid.New()}, Name: "Docs", AssigneeID: strPtr("boris")}
	unassigned := domain.Stage{BaseModel: domain.BaseModel{ID: uuid.New()}, Name: "Install"}

	err := e.notifications.StageCompleted(ctx, service.StageCompletedEvent{
		Stage:      completed,
		ActorID:    actor,
		Dependents: []domain.Stage{ready, waiting, unassigned},
		Unblocked:  []uuid.UUID{ready.ID},
	})
	require.NoError(t, err)

	page, err := e.notifications.ListForUser(ctx, "anna", 1, 10, false)
	require.NoError(t, err)
	annas := page.Data.([]domain.NotificationDTO)
	require.Len(t, annas, 1)
	assert.Equal(t, string(domain.NotificationTypeStageUnblocked), annas[0].Type)
	assert.Equal(t, ready.ID, *annas[0].EntityID)

	page, err = e.notifications.ListForUser(ctx, "boris", 1, 10, false)
	require.NoError(t, err)
	boris := page.Data.([]domain.NotificationDTO)
	require.Len(t, boris, 1)
	assert.Equal(t, string(domain.NotificationTypeStageCompleted), boris[0].Type)

	err = e.notifications.StageReopened(ctx, service.StageReopenedEvent{
		Stage:      completed,
		ActorID:    actor,
		Reason:     strings.Repeat("long reason ", 100),
		Dependents: []domain.Stage{ready},
	})
	require.NoError(t, err)

	count, err := e.notifications.UnreadCount(ctx, "anna")
	require.NoError(t, err)
	assert.Equal(t, int64(2), count.Count)

	page, err = e.notifications.ListForUser(ctx, "anna", 1, 10, false)
	require.NoError(t, err)
	for _, n := range page.Data.([]domain.NotificationDTO) {
		assert.LessOrEqual(t, len([]rune(n.Message)), 500)
	}

	t.Run("mark as read is scoped to the user", func(t *testing.T) {
		err := e.notifications.MarkAsRead(ctx, "boris", annas[0].ID)
		assert.ErrorIs(t, err, domain.ErrNotFound)

		require.NoError(t, e.notifications.MarkAsRead(ctx, "anna", annas[0].ID))
		count, err := e.notifications.UnreadCount(ctx, "anna")
		require.NoError(t, err)
		assert.Equal(t, int64(1), count.Count)

		require.NoError(t, e.notifications.MarkAllAsRead(ctx, "anna"))
		unread, err := e.notifications.ListForUser(ctx, "anna", 1, 10, true)
		require.NoError(t, err)
		assert.Zero(t, unread.Total)
	})

	t.Run("user is required", func(t *testing.T) {
		_, err := e.notifications.UnreadCount(ctx, "")
		assert.ErrorIs(t, err, domain.ErrValidation)
	})
}
