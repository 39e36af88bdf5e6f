package service

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/useneurox-company/ERP--sub000/internal/domain"
	"github.com/useneurox-company/ERP--sub000/internal/mapper"
	"github.com/useneurox-company/ERP--sub000/internal/repository"
)

// StageCompletedEvent describes a completed stage and the stages waiting on it
type StageCompletedEvent struct {
	Stage      domain.Stage
	ActorID    string
	Dependents []domain.Stage
	// Unblocked lists the dependents that have no unfinished dependency left
	Unblocked []uuid.UUID
}

// StageReopenedEvent describes a stage sent back to work
type StageReopenedEvent struct {
	Stage      domain.Stage
	ActorID    string
	Reason     string
	Dependents []domain.Stage
}

// NotificationSink receives lifecycle events after they are committed.
// Delivery failures never undo the transition.
type NotificationSink interface {
	StageCompleted(ctx context.Context, event StageCompletedEvent) error
	StageReopened(ctx context.Context, event StageReopenedEvent) error
}

var _ NotificationSink = (*NotificationService)(nil)

// NotificationService stores notifications for stage assignees
type NotificationService struct {
	notificationRepo *repository.NotificationRepository
	logger           *zap.Logger
}

// NewNotificationService creates a new NotificationService instance
func NewNotificationService(
	notificationRepo *repository.NotificationRepository,
	logger *zap.Logger,
) *NotificationService {
	return &NotificationService{
		notificationRepo: notificationRepo,
		logger:           logger,
	}
}

// StageCompleted notifies the assignee of every dependent stage. Dependents
// that can now start get a stage_unblocked notification.
func (s *NotificationService) StageCompleted(ctx context.Context, event StageCompletedEvent) error {
	unblocked := make(map[uuid.UUID]bool, len(event.Unblocked))
	for _, id := range event.Unblocked {
		unblocked[id] = true
	}

	var batch []domain.Notification
	for _, dep := range event.Dependents {
		if dep.AssigneeID == nil || *dep.AssigneeID == "" {
			continue
		}
		n := domain.Notification{
			UserID:     *dep.AssigneeID,
			Type:       string(domain.NotificationTypeStageCompleted),
			Title:      "Stage completed",
			Message:    fmt.Sprintf("%q was completed; %q is still waiting on other stages", event.Stage.Name, dep.Name),
			EntityID:   &dep.ID,
			EntityType: "stage",
		}
		if unblocked[dep.ID] {
			n.Type = string(domain.NotificationTypeStageUnblocked)
			n.Title = "Stage ready to start"
			n.Message = fmt.Sprintf("%q was completed; %q can start now", event.Stage.Name, dep.Name)
		}
		batch = append(batch, n)
	}
	return s.store(ctx, batch, event.Stage.ID)
}

// StageReopened warns the assignees of dependent stages that work they
// relied on is being changed
func (s *NotificationService) StageReopened(ctx context.Context, event StageReopenedEvent) error {
	var batch []domain.Notification
	for _, dep := range event.Dependents {
		if dep.AssigneeID == nil || *dep.AssigneeID == "" {
			continue
		}
		batch = append(batch, domain.Notification{
			UserID:     *dep.AssigneeID,
			Type:       string(domain.NotificationTypeStageReopened),
			Title:      "Stage reopened",
			Message:    truncate(fmt.Sprintf("%q was reopened: %s", event.Stage.Name, event.Reason), 500),
			EntityID:   &dep.ID,
			EntityType: "stage",
		})
	}
	return s.store(ctx, batch, event.Stage.ID)
}

func (s *NotificationService) store(ctx context.Context, batch []domain.Notification, stageID uuid.UUID) error {
	if len(batch) == 0 {
		return nil
	}
	for i := range batch {
		batch[i].Message = truncate(batch[i].Message, 500)
	}
	if err := s.notificationRepo.CreateBatch(ctx, batch); err != nil {
		return fmt.Errorf("failed to create notifications: %w", err)
	}
	s.logger.Info("notifications created",
		zap.String("stageID", stageID.String()),
		zap.Int("count", len(batch)),
		zap.String("type", batch[0].Type),
	)
	return nil
}

// ListForUser returns a user's notifications with pagination
func (s *NotificationService) ListForUser(ctx context.Context, userID string, page, pageSize int, unreadOnly bool) (*domain.PaginatedResponse, error) {
	if err := requireActor(userID); err != nil {
		return nil, err
	}
	if pageSize < 1 {
		pageSize = 20
	}
	if pageSize > repository.MaxPageSize {
		pageSize = repository.MaxPageSize
	}
	if page < 1 {
		page = 1
	}

	notifications, total, err := s.notificationRepo.ListByUser(ctx, userID, page, pageSize, unreadOnly)
	if err != nil {
		return nil, fmt.Errorf("failed to list notifications: %w", err)
	}

	dtos := make([]domain.NotificationDTO, len(notifications))
	for i := range notifications {
		dtos[i] = mapper.ToNotificationDTO(&notifications[i])
	}

	totalPages := int((total + int64(pageSize) - 1) / int64(pageSize))
	return &domain.PaginatedResponse{
		Data:       dtos,
		Total:      total,
		Page:       page,
		PageSize:   pageSize,
		TotalPages: totalPages,
	}, nil
}

// MarkAsRead marks one of the user's notifications as read
func (s *NotificationService) MarkAsRead(ctx context.Context, userID string, id uuid.UUID) error {
	if err := requireActor(userID); err != nil {
		return err
	}
	if err := s.notificationRepo.MarkAsRead(ctx, id, userID); err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return ErrNotificationNotFound
		}
		return fmt.Errorf("failed to mark notification as read: %w", err)
	}
	return nil
}

// MarkAllAsRead marks every notification of the user as read
func (s *NotificationService) MarkAllAsRead(ctx context.Context, userID string) error {
	if err := requireActor(userID); err != nil {
		return err
	}
	if err := s.notificationRepo.MarkAllAsRead(ctx, userID); err != nil {
		return fmt.Errorf("failed to mark all notifications as read: %w", err)
	}
	s.logger.Info("all notifications marked as read", zap.String("userID", userID))
	return nil
}

// UnreadCount returns how many unread notifications the user has
func (s *NotificationService) UnreadCount(ctx context.Context, userID string) (*domain.UnreadCountDTO, error) {
	if err := requireActor(userID); err != nil {
		return nil, err
	}
	count, err := s.notificationRepo.CountUnread(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to count unread notifications: %w", err)
	}
	return &domain.UnreadCountDTO{Count: int64(count)}, nil
}

func truncate(s string, max int) string {
	r := []rune(s)
	if len(r) <= max {
		return s
	}
	return string(r[:max-1]) + "…"
}
