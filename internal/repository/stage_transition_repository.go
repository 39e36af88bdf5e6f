package repository

import (
	"context"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/useneurox-company/ERP--sub000/internal/domain"
)

type StageTransitionRepository struct {
	db *gorm.DB
}

func NewStageTransitionRepository(db *gorm.DB) *StageTransitionRepository {
	return &StageTransitionRepository{db: db}
}

// WithTx returns a repository bound to an open transaction
func (r *StageTransitionRepository) WithTx(tx *gorm.DB) *StageTransitionRepository {
	return &StageTransitionRepository{db: tx}
}

// Create records a new lifecycle transition
func (r *StageTransitionRepository) Create(ctx context.Context, transition *domain.StageTransition) error {
	return r.db.WithContext(ctx).Create(transition).Error
}

// ListByStage returns the transitions of a stage, oldest first
func (r *StageTransitionRepository) ListByStage(ctx context.Context, stageID uuid.UUID) ([]domain.StageTransition, error) {
	var history []domain.StageTransition
	err := r.db.WithContext(ctx).
		Where("stage_id = ?", stageID).
		Order("changed_at ASC").
		Find(&history).Error
	return history, err
}

