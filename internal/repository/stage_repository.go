package repository

import (
	"context"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/useneurox-company/ERP--sub000/internal/domain"
)

type StageRepository struct {
	db *gorm.DB
}

func NewStageRepository(db *gorm.DB) *StageRepository {
	return &StageRepository{db: db}
}

// WithTx returns a repository bound to an open transaction
func (r *StageRepository) WithTx(tx *gorm.DB) *StageRepository {
	return &StageRepository{db: tx}
}

func (r *StageRepository) Create(ctx context.Context, stage *domain.Stage) error {
	return r.db.WithContext(ctx).Create(stage).Error
}

func (r *StageRepository) GetByID(ctx context.Context, id uuid.UUID) (*domain.Stage, error) {
	var stage domain.Stage
	if err := r.db.WithContext(ctx).Where("id = ?", id).First(&stage).Error; err != nil {
		return nil, err
	}
	return &stage, nil
}

// GetForUpdate reads the stage holding a row lock until the transaction ends.
// Must be called on a repository bound with WithTx.
func (r *StageRepository) GetForUpdate(ctx context.Context, id uuid.UUID) (*domain.Stage, error) {
	var stage domain.Stage
	err := r.db.WithContext(ctx).
		Clauses(clause.Locking{Strength: "UPDATE"}).
		Where("id = ?", id).
		First(&stage).Error
	if err != nil {
		return nil, err
	}
	return &stage, nil
}

// StatusesForShare returns the status of each listed stage under a shared
// lock so none of them can change status until the transaction ends
func (r *StageRepository) StatusesForShare(ctx context.Context, ids []uuid.UUID) (map[uuid.UUID]domain.StageStatus, error) {
	out := make(map[uuid.UUID]domain.StageStatus, len(ids))
	if len(ids) == 0 {
		return out, nil
	}

	var rows []struct {
		ID     uuid.UUID
		Status domain.StageStatus
	}
	err := r.db.WithContext(ctx).
		Model(&domain.Stage{}).
		Clauses(clause.Locking{Strength: "SHARE"}).
		Select("id, status").
		Where("id IN ?", ids).
		Scan(&rows).Error
	if err != nil {
		return nil, err
	}
	for _, row := range rows {
		out[row.ID] = row.Status
	}
	return out, nil
}

func (r *StageRepository) ListByProject(ctx context.Context, projectID uuid.UUID) ([]domain.Stage, error) {
	var stages []domain.Stage
	err := r.db.WithContext(ctx).
		Where("project_id = ?", projectID).
		Order("display_order ASC, created_at ASC").
		Find(&stages).Error
	return stages, err
}

func (r *StageRepository) ListByIDs(ctx context.Context, ids []uuid.UUID) ([]domain.Stage, error) {
	var stages []domain.Stage
	if len(ids) == 0 {
		return stages, nil
	}
	err := r.db.WithContext(ctx).
		Where("id IN ?", ids).
		Order("display_order ASC, created_at ASC").
		Find(&stages).Error
	return stages, err
}

// CompareAndSetStatus applies updates only while the stage is still in
// expected status. It reports whether the row was updated.
func (r *StageRepository) CompareAndSetStatus(ctx context.Context, id uuid.UUID, expected domain.StageStatus, updates map[string]interface{}) (bool, error) {
	updates["updated_at"] = time.Now()
	result := r.db.WithContext(ctx).
		Model(&domain.Stage{}).
		Where("id = ? AND status = ?", id, expected).
		Updates(updates)
	if result.Error != nil {
		return false, result.Error
	}
	return result.RowsAffected == 1, nil
}

// UpdateFields applies a partial update to a stage
func (r *StageRepository) UpdateFields(ctx context.Context, id uuid.UUID, updates map[string]interface{}) error {
	updates["updated_at"] = time.Now()
	result := r.db.WithContext(ctx).
		Model(&domain.Stage{}).
		Where("id = ?", id).
		Updates(updates)
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}
	return nil
}

// FindByProjectAndType returns the first stage of a type in a project
func (r *StageRepository) FindByProjectAndType(ctx context.Context, projectID uuid.UUID, stageType domain.StageType) (*domain.Stage, error) {
	var stage domain.Stage
	err := r.db.WithContext(ctx).
		Where("project_id = ? AND stage_type = ?", projectID, stageType).
		Order("display_order ASC").
		First(&stage).Error
	if err != nil {
		return nil, err
	}
	return &stage, nil
}
