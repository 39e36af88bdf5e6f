package repository

import (
	"context"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/useneurox-company/ERP--sub000/internal/domain"
)

type StageDependencyRepository struct {
	db *gorm.DB
}

func NewStageDependencyRepository(db *gorm.DB) *StageDependencyRepository {
	return &StageDependencyRepository{db: db}
}

// WithTx returns a repository bound to an open transaction
func (r *StageDependencyRepository) WithTx(tx *gorm.DB) *StageDependencyRepository {
	return &StageDependencyRepository{db: tx}
}

func (r *StageDependencyRepository) Create(ctx context.Context, dep *domain.StageDependency) error {
	return r.db.WithContext(ctx).Create(dep).Error
}

// ListByProject returns every edge of a project, used to rebuild its graph
func (r *StageDependencyRepository) ListByProject(ctx context.Context, projectID uuid.UUID) ([]domain.StageDependency, error) {
	var deps []domain.StageDependency
	err := r.db.WithContext(ctx).
		Where("project_id = ?", projectID).
		Order("created_at ASC").
		Find(&deps).Error
	return deps, err
}

// ListDependencies returns the stages stageID waits on
func (r *StageDependencyRepository) ListDependencies(ctx context.Context, stageID uuid.UUID) ([]uuid.UUID, error) {
	var ids []uuid.UUID
	err := r.db.WithContext(ctx).
		Model(&domain.StageDependency{}).
		Where("stage_id = ?", stageID).
		Pluck("depends_on_stage_id", &ids).Error
	return ids, err
}

// ListDependents returns the stages waiting on stageID
func (r *StageDependencyRepository) ListDependents(ctx context.Context, stageID uuid.UUID) ([]uuid.UUID, error) {
	var ids []uuid.UUID
	err := r.db.WithContext(ctx).
		Model(&domain.StageDependency{}).
		Where("depends_on_stage_id = ?", stageID).
		Pluck("stage_id", &ids).Error
	return ids, err
}

// Delete removes one edge and reports whether it existed
func (r *StageDependencyRepository) Delete(ctx context.Context, stageID, dependsOnID uuid.UUID) (bool, error) {
	result := r.db.WithContext(ctx).
		Where("stage_id = ? AND depends_on_stage_id = ?", stageID, dependsOnID).
		Delete(&domain.StageDependency{})
	return result.RowsAffected > 0, result.Error
}

// DeleteByProject removes every edge of a project
func (r *StageDependencyRepository) DeleteByProject(ctx context.Context, projectID uuid.UUID) error {
	return r.db.WithContext(ctx).
		Where("project_id = ?", projectID).
		Delete(&domain.StageDependency{}).Error
}
