package repository

import (
	"context"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/useneurox-company/ERP--sub000/internal/domain"
)

// itemBatchSize bounds the rows per INSERT when saving an upload
const itemBatchSize = 200

type ComparisonRepository struct {
	db *gorm.DB
}

func NewComparisonRepository(db *gorm.DB) *ComparisonRepository {
	return &ComparisonRepository{db: db}
}

// WithTx returns a repository bound to an open transaction
func (r *ComparisonRepository) WithTx(tx *gorm.DB) *ComparisonRepository {
	return &ComparisonRepository{db: tx}
}

// Create inserts the comparison and all its items atomically
func (r *ComparisonRepository) Create(ctx context.Context, comparison *domain.Comparison) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Omit(clause.Associations).Create(comparison).Error; err != nil {
			return err
		}
		if len(comparison.Items) == 0 {
			return nil
		}
		for i := range comparison.Items {
			comparison.Items[i].ComparisonID = comparison.ID
		}
		return tx.CreateInBatches(&comparison.Items, itemBatchSize).Error
	})
}

func (r *ComparisonRepository) GetByID(ctx context.Context, id uuid.UUID) (*domain.Comparison, error) {
	var comparison domain.Comparison
	if err := r.db.WithContext(ctx).Where("id = ?", id).First(&comparison).Error; err != nil {
		return nil, err
	}
	return &comparison, nil
}

// GetForUpdate reads the comparison header holding a row lock, serializing
// item mutations of one comparison
func (r *ComparisonRepository) GetForUpdate(ctx context.Context, id uuid.UUID) (*domain.Comparison, error) {
	var comparison domain.Comparison
	err := r.db.WithContext(ctx).
		Clauses(clause.Locking{Strength: "UPDATE"}).
		Where("id = ?", id).
		First(&comparison).Error
	if err != nil {
		return nil, err
	}
	return &comparison, nil
}

// GetWithItems loads the comparison and its items in upload order
func (r *ComparisonRepository) GetWithItems(ctx context.Context, id uuid.UUID) (*domain.Comparison, error) {
	var comparison domain.Comparison
	err := r.db.WithContext(ctx).
		Preload("Items", func(db *gorm.DB) *gorm.DB {
			return db.Order("row_index ASC")
		}).
		Where("id = ?", id).
		First(&comparison).Error
	if err != nil {
		return nil, err
	}
	return &comparison, nil
}

func (r *ComparisonRepository) ListItems(ctx context.Context, comparisonID uuid.UUID) ([]domain.ComparisonItem, error) {
	var items []domain.ComparisonItem
	err := r.db.WithContext(ctx).
		Where("comparison_id = ?", comparisonID).
		Order("row_index ASC").
		Find(&items).Error
	return items, err
}

func (r *ComparisonRepository) GetItem(ctx context.Context, comparisonID, itemID uuid.UUID) (*domain.ComparisonItem, error) {
	var item domain.ComparisonItem
	err := r.db.WithContext(ctx).
		Where("id = ? AND comparison_id = ?", itemID, comparisonID).
		First(&item).Error
	if err != nil {
		return nil, err
	}
	return &item, nil
}

// SaveItem writes every column of an item
func (r *ComparisonRepository) SaveItem(ctx context.Context, item *domain.ComparisonItem) error {
	return r.db.WithContext(ctx).Save(item).Error
}

// UpdateItemFields applies a partial update to one item
func (r *ComparisonRepository) UpdateItemFields(ctx context.Context, itemID uuid.UUID, updates map[string]interface{}) error {
	result := r.db.WithContext(ctx).
		Model(&domain.ComparisonItem{}).
		Where("id = ?", itemID).
		Updates(updates)
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}
	return nil
}

// UpdateCounts stores the summary counters of a comparison
func (r *ComparisonRepository) UpdateCounts(ctx context.Context, c *domain.Comparison) error {
	return r.db.WithContext(ctx).
		Model(&domain.Comparison{}).
		Where("id = ?", c.ID).
		Updates(map[string]interface{}{
			"total_items":       c.TotalItems,
			"in_stock_count":    c.InStockCount,
			"partial_count":     c.PartialCount,
			"missing_count":     c.MissingCount,
			"pending_count":     c.PendingCount,
			"alternative_count": c.AlternativeCount,
		}).Error
}

func (r *ComparisonRepository) ListByStage(ctx context.Context, stageID uuid.UUID) ([]domain.Comparison, error) {
	var comparisons []domain.Comparison
	err := r.db.WithContext(ctx).
		Where("stage_id = ?", stageID).
		Order("created_at DESC").
		Find(&comparisons).Error
	return comparisons, err
}

// ListRefreshable returns the ids of comparisons holding high-confidence
// stock matches that are not yet on an order
func (r *ComparisonRepository) ListRefreshable(ctx context.Context) ([]uuid.UUID, error) {
	var ids []uuid.UUID
	err := r.db.WithContext(ctx).
		Model(&domain.ComparisonItem{}).
		Distinct("comparison_id").
		Where("match_confidence = ? AND status IN ? AND added_to_order = ?",
			domain.MatchConfidenceHigh,
			[]domain.ComparisonStatus{domain.ComparisonStatusInStock, domain.ComparisonStatusPartial},
			false).
		Pluck("comparison_id", &ids).Error
	return ids, err
}
