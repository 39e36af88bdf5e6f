package repository

import (
	"context"
	"errors"
	"strings"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/useneurox-company/ERP--sub000/internal/domain"
	"github.com/useneurox-company/ERP--sub000/internal/reconcile"
)

// candidateLimit caps how many rows one lookup may return
const candidateLimit = 50

var _ reconcile.Catalog = (*WarehouseItemRepository)(nil)

// WarehouseItemRepository is the local warehouse catalog
type WarehouseItemRepository struct {
	db *gorm.DB
}

func NewWarehouseItemRepository(db *gorm.DB) *WarehouseItemRepository {
	return &WarehouseItemRepository{db: db}
}

var warehouseSortFields = map[string]string{
	"name":      "name",
	"sku":       "sku",
	"quantity":  "quantity",
	"price":     "price",
	"updatedAt": "updated_at",
}

func (r *WarehouseItemRepository) Create(ctx context.Context, item *domain.WarehouseItem) error {
	return r.db.WithContext(ctx).Create(item).Error
}

// List returns catalog items whose name, sku or barcode contains search
func (r *WarehouseItemRepository) List(ctx context.Context, search string, page, pageSize int, sort SortConfig) ([]domain.WarehouseItem, int64, error) {
	var items []domain.WarehouseItem
	var total int64

	query := r.db.WithContext(ctx).Model(&domain.WarehouseItem{})
	if s := strings.TrimSpace(search); s != "" {
		p := likePattern(s)
		query = query.Where(
			"LOWER(name) LIKE ?"+likeEscape+" OR LOWER(sku) LIKE ?"+likeEscape+" OR LOWER(barcode) LIKE ?"+likeEscape,
			p, p, p,
		)
	}

	if err := query.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	order := BuildOrderClause(sort, warehouseSortFields, "name")
	err := Paginate(query, page, pageSize).Order(order).Find(&items).Error
	return items, total, err
}

// UpdateQuantity sets the on-hand quantity of an item
func (r *WarehouseItemRepository) UpdateQuantity(ctx context.Context, id uuid.UUID, quantity float64) error {
	result := r.db.WithContext(ctx).
		Model(&domain.WarehouseItem{}).
		Where("id = ?", id).
		Update("quantity", quantity)
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}
	return nil
}

// FindCandidates implements reconcile.Catalog. Items whose SKU or barcode
// equals sku are always returned, ahead of the capped substring matches.
func (r *WarehouseItemRepository) FindCandidates(ctx context.Context, name, sku string) ([]domain.CatalogItem, error) {
	name, sku = reconcile.Normalize(name), reconcile.Normalize(sku)
	if name == "" && sku == "" {
		return []domain.CatalogItem{}, nil
	}

	var exact []domain.WarehouseItem
	var clauses []string
	var args []interface{}
	if sku != "" {
		err := r.db.WithContext(ctx).
			Where("LOWER(TRIM(sku)) = ? OR LOWER(TRIM(barcode)) = ?", sku, sku).
			Order("name ASC").
			Find(&exact).Error
		if err != nil {
			return nil, err
		}

		p := likePattern(sku)
		clauses = append(clauses,
			"LOWER(sku) LIKE ?"+likeEscape,
			"LOWER(barcode) LIKE ?"+likeEscape,
			"LOWER(name) LIKE ?"+likeEscape,
		)
		args = append(args, p, p, p)
	}
	if name != "" {
		clauses = append(clauses, "LOWER(name) LIKE ?"+likeEscape)
		args = append(args, likePattern(name))
	}

	var similar []domain.WarehouseItem
	err := r.db.WithContext(ctx).
		Where(strings.Join(clauses, " OR "), args...).
		Order("name ASC").
		Limit(candidateLimit).
		Find(&similar).Error
	if err != nil {
		return nil, err
	}
	return reconcile.MergeCandidates(toCatalog(exact), toCatalog(similar), candidateLimit), nil
}

// SearchByText implements reconcile.Catalog
func (r *WarehouseItemRepository) SearchByText(ctx context.Context, query string, limit int) ([]domain.CatalogItem, error) {
	q := reconcile.Normalize(query)
	if q == "" {
		return []domain.CatalogItem{}, nil
	}
	if limit <= 0 || limit > candidateLimit {
		limit = candidateLimit
	}

	var items []domain.WarehouseItem
	err := r.db.WithContext(ctx).
		Where("LOWER(name) LIKE ?"+likeEscape, likePattern(q)).
		Order("quantity DESC, name ASC").
		Limit(limit).
		Find(&items).Error
	if err != nil {
		return nil, err
	}
	return toCatalog(items), nil
}

// GetByID implements reconcile.Catalog. Unknown or malformed ids are
// domain.ErrNotFound.
func (r *WarehouseItemRepository) GetByID(ctx context.Context, id string) (*domain.CatalogItem, error) {
	uid, err := uuid.Parse(id)
	if err != nil {
		return nil, domain.ErrNotFound
	}
	var item domain.WarehouseItem
	if err := r.db.WithContext(ctx).Where("id = ?", uid).First(&item).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, domain.ErrNotFound
		}
		return nil, err
	}
	c := item.ToCatalogItem()
	return &c, nil
}

func toCatalog(items []domain.WarehouseItem) []domain.CatalogItem {
	out := make([]domain.CatalogItem, len(items))
	for i := range items {
		out[i] = items[i].ToCatalogItem()
	}
	return out
}
