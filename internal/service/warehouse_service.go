package service

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/useneurox-company/ERP--sub000/internal/domain"
	"github.com/useneurox-company/ERP--sub000/internal/mapper"
	"github.com/useneurox-company/ERP--sub000/internal/reconcile"
	"github.com/useneurox-company/ERP--sub000/internal/repository"
)

// ErrWarehouseItemNotFound is returned when a local catalog item does not exist
var ErrWarehouseItemNotFound = fmt.Errorf("warehouse item: %w", domain.ErrNotFound)

const defaultSearchLimit = 20

// WarehouseService manages the local warehouse catalog and searches the
// catalog the reconciliation engine matches against, which may be the data
// warehouse instead of the local table
type WarehouseService struct {
	itemRepo *repository.WarehouseItemRepository
	catalog  reconcile.Catalog
	logger   *zap.Logger
}

func NewWarehouseService(itemRepo *repository.WarehouseItemRepository, catalog reconcile.Catalog, logger *zap.Logger) *WarehouseService {
	return &WarehouseService{
		itemRepo: itemRepo,
		catalog:  catalog,
		logger:   logger,
	}
}

// List returns a page of local catalog items
func (s *WarehouseService) List(ctx context.Context, search string, page, pageSize int, sort repository.SortConfig) (*domain.PaginatedResponse, error) {
	if pageSize < 1 {
		pageSize = 20
	}
	if pageSize > repository.MaxPageSize {
		pageSize = repository.MaxPageSize
	}
	if page < 1 {
		page = 1
	}

	items, total, err := s.itemRepo.List(ctx, search, page, pageSize, sort)
	if err != nil {
		return nil, fmt.Errorf("failed to list warehouse items: %w", err)
	}

	dtos := make([]domain.WarehouseItemDTO, len(items))
	for i := range items {
		dtos[i] = mapper.ToWarehouseItemDTO(&items[i])
	}

	return &domain.PaginatedResponse{
		Data:       dtos,
		Total:      total,
		Page:       page,
		PageSize:   pageSize,
		TotalPages: int((total + int64(pageSize) - 1) / int64(pageSize)),
	}, nil
}

// Create adds an item to the local catalog
func (s *WarehouseService) Create(ctx context.Context, req *domain.CreateWarehouseItemRequest, actor string) (*domain.WarehouseItemDTO, error) {
	if err := requireActor(actor); err != nil {
		return nil, err
	}
	if req.Price.IsNegative() {
		return nil, domain.NewValidationError("price", "Must be greater than or equal to 0")
	}

	item := &domain.WarehouseItem{
		Name:     strings.TrimSpace(req.Name),
		SKU:      strings.TrimSpace(req.SKU),
		Barcode:  strings.TrimSpace(req.Barcode),
		Quantity: req.Quantity,
		Unit:     strings.TrimSpace(req.Unit),
		Price:    req.Price,
		Supplier: strings.TrimSpace(req.Supplier),
		Category: strings.TrimSpace(req.Category),
	}
	if item.Unit == "" {
		item.Unit = "pcs"
	}

	if err := s.itemRepo.Create(ctx, item); err != nil {
		return nil, fmt.Errorf("failed to create warehouse item: %w", err)
	}

	s.logger.Info("warehouse item created",
		zap.String("itemID", item.ID.String()),
		zap.String("sku", item.SKU),
		zap.String("actor", actor))

	dto := mapper.ToWarehouseItemDTO(item)
	return &dto, nil
}

// UpdateQuantity sets the on-hand quantity of a local catalog item
func (s *WarehouseService) UpdateQuantity(ctx context.Context, id uuid.UUID, quantity float64, actor string) error {
	if err := requireActor(actor); err != nil {
		return err
	}
	if quantity < 0 {
		return domain.NewValidationError("quantity", "Must be greater than or equal to 0")
	}
	if err := s.itemRepo.UpdateQuantity(ctx, id, quantity); err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return ErrWarehouseItemNotFound
		}
		return fmt.Errorf("failed to update warehouse quantity: %w", err)
	}
	s.logger.Info("warehouse quantity updated",
		zap.String("itemID", id.String()),
		zap.Float64("quantity", quantity),
		zap.String("actor", actor))
	return nil
}

// Search runs a free-text lookup against the matching catalog
func (s *WarehouseService) Search(ctx context.Context, query string, limit int) ([]domain.CatalogItem, error) {
	if limit < 1 || limit > repository.MaxPageSize {
		limit = defaultSearchLimit
	}
	if strings.TrimSpace(query) == "" {
		return []domain.CatalogItem{}, nil
	}
	items, err := s.catalog.SearchByText(ctx, query, limit)
	if err != nil {
		return nil, &domain.UnavailableError{Service: "warehouse catalog", Err: err}
	}
	if items == nil {
		items = []domain.CatalogItem{}
	}
	return items, nil
}
