package handler

import (
	"fmt"
	"net/http"
	"strconv"

	"go.uber.org/zap"

	"github.com/useneurox-company/ERP--sub000/internal/domain"
	"github.com/useneurox-company/ERP--sub000/internal/repository"
	"github.com/useneurox-company/ERP--sub000/internal/service"
)

type WarehouseHandler struct {
	warehouseService *service.WarehouseService
	logger           *zap.Logger
}

func NewWarehouseHandler(warehouseService *service.WarehouseService, logger *zap.Logger) *WarehouseHandler {
	return &WarehouseHandler{
		warehouseService: warehouseService,
		logger:           logger,
	}
}

// List godoc
// @Summary List warehouse items
// @Description Paginated local stock list; q filters by name, SKU or barcode
// @Tags Warehouse
// @Produce json
// @Param q query string false "Search text"
// @Param page query int false "Page number" default(1)
// @Param pageSize query int false "Items per page (max 200)" default(20)
// @Param sortBy query string false "Sort field" Enums(name, sku, quantity, price, updatedAt)
// @Param sortOrder query string false "Sort order" Enums(asc, desc) default(asc)
// @Success 200 {object} domain.PaginatedResponse{data=[]domain.WarehouseItemDTO}
// @Failure 500 {object} domain.APIError
// @Router /warehouse/items [get]
func (h *WarehouseHandler) List(w http.ResponseWriter, r *http.Request) {
	page, pageSize := parsePagination(r)
	sort := repository.SortConfig{
		Field: r.URL.Query().Get("sortBy"),
		Order: repository.ParseSortOrder(r.URL.Query().Get("sortOrder")),
	}

	result, err := h.warehouseService.List(r.Context(), r.URL.Query().Get("q"), page, pageSize, sort)
	if err != nil {
		respondError(w, h.logger, err, "list warehouse items")
		return
	}
	respondJSON(w, http.StatusOK, result)
}

// Create godoc
// @Summary Add warehouse item
// @Tags Warehouse
// @Accept json
// @Produce json
// @Param X-Actor-ID header string true "Acting user"
// @Param item body domain.CreateWarehouseItemRequest true "Item"
// @Success 201 {object} domain.WarehouseItemDTO
// @Failure 400 {object} domain.APIError
// @Router /warehouse/items [post]
func (h *WarehouseHandler) Create(w http.ResponseWriter, r *http.Request) {
	var req domain.CreateWarehouseItemRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	item, err := h.warehouseService.Create(r.Context(), &req, actorOf(r))
	if err != nil {
		respondError(w, h.logger, err, "create warehouse item")
		return
	}
	w.Header().Set("Location", fmt.Sprintf("/api/v1/warehouse/items/%s", item.ID))
	respondJSON(w, http.StatusCreated, item)
}

// UpdateQuantity godoc
// @Summary Set on-hand quantity
// @Tags Warehouse
// @Accept json
// @Param id path string true "Item ID" format(uuid)
// @Param X-Actor-ID header string true "Acting user"
// @Param body body domain.UpdateWarehouseQuantityRequest true "Quantity"
// @Success 204 "No Content"
// @Failure 400 {object} domain.APIError
// @Failure 404 {object} domain.APIError
// @Router /warehouse/items/{id}/quantity [put]
func (h *WarehouseHandler) UpdateQuantity(w http.ResponseWriter, r *http.Request) {
	id, ok := parseID(w, r, "id", "warehouse item")
	if !ok {
		return
	}
	var req domain.UpdateWarehouseQuantityRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	if err := h.warehouseService.UpdateQuantity(r.Context(), id, *req.Quantity, actorOf(r)); err != nil {
		respondError(w, h.logger, err, "update warehouse quantity")
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// Search godoc
// @Summary Search the catalog
// @Description Free-text search across the active catalog (local stock or the data warehouse), used to pick alternatives
// @Tags Warehouse
// @Produce json
// @Param q query string true "Search text"
// @Param limit query int false "Maximum results" default(20)
// @Success 200 {array} domain.CatalogItem
// @Failure 503 {object} domain.APIError
// @Router /warehouse/search [get]
func (h *WarehouseHandler) Search(w http.ResponseWriter, r *http.Request) {
	limit, _ := strconv.Atoi(r.URL.Query().Get("limit"))
	if limit > repository.MaxPageSize {
		limit = repository.MaxPageSize
	}
	items, err := h.warehouseService.Search(r.Context(), r.URL.Query().Get("q"), limit)
	if err != nil {
		respondError(w, h.logger, err, "search catalog")
		return
	}
	respondJSON(w, http.StatusOK, items)
}
