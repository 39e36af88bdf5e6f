package domain

import (
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// DTOs for API responses

// ErrorResponse represents an API error response
type ErrorResponse struct {
	Error   string `json:"error"`
	Message string `json:"message,omitempty"`
	Code    int    `json:"code,omitempty"`
}

// PaginatedResponse wraps a page of results
type PaginatedResponse struct {
	Data       interface{} `json:"data"`
	Total      int64       `json:"total"`
	Page       int         `json:"page"`
	PageSize   int         `json:"pageSize"`
	TotalPages int         `json:"totalPages"`
}

// ============================================================================
// Projects & stages
// ============================================================================

type ProjectDTO struct {
	ID          uuid.UUID  `json:"id"`
	Name        string     `json:"name"`
	ClientName  string     `json:"clientName,omitempty"`
	Address     string     `json:"address,omitempty"`
	Template    string     `json:"template"`
	CreatedByID string     `json:"createdById,omitempty"`
	CreatedAt   string     `json:"createdAt"` // ISO 8601
	UpdatedAt   string     `json:"updatedAt"` // ISO 8601
	Stages      []StageDTO `json:"stages,omitempty"`
}

type StageDTO struct {
	ID               uuid.UUID     `json:"id"`
	ProjectID        uuid.UUID     `json:"projectId"`
	Name             string        `json:"name"`
	StageType        StageType     `json:"stageType"`
	Status           StageStatus   `json:"status"`
	DisplayOrder     int           `json:"displayOrder"`
	PlannedStartDate *string       `json:"plannedStartDate,omitempty"`
	PlannedEndDate   *string       `json:"plannedEndDate,omitempty"`
	ActualStartDate  *string       `json:"actualStartDate,omitempty"`
	ActualEndDate    *string       `json:"actualEndDate,omitempty"`
	AssigneeID       *string       `json:"assigneeId,omitempty"`
	DependsOn        []uuid.UUID   `json:"dependsOn"`
	Blocked          bool          `json:"blocked"`
	Blockers         []uuid.UUID   `json:"blockers,omitempty"`
	ReopenHistory    []ReopenEntry `json:"reopenHistory,omitempty"`
	// TypeData holds the decoded, recomputed stage payload
	TypeData  interface{} `json:"typeData,omitempty"`
	CreatedAt string      `json:"createdAt"`
	UpdatedAt string      `json:"updatedAt"`
}

type StageTransitionDTO struct {
	ID         uuid.UUID   `json:"id"`
	StageID    uuid.UUID   `json:"stageId"`
	FromStatus StageStatus `json:"fromStatus"`
	ToStatus   StageStatus `json:"toStatus"`
	ActorID    string      `json:"actorId"`
	Reason     string      `json:"reason,omitempty"`
	ChangedAt  string      `json:"changedAt"`
}

// BlockStateDTO answers "can this stage start"
type BlockStateDTO struct {
	StageID  uuid.UUID   `json:"stageId"`
	Blocked  bool        `json:"blocked"`
	Blockers []uuid.UUID `json:"blockers"`
}

// CompletionResultDTO is returned after a stage is completed
type CompletionResultDTO struct {
	Stage      StageDTO    `json:"stage"`
	Dependents []uuid.UUID `json:"dependents"`
	Unblocked  []uuid.UUID `json:"unblocked"`
}

// SaveStateDTO reports the autosave state of a stage's data
type SaveStateDTO struct {
	StageID   uuid.UUID `json:"stageId"`
	State     string    `json:"state"`
	LastError string    `json:"lastError,omitempty"`
	SavedAt   *string   `json:"savedAt,omitempty"`
}

type CreateProjectRequest struct {
	Name       string `json:"name" validate:"required,max=200"`
	ClientName string `json:"clientName,omitempty" validate:"max=200"`
	Address    string `json:"address,omitempty" validate:"max=500"`
	// Template selects the stage template; "furniture" (default) or "empty"
	Template string `json:"template,omitempty" validate:"omitempty,oneof=furniture empty"`
}

type CreateStageRequest struct {
	Name             string      `json:"name" validate:"required,max=200"`
	StageType        StageType   `json:"stageType" validate:"required"`
	DisplayOrder     int         `json:"displayOrder" validate:"gte=0"`
	PlannedStartDate *string     `json:"plannedStartDate,omitempty"`
	PlannedEndDate   *string     `json:"plannedEndDate,omitempty"`
	AssigneeID       *string     `json:"assigneeId,omitempty" validate:"omitempty,max=100"`
	DependsOn        []uuid.UUID `json:"dependsOn,omitempty"`
}

type ReopenStageRequest struct {
	Reason string `json:"reason" validate:"required,max=1000"`
}

type AddDependencyRequest struct {
	DependsOnID uuid.UUID `json:"dependsOnId" validate:"required"`
}

type DocumentDecisionRequest struct {
	Status  string `json:"status" validate:"required,oneof=approved rejected"`
	Comment string `json:"comment,omitempty" validate:"max=2000"`
}

type RevisionRequestRequest struct {
	Reason string `json:"reason" validate:"required,max=2000"`
}

type ClientCommentRequest struct {
	Text string `json:"text" validate:"required,max=2000"`
}

// StageDataDTO is a stage payload together with its autosave state
type StageDataDTO struct {
	StageID   uuid.UUID    `json:"stageId"`
	StageType StageType    `json:"stageType"`
	Data      interface{}  `json:"data"`
	SaveState SaveStateDTO `json:"saveState"`
}

// ============================================================================
// Reconciliation
// ============================================================================

type ComparisonSummaryDTO struct {
	TotalItems          int `json:"totalItems"`
	InStock             int `json:"inStock"`
	Partial             int `json:"partial"`
	Missing             int `json:"missing"`
	Pending             int `json:"pending"`
	AlternativeSelected int `json:"alternativeSelected"`
}

type ComparisonDTO struct {
	ID             uuid.UUID            `json:"id"`
	ProjectID      *uuid.UUID           `json:"projectId,omitempty"`
	StageID        *uuid.UUID           `json:"stageId,omitempty"`
	SourceFileName string               `json:"sourceFileName"`
	CreatedByID    string               `json:"createdById,omitempty"`
	CreatedAt      string               `json:"createdAt"`
	Summary        ComparisonSummaryDTO `json:"summary"`
	RowErrors      []RowError           `json:"rowErrors,omitempty"`
	Items          []ComparisonItemDTO  `json:"items"`
}

type ComparisonItemDTO struct {
	ID                 uuid.UUID         `json:"id"`
	RowIndex           int               `json:"rowIndex"`
	ExcelName          string            `json:"excelName"`
	ExcelSKU           string            `json:"excelSku,omitempty"`
	ExcelQuantity      float64           `json:"excelQuantity"`
	ExcelUnit          string            `json:"excelUnit,omitempty"`
	MatchConfidence    MatchConfidence   `json:"matchConfidence"`
	Status             ComparisonStatus  `json:"status"`
	MatchReason        string            `json:"matchReason"`
	WarehouseItem      *CatalogItem      `json:"warehouseItem,omitempty"`
	AlternativeItem    *CatalogItem      `json:"alternativeItem,omitempty"`
	AISuggestions      []AISuggestion    `json:"aiSuggestions"`
	QuantityToOrder    float64           `json:"quantityToOrder"`
	OrderQuantity      float64           `json:"orderQuantity"`
	QuantityOverridden bool              `json:"quantityOverridden"`
	AddedToOrder       bool              `json:"addedToOrder"`
	ProcurementStatus  ProcurementStatus `json:"procurementStatus"`
	OrderedAt          *string           `json:"orderedAt,omitempty"`
	ReceivedAt         *string           `json:"receivedAt,omitempty"`
	CancelledAt        *string           `json:"cancelledAt,omitempty"`
}

type OrderLineDTO struct {
	ItemID    uuid.UUID       `json:"itemId"`
	Name      string          `json:"name"`
	SKU       string          `json:"sku,omitempty"`
	Quantity  float64         `json:"quantity"`
	Unit      string          `json:"unit,omitempty"`
	Supplier  string          `json:"supplier,omitempty"`
	UnitPrice decimal.Decimal `json:"unitPrice"`
	Total     decimal.Decimal `json:"total"`
}

type OrderDTO struct {
	ComparisonID uuid.UUID       `json:"comparisonId"`
	Lines        []OrderLineDTO  `json:"lines"`
	GrandTotal   decimal.Decimal `json:"grandTotal"`
}

type SelectAlternativeRequest struct {
	CandidateID string `json:"candidateId" validate:"required,max=100"`
}

type SetQuantityRequest struct {
	Quantity *float64 `json:"quantity" validate:"required"`
}

type ToggleOrderRequest struct {
	Include *bool `json:"include" validate:"required"`
}

type SetProcurementStatusRequest struct {
	Status ProcurementStatus `json:"status" validate:"required,oneof=pending ordered in_transit received cancelled"`
}

// ============================================================================
// Warehouse & notifications
// ============================================================================

type WarehouseItemDTO struct {
	ID        uuid.UUID       `json:"id"`
	Name      string          `json:"name"`
	SKU       string          `json:"sku,omitempty"`
	Barcode   string          `json:"barcode,omitempty"`
	Quantity  float64         `json:"quantity"`
	Unit      string          `json:"unit"`
	Price     decimal.Decimal `json:"price"`
	Supplier  string          `json:"supplier,omitempty"`
	Category  string          `json:"category,omitempty"`
	UpdatedAt string          `json:"updatedAt"`
}

type CreateWarehouseItemRequest struct {
	Name     string          `json:"name" validate:"required,max=300"`
	SKU      string          `json:"sku,omitempty" validate:"max=100"`
	Barcode  string          `json:"barcode,omitempty" validate:"max=100"`
	Quantity float64         `json:"quantity" validate:"gte=0"`
	Unit     string          `json:"unit,omitempty" validate:"max=20"`
	Price    decimal.Decimal `json:"price"`
	Supplier string          `json:"supplier,omitempty" validate:"max=200"`
	Category string          `json:"category,omitempty" validate:"max=100"`
}

type UpdateWarehouseQuantityRequest struct {
	Quantity *float64 `json:"quantity" validate:"required,gte=0"`
}

type NotificationDTO struct {
	ID         uuid.UUID  `json:"id"`
	UserID     string     `json:"userId"`
	Type       string     `json:"type"`
	Title      string     `json:"title"`
	Message    string     `json:"message"`
	Read       bool       `json:"read"`
	ReadAt     *string    `json:"readAt,omitempty"`
	EntityID   *uuid.UUID `json:"entityId,omitempty"`
	EntityType string     `json:"entityType,omitempty"`
	CreatedAt  string     `json:"createdAt"`
}

// UnreadCountDTO represents the count of unread notifications
type UnreadCountDTO struct {
	Count int64 `json:"count"`
}
