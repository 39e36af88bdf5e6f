package domain

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

// Base model with common fields
type BaseModel struct {
	ID        uuid.UUID `gorm:"type:uuid;primary_key"`
	CreatedAt time.Time `gorm:"not null"`
	UpdatedAt time.Time `gorm:"not null"`
}

// BeforeCreate assigns a UUID when the caller did not set one.
// Postgres has gen_random_uuid() but the sqlite driver used locally does not.
func (m *BaseModel) BeforeCreate(tx *gorm.DB) error {
	if m.ID == uuid.Nil {
		m.ID = uuid.New()
	}
	return nil
}

// ============================================================================
// Projects & stages
// ============================================================================

// Project is a client order of custom furniture
type Project struct {
	BaseModel
	Name        string  `gorm:"type:varchar(200);not null"`
	ClientName  string  `gorm:"type:varchar(200);column:client_name"`
	Address     string  `gorm:"type:varchar(500)"`
	Template    string  `gorm:"type:varchar(50);not null;default:'furniture'"`
	CreatedByID string  `gorm:"type:varchar(100);column:created_by_id"`
	Stages      []Stage `gorm:"foreignKey:ProjectID;constraint:OnDelete:CASCADE"`
}

// StageType identifies which payload variant a stage carries
type StageType string

const (
	StageTypeMeasurement              StageType = "measurement"
	StageTypeTechnicalSpecification   StageType = "technical_specification"
	StageTypeConstructorDocumentation StageType = "constructor_documentation"
	StageTypeApproval                 StageType = "approval"
	StageTypeProcurement              StageType = "procurement"
	StageTypeProduction               StageType = "production"
	StageTypeInstallation             StageType = "installation"
	StageTypeGeneric                  StageType = "generic"
)

// AllStageTypes lists every stage type in production order
var AllStageTypes = []StageType{
	StageTypeMeasurement,
	StageTypeTechnicalSpecification,
	StageTypeConstructorDocumentation,
	StageTypeApproval,
	StageTypeProcurement,
	StageTypeProduction,
	StageTypeInstallation,
	StageTypeGeneric,
}

// IsValid checks if the StageType is a valid enum value
func (t StageType) IsValid() bool {
	switch t {
	case StageTypeMeasurement, StageTypeTechnicalSpecification, StageTypeConstructorDocumentation,
		StageTypeApproval, StageTypeProcurement, StageTypeProduction, StageTypeInstallation, StageTypeGeneric:
		return true
	}
	return false
}

// StageStatus represents the lifecycle status of a stage
type StageStatus string

const (
	StageStatusPending    StageStatus = "pending"
	StageStatusInProgress StageStatus = "in_progress"
	StageStatusCompleted  StageStatus = "completed"
)

// IsValid checks if the StageStatus is a valid enum value
func (s StageStatus) IsValid() bool {
	switch s {
	case StageStatusPending, StageStatusInProgress, StageStatusCompleted:
		return true
	}
	return false
}

// ReopenEntry is one record of the reopen ledger kept on a stage
type ReopenEntry struct {
	ReopenedAt time.Time `json:"reopenedAt"`
	ReopenedBy string    `json:"reopenedBy"`
	Reason     string    `json:"reason"`
}

// Stage is one unit of work within a project
type Stage struct {
	BaseModel
	ProjectID        uuid.UUID                        `gorm:"type:uuid;not null;index;column:project_id"`
	Name             string                           `gorm:"type:varchar(200);not null"`
	StageType        StageType                        `gorm:"type:varchar(50);not null;column:stage_type"`
	Status           StageStatus                      `gorm:"type:varchar(20);not null;default:'pending';index"`
	DisplayOrder     int                              `gorm:"not null;default:0;column:display_order"`
	PlannedStartDate *time.Time                       `gorm:"column:planned_start_date"`
	PlannedEndDate   *time.Time                       `gorm:"column:planned_end_date"`
	ActualStartDate  *time.Time                       `gorm:"column:actual_start_date"`
	ActualEndDate    *time.Time                       `gorm:"column:actual_end_date"`
	AssigneeID       *string                          `gorm:"type:varchar(100);column:assignee_id"`
	TypeData         datatypes.JSON                   `gorm:"column:type_data"`
	ReopenHistory    datatypes.JSONSlice[ReopenEntry] `gorm:"column:reopen_history"`
}

// StageDependency is a directed "stage depends on other stage" edge
type StageDependency struct {
	ID               uuid.UUID `gorm:"type:uuid;primary_key"`
	ProjectID        uuid.UUID `gorm:"type:uuid;not null;index;column:project_id"`
	StageID          uuid.UUID `gorm:"type:uuid;not null;uniqueIndex:idx_stage_dependency;column:stage_id"`
	DependsOnStageID uuid.UUID `gorm:"type:uuid;not null;uniqueIndex:idx_stage_dependency;index;column:depends_on_stage_id"`
	CreatedAt        time.Time `gorm:"not null"`
}

// BeforeCreate assigns a UUID when the caller did not set one
func (d *StageDependency) BeforeCreate(tx *gorm.DB) error {
	if d.ID == uuid.Nil {
		d.ID = uuid.New()
	}
	return nil
}

// StageTransition is the append-only audit ledger of lifecycle moves
type StageTransition struct {
	ID         uuid.UUID   `gorm:"type:uuid;primary_key"`
	StageID    uuid.UUID   `gorm:"type:uuid;not null;index;column:stage_id"`
	FromStatus StageStatus `gorm:"type:varchar(20);not null;column:from_status"`
	ToStatus   StageStatus `gorm:"type:varchar(20);not null;column:to_status"`
	ActorID    string      `gorm:"type:varchar(100);not null;column:actor_id"`
	Reason     string      `gorm:"type:text"`
	ChangedAt  time.Time   `gorm:"not null;column:changed_at;index"`
}

// TableName specifies the table name for StageTransition
func (StageTransition) TableName() string {
	return "stage_transitions"
}

// BeforeCreate assigns a UUID when the caller did not set one
func (t *StageTransition) BeforeCreate(tx *gorm.DB) error {
	if t.ID == uuid.Nil {
		t.ID = uuid.New()
	}
	return nil
}

// ============================================================================
// Warehouse catalog
// ============================================================================

// WarehouseItem is a stock-keeping record of the local warehouse
type WarehouseItem struct {
	BaseModel
	Name     string          `gorm:"type:varchar(300);not null;index"`
	SKU      string          `gorm:"type:varchar(100);column:sku;index"`
	Barcode  string          `gorm:"type:varchar(100);index"`
	Quantity float64         `gorm:"not null;default:0"`
	Unit     string          `gorm:"type:varchar(20);not null;default:'pcs'"`
	Price    decimal.Decimal `gorm:"type:decimal(15,2);not null;default:0"`
	Supplier string          `gorm:"type:varchar(200)"`
	Category string          `gorm:"type:varchar(100)"`
}

// CatalogItem is the catalog view of a warehouse item used by matching.
// IDs are strings because the data warehouse catalog does not use UUIDs.
type CatalogItem struct {
	ID       string          `json:"id"`
	Name     string          `json:"name"`
	SKU      string          `json:"sku"`
	Barcode  string          `json:"barcode,omitempty"`
	Quantity float64         `json:"quantity"`
	Unit     string          `json:"unit"`
	Price    decimal.Decimal `json:"price"`
	Supplier string          `json:"supplier,omitempty"`
}

// ToCatalogItem converts a WarehouseItem into its catalog view
func (w *WarehouseItem) ToCatalogItem() CatalogItem {
	return CatalogItem{
		ID:       w.ID.String(),
		Name:     w.Name,
		SKU:      w.SKU,
		Barcode:  w.Barcode,
		Quantity: w.Quantity,
		Unit:     w.Unit,
		Price:    w.Price,
		Supplier: w.Supplier,
	}
}

// ============================================================================
// Reconciliation
// ============================================================================

// MatchConfidence classifies how certain an automatic warehouse match is
type MatchConfidence string

const (
	MatchConfidenceHigh   MatchConfidence = "high"
	MatchConfidenceMedium MatchConfidence = "medium"
	MatchConfidenceLow    MatchConfidence = "low"
	MatchConfidenceNone   MatchConfidence = "none"
)

// ComparisonStatus is the stock status of an uploaded row
type ComparisonStatus string

const (
	ComparisonStatusPending             ComparisonStatus = "pending"
	ComparisonStatusInStock             ComparisonStatus = "in_stock"
	ComparisonStatusPartial             ComparisonStatus = "partial"
	ComparisonStatusMissing             ComparisonStatus = "missing"
	ComparisonStatusAlternativeSelected ComparisonStatus = "alternative_selected"
)

// ProcurementStatus tracks an ordered row through fulfillment
type ProcurementStatus string

const (
	ProcurementStatusPending   ProcurementStatus = "pending"
	ProcurementStatusOrdered   ProcurementStatus = "ordered"
	ProcurementStatusInTransit ProcurementStatus = "in_transit"
	ProcurementStatusReceived  ProcurementStatus = "received"
	ProcurementStatusCancelled ProcurementStatus = "cancelled"
)

// IsValid checks if the ProcurementStatus is a valid enum value
func (s ProcurementStatus) IsValid() bool {
	switch s {
	case ProcurementStatusPending, ProcurementStatusOrdered, ProcurementStatusInTransit,
		ProcurementStatusReceived, ProcurementStatusCancelled:
		return true
	}
	return false
}

// IsTerminal reports whether no further procurement transition is allowed
func (s ProcurementStatus) IsTerminal() bool {
	return s == ProcurementStatusReceived || s == ProcurementStatusCancelled
}

// AISuggestion is an advisory substitute offered by the similarity scorer
type AISuggestion struct {
	CandidateID string  `json:"candidateId"`
	Name        string  `json:"name"`
	SKU         string  `json:"sku,omitempty"`
	Confidence  float64 `json:"confidence"`
}

// RowError describes an uploaded row rejected during import
type RowError struct {
	Row    int    `json:"row"`
	Reason string `json:"reason"`
}

// Comparison is one spreadsheet upload matched against the warehouse
type Comparison struct {
	BaseModel
	ProjectID        *uuid.UUID                    `gorm:"type:uuid;index;column:project_id"`
	StageID          *uuid.UUID                    `gorm:"type:uuid;index;column:stage_id"`
	SourceFileName   string                        `gorm:"type:varchar(255);column:source_file_name"`
	SourceFilePath   string                        `gorm:"type:varchar(500);column:source_file_path"`
	CreatedByID      string                        `gorm:"type:varchar(100);column:created_by_id"`
	TotalItems       int                           `gorm:"not null;default:0;column:total_items"`
	InStockCount     int                           `gorm:"not null;default:0;column:in_stock_count"`
	PartialCount     int                           `gorm:"not null;default:0;column:partial_count"`
	MissingCount     int                           `gorm:"not null;default:0;column:missing_count"`
	PendingCount     int                           `gorm:"not null;default:0;column:pending_count"`
	AlternativeCount int                           `gorm:"not null;default:0;column:alternative_count"`
	RowErrors        datatypes.JSONSlice[RowError] `gorm:"column:row_errors"`
	Items            []ComparisonItem              `gorm:"foreignKey:ComparisonID;constraint:OnDelete:CASCADE"`
}

// TableName specifies the table name for Comparison
func (Comparison) TableName() string {
	return "warehouse_comparisons"
}

// ComparisonItem is one row of an uploaded list and its match state
type ComparisonItem struct {
	BaseModel
	ComparisonID       uuid.UUID                         `gorm:"type:uuid;not null;index;column:comparison_id"`
	RowIndex           int                               `gorm:"not null;column:row_index"`
	ExcelName          string                            `gorm:"type:varchar(300);not null;column:excel_name"`
	ExcelSKU           string                            `gorm:"type:varchar(100);column:excel_sku"`
	ExcelQuantity      float64                           `gorm:"not null;column:excel_quantity"`
	ExcelUnit          string                            `gorm:"type:varchar(20);column:excel_unit"`
	MatchConfidence    MatchConfidence                   `gorm:"type:varchar(20);not null;column:match_confidence"`
	Status             ComparisonStatus                  `gorm:"type:varchar(30);not null;index"`
	MatchReason        string                            `gorm:"type:text;column:match_reason"`
	WarehouseItem      *CatalogItem                      `gorm:"serializer:json;column:warehouse_item"`
	AlternativeItem    *CatalogItem                      `gorm:"serializer:json;column:alternative_item"`
	AISuggestions      datatypes.JSONSlice[AISuggestion] `gorm:"column:ai_suggestions"`
	QuantityToOrder    float64                           `gorm:"not null;default:0;column:quantity_to_order"`
	QuantityOverridden bool                              `gorm:"not null;default:false;column:quantity_overridden"`
	AddedToOrder       bool                              `gorm:"not null;default:false;column:added_to_order"`
	ProcurementStatus  ProcurementStatus                 `gorm:"type:varchar(20);not null;default:'pending';column:procurement_status"`
	OrderedAt          *time.Time                        `gorm:"column:ordered_at"`
	ReceivedAt         *time.Time                        `gorm:"column:received_at"`
	CancelledAt        *time.Time                        `gorm:"column:cancelled_at"`
}

// TableName specifies the table name for ComparisonItem
func (ComparisonItem) TableName() string {
	return "warehouse_comparison_items"
}

// ActiveItem returns the catalog item that drives ordering: the chosen
// alternative when one is selected, otherwise the warehouse match.
func (c *ComparisonItem) ActiveItem() *CatalogItem {
	if c.Status == ComparisonStatusAlternativeSelected && c.AlternativeItem != nil {
		return c.AlternativeItem
	}
	return c.WarehouseItem
}

// ============================================================================
// Notifications
// ============================================================================

// NotificationType represents the type of notification
type NotificationType string

const (
	NotificationTypeStageCompleted NotificationType = "stage_completed"
	NotificationTypeStageUnblocked NotificationType = "stage_unblocked"
	NotificationTypeStageReopened  NotificationType = "stage_reopened"
)

// Notification represents a user notification
type Notification struct {
	BaseModel
	UserID     string     `gorm:"type:varchar(100);not null;index;column:user_id"`
	Type       string     `gorm:"type:varchar(50);not null"`
	Title      string     `gorm:"type:varchar(200);not null"`
	Message    string     `gorm:"type:varchar(500);not null"`
	Read       bool       `gorm:"column:read;not null;default:false;index"`
	ReadAt     *time.Time `gorm:"column:read_at"`
	EntityID   *uuid.UUID `gorm:"type:uuid;column:entity_id"`
	EntityType string     `gorm:"type:varchar(50);column:entity_type"`
}
