// Package stagedata holds the typed payloads stored in a stage's type_data
// column, their strict codec and the totals and progress values derived from
// them.
package stagedata

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/useneurox-company/ERP--sub000/internal/domain"
)

// Payload is the type_data of one stage type. The set of implementations is
// closed: only types in this package satisfy it.
type Payload interface {
	StageType() domain.StageType
	isPayload()
}

// ============================================================================
// Measurement
// ============================================================================

type MediaRef struct {
	FileID string `json:"fileId" validate:"required,max=100"`
	Name   string `json:"name" validate:"max=255"`
	URL    string `json:"url,omitempty" validate:"omitempty,url"`
}

type MeasurementData struct {
	Address         string          `json:"address" validate:"max=500"`
	Cost            decimal.Decimal `json:"cost"`
	MeasurementDate *time.Time      `json:"measurementDate,omitempty"`
	Notes           string          `json:"notes" validate:"max=5000"`
	Media           []MediaRef      `json:"media" validate:"dive"`
	LinkedItemIDs   []string        `json:"linkedItemIds" validate:"dive,required"`
}

func (*MeasurementData) StageType() domain.StageType { return domain.StageTypeMeasurement }
func (*MeasurementData) isPayload()                  {}

// ============================================================================
// Technical specification
// ============================================================================

// Position is the originally agreed product line of a technical specification
type Position struct {
	Name      string          `json:"name" validate:"required,max=300"`
	UnitPrice decimal.Decimal `json:"unitPrice"`
	Quantity  int             `json:"quantity" validate:"gte=0"`
	Total     decimal.Decimal `json:"total"`
}

// Addon is a priced change on top of the original position
type Addon struct {
	ID          string          `json:"id" validate:"required,max=100"`
	Name        string          `json:"name" validate:"required,max=300"`
	Description string          `json:"description,omitempty" validate:"max=2000"`
	PriceChange decimal.Decimal `json:"priceChange"`
	Quantity    int             `json:"quantity" validate:"gte=0"`
	Total       decimal.Decimal `json:"total"`
}

type TechnicalSpecificationData struct {
	OriginalPosition *Position      `json:"originalPosition,omitempty"`
	Addons           []Addon         `json:"addons" validate:"dive"`
	AddonsTotal      decimal.Decimal `json:"addonsTotal"`
	FinalTotal       decimal.Decimal `json:"finalTotal"`
}

func (*TechnicalSpecificationData) StageType() domain.StageType {
	return domain.StageTypeTechnicalSpecification
}
func (*TechnicalSpecificationData) isPayload() {}

// ============================================================================
// Constructor documentation
// ============================================================================

type HardwareItem struct {
	Name     string  `json:"name" validate:"required,max=300"`
	SKU      string  `json:"sku" validate:"max=100"`
	Quantity float64 `json:"quantity" validate:"gte=0"`
	Unit     string  `json:"unit" validate:"max=20"`
}

type CuttingPart struct {
	Part      string  `json:"part" validate:"required,max=300"`
	Material  string  `json:"material" validate:"max=200"`
	Length    float64 `json:"length" validate:"gte=0"`
	Width     float64 `json:"width" validate:"gte=0"`
	Thickness float64 `json:"thickness" validate:"gte=0"`
	Quantity  int     `json:"quantity" validate:"gte=0"`
}

type Link struct {
	Title string `json:"title" validate:"max=300"`
	URL   string `json:"url" validate:"required,url"`
}

// WarehouseComparisonSummary is the badge a reconciliation leaves on the
// constructor documentation of its stage
type WarehouseComparisonSummary struct {
	ComparisonID        uuid.UUID `json:"comparisonId"`
	TotalItems          int       `json:"totalItems"`
	InStock             int       `json:"inStock"`
	Partial             int       `json:"partial"`
	Missing             int       `json:"missing"`
	Pending             int       `json:"pending"`
	AlternativeSelected int       `json:"alternativeSelected"`
	UpdatedAt           time.Time `json:"updatedAt"`
}

type ConstructorDocumentationData struct {
	HardwareSpec        []HardwareItem              `json:"hardwareSpec" validate:"dive"`
	CuttingSpec         []CuttingPart               `json:"cuttingSpec" validate:"dive"`
	Links               []Link                      `json:"links" validate:"dive"`
	WarehouseComparison *WarehouseComparisonSummary `json:"warehouseComparison"`
}

func (*ConstructorDocumentationData) StageType() domain.StageType {
	return domain.StageTypeConstructorDocumentation
}
func (*ConstructorDocumentationData) isPayload() {}

// ============================================================================
// Approval
// ============================================================================

// DocumentStatus is the client decision on one approval document
type DocumentStatus string

const (
	DocumentStatusPending  DocumentStatus = "pending"
	DocumentStatusApproved DocumentStatus = "approved"
	DocumentStatusRejected DocumentStatus = "rejected"
)

// ApprovalStatus is the derived status of an approval stage
type ApprovalStatus string

const (
	ApprovalStatusPending          ApprovalStatus = "pending"
	ApprovalStatusApproved         ApprovalStatus = "approved"
	ApprovalStatusRequiresRevision ApprovalStatus = "requires_revision"
)

type ApprovalDocument struct {
	ID        string         `json:"id" validate:"required,max=100"`
	Name      string         `json:"name" validate:"required,max=300"`
	FileID    string         `json:"fileId,omitempty" validate:"max=100"`
	Status    DocumentStatus `json:"status" validate:"omitempty,oneof=pending approved rejected"`
	DecidedBy string         `json:"decidedBy,omitempty" validate:"max=100"`
	DecidedAt *time.Time     `json:"decidedAt,omitempty"`
	Comment   string         `json:"comment,omitempty" validate:"max=2000"`
}

type ClientComment struct {
	Author    string    `json:"author" validate:"max=200"`
	Text      string    `json:"text" validate:"required,max=5000"`
	CreatedAt time.Time `json:"createdAt"`
}

// ApprovalEvent is one entry of the append-only approval ledger
type ApprovalEvent struct {
	Action     string    `json:"action" validate:"required,max=50"`
	DocumentID string    `json:"documentId,omitempty" validate:"max=100"`
	Actor      string    `json:"actor" validate:"max=100"`
	Comment    string    `json:"comment,omitempty" validate:"max=2000"`
	At         time.Time `json:"at"`
}

type RevisionRequest struct {
	ID          string    `json:"id" validate:"required,max=100"`
	Reason      string    `json:"reason" validate:"required,max=2000"`
	RequestedBy string    `json:"requestedBy" validate:"max=100"`
	RequestedAt time.Time `json:"requestedAt"`
	Resolved    bool      `json:"resolved"`
}

type ApprovalData struct {
	Documents        []ApprovalDocument `json:"documents" validate:"dive"`
	ClientComments   []ClientComment    `json:"clientComments" validate:"dive"`
	ApprovalHistory  []ApprovalEvent    `json:"approvalHistory" validate:"dive"`
	RevisionRequests []RevisionRequest  `json:"revisionRequests" validate:"dive"`
	OverallStatus    ApprovalStatus     `json:"overallStatus"`
}

func (*ApprovalData) StageType() domain.StageType { return domain.StageTypeApproval }
func (*ApprovalData) isPayload()                  {}

// ============================================================================
// Procurement
// ============================================================================

type ProcurementItem struct {
	Name     string          `json:"name" validate:"required,max=300"`
	SKU      string          `json:"sku" validate:"max=100"`
	Quantity float64         `json:"quantity" validate:"gte=0"`
	Unit     string          `json:"unit" validate:"max=20"`
	Cost     decimal.Decimal `json:"cost"`
	Supplier string          `json:"supplier" validate:"max=200"`
	Status   string          `json:"status" validate:"omitempty,oneof=pending ordered in_transit received cancelled"`
}

type BudgetInfo struct {
	Planned    decimal.Decimal `json:"planned"`
	Actual     decimal.Decimal `json:"actual"`
	Remaining  decimal.Decimal `json:"remaining"`
	OverBudget bool            `json:"overBudget"`
}

type ProcurementData struct {
	ProcurementItems []ProcurementItem `json:"procurementItems" validate:"dive"`
	BudgetInfo       BudgetInfo        `json:"budgetInfo"`
}

func (*ProcurementData) StageType() domain.StageType { return domain.StageTypeProcurement }
func (*ProcurementData) isPayload()                  {}

// ============================================================================
// Production
// ============================================================================

type CuttingTask struct {
	ID          string     `json:"id" validate:"required,max=100"`
	Part        string     `json:"part" validate:"required,max=300"`
	Quantity    int        `json:"quantity" validate:"gte=0"`
	Completed   bool       `json:"completed"`
	CompletedAt *time.Time `json:"completedAt,omitempty"`
}

type MaterialAllocation struct {
	Name     string  `json:"name" validate:"required,max=300"`
	SKU      string  `json:"sku" validate:"max=100"`
	Quantity float64 `json:"quantity" validate:"gte=0"`
	Unit     string  `json:"unit" validate:"max=20"`
}

type ProductionTask struct {
	ID       string `json:"id" validate:"required,max=100"`
	Name     string `json:"name" validate:"required,max=300"`
	Progress int    `json:"progress" validate:"gte=0,lte=100"`
}

type ProductionData struct {
	CuttingSpecification []CuttingTask        `json:"cuttingSpecification" validate:"dive"`
	AllocatedMaterials   []MaterialAllocation `json:"allocatedMaterials" validate:"dive"`
	Tasks                []ProductionTask     `json:"tasks" validate:"dive"`
	QualityApproved      bool                 `json:"qualityApproved"`
	OverallProgress      int                  `json:"overallProgress"`
	ProductionCompleted  bool                 `json:"productionCompleted"`
	ReadyForInstallation bool                 `json:"readyForInstallation"`
}

func (*ProductionData) StageType() domain.StageType { return domain.StageTypeProduction }
func (*ProductionData) isPayload()                  {}

// ============================================================================
// Installation & generic
// ============================================================================

type ChecklistItem struct {
	Title string `json:"title" validate:"required,max=300"`
	Done  bool   `json:"done"`
}

type InstallationData struct {
	Address          string          `json:"address" validate:"max=500"`
	InstallationDate *time.Time      `json:"installationDate,omitempty"`
	Crew             []string        `json:"crew" validate:"dive,required,max=200"`
	Notes            string          `json:"notes" validate:"max=5000"`
	Checklist        []ChecklistItem `json:"checklist" validate:"dive"`
	Progress         int             `json:"progress"`
}

func (*InstallationData) StageType() domain.StageType { return domain.StageTypeInstallation }
func (*InstallationData) isPayload()                  {}

type GenericData struct {
	Notes  string            `json:"notes" validate:"max=5000"`
	Fields map[string]string `json:"fields"`
}

func (*GenericData) StageType() domain.StageType { return domain.StageTypeGeneric }
func (*GenericData) isPayload()                  {}
