package mapper

import (
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/useneurox-company/ERP--sub000/internal/domain"
	"github.com/useneurox-company/ERP--sub000/internal/reconcile"
)

const timeFormat = "2006-01-02T15:04:05Z"

func formatTime(t time.Time) string {
	return t.UTC().Format(timeFormat)
}

func formatTimePtr(t *time.Time) *string {
	if t == nil {
		return nil
	}
	s := formatTime(*t)
	return &s
}

// ToProjectDTO converts Project to ProjectDTO. stages are expected in
// display order already.
func ToProjectDTO(project *domain.Project, stages []domain.StageDTO) domain.ProjectDTO {
	return domain.ProjectDTO{
		ID:          project.ID,
		Name:        project.Name,
		ClientName:  project.ClientName,
		Address:     project.Address,
		Template:    project.Template,
		CreatedByID: project.CreatedByID,
		CreatedAt:   formatTime(project.CreatedAt),
		UpdatedAt:   formatTime(project.UpdatedAt),
		Stages:      stages,
	}
}

// StageView carries what a StageDTO needs beyond the stage row
type StageView struct {
	DependsOn []uuid.UUID
	Blocked   bool
	Blockers  []uuid.UUID
	TypeData  interface{}
}

// ToStageDTO converts Stage to StageDTO
func ToStageDTO(stage *domain.Stage, view StageView) domain.StageDTO {
	dependsOn := view.DependsOn
	if dependsOn == nil {
		dependsOn = []uuid.UUID{}
	}
	return domain.StageDTO{
		ID:               stage.ID,
		ProjectID:        stage.ProjectID,
		Name:             stage.Name,
		StageType:        stage.StageType,
		Status:           stage.Status,
		DisplayOrder:     stage.DisplayOrder,
		PlannedStartDate: formatTimePtr(stage.PlannedStartDate),
		PlannedEndDate:   formatTimePtr(stage.PlannedEndDate),
		ActualStartDate:  formatTimePtr(stage.ActualStartDate),
		ActualEndDate:    formatTimePtr(stage.ActualEndDate),
		AssigneeID:       stage.AssigneeID,
		DependsOn:        dependsOn,
		Blocked:          view.Blocked,
		Blockers:         view.Blockers,
		ReopenHistory:    stage.ReopenHistory,
		TypeData:         view.TypeData,
		CreatedAt:        formatTime(stage.CreatedAt),
		UpdatedAt:        formatTime(stage.UpdatedAt),
	}
}

func ToStageTransitionDTO(t *domain.StageTransition) domain.StageTransitionDTO {
	return domain.StageTransitionDTO{
		ID:         t.ID,
		StageID:    t.StageID,
		FromStatus: t.FromStatus,
		ToStatus:   t.ToStatus,
		ActorID:    t.ActorID,
		Reason:     t.Reason,
		ChangedAt:  formatTime(t.ChangedAt),
	}
}

// ToComparisonDTO converts a Comparison with its loaded items
func ToComparisonDTO(c *domain.Comparison) domain.ComparisonDTO {
	items := make([]domain.ComparisonItemDTO, len(c.Items))
	for i := range c.Items {
		items[i] = ToComparisonItemDTO(&c.Items[i])
	}
	return domain.ComparisonDTO{
		ID:             c.ID,
		ProjectID:      c.ProjectID,
		StageID:        c.StageID,
		SourceFileName: c.SourceFileName,
		CreatedByID:    c.CreatedByID,
		CreatedAt:      formatTime(c.CreatedAt),
		Summary: domain.ComparisonSummaryDTO{
			TotalItems:          c.TotalItems,
			InStock:             c.InStockCount,
			Partial:             c.PartialCount,
			Missing:             c.MissingCount,
			Pending:             c.PendingCount,
			AlternativeSelected: c.AlternativeCount,
		},
		RowErrors: c.RowErrors,
		Items:     items,
	}
}

func ToComparisonItemDTO(item *domain.ComparisonItem) domain.ComparisonItemDTO {
	suggestions := []domain.AISuggestion(item.AISuggestions)
	if suggestions == nil {
		suggestions = []domain.AISuggestion{}
	}
	return domain.ComparisonItemDTO{
		ID:                 item.ID,
		RowIndex:           item.RowIndex,
		ExcelName:          item.ExcelName,
		ExcelSKU:           item.ExcelSKU,
		ExcelQuantity:      item.ExcelQuantity,
		ExcelUnit:          item.ExcelUnit,
		MatchConfidence:    item.MatchConfidence,
		Status:             item.Status,
		MatchReason:        item.MatchReason,
		WarehouseItem:      item.WarehouseItem,
		AlternativeItem:    item.AlternativeItem,
		AISuggestions:      suggestions,
		QuantityToOrder:    item.QuantityToOrder,
		OrderQuantity:      reconcile.OrderQuantity(item),
		QuantityOverridden: item.QuantityOverridden,
		AddedToOrder:       item.AddedToOrder,
		ProcurementStatus:  item.ProcurementStatus,
		OrderedAt:          formatTimePtr(item.OrderedAt),
		ReceivedAt:         formatTimePtr(item.ReceivedAt),
		CancelledAt:        formatTimePtr(item.CancelledAt),
	}
}

func ToOrderDTO(order reconcile.Order) domain.OrderDTO {
	lines := make([]domain.OrderLineDTO, len(order.Lines))
	for i, l := range order.Lines {
		lines[i] = domain.OrderLineDTO{
			ItemID:    l.ItemID,
			Name:      l.Name,
			SKU:       l.SKU,
			Quantity:  l.Quantity,
			Unit:      l.Unit,
			Supplier:  l.Supplier,
			UnitPrice: l.UnitPrice,
			Total:     l.Total,
		}
	}
	return domain.OrderDTO{
		ComparisonID: order.ComparisonID,
		Lines:        lines,
		GrandTotal:   order.GrandTotal,
	}
}

func ToWarehouseItemDTO(item *domain.WarehouseItem) domain.WarehouseItemDTO {
	return domain.WarehouseItemDTO{
		ID:        item.ID,
		Name:      item.Name,
		SKU:       item.SKU,
		Barcode:   item.Barcode,
		Quantity:  item.Quantity,
		Unit:      item.Unit,
		Price:     item.Price,
		Supplier:  item.Supplier,
		Category:  item.Category,
		UpdatedAt: formatTime(item.UpdatedAt),
	}
}

// ToNotificationDTO converts Notification to NotificationDTO
func ToNotificationDTO(notification *domain.Notification) domain.NotificationDTO {
	return domain.NotificationDTO{
		ID:         notification.ID,
		UserID:     notification.UserID,
		Type:       notification.Type,
		Title:      notification.Title,
		Message:    notification.Message,
		Read:       notification.Read,
		ReadAt:     formatTimePtr(notification.ReadAt),
		CreatedAt:  formatTime(notification.CreatedAt),
		EntityID:   notification.EntityID,
		EntityType: notification.EntityType,
	}
}

// FormatError creates a formatted error message
func FormatError(entity, operation string, err error) error {
	return fmt.Errorf("failed to %s %s: %w", operation, entity, err)
}
