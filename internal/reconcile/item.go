package reconcile

import (
	"math"
	"time"

	"github.com/useneurox-company/ERP--sub000/internal/domain"
)

// Summary holds the aggregate counts of a comparison
type Summary struct {
	TotalItems          int
	InStock             int
	Partial             int
	Missing             int
	Pending             int
	AlternativeSelected int
}

// NewItem builds a comparison item for a classified row. The order quantity
// starts at the requested quantity.
func NewItem(row Row, m Match) domain.ComparisonItem {
	return domain.ComparisonItem{
		RowIndex:          row.Index,
		ExcelName:         row.Name,
		ExcelSKU:          row.SKU,
		ExcelQuantity:     row.Quantity,
		ExcelUnit:         row.Unit,
		MatchConfidence:   m.Confidence,
		Status:            m.Status,
		MatchReason:       m.Reason,
		WarehouseItem:     m.Best,
		AISuggestions:     []domain.AISuggestion{},
		QuantityToOrder:   row.Quantity,
		ProcurementStatus: domain.ProcurementStatusPending,
	}
}

func itemError(item *domain.ComparisonItem, to, reason string) error {
	return &domain.TransitionError{
		Entity: "comparison item " + item.ID.String(),
		From:   string(item.Status),
		To:     to,
		Reason: reason,
	}
}

// ConfirmMatch promotes a medium or low confidence warehouse match to high and
// makes it the active selection
func ConfirmMatch(item *domain.ComparisonItem) error {
	if item.WarehouseItem == nil {
		return itemError(item, "confirmed", "there is no warehouse match to confirm")
	}
	if item.MatchConfidence == domain.MatchConfidenceHigh && item.Status != domain.ComparisonStatusAlternativeSelected {
		return itemError(item, "confirmed", "the match is already confirmed")
	}

	item.MatchConfidence = domain.MatchConfidenceHigh
	item.AlternativeItem = nil
	item.Status = StockStatus(item.WarehouseItem.Quantity, item.ExcelQuantity)
	item.MatchReason = "Match confirmed by user: " + item.WarehouseItem.Name
	return nil
}

// SelectAlternative makes candidate the active item for ordering. The
// warehouse match stays on the item for reference but no longer drives the
// order.
func SelectAlternative(item *domain.ComparisonItem, candidate domain.CatalogItem) error {
	if candidate.ID == "" {
		return domain.NewValidationError("candidateId", "This field is required")
	}
	alt := candidate
	item.AlternativeItem = &alt
	item.Status = domain.ComparisonStatusAlternativeSelected
	item.MatchReason = "Alternative selected by user: " + candidate.Name
	return nil
}

// SetQuantity overrides the quantity to order
func SetQuantity(item *domain.ComparisonItem, qty float64) error {
	if math.IsNaN(qty) || math.IsInf(qty, 0) || qty < 0 {
		return domain.NewValidationError("quantity", "Must be greater than or equal to 0")
	}
	item.QuantityToOrder = qty
	item.QuantityOverridden = true
	return nil
}

// ToggleOrder includes or excludes the item from the order
func ToggleOrder(item *domain.ComparisonItem, include bool) {
	item.AddedToOrder = include
}

// OrderQuantity is the quantity that goes on the order: the full requested
// quantity until a match decision has been made
func OrderQuantity(item *domain.ComparisonItem) float64 {
	if item.Status == domain.ComparisonStatusPending {
		return item.ExcelQuantity
	}
	return item.QuantityToOrder
}

var procurementNext = map[domain.ProcurementStatus]domain.ProcurementStatus{
	domain.ProcurementStatusPending:   domain.ProcurementStatusOrdered,
	domain.ProcurementStatusOrdered:   domain.ProcurementStatusInTransit,
	domain.ProcurementStatusInTransit: domain.ProcurementStatusReceived,
}

// SetProcurementStatus advances pending → ordered → in_transit → received,
// or cancels from any non-terminal status
func SetProcurementStatus(item *domain.ComparisonItem, next domain.ProcurementStatus, now time.Time) error {
	if !next.IsValid() {
		return domain.NewValidationError("status", "Must be one of: pending ordered in_transit received cancelled")
	}

	current := item.ProcurementStatus
	if current == "" {
		current = domain.ProcurementStatusPending
	}

	procErr := func(reason string) error {
		return &domain.TransitionError{
			Entity: "procurement of item " + item.ID.String(),
			From:   string(current),
			To:     string(next),
			Reason: reason,
		}
	}

	if current.IsTerminal() {
		return procErr("procurement is already " + string(current))
	}

	at := now.UTC()
	switch {
	case next == domain.ProcurementStatusCancelled:
		item.CancelledAt = &at
	case procurementNext[current] == next:
		switch next {
		case domain.ProcurementStatusOrdered:
			item.OrderedAt = &at
		case domain.ProcurementStatusReceived:
			item.ReceivedAt = &at
		}
	default:
		return procErr("expected " + string(procurementNext[current]) + " or cancelled")
	}

	item.ProcurementStatus = next
	return nil
}

// RefreshStock updates the snapshot of a confirmed warehouse match with the
// current catalog quantity and reapplies the quantity rule. Reports whether
// the item changed.
func RefreshStock(item *domain.ComparisonItem, current domain.CatalogItem) bool {
	if item.MatchConfidence != domain.MatchConfidenceHigh || item.WarehouseItem == nil {
		return false
	}
	if item.Status != domain.ComparisonStatusInStock && item.Status != domain.ComparisonStatusPartial {
		return false
	}
	if item.WarehouseItem.ID != current.ID {
		return false
	}

	status := StockStatus(current.Quantity, item.ExcelQuantity)
	if current.Quantity == item.WarehouseItem.Quantity && status == item.Status {
		return false
	}
	snapshot := current
	item.WarehouseItem = &snapshot
	item.Status = status
	return true
}

// Summarize counts items per status
func Summarize(items []domain.ComparisonItem) Summary {
	s := Summary{TotalItems: len(items)}
	for i := range items {
		switch items[i].Status {
		case domain.ComparisonStatusInStock:
			s.InStock++
		case domain.ComparisonStatusPartial:
			s.Partial++
		case domain.ComparisonStatusMissing:
			s.Missing++
		case domain.ComparisonStatusPending:
			s.Pending++
		case domain.ComparisonStatusAlternativeSelected:
			s.AlternativeSelected++
		}
	}
	return s
}

// ApplySummary copies the counts onto the comparison
func ApplySummary(c *domain.Comparison, s Summary) {
	c.TotalItems = s.TotalItems
	c.InStockCount = s.InStock
	c.PartialCount = s.Partial
	c.MissingCount = s.Missing
	c.PendingCount = s.Pending
	c.AlternativeCount = s.AlternativeSelected
}
