package reconcile

import (
	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/useneurox-company/ERP--sub000/internal/domain"
)

// OrderLine is one purchasable row of an order document
type OrderLine struct {
	ItemID    uuid.UUID
	RowIndex  int
	Name      string
	SKU       string
	Quantity  float64
	Unit      string
	Supplier  string
	UnitPrice decimal.Decimal
	Total     decimal.Decimal
}

// Order is the order document built from a comparison
type Order struct {
	ComparisonID uuid.UUID
	Lines        []OrderLine
	GrandTotal   decimal.Decimal
}

// OrderRenderer turns an order into a downloadable document
type OrderRenderer interface {
	Render(order Order) ([]byte, error)
	ContentType() string
	Extension() string
}

// BuildOrder produces one line per item added to the order, in upload order.
// Name, SKU and price come from the active catalog item (the alternative when
// one is selected, otherwise the warehouse match) and fall back to the
// uploaded row.
func BuildOrder(comparisonID uuid.UUID, items []domain.ComparisonItem) Order {
	order := Order{
		ComparisonID: comparisonID,
		Lines:        []OrderLine{},
		GrandTotal:   decimal.Zero,
	}

	for i := range items {
		item := &items[i]
		if !item.AddedToOrder {
			continue
		}

		line := OrderLine{
			ItemID:    item.ID,
			RowIndex:  item.RowIndex,
			Name:      item.ExcelName,
			SKU:       item.ExcelSKU,
			Quantity:  OrderQuantity(item),
			Unit:      item.ExcelUnit,
			UnitPrice: decimal.Zero,
		}
		if active := item.ActiveItem(); active != nil {
			line.Name = active.Name
			if active.SKU != "" {
				line.SKU = active.SKU
			}
			if line.Unit == "" {
				line.Unit = active.Unit
			}
			line.Supplier = active.Supplier
			line.UnitPrice = active.Price
		}
		line.Total = line.UnitPrice.Mul(decimal.NewFromFloat(line.Quantity))

		order.Lines = append(order.Lines, line)
		order.GrandTotal = order.GrandTotal.Add(line.Total)
	}
	return order
}
