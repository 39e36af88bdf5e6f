package spreadsheet

import (
	"fmt"

	"github.com/xuri/excelize/v2"

	"github.com/useneurox-company/ERP--sub000/internal/reconcile"
)

const orderSheet = "Order"

var _ reconcile.OrderRenderer = XLSXRenderer{}

// XLSXRenderer writes a purchase order as a single-sheet workbook
type XLSXRenderer struct{}

// ContentType implements reconcile.OrderRenderer
func (XLSXRenderer) ContentType() string {
	return "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"
}

// Extension implements reconcile.OrderRenderer
func (XLSXRenderer) Extension() string { return ".xlsx" }

// Render implements reconcile.OrderRenderer
func (XLSXRenderer) Render(order reconcile.Order) ([]byte, error) {
	f := excelize.NewFile()
	defer f.Close()

	if err := f.SetSheetName("Sheet1", orderSheet); err != nil {
		return nil, fmt.Errorf("failed to name sheet: %w", err)
	}

	header := []interface{}{"#", "Name", "SKU", "Quantity", "Unit", "Supplier", "Unit price", "Total"}
	if err := f.SetSheetRow(orderSheet, "A1", &header); err != nil {
		return nil, fmt.Errorf("failed to write header: %w", err)
	}
	bold, err := f.NewStyle(&excelize.Style{Font: &excelize.Font{Bold: true}})
	if err != nil {
		return nil, fmt.Errorf("failed to create style: %w", err)
	}
	if err := f.SetCellStyle(orderSheet, "A1", "H1", bold); err != nil {
		return nil, fmt.Errorf("failed to style header: %w", err)
	}

	for i, line := range order.Lines {
		cell, err := excelize.CoordinatesToCellName(1, i+2)
		if err != nil {
			return nil, err
		}
		values := []interface{}{
			i + 1,
			line.Name,
			line.SKU,
			line.Quantity,
			line.Unit,
			line.Supplier,
			line.UnitPrice.InexactFloat64(),
			line.Total.InexactFloat64(),
		}
		if err := f.SetSheetRow(orderSheet, cell, &values); err != nil {
			return nil, fmt.Errorf("failed to write line %d: %w", i+1, err)
		}
	}

	totalRow := len(order.Lines) + 2
	labelCell, _ := excelize.CoordinatesToCellName(7, totalRow)
	totalCell, _ := excelize.CoordinatesToCellName(8, totalRow)
	if err := f.SetCellValue(orderSheet, labelCell, "Grand total"); err != nil {
		return nil, err
	}
	if err := f.SetCellValue(orderSheet, totalCell, order.GrandTotal.InexactFloat64()); err != nil {
		return nil, err
	}
	if err := f.SetCellStyle(orderSheet, labelCell, totalCell, bold); err != nil {
		return nil, err
	}
	_ = f.SetColWidth(orderSheet, "B", "B", 40)
	_ = f.SetColWidth(orderSheet, "C", "C", 16)
	_ = f.SetColWidth(orderSheet, "F", "F", 20)

	buf, err := f.WriteToBuffer()
	if err != nil {
		return nil, fmt.Errorf("failed to write workbook: %w", err)
	}
	return buf.Bytes(), nil
}
