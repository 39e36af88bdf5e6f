package spreadsheet_test

import (
	"bytes"
	"errors"
	"math"
	"strings"
	"testing"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"

	"github.com/useneurox-company/ERP--sub000/internal/domain"
	"github.com/useneurox-company/ERP--sub000/internal/reconcile"
	"github.com/useneurox-company/ERP--sub000/internal/spreadsheet"
)

func workbook(t *testing.T, rows [][]interface{}) *bytes.Buffer {
	t.Helper()
	f := excelize.NewFile()
	defer f.Close()
	for i, row := range rows {
		cell, err := excelize.CoordinatesToCellName(1, i+1)
		require.NoError(t, err)
		require.NoError(t, f.SetSheetRow("Sheet1", cell, &row))
	}
	buf, err := f.WriteToBuffer()
	require.NoError(t, err)
	return buf
}

func TestParse_XLSX(t *testing.T) {
	buf := workbook(t, [][]interface{}{
		{"Hardware list for kitchen"},
		{" "},
		{"SKU", "Item name", "Qty", "Unit"},
		{"PH-100-CR", "Hinge PH-100", 20, "pcs"},
		{" "},
		{"", "Drawer slide 450", "2,5", "pair"},
		{"LEG-1", "Cabinet leg", "lots", ""},
	})

	rows, err := spreadsheet.Parse("kitchen.XLSX", buf)
	require.NoError(t, err)
	require.Len(t, rows, 3)

	assert.Equal(t, reconcile.Row{Index: 4, Name: "Hinge PH-100", SKU: "PH-100-CR", Quantity: 20, Unit: "pcs"}, rows[0])
	assert.Equal(t, 6, rows[1].Index)
	assert.Equal(t, 2.5, rows[1].Quantity)
	assert.Empty(t, rows[1].SKU)
	assert.True(t, math.IsNaN(rows[2].Quantity))
}

func TestParse_CSV(t *testing.T) {
	t.Run("russian headers with semicolons", func(t *testing.T) {
		data := "\ufeffНаименование;Артикул;Кол-во;Ед. изм.\n" +
			"Петля накладная;PH-100;20;шт\n" +
			"Ручка-скоба;;1 200;шт\n"

		rows, err := spreadsheet.Parse("list.csv", strings.NewReader(data))
		require.NoError(t, err)
		require.Len(t, rows, 2)
		assert.Equal(t, reconcile.Row{Index: 2, Name: "Петля накладная", SKU: "PH-100", Quantity: 20, Unit: "шт"}, rows[0])
		assert.Equal(t, 1200.0, rows[1].Quantity)
	})

	t.Run("comma separated with only a name column", func(t *testing.T) {
		rows, err := spreadsheet.Parse("list.csv", strings.NewReader("name,notes\nGlass shelf,fragile\n"))
		require.NoError(t, err)
		require.Len(t, rows, 1)
		assert.Equal(t, "Glass shelf", rows[0].Name)
		assert.Equal(t, 0.0, rows[0].Quantity)
	})

	t.Run("missing header", func(t *testing.T) {
		_, err := spreadsheet.Parse("list.csv", strings.NewReader("a,b\n1,2\n"))
		assert.True(t, errors.Is(err, domain.ErrValidation))
	})
}

func TestParse_Unsupported(t *testing.T) {
	_, err := spreadsheet.Parse("list.pdf", strings.NewReader(""))
	assert.ErrorIs(t, err, spreadsheet.ErrUnsupportedFormat)

	_, err = spreadsheet.Parse("broken.xlsx", strings.NewReader("not a zip"))
	assert.True(t, errors.Is(err, domain.ErrValidation))
}

func TestXLSXRenderer(t *testing.T) {
	order := reconcile.Order{
		ComparisonID: uuid.New(),
		Lines: []reconcile.OrderLine{
			{Name: "Hinge clip-on chrome", SKU: "PH-100-CR", Quantity: 20, Unit: "pcs", Supplier: "Blum",
				UnitPrice: decimal.RequireFromString("12.50"), Total: decimal.NewFromInt(250)},
			{Name: "Glass shelf", Quantity: 3, Unit: "pcs"},
		},
		GrandTotal: decimal.NewFromInt(250),
	}

	r := spreadsheet.XLSXRenderer{}
	assert.Equal(t, ".xlsx", r.Extension())
	assert.Contains(t, r.ContentType(), "spreadsheetml")

	out, err := r.Render(order)
	require.NoError(t, err)

	f, err := excelize.OpenReader(bytes.NewReader(out))
	require.NoError(t, err)
	defer f.Close()

	rows, err := f.GetRows("Order")
	require.NoError(t, err)
	require.Len(t, rows, 4)
	assert.Equal(t, "Name", rows[0][1])
	assert.Equal(t, "Hinge clip-on chrome", rows[1][1])
	assert.Equal(t, "20", rows[1][3])
	assert.Equal(t, "12.5", rows[1][6])
	assert.Equal(t, "Grand total", rows[3][6])
	assert.Equal(t, "250", rows[3][7])

	parsed, err := spreadsheet.Parse("order.xlsx", bytes.NewReader(out))
	require.NoError(t, err)
	require.Len(t, parsed, 3, "the total row has no name and is kept as a blank-name row")
}
