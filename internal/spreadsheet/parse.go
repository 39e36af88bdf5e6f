// Package spreadsheet reads uploaded item lists and renders order documents.
package spreadsheet

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"math"
	"path/filepath"
	"strconv"
	"strings"
	"unicode"

	"github.com/xuri/excelize/v2"

	"github.com/useneurox-company/ERP--sub000/internal/domain"
	"github.com/useneurox-company/ERP--sub000/internal/reconcile"
)

// headerScanRows is how many leading rows may precede the header
const headerScanRows = 10

var (
	// ErrUnsupportedFormat is returned for files that are neither xlsx nor csv
	ErrUnsupportedFormat = errors.New("unsupported spreadsheet format")
	// ErrNoHeader is returned when no row names the item column
	ErrNoHeader = errors.New("no header row with an item name column found")
)

type column int

const (
	colName column = iota
	colSKU
	colQuantity
	colUnit
)

var headerAliases = map[column][]string{
	colName:     {"name", "item", "itemname", "description", "product", "наименование", "название", "товар", "номенклатура", "позиция"},
	colSKU:      {"sku", "article", "art", "code", "partnumber", "артикул", "код", "арт"},
	colQuantity: {"quantity", "qty", "count", "amount", "количество", "колво", "кол"},
	colUnit:     {"unit", "units", "uom", "ед", "едизм", "единица", "единицаизмерения"},
}

// Parse reads an item list from an xlsx or csv file. The format is chosen by
// file extension. Quantities that are not numbers come back as NaN so the
// row can be rejected with a reason.
func Parse(filename string, r io.Reader) ([]reconcile.Row, error) {
	switch strings.ToLower(filepath.Ext(filename)) {
	case ".xlsx", ".xlsm":
		return parseXLSX(r)
	case ".csv":
		return parseCSV(r)
	default:
		return nil, fmt.Errorf("%w: %s", ErrUnsupportedFormat, filepath.Ext(filename))
	}
}

func parseXLSX(r io.Reader) ([]reconcile.Row, error) {
	f, err := excelize.OpenReader(r)
	if err != nil {
		return nil, domain.NewValidationError("file", "not a readable xlsx workbook: "+err.Error())
	}
	defer f.Close()

	sheets := f.GetSheetList()
	if len(sheets) == 0 {
		return nil, domain.NewValidationError("file", "workbook has no sheets")
	}
	records, err := f.GetRows(sheets[0])
	if err != nil {
		return nil, fmt.Errorf("failed to read sheet %s: %w", sheets[0], err)
	}
	return rowsFromRecords(records)
}

func parseCSV(r io.Reader) ([]reconcile.Row, error) {
	buf, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("failed to read csv: %w", err)
	}
	text := strings.TrimPrefix(string(buf), "\ufeff")

	// Excel exports csv with ';' in many locales
	reader := csv.NewReader(strings.NewReader(text))
	reader.FieldsPerRecord = -1
	reader.TrimLeadingSpace = true
	reader.Comma = detectDelimiter(text)

	records, err := reader.ReadAll()
	if err != nil {
		return nil, domain.NewValidationError("file", "malformed csv: "+err.Error())
	}
	return rowsFromRecords(records)
}

func detectDelimiter(text string) rune {
	firstLine := text
	if i := strings.IndexByte(text, '\n'); i >= 0 {
		firstLine = text[:i]
	}
	if strings.Count(firstLine, ";") > strings.Count(firstLine, ",") {
		return ';'
	}
	return ','
}

func rowsFromRecords(records [][]string) ([]reconcile.Row, error) {
	headerIdx, cols := findHeader(records)
	if headerIdx < 0 {
		return nil, domain.NewValidationError("file", ErrNoHeader.Error())
	}

	rows := []reconcile.Row{}
	for i := headerIdx + 1; i < len(records); i++ {
		rec := records[i]
		if blank(rec) {
			continue
		}
		rows = append(rows, reconcile.Row{
			Index:    i + 1,
			Name:     strings.TrimSpace(cell(rec, cols, colName)),
			SKU:      strings.TrimSpace(cell(rec, cols, colSKU)),
			Quantity: parseQuantity(cell(rec, cols, colQuantity)),
			Unit:     strings.TrimSpace(cell(rec, cols, colUnit)),
		})
	}
	return rows, nil
}

func findHeader(records [][]string) (int, map[column]int) {
	for i := 0; i < len(records) && i < headerScanRows; i++ {
		cols := make(map[column]int)
		for j, h := range records[i] {
			key := headerKey(h)
			if key == "" {
				continue
			}
			for c, aliases := range headerAliases {
				if _, taken := cols[c]; taken {
					continue
				}
				for _, a := range aliases {
					if key == a {
						cols[c] = j
					}
				}
			}
		}
		if _, ok := cols[colName]; ok {
			return i, cols
		}
	}
	return -1, nil
}

// headerKey lower-cases and keeps only letters and digits, so "Ед. изм." and
// "Item name" compare as "едизм" and "itemname"
func headerKey(s string) string {
	var b strings.Builder
	for _, r := range strings.ToLower(s) {
		if unicode.IsLetter(r) || unicode.IsDigit(r) {
			b.WriteRune(r)
		}
	}
	return b.String()
}

func cell(rec []string, cols map[column]int, c column) string {
	idx, ok := cols[c]
	if !ok || idx >= len(rec) {
		return ""
	}
	return rec[idx]
}

func blank(rec []string) bool {
	for _, v := range rec {
		if strings.TrimSpace(v) != "" {
			return false
		}
	}
	return true
}

// parseQuantity accepts "20", "2,5" and "1 200". Blank is 0, garbage is NaN.
func parseQuantity(s string) float64 {
	cleaned := strings.Map(func(r rune) rune {
		if unicode.IsSpace(r) {
			return -1
		}
		if r == ',' {
			return '.'
		}
		return r
	}, s)
	if cleaned == "" {
		return 0
	}
	v, err := strconv.ParseFloat(cleaned, 64)
	if err != nil {
		return math.NaN()
	}
	return v
}
