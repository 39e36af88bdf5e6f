package datawarehouse

import (
	"context"
	"fmt"
	"regexp"
	"strconv"
	"strings"

	"github.com/shopspring/decimal"

	"github.com/useneurox-company/ERP--sub000/internal/domain"
	"github.com/useneurox-company/ERP--sub000/internal/reconcile"
)

const catalogLimit = 50

var tableNamePattern = regexp.MustCompile(`^[A-Za-z_][A-Za-z0-9_]*(\.[A-Za-z_][A-Za-z0-9_]*)?$`)

// QueryExecutor runs a read-only query; *Client implements it
type QueryExecutor interface {
	ExecuteQuery(ctx context.Context, query string, args ...interface{}) ([]map[string]interface{}, error)
}

var _ reconcile.Catalog = (*Catalog)(nil)

// Catalog reads stock items from a warehouse table or view with the columns
// id, name, sku, barcode, quantity, unit, price and supplier
type Catalog struct {
	exec  QueryExecutor
	table string
}

// NewCatalog validates the table name, which is interpolated into queries
func NewCatalog(exec QueryExecutor, table string) (*Catalog, error) {
	if !tableNamePattern.MatchString(table) {
		return nil, fmt.Errorf("invalid catalog table name %q", table)
	}
	return &Catalog{exec: exec, table: table}, nil
}

func (c *Catalog) selectAll() string {
	return "SELECT CAST(id AS NVARCHAR(64)) AS id, name, sku, barcode, quantity, unit, price, supplier FROM " + c.table
}

func (c *Catalog) selectTop(n int) string {
	return fmt.Sprintf(
		"SELECT TOP (%d) CAST(id AS NVARCHAR(64)) AS id, name, sku, barcode, quantity, unit, price, supplier FROM %s",
		n, c.table,
	)
}

// FindCandidates implements reconcile.Catalog. Items whose SKU or barcode
// equals sku are always returned, ahead of the capped substring matches.
func (c *Catalog) FindCandidates(ctx context.Context, name, sku string) ([]domain.CatalogItem, error) {
	name, sku = reconcile.Normalize(name), reconcile.Normalize(sku)
	if name == "" && sku == "" {
		return []domain.CatalogItem{}, nil
	}

	var exact []domain.CatalogItem
	var clauses []string
	var args []interface{}
	if sku != "" {
		var err error
		exact, err = c.query(ctx, c.selectAll()+
			" WHERE LOWER(LTRIM(RTRIM(sku))) = @p1 OR LOWER(LTRIM(RTRIM(barcode))) = @p1 ORDER BY name ASC", sku)
		if err != nil {
			return nil, err
		}

		args = append(args, likePattern(sku))
		p := "@p" + strconv.Itoa(len(args))
		clauses = append(clauses,
			"LOWER(sku) LIKE "+p+` ESCAPE '\'`,
			"LOWER(barcode) LIKE "+p+` ESCAPE '\'`,
			"LOWER(name) LIKE "+p+` ESCAPE '\'`,
		)
	}
	if name != "" {
		args = append(args, likePattern(name))
		clauses = append(clauses, "LOWER(name) LIKE @p"+strconv.Itoa(len(args))+` ESCAPE '\'`)
	}

	query := c.selectTop(catalogLimit) + " WHERE " + strings.Join(clauses, " OR ") + " ORDER BY name ASC"
	similar, err := c.query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	return reconcile.MergeCandidates(exact, similar, catalogLimit), nil
}

// SearchByText implements reconcile.Catalog
func (c *Catalog) SearchByText(ctx context.Context, text string, limit int) ([]domain.CatalogItem, error) {
	q := reconcile.Normalize(text)
	if q == "" {
		return []domain.CatalogItem{}, nil
	}
	if limit <= 0 || limit > catalogLimit {
		limit = catalogLimit
	}
	query := c.selectTop(limit) + ` WHERE LOWER(name) LIKE @p1 ESCAPE '\' ORDER BY quantity DESC, name ASC`
	return c.query(ctx, query, likePattern(q))
}

// GetByID implements reconcile.Catalog
func (c *Catalog) GetByID(ctx context.Context, id string) (*domain.CatalogItem, error) {
	if strings.TrimSpace(id) == "" {
		return nil, domain.ErrNotFound
	}
	items, err := c.query(ctx, c.selectTop(1)+" WHERE CAST(id AS NVARCHAR(64)) = @p1", id)
	if err != nil {
		return nil, err
	}
	if len(items) == 0 {
		return nil, domain.ErrNotFound
	}
	return &items[0], nil
}

func (c *Catalog) query(ctx context.Context, query string, args ...interface{}) ([]domain.CatalogItem, error) {
	rows, err := c.exec.ExecuteQuery(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	items := make([]domain.CatalogItem, 0, len(rows))
	for _, row := range rows {
		item, err := toCatalogItem(row)
		if err != nil {
			return nil, err
		}
		items = append(items, item)
	}
	return items, nil
}

func toCatalogItem(row map[string]interface{}) (domain.CatalogItem, error) {
	qty, err := asFloat(row["quantity"])
	if err != nil {
		return domain.CatalogItem{}, fmt.Errorf("catalog item %v: quantity: %w", row["id"], err)
	}
	price, err := asDecimal(row["price"])
	if err != nil {
		return domain.CatalogItem{}, fmt.Errorf("catalog item %v: price: %w", row["id"], err)
	}
	unit := asString(row["unit"])
	if unit == "" {
		unit = "pcs"
	}
	return domain.CatalogItem{
		ID:       asString(row["id"]),
		Name:     asString(row["name"]),
		SKU:      asString(row["sku"]),
		Barcode:  asString(row["barcode"]),
		Quantity: qty,
		Unit:     unit,
		Price:    price,
		Supplier: asString(row["supplier"]),
	}, nil
}

// The mssql driver returns DECIMAL and MONEY columns as []byte

func asString(v interface{}) string {
	switch t := v.(type) {
	case nil:
		return ""
	case string:
		return strings.TrimSpace(t)
	case []byte:
		return strings.TrimSpace(string(t))
	default:
		return strings.TrimSpace(fmt.Sprint(t))
	}
}

func asFloat(v interface{}) (float64, error) {
	switch t := v.(type) {
	case nil:
		return 0, nil
	case float64:
		return t, nil
	case float32:
		return float64(t), nil
	case int64:
		return float64(t), nil
	case int32:
		return float64(t), nil
	case int:
		return float64(t), nil
	default:
		s := asString(t)
		if s == "" {
			return 0, nil
		}
		return strconv.ParseFloat(s, 64)
	}
}

func asDecimal(v interface{}) (decimal.Decimal, error) {
	switch t := v.(type) {
	case nil:
		return decimal.Zero, nil
	case float64:
		return decimal.NewFromFloat(t), nil
	case int64:
		return decimal.NewFromInt(t), nil
	default:
		s := asString(t)
		if s == "" {
			return decimal.Zero, nil
		}
		return decimal.NewFromString(s)
	}
}

func likePattern(s string) string {
	r := strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`, `[`, `\[`)
	return "%" + r.Replace(strings.ToLower(s)) + "%"
}
