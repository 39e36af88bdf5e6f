package reconcile_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/useneurox-company/ERP--sub000/internal/domain"
	"github.com/useneurox-company/ERP--sub000/internal/reconcile"
)

func TestNormalize(t *testing.T) {
	assert.Equal(t, "hinge ph-100", reconcile.Normalize("  Hinge \t  PH-100 "))
	assert.Equal(t, "", reconcile.Normalize("   "))
	assert.Equal(t, "петля накладная", reconcile.Normalize("Петля  НАКЛАДНАЯ"))
}

func TestTokenOverlap(t *testing.T) {
	assert.Equal(t, 1.0, reconcile.TokenOverlap("Hinge PH-100", "hinge ph 100"))
	assert.InDelta(t, 0.75, reconcile.TokenOverlap("Hinge PH-100", "Hinge PH-100 chrome"), 1e-9)
	assert.Equal(t, 0.0, reconcile.TokenOverlap("", "anything"))
	assert.Equal(t, 0.0, reconcile.TokenOverlap("drawer slide", "door handle"))
}

func TestClassify(t *testing.T) {
	row := reconcile.Row{Index: 2, Name: "Hinge PH-100", SKU: "PH-100-CR", Quantity: 20, Unit: "pcs"}

	t.Run("exact sku with enough stock is in stock", func(t *testing.T) {
		m := reconcile.Classify(row, []domain.CatalogItem{
			{ID: "1", Name: "Hinge chrome", SKU: "ph-100-cr", Quantity: 25},
		})
		assert.Equal(t, domain.MatchConfidenceHigh, m.Confidence)
		assert.Equal(t, domain.ComparisonStatusInStock, m.Status)
		require.NotNil(t, m.Best)
		assert.Equal(t, "1", m.Best.ID)
		assert.NotEmpty(t, m.Reason)
	})

	t.Run("exact sku with too little stock is partial", func(t *testing.T) {
		m := reconcile.Classify(row, []domain.CatalogItem{
			{ID: "1", Name: "Hinge chrome", SKU: "PH-100-CR", Quantity: 15},
			{ID: "2", Name: "Hinge PH-100 soft close", SKU: "PH-100-SC", Quantity: 100},
		})
		assert.Equal(t, domain.MatchConfidenceHigh, m.Confidence)
		assert.Equal(t, domain.ComparisonStatusPartial, m.Status)
		assert.Equal(t, 15.0, m.Best.Quantity)
	})

	t.Run("barcode counts as exact", func(t *testing.T) {
		m := reconcile.Classify(row, []domain.CatalogItem{
			{ID: "1", Name: "Hinge", SKU: "X-1", Barcode: "PH-100-CR", Quantity: 20},
		})
		assert.Equal(t, domain.MatchConfidenceHigh, m.Confidence)
		assert.Equal(t, domain.ComparisonStatusInStock, m.Status)
	})

	t.Run("no candidates is missing", func(t *testing.T) {
		m := reconcile.Classify(row, nil)
		assert.Equal(t, domain.MatchConfidenceNone, m.Confidence)
		assert.Equal(t, domain.ComparisonStatusMissing, m.Status)
		assert.Nil(t, m.Best)
		assert.NotEmpty(t, m.Reason)
	})

	t.Run("single strong name candidate is medium", func(t *testing.T) {
		m := reconcile.Classify(reconcile.Row{Name: "Drawer slide 450", Quantity: 4}, []domain.CatalogItem{
			{ID: "1", Name: "drawer slide 450", SKU: "DS-450", Quantity: 10},
			{ID: "2", Name: "Drawer slide 450 push-to-open soft", SKU: "DS-450-P", Quantity: 10},
		})
		assert.Equal(t, domain.MatchConfidenceMedium, m.Confidence)
		assert.Equal(t, domain.ComparisonStatusPending, m.Status)
		assert.Equal(t, "1", m.Best.ID)
	})

	t.Run("only weak candidates is low", func(t *testing.T) {
		m := reconcile.Classify(reconcile.Row{Name: "Handle", SKU: "H-1", Quantity: 4}, []domain.CatalogItem{
			{ID: "1", Name: "Handle bar 128mm brushed steel", SKU: "HB-128", Quantity: 3},
			{ID: "2", Name: "Handle knob round black", SKU: "HK-10", Quantity: 30},
		})
		assert.Equal(t, domain.MatchConfidenceLow, m.Confidence)
		assert.Equal(t, domain.ComparisonStatusPending, m.Status)
		require.NotNil(t, m.Best)
		assert.Equal(t, "2", m.Best.ID, "highest overlap is suggested")
	})

	t.Run("several strong candidates is low", func(t *testing.T) {
		m := reconcile.Classify(reconcile.Row{Name: "Shelf pin", Quantity: 4}, []domain.CatalogItem{
			{ID: "1", Name: "Shelf pin", SKU: "SP-1", Quantity: 3},
			{ID: "2", Name: "shelf  pin", SKU: "SP-2", Quantity: 3},
		})
		assert.Equal(t, domain.MatchConfidenceLow, m.Confidence)
	})

	t.Run("several exact sku matches is medium with most stock suggested", func(t *testing.T) {
		m := reconcile.Classify(row, []domain.CatalogItem{
			{ID: "a", Name: "Hinge (old shelf)", SKU: "PH-100-CR", Quantity: 5},
			{ID: "b", Name: "Hinge", SKU: "PH-100-CR", Quantity: 40},
		})
		assert.Equal(t, domain.MatchConfidenceMedium, m.Confidence)
		assert.Equal(t, domain.ComparisonStatusPending, m.Status)
		assert.Equal(t, "b", m.Best.ID)
	})

	t.Run("candidate order does not matter", func(t *testing.T) {
		items := []domain.CatalogItem{
			{ID: "1", Name: "Handle bar 128mm", Quantity: 3},
			{ID: "2", Name: "Handle knob", Quantity: 30},
			{ID: "3", Name: "Handle profile", Quantity: 30},
		}
		reversed := []domain.CatalogItem{items[2], items[1], items[0]}
		r := reconcile.Row{Name: "Handle", Quantity: 1}
		assert.Equal(t, reconcile.Classify(r, items), reconcile.Classify(r, reversed))
	})
}
