package reconcile_test

import (
	"context"
	"strings"
	"sync"

	"github.com/useneurox-company/ERP--sub000/internal/domain"
	"github.com/useneurox-company/ERP--sub000/internal/reconcile"
)

// memoryCatalog applies the substring heuristic over a fixed item list
type memoryCatalog struct {
	items   []domain.CatalogItem
	findErr error
	mu      sync.Mutex
	lookups int
}

func (m *memoryCatalog) FindCandidates(ctx context.Context, name, sku string) ([]domain.CatalogItem, error) {
	m.mu.Lock()
	m.lookups++
	m.mu.Unlock()

	if m.findErr != nil {
		return nil, m.findErr
	}
	name, sku = reconcile.Normalize(name), reconcile.Normalize(sku)

	var out []domain.CatalogItem
	for _, c := range m.items {
		cs, cb, cn := reconcile.Normalize(c.SKU), reconcile.Normalize(c.Barcode), reconcile.Normalize(c.Name)
		switch {
		case sku != "" && (strings.Contains(cs, sku) || (cb != "" && strings.Contains(cb, sku))):
		case name != "" && strings.Contains(cn, name):
		case sku != "" && strings.Contains(cn, sku):
		default:
			continue
		}
		out = append(out, c)
	}
	return out, nil
}

func (m *memoryCatalog) SearchByText(ctx context.Context, query string, limit int) ([]domain.CatalogItem, error) {
	q := reconcile.Normalize(query)
	var out []domain.CatalogItem
	for _, c := range m.items {
		if strings.Contains(reconcile.Normalize(c.Name), q) {
			out = append(out, c)
		}
		if len(out) >= limit {
			break
		}
	}
	return out, nil
}

func (m *memoryCatalog) GetByID(ctx context.Context, id string) (*domain.CatalogItem, error) {
	for _, c := range m.items {
		if c.ID == id {
			item := c
			return &item, nil
		}
	}
	return nil, domain.ErrNotFound
}

type stubScorer struct {
	suggestions []reconcile.Suggestion
	err         error
	block       bool
}

func (s *stubScorer) SuggestAlternatives(ctx context.Context, row reconcile.Row, candidates []domain.CatalogItem) ([]reconcile.Suggestion, error) {
	if s.block {
		<-ctx.Done()
		return nil, ctx.Err()
	}
	return s.suggestions, s.err
}
