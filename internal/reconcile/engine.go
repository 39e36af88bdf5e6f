package reconcile

import (
	"context"
	"errors"
	"fmt"
	"math"
	"sort"
	"strings"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/useneurox-company/ERP--sub000/internal/domain"
)

// Catalog is the warehouse catalog the engine matches against
type Catalog interface {
	// FindCandidates returns items whose SKU or barcode equals or contains
	// sku, or whose name contains name or sku
	FindCandidates(ctx context.Context, name, sku string) ([]domain.CatalogItem, error)
	SearchByText(ctx context.Context, query string, limit int) ([]domain.CatalogItem, error)
	GetByID(ctx context.Context, id string) (*domain.CatalogItem, error)
}

// Suggestion is a scorer's opinion on one candidate
type Suggestion struct {
	CandidateID string
	Confidence  float64
}

// Scorer ranks catalog items as substitutes for a row nothing matched.
// Results are advisory only.
type Scorer interface {
	SuggestAlternatives(ctx context.Context, row Row, candidates []domain.CatalogItem) ([]Suggestion, error)
}

// Options tunes the engine
type Options struct {
	Workers        int
	ScorerTimeout  time.Duration
	MaxSuggestions int
	PoolSize       int
}

// DefaultOptions returns the engine defaults
func DefaultOptions() Options {
	return Options{
		Workers:        8,
		ScorerTimeout:  5 * time.Second,
		MaxSuggestions: 5,
		PoolSize:       50,
	}
}

// Result of reconciling one upload. Items keep upload order.
type Result struct {
	Items     []domain.ComparisonItem
	RowErrors []domain.RowError
	Summary   Summary
}

// Engine runs the matching pipeline for an upload
type Engine struct {
	catalog Catalog
	scorer  Scorer
	opts    Options
	logger  *zap.Logger
}

// NewEngine creates an engine. scorer may be nil.
func NewEngine(catalog Catalog, scorer Scorer, opts Options, logger *zap.Logger) *Engine {
	def := DefaultOptions()
	if opts.Workers <= 0 {
		opts.Workers = def.Workers
	}
	if opts.ScorerTimeout <= 0 {
		opts.ScorerTimeout = def.ScorerTimeout
	}
	if opts.MaxSuggestions <= 0 {
		opts.MaxSuggestions = def.MaxSuggestions
	}
	if opts.PoolSize <= 0 {
		opts.PoolSize = def.PoolSize
	}
	return &Engine{catalog: catalog, scorer: scorer, opts: opts, logger: logger}
}

// ValidateRow returns the reason a row cannot be imported, or "" when it is
// acceptable
func ValidateRow(row Row) string {
	switch {
	case strings.TrimSpace(row.Name) == "":
		return "name is required"
	case math.IsNaN(row.Quantity) || math.IsInf(row.Quantity, 0):
		return "quantity is not a number"
	case row.Quantity <= 0:
		return "quantity must be greater than 0"
	}
	return ""
}

// Reconcile validates and matches every row. Malformed rows are reported in
// RowErrors and skipped. Catalog and scorer failures degrade the affected row
// instead of failing the call; only context cancellation aborts.
func (e *Engine) Reconcile(ctx context.Context, rows []Row) (*Result, error) {
	result := &Result{RowErrors: []domain.RowError{}}

	valid := make([]Row, 0, len(rows))
	for _, row := range rows {
		if reason := ValidateRow(row); reason != "" {
			result.RowErrors = append(result.RowErrors, domain.RowError{Row: row.Index, Reason: reason})
			continue
		}
		valid = append(valid, row)
	}

	items := make([]domain.ComparisonItem, len(valid))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(e.opts.Workers)
	for i, row := range valid {
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			item, err := e.matchRow(gctx, row)
			if err != nil {
				return err
			}
			items[i] = item
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, fmt.Errorf("reconciliation aborted: %w", err)
	}

	result.Items = items
	result.Summary = Summarize(items)

	e.logger.Info("Reconciled upload",
		zap.Int("rows", len(rows)),
		zap.Int("rejected", len(result.RowErrors)),
		zap.Int("in_stock", result.Summary.InStock),
		zap.Int("partial", result.Summary.Partial),
		zap.Int("pending", result.Summary.Pending),
		zap.Int("missing", result.Summary.Missing))
	return result, nil
}

// matchRow returns an error only when ctx is done
func (e *Engine) matchRow(ctx context.Context, row Row) (domain.ComparisonItem, error) {
	candidates, err := e.catalog.FindCandidates(ctx, row.Name, row.SKU)
	if err != nil {
		if ctx.Err() != nil {
			return domain.ComparisonItem{}, ctx.Err()
		}
		unavailable := &domain.UnavailableError{Service: "warehouse catalog", Err: err}
		e.logger.Warn("Catalog lookup failed, row degraded to missing",
			zap.Int("row", row.Index),
			zap.Error(err))
		item := NewItem(row, Match{
			Confidence: domain.MatchConfidenceNone,
			Status:     domain.ComparisonStatusMissing,
			Reason:     unavailable.Error(),
		})
		return item, nil
	}

	item := NewItem(row, Classify(row, candidates))
	if item.MatchConfidence == domain.MatchConfidenceNone && e.scorer != nil {
		item.AISuggestions = e.suggest(ctx, row)
		if ctx.Err() != nil {
			return domain.ComparisonItem{}, ctx.Err()
		}
	}
	return item, nil
}

// suggest asks the scorer for substitutes from a text-search pool. Any
// failure yields an empty list.
func (e *Engine) suggest(ctx context.Context, row Row) []domain.AISuggestion {
	out := []domain.AISuggestion{}

	pool := e.suggestionPool(ctx, row)
	if len(pool) == 0 {
		return out
	}

	sctx, cancel := context.WithTimeout(ctx, e.opts.ScorerTimeout)
	defer cancel()

	suggestions, err := e.scorer.SuggestAlternatives(sctx, row, pool)
	if err != nil {
		level := e.logger.Warn
		if errors.Is(err, context.DeadlineExceeded) {
			level = e.logger.Info
		}
		level("Similarity scorer unavailable, no suggestions for row",
			zap.Int("row", row.Index),
			zap.Error(err))
		return out
	}

	byID := make(map[string]domain.CatalogItem, len(pool))
	for _, c := range pool {
		byID[c.ID] = c
	}
	seen := make(map[string]bool)
	for _, s := range suggestions {
		c, ok := byID[s.CandidateID]
		if !ok || seen[s.CandidateID] || s.Confidence <= 0 {
			continue
		}
		seen[s.CandidateID] = true
		out = append(out, domain.AISuggestion{
			CandidateID: c.ID,
			Name:        c.Name,
			SKU:         c.SKU,
			Confidence:  math.Min(s.Confidence, 1),
		})
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].Confidence > out[j].Confidence })
	if len(out) > e.opts.MaxSuggestions {
		out = out[:e.opts.MaxSuggestions]
	}
	return out
}

// suggestionPool gathers catalog items sharing a word of at least three
// characters with the row
func (e *Engine) suggestionPool(ctx context.Context, row Row) []domain.CatalogItem {
	queried := make(map[string]bool)
	seen := make(map[string]bool)
	var pool []domain.CatalogItem

	for _, token := range Tokens(row.Name + " " + row.SKU) {
		if len([]rune(token)) < 3 || queried[token] {
			continue
		}
		queried[token] = true

		found, err := e.catalog.SearchByText(ctx, token, e.opts.PoolSize)
		if err != nil {
			e.logger.Debug("Catalog text search failed",
				zap.String("query", token),
				zap.Error(err))
			continue
		}
		for _, c := range found {
			if seen[c.ID] {
				continue
			}
			seen[c.ID] = true
			pool = append(pool, c)
			if len(pool) >= e.opts.PoolSize {
				return pool
			}
		}
	}
	return pool
}
