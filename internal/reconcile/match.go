// Package reconcile matches an uploaded list of required items against the
// warehouse catalog and turns the result into a priced order.
package reconcile

import (
	"fmt"
	"sort"
	"strings"
	"unicode"

	"github.com/useneurox-company/ERP--sub000/internal/domain"
)

// StrongOverlap is the token overlap at which a text candidate counts as a
// strong match
const StrongOverlap = 0.6

// Row is one line of an uploaded spreadsheet. Index is the 1-based row
// number in the source file.
type Row struct {
	Index    int
	Name     string
	SKU      string
	Quantity float64
	Unit     string
}

// Match is the classification of one row against its catalog candidates
type Match struct {
	Confidence domain.MatchConfidence
	Status     domain.ComparisonStatus
	Best       *domain.CatalogItem
	Reason     string
}

// Normalize trims, collapses inner whitespace and case-folds
func Normalize(s string) string {
	return strings.ToLower(strings.Join(strings.Fields(s), " "))
}

// MergeCandidates keeps every exact item and fills up to limit with the
// similar ones not already present. Catalogs use it so a capped substring
// search cannot push an exact SKU match out of the candidate list.
func MergeCandidates(exact, similar []domain.CatalogItem, limit int) []domain.CatalogItem {
	out := make([]domain.CatalogItem, 0, len(exact)+len(similar))
	seen := make(map[string]struct{}, len(exact)+len(similar))
	for _, item := range exact {
		if _, dup := seen[item.ID]; dup {
			continue
		}
		seen[item.ID] = struct{}{}
		out = append(out, item)
	}
	for _, item := range similar {
		if len(out) >= limit {
			break
		}
		if _, dup := seen[item.ID]; dup {
			continue
		}
		seen[item.ID] = struct{}{}
		out = append(out, item)
	}
	return out
}

// Tokens splits a string into lower-case letter/digit runs
func Tokens(s string) []string {
	return strings.FieldsFunc(strings.ToLower(s), func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsDigit(r)
	})
}

// TokenOverlap is the Jaccard similarity of the token sets of a and b
func TokenOverlap(a, b string) float64 {
	ta, tb := tokenSet(a), tokenSet(b)
	if len(ta) == 0 || len(tb) == 0 {
		return 0
	}
	shared := 0
	for t := range ta {
		if _, ok := tb[t]; ok {
			shared++
		}
	}
	union := len(ta) + len(tb) - shared
	return float64(shared) / float64(union)
}

func tokenSet(s string) map[string]struct{} {
	set := make(map[string]struct{})
	for _, t := range Tokens(s) {
		set[t] = struct{}{}
	}
	return set
}

// StockStatus applies the quantity rule to a matched item
func StockStatus(available, required float64) domain.ComparisonStatus {
	if available >= required {
		return domain.ComparisonStatusInStock
	}
	return domain.ComparisonStatusPartial
}

// Classify decides confidence, status and best candidate for a row. It is a
// pure function of its inputs; candidate order does not matter.
func Classify(row Row, candidates []domain.CatalogItem) Match {
	if len(candidates) == 0 {
		return Match{
			Confidence: domain.MatchConfidenceNone,
			Status:     domain.ComparisonStatusMissing,
			Reason:     "No warehouse item matches the name or SKU",
		}
	}

	sku := Normalize(row.SKU)
	var exact []domain.CatalogItem
	if sku != "" {
		for _, c := range candidates {
			if Normalize(c.SKU) == sku || Normalize(c.Barcode) == sku {
				exact = append(exact, c)
			}
		}
	}

	switch {
	case len(exact) == 1:
		best := exact[0]
		status := StockStatus(best.Quantity, row.Quantity)
		reason := fmt.Sprintf("Exact SKU match %s; warehouse has %s of %s required",
			best.SKU, formatQty(best.Quantity), formatQty(row.Quantity))
		return Match{
			Confidence: domain.MatchConfidenceHigh,
			Status:     status,
			Best:       &best,
			Reason:     reason,
		}
	case len(exact) > 1:
		rankByStock(exact)
		best := exact[0]
		return Match{
			Confidence: domain.MatchConfidenceMedium,
			Status:     domain.ComparisonStatusPending,
			Best:       &best,
			Reason: fmt.Sprintf("%d warehouse items share SKU %s; suggested the one with most stock, confirm or choose another",
				len(exact), row.SKU),
		}
	}

	name := Normalize(row.Name)
	scored := make([]scoredCandidate, len(candidates))
	var strong []scoredCandidate
	for i, c := range candidates {
		sc := scoredCandidate{item: c, score: TokenOverlap(row.Name, c.Name)}
		if Normalize(c.Name) == name {
			sc.score = 1
		}
		scored[i] = sc
		if sc.score >= StrongOverlap {
			strong = append(strong, sc)
		}
	}

	if len(strong) == 1 {
		best := strong[0].item
		return Match{
			Confidence: domain.MatchConfidenceMedium,
			Status:     domain.ComparisonStatusPending,
			Best:       &best,
			Reason:     fmt.Sprintf("Name closely matches %q; confirm the match", best.Name),
		}
	}

	rankByScore(scored)
	best := scored[0].item
	reason := fmt.Sprintf("%d possible matches by name or SKU fragment; best guess %q needs review", len(candidates), best.Name)
	if len(strong) > 1 {
		reason = fmt.Sprintf("%d items closely match the name; choose the right one", len(strong))
	}
	return Match{
		Confidence: domain.MatchConfidenceLow,
		Status:     domain.ComparisonStatusPending,
		Best:       &best,
		Reason:     reason,
	}
}

type scoredCandidate struct {
	item  domain.CatalogItem
	score float64
}

func rankByScore(s []scoredCandidate) {
	sort.SliceStable(s, func(i, j int) bool {
		if s[i].score != s[j].score {
			return s[i].score > s[j].score
		}
		if s[i].item.Quantity != s[j].item.Quantity {
			return s[i].item.Quantity > s[j].item.Quantity
		}
		return s[i].item.ID < s[j].item.ID
	})
}

func rankByStock(items []domain.CatalogItem) {
	sort.SliceStable(items, func(i, j int) bool {
		if items[i].Quantity != items[j].Quantity {
			return items[i].Quantity > items[j].Quantity
		}
		return items[i].ID < items[j].ID
	})
}

func formatQty(q float64) string {
	return strings.TrimRight(strings.TrimRight(fmt.Sprintf("%.3f", q), "0"), ".")
}
