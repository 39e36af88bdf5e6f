// Package similarity ranks warehouse items as substitutes for rows the
// matcher could not place.
package similarity

import (
	"context"
	"fmt"
	"math"
	"sort"
	"strings"

	"github.com/openai/openai-go"
	"github.com/openai/openai-go/option"

	"github.com/useneurox-company/ERP--sub000/internal/domain"
	"github.com/useneurox-company/ERP--sub000/internal/reconcile"
)

// Compile-time interface checks
var (
	_ reconcile.Scorer = (*OpenAIScorer)(nil)
	_ reconcile.Scorer = (*TokenScorer)(nil)
)

// EmbeddingsService is the slice of the OpenAI client the scorer uses
type EmbeddingsService interface {
	New(ctx context.Context, params openai.EmbeddingNewParams, opts ...option.RequestOption) (*openai.CreateEmbeddingResponse, error)
}

// OpenAIScorer embeds the row and every candidate in one batch and ranks
// candidates by cosine similarity
type OpenAIScorer struct {
	embeddings EmbeddingsService
	model      openai.EmbeddingModel
	minScore   float64
}

// NewOpenAIScorer creates a scorer backed by the OpenAI embeddings API
func NewOpenAIScorer(apiKey, model string, minScore float64) *OpenAIScorer {
	client := openai.NewClient(option.WithAPIKey(apiKey))
	return NewOpenAIScorerWithService(client.Embeddings, model, minScore)
}

// NewOpenAIScorerWithService creates a scorer over any embeddings service
func NewOpenAIScorerWithService(svc EmbeddingsService, model string, minScore float64) *OpenAIScorer {
	return &OpenAIScorer{
		embeddings: svc,
		model:      openai.EmbeddingModel(model),
		minScore:   minScore,
	}
}

// SuggestAlternatives implements reconcile.Scorer
func (s *OpenAIScorer) SuggestAlternatives(ctx context.Context, row reconcile.Row, candidates []domain.CatalogItem) ([]reconcile.Suggestion, error) {
	if len(candidates) == 0 {
		return []reconcile.Suggestion{}, nil
	}

	texts := make([]string, 0, len(candidates)+1)
	texts = append(texts, describeRow(row))
	for _, c := range candidates {
		texts = append(texts, describeItem(c))
	}

	resp, err := s.embeddings.New(ctx, openai.EmbeddingNewParams{
		Input: openai.F[openai.EmbeddingNewParamsInputUnion](
			openai.EmbeddingNewParamsInputArrayOfStrings(texts),
		),
		Model: openai.F(s.model),
	})
	if err != nil {
		return nil, fmt.Errorf("embedding request failed: %w", err)
	}
	if len(resp.Data) != len(texts) {
		return nil, fmt.Errorf("embedding request failed: expected %d embeddings, got %d", len(texts), len(resp.Data))
	}

	// Sort by index to guarantee order matches input
	sort.Slice(resp.Data, func(i, j int) bool {
		return resp.Data[i].Index < resp.Data[j].Index
	})

	query := resp.Data[0].Embedding
	out := make([]reconcile.Suggestion, 0, len(candidates))
	for i, c := range candidates {
		score := Cosine(query, resp.Data[i+1].Embedding)
		if score < s.minScore {
			continue
		}
		out = append(out, reconcile.Suggestion{CandidateID: c.ID, Confidence: score})
	}
	sortSuggestions(out)
	return out, nil
}

// ModelName returns the embedding model name
func (s *OpenAIScorer) ModelName() string {
	return string(s.model)
}

// TokenScorer ranks candidates by word overlap. It needs no network and
// serves when no embeddings provider is configured.
type TokenScorer struct {
	minScore float64
}

// NewTokenScorer creates an offline scorer
func NewTokenScorer(minScore float64) *TokenScorer {
	return &TokenScorer{minScore: minScore}
}

// SuggestAlternatives implements reconcile.Scorer
func (s *TokenScorer) SuggestAlternatives(ctx context.Context, row reconcile.Row, candidates []domain.CatalogItem) ([]reconcile.Suggestion, error) {
	out := make([]reconcile.Suggestion, 0, len(candidates))
	for _, c := range candidates {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		score := reconcile.TokenOverlap(row.Name, c.Name)
		if score <= 0 || score < s.minScore {
			continue
		}
		out = append(out, reconcile.Suggestion{CandidateID: c.ID, Confidence: score})
	}
	sortSuggestions(out)
	return out, nil
}

// Cosine returns the cosine similarity of two vectors, 0 when either is
// empty, zero or the lengths differ
func Cosine(a, b []float64) float64 {
	if len(a) == 0 || len(a) != len(b) {
		return 0
	}
	var dot, na, nb float64
	for i := range a {
		dot += a[i] * b[i]
		na += a[i] * a[i]
		nb += b[i] * b[i]
	}
	if na == 0 || nb == 0 {
		return 0
	}
	return dot / (math.Sqrt(na) * math.Sqrt(nb))
}

func describeRow(row reconcile.Row) string {
	parts := []string{row.Name}
	if row.SKU != "" {
		parts = append(parts, "SKU "+row.SKU)
	}
	if row.Unit != "" {
		parts = append(parts, "unit "+row.Unit)
	}
	return strings.Join(parts, "; ")
}

func describeItem(c domain.CatalogItem) string {
	parts := []string{c.Name}
	if c.SKU != "" {
		parts = append(parts, "SKU "+c.SKU)
	}
	if c.Unit != "" {
		parts = append(parts, "unit "+c.Unit)
	}
	return strings.Join(parts, "; ")
}

func sortSuggestions(s []reconcile.Suggestion) {
	sort.SliceStable(s, func(i, j int) bool {
		return s[i].Confidence > s[j].Confidence
	})
}
