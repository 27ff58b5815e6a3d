package rag

import (
	"context"
	"fmt"
	"math"
	"sort"
	"strings"

	"github.com/nileshsolidarity/Processes/internal/core"
	"github.com/nileshsolidarity/Processes/internal/models"
)

// Weighting of the hybrid score: cosine similarity scaled by vectorWeight,
// plus a flat bonus when the chunk contains the query verbatim.
const (
	vectorWeight = 0.7
	keywordBonus = 0.3
	DefaultTopK  = 5
)

// ChunkStore loads the embedded corpus for scoring.
type ChunkStore interface {
	ListEmbeddedChunks(ctx context.Context) ([]models.EmbeddedChunk, error)
}

// Retriever ranks document chunks against a query with a hybrid of vector
// similarity and substring matching. Scoring happens in process over the
// full embedded corpus.
type Retriever struct {
	store    ChunkStore
	embedder core.EmbeddingProvider
	topK     int
}

func NewRetriever(store ChunkStore, emb core.EmbeddingProvider, topK int) *Retriever {
	if topK <= 0 {
		topK = DefaultTopK
	}
	return &Retriever{store: store, embedder: emb, topK: topK}
}

// Search returns the top ranked chunks for the query, highest score first.
// An empty corpus yields an empty result, not an error.
func (r *Retriever) Search(ctx context.Context, query string) ([]models.RetrievedChunk, error) {
	chunks, err := r.store.ListEmbeddedChunks(ctx)
	if err != nil {
		return nil, fmt.Errorf("load embedded chunks: %w", err)
	}
	if len(chunks) == 0 {
		return []models.RetrievedChunk{}, nil
	}

	queryVec, err := r.embedder.EmbedText(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("embed query: %w", err)
	}

	loweredQuery := strings.ToLower(query)
	scored := make([]models.RetrievedChunk, 0, len(chunks))
	for _, c := range chunks {
		score := vectorWeight * cosineSimilarity(queryVec, c.Embedding)
		if strings.Contains(strings.ToLower(c.Content), loweredQuery) {
			score += keywordBonus
		}
		scored = append(scored, models.RetrievedChunk{
			ID:         c.ID,
			DocumentID: c.DocumentID,
			Content:    c.Content,
			DocTitle:   c.DocTitle,
			DriveURL:   c.DriveURL,
			Score:      score,
		})
	}

	sort.Slice(scored, func(i, j int) bool { return scored[i].Score > scored[j].Score })
	if len(scored) > r.topK {
		scored = scored[:r.topK]
	}
	return scored, nil
}

// cosineSimilarity returns 0 for mismatched or zero-magnitude vectors so a
// bad row degrades its own rank instead of failing the search.
func cosineSimilarity(a, b []float32) float64 {
	if len(a) != len(b) || len(a) == 0 {
		return 0
	}
	var dot, normA, normB float64
	for i := range a {
		dot += float64(a[i]) * float64(b[i])
		normA += float64(a[i]) * float64(a[i])
		normB += float64(b[i]) * float64(b[i])
	}
	if normA == 0 || normB == 0 {
		return 0
	}
	return dot / (math.Sqrt(normA) * math.Sqrt(normB))
}
