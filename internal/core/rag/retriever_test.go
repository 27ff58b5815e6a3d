package rag

import (
	"context"
	"errors"
	"math"
	"testing"

	"github.com/nileshsolidarity/Processes/internal/models"
)

type stubChunkStore struct {
	chunks []models.EmbeddedChunk
	err    error
}

func (s *stubChunkStore) ListEmbeddedChunks(context.Context) ([]models.EmbeddedChunk, error) {
	return s.chunks, s.err
}

var _ ChunkStore = (*stubChunkStore)(nil)

type stubEmbedder struct {
	vec []float32
	err error
}

func (s *stubEmbedder) EmbedText(context.Context, string) ([]float32, error) {
	return s.vec, s.err
}

func (s *stubEmbedder) EmbedTexts(_ context.Context, texts []string) ([][]float32, error) {
	out := make([][]float32, len(texts))
	for i := range out {
		out[i] = s.vec
	}
	return out, nil
}

func embeddedChunk(id, docID int64, content string, vec []float32) models.EmbeddedChunk {
	return models.EmbeddedChunk{
		ID: id, DocumentID: docID, Content: content, Embedding: vec,
		DocTitle: "Doc", DriveURL: "https://drive.example/doc",
	}
}

func TestSearchEmptyCorpus(t *testing.T) {
	r := NewRetriever(&stubChunkStore{}, &stubEmbedder{vec: []float32{1, 0}}, 5)
	hits, err := r.Search(context.Background(), "anything")
	if err != nil {
		t.Fatalf("Search: %v", err)
	}
	if hits == nil || len(hits) != 0 {
		t.Errorf("expected empty non-nil result, got %v", hits)
	}
}

func TestSearchRanksBySimilarity(t *testing.T) {
	store := &stubChunkStore{chunks: []models.EmbeddedChunk{
		embeddedChunk(1, 1, "tangential content", []float32{0, 1}),
		embeddedChunk(2, 1, "closely aligned content", []float32{1, 0}),
		embeddedChunk(3, 2, "partially related content", []float32{1, 1}),
	}}
	r := NewRetriever(store, &stubEmbedder{vec: []float32{1, 0}}, 5)

	hits, err := r.Search(context.Background(), "query with no literal match")
	if err != nil {
		t.Fatalf("Search: %v", err)
	}
	if hits[0].ID != 2 || hits[1].ID != 3 || hits[2].ID != 1 {
		t.Errorf("unexpected order: %d, %d, %d", hits[0].ID, hits[1].ID, hits[2].ID)
	}

	// Pure vector match scores vectorWeight times cosine 1.
	if math.Abs(hits[0].Score-vectorWeight) > 1e-6 {
		t.Errorf("top score = %f, want %f", hits[0].Score, vectorWeight)
	}
}

func TestSearchKeywordBonusOutranksVector(t *testing.T) {
	store := &stubChunkStore{chunks: []models.EmbeddedChunk{
		embeddedChunk(1, 1, "no literal overlap at all", []float32{1, 0}),
		embeddedChunk(2, 2, "the Refund Policy is described here", []float32{0.5, 0.5}),
	}}
	r := NewRetriever(store, &stubEmbedder{vec: []float32{1, 0}}, 5)

	hits, err := r.Search(context.Background(), "refund policy")
	if err != nil {
		t.Fatalf("Search: %v", err)
	}
	// 0.7*cos(45°)+0.3 ≈ 0.795 beats 0.7*1.
	if hits[0].ID != 2 {
		t.Errorf("substring match should rank first, got chunk %d", hits[0].ID)
	}
}

func TestSearchCapsAtTopK(t *testing.T) {
	var chunks []models.EmbeddedChunk
	for i := int64(1); i <= 10; i++ {
		chunks = append(chunks, embeddedChunk(i, i, "content", []float32{1, 0}))
	}
	r := NewRetriever(&stubChunkStore{chunks: chunks}, &stubEmbedder{vec: []float32{1, 0}}, 3)

	hits, err := r.Search(context.Background(), "q")
	if err != nil {
		t.Fatalf("Search: %v", err)
	}
	if len(hits) != 3 {
		t.Errorf("got %d hits, want 3", len(hits))
	}
}

func TestSearchStoreError(t *testing.T) {
	r := NewRetriever(&stubChunkStore{err: errors.New("db down")}, &stubEmbedder{vec: []float32{1}}, 5)
	if _, err := r.Search(context.Background(), "q"); err == nil {
		t.Fatal("expected error")
	}
}

func TestCosineSimilarity(t *testing.T) {
	if got := cosineSimilarity([]float32{1, 0}, []float32{1, 0}); math.Abs(got-1) > 1e-9 {
		t.Errorf("identical vectors: %f, want 1", got)
	}
	if got := cosineSimilarity([]float32{1, 0}, []float32{0, 1}); math.Abs(got) > 1e-9 {
		t.Errorf("orthogonal vectors: %f, want 0", got)
	}
	if got := cosineSimilarity([]float32{1, 0}, []float32{1}); got != 0 {
		t.Errorf("mismatched lengths: %f, want 0", got)
	}
	if got := cosineSimilarity([]float32{0, 0}, []float32{1, 0}); got != 0 {
		t.Errorf("zero vector: %f, want 0", got)
	}
}
