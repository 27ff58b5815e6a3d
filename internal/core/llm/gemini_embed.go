package llm

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/google/generative-ai-go/genai"
	"golang.org/x/sync/errgroup"
	"google.golang.org/api/option"

	"github.com/nileshsolidarity/Processes/internal/core"
)

type GeminiEmbedder struct {
	client     *genai.Client
	modelName  string
	batchSize  int
	batchDelay time.Duration
}

func NewGeminiEmbedder(ctx context.Context, apiKey, modelName string, batchSize int, batchDelay time.Duration) (*GeminiEmbedder, error) {
	if apiKey == "" {
		apiKey = os.Getenv("GEMINI_API_KEY")
	}
	cl, err := genai.NewClient(ctx, option.WithAPIKey(apiKey))
	if err != nil {
		return nil, err
	}
	if modelName == "" {
		modelName = "text-embedding-004"
	}
	return &GeminiEmbedder{client: cl, modelName: modelName, batchSize: batchSize, batchDelay: batchDelay}, nil
}

func (g *GeminiEmbedder) Close() error {
	if g.client != nil {
		return g.client.Close()
	}
	return nil
}

func (g *GeminiEmbedder) EmbedText(ctx context.Context, text string) ([]float32, error) {
	em := g.client.EmbeddingModel(g.modelName)
	resp, err := em.EmbedContent(ctx, genai.Text(text))
	if err != nil {
		return nil, fmt.Errorf("gemini embed: %w", err)
	}
	if resp.Embedding == nil {
		return nil, fmt.Errorf("gemini embed: empty response")
	}
	return resp.Embedding.Values, nil
}

// EmbedTexts embeds all texts in rate-limited sub-batches, returning vectors
// in input order.
func (g *GeminiEmbedder) EmbedTexts(ctx context.Context, texts []string) ([][]float32, error) {
	return embedInBatches(ctx, texts, g.batchSize, g.batchDelay, g.EmbedText)
}

// embedInBatches fans each sub-batch out concurrently and pauses between
// sub-batches to space out provider calls. A fixed delay is enough here; the
// embedding quota is generous relative to sync volume.
func embedInBatches(
	ctx context.Context,
	texts []string,
	batchSize int,
	delay time.Duration,
	embedOne func(context.Context, string) ([]float32, error),
) ([][]float32, error) {
	if len(texts) == 0 {
		return nil, nil
	}
	if batchSize <= 0 {
		batchSize = 5
	}

	out := make([][]float32, len(texts))
	for start := 0; start < len(texts); start += batchSize {
		end := min(start+batchSize, len(texts))

		g, gctx := errgroup.WithContext(ctx)
		for i := start; i < end; i++ {
			g.Go(func() error {
				vec, err := embedOne(gctx, texts[i])
				if err != nil {
					return err
				}
				out[i] = vec
				return nil
			})
		}
		if err := g.Wait(); err != nil {
			return nil, err
		}

		if end < len(texts) && delay > 0 {
			select {
			case <-time.After(delay):
			case <-ctx.Done():
				return nil, ctx.Err()
			}
		}
	}
	return out, nil
}

var _ core.EmbeddingProvider = (*GeminiEmbedder)(nil)
