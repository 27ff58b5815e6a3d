package core

import "context"

// Turn is one prior conversation entry handed to the generation model.
// Role is the model's vocabulary: "user" or "model".
type Turn struct {
	Role string
	Text string
}

// EmbeddingProvider turns text into fixed-dimension vectors. EmbedTexts returns
// vectors in input order.
type EmbeddingProvider interface {
	EmbedText(ctx context.Context, text string) ([]float32, error)
	EmbedTexts(ctx context.Context, texts []string) ([][]float32, error)
}

// LLMProvider streams a generated answer. The increments channel is closed when
// the stream ends; exactly one value (nil on success) is then delivered on the
// error channel. Cancelling ctx tears the stream down.
type LLMProvider interface {
	StreamGenerate(ctx context.Context, system string, history []Turn, message string) (<-chan string, <-chan error)
}
