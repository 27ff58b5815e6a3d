package llm

import (
	"context"
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/google/generative-ai-go/genai"
	"google.golang.org/api/iterator"
	"google.golang.org/api/option"

	"github.com/nileshsolidarity/Processes/internal/core"
)

type GeminiLLM struct {
	client    *genai.Client
	modelName string
}

func NewGeminiLLM(ctx context.Context, apiKey, modelName string) (*GeminiLLM, error) {
	if apiKey == "" {
		apiKey = os.Getenv("GEMINI_API_KEY")
	}
	cl, err := genai.NewClient(ctx, option.WithAPIKey(apiKey))
	if err != nil {
		return nil, err
	}
	if modelName == "" {
		modelName = "gemini-2.0-flash"
	}
	return &GeminiLLM{client: cl, modelName: modelName}, nil
}

func (g *GeminiLLM) Close() error {
	if g.client != nil {
		return g.client.Close()
	}
	return nil
}

// StreamGenerate opens a chat with the given history and streams the model's
// answer to the returned channel. The history must already satisfy Gemini's
// alternation rule: roles alternate and the first entry is user.
func (g *GeminiLLM) StreamGenerate(ctx context.Context, system string, history []core.Turn, message string) (<-chan string, <-chan error) {
	out := make(chan string, 8)
	errc := make(chan error, 1)

	go func() {
		defer close(out)
		defer close(errc)

		m := g.client.GenerativeModel(g.modelName)
		if system != "" {
			m.SystemInstruction = &genai.Content{
				Parts: []genai.Part{genai.Text(system)},
			}
		}

		cs := m.StartChat()
		cs.History = make([]*genai.Content, 0, len(history))
		for _, t := range history {
			cs.History = append(cs.History, &genai.Content{
				Role:  t.Role,
				Parts: []genai.Part{genai.Text(t.Text)},
			})
		}

		it := cs.SendMessageStream(ctx, genai.Text(message))
		for {
			resp, err := it.Next()
			if errors.Is(err, iterator.Done) {
				errc <- nil
				return
			}
			if err != nil {
				errc <- fmt.Errorf("gemini stream: %w", err)
				return
			}

			text := candidateText(resp)
			if text == "" {
				continue
			}
			select {
			case out <- text:
			case <-ctx.Done():
				errc <- ctx.Err()
				return
			}
		}
	}()

	return out, errc
}

func candidateText(resp *genai.GenerateContentResponse) string {
	if len(resp.Candidates) == 0 || resp.Candidates[0].Content == nil {
		return ""
	}
	var b strings.Builder
	for _, p := range resp.Candidates[0].Content.Parts {
		if t, ok := p.(genai.Text); ok {
			b.WriteString(string(t))
		}
	}
	return b.String()
}

var _ core.LLMProvider = (*GeminiLLM)(nil)
