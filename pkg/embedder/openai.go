package embedder

import (
	"context"
	"fmt"

	openai "github.com/sashabaranov/go-openai"
)

// OpenAIEmbedder calls the OpenAI embeddings API.
type OpenAIEmbedder struct {
	client *openai.Client
	model  openai.EmbeddingModel
}

// NewOpenAIEmbedder creates an OpenAI-backed embedder. Model defaults to
// text-embedding-3-small.
func NewOpenAIEmbedder(apiKey string, cfg Config) *OpenAIEmbedder {
	clientCfg := openai.DefaultConfig(apiKey)
	if cfg.BaseURL != "" {
		clientCfg.BaseURL = cfg.BaseURL
	}
	model := openai.EmbeddingModel(cfg.Model)
	if cfg.Model == "" {
		model = openai.SmallEmbedding3
	}
	return &OpenAIEmbedder{
		client: openai.NewClientWithConfig(clientCfg),
		model:  model,
	}
}

// Embed implements Client.
func (e *OpenAIEmbedder) Embed(ctx context.Context, name string, contextSnippets []string) ([]float32, error) {
	resp, err := e.client.CreateEmbeddings(ctx, openai.EmbeddingRequest{
		Input: []string{embeddingText(name, contextSnippets)},
		Model: e.model,
	})
	if err != nil {
		return nil, fmt.Errorf("openai embedding for %q: %w", name, err)
	}
	if len(resp.Data) == 0 {
		return nil, fmt.Errorf("openai embedding for %q: empty response", name)
	}
	return resp.Data[0].Embedding, nil
}
