// Package embedder provides the embedding collaborator contract and its
// implementations. The core invokes it lazily: an entity is embedded the
// first time a similarity query needs its vector.
//
// Two providers are included: OpenAI for production use and a deterministic
// local hasher for offline operation and tests. Remote providers can be
// wrapped with a circuit breaker.
package embedder

import (
	"context"
	"fmt"
	"strings"
)

// Client turns an entity name plus context snippets into a vector. The
// snippets give the model disambiguation context ("Tesla" the company vs the
// physicist); implementations may ignore them.
type Client interface {
	Embed(ctx context.Context, name string, contextSnippets []string) ([]float32, error)
}

// Config holds provider settings.
type Config struct {
	Provider string
	Model    string
	APIKey   string
	BaseURL  string
}

// New builds a client from config. Unknown providers fall back to the local
// deterministic embedder so the engine stays usable without credentials.
func New(cfg Config) (Client, error) {
	switch strings.ToLower(cfg.Provider) {
	case "openai":
		if cfg.APIKey == "" {
			return nil, fmt.Errorf("embedder: openai provider requires an api key")
		}
		return NewOpenAIEmbedder(cfg.APIKey, cfg), nil
	case "", "local":
		return NewLocalEmbedder(DefaultLocalDimensions), nil
	default:
		return nil, fmt.Errorf("embedder: unknown provider %q", cfg.Provider)
	}
}

// embeddingText joins the name with its context snippets into the text
// actually sent to the provider.
func embeddingText(name string, snippets []string) string {
	if len(snippets) == 0 {
		return name
	}
	return name + "\n" + strings.Join(snippets, "\n")
}
