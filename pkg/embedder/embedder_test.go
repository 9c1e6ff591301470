package embedder

import (
	"context"
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLocalEmbedderDeterministic(t *testing.T) {
	e := NewLocalEmbedder(DefaultLocalDimensions)
	ctx := context.Background()

	a, err := e.Embed(ctx, "Tesla", []string{"Elon Musk founded Tesla."})
	require.NoError(t, err)
	b, err := e.Embed(ctx, "Tesla", []string{"Elon Musk founded Tesla."})
	require.NoError(t, err)
	assert.Equal(t, a, b)
	assert.Len(t, a, DefaultLocalDimensions)
}

func TestLocalEmbedderNormalized(t *testing.T) {
	e := NewLocalEmbedder(64)
	vec, err := e.Embed(context.Background(), "knowledge graph engine", nil)
	require.NoError(t, err)

	var norm float64
	for _, v := range vec {
		norm += float64(v) * float64(v)
	}
	assert.InDelta(t, 1.0, math.Sqrt(norm), 1e-5)
}

func TestLocalEmbedderShortInput(t *testing.T) {
	e := NewLocalEmbedder(32)
	vec, err := e.Embed(context.Background(), "ab", nil)
	require.NoError(t, err)

	var nonzero int
	for _, v := range vec {
		if v != 0 {
			nonzero++
		}
	}
	assert.Equal(t, 1, nonzero)
}

func TestLocalEmbedderDistinguishesInputs(t *testing.T) {
	e := NewLocalEmbedder(DefaultLocalDimensions)
	ctx := context.Background()

	a, err := e.Embed(ctx, "Tesla", nil)
	require.NoError(t, err)
	b, err := e.Embed(ctx, "Quantum Marmalade", nil)
	require.NoError(t, err)
	assert.NotEqual(t, a, b)
}

func TestNewLocalEmbedderDefaultsDims(t *testing.T) {
	e := NewLocalEmbedder(0)
	vec, err := e.Embed(context.Background(), "anything at all", nil)
	require.NoError(t, err)
	assert.Len(t, vec, DefaultLocalDimensions)
}

func TestFactory(t *testing.T) {
	tests := []struct {
		name    string
		cfg     Config
		wantErr bool
	}{
		{"default local", Config{}, false},
		{"explicit local", Config{Provider: "local"}, false},
		{"openai with key", Config{Provider: "openai", APIKey: "sk-test"}, false},
		{"openai without key", Config{Provider: "openai"}, true},
		{"unknown provider", Config{Provider: "carrier-pigeon"}, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c, err := New(tt.cfg)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.NotNil(t, c)
		})
	}
}

func TestEmbeddingText(t *testing.T) {
	assert.Equal(t, "Tesla", embeddingText("Tesla", nil))
	assert.Equal(t, "Tesla\na snippet\nanother",
		embeddingText("Tesla", []string{"a snippet", "another"}))
}
