package embedder

import (
	"context"
	"hash/fnv"
	"math"
)

// DefaultLocalDimensions is the vector size of the local embedder.
const DefaultLocalDimensions = 128

// LocalEmbedder produces deterministic vectors by feature-hashing character
// trigrams. It needs no network or model weights: names sharing surface
// structure land near each other, which is enough for offline operation and
// for exercising the similarity index in tests.
type LocalEmbedder struct {
	dims int
}

// NewLocalEmbedder creates a local embedder with the given dimensionality.
func NewLocalEmbedder(dims int) *LocalEmbedder {
	if dims <= 0 {
		dims = DefaultLocalDimensions
	}
	return &LocalEmbedder{dims: dims}
}

// Embed implements Client. The result is L2-normalized and depends only on
// the input text, so repeated calls are stable.
func (e *LocalEmbedder) Embed(_ context.Context, name string, contextSnippets []string) ([]float32, error) {
	text := embeddingText(name, contextSnippets)
	vec := make([]float32, e.dims)

	runes := []rune(text)
	for i := 0; i+3 <= len(runes); i++ {
		h := fnv.New64a()
		h.Write([]byte(string(runes[i : i+3])))
		sum := h.Sum64()
		idx := int(sum % uint64(e.dims))
		// Sign bit from the hash keeps components centered around zero.
		if sum&(1<<63) != 0 {
			vec[idx]--
		} else {
			vec[idx]++
		}
	}
	if len(runes) < 3 && len(runes) > 0 {
		h := fnv.New64a()
		h.Write([]byte(text))
		vec[int(h.Sum64()%uint64(e.dims))] = 1
	}

	var norm float64
	for _, v := range vec {
		norm += float64(v) * float64(v)
	}
	if norm > 0 {
		inv := 1 / math.Sqrt(norm)
		for i := range vec {
			vec[i] = float32(float64(vec[i]) * inv)
		}
	}
	return vec, nil
}
