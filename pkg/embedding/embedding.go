// Package embedding defines the provider that turns text into vectors.
package embedding

import (
	"context"
	"errors"
)

// ErrNoData is returned when a provider answers without a vector for every
// input. Callers must not substitute a default vector.
var ErrNoData = errors.New("embedding provider returned no data")

// Embedder generates one fixed-dimension vector per input text.
//
// Implementations include:
//   - openai    (OpenAI-compatible /embeddings endpoints, Ollama /v1)
//   - workersai (Cloudflare Workers AI, @cf/baai/bge-small-en-v1.5)
//   - hash      (deterministic character hashing, no network)
type Embedder interface {
	// EmbedBatch returns vectors in input order, one per text.
	EmbedBatch(ctx context.Context, texts []string) ([][]float32, error)

	// Dimensions returns the vector size.
	Dimensions() int

	// ModelName returns the model used to embed.
	ModelName() string
}

// Check verifies that a batch response covers every input.
func Check(texts []string, vectors [][]float32) error {
	if len(vectors) != len(texts) {
		return ErrNoData
	}
	for _, v := range vectors {
		if len(v) == 0 {
			return ErrNoData
		}
	}
	return nil
}
