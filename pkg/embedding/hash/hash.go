// Package hash provides a deterministic embedding computed from character
// codes. It needs no network and produces identical vectors for identical
// text, which makes it suitable for local runs and tests. Semantic quality is
// poor compared to a trained model.
package hash

import (
	"context"
	"math"
	"strings"
	"unicode/utf16"

	"profanity/pkg/embedding"
)

var _ embedding.Embedder = (*Embedder)(nil)

// DefaultDimensions matches bge-small-en-v1.5 so indexes can be swapped.
const DefaultDimensions = 384

// Embedder hashes characters into a unit-length vector.
type Embedder struct {
	dims int
}

// New returns an Embedder producing vectors of dims size.
func New(dims int) *Embedder {
	if dims <= 0 {
		dims = DefaultDimensions
	}
	return &Embedder{dims: dims}
}

// Vector embeds a single text.
func (e *Embedder) Vector(text string) []float32 {
	units := utf16.Encode([]rune(strings.TrimSpace(strings.ToLower(text))))
	acc := make([]float64, e.dims)

	for i, u := range units {
		code := int(u) * (i + 1)
		acc[code%e.dims] += math.Sin(float64(code)) * 0.1
	}

	var sum float64
	for _, v := range acc {
		sum += v * v
	}
	mag := math.Sqrt(sum)

	out := make([]float32, e.dims)
	for i, v := range acc {
		if mag > 0 {
			v /= mag
		}
		out[i] = float32(v)
	}
	return out
}

// EmbedBatch embeds every text. It never fails but honours cancellation.
func (e *Embedder) EmbedBatch(ctx context.Context, texts []string) ([][]float32, error) {
	out := make([][]float32, len(texts))
	for i, t := range texts {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		out[i] = e.Vector(t)
	}
	return out, nil
}

func (e *Embedder) Dimensions() int { return e.dims }

func (e *Embedder) ModelName() string { return "char-hash" }
