package hash

import (
	"context"
	"math"
	"testing"
)

func norm(v []float32) float64 {
	var sum float64
	for _, x := range v {
		sum += float64(x) * float64(x)
	}
	return math.Sqrt(sum)
}

func TestEmbedder_Vector(t *testing.T) {
	e := New(0)

	v := e.Vector("shit")
	if len(v) != DefaultDimensions {
		t.Fatalf("want %d dimensions, got %d", DefaultDimensions, len(v))
	}
	if n := norm(v); math.Abs(n-1) > 1e-5 {
		t.Errorf("want unit vector, got norm %v", n)
	}
}

func TestEmbedder_Deterministic(t *testing.T) {
	e := New(128)

	a := e.Vector("Hello ")
	b := e.Vector("hello")
	for i := range a {
		if a[i] != b[i] {
			t.Fatalf("want identical vectors for case and padding variants, differ at %d", i)
		}
	}
}

func TestEmbedder_Empty(t *testing.T) {
	e := New(16)

	v := e.Vector("")
	if norm(v) != 0 {
		t.Errorf("want zero vector for empty text, got %v", v)
	}
}

func TestEmbedder_EmbedBatch(t *testing.T) {
	e := New(32)

	got, err := e.EmbedBatch(context.Background(), []string{"a", "b", "c"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(got) != 3 {
		t.Fatalf("want 3 vectors, got %d", len(got))
	}

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if _, err := e.EmbedBatch(ctx, []string{"a"}); err == nil {
		t.Error("want error for cancelled context")
	}
}
