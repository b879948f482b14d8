package embedding

import (
	"context"
	"math"
	"testing"
)

func TestMockEmbedderDeterministic(t *testing.T) {
	e := NewMockEmbedder(8)
	a, err := e.Embed(context.Background(), "same text")
	if err != nil {
		t.Fatal(err)
	}
	b, err := e.Embed(context.Background(), "same text")
	if err != nil {
		t.Fatal(err)
	}
	for i := range a {
		if a[i] != b[i] {
			t.Fatalf("embeddings differ at %d: %f vs %f", i, a[i], b[i])
		}
	}

	c, err := e.Embed(context.Background(), "different text")
	if err != nil {
		t.Fatal(err)
	}
	same := true
	for i := range a {
		if a[i] != c[i] {
			same = false
			break
		}
	}
	if same {
		t.Error("different texts produced identical embeddings")
	}
}

func TestMockEmbedderUnitNorm(t *testing.T) {
	e := NewMockEmbedder(16)
	vec, err := e.Embed(context.Background(), "hello")
	if err != nil {
		t.Fatal(err)
	}
	var sum float64
	for _, v := range vec {
		sum += float64(v) * float64(v)
	}
	if math.Abs(math.Sqrt(sum)-1.0) > 1e-5 {
		t.Errorf("norm: got %f, want 1.0", math.Sqrt(sum))
	}
}

func TestMockEmbedderDimensions(t *testing.T) {
	if got := NewMockEmbedder(8).Dimensions(); got != 8 {
		t.Errorf("dimensions: got %d, want 8", got)
	}
	if got := NewMockEmbedder(0).Dimensions(); got != 1536 {
		t.Errorf("default dimensions: got %d, want 1536", got)
	}
}
