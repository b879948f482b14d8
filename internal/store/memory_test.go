package store

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/issuelens/issuelens/internal/embedding"
	"github.com/issuelens/issuelens/internal/models"
)

func doc(id string, embedding []float32) *models.Document {
	return &models.Document{
		ID:        id,
		Title:     "title " + id,
		Content:   "content " + id,
		Metadata:  models.Metadata{Author: "amy", Labels: []string{}},
		Embedding: embedding,
	}
}

func TestMemoryInsertAndCount(t *testing.T) {
	ctx := context.Background()
	m, err := NewMemory(3)
	if err != nil {
		t.Fatal(err)
	}
	n, err := m.Count(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if n != 0 {
		t.Errorf("empty count: got %d, want 0", n)
	}
	if err := m.Insert(ctx, doc("1", []float32{1, 0, 0})); err != nil {
		t.Fatal(err)
	}
	n, err = m.Count(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if n != 1 {
		t.Errorf("count: got %d, want 1", n)
	}
}

func TestMemoryRoundTrip(t *testing.T) {
	ctx := context.Background()
	m, _ := NewMemory(3)
	created := "2024-03-01T12:00:00Z"
	in := &models.Document{
		ID:      "7",
		Title:   "Bug A",
		Content: "Bug A\n\ncrashes",
		Metadata: models.Metadata{
			Author:    "amy",
			CreatedAt: &created,
			State:     "OPEN",
			Labels:    []string{"bug"},
		},
		Embedding: []float32{1, 0, 0},
	}
	if err := m.Insert(ctx, in); err != nil {
		t.Fatal(err)
	}
	docs, err := m.List(ctx, 0, 10)
	if err != nil {
		t.Fatal(err)
	}
	if len(docs) != 1 {
		t.Fatalf("docs: got %d, want 1", len(docs))
	}
	got := docs[0]
	if got.Title != in.Title || got.Content != in.Content {
		t.Errorf("round trip: got %q/%q", got.Title, got.Content)
	}
	if got.Metadata.Author != "amy" || *got.Metadata.CreatedAt != created {
		t.Errorf("metadata round trip: got %+v", got.Metadata)
	}
	if len(got.Embedding) != 3 {
		t.Errorf("embedding dimension: got %d, want 3", len(got.Embedding))
	}
}

func TestMemoryDuplicateID(t *testing.T) {
	ctx := context.Background()
	m, _ := NewMemory(3)
	if err := m.Insert(ctx, doc("1", []float32{1, 0, 0})); err != nil {
		t.Fatal(err)
	}
	err := m.Insert(ctx, doc("1", []float32{0, 1, 0}))
	if !errors.Is(err, ErrDuplicateID) {
		t.Errorf("error: got %v, want ErrDuplicateID", err)
	}
}

func TestMemoryDimensionMismatch(t *testing.T) {
	ctx := context.Background()
	m, _ := NewMemory(3)
	if err := m.Insert(ctx, doc("1", []float32{1, 0})); !errors.Is(err, ErrDimensionMismatch) {
		t.Errorf("insert error: got %v, want ErrDimensionMismatch", err)
	}
	if _, err := m.Nearest(ctx, []float32{1, 0}, 5); !errors.Is(err, ErrDimensionMismatch) {
		t.Errorf("nearest error: got %v, want ErrDimensionMismatch", err)
	}
}

func TestMemoryListPagination(t *testing.T) {
	ctx := context.Background()
	m, _ := NewMemory(3)
	for i := 0; i < 5; i++ {
		if err := m.Insert(ctx, doc(fmt.Sprintf("%02d", i), []float32{1, 0, 0})); err != nil {
			t.Fatal(err)
		}
	}
	first, err := m.List(ctx, 0, 3)
	if err != nil {
		t.Fatal(err)
	}
	second, err := m.List(ctx, 3, 3)
	if err != nil {
		t.Fatal(err)
	}
	if len(first) != 3 || len(second) != 2 {
		t.Fatalf("pages: got %d and %d", len(first), len(second))
	}
	seen := make(map[string]bool)
	for _, d := range append(first, second...) {
		if seen[d.ID] {
			t.Errorf("id %s appears on both pages", d.ID)
		}
		seen[d.ID] = true
	}
	if len(seen) != 5 {
		t.Errorf("union covers %d ids, want 5", len(seen))
	}
	// Ordered by id within and across pages.
	if first[0].ID != "00" || second[0].ID != "03" {
		t.Errorf("ordering: first page starts %s, second page starts %s", first[0].ID, second[0].ID)
	}
}

func TestMemoryNearestEmptyStore(t *testing.T) {
	ctx := context.Background()
	m, _ := NewMemory(3)
	results, err := m.Nearest(ctx, []float32{1, 0, 0}, 5)
	if err != nil {
		t.Fatal(err)
	}
	if len(results) != 0 {
		t.Errorf("results: got %d, want 0", len(results))
	}
}

func TestMemoryNearestOrdering(t *testing.T) {
	ctx := context.Background()
	m, _ := NewMemory(3)
	if err := m.Insert(ctx, doc("far", []float32{0, 1, 0})); err != nil {
		t.Fatal(err)
	}
	if err := m.Insert(ctx, doc("near", []float32{1, 0.1, 0})); err != nil {
		t.Fatal(err)
	}
	if err := m.Insert(ctx, doc("exact", []float32{1, 0, 0})); err != nil {
		t.Fatal(err)
	}
	results, err := m.Nearest(ctx, []float32{1, 0, 0}, 2)
	if err != nil {
		t.Fatal(err)
	}
	if len(results) != 2 {
		t.Fatalf("results: got %d, want 2", len(results))
	}
	if results[0].Document.ID != "exact" || results[1].Document.ID != "near" {
		t.Errorf("order: got %s, %s", results[0].Document.ID, results[1].Document.ID)
	}
	if results[0].Distance > results[1].Distance {
		t.Errorf("distances not ascending: %f, %f", results[0].Distance, results[1].Distance)
	}
}

// A document should come back as the top hit for the embedding of its own content.
func TestMemoryNearestSelf(t *testing.T) {
	ctx := context.Background()
	e := embedding.NewMockEmbedder(8)
	m, _ := NewMemory(8)
	contents := []string{"first document", "second document", "third document"}
	for i, content := range contents {
		vec, err := e.Embed(ctx, content)
		if err != nil {
			t.Fatal(err)
		}
		d := doc(fmt.Sprintf("%d", i), vec)
		d.Content = content
		if err := m.Insert(ctx, d); err != nil {
			t.Fatal(err)
		}
	}
	query, err := e.Embed(ctx, "second document")
	if err != nil {
		t.Fatal(err)
	}
	results, err := m.Nearest(ctx, query, 1)
	if err != nil {
		t.Fatal(err)
	}
	if len(results) != 1 || results[0].Document.Content != "second document" {
		t.Errorf("top hit: got %+v", results)
	}
}

func TestMemoryInsertBatchAtomic(t *testing.T) {
	ctx := context.Background()
	m, _ := NewMemory(3)
	if err := m.Insert(ctx, doc("2", []float32{1, 0, 0})); err != nil {
		t.Fatal(err)
	}
	batch := []*models.Document{
		doc("1", []float32{1, 0, 0}),
		doc("2", []float32{0, 1, 0}), // duplicate
	}
	if err := m.InsertBatch(ctx, batch); !errors.Is(err, ErrDuplicateID) {
		t.Fatalf("error: got %v, want ErrDuplicateID", err)
	}
	n, _ := m.Count(ctx)
	if n != 1 {
		t.Errorf("count after failed batch: got %d, want 1", n)
	}
}
