package index

import (
	"errors"
	"math"
	"sync"
	"testing"

	"github.com/kailas-cloud/docextract/internal/domain"
)

func mustIndex(t *testing.T, dim int, docs ...Document) *Index {
	t.Helper()
	x, err := New(dim)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	for _, d := range docs {
		if err := x.Add(d); err != nil {
			t.Fatalf("Add(%s): %v", d.SourceRef, err)
		}
	}
	return x
}

func unit(v ...float32) []float32 { return Normalize(v) }

func TestNew_InvalidDim(t *testing.T) {
	if _, err := New(0); err == nil {
		t.Fatal("expected error for zero dimension")
	}
}

func TestAdd_DimensionMismatch(t *testing.T) {
	x := mustIndex(t, 3)
	err := x.Add(Document{Vector: unit(1, 0), Label: "invoice", SourceRef: "a.png"})
	if !errors.Is(err, domain.ErrDimensionMismatch) {
		t.Fatalf("expected ErrDimensionMismatch, got %v", err)
	}
}

func TestAdd_NotNormalized(t *testing.T) {
	x := mustIndex(t, 2)
	err := x.Add(Document{Vector: []float32{3, 4}, Label: "invoice", SourceRef: "a.png"})
	if !errors.Is(err, domain.ErrNotNormalized) {
		t.Fatalf("expected ErrNotNormalized, got %v", err)
	}
}

func TestAdd_EmptyLabel(t *testing.T) {
	x := mustIndex(t, 2)
	if err := x.Add(Document{Vector: unit(1, 0), SourceRef: "a.png"}); err == nil {
		t.Fatal("expected error for empty label")
	}
}

func TestAdd_CopiesVector(t *testing.T) {
	v := unit(1, 0)
	x := mustIndex(t, 2, Document{Vector: v, Label: "invoice", SourceRef: "a.png"})
	v[0] = -1

	hits, err := x.Search(unit(1, 0), 1)
	if err != nil {
		t.Fatalf("Search: %v", err)
	}
	if math.Abs(hits[0].Score-1) > 1e-6 {
		t.Errorf("stored vector was mutated through caller slice, score=%f", hits[0].Score)
	}
}

func TestSearch_EmptyIndex(t *testing.T) {
	x := mustIndex(t, 2)
	_, err := x.Search(unit(1, 0), 3)
	if !errors.Is(err, domain.ErrEmptyIndex) {
		t.Fatalf("expected ErrEmptyIndex, got %v", err)
	}
}

func TestSearch_QueryDimensionMismatch(t *testing.T) {
	x := mustIndex(t, 2, Document{Vector: unit(1, 0), Label: "invoice", SourceRef: "a.png"})
	_, err := x.Search(unit(1, 0, 0), 1)
	if !errors.Is(err, domain.ErrDimensionMismatch) {
		t.Fatalf("expected ErrDimensionMismatch, got %v", err)
	}
}

func TestSearch_SortedDescending(t *testing.T) {
	x := mustIndex(t, 3,
		Document{Vector: unit(0, 1, 0), Label: "memo", SourceRef: "memo.png"},
		Document{Vector: unit(1, 0, 0), Label: "invoice", SourceRef: "invoice.png"},
		Document{Vector: unit(1, 1, 0), Label: "receipt", SourceRef: "receipt.png"},
		Document{Vector: unit(0, 0, 1), Label: "letter", SourceRef: "letter.png"},
	)

	hits, err := x.Search(unit(0.9, 0.3, 0.1), 4)
	if err != nil {
		t.Fatalf("Search: %v", err)
	}
	if len(hits) != 4 {
		t.Fatalf("expected 4 hits, got %d", len(hits))
	}
	for i := 1; i < len(hits); i++ {
		if hits[i].Score > hits[i-1].Score {
			t.Errorf("hits not sorted: [%d]=%f > [%d]=%f", i, hits[i].Score, i-1, hits[i-1].Score)
		}
	}
	if hits[0].Label != "invoice" {
		t.Errorf("expected invoice first, got %s", hits[0].Label)
	}
}

func TestSearch_IdenticalVectorScoresOne(t *testing.T) {
	docs := []Document{
		{Vector: unit(0.2, 0.5, 0.1, 0.7), Label: "invoice", SourceRef: "i.png"},
		{Vector: unit(0.9, 0.1, 0.3, 0.0), Label: "memo", SourceRef: "m.png"},
		{Vector: unit(0.1, 0.1, 0.9, 0.2), Label: "receipt", SourceRef: "r.png"},
	}
	x := mustIndex(t, 4, docs...)

	for _, d := range docs {
		hits, err := x.Search(d.Vector, 1)
		if err != nil {
			t.Fatalf("Search: %v", err)
		}
		if hits[0].Label != d.Label {
			t.Errorf("query %s: expected label %s, got %s", d.SourceRef, d.Label, hits[0].Label)
		}
		if math.Abs(hits[0].Score-1) > 1e-5 {
			t.Errorf("query %s: expected score ~1.0, got %f", d.SourceRef, hits[0].Score)
		}
	}
}

func TestSearch_TiesKeepInsertionOrder(t *testing.T) {
	v := unit(1, 1)
	x := mustIndex(t, 2,
		Document{Vector: v, Label: "first", SourceRef: "1"},
		Document{Vector: v, Label: "second", SourceRef: "2"},
		Document{Vector: v, Label: "third", SourceRef: "3"},
	)

	for range 5 {
		hits, err := x.Search(v, 3)
		if err != nil {
			t.Fatalf("Search: %v", err)
		}
		if hits[0].Label != "first" || hits[1].Label != "second" || hits[2].Label != "third" {
			t.Fatalf("tie order changed: %+v", hits)
		}
	}
}

func TestSearch_ClampsK(t *testing.T) {
	x := mustIndex(t, 2,
		Document{Vector: unit(1, 0), Label: "a", SourceRef: "a"},
		Document{Vector: unit(0, 1), Label: "b", SourceRef: "b"},
	)

	tests := []struct {
		k    int
		want int
	}{
		{k: 0, want: 1},
		{k: 1, want: 1},
		{k: 2, want: 2},
		{k: 50, want: 2},
	}
	for _, tc := range tests {
		hits, err := x.Search(unit(1, 0), tc.k)
		if err != nil {
			t.Fatalf("Search(k=%d): %v", tc.k, err)
		}
		if len(hits) != tc.want {
			t.Errorf("k=%d: got %d hits, want %d", tc.k, len(hits), tc.want)
		}
	}
}

func TestSearch_ConcurrentReaders(t *testing.T) {
	x := mustIndex(t, 2,
		Document{Vector: unit(1, 0), Label: "a", SourceRef: "a"},
		Document{Vector: unit(0, 1), Label: "b", SourceRef: "b"},
	)

	var wg sync.WaitGroup
	for range 16 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			hits, err := x.Search(unit(0, 1), 2)
			if err != nil || hits[0].Label != "b" {
				t.Errorf("unexpected result: %+v, %v", hits, err)
			}
		}()
	}
	wg.Wait()
}

func TestNormalize(t *testing.T) {
	v := Normalize([]float32{3, 4})
	if math.Abs(float64(v[0])-0.6) > 1e-6 || math.Abs(float64(v[1])-0.8) > 1e-6 {
		t.Errorf("Normalize([3,4]) = %v", v)
	}
	zero := Normalize([]float32{0, 0})
	if zero[0] != 0 || zero[1] != 0 {
		t.Errorf("Normalize(zero) = %v", zero)
	}
}
