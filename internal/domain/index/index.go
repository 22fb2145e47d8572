// Package index implements the flat inner-product vector index used for
// nearest-neighbour document classification.
package index

import (
	"fmt"
	"math"
	"sort"
	"sync"

	"github.com/kailas-cloud/docextract/internal/domain"
)

// normTolerance bounds how far a corpus vector's length may drift from 1.
const normTolerance = 1e-3

// Document is a labeled corpus entry with a precomputed unit-length embedding.
type Document struct {
	Vector    []float32
	Label     string
	SourceRef string
	Text      string
}

// Hit is a single neighbour returned by Search.
type Hit struct {
	Label     string
	SourceRef string
	Score     float64
}

// Index is an exact (brute force) inner-product index. Entries are immutable once added.
type Index struct {
	mu   sync.RWMutex
	dim  int
	docs []Document
}

// New creates an empty index for vectors of the given dimension.
func New(dim int) (*Index, error) {
	if dim <= 0 {
		return nil, fmt.Errorf("index dimension must be positive, got %d", dim)
	}
	return &Index{dim: dim}, nil
}

// Dim returns the configured vector dimension.
func (x *Index) Dim() int { return x.dim }

// Len returns the number of indexed documents.
func (x *Index) Len() int {
	x.mu.RLock()
	defer x.mu.RUnlock()
	return len(x.docs)
}

// Add appends a document. The vector must match Dim and be unit length.
func (x *Index) Add(doc Document) error {
	if len(doc.Vector) != x.dim {
		return fmt.Errorf("%w: document %q has %d, index expects %d",
			domain.ErrDimensionMismatch, doc.SourceRef, len(doc.Vector), x.dim)
	}
	if n := Norm(doc.Vector); math.Abs(n-1) > normTolerance {
		return fmt.Errorf("%w: document %q has norm %.4f", domain.ErrNotNormalized, doc.SourceRef, n)
	}
	if doc.Label == "" {
		return fmt.Errorf("document %q has empty label", doc.SourceRef)
	}

	vec := make([]float32, len(doc.Vector))
	copy(vec, doc.Vector)
	doc.Vector = vec

	x.mu.Lock()
	x.docs = append(x.docs, doc)
	x.mu.Unlock()
	return nil
}

// Documents returns a snapshot of all entries in insertion order.
func (x *Index) Documents() []Document {
	x.mu.RLock()
	defer x.mu.RUnlock()
	out := make([]Document, len(x.docs))
	copy(out, x.docs)
	return out
}

// Search scores the query against every entry and returns up to k hits by
// descending score. Equal scores keep insertion order. k is clamped to [1, Len].
func (x *Index) Search(query []float32, k int) ([]Hit, error) {
	if len(query) != x.dim {
		return nil, fmt.Errorf("%w: query has %d, index expects %d",
			domain.ErrDimensionMismatch, len(query), x.dim)
	}

	x.mu.RLock()
	defer x.mu.RUnlock()

	if len(x.docs) == 0 {
		return nil, domain.ErrEmptyIndex
	}
	if k < 1 {
		k = 1
	}
	if k > len(x.docs) {
		k = len(x.docs)
	}

	hits := make([]Hit, len(x.docs))
	for i := range x.docs {
		hits[i] = Hit{
			Label:     x.docs[i].Label,
			SourceRef: x.docs[i].SourceRef,
			Score:     Dot(query, x.docs[i].Vector),
		}
	}
	sort.SliceStable(hits, func(i, j int) bool { return hits[i].Score > hits[j].Score })

	return hits[:k], nil
}

// Dot returns the inner product of two equal-length vectors, accumulated in float64.
func Dot(a, b []float32) float64 {
	var sum float64
	for i := range a {
		sum += float64(a[i]) * float64(b[i])
	}
	return sum
}

// Norm returns the Euclidean length of v.
func Norm(v []float32) float64 {
	return math.Sqrt(Dot(v, v))
}

// Normalize returns a unit-length copy of v. A zero vector is returned unchanged.
func Normalize(v []float32) []float32 {
	out := make([]float32, len(v))
	n := Norm(v)
	if n == 0 {
		copy(out, v)
		return out
	}
	for i, f := range v {
		out[i] = float32(float64(f) / n)
	}
	return out
}
