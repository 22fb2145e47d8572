package classify

import (
	"context"

	"github.com/kailas-cloud/docextract/internal/domain"
	"github.com/kailas-cloud/docextract/internal/domain/index"
)

// Embedder vectorizes text into embeddings.
type Embedder interface {
	Embed(ctx context.Context, text string) (domain.EmbeddingResult, error)
}

// Index is the read side of the vector index.
type Index interface {
	Dim() int
	Len() int
	Search(query []float32, k int) ([]index.Hit, error)
}
