package embedding

import (
	"context"
	"fmt"

	"github.com/kailas-cloud/docextract/internal/domain"
	"github.com/kailas-cloud/docextract/internal/domain/index"
)

// NormalizedEmbedder rescales every vector to unit length so inner product
// equals cosine similarity regardless of what the provider returns.
type NormalizedEmbedder struct {
	inner domain.Embedder
}

// NewNormalizedEmbedder wraps inner.
func NewNormalizedEmbedder(inner domain.Embedder) *NormalizedEmbedder {
	return &NormalizedEmbedder{inner: inner}
}

// Embed returns the inner vector scaled to unit length.
func (n *NormalizedEmbedder) Embed(ctx context.Context, text string) (domain.EmbeddingResult, error) {
	res, err := n.inner.Embed(ctx, text)
	if err != nil {
		return domain.EmbeddingResult{}, err
	}
	if index.Norm(res.Embedding) == 0 {
		return domain.EmbeddingResult{}, fmt.Errorf("%w: zero vector", domain.ErrEmbeddingProviderError)
	}
	res.Embedding = index.Normalize(res.Embedding)
	return res, nil
}

// BatchEmbed normalizes every vector of the inner batch.
func (n *NormalizedEmbedder) BatchEmbed(ctx context.Context, texts []string) (domain.BatchEmbeddingResult, error) {
	var (
		res domain.BatchEmbeddingResult
		err error
	)
	if be, ok := n.inner.(domain.BatchEmbedder); ok {
		res, err = be.BatchEmbed(ctx, texts)
	} else {
		res, err = domain.BatchFallback(ctx, n.inner, texts)
	}
	if err != nil {
		return domain.BatchEmbeddingResult{}, err
	}
	for i, v := range res.Embeddings {
		if index.Norm(v) == 0 {
			return domain.BatchEmbeddingResult{}, fmt.Errorf("%w: zero vector at %d", domain.ErrEmbeddingProviderError, i)
		}
		res.Embeddings[i] = index.Normalize(v)
	}
	return res, nil
}

// HealthCheck forwards to inner when it supports health checks.
func (n *NormalizedEmbedder) HealthCheck(ctx context.Context) error {
	if hc, ok := n.inner.(domain.HealthChecker); ok {
		return hc.HealthCheck(ctx)
	}
	return nil
}
