package classify

import (
	"context"
	"fmt"

	"github.com/kailas-cloud/docextract/internal/domain"
	"github.com/kailas-cloud/docextract/internal/domain/classification"
	"github.com/kailas-cloud/docextract/internal/domain/index"
)

// probeText is encoded once at startup to check the encoder against the index.
const probeText = "invoice total due"

// Service assigns a document type by 1-nearest-neighbour over the corpus index.
type Service struct {
	embed         Embedder
	index         Index
	minConfidence float64
}

// New creates a classifier.
func New(embed Embedder, idx Index) *Service {
	return &Service{embed: embed, index: idx}
}

// WithMinConfidence rejects results whose top score is below floor. Zero disables the check.
func (s *Service) WithMinConfidence(floor float64) *Service {
	s.minConfidence = floor
	return s
}

// Validate checks the startup invariants: a non-empty index and an encoder
// whose output dimension matches it.
func (s *Service) Validate(ctx context.Context) error {
	if s.index.Len() == 0 {
		return domain.ErrEmptyIndex
	}
	res, err := s.embed.Embed(ctx, probeText)
	if err != nil {
		return fmt.Errorf("probe encoder: %w", err)
	}
	if len(res.Embedding) != s.index.Dim() {
		return fmt.Errorf("%w: encoder produces %d, index holds %d",
			domain.ErrDimensionMismatch, len(res.Embedding), s.index.Dim())
	}
	return nil
}

// Classify embeds text and returns the topK nearest corpus documents.
// Label and confidence come from the best hit.
func (s *Service) Classify(ctx context.Context, text string, topK int) (classification.Result, error) {
	if s.index.Len() == 0 {
		return classification.Result{}, domain.ErrEmptyIndex
	}

	embResult, err := s.embed.Embed(ctx, text)
	if err != nil {
		return classification.Result{}, fmt.Errorf("vectorize text: %w", err)
	}
	if len(embResult.Embedding) != s.index.Dim() {
		return classification.Result{}, fmt.Errorf("%w: encoder produced %d, index holds %d",
			domain.ErrDimensionMismatch, len(embResult.Embedding), s.index.Dim())
	}

	hits, err := s.index.Search(index.Normalize(embResult.Embedding), topK)
	if err != nil {
		return classification.Result{}, fmt.Errorf("search index: %w", err)
	}

	res, err := classification.FromHits(hits)
	if err != nil {
		return classification.Result{}, err
	}

	if s.minConfidence > 0 && res.Confidence() < s.minConfidence {
		return classification.Result{}, fmt.Errorf("%w: %s scored %.4f, floor %.4f",
			domain.ErrLowConfidence, res.Label(), res.Confidence(), s.minConfidence)
	}
	return res, nil
}
