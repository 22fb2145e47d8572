// Package classification holds the outcome of nearest-neighbour document classification.
package classification

import (
	"github.com/kailas-cloud/docextract/internal/domain"
	"github.com/kailas-cloud/docextract/internal/domain/index"
)

// Result is the label assigned to a text with its raw similarity score.
// Confidence is the inner product of the best hit, not a calibrated probability.
type Result struct {
	label      string
	confidence float64
	hits       []index.Hit
}

// FromHits builds a result from hits sorted by descending score.
func FromHits(hits []index.Hit) (Result, error) {
	if len(hits) == 0 {
		return Result{}, domain.ErrEmptyIndex
	}
	return Result{
		label:      hits[0].Label,
		confidence: hits[0].Score,
		hits:       hits,
	}, nil
}

// Label returns the predicted document type.
func (r Result) Label() string { return r.label }

// Confidence returns the similarity score of the top hit.
func (r Result) Confidence() float64 { return r.confidence }

// Hits returns the neighbours by descending score.
func (r Result) Hits() []index.Hit { return r.hits }
