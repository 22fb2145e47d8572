package classification

import (
	"errors"
	"testing"

	"github.com/kailas-cloud/docextract/internal/domain"
	"github.com/kailas-cloud/docextract/internal/domain/index"
)

func TestFromHits(t *testing.T) {
	hits := []index.Hit{
		{Label: "invoice", SourceRef: "docs/invoice/1.png", Score: 0.91},
		{Label: "memo", SourceRef: "docs/memo/1.png", Score: 0.42},
	}
	r, err := FromHits(hits)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if r.Label() != "invoice" {
		t.Errorf("Label() = %q, want invoice", r.Label())
	}
	if r.Confidence() != 0.91 {
		t.Errorf("Confidence() = %f, want 0.91", r.Confidence())
	}
	if len(r.Hits()) != 2 {
		t.Errorf("Hits() len = %d, want 2", len(r.Hits()))
	}
}

func TestFromHits_Empty(t *testing.T) {
	_, err := FromHits(nil)
	if !errors.Is(err, domain.ErrEmptyIndex) {
		t.Fatalf("expected ErrEmptyIndex, got %v", err)
	}
}
