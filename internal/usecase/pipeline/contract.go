package pipeline

import (
	"context"

	"github.com/kailas-cloud/docextract/internal/domain/classification"
	"github.com/kailas-cloud/docextract/internal/domain/extraction"
)

// Recognizer turns a document file into plain text.
type Recognizer interface {
	Recognize(ctx context.Context, path string) (string, error)
}

// Classifier assigns a document type to recognized text.
type Classifier interface {
	Classify(ctx context.Context, text string, topK int) (classification.Result, error)
}

// Extractor pulls schema fields for a document type out of recognized text.
type Extractor interface {
	Extract(ctx context.Context, docType, text string) (extraction.Result, error)
}
