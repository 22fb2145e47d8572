package domain

import "errors"

var (
	// ErrUnsupportedFormat signals a file extension outside the allow-list.
	ErrUnsupportedFormat = errors.New("unsupported format")
	// ErrNoTextFound signals that recognition produced empty or whitespace-only text.
	ErrNoTextFound = errors.New("no legible text found in document")
	// ErrBatchTooLarge signals more files in one request than the configured limit.
	ErrBatchTooLarge = errors.New("too many files in batch")

	// ErrEmptyIndex signals a classification attempt against an index with zero vectors.
	ErrEmptyIndex = errors.New("vector index is empty")
	// ErrDimensionMismatch signals that a vector does not match the index dimension.
	ErrDimensionMismatch = errors.New("vector dimension mismatch")
	// ErrNotNormalized signals a corpus vector that is not unit length.
	ErrNotNormalized = errors.New("vector is not unit-normalized")
	// ErrLowConfidence signals a top similarity score below the configured floor.
	ErrLowConfidence = errors.New("classification confidence below threshold")

	// ErrUnknownDocumentType signals a label without an extraction schema.
	ErrUnknownDocumentType = errors.New("unknown document type")
	// ErrInvalidSchema signals a malformed schema resource.
	ErrInvalidSchema = errors.New("invalid schema")
	// ErrMalformedModelResponse signals model output that is not a JSON object.
	ErrMalformedModelResponse = errors.New("malformed model response")
	// ErrModelProvider signals a generative model transport or API failure.
	ErrModelProvider = errors.New("model provider error")

	// ErrEmbeddingProviderError signals an embedding provider failure.
	ErrEmbeddingProviderError = errors.New("embedding provider error")
)
