package corpus

import (
	"context"

	"github.com/kailas-cloud/docextract/internal/domain/index"
)

// Recognizer turns a corpus file into plain text.
type Recognizer interface {
	Recognize(ctx context.Context, path string) (string, error)
}

// Store persists the built corpus.
type Store interface {
	Replace(ctx context.Context, model string, docs []index.Document) error
}

// Progress reports per-file build progress. Nil disables reporting.
type Progress interface {
	Start(total int)
	Increment()
	Finish()
}
