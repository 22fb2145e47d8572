package chi

import (
	"context"

	dombatch "github.com/kailas-cloud/docextract/internal/domain/batch"
	dompipe "github.com/kailas-cloud/docextract/internal/domain/pipeline"
	healthuc "github.com/kailas-cloud/docextract/internal/usecase/health"
)

// Pipeline runs uploaded documents through recognize, classify and extract.
type Pipeline interface {
	CheckFormat(filename string) error
	MaxBatch() int
	RunAll(ctx context.Context, docs []dompipe.Document) ([]dompipe.Record, error)
	RunBatch(ctx context.Context, docs []dompipe.Document) []dombatch.Result
}

// HealthChecker reports component health.
type HealthChecker interface {
	Check(ctx context.Context) healthuc.Report
}
