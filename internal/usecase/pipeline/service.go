package pipeline

import (
	"context"
	"errors"
	"fmt"
	"math"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/kailas-cloud/docextract/internal/domain"
	dombatch "github.com/kailas-cloud/docextract/internal/domain/batch"
	dompipe "github.com/kailas-cloud/docextract/internal/domain/pipeline"
	"github.com/kailas-cloud/docextract/internal/logger"
	"github.com/kailas-cloud/docextract/internal/usecase/extract"
)

// Defaults for Options left at zero.
const (
	DefaultTopK           = 3
	DefaultMaxConcurrency = 4
	MaxBatchSize          = 50
)

// Options tunes the orchestrator.
type Options struct {
	TopK           int
	MaxConcurrency int
	MaxBatchSize   int
	Extensions     []string
}

// Metrics are the optional Prometheus collectors, passed explicitly.
// Runs has labels "outcome", "kind"; PhaseDuration has label "phase".
type Metrics struct {
	Runs          *prometheus.CounterVec
	PhaseDuration *prometheus.HistogramVec
}

// Orchestrator runs RECOGNIZE -> CLASSIFY -> EXTRACT for one document at a time.
type Orchestrator struct {
	recognizer Recognizer
	classifier Classifier
	extractor  Extractor
	allow      AllowList
	opts       Options
	metrics    Metrics
	logger     *zap.Logger
	newTraceID func() string
}

// New creates an orchestrator.
func New(
	rec Recognizer,
	cls Classifier,
	ext Extractor,
	opts Options,
	m Metrics,
	logger *zap.Logger,
) *Orchestrator {
	if opts.TopK <= 0 {
		opts.TopK = DefaultTopK
	}
	if opts.MaxConcurrency <= 0 {
		opts.MaxConcurrency = DefaultMaxConcurrency
	}
	if opts.MaxBatchSize <= 0 {
		opts.MaxBatchSize = MaxBatchSize
	}
	return &Orchestrator{
		recognizer: rec,
		classifier: cls,
		extractor:  ext,
		allow:      NewAllowList(opts.Extensions),
		opts:       opts,
		metrics:    m,
		logger:     logger,
		newTraceID: uuid.NewString,
	}
}

// CheckFormat reports ErrUnsupportedFormat for files outside the allow-list.
func (o *Orchestrator) CheckFormat(filename string) error {
	return o.allow.Check(filename)
}

// MaxBatch returns the largest batch RunBatch accepts.
func (o *Orchestrator) MaxBatch() int { return o.opts.MaxBatchSize }

// run carries the per-document state through the phases.
type run struct {
	traceID string
	doc     dompipe.Document
	log     *zap.Logger
}

// Run processes one document. Failures are returned as *pipeline.Failure.
func (o *Orchestrator) Run(ctx context.Context, doc dompipe.Document) (dompipe.Record, error) {
	start := time.Now()
	r := &run{traceID: o.newTraceID(), doc: doc}
	r.log = logger.FromContextOr(ctx, o.logger).With(
		zap.String("trace_id", r.traceID),
		zap.String("file", doc.Filename),
	)
	ctx = logger.ContextWithLogger(ctx, r.log)

	if err := o.allow.Check(doc.Filename); err != nil {
		return dompipe.Record{}, o.fail(r, dompipe.PhaseValidate, dompipe.KindUnsupportedFormat, "", err)
	}

	// RECOGNIZE
	phaseStart := time.Now()
	text, err := o.recognizer.Recognize(ctx, doc.Path)
	o.observe(dompipe.PhaseRecognize, phaseStart)
	if err != nil {
		return dompipe.Record{}, o.fail(r, dompipe.PhaseRecognize, dompipe.KindRecognitionFailure, "", err)
	}
	if strings.TrimSpace(text) == "" {
		return dompipe.Record{}, o.fail(r, dompipe.PhaseRecognize, dompipe.KindNoTextFound, "", domain.ErrNoTextFound)
	}
	o.passed(r, dompipe.PhaseRecognize, phaseStart, zap.Int("chars", len(text)))

	// CLASSIFY
	phaseStart = time.Now()
	cls, err := o.classifier.Classify(ctx, text, o.opts.TopK)
	o.observe(dompipe.PhaseClassify, phaseStart)
	if err != nil {
		return dompipe.Record{}, o.fail(r, dompipe.PhaseClassify, dompipe.KindClassificationFailure, "", err)
	}
	o.passed(r, dompipe.PhaseClassify, phaseStart,
		zap.String("document_type", cls.Label()),
		zap.Float64("confidence", cls.Confidence()),
		zap.Any("hits", cls.Hits()),
	)

	// EXTRACT
	phaseStart = time.Now()
	entities, err := o.extractor.Extract(ctx, cls.Label(), text)
	o.observe(dompipe.PhaseExtract, phaseStart)
	if err != nil {
		kind, raw := extractKind(err)
		return dompipe.Record{}, o.fail(r, dompipe.PhaseExtract, kind, raw, err)
	}
	o.passed(r, dompipe.PhaseExtract, phaseStart, zap.Int("fields", entities.Len()))

	rec := dompipe.Record{
		TraceID:        r.traceID,
		Filename:       doc.Filename,
		DocumentType:   cls.Label(),
		Confidence:     math.Round(cls.Confidence()*100) / 100,
		Entities:       entities,
		ProcessingTime: time.Since(start),
	}
	o.incRuns("ok", "")
	r.log.Info("Pipeline finished",
		zap.String("phase", string(dompipe.PhaseDone)),
		zap.String("outcome", "ok"),
		zap.Duration("processing_time", rec.ProcessingTime),
	)
	return rec, nil
}

// RunBatch processes documents concurrently and returns one result per input,
// in input order. A failed document never cancels its siblings.
func (o *Orchestrator) RunBatch(ctx context.Context, docs []dompipe.Document) []dombatch.Result {
	results := make([]dombatch.Result, len(docs))

	if len(docs) > o.opts.MaxBatchSize {
		for i, d := range docs {
			results[i] = dombatch.NewError(d.Filename,
				fmt.Errorf("%w: %d files, limit %d", domain.ErrBatchTooLarge, len(docs), o.opts.MaxBatchSize))
		}
		return results
	}

	var g errgroup.Group
	g.SetLimit(o.opts.MaxConcurrency)
	for i, d := range docs {
		g.Go(func() error {
			rec, err := o.Run(ctx, d)
			if err != nil {
				results[i] = dombatch.NewError(d.Filename, err)
				return nil
			}
			results[i] = dombatch.NewOK(rec)
			return nil
		})
	}
	_ = g.Wait()

	return results
}

// RunAll processes documents concurrently and returns the first failure in
// input order. Once document i fails, documents after it are cancelled or
// never started; documents before it still finish, so an earlier failure wins.
func (o *Orchestrator) RunAll(ctx context.Context, docs []dompipe.Document) ([]dompipe.Record, error) {
	if len(docs) > o.opts.MaxBatchSize {
		return nil, fmt.Errorf("%w: %d files, limit %d", domain.ErrBatchTooLarge, len(docs), o.opts.MaxBatchSize)
	}

	recs := make([]dompipe.Record, len(docs))
	errs := make([]error, len(docs))
	ctxs := make([]context.Context, len(docs))
	cancels := make([]context.CancelFunc, len(docs))
	for i := range docs {
		ctxs[i], cancels[i] = context.WithCancel(ctx)
	}
	defer func() {
		for _, cancel := range cancels {
			cancel()
		}
	}()

	var g errgroup.Group
	g.SetLimit(o.opts.MaxConcurrency)
	for i, d := range docs {
		g.Go(func() error {
			if err := ctxs[i].Err(); err != nil {
				errs[i] = err
				return nil
			}
			rec, err := o.Run(ctxs[i], d)
			if err != nil {
				errs[i] = err
				for _, cancel := range cancels[i+1:] {
					cancel()
				}
				return nil
			}
			recs[i] = rec
			return nil
		})
	}
	_ = g.Wait()

	for _, err := range errs {
		if err != nil {
			return nil, err
		}
	}
	return recs, nil
}

func extractKind(err error) (dompipe.Kind, string) {
	var mre *extract.MalformedResponseError
	switch {
	case errors.As(err, &mre):
		return dompipe.KindLLMResponseInvalid, mre.Raw
	case errors.Is(err, domain.ErrMalformedModelResponse):
		return dompipe.KindLLMResponseInvalid, ""
	case errors.Is(err, domain.ErrUnknownDocumentType):
		return dompipe.KindUnknownDocumentType, ""
	default:
		return dompipe.KindLLMError, ""
	}
}

func (o *Orchestrator) fail(r *run, phase dompipe.Phase, kind dompipe.Kind, raw string, err error) error {
	o.incRuns("failed", string(kind))
	r.log.Warn("Pipeline failed",
		zap.String("phase", string(phase)),
		zap.String("outcome", "failed"),
		zap.String("kind", string(kind)),
		zap.Error(err),
	)
	return &dompipe.Failure{
		TraceID:  r.traceID,
		Filename: r.doc.Filename,
		Phase:    phase,
		Kind:     kind,
		Raw:      raw,
		Err:      err,
	}
}

func (o *Orchestrator) passed(r *run, phase dompipe.Phase, start time.Time, fields ...zap.Field) {
	fields = append([]zap.Field{
		zap.String("phase", string(phase)),
		zap.String("outcome", "ok"),
		zap.Duration("duration", time.Since(start)),
	}, fields...)
	r.log.Info("Phase completed", fields...)
}

func (o *Orchestrator) observe(phase dompipe.Phase, start time.Time) {
	if o.metrics.PhaseDuration != nil {
		o.metrics.PhaseDuration.WithLabelValues(string(phase)).Observe(time.Since(start).Seconds())
	}
}

func (o *Orchestrator) incRuns(outcome, kind string) {
	if o.metrics.Runs != nil {
		o.metrics.Runs.WithLabelValues(outcome, kind).Inc()
	}
}
