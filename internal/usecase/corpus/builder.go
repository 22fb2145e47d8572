// Package corpus builds the labeled reference corpus the classifier searches.
package corpus

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/kailas-cloud/docextract/internal/domain"
	"github.com/kailas-cloud/docextract/internal/domain/index"
)

// Defaults for zero Options.
const (
	DefaultBatchSize   = 32
	DefaultConcurrency = 2
)

// Options configures a build.
type Options struct {
	Root        string
	Include     []string
	Exclude     []string
	Model       string
	BatchSize   int
	Concurrency int
}

// Report summarises a build.
type Report struct {
	Discovered int
	Indexed    int
	Empty      int
	Failed     int
	Dim        int
	PerLabel   map[string]int
}

// Builder recognizes, encodes and stores the corpus.
type Builder struct {
	recognizer Recognizer
	embed      domain.Embedder
	store      Store
	progress   Progress
	logger     *zap.Logger
}

// NewBuilder creates a corpus builder. progress may be nil.
func NewBuilder(rec Recognizer, embed domain.Embedder, store Store, progress Progress, logger *zap.Logger) *Builder {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Builder{recognizer: rec, embed: embed, store: store, progress: progress, logger: logger}
}

type recognized struct {
	src  Source
	text string
}

// Build indexes every matching file under opts.Root. Files that fail recognition
// or yield no text are logged and skipped.
func (b *Builder) Build(ctx context.Context, opts Options) (Report, error) {
	if opts.BatchSize <= 0 {
		opts.BatchSize = DefaultBatchSize
	}
	if opts.Concurrency <= 0 {
		opts.Concurrency = DefaultConcurrency
	}

	sources, err := Discover(opts.Root, opts.Include, opts.Exclude)
	if err != nil {
		return Report{}, err
	}
	report := Report{Discovered: len(sources), PerLabel: make(map[string]int)}
	b.logger.Info("Corpus discovered", zap.String("root", opts.Root), zap.Int("files", len(sources)))

	texts, err := b.recognizeAll(ctx, sources, opts.Concurrency, &report)
	if err != nil {
		return report, err
	}
	if len(texts) == 0 {
		return report, fmt.Errorf("%w: no legible documents under %s", domain.ErrEmptyIndex, opts.Root)
	}

	vectors, err := b.encode(ctx, texts, opts.BatchSize)
	if err != nil {
		return report, err
	}

	report.Dim = len(vectors[0])
	idx, err := index.New(report.Dim)
	if err != nil {
		return report, fmt.Errorf("new index: %w", err)
	}
	for i, r := range texts {
		doc := index.Document{
			Vector:    index.Normalize(vectors[i]),
			Label:     r.src.Label,
			SourceRef: r.src.Rel,
			Text:      r.text,
		}
		if err := idx.Add(doc); err != nil {
			return report, fmt.Errorf("add %s: %w", r.src.Rel, err)
		}
		report.PerLabel[r.src.Label]++
	}
	report.Indexed = idx.Len()

	if err := b.store.Replace(ctx, opts.Model, idx.Documents()); err != nil {
		return report, fmt.Errorf("store corpus: %w", err)
	}
	b.logger.Info("Corpus built",
		zap.Int("indexed", report.Indexed),
		zap.Int("empty", report.Empty),
		zap.Int("failed", report.Failed),
		zap.Int("dim", report.Dim),
	)
	return report, nil
}

func (b *Builder) recognizeAll(ctx context.Context, sources []Source, limit int, report *Report) ([]recognized, error) {
	if b.progress != nil {
		b.progress.Start(len(sources))
		defer b.progress.Finish()
	}

	results := make([]*recognized, len(sources))
	var mu sync.Mutex

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(limit)
	for i, src := range sources {
		g.Go(func() error {
			defer b.tick()
			text, err := b.recognizer.Recognize(gctx, src.Path)
			if err != nil {
				if ctxErr := gctx.Err(); ctxErr != nil {
					return ctxErr
				}
				b.logger.Warn("Skipping corpus file", zap.String("file", src.Rel), zap.Error(err))
				mu.Lock()
				report.Failed++
				mu.Unlock()
				return nil
			}
			if strings.TrimSpace(text) == "" {
				b.logger.Info("Skipping file without text", zap.String("file", src.Rel))
				mu.Lock()
				report.Empty++
				mu.Unlock()
				return nil
			}
			results[i] = &recognized{src: src, text: text}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, fmt.Errorf("recognize corpus: %w", err)
	}

	out := make([]recognized, 0, len(results))
	for _, r := range results {
		if r != nil {
			out = append(out, *r)
		}
	}
	return out, nil
}

func (b *Builder) tick() {
	if b.progress != nil {
		b.progress.Increment()
	}
}

// encode vectorizes texts in batches, using the provider's batch endpoint when it has one.
func (b *Builder) encode(ctx context.Context, texts []recognized, batchSize int) ([][]float32, error) {
	vectors := make([][]float32, 0, len(texts))
	for start := 0; start < len(texts); start += batchSize {
		end := min(start+batchSize, len(texts))
		chunk := make([]string, 0, end-start)
		for _, r := range texts[start:end] {
			chunk = append(chunk, r.text)
		}

		var (
			res domain.BatchEmbeddingResult
			err error
		)
		if be, ok := b.embed.(domain.BatchEmbedder); ok {
			res, err = be.BatchEmbed(ctx, chunk)
		} else {
			res, err = domain.BatchFallback(ctx, b.embed, chunk)
		}
		if err != nil {
			return nil, fmt.Errorf("encode batch at %d: %w", start, err)
		}
		if len(res.Embeddings) != len(chunk) {
			return nil, errors.New("encoder returned a different number of vectors than inputs")
		}
		vectors = append(vectors, res.Embeddings...)
	}
	return vectors, nil
}
