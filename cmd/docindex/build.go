package main

import (
	"fmt"
	"sort"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	corpusrepo "github.com/kailas-cloud/docextract/internal/repository/corpus"
	corpusuc "github.com/kailas-cloud/docextract/internal/usecase/corpus"
)

var (
	buildRoot        string
	buildOut         string
	buildInclude     []string
	buildExclude     []string
	buildBatchSize   int
	buildConcurrency int
	buildProgress    bool
)

func init() {
	buildCmd.Flags().StringVar(&buildRoot, "root", "", "corpus root with one directory per label (default corpus.root)")
	buildCmd.Flags().StringVar(&buildOut, "out", "", "output sqlite file (default corpus.path)")
	buildCmd.Flags().StringSliceVar(&buildInclude, "include", nil, "doublestar include globs (default corpus.include)")
	buildCmd.Flags().StringSliceVar(&buildExclude, "exclude", nil, "doublestar exclude globs (default corpus.exclude)")
	buildCmd.Flags().IntVar(&buildBatchSize, "batch-size", 0, "texts per embedding request (default corpus.batch_size)")
	buildCmd.Flags().IntVar(&buildConcurrency, "concurrency", 2, "parallel recognizer processes")
	buildCmd.Flags().BoolVar(&buildProgress, "progress", defaultProgressEnabled(), "show a progress bar")
}

var buildCmd = &cobra.Command{
	Use:   "build",
	Short: "Recognize, encode and store every labelled corpus file",
	Long: `Build replaces the corpus snapshot with freshly encoded documents.

Files that fail recognition or contain no text are logged and skipped.

Examples:
  # Build from ./docs into ./corpus.db
  docindex build --root docs --out corpus.db

  # Only PDFs, skipping drafts
  docindex build --include '**/*.pdf' --exclude '**/draft-*'`,
	Args: cobra.NoArgs,
	RunE: runBuild,
}

func runBuild(cmd *cobra.Command, _ []string) error {
	cfg, logger, err := setup()
	if err != nil {
		return err
	}
	defer func() { _ = logger.Sync() }()

	opts := corpusuc.Options{
		Root:        firstNonEmpty(buildRoot, cfg.Corpus.Root),
		Include:     buildInclude,
		Exclude:     buildExclude,
		Model:       cfg.Embedding.Model,
		BatchSize:   buildBatchSize,
		Concurrency: buildConcurrency,
	}
	if len(opts.Include) == 0 {
		opts.Include = cfg.Corpus.Include
	}
	if len(opts.Exclude) == 0 {
		opts.Exclude = cfg.Corpus.Exclude
	}
	if opts.BatchSize <= 0 {
		opts.BatchSize = cfg.Corpus.BatchSize
	}
	out := firstNonEmpty(buildOut, cfg.Corpus.Path)

	store, err := corpusrepo.Open(out)
	if err != nil {
		return fmt.Errorf("open corpus: %w", err)
	}
	defer func() { _ = store.Close() }()

	// Pass nil interface (not typed nil pointer) when progress is off.
	var progress corpusuc.Progress
	if p := newProgress(buildProgress); p != nil {
		progress = p
	}

	builder := corpusuc.NewBuilder(newRecognizer(cfg, logger), newEmbedder(cfg, logger), store, progress, logger)

	start := time.Now()
	report, err := builder.Build(cmd.Context(), opts)
	if err != nil {
		return fmt.Errorf("build corpus: %w", err)
	}

	logger.Info("Corpus built",
		zap.String("out", out),
		zap.Int("indexed", report.Indexed),
		zap.Duration("duration", time.Since(start)),
	)

	w := cmd.OutOrStdout()
	_, _ = fmt.Fprintf(w, "Indexed %d of %d files into %s (dim %d, %s)\n",
		report.Indexed, report.Discovered, out, report.Dim, time.Since(start).Round(time.Millisecond))
	if report.Empty > 0 || report.Failed > 0 {
		_, _ = fmt.Fprintf(w, "Skipped: %d without text, %d failed\n", report.Empty, report.Failed)
	}
	printLabels(cmd, report.PerLabel)
	return nil
}

func printLabels(cmd *cobra.Command, perLabel map[string]int) {
	labels := make([]string, 0, len(perLabel))
	for l := range perLabel {
		labels = append(labels, l)
	}
	sort.Strings(labels)
	for _, l := range labels {
		_, _ = fmt.Fprintf(cmd.OutOrStdout(), "  %-20s %d\n", l, perLabel[l])
	}
}

func firstNonEmpty(vals ...string) string {
	for _, v := range vals {
		if v != "" {
			return v
		}
	}
	return ""
}
