package main

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	corpusrepo "github.com/kailas-cloud/docextract/internal/repository/corpus"
	"github.com/kailas-cloud/docextract/internal/usecase/classify"
)

var (
	classifyCorpus string
	classifyTopK   int
)

func init() {
	classifyCmd.Flags().StringVar(&classifyCorpus, "corpus", "", "corpus sqlite file (default corpus.path)")
	classifyCmd.Flags().IntVar(&classifyTopK, "top-k", 0, "neighbours to print (default classifier.top_k)")

	statsCmd.Flags().StringVar(&classifyCorpus, "corpus", "", "corpus sqlite file (default corpus.path)")
}

var classifyCmd = &cobra.Command{
	Use:   "classify <file>",
	Short: "Classify one file against the corpus and print the nearest neighbours",
	Args:  cobra.ExactArgs(1),
	RunE:  runClassify,
}

var statsCmd = &cobra.Command{
	Use:   "stats",
	Short: "Print corpus metadata and per-label counts",
	Args:  cobra.NoArgs,
	RunE:  runStats,
}

func runClassify(cmd *cobra.Command, args []string) error {
	cfg, logger, err := setup()
	if err != nil {
		return err
	}
	defer func() { _ = logger.Sync() }()

	store, err := corpusrepo.Open(firstNonEmpty(classifyCorpus, cfg.Corpus.Path))
	if err != nil {
		return fmt.Errorf("open corpus: %w", err)
	}
	idx, _, err := store.Load(cmd.Context())
	_ = store.Close()
	if err != nil {
		return fmt.Errorf("load corpus: %w", err)
	}

	text, err := newRecognizer(cfg, logger).Recognize(cmd.Context(), args[0])
	if err != nil {
		return fmt.Errorf("recognize %s: %w", args[0], err)
	}
	if strings.TrimSpace(text) == "" {
		return fmt.Errorf("no text found in %s", args[0])
	}

	topK := classifyTopK
	if topK <= 0 {
		topK = cfg.Classifier.TopK
	}
	res, err := classify.New(newEmbedder(cfg, logger), idx).Classify(cmd.Context(), text, topK)
	if err != nil {
		return fmt.Errorf("classify: %w", err)
	}

	w := cmd.OutOrStdout()
	_, _ = fmt.Fprintf(w, "%s\t%.4f\n", res.Label(), res.Confidence())
	for i, h := range res.Hits() {
		_, _ = fmt.Fprintf(w, "  %d. %-12s %.4f  %s\n", i+1, h.Label, h.Score, h.SourceRef)
	}
	return nil
}

func runStats(cmd *cobra.Command, _ []string) error {
	cfg, logger, err := setup()
	if err != nil {
		return err
	}
	defer func() { _ = logger.Sync() }()

	path := firstNonEmpty(classifyCorpus, cfg.Corpus.Path)
	store, err := corpusrepo.Open(path)
	if err != nil {
		return fmt.Errorf("open corpus: %w", err)
	}
	defer func() { _ = store.Close() }()

	meta, err := store.Meta(cmd.Context())
	if err != nil {
		return fmt.Errorf("read corpus meta: %w", err)
	}
	labels, err := store.Labels(cmd.Context())
	if err != nil {
		return fmt.Errorf("read labels: %w", err)
	}

	_, _ = fmt.Fprintf(cmd.OutOrStdout(), "%s: %d documents, dim %d, model %s, built %s\n",
		path, meta.Count, meta.Dim, meta.Model, meta.BuiltAt.Format("2006-01-02 15:04:05"))
	printLabels(cmd, labels)
	return nil
}
