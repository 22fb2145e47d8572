// Package main implements docindex, the corpus builder and classification probe for docextract.
package main

import (
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/kailas-cloud/docextract/internal/config"
	"github.com/kailas-cloud/docextract/internal/domain"
	logpkg "github.com/kailas-cloud/docextract/internal/logger"
	openaiTransport "github.com/kailas-cloud/docextract/internal/transport/openai"
	"github.com/kailas-cloud/docextract/internal/transport/tesseract"
	embeddinguc "github.com/kailas-cloud/docextract/internal/usecase/embedding"
	"github.com/kailas-cloud/docextract/internal/version"
)

var (
	configPath string
	envName    string
	verbose    bool
)

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

var rootCmd = &cobra.Command{
	Use:   "docindex",
	Short: "Build and probe the docextract reference corpus",
	Long: `docindex builds the labelled reference corpus that docextract classifies against.

The corpus root holds one directory per document type:

  docs/
    invoice/  a.pdf b.png
    receipt/  r1.jpg
    memo/     m1.pdf

Every file is recognized, encoded and stored with its directory name as label.`,
	Version:       version.Version,
	SilenceUsage:  true,
	SilenceErrors: false,
}

func init() {
	rootCmd.PersistentFlags().StringVar(&configPath, "config", "", "config file (default config/<env>.yaml)")
	rootCmd.PersistentFlags().StringVar(&envName, "env", config.GetEnv(), "environment name used to locate the config")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "debug logging")
	rootCmd.AddCommand(buildCmd)
	rootCmd.AddCommand(classifyCmd)
	rootCmd.AddCommand(statsCmd)
}

// setup loads config and a logger shared by every subcommand.
func setup() (config.Config, *zap.Logger, error) {
	var (
		cfg config.Config
		err error
	)
	if configPath != "" {
		cfg, err = config.LoadFile(configPath)
	} else {
		cfg, err = config.Load(envName)
	}
	if err != nil {
		return config.Config{}, nil, fmt.Errorf("load config: %w", err)
	}

	level := cfg.Logging.Level
	if verbose {
		level = "debug"
	} else if level == "" || level == "debug" {
		level = "warn"
	}
	logger, err := logpkg.NewLogger("local", level)
	if err != nil {
		return config.Config{}, nil, fmt.Errorf("create logger: %w", err)
	}
	return cfg, logger, nil
}

func newRecognizer(cfg config.Config, logger *zap.Logger) *tesseract.Recognizer {
	return tesseract.New(tesseract.Config{
		Tesseract:   cfg.OCR.Tesseract,
		Pdftoppm:    cfg.OCR.Pdftoppm,
		Languages:   cfg.OCR.Languages,
		TessdataDir: cfg.OCR.TessdataDir,
		DPI:         cfg.OCR.DPI,
		MaxPages:    cfg.OCR.MaxPages,
	}, tesseract.ExecRunner{Logger: logger}, logger)
}

// newEmbedder builds OpenAI -> Instrumented -> Normalized. The corpus build
// talks to the provider directly; the cache only pays off for the server.
func newEmbedder(cfg config.Config, logger *zap.Logger) domain.Embedder {
	base := openaiTransport.NewEmbedder(&openaiTransport.Config{
		APIKey:     cfg.Embedding.APIKey,
		BaseURL:    cfg.Embedding.BaseURL,
		Model:      cfg.Embedding.Model,
		Dimensions: cfg.Embedding.Dimensions,
		Provider:   cfg.Embedding.Provider,
		Timeout:    time.Duration(cfg.Embedding.TimeoutSec) * time.Second,
		Logger:     logger,
	})
	inst := embeddinguc.NewInstrumentedEmbedder(base, cfg.Embedding.Provider, cfg.Embedding.Model, logger)
	return embeddinguc.NewNormalizedEmbedder(inst)
}
