package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"

	"github.com/kailas-cloud/docextract/internal/config"
	dbRedis "github.com/kailas-cloud/docextract/internal/db/redis"
	"github.com/kailas-cloud/docextract/internal/domain"
	logpkg "github.com/kailas-cloud/docextract/internal/logger"
	"github.com/kailas-cloud/docextract/internal/metrics"
	corpusrepo "github.com/kailas-cloud/docextract/internal/repository/corpus"
	"github.com/kailas-cloud/docextract/internal/repository/embcache"
	"github.com/kailas-cloud/docextract/internal/repository/schemafile"
	chiTransport "github.com/kailas-cloud/docextract/internal/transport/chi"
	"github.com/kailas-cloud/docextract/internal/transport/ollama"
	openaiTransport "github.com/kailas-cloud/docextract/internal/transport/openai"
	"github.com/kailas-cloud/docextract/internal/transport/tesseract"
	"github.com/kailas-cloud/docextract/internal/usecase/classify"
	embeddinguc "github.com/kailas-cloud/docextract/internal/usecase/embedding"
	"github.com/kailas-cloud/docextract/internal/usecase/extract"
	healthuc "github.com/kailas-cloud/docextract/internal/usecase/health"
	"github.com/kailas-cloud/docextract/internal/usecase/pipeline"
	"github.com/kailas-cloud/docextract/internal/version"
)

func main() {
	env := config.GetEnv()

	cfg, err := config.Load(env)
	if err != nil {
		panic("failed to load config: " + err.Error())
	}

	logger, err := logpkg.NewLogger(env, cfg.Logging.Level)
	if err != nil {
		panic("failed to create logger: " + err.Error())
	}
	defer func() { _ = logger.Sync() }()

	logger.Info("Starting docextract API server",
		zap.String("version", version.Version),
		zap.String("commit", version.Commit),
		zap.String("env", env),
		zap.Int("http_port", cfg.HTTP.Port),
		zap.String("llm_provider", cfg.LLM.Provider),
		zap.String("llm_model", cfg.LLM.Model),
		zap.String("embedding_model", cfg.Embedding.Model),
	)

	// Register metrics explicitly (no init())
	metrics.RegisterHTTPMetrics()
	metrics.RegisterEmbeddingMetrics()
	metrics.RegisterChatMetrics()
	metrics.RegisterPipelineMetrics()

	ctx := context.Background()

	// Optional embedding cache
	var cache *dbRedis.Store
	if len(cfg.Cache.Addrs) > 0 {
		cache, err = dbRedis.NewStore(dbRedis.Config{
			Addrs:    cfg.Cache.Addrs,
			Password: cfg.Cache.Password,
		})
		if err != nil {
			logger.Fatal("Failed to create cache store", zap.Error(err))
		}
		defer cache.Close()

		if err := cache.WaitForReady(ctx, time.Duration(cfg.Cache.ReadinessTimeout)*time.Second); err != nil {
			logger.Fatal("Cache not ready", zap.Error(err))
		}
		logger.Info("Connected to embedding cache", zap.Strings("addrs", cfg.Cache.Addrs))
	}

	baseEmbedder := openaiTransport.NewEmbedder(&openaiTransport.Config{
		APIKey:     cfg.Embedding.APIKey,
		BaseURL:    cfg.Embedding.BaseURL,
		Model:      cfg.Embedding.Model,
		Dimensions: cfg.Embedding.Dimensions,
		Provider:   cfg.Embedding.Provider,
		Timeout:    time.Duration(cfg.Embedding.TimeoutSec) * time.Second,
		Logger:     logger,
	})
	embedder := buildEmbedder(cfg, baseEmbedder, cache, logger)

	// Corpus snapshot -> in-memory index
	corpusStore, err := corpusrepo.Open(cfg.Corpus.Path)
	if err != nil {
		logger.Fatal("Failed to open corpus", zap.String("path", cfg.Corpus.Path), zap.Error(err))
	}
	idx, meta, err := corpusStore.Load(ctx)
	if err != nil {
		logger.Fatal("Failed to load corpus", zap.String("path", cfg.Corpus.Path), zap.Error(err))
	}
	_ = corpusStore.Close()
	if meta.Model != "" && meta.Model != cfg.Embedding.Model {
		logger.Warn("Corpus was built with a different embedding model",
			zap.String("corpus_model", meta.Model),
			zap.String("configured_model", cfg.Embedding.Model),
		)
	}
	logger.Info("Corpus loaded",
		zap.Int("documents", meta.Count),
		zap.Int("dimensions", meta.Dim),
		zap.Time("built_at", meta.BuiltAt),
	)

	classifier := classify.New(embedder, idx).WithMinConfidence(cfg.Classifier.MinConfidence)
	if err := classifier.Validate(ctx); err != nil {
		logger.Fatal("Classifier validation failed", zap.Error(err))
	}

	registry, err := schemafile.Load(cfg.Schema.Path)
	if err != nil {
		logger.Fatal("Failed to load extraction schema", zap.String("path", cfg.Schema.Path), zap.Error(err))
	}
	logger.Info("Extraction schema loaded", zap.Strings("types", registry.Types()))

	chat, chatHealth := buildChatModel(cfg, logger)
	extractor, err := extract.New(registry, chat, cfg.LLM.Model)
	if err != nil {
		logger.Fatal("Failed to create extractor", zap.Error(err))
	}

	recognizer := tesseract.New(tesseract.Config{
		Tesseract:   cfg.OCR.Tesseract,
		Pdftoppm:    cfg.OCR.Pdftoppm,
		Languages:   cfg.OCR.Languages,
		TessdataDir: cfg.OCR.TessdataDir,
		DPI:         cfg.OCR.DPI,
		MaxPages:    cfg.OCR.MaxPages,
	}, tesseract.ExecRunner{Logger: logger}, logger)

	orchestrator := pipeline.New(recognizer, classifier, extractor, pipeline.Options{
		TopK:           cfg.Classifier.TopK,
		MaxConcurrency: cfg.Pipeline.MaxConcurrency,
		MaxBatchSize:   cfg.Pipeline.MaxBatchSize,
		Extensions:     cfg.Pipeline.AllowedExtensions,
	}, pipeline.Metrics{
		Runs:          metrics.PipelineRunsTotal,
		PhaseDuration: metrics.PipelinePhaseDuration,
	}, logger)

	// Pass nil interface (not typed nil pointer) when the cache is disabled.
	var cachePinger healthuc.CachePinger
	if cache != nil {
		cachePinger = cache
	}
	healthSvc := healthuc.New(cachePinger, baseEmbedder, chatHealth, idx)

	server := chiTransport.NewServer(orchestrator, healthSvc, chiTransport.Config{
		UploadDir:      cfg.Pipeline.UploadDir,
		MaxUploadBytes: int64(cfg.HTTP.MaxUploadMB) << 20,
	}, logger)

	addr := fmt.Sprintf(":%d", cfg.HTTP.Port)
	srv := &http.Server{
		Addr:         addr,
		Handler:      chiTransport.NewRouter(server, cfg.Auth.APIKeys, logger),
		ReadTimeout:  time.Duration(cfg.HTTP.ReadTimeoutSec) * time.Second,
		WriteTimeout: time.Duration(cfg.HTTP.WriteTimeoutSec) * time.Second,
	}

	// Graceful shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, os.Interrupt, syscall.SIGTERM)

	go func() {
		logger.Info("Starting HTTP server", zap.String("addr", addr))
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Fatal("HTTP server error", zap.Error(err))
		}
	}()

	<-quit
	logger.Info("Received shutdown signal")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), time.Duration(cfg.HTTP.ShutdownSec)*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("Error during shutdown", zap.Error(err))
	}

	logger.Info("Server stopped gracefully")
}

// buildEmbedder assembles the decorator chain: OpenAI -> Cached -> Instrumented -> Normalized.
func buildEmbedder(
	cfg config.Config,
	base *openaiTransport.Embedder,
	cache *dbRedis.Store,
	logger *zap.Logger,
) domain.Embedder {
	var embedder domain.Embedder = base
	if cache != nil {
		embedder = embcache.New(base, cache, embcache.Config{
			KeyPrefix: cfg.Cache.KeyPrefix,
			Model:     cfg.Embedding.Model,
			TTL:       time.Duration(cfg.Cache.TTLHours) * time.Hour,
		}, metrics.EmbeddingCacheTotal, logger)
	}

	embedder = embeddinguc.NewInstrumentedEmbedder(embedder, cfg.Embedding.Provider, cfg.Embedding.Model, logger)

	return embeddinguc.NewNormalizedEmbedder(embedder)
}

// chatModel is a generative model that can also report its health.
type chatModel interface {
	domain.ChatModel
	domain.HealthChecker
}

func buildChatModel(cfg config.Config, logger *zap.Logger) (domain.ChatModel, domain.HealthChecker) {
	timeout := time.Duration(cfg.LLM.TimeoutSec) * time.Second

	var m chatModel
	switch cfg.LLM.Provider {
	case "openai":
		m = openaiTransport.NewChatModel(&openaiTransport.Config{
			APIKey:   cfg.LLM.APIKey,
			BaseURL:  cfg.LLM.BaseURL,
			Model:    cfg.LLM.Model,
			Provider: "openai",
			Timeout:  timeout,
			Logger:   logger,
		})
	default:
		m = ollama.New(ollama.Config{
			BaseURL: cfg.LLM.BaseURL,
			Model:   cfg.LLM.Model,
			Timeout: timeout,
			Logger:  logger,
		})
	}
	return m, m
}
