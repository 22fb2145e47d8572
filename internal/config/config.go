package config

import (
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"runtime"
	"strings"

	"gopkg.in/yaml.v3"
)

// Config holds the docextract configuration.
type Config struct {
	HTTP       HTTPConfig       `yaml:"http"`
	Auth       AuthConfig       `yaml:"auth"`
	Embedding  EmbeddingConfig  `yaml:"embedding"`
	LLM        LLMConfig        `yaml:"llm"`
	Cache      CacheConfig      `yaml:"cache"`
	Corpus     CorpusConfig     `yaml:"corpus"`
	Schema     SchemaConfig     `yaml:"schema"`
	Classifier ClassifierConfig `yaml:"classifier"`
	Pipeline   PipelineConfig   `yaml:"pipeline"`
	OCR        OCRConfig        `yaml:"ocr"`
	Logging    LoggingConfig    `yaml:"logging"`
}

// LoggingConfig holds logging settings.
type LoggingConfig struct {
	Level string `yaml:"level"` // debug, info, warn, error (default: determined by env)
}

// HTTPConfig holds HTTP server settings.
type HTTPConfig struct {
	Port            int `yaml:"port"`
	ReadTimeoutSec  int `yaml:"read_timeout_sec"`
	WriteTimeoutSec int `yaml:"write_timeout_sec"`
	ShutdownSec     int `yaml:"shutdown_timeout_sec"`
	MaxUploadMB     int `yaml:"max_upload_mb"`
}

// AuthConfig holds API authentication settings.
type AuthConfig struct {
	APIKeys []string `yaml:"api_keys"` // empty = auth disabled
}

// EmbeddingConfig holds the text encoder settings (OpenAI-compatible /embeddings).
type EmbeddingConfig struct {
	Provider   string `yaml:"provider"` // metrics label only
	BaseURL    string `yaml:"base_url"`
	APIKey     string `yaml:"api_key"`
	Model      string `yaml:"model"`
	Dimensions int    `yaml:"dimensions"`
	TimeoutSec int    `yaml:"timeout_sec"`
}

// LLMConfig holds the generative chat model settings.
type LLMConfig struct {
	Provider   string `yaml:"provider"` // ollama | openai
	BaseURL    string `yaml:"base_url"`
	APIKey     string `yaml:"api_key"`
	Model      string `yaml:"model"`
	TimeoutSec int    `yaml:"timeout_sec"`
}

// CacheConfig holds the Redis/Valkey embedding cache settings. Empty Addrs disables the cache.
type CacheConfig struct {
	Addrs            []string `yaml:"addrs"`
	Password         string   `yaml:"password"`
	KeyPrefix        string   `yaml:"key_prefix"`
	ReadinessTimeout int      `yaml:"readiness_timeout_sec"`
	TTLHours         int      `yaml:"ttl_hours"` // 0 = no expiry
}

// CorpusConfig locates the corpus snapshot and controls how it is built.
type CorpusConfig struct {
	Path      string   `yaml:"path"`
	Root      string   `yaml:"root"`
	Include   []string `yaml:"include"`
	Exclude   []string `yaml:"exclude"`
	BatchSize int      `yaml:"batch_size"`
}

// SchemaConfig locates the extraction schema resource.
type SchemaConfig struct {
	Path string `yaml:"path"`
}

// ClassifierConfig holds nearest-neighbour settings.
type ClassifierConfig struct {
	TopK          int     `yaml:"top_k"`
	MinConfidence float64 `yaml:"min_confidence"` // 0 = disabled
}

// PipelineConfig holds orchestrator settings.
type PipelineConfig struct {
	MaxConcurrency    int      `yaml:"max_concurrency"`
	MaxBatchSize      int      `yaml:"max_batch_size"`
	AllowedExtensions []string `yaml:"allowed_extensions"`
	UploadDir         string   `yaml:"upload_dir"` // "" = os.TempDir()
}

// OCRConfig holds text recognition settings.
type OCRConfig struct {
	Tesseract   string `yaml:"tesseract"`
	Pdftoppm    string `yaml:"pdftoppm"`
	Languages   string `yaml:"languages"`
	TessdataDir string `yaml:"tessdata_dir"`
	DPI         int    `yaml:"dpi"`
	MaxPages    int    `yaml:"max_pages"`
}

// Load reads configuration from a YAML file by environment name (local, dev, prod).
func Load(env string) (Config, error) {
	return LoadFile(findConfigPath(env))
}

// LoadFile reads configuration from an explicit path.
func LoadFile(configPath string) (Config, error) {
	data, err := os.ReadFile(filepath.Clean(configPath))
	if err != nil {
		return Config{}, fmt.Errorf("failed to read config %s: %w", configPath, err)
	}

	// Substitute env variables of the form ${VAR}
	data = expandEnvVars(data)

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return Config{}, fmt.Errorf("failed to parse config: %w", err)
	}

	cfg.ApplyDefaults()

	if err := cfg.Validate(); err != nil {
		return Config{}, fmt.Errorf("invalid config: %w", err)
	}

	return cfg, nil
}

// MustLoad loads configuration or panics.
func MustLoad(env string) Config {
	cfg, err := Load(env)
	if err != nil {
		panic(err)
	}
	return cfg
}

// GetEnv returns the current environment from the ENV variable, defaulting to "local".
func GetEnv() string {
	if env := os.Getenv("ENV"); env != "" {
		return env
	}
	return "local"
}

// ApplyDefaults fills empty fields with default values.
func (c *Config) ApplyDefaults() {
	if c.HTTP.ReadTimeoutSec <= 0 {
		c.HTTP.ReadTimeoutSec = 30
	}
	if c.HTTP.WriteTimeoutSec <= 0 {
		c.HTTP.WriteTimeoutSec = 300
	}
	if c.HTTP.ShutdownSec <= 0 {
		c.HTTP.ShutdownSec = 10
	}
	if c.HTTP.MaxUploadMB <= 0 {
		c.HTTP.MaxUploadMB = 32
	}
	if c.Embedding.Provider == "" {
		c.Embedding.Provider = "openai"
	}
	if c.Embedding.TimeoutSec <= 0 {
		c.Embedding.TimeoutSec = 30
	}
	if c.LLM.Provider == "" {
		c.LLM.Provider = "ollama"
	}
	if c.LLM.Model == "" && c.LLM.Provider == "ollama" {
		c.LLM.Model = "llama3.2"
	}
	if c.LLM.TimeoutSec <= 0 {
		c.LLM.TimeoutSec = 120
	}
	c.Auth.APIKeys = nonBlank(c.Auth.APIKeys)
	if c.Cache.KeyPrefix == "" {
		c.Cache.KeyPrefix = "docextract:"
	}
	if c.Cache.ReadinessTimeout <= 0 {
		c.Cache.ReadinessTimeout = 10
	}
	if c.Corpus.Path == "" {
		c.Corpus.Path = "corpus.db"
	}
	if c.Corpus.Root == "" {
		c.Corpus.Root = "docs"
	}
	if c.Corpus.BatchSize <= 0 {
		c.Corpus.BatchSize = 32
	}
	if c.Schema.Path == "" {
		c.Schema.Path = "schema/document_schema.json"
	}
	if c.Classifier.TopK <= 0 {
		c.Classifier.TopK = 3
	}
	if c.Pipeline.MaxConcurrency <= 0 {
		c.Pipeline.MaxConcurrency = 4
	}
	if c.Pipeline.MaxBatchSize <= 0 {
		c.Pipeline.MaxBatchSize = 20
	}
	if len(c.Pipeline.AllowedExtensions) == 0 {
		c.Pipeline.AllowedExtensions = []string{"pdf", "png", "jpg", "jpeg"}
	}
	if c.OCR.Tesseract == "" {
		c.OCR.Tesseract = "tesseract"
	}
	if c.OCR.Pdftoppm == "" {
		c.OCR.Pdftoppm = "pdftoppm"
	}
	if c.OCR.Languages == "" {
		c.OCR.Languages = "eng+spa"
	}
	if c.OCR.DPI <= 0 {
		c.OCR.DPI = 300
	}
	if c.OCR.MaxPages <= 0 {
		c.OCR.MaxPages = 20
	}
}

// Validate checks the configuration for correctness.
func (c *Config) Validate() error {
	if c.HTTP.Port <= 0 || c.HTTP.Port > 65535 {
		return fmt.Errorf("http.port must be between 1 and 65535, got %d", c.HTTP.Port)
	}
	if c.Embedding.BaseURL == "" {
		return fmt.Errorf("embedding.base_url is required")
	}
	if c.Embedding.Model == "" {
		return fmt.Errorf("embedding.model is required")
	}
	switch c.LLM.Provider {
	case "ollama", "openai":
		// ok
	default:
		return fmt.Errorf("llm.provider must be \"ollama\" or \"openai\", got %q", c.LLM.Provider)
	}
	if c.LLM.Model == "" {
		return fmt.Errorf("llm.model is required")
	}
	if c.Cache.TTLHours < 0 {
		return fmt.Errorf("cache.ttl_hours must not be negative, got %d", c.Cache.TTLHours)
	}
	if c.Classifier.MinConfidence < 0 || c.Classifier.MinConfidence > 1 {
		return fmt.Errorf("classifier.min_confidence must be between 0 and 1, got %v", c.Classifier.MinConfidence)
	}
	return nil
}

// nonBlank drops empty entries left by unset ${VAR} substitutions.
func nonBlank(items []string) []string {
	out := items[:0]
	for _, s := range items {
		if s = strings.TrimSpace(s); s != "" {
			out = append(out, s)
		}
	}
	if len(out) == 0 {
		return nil
	}
	return out
}

// findConfigPath locates the config file.
func findConfigPath(env string) string {
	filename := fmt.Sprintf("%s.yaml", env)

	// 1. Check ./config/
	if path := filepath.Join("config", filename); fileExists(path) {
		return path
	}

	// 2. Check relative to the source file
	_, b, _, _ := runtime.Caller(0)
	projectRoot := filepath.Dir(filepath.Dir(filepath.Dir(b))) // internal/config -> project root
	if path := filepath.Join(projectRoot, "config", filename); fileExists(path) {
		return path
	}

	// 3. Fallback to ./config/
	return filepath.Join("config", filename)
}

func fileExists(path string) bool {
	_, err := os.Stat(path)
	return err == nil
}

// expandEnvVars replaces ${VAR} and ${VAR:-default} with environment variable values.
var envVarRegex = regexp.MustCompile(`\$\{([^}]+)\}`)

func expandEnvVars(data []byte) []byte {
	return envVarRegex.ReplaceAllFunc(data, func(match []byte) []byte {
		expr := string(match[2 : len(match)-1]) // strip ${ and }
		varName, defaultVal, hasDefault := strings.Cut(expr, ":-")
		val := os.Getenv(varName)
		if val == "" && hasDefault {
			val = defaultVal
		}
		return []byte(val)
	})
}
