package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func validConfig() Config {
	cfg := Config{
		HTTP:      HTTPConfig{Port: 8000},
		Embedding: EmbeddingConfig{BaseURL: "http://localhost:11434/v1", Model: "all-minilm"},
	}
	cfg.ApplyDefaults()
	return cfg
}

func TestValidate_OK(t *testing.T) {
	cfg := validConfig()
	if err := cfg.Validate(); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
}

func TestValidate_Errors(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Config)
		want   string
	}{
		{"invalid port", func(c *Config) { c.HTTP.Port = 70000 }, "http.port"},
		{"missing embedding url", func(c *Config) { c.Embedding.BaseURL = "" }, "embedding.base_url"},
		{"missing embedding model", func(c *Config) { c.Embedding.Model = "" }, "embedding.model"},
		{"unknown llm provider", func(c *Config) { c.LLM.Provider = "bard" }, `llm.provider must be "ollama" or "openai", got "bard"`},
		{"missing llm model", func(c *Config) { c.LLM.Provider = "openai"; c.LLM.Model = "" }, "llm.model"},
		{"negative cache ttl", func(c *Config) { c.Cache.TTLHours = -1 }, "cache.ttl_hours"},
		{"min confidence out of range", func(c *Config) { c.Classifier.MinConfidence = 1.5 }, "classifier.min_confidence"},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			cfg := validConfig()
			tc.mutate(&cfg)
			err := cfg.Validate()
			if err == nil {
				t.Fatal("expected error")
			}
			if !strings.Contains(err.Error(), tc.want) {
				t.Errorf("error %q does not mention %q", err.Error(), tc.want)
			}
		})
	}
}

func TestApplyDefaults(t *testing.T) {
	cfg := Config{}
	cfg.ApplyDefaults()

	if cfg.Classifier.TopK != 3 {
		t.Errorf("expected TopK=3, got %d", cfg.Classifier.TopK)
	}
	if cfg.Classifier.MinConfidence != 0 {
		t.Errorf("confidence floor must default to disabled, got %v", cfg.Classifier.MinConfidence)
	}
	if cfg.LLM.Provider != "ollama" || cfg.LLM.Model != "llama3.2" {
		t.Errorf("unexpected llm defaults: %+v", cfg.LLM)
	}
	if strings.Join(cfg.Pipeline.AllowedExtensions, ",") != "pdf,png,jpg,jpeg" {
		t.Errorf("unexpected allow-list: %v", cfg.Pipeline.AllowedExtensions)
	}
	if cfg.OCR.DPI != 300 || cfg.OCR.Tesseract != "tesseract" {
		t.Errorf("unexpected ocr defaults: %+v", cfg.OCR)
	}
	if cfg.Cache.KeyPrefix != "docextract:" {
		t.Errorf("expected KeyPrefix=docextract:, got %s", cfg.Cache.KeyPrefix)
	}
	if cfg.HTTP.MaxUploadMB != 32 {
		t.Errorf("expected MaxUploadMB=32, got %d", cfg.HTTP.MaxUploadMB)
	}
}

func TestApplyDefaults_NoOverride(t *testing.T) {
	cfg := Config{
		HTTP:       HTTPConfig{ReadTimeoutSec: 5},
		LLM:        LLMConfig{Provider: "openai", Model: "gpt-4o-mini"},
		Classifier: ClassifierConfig{TopK: 1, MinConfidence: 0.4},
		OCR:        OCRConfig{Languages: "deu"},
	}
	cfg.ApplyDefaults()

	if cfg.HTTP.ReadTimeoutSec != 5 {
		t.Errorf("expected ReadTimeoutSec=5, got %d", cfg.HTTP.ReadTimeoutSec)
	}
	if cfg.LLM.Model != "gpt-4o-mini" {
		t.Errorf("llm model overridden: %s", cfg.LLM.Model)
	}
	if cfg.Classifier.TopK != 1 || cfg.Classifier.MinConfidence != 0.4 {
		t.Errorf("classifier overridden: %+v", cfg.Classifier)
	}
	if cfg.OCR.Languages != "deu" {
		t.Errorf("languages overridden: %s", cfg.OCR.Languages)
	}
}

func TestExpandEnvVars(t *testing.T) {
	t.Setenv("DOCEXTRACT_TEST_KEY", "secret")

	in := []byte("a: ${DOCEXTRACT_TEST_KEY}\nb: ${DOCEXTRACT_TEST_MISSING:-fallback}\nc: ${DOCEXTRACT_TEST_MISSING}")
	got := string(expandEnvVars(in))
	want := "a: secret\nb: fallback\nc: "
	if got != want {
		t.Errorf("expandEnvVars = %q, want %q", got, want)
	}
}

func TestLoadFile(t *testing.T) {
	t.Setenv("DOCEXTRACT_TEST_LLM_MODEL", "mistral")
	path := filepath.Join(t.TempDir(), "test.yaml")
	data := `
http:
  port: 9000
embedding:
  base_url: http://localhost:11434/v1
  model: nomic-embed-text
llm:
  provider: ollama
  model: ${DOCEXTRACT_TEST_LLM_MODEL:-llama3.2}
classifier:
  min_confidence: 0.35
`
	if err := os.WriteFile(path, []byte(data), 0o600); err != nil {
		t.Fatal(err)
	}

	cfg, err := LoadFile(path)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if cfg.HTTP.Port != 9000 || cfg.LLM.Model != "mistral" || cfg.Classifier.MinConfidence != 0.35 {
		t.Errorf("unexpected config: %+v", cfg)
	}
	if cfg.Classifier.TopK != 3 {
		t.Errorf("defaults not applied: TopK=%d", cfg.Classifier.TopK)
	}
}

func TestLoadFile_Invalid(t *testing.T) {
	path := filepath.Join(t.TempDir(), "bad.yaml")
	if err := os.WriteFile(path, []byte("http:\n  port: 0\n"), 0o600); err != nil {
		t.Fatal(err)
	}
	if _, err := LoadFile(path); err == nil {
		t.Fatal("expected validation error")
	}
}

func TestApplyDefaults_DropsBlankAPIKeys(t *testing.T) {
	tests := []struct {
		name string
		keys []string
		want []string
	}{
		{"all blank disables auth", []string{"", "  "}, nil},
		{"keeps set keys", []string{"primary", "", " secondary "}, []string{"primary", "secondary"}},
		{"nil stays nil", nil, nil},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			cfg := Config{Auth: AuthConfig{APIKeys: tc.keys}}
			cfg.ApplyDefaults()
			if len(cfg.Auth.APIKeys) != len(tc.want) {
				t.Fatalf("APIKeys = %q, want %q", cfg.Auth.APIKeys, tc.want)
			}
			for i := range tc.want {
				if cfg.Auth.APIKeys[i] != tc.want[i] {
					t.Errorf("APIKeys[%d] = %q, want %q", i, cfg.Auth.APIKeys[i], tc.want[i])
				}
			}
		})
	}
}
