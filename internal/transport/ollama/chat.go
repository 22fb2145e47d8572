// Package ollama is a client for the native Ollama /api/chat endpoint.
package ollama

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/kailas-cloud/docextract/internal/domain"
	"github.com/kailas-cloud/docextract/internal/metrics"
)

const (
	defaultBaseURL = "http://localhost:11434"
	defaultTimeout = 120 * time.Second
	providerName   = "ollama"
	maxErrorBody   = 2048
)

// Config holds the Ollama client settings.
type Config struct {
	BaseURL string
	Model   string
	Timeout time.Duration
	Logger  *zap.Logger
}

// Client calls a local or remote Ollama server.
type Client struct {
	http    *http.Client
	baseURL string
	model   string
	logger  *zap.Logger
}

// New creates an Ollama chat client.
func New(cfg Config) *Client {
	baseURL := strings.TrimRight(cfg.BaseURL, "/")
	if baseURL == "" {
		baseURL = defaultBaseURL
	}
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = defaultTimeout
	}
	logger := cfg.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Client{
		http:    &http.Client{Timeout: timeout},
		baseURL: baseURL,
		model:   cfg.Model,
		logger:  logger,
	}
}

type chatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type chatRequest struct {
	Model    string        `json:"model"`
	Messages []chatMessage `json:"messages"`
	Stream   bool          `json:"stream"`
	Format   string        `json:"format,omitempty"`
}

type chatResponse struct {
	Model           string      `json:"model"`
	Message         chatMessage `json:"message"`
	Done            bool        `json:"done"`
	PromptEvalCount int         `json:"prompt_eval_count"`
	EvalCount       int         `json:"eval_count"`
	Error           string      `json:"error"`
}

// Chat implements domain.ChatModel with a single non-streaming request.
func (c *Client) Chat(ctx context.Context, req domain.ChatRequest) (domain.ChatResponse, error) {
	model := req.Model
	if model == "" {
		model = c.model
	}
	body := chatRequest{
		Model:    model,
		Messages: make([]chatMessage, len(req.Messages)),
		Stream:   false,
		Format:   req.Format,
	}
	for i, m := range req.Messages {
		body.Messages[i] = chatMessage{Role: m.Role, Content: m.Content}
	}

	start := time.Now()
	raw, status, err := c.post(ctx, "/api/chat", body)
	duration := time.Since(start)
	if err != nil {
		metrics.ChatRequestsTotal.WithLabelValues(providerName, model, "error").Inc()
		c.logger.Warn("Ollama chat failed",
			zap.String("model", model),
			zap.Int("status", status),
			zap.Duration("duration", duration),
			zap.Error(err),
		)
		return domain.ChatResponse{}, fmt.Errorf("%w: %w", domain.ErrModelProvider, err)
	}

	var resp chatResponse
	if err := json.Unmarshal(raw, &resp); err != nil {
		metrics.ChatRequestsTotal.WithLabelValues(providerName, model, "error").Inc()
		return domain.ChatResponse{}, fmt.Errorf("%w: decode chat envelope: %w", domain.ErrModelProvider, err)
	}
	if resp.Error != "" {
		metrics.ChatRequestsTotal.WithLabelValues(providerName, model, "error").Inc()
		return domain.ChatResponse{}, fmt.Errorf("%w: %s", domain.ErrModelProvider, resp.Error)
	}

	metrics.ChatRequestsTotal.WithLabelValues(providerName, model, "success").Inc()
	metrics.ChatRequestDuration.WithLabelValues(providerName, model).Observe(duration.Seconds())
	metrics.ChatTokensTotal.WithLabelValues(providerName, model, "prompt").Add(float64(resp.PromptEvalCount))
	metrics.ChatTokensTotal.WithLabelValues(providerName, model, "completion").Add(float64(resp.EvalCount))

	c.logger.Debug("Ollama chat completed",
		zap.String("model", model),
		zap.Duration("duration", duration),
		zap.Int("bytes", len(resp.Message.Content)),
	)

	return domain.ChatResponse{
		Content:          resp.Message.Content,
		PromptTokens:     resp.PromptEvalCount,
		CompletionTokens: resp.EvalCount,
	}, nil
}

// HealthCheck verifies the server answers /api/tags.
func (c *Client) HealthCheck(ctx context.Context) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/api/tags", http.NoBody)
	if err != nil {
		return fmt.Errorf("build request: %w", err)
	}
	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("list tags: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()
	_, _ = io.Copy(io.Discard, resp.Body)
	if resp.StatusCode/100 != 2 {
		return fmt.Errorf("list tags: status %d", resp.StatusCode)
	}
	return nil
}

// post sends body as JSON and returns the raw response body.
func (c *Client) post(ctx context.Context, path string, body any) ([]byte, int, error) {
	bs, err := json.Marshal(body)
	if err != nil {
		return nil, 0, fmt.Errorf("encode json: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+path, bytes.NewReader(bs))
	if err != nil {
		return nil, 0, fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, 0, fmt.Errorf("send request: %w", err)
	}
	defer func() {
		if cerr := resp.Body.Close(); cerr != nil {
			c.logger.Warn("Failed to close response body", zap.Error(cerr))
		}
	}()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, resp.StatusCode, fmt.Errorf("read response: %w", err)
	}
	if resp.StatusCode/100 != 2 {
		if len(raw) > maxErrorBody {
			raw = raw[:maxErrorBody]
		}
		return nil, resp.StatusCode, fmt.Errorf("non-2xx status %d: %s", resp.StatusCode, bytes.TrimSpace(raw))
	}
	return raw, resp.StatusCode, nil
}
