package openai

import (
	"context"
	"fmt"
	"time"

	openai "github.com/sashabaranov/go-openai"
	"go.uber.org/zap"

	"github.com/kailas-cloud/docextract/internal/domain"
	"github.com/kailas-cloud/docextract/internal/metrics"
)

// ChatModel is a chat provider using the OpenAI-compatible /chat/completions API.
type ChatModel struct {
	client   *openai.Client
	model    string
	provider string
	logger   *zap.Logger
}

// NewChatModel creates an OpenAI-compatible chat provider. cfg.Model is the
// default used when a request leaves Model empty.
func NewChatModel(cfg *Config) *ChatModel {
	logger := cfg.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	return &ChatModel{
		client:   newClient(cfg),
		model:    cfg.Model,
		provider: cfg.Provider,
		logger:   logger,
	}
}

// Chat implements domain.ChatModel. Format "json" maps to response_format json_object.
func (c *ChatModel) Chat(ctx context.Context, req domain.ChatRequest) (domain.ChatResponse, error) {
	model := req.Model
	if model == "" {
		model = c.model
	}

	msgs := make([]openai.ChatCompletionMessage, len(req.Messages))
	for i, m := range req.Messages {
		msgs[i] = openai.ChatCompletionMessage{Role: m.Role, Content: m.Content}
	}
	creq := openai.ChatCompletionRequest{
		Model:    model,
		Messages: msgs,
	}
	if req.Format == "json" {
		creq.ResponseFormat = &openai.ChatCompletionResponseFormat{
			Type: openai.ChatCompletionResponseFormatTypeJSONObject,
		}
	}

	start := time.Now()
	resp, err := c.client.CreateChatCompletion(ctx, creq)
	duration := time.Since(start)

	if err != nil {
		metrics.ChatRequestsTotal.WithLabelValues(c.provider, model, "error").Inc()
		return domain.ChatResponse{}, parseAPIError(err, domain.ErrModelProvider)
	}
	if len(resp.Choices) == 0 {
		metrics.ChatRequestsTotal.WithLabelValues(c.provider, model, "error").Inc()
		return domain.ChatResponse{}, fmt.Errorf("empty chat response: %w", domain.ErrModelProvider)
	}

	metrics.ChatRequestsTotal.WithLabelValues(c.provider, model, "success").Inc()
	metrics.ChatRequestDuration.WithLabelValues(c.provider, model).Observe(duration.Seconds())
	metrics.ChatTokensTotal.WithLabelValues(c.provider, model, "prompt").Add(float64(resp.Usage.PromptTokens))
	metrics.ChatTokensTotal.WithLabelValues(c.provider, model, "completion").Add(float64(resp.Usage.CompletionTokens))

	c.logger.Debug("Chat completion",
		zap.String("model", model),
		zap.Duration("duration", duration),
		zap.String("finish_reason", string(resp.Choices[0].FinishReason)),
	)

	return domain.ChatResponse{
		Content:          resp.Choices[0].Message.Content,
		PromptTokens:     resp.Usage.PromptTokens,
		CompletionTokens: resp.Usage.CompletionTokens,
	}, nil
}

// HealthCheck verifies API availability via ListModels.
func (c *ChatModel) HealthCheck(ctx context.Context) error {
	if _, err := c.client.ListModels(ctx); err != nil {
		return fmt.Errorf("list models: %w", err)
	}
	return nil
}
