package extract

import (
	"context"
	"errors"
	"fmt"
	"sort"

	"github.com/santhosh-tekuri/jsonschema/v5"
	"go.uber.org/zap"

	"github.com/kailas-cloud/docextract/internal/domain"
	"github.com/kailas-cloud/docextract/internal/domain/extraction"
	"github.com/kailas-cloud/docextract/internal/logger"
)

// FormatJSON asks the chat provider for a JSON object body.
const FormatJSON = "json"

// Service extracts schema-declared fields from recognized text with a chat model.
type Service struct {
	registry Registry
	chat     domain.ChatModel
	model    string
	entry    *jsonschema.Schema
}

// New creates an extractor. model is passed through to the chat provider.
func New(registry Registry, chat domain.ChatModel, model string) (*Service, error) {
	entry, err := compileEntrySchema()
	if err != nil {
		return nil, fmt.Errorf("entry schema: %w", err)
	}
	return &Service{
		registry: registry,
		chat:     chat,
		model:    model,
		entry:    entry,
	}, nil
}

// Extract returns one field per declared schema field for docType.
// A body that is not a JSON object fails with *MalformedResponseError.
// No retries are made.
func (s *Service) Extract(ctx context.Context, docType, text string) (extraction.Result, error) {
	fields, err := s.registry.FieldsFor(docType)
	if err != nil {
		return extraction.Result{}, err
	}

	resp, err := s.chat.Chat(ctx, domain.ChatRequest{
		Model: s.model,
		Messages: []domain.ChatMessage{
			{Role: domain.RoleUser, Content: BuildPrompt(docType, fields, text)},
		},
		Format: FormatJSON,
	})
	if err != nil {
		if errors.Is(err, domain.ErrModelProvider) {
			return extraction.Result{}, fmt.Errorf("chat: %w", err)
		}
		return extraction.Result{}, fmt.Errorf("%w: %w", domain.ErrModelProvider, err)
	}

	parsed, err := parseObject(resp.Content)
	if err != nil {
		return extraction.Result{}, err
	}

	res, dropped := reconcile(s.entry, fields, parsed)
	if len(dropped) > 0 {
		sort.Strings(dropped)
		logger.FromContext(ctx).Debug("Dropped undeclared fields",
			zap.String("document_type", docType),
			zap.Strings("fields", dropped),
		)
	}
	return res, nil
}
