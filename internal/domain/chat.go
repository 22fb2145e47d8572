package domain

import "context"

// Chat roles.
const (
	RoleSystem = "system"
	RoleUser   = "user"
)

// ChatModel is the generative model contract shared by the chat providers.
type ChatModel interface {
	Chat(ctx context.Context, req ChatRequest) (ChatResponse, error)
}

// ChatMessage is one turn of a chat conversation.
type ChatMessage struct {
	Role    string
	Content string
}

// ChatRequest is a single non-streaming completion request.
// Format "json" asks the provider to constrain the body to a JSON object.
type ChatRequest struct {
	Model    string
	Messages []ChatMessage
	Format   string
}

// ChatResponse is the raw assistant message and token usage.
type ChatResponse struct {
	Content          string
	PromptTokens     int
	CompletionTokens int
}
