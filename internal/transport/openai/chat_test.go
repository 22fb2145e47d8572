package openai

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"go.uber.org/zap"

	"github.com/kailas-cloud/docextract/internal/domain"
)

func newTestChat(baseURL string) *ChatModel {
	return NewChatModel(&Config{
		APIKey:   "test-key",
		BaseURL:  baseURL,
		Model:    "gpt-4o-mini",
		Provider: "test",
		Logger:   zap.NewNop(),
	})
}

func TestChatModel_Chat(t *testing.T) {
	var got map[string]any
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/chat/completions" {
			t.Errorf("unexpected path: %s", r.URL.Path)
		}
		if err := json.NewDecoder(r.Body).Decode(&got); err != nil {
			t.Errorf("decode request: %v", err)
		}
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(map[string]any{
			"id":     "chatcmpl-1",
			"object": "chat.completion",
			"model":  "gpt-4o-mini",
			"choices": []map[string]any{{
				"index":         0,
				"finish_reason": "stop",
				"message":       map[string]any{"role": "assistant", "content": `{"subject": {"value": "Meeting", "confidence": 0.8}}`},
			}},
			"usage": map[string]any{"prompt_tokens": 30, "completion_tokens": 12, "total_tokens": 42},
		})
	}))
	defer srv.Close()

	resp, err := newTestChat(srv.URL).Chat(context.Background(), domain.ChatRequest{
		Messages: []domain.ChatMessage{{Role: domain.RoleUser, Content: "extract"}},
		Format:   "json",
	})
	if err != nil {
		t.Fatalf("Chat failed: %v", err)
	}
	if resp.Content != `{"subject": {"value": "Meeting", "confidence": 0.8}}` {
		t.Errorf("Content = %q", resp.Content)
	}
	if resp.PromptTokens != 30 || resp.CompletionTokens != 12 {
		t.Errorf("usage = %d/%d", resp.PromptTokens, resp.CompletionTokens)
	}

	if got["model"] != "gpt-4o-mini" {
		t.Errorf("model = %v, want default model", got["model"])
	}
	rf, _ := got["response_format"].(map[string]any)
	if rf["type"] != "json_object" {
		t.Errorf("response_format = %v, want json_object", got["response_format"])
	}
	if stream, ok := got["stream"]; ok && stream != false {
		t.Errorf("stream = %v, want false", stream)
	}
}

func TestChatModel_NoChoices(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"id": "x", "choices": []}`))
	}))
	defer srv.Close()

	_, err := newTestChat(srv.URL).Chat(context.Background(), domain.ChatRequest{Model: "m"})
	if !errors.Is(err, domain.ErrModelProvider) {
		t.Fatalf("expected ErrModelProvider, got %v", err)
	}
}

func TestChatModel_APIError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusBadGateway)
		_, _ = w.Write([]byte(`{"detail": "upstream unavailable"}`))
	}))
	defer srv.Close()

	_, err := newTestChat(srv.URL).Chat(context.Background(), domain.ChatRequest{Model: "m"})
	if !errors.Is(err, domain.ErrModelProvider) {
		t.Fatalf("expected ErrModelProvider, got %v", err)
	}
	if errors.Is(err, domain.ErrEmbeddingProviderError) {
		t.Error("chat errors must not be tagged as embedding errors")
	}
}
