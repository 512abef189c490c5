// Package llm provides the generation backend the query orchestrator (C7)
// calls once retrieval has assembled a grounded context prompt.
package llm

import (
	"context"
	"fmt"
	"strings"
)

const (
	RoleSystem    = "system"
	RoleUser      = "user"
	RoleAssistant = "assistant"
)

// Message is one turn in a chat-style completion request.
type Message struct {
	Role    string
	Content string
}

// Client generates a single completion for a message list.
type Client interface {
	Generate(ctx context.Context, messages []Message) (string, error)
}

// StreamClient is implemented by backends that can emit incremental tokens.
// Not every Client implements it; callers should type-assert.
type StreamClient interface {
	Client
	GenerateStream(ctx context.Context, messages []Message, onToken func(string) error) error
}

const (
	ProviderOllama = "ollama"
	ProviderOpenAI = "openai"
)

// Options configures either backend; unused fields for the selected
// Provider are ignored.
type Options struct {
	Provider string
	Model    string

	OllamaHost    string
	OpenAIAPIKey  string
	OpenAIBaseURL string
}

// NewClient builds the Client named by opts.Provider.
func NewClient(opts Options) (Client, error) {
	switch strings.ToLower(opts.Provider) {
	case ProviderOllama:
		return NewOllamaClient(opts), nil
	case ProviderOpenAI:
		if opts.OpenAIAPIKey == "" {
			return nil, fmt.Errorf("openai provider selected but REMOTE_API_KEY not set")
		}
		return NewOpenAIClient(opts), nil
	default:
		return nil, fmt.Errorf("unknown llm provider: %s", opts.Provider)
	}
}
