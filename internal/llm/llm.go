// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package llm is the model call boundary: an ordered list of role/content
// messages in, free text out. Providers make exactly one HTTP call per
// Generate and never retry; callers decide how to treat failures.
package llm

import (
	"context"
	"net/http"
	"strings"
	"time"

	"github.com/pdiddy/research-assistant/pkg/types"
)

// Message roles.
const (
	RoleSystem    = "system"
	RoleUser      = "user"
	RoleAssistant = "assistant"
)

// Message is a single entry in a model conversation.
type Message struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// Options tunes a single completion.
type Options struct {
	Temperature float64
	MaxTokens   int
}

// DefaultMaxTokens bounds a completion when Options.MaxTokens is zero.
const DefaultMaxTokens = 4096

// Provider generates a completion for a conversation.
type Provider interface {
	Generate(ctx context.Context, messages []Message, opts Options) (string, error)
}

// Default models per provider.
const (
	DefaultOpenAIModel    = "gpt-4o-mini"
	DefaultAnthropicModel = "claude-sonnet-4-20250514"
	DefaultOllamaModel    = "llama3.2"
)

// placeholderKeys are the sample values shipped in example configs.
var placeholderKeys = map[string]bool{
	"sk-your-openai-key-here":        true,
	"sk-ant-REDACTED": true,
}

// NewProvider builds the provider named by cfg.Provider. An empty name
// selects OpenAI.
func NewProvider(cfg types.LLMConfig) (Provider, error) {
	client := &http.Client{Timeout: cfg.Timeout}
	if cfg.Timeout <= 0 {
		client.Timeout = 120 * time.Second
	}

	switch strings.ToLower(cfg.Provider) {
	case "", "openai":
		if err := checkKey("openai", cfg.APIKey); err != nil {
			return nil, err
		}
		return &OpenAIProvider{
			APIKey:  cfg.APIKey,
			Model:   defaultIfEmpty(cfg.Model, DefaultOpenAIModel),
			BaseURL: defaultIfEmpty(cfg.BaseURL, openAIBaseURL),
			Client:  client,
		}, nil
	case "anthropic":
		if err := checkKey("anthropic", cfg.APIKey); err != nil {
			return nil, err
		}
		return &AnthropicProvider{
			APIKey:  cfg.APIKey,
			Model:   defaultIfEmpty(cfg.Model, DefaultAnthropicModel),
			BaseURL: defaultIfEmpty(cfg.BaseURL, anthropicBaseURL),
			Client:  client,
		}, nil
	case "ollama":
		return &OllamaProvider{
			Model:   defaultIfEmpty(cfg.Model, DefaultOllamaModel),
			BaseURL: defaultIfEmpty(cfg.BaseURL, ollamaBaseURL),
			Client:  client,
		}, nil
	default:
		return nil, ErrUnsupportedProvider{Provider: cfg.Provider}
	}
}

func checkKey(provider, key string) error {
	if strings.TrimSpace(key) == "" || placeholderKeys[key] {
		return &MissingAPIKeyError{Provider: provider}
	}
	return nil
}

func defaultIfEmpty(value, fallback string) string {
	if value == "" {
		return fallback
	}
	return value
}

func maxTokens(opts Options) int {
	if opts.MaxTokens <= 0 {
		return DefaultMaxTokens
	}
	return opts.MaxTokens
}

// splitSystem separates system messages from the rest of the conversation,
// joining multiple system messages with a blank line.
func splitSystem(messages []Message) (string, []Message) {
	var system []string
	rest := make([]Message, 0, len(messages))
	for _, m := range messages {
		if m.Role == RoleSystem {
			system = append(system, m.Content)
			continue
		}
		rest = append(rest, m)
	}
	return strings.Join(system, "\n\n"), rest
}
