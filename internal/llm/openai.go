// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package llm

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/openai/openai-go"
	"github.com/openai/openai-go/option"
	"github.com/openai/openai-go/shared"
)

var openAIBaseURL = "https://api.openai.com/v1"

// OpenAIProvider calls an OpenAI-compatible chat completions endpoint.
type OpenAIProvider struct {
	APIKey  string
	Model   string
	BaseURL string
	Client  *http.Client
}

func (p *OpenAIProvider) client() openai.Client {
	opts := []option.RequestOption{
		option.WithAPIKey(p.APIKey),
		option.WithBaseURL(defaultIfEmpty(p.BaseURL, openAIBaseURL)),
		option.WithMaxRetries(0),
	}
	if p.Client != nil {
		opts = append(opts, option.WithHTTPClient(p.Client))
	}
	return openai.NewClient(opts...)
}

func (p *OpenAIProvider) Generate(ctx context.Context, messages []Message, opts Options) (string, error) {
	params := openai.ChatCompletionNewParams{
		Model:       shared.ChatModel(p.Model),
		Messages:    openAIMessages(messages),
		Temperature: openai.Float(opts.Temperature),
		MaxTokens:   openai.Int(int64(maxTokens(opts))),
	}

	client := p.client()
	resp, err := client.Chat.Completions.New(ctx, params)
	if err != nil {
		var apiErr *openai.Error
		if errors.As(err, &apiErr) {
			body := strings.TrimSpace(apiErr.Message)
			if body == "" {
				body = apiErr.Error()
			}
			return "", &APIError{Provider: "openai", StatusCode: apiErr.StatusCode, Body: body}
		}
		return "", fmt.Errorf("calling OpenAI API: %w", err)
	}
	if len(resp.Choices) == 0 {
		return "", fmt.Errorf("OpenAI API returned no choices")
	}
	return resp.Choices[0].Message.Content, nil
}

func openAIMessages(messages []Message) []openai.ChatCompletionMessageParamUnion {
	out := make([]openai.ChatCompletionMessageParamUnion, 0, len(messages))
	for _, m := range messages {
		switch m.Role {
		case RoleSystem:
			out = append(out, openai.SystemMessage(m.Content))
		case RoleAssistant:
			out = append(out, openai.AssistantMessage(m.Content))
		default:
			out = append(out, openai.UserMessage(m.Content))
		}
	}
	return out
}
