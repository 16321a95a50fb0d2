// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package llm

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
)

var ollamaBaseURL = "http://localhost:11434"

// OllamaProvider calls a local Ollama server's chat endpoint with streaming off.
type OllamaProvider struct {
	Model   string
	BaseURL string
	Client  *http.Client
}

type ollamaRequest struct {
	Model    string         `json:"model"`
	Messages []Message      `json:"messages"`
	Stream   bool           `json:"stream"`
	Options  map[string]any `json:"options,omitempty"`
}

type ollamaResponse struct {
	Message Message `json:"message"`
	Error   string  `json:"error,omitempty"`
}

func (p *OllamaProvider) Generate(ctx context.Context, messages []Message, opts Options) (string, error) {
	bodyBytes, err := json.Marshal(ollamaRequest{
		Model:    p.Model,
		Messages: messages,
		Stream:   false,
		Options: map[string]any{
			"temperature": opts.Temperature,
			"num_predict": maxTokens(opts),
		},
	})
	if err != nil {
		return "", fmt.Errorf("marshaling request: %w", err)
	}

	url := strings.TrimRight(defaultIfEmpty(p.BaseURL, ollamaBaseURL), "/") + "/api/chat"
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(bodyBytes))
	if err != nil {
		return "", fmt.Errorf("creating request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	client := p.Client
	if client == nil {
		client = http.DefaultClient
	}

	resp, err := client.Do(req)
	if err != nil {
		return "", fmt.Errorf("calling Ollama (is `ollama serve` running?): %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(resp.Body)
		return "", &APIError{Provider: "ollama", StatusCode: resp.StatusCode, Body: string(body)}
	}

	var oResp ollamaResponse
	if err := json.NewDecoder(resp.Body).Decode(&oResp); err != nil {
		return "", fmt.Errorf("decoding Ollama response: %w", err)
	}
	if oResp.Error != "" {
		return "", fmt.Errorf("ollama: %s", oResp.Error)
	}
	return oResp.Message.Content, nil
}
