// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package extract turns raw web search hits into structured findings with
// one model call, falling back to the raw hits when the answer is unusable.
package extract

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/pdiddy/research-assistant/internal/llm"
	"github.com/pdiddy/research-assistant/pkg/types"
)

// FallbackRelevance marks findings built directly from search hits.
const FallbackRelevance = "Found in search results"

// FallbackLimit is the number of raw hits converted when parsing fails.
const FallbackLimit = 5

// Extractor extracts findings from raw search results.
type Extractor struct {
	Provider llm.Provider
	Options  llm.Options
}

// New returns an Extractor with the stock research temperature.
func New(p llm.Provider) *Extractor {
	return &Extractor{
		Provider: p,
		Options:  llm.Options{Temperature: 0.3, MaxTokens: llm.DefaultMaxTokens},
	}
}

// aiFinding is one element of the model's JSON answer. Fields are decoded
// loosely so a number or null in place of a string does not sink the batch.
type aiFinding struct {
	Source    any `json:"source"`
	Title     any `json:"title"`
	Content   any `json:"content"`
	Relevance any `json:"relevance"`
}

// Extract returns findings for raw. Empty input returns an empty list
// without calling the model. Findings are not deduplicated here.
func (e *Extractor) Extract(ctx context.Context, topic string, raw []types.RawResult) ([]types.Finding, error) {
	if len(raw) == 0 {
		return []types.Finding{}, nil
	}

	prompt, err := renderPrompt(topic, raw)
	if err != nil {
		return nil, fmt.Errorf("rendering prompt: %w", err)
	}

	content, err := e.Provider.Generate(ctx, []llm.Message{
		{Role: llm.RoleSystem, Content: researchAgentPrompt},
		{Role: llm.RoleUser, Content: prompt},
	}, e.Options)
	if err != nil {
		return nil, fmt.Errorf("extracting findings: %w", err)
	}

	if findings, ok := parseFindings(content); ok {
		return findings, nil
	}
	return Fallback(raw), nil
}

// parseFindings decodes the span from the first '[' to the last ']'.
func parseFindings(content string) ([]types.Finding, bool) {
	start := strings.Index(content, "[")
	end := strings.LastIndex(content, "]")
	if start < 0 || end <= start {
		return nil, false
	}

	var items []aiFinding
	if err := json.Unmarshal([]byte(content[start:end+1]), &items); err != nil {
		return nil, false
	}

	findings := make([]types.Finding, 0, len(items))
	for _, it := range items {
		findings = append(findings, types.Finding{
			Source:    str(it.Source),
			Title:     str(it.Title),
			Content:   str(it.Content),
			Relevance: str(it.Relevance),
		})
	}
	return findings, true
}

// Fallback converts the first FallbackLimit raw hits into findings, in order.
func Fallback(raw []types.RawResult) []types.Finding {
	n := len(raw)
	if n > FallbackLimit {
		n = FallbackLimit
	}
	findings := make([]types.Finding, 0, n)
	for _, r := range raw[:n] {
		findings = append(findings, types.Finding{
			Source:    r.Link,
			Title:     r.Title,
			Content:   r.Snippet,
			Relevance: FallbackRelevance,
		})
	}
	return findings
}

func str(v any) string {
	switch s := v.(type) {
	case nil:
		return ""
	case string:
		return s
	default:
		return fmt.Sprint(s)
	}
}
