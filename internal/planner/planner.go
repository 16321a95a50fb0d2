// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package planner turns a research topic into a short list of web search queries.
package planner

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/pdiddy/research-assistant/internal/llm"
)

// DefaultMaxQueries caps the number of generated queries.
const DefaultMaxQueries = 5

// queryGeneratorPrompt is the system prompt for query generation.
const queryGeneratorPrompt = `Given the user's research topic, generate 3-5 effective web search queries.

Guidelines:
- Make queries specific and targeted
- Cover different aspects of the topic
- Include queries for recent news/developments if relevant
- Include queries for authoritative sources (research, official data)

Return ONLY a JSON array of search query strings, nothing else.
Example: ["query 1", "query 2", "query 3"]`

// Planner generates search queries with one model call per Plan.
type Planner struct {
	Provider   llm.Provider
	Options    llm.Options
	MaxQueries int
}

// New returns a Planner with the stock research temperature and query cap.
func New(p llm.Provider) *Planner {
	return &Planner{
		Provider:   p,
		Options:    llm.Options{Temperature: 0.3, MaxTokens: llm.DefaultMaxTokens},
		MaxQueries: DefaultMaxQueries,
	}
}

// Plan asks the model for a JSON array of queries. A response that is not a
// non-empty JSON array yields the three fallback queries from Fallback.
// Non-string array elements are kept in their printed form. Model call
// failures are returned unchanged in meaning.
func (p *Planner) Plan(ctx context.Context, topic string) ([]string, error) {
	content, err := p.Provider.Generate(ctx, []llm.Message{
		{Role: llm.RoleSystem, Content: queryGeneratorPrompt},
		{Role: llm.RoleUser, Content: "Research topic: " + topic},
	}, p.Options)
	if err != nil {
		return nil, fmt.Errorf("generating search queries: %w", err)
	}

	queries, ok := parseQueries(content)
	if !ok || len(queries) == 0 {
		return Fallback(topic), nil
	}

	max := p.MaxQueries
	if max <= 0 {
		max = DefaultMaxQueries
	}
	if len(queries) > max {
		queries = queries[:max]
	}
	return queries, nil
}

// Fallback returns the deterministic queries used when the model's answer
// cannot be parsed.
func Fallback(topic string) []string {
	return []string{topic, topic + " latest news", topic + " research"}
}

func parseQueries(content string) ([]string, bool) {
	var raw []any
	if err := json.Unmarshal([]byte(content), &raw); err != nil {
		return nil, false
	}
	queries := make([]string, 0, len(raw))
	for _, v := range raw {
		switch q := v.(type) {
		case string:
			queries = append(queries, q)
		case nil:
			continue
		default:
			queries = append(queries, fmt.Sprint(q))
		}
	}
	return queries, true
}
