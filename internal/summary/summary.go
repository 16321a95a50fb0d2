// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package summary synthesizes accumulated findings into an executive summary,
// a short list of key insights, and the list of sources consulted.
package summary

import (
	"bytes"
	"context"
	"fmt"
	"text/template"

	"github.com/pdiddy/research-assistant/internal/llm"
	"github.com/pdiddy/research-assistant/pkg/types"
)

// Canned output for a run with no findings.
const (
	NoFindingsSummary = "No research findings were available to summarize."
	NoFindingsInsight = "Unable to gather sufficient information on this topic."
)

const summaryAgentPrompt = `You are a Summary Agent specialized in creating executive summaries.

Your job is to:
1. Synthesize research findings into a clear, concise executive summary
2. Identify the most important insights and key takeaways
3. Present information in a professional, easy-to-digest format

Guidelines:
- Start with a brief overview (2-3 sentences)
- Highlight 3-5 key insights as bullet points
- Include relevant statistics or data points
- Note any areas of uncertainty or conflicting information
- Keep the summary focused and actionable
- Always cite sources for specific claims

Format your output as:
1. Executive Summary (2-3 paragraphs)
2. Key Insights (bullet points)
3. Sources Used (list of references)

IMPORTANT: Only use information from the provided research findings. Do not make up facts.`

var summaryPromptTmpl = template.Must(template.New("summary").Funcs(template.FuncMap{
	"inc":    func(i int) int { return i + 1 },
	"orElse": orElse,
}).Parse(`Original Research Query: "{{.Topic}}"

Research Findings:
{{range $i, $f := .Findings}}
Finding {{inc $i}}:
- Source: {{orElse $f.Title "Unknown"}}
- URL: {{orElse $f.Source "N/A"}}
- Content: {{orElse $f.Content "No content"}}
- Relevance: {{orElse $f.Relevance "N/A"}}
{{end}}
Please create an executive summary based on these findings. Remember to:
1. Synthesize the information into a coherent narrative
2. Highlight the most important insights
3. Cite sources for specific claims
4. Note any gaps or uncertainties

Format your response with clear sections:
- EXECUTIVE SUMMARY (2-3 paragraphs)
- KEY INSIGHTS (3-5 bullet points)
- SOURCES REFERENCED (list the sources)
`))

// Summarizer produces a Summary with one model call.
type Summarizer struct {
	Provider llm.Provider
	Options  llm.Options
}

// New returns a Summarizer at the stock summary temperature.
func New(p llm.Provider) *Summarizer {
	return &Summarizer{
		Provider: p,
		Options:  llm.Options{Temperature: 0.4, MaxTokens: llm.DefaultMaxTokens},
	}
}

// Summarize synthesizes findings for topic. With no findings it returns the
// canned response without calling the model. Sources always come from the
// findings themselves, never from the model's answer.
func (s *Summarizer) Summarize(ctx context.Context, topic string, findings []types.Finding) (types.Summary, error) {
	if len(findings) == 0 {
		return types.Summary{
			ExecutiveSummary: NoFindingsSummary,
			KeyInsights:      []string{NoFindingsInsight},
			Sources:          []types.SourceRef{},
		}, nil
	}

	var buf bytes.Buffer
	if err := summaryPromptTmpl.Execute(&buf, struct {
		Topic    string
		Findings []types.Finding
	}{Topic: topic, Findings: findings}); err != nil {
		return types.Summary{}, fmt.Errorf("rendering summary prompt: %w", err)
	}

	content, err := s.Provider.Generate(ctx, []llm.Message{
		{Role: llm.RoleSystem, Content: summaryAgentPrompt},
		{Role: llm.RoleUser, Content: buf.String()},
	}, s.Options)
	if err != nil {
		return types.Summary{}, fmt.Errorf("generating summary: %w", err)
	}

	execSummary, insights := ParseSections(content)
	return types.Summary{
		ExecutiveSummary: execSummary,
		KeyInsights:      insights,
		Sources:          SourcesFrom(findings),
	}, nil
}

// SourcesFrom lists every finding with a non-empty source, in order.
func SourcesFrom(findings []types.Finding) []types.SourceRef {
	sources := make([]types.SourceRef, 0, len(findings))
	for _, f := range findings {
		if f.Source == "" {
			continue
		}
		sources = append(sources, types.SourceRef{Title: orElse(f.Title, "Unknown"), URL: f.Source})
	}
	return sources
}

func orElse(v, fallback string) string {
	if v == "" {
		return fallback
	}
	return v
}
