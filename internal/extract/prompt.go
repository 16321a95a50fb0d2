// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package extract

import (
	"bytes"
	"text/template"

	"github.com/pdiddy/research-assistant/pkg/types"
)

// researchAgentPrompt is the system prompt shared by extraction calls.
const researchAgentPrompt = `You are a Research Agent specialized in web research.

Your job is to:
1. Analyze the user's query and generate 3-5 effective search queries
2. Review search results and extract relevant information
3. Identify the most authoritative and relevant sources

Guidelines:
- Generate diverse search queries to cover different aspects of the topic
- Prioritize recent information (within the last year when relevant)
- Look for authoritative sources: official websites, research papers, reputable news
- Extract key facts, statistics, and insights
- Note any conflicting information between sources

Output your findings in a structured format with clear source attribution.`

// analysisPromptTmpl renders the search results into the user message.
var analysisPromptTmpl = template.Must(template.New("analysis").Parse(`Analyze these search results for the query: "{{.Topic}}"

Search Results:
{{range $i, $r := .Results}}{{if $i}}

{{end}}Source: {{$r.Title}}
URL: {{$r.Link}}
Content: {{$r.Snippet}}{{end}}

Extract the most relevant findings. For each finding, provide:
1. The source URL
2. The title
3. Key content/facts extracted
4. Why it's relevant to the query

Format your response as a JSON array of objects with keys: source, title, content, relevance
`))

func renderPrompt(topic string, results []types.RawResult) (string, error) {
	var buf bytes.Buffer
	err := analysisPromptTmpl.Execute(&buf, struct {
		Topic   string
		Results []types.RawResult
	}{Topic: topic, Results: results})
	if err != nil {
		return "", err
	}
	return buf.String(), nil
}
