// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package types defines shared data structures for the research-assistant pipeline.
// The records here flow between the planner, search, extraction, loop, summary,
// persistence, cache, and export stages.
package types

// QualityTier is the coarse credibility label derived from a source URL's domain.
type QualityTier string

const (
	TierHigh    QualityTier = "high"
	TierMedium  QualityTier = "medium"
	TierLow     QualityTier = "low"
	TierUnknown QualityTier = "unknown"
)

// Finding is one extracted fact tied to a source. Findings are identified by
// Source (exact match); a research run never holds two findings with the same Source.
type Finding struct {
	// Source is the URL the finding came from.
	Source string `json:"source" yaml:"source"`

	// Title is the title of the source page.
	Title string `json:"title" yaml:"title"`

	// Content is the extracted fact or data point.
	Content string `json:"content" yaml:"content"`

	// Relevance explains why the finding matters to the topic.
	Relevance string `json:"relevance" yaml:"relevance"`

	// QualityTier is derived from Source by the safety gate.
	QualityTier QualityTier `json:"quality_tier,omitempty" yaml:"quality_tier,omitempty"`

	// OriginalQuery is set only on findings reused from the similarity cache
	// and names the past topic they were gathered for.
	OriginalQuery string `json:"original_query,omitempty" yaml:"original_query,omitempty"`
}

// RawResult is a single web-search hit before extraction.
type RawResult struct {
	Title   string `json:"title" yaml:"title"`
	Link    string `json:"link" yaml:"link"`
	Snippet string `json:"snippet" yaml:"snippet"`

	// Query is the generated search query that produced this hit.
	Query string `json:"query" yaml:"query"`
}

// SourceRef is a title/URL pair listed in a summary.
type SourceRef struct {
	Title string `json:"title" yaml:"title"`
	URL   string `json:"url" yaml:"url"`
}

// Summary is the synthesized result of a research run.
type Summary struct {
	ExecutiveSummary string      `json:"executive_summary" yaml:"executive_summary"`
	KeyInsights      []string    `json:"key_insights" yaml:"key_insights"`
	Sources          []SourceRef `json:"sources" yaml:"sources"`
}

// ResearchState is the record threaded through every stage of one research run.
type ResearchState struct {
	// Query is the user's research topic, immutable after start.
	Query string `json:"query" yaml:"query"`

	// SearchQueries holds the queries generated in the most recent iteration.
	SearchQueries []string `json:"search_queries" yaml:"search_queries"`

	// Findings is the accumulated, source-deduplicated finding list.
	Findings []Finding `json:"findings" yaml:"findings"`

	// CachedFindings holds findings pulled from the similarity cache before
	// the first iteration.
	CachedFindings []Finding `json:"cached_findings,omitempty" yaml:"cached_findings,omitempty"`

	SourcesConsulted int  `json:"sources_consulted" yaml:"sources_consulted"`
	IterationCount   int  `json:"iteration_count" yaml:"iteration_count"`
	ResearchComplete bool `json:"research_complete" yaml:"research_complete"`

	ExecutiveSummary string      `json:"executive_summary" yaml:"executive_summary"`
	KeyInsights      []string    `json:"key_insights" yaml:"key_insights"`
	Sources          []SourceRef `json:"sources" yaml:"sources"`

	// Error holds a validation or stage failure message; empty on success.
	Error string `json:"error,omitempty" yaml:"error,omitempty"`

	// QueryID is the persistence row ID of this run, zero when not persisted.
	QueryID   int64  `json:"query_id,omitempty" yaml:"query_id,omitempty"`
	SessionID string `json:"session_id,omitempty" yaml:"session_id,omitempty"`
	ThreadID  string `json:"thread_id,omitempty" yaml:"thread_id,omitempty"`

	// OutputFile is the path of the exported report, if any.
	OutputFile string `json:"output_file,omitempty" yaml:"output_file,omitempty"`
}

// NewResearchState returns the initial state for a run on query.
func NewResearchState(query string) *ResearchState {
	return &ResearchState{
		Query:         query,
		SearchQueries: []string{},
		Findings:      []Finding{},
		KeyInsights:   []string{},
		Sources:       []SourceRef{},
	}
}

// Summary returns the summary fields of the state as a Summary record.
func (s *ResearchState) Summary() Summary {
	return Summary{
		ExecutiveSummary: s.ExecutiveSummary,
		KeyInsights:      s.KeyInsights,
		Sources:          s.Sources,
	}
}

// ApplySummary copies sum into the state's summary fields.
func (s *ResearchState) ApplySummary(sum Summary) {
	s.ExecutiveSummary = sum.ExecutiveSummary
	s.KeyInsights = sum.KeyInsights
	s.Sources = sum.Sources
}
