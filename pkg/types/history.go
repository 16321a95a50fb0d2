// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package types

import "time"

// QueryStatus tracks whether a persisted research query produced a summary.
type QueryStatus string

const (
	StatusPending   QueryStatus = "pending"
	StatusCompleted QueryStatus = "completed"
)

// QueryRecord is a persisted research query.
type QueryRecord struct {
	ID        int64       `json:"id" yaml:"id"`
	Query     string      `json:"query" yaml:"query"`
	Timestamp time.Time   `json:"timestamp" yaml:"timestamp"`
	SessionID string      `json:"session_id,omitempty" yaml:"session_id,omitempty"`
	Status    QueryStatus `json:"status" yaml:"status"`

	// FindingCount is populated by history listings only.
	FindingCount int `json:"finding_count,omitempty" yaml:"finding_count,omitempty"`

	// ExecutiveSummary is populated by history listings and keyword search.
	ExecutiveSummary string `json:"executive_summary,omitempty" yaml:"executive_summary,omitempty"`
}

// QueryResult is a persisted query together with its findings and summary.
type QueryResult struct {
	Query    QueryRecord `json:"query" yaml:"query"`
	Findings []Finding   `json:"findings" yaml:"findings"`
	Summary  *Summary    `json:"summary,omitempty" yaml:"summary,omitempty"`
}

// Statistics aggregates counts over the research history.
type Statistics struct {
	TotalQueries     int `json:"total_queries" yaml:"total_queries"`
	CompletedQueries int `json:"completed_queries" yaml:"completed_queries"`
	TotalFindings    int `json:"total_findings" yaml:"total_findings"`
	TotalSummaries   int `json:"total_summaries" yaml:"total_summaries"`
	TotalSessions    int `json:"total_sessions" yaml:"total_sessions"`

	// FindingsByTier counts stored findings per quality tier.
	FindingsByTier map[QualityTier]int `json:"findings_by_tier" yaml:"findings_by_tier"`
}
