// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package guardrails holds the safety gate: input validation, source quality
// tiers, the research stopping rule, and output sanitization. Everything here
// is pure and safe for concurrent use.
package guardrails

import (
	"regexp"
	"strings"
	"unicode/utf8"

	"github.com/pdiddy/research-assistant/pkg/types"
)

// MaxQueryLength is the longest accepted research topic, in characters.
const MaxQueryLength = 500

// Validation messages returned by Validate.
const (
	MsgEmpty     = "Please provide a research topic or question."
	MsgTooLong   = "Query is too long. Please limit to 500 characters."
	MsgSensitive = "This topic cannot be researched due to safety guidelines."
	MsgValid     = "Input validated successfully."
)

// sensitiveTopics are matched case-insensitively as substrings of the query.
var sensitiveTopics = []string{
	"how to make weapons",
	"how to hack",
	"illegal drugs",
	"how to harm",
	"exploit vulnerabilities",
}

var highQualityDomains = []string{
	".gov", ".edu", "nature.com", "science.org", "reuters.com",
	"apnews.com", "bbc.com", "nytimes.com", "wsj.com", "economist.com",
	"arxiv.org", "ncbi.nlm.nih.gov",
}

var mediumQualityDomains = []string{
	"wikipedia.org", "medium.com", "forbes.com", "techcrunch.com",
	"wired.com", "theverge.com",
}

// Validate checks a research topic before any work is done. Checks run in
// order: empty, length, sensitive topic. The first failing check wins.
func Validate(query string) (bool, string) {
	if strings.TrimSpace(query) == "" {
		return false, MsgEmpty
	}
	if utf8.RuneCountInString(query) > MaxQueryLength {
		return false, MsgTooLong
	}
	lower := strings.ToLower(query)
	for _, topic := range sensitiveTopics {
		if strings.Contains(lower, topic) {
			return false, MsgSensitive
		}
	}
	return true, MsgValid
}

// SourceQuality classifies a URL by substring match against known domains.
// High-tier domains are checked before medium-tier ones.
func SourceQuality(url string) types.QualityTier {
	lower := strings.ToLower(url)
	for _, d := range highQualityDomains {
		if strings.Contains(lower, d) {
			return types.TierHigh
		}
	}
	for _, d := range mediumQualityDomains {
		if strings.Contains(lower, d) {
			return types.TierMedium
		}
	}
	return types.TierLow
}

// Annotate fills in the quality tier of f when it has none.
func Annotate(f types.Finding) types.Finding {
	if f.QualityTier == "" || f.QualityTier == types.TierUnknown {
		f.QualityTier = SourceQuality(f.Source)
	}
	return f
}

// CountTier returns the number of findings in tier. Findings without a tier
// are classified from their source.
func CountTier(findings []types.Finding, tier types.QualityTier) int {
	n := 0
	for _, f := range findings {
		if Annotate(f).QualityTier == tier {
			n++
		}
	}
	return n
}

// ShouldContinue decides whether the research loop runs another pass after
// completing iteration passes. The ceiling check comes first and is absolute.
func ShouldContinue(findings []types.Finding, iteration int, cfg types.LoopConfig) bool {
	if iteration >= cfg.MaxIterations {
		return false
	}
	if len(findings) < cfg.MinFindings {
		return true
	}
	if CountTier(findings, types.TierHigh) < cfg.MinHighQuality && iteration < cfg.HighQualityDeadline {
		return true
	}
	return false
}

// CheckFindings is an advisory check on the findings handed to the summarizer.
// A thin result set passes with a warning.
func CheckFindings(findings []types.Finding) (bool, string) {
	switch {
	case len(findings) == 0:
		return false, "No research findings to summarize."
	case len(findings) < 2:
		return true, "Warning: Limited findings. Summary may be incomplete."
	default:
		return true, "Findings validated successfully."
	}
}

var (
	scriptPattern = regexp.MustCompile(`(?is)<script[^>]*>.*?</script>`)
	tagPattern    = regexp.MustCompile(`<[^>]+>`)
)

// Sanitize removes script blocks and HTML tags from model output, keeping text content.
func Sanitize(text string) string {
	text = scriptPattern.ReplaceAllString(text, "")
	return tagPattern.ReplaceAllString(text, "")
}
