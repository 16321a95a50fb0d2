// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package summary

import "strings"

// Section headers looked for in the model's answer.
const (
	headerSummary  = "EXECUTIVE SUMMARY"
	headerInsights = "KEY INSIGHTS"
	headerSources  = "SOURCES"
)

// PlaceholderInsight stands in when no insight bullets can be found.
const PlaceholderInsight = "See executive summary for details."

// MaxInsights caps the number of key insights kept.
const MaxInsights = 5

// bulletCutset holds the markers stripped from the start of an insight line.
const bulletCutset = "-•*0123456789. "

// ParseSections splits a model answer into an executive summary and key
// insights by locating the literal section headers.
//
// When the summary header is missing, or the insights header precedes it,
// the whole answer becomes the summary and the insights are the single
// placeholder. Insight lines start with one of - • * or a digit 1-5; the
// markers are stripped and at most MaxInsights are kept.
func ParseSections(content string) (string, []string) {
	sumIdx := strings.Index(content, headerSummary)
	insIdx := strings.Index(content, headerInsights)

	if sumIdx < 0 || (insIdx >= 0 && insIdx < sumIdx) {
		return fallbackSummary(content), []string{PlaceholderInsight}
	}

	body := content[sumIdx+len(headerSummary):]
	if insIdx >= 0 {
		body = content[sumIdx+len(headerSummary) : insIdx]
	} else if srcIdx := strings.Index(body, headerSources); srcIdx >= 0 {
		body = body[:srcIdx]
	}
	execSummary := cleanSection(body)
	if execSummary == "" {
		execSummary = fallbackSummary(content)
	}

	var insights []string
	if insIdx >= 0 {
		section := content[insIdx+len(headerInsights):]
		if srcIdx := strings.Index(section, headerSources); srcIdx >= 0 {
			section = section[:srcIdx]
		}
		insights = parseBullets(section)
	}
	if len(insights) == 0 {
		insights = []string{PlaceholderInsight}
	}
	if len(insights) > MaxInsights {
		insights = insights[:MaxInsights]
	}
	return execSummary, insights
}

func parseBullets(section string) []string {
	var out []string
	for _, line := range strings.Split(section, "\n") {
		line = strings.TrimSpace(line)
		if !isBullet(line) {
			continue
		}
		if insight := strings.TrimLeft(line, bulletCutset); insight != "" {
			out = append(out, insight)
		}
	}
	return out
}

func isBullet(line string) bool {
	for _, prefix := range []string{"-", "•", "*", "1", "2", "3", "4", "5"} {
		if strings.HasPrefix(line, prefix) {
			return true
		}
	}
	return false
}

// cleanSection trims header decoration such as "## ", "**" and a trailing
// colon left around a section body.
func cleanSection(s string) string {
	return strings.Trim(s, "#*: \t\r\n")
}

func fallbackSummary(content string) string {
	return strings.TrimSpace(content)
}
