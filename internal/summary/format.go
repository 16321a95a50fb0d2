// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package summary

import (
	"fmt"
	"io"
	"strings"

	"github.com/fatih/color"

	"github.com/pdiddy/research-assistant/pkg/types"
)

var (
	heading    = color.New(color.FgCyan, color.Bold)
	subheading = color.New(color.FgYellow, color.Bold)
)

// Format writes the console report for sum to w.
func Format(w io.Writer, sum types.Summary) {
	rule := strings.Repeat("=", 60)
	thin := strings.Repeat("-", 60)

	fmt.Fprintln(w, rule)
	heading.Fprintln(w, "EXECUTIVE SUMMARY")
	fmt.Fprintln(w, rule)
	fmt.Fprintln(w)
	fmt.Fprintln(w, orElse(sum.ExecutiveSummary, "No summary available."))
	fmt.Fprintln(w)

	fmt.Fprintln(w, thin)
	subheading.Fprintln(w, "KEY INSIGHTS")
	fmt.Fprintln(w, thin)
	for i, insight := range sum.KeyInsights {
		fmt.Fprintf(w, "  %d. %s\n", i+1, insight)
	}
	fmt.Fprintln(w)

	fmt.Fprintln(w, thin)
	subheading.Fprintln(w, "SOURCES")
	fmt.Fprintln(w, thin)
	for _, s := range sum.Sources {
		fmt.Fprintf(w, "  • %s\n", orElse(s.Title, "Unknown"))
		fmt.Fprintf(w, "    %s\n", orElse(s.URL, "N/A"))
	}
	fmt.Fprintln(w)
	fmt.Fprintln(w, rule)
}
