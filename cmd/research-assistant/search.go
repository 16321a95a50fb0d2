// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package main

import (
	"context"
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/pdiddy/research-assistant/internal/search"
)

var searchCmd = &cobra.Command{
	Use:   "search [query]...",
	Short: "Run search queries against the configured backend",
	Long: `Search sends each argument as a separate query to the configured search
backend and prints the merged, link-deduplicated hits. It skips planning,
extraction, and summarization, which makes it useful for checking a backend
or API key.`,
	Args: cobra.MinimumNArgs(1),
	RunE: runSearch,
}

func init() {
	searchCmd.Flags().Int("max-results", search.DefaultResultsPerQuery, "maximum hits kept per query")
	searchCmd.Flags().Bool("json", false, "output results as JSON")

	rootCmd.AddCommand(searchCmd)
}

func runSearch(cmd *cobra.Command, args []string) error {
	maxResults, _ := cmd.Flags().GetInt("max-results")
	jsonOutput, _ := cmd.Flags().GetBool("json")

	backend, err := search.NewBackend(pipelineCfg.Search, logger)
	if err != nil {
		return err
	}

	queries := make([]string, 0, len(args))
	for _, a := range args {
		if q := strings.TrimSpace(a); q != "" {
			queries = append(queries, q)
		}
	}
	if len(queries) == 0 {
		return fmt.Errorf("at least one non-empty query is required")
	}

	out := search.Multi(context.Background(), backend, queries, maxResults, logger)
	if jsonOutput {
		return search.FormatJSON(out, os.Stdout)
	}
	search.FormatTable(out, os.Stdout)
	return nil
}
