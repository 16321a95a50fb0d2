// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"sort"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"github.com/pdiddy/research-assistant/internal/store"
	"github.com/pdiddy/research-assistant/internal/summary"
	"github.com/pdiddy/research-assistant/pkg/types"
)

var historyCmd = &cobra.Command{
	Use:   "history",
	Short: "Browse, search, and export the research history",
	Long: `History reads the local SQLite database of past research runs. Use
subcommands to list runs, show one with its findings, search by keyword,
print statistics, or export everything to CSV or text.`,
}

// --- list subcommand ---

var historyListCmd = &cobra.Command{
	Use:   "list",
	Short: "List recent research queries",
	Args:  cobra.NoArgs,
	RunE:  runHistoryList,
}

func runHistoryList(cmd *cobra.Command, args []string) error {
	st, err := requireStore(pipelineCfg)
	if err != nil {
		return err
	}
	defer st.Close()

	all, _ := cmd.Flags().GetBool("all")
	limit, _ := cmd.Flags().GetInt("limit")

	var records []types.QueryRecord
	if all {
		records, err = st.History(context.Background())
	} else {
		records, err = st.RecentQueries(context.Background(), limit)
	}
	if err != nil {
		return err
	}

	jsonOutput, _ := cmd.Flags().GetBool("json")
	return formatRecords(os.Stdout, records, jsonOutput)
}

// --- show subcommand ---

var historyShowCmd = &cobra.Command{
	Use:   "show [id]",
	Short: "Show one research run with its summary and findings",
	Args:  cobra.ExactArgs(1),
	RunE:  runHistoryShow,
}

func runHistoryShow(cmd *cobra.Command, args []string) error {
	id, err := strconv.ParseInt(args[0], 10, 64)
	if err != nil {
		return fmt.Errorf("invalid query id %q", args[0])
	}

	st, err := requireStore(pipelineCfg)
	if err != nil {
		return err
	}
	defer st.Close()

	res, err := st.QueryWithResults(context.Background(), id)
	if err != nil {
		return err
	}

	if jsonOutput, _ := cmd.Flags().GetBool("json"); jsonOutput {
		return writeIndented(os.Stdout, res)
	}
	formatResult(os.Stdout, res)
	return nil
}

// --- search subcommand ---

var historySearchCmd = &cobra.Command{
	Use:   "search [keyword]",
	Short: "Search past queries and summaries by keyword",
	Args:  cobra.MinimumNArgs(1),
	RunE:  runHistorySearch,
}

func runHistorySearch(cmd *cobra.Command, args []string) error {
	st, err := requireStore(pipelineCfg)
	if err != nil {
		return err
	}
	defer st.Close()

	records, err := st.SearchPast(context.Background(), strings.Join(args, " "))
	if err != nil {
		return err
	}
	jsonOutput, _ := cmd.Flags().GetBool("json")
	return formatRecords(os.Stdout, records, jsonOutput)
}

// --- stats subcommand ---

var historyStatsCmd = &cobra.Command{
	Use:   "stats",
	Short: "Print history statistics",
	Args:  cobra.NoArgs,
	RunE:  runHistoryStats,
}

func runHistoryStats(cmd *cobra.Command, args []string) error {
	st, err := requireStore(pipelineCfg)
	if err != nil {
		return err
	}
	defer st.Close()

	stats, err := st.Statistics(context.Background())
	if err != nil {
		return err
	}
	if jsonOutput, _ := cmd.Flags().GetBool("json"); jsonOutput {
		return writeIndented(os.Stdout, stats)
	}
	formatStats(os.Stdout, stats, pipelineCfg.Store.Path)
	return nil
}

// --- export subcommand ---

var historyExportCmd = &cobra.Command{
	Use:       "export [csv|txt]",
	Short:     "Export the whole history to CSV or text",
	Args:      cobra.ExactArgs(1),
	ValidArgs: []string{"csv", "txt"},
	RunE:      runHistoryExport,
}

func runHistoryExport(cmd *cobra.Command, args []string) error {
	st, err := requireStore(pipelineCfg)
	if err != nil {
		return err
	}
	defer st.Close()

	path, _ := cmd.Flags().GetString("out")
	path, n, err := exportHistory(context.Background(), st, args[0], path)
	if err != nil {
		return err
	}
	fmt.Fprintf(os.Stdout, "Exported %d records to %s\n", n, path)
	return nil
}

// exportHistory writes the history in format ("csv" or "txt") to path, or
// to the format's default path when path is empty.
func exportHistory(ctx context.Context, st *store.Store, format, path string) (string, int, error) {
	switch format {
	case "csv":
		if path == "" {
			path = store.DefaultCSVPath
		}
		n, err := st.ExportCSV(ctx, path)
		return path, n, err
	case "txt", "text":
		if path == "" {
			path = store.DefaultTextPath
		}
		n, err := st.ExportText(ctx, path)
		return path, n, err
	default:
		return "", 0, fmt.Errorf("unsupported history export format %q (use csv or txt)", format)
	}
}

func init() {
	historyListCmd.Flags().Int("limit", 10, "maximum number of queries to list")
	historyListCmd.Flags().Bool("all", false, "list every query")
	historyExportCmd.Flags().String("out", "", "output file (default: research_history.csv or research_history.txt)")

	for _, c := range []*cobra.Command{historyListCmd, historyShowCmd, historySearchCmd, historyStatsCmd} {
		c.Flags().Bool("json", false, "output as JSON")
	}

	historyCmd.AddCommand(historyListCmd, historyShowCmd, historySearchCmd, historyStatsCmd, historyExportCmd)
	rootCmd.AddCommand(historyCmd)
}

// --- formatting ---

func writeIndented(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

func formatRecords(w io.Writer, records []types.QueryRecord, jsonOutput bool) error {
	if jsonOutput {
		if records == nil {
			records = []types.QueryRecord{}
		}
		return writeIndented(w, records)
	}

	if len(records) == 0 {
		fmt.Fprintln(w, "No research history found.")
		return nil
	}

	fmt.Fprintf(w, "%-5s  %-19s  %-9s  %-8s  %s\n", "ID", "Timestamp", "Status", "Findings", "Query")
	fmt.Fprintln(w, strings.Repeat("-", 100))
	for _, r := range records {
		fmt.Fprintf(w, "%-5d  %-19s  %-9s  %-8d  %s\n",
			r.ID, r.Timestamp.Local().Format("2006-01-02 15:04:05"), r.Status, r.FindingCount, preview(r.Query, 50))
	}
	fmt.Fprintf(w, "\n%d queries\n", len(records))
	return nil
}

func formatResult(w io.Writer, res *types.QueryResult) {
	q := res.Query
	fmt.Fprintf(w, "Query %d: %s\n", q.ID, q.Query)
	fmt.Fprintf(w, "Status: %s | %s\n", q.Status, q.Timestamp.Local().Format("2006-01-02 15:04:05"))
	if q.SessionID != "" {
		fmt.Fprintf(w, "Session: %s\n", q.SessionID)
	}
	fmt.Fprintln(w)

	if res.Summary != nil {
		summary.Format(w, *res.Summary)
	} else {
		fmt.Fprintln(w, "No summary recorded for this query.")
	}

	fmt.Fprintf(w, "\nFindings (%d):\n", len(res.Findings))
	for i, f := range res.Findings {
		tier := f.QualityTier
		if tier == "" {
			tier = types.TierUnknown
		}
		fmt.Fprintf(w, "  %d. [%s] %s\n", i+1, tier, orElse(f.Title, "Unknown"))
		fmt.Fprintf(w, "     %s\n", orElse(f.Source, "N/A"))
	}
}

func formatStats(w io.Writer, stats types.Statistics, path string) {
	fmt.Fprintln(w, "Research history statistics")
	fmt.Fprintf(w, "  Total queries:     %d\n", stats.TotalQueries)
	fmt.Fprintf(w, "  Completed queries: %d\n", stats.CompletedQueries)
	fmt.Fprintf(w, "  Total findings:    %d\n", stats.TotalFindings)
	fmt.Fprintf(w, "  Total summaries:   %d\n", stats.TotalSummaries)
	fmt.Fprintf(w, "  Sessions:          %d\n", stats.TotalSessions)
	if path != "" {
		fmt.Fprintf(w, "  Database path:     %s\n", path)
	}

	if len(stats.FindingsByTier) == 0 {
		return
	}
	tiers := make([]string, 0, len(stats.FindingsByTier))
	for t := range stats.FindingsByTier {
		tiers = append(tiers, string(t))
	}
	sort.Strings(tiers)
	fmt.Fprintln(w, "  Findings by source quality:")
	for _, t := range tiers {
		fmt.Fprintf(w, "    %-8s %d\n", t, stats.FindingsByTier[types.QualityTier(t)])
	}
}

func preview(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n]) + "..."
}

func orElse(s, fallback string) string {
	if s == "" {
		return fallback
	}
	return s
}
