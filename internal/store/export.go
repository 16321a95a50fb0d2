// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package store

import (
	"context"
	"encoding/csv"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"
	"time"
)

// ExportRow is one flattened history record written by the history exports.
type ExportRow struct {
	ID               int64
	Query            string
	Timestamp        string
	Status           string
	ExecutiveSummary string
	KeyInsights      []string
}

// ExportRows returns every query joined with its summary, newest first.
func (s *Store) ExportRows(ctx context.Context) ([]ExportRow, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT q.id, q.query, q.timestamp, q.status,
			COALESCE(s.executive_summary, ''), COALESCE(s.key_insights, '')
		 FROM queries q
		 LEFT JOIN summaries s ON q.id = s.query_id
		 ORDER BY q.timestamp DESC, q.id DESC`)
	if err != nil {
		return nil, fmt.Errorf("querying for export: %w", err)
	}
	defer rows.Close()

	var out []ExportRow
	for rows.Next() {
		var (
			r        ExportRow
			insights string
		)
		if err := rows.Scan(&r.ID, &r.Query, &r.Timestamp, &r.Status, &r.ExecutiveSummary, &insights); err != nil {
			return nil, fmt.Errorf("scanning export row: %w", err)
		}
		if insights != "" {
			if err := json.Unmarshal([]byte(insights), &r.KeyInsights); err != nil {
				r.KeyInsights = []string{insights}
			}
		}
		out = append(out, r)
	}
	return out, rows.Err()
}

// Default export destinations, relative to the working directory.
const (
	DefaultCSVPath  = "research_history.csv"
	DefaultTextPath = "research_history.txt"
)

// ExportCSV writes the history to path as CSV and returns the number of
// records written.
func (s *Store) ExportCSV(ctx context.Context, path string) (int, error) {
	records, err := s.ExportRows(ctx)
	if err != nil {
		return 0, err
	}

	f, err := os.Create(path)
	if err != nil {
		return 0, fmt.Errorf("creating %s: %w", path, err)
	}
	defer f.Close()

	if err := WriteCSV(f, records); err != nil {
		return 0, err
	}
	return len(records), f.Close()
}

// WriteCSV writes records with the header
// ID, Query, Timestamp, Status, Executive Summary, Key Insights.
func WriteCSV(w io.Writer, records []ExportRow) error {
	cw := csv.NewWriter(w)
	if err := cw.Write([]string{"ID", "Query", "Timestamp", "Status", "Executive Summary", "Key Insights"}); err != nil {
		return fmt.Errorf("writing CSV header: %w", err)
	}
	for _, r := range records {
		row := []string{
			strconv.FormatInt(r.ID, 10),
			r.Query,
			r.Timestamp,
			r.Status,
			r.ExecutiveSummary,
			strings.Join(r.KeyInsights, " | "),
		}
		if err := cw.Write(row); err != nil {
			return fmt.Errorf("writing CSV row %d: %w", r.ID, err)
		}
	}
	cw.Flush()
	return cw.Error()
}

// ExportText writes the history to path as a human-readable report and
// returns the number of records written.
func (s *Store) ExportText(ctx context.Context, path string) (int, error) {
	records, err := s.ExportRows(ctx)
	if err != nil {
		return 0, err
	}

	f, err := os.Create(path)
	if err != nil {
		return 0, fmt.Errorf("creating %s: %w", path, err)
	}
	defer f.Close()

	if err := WriteText(f, records); err != nil {
		return 0, err
	}
	return len(records), f.Close()
}

// WriteText renders records as the plain-text history report.
func WriteText(w io.Writer, records []ExportRow) error {
	heavy := strings.Repeat("=", 70)
	light := strings.Repeat("─", 70)

	var b strings.Builder
	fmt.Fprintf(&b, "%s\nRESEARCH HISTORY EXPORT\nTotal Records: %d\n", heavy, len(records))
	fmt.Fprintf(&b, "Generated: %s\n%s\n\n", nowFunc().Format(time.DateTime), heavy)

	for _, r := range records {
		fmt.Fprintf(&b, "%s\nID: %d | Status: %s\nTimestamp: %s\nQuery: %s\n%s\n",
			light, r.ID, r.Status, r.Timestamp, r.Query, light)
		if r.ExecutiveSummary != "" {
			fmt.Fprintf(&b, "\nEXECUTIVE SUMMARY:\n%s\n", r.ExecutiveSummary)
		}
		if len(r.KeyInsights) > 0 {
			b.WriteString("\nKEY INSIGHTS:\n")
			for i, insight := range r.KeyInsights {
				fmt.Fprintf(&b, "%d. %s\n", i+1, insight)
			}
		}
		b.WriteString("\n")
	}

	_, err := io.WriteString(w, b.String())
	return err
}
