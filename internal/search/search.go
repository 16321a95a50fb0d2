// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package search is the web search boundary. A Backend returns raw hits for
// one query; Multi runs a batch of generated queries and merges the hits into
// one list deduplicated by link.
package search

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/pdiddy/research-assistant/pkg/types"
)

// DefaultResultsPerQuery caps the hits kept per generated query.
const DefaultResultsPerQuery = 3

// Backend searches a single web search provider.
type Backend interface {
	Name() string
	Search(ctx context.Context, query string, maxResults int) ([]types.RawResult, error)
}

// Output holds merged results and statistics for one batch of queries.
type Output struct {
	Results       []types.RawResult
	DupsRemoved   int
	BackendErrors []string
}

// Multi runs each query against b in order and merges the hits. Results with
// an empty link are dropped; results sharing a link keep the first occurrence.
// Each kept result is tagged with the query that found it.
//
// A backend failure is logged and counted in BackendErrors but otherwise
// treated as zero results for that query, so callers cannot tell a failed
// search from an empty one through Results alone.
func Multi(ctx context.Context, b Backend, queries []string, perQuery int, log *zap.Logger) Output {
	if perQuery <= 0 {
		perQuery = DefaultResultsPerQuery
	}
	if log == nil {
		log = zap.NewNop()
	}

	var out Output
	seen := make(map[string]bool)
	for _, q := range queries {
		hits, err := b.Search(ctx, q, perQuery)
		if err != nil {
			log.Warn("search failed, treating as no results",
				zap.String("backend", b.Name()),
				zap.String("query", q),
				zap.Error(err))
			out.BackendErrors = append(out.BackendErrors, fmt.Sprintf("%s: %q: %v", b.Name(), q, err))
			continue
		}
		if len(hits) > perQuery {
			hits = hits[:perQuery]
		}
		for _, h := range hits {
			if h.Link == "" {
				continue
			}
			if seen[h.Link] {
				out.DupsRemoved++
				continue
			}
			seen[h.Link] = true
			h.Query = q
			out.Results = append(out.Results, h)
		}
	}
	return out
}

// NewBackend builds the backend named by cfg.Backend. An empty name selects
// DuckDuckGo, which needs no API key.
func NewBackend(cfg types.SearchConfig, log *zap.Logger) (Backend, error) {
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 15 * time.Second
	}
	client := &http.Client{Timeout: timeout}

	switch strings.ToLower(cfg.Backend) {
	case "", "duckduckgo", "ddg":
		return &DuckDuckGo{Client: client, UserAgent: cfg.UserAgent, MaxRetries: cfg.MaxRetries, Log: log}, nil
	case "brave":
		if cfg.APIKey == "" {
			return nil, fmt.Errorf("brave search requires an API key (search.api_key or .secrets/brave-api-key)")
		}
		return &Brave{APIKey: cfg.APIKey, Client: client, MaxRetries: cfg.MaxRetries, Log: log}, nil
	case "tavily":
		if cfg.APIKey == "" {
			return nil, fmt.Errorf("tavily search requires an API key (search.api_key or .secrets/tavily-api-key)")
		}
		return &Tavily{APIKey: cfg.APIKey, Client: client, MaxRetries: cfg.MaxRetries, Log: log}, nil
	case "arxiv":
		return &Arxiv{Client: client, UserAgent: cfg.UserAgent}, nil
	default:
		return nil, fmt.Errorf("unknown search backend %q (supported: duckduckgo, brave, tavily, arxiv)", cfg.Backend)
	}
}

// FormatTable writes results as a human-readable table to w.
func FormatTable(out Output, w io.Writer) {
	if len(out.Results) == 0 {
		fmt.Fprintln(w, "No results found.")
		return
	}

	fmt.Fprintf(w, "%-4s  %-50s  %-45s  %s\n", "Rank", "Title", "Link", "Query")
	fmt.Fprintln(w, strings.Repeat("-", 120))

	for i, r := range out.Results {
		fmt.Fprintf(w, "%-4d  %-50s  %-45s  %s\n", i+1, truncate(r.Title, 50), truncate(r.Link, 45), r.Query)
	}

	fmt.Fprintf(w, "\n%d results", len(out.Results))
	if out.DupsRemoved > 0 {
		fmt.Fprintf(w, " (%d duplicates removed)", out.DupsRemoved)
	}
	fmt.Fprintln(w)
	for _, e := range out.BackendErrors {
		fmt.Fprintf(w, "warning: %s\n", e)
	}
}

// FormatJSON writes results as indented JSON to w.
func FormatJSON(out Output, w io.Writer) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(out.Results)
}

func truncate(s string, max int) string {
	r := []rune(s)
	if len(r) <= max {
		return s
	}
	return string(r[:max-3]) + "..."
}
