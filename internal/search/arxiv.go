// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package search

import (
	"context"
	"encoding/xml"
	"fmt"
	"net/http"
	"net/url"
	"strings"

	"github.com/pdiddy/research-assistant/pkg/types"
)

// arxivAPIBase is the arXiv search endpoint. Declared as a var so tests
// can substitute an httptest server.
var arxivAPIBase = "https://export.arxiv.org/api/query"

// Arxiv searches arXiv preprints. Hits link to the abstract page and carry
// the abstract as the snippet, so every result lands in the high quality tier.
type Arxiv struct {
	Client    *http.Client
	UserAgent string
}

func (a *Arxiv) Name() string { return "arxiv" }

func (a *Arxiv) Search(ctx context.Context, query string, maxResults int) ([]types.RawResult, error) {
	terms := strings.Fields(query)
	if len(terms) == 0 {
		return nil, fmt.Errorf("empty arXiv query")
	}
	if maxResults <= 0 {
		maxResults = DefaultResultsPerQuery
	}

	params := url.Values{
		"search_query": {"all:" + strings.Join(terms, " AND all:")},
		"start":        {"0"},
		"max_results":  {fmt.Sprintf("%d", maxResults)},
		"sortBy":       {"relevance"},
		"sortOrder":    {"descending"},
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, arxivAPIBase+"?"+params.Encode(), nil)
	if err != nil {
		return nil, fmt.Errorf("creating request: %w", err)
	}
	if a.UserAgent != "" {
		req.Header.Set("User-Agent", a.UserAgent)
	}

	resp, err := clientOrDefault(a.Client).Do(req)
	if err != nil {
		return nil, fmt.Errorf("arXiv API request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("arXiv API returned HTTP %d", resp.StatusCode)
	}

	var feed arxivFeed
	if err := xml.NewDecoder(resp.Body).Decode(&feed); err != nil {
		return nil, fmt.Errorf("parsing arXiv response: %w", err)
	}

	var results []types.RawResult
	for _, entry := range feed.Entries {
		link := abstractLink(entry.ID)
		if link == "" {
			continue
		}
		results = append(results, types.RawResult{
			Title:   strings.Join(strings.Fields(entry.Title), " "),
			Link:    link,
			Snippet: strings.Join(strings.Fields(entry.Summary), " "),
		})
	}
	return results, nil
}

type arxivFeed struct {
	Entries []arxivEntry `xml:"entry"`
}

type arxivEntry struct {
	ID      string `xml:"id"`
	Title   string `xml:"title"`
	Summary string `xml:"summary"`
}

// abstractLink normalizes an entry <id> (e.g. "http://arxiv.org/abs/2301.07041v1")
// to its https abstract URL. Non-abstract IDs yield "".
func abstractLink(id string) string {
	const prefix = "/abs/"
	idx := strings.Index(id, prefix)
	if idx < 0 {
		return ""
	}
	return "https://arxiv.org" + id[idx:]
}
