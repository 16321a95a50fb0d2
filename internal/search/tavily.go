// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package search

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"

	"go.uber.org/zap"

	"github.com/pdiddy/research-assistant/internal/httputil"
	"github.com/pdiddy/research-assistant/pkg/types"
)

var tavilyEndpoint = "https://api.tavily.com/search"

// Tavily calls the Tavily search API.
type Tavily struct {
	APIKey     string
	Client     *http.Client
	MaxRetries int
	Log        *zap.Logger

	// Depth is Tavily's search_depth parameter, "basic" when empty.
	Depth string
}

type tavilyRequest struct {
	Query       string `json:"query"`
	SearchDepth string `json:"search_depth"`
	MaxResults  int    `json:"max_results,omitempty"`
}

func (t *Tavily) Name() string { return "tavily" }

func (t *Tavily) Search(ctx context.Context, query string, maxResults int) ([]types.RawResult, error) {
	payload, err := json.Marshal(tavilyRequest{
		Query:       query,
		SearchDepth: defaultIfEmpty(t.Depth, "basic"),
		MaxResults:  maxResults,
	})
	if err != nil {
		return nil, fmt.Errorf("marshaling request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, tavilyEndpoint, bytes.NewReader(payload))
	if err != nil {
		return nil, fmt.Errorf("creating request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+t.APIKey)

	resp, err := httputil.DoWithRetry(ctx, clientOrDefault(t.Client), req, t.MaxRetries, t.Log)
	if err != nil {
		return nil, fmt.Errorf("tavily request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("tavily returned HTTP %d", resp.StatusCode)
	}

	var response struct {
		Results []struct {
			Title   string `json:"title"`
			URL     string `json:"url"`
			Content string `json:"content"`
		} `json:"results"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&response); err != nil {
		return nil, fmt.Errorf("decoding tavily response: %w", err)
	}

	results := make([]types.RawResult, 0, len(response.Results))
	for _, r := range response.Results {
		results = append(results, types.RawResult{Title: r.Title, Link: r.URL, Snippet: r.Content})
		if maxResults > 0 && len(results) >= maxResults {
			break
		}
	}
	return results, nil
}
