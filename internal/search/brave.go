// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package search

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strconv"

	"go.uber.org/zap"

	"github.com/pdiddy/research-assistant/internal/httputil"
	"github.com/pdiddy/research-assistant/pkg/types"
)

var braveEndpoint = "https://api.search.brave.com/res/v1/web/search"

// Brave queries the Brave Search API using the X-Subscription-Token header.
type Brave struct {
	APIKey     string
	Client     *http.Client
	MaxRetries int
	Log        *zap.Logger
}

func (b *Brave) Name() string { return "brave" }

func (b *Brave) Search(ctx context.Context, query string, maxResults int) ([]types.RawResult, error) {
	params := url.Values{"q": {query}}
	if maxResults > 0 {
		params.Set("count", strconv.Itoa(maxResults))
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, braveEndpoint+"?"+params.Encode(), nil)
	if err != nil {
		return nil, fmt.Errorf("creating request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	req.Header.Set("X-Subscription-Token", b.APIKey)

	resp, err := httputil.DoWithRetry(ctx, clientOrDefault(b.Client), req, b.MaxRetries, b.Log)
	if err != nil {
		return nil, fmt.Errorf("brave request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("brave returned HTTP %d", resp.StatusCode)
	}

	var payload struct {
		Web struct {
			Results []struct {
				Title       string `json:"title"`
				URL         string `json:"url"`
				Description string `json:"description"`
			} `json:"results"`
		} `json:"web"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
		return nil, fmt.Errorf("decoding brave response: %w", err)
	}

	results := make([]types.RawResult, 0, len(payload.Web.Results))
	for _, r := range payload.Web.Results {
		results = append(results, types.RawResult{Title: r.Title, Link: r.URL, Snippet: cleanHTML(r.Description)})
		if maxResults > 0 && len(results) >= maxResults {
			break
		}
	}
	return results, nil
}
