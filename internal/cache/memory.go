// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package cache

import (
	"context"
	"strings"
	"sync"

	"github.com/pdiddy/research-assistant/pkg/types"
)

// Memory is an in-process cache keyed by lower-cased topic. It is safe
// for concurrent use.
type Memory struct {
	mu     sync.RWMutex
	order  []string
	topics map[string][]types.Finding
}

// NewMemory returns an empty in-process cache.
func NewMemory() *Memory {
	return &Memory{topics: make(map[string][]types.Finding)}
}

// AddFindings appends findings under query. Sources already cached for
// the same topic are ignored.
func (m *Memory) AddFindings(_ context.Context, query string, findings []types.Finding) error {
	key := strings.ToLower(strings.TrimSpace(query))
	if key == "" || len(findings) == 0 {
		return nil
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	existing, ok := m.topics[key]
	if !ok {
		m.order = append(m.order, key)
	}
	have := make(map[string]bool, len(existing))
	for _, f := range existing {
		have[f.Source] = true
	}
	for _, f := range findings {
		if have[f.Source] {
			continue
		}
		have[f.Source] = true
		f.OriginalQuery = ""
		existing = append(existing, f)
	}
	m.topics[key] = existing
	return nil
}

// SearchSimilar returns up to n findings from cached topics sharing at
// least one word with query, best overlap first.
func (m *Memory) SearchSimilar(_ context.Context, query string, n int) ([]types.Finding, error) {
	results := []types.Finding{}
	if n <= 0 {
		return results, nil
	}

	m.mu.RLock()
	defer m.mu.RUnlock()

	seen := make(map[string]bool)
	for _, r := range rank(query, m.order) {
		if collect(&results, seen, r.query, m.topics[r.query], n) {
			break
		}
	}
	return results, nil
}

// Len reports the number of cached topics.
func (m *Memory) Len() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.order)
}
