// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package cache remembers findings from past research runs and returns
// the ones gathered for topics that share words with a new topic.
package cache

import (
	"context"
	"fmt"
	"sort"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/pdiddy/research-assistant/internal/store"
	"github.com/pdiddy/research-assistant/pkg/types"
)

// DefaultMaxResults is the number of similar findings fetched per run.
const DefaultMaxResults = 3

// Cache stores findings by topic and looks up findings for similar topics.
// Returned findings carry the past topic in OriginalQuery.
type Cache interface {
	SearchSimilar(ctx context.Context, query string, n int) ([]types.Finding, error)
	AddFindings(ctx context.Context, query string, findings []types.Finding) error
}

// New builds the cache selected by cfg.Backend. The sqlite backend needs
// an open store.
func New(ctx context.Context, cfg types.CacheConfig, st *store.Store, log *zap.Logger) (Cache, error) {
	switch cfg.Backend {
	case "", "memory":
		return NewMemory(), nil
	case "sqlite":
		if st == nil {
			return nil, fmt.Errorf("sqlite cache requires the history store")
		}
		return NewSQLite(st), nil
	case "redis":
		addr := cfg.RedisAddr
		if addr == "" {
			addr = "localhost:6379"
		}
		client := redis.NewClient(&redis.Options{Addr: addr})
		if err := client.Ping(ctx).Err(); err != nil {
			client.Close()
			return nil, fmt.Errorf("connecting to redis at %s: %w", addr, err)
		}
		log.Debug("redis cache connected", zap.String("addr", addr))
		return NewRedis(client, cfg.TTL), nil
	case "none":
		return Nop{}, nil
	default:
		return nil, fmt.Errorf("unsupported cache backend %q", cfg.Backend)
	}
}

// Lookup returns up to n similar findings from c. A nil cache or a lookup
// failure yields an empty list.
func Lookup(ctx context.Context, c Cache, query string, n int, log *zap.Logger) []types.Finding {
	if c == nil {
		return []types.Finding{}
	}
	found, err := c.SearchSimilar(ctx, query, n)
	if err != nil {
		if log != nil {
			log.Warn("cache lookup failed", zap.String("query", query), zap.Error(err))
		}
		return []types.Finding{}
	}
	if found == nil {
		return []types.Finding{}
	}
	return found
}

// Nop is a cache that stores nothing and finds nothing.
type Nop struct{}

func (Nop) SearchSimilar(context.Context, string, int) ([]types.Finding, error) {
	return []types.Finding{}, nil
}

func (Nop) AddFindings(context.Context, string, []types.Finding) error { return nil }

// SQLite serves similarity lookups from the history store. Findings reach
// the store through the research loop's recorder, so AddFindings is a no-op.
type SQLite struct {
	store *store.Store
}

// NewSQLite returns a cache backed by st.
func NewSQLite(st *store.Store) *SQLite {
	return &SQLite{store: st}
}

func (c *SQLite) SearchSimilar(ctx context.Context, query string, n int) ([]types.Finding, error) {
	return c.store.SimilarFindings(ctx, query, n)
}

func (c *SQLite) AddFindings(context.Context, string, []types.Finding) error { return nil }

// ranked is a past topic scored against a lookup.
type ranked struct {
	query   string
	overlap int
}

// rank orders topics by shared-word count, dropping those with none.
// Ties keep the order of topics.
func rank(query string, topics []string) []ranked {
	var out []ranked
	for _, t := range topics {
		if n := types.KeywordOverlap(query, t); n > 0 {
			out = append(out, ranked{query: t, overlap: n})
		}
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].overlap > out[j].overlap })
	return out
}

// collect appends findings tagged with topic to dst, skipping sources
// already present, until dst holds n findings. It reports whether dst is full.
func collect(dst *[]types.Finding, seen map[string]bool, topic string, findings []types.Finding, n int) bool {
	for _, f := range findings {
		if len(*dst) >= n {
			return true
		}
		if seen[f.Source] {
			continue
		}
		seen[f.Source] = true
		f.OriginalQuery = topic
		*dst = append(*dst, f)
	}
	return len(*dst) >= n
}
