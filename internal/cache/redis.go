// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package cache

import (
	"context"
	"encoding/json"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/pdiddy/research-assistant/pkg/types"
)

const redisPrefix = "research-assistant:"

// Redis keeps findings in Redis so several processes share one cache.
// Each topic's findings live in a list; a set per word indexes topics.
type Redis struct {
	client *redis.Client
	ttl    time.Duration
}

// NewRedis returns a cache using client. A positive ttl expires topics
// and word sets that stop being written.
func NewRedis(client *redis.Client, ttl time.Duration) *Redis {
	return &Redis{client: client, ttl: ttl}
}

func topicKey(topic string) string { return redisPrefix + "topic:" + topic }
func wordKey(word string) string   { return redisPrefix + "word:" + word }

// AddFindings appends findings to the topic's list and indexes its words.
func (r *Redis) AddFindings(ctx context.Context, query string, findings []types.Finding) error {
	topic := strings.ToLower(strings.TrimSpace(query))
	if topic == "" || len(findings) == 0 {
		return nil
	}

	values := make([]any, 0, len(findings))
	for _, f := range findings {
		f.OriginalQuery = ""
		data, err := json.Marshal(f)
		if err != nil {
			return fmt.Errorf("marshaling finding: %w", err)
		}
		values = append(values, data)
	}

	pipe := r.client.TxPipeline()
	pipe.RPush(ctx, topicKey(topic), values...)
	if r.ttl > 0 {
		pipe.Expire(ctx, topicKey(topic), r.ttl)
	}
	for w := range types.Keywords(topic) {
		pipe.SAdd(ctx, wordKey(w), topic)
		if r.ttl > 0 {
			pipe.Expire(ctx, wordKey(w), r.ttl)
		}
	}
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("caching findings: %w", err)
	}
	return nil
}

// SearchSimilar returns up to n findings from topics sharing at least one
// word with query, best overlap first. Ties are broken by topic name.
func (r *Redis) SearchSimilar(ctx context.Context, query string, n int) ([]types.Finding, error) {
	results := []types.Finding{}
	if n <= 0 {
		return results, nil
	}

	candidates := make(map[string]bool)
	for w := range types.Keywords(query) {
		topics, err := r.client.SMembers(ctx, wordKey(w)).Result()
		if err != nil {
			return nil, fmt.Errorf("reading word index: %w", err)
		}
		for _, t := range topics {
			candidates[t] = true
		}
	}

	topics := make([]string, 0, len(candidates))
	for t := range candidates {
		topics = append(topics, t)
	}
	sort.Strings(topics)

	seen := make(map[string]bool)
	for _, rk := range rank(query, topics) {
		raw, err := r.client.LRange(ctx, topicKey(rk.query), 0, -1).Result()
		if err != nil {
			return nil, fmt.Errorf("reading topic %q: %w", rk.query, err)
		}
		findings := make([]types.Finding, 0, len(raw))
		for _, item := range raw {
			var f types.Finding
			if err := json.Unmarshal([]byte(item), &f); err != nil {
				continue
			}
			findings = append(findings, f)
		}
		if collect(&results, seen, rk.query, findings, n) {
			break
		}
	}
	return results, nil
}

// Close releases the Redis connection.
func (r *Redis) Close() error {
	return r.client.Close()
}
