// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/spf13/viper"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pdiddy/research-assistant/pkg/types"
)

func TestLoad_Defaults(t *testing.T) {
	v := viper.New()
	Setup(v)

	cfg, err := Load(v)
	require.NoError(t, err)

	assert.Equal(t, "openai", cfg.LLM.Provider)
	assert.Equal(t, 0.3, cfg.LLM.Temperature)
	assert.Equal(t, 0.4, cfg.LLM.SummaryTemperature)
	assert.Equal(t, 120*time.Second, cfg.LLM.Timeout)
	assert.Equal(t, "duckduckgo", cfg.Search.Backend)
	assert.Equal(t, 3, cfg.Search.ResultsPerQuery)
	assert.Equal(t, types.DefaultLoopConfig(), cfg.Loop)
	assert.Equal(t, "research_history.db", cfg.Store.Path)
	assert.Equal(t, "memory", cfg.Cache.Backend)
	assert.Equal(t, types.FormatMarkdown, cfg.Export.AutoFormat)
	assert.Equal(t, ":8080", cfg.Server.Addr)
}

func TestLoad_FileAndEnv(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "research-assistant.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
llm:
  provider: anthropic
  model: claude-test
  timeout: 45s
search:
  backend: brave
loop:
  max_iterations: 5
cache:
  backend: redis
  ttl: 1h
`), 0o644))

	t.Setenv("RESEARCH_ASSISTANT_SEARCH_RESULTS_PER_QUERY", "7")

	v := viper.New()
	Setup(v)
	v.SetConfigFile(path)
	require.NoError(t, v.ReadInConfig())

	cfg, err := Load(v)
	require.NoError(t, err)
	assert.Equal(t, "anthropic", cfg.LLM.Provider)
	assert.Equal(t, "claude-test", cfg.LLM.Model)
	assert.Equal(t, 45*time.Second, cfg.LLM.Timeout)
	assert.Equal(t, "brave", cfg.Search.Backend)
	assert.Equal(t, 7, cfg.Search.ResultsPerQuery)
	assert.Equal(t, 5, cfg.Loop.MaxIterations)
	assert.Equal(t, 3, cfg.Loop.MinFindings)
	assert.Equal(t, time.Hour, cfg.Cache.TTL)
}

func TestValidate(t *testing.T) {
	base := func() types.PipelineConfig {
		v := viper.New()
		Setup(v)
		cfg, err := Load(v)
		require.NoError(t, err)
		return cfg
	}

	tests := []struct {
		name   string
		mutate func(*types.PipelineConfig)
		errMsg string
	}{
		{"bad provider", func(c *types.PipelineConfig) { c.LLM.Provider = "gemini" }, "llm.provider"},
		{"bad backend", func(c *types.PipelineConfig) { c.Search.Backend = "google" }, "search.backend"},
		{"bad cache", func(c *types.PipelineConfig) { c.Cache.Backend = "chroma" }, "cache.backend"},
		{"bad format", func(c *types.PipelineConfig) { c.Export.AutoFormat = "pdf" }, "export.auto_format"},
		{"zero iterations", func(c *types.PipelineConfig) { c.Loop.MaxIterations = 0 }, "max_iterations"},
		{"zero queries", func(c *types.PipelineConfig) { c.Loop.MaxSearchQueries = 0 }, "max_search_queries"},
		{"zero results", func(c *types.PipelineConfig) { c.Search.ResultsPerQuery = 0 }, "results_per_query"},
		{"hot temperature", func(c *types.PipelineConfig) { c.LLM.Temperature = 3 }, "temperature"},
		{"sqlite cache without store", func(c *types.PipelineConfig) {
			c.Cache.Backend = "sqlite"
			c.Store.Disabled = true
		}, "requires the history store"},
		{"export disabled is fine", func(c *types.PipelineConfig) { c.Export.AutoFormat = "" }, ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := base()
			tt.mutate(&cfg)
			err := Validate(cfg)
			if tt.errMsg == "" {
				assert.NoError(t, err)
				return
			}
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.errMsg)
		})
	}
}
