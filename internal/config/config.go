// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package config resolves the pipeline configuration from viper: config
// file, RESEARCH_ASSISTANT_* environment variables, and bound flags.
package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"

	"github.com/pdiddy/research-assistant/pkg/types"
)

// EnvPrefix is prepended to every environment override.
const EnvPrefix = "RESEARCH_ASSISTANT"

// SetDefaults registers the stock value of every key on v.
func SetDefaults(v *viper.Viper) {
	loop := types.DefaultLoopConfig()

	v.SetDefault("log_level", "warn")

	v.SetDefault("llm.provider", "openai")
	v.SetDefault("llm.temperature", 0.3)
	v.SetDefault("llm.summary_temperature", 0.4)
	v.SetDefault("llm.max_tokens", 4096)
	v.SetDefault("llm.timeout", 120*time.Second)
	v.SetDefault("llm.user_agent", "research-assistant")

	v.SetDefault("search.backend", "duckduckgo")
	v.SetDefault("search.results_per_query", 3)
	v.SetDefault("search.max_retries", 5)
	v.SetDefault("search.timeout", 30*time.Second)
	v.SetDefault("search.user_agent", "research-assistant")

	v.SetDefault("loop.max_iterations", loop.MaxIterations)
	v.SetDefault("loop.min_findings", loop.MinFindings)
	v.SetDefault("loop.min_high_quality", loop.MinHighQuality)
	v.SetDefault("loop.high_quality_deadline", loop.HighQualityDeadline)
	v.SetDefault("loop.max_search_queries", loop.MaxSearchQueries)

	v.SetDefault("store.path", "research_history.db")
	v.SetDefault("store.disabled", false)

	v.SetDefault("cache.backend", "memory")
	v.SetDefault("cache.redis_addr", "localhost:6379")
	v.SetDefault("cache.ttl", 7*24*time.Hour)
	v.SetDefault("cache.max_results", 3)

	v.SetDefault("export.output_dir", "research_outputs")
	v.SetDefault("export.auto_format", string(types.FormatMarkdown))

	v.SetDefault("server.addr", ":8080")
	v.SetDefault("server.run_timeout", 10*time.Minute)
}

// Setup applies defaults and environment handling to v.
func Setup(v *viper.Viper) {
	SetDefaults(v)
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
}

// Load decodes v into a PipelineConfig and validates it.
func Load(v *viper.Viper) (types.PipelineConfig, error) {
	var cfg types.PipelineConfig
	if err := v.Unmarshal(&cfg); err != nil {
		return cfg, fmt.Errorf("decoding config: %w", err)
	}
	if err := Validate(cfg); err != nil {
		return cfg, err
	}
	return cfg, nil
}

var (
	providers      = []string{"openai", "anthropic", "ollama"}
	searchBackends = []string{"duckduckgo", "ddg", "brave", "tavily", "arxiv"}
	cacheBackends  = []string{"memory", "sqlite", "redis", "none"}
	exportFormats  = []string{"", "md", "json", "txt", "yaml", "all"}
)

func oneOf(field, value string, allowed []string) error {
	for _, a := range allowed {
		if value == a {
			return nil
		}
	}
	return fmt.Errorf("invalid %s %q (want one of %s)", field, value, strings.Join(allowed, ", "))
}

// Validate checks enumerations and numeric bounds.
func Validate(cfg types.PipelineConfig) error {
	checks := []error{
		oneOf("llm.provider", cfg.LLM.Provider, providers),
		oneOf("search.backend", cfg.Search.Backend, searchBackends),
		oneOf("cache.backend", cfg.Cache.Backend, cacheBackends),
		oneOf("export.auto_format", string(cfg.Export.AutoFormat), exportFormats),
	}
	for _, err := range checks {
		if err != nil {
			return err
		}
	}

	switch {
	case cfg.Loop.MaxIterations < 1:
		return fmt.Errorf("loop.max_iterations must be at least 1, got %d", cfg.Loop.MaxIterations)
	case cfg.Loop.MaxSearchQueries < 1:
		return fmt.Errorf("loop.max_search_queries must be at least 1, got %d", cfg.Loop.MaxSearchQueries)
	case cfg.Search.ResultsPerQuery < 1:
		return fmt.Errorf("search.results_per_query must be at least 1, got %d", cfg.Search.ResultsPerQuery)
	case cfg.LLM.Temperature < 0 || cfg.LLM.Temperature > 2:
		return fmt.Errorf("llm.temperature must be within [0, 2], got %g", cfg.LLM.Temperature)
	case cfg.Cache.Backend == "sqlite" && cfg.Store.Disabled:
		return fmt.Errorf("cache.backend sqlite requires the history store")
	}
	return nil
}
