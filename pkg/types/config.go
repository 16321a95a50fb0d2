// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package types

import "time"

// HTTPConfig holds shared HTTP settings used by stages that make network requests.
type HTTPConfig struct {
	// Timeout is the HTTP request timeout.
	Timeout time.Duration `json:"timeout" yaml:"timeout" mapstructure:"timeout"`

	// UserAgent is the User-Agent header sent with HTTP requests
	// (e.g. "research-assistant/0.1").
	UserAgent string `json:"user_agent" yaml:"user_agent" mapstructure:"user_agent"`
}

// LLMConfig selects and configures the model provider.
type LLMConfig struct {
	HTTPConfig `yaml:",inline" mapstructure:",squash"`

	// Provider is one of "openai", "anthropic", or "ollama".
	Provider string `json:"provider" yaml:"provider" mapstructure:"provider"`

	// Model is the model identifier. Empty selects the provider's default.
	Model string `json:"model" yaml:"model" mapstructure:"model"`

	// BaseURL overrides the provider endpoint (OpenAI-compatible gateways, remote Ollama).
	BaseURL string `json:"base_url,omitempty" yaml:"base_url,omitempty" mapstructure:"base_url"`

	// APIKey authenticates against hosted providers. Ollama ignores it.
	APIKey string `json:"api_key,omitempty" yaml:"api_key,omitempty" mapstructure:"api_key"`

	// Temperature applies to planning and extraction calls (default 0.3).
	Temperature float64 `json:"temperature" yaml:"temperature" mapstructure:"temperature"`

	// SummaryTemperature applies to the summary call (default 0.4).
	SummaryTemperature float64 `json:"summary_temperature" yaml:"summary_temperature" mapstructure:"summary_temperature"`

	// MaxTokens bounds each completion (default 4096).
	MaxTokens int `json:"max_tokens" yaml:"max_tokens" mapstructure:"max_tokens"`
}

// SearchConfig holds settings for the web search stage.
type SearchConfig struct {
	HTTPConfig `yaml:",inline" mapstructure:",squash"`

	// Backend is one of "duckduckgo", "brave", or "tavily".
	Backend string `json:"backend" yaml:"backend" mapstructure:"backend"`

	// ResultsPerQuery caps the hits kept per generated query (default 3).
	ResultsPerQuery int `json:"results_per_query" yaml:"results_per_query" mapstructure:"results_per_query"`

	// APIKey authenticates Brave or Tavily.
	APIKey string `json:"api_key,omitempty" yaml:"api_key,omitempty" mapstructure:"api_key"`

	// MaxRetries bounds HTTP 429 retries (default 5).
	MaxRetries int `json:"max_retries" yaml:"max_retries" mapstructure:"max_retries"`
}

// LoopConfig holds the research loop's stopping thresholds.
type LoopConfig struct {
	// MaxIterations is the hard ceiling on loop passes (default 3).
	MaxIterations int `json:"max_iterations" yaml:"max_iterations" mapstructure:"max_iterations"`

	// MinFindings is the finding count below which research continues (default 3).
	MinFindings int `json:"min_findings" yaml:"min_findings" mapstructure:"min_findings"`

	// MinHighQuality is the high-tier count below which research continues
	// while the iteration is under HighQualityDeadline (default 1).
	MinHighQuality int `json:"min_high_quality" yaml:"min_high_quality" mapstructure:"min_high_quality"`

	// HighQualityDeadline is the iteration after which a shortage of
	// high-tier findings no longer forces another pass (default 2).
	HighQualityDeadline int `json:"high_quality_deadline" yaml:"high_quality_deadline" mapstructure:"high_quality_deadline"`

	// MaxSearchQueries caps the planner's output (default 5).
	MaxSearchQueries int `json:"max_search_queries" yaml:"max_search_queries" mapstructure:"max_search_queries"`
}

// DefaultLoopConfig returns the stock stopping thresholds.
func DefaultLoopConfig() LoopConfig {
	return LoopConfig{
		MaxIterations:       3,
		MinFindings:         3,
		MinHighQuality:      1,
		HighQualityDeadline: 2,
		MaxSearchQueries:    5,
	}
}

// StoreConfig locates the SQLite research history database.
type StoreConfig struct {
	// Path is the database file (default "research_history.db").
	Path string `json:"path" yaml:"path" mapstructure:"path"`

	// Disabled turns persistence off entirely.
	Disabled bool `json:"disabled" yaml:"disabled" mapstructure:"disabled"`
}

// CacheConfig selects the similarity cache backend.
type CacheConfig struct {
	// Backend is one of "memory", "sqlite", "redis", or "none".
	Backend string `json:"backend" yaml:"backend" mapstructure:"backend"`

	// RedisAddr is the Redis address for the redis backend.
	RedisAddr string `json:"redis_addr,omitempty" yaml:"redis_addr,omitempty" mapstructure:"redis_addr"`

	// TTL expires Redis entries; zero keeps them forever.
	TTL time.Duration `json:"ttl" yaml:"ttl" mapstructure:"ttl"`

	// MaxResults is the number of similar findings fetched per run (default 3).
	MaxResults int `json:"max_results" yaml:"max_results" mapstructure:"max_results"`
}

// ExportFormat names a report file format.
type ExportFormat string

const (
	FormatMarkdown ExportFormat = "md"
	FormatJSON     ExportFormat = "json"
	FormatText     ExportFormat = "txt"
	FormatYAML     ExportFormat = "yaml"
	FormatAll      ExportFormat = "all"
)

// ExportConfig holds report export settings.
type ExportConfig struct {
	// OutputDir receives exported reports (default "research_outputs").
	OutputDir string `json:"output_dir" yaml:"output_dir" mapstructure:"output_dir"`

	// AutoFormat is written after every successful run; empty disables it (default "md").
	AutoFormat ExportFormat `json:"auto_format" yaml:"auto_format" mapstructure:"auto_format"`
}

// ServerConfig holds settings for the HTTP API.
type ServerConfig struct {
	Addr string `json:"addr" yaml:"addr" mapstructure:"addr"`

	// RunTimeout bounds a single research request.
	RunTimeout time.Duration `json:"run_timeout" yaml:"run_timeout" mapstructure:"run_timeout"`
}

// PipelineConfig groups all stage configurations for the pipeline.
type PipelineConfig struct {
	LLM      LLMConfig    `json:"llm" yaml:"llm" mapstructure:"llm"`
	Search   SearchConfig `json:"search" yaml:"search" mapstructure:"search"`
	Loop     LoopConfig   `json:"loop" yaml:"loop" mapstructure:"loop"`
	Store    StoreConfig  `json:"store" yaml:"store" mapstructure:"store"`
	Cache    CacheConfig  `json:"cache" yaml:"cache" mapstructure:"cache"`
	Export   ExportConfig `json:"export" yaml:"export" mapstructure:"export"`
	Server   ServerConfig `json:"server" yaml:"server" mapstructure:"server"`
	LogLevel string       `json:"log_level" yaml:"log_level" mapstructure:"log_level"`
}
