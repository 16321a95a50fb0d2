// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package main is the entry point for the research-assistant CLI.
package main

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"go.uber.org/zap"

	"github.com/pdiddy/research-assistant/internal/config"
	"github.com/pdiddy/research-assistant/internal/logging"
	"github.com/pdiddy/research-assistant/internal/secrets"
	"github.com/pdiddy/research-assistant/internal/store"
	"github.com/pdiddy/research-assistant/pkg/types"
)

// version is set at build time via ldflags.
var version = "dev"

var (
	// pipelineCfg is resolved from file, environment, flags, and .secrets/
	// before any subcommand runs.
	pipelineCfg types.PipelineConfig

	logger = zap.NewNop()
)

// flagKeys maps persistent flags to the config keys they override.
var flagKeys = map[string]string{
	"db":         "store.path",
	"no-history": "store.disabled",
	"output-dir": "export.output_dir",
	"provider":   "llm.provider",
	"model":      "llm.model",
	"search":     "search.backend",
	"cache":      "cache.backend",
	"log-level":  "log_level",
}

// rootCmd is the base command. Without a subcommand it starts the
// interactive session.
var rootCmd = &cobra.Command{
	Use:   "research-assistant",
	Short: "Multi-step web research with summarized reports",
	Long: `research-assistant researches a topic on the web. It plans search queries
with a language model, searches, extracts findings, rates their sources, and
loops until the findings are sufficient. The result is an executive summary
with key insights and a source list, saved to a local history database and
exported as a report.

Run without arguments for an interactive session with conversation threads,
or use the research subcommand for a single topic.`,
	SilenceUsage:      true,
	Args:              cobra.NoArgs,
	PersistentPreRunE: loadRuntime,
	PersistentPostRun: func(*cobra.Command, []string) { _ = logger.Sync() },
	RunE:              runInteractive,
}

func init() {
	cobra.OnInitialize(initConfig)
	config.Setup(viper.GetViper())

	pf := rootCmd.PersistentFlags()
	pf.String("config", "", "config file (default: ./"+configName+".yaml or ~/.config/research-assistant/"+configName+".yaml)")
	pf.String("db", "", "research history database path")
	pf.Bool("no-history", false, "do not read or write the history database")
	pf.String("output-dir", "", "directory for exported reports")
	pf.String("provider", "", "model provider: openai, anthropic, or ollama")
	pf.String("model", "", "model identifier (default: provider's default)")
	pf.String("search", "", "search backend: duckduckgo, brave, tavily, or arxiv")
	pf.String("cache", "", "similarity cache: memory, sqlite, redis, or none")
	pf.String("log-level", "", "log level: debug, info, warn, or error")

	for flag, key := range flagKeys {
		_ = viper.BindPFlag(key, pf.Lookup(flag))
	}
}

// configName is the base name of the YAML config file searched for in the
// working directory and ~/.config/research-assistant.
const configName = "research-assistant"

func initConfig() {
	cfgFile, _ := rootCmd.PersistentFlags().GetString("config")
	if cfgFile != "" {
		viper.SetConfigFile(cfgFile)
	} else {
		viper.SetConfigName(configName)
		viper.SetConfigType("yaml")
		viper.AddConfigPath(".")

		home, err := os.UserHomeDir()
		if err == nil {
			viper.AddConfigPath(filepath.Join(home, ".config", "research-assistant"))
		}
	}

	if err := viper.ReadInConfig(); err == nil {
		fmt.Fprintln(os.Stderr, "Using config file:", viper.ConfigFileUsed())
	}
}

// loadRuntime resolves the configuration, builds the logger, and fills API
// keys from .secrets/.
func loadRuntime(cmd *cobra.Command, _ []string) error {
	cfg, err := config.Load(viper.GetViper())
	if err != nil {
		return err
	}

	log, err := logging.New(cfg.LogLevel)
	if err != nil {
		return err
	}
	logger = log

	s, err := secrets.Load(secrets.DefaultDir, log)
	if err != nil {
		return err
	}
	if len(s) > 0 {
		keys := make([]string, 0, len(s))
		for k := range s {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		log.Info("loaded secrets", zap.Strings("keys", keys))
	}
	secrets.Apply(&cfg, s)

	pipelineCfg = cfg
	log.Debug("configuration loaded",
		zap.String("command", cmd.Name()),
		zap.String("provider", cfg.LLM.Provider),
		zap.String("search", cfg.Search.Backend),
		zap.String("store", cfg.Store.Path),
	)
	return nil
}

// openStore opens the history database, or returns nil when history is
// disabled.
func openStore(cfg types.PipelineConfig) (*store.Store, error) {
	if cfg.Store.Disabled {
		return nil, nil
	}
	return store.NewStore(cfg.Store)
}

// requireStore opens the history database for commands that cannot run
// without it.
func requireStore(cfg types.PipelineConfig) (*store.Store, error) {
	if cfg.Store.Disabled {
		return nil, fmt.Errorf("history is disabled (store.disabled or --no-history)")
	}
	return store.NewStore(cfg.Store)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}
