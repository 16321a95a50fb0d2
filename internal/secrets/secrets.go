// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package secrets loads API keys and credentials from a directory of plain-text files.
// Each file in the directory represents one secret: the filename is the key name and the
// file contents (trimmed) are the value.
//
// Supported key files: openai-api-key, anthropic-api-key, brave-api-key, tavily-api-key.
package secrets

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"go.uber.org/zap"

	"github.com/pdiddy/research-assistant/pkg/types"
)

// DefaultDir is the secrets directory searched when none is configured.
const DefaultDir = ".secrets"

// Key file names.
const (
	OpenAIKey    = "openai-api-key"
	AnthropicKey = "anthropic-api-key"
	BraveKey     = "brave-api-key"
	TavilyKey    = "tavily-api-key"
)

// Load reads all files in dir and returns a map of filename to trimmed contents.
// A missing directory or missing files are not errors; Load returns an empty map.
// Unreadable files are logged as warnings but do not abort.
func Load(dir string, log *zap.Logger) (map[string]string, error) {
	if log == nil {
		log = zap.NewNop()
	}

	entries, err := os.ReadDir(dir)
	if err != nil {
		if os.IsNotExist(err) {
			return map[string]string{}, nil
		}
		return nil, fmt.Errorf("reading secrets directory %s: %w", dir, err)
	}

	secrets := make(map[string]string)
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		name := entry.Name()
		if strings.HasPrefix(name, ".") {
			continue
		}

		data, err := os.ReadFile(filepath.Join(dir, name))
		if err != nil {
			log.Warn("could not read secret", zap.String("name", name), zap.Error(err))
			continue
		}

		value := strings.TrimSpace(string(data))
		if value != "" {
			secrets[name] = value
		}
	}

	return secrets, nil
}

// Apply fills empty API keys in cfg from loaded secrets, choosing the key
// file that matches the configured LLM provider and search backend.
func Apply(cfg *types.PipelineConfig, secrets map[string]string) {
	if cfg.LLM.APIKey == "" {
		switch cfg.LLM.Provider {
		case "", "openai":
			cfg.LLM.APIKey = secrets[OpenAIKey]
		case "anthropic":
			cfg.LLM.APIKey = secrets[AnthropicKey]
		}
	}
	if cfg.Search.APIKey == "" {
		switch cfg.Search.Backend {
		case "brave":
			cfg.Search.APIKey = secrets[BraveKey]
		case "tavily":
			cfg.Search.APIKey = secrets[TavilyKey]
		}
	}
}
