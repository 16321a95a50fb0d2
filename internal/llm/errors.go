// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package llm

import (
	"errors"
	"fmt"
)

// ErrUnsupportedProvider is returned by NewProvider for an unknown provider name.
type ErrUnsupportedProvider struct {
	Provider string
}

func (e ErrUnsupportedProvider) Error() string {
	return fmt.Sprintf("unsupported LLM provider: %s (supported: openai, anthropic, ollama)", e.Provider)
}

// ErrMissingAPIKey matches any MissingAPIKeyError via errors.Is.
var ErrMissingAPIKey = errors.New("API key not configured")

// MissingAPIKeyError reports a hosted provider selected without a usable key.
type MissingAPIKeyError struct {
	Provider string
}

func (e *MissingAPIKeyError) Error() string {
	return fmt.Sprintf("%s: %s", e.Provider, ErrMissingAPIKey)
}

func (e *MissingAPIKeyError) Is(target error) bool {
	return target == ErrMissingAPIKey
}

// APIError is a non-200 response from a provider.
type APIError struct {
	Provider   string
	StatusCode int
	Body       string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("%s API returned %d: %s", e.Provider, e.StatusCode, e.Body)
}
