package config

import (
	"fmt"

	"github.com/entrhq/testforge/pkg/llm/openai"
)

// BuildProvider creates the LLM provider from resolved settings.
// Callers apply CLI overrides to cfg before calling.
func BuildProvider(cfg LLMConfig) (*openai.Provider, error) {
	if cfg.APIKey == "" {
		return nil, fmt.Errorf("API key is required. Set %s, use --api-key, or set llm.api_key in the config file", EnvAPIKey)
	}

	providerOpts := []openai.ProviderOption{
		openai.WithModel(cfg.Model),
	}
	if cfg.BaseURL != "" {
		providerOpts = append(providerOpts, openai.WithBaseURL(cfg.BaseURL))
	}

	provider, err := openai.NewProvider(cfg.APIKey, providerOpts...)
	if err != nil {
		return nil, fmt.Errorf("failed to create LLM provider: %w", err)
	}
	return provider, nil
}
