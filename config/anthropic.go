package config

import (
	"os"

	"github.com/rs/zerolog"

	llmanthropic "github.com/parley-llm/parley/llm/anthropic"
)

// LoadAnthropicConfig loads Anthropic configuration from the config.
// It returns the API key and model to use for creating an Anthropic
// client, with environment variables taking precedence.
func LoadAnthropicConfig(cfg *Config) (apiKey, model string) {
	if cfg != nil {
		apiKey = cfg.Anthropic.APIKey
		model = cfg.Anthropic.Model
	}

	if envAPIKey := os.Getenv("ANTHROPIC_API_KEY"); envAPIKey != "" {
		apiKey = envAPIKey
	}
	if envModel := os.Getenv("ANTHROPIC_MODEL"); envModel != "" {
		model = envModel
	}

	return apiKey, model
}

// NewAnthropicClient creates a new Anthropic client from the
// configuration.
func NewAnthropicClient(cfg *Config, logger zerolog.Logger) (*llmanthropic.Client, error) {
	apiKey, model := LoadAnthropicConfig(cfg)
	return llmanthropic.NewClient(apiKey, model, logger)
}
