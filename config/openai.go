package config

import (
	"os"

	llmopenai "github.com/parley-llm/parley/llm/openai"
)

// LoadOpenAIConfig loads OpenAI configuration from the config.
// It returns the API key, base URL, model, and organization to use for
// creating an OpenAI client, with environment variables taking
// precedence over file values.
func LoadOpenAIConfig(cfg *Config) (apiKey, baseURL, model, organization string) {
	if cfg != nil {
		apiKey = cfg.OpenAI.APIKey
		baseURL = cfg.OpenAI.BaseURL
		model = cfg.OpenAI.Model
		organization = cfg.OpenAI.Organization
	}

	if envAPIKey := os.Getenv("OPENAI_API_KEY"); envAPIKey != "" {
		apiKey = envAPIKey
	}
	if envBaseURL := os.Getenv("OPENAI_BASE_URL"); envBaseURL != "" {
		baseURL = envBaseURL
	}
	if envModel := os.Getenv("OPENAI_MODEL"); envModel != "" {
		model = envModel
	}
	if envOrg := os.Getenv("OPENAI_ORG_ID"); envOrg != "" {
		organization = envOrg
	}

	return apiKey, baseURL, model, organization
}

// NewOpenAIClient creates a new OpenAI client from the configuration.
func NewOpenAIClient(cfg *Config) (*llmopenai.Client, error) {
	apiKey, baseURL, model, organization := LoadOpenAIConfig(cfg)
	return llmopenai.NewClient(apiKey, baseURL, model, organization)
}
