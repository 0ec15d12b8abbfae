package config

import (
	"os"

	llmollama "github.com/parley-llm/parley/llm/ollama"
)

// LoadOllamaConfig loads Ollama configuration from the config.
// It returns the host and model to use for creating an Ollama client,
// with environment variables taking precedence over file values.
func LoadOllamaConfig(cfg *Config) (host, model string) {
	if cfg != nil {
		host = cfg.Ollama.Host
		model = cfg.Ollama.Model
	}

	if envHost := os.Getenv("OLLAMA_HOST"); envHost != "" {
		host = envHost
	}
	if envModel := os.Getenv("OLLAMA_MODEL"); envModel != "" {
		model = envModel
	}

	if host == "" {
		host = "http://localhost:11434"
	}

	return host, model
}

// NewOllamaClient creates a new Ollama client from the configuration.
func NewOllamaClient(cfg *Config) (*llmollama.Client, error) {
	host, model := LoadOllamaConfig(cfg)
	return llmollama.NewClient(host, model)
}
