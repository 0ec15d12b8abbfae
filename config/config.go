// Package config loads and merges parley configuration: a YAML file
// layered over defaults, with environment overrides for provider
// credentials.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"dario.cat/mergo"
	"gopkg.in/yaml.v3"

	"github.com/parley-llm/parley/llm"
)

// AnthropicConfig represents configuration for the Anthropic provider.
type AnthropicConfig struct {
	APIKey string `yaml:"api_key,omitempty"` // Anthropic API key
	Model  string `yaml:"model,omitempty"`   // Default model name
}

// OllamaConfig represents configuration for the Ollama provider.
type OllamaConfig struct {
	Host  string `yaml:"host,omitempty"`  // Ollama host (default: "http://localhost:11434")
	Model string `yaml:"model,omitempty"` // Default model name
}

// OpenAIConfig represents configuration for the OpenAI provider.
type OpenAIConfig struct {
	APIKey       string `yaml:"api_key,omitempty"`      // OpenAI API key
	BaseURL      string `yaml:"base_url,omitempty"`     // Custom base URL (default: official API)
	Model        string `yaml:"model,omitempty"`        // Default model name
	Organization string `yaml:"organization,omitempty"` // Organization ID
}

// RetryConfig represents retry policy settings for provider calls.
type RetryConfig struct {
	MaxAttempts  uint64 `yaml:"max_attempts,omitempty"`  // Total attempts including the first (default: 5)
	DelaySeconds int    `yaml:"delay_seconds,omitempty"` // Fixed delay between attempts (default: 2)
}

// StoreConfig represents conversation store settings.
type StoreConfig struct {
	Path string `yaml:"path,omitempty"` // SQLite database path (default: ~/.parley/parley.db)
}

// NotifyConfig represents error notification settings.
type NotifyConfig struct {
	// Desktop enables desktop notifications for stage failures. When
	// false, failures are only logged.
	Desktop bool `yaml:"desktop,omitempty"`
}

// Config represents the full parley configuration.
type Config struct {
	// LLM provider configurations
	Anthropic AnthropicConfig `yaml:"anthropic,omitempty"`
	Ollama    OllamaConfig    `yaml:"ollama,omitempty"`
	OpenAI    OpenAIConfig    `yaml:"openai,omitempty"`

	// LLMProviders lists the enabled providers in preference order.
	LLMProviders []string `yaml:"llm_providers,omitempty"`

	Retry  RetryConfig  `yaml:"retry,omitempty"`
	Store  StoreConfig  `yaml:"store,omitempty"`
	Notify NotifyConfig `yaml:"notify,omitempty"`
}

// GetConfigPath returns the default config file path.
// Can be overridden via PARLEY_CONFIG_PATH environment variable.
func GetConfigPath() string {
	if envPath := os.Getenv("PARLEY_CONFIG_PATH"); envPath != "" {
		return expandPath(envPath)
	}
	homeDir, err := os.UserHomeDir()
	if err != nil {
		return "./.parley/config.yaml"
	}
	return filepath.Join(homeDir, ".parley", "config.yaml")
}

// Defaults returns the built-in configuration.
func Defaults() Config {
	homeDir, err := os.UserHomeDir()
	if err != nil {
		homeDir = "."
	}
	return Config{
		LLMProviders: []string{llm.ProviderOpenAI},
		Ollama: OllamaConfig{
			Host:  "http://localhost:11434",
			Model: "llama3.2:3b",
		},
		OpenAI: OpenAIConfig{
			BaseURL: "https://api.openai.com/v1",
			Model:   "gpt-4o-mini",
		},
		Anthropic: AnthropicConfig{
			Model: "claude-sonnet-4-20250514",
		},
		Retry: RetryConfig{
			MaxAttempts:  5,
			DelaySeconds: 2,
		},
		Store: StoreConfig{
			Path: filepath.Join(homeDir, ".parley", "parley.db"),
		},
	}
}

// Load reads the config file at path and merges it onto the defaults.
// A missing file yields the defaults.
func Load(path string) (*Config, error) {
	defaults := Defaults()

	expandedPath := expandPath(path)
	if _, err := os.Stat(expandedPath); err != nil {
		return &defaults, nil
	}

	configYAML, err := os.ReadFile(expandedPath) //#nosec 304 -- intentional file read for config
	if err != nil {
		return nil, fmt.Errorf("failed to read config file %q: %w", expandedPath, err)
	}

	var fileConfig Config
	if err := yaml.Unmarshal(configYAML, &fileConfig); err != nil {
		return nil, fmt.Errorf("failed to parse config file %q: %w", expandedPath, err)
	}

	if err := mergo.Merge(&defaults, fileConfig, mergo.WithOverride); err != nil {
		return nil, fmt.Errorf("failed to merge config: %w", err)
	}

	if err := defaults.validate(); err != nil {
		return nil, err
	}
	return &defaults, nil
}

// Save writes the configuration to the specified path.
func Save(cfg *Config, path string) error {
	expandedPath := expandPath(path)

	dir := filepath.Dir(expandedPath)
	if err := os.MkdirAll(dir, 0o750); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	data, err := yaml.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}

	if err := os.WriteFile(expandedPath, data, 0o600); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}
	return nil
}

// ProviderConfig builds the registry configuration from this config,
// with environment overrides applied.
func (c *Config) ProviderConfig() *llm.ProviderConfig {
	openAIKey, openAIBaseURL, openAIModel, openAIOrg := LoadOpenAIConfig(c)
	ollamaHost, ollamaModel := LoadOllamaConfig(c)
	anthropicKey, _ := LoadAnthropicConfig(c)

	return &llm.ProviderConfig{
		AnthropicAPIKey: anthropicKey,
		OllamaHost:      ollamaHost,
		OllamaModel:     ollamaModel,
		OpenAIAPIKey:    openAIKey,
		OpenAIBaseURL:   openAIBaseURL,
		OpenAIModel:     openAIModel,
		OpenAIOrg:       openAIOrg,
	}
}

func (c *Config) validate() error {
	for _, provider := range c.LLMProviders {
		switch provider {
		case llm.ProviderAnthropic, llm.ProviderOllama, llm.ProviderOpenAI:
		default:
			return llm.NewConfigurationError(fmt.Sprintf("unknown provider %q in llm_providers", provider))
		}
	}
	if c.Retry.MaxAttempts == 0 {
		return llm.NewConfigurationError("retry.max_attempts must be at least 1")
	}
	if c.Retry.DelaySeconds < 0 {
		return llm.NewConfigurationError("retry.delay_seconds must not be negative")
	}
	return nil
}

// expandPath expands ~ to the user's home directory.
func expandPath(path string) string {
	if strings.HasPrefix(path, "~/") {
		homeDir, err := os.UserHomeDir()
		if err != nil {
			return path
		}
		return filepath.Join(homeDir, path[2:])
	}
	return path
}
