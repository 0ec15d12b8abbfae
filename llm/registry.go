package llm

import (
	"fmt"
	"sync"
)

const (
	ProviderAnthropic = "anthropic"
	ProviderOllama    = "ollama"
	ProviderOpenAI    = "openai"
)

// Preference represents a single provider/model preference. Callers can
// specify multiple preferences in order, and the registry resolves the
// first available provider from the list.
type Preference struct {
	Provider string
	Model    string
}

// ClientKey uniquely identifies a provider client configuration.
type ClientKey struct {
	Provider     string
	Model        string
	APIKey       string // For credential-based providers
	Host         string // For Ollama
	BaseURL      string // For OpenAI
	Organization string // For OpenAI
}

// ProviderConfig holds the configuration needed for provider selection.
// This avoids import cycles by not importing the config package.
type ProviderConfig struct {
	AnthropicAPIKey string
	OllamaHost      string
	OllamaModel     string
	OpenAIAPIKey    string
	OpenAIBaseURL   string
	OpenAIModel     string
	OpenAIOrg       string
}

// ProviderRegistry manages provider selection and configuration
// resolution. Client creation and caching is handled by the caller.
type ProviderRegistry struct {
	enabledProviders map[string]bool
	mu               sync.RWMutex
	config           *ProviderConfig
}

// NewProviderRegistry creates a ProviderRegistry with the given config
// and enabled providers.
func NewProviderRegistry(providerConfig *ProviderConfig, enabledProviders []string) *ProviderRegistry {
	enabledMap := make(map[string]bool)
	for _, p := range enabledProviders {
		enabledMap[p] = true
	}

	return &ProviderRegistry{
		enabledProviders: enabledMap,
		config:           providerConfig,
	}
}

// IsProviderEnabled checks if a provider is in the enabled providers list.
func (r *ProviderRegistry) IsProviderEnabled(provider string) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.enabledProviders[provider]
}

// IsProviderConfigured checks if a provider has the required
// configuration (API keys, hosts).
func (r *ProviderRegistry) IsProviderConfigured(provider string) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.isProviderConfiguredUnlocked(provider)
}

// Resolve returns a ClientKey for the first enabled and configured
// provider from the preference list. An empty preference list resolves
// to OpenAI, the only provider with the full capability surface.
func (r *ProviderRegistry) Resolve(prefs []Preference) (*ClientKey, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	if len(prefs) == 0 {
		prefs = []Preference{{Provider: ProviderOpenAI}}
	}

	var attempted []string
	for _, pref := range prefs {
		attempted = append(attempted, pref.Provider)

		if !r.enabledProviders[pref.Provider] {
			continue
		}
		if !r.isProviderConfiguredUnlocked(pref.Provider) {
			continue
		}

		key, err := r.resolveProviderConfig(pref.Provider, pref.Model)
		if err != nil {
			continue
		}
		return key, nil
	}

	return nil, NewConfigurationError(
		fmt.Sprintf("no available provider from preferences %v (enabled: %v)", attempted, r.enabledList()))
}

func (r *ProviderRegistry) isProviderConfiguredUnlocked(provider string) bool {
	switch provider {
	case ProviderAnthropic:
		return r.config.AnthropicAPIKey != ""
	case ProviderOllama:
		// Ollama falls back to its environment default host.
		return true
	case ProviderOpenAI:
		return r.config.OpenAIAPIKey != ""
	default:
		return false
	}
}

func (r *ProviderRegistry) resolveProviderConfig(provider, model string) (*ClientKey, error) {
	switch provider {
	case ProviderAnthropic:
		return &ClientKey{
			Provider: ProviderAnthropic,
			Model:    model,
			APIKey:   r.config.AnthropicAPIKey,
		}, nil
	case ProviderOllama:
		if model == "" {
			model = r.config.OllamaModel
		}
		return &ClientKey{
			Provider: ProviderOllama,
			Model:    model,
			Host:     r.config.OllamaHost,
		}, nil
	case ProviderOpenAI:
		if model == "" {
			model = r.config.OpenAIModel
		}
		return &ClientKey{
			Provider:     ProviderOpenAI,
			Model:        model,
			APIKey:       r.config.OpenAIAPIKey,
			BaseURL:      r.config.OpenAIBaseURL,
			Organization: r.config.OpenAIOrg,
		}, nil
	default:
		return nil, fmt.Errorf("unknown provider: %s", provider)
	}
}

func (r *ProviderRegistry) enabledList() []string {
	var providers []string
	for p, enabled := range r.enabledProviders {
		if enabled {
			providers = append(providers, p)
		}
	}
	return providers
}
