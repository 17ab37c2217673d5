package ai

import (
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/doeshing/nlsh/internal/domain"
	"github.com/doeshing/nlsh/internal/ports"
)

// knownEndpoints lists default endpoints for providers that need no
// endpoint in config.
var knownEndpoints = map[string]string{
	"openai":     "https://api.openai.com/v1/chat/completions",
	"anthropic":  "https://api.anthropic.com/v1/messages",
	"ollama":     "http://localhost:11434/v1/chat/completions",
	"groq":       "https://api.groq.com/openai/v1/chat/completions",
	"openrouter": "https://openrouter.ai/api/v1/chat/completions",
	"mistral":    "https://api.mistral.ai/v1/chat/completions",
	"deepseek":   "https://api.deepseek.com/chat/completions",
	"together":   "https://api.together.xyz/v1/chat/completions",
}

// Factory builds provider clients from configuration.
type Factory struct {
	httpClient *http.Client
	// ConfigPath is quoted in remediation hints.
	ConfigPath string
}

// NewFactory returns a factory using a 60s HTTP timeout.
func NewFactory(configPath string) *Factory {
	return &Factory{
		httpClient: &http.Client{Timeout: 60 * time.Second},
		ConfigPath: configPath,
	}
}

// NewFactoryWithClient is used by tests to point at httptest servers.
func NewFactoryWithClient(client *http.Client) *Factory {
	return &Factory{httpClient: client}
}

// ForProvider resolves endpoint, credential and wire format for provider.
func (f *Factory) ForProvider(cfg domain.Config, provider string) (ports.LLMClient, error) {
	name := strings.ToLower(strings.TrimSpace(provider))
	if name == "" {
		name = cfg.ActiveProviderName()
	}
	settings, _ := cfg.ProviderSettingsFor(name)

	endpoint := settings.Endpoint
	if endpoint == "" {
		endpoint = knownEndpoints[name]
	}
	if endpoint == "" {
		return nil, &domain.ConfigError{
			Path: f.ConfigPath,
			Err:  fmt.Errorf("%w: no endpoint configured for %s", domain.ErrUnknownProvider, name),
			Hint: fmt.Sprintf("Run: nlsh providers set %s --endpoint <url>", name),
		}
	}

	apiKey := cfg.APIKeyFor(name)
	if apiKey == "" && domain.RequiresAPIKey(name) {
		return nil, &domain.ConfigError{
			Path: f.ConfigPath,
			Err:  fmt.Errorf("%w for %s", domain.ErrMissingCredential, name),
			Hint: fmt.Sprintf("Please either:\n  1. Add providers.%s.api_key to the config file\n  2. Set the %s environment variable\n  3. Run: nlsh init-config", name, domain.DefaultAPIKeyEnv(name)),
		}
	}

	adapter := adapterFor(name)
	structured := adapter.schemaMode
	if settings.StructuredOutput != nil {
		structured = adapter.schemaMode && *settings.StructuredOutput
		if name == "ollama" {
			structured = *settings.StructuredOutput
		}
	}

	return &httpClient{
		name:       name,
		endpoint:   endpoint,
		apiKey:     apiKey,
		structured: structured,
		httpClient: f.httpClient,
		adapter:    adapter,
	}, nil
}

func adapterFor(name string) providerAdapter {
	switch name {
	case "anthropic":
		return anthropicAdapter()
	case "ollama":
		return ollamaAdapter()
	case "azure":
		return azureAdapter()
	default:
		return openaiAdapter()
	}
}

var _ ports.ClientFactory = (*Factory)(nil)
