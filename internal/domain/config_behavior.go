package domain

import (
	"fmt"
	"os"
	"sort"
	"strconv"
	"strings"
	"time"
)

// ActiveProviderName returns the configured provider or the default.
func (c *Config) ActiveProviderName() string {
	if c.ActiveProvider == "" {
		return DefaultProvider
	}
	return c.ActiveProvider
}

// ActiveModelName returns the configured model or the default.
func (c *Config) ActiveModelName() string {
	if c.ActiveModel == "" {
		return DefaultModel
	}
	return c.ActiveModel
}

// EffectiveTemperature returns the configured temperature or the default.
func (c *Config) EffectiveTemperature() float64 {
	if c.Temperature == nil {
		return DefaultTemperature
	}
	return *c.Temperature
}

// EffectiveMaxTokens returns max_tokens or the default.
func (c *Config) EffectiveMaxTokens() int {
	if c.MaxTokens <= 0 {
		return DefaultMaxTokens
	}
	return c.MaxTokens
}

// CacheTTL returns cache_ttl_seconds or the default.
func (c *Config) CacheTTL() int {
	if c.CacheTTLSeconds <= 0 {
		return DefaultCacheTTLSeconds
	}
	return c.CacheTTLSeconds
}

// GetCacheMaxEntries returns the maximum number of cache entries
func (c *Config) GetCacheMaxEntries() int {
	if c.CacheMaxEntries <= 0 {
		return DefaultMaxCacheEntries
	}
	return c.CacheMaxEntries
}

// HistoryBackend returns json or sqlite.
func (c *Config) HistoryBackend() string {
	if c.History.Backend == "" {
		return HistoryBackendJSON
	}
	return strings.ToLower(c.History.Backend)
}

// HistoryMaxEntries returns the ledger bound.
func (c *Config) HistoryMaxEntries() int {
	if c.History.MaxEntries <= 0 {
		return DefaultHistoryMaxEntries
	}
	return c.History.MaxEntries
}

// AlternativesCount returns the number of alternatives to request.
func (c *Config) AlternativesCount() int {
	if c.Preferences.Alternatives <= 0 {
		return DefaultAlternatives
	}
	return c.Preferences.Alternatives
}

// ContextEnabled reports whether prompt context should be collected.
func (c *Config) ContextEnabled() bool {
	return c.Preferences.IncludeContext == nil || *c.Preferences.IncludeContext
}

// CatalogSource returns the discovery URL.
func (c *Config) CatalogSource() string {
	if c.Catalog.SourceURL == "" {
		return DefaultCatalogSourceURL
	}
	return c.Catalog.SourceURL
}

// CatalogMaxAge parses catalog.max_age, falling back to the default.
func (c *Config) CatalogMaxAge() time.Duration {
	if c.Catalog.MaxAge == "" {
		return DefaultCatalogMaxAge
	}
	d, err := time.ParseDuration(c.Catalog.MaxAge)
	if err != nil || d <= 0 {
		return DefaultCatalogMaxAge
	}
	return d
}

// GetExecutionShell returns the configured shell, else $SHELL, else /bin/sh.
func (c *Config) GetExecutionShell() string {
	if c.Execution.Shell != "" {
		return c.Execution.Shell
	}
	if shell := os.Getenv("SHELL"); shell != "" {
		return shell
	}
	return "/bin/sh"
}

// ProviderSettingsFor returns the settings for name and whether it is configured.
func (c *Config) ProviderSettingsFor(name string) (ProviderSettings, bool) {
	settings, ok := c.Providers[strings.ToLower(name)]
	return settings, ok
}

// ProviderNames returns the configured provider names, sorted.
func (c *Config) ProviderNames() []string {
	names := make([]string, 0, len(c.Providers))
	for name := range c.Providers {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// ConfiguredModels returns models listed per provider in the config.
func (c *Config) ConfiguredModels() map[string][]string {
	out := make(map[string][]string, len(c.Providers))
	for name, settings := range c.Providers {
		if len(settings.Models) > 0 {
			out[name] = append([]string(nil), settings.Models...)
		}
	}
	return out
}

// SetProvider adds or replaces a provider entry.
func (c *Config) SetProvider(name string, settings ProviderSettings) error {
	name = strings.ToLower(strings.TrimSpace(name))
	if name == "" {
		return fmt.Errorf("provider name is required")
	}
	if c.Providers == nil {
		c.Providers = make(map[string]ProviderSettings)
	}
	c.Providers[name] = settings
	return nil
}

// SwitchProvider makes name active. model, when non-empty, becomes the
// active model; otherwise the provider's first configured model is used.
func (c *Config) SwitchProvider(name, model string) error {
	name = strings.ToLower(name)
	settings, ok := c.Providers[name]
	if !ok {
		return fmt.Errorf("%w: %s is not configured", ErrUnknownProvider, name)
	}
	c.ActiveProvider = name
	switch {
	case model != "":
		c.ActiveModel = model
	case len(settings.Models) > 0:
		c.ActiveModel = settings.Models[0]
	}
	return nil
}

// RemoveProvider deletes a provider. Removing the active provider clears
// the active provider and model so defaults apply again.
func (c *Config) RemoveProvider(name string) error {
	name = strings.ToLower(name)
	if _, ok := c.Providers[name]; !ok {
		return fmt.Errorf("%w: %s is not configured", ErrUnknownProvider, name)
	}
	delete(c.Providers, name)
	if c.ActiveProvider == name {
		c.ActiveProvider = ""
		c.ActiveModel = ""
	}
	return nil
}

// APIKeyFor resolves a credential: explicit key, then the configured env
// var, then <PROVIDER>_API_KEY.
func (c *Config) APIKeyFor(provider string) string {
	settings, _ := c.ProviderSettingsFor(provider)
	if settings.APIKey != "" {
		return settings.APIKey
	}
	if settings.APIKeyEnv != "" {
		if v := os.Getenv(settings.APIKeyEnv); v != "" {
			return v
		}
	}
	return os.Getenv(DefaultAPIKeyEnv(provider))
}

// RequiresAPIKey is false for providers that run locally.
func RequiresAPIKey(provider string) bool {
	return strings.ToLower(provider) != "ollama"
}

// DefaultAPIKeyEnv returns e.g. OPENAI_API_KEY for "openai".
func DefaultAPIKeyEnv(provider string) string {
	name := strings.ToUpper(strings.NewReplacer("-", "_", ".", "_").Replace(provider))
	return name + "_API_KEY"
}

// Get returns a scalar setting addressed by dotted key.
func (c *Config) Get(key string) (string, error) {
	switch key {
	case "active_provider":
		return c.ActiveProviderName(), nil
	case "active_model":
		return c.ActiveModelName(), nil
	case "temperature":
		return strconv.FormatFloat(c.EffectiveTemperature(), 'f', -1, 64), nil
	case "max_tokens":
		return strconv.Itoa(c.EffectiveMaxTokens()), nil
	case "cache_ttl_seconds":
		return strconv.Itoa(c.CacheTTL()), nil
	case "cache_max_entries":
		return strconv.Itoa(c.GetCacheMaxEntries()), nil
	case "preferences.alternatives":
		return strconv.Itoa(c.AlternativesCount()), nil
	case "preferences.include_context":
		return strconv.FormatBool(c.ContextEnabled()), nil
	case "preferences.editor":
		return c.Preferences.Editor, nil
	case "preferences.auto_multi":
		return strconv.FormatBool(c.Preferences.AutoMulti), nil
	case "history.backend":
		return c.HistoryBackend(), nil
	case "history.max_entries":
		return strconv.Itoa(c.HistoryMaxEntries()), nil
	case "catalog.source_url":
		return c.CatalogSource(), nil
	case "catalog.max_age":
		return c.CatalogMaxAge().String(), nil
	case "execution.shell":
		return c.GetExecutionShell(), nil
	}
	return "", fmt.Errorf("unknown config key %q", key)
}

// Set assigns a scalar setting addressed by dotted key.
func (c *Config) Set(key, value string) error {
	switch key {
	case "active_provider":
		c.ActiveProvider = strings.ToLower(value)
	case "active_model":
		c.ActiveModel = value
	case "temperature":
		v, err := strconv.ParseFloat(value, 64)
		if err != nil {
			return fmt.Errorf("temperature: %w", err)
		}
		c.Temperature = &v
	case "max_tokens":
		return setInt(&c.MaxTokens, key, value)
	case "cache_ttl_seconds":
		return setInt(&c.CacheTTLSeconds, key, value)
	case "cache_max_entries":
		return setInt(&c.CacheMaxEntries, key, value)
	case "preferences.alternatives":
		return setInt(&c.Preferences.Alternatives, key, value)
	case "preferences.include_context":
		b, err := strconv.ParseBool(value)
		if err != nil {
			return fmt.Errorf("%s: %w", key, err)
		}
		c.Preferences.IncludeContext = &b
	case "preferences.editor":
		c.Preferences.Editor = value
	case "preferences.auto_multi":
		b, err := strconv.ParseBool(value)
		if err != nil {
			return fmt.Errorf("%s: %w", key, err)
		}
		c.Preferences.AutoMulti = b
	case "history.backend":
		c.History.Backend = strings.ToLower(value)
	case "history.max_entries":
		return setInt(&c.History.MaxEntries, key, value)
	case "catalog.source_url":
		c.Catalog.SourceURL = value
	case "catalog.max_age":
		if _, err := time.ParseDuration(value); err != nil {
			return fmt.Errorf("%s: %w", key, err)
		}
		c.Catalog.MaxAge = value
	case "execution.shell":
		c.Execution.Shell = value
	default:
		return fmt.Errorf("unknown config key %q", key)
	}
	return nil
}

func setInt(dst *int, key, value string) error {
	v, err := strconv.Atoi(value)
	if err != nil {
		return fmt.Errorf("%s: %w", key, err)
	}
	*dst = v
	return nil
}

// ValidateConsistency checks value ranges and references.
func (c *Config) ValidateConsistency() error {
	if c.Temperature != nil && (*c.Temperature < 0 || *c.Temperature > 2) {
		return fmt.Errorf("temperature must be between 0 and 2, got %v", *c.Temperature)
	}
	if c.MaxTokens < 0 {
		return fmt.Errorf("max_tokens must be >= 0")
	}
	if c.CacheTTLSeconds < 0 {
		return fmt.Errorf("cache_ttl_seconds must be >= 0")
	}
	if c.History.MaxEntries < 0 {
		return fmt.Errorf("history.max_entries must be >= 0")
	}
	switch c.HistoryBackend() {
	case HistoryBackendJSON, HistoryBackendSQLite:
	default:
		return fmt.Errorf("history.backend must be json|sqlite, got %s", c.History.Backend)
	}
	if c.Catalog.MaxAge != "" {
		if _, err := time.ParseDuration(c.Catalog.MaxAge); err != nil {
			return fmt.Errorf("catalog.max_age invalid: %w", err)
		}
	}
	return nil
}
