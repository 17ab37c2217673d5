package domain

// Config mirrors ~/.config/nlsh/config.yaml.
type Config struct {
	ConfigFormatVersion string                      `yaml:"config_format_version"`
	ActiveProvider      string                      `yaml:"active_provider"`
	ActiveModel         string                      `yaml:"active_model"`
	Temperature         *float64                    `yaml:"temperature,omitempty"`
	MaxTokens           int                         `yaml:"max_tokens"`
	CacheTTLSeconds     int                         `yaml:"cache_ttl_seconds"`
	CacheMaxEntries     int                         `yaml:"cache_max_entries"`
	Providers           map[string]ProviderSettings `yaml:"providers"`
	Preferences         Preferences                 `yaml:"preferences"`
	History             HistorySettings             `yaml:"history"`
	Catalog             CatalogSettings             `yaml:"catalog"`
	Execution           ExecutionSettings           `yaml:"execution"`
}

// ProviderSettings holds credentials and routing for one provider.
type ProviderSettings struct {
	APIKey    string   `yaml:"api_key,omitempty"`
	APIKeyEnv string   `yaml:"api_key_env,omitempty"`
	Endpoint  string   `yaml:"endpoint,omitempty"`
	Models    []string `yaml:"models,omitempty"`
	// StructuredOutput set to false skips the schema-constrained attempt.
	StructuredOutput *bool `yaml:"structured_output,omitempty"`
}

// Preferences captures user level toggles.
type Preferences struct {
	Alternatives   int    `yaml:"alternatives"`
	IncludeContext *bool  `yaml:"include_context,omitempty"`
	Editor         string `yaml:"editor,omitempty"`
	AutoMulti      bool   `yaml:"auto_multi"`
}

// HistorySettings selects the history backend.
type HistorySettings struct {
	Backend    string `yaml:"backend"`
	MaxEntries int    `yaml:"max_entries"`
}

// CatalogSettings configures provider discovery.
type CatalogSettings struct {
	SourceURL string `yaml:"source_url"`
	MaxAge    string `yaml:"max_age"`
}

// ExecutionSettings controls how commands run.
type ExecutionSettings struct {
	Shell string `yaml:"shell"`
}
