package domain

import "time"

// File permissions constants
const (
	// DirectoryPermissions is the permission for the state directory (rwx------)
	DirectoryPermissions = 0o700
	// SecureFilePermissions is the permission for sensitive files (rw-------)
	SecureFilePermissions = 0o600
)

// Generation defaults
const (
	DefaultProvider    = "openai"
	DefaultModel       = "gpt-4o-mini"
	DefaultTemperature = 0.3
	DefaultMaxTokens   = 200
	// DefaultAlternatives is how many options --alternatives asks for.
	DefaultAlternatives = 3
)

// Cache defaults
const (
	DefaultCacheTTLSeconds = 86400
	DefaultMaxCacheEntries = 1000
)

// History constants
const (
	// DefaultHistoryLimit is the default number of history records to display
	DefaultHistoryLimit = 20
	// DefaultHistoryMaxEntries bounds the ledger
	DefaultHistoryMaxEntries = 1000
	HistoryBackendJSON       = "json"
	HistoryBackendSQLite     = "sqlite"
)

// Catalog constants
const (
	DefaultCatalogSourceURL = "https://raw.githubusercontent.com/BerriAI/litellm/main/model_prices_and_context_window.json"
	DefaultCatalogMaxAge    = 24 * time.Hour
)

// Timeout and duration constants
const (
	// DefaultCommandTimeout is the timeout for helper commands such as git
	DefaultCommandTimeout = 2 * time.Second
	// DefaultHTTPClientTimeout is the timeout for catalog downloads
	DefaultHTTPClientTimeout = 60 * time.Second
)

// State document names under the state directory
const (
	ConfigFileName    = "config.yaml"
	CacheFileName     = "cache.json"
	HistoryFileName   = "history.json"
	HistoryDBName     = "history.db"
	TemplatesFileName = "templates.json"
	CatalogFileName   = "providers.json"
)
