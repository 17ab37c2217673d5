package config

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"

	"github.com/doeshing/nlsh/assets"
	"github.com/doeshing/nlsh/internal/domain"
	"github.com/doeshing/nlsh/internal/pkg/filesystem"
	"github.com/doeshing/nlsh/internal/ports"
)

// EnvConfigPath overrides the config location.
const EnvConfigPath = "NLSH_CONFIG"

// FileLoader loads YAML configuration from ~/.config/nlsh/config.yaml
// (overridable via NLSH_CONFIG or an explicit path).
type FileLoader struct {
	overridePath string
	logger       ports.Logger
}

// NewFileLoader builds a new loader. An empty path uses the default location.
func NewFileLoader(path string, logger ports.Logger) *FileLoader {
	return &FileLoader{overridePath: path, logger: logger}
}

// legacyFields are the flat keys used before providers were introduced.
type legacyFields struct {
	OpenAIAPIKey string `yaml:"openai_api_key"`
	DefaultModel string `yaml:"default_model"`
}

// Load implements ports.ConfigProvider. A missing file yields defaults and
// is not created; a malformed one is a fatal ConfigError.
func (l *FileLoader) Load(ctx context.Context) (domain.Config, error) {
	path := l.Path()
	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return hydrateDefaults(domain.Config{}), nil
		}
		return domain.Config{}, &domain.ConfigError{Path: path, Err: fmt.Errorf("read config: %w", err)}
	}

	var cfg domain.Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return domain.Config{}, &domain.ConfigError{
			Path: path,
			Hint: "Fix the YAML syntax, or move the file away and run: nlsh init-config",
			Err:  fmt.Errorf("parse config: %w", err),
		}
	}
	var legacy legacyFields
	_ = yaml.Unmarshal(data, &legacy)

	if migrateLegacy(&cfg, legacy) {
		if err := l.Save(ctx, cfg); err != nil {
			l.warn("could not rewrite migrated config", map[string]interface{}{"path": path, "error": err.Error()})
		} else {
			l.warn("migrated legacy config keys", map[string]interface{}{"path": path})
		}
	}

	cfg = hydrateDefaults(cfg)
	if err := cfg.ValidateConsistency(); err != nil {
		return domain.Config{}, &domain.ConfigError{
			Path: path,
			Hint: "Edit the file or run: nlsh config set <key> <value>",
			Err:  err,
		}
	}
	return cfg, nil
}

// Save validates cfg and rewrites the whole document with mode 0600.
func (l *FileLoader) Save(_ context.Context, cfg domain.Config) error {
	if err := cfg.ValidateConsistency(); err != nil {
		return err
	}
	path := l.Path()
	if err := ensureConfigDir(path); err != nil {
		return err
	}
	raw, err := yaml.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("encode config: %w", err)
	}
	return filesystem.WriteFileAtomic(path, raw, domain.SecureFilePermissions)
}

// WriteDefault writes the annotated default document. It refuses to
// overwrite an existing file.
func (l *FileLoader) WriteDefault(context.Context) (string, error) {
	path := l.Path()
	if _, err := os.Stat(path); err == nil {
		return path, fmt.Errorf("config already exists at %s", path)
	}
	if err := ensureConfigDir(path); err != nil {
		return path, err
	}
	if err := filesystem.WriteFileAtomic(path, assets.DefaultConfigYAML, domain.SecureFilePermissions); err != nil {
		return path, err
	}
	return path, nil
}

// Path returns the resolved config file location.
func (l *FileLoader) Path() string {
	if l.overridePath != "" {
		return expandPath(l.overridePath)
	}
	if custom := os.Getenv(EnvConfigPath); custom != "" {
		return expandPath(custom)
	}
	return filesystem.StatePath(domain.ConfigFileName)
}

func (l *FileLoader) warn(msg string, fields map[string]interface{}) {
	if l.logger != nil {
		l.logger.Warn(msg, fields)
	}
}

// migrateLegacy moves openai_api_key/default_model into the provider layout.
// Documents that already declare providers are left alone.
func migrateLegacy(cfg *domain.Config, legacy legacyFields) bool {
	if len(cfg.Providers) > 0 || (legacy.OpenAIAPIKey == "" && legacy.DefaultModel == "") {
		return false
	}
	cfg.Providers = map[string]domain.ProviderSettings{}
	if legacy.OpenAIAPIKey != "" {
		cfg.Providers[domain.DefaultProvider] = domain.ProviderSettings{APIKey: legacy.OpenAIAPIKey}
	}
	if cfg.ActiveProvider == "" {
		cfg.ActiveProvider = domain.DefaultProvider
	}
	if legacy.DefaultModel != "" && cfg.ActiveModel == "" {
		cfg.ActiveModel = legacy.DefaultModel
	}
	if cfg.ConfigFormatVersion == "" {
		cfg.ConfigFormatVersion = "1"
	}
	return true
}

func ensureConfigDir(path string) error {
	return os.MkdirAll(filepath.Dir(path), domain.DirectoryPermissions)
}

func hydrateDefaults(cfg domain.Config) domain.Config {
	if cfg.ConfigFormatVersion == "" {
		cfg.ConfigFormatVersion = "1"
	}
	if cfg.Providers == nil {
		cfg.Providers = map[string]domain.ProviderSettings{}
	}
	return cfg
}

func expandPath(path string) string {
	if filepath.IsAbs(path) {
		return path
	}
	if len(path) > 1 && path[:2] == "~/" {
		return filepath.Join(filesystem.UserHomeDir(), path[2:])
	}
	return filepath.Clean(path)
}

var _ ports.ConfigProvider = (*FileLoader)(nil)
