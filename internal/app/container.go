package app

import (
	"context"
	"errors"
	"io"

	"github.com/doeshing/nlsh/internal/application/doctor"
	"github.com/doeshing/nlsh/internal/application/execution"
	"github.com/doeshing/nlsh/internal/application/generation"
	"github.com/doeshing/nlsh/internal/domain"
	"github.com/doeshing/nlsh/internal/infrastructure/ai"
	"github.com/doeshing/nlsh/internal/infrastructure/cache"
	"github.com/doeshing/nlsh/internal/infrastructure/catalog"
	"github.com/doeshing/nlsh/internal/infrastructure/config"
	contextcollector "github.com/doeshing/nlsh/internal/infrastructure/context"
	"github.com/doeshing/nlsh/internal/infrastructure/executor"
	"github.com/doeshing/nlsh/internal/infrastructure/history"
	"github.com/doeshing/nlsh/internal/infrastructure/templates"
	"github.com/doeshing/nlsh/internal/pkg/filesystem"
	"github.com/doeshing/nlsh/internal/pkg/logger"
	"github.com/doeshing/nlsh/internal/ports"
)

// Options controls how the container is built.
type Options struct {
	ConfigPath string
	Verbose    bool
}

// Container wires up application services with infrastructure adapters.
// Terminal adapters (renderer, prompter, editor, spinner, clipboard) are
// attached by the CLI layer.
type Container struct {
	ConfigProvider ports.ConfigProvider
	ConfigLoader   *config.FileLoader
	Logger         *logger.ZapLogger
	Generator      *generation.Service
	Gate           *execution.Gate
	DoctorService  *doctor.Service
	HistoryStore   ports.HistoryRepository
	CacheStore     *cache.FileCache
	TemplateStore  ports.TemplateRepository
	Resolver       *catalog.Resolver
	Executor       *executor.LocalExecutor

	closers []io.Closer
}

// BuildContainer constructs the dependency graph. A broken config file does
// not fail the build; it surfaces from ConfigProvider.Load in the commands
// that need it, so init-config and config path keep working.
func BuildContainer(ctx context.Context, opts Options) (*Container, error) {
	log := logger.New(opts.Verbose)
	cfgLoader := config.NewFileLoader(opts.ConfigPath, log)
	cfg, err := cfgLoader.Load(ctx)
	if err != nil {
		log.Debug("config unavailable, sizing stores with defaults", map[string]interface{}{"error": err.Error()})
		cfg = domain.Config{}
	}

	c := &Container{
		ConfigProvider: cfgLoader,
		ConfigLoader:   cfgLoader,
		Logger:         log,
	}

	c.CacheStore = cache.NewFileCache(
		filesystem.StatePath(domain.CacheFileName),
		cfg.CacheTTL(),
		cache.WithMaxEntries(cfg.GetCacheMaxEntries()),
		cache.WithLogger(log),
	)
	c.HistoryStore = c.buildHistory(cfg)
	c.TemplateStore = templates.NewFileStore(filesystem.StatePath(domain.TemplatesFileName), log)
	c.Resolver = catalog.NewResolver(
		filesystem.StatePath(domain.CatalogFileName),
		catalog.NewLiteLLMSource(cfg.CatalogSource()),
		catalog.WithMaxAge(cfg.CatalogMaxAge()),
		catalog.WithConfiguredModels(cfg.ConfiguredModels()),
		catalog.WithLogger(log),
	)
	c.Executor = executor.NewLocalExecutor(cfg.GetExecutionShell())
	collector := contextcollector.NewBasicCollector()

	c.Generator = &generation.Service{
		ConfigProvider:   cfgLoader,
		ClientFactory:    ai.NewFactory(cfgLoader.Path()),
		Resolver:         c.Resolver,
		Cache:            c.CacheStore,
		ContextCollector: collector,
		Logger:           log,
	}

	c.Gate = &execution.Gate{
		ConfigProvider: cfgLoader,
		Generator:      c.Generator,
		History:        c.HistoryStore,
		Executor:       c.Executor,
		Logger:         log,
	}

	c.DoctorService = &doctor.Service{
		ConfigProvider:   cfgLoader,
		Resolver:         c.Resolver,
		ContextCollector: collector,
		StateDir:         filesystem.StateDir(),
	}

	return c, nil
}

func (c *Container) buildHistory(cfg domain.Config) ports.HistoryRepository {
	if cfg.HistoryBackend() == domain.HistoryBackendSQLite {
		store, err := history.NewSQLiteStore(filesystem.StatePath(domain.HistoryDBName), cfg.HistoryMaxEntries())
		if err == nil {
			c.closers = append(c.closers, store)
			return store
		}
		c.Logger.Warn("sqlite history unavailable, using JSON", map[string]interface{}{"error": err.Error()})
	}
	return history.NewFileStore(filesystem.StatePath(domain.HistoryFileName), cfg.HistoryMaxEntries(), c.Logger)
}

// Close releases resources and flushes the logger.
func (c *Container) Close() error {
	var errs []error
	for _, closer := range c.closers {
		if err := closer.Close(); err != nil {
			errs = append(errs, err)
		}
	}
	c.Logger.Sync()
	return errors.Join(errs...)
}
