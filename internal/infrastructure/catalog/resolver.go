package catalog

import (
	"context"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/sahilm/fuzzy"

	"github.com/doeshing/nlsh/internal/domain"
	"github.com/doeshing/nlsh/internal/pkg/filesystem"
	"github.com/doeshing/nlsh/internal/ports"
)

// bareProviders accept model names without a routing prefix.
var bareProviders = []string{"openai", "anthropic", "google", "cohere"}

// modelPatterns map recognizable model-name prefixes to their provider.
var modelPatterns = []struct {
	prefix   string
	provider string
}{
	{"gpt-", "openai"},
	{"chatgpt", "openai"},
	{"o1", "openai"},
	{"o3", "openai"},
	{"o4", "openai"},
	{"claude", "anthropic"},
	{"gemini", "google"},
	{"command", "cohere"},
}

// Resolver discovers providers and models. The catalog is loaded lazily
// from disk and refreshed from the Source when missing or stale.
type Resolver struct {
	path   string
	source Source
	maxAge time.Duration
	extra  map[string][]string
	logger ports.Logger
	now    func() time.Time

	mu      sync.Mutex
	catalog *domain.ProviderCatalog
}

// Option customises a Resolver.
type Option func(*Resolver)

// WithMaxAge sets how long a persisted catalog stays fresh.
func WithMaxAge(d time.Duration) Option {
	return func(r *Resolver) { r.maxAge = d }
}

// WithConfiguredModels merges models declared in config into every view.
func WithConfiguredModels(extra map[string][]string) Option {
	return func(r *Resolver) { r.extra = extra }
}

// WithLogger attaches a logger.
func WithLogger(l ports.Logger) Option {
	return func(r *Resolver) { r.logger = l }
}

// WithClock overrides time.Now.
func WithClock(now func() time.Time) Option {
	return func(r *Resolver) { r.now = now }
}

// NewResolver persists the catalog at path (default ~/.config/nlsh/providers.json).
func NewResolver(path string, source Source, opts ...Option) *Resolver {
	if path == "" {
		path = filesystem.StatePath(domain.CatalogFileName)
	}
	r := &Resolver{
		path:   path,
		source: source,
		maxAge: domain.DefaultCatalogMaxAge,
		now:    time.Now,
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// AvailableProviders lists provider names, sorted.
func (r *Resolver) AvailableProviders(ctx context.Context) ([]string, error) {
	catalog, err := r.load(ctx)
	if err != nil {
		return nil, err
	}
	return catalog.Names(), nil
}

// ProviderModels lists models for provider; unknown providers yield an empty list.
func (r *Resolver) ProviderModels(ctx context.Context, provider string) ([]string, error) {
	catalog, err := r.load(ctx)
	if err != nil {
		return nil, err
	}
	models := catalog.Providers[strings.ToLower(provider)]
	return append([]string{}, models...), nil
}

// SearchProviders fuzzy-matches provider names.
func (r *Resolver) SearchProviders(ctx context.Context, query string) ([]string, error) {
	names, err := r.AvailableProviders(ctx)
	if err != nil {
		return nil, err
	}
	return Match(query, names), nil
}

// SearchModels fuzzy-matches the models of one provider.
func (r *Resolver) SearchModels(ctx context.Context, provider, query string) ([]string, error) {
	models, err := r.ProviderModels(ctx, provider)
	if err != nil {
		return nil, err
	}
	return Match(query, models), nil
}

// FormatModelName prefixes model with provider unless the provider accepts
// bare names or the model already carries the prefix.
func (r *Resolver) FormatModelName(provider, model string) string {
	return FormatModelName(provider, model)
}

// FormatModelName is the stateless form of Resolver.FormatModelName.
func FormatModelName(provider, model string) string {
	provider = strings.ToLower(strings.TrimSpace(provider))
	if provider == "" || strings.HasPrefix(model, provider+"/") {
		return model
	}
	for _, p := range bareProviders {
		if p == provider {
			return model
		}
	}
	return provider + "/" + model
}

// ModelProvider finds the provider serving model. It only consults the
// catalog already on disk (never the network), then the model's own prefix,
// then known name patterns, and finally the default provider.
func (r *Resolver) ModelProvider(ctx context.Context, model string) string {
	prefix, bare := splitModel(model)
	if catalog, ok := r.cached(); ok {
		if prefix != "" {
			if _, known := catalog.Providers[prefix]; known {
				return prefix
			}
		}
		for _, name := range preferredOrder(catalog) {
			for _, m := range catalog.Providers[name] {
				if m == bare || m == model {
					return name
				}
			}
		}
	}
	if prefix != "" {
		return prefix
	}
	lower := strings.ToLower(bare)
	for _, p := range modelPatterns {
		if strings.HasPrefix(lower, p.prefix) {
			return p.provider
		}
	}
	if r.logger != nil {
		r.logger.Debug("model provider unknown, using default", map[string]interface{}{"model": model})
	}
	return domain.DefaultProvider
}

// Refresh re-fetches the catalog and overwrites the persisted copy.
func (r *Resolver) Refresh(ctx context.Context) (domain.ProviderCatalog, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	fetched, err := r.fetch(ctx)
	if err != nil {
		return domain.ProviderCatalog{}, err
	}
	return fetched.Merge(r.extra), nil
}

func (r *Resolver) load(ctx context.Context) (domain.ProviderCatalog, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.catalog != nil {
		return r.catalog.Merge(r.extra), nil
	}

	persisted, found := r.readDisk()
	if found && !persisted.Stale(r.now(), r.maxAge) {
		r.catalog = &persisted
		return persisted.Merge(r.extra), nil
	}

	fetched, err := r.fetch(ctx)
	if err == nil {
		return fetched.Merge(r.extra), nil
	}
	switch {
	case found:
		r.warn("provider refresh failed, using stale catalog", err)
		r.catalog = &persisted
		return persisted.Merge(r.extra), nil
	case len(r.extra) > 0:
		r.warn("provider discovery failed, using configured providers only", err)
		return domain.ProviderCatalog{}.Merge(r.extra), nil
	}
	return domain.ProviderCatalog{}, err
}

// fetch must be called with r.mu held.
func (r *Resolver) fetch(ctx context.Context) (domain.ProviderCatalog, error) {
	if r.source == nil {
		return domain.ProviderCatalog{}, &domain.ProviderDiscoveryError{Reason: "no provider discovery source configured"}
	}
	providers, err := r.source.Fetch(ctx)
	if err != nil {
		return domain.ProviderCatalog{}, &domain.ProviderDiscoveryError{Reason: "fetch provider catalog", Err: err}
	}
	catalog := domain.ProviderCatalog{Providers: providers, RefreshedAt: r.now()}
	if err := filesystem.WriteJSON(r.path, catalog); err != nil {
		r.warn("persist provider catalog failed", err)
	}
	r.catalog = &catalog
	return catalog, nil
}

func (r *Resolver) cached() (domain.ProviderCatalog, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.catalog != nil {
		return r.catalog.Merge(r.extra), true
	}
	persisted, found := r.readDisk()
	if !found {
		if len(r.extra) > 0 {
			return domain.ProviderCatalog{}.Merge(r.extra), true
		}
		return domain.ProviderCatalog{}, false
	}
	r.catalog = &persisted
	return persisted.Merge(r.extra), true
}

func (r *Resolver) readDisk() (domain.ProviderCatalog, bool) {
	var catalog domain.ProviderCatalog
	found, err := filesystem.ReadJSON(r.path, &catalog)
	if err != nil {
		r.warn("provider catalog unreadable", err)
		return domain.ProviderCatalog{}, false
	}
	if !found || catalog.Providers == nil {
		return domain.ProviderCatalog{}, false
	}
	return catalog, true
}

func (r *Resolver) warn(msg string, err error) {
	if r.logger != nil {
		r.logger.Warn(msg, map[string]interface{}{"path": r.path, "error": err.Error()})
	}
}

// Match returns candidates matching query: prefix matches first, then
// substring matches, then fuzzy subsequence matches ranked by score.
// Matching is case-insensitive; an empty query returns every candidate.
func Match(query string, candidates []string) []string {
	q := strings.ToLower(strings.TrimSpace(query))
	if q == "" {
		return append([]string{}, candidates...)
	}
	var prefix, contains, rest, restLower []string
	for _, c := range candidates {
		lc := strings.ToLower(c)
		switch {
		case strings.HasPrefix(lc, q):
			prefix = append(prefix, c)
		case strings.Contains(lc, q):
			contains = append(contains, c)
		default:
			rest = append(rest, c)
			restLower = append(restLower, lc)
		}
	}
	out := append(prefix, contains...)
	for _, m := range fuzzy.Find(q, restLower) {
		out = append(out, rest[m.Index])
	}
	if out == nil {
		return []string{}
	}
	return out
}

func splitModel(model string) (prefix, bare string) {
	if i := strings.Index(model, "/"); i > 0 {
		return strings.ToLower(model[:i]), model[i+1:]
	}
	return "", model
}

func preferredOrder(catalog domain.ProviderCatalog) []string {
	order := make([]string, 0, len(catalog.Providers))
	seen := make(map[string]bool)
	for _, p := range bareProviders {
		if _, ok := catalog.Providers[p]; ok {
			order = append(order, p)
			seen[p] = true
		}
	}
	rest := make([]string, 0, len(catalog.Providers))
	for name := range catalog.Providers {
		if !seen[name] {
			rest = append(rest, name)
		}
	}
	sort.Strings(rest)
	return append(order, rest...)
}

var _ ports.ProviderResolver = (*Resolver)(nil)
