package catalog

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/doeshing/nlsh/internal/domain"
	"github.com/doeshing/nlsh/internal/pkg/filesystem"
)

type stubSource struct {
	providers map[string][]string
	err       error
	calls     int
}

func (s *stubSource) Fetch(context.Context) (map[string][]string, error) {
	s.calls++
	if s.err != nil {
		return nil, s.err
	}
	return s.providers, nil
}

func newResolver(t *testing.T, src Source, opts ...Option) *Resolver {
	t.Helper()
	return NewResolver(filepath.Join(t.TempDir(), "providers.json"), src, opts...)
}

func TestFormatModelName(t *testing.T) {
	tests := []struct {
		provider, model, want string
	}{
		{"openai", "gpt-4o-mini", "gpt-4o-mini"},
		{"anthropic", "claude-3-opus", "claude-3-opus"},
		{"azure", "gpt-4o-mini", "azure/gpt-4o-mini"},
		{"bedrock", "claude-3-opus", "bedrock/claude-3-opus"},
		{"ollama", "llama2", "ollama/llama2"},
		{"azure", "azure/gpt-4o-mini", "azure/gpt-4o-mini"},
		{"", "gpt-4o", "gpt-4o"},
	}
	for _, tt := range tests {
		t.Run(tt.provider+"/"+tt.model, func(t *testing.T) {
			once := FormatModelName(tt.provider, tt.model)
			assert.Equal(t, tt.want, once)
			assert.Equal(t, once, FormatModelName(tt.provider, once), "formatting must be idempotent")
		})
	}
}

func TestAvailableProvidersAndModels(t *testing.T) {
	src := &stubSource{providers: map[string][]string{
		"openai":    {"gpt-4o", "gpt-4o-mini"},
		"anthropic": {"claude-3-opus"},
	}}
	r := newResolver(t, src)

	providers, err := r.AvailableProviders(context.Background())
	require.NoError(t, err)
	assert.Equal(t, []string{"anthropic", "openai"}, providers)

	models, err := r.ProviderModels(context.Background(), "openai")
	require.NoError(t, err)
	assert.Equal(t, []string{"gpt-4o", "gpt-4o-mini"}, models)

	models, err = r.ProviderModels(context.Background(), "nonexistent")
	require.NoError(t, err)
	assert.Empty(t, models)
	assert.NotNil(t, models)

	assert.Equal(t, 1, src.calls, "catalog is fetched once and kept")
}

func TestDiscoveryErrorWithoutCatalog(t *testing.T) {
	r := newResolver(t, &stubSource{err: errors.New("offline")})

	_, err := r.AvailableProviders(context.Background())
	var discoveryErr *domain.ProviderDiscoveryError
	require.ErrorAs(t, err, &discoveryErr)
	assert.Contains(t, err.Error(), "offline")
}

func TestStaleCatalogServedWhenRefreshFails(t *testing.T) {
	path := filepath.Join(t.TempDir(), "providers.json")
	require.NoError(t, filesystem.WriteJSON(path, domain.ProviderCatalog{
		Providers:   map[string][]string{"openai": {"gpt-4o-mini"}},
		RefreshedAt: time.Now().Add(-48 * time.Hour),
	}))
	src := &stubSource{err: errors.New("offline")}
	r := NewResolver(path, src, WithMaxAge(24*time.Hour))

	providers, err := r.AvailableProviders(context.Background())
	require.NoError(t, err)
	assert.Equal(t, []string{"openai"}, providers)
	assert.Equal(t, 1, src.calls)
}

func TestFreshCatalogSkipsFetch(t *testing.T) {
	path := filepath.Join(t.TempDir(), "providers.json")
	require.NoError(t, filesystem.WriteJSON(path, domain.ProviderCatalog{
		Providers:   map[string][]string{"openai": {"gpt-4o-mini"}},
		RefreshedAt: time.Now(),
	}))
	src := &stubSource{err: errors.New("must not be called")}
	r := NewResolver(path, src)

	_, err := r.AvailableProviders(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 0, src.calls)
}

func TestConfiguredModelsAreMerged(t *testing.T) {
	r := newResolver(t, &stubSource{err: errors.New("offline")},
		WithConfiguredModels(map[string][]string{"ollama": {"llama3"}}))

	providers, err := r.AvailableProviders(context.Background())
	require.NoError(t, err)
	assert.Equal(t, []string{"ollama"}, providers)
}

func TestRefreshOverwritesPersistedCatalog(t *testing.T) {
	path := filepath.Join(t.TempDir(), "providers.json")
	require.NoError(t, filesystem.WriteJSON(path, domain.ProviderCatalog{
		Providers:   map[string][]string{"openai": {"gpt-4o-mini"}},
		RefreshedAt: time.Now(),
	}))
	src := &stubSource{providers: map[string][]string{"openai": {"gpt-4o", "gpt-4o-mini"}}}
	r := NewResolver(path, src)

	_, err := r.Refresh(context.Background())
	require.NoError(t, err)

	var persisted domain.ProviderCatalog
	_, err = filesystem.ReadJSON(path, &persisted)
	require.NoError(t, err)
	assert.Contains(t, persisted.Providers["openai"], "gpt-4o")

	src.err = errors.New("offline")
	_, err = r.Refresh(context.Background())
	var discoveryErr *domain.ProviderDiscoveryError
	assert.ErrorAs(t, err, &discoveryErr)
}

func TestModelProvider(t *testing.T) {
	path := filepath.Join(t.TempDir(), "providers.json")
	require.NoError(t, filesystem.WriteJSON(path, domain.ProviderCatalog{
		Providers: map[string][]string{
			"openai":    {"gpt-4o-mini", "gpt-4o"},
			"anthropic": {"claude-3-opus"},
			"azure":     {"gpt-4o-mini"},
		},
		RefreshedAt: time.Now(),
	}))
	r := NewResolver(path, nil)
	ctx := context.Background()

	assert.Equal(t, "openai", r.ModelProvider(ctx, "openai/gpt-4o-mini"))
	assert.Equal(t, "openai", r.ModelProvider(ctx, "gpt-4o-mini"))
	assert.Equal(t, "azure", r.ModelProvider(ctx, "azure/gpt-4o-mini"))
	assert.Equal(t, "anthropic", r.ModelProvider(ctx, "claude-3-opus"))
	assert.Equal(t, "ollama", r.ModelProvider(ctx, "ollama/llama3"))
}

func TestModelProviderPatternsWithoutCatalog(t *testing.T) {
	r := newResolver(t, nil)
	ctx := context.Background()

	assert.Equal(t, "openai", r.ModelProvider(ctx, "gpt-4"))
	assert.Equal(t, "anthropic", r.ModelProvider(ctx, "claude-3-5-sonnet-latest"))
	assert.Equal(t, "openai", r.ModelProvider(ctx, "totally-unknown"))
}

func TestSearch(t *testing.T) {
	r := newResolver(t, &stubSource{providers: map[string][]string{
		"openai":    {"gpt-4o-mini", "gpt-4o", "gpt-3.5-turbo"},
		"anthropic": {"claude-3-opus"},
		"cohere":    {"command"},
	}})
	ctx := context.Background()

	tests := []struct {
		query string
		want  string
	}{
		{"openai", "openai"},
		{"anth", "anthropic"},
		{"OPENAI", "openai"},
	}
	for _, tt := range tests {
		matches, err := r.SearchProviders(ctx, tt.query)
		require.NoError(t, err)
		assert.Contains(t, matches, tt.want, tt.query)
	}

	matches, err := r.SearchProviders(ctx, "zzzzzzz")
	require.NoError(t, err)
	assert.Empty(t, matches)

	models, err := r.SearchModels(ctx, "openai", "gpt-4")
	require.NoError(t, err)
	assert.Equal(t, []string{"gpt-4o-mini", "gpt-4o"}, models)

	models, err = r.SearchModels(ctx, "openai", "GPT-4O")
	require.NoError(t, err)
	assert.Contains(t, models, "gpt-4o")

	models, err = r.SearchModels(ctx, "openai", "zzzzzzz")
	require.NoError(t, err)
	assert.Empty(t, models)
}

func TestMatchOrdering(t *testing.T) {
	got := Match("ai", []string{"openai", "aiml", "vertex_ai", "mistral"})
	require.GreaterOrEqual(t, len(got), 3)
	assert.Equal(t, "aiml", got[0])
	assert.ElementsMatch(t, []string{"openai", "vertex_ai"}, got[1:3])
}

func TestLiteLLMSource(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{
			"sample_spec": {"litellm_provider": "openai", "mode": "chat"},
			"gpt-4o-mini": {"litellm_provider": "openai", "mode": "chat"},
			"text-embedding-3-small": {"litellm_provider": "openai", "mode": "embedding"},
			"azure/gpt-4o": {"litellm_provider": "azure", "mode": "chat"},
			"claude-3-opus-20240229": {"litellm_provider": "anthropic", "mode": "chat"},
			"broken": "not an object"
		}`))
	}))
	defer srv.Close()

	providers, err := NewLiteLLMSource(srv.URL).Fetch(context.Background())
	require.NoError(t, err)
	assert.Equal(t, map[string][]string{
		"openai":    {"gpt-4o-mini"},
		"azure":     {"gpt-4o"},
		"anthropic": {"claude-3-opus-20240229"},
	}, providers)
}

func TestLiteLLMSourceHTTPError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
	}))
	defer srv.Close()

	_, err := NewLiteLLMSource(srv.URL).Fetch(context.Background())
	assert.Error(t, err)
}
