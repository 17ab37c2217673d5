package catalog

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"sort"
	"strings"

	"github.com/doeshing/nlsh/internal/domain"
)

// Source fetches the upstream provider -> models mapping.
type Source interface {
	Fetch(ctx context.Context) (map[string][]string, error)
}

// LiteLLMSource reads the LiteLLM model registry JSON.
type LiteLLMSource struct {
	URL    string
	Client *http.Client
}

// NewLiteLLMSource uses the default registry URL when url is empty.
func NewLiteLLMSource(url string) *LiteLLMSource {
	if url == "" {
		url = domain.DefaultCatalogSourceURL
	}
	return &LiteLLMSource{URL: url, Client: &http.Client{Timeout: domain.DefaultHTTPClientTimeout}}
}

type registryEntry struct {
	Provider string `json:"litellm_provider"`
	Mode     string `json:"mode"`
}

// Fetch downloads and parses the registry.
func (s *LiteLLMSource) Fetch(ctx context.Context) (map[string][]string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, s.URL, nil)
	if err != nil {
		return nil, err
	}
	client := s.Client
	if client == nil {
		client = http.DefaultClient
	}
	resp, err := client.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()
	if resp.StatusCode >= 300 {
		return nil, fmt.Errorf("registry returned HTTP %d", resp.StatusCode)
	}
	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, err
	}
	return ParseRegistry(body)
}

// ParseRegistry keeps chat and completion models grouped by provider, with
// any provider prefix stripped from the model identifier.
func ParseRegistry(data []byte) (map[string][]string, error) {
	var raw map[string]json.RawMessage
	if err := json.Unmarshal(data, &raw); err != nil {
		return nil, fmt.Errorf("decode registry: %w", err)
	}
	out := make(map[string][]string)
	for model, blob := range raw {
		if model == "sample_spec" {
			continue
		}
		var entry registryEntry
		if err := json.Unmarshal(blob, &entry); err != nil || entry.Provider == "" {
			continue
		}
		switch entry.Mode {
		case "", "chat", "completion":
		default:
			continue
		}
		provider := strings.ToLower(entry.Provider)
		out[provider] = append(out[provider], strings.TrimPrefix(model, provider+"/"))
	}
	for provider, models := range out {
		sort.Strings(models)
		out[provider] = models
	}
	return out, nil
}
