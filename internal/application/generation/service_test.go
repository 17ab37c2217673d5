package generation

import (
	"context"
	"encoding/json"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/doeshing/nlsh/internal/domain"
	"github.com/doeshing/nlsh/internal/pkg/logger"
	"github.com/doeshing/nlsh/internal/ports"
)

type stubConfig struct{ cfg domain.Config }

func (s stubConfig) Load(context.Context) (domain.Config, error) { return s.cfg, nil }

type reply struct {
	content    string
	structured bool
	err        error
}

type stubCompletion struct {
	content    string
	structured bool
}

func (c stubCompletion) ParseStructured(target interface{}) error {
	if !c.structured {
		return domain.ErrStructuredOutputUnsupported
	}
	return json.Unmarshal([]byte(c.content), target)
}

func (c stubCompletion) Raw() string { return c.content }

type stubClient struct {
	replies  []reply
	requests []ports.CompletionRequest
}

func (c *stubClient) Name() string { return "stub" }

func (c *stubClient) Complete(_ context.Context, req ports.CompletionRequest) (ports.Completion, error) {
	c.requests = append(c.requests, req)
	if len(c.replies) == 0 {
		return nil, errors.New("unexpected call")
	}
	r := c.replies[0]
	c.replies = c.replies[1:]
	if r.err != nil {
		return nil, r.err
	}
	return stubCompletion{content: r.content, structured: r.structured}, nil
}

type stubFactory struct {
	client    *stubClient
	providers []string
}

func (f *stubFactory) ForProvider(_ domain.Config, provider string) (ports.LLMClient, error) {
	f.providers = append(f.providers, provider)
	return f.client, nil
}

type memoryCache struct {
	entries map[string]domain.CommandResponse
}

func (m *memoryCache) Get(query, model string) (domain.CommandResponse, bool) {
	r, ok := m.entries[query+"|"+model]
	return r, ok
}

func (m *memoryCache) Set(query, model string, resp domain.CommandResponse) error {
	m.entries[query+"|"+model] = resp
	return nil
}

func (m *memoryCache) Clear() error { m.entries = map[string]domain.CommandResponse{}; return nil }
func (m *memoryCache) Stats() domain.CacheStats { return domain.CacheStats{} }

const pythonFiles = `{"command": "find . -name \"*.py\"", "is_safe": true, "safety_level": "safe"}`

func newService(replies ...reply) (*Service, *stubClient, *memoryCache) {
	client := &stubClient{replies: replies}
	cache := &memoryCache{entries: map[string]domain.CommandResponse{}}
	return &Service{
		ConfigProvider: stubConfig{},
		ClientFactory:  &stubFactory{client: client},
		Cache:          cache,
		Logger:         logger.New(false),
	}, client, cache
}

func TestGenerateCommandStructured(t *testing.T) {
	svc, client, _ := newService(reply{content: pythonFiles, structured: true})

	resp, err := svc.GenerateCommand(context.Background(), "list all python files", Options{})
	require.NoError(t, err)
	assert.Equal(t, `find . -name "*.py"`, resp.Command)
	assert.True(t, resp.Safe())

	require.Len(t, client.requests, 1)
	req := client.requests[0]
	assert.Equal(t, ports.FormatJSONSchema, req.Format)
	assert.Equal(t, domain.DefaultModel, req.Model)
	assert.Equal(t, domain.DefaultTemperature, req.Temperature)
	assert.Equal(t, domain.DefaultMaxTokens, req.MaxTokens)
	assert.Contains(t, string(req.Schema), `"safety_level"`)
}

func TestGenerateCommandFallbackMatchesStructured(t *testing.T) {
	structured, _, _ := newService(reply{content: pythonFiles, structured: true})
	fallback, client, _ := newService(
		reply{err: domain.ErrStructuredOutputUnsupported},
		reply{content: "```json\n" + pythonFiles + "\n```"},
	)

	want, err := structured.GenerateCommand(context.Background(), "list all python files", Options{})
	require.NoError(t, err)
	got, err := fallback.GenerateCommand(context.Background(), "list all python files", Options{})
	require.NoError(t, err)

	assert.Equal(t, want, got)
	require.Len(t, client.requests, 2)
	assert.Equal(t, ports.FormatJSONObject, client.requests[1].Format)
	assert.Nil(t, client.requests[1].Schema)
}

func TestGenerateCommandFallbackOnUnstructuredCompletion(t *testing.T) {
	svc, client, _ := newService(
		reply{content: pythonFiles},
		reply{content: "Here you go: " + pythonFiles},
	)

	resp, err := svc.GenerateCommand(context.Background(), "list all python files", Options{})
	require.NoError(t, err)
	assert.Equal(t, `find . -name "*.py"`, resp.Command)
	assert.Len(t, client.requests, 2)
}

func TestGenerateCommandDoesNotFallBackOnTransportError(t *testing.T) {
	providerErr := &domain.ProviderError{Provider: "openai", StatusCode: 401, Message: "bad key"}
	svc, client, _ := newService(reply{err: providerErr})

	_, err := svc.GenerateCommand(context.Background(), "list files", Options{})
	var target *domain.ProviderError
	require.ErrorAs(t, err, &target)
	assert.Len(t, client.requests, 1)
}

func TestGenerateCommandContentError(t *testing.T) {
	svc, _, _ := newService(
		reply{err: domain.ErrStructuredOutputUnsupported},
		reply{content: "find . -name '*.py'"},
	)

	_, err := svc.GenerateCommand(context.Background(), "list all python files", Options{})
	assert.ErrorIs(t, err, domain.ErrInvalidResponse)
}

func TestGenerateCommandUsesCache(t *testing.T) {
	svc, client, cache := newService(reply{content: pythonFiles, structured: true})
	ctx := context.Background()

	first, err := svc.GenerateCommand(ctx, "list all python files", Options{})
	require.NoError(t, err)
	second, err := svc.GenerateCommand(ctx, "list all python files", Options{})
	require.NoError(t, err)

	assert.Equal(t, first, second)
	assert.Len(t, client.requests, 1)
	assert.Len(t, cache.entries, 1)
}

func TestGenerateCommandNoCacheBypasses(t *testing.T) {
	svc, client, cache := newService(
		reply{content: pythonFiles, structured: true},
		reply{content: pythonFiles, structured: true},
	)
	ctx := context.Background()

	_, err := svc.GenerateCommand(ctx, "list all python files", Options{NoCache: true})
	require.NoError(t, err)
	_, err = svc.GenerateCommand(ctx, "list all python files", Options{NoCache: true})
	require.NoError(t, err)

	assert.Len(t, client.requests, 2)
	assert.Empty(t, cache.entries)
}

func TestGenerateCommandOverrides(t *testing.T) {
	svc, client, _ := newService(reply{content: pythonFiles, structured: true})
	temp := 0.9

	_, err := svc.GenerateCommand(context.Background(), "list all python files", Options{
		Model:       "gpt-4o",
		Temperature: &temp,
		MaxTokens:   50,
	})
	require.NoError(t, err)
	req := client.requests[0]
	assert.Equal(t, "gpt-4o", req.Model)
	assert.Equal(t, 0.9, req.Temperature)
	assert.Equal(t, 50, req.MaxTokens)
}

func TestGenerateCommandNormalizesDisagreement(t *testing.T) {
	svc, _, _ := newService(reply{
		content:    `{"command": "rm -rf build", "is_safe": false, "safety_level": "safe"}`,
		structured: true,
	})

	resp, err := svc.GenerateCommand(context.Background(), "clean build", Options{})
	require.NoError(t, err)
	assert.Equal(t, domain.SafetyLevelModifying, resp.SafetyLevel)
	assert.False(t, resp.Safe())
}

func TestGenerateCommandRejectsMissingFields(t *testing.T) {
	tests := []struct {
		name    string
		content string
		field   string
	}{
		{"is_safe", `{"command": "ls", "safety_level": "safe"}`, "is_safe"},
		{"safety_level", `{"command": "ls", "is_safe": true}`, "safety_level"},
		{"command", `{"is_safe": true, "safety_level": "safe"}`, "command"},
	}
	for _, tt := range tests {
		t.Run("structured/"+tt.name, func(t *testing.T) {
			svc, client, cache := newService(reply{content: tt.content, structured: true})

			_, err := svc.GenerateCommand(context.Background(), "list files", Options{})
			require.ErrorIs(t, err, domain.ErrInvalidResponse)
			assert.Contains(t, err.Error(), tt.field)
			assert.Len(t, client.requests, 1)
			assert.Empty(t, cache.entries)
		})
		t.Run("fallback/"+tt.name, func(t *testing.T) {
			svc, client, cache := newService(
				reply{err: domain.ErrStructuredOutputUnsupported},
				reply{content: tt.content},
			)

			_, err := svc.GenerateCommand(context.Background(), "list files", Options{})
			require.ErrorIs(t, err, domain.ErrInvalidResponse)
			assert.Contains(t, err.Error(), tt.field)
			assert.Len(t, client.requests, 2)
			assert.Empty(t, cache.entries)
		})
	}
}

func TestGenerateCommandSchemaRequiresSafetyFields(t *testing.T) {
	svc, client, _ := newService(reply{content: pythonFiles, structured: true})
	_, err := svc.GenerateCommand(context.Background(), "list all python files", Options{})
	require.NoError(t, err)

	var schema struct {
		Required []string `json:"required"`
	}
	require.NoError(t, json.Unmarshal(client.requests[0].Schema, &schema))
	assert.ElementsMatch(t, []string{"command", "is_safe", "safety_level"}, schema.Required)
}

func TestGenerateCommandEmptyQuery(t *testing.T) {
	svc, client, _ := newService()
	_, err := svc.GenerateCommand(context.Background(), "   ", Options{})
	assert.Error(t, err)
	assert.Empty(t, client.requests)
}

func TestRefineCommandBypassesCache(t *testing.T) {
	svc, client, cache := newService(reply{
		content:    `{"command": "find . -name \"*.py\" -mtime -1", "is_safe": true, "safety_level": "safe"}`,
		structured: true,
	})

	resp, err := svc.RefineCommand(context.Background(), "list all python files", "only modified today", `find . -name "*.py"`, Options{})
	require.NoError(t, err)
	assert.Equal(t, `find . -name "*.py" -mtime -1`, resp.Command)
	assert.Empty(t, cache.entries)

	user := client.requests[0].Messages[1].Content
	assert.Contains(t, user, `find . -name "*.py"`)
	assert.Contains(t, user, "only modified today")
}

func TestGenerateAlternatives(t *testing.T) {
	payload := `{"commands": [
		{"command": "ls -la", "is_safe": true, "safety_level": "safe"},
		{"command": "", "is_safe": true, "safety_level": "safe"},
		{"command": "find . -maxdepth 1", "is_safe": true, "safety_level": "safe"},
		{"command": "tree -L 1", "is_safe": true, "safety_level": "safe"}
	]}`
	svc, client, cache := newService(reply{content: payload, structured: true})

	alts, err := svc.GenerateAlternatives(context.Background(), "list files", 2, Options{})
	require.NoError(t, err)
	require.Len(t, alts, 2)
	assert.Equal(t, "ls -la", alts[0].Command)
	assert.Equal(t, "find . -maxdepth 1", alts[1].Command)
	assert.Empty(t, cache.entries)
	assert.Contains(t, client.requests[0].Messages[0].Content, "Give 2 distinct ways")
}

func TestGenerateAlternativesFewerIsFine(t *testing.T) {
	svc, _, _ := newService(reply{
		content:    `{"commands": [{"command": "ls", "is_safe": true, "safety_level": "safe"}]}`,
		structured: true,
	})

	alts, err := svc.GenerateAlternatives(context.Background(), "list files", 3, Options{})
	require.NoError(t, err)
	assert.Len(t, alts, 1)
}

func TestGenerateMultiCommand(t *testing.T) {
	payload := `{"commands": [
		{"command": "find . -name \"*.py\"", "is_safe": true, "safety_level": "safe"},
		{"command": "wc -l", "is_safe": true, "safety_level": "safe"}
	], "execution_type": "pipeline", "overall_safe": true}`
	svc, _, _ := newService(reply{err: domain.ErrStructuredOutputUnsupported}, reply{content: payload})

	multi, err := svc.GenerateMultiCommand(context.Background(), "find python files and count them", Options{})
	require.NoError(t, err)
	assert.Equal(t, domain.ExecutionPipeline, multi.ExecutionType)
	assert.Equal(t, `find . -name "*.py" | wc -l`, multi.ShellCommand())
	assert.True(t, multi.Safe())
}

func TestGenerateAlternativesDropsIncompleteEntries(t *testing.T) {
	svc, _, _ := newService(reply{
		content: `{"commands": [
			{"command": "rm -rf tmp", "safety_level": "safe"},
			{"command": "ls", "is_safe": true, "safety_level": "safe"}
		]}`,
		structured: true,
	})

	alts, err := svc.GenerateAlternatives(context.Background(), "list files", 2, Options{})
	require.NoError(t, err)
	require.Len(t, alts, 1)
	assert.Equal(t, "ls", alts[0].Command)
}

func TestGenerateMultiCommandRejectsMissingFields(t *testing.T) {
	tests := []struct {
		name    string
		content string
	}{
		{"stage without is_safe", `{"commands": [{"command": "ls", "safety_level": "safe"}], "overall_safe": true}`},
		{"no overall_safe", `{"commands": [{"command": "ls", "is_safe": true, "safety_level": "safe"}]}`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			svc, _, _ := newService(reply{content: tt.content, structured: true})
			_, err := svc.GenerateMultiCommand(context.Background(), "list and count files", Options{})
			assert.ErrorIs(t, err, domain.ErrInvalidResponse)
		})
	}
}

func TestGenerateMultiCommandMismatchedCombinedIsModifying(t *testing.T) {
	payload := `{"commands": [
		{"command": "find . -name \"*.log\"", "is_safe": true, "safety_level": "safe"},
		{"command": "wc -l", "is_safe": true, "safety_level": "safe"}
	], "execution_type": "pipeline", "combined_command": "find . -name \"*.log\" -delete", "overall_safe": true}`
	svc, _, _ := newService(reply{content: payload, structured: true})

	multi, err := svc.GenerateMultiCommand(context.Background(), "find logs and count them", Options{})
	require.NoError(t, err)
	assert.False(t, multi.Safe())
	flat := multi.Flatten()
	assert.Equal(t, `find . -name "*.log" -delete`, flat.Command)
	assert.Equal(t, domain.SafetyLevelModifying, flat.SafetyLevel)
}

func TestLooksMultiStep(t *testing.T) {
	tests := []struct {
		query string
		want  bool
	}{
		{"list python files", false},
		{"find large files and then delete them", true},
		{"build it; run tests", true},
		{"find logs and count errors", true},
		{"download the file then unzip it", true},
		{"show the weather in Athens", false},
	}
	for _, tt := range tests {
		t.Run(tt.query, func(t *testing.T) {
			assert.Equal(t, tt.want, LooksMultiStep(tt.query))
		})
	}
}

func TestStripFences(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want string
	}{
		{"plain", `{"a":1}`, `{"a":1}`},
		{"json fence", "```json\n{\"a\":1}\n```", `{"a":1}`},
		{"bare fence", "```\n{\"a\":1}\n```", `{"a":1}`},
		{"unterminated", "```json\n{\"a\":1}", "json\n{\"a\":1}"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, stripFences(tt.in))
		})
	}
}
