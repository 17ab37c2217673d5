package ai

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/doeshing/nlsh/internal/domain"
	"github.com/doeshing/nlsh/internal/ports"
)

func configFor(provider, endpoint string) domain.Config {
	return domain.Config{
		ActiveProvider: provider,
		Providers: map[string]domain.ProviderSettings{
			provider: {APIKey: "test-key", Endpoint: endpoint},
		},
	}
}

func request(format ports.ResponseFormat) ports.CompletionRequest {
	return ports.CompletionRequest{
		Model: "gpt-4o-mini",
		Messages: []ports.Message{
			{Role: ports.RoleSystem, Content: "system rules"},
			{Role: ports.RoleUser, Content: "list all python files"},
		},
		Temperature: 0,
		MaxTokens:   200,
		Format:      format,
		SchemaName:  "command_response",
		Schema:      json.RawMessage(`{"type":"object"}`),
	}
}

func TestOpenAIStructuredRequest(t *testing.T) {
	var captured map[string]interface{}
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "Bearer test-key", r.Header.Get("authorization"))
		body, _ := io.ReadAll(r.Body)
		assert.NoError(t, json.Unmarshal(body, &captured))
		_, _ = w.Write([]byte(`{"choices":[{"message":{"content":"{\"command\":\"ls\",\"is_safe\":true,\"safety_level\":\"safe\"}"}}]}`))
	}))
	defer srv.Close()

	client, err := NewFactoryWithClient(srv.Client()).ForProvider(configFor("openai", srv.URL), "openai")
	require.NoError(t, err)

	completion, err := client.Complete(context.Background(), request(ports.FormatJSONSchema))
	require.NoError(t, err)

	var resp domain.CommandResponse
	require.NoError(t, completion.ParseStructured(&resp))
	assert.Equal(t, "ls", resp.Command)

	format := captured["response_format"].(map[string]interface{})
	assert.Equal(t, "json_schema", format["type"])
	assert.Equal(t, "command_response", format["json_schema"].(map[string]interface{})["name"])
	assert.Equal(t, 0.0, captured["temperature"], "zero temperature must still be sent")
}

func TestOpenAIJSONObjectIsNotStructured(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"choices":[{"message":{"content":"{\"command\":\"ls\"}"}}]}`))
	}))
	defer srv.Close()

	client, err := NewFactoryWithClient(srv.Client()).ForProvider(configFor("openai", srv.URL), "openai")
	require.NoError(t, err)

	completion, err := client.Complete(context.Background(), request(ports.FormatJSONObject))
	require.NoError(t, err)
	assert.ErrorIs(t, completion.ParseStructured(&domain.CommandResponse{}), domain.ErrStructuredOutputUnsupported)
	assert.Equal(t, `{"command":"ls"}`, completion.Raw())
}

func TestSchemaRejectionIsCapabilityError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadRequest)
		_, _ = w.Write([]byte(`{"error":{"message":"Invalid parameter: 'response_format' of type 'json_schema' is not supported with this model."}}`))
	}))
	defer srv.Close()

	client, err := NewFactoryWithClient(srv.Client()).ForProvider(configFor("openai", srv.URL), "openai")
	require.NoError(t, err)

	_, err = client.Complete(context.Background(), request(ports.FormatJSONSchema))
	assert.ErrorIs(t, err, domain.ErrStructuredOutputUnsupported)
}

func TestTransportErrorsAreProviderErrors(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
		_, _ = w.Write([]byte(`{"error":{"message":"Incorrect API key provided"}}`))
	}))
	defer srv.Close()

	client, err := NewFactoryWithClient(srv.Client()).ForProvider(configFor("openai", srv.URL), "openai")
	require.NoError(t, err)

	_, err = client.Complete(context.Background(), request(ports.FormatJSONSchema))
	var providerErr *domain.ProviderError
	require.ErrorAs(t, err, &providerErr)
	assert.Equal(t, http.StatusUnauthorized, providerErr.StatusCode)
	assert.False(t, errors.Is(err, domain.ErrStructuredOutputUnsupported))
}

func TestAnthropicHasNoSchemaMode(t *testing.T) {
	calls := 0
	var captured anthropicRequest
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls++
		assert.Equal(t, "test-key", r.Header.Get("x-api-key"))
		body, _ := io.ReadAll(r.Body)
		assert.NoError(t, json.Unmarshal(body, &captured))
		_, _ = w.Write([]byte(`{"content":[{"type":"text","text":"{\"command\":\"df -h\"}"}]}`))
	}))
	defer srv.Close()

	client, err := NewFactoryWithClient(srv.Client()).ForProvider(configFor("anthropic", srv.URL), "anthropic")
	require.NoError(t, err)

	_, err = client.Complete(context.Background(), request(ports.FormatJSONSchema))
	assert.ErrorIs(t, err, domain.ErrStructuredOutputUnsupported)
	assert.Equal(t, 0, calls)

	req := request(ports.FormatJSONObject)
	req.Model = "anthropic/claude-3-5-haiku-latest"
	completion, err := client.Complete(context.Background(), req)
	require.NoError(t, err)
	assert.Equal(t, `{"command":"df -h"}`, completion.Raw())
	assert.Equal(t, "system rules", captured.System)
	assert.Equal(t, "claude-3-5-haiku-latest", captured.Model)
	require.Len(t, captured.Messages, 1)
}

func TestFactoryCredentialAndEndpointErrors(t *testing.T) {
	t.Setenv("OPENAI_API_KEY", "")
	t.Setenv("FOOBAR_API_KEY", "")
	factory := NewFactory("/tmp/config.yaml")

	_, err := factory.ForProvider(domain.Config{}, "openai")
	var cfgErr *domain.ConfigError
	require.ErrorAs(t, err, &cfgErr)
	assert.ErrorIs(t, err, domain.ErrMissingCredential)
	assert.Contains(t, err.Error(), "OPENAI_API_KEY")

	_, err = factory.ForProvider(domain.Config{}, "foobar")
	assert.ErrorIs(t, err, domain.ErrUnknownProvider)

	client, err := factory.ForProvider(domain.Config{}, "ollama")
	require.NoError(t, err)
	assert.Equal(t, "ollama", client.Name())
}

func TestStructuredOutputOverride(t *testing.T) {
	off := false
	cfg := configFor("openai", "http://127.0.0.1:1")
	settings := cfg.Providers["openai"]
	settings.StructuredOutput = &off
	cfg.Providers["openai"] = settings

	client, err := NewFactory("").ForProvider(cfg, "openai")
	require.NoError(t, err)
	_, err = client.Complete(context.Background(), request(ports.FormatJSONSchema))
	assert.ErrorIs(t, err, domain.ErrStructuredOutputUnsupported)
}
