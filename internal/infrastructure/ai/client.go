package ai

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"

	"github.com/doeshing/nlsh/internal/domain"
	"github.com/doeshing/nlsh/internal/ports"
)

// httpClient sends completions to one provider endpoint. Request and
// response shapes are delegated to a providerAdapter.
type httpClient struct {
	name       string
	endpoint   string
	apiKey     string
	structured bool
	httpClient *http.Client
	adapter    providerAdapter
}

type providerAdapter struct {
	buildRequest  func(ports.CompletionRequest) ([]byte, error)
	parseResponse func([]byte) (string, error)
	setHeaders    func(req *http.Request, apiKey string)
	// schemaMode is false for APIs without schema-constrained decoding.
	schemaMode bool
}

func (c *httpClient) Name() string {
	return c.name
}

// Complete performs one request. Asking for FormatJSONSchema on a client
// without schema support fails fast with domain.ErrStructuredOutputUnsupported.
func (c *httpClient) Complete(ctx context.Context, req ports.CompletionRequest) (ports.Completion, error) {
	if req.Format == ports.FormatJSONSchema && !c.structured {
		return nil, fmt.Errorf("%s: %w", c.name, domain.ErrStructuredOutputUnsupported)
	}
	req.Model = strings.TrimPrefix(req.Model, c.name+"/")

	body, err := c.adapter.buildRequest(req)
	if err != nil {
		return nil, err
	}
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint, bytes.NewReader(body))
	if err != nil {
		return nil, err
	}
	httpReq.Header.Set("content-type", "application/json")
	c.adapter.setHeaders(httpReq, c.apiKey)

	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		if errors.Is(err, context.Canceled) {
			return nil, err
		}
		return nil, &domain.ProviderError{Provider: c.name, Err: err}
	}
	defer resp.Body.Close()

	var responseBody bytes.Buffer
	if _, err := responseBody.ReadFrom(io.LimitReader(resp.Body, 4<<20)); err != nil {
		return nil, &domain.ProviderError{Provider: c.name, Err: err}
	}

	if resp.StatusCode >= 400 {
		message := summarize(responseBody.Bytes())
		if req.Format == ports.FormatJSONSchema && rejectsSchema(resp.StatusCode, message) {
			return nil, fmt.Errorf("%s: %s: %w", c.name, message, domain.ErrStructuredOutputUnsupported)
		}
		return nil, &domain.ProviderError{Provider: c.name, StatusCode: resp.StatusCode, Message: message}
	}

	content, err := c.adapter.parseResponse(responseBody.Bytes())
	if err != nil {
		return nil, fmt.Errorf("%s: %w", c.name, err)
	}
	return completion{content: content, structured: req.Format == ports.FormatJSONSchema}, nil
}

// rejectsSchema recognises the 400 responses servers send when they do not
// understand response_format.
func rejectsSchema(status int, message string) bool {
	if status != http.StatusBadRequest && status != http.StatusUnprocessableEntity {
		return false
	}
	lower := strings.ToLower(message)
	return strings.Contains(lower, "response_format") || strings.Contains(lower, "json_schema")
}

func summarize(body []byte) string {
	msg := strings.TrimSpace(string(body))
	if len(msg) > 300 {
		msg = msg[:300] + "..."
	}
	if msg == "" {
		return "empty response body"
	}
	return msg
}

var _ ports.LLMClient = (*httpClient)(nil)
