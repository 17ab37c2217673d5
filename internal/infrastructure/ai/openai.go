package ai

import (
	"encoding/json"
	"fmt"
	"net/http"
	"strings"

	"github.com/doeshing/nlsh/internal/domain"
	"github.com/doeshing/nlsh/internal/ports"
)

type chatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type chatCompletionRequest struct {
	Model          string          `json:"model"`
	Messages       []chatMessage   `json:"messages"`
	MaxTokens      int             `json:"max_tokens,omitempty"`
	Temperature    *float64        `json:"temperature,omitempty"`
	ResponseFormat *responseFormat `json:"response_format,omitempty"`
}

type responseFormat struct {
	Type       string          `json:"type"`
	JSONSchema *jsonSchemaSpec `json:"json_schema,omitempty"`
}

type jsonSchemaSpec struct {
	Name   string          `json:"name"`
	Schema json.RawMessage `json:"schema"`
	Strict bool            `json:"strict"`
}

type chatCompletionResponse struct {
	Choices []struct {
		Message struct {
			Content string `json:"content"`
			Refusal string `json:"refusal"`
		} `json:"message"`
	} `json:"choices"`
}

func openaiAdapter() providerAdapter {
	return providerAdapter{
		buildRequest:  buildChatCompletionRequest,
		parseResponse: parseChatCompletionResponse,
		setHeaders:    setBearerHeaders,
		schemaMode:    true,
	}
}

func azureAdapter() providerAdapter {
	return providerAdapter{
		buildRequest:  buildChatCompletionRequest,
		parseResponse: parseChatCompletionResponse,
		setHeaders:    setAzureHeaders,
		schemaMode:    true,
	}
}

func ollamaAdapter() providerAdapter {
	return providerAdapter{
		buildRequest:  buildChatCompletionRequest,
		parseResponse: parseChatCompletionResponse,
		setHeaders:    setOllamaHeaders,
	}
}

func buildChatCompletionRequest(req ports.CompletionRequest) ([]byte, error) {
	messages := make([]chatMessage, 0, len(req.Messages))
	for _, msg := range req.Messages {
		messages = append(messages, chatMessage{Role: string(msg.Role), Content: msg.Content})
	}
	temperature := req.Temperature
	payload := chatCompletionRequest{
		Model:       req.Model,
		Messages:    messages,
		MaxTokens:   req.MaxTokens,
		Temperature: &temperature,
	}
	switch req.Format {
	case ports.FormatJSONObject:
		payload.ResponseFormat = &responseFormat{Type: "json_object"}
	case ports.FormatJSONSchema:
		payload.ResponseFormat = &responseFormat{
			Type:       "json_schema",
			JSONSchema: &jsonSchemaSpec{Name: req.SchemaName, Schema: req.Schema},
		}
	}
	return json.Marshal(payload)
}

func parseChatCompletionResponse(body []byte) (string, error) {
	var response chatCompletionResponse
	if err := json.Unmarshal(body, &response); err != nil {
		return "", fmt.Errorf("%w: decode chat completion: %v", domain.ErrInvalidResponse, err)
	}
	if len(response.Choices) == 0 {
		return "", fmt.Errorf("%w: no choices returned", domain.ErrInvalidResponse)
	}
	msg := response.Choices[0].Message
	if msg.Refusal != "" {
		return "", fmt.Errorf("%w: model refused: %s", domain.ErrInvalidResponse, msg.Refusal)
	}
	return strings.TrimSpace(msg.Content), nil
}

func setBearerHeaders(req *http.Request, apiKey string) {
	if apiKey != "" {
		req.Header.Set("authorization", "Bearer "+apiKey)
	}
}

func setAzureHeaders(req *http.Request, apiKey string) {
	req.Header.Set("api-key", apiKey)
}

func setOllamaHeaders(req *http.Request, apiKey string) {
	setBearerHeaders(req, apiKey)
}
