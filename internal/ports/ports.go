// Package ports defines the interfaces (ports) for the hexagonal architecture.
//
// This package establishes the contract between the application core and external
// adapters (infrastructure). The generation engine and the execution gate depend
// only on these interfaces; concrete adapters live under internal/infrastructure
// and are wired together in internal/app.
package ports

import (
	"context"
	"encoding/json"
	"io"

	"github.com/doeshing/nlsh/internal/domain"
)

// ConfigProvider loads the latest configuration from persistent storage.
// Implementations typically read from ~/.config/nlsh/config.yaml.
type ConfigProvider interface {
	Load(context.Context) (domain.Config, error)
}

// ContextCollector gathers environmental context (cwd, shell, git) to enrich prompts.
type ContextCollector interface {
	Collect(context.Context) (domain.ContextSnapshot, error)
}

// Role is a chat message author.
type Role string

const (
	RoleSystem    Role = "system"
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
)

// Message is one chat turn sent to a provider.
type Message struct {
	Role    Role
	Content string
}

// ResponseFormat selects how the provider should shape its output.
type ResponseFormat string

const (
	FormatText       ResponseFormat = "text"
	FormatJSONObject ResponseFormat = "json_object"
	FormatJSONSchema ResponseFormat = "json_schema"
)

// CompletionRequest is everything a provider needs for one call.
type CompletionRequest struct {
	Model       string
	Messages    []Message
	Temperature float64
	MaxTokens   int
	Format      ResponseFormat
	// SchemaName and Schema are only used with FormatJSONSchema.
	SchemaName string
	Schema     json.RawMessage
}

// Completion is a single completion choice. It isolates callers from the
// provider's response shape.
type Completion interface {
	// ParseStructured decodes a schema-validated object into target. It
	// returns domain.ErrStructuredOutputUnsupported when the completion was
	// not produced in schema mode.
	ParseStructured(target interface{}) error
	// Raw returns the text content of the choice.
	Raw() string
}

// LLMClient talks to one provider.
type LLMClient interface {
	Name() string
	Complete(ctx context.Context, req CompletionRequest) (Completion, error)
}

// ClientFactory builds an LLMClient for a provider using config credentials.
type ClientFactory interface {
	ForProvider(cfg domain.Config, provider string) (LLMClient, error)
}

// CacheRepository maps (query, model) to previously generated responses.
type CacheRepository interface {
	Get(query, model string) (domain.CommandResponse, bool)
	Set(query, model string, resp domain.CommandResponse) error
	Clear() error
	Stats() domain.CacheStats
}

// HistoryRepository persists the bounded history ledger. Reads are most-recent-first.
type HistoryRepository interface {
	Add(entry domain.HistoryEntry) (domain.HistoryEntry, error)
	All(limit int) ([]domain.HistoryEntry, error)
	Search(query string, limit int) ([]domain.HistoryEntry, error)
	// GetByID returns the entry at 1-based position id in most-recent-first order.
	GetByID(id int) (domain.HistoryEntry, error)
	Clear() error
	Export(w io.Writer, format domain.ExportFormat) error
}

// TemplateRepository stores named command templates.
type TemplateRepository interface {
	Save(tmpl domain.Template) error
	Get(name string) (domain.Template, error)
	List() ([]domain.Template, error)
	Delete(name string) error
	Exists(name string) bool
}

// ProviderResolver discovers providers and models and resolves model names.
type ProviderResolver interface {
	AvailableProviders(ctx context.Context) ([]string, error)
	ProviderModels(ctx context.Context, provider string) ([]string, error)
	SearchProviders(ctx context.Context, query string) ([]string, error)
	SearchModels(ctx context.Context, provider, query string) ([]string, error)
	FormatModelName(provider, model string) string
	ModelProvider(ctx context.Context, model string) string
	Refresh(ctx context.Context) (domain.ProviderCatalog, error)
}

// CommandExecutor runs shell commands in the configured shell environment.
type CommandExecutor interface {
	Execute(ctx context.Context, command string) (domain.ExecutionResult, error)
}

// Clipboard provides cross-platform clipboard integration for copying commands.
type Clipboard interface {
	Copy(text string) error
	Enabled() bool
}

// Prompter asks the user for input on the terminal.
type Prompter interface {
	Refinement(command string) (string, error)
	Confirm(question string) (bool, error)
}

// Editor lets the user modify text in an external editor.
type Editor interface {
	Edit(ctx context.Context, text string) (string, error)
}

// Renderer is the output sink for user-visible results.
type Renderer interface {
	Command(resp domain.CommandResponse)
	Multi(resp domain.MultiCommandResponse)
	Alternatives(resps []domain.CommandResponse)
	Executing(command string)
	Info(msg string)
	Warn(msg string)
	Error(msg string)
}

// StatusIndicator shows progress while a provider call is in flight.
type StatusIndicator interface {
	Start(label string)
	Stop()
}

// Logger provides structured logging abstraction for the application layer.
// Implementations can route to different backends (stdout, files, external services).
type Logger interface {
	Debug(msg string, fields map[string]interface{})
	Info(msg string, fields map[string]interface{})
	Warn(msg string, fields map[string]interface{})
	Error(msg string, err error, fields map[string]interface{})
}
