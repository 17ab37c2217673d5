package domain

import (
	"errors"
	"fmt"
)

var (
	// ErrStructuredOutputUnsupported signals that the provider/model cannot
	// decode against a schema. Callers fall back to plain JSON mode.
	ErrStructuredOutputUnsupported = errors.New("structured output not supported")
	// ErrInvalidResponse marks malformed or incomplete model output.
	ErrInvalidResponse = errors.New("invalid model response")
	// ErrMissingCredential means no API key could be resolved for a provider.
	ErrMissingCredential = errors.New("missing API credential")
	// ErrUnknownProvider is returned for providers absent from config and catalog.
	ErrUnknownProvider = errors.New("unknown provider")
	ErrTemplateNotFound     = errors.New("template not found")
	ErrHistoryEntryNotFound = errors.New("history entry not found")
	// ErrInterrupted is reported when the user interrupts a running command.
	ErrInterrupted = errors.New("interrupted")
)

// ProviderDiscoveryError means the provider catalog could not be built at all,
// as opposed to a search that simply matched nothing.
type ProviderDiscoveryError struct {
	Reason string
	Err    error
}

func (e *ProviderDiscoveryError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Reason, e.Err)
	}
	return e.Reason
}

func (e *ProviderDiscoveryError) Unwrap() error { return e.Err }

// ProviderError is a transport-level failure talking to an LLM provider
// (network, auth, rate limit, server error).
type ProviderError struct {
	Provider   string
	StatusCode int
	Message    string
	Err        error
}

func (e *ProviderError) Error() string {
	switch {
	case e.StatusCode != 0:
		return fmt.Sprintf("%s: HTTP %d: %s", e.Provider, e.StatusCode, e.Message)
	case e.Err != nil:
		return fmt.Sprintf("%s: %v", e.Provider, e.Err)
	default:
		return fmt.Sprintf("%s: %s", e.Provider, e.Message)
	}
}

func (e *ProviderError) Unwrap() error { return e.Err }

// ConfigError is fatal and carries a remediation hint for the user.
type ConfigError struct {
	Path string
	Hint string
	Err  error
}

func (e *ConfigError) Error() string {
	msg := e.Err.Error()
	if e.Path != "" {
		msg = fmt.Sprintf("%s (config: %s)", msg, e.Path)
	}
	if e.Hint != "" {
		msg += "\n" + e.Hint
	}
	return msg
}

func (e *ConfigError) Unwrap() error { return e.Err }
