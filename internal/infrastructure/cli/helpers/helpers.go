package helpers

import (
	"fmt"
	"strconv"

	"github.com/doeshing/nlsh/internal/app"
	"github.com/doeshing/nlsh/internal/application/execution"
	"github.com/doeshing/nlsh/internal/domain"
	"github.com/doeshing/nlsh/internal/infrastructure/config"
)

// ExitError carries a process exit code out of cobra. Message may be empty
// when the failure was already reported.
type ExitError struct {
	Code    int
	Message string
}

func (e *ExitError) Error() string {
	if e.Message == "" {
		return fmt.Sprintf("exit status %d", e.Code)
	}
	return e.Message
}

// ResultError converts a gate result into a cobra error; nil on exit code 0.
func ResultError(result execution.Result) error {
	if result.ExitCode == 0 {
		return nil
	}
	return &ExitError{Code: result.ExitCode, Message: result.Message}
}

// GetConfigLoader extracts the config loader from container with error handling
func GetConfigLoader(container *app.Container) (*config.FileLoader, error) {
	if container.ConfigLoader == nil {
		return nil, fmt.Errorf("config loader unavailable")
	}
	return container.ConfigLoader, nil
}

// ConfirmDestructive returns true when yes is set or the user agrees.
// Without a terminal the answer is no.
func ConfirmDestructive(container *app.Container, yes bool, question string) (bool, error) {
	if yes {
		return true, nil
	}
	if container.Gate == nil || container.Gate.Prompter == nil {
		return false, nil
	}
	return container.Gate.Prompter.Confirm(question)
}

// FormatReturnCode renders a history return code, "-" when not executed.
func FormatReturnCode(entry domain.HistoryEntry) string {
	if entry.ReturnCode == nil {
		return "-"
	}
	return strconv.Itoa(*entry.ReturnCode)
}

// SafetyLabel is the upper-case safety level used in listings.
func SafetyLabel(level domain.SafetyLevel) string {
	if level == domain.SafetyLevelSafe {
		return "SAFE"
	}
	return "MODIFYING"
}
