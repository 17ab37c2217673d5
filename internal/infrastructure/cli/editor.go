package cli

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"strings"

	"github.com/doeshing/nlsh/internal/ports"
)

// DefaultEditorCommand is used when neither config nor environment name one.
const DefaultEditorCommand = "vi"

// Editor opens text in the user's editor: preferences.editor, then
// $VISUAL, then $EDITOR, then vi.
type Editor struct {
	config ports.ConfigProvider
}

// NewEditor builds an editor adapter.
func NewEditor(config ports.ConfigProvider) *Editor {
	return &Editor{config: config}
}

// Edit writes text to a scratch file, waits for the editor to exit and
// returns the file's new content.
func (e *Editor) Edit(ctx context.Context, text string) (string, error) {
	argv := strings.Fields(e.command(ctx))
	if len(argv) == 0 {
		return "", errors.New("no editor configured")
	}

	scratch, err := os.CreateTemp("", "nlsh-*.sh")
	if err != nil {
		return "", fmt.Errorf("create scratch file: %w", err)
	}
	defer os.Remove(scratch.Name())
	if _, err := scratch.WriteString(text + "\n"); err != nil {
		scratch.Close()
		return "", fmt.Errorf("write scratch file: %w", err)
	}
	if err := scratch.Close(); err != nil {
		return "", err
	}

	cmd := exec.CommandContext(ctx, argv[0], append(argv[1:], scratch.Name())...)
	cmd.Stdin = os.Stdin
	cmd.Stdout = os.Stdout
	cmd.Stderr = os.Stderr
	if err := cmd.Run(); err != nil {
		return "", fmt.Errorf("run editor %s: %w", argv[0], err)
	}

	data, err := os.ReadFile(scratch.Name())
	if err != nil {
		return "", fmt.Errorf("read scratch file: %w", err)
	}
	return strings.TrimSpace(string(data)), nil
}

func (e *Editor) command(ctx context.Context) string {
	if e.config != nil {
		if cfg, err := e.config.Load(ctx); err == nil && cfg.Preferences.Editor != "" {
			return cfg.Preferences.Editor
		}
	}
	for _, env := range []string{"VISUAL", "EDITOR"} {
		if v := os.Getenv(env); v != "" {
			return v
		}
	}
	return DefaultEditorCommand
}

var _ ports.Editor = (*Editor)(nil)
