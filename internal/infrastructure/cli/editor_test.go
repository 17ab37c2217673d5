package cli

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/doeshing/nlsh/internal/domain"
)

type stubConfig struct{ cfg domain.Config }

func (s stubConfig) Load(context.Context) (domain.Config, error) { return s.cfg, nil }

func TestEditorUsesConfiguredEditor(t *testing.T) {
	script := filepath.Join(t.TempDir(), "fake-editor")
	require.NoError(t, os.WriteFile(script, []byte("#!/bin/sh\necho 'ls -la /tmp' > \"$1\"\n"), 0o755))

	editor := NewEditor(stubConfig{cfg: domain.Config{Preferences: domain.Preferences{Editor: script}}})
	got, err := editor.Edit(context.Background(), "ls -la")

	require.NoError(t, err)
	assert.Equal(t, "ls -la /tmp", got)
}

func TestEditorFallsBackToEnvironment(t *testing.T) {
	t.Setenv("VISUAL", "")
	t.Setenv("EDITOR", "true")

	got, err := NewEditor(stubConfig{}).Edit(context.Background(), "df -h")

	require.NoError(t, err)
	assert.Equal(t, "df -h", got)
}
