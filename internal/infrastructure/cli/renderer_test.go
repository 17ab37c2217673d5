package cli

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/doeshing/nlsh/internal/domain"
)

func TestRendererCommandBadges(t *testing.T) {
	tests := []struct {
		name  string
		resp  domain.CommandResponse
		badge string
	}{
		{"safe", domain.CommandResponse{Command: "df -h", IsSafe: true, SafetyLevel: domain.SafetyLevelSafe}, "[SAFE]"},
		{"modifying", domain.CommandResponse{Command: "rm -rf build", SafetyLevel: domain.SafetyLevelModifying}, "[MODIFYING]"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var out, errOut bytes.Buffer
			NewRenderer(&out, &errOut).Command(tt.resp)
			assert.Contains(t, out.String(), tt.resp.Command)
			assert.Contains(t, out.String(), tt.badge)
			assert.Empty(t, errOut.String())
		})
	}
}

func TestRendererMultiShowsCombinedCommand(t *testing.T) {
	var out, errOut bytes.Buffer
	multi := domain.MultiCommandResponse{
		Commands: []domain.CommandResponse{
			{Command: "ls", IsSafe: true, SafetyLevel: domain.SafetyLevelSafe},
			{Command: "wc -l", IsSafe: true, SafetyLevel: domain.SafetyLevelSafe},
		},
		ExecutionType: domain.ExecutionPipeline,
		OverallSafe:   true,
	}

	NewRenderer(&out, &errOut).Multi(multi)

	assert.Contains(t, out.String(), "1. ls")
	assert.Contains(t, out.String(), "2. wc -l")
	assert.Contains(t, out.String(), "ls | wc -l")
}

func TestRendererDiagnosticsGoToErrOut(t *testing.T) {
	var out, errOut bytes.Buffer
	r := NewRenderer(&out, &errOut)

	r.Warn("clipboard unavailable")
	r.Error("boom")

	assert.Empty(t, out.String())
	assert.Contains(t, errOut.String(), "Warning: clipboard unavailable")
	assert.Contains(t, errOut.String(), "Error: boom")
}
