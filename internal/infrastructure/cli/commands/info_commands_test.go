package commands

import (
	"bytes"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/doeshing/nlsh/internal/domain"
	"github.com/doeshing/nlsh/internal/version"
)

func TestVersionCommandShort(t *testing.T) {
	cmd := NewVersionCommand()
	var out bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetArgs([]string{"--short"})
	require.NoError(t, cmd.Execute())
	assert.Equal(t, version.Version, strings.TrimSpace(out.String()))
}

func TestVersionCommandFull(t *testing.T) {
	cmd := NewVersionCommand()
	var out bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetArgs([]string{})
	require.NoError(t, cmd.Execute())
	assert.Contains(t, out.String(), "nlsh version "+version.Version)
	assert.Contains(t, out.String(), "go:")
}

func TestPrintDoctorReport(t *testing.T) {
	var out bytes.Buffer
	printDoctorReport(&out, domain.HealthReport{Checks: []domain.HealthCheck{
		{Name: "Config file", Status: domain.HealthOK, Details: "loaded"},
		{Name: "Clipboard", Status: domain.HealthWarn, Details: "unavailable"},
	}})
	assert.Contains(t, out.String(), "[OK] Config file - loaded")
	assert.Contains(t, out.String(), "[WARN] Clipboard - unavailable")
	assert.Contains(t, out.String(), "1 ok, 1 warnings, 0 errors")
}
