package contextcollector

import (
	"context"
	"os"
	"os/exec"
	"path/filepath"
	"runtime"
	"strings"

	"github.com/doeshing/nlsh/internal/domain"
	"github.com/doeshing/nlsh/internal/ports"
)

// BasicCollector implements ContextCollector with cwd, shell and git data.
type BasicCollector struct {
	workDir func() (string, error)
}

func NewBasicCollector() *BasicCollector {
	return &BasicCollector{workDir: os.Getwd}
}

// Collect gathers context data. Missing pieces are left empty.
func (c *BasicCollector) Collect(ctx context.Context) (domain.ContextSnapshot, error) {
	wd, err := c.workDir()
	if err != nil {
		return domain.ContextSnapshot{}, err
	}
	return domain.ContextSnapshot{
		WorkingDir: wd,
		Shell:      detectShell(),
		OS:         runtime.GOOS + "/" + runtime.GOARCH,
		User:       currentUser(),
		Git:        collectGitInfo(ctx, wd),
	}, nil
}

func detectShell() string {
	if shell := os.Getenv("SHELL"); shell != "" {
		return filepath.Base(shell)
	}
	return "unknown"
}

func currentUser() string {
	if user := os.Getenv("USER"); user != "" {
		return user
	}
	return os.Getenv("USERNAME")
}

func collectGitInfo(ctx context.Context, dir string) *domain.GitStatus {
	if _, err := exec.LookPath("git"); err != nil {
		return nil
	}
	branch := strings.TrimSpace(runCmd(ctx, dir, "git", "rev-parse", "--abbrev-ref", "HEAD"))
	if branch == "" {
		return nil
	}
	status := parseGitStatus(runCmd(ctx, dir, "git", "status", "--short"))
	status.Branch = branch
	return &status
}

func parseGitStatus(short string) domain.GitStatus {
	var status domain.GitStatus
	for _, line := range strings.Split(short, "\n") {
		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}
		if strings.HasPrefix(line, "??") {
			status.UntrackedCount++
		} else {
			status.ModifiedCount++
		}
	}
	return status
}

func runCmd(ctx context.Context, dir string, name string, args ...string) string {
	cctx, cancel := context.WithTimeout(ctx, domain.DefaultCommandTimeout)
	defer cancel()
	cmd := exec.CommandContext(cctx, name, args...)
	if dir != "" {
		cmd.Dir = dir
	}
	out, err := cmd.Output()
	if err != nil {
		return ""
	}
	return string(out)
}

var _ ports.ContextCollector = (*BasicCollector)(nil)
