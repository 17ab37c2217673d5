package executor

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/exec"
	"os/signal"
	"syscall"
	"time"

	"github.com/doeshing/nlsh/internal/domain"
	"github.com/doeshing/nlsh/internal/ports"
)

// LocalExecutor runs commands on the host shell with the terminal attached.
type LocalExecutor struct {
	shell  string
	stdin  io.Reader
	stdout io.Writer
	stderr io.Writer
}

// Option customises a LocalExecutor.
type Option func(*LocalExecutor)

// WithStdio replaces the terminal streams, mostly for tests.
func WithStdio(stdin io.Reader, stdout, stderr io.Writer) Option {
	return func(e *LocalExecutor) {
		e.stdin = stdin
		e.stdout = stdout
		e.stderr = stderr
	}
}

// NewLocalExecutor builds a new executor. shell defaults to $SHELL, then /bin/sh.
func NewLocalExecutor(shell string, opts ...Option) *LocalExecutor {
	if shell == "" {
		shell = os.Getenv("SHELL")
	}
	if shell == "" {
		shell = "/bin/sh"
	}
	e := &LocalExecutor{shell: shell, stdin: os.Stdin, stdout: os.Stdout, stderr: os.Stderr}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Shell returns the interpreter used for `-c`.
func (e *LocalExecutor) Shell() string {
	return e.shell
}

// Execute implements ports.CommandExecutor. A non-zero exit status is not
// an error; it is reported in the result. The child is not tied to ctx: a
// terminal Ctrl-C reaches it through the process group while SIGINT is
// trapped here, and that run is reported with domain.ErrInterrupted. A child
// killed by any other signal is a failed run with status 128+signal.
func (e *LocalExecutor) Execute(ctx context.Context, command string) (domain.ExecutionResult, error) {
	if err := ctx.Err(); err != nil {
		return domain.ExecutionResult{}, err
	}
	c := exec.Command(e.shell, "-c", command)
	c.Stdin = e.stdin
	c.Stdout = e.stdout
	c.Stderr = e.stderr

	signals := make(chan os.Signal, 1)
	signal.Notify(signals, os.Interrupt)
	defer signal.Stop(signals)

	start := time.Now()
	if err := c.Start(); err != nil {
		return domain.ExecutionResult{}, fmt.Errorf("start %s: %w", e.shell, err)
	}
	err := c.Wait()
	result := domain.ExecutionResult{
		Ran:        true,
		DurationMS: time.Since(start).Milliseconds(),
	}

	select {
	case <-signals:
		result.Interrupted = true
		result.ExitCode = domain.InterruptedReturnCode
		return result, domain.ErrInterrupted
	default:
	}

	var exitErr *exec.ExitError
	switch {
	case err == nil:
		result.ExitCode = 0
	case errors.As(err, &exitErr):
		result.ExitCode = exitCode(exitErr)
	default:
		return result, fmt.Errorf("wait for command: %w", err)
	}
	return result, nil
}

// exitCode follows the shell convention of 128+n for a child killed by signal n.
func exitCode(exitErr *exec.ExitError) int {
	if code := exitErr.ExitCode(); code != -1 {
		return code
	}
	if status, ok := exitErr.Sys().(syscall.WaitStatus); ok && status.Signaled() {
		return 128 + int(status.Signal())
	}
	return 1
}

var _ ports.CommandExecutor = (*LocalExecutor)(nil)
