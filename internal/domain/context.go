package domain

// ContextSnapshot holds environment data injected into prompts.
type ContextSnapshot struct {
	WorkingDir string
	Shell      string
	OS         string
	User       string
	Git        *GitStatus
}

// GitStatus captures contextual Git data.
type GitStatus struct {
	Branch         string
	ModifiedCount  int
	UntrackedCount int
}

// ExecutionResult wraps details from the command executor.
type ExecutionResult struct {
	Ran         bool
	ExitCode    int
	DurationMS  int64
	Interrupted bool
}
