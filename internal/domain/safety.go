package domain

import (
	"fmt"
	"strings"
)

// SafetyLevel is the model's own advisory classification of a command.
type SafetyLevel string

const (
	// SafetyLevelSafe marks read-only, non-destructive commands.
	SafetyLevelSafe SafetyLevel = "safe"
	// SafetyLevelModifying marks commands that alter system state.
	SafetyLevelModifying SafetyLevel = "modifying"
)

// ParseSafetyLevel accepts either case ("SAFE", "safe").
func ParseSafetyLevel(raw string) (SafetyLevel, error) {
	level := SafetyLevel(strings.ToLower(strings.TrimSpace(raw)))
	if !level.Valid() {
		return "", fmt.Errorf("%w: unknown safety_level %q", ErrInvalidResponse, raw)
	}
	return level, nil
}

// Valid reports whether l is one of the two known levels.
func (l SafetyLevel) Valid() bool {
	return l == SafetyLevelSafe || l == SafetyLevelModifying
}

// ExecutionType says how the stages of a multi-command response connect.
type ExecutionType string

const (
	ExecutionPipeline ExecutionType = "pipeline"
	ExecutionSequence ExecutionType = "sequence"
)

// CommandResponse is a single generated command.
type CommandResponse struct {
	Command     string      `json:"command" jsonschema:"description=The shell command to run"`
	IsSafe      bool        `json:"is_safe" jsonschema:"description=True when the command only reads state"`
	SafetyLevel SafetyLevel `json:"safety_level" jsonschema:"enum=safe,enum=modifying"`
	Explanation string      `json:"explanation,omitempty" jsonschema:"description=One short sentence describing the command"`
}

// NewCommandResponse validates and normalizes the given fields.
func NewCommandResponse(command string, isSafe bool, level SafetyLevel, explanation string) (CommandResponse, error) {
	resp := CommandResponse{
		Command:     command,
		IsSafe:      isSafe,
		SafetyLevel: level,
		Explanation: explanation,
	}
	return resp.Normalize()
}

// Normalize validates r and returns a copy where IsSafe agrees with
// SafetyLevel. Disagreeing inputs resolve to the modifying side.
func (r CommandResponse) Normalize() (CommandResponse, error) {
	r.Command = strings.TrimSpace(r.Command)
	r.Explanation = strings.TrimSpace(r.Explanation)
	if r.Command == "" {
		return CommandResponse{}, fmt.Errorf("%w: empty command", ErrInvalidResponse)
	}
	level, err := ParseSafetyLevel(string(r.SafetyLevel))
	if err != nil {
		return CommandResponse{}, err
	}
	if level == SafetyLevelSafe && !r.IsSafe {
		level = SafetyLevelModifying
	}
	r.SafetyLevel = level
	r.IsSafe = level == SafetyLevelSafe
	return r, nil
}

// Safe reports whether the command may run without --force.
func (r CommandResponse) Safe() bool {
	return r.IsSafe && r.SafetyLevel == SafetyLevelSafe
}

// MultiCommandResponse is an ordered decomposition of one request.
type MultiCommandResponse struct {
	Commands        []CommandResponse `json:"commands"`
	ExecutionType   ExecutionType     `json:"execution_type,omitempty" jsonschema:"enum=pipeline,enum=sequence"`
	CombinedCommand string            `json:"combined_command,omitempty"`
	OverallSafe     bool              `json:"overall_safe"`
	Explanation     string            `json:"explanation,omitempty"`
}

// Normalize validates every stage and defaults ExecutionType to sequence.
// OverallSafe is kept as supplied.
func (m MultiCommandResponse) Normalize() (MultiCommandResponse, error) {
	if len(m.Commands) == 0 {
		return MultiCommandResponse{}, fmt.Errorf("%w: no commands", ErrInvalidResponse)
	}
	stages := make([]CommandResponse, 0, len(m.Commands))
	for i, c := range m.Commands {
		n, err := c.Normalize()
		if err != nil {
			return MultiCommandResponse{}, fmt.Errorf("command %d: %w", i+1, err)
		}
		stages = append(stages, n)
	}
	m.Commands = stages

	switch ExecutionType(strings.ToLower(string(m.ExecutionType))) {
	case "", ExecutionSequence:
		m.ExecutionType = ExecutionSequence
	case ExecutionPipeline:
		m.ExecutionType = ExecutionPipeline
	default:
		return MultiCommandResponse{}, fmt.Errorf("%w: unknown execution_type %q", ErrInvalidResponse, m.ExecutionType)
	}
	m.CombinedCommand = strings.TrimSpace(m.CombinedCommand)
	m.Explanation = strings.TrimSpace(m.Explanation)
	return m, nil
}

// ShellCommand returns the single shell string that runs every stage:
// CombinedCommand when the model supplied one, else the joined stages.
func (m MultiCommandResponse) ShellCommand() string {
	if m.CombinedCommand != "" {
		return m.CombinedCommand
	}
	return m.JoinedStages()
}

// JoinedStages joins the stage commands with " | " or " && ".
func (m MultiCommandResponse) JoinedStages() string {
	sep := " && "
	if m.ExecutionType == ExecutionPipeline {
		sep = " | "
	}
	parts := make([]string, 0, len(m.Commands))
	for _, c := range m.Commands {
		parts = append(parts, c.Command)
	}
	return strings.Join(parts, sep)
}

// CombinedMatchesStages reports whether CombinedCommand is absent or equal,
// up to whitespace, to the joined stages.
func (m MultiCommandResponse) CombinedMatchesStages() bool {
	if m.CombinedCommand == "" {
		return true
	}
	return strings.Join(strings.Fields(m.CombinedCommand), " ") == strings.Join(strings.Fields(m.JoinedStages()), " ")
}

// Safe requires the model's overall verdict, every stage to be safe, and
// a combined command (if any) that is exactly the classified stages.
func (m MultiCommandResponse) Safe() bool {
	if !m.OverallSafe || !m.CombinedMatchesStages() {
		return false
	}
	for _, c := range m.Commands {
		if !c.Safe() {
			return false
		}
	}
	return true
}

// Flatten collapses m into one CommandResponse for display, execution and history.
func (m MultiCommandResponse) Flatten() CommandResponse {
	level := SafetyLevelModifying
	if m.Safe() {
		level = SafetyLevelSafe
	}
	return CommandResponse{
		Command:     m.ShellCommand(),
		IsSafe:      level == SafetyLevelSafe,
		SafetyLevel: level,
		Explanation: m.Explanation,
	}
}
