package generation

import (
	"fmt"

	"github.com/doeshing/nlsh/internal/domain"
)

// commandReply is the wire shape of one generated command. Pointer fields
// tell a missing key apart from a zero value.
type commandReply struct {
	Command     *string `json:"command" jsonschema:"description=The shell command to run"`
	IsSafe      *bool   `json:"is_safe" jsonschema:"description=True when the command only reads state"`
	SafetyLevel *string `json:"safety_level" jsonschema:"enum=safe,enum=modifying"`
	Explanation string  `json:"explanation,omitempty" jsonschema:"description=One short sentence describing the command"`
}

func (r commandReply) response() (domain.CommandResponse, error) {
	switch {
	case r.Command == nil:
		return domain.CommandResponse{}, missingField("command")
	case r.IsSafe == nil:
		return domain.CommandResponse{}, missingField("is_safe")
	case r.SafetyLevel == nil:
		return domain.CommandResponse{}, missingField("safety_level")
	}
	return domain.NewCommandResponse(*r.Command, *r.IsSafe, domain.SafetyLevel(*r.SafetyLevel), r.Explanation)
}

// alternativesReply wraps the list returned for --alternatives.
type alternativesReply struct {
	Commands []commandReply `json:"commands"`
}

type multiReply struct {
	Commands        []commandReply `json:"commands"`
	ExecutionType   string         `json:"execution_type,omitempty" jsonschema:"enum=pipeline,enum=sequence"`
	CombinedCommand string         `json:"combined_command,omitempty"`
	OverallSafe     *bool          `json:"overall_safe"`
	Explanation     string         `json:"explanation,omitempty"`
}

func (r multiReply) response() (domain.MultiCommandResponse, error) {
	if r.OverallSafe == nil {
		return domain.MultiCommandResponse{}, missingField("overall_safe")
	}
	stages := make([]domain.CommandResponse, 0, len(r.Commands))
	for i, c := range r.Commands {
		stage, err := c.response()
		if err != nil {
			return domain.MultiCommandResponse{}, fmt.Errorf("command %d: %w", i+1, err)
		}
		stages = append(stages, stage)
	}
	return domain.MultiCommandResponse{
		Commands:        stages,
		ExecutionType:   domain.ExecutionType(r.ExecutionType),
		CombinedCommand: r.CombinedCommand,
		OverallSafe:     *r.OverallSafe,
		Explanation:     r.Explanation,
	}.Normalize()
}

func missingField(name string) error {
	return fmt.Errorf("%w: missing required field %q", domain.ErrInvalidResponse, name)
}
