package generation

import (
	"bytes"
	"fmt"
	"strings"
	"text/template"

	"github.com/doeshing/nlsh/internal/domain"
	"github.com/doeshing/nlsh/internal/ports"
)

const baseRules = `You are a helpful assistant that converts natural language requests into shell commands.

Rules:
1. Use standard Unix/Linux commands (bash, zsh compatible)
2. Do not wrap commands in markdown code blocks
3. If the request is ambiguous or potentially dangerous, still provide the command but make it safe
4. For file operations, use relative paths when possible
5. Prefer common, portable commands over system-specific ones
6. Classify every command: "safe" only reads state, "modifying" writes, deletes, moves, kills, installs or otherwise changes the system
7. is_safe must be true exactly when safety_level is "safe"

Examples:
- "list all python files" -> find . -name "*.py" (safe)
- "show disk usage" -> df -h (safe)
- "find files larger than 100MB" -> find . -type f -size +100M (safe)
- "kill process on port 3000" -> lsof -ti:3000 | xargs kill -9 (modifying)
`

const singleShape = `Respond with a single JSON object and nothing else:
{"command": "<shell command>", "is_safe": true|false, "safety_level": "safe"|"modifying", "explanation": "<one short sentence>"}`

const alternativesShape = `Respond with a single JSON object and nothing else:
{"commands": [{"command": "<shell command>", "is_safe": true|false, "safety_level": "safe"|"modifying", "explanation": "<one short sentence>"}, ...]}
Give {{.Count}} distinct ways to accomplish the request, best first.`

const multiShape = `The request needs several coordinated commands. Respond with a single JSON object and nothing else:
{"commands": [{"command": "...", "is_safe": true|false, "safety_level": "safe"|"modifying", "explanation": "..."}, ...],
 "execution_type": "pipeline"|"sequence", "combined_command": "<all stages joined into one shell line>",
 "overall_safe": true|false, "explanation": "<one short sentence>"}
Use "pipeline" when each stage reads the previous stage's output, otherwise "sequence".`

const userTemplate = `{{.Query}}
{{- if .Original}}

Previously generated command:
{{.Original}}

Adjust it as follows: {{.Refinement}}
{{- end}}
{{- if .Context}}

Context:
{{.Context}}
{{- end}}`

var (
	userTmpl         = template.Must(template.New("user").Parse(userTemplate))
	alternativesTmpl = template.Must(template.New("alternatives").Parse(alternativesShape))
)

type promptData struct {
	Query      string
	Original   string
	Refinement string
	Context    string
	Count      int
}

func systemPrompt(shape string, data promptData) (string, error) {
	if shape == alternativesShape {
		var buf bytes.Buffer
		if err := alternativesTmpl.Execute(&buf, data); err != nil {
			return "", fmt.Errorf("render prompt: %w", err)
		}
		shape = buf.String()
	}
	return baseRules + "\n" + shape, nil
}

func buildMessages(shape string, data promptData) ([]ports.Message, error) {
	system, err := systemPrompt(shape, data)
	if err != nil {
		return nil, err
	}
	var buf bytes.Buffer
	if err := userTmpl.Execute(&buf, data); err != nil {
		return nil, fmt.Errorf("render prompt: %w", err)
	}
	return []ports.Message{
		{Role: ports.RoleSystem, Content: system},
		{Role: ports.RoleUser, Content: strings.TrimSpace(buf.String())},
	}, nil
}

func contextSnippet(snapshot *domain.ContextSnapshot) string {
	if snapshot == nil {
		return ""
	}
	var lines []string
	if snapshot.WorkingDir != "" {
		lines = append(lines, fmt.Sprintf("Directory: %s", snapshot.WorkingDir))
	}
	if snapshot.Shell != "" {
		lines = append(lines, fmt.Sprintf("Shell: %s", snapshot.Shell))
	}
	if snapshot.OS != "" {
		lines = append(lines, fmt.Sprintf("OS: %s", snapshot.OS))
	}
	if snapshot.User != "" {
		lines = append(lines, fmt.Sprintf("User: %s", snapshot.User))
	}
	if git := snapshot.Git; git != nil {
		lines = append(lines, fmt.Sprintf("Git: branch %s, %d modified, %d untracked", git.Branch, git.ModifiedCount, git.UntrackedCount))
	}
	return strings.Join(lines, "\n")
}

// multiStepMarkers are phrases that usually join two separate actions.
var multiStepMarkers = []string{" and then ", " then ", "; ", " and count ", " and delete "}

// LooksMultiStep guesses whether query asks for several coordinated commands.
func LooksMultiStep(query string) bool {
	lower := " " + strings.ToLower(strings.Join(strings.Fields(query), " ")) + " "
	for _, marker := range multiStepMarkers {
		if strings.Contains(lower, marker) {
			return true
		}
	}
	return false
}
