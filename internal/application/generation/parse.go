package generation

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/doeshing/nlsh/internal/domain"
)

// decodeJSON parses free-form model output into target. Models that ignore
// instructions tend to wrap the object in a code fence or add a sentence
// around it, so both are stripped first.
func decodeJSON(content string, target interface{}) error {
	body := extractObject(stripFences(content))
	if body == "" {
		return fmt.Errorf("%w: no JSON object in response", domain.ErrInvalidResponse)
	}
	if err := json.Unmarshal([]byte(body), target); err != nil {
		return fmt.Errorf("%w: %v", domain.ErrInvalidResponse, err)
	}
	return nil
}

// stripFences returns the body of the first ``` block, or content unchanged.
func stripFences(content string) string {
	content = strings.TrimSpace(content)
	start := strings.Index(content, "```")
	if start == -1 {
		return content
	}
	suffix := content[start+3:]
	end := strings.Index(suffix, "```")
	if end == -1 {
		return strings.TrimSpace(suffix)
	}
	block := suffix[:end]
	lines := strings.Split(block, "\n")
	// Drop the language marker (json, sh, bash).
	if len(lines) > 1 && !strings.ContainsAny(lines[0], "{[") {
		lines = lines[1:]
	}
	return strings.TrimSpace(strings.Join(lines, "\n"))
}

func extractObject(s string) string {
	start := strings.Index(s, "{")
	end := strings.LastIndex(s, "}")
	if start == -1 || end < start {
		return ""
	}
	return s[start : end+1]
}
