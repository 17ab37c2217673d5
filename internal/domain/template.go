package domain

import (
	"errors"
	"strings"
)

// Template is a named, reusable command.
type Template struct {
	Name        string `json:"-"`
	Command     string `json:"command"`
	Description string `json:"description,omitempty"`
}

// Validate rejects templates without a name or command.
func (t Template) Validate() error {
	if strings.TrimSpace(t.Name) == "" {
		return errors.New("template name is required")
	}
	if strings.TrimSpace(t.Command) == "" {
		return errors.New("template command is required")
	}
	return nil
}
