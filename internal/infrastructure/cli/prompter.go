package cli

import (
	"errors"
	"os"

	"github.com/charmbracelet/huh"
	"github.com/mattn/go-isatty"

	"github.com/doeshing/nlsh/internal/domain"
	"github.com/doeshing/nlsh/internal/ports"
)

// Prompter implements ports.Prompter with huh forms.
type Prompter struct {
	interactive bool
}

// NewPrompter builds a prompter. Without a terminal on stdin every prompt
// answers with its zero value.
func NewPrompter() *Prompter {
	fd := os.Stdin.Fd()
	return &Prompter{interactive: isatty.IsTerminal(fd) || isatty.IsCygwinTerminal(fd)}
}

// Refinement asks how the generated command should change. An empty answer
// keeps the command as is.
func (p *Prompter) Refinement(command string) (string, error) {
	if !p.interactive {
		return "", errors.New("refinement needs an interactive terminal")
	}
	var answer string
	err := huh.NewInput().
		Title("How should the command change?").
		Description(command).
		Placeholder("e.g. include hidden files (leave empty to keep it)").
		Value(&answer).
		Run()
	return answer, translate(err)
}

// Confirm asks a yes/no question, defaulting to no.
func (p *Prompter) Confirm(question string) (bool, error) {
	if !p.interactive {
		return false, nil
	}
	var ok bool
	err := huh.NewConfirm().
		Title(question).
		Affirmative("Yes").
		Negative("No").
		Value(&ok).
		Run()
	return ok, translate(err)
}

func translate(err error) error {
	if errors.Is(err, huh.ErrUserAborted) {
		return domain.ErrInterrupted
	}
	return err
}

var _ ports.Prompter = (*Prompter)(nil)
