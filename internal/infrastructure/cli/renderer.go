package cli

import (
	"fmt"
	"io"
	"strings"

	"github.com/charmbracelet/lipgloss"

	"github.com/doeshing/nlsh/internal/domain"
	"github.com/doeshing/nlsh/internal/ports"
)

// Renderer prints results as bordered panels. Colors are dropped
// automatically when out is not a terminal.
type Renderer struct {
	out    io.Writer
	errOut io.Writer

	panel     lipgloss.Style
	title     lipgloss.Style
	safe      lipgloss.Style
	modifying lipgloss.Style
	dim       lipgloss.Style
	warn      lipgloss.Style
	fail      lipgloss.Style
}

// NewRenderer builds a renderer writing results to out and diagnostics to errOut.
func NewRenderer(out, errOut io.Writer) *Renderer {
	r := lipgloss.NewRenderer(out)
	return &Renderer{
		out:       out,
		errOut:    errOut,
		panel:     r.NewStyle().Border(lipgloss.RoundedBorder()).BorderForeground(lipgloss.Color("2")).Padding(0, 1),
		title:     r.NewStyle().Bold(true).Foreground(lipgloss.Color("2")),
		safe:      r.NewStyle().Bold(true).Foreground(lipgloss.Color("2")),
		modifying: r.NewStyle().Bold(true).Foreground(lipgloss.Color("3")),
		dim:       r.NewStyle().Faint(true),
		warn:      r.NewStyle().Foreground(lipgloss.Color("3")),
		fail:      r.NewStyle().Foreground(lipgloss.Color("1")),
	}
}

// Command prints a single generated command.
func (r *Renderer) Command(resp domain.CommandResponse) {
	fmt.Fprintln(r.out, r.title.Render("Generated Command")+"  "+r.badge(resp.Safe()))
	fmt.Fprintln(r.out, r.panel.Render(resp.Command))
	if resp.Explanation != "" {
		fmt.Fprintln(r.out, r.dim.Render(resp.Explanation))
	}
}

// Multi prints every stage followed by the combined shell line.
func (r *Renderer) Multi(resp domain.MultiCommandResponse) {
	fmt.Fprintln(r.out, r.title.Render(fmt.Sprintf("Multi-step Command (%s)", resp.ExecutionType))+"  "+r.badge(resp.Safe()))
	var stages []string
	for i, c := range resp.Commands {
		line := fmt.Sprintf("%d. %s  %s", i+1, c.Command, r.badge(c.Safe()))
		if c.Explanation != "" {
			line += "\n   " + r.dim.Render(c.Explanation)
		}
		stages = append(stages, line)
	}
	fmt.Fprintln(r.out, strings.Join(stages, "\n"))
	fmt.Fprintln(r.out, r.panel.Render(resp.ShellCommand()))
	if resp.Explanation != "" {
		fmt.Fprintln(r.out, r.dim.Render(resp.Explanation))
	}
}

// Alternatives prints numbered options.
func (r *Renderer) Alternatives(resps []domain.CommandResponse) {
	for i, resp := range resps {
		fmt.Fprintln(r.out, r.title.Render(fmt.Sprintf("Alternative %d", i+1))+"  "+r.badge(resp.Safe()))
		fmt.Fprintln(r.out, r.panel.Render(resp.Command))
		if resp.Explanation != "" {
			fmt.Fprintln(r.out, r.dim.Render(resp.Explanation))
		}
	}
}

func (r *Renderer) Executing(command string) {
	fmt.Fprintf(r.out, "\n%s %s\n\n", r.modifying.Render("Executing:"), command)
}

func (r *Renderer) Info(msg string) {
	fmt.Fprintln(r.out, r.dim.Render(msg))
}

func (r *Renderer) Warn(msg string) {
	fmt.Fprintln(r.errOut, r.warn.Render("Warning: "+msg))
}

func (r *Renderer) Error(msg string) {
	fmt.Fprintln(r.errOut, r.fail.Render("Error: "+msg))
}

func (r *Renderer) badge(safe bool) string {
	if safe {
		return r.safe.Render("[SAFE]")
	}
	return r.modifying.Render("[MODIFYING]")
}

var _ ports.Renderer = (*Renderer)(nil)
