package execution

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/doeshing/nlsh/internal/application/generation"
	"github.com/doeshing/nlsh/internal/domain"
	"github.com/doeshing/nlsh/internal/ports"
)

// Generator is the subset of generation.Service the gate drives.
type Generator interface {
	GenerateCommand(ctx context.Context, query string, opts generation.Options) (domain.CommandResponse, error)
	RefineCommand(ctx context.Context, query, refinement, original string, opts generation.Options) (domain.CommandResponse, error)
	GenerateAlternatives(ctx context.Context, query string, count int, opts generation.Options) ([]domain.CommandResponse, error)
	GenerateMultiCommand(ctx context.Context, query string, opts generation.Options) (domain.MultiCommandResponse, error)
}

// Gate enforces the safety policy between generation and the shell.
type Gate struct {
	ConfigProvider ports.ConfigProvider
	Generator      Generator
	History        ports.HistoryRepository
	Executor       ports.CommandExecutor
	Clipboard      ports.Clipboard
	Prompter       ports.Prompter
	Editor         ports.Editor
	Output         ports.Renderer
	Logger         ports.Logger
}

// Request is the normalized (query, flags) tuple from the CLI.
type Request struct {
	Query            string
	Execute          bool
	Force            bool
	Copy             bool
	Refine           bool
	Alternatives     bool
	AlternativeCount int
	Edit             bool
	Multi            bool
	Options          generation.Options
}

// Result tells the CLI boundary how the run ended.
type Result struct {
	OK       bool
	ExitCode int
	Message  string
	Command  string
	Executed bool
}

func success(command string) Result {
	return Result{OK: true, Command: command}
}

func failure(code int, msg string) Result {
	return Result{ExitCode: code, Message: msg}
}

// Run processes one request. The first matching branch wins: alternatives,
// refine, then the edit/display/copy/execute path.
func (g *Gate) Run(ctx context.Context, req Request) Result {
	if g.Generator == nil || g.Output == nil || g.Logger == nil {
		return failure(1, "execution.Gate dependencies not satisfied")
	}
	query := strings.TrimSpace(req.Query)
	if query == "" {
		return failure(1, "query is empty")
	}

	if req.Alternatives {
		alts, err := g.Generator.GenerateAlternatives(ctx, query, req.AlternativeCount, req.Options)
		if err != nil {
			return g.generationFailed(err)
		}
		g.Output.Alternatives(alts)
		return success("")
	}

	var (
		resp  domain.CommandResponse
		multi *domain.MultiCommandResponse
	)
	if req.Multi || g.autoMulti(ctx, query) {
		m, err := g.Generator.GenerateMultiCommand(ctx, query, req.Options)
		if err != nil {
			return g.generationFailed(err)
		}
		multi = &m
		resp = m.Flatten()
	} else {
		r, err := g.Generator.GenerateCommand(ctx, query, req.Options)
		if err != nil {
			return g.generationFailed(err)
		}
		resp = r
	}

	if req.Refine {
		return g.refine(ctx, query, req, resp, multi)
	}
	return g.dispatch(ctx, query, req, resp, multi)
}

// RunCommand sends an already resolved command (a template or a history
// entry) through the same edit/display/copy/execute path.
func (g *Gate) RunCommand(ctx context.Context, label string, resp domain.CommandResponse, req Request) Result {
	if g.Output == nil || g.Logger == nil {
		return failure(1, "execution.Gate dependencies not satisfied")
	}
	resp, err := resp.Normalize()
	if err != nil {
		return failure(1, err.Error())
	}
	return g.dispatch(ctx, label, req, resp, nil)
}

func (g *Gate) autoMulti(ctx context.Context, query string) bool {
	if g.ConfigProvider == nil {
		return false
	}
	cfg, err := g.ConfigProvider.Load(ctx)
	if err != nil {
		return false
	}
	return cfg.Preferences.AutoMulti && generation.LooksMultiStep(query)
}

func (g *Gate) refine(ctx context.Context, query string, req Request, resp domain.CommandResponse, multi *domain.MultiCommandResponse) Result {
	g.show(resp, multi)
	if g.Prompter == nil {
		return failure(1, "refinement needs an interactive terminal")
	}
	instruction, err := g.Prompter.Refinement(resp.Command)
	if err != nil {
		return g.promptFailed(err)
	}
	if instruction = strings.TrimSpace(instruction); instruction != "" {
		refined, err := g.Generator.RefineCommand(ctx, query, instruction, resp.Command, req.Options)
		if err != nil {
			return g.generationFailed(err)
		}
		resp = refined
		g.Output.Command(resp)
	}
	if req.Copy {
		g.copy(resp.Command)
	}
	g.record(domain.NewHistoryEntry(query, resp))
	return success(resp.Command)
}

func (g *Gate) dispatch(ctx context.Context, query string, req Request, resp domain.CommandResponse, multi *domain.MultiCommandResponse) Result {
	if req.Edit {
		edited, err := g.edit(ctx, resp)
		if err != nil {
			return failure(1, err.Error())
		}
		if edited.Command != resp.Command {
			multi = nil
		}
		resp = edited
	}

	g.show(resp, multi)

	if req.Copy {
		g.copy(resp.Command)
	}

	entry := domain.NewHistoryEntry(query, resp)
	if !req.Execute {
		g.record(entry)
		return success(resp.Command)
	}

	if !resp.Safe() && !req.Force {
		g.record(entry)
		return failure(1, "Refusing to execute a modifying command. Re-run with --force to execute it anyway.")
	}
	return g.execute(ctx, entry)
}

func (g *Gate) execute(ctx context.Context, entry domain.HistoryEntry) Result {
	if g.Executor == nil {
		g.record(entry)
		return failure(1, "no command executor configured")
	}
	g.Output.Executing(entry.Command)
	outcome, err := g.Executor.Execute(ctx, entry.Command)
	if outcome.Interrupted || errors.Is(err, domain.ErrInterrupted) {
		g.record(entry.WithExecution(domain.InterruptedReturnCode))
		return Result{
			ExitCode: domain.InterruptedReturnCode,
			Message:  "Command interrupted by user",
			Command:  entry.Command,
			Executed: true,
		}
	}
	if err != nil && !outcome.Ran {
		g.record(entry)
		return failure(1, fmt.Sprintf("Error executing command: %v", err))
	}

	g.record(entry.WithExecution(outcome.ExitCode))
	return Result{
		OK:       outcome.ExitCode == 0,
		ExitCode: outcome.ExitCode,
		Command:  entry.Command,
		Executed: true,
	}
}

// edit opens the command in the user's editor. A changed command is no
// longer covered by the model's classification and is treated as modifying.
func (g *Gate) edit(ctx context.Context, resp domain.CommandResponse) (domain.CommandResponse, error) {
	if g.Editor == nil {
		return resp, errors.New("no editor available")
	}
	text, err := g.Editor.Edit(ctx, resp.Command)
	if err != nil {
		return resp, fmt.Errorf("edit command: %w", err)
	}
	text = strings.TrimSpace(text)
	if text == "" {
		return resp, errors.New("edited command is empty")
	}
	if text == resp.Command {
		return resp, nil
	}
	g.Logger.Debug("command edited", map[string]interface{}{"before": resp.Command, "after": text})
	resp.Command = text
	resp.IsSafe = false
	resp.SafetyLevel = domain.SafetyLevelModifying
	return resp, nil
}

func (g *Gate) show(resp domain.CommandResponse, multi *domain.MultiCommandResponse) {
	if multi != nil {
		g.Output.Multi(*multi)
		return
	}
	g.Output.Command(resp)
}

func (g *Gate) copy(command string) {
	if g.Clipboard == nil || !g.Clipboard.Enabled() {
		g.Output.Warn("Could not copy to clipboard. Install xclip or xsel (e.g. 'sudo apt install xclip').")
		return
	}
	if err := g.Clipboard.Copy(command); err != nil {
		g.Logger.Warn("clipboard copy failed", map[string]interface{}{"error": err.Error()})
		g.Output.Warn(fmt.Sprintf("Could not copy to clipboard: %v", err))
		return
	}
	g.Output.Info("(Command copied to clipboard)")
}

func (g *Gate) record(entry domain.HistoryEntry) {
	if g.History == nil {
		return
	}
	if _, err := g.History.Add(entry); err != nil {
		g.Logger.Warn("history write failed", map[string]interface{}{"error": err.Error()})
	}
}

func (g *Gate) generationFailed(err error) Result {
	g.Logger.Error("generation failed", err, nil)
	if errors.Is(err, context.Canceled) {
		return failure(domain.InterruptedReturnCode, "Cancelled")
	}
	var cfgErr *domain.ConfigError
	if errors.As(err, &cfgErr) {
		return failure(1, cfgErr.Error())
	}
	return failure(1, fmt.Sprintf("Error generating command: %v", err))
}

func (g *Gate) promptFailed(err error) Result {
	if errors.Is(err, domain.ErrInterrupted) {
		return failure(domain.InterruptedReturnCode, "Cancelled")
	}
	return failure(1, err.Error())
}
