package cli

import (
	"context"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/doeshing/nlsh/internal/app"
	"github.com/doeshing/nlsh/internal/application/execution"
	"github.com/doeshing/nlsh/internal/application/generation"
	"github.com/doeshing/nlsh/internal/infrastructure/cli/commands"
	"github.com/doeshing/nlsh/internal/infrastructure/cli/helpers"
)

// EnvDebug enables verbose logging like --verbose.
const EnvDebug = "NLSH_DEBUG"

// ExitError carries a process exit code from a command to main.
type ExitError = helpers.ExitError

// Options holds CLI-level configuration.
type Options struct {
	ConfigPath string
	Verbose    bool
}

// ParseGlobalOptions pre-scans args for --config and --verbose, which are
// needed before the container (and therefore the command tree) exists.
func ParseGlobalOptions(args []string) Options {
	var opts Options
	for i := 0; i < len(args); i++ {
		arg := args[i]
		switch {
		case arg == "--":
			i = len(args)
		case arg == "--verbose" || arg == "-v":
			opts.Verbose = true
		case arg == "--config" && i+1 < len(args):
			opts.ConfigPath = args[i+1]
			i++
		case strings.HasPrefix(arg, "--config="):
			opts.ConfigPath = strings.TrimPrefix(arg, "--config=")
		}
	}
	if debug := strings.ToLower(os.Getenv(EnvDebug)); debug == "1" || debug == "true" {
		opts.Verbose = true
	}
	return opts
}

// NewRootCmd wires the cobra root command. The returned container must be
// closed by the caller.
func NewRootCmd(ctx context.Context, opts Options) (*cobra.Command, *app.Container, error) {
	container, err := app.BuildContainer(ctx, app.Options{ConfigPath: opts.ConfigPath, Verbose: opts.Verbose})
	if err != nil {
		return nil, nil, err
	}
	attachTerminal(container)

	root := newQueryCommand(container)
	root.PersistentFlags().BoolP("verbose", "v", false, "Enable debug logging on stderr")
	root.PersistentFlags().String("config", "", "Path to config file (default ~/.config/nlsh/config.yaml)")

	root.AddCommand(
		commands.NewBatchCommand(container),
		commands.NewHistoryCommand(container),
		commands.NewTemplateCommand(container),
		commands.NewCacheCommand(container),
		commands.NewProvidersCommand(container),
		commands.NewConfigCommand(container),
		commands.NewInitConfigCommand(container),
		commands.NewDoctorCommand(container),
		commands.NewVersionCommand(),
	)
	return root, container, nil
}

// attachTerminal plugs the interactive adapters into the services.
func attachTerminal(container *app.Container) {
	clipboard := NewClipboard()
	container.Generator.Status = NewSpinner(os.Stderr)
	container.Gate.Output = NewRenderer(os.Stdout, os.Stderr)
	container.Gate.Prompter = NewPrompter()
	container.Gate.Editor = NewEditor(container.ConfigProvider)
	container.Gate.Clipboard = clipboard
	container.DoctorService.Clipboard = clipboard
}

// queryFlags mirrors the root command's flags.
type queryFlags struct {
	execute      bool
	force        bool
	copy         bool
	refine       bool
	alternatives bool
	count        int
	edit         bool
	multi        bool
	model        string
	temperature  float64
	maxTokens    int
	noCache      bool
}

func newQueryCommand(container *app.Container) *cobra.Command {
	var flags queryFlags

	cmd := &cobra.Command{
		Use:   "nlsh [flags] <query...>",
		Short: "Turn natural language into shell commands",
		Long: `nlsh translates a natural-language request into a shell command,
classifies it as SAFE or MODIFYING, and shows, copies or runs it.

Modifying commands only run with --force.`,
		Example: `  nlsh list all python files in this directory
  nlsh -e show disk usage of the current folder
  nlsh -a --count 5 find large log files
  nlsh --multi find all log files and then count their lines`,
		Args:          cobra.ArbitraryArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			if len(args) == 0 {
				_ = cmd.Help()
				return &ExitError{Code: 1}
			}
			req := flags.request(strings.Join(args, " "))
			if cmd.Flags().Changed("temperature") {
				t := flags.temperature
				req.Options.Temperature = &t
			}
			return helpers.ResultError(container.Gate.Run(cmd.Context(), req))
		},
	}

	f := cmd.Flags()
	f.BoolVarP(&flags.execute, "execute", "e", false, "Execute the command (SAFE commands only unless --force)")
	f.BoolVarP(&flags.force, "force", "f", false, "Allow executing MODIFYING commands")
	f.BoolVarP(&flags.copy, "copy", "c", false, "Copy the command to the clipboard")
	f.BoolVarP(&flags.refine, "refine", "r", false, "Interactively refine the command before use")
	f.BoolVarP(&flags.alternatives, "alternatives", "a", false, "Show several alternative commands")
	f.IntVar(&flags.count, "count", 0, "Number of alternatives (default preferences.alternatives)")
	f.BoolVar(&flags.edit, "edit", false, "Open the command in $EDITOR before use")
	f.BoolVar(&flags.multi, "multi", false, "Decompose the request into several commands")
	f.StringVarP(&flags.model, "model", "m", "", "Model to use for this request")
	f.Float64Var(&flags.temperature, "temperature", 0, "Sampling temperature for this request")
	f.IntVar(&flags.maxTokens, "max-tokens", 0, "Max tokens for this request")
	f.BoolVar(&flags.noCache, "no-cache", false, "Bypass the response cache")

	return cmd
}

func (f queryFlags) request(query string) execution.Request {
	return execution.Request{
		Query:            query,
		Execute:          f.execute,
		Force:            f.force,
		Copy:             f.copy,
		Refine:           f.refine,
		Alternatives:     f.alternatives,
		AlternativeCount: f.count,
		Edit:             f.edit,
		Multi:            f.multi,
		Options: generation.Options{
			Model:     f.model,
			MaxTokens: f.maxTokens,
			NoCache:   f.noCache,
		},
	}
}
