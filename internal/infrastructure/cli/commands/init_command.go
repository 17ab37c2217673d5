package commands

import (
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"github.com/doeshing/nlsh/internal/app"
	"github.com/doeshing/nlsh/internal/infrastructure/cli/helpers"
)

// NewInitConfigCommand creates the init-config command, which writes the
// annotated default configuration. An existing file is never overwritten.
func NewInitConfigCommand(container *app.Container) *cobra.Command {
	return &cobra.Command{
		Use:   "init-config",
		Short: "Write a default configuration file",
		Long: `Write ~/.config/nlsh/config.yaml with sensible defaults.

After initialization:
  1. Set an API key (e.g. export OPENAI_API_KEY=...)
  2. Optionally pick another provider with 'nlsh providers set <name>'
  3. Run 'nlsh doctor' to verify your setup`,
		RunE: func(cmd *cobra.Command, args []string) error {
			return initConfig(cmd, container)
		},
	}
}

func initConfig(cmd *cobra.Command, container *app.Container) error {
	loader, err := helpers.GetConfigLoader(container)
	if err != nil {
		return err
	}

	path, err := loader.WriteDefault(cmd.Context())
	if err != nil {
		return err
	}

	displayCompletionInstructions(cmd.OutOrStdout(), path)
	return nil
}

// displayCompletionInstructions displays instructions after successful initialization
func displayCompletionInstructions(out io.Writer, configPath string) {
	fmt.Fprintf(out, "Configuration written: %s\n\n", configPath)
	fmt.Fprintln(out, "Next steps:")
	fmt.Fprintln(out, "  1. Set your API key:")
	fmt.Fprintln(out, "     export OPENAI_API_KEY=your-key-here")
	fmt.Fprintln(out, "  2. Verify your setup:")
	fmt.Fprintln(out, "     nlsh doctor")
	fmt.Fprintln(out, "  3. Try a query:")
	fmt.Fprintln(out, "     nlsh \"list files larger than 100MB\"")
}
