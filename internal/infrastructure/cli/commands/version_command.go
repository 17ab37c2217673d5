package commands

import (
	"fmt"
	"io"
	"runtime"

	"github.com/spf13/cobra"

	"github.com/doeshing/nlsh/internal/version"
)

// NewVersionCommand prints build metadata. --short prints only the version.
func NewVersionCommand() *cobra.Command {
	var short bool
	cmd := &cobra.Command{
		Use:   "version",
		Short: "Show nlsh version information",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			printVersion(cmd.OutOrStdout(), short)
			return nil
		},
	}
	cmd.Flags().BoolVar(&short, "short", false, "Print the version number only")
	return cmd
}

func printVersion(out io.Writer, short bool) {
	if short {
		fmt.Fprintln(out, version.Version)
		return
	}
	fmt.Fprintf(out, "nlsh version %s\n", version.Version)
	if version.Commit != "" {
		fmt.Fprintf(out, "  commit: %s\n", version.Commit)
	}
	if version.BuildDate != "" {
		fmt.Fprintf(out, "  built:  %s\n", version.BuildDate)
	}
	fmt.Fprintf(out, "  go:     %s/%s %s\n", runtime.GOOS, runtime.GOARCH, runtime.Version())
}
