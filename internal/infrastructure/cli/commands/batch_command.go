package commands

import (
	"errors"

	"github.com/spf13/cobra"

	"github.com/doeshing/nlsh/internal/app"
	"github.com/doeshing/nlsh/internal/application/execution"
	"github.com/doeshing/nlsh/internal/infrastructure/cli/helpers"
)

// NewBatchCommand creates the batch command. Each non-empty line of the
// file is a query; lines starting with # are comments.
func NewBatchCommand(container *app.Container) *cobra.Command {
	var (
		execute bool
		force   bool
	)

	cmd := &cobra.Command{
		Use:   "batch <file>",
		Short: "Generate commands for every query in a file",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if container.Gate == nil {
				return errors.New(ErrGateUnavailable)
			}
			_, result := container.Gate.RunBatch(cmd.Context(), args[0], execution.Request{
				Execute: execute,
				Force:   force,
			})
			return helpers.ResultError(result)
		},
	}

	cmd.Flags().BoolVarP(&execute, "execute", "e", false, "Execute each generated command")
	cmd.Flags().BoolVarP(&force, "force", "f", false, "Execute modifying commands too")
	return cmd
}
