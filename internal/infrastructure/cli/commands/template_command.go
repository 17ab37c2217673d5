package commands

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/spf13/cobra"

	"github.com/doeshing/nlsh/internal/app"
	"github.com/doeshing/nlsh/internal/application/execution"
	"github.com/doeshing/nlsh/internal/domain"
	"github.com/doeshing/nlsh/internal/infrastructure/cli/helpers"
	"github.com/doeshing/nlsh/internal/ports"
)

// NewTemplateCommand creates the template command with all subcommands
func NewTemplateCommand(container *app.Container) *cobra.Command {
	templateCmd := &cobra.Command{
		Use:     "template",
		Aliases: []string{"templates"},
		Short:   "Save and reuse named commands",
	}

	templateCmd.AddCommand(
		newTemplateSaveCommand(container),
		newTemplateListCommand(container),
		newTemplateUseCommand(container),
		newTemplateDeleteCommand(container),
	)

	return templateCmd
}

// newTemplateSaveCommand creates the 'template save' subcommand
func newTemplateSaveCommand(container *app.Container) *cobra.Command {
	var description string

	cmd := &cobra.Command{
		Use:   "save <name> <command...>",
		Short: "Save a command under a name",
		Args:  cobra.MinimumNArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			return saveTemplate(cmd.OutOrStdout(), container, args[0], strings.Join(args[1:], " "), description)
		},
	}

	cmd.Flags().StringVarP(&description, "description", "d", "", "Short description")
	return cmd
}

// newTemplateListCommand creates the 'template list' subcommand
func newTemplateListCommand(container *app.Container) *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List saved templates",
		RunE: func(cmd *cobra.Command, args []string) error {
			return listTemplates(cmd.OutOrStdout(), container)
		},
	}
}

// newTemplateUseCommand creates the 'template use' subcommand
func newTemplateUseCommand(container *app.Container) *cobra.Command {
	var (
		execute    bool
		force      bool
		copyOutput bool
	)

	cmd := &cobra.Command{
		Use:   "use <name>",
		Short: "Show, copy or run a saved template",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			req := execution.Request{Execute: execute, Force: force, Copy: copyOutput}
			return useTemplate(cmd.Context(), container, args[0], req)
		},
	}

	cmd.Flags().BoolVarP(&execute, "execute", "e", false, "Execute the command")
	cmd.Flags().BoolVarP(&force, "force", "f", false, "Execute even though templates are treated as modifying")
	cmd.Flags().BoolVarP(&copyOutput, "copy", "c", false, "Copy the command to the clipboard")
	return cmd
}

// newTemplateDeleteCommand creates the 'template delete' subcommand
func newTemplateDeleteCommand(container *app.Container) *cobra.Command {
	return &cobra.Command{
		Use:     "delete <name>",
		Aliases: []string{"rm"},
		Short:   "Delete a saved template",
		Args:    cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return deleteTemplate(cmd.OutOrStdout(), container, args[0])
		},
	}
}

func templateStore(container *app.Container) (ports.TemplateRepository, error) {
	if container.TemplateStore == nil {
		return nil, errors.New(ErrTemplateStoreUnavailable)
	}
	return container.TemplateStore, nil
}

// saveTemplate stores or replaces a named command
func saveTemplate(out io.Writer, container *app.Container, name, command, description string) error {
	store, err := templateStore(container)
	if err != nil {
		return err
	}

	replaced := store.Exists(name)
	tmpl := domain.Template{Name: name, Command: command, Description: description}
	if err := store.Save(tmpl); err != nil {
		return err
	}

	if replaced {
		fmt.Fprintf(out, "Template %q updated.\n", name)
	} else {
		fmt.Fprintf(out, "Template %q saved.\n", name)
	}
	return nil
}

// listTemplates prints templates sorted by name
func listTemplates(out io.Writer, container *app.Container) error {
	store, err := templateStore(container)
	if err != nil {
		return err
	}

	list, err := store.List()
	if err != nil {
		return err
	}
	if len(list) == 0 {
		fmt.Fprintln(out, MsgNoTemplates)
		return nil
	}

	for _, tmpl := range list {
		fmt.Fprintf(out, "%s: %s\n", tmpl.Name, tmpl.Command)
		if tmpl.Description != "" {
			fmt.Fprintf(out, "    %s\n", tmpl.Description)
		}
	}
	return nil
}

// useTemplate sends a template through the gate. Templates carry no model
// classification, so they are treated as modifying and need --force to run.
func useTemplate(ctx context.Context, container *app.Container, name string, req execution.Request) error {
	store, err := templateStore(container)
	if err != nil {
		return err
	}
	if container.Gate == nil {
		return errors.New(ErrGateUnavailable)
	}

	tmpl, err := store.Get(name)
	if err != nil {
		return err
	}

	resp := domain.CommandResponse{
		Command:     tmpl.Command,
		SafetyLevel: domain.SafetyLevelModifying,
		Explanation: tmpl.Description,
	}
	result := container.Gate.RunCommand(ctx, tmpl.Name, resp, req)
	return helpers.ResultError(result)
}

// deleteTemplate removes a named template
func deleteTemplate(out io.Writer, container *app.Container, name string) error {
	store, err := templateStore(container)
	if err != nil {
		return err
	}

	if err := store.Delete(name); err != nil {
		return err
	}
	fmt.Fprintf(out, "Template %q deleted.\n", name)
	return nil
}
