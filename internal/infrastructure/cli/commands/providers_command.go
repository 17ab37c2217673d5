package commands

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/charmbracelet/huh"
	"github.com/mattn/go-isatty"
	"github.com/spf13/cobra"

	"github.com/doeshing/nlsh/internal/app"
	"github.com/doeshing/nlsh/internal/domain"
	"github.com/doeshing/nlsh/internal/infrastructure/catalog"
	"github.com/doeshing/nlsh/internal/infrastructure/cli/helpers"
)

// maxPickerOptions bounds the interactive model list.
const maxPickerOptions = 200

// modelPicker asks the user to choose a model. Replaced in tests.
var modelPicker = pickModelInteractively

// NewProvidersCommand creates the providers command with all subcommands
func NewProvidersCommand(container *app.Container) *cobra.Command {
	providersCmd := &cobra.Command{
		Use:     "providers",
		Aliases: []string{"provider"},
		Short:   "Discover providers and manage provider settings",
		RunE: func(cmd *cobra.Command, args []string) error {
			return showActiveProvider(cmd.Context(), cmd.OutOrStdout(), container)
		},
	}

	providersCmd.AddCommand(
		newProvidersListCommand(container),
		newProvidersSearchCommand(container),
		newProvidersModelsCommand(container),
		newProvidersRefreshCommand(container),
		newProvidersShowCommand(container),
		newProvidersSwitchCommand(container),
		newProvidersSetCommand(container),
		newProvidersRemoveCommand(container),
	)

	return providersCmd
}

// newProvidersListCommand creates the 'providers list' subcommand
func newProvidersListCommand(container *app.Container) *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List known providers",
		RunE: func(cmd *cobra.Command, args []string) error {
			return listProviders(cmd.Context(), cmd.OutOrStdout(), container, "")
		},
	}
}

// newProvidersSearchCommand creates the 'providers search' subcommand
func newProvidersSearchCommand(container *app.Container) *cobra.Command {
	return &cobra.Command{
		Use:   "search <query>",
		Short: "Fuzzy-search provider names",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return listProviders(cmd.Context(), cmd.OutOrStdout(), container, args[0])
		},
	}
}

// newProvidersModelsCommand creates the 'providers models' subcommand
func newProvidersModelsCommand(container *app.Container) *cobra.Command {
	return &cobra.Command{
		Use:   "models <provider> [query]",
		Short: "List or fuzzy-search the models of a provider",
		Args:  cobra.RangeArgs(1, 2),
		RunE: func(cmd *cobra.Command, args []string) error {
			query := ""
			if len(args) == 2 {
				query = args[1]
			}
			return listModels(cmd.Context(), cmd.OutOrStdout(), container, args[0], query)
		},
	}
}

// newProvidersRefreshCommand creates the 'providers refresh' subcommand
func newProvidersRefreshCommand(container *app.Container) *cobra.Command {
	return &cobra.Command{
		Use:   "refresh",
		Short: "Download the provider catalog again",
		RunE: func(cmd *cobra.Command, args []string) error {
			return refreshProviders(cmd.Context(), cmd.OutOrStdout(), container)
		},
	}
}

// newProvidersShowCommand creates the 'providers show' subcommand
func newProvidersShowCommand(container *app.Container) *cobra.Command {
	return &cobra.Command{
		Use:   "show",
		Short: "Show the active provider and model",
		RunE: func(cmd *cobra.Command, args []string) error {
			return showActiveProvider(cmd.Context(), cmd.OutOrStdout(), container)
		},
	}
}

// newProvidersSwitchCommand creates the 'providers switch' subcommand
func newProvidersSwitchCommand(container *app.Container) *cobra.Command {
	return &cobra.Command{
		Use:   "switch <name>",
		Short: "Make a configured provider active",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return switchProvider(cmd.Context(), cmd.OutOrStdout(), container, args[0])
		},
	}
}

// providerSetOptions holds the flags of 'providers set'
type providerSetOptions struct {
	Name      string
	Model     string
	APIKeyEnv string
	Endpoint  string
}

// newProvidersSetCommand creates the 'providers set' subcommand
func newProvidersSetCommand(container *app.Container) *cobra.Command {
	var opts providerSetOptions

	cmd := &cobra.Command{
		Use:   "set <name>",
		Short: "Configure a provider and make it active",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			opts.Name = args[0]
			return setProvider(cmd.Context(), cmd.OutOrStdout(), container, opts)
		},
	}

	cmd.Flags().StringVarP(&opts.Model, "model", "m", "", "Model to use (picked interactively when omitted)")
	cmd.Flags().StringVar(&opts.APIKeyEnv, "api-key-env", "", "Environment variable holding the API key")
	cmd.Flags().StringVar(&opts.Endpoint, "endpoint", "", "Custom API endpoint (e.g. http://localhost:11434)")
	return cmd
}

// newProvidersRemoveCommand creates the 'providers remove' subcommand
func newProvidersRemoveCommand(container *app.Container) *cobra.Command {
	var yes bool

	cmd := &cobra.Command{
		Use:   "remove <name>",
		Short: "Remove a provider from the configuration",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return removeProvider(cmd.Context(), cmd.OutOrStdout(), container, args[0], yes)
		},
	}

	cmd.Flags().BoolVarP(&yes, "yes", "y", false, "Do not ask for confirmation")
	return cmd
}

func resolver(container *app.Container) (*catalog.Resolver, error) {
	if container.Resolver == nil {
		return nil, errors.New(ErrResolverUnavailable)
	}
	return container.Resolver, nil
}

// listProviders prints provider names, marking the active one
func listProviders(ctx context.Context, out io.Writer, container *app.Container, query string) error {
	r, err := resolver(container)
	if err != nil {
		return err
	}

	var names []string
	if query == "" {
		names, err = r.AvailableProviders(ctx)
	} else {
		names, err = r.SearchProviders(ctx, query)
	}
	if err != nil {
		return err
	}
	if len(names) == 0 {
		fmt.Fprintln(out, MsgNoMatches)
		return nil
	}

	active := ""
	if cfg, err := loadConfig(ctx, container); err == nil {
		active = cfg.ActiveProviderName()
	}
	for _, name := range names {
		marker := " "
		if name == active {
			marker = "*"
		}
		fmt.Fprintf(out, "%s %s\n", marker, name)
	}
	return nil
}

// listModels prints the models of one provider
func listModels(ctx context.Context, out io.Writer, container *app.Container, provider, query string) error {
	r, err := resolver(container)
	if err != nil {
		return err
	}

	var models []string
	if query == "" {
		models, err = r.ProviderModels(ctx, provider)
	} else {
		models, err = r.SearchModels(ctx, provider, query)
	}
	if err != nil {
		return err
	}
	if len(models) == 0 {
		fmt.Fprintln(out, MsgNoMatches)
		return nil
	}

	for _, model := range models {
		fmt.Fprintln(out, model)
	}
	return nil
}

// refreshProviders re-downloads the catalog
func refreshProviders(ctx context.Context, out io.Writer, container *app.Container) error {
	r, err := resolver(container)
	if err != nil {
		return err
	}

	refreshed, err := r.Refresh(ctx)
	if err != nil {
		return err
	}

	models := 0
	for _, list := range refreshed.Providers {
		models += len(list)
	}
	fmt.Fprintf(out, "Catalog refreshed: %d providers, %d models.\n", len(refreshed.Providers), models)
	return nil
}

// showActiveProvider prints active provider, model, endpoint and key status
func showActiveProvider(ctx context.Context, out io.Writer, container *app.Container) error {
	cfg, err := loadConfig(ctx, container)
	if err != nil {
		return err
	}

	name := cfg.ActiveProviderName()
	settings, _ := cfg.ProviderSettingsFor(name)
	fmt.Fprintf(out, "Provider: %s\n", name)
	fmt.Fprintf(out, "Model:    %s\n", cfg.ActiveModelName())
	if settings.Endpoint != "" {
		fmt.Fprintf(out, "Endpoint: %s\n", settings.Endpoint)
	}
	fmt.Fprintf(out, "API key:  %s\n", apiKeyStatus(cfg, name, settings))

	if others := otherProviders(cfg, name); len(others) > 0 {
		fmt.Fprintf(out, "Also configured: %s\n", strings.Join(others, ", "))
	}
	return nil
}

func apiKeyStatus(cfg domain.Config, name string, settings domain.ProviderSettings) string {
	if !domain.RequiresAPIKey(name) {
		return "not required"
	}
	env := settings.APIKeyEnv
	if env == "" {
		env = domain.DefaultAPIKeyEnv(name)
	}
	if cfg.APIKeyFor(name) == "" {
		return fmt.Sprintf("missing (set %s)", env)
	}
	if settings.APIKey != "" {
		return "set in config"
	}
	return fmt.Sprintf("from %s", env)
}

func otherProviders(cfg domain.Config, active string) []string {
	var others []string
	for _, name := range cfg.ProviderNames() {
		if name != active {
			others = append(others, name)
		}
	}
	return others
}

// switchProvider activates an already configured provider
func switchProvider(ctx context.Context, out io.Writer, container *app.Container, name string) error {
	cfg, err := loadConfig(ctx, container)
	if err != nil {
		return err
	}

	if err := cfg.SwitchProvider(name, ""); err != nil {
		return fmt.Errorf("%w (configure it with 'nlsh providers set %s')", err, strings.ToLower(name))
	}
	if err := container.ConfigLoader.Save(ctx, cfg); err != nil {
		return fmt.Errorf("failed to save configuration: %w", err)
	}

	fmt.Fprintf(out, "Active provider: %s (%s)\n", cfg.ActiveProviderName(), cfg.ActiveModelName())
	return nil
}

// setProvider merges flag values into the provider entry, picks a model
// when none was given, and makes the provider active.
func setProvider(ctx context.Context, out io.Writer, container *app.Container, opts providerSetOptions) error {
	cfg, err := loadConfig(ctx, container)
	if err != nil {
		return err
	}

	name := strings.ToLower(strings.TrimSpace(opts.Name))
	settings, _ := cfg.ProviderSettingsFor(name)
	if opts.APIKeyEnv != "" {
		settings.APIKeyEnv = opts.APIKeyEnv
	}
	if opts.Endpoint != "" {
		settings.Endpoint = opts.Endpoint
	}

	model := opts.Model
	if model == "" {
		model, err = chooseModel(ctx, container, name, settings)
		if err != nil {
			return err
		}
	}
	if model != "" && !containsString(settings.Models, model) {
		settings.Models = append([]string{model}, settings.Models...)
	}

	if err := cfg.SetProvider(name, settings); err != nil {
		return err
	}
	if err := cfg.SwitchProvider(name, model); err != nil {
		return err
	}
	if err := container.ConfigLoader.Save(ctx, cfg); err != nil {
		return fmt.Errorf("failed to save configuration: %w", err)
	}

	fmt.Fprintf(out, "Active provider: %s (%s)\n", cfg.ActiveProviderName(), cfg.ActiveModelName())
	if domain.RequiresAPIKey(name) && cfg.APIKeyFor(name) == "" {
		env := settings.APIKeyEnv
		if env == "" {
			env = domain.DefaultAPIKeyEnv(name)
		}
		fmt.Fprintf(out, "Remember to export %s.\n", env)
	}
	return nil
}

// chooseModel offers catalog models for provider. Without a terminal it
// keeps the first configured model, or fails when there is none.
func chooseModel(ctx context.Context, container *app.Container, provider string, settings domain.ProviderSettings) (string, error) {
	var models []string
	if container.Resolver != nil {
		found, err := container.Resolver.ProviderModels(ctx, provider)
		if err != nil && container.Logger != nil {
			container.Logger.Warn("model discovery failed", map[string]interface{}{"provider": provider, "error": err.Error()})
		}
		models = found
	}
	for _, configured := range settings.Models {
		if !containsString(models, configured) {
			models = append(models, configured)
		}
	}

	fd := os.Stdin.Fd()
	interactive := isatty.IsTerminal(fd) || isatty.IsCygwinTerminal(fd)
	if interactive && len(models) > 0 {
		return modelPicker(provider, models)
	}
	if len(settings.Models) > 0 {
		return settings.Models[0], nil
	}
	return "", fmt.Errorf("--model is required for %s (see 'nlsh providers models %s')", provider, provider)
}

func pickModelInteractively(provider string, models []string) (string, error) {
	if len(models) > maxPickerOptions {
		models = models[:maxPickerOptions]
	}
	var choice string
	err := huh.NewSelect[string]().
		Title(fmt.Sprintf("Select a %s model", provider)).
		Options(huh.NewOptions(models...)...).
		Height(12).
		Value(&choice).
		Run()
	if errors.Is(err, huh.ErrUserAborted) {
		return "", domain.ErrInterrupted
	}
	return choice, err
}

// removeProvider deletes a provider entry after confirmation
func removeProvider(ctx context.Context, out io.Writer, container *app.Container, name string, yes bool) error {
	cfg, err := loadConfig(ctx, container)
	if err != nil {
		return err
	}

	confirmed, err := helpers.ConfirmDestructive(container, yes, fmt.Sprintf("Remove provider %s?", name))
	if err != nil {
		return err
	}
	if !confirmed {
		fmt.Fprintln(out, MsgCancelled)
		return nil
	}

	if err := cfg.RemoveProvider(name); err != nil {
		return err
	}
	if err := container.ConfigLoader.Save(ctx, cfg); err != nil {
		return fmt.Errorf("failed to save configuration: %w", err)
	}
	fmt.Fprintf(out, "Provider %s removed.\n", strings.ToLower(name))
	return nil
}

func containsString(list []string, target string) bool {
	for _, item := range list {
		if item == target {
			return true
		}
	}
	return false
}
