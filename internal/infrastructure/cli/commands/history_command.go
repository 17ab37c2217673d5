package commands

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"

	"github.com/doeshing/nlsh/internal/app"
	"github.com/doeshing/nlsh/internal/application/execution"
	"github.com/doeshing/nlsh/internal/domain"
	"github.com/doeshing/nlsh/internal/infrastructure/cli/helpers"
	"github.com/doeshing/nlsh/internal/ports"
)

// NewHistoryCommand creates the history command with all subcommands
func NewHistoryCommand(container *app.Container) *cobra.Command {
	historyCmd := &cobra.Command{
		Use:   "history",
		Short: "Inspect and replay generated commands",
	}

	historyCmd.AddCommand(
		newHistoryListCommand(container),
		newHistorySearchCommand(container),
		newHistoryShowCommand(container),
		newHistoryExecuteCommand(container),
		newHistoryExportCommand(container),
		newHistoryStatsCommand(container),
		newHistoryClearCommand(container),
	)

	return historyCmd
}

// newHistoryListCommand creates the 'history list' subcommand
func newHistoryListCommand(container *app.Container) *cobra.Command {
	var limit int

	cmd := &cobra.Command{
		Use:   "list",
		Short: "List recent history entries",
		RunE: func(cmd *cobra.Command, args []string) error {
			return listHistoryEntries(cmd.OutOrStdout(), container, limit, time.Now())
		},
	}

	cmd.Flags().IntVar(&limit, "limit", domain.DefaultHistoryLimit, "Max entries to show")
	return cmd
}

// newHistorySearchCommand creates the 'history search' subcommand
func newHistorySearchCommand(container *app.Container) *cobra.Command {
	var searchLimit int

	cmd := &cobra.Command{
		Use:   "search <query>",
		Short: "Search history queries for a keyword",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return searchHistoryEntries(cmd.OutOrStdout(), container, strings.Join(args, " "), searchLimit, time.Now())
		},
	}

	cmd.Flags().IntVar(&searchLimit, "limit", DefaultHistorySearchLimit, "Limit search results")
	return cmd
}

// newHistoryShowCommand creates the 'history show' subcommand
func newHistoryShowCommand(container *app.Container) *cobra.Command {
	return &cobra.Command{
		Use:   "show <n>",
		Short: "Show one entry (1 is the most recent)",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return showHistoryEntry(cmd.OutOrStdout(), container, args[0])
		},
	}
}

// newHistoryExecuteCommand creates the 'history execute' subcommand
func newHistoryExecuteCommand(container *app.Container) *cobra.Command {
	var (
		force      bool
		copyOutput bool
	)

	cmd := &cobra.Command{
		Use:   "execute <n>",
		Short: "Re-run a history entry through the safety gate",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return executeHistoryEntry(cmd.Context(), container, args[0], force, copyOutput)
		},
	}

	cmd.Flags().BoolVarP(&force, "force", "f", false, "Execute even if the command is modifying")
	cmd.Flags().BoolVarP(&copyOutput, "copy", "c", false, "Copy the command to the clipboard")
	return cmd
}

// newHistoryExportCommand creates the 'history export' subcommand
func newHistoryExportCommand(container *app.Container) *cobra.Command {
	var (
		format string
		output string
	)

	cmd := &cobra.Command{
		Use:   "export",
		Short: "Export history as JSON or CSV",
		RunE: func(cmd *cobra.Command, args []string) error {
			return exportHistory(cmd.OutOrStdout(), container, format, output)
		},
	}

	cmd.Flags().StringVar(&format, "format", string(domain.ExportJSON), "Export format (json|csv)")
	cmd.Flags().StringVarP(&output, "output", "o", "", "Write to file instead of stdout")
	return cmd
}

// newHistoryStatsCommand creates the 'history stats' subcommand
func newHistoryStatsCommand(container *app.Container) *cobra.Command {
	return &cobra.Command{
		Use:   "stats",
		Short: "Show success rate and top commands",
		RunE: func(cmd *cobra.Command, args []string) error {
			return showHistoryStats(cmd.OutOrStdout(), container)
		},
	}
}

// newHistoryClearCommand creates the 'history clear' subcommand
func newHistoryClearCommand(container *app.Container) *cobra.Command {
	var yes bool

	cmd := &cobra.Command{
		Use:   "clear",
		Short: "Delete all history entries",
		RunE: func(cmd *cobra.Command, args []string) error {
			return clearHistory(cmd.OutOrStdout(), container, yes)
		},
	}

	cmd.Flags().BoolVarP(&yes, "yes", "y", false, "Do not ask for confirmation")
	return cmd
}

func historyStore(container *app.Container) (ports.HistoryRepository, error) {
	if container.HistoryStore == nil {
		return nil, errors.New(ErrHistoryStoreUnavailable)
	}
	return container.HistoryStore, nil
}

// listHistoryEntries lists recent history entries
func listHistoryEntries(out io.Writer, container *app.Container, limit int, now time.Time) error {
	store, err := historyStore(container)
	if err != nil {
		return err
	}

	entries, err := store.All(limit)
	if err != nil {
		return fmt.Errorf("failed to retrieve history: %w", err)
	}
	if len(entries) == 0 {
		fmt.Fprintln(out, MsgNoHistoryRecorded)
		return nil
	}

	printHistoryEntries(out, entries, now)
	return nil
}

// searchHistoryEntries searches history for a keyword
func searchHistoryEntries(out io.Writer, container *app.Container, query string, limit int, now time.Time) error {
	store, err := historyStore(container)
	if err != nil {
		return err
	}

	entries, err := store.Search(query, limit)
	if err != nil {
		return fmt.Errorf("failed to search history: %w", err)
	}
	if len(entries) == 0 {
		fmt.Fprintln(out, MsgNoMatches)
		return nil
	}

	printHistoryEntries(out, entries, now)
	return nil
}

// printHistoryEntries prints one line per entry, numbered most recent first
// so the numbers can be passed to 'history show' and 'history execute'.
func printHistoryEntries(out io.Writer, entries []domain.HistoryEntry, now time.Time) {
	for i, entry := range entries {
		fmt.Fprintf(out, "%3d | %s | %-9s | rc=%s | %s\n",
			i+1,
			formatWhen(entry.Timestamp, now),
			helpers.SafetyLabel(entry.SafetyLevel),
			helpers.FormatReturnCode(entry),
			truncate(entry.Command, MaxCommandDisplayLength))
	}
}

// showHistoryEntry prints every field of one entry
func showHistoryEntry(out io.Writer, container *app.Container, raw string) error {
	entry, err := lookupHistoryEntry(container, raw)
	if err != nil {
		return err
	}

	fmt.Fprintf(out, "Query:       %s\n", entry.Query)
	fmt.Fprintf(out, "Command:     %s\n", entry.Command)
	fmt.Fprintf(out, "Safety:      %s\n", helpers.SafetyLabel(entry.SafetyLevel))
	if entry.Explanation != "" {
		fmt.Fprintf(out, "Explanation: %s\n", entry.Explanation)
	}
	fmt.Fprintf(out, "Time:        %s\n", entry.Timestamp.Local().Format(TimestampFormat))
	fmt.Fprintf(out, "Executed:    %t\n", entry.Executed)
	fmt.Fprintf(out, "Return code: %s\n", helpers.FormatReturnCode(entry))
	return nil
}

// executeHistoryEntry sends a stored command back through the gate. The
// stored safety classification applies; the entry's query becomes the
// query of the new history record.
func executeHistoryEntry(ctx context.Context, container *app.Container, raw string, force, copyOutput bool) error {
	entry, err := lookupHistoryEntry(container, raw)
	if err != nil {
		return err
	}
	if container.Gate == nil {
		return errors.New(ErrGateUnavailable)
	}

	result := container.Gate.RunCommand(ctx, entry.Query, entry.Response(), execution.Request{
		Execute: true,
		Force:   force,
		Copy:    copyOutput,
	})
	return helpers.ResultError(result)
}

func lookupHistoryEntry(container *app.Container, raw string) (domain.HistoryEntry, error) {
	store, err := historyStore(container)
	if err != nil {
		return domain.HistoryEntry{}, err
	}

	n, err := strconv.Atoi(raw)
	if err != nil || n < 1 {
		return domain.HistoryEntry{}, fmt.Errorf("invalid history number %q (expected 1 or higher)", raw)
	}

	entry, err := store.GetByID(n)
	if errors.Is(err, domain.ErrHistoryEntryNotFound) {
		return domain.HistoryEntry{}, fmt.Errorf("no history entry #%d", n)
	}
	return entry, err
}

// exportHistory writes the whole history to stdout or a file
func exportHistory(out io.Writer, container *app.Container, format, output string) error {
	store, err := historyStore(container)
	if err != nil {
		return err
	}

	exportFormat := domain.ExportFormat(strings.ToLower(format))
	if exportFormat != domain.ExportJSON && exportFormat != domain.ExportCSV {
		return fmt.Errorf("unsupported export format %q (use json or csv)", format)
	}

	if output == "" {
		return store.Export(out, exportFormat)
	}

	file, err := os.Create(output)
	if err != nil {
		return fmt.Errorf("failed to create %s: %w", output, err)
	}
	if err := store.Export(file, exportFormat); err != nil {
		file.Close()
		return fmt.Errorf("failed to export history to %s: %w", output, err)
	}
	if err := file.Close(); err != nil {
		return err
	}

	fmt.Fprintf(out, "History exported to %s\n", output)
	return nil
}

// showHistoryStats displays success rate and top commands
func showHistoryStats(out io.Writer, container *app.Container) error {
	store, err := historyStore(container)
	if err != nil {
		return err
	}

	entries, err := store.All(MaxHistoryAnalysisRecords)
	if err != nil {
		return fmt.Errorf("failed to retrieve history for analysis: %w", err)
	}
	if len(entries) == 0 {
		fmt.Fprintln(out, MsgNoHistoryRecorded)
		return nil
	}

	summary := helpers.SummarizeHistory(entries, TopCommandsShown)
	fmt.Fprintf(out, "Entries analyzed: %s\nExecuted: %s\nModifying: %s\nSuccess rate: %.1f%%\n",
		humanize.Comma(int64(summary.Total)),
		humanize.Comma(int64(summary.Executed)),
		humanize.Comma(int64(summary.Modifying)),
		summary.SuccessRate())

	fmt.Fprintln(out, "Top commands:")
	for _, stat := range summary.TopCommands {
		fmt.Fprintf(out, "  %s (%d)\n", truncate(stat.Command, MaxCommandDisplayLength), stat.Count)
	}
	return nil
}

// clearHistory deletes every entry after confirmation
func clearHistory(out io.Writer, container *app.Container, yes bool) error {
	store, err := historyStore(container)
	if err != nil {
		return err
	}

	confirmed, err := helpers.ConfirmDestructive(container, yes, "Delete all history entries?")
	if err != nil {
		return err
	}
	if !confirmed {
		fmt.Fprintln(out, MsgCancelled)
		return nil
	}

	if err := store.Clear(); err != nil {
		return fmt.Errorf("failed to clear history: %w", err)
	}
	fmt.Fprintln(out, "History cleared.")
	return nil
}

// formatWhen renders recent timestamps relatively ("3 minutes ago") and
// older ones as absolute local time.
func formatWhen(ts, now time.Time) string {
	if ts.IsZero() {
		return "-"
	}
	if now.Sub(ts) < RecentThreshold {
		return humanize.RelTime(ts, now, "ago", "from now")
	}
	return ts.Local().Format(TimestampFormat)
}

func truncate(s string, max int) string {
	s = strings.ReplaceAll(s, "\n", " ")
	if len(s) <= max {
		return s
	}
	return s[:max-3] + "..."
}
