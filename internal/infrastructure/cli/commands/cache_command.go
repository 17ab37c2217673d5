package commands

import (
	"errors"
	"fmt"
	"io"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"

	"github.com/doeshing/nlsh/internal/app"
	"github.com/doeshing/nlsh/internal/infrastructure/cache"
	"github.com/doeshing/nlsh/internal/infrastructure/cli/helpers"
)

// NewCacheCommand creates the cache command with all subcommands
func NewCacheCommand(container *app.Container) *cobra.Command {
	cacheCmd := &cobra.Command{
		Use:   "cache",
		Short: "Inspect the response cache",
	}

	cacheCmd.AddCommand(
		newCacheStatsCommand(container),
		newCacheClearCommand(container),
	)

	return cacheCmd
}

// newCacheStatsCommand creates the 'cache stats' subcommand
func newCacheStatsCommand(container *app.Container) *cobra.Command {
	return &cobra.Command{
		Use:   "stats",
		Short: "Show cache entries and hit rate",
		RunE: func(cmd *cobra.Command, args []string) error {
			return showCacheStats(cmd.OutOrStdout(), container)
		},
	}
}

// newCacheClearCommand creates the 'cache clear' subcommand
func newCacheClearCommand(container *app.Container) *cobra.Command {
	var yes bool

	cmd := &cobra.Command{
		Use:   "clear",
		Short: "Remove all cached responses",
		RunE: func(cmd *cobra.Command, args []string) error {
			return clearCache(cmd.OutOrStdout(), container, yes)
		},
	}

	cmd.Flags().BoolVarP(&yes, "yes", "y", false, "Do not ask for confirmation")
	return cmd
}

func cacheStore(container *app.Container) (*cache.FileCache, error) {
	if container.CacheStore == nil {
		return nil, errors.New(ErrCacheStoreUnavailable)
	}
	return container.CacheStore, nil
}

// showCacheStats prints entry count, hit/miss counters and TTL
func showCacheStats(out io.Writer, container *app.Container) error {
	store, err := cacheStore(container)
	if err != nil {
		return err
	}

	stats := store.Stats()
	ttl := time.Duration(store.TTLSeconds()) * time.Second
	fmt.Fprintf(out, "Entries:  %s\n", humanize.Comma(int64(stats.Entries)))
	fmt.Fprintf(out, "Hits:     %s\n", humanize.Comma(int64(stats.Hits)))
	fmt.Fprintf(out, "Misses:   %s\n", humanize.Comma(int64(stats.Misses)))
	fmt.Fprintf(out, "Hit rate: %.1f%%\n", stats.HitRate)
	fmt.Fprintf(out, "TTL:      %s\n", ttl)
	fmt.Fprintf(out, "File:     %s\n", store.Path())
	return nil
}

// clearCache removes every cached response after confirmation
func clearCache(out io.Writer, container *app.Container, yes bool) error {
	store, err := cacheStore(container)
	if err != nil {
		return err
	}

	confirmed, err := helpers.ConfirmDestructive(container, yes, "Remove all cached responses?")
	if err != nil {
		return err
	}
	if !confirmed {
		fmt.Fprintln(out, MsgCancelled)
		return nil
	}

	if err := store.Clear(); err != nil {
		return fmt.Errorf("failed to clear cache: %w", err)
	}
	fmt.Fprintln(out, "Cache cleared.")
	return nil
}
