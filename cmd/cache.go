package cmd

import (
	"fmt"
	"io"
	"time"

	"github.com/jfmyers9/toptracks/internal/config"
	"github.com/jfmyers9/toptracks/internal/store"
	"github.com/spf13/cobra"
)

var cacheCmd = &cobra.Command{
	Use:   "cache",
	Short: "Inspect or clear the chart cache",
	Long: `Charts of periods that have already ended are stored in a local SQLite
database so repeated reports don't fetch them again. Empty charts are never
cached.`,
}

var cacheStatsCmd = &cobra.Command{
	Use:   "stats",
	Short: "Show what the chart cache holds",
	RunE:  runCacheStats,
}

var cachePurgeOlderThan time.Duration

var cachePurgeCmd = &cobra.Command{
	Use:   "purge",
	Short: "Remove cached charts",
	Long: `Remove cached charts. With --older-than only charts fetched longer ago
than the given duration are removed, otherwise cache.max_age from the config
applies; when both are zero the whole cache is cleared.`,
	RunE: runCachePurge,
}

func init() {
	rootCmd.AddCommand(cacheCmd)
	cacheCmd.AddCommand(cacheStatsCmd)
	cacheCmd.AddCommand(cachePurgeCmd)

	cachePurgeCmd.Flags().DurationVar(&cachePurgeOlderThan, "older-than", 0, "Only remove charts fetched before this long ago, e.g. 720h")
}

func openCache() (*store.Cache, string, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, "", fmt.Errorf("failed to load config: %w", err)
	}

	cache, err := store.NewCache(cfg.Cache.Path)
	if err != nil {
		return nil, "", fmt.Errorf("failed to open cache: %w", err)
	}
	return cache, cfg.Cache.Path, nil
}

func runCacheStats(cmd *cobra.Command, args []string) error {
	cache, path, err := openCache()
	if err != nil {
		return err
	}
	defer func() { _ = cache.Close() }()

	stats, err := cache.Stats(cmd.Context())
	if err != nil {
		return fmt.Errorf("failed to read cache: %w", err)
	}

	printStats(cmd.OutOrStdout(), path, stats)
	return nil
}

func printStats(w io.Writer, path string, stats store.Stats) {
	fmt.Fprintf(w, "Cache:   %s\n", path)
	fmt.Fprintf(w, "Users:   %d\n", stats.Users)
	fmt.Fprintf(w, "Periods: %d\n", stats.Periods)
	fmt.Fprintf(w, "Tracks:  %d\n", stats.Entries)
	if !stats.Oldest.IsZero() {
		fmt.Fprintf(w, "Oldest:  %s\n", stats.Oldest.Format(time.RFC3339))
		fmt.Fprintf(w, "Newest:  %s\n", stats.Newest.Format(time.RFC3339))
	}
}

func runCachePurge(cmd *cobra.Command, args []string) error {
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}

	maxAge := cachePurgeOlderThan
	if !cmd.Flags().Changed("older-than") {
		maxAge = cfg.Cache.MaxAge
	}

	cache, err := store.NewCache(cfg.Cache.Path)
	if err != nil {
		return fmt.Errorf("failed to open cache: %w", err)
	}
	defer func() { _ = cache.Close() }()

	deleted, err := cache.Purge(cmd.Context(), maxAge)
	if err != nil {
		return fmt.Errorf("failed to purge cache: %w", err)
	}

	printSuccess(cmd.OutOrStdout(), "Removed %d cached %s", deleted, plural(deleted, "period", "periods"))
	return nil
}

func plural(n int64, one, many string) string {
	if n == 1 {
		return one
	}
	return many
}
