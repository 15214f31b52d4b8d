package main

import (
	"fmt"
	"strconv"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"

	cachepkg "github.com/versewright/versewright/pkg/cache/sqlite"
	"github.com/versewright/versewright/pkg/config"
)

// openDurableCache opens the persistent cache tier named by the config.
func openDurableCache(configPath string) (*cachepkg.Cache, error) {
	cfg, err := config.LoadOrDefault(configPath)
	if err != nil {
		return nil, err
	}
	if !cfg.Cache.Enabled || !cfg.Cache.Persistent {
		return nil, fmt.Errorf("the persistent cache is disabled in %s", configPath)
	}
	return cachepkg.New(cfg.DBPath)
}

func newCacheCmd(configPath *string) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "cache",
		Short: "Manage the persistent response cache",
	}

	statsCmd := &cobra.Command{
		Use:   "stats",
		Short: "Show cache statistics",
		RunE: func(cmd *cobra.Command, args []string) error {
			c, err := openDurableCache(*configPath)
			if err != nil {
				return err
			}
			defer func() { _ = c.Close() }()

			stats, err := c.Stats()
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), renderTable(
				[]string{"Tier", "Entries", "Hits", "Misses"},
				[][]string{{
					stats.Tier,
					humanize.Comma(stats.Entries),
					strconv.FormatInt(stats.Hits, 10),
					strconv.FormatInt(stats.Misses, 10),
				}},
				[]columnAlignment{alignLeft, alignRight, alignRight, alignRight},
			))
			fmt.Fprintln(cmd.OutOrStdout(), "Hit and miss counters cover this process only; see /metrics on a running server.")
			return nil
		},
	}

	var olderThan time.Duration
	clearCmd := &cobra.Command{
		Use:   "clear",
		Short: "Clear cache entries",
		RunE: func(cmd *cobra.Command, args []string) error {
			c, err := openDurableCache(*configPath)
			if err != nil {
				return err
			}
			defer func() { _ = c.Close() }()

			if olderThan > 0 {
				n, err := c.Prune(cmd.Context(), olderThan)
				if err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "Removed %s cache entries older than %s.\n", humanize.Comma(n), olderThan)
				return nil
			}
			if err := c.Clear(cmd.Context()); err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), "All cache entries cleared.")
			return nil
		},
	}
	clearCmd.Flags().DurationVar(&olderThan, "older-than", 0, "only clear entries stored longer ago than this (e.g. 720h)")

	cmd.AddCommand(statsCmd, clearCmd)
	return cmd
}
