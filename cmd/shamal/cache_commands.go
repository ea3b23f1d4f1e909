package main

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"github.com/spf13/cobra"

	"shamal/internal/anidb"
	"shamal/internal/anidb/series"
	"shamal/internal/anidb/titles"
)

func newCacheCommand(ctx *commandContext) *cobra.Command {
	cacheCmd := &cobra.Command{
		Use:   "cache",
		Short: "Inspect and refresh the AniDB document cache",
	}
	cacheCmd.AddCommand(newCacheStatsCommand(ctx))
	cacheCmd.AddCommand(newCacheRefreshCommand(ctx))
	return cacheCmd
}

func newCacheStatsCommand(ctx *commandContext) *cobra.Command {
	var asJSON bool
	cmd := &cobra.Command{
		Use:   "stats [series-id...]",
		Short: "Show cached document counts and the age of selected documents",
		Args:  cobra.ArbitraryArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withProvider(cmd, func(_ context.Context, provider *anidb.Provider) error {
				stats, err := provider.CacheStats()
				if err != nil {
					return err
				}
				if asJSON {
					return writeJSON(cmd, stats)
				}
				out := cmd.OutOrStdout()
				fmt.Fprintln(out, renderTable(
					[]string{"Directory", "Documents", "Bytes"},
					[][]string{{stats.Dir, strconv.Itoa(stats.Files), strconv.FormatInt(stats.Bytes, 10)}},
					[]columnAlignment{alignLeft, alignRight, alignRight},
				))

				keys := []string{titles.CacheKey}
				for _, id := range args {
					key, err := series.CacheKey(id)
					if err != nil {
						return err
					}
					keys = append(keys, key)
				}
				rows := make([][]string, 0, len(keys))
				for _, key := range keys {
					entry, ok, err := provider.CachedDocument(key)
					if err != nil {
						return err
					}
					if !ok {
						rows = append(rows, []string{key, "missing", "-"})
						continue
					}
					rows = append(rows, []string{key, entry.ModTime.UTC().Format(time.RFC3339), strconv.FormatInt(entry.Size, 10)})
				}
				fmt.Fprintln(out, renderTable(
					[]string{"Document", "Fetched", "Bytes"},
					rows,
					[]columnAlignment{alignLeft, alignLeft, alignRight},
				))
				return nil
			})
		},
	}
	cmd.Flags().BoolVar(&asJSON, "json", false, "Output as JSON")
	return cmd
}

func newCacheRefreshCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "refresh",
		Short: "Download the title dump and rebuild the title index",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withProvider(cmd, func(reqCtx context.Context, provider *anidb.Provider) error {
				count, err := provider.RefreshTitles(reqCtx)
				if err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "Title index rebuilt: %d series\n", count)
				return nil
			})
		},
	}
}
