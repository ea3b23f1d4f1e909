package main

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"shamal/internal/anidb"
	"shamal/internal/language"
)

func newResolveCommand(ctx *commandContext) *cobra.Command {
	var asJSON bool
	cmd := &cobra.Command{
		Use:   "resolve <name...>",
		Short: "Resolve an anime name to its AniDB series id",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			name := strings.Join(args, " ")
			return ctx.withProvider(cmd, func(reqCtx context.Context, provider *anidb.Provider) error {
				id, ok, err := provider.ResolveSeriesID(reqCtx, name)
				if err != nil {
					return err
				}
				if asJSON {
					return writeJSON(cmd, map[string]any{"query": name, "series_id": id, "found": ok})
				}
				if !ok {
					return fmt.Errorf("no series matches %q", name)
				}
				fmt.Fprintln(cmd.OutOrStdout(), id)
				return nil
			})
		},
	}
	cmd.Flags().BoolVar(&asJSON, "json", false, "Output as JSON")
	return cmd
}

func newSearchCommand(ctx *commandContext) *cobra.Command {
	var (
		limit  int
		asJSON bool
	)
	cmd := &cobra.Command{
		Use:   "search <query...>",
		Short: "List series whose titles match a query",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			query := strings.Join(args, " ")
			return ctx.withProvider(cmd, func(reqCtx context.Context, provider *anidb.Provider) error {
				results, err := provider.Search(reqCtx, query, limit)
				if err != nil {
					return err
				}
				if asJSON {
					if results == nil {
						results = []anidb.SearchResult{}
					}
					return writeJSON(cmd, results)
				}
				out := cmd.OutOrStdout()
				if len(results) == 0 {
					fmt.Fprintln(out, "No matching series")
					return nil
				}
				rows := make([][]string, 0, len(results))
				for _, r := range results {
					rows = append(rows, []string{
						r.SeriesID,
						valueOrDash(r.Name),
						r.MatchedTitle,
						language.DisplayName(r.Language),
						strconv.FormatFloat(r.Score, 'f', 3, 64),
					})
				}
				fmt.Fprintln(out, renderTable(
					[]string{"ID", "Name", "Matched", "Lang", "Score"},
					rows,
					[]columnAlignment{alignRight, alignLeft, alignLeft, alignLeft, alignRight},
				))
				return nil
			})
		},
	}
	cmd.Flags().IntVarP(&limit, "limit", "n", 10, "Maximum number of series to list")
	cmd.Flags().BoolVar(&asJSON, "json", false, "Output as JSON")
	return cmd
}

func newSeriesCommand(ctx *commandContext) *cobra.Command {
	var asJSON bool
	cmd := &cobra.Command{
		Use:   "series <id>",
		Short: "Show series metadata",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withProvider(cmd, func(reqCtx context.Context, provider *anidb.Provider) error {
				record, ok, err := provider.GetSeries(reqCtx, args[0])
				if err != nil {
					return err
				}
				if !ok {
					return fmt.Errorf("series %s not found", args[0])
				}
				if asJSON {
					return writeJSON(cmd, record)
				}
				fields := [][2]string{
					{"ID", record.SeriesID},
					{"Name", record.Name},
					{"Type", record.Type},
					{"Episodes", intString(record.EpisodeCount)},
					{"Premiered", dateString(record.PremiereDate)},
					{"Ended", dateString(record.EndDate)},
					{"Rating", ratingString(record.CommunityRating)},
					{"Genres", strings.Join(record.Genres, ", ")},
					{"Studios", strings.Join(record.Studios, ", ")},
				}
				fmt.Fprintln(cmd.OutOrStdout(), renderFields(fields))
				if record.Overview != "" {
					fmt.Fprintln(cmd.OutOrStdout())
					fmt.Fprintln(cmd.OutOrStdout(), record.Overview)
				}
				return nil
			})
		},
	}
	cmd.Flags().BoolVar(&asJSON, "json", false, "Output as JSON")
	return cmd
}
