package main

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"github.com/spf13/cobra"

	"shamal/internal/anidb"
	"shamal/internal/anidb/episodes"
	"shamal/internal/anidb/identity"
)

func newEpisodeCommand(ctx *commandContext) *cobra.Command {
	var asJSON bool
	cmd := &cobra.Command{
		Use:   "episode <identity>",
		Short: "Show episode metadata for an identity such as 23:5 or 23:S1-2",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := anidb.ParseIdentity(args[0])
			if err != nil {
				return err
			}
			if err := id.Validate(); err != nil {
				return err
			}
			return ctx.withProvider(cmd, func(reqCtx context.Context, provider *anidb.Provider) error {
				record, ok, err := provider.GetEpisodeByIdentity(reqCtx, id)
				if err != nil {
					return err
				}
				if !ok {
					return fmt.Errorf("episode %s not found", id)
				}
				if asJSON {
					return writeJSON(cmd, record)
				}
				fmt.Fprintln(cmd.OutOrStdout(), renderEpisode(id, record))
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

func renderEpisode(id identity.Identity, record episodes.Record) string {
	runtime := "-"
	if record.RuntimeTicks != nil {
		runtime = record.Runtime().Round(time.Minute).String()
	}
	season := "-"
	if record.ParentIndexNumber != nil {
		season = strconv.Itoa(*record.ParentIndexNumber)
	}
	index := "-"
	if record.IndexNumber != nil {
		index = strconv.Itoa(*record.IndexNumber)
	}
	return renderFields([][2]string{
		{"Identity", id.String()},
		{"Key", record.Key},
		{"Name", record.Name},
		{"Season", season},
		{"Episode", index},
		{"Runtime", runtime},
		{"Aired", dateString(record.PremiereDate)},
		{"Rating", ratingString(record.CommunityRating)},
	})
}

func intString(v int) string {
	if v <= 0 {
		return ""
	}
	return strconv.Itoa(v)
}

func dateString(t *time.Time) string {
	if t == nil {
		return ""
	}
	return t.Format(time.DateOnly)
}

func ratingString(v *float64) string {
	if v == nil {
		return ""
	}
	return strconv.FormatFloat(*v, 'f', 1, 64)
}
