package main

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"shamal/internal/anidb"
	"shamal/internal/anidb/identity"
)

type identityJSON struct {
	Identity         string `json:"identity"`
	SeriesID         string `json:"series_id"`
	EpisodeNumber    int    `json:"episode_number"`
	EpisodeNumberEnd *int   `json:"episode_number_end,omitempty"`
	EpisodeType      string `json:"episode_type,omitempty"`
	Episodes         []int  `json:"episodes"`
}

func newIdentityCommand() *cobra.Command {
	identityCmd := &cobra.Command{
		Use:         "identity",
		Short:       "Encode and decode episode identities",
		Annotations: map[string]string{"skipConfigLoad": "true"},
	}
	identityCmd.AddCommand(newIdentityParseCommand())
	identityCmd.AddCommand(newIdentityFormatCommand())
	return identityCmd
}

func newIdentityParseCommand() *cobra.Command {
	var asJSON bool
	cmd := &cobra.Command{
		Use:   "parse <identity>",
		Short: "Decode an identity such as 123:S4-6",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := anidb.ParseIdentity(args[0])
			if err != nil {
				return err
			}
			if asJSON {
				numbers, err := id.Episodes()
				if err != nil {
					return err
				}
				return writeJSON(cmd, identityJSON{
					Identity:         anidb.FormatIdentity(id),
					SeriesID:         id.SeriesID,
					EpisodeNumber:    id.EpisodeNumber,
					EpisodeNumberEnd: id.EpisodeNumberEnd,
					EpisodeType:      id.EpisodeType,
					Episodes:         numbers,
				})
			}
			kind := "regular"
			if id.IsSpecial() {
				kind = "special"
			}
			end := ""
			if id.EpisodeNumberEnd != nil {
				end = fmt.Sprint(*id.EpisodeNumberEnd)
			}
			fmt.Fprintln(cmd.OutOrStdout(), renderFields([][2]string{
				{"Identity", anidb.FormatIdentity(id)},
				{"Series", id.SeriesID},
				{"Type", kind},
				{"Episode", fmt.Sprint(id.EpisodeNumber)},
				{"Episode end", end},
			}))
			if err := id.Validate(); err != nil {
				fmt.Fprintf(cmd.OutOrStdout(), "Warning: %v\n", err)
			}
			return nil
		},
	}
	cmd.Flags().BoolVar(&asJSON, "json", false, "Output as JSON")
	return cmd
}

func newIdentityFormatCommand() *cobra.Command {
	var (
		seriesID string
		episode  int
		end      int
		special  bool
	)
	cmd := &cobra.Command{
		Use:   "format",
		Short: "Encode an identity from its parts",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			id := identity.Identity{
				SeriesID:      strings.TrimSpace(seriesID),
				EpisodeNumber: episode,
			}
			if special {
				id.EpisodeType = identity.TypeSpecial
			}
			if cmd.Flags().Changed("end") {
				id.EpisodeNumberEnd = &end
			}
			if err := id.Validate(); err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), anidb.FormatIdentity(id))
			return nil
		},
	}
	cmd.Flags().StringVarP(&seriesID, "series", "s", "", "AniDB series id")
	cmd.Flags().IntVarP(&episode, "episode", "e", 0, "First episode number")
	cmd.Flags().IntVar(&end, "end", 0, "Last episode number of a range")
	cmd.Flags().BoolVar(&special, "special", false, "Address special episodes")
	_ = cmd.MarkFlagRequired("series")
	_ = cmd.MarkFlagRequired("episode")
	return cmd
}
