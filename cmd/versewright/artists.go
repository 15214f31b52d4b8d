package main

import (
	"context"
	"fmt"
	"strings"

	"github.com/spf13/cobra"
)

func newArtistsCmd(configPath *string) *cobra.Command {
	var asJSON bool

	cmd := &cobra.Command{
		Use:   "artists",
		Short: "Research artists",
	}

	topCmd := &cobra.Command{
		Use:   "top <genre>",
		Short: "List the most influential current artists in a genre",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			genre := strings.Join(args, " ")
			return runApp(cmd, *configPath, func(ctx context.Context, a *app) error {
				list, err := a.svc.TopArtists(ctx, genre)
				if err != nil {
					return err
				}
				out := cmd.OutOrStdout()
				if asJSON {
					return printJSON(out, list)
				}
				for i, name := range list.Artists {
					fmt.Fprintf(out, "%d. %s\n", i+1, name)
				}
				printAttributions(out, list.Attributions)
				return nil
			})
		},
	}

	var genre string
	analyzeCmd := &cobra.Command{
		Use:   "analyze <artist>...",
		Short: "Briefly analyze each artist's style within a genre",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runApp(cmd, *configPath, func(ctx context.Context, a *app) error {
				res, err := a.svc.ArtistAnalyses(ctx, args, genre)
				if err != nil {
					return err
				}
				out := cmd.OutOrStdout()
				if asJSON {
					return printJSON(out, res)
				}
				printArtistAnalyses(out, res, shouldColorize(out))
				return nil
			})
		},
	}
	analyzeCmd.Flags().StringVarP(&genre, "genre", "g", "", "genre context (required)")
	_ = analyzeCmd.MarkFlagRequired("genre")

	var (
		similarGenre string
		file         string
	)
	similarCmd := &cobra.Command{
		Use:   "similar",
		Short: "Find artists whose lyrics resemble the given lyrics",
		RunE: func(cmd *cobra.Command, args []string) error {
			text, err := readLyrics(file, cmd.InOrStdin())
			if err != nil {
				return err
			}
			return runApp(cmd, *configPath, func(ctx context.Context, a *app) error {
				names, err := a.svc.SimilarArtists(ctx, text, similarGenre)
				if err != nil {
					return err
				}
				out := cmd.OutOrStdout()
				if asJSON {
					return printJSON(out, names)
				}
				for i, name := range names {
					fmt.Fprintf(out, "%d. %s\n", i+1, name)
				}
				return nil
			})
		},
	}
	similarCmd.Flags().StringVarP(&similarGenre, "genre", "g", "", "genre context (required)")
	similarCmd.Flags().StringVarP(&file, "file", "f", "", "lyrics file (default stdin)")
	_ = similarCmd.MarkFlagRequired("genre")

	styleCmd := &cobra.Command{
		Use:   "style <artist>",
		Short: "Research one artist's genre and lyrical style",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			artist := strings.Join(args, " ")
			return runApp(cmd, *configPath, func(ctx context.Context, a *app) error {
				res, err := a.svc.ArtistStyle(ctx, artist)
				if err != nil {
					return err
				}
				out := cmd.OutOrStdout()
				if asJSON {
					return printJSON(out, res)
				}
				colorize := shouldColorize(out)
				fmt.Fprintln(out, renderHeading(artist, colorize))
				fmt.Fprintf(out, "Genre: %s\n\n%s\n", res.Genre, res.Analysis)
				printAttributions(out, res.Attributions)
				return nil
			})
		},
	}

	cmd.PersistentFlags().BoolVar(&asJSON, "json", false, "print JSON")
	cmd.AddCommand(topCmd, analyzeCmd, similarCmd, styleCmd)
	return cmd
}
