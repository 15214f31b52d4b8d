package main

import (
	"context"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/versewright/versewright/pkg/lyrics"
	"github.com/versewright/versewright/pkg/models"
)

func newImproveCmd(configPath *string) *cobra.Command {
	var (
		file      string
		genre     string
		weakSpots []string
		notes     []string
	)

	cmd := &cobra.Command{
		Use:   "improve",
		Short: "Rewrite lyrics for a genre",
		Long: "Rewrite lyrics for a genre, fixing the given weak spots and following artist notes.\n" +
			"Without --genre the lyrics are analyzed first and the detected genre and weak spots are used.",
		RunE: func(cmd *cobra.Command, args []string) error {
			text, err := readLyrics(file, cmd.InOrStdin())
			if err != nil {
				return err
			}
			return runApp(cmd, *configPath, func(ctx context.Context, a *app) error {
				g, spots := genre, weakSpots
				if strings.TrimSpace(g) == "" {
					analysis, err := a.svc.ComprehensiveAnalysis(ctx, text)
					if err != nil {
						return err
					}
					g = analysis.Genre
					if len(spots) == 0 {
						spots = analysis.WeakSpotTexts()
					}
				}
				improved, err := a.svc.ImprovedLyrics(ctx, text, spots, g, notes)
				if err != nil {
					return err
				}
				fmt.Fprintln(cmd.OutOrStdout(), improved)
				return nil
			})
		},
	}

	cmd.Flags().StringVarP(&file, "file", "f", "", "lyrics file (default stdin)")
	cmd.Flags().StringVarP(&genre, "genre", "g", "", "target genre (default: detected)")
	cmd.Flags().StringArrayVar(&weakSpots, "weak-spot", nil, "passage to fix (repeatable)")
	cmd.Flags().StringArrayVar(&notes, "note", nil, "artist style note (repeatable, first three used)")
	return cmd
}

func newFormatCmd(configPath *string) *cobra.Command {
	var (
		file  string
		genre string
		plain bool
	)

	cmd := &cobra.Command{
		Use:   "format",
		Short: "Format lyrics with Suno.ai structure tags",
		RunE: func(cmd *cobra.Command, args []string) error {
			text, err := readLyrics(file, cmd.InOrStdin())
			if err != nil {
				return err
			}
			return runApp(cmd, *configPath, func(ctx context.Context, a *app) error {
				formatted, err := a.svc.SunoFormattedLyrics(ctx, text, genre)
				if err != nil {
					return err
				}
				if plain {
					formatted = lyrics.StripTags(formatted)
				}
				fmt.Fprintln(cmd.OutOrStdout(), formatted)
				return nil
			})
		},
	}

	cmd.Flags().StringVarP(&file, "file", "f", "", "lyrics file (default stdin)")
	cmd.Flags().StringVarP(&genre, "genre", "g", "", "target genre (required)")
	cmd.Flags().BoolVar(&plain, "plain", false, "strip the [tags] from the output")
	_ = cmd.MarkFlagRequired("genre")
	return cmd
}

func newStyleCmd(configPath *string) *cobra.Command {
	return &cobra.Command{
		Use:   "style <genre>",
		Short: "Write a Suno \"Style of Music\" description",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			genre := strings.Join(args, " ")
			return runApp(cmd, *configPath, func(ctx context.Context, a *app) error {
				style, err := a.svc.StyleOfMusic(ctx, genre)
				if err != nil {
					return err
				}
				fmt.Fprintln(cmd.OutOrStdout(), style)
				return nil
			})
		},
	}
}

func newAdjustCmd(configPath *string) *cobra.Command {
	var (
		file   string
		genre  string
		artist string
		notes  string
		suno   bool
	)

	cmd := &cobra.Command{
		Use:   "adjust",
		Short: "Rewrite lyrics in the style of an artist",
		Long: "Rewrite lyrics in the style of an artist. Without --notes the artist's style is\n" +
			"researched first; without --genre the researched genre is used.",
		RunE: func(cmd *cobra.Command, args []string) error {
			text, err := readLyrics(file, cmd.InOrStdin())
			if err != nil {
				return err
			}
			return runApp(cmd, *configPath, func(ctx context.Context, a *app) error {
				g, n := genre, notes
				if strings.TrimSpace(n) == "" {
					style, err := a.svc.ArtistStyle(ctx, artist)
					if err != nil {
						return err
					}
					n = style.Analysis
					if strings.TrimSpace(g) == "" {
						g = style.Genre
					}
				}
				adjusted, err := a.svc.AdjustLyrics(ctx, text, g, artist, n)
				if err != nil {
					return err
				}
				if suno {
					adjusted, err = a.svc.SunoFormattedLyrics(ctx, adjusted, g)
					if err != nil {
						return err
					}
				}
				fmt.Fprintln(cmd.OutOrStdout(), adjusted)
				return nil
			})
		},
	}

	cmd.Flags().StringVarP(&file, "file", "f", "", "lyrics file (default stdin)")
	cmd.Flags().StringVarP(&genre, "genre", "g", "", "target genre (default: the artist's genre)")
	cmd.Flags().StringVarP(&artist, "artist", "a", "", "artist to imitate (required)")
	cmd.Flags().StringVar(&notes, "notes", "", "known notes on the artist's style")
	cmd.Flags().BoolVar(&suno, "suno", false, "also format the result for Suno")
	_ = cmd.MarkFlagRequired("artist")
	return cmd
}

func newSuggestCmd(configPath *string) *cobra.Command {
	var (
		file        string
		passage     string
		description string
		apply       int
	)

	cmd := &cobra.Command{
		Use:   "suggest",
		Short: "Propose replacements for one weak passage",
		RunE: func(cmd *cobra.Command, args []string) error {
			text, err := readLyrics(file, cmd.InOrStdin())
			if err != nil {
				return err
			}
			spot := models.WeakSpot{Text: passage, Description: description, StartIndex: -1, EndIndex: -1}
			if i := strings.Index(text, passage); passage != "" && i >= 0 {
				spot.StartIndex, spot.EndIndex = i, i+len(passage)
			}
			return runApp(cmd, *configPath, func(ctx context.Context, a *app) error {
				suggestions, err := a.svc.ImprovementSuggestions(ctx, text, spot)
				if err != nil {
					return err
				}
				out := cmd.OutOrStdout()
				if apply > 0 {
					if apply > len(suggestions) {
						return fmt.Errorf("--apply %d: only %d suggestions returned", apply, len(suggestions))
					}
					updated, err := lyrics.ApplySuggestion(text, spot, suggestions[apply-1])
					if err != nil {
						return err
					}
					fmt.Fprintln(out, updated)
					return nil
				}
				for i, s := range suggestions {
					fmt.Fprintf(out, "%d. %s\n", i+1, s)
				}
				return nil
			})
		},
	}

	cmd.Flags().StringVarP(&file, "file", "f", "", "lyrics file (default stdin)")
	cmd.Flags().StringVar(&passage, "passage", "", "weak passage, copied verbatim from the lyrics (required)")
	cmd.Flags().StringVar(&description, "description", "", "what is wrong with the passage")
	cmd.Flags().IntVar(&apply, "apply", 0, "print the lyrics with suggestion N substituted")
	_ = cmd.MarkFlagRequired("passage")
	return cmd
}
