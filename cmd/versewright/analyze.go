package main

import (
	"context"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
)

// runApp wires the app and runs fn with a context cancelled on SIGINT/SIGTERM.
func runApp(cmd *cobra.Command, configPath string, fn func(ctx context.Context, a *app) error) error {
	a, err := newApp(configPath)
	if err != nil {
		return err
	}
	defer func() { _ = a.close() }()

	ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()
	return fn(ctx, a)
}

func newAnalyzeCmd(configPath *string) *cobra.Command {
	var (
		file     string
		complete bool
		asJSON   bool
	)

	cmd := &cobra.Command{
		Use:   "analyze",
		Short: "Detect genre, weak spots and top artists for lyrics",
		RunE: func(cmd *cobra.Command, args []string) error {
			text, err := readLyrics(file, cmd.InOrStdin())
			if err != nil {
				return err
			}
			return runApp(cmd, *configPath, func(ctx context.Context, a *app) error {
				out := cmd.OutOrStdout()
				colorize := shouldColorize(out)
				if complete {
					res, err := a.svc.CompleteAnalysis(ctx, text)
					if err != nil {
						return err
					}
					if asJSON {
						return printJSON(out, res)
					}
					printAnalysis(out, res.ComprehensiveAnalysis, colorize)
					printArtistAnalyses(out, res.ArtistAnalyses, colorize)
					return nil
				}

				res, err := a.svc.ComprehensiveAnalysis(ctx, text)
				if err != nil {
					return err
				}
				if asJSON {
					return printJSON(out, res)
				}
				printAnalysis(out, res, colorize)
				return nil
			})
		},
	}

	cmd.Flags().StringVarP(&file, "file", "f", "", "lyrics file (default stdin)")
	cmd.Flags().BoolVar(&complete, "complete", false, "also analyze each top artist")
	cmd.Flags().BoolVar(&asJSON, "json", false, "print JSON")
	return cmd
}

func newPipelineCmd(configPath *string) *cobra.Command {
	var (
		file   string
		asJSON bool
	)

	cmd := &cobra.Command{
		Use:   "pipeline",
		Short: "Analyze, rewrite and format lyrics for Suno in one run",
		RunE: func(cmd *cobra.Command, args []string) error {
			text, err := readLyrics(file, cmd.InOrStdin())
			if err != nil {
				return err
			}
			return runApp(cmd, *configPath, func(ctx context.Context, a *app) error {
				res, err := a.svc.Pipeline(ctx, text)
				if err != nil {
					return err
				}
				out := cmd.OutOrStdout()
				if asJSON {
					return printJSON(out, res)
				}
				printResults(out, res, shouldColorize(out))
				return nil
			})
		},
	}

	cmd.Flags().StringVarP(&file, "file", "f", "", "lyrics file (default stdin)")
	cmd.Flags().BoolVar(&asJSON, "json", false, "print JSON")
	return cmd
}
