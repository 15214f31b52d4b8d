package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

var version = "dev"

func main() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, renderError(err, shouldColorize(os.Stderr)))
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	var configPath string

	root := &cobra.Command{
		Use:           "versewright",
		Short:         "Versewright: genre analysis, artist research and Suno formatting for song lyrics",
		Version:       version,
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.PersistentFlags().StringVarP(&configPath, "config", "c", "versewright.yaml", "path to config file")

	root.AddCommand(
		newServeCmd(&configPath),
		newMCPCmd(&configPath),
		newAnalyzeCmd(&configPath),
		newPipelineCmd(&configPath),
		newArtistsCmd(&configPath),
		newImproveCmd(&configPath),
		newFormatCmd(&configPath),
		newStyleCmd(&configPath),
		newAdjustCmd(&configPath),
		newSuggestCmd(&configPath),
		newCacheCmd(&configPath),
		newSessionsCmd(&configPath),
		newStatsCmd(&configPath),
	)
	return root
}
