package main

import (
	"context"
	"fmt"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"

	"github.com/versewright/versewright/pkg/config"
	"github.com/versewright/versewright/pkg/models"
	"github.com/versewright/versewright/pkg/sessions"
)

func openSessions(configPath string) (*sessions.Store, error) {
	cfg, err := config.LoadOrDefault(configPath)
	if err != nil {
		return nil, err
	}
	return sessions.New(cfg.DBPath)
}

func newSessionsCmd(configPath *string) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "sessions",
		Short: "Manage saved lyric sessions",
	}

	listCmd := &cobra.Command{
		Use:   "list",
		Short: "List saved sessions, newest first",
		RunE: func(cmd *cobra.Command, args []string) error {
			store, err := openSessions(*configPath)
			if err != nil {
				return err
			}
			defer func() { _ = store.Close() }()

			list, err := store.List(cmd.Context())
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			if len(list) == 0 {
				fmt.Fprintln(out, "No saved sessions.")
				return nil
			}
			rows := make([][]string, 0, len(list))
			for _, s := range list {
				genre := "-"
				if s.Analysis != nil && s.Analysis.Genre != "" {
					genre = s.Analysis.Genre
				}
				rows = append(rows, []string{s.ID, s.Title, genre, humanize.Time(s.CreatedAt)})
			}
			fmt.Fprintln(out, renderTable([]string{"ID", "Title", "Genre", "Saved"}, rows, nil))
			return nil
		},
	}

	showCmd := &cobra.Command{
		Use:   "show <id>",
		Short: "Print a saved session as JSON",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			store, err := openSessions(*configPath)
			if err != nil {
				return err
			}
			defer func() { _ = store.Close() }()

			s, err := store.Get(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			return printJSON(cmd.OutOrStdout(), s)
		},
	}

	var (
		title       string
		file        string
		runPipeline bool
	)
	saveCmd := &cobra.Command{
		Use:   "save",
		Short: "Save lyrics, optionally with full pipeline results",
		RunE: func(cmd *cobra.Command, args []string) error {
			text, err := readLyrics(file, cmd.InOrStdin())
			if err != nil {
				return err
			}
			sess := models.SavedSession{Title: title, Lyrics: text}
			if runPipeline {
				err := runApp(cmd, *configPath, func(ctx context.Context, a *app) error {
					res, err := a.svc.Pipeline(ctx, text)
					if err != nil {
						return err
					}
					sess.Analysis = &res
					return nil
				})
				if err != nil {
					return err
				}
			}

			store, err := openSessions(*configPath)
			if err != nil {
				return err
			}
			defer func() { _ = store.Close() }()

			id, err := store.Save(cmd.Context(), sess)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Saved session %s.\n", id)
			return nil
		},
	}
	saveCmd.Flags().StringVarP(&title, "title", "t", "", "session title (required)")
	saveCmd.Flags().StringVarP(&file, "file", "f", "", "lyrics file (default stdin)")
	saveCmd.Flags().BoolVar(&runPipeline, "pipeline", false, "run the full pipeline and store its results")
	_ = saveCmd.MarkFlagRequired("title")

	deleteCmd := &cobra.Command{
		Use:   "delete <id>",
		Short: "Delete a saved session",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			store, err := openSessions(*configPath)
			if err != nil {
				return err
			}
			defer func() { _ = store.Close() }()

			if err := store.Delete(cmd.Context(), args[0]); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Deleted session %s.\n", args[0])
			return nil
		},
	}

	cmd.AddCommand(listCmd, showCmd, saveCmd, deleteCmd)
	return cmd
}
