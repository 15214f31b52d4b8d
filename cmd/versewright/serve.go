package main

import (
	"context"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/versewright/versewright/pkg/server"
	"github.com/versewright/versewright/pkg/sessions"
)

func newServeCmd(configPath *string) *cobra.Command {
	var listen string

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Start the HTTP API server",
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := newApp(*configPath)
			if err != nil {
				return err
			}
			defer func() { _ = a.close() }()

			store, err := sessions.New(a.cfg.DBPath)
			if err != nil {
				return err
			}
			defer func() { _ = store.Close() }()

			addr := a.cfg.Listen
			if listen != "" {
				addr = listen
			}
			srv := server.New(addr, a.svc, store, a.tracker, a.metrics, a.logger)

			ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()

			a.logger.Info("starting versewright server", "config", *configPath, "db", a.cfg.DBPath)
			return srv.ListenAndServe(ctx)
		},
	}

	cmd.Flags().StringVar(&listen, "listen", "", "listen address (overrides config)")
	return cmd
}
