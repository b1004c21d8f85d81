package main

import (
	"context"
	"errors"

	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"veritas/internal/platform/httpserver"
	"veritas/internal/platform/migrations"
)

func newServeCmd(c *cli) *cobra.Command {
	var migrate bool

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP API and the outbox relay",
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, log, err := c.load()
			if err != nil {
				return err
			}
			ctx := cmd.Context()

			a, err := newApp(ctx, cfg, log)
			if err != nil {
				return err
			}
			defer a.close()

			if migrate && a.db != nil {
				if err := migrations.Up(ctx, a.db, log); err != nil {
					return err
				}
			}

			log.InfoContext(ctx, "starting veritas",
				"addr", cfg.Server.Addr,
				"postgres", a.db != nil,
				"redis", a.redis != nil,
				"outbox_relay", a.relay != nil,
			)

			g, gctx := errgroup.WithContext(ctx)
			g.Go(func() error {
				return httpserver.Run(gctx, httpserver.New(cfg.Server.Addr, a.handler), cfg.Server.ShutdownTimeout, log)
			})
			if a.relay != nil {
				g.Go(func() error {
					if err := a.relay.Run(gctx); err != nil && !errors.Is(err, context.Canceled) {
						return err
					}
					return nil
				})
			}
			return g.Wait()
		},
	}

	cmd.Flags().BoolVar(&migrate, "migrate", false, "apply pending migrations before serving")
	return cmd
}
