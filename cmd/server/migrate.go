package main

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"

	"github.com/spf13/cobra"

	"veritas/internal/platform/migrations"
	"veritas/internal/platform/postgres"
)

func newMigrateCmd(c *cli) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "migrate",
		Short: "Manage the database schema",
	}

	run := func(fn func(ctx context.Context, db *sql.DB, log *slog.Logger) error) func(*cobra.Command, []string) error {
		return func(cmd *cobra.Command, _ []string) error {
			cfg, log, err := c.load()
			if err != nil {
				return err
			}
			ctx := cmd.Context()
			db, err := postgres.Open(ctx, cfg.Postgres)
			if err != nil {
				return err
			}
			if db == nil {
				return errors.New("postgres.dsn is required to run migrations")
			}
			defer db.Close()
			return fn(ctx, db, log)
		}
	}

	cmd.AddCommand(
		&cobra.Command{
			Use:   "up",
			Short: "Apply all pending migrations",
			RunE:  run(migrations.Up),
		},
		&cobra.Command{
			Use:   "down",
			Short: "Roll back the most recent migration",
			RunE:  run(migrations.Down),
		},
		&cobra.Command{
			Use:   "status",
			Short: "Print the number of pending migrations",
			RunE: run(func(ctx context.Context, db *sql.DB, _ *slog.Logger) error {
				n, err := migrations.Pending(ctx, db)
				if err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "%d pending migration(s)\n", n)
				return nil
			}),
		},
	)
	return cmd
}
