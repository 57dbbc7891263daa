package cli

import (
	"context"
	"errors"
	"fmt"
	"io"
	"slices"

	"github.com/spf13/cobra"

	"github.com/heartmarshall/macrolog-backend/internal/adapter/postgres"
	"github.com/heartmarshall/macrolog-backend/internal/config"
)

const migrateShortDesc string = "Manage PostgreSQL schema migrations"

type migrateCommander struct {
	g   *globals
	out io.Writer
}

func NewMigrateCmd(g *globals) *cobra.Command {
	cmder := &migrateCommander{g: g}

	cmd := &cobra.Command{
		Use:   "migrate",
		Short: migrateShortDesc,
	}

	cmd.AddCommand(&cobra.Command{
		Use:   "up",
		Short: "Apply all pending migrations",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cmder.out = cmd.OutOrStdout()
			return cmder.up(cmd.Context())
		},
	})
	cmd.AddCommand(&cobra.Command{
		Use:   "status",
		Short: "Show which migrations are applied",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cmder.out = cmd.OutOrStdout()
			return cmder.status(cmd.Context())
		},
	})

	return cmd
}

func (c *migrateCommander) dsn() (string, error) {
	cfg, err := c.g.loadConfig()
	if err != nil {
		return "", err
	}
	if cfg.Database.Driver != config.DriverPostgres {
		return "", errors.New("migrations only apply to the postgres driver")
	}
	return cfg.Database.DSN, nil
}

func (c *migrateCommander) up(ctx context.Context) error {
	dsn, err := c.dsn()
	if err != nil {
		return err
	}

	applied, err := postgres.MigrateUp(ctx, dsn)
	if err != nil {
		return err
	}
	if len(applied) == 0 {
		fmt.Fprintln(c.out, "database is up to date")
		return nil
	}
	for _, v := range applied {
		fmt.Fprintf(c.out, "applied %05d\n", v)
	}
	return nil
}

func (c *migrateCommander) status(ctx context.Context) error {
	dsn, err := c.dsn()
	if err != nil {
		return err
	}

	status, err := postgres.MigrationStatus(ctx, dsn)
	if err != nil {
		return err
	}

	versions := make([]int64, 0, len(status))
	for v := range status {
		versions = append(versions, v)
	}
	slices.Sort(versions)

	for _, v := range versions {
		state := "pending"
		if status[v] {
			state = "applied"
		}
		fmt.Fprintf(c.out, "%05d  %s\n", v, state)
	}
	return nil
}
