// Package cli implements the macrolog command line.
package cli

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/spf13/cobra"

	"github.com/heartmarshall/macrolog-backend/internal/app"
	"github.com/heartmarshall/macrolog-backend/internal/config"
)

const rootLongDesc string = `Macrolog turns plain-language descriptions of meals into a daily food log.

Run the server using:
  macrolog serve             Run the HTTP API
  macrolog --memory serve    Run the HTTP API on in-memory storage

Manage data using:
  macrolog migrate up        Apply database migrations
  macrolog user create       Create a user and print an access token
  macrolog log "two eggs"    Log a meal description for a user
  macrolog day               Print a day of a user's log
  macrolog targets solve     Complete macro targets from partial values`

const rootShortDesc string = "Macrolog - natural-language food logging"

// globals carries the persistent flags and the options used to build the app.
type globals struct {
	memory bool
	debug  bool
	opts   []app.Option
}

// NewRootCmd builds the command tree. opts are passed to app.New by every
// command that needs the wired application.
func NewRootCmd(opts ...app.Option) *cobra.Command {
	g := &globals{opts: opts}

	cmd := &cobra.Command{
		Use:          "macrolog",
		Short:        rootShortDesc,
		Long:         rootLongDesc,
		SilenceUsage: true,
	}

	// Global flags
	cmd.PersistentFlags().BoolVar(&g.memory, "memory", false, "Use in-memory storage instead of PostgreSQL")
	cmd.PersistentFlags().BoolVarP(&g.debug, "debug", "d", false, "Enable debug logging")

	cmd.AddCommand(NewServeCmd(g))
	cmd.AddCommand(NewMigrateCmd(g))
	cmd.AddCommand(NewUserCmd(g))
	cmd.AddCommand(NewLogCmd(g))
	cmd.AddCommand(NewDayCmd(g))
	cmd.AddCommand(NewTargetsCmd())
	cmd.AddCommand(NewVersionCmd())

	return cmd
}

func (g *globals) loadConfig() (*config.Config, error) {
	var overrides []func(*config.Config)
	if g.memory {
		overrides = append(overrides, func(c *config.Config) {
			c.Database.Driver = config.DriverMemory
		})
	}
	if g.debug {
		overrides = append(overrides, func(c *config.Config) {
			c.Log.Level = "debug"
		})
	}
	return config.Load(overrides...)
}

// openApp loads the configuration and wires the application. The returned
// close function must be called once the command is done.
func (g *globals) openApp(ctx context.Context) (*app.App, func(), error) {
	cfg, err := g.loadConfig()
	if err != nil {
		return nil, nil, err
	}
	logger := app.NewLogger(cfg.Log)

	a, err := app.New(ctx, cfg, logger, g.opts...)
	if err != nil {
		return nil, nil, err
	}

	closeFn := func() {
		closeCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
		defer cancel()
		if err := a.Close(closeCtx); err != nil {
			logger.Error("close application", slog.String("error", err.Error()))
		}
	}
	return a, closeFn, nil
}

func requireFlag(name, value string) error {
	if value == "" {
		return fmt.Errorf("--%s is required", name)
	}
	return nil
}
