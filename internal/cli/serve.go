package cli

import (
	"context"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/heartmarshall/macrolog-backend/internal/app"
)

const serveLongDesc string = `Run the macrolog HTTP API.

Configuration is read from CONFIG_PATH (default ./config.yaml) and the
environment. The server stops gracefully on SIGINT or SIGTERM.`

const serveShortDesc string = "Run the HTTP API"

type serveCommander struct {
	g *globals
}

func NewServeCmd(g *globals) *cobra.Command {
	cmder := &serveCommander{g: g}

	cmd := &cobra.Command{
		Use:   "serve",
		Short: serveShortDesc,
		Long:  serveLongDesc,
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return cmder.run(cmd.Context())
		},
	}

	return cmd
}

func (c *serveCommander) run(ctx context.Context) error {
	cfg, err := c.g.loadConfig()
	if err != nil {
		return err
	}
	logger := app.NewLogger(cfg.Log)

	ctx, stop := signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	return app.Run(ctx, cfg, logger, c.g.opts...)
}
