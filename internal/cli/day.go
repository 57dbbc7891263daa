package cli

import (
	"context"
	"io"

	"github.com/spf13/cobra"

	"github.com/heartmarshall/macrolog-backend/internal/domain"
)

type dayCommander struct {
	g *globals
	userFlags
}

func NewDayCmd(g *globals) *cobra.Command {
	cmder := &dayCommander{g: g}

	cmd := &cobra.Command{
		Use:   "day [YYYY-MM-DD]",
		Short: "Print a day of the log (default: today)",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			date := ""
			if len(args) == 1 {
				date = args[0]
			}
			return cmder.run(cmd.Context(), cmd.OutOrStdout(), date)
		},
	}
	cmder.register(cmd)

	return cmd
}

func (c *dayCommander) run(ctx context.Context, out io.Writer, date string) error {
	if date != "" {
		if _, err := domain.ParseDate(date); err != nil {
			return err
		}
	}

	a, closeFn, err := c.g.openApp(ctx)
	if err != nil {
		return err
	}
	defer closeFn()

	u, loc, err := c.resolve(ctx, c.g, a)
	if err != nil {
		return err
	}
	if date == "" {
		date = a.Journal.Today(loc)
	}

	day, err := a.Journal.GetDay(ctx, u.ID, date, loc)
	if err != nil {
		return err
	}
	return renderDay(out, day)
}
