package cli

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"github.com/heartmarshall/macrolog-backend/internal/app"
	"github.com/heartmarshall/macrolog-backend/internal/domain"
	"github.com/heartmarshall/macrolog-backend/internal/service/capture"
	"github.com/heartmarshall/macrolog-backend/internal/service/reconcile"
)

const logLongDesc string = `Log a plain-language description of what was eaten.

The description is reconciled against the user's log for today: new foods are
added, corrections replace earlier entries and removals drop them. The day is
printed once the log is saved.

With --memory and no --user a throwaway user is created for the run.

Examples:
  macrolog log --user 6f1c... "two eggs and toast for breakfast"
  macrolog --memory log "actually it was three eggs"`

// userFlags resolves the user and timezone shared by log and day.
type userFlags struct {
	userID   string
	timezone string
}

func (f *userFlags) register(cmd *cobra.Command) {
	cmd.Flags().StringVarP(&f.userID, "user", "u", "", "ID of the user")
	cmd.Flags().StringVar(&f.timezone, "timezone", "", "IANA timezone deciding which day is today (default: the user's)")
}

// resolve returns the user and the timezone to use. In memory mode a missing
// user is created on the fly.
func (f *userFlags) resolve(ctx context.Context, g *globals, a *app.App) (*domain.User, *time.Location, error) {
	var (
		u   *domain.User
		err error
	)
	switch {
	case f.userID != "":
		id, perr := uuid.Parse(f.userID)
		if perr != nil {
			return nil, nil, fmt.Errorf("invalid --user: %w", perr)
		}
		u, err = a.Users.GetByID(ctx, id)
		if errors.Is(err, domain.ErrNotFound) {
			return nil, nil, fmt.Errorf("user %s does not exist", id)
		}
	case g.memory:
		u, err = a.Users.Create(ctx, domain.User{Name: "cli", Timezone: f.timezone})
	default:
		return nil, nil, requireFlag("user", "")
	}
	if err != nil {
		return nil, nil, err
	}

	tz := f.timezone
	if tz == "" {
		tz = u.Timezone
	}
	loc, err := time.LoadLocation(tz)
	if err != nil {
		return nil, nil, fmt.Errorf("unknown timezone %q", tz)
	}
	return u, loc, nil
}

type logCommander struct {
	g *globals
	userFlags
}

func NewLogCmd(g *globals) *cobra.Command {
	cmder := &logCommander{g: g}

	cmd := &cobra.Command{
		Use:   "log <description>",
		Short: "Log a meal description",
		Long:  logLongDesc,
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return cmder.run(cmd.Context(), cmd.OutOrStdout(), strings.Join(args, " "))
		},
	}
	cmder.register(cmd)

	return cmd
}

func (c *logCommander) run(ctx context.Context, out io.Writer, text string) error {
	a, closeFn, err := c.g.openApp(ctx)
	if err != nil {
		return err
	}
	defer closeFn()

	u, loc, err := c.resolve(ctx, c.g, a)
	if err != nil {
		return err
	}

	outcome, err := a.Orchestrator.Submit(ctx, reconcile.SubmitInput{
		UserID:     u.ID,
		Transcript: text,
		Source:     capture.SourceTyped,
		Location:   loc,
	})
	if err != nil {
		var ue *domain.UserError
		if errors.As(err, &ue) {
			return fmt.Errorf("%s: %s", ue.Kind, ue.Message)
		}
		return err
	}

	fmt.Fprintf(out, "logged %d -> %d items (%s)\n\n", outcome.ItemsBefore, outcome.ItemsAfter, formatDelta(outcome.Delta()))
	if outcome.Day != nil {
		return renderDay(out, outcome.Day)
	}
	return nil
}
