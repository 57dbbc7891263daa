package cli

import (
	"context"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/heartmarshall/macrolog-backend/internal/domain"
)

const userCreateLongDesc string = `Create a user and print its ID together with a bearer token for the API.

Examples:
  macrolog user create --name alice --timezone Europe/Berlin`

type userCommander struct {
	g        *globals
	name     string
	timezone string
}

func NewUserCmd(g *globals) *cobra.Command {
	cmder := &userCommander{g: g}

	cmd := &cobra.Command{
		Use:   "user",
		Short: "Manage users",
	}

	create := &cobra.Command{
		Use:   "create",
		Short: "Create a user and issue an access token",
		Long:  userCreateLongDesc,
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return cmder.create(cmd.Context(), cmd.OutOrStdout())
		},
	}
	create.Flags().StringVarP(&cmder.name, "name", "n", "", "Display name of the user")
	create.Flags().StringVar(&cmder.timezone, "timezone", "UTC", "IANA timezone of the user")

	cmd.AddCommand(create)
	return cmd
}

func (c *userCommander) create(ctx context.Context, out io.Writer) error {
	name := strings.TrimSpace(c.name)
	if err := requireFlag("name", name); err != nil {
		return err
	}
	if _, err := time.LoadLocation(c.timezone); err != nil {
		return fmt.Errorf("unknown timezone %q", c.timezone)
	}

	a, closeFn, err := c.g.openApp(ctx)
	if err != nil {
		return err
	}
	defer closeFn()

	u, err := a.Users.Create(ctx, domain.User{Name: name, Timezone: c.timezone})
	if err != nil {
		return fmt.Errorf("create user: %w", err)
	}

	token, expires, err := a.Tokens.Issue(u.ID)
	if err != nil {
		return fmt.Errorf("issue token: %w", err)
	}

	fmt.Fprintf(out, "user:    %s\n", u.ID)
	fmt.Fprintf(out, "token:   %s\n", token)
	fmt.Fprintf(out, "expires: %s\n", expires.Format(time.RFC3339))
	return nil
}
