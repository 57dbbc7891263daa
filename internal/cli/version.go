package cli

import (
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"github.com/heartmarshall/macrolog-backend/internal/app"
)

type versionCommander struct{}

func NewVersionCmd() *cobra.Command {
	cmder := &versionCommander{}

	cmd := &cobra.Command{
		Use:   "version",
		Short: "displays version",
		Long:  "displays the version of this CLI",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return cmder.run(cmd.OutOrStdout())
		},
	}

	return cmd
}

func (c *versionCommander) run(w io.Writer) error {
	fmt.Fprintf(w, "Version: %s\nSha: %s\nBuilt at: %s\n", app.Version, app.Commit, app.BuildTime)
	return nil
}
