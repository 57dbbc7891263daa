package cli

import (
	"errors"
	"fmt"
	"io"

	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"github.com/heartmarshall/macrolog-backend/internal/service/targets"
)

const targetsSolveLongDesc string = `Complete a set of daily macro targets.

Give any three of calories, protein, carbs and fat and the fourth is derived
from 4 kcal per gram of protein and carbs and 9 kcal per gram of fat.

Examples:
  macrolog targets solve --protein 150 --carbs 200 --fat 65
  macrolog targets solve --calories 2000 --protein 150 --fat 60`

type targetsCommander struct {
	values map[targets.Field]*string
}

func NewTargetsCmd() *cobra.Command {
	cmder := &targetsCommander{values: make(map[targets.Field]*string, len(targets.Fields))}

	cmd := &cobra.Command{
		Use:   "targets",
		Short: "Work with macro targets",
	}

	solve := &cobra.Command{
		Use:   "solve",
		Short: "Derive the missing macro target",
		Long:  targetsSolveLongDesc,
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			edits := make(map[targets.Field]string)
			for _, f := range targets.Fields {
				if cmd.Flags().Changed(string(f)) {
					edits[f] = *cmder.values[f]
				}
			}
			return cmder.solve(cmd.OutOrStdout(), edits)
		},
	}
	for _, f := range targets.Fields {
		cmder.values[f] = solve.Flags().String(string(f), "", fmt.Sprintf("Daily %s target", f))
	}

	cmd.AddCommand(solve)
	return cmd
}

func (c *targetsCommander) solve(out io.Writer, edits map[targets.Field]string) error {
	if len(edits) == 0 {
		return errors.New("give at least three of --calories, --protein, --carbs, --fat")
	}

	form := targets.NewForm()
	form.SetMany(edits)

	for _, f := range targets.Fields {
		v := form.Value(f)
		if v == "" {
			v = "-"
		}
		mark := ""
		if form.IsDerived(f) {
			mark = " (derived)"
		}
		fmt.Fprintf(out, "%-9s %s%s\n", string(f)+":", v, mark)
	}

	_, err := form.Targets(uuid.Nil)
	return err
}
