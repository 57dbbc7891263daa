package cli

import (
	"fmt"
	"io"
	"text/tabwriter"

	"github.com/heartmarshall/macrolog-backend/internal/domain"
)

// renderDay prints the meals of a day followed by its totals and targets.
func renderDay(w io.Writer, day *domain.DailyLog) error {
	fmt.Fprintf(w, "%s\n\n", day.Date)

	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "MEAL\tFOOD\tQUANTITY\tKCAL\tP\tC\tF")
	for _, m := range domain.Meals {
		for _, e := range day.Meals[m] {
			fmt.Fprintf(tw, "%s\t%s\t%s\t%d\t%d\t%d\t%d\n",
				m, e.Name, e.Quantity, e.Calories, e.Protein, e.Carbs, e.Fat)
		}
	}
	t := day.Totals
	fmt.Fprintf(tw, "total\t\t\t%d\t%d\t%d\t%d\n", t.Calories, t.Protein, t.Carbs, t.Fat)
	if day.Targets != nil {
		g := day.Targets
		fmt.Fprintf(tw, "target\t\t\t%d\t%d\t%d\t%d\n", g.Calories, g.Protein, g.Carbs, g.Fat)
	}
	return tw.Flush()
}

func formatDelta(d domain.MacroTotals) string {
	return fmt.Sprintf("%+d kcal, %+dg protein, %+dg carbs, %+dg fat", d.Calories, d.Protein, d.Carbs, d.Fat)
}
