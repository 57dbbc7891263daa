package extraction

import (
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/heartmarshall/macrolog-backend/internal/domain"
)

// SystemPrompt is the fixed instruction block sent with every extraction.
const SystemPrompt = `You maintain a food diary. You receive the current state of today's log,
a few previous days for context, and what the user just said.

Return the COMPLETE state of today's four meals (breakfast, lunch, dinner,
snacks) by calling the record_day tool. Your answer replaces today's log
wholesale, so:
- keep every existing item unless the user removes or changes it,
- add the new items the user describes to the meal they name, or to the meal
  that fits the current local time,
- apply corrections ("actually it was two eggs") to the existing item.

For every item give a short name, a human quantity ("2 slices", "1 cup") and
integer estimates of calories, protein, carbs and fat in grams. Keep
calories close to 4*protein + 4*carbs + 9*fat. Use typical portions when the
user gives none. Never invent items the user did not mention.`

const payloadTimeLayout = "2006-01-02 15:04"

// RenderPayload renders the user message of an extraction call: local time,
// today's log, up to priorDays previous days and the transcript.
func RenderPayload(req Request, priorDays int) string {
	loc := req.Location
	if loc == nil {
		loc = time.UTC
	}
	now := req.AsOf.In(loc)

	var b strings.Builder
	fmt.Fprintf(&b, "Current local time: %s (%s, %s)\n\n", now.Format(payloadTimeLayout), now.Weekday(), loc)

	fmt.Fprintf(&b, "Today's log (%s):\n", domain.LocalDate(req.AsOf, loc))
	writeDay(&b, req.Today)

	prior := recentDays(req.PriorDays, priorDays)
	if len(prior) > 0 {
		b.WriteString("\nPrevious days:\n")
		for _, d := range prior {
			fmt.Fprintf(&b, "%s:\n", d.Date)
			writeDay(&b, d)
		}
	}

	fmt.Fprintf(&b, "\nThe user said:\n<<<\n%s\n>>>\n", strings.TrimSpace(req.Transcript))
	return b.String()
}

// recentDays returns at most n days, newest first.
func recentDays(days []*domain.DailyLog, n int) []*domain.DailyLog {
	out := make([]*domain.DailyLog, 0, len(days))
	for _, d := range days {
		if d != nil {
			out = append(out, d)
		}
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].Date > out[j].Date })
	if len(out) > n {
		out = out[:n]
	}
	return out
}

func writeDay(b *strings.Builder, d *domain.DailyLog) {
	if d == nil || d.IsEmpty() {
		b.WriteString("  Empty\n")
		return
	}
	for _, m := range domain.Meals {
		fmt.Fprintf(b, "  %s: ", m)
		entries := d.Meals[m]
		if len(entries) == 0 {
			b.WriteString("-\n")
			continue
		}
		for i, e := range entries {
			if i > 0 {
				b.WriteString("; ")
			}
			writeItem(b, e.FoodItem)
		}
		b.WriteString("\n")
	}
	t := d.SumEntries()
	fmt.Fprintf(b, "  total: %d kcal, %dP/%dC/%dF\n", t.Calories, t.Protein, t.Carbs, t.Fat)
}

func writeItem(b *strings.Builder, item domain.FoodItem) {
	fmt.Fprintf(b, "%s (%s) %d kcal %dP/%dC/%dF",
		item.Name, item.Quantity, item.Calories, item.Protein, item.Carbs, item.Fat)
}
