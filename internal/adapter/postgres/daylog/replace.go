package daylog

import (
	"context"
	"fmt"

	"github.com/google/uuid"

	postgres "github.com/heartmarshall/macrolog-backend/internal/adapter/postgres"
	"github.com/heartmarshall/macrolog-backend/internal/domain"
)

const lockDaySQL = `
SELECT log_date::text FROM daily_logs
WHERE id = $1 AND user_id = $2
FOR UPDATE`

const deleteDayEntriesSQL = `DELETE FROM food_entries WHERE daily_log_id = $1`

// recomputeTotalsSQL sets the day totals to the sum of its entries.
const recomputeTotalsSQL = `
UPDATE daily_logs AS d SET
    total_calories = s.calories,
    total_protein  = s.protein,
    total_carbs    = s.carbs,
    total_fat      = s.fat,
    updated_at     = now()
FROM (
    SELECT COALESCE(SUM(calories), 0) AS calories,
           COALESCE(SUM(protein), 0)  AS protein,
           COALESCE(SUM(carbs), 0)    AS carbs,
           COALESCE(SUM(fat), 0)      AS fat
    FROM food_entries
    WHERE daily_log_id = $1
) AS s
WHERE d.id = $1`

// ReplaceDayEntries makes result the complete content of the day in one
// transaction: the day row is locked, every entry is deleted, all items of
// the four meals are inserted in order and the totals are recomputed.
// It returns the stored day.
func (r *Repo) ReplaceDayEntries(ctx context.Context, userID, dayID uuid.UUID, result *domain.ExtractionResult) (*domain.DailyLog, error) {
	if result == nil {
		return nil, domain.NewValidationError("result", "required")
	}

	var day *domain.DailyLog
	err := r.tx.RunInTx(ctx, func(ctx context.Context) error {
		q := postgres.QuerierFromCtx(ctx, r.db)

		var date string
		if err := q.QueryRow(ctx, lockDaySQL, dayID, userID).Scan(&date); err != nil {
			return postgres.MapError(err, "daily_log", dayID)
		}

		if _, err := q.Exec(ctx, deleteDayEntriesSQL, dayID); err != nil {
			return fmt.Errorf("delete entries: %w", postgres.MapError(err, "daily_log", dayID))
		}

		if err := insertItems(ctx, q, userID, dayID, result); err != nil {
			return err
		}

		if err := recomputeTotals(ctx, q, dayID); err != nil {
			return err
		}

		var err error
		day, err = r.GetDay(ctx, userID, date)
		return err
	})
	if err != nil {
		return nil, persistErr("replace_day_entries", err)
	}
	return day, nil
}

// insertItems writes all items of result with one multi-row INSERT.
// Positions restart at 0 in every meal.
func insertItems(ctx context.Context, q postgres.Querier, userID, dayID uuid.UUID, result *domain.ExtractionResult) error {
	if result.ItemCount() == 0 {
		return nil
	}

	ins := psql.Insert("food_entries").
		Columns("daily_log_id", "user_id", "meal", "position", "name", "quantity", "calories", "protein", "carbs", "fat")
	for _, meal := range domain.Meals {
		for pos, item := range result.Items(meal) {
			ins = ins.Values(dayID, userID, string(meal), pos,
				item.Name, item.Quantity, item.Calories, item.Protein, item.Carbs, item.Fat)
		}
	}

	query, args, err := ins.ToSql()
	if err != nil {
		return fmt.Errorf("build insert entries query: %w", err)
	}
	if _, err := q.Exec(ctx, query, args...); err != nil {
		return fmt.Errorf("insert entries: %w", postgres.MapError(err, "daily_log", dayID))
	}
	return nil
}

func recomputeTotals(ctx context.Context, q postgres.Querier, dayID uuid.UUID) error {
	if _, err := q.Exec(ctx, recomputeTotalsSQL, dayID); err != nil {
		return fmt.Errorf("recompute totals: %w", postgres.MapError(err, "daily_log", dayID))
	}
	return nil
}
