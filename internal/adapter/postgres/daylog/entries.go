package daylog

import (
	"context"
	"fmt"
	"strings"

	"github.com/Masterminds/squirrel"
	"github.com/georgysavva/scany/v2/pgxscan"
	"github.com/google/uuid"

	postgres "github.com/heartmarshall/macrolog-backend/internal/adapter/postgres"
	"github.com/heartmarshall/macrolog-backend/internal/domain"
)

const lockDayByDateSQL = `
SELECT id FROM daily_logs
WHERE user_id = $1 AND log_date = $2
FOR UPDATE`

// lockEntryDaySQL locks the day that owns an entry of the user.
const lockEntryDaySQL = `
SELECT d.id, d.log_date::text, e.meal
FROM food_entries e
JOIN daily_logs d ON d.id = e.daily_log_id
WHERE e.id = $1 AND e.user_id = $2
FOR UPDATE OF d`

const insertEntrySQL = `
INSERT INTO food_entries (daily_log_id, user_id, meal, position, name, quantity, calories, protein, carbs, fat)
SELECT $1, $2, $3, COALESCE(MAX(position) + 1, 0), $4, $5, $6, $7, $8, $9
FROM food_entries
WHERE daily_log_id = $1 AND meal = $3
RETURNING id, daily_log_id, user_id, meal, position, name, quantity, calories, protein, carbs, fat, created_at`

const deleteEntrySQL = `DELETE FROM food_entries WHERE id = $1 AND user_id = $2`

// nextPositionExpr is the position after the last entry of a meal.
const nextPositionExpr = `(SELECT COALESCE(MAX(position) + 1, 0) FROM food_entries WHERE daily_log_id = ? AND meal = ?)`

type entryWithDate struct {
	entryRow
	LogDate string `db:"log_date"`
}

// GetEntry returns one entry of the user together with the date of its day.
func (r *Repo) GetEntry(ctx context.Context, userID, entryID uuid.UUID) (*domain.FoodEntry, string, error) {
	q := postgres.QuerierFromCtx(ctx, r.db)

	cols := make([]string, 0, len(entryColumns)+1)
	for _, c := range entryColumns {
		cols = append(cols, "e."+c)
	}
	cols = append(cols, "d.log_date::text AS log_date")

	query, args, err := psql.Select(cols...).
		From("food_entries e").
		Join("daily_logs d ON d.id = e.daily_log_id").
		Where(squirrel.Eq{"e.id": entryID, "e.user_id": userID}).
		ToSql()
	if err != nil {
		return nil, "", fmt.Errorf("build get entry query: %w", err)
	}

	var row entryWithDate
	if err := pgxscan.Get(ctx, q, &row, query, args...); err != nil {
		return nil, "", postgres.MapError(err, "food_entry", entryID)
	}
	entry := toDomainEntry(row.entryRow)
	return &entry, row.LogDate, nil
}

// AddEntry appends an item to a meal of the day, creating the day if needed,
// and recomputes the day totals in the same transaction.
func (r *Repo) AddEntry(ctx context.Context, userID uuid.UUID, date string, meal domain.Meal, item domain.FoodItem) (*domain.FoodEntry, error) {
	var entry domain.FoodEntry
	err := r.tx.RunInTx(ctx, func(ctx context.Context) error {
		q := postgres.QuerierFromCtx(ctx, r.db)

		if err := r.ensureDay(ctx, q, userID, date); err != nil {
			return err
		}

		var dayID uuid.UUID
		if err := q.QueryRow(ctx, lockDayByDateSQL, userID, date).Scan(&dayID); err != nil {
			return postgres.MapError(err, "daily_log", dayKey(userID, date))
		}

		var row entryRow
		err := pgxscan.Get(ctx, q, &row, insertEntrySQL,
			dayID, userID, string(meal), item.Name, item.Quantity, item.Calories, item.Protein, item.Carbs, item.Fat)
		if err != nil {
			return fmt.Errorf("insert entry: %w", postgres.MapError(err, "daily_log", dayID))
		}
		entry = toDomainEntry(row)

		return recomputeTotals(ctx, q, dayID)
	})
	if err != nil {
		return nil, persistErr("add_entry", err)
	}
	return &entry, nil
}

// UpdateEntry replaces the item and meal of an entry. Moving an entry to
// another meal appends it there. It returns the updated entry and the date
// of its day.
func (r *Repo) UpdateEntry(ctx context.Context, userID, entryID uuid.UUID, meal domain.Meal, item domain.FoodItem) (*domain.FoodEntry, string, error) {
	var (
		entry domain.FoodEntry
		date  string
	)
	err := r.tx.RunInTx(ctx, func(ctx context.Context) error {
		q := postgres.QuerierFromCtx(ctx, r.db)

		var (
			dayID   uuid.UUID
			oldMeal string
		)
		if err := q.QueryRow(ctx, lockEntryDaySQL, entryID, userID).Scan(&dayID, &date, &oldMeal); err != nil {
			return postgres.MapError(err, "food_entry", entryID)
		}

		upd := psql.Update("food_entries").
			Set("name", item.Name).
			Set("quantity", item.Quantity).
			Set("calories", item.Calories).
			Set("protein", item.Protein).
			Set("carbs", item.Carbs).
			Set("fat", item.Fat)
		if string(meal) != oldMeal {
			upd = upd.
				Set("position", squirrel.Expr(nextPositionExpr, dayID, string(meal))).
				Set("meal", string(meal))
		}

		query, args, err := upd.
			Where(squirrel.Eq{"id": entryID, "user_id": userID}).
			Suffix("RETURNING " + strings.Join(entryColumns, ", ")).
			ToSql()
		if err != nil {
			return fmt.Errorf("build update entry query: %w", err)
		}

		var row entryRow
		if err := pgxscan.Get(ctx, q, &row, query, args...); err != nil {
			return postgres.MapError(err, "food_entry", entryID)
		}
		entry = toDomainEntry(row)

		return recomputeTotals(ctx, q, dayID)
	})
	if err != nil {
		return nil, "", persistErr("update_entry", err)
	}
	return &entry, date, nil
}

// DeleteEntry removes an entry and returns the date of its day.
func (r *Repo) DeleteEntry(ctx context.Context, userID, entryID uuid.UUID) (string, error) {
	var date string
	err := r.tx.RunInTx(ctx, func(ctx context.Context) error {
		q := postgres.QuerierFromCtx(ctx, r.db)

		var (
			dayID uuid.UUID
			meal  string
		)
		if err := q.QueryRow(ctx, lockEntryDaySQL, entryID, userID).Scan(&dayID, &date, &meal); err != nil {
			return postgres.MapError(err, "food_entry", entryID)
		}

		if _, err := q.Exec(ctx, deleteEntrySQL, entryID, userID); err != nil {
			return fmt.Errorf("delete entry: %w", postgres.MapError(err, "food_entry", entryID))
		}

		return recomputeTotals(ctx, q, dayID)
	})
	if err != nil {
		return "", persistErr("delete_entry", err)
	}
	return date, nil
}
