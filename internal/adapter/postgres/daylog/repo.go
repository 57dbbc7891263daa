// Package daylog implements the daily log repository using PostgreSQL.
package daylog

import (
	"context"
	"fmt"
	"time"

	"github.com/Masterminds/squirrel"
	"github.com/georgysavva/scany/v2/pgxscan"
	"github.com/google/uuid"

	postgres "github.com/heartmarshall/macrolog-backend/internal/adapter/postgres"
	"github.com/heartmarshall/macrolog-backend/internal/domain"
)

var psql = squirrel.StatementBuilder.PlaceholderFormat(squirrel.Dollar)

var dayColumns = []string{
	"id", "user_id", "log_date::text AS log_date",
	"total_calories", "total_protein", "total_carbs", "total_fat",
	"target_calories", "target_protein", "target_carbs", "target_fat",
	"created_at", "updated_at",
}

var entryColumns = []string{
	"id", "daily_log_id", "user_id", "meal", "position",
	"name", "quantity", "calories", "protein", "carbs", "fat", "created_at",
}

// Repo provides daily log, food entry and macro target persistence backed by PostgreSQL.
type Repo struct {
	db postgres.DB
	tx *postgres.TxManager
}

// New creates a new daily log repository.
func New(db postgres.DB) *Repo {
	return &Repo{db: db, tx: postgres.NewTxManager(db)}
}

type dayRow struct {
	ID             uuid.UUID `db:"id"`
	UserID         uuid.UUID `db:"user_id"`
	LogDate        string    `db:"log_date"`
	TotalCalories  int       `db:"total_calories"`
	TotalProtein   int       `db:"total_protein"`
	TotalCarbs     int       `db:"total_carbs"`
	TotalFat       int       `db:"total_fat"`
	TargetCalories *int      `db:"target_calories"`
	TargetProtein  *int      `db:"target_protein"`
	TargetCarbs    *int      `db:"target_carbs"`
	TargetFat      *int      `db:"target_fat"`
	CreatedAt      time.Time `db:"created_at"`
	UpdatedAt      time.Time `db:"updated_at"`
}

type entryRow struct {
	ID         uuid.UUID `db:"id"`
	DailyLogID uuid.UUID `db:"daily_log_id"`
	UserID     uuid.UUID `db:"user_id"`
	Meal       string    `db:"meal"`
	Position   int       `db:"position"`
	Name       string    `db:"name"`
	Quantity   string    `db:"quantity"`
	Calories   int       `db:"calories"`
	Protein    int       `db:"protein"`
	Carbs      int       `db:"carbs"`
	Fat        int       `db:"fat"`
	CreatedAt  time.Time `db:"created_at"`
}

// ---------------------------------------------------------------------------
// Reads
// ---------------------------------------------------------------------------

// GetDay returns the stored day of a user with its entries.
// It returns domain.ErrNotFound when the day has no row.
func (r *Repo) GetDay(ctx context.Context, userID uuid.UUID, date string) (*domain.DailyLog, error) {
	q := postgres.QuerierFromCtx(ctx, r.db)

	query, args, err := psql.Select(dayColumns...).
		From("daily_logs").
		Where(squirrel.Eq{"user_id": userID, "log_date": date}).
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("build get day query: %w", err)
	}

	var row dayRow
	if err := pgxscan.Get(ctx, q, &row, query, args...); err != nil {
		return nil, postgres.MapError(err, "daily_log", dayKey(userID, date))
	}

	days, err := r.withEntries(ctx, q, []dayRow{row})
	if err != nil {
		return nil, err
	}
	return days[0], nil
}

// ListDays returns the stored days among dates, oldest first.
// Dates without a row are absent from the result.
func (r *Repo) ListDays(ctx context.Context, userID uuid.UUID, dates []string) ([]*domain.DailyLog, error) {
	if len(dates) == 0 {
		return []*domain.DailyLog{}, nil
	}
	q := postgres.QuerierFromCtx(ctx, r.db)

	query, args, err := psql.Select(dayColumns...).
		From("daily_logs").
		Where(squirrel.Eq{"user_id": userID, "log_date": dates}).
		OrderBy("log_date").
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("build list days query: %w", err)
	}

	var rows []dayRow
	if err := pgxscan.Select(ctx, q, &rows, query, args...); err != nil {
		return nil, postgres.MapError(err, "daily_log", userID)
	}
	if len(rows) == 0 {
		return []*domain.DailyLog{}, nil
	}
	return r.withEntries(ctx, q, rows)
}

// withEntries loads the entries of all rows in one query and builds the domain days.
func (r *Repo) withEntries(ctx context.Context, q postgres.Querier, rows []dayRow) ([]*domain.DailyLog, error) {
	ids := make([]uuid.UUID, len(rows))
	days := make([]*domain.DailyLog, len(rows))
	byID := make(map[uuid.UUID]*domain.DailyLog, len(rows))
	for i, row := range rows {
		ids[i] = row.ID
		days[i] = toDomainDay(row)
		byID[row.ID] = days[i]
	}

	query, args, err := psql.Select(entryColumns...).
		From("food_entries").
		Where(squirrel.Eq{"daily_log_id": ids}).
		OrderBy("position", "created_at").
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("build list entries query: %w", err)
	}

	var entries []entryRow
	if err := pgxscan.Select(ctx, q, &entries, query, args...); err != nil {
		return nil, postgres.MapError(err, "food_entry", rows[0].UserID)
	}

	for _, e := range entries {
		d, ok := byID[e.DailyLogID]
		if !ok {
			continue
		}
		entry := toDomainEntry(e)
		d.Meals[entry.Meal] = append(d.Meals[entry.Meal], entry)
	}
	return days, nil
}

// ---------------------------------------------------------------------------
// Day rows
// ---------------------------------------------------------------------------

// ensureDaySQL creates the day with a snapshot of the live targets (or the
// defaults passed as $3..$6). Concurrent callers race on the unique key; the
// loser does nothing.
const ensureDaySQL = `
INSERT INTO daily_logs (user_id, log_date, target_calories, target_protein, target_carbs, target_fat)
SELECT $1, $2::date,
       COALESCE(t.calories, $3), COALESCE(t.protein, $4), COALESCE(t.carbs, $5), COALESCE(t.fat, $6)
FROM (SELECT 1) AS one
LEFT JOIN macro_targets t ON t.user_id = $1
ON CONFLICT (user_id, log_date) DO NOTHING`

// EnsureDay returns the day, creating its row first when it does not exist.
func (r *Repo) EnsureDay(ctx context.Context, userID uuid.UUID, date string) (*domain.DailyLog, error) {
	if _, err := domain.ParseDate(date); err != nil {
		return nil, err
	}
	if err := r.ensureDay(ctx, postgres.QuerierFromCtx(ctx, r.db), userID, date); err != nil {
		return nil, persistErr("ensure_day", err)
	}

	day, err := r.GetDay(ctx, userID, date)
	if err != nil {
		return nil, persistErr("ensure_day", err)
	}
	return day, nil
}

func (r *Repo) ensureDay(ctx context.Context, q postgres.Querier, userID uuid.UUID, date string) error {
	def := domain.DefaultMacroTargets(userID)
	_, err := q.Exec(ctx, ensureDaySQL, userID, date, def.Calories, def.Protein, def.Carbs, def.Fat)
	if err != nil {
		return postgres.MapError(err, "daily_log", dayKey(userID, date))
	}
	return nil
}

// UpdateDayTargets rewrites the targets snapshot of one day. It reports
// whether the day row exists.
func (r *Repo) UpdateDayTargets(ctx context.Context, userID uuid.UUID, date string, t domain.MacroTargets) (bool, error) {
	q := postgres.QuerierFromCtx(ctx, r.db)

	query, args, err := psql.Update("daily_logs").
		Set("target_calories", t.Calories).
		Set("target_protein", t.Protein).
		Set("target_carbs", t.Carbs).
		Set("target_fat", t.Fat).
		Set("updated_at", squirrel.Expr("now()")).
		Where(squirrel.Eq{"user_id": userID, "log_date": date}).
		ToSql()
	if err != nil {
		return false, fmt.Errorf("build update day targets query: %w", err)
	}

	tag, err := q.Exec(ctx, query, args...)
	if err != nil {
		return false, persistErr("update_day_targets", postgres.MapError(err, "daily_log", dayKey(userID, date)))
	}
	return tag.RowsAffected() > 0, nil
}

// ---------------------------------------------------------------------------
// Helpers
// ---------------------------------------------------------------------------

func dayKey(userID uuid.UUID, date string) string {
	return userID.String() + "/" + date
}

func persistErr(op string, err error) error {
	return &domain.PersistenceError{Op: op, Err: err}
}

func toDomainDay(row dayRow) *domain.DailyLog {
	d := domain.NewDailyLog(row.UserID, row.LogDate)
	d.ID = row.ID
	d.Totals = domain.MacroTotals{
		Calories: row.TotalCalories,
		Protein:  row.TotalProtein,
		Carbs:    row.TotalCarbs,
		Fat:      row.TotalFat,
	}
	if row.TargetCalories != nil {
		d.Targets = &domain.MacroTargets{
			UserID:   row.UserID,
			Calories: *row.TargetCalories,
			Protein:  derefInt(row.TargetProtein),
			Carbs:    derefInt(row.TargetCarbs),
			Fat:      derefInt(row.TargetFat),
		}
	}
	d.CreatedAt = row.CreatedAt
	d.UpdatedAt = row.UpdatedAt
	return d
}

func toDomainEntry(row entryRow) domain.FoodEntry {
	return domain.FoodEntry{
		FoodItem: domain.FoodItem{
			Name:     row.Name,
			Quantity: row.Quantity,
			Calories: row.Calories,
			Protein:  row.Protein,
			Carbs:    row.Carbs,
			Fat:      row.Fat,
		},
		ID:         row.ID,
		UserID:     row.UserID,
		DailyLogID: row.DailyLogID,
		Meal:       domain.Meal(row.Meal),
		Position:   row.Position,
		CreatedAt:  row.CreatedAt,
	}
}

func derefInt(p *int) int {
	if p == nil {
		return 0
	}
	return *p
}
