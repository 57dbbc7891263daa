package daylog

import (
	"context"

	"github.com/georgysavva/scany/v2/pgxscan"
	"github.com/google/uuid"

	postgres "github.com/heartmarshall/macrolog-backend/internal/adapter/postgres"
	"github.com/heartmarshall/macrolog-backend/internal/domain"
)

const getTargetsSQL = `
SELECT user_id, calories, protein, carbs, fat
FROM macro_targets
WHERE user_id = $1`

const upsertTargetsSQL = `
INSERT INTO macro_targets (user_id, calories, protein, carbs, fat, updated_at)
VALUES ($1, $2, $3, $4, $5, now())
ON CONFLICT (user_id) DO UPDATE SET
    calories   = EXCLUDED.calories,
    protein    = EXCLUDED.protein,
    carbs      = EXCLUDED.carbs,
    fat        = EXCLUDED.fat,
    updated_at = now()`

type targetsRow struct {
	UserID   uuid.UUID `db:"user_id"`
	Calories int       `db:"calories"`
	Protein  int       `db:"protein"`
	Carbs    int       `db:"carbs"`
	Fat      int       `db:"fat"`
}

// GetTargets returns the live targets of a user, or domain.ErrNotFound.
func (r *Repo) GetTargets(ctx context.Context, userID uuid.UUID) (*domain.MacroTargets, error) {
	var row targetsRow
	if err := pgxscan.Get(ctx, postgres.QuerierFromCtx(ctx, r.db), &row, getTargetsSQL, userID); err != nil {
		return nil, postgres.MapError(err, "macro_targets", userID)
	}
	return &domain.MacroTargets{
		UserID:   row.UserID,
		Calories: row.Calories,
		Protein:  row.Protein,
		Carbs:    row.Carbs,
		Fat:      row.Fat,
	}, nil
}

// UpsertTargets stores the live targets of a user.
func (r *Repo) UpsertTargets(ctx context.Context, t domain.MacroTargets) error {
	_, err := postgres.QuerierFromCtx(ctx, r.db).Exec(ctx, upsertTargetsSQL, t.UserID, t.Calories, t.Protein, t.Carbs, t.Fat)
	if err != nil {
		return persistErr("upsert_targets", postgres.MapError(err, "macro_targets", t.UserID))
	}
	return nil
}
