package testhelper

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/heartmarshall/macrolog-backend/internal/domain"
)

// uniqueSuffix returns a short unique string for generating non-conflicting test data.
func uniqueSuffix() string {
	return uuid.New().String()[:8]
}

// SeedUser creates a user in the UTC timezone.
func SeedUser(t *testing.T, pool *pgxpool.Pool) domain.User {
	t.Helper()

	user := domain.User{
		ID:        uuid.New(),
		Name:      "Test User " + uniqueSuffix(),
		Timezone:  "UTC",
		CreatedAt: time.Now().UTC().Truncate(time.Microsecond),
	}

	_, err := pool.Exec(context.Background(),
		`INSERT INTO users (id, name, timezone, created_at) VALUES ($1, $2, $3, $4)`,
		user.ID, user.Name, user.Timezone, user.CreatedAt,
	)
	if err != nil {
		t.Fatalf("testhelper: SeedUser insert user: %v", err)
	}
	return user
}

// SeedTargets stores live macro targets for a user.
func SeedTargets(t *testing.T, pool *pgxpool.Pool, targets domain.MacroTargets) {
	t.Helper()

	_, err := pool.Exec(context.Background(),
		`INSERT INTO macro_targets (user_id, calories, protein, carbs, fat) VALUES ($1, $2, $3, $4, $5)`,
		targets.UserID, targets.Calories, targets.Protein, targets.Carbs, targets.Fat,
	)
	if err != nil {
		t.Fatalf("testhelper: SeedTargets: %v", err)
	}
}
