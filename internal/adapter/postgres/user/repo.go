// Package user implements the User repository using PostgreSQL.
package user

import (
	"context"
	"time"

	"github.com/georgysavva/scany/v2/pgxscan"
	"github.com/google/uuid"

	postgres "github.com/heartmarshall/macrolog-backend/internal/adapter/postgres"
	"github.com/heartmarshall/macrolog-backend/internal/domain"
)

const userColumns = `id, name, timezone, created_at`

const getUserByIDSQL = `SELECT ` + userColumns + ` FROM users WHERE id = $1`

const createUserSQL = `
INSERT INTO users (id, name, timezone, created_at)
VALUES ($1, $2, $3, $4)
RETURNING ` + userColumns

const updateUserSQL = `
UPDATE users
SET name = COALESCE($2, name), timezone = COALESCE($3, timezone)
WHERE id = $1
RETURNING ` + userColumns

// Repo provides user persistence backed by PostgreSQL.
type Repo struct {
	db postgres.DB
}

// New creates a new user repository.
func New(db postgres.DB) *Repo {
	return &Repo{db: db}
}

type userRow struct {
	ID        uuid.UUID `db:"id"`
	Name      string    `db:"name"`
	Timezone  string    `db:"timezone"`
	CreatedAt time.Time `db:"created_at"`
}

// GetByID returns a user by primary key.
func (r *Repo) GetByID(ctx context.Context, id uuid.UUID) (*domain.User, error) {
	var row userRow
	if err := pgxscan.Get(ctx, postgres.QuerierFromCtx(ctx, r.db), &row, getUserByIDSQL, id); err != nil {
		return nil, postgres.MapError(err, "user", id)
	}

	u := toDomainUser(row)
	return &u, nil
}

// Create inserts a new user and returns the persisted domain.User.
// A zero ID or CreatedAt is filled in.
func (r *Repo) Create(ctx context.Context, u domain.User) (*domain.User, error) {
	if u.ID == uuid.Nil {
		u.ID = uuid.New()
	}
	if u.CreatedAt.IsZero() {
		u.CreatedAt = time.Now().UTC()
	}
	if u.Timezone == "" {
		u.Timezone = "UTC"
	}

	var row userRow
	err := pgxscan.Get(ctx, postgres.QuerierFromCtx(ctx, r.db), &row, createUserSQL,
		u.ID, u.Name, u.Timezone, u.CreatedAt)
	if err != nil {
		return nil, postgres.MapError(err, "user", u.ID)
	}

	result := toDomainUser(row)
	return &result, nil
}

// Update changes the name and timezone of a user. Nil leaves a field as is.
func (r *Repo) Update(ctx context.Context, id uuid.UUID, name, timezone *string) (*domain.User, error) {
	var row userRow
	err := pgxscan.Get(ctx, postgres.QuerierFromCtx(ctx, r.db), &row, updateUserSQL, id, name, timezone)
	if err != nil {
		return nil, postgres.MapError(err, "user", id)
	}

	u := toDomainUser(row)
	return &u, nil
}

func toDomainUser(row userRow) domain.User {
	return domain.User{
		ID:        row.ID,
		Name:      row.Name,
		Timezone:  row.Timezone,
		CreatedAt: row.CreatedAt,
	}
}
