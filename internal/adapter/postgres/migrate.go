package postgres

import (
	"context"
	"database/sql"
	"fmt"

	_ "github.com/jackc/pgx/v5/stdlib" // pgx driver for database/sql
	"github.com/pressly/goose/v3"

	"github.com/heartmarshall/macrolog-backend/migrations"
)

// MigrateUp applies the embedded goose migrations to the database at dsn and
// returns the versions it applied.
func MigrateUp(ctx context.Context, dsn string) ([]int64, error) {
	var applied []int64
	err := withProvider(ctx, dsn, func(p *goose.Provider) error {
		results, err := p.Up(ctx)
		if err != nil {
			return fmt.Errorf("goose up: %w", err)
		}
		for _, r := range results {
			applied = append(applied, r.Source.Version)
		}
		return nil
	})
	return applied, err
}

// MigrationStatus reports, per known migration version, whether it is applied.
func MigrationStatus(ctx context.Context, dsn string) (map[int64]bool, error) {
	status := make(map[int64]bool)
	err := withProvider(ctx, dsn, func(p *goose.Provider) error {
		results, err := p.Status(ctx)
		if err != nil {
			return fmt.Errorf("goose status: %w", err)
		}
		for _, r := range results {
			status[r.Source.Version] = r.State == goose.StateApplied
		}
		return nil
	})
	return status, err
}

func withProvider(ctx context.Context, dsn string, fn func(p *goose.Provider) error) error {
	// goose requires *sql.DB.
	db, err := sql.Open("pgx", dsn)
	if err != nil {
		return fmt.Errorf("sql.Open: %w", err)
	}
	defer db.Close()

	if err := db.PingContext(ctx); err != nil {
		return fmt.Errorf("db ping: %w", err)
	}

	// goose.NewProvider correctly handles $$-delimited statements, unlike the
	// legacy goose.Up which splits on semicolons.
	provider, err := goose.NewProvider(goose.DialectPostgres, db, migrations.FS)
	if err != nil {
		return fmt.Errorf("goose new provider: %w", err)
	}
	return fn(provider)
}
