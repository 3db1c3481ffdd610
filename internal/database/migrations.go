package database

import (
	"context"
	"embed"
	"mapguess-server/pkg/migration"

	"github.com/jackc/pgx/v5/pgxpool"
)

//go:embed migrations/*.sql
var migrationsFS embed.FS

// NewMigrator возвращает мигратор схемы сессий (таблицы game_states и attempts).
func NewMigrator(pool *pgxpool.Pool) *migration.Migrator {
	return migration.NewMigrator(migration.Config{
		MigrationsFS:   migrationsFS,
		MigrationsPath: "migrations",
	}, pool)
}

// ApplyMigrations применяет все миграции.
func ApplyMigrations(ctx context.Context, pool *pgxpool.Pool) error {
	return NewMigrator(pool).Up(ctx)
}
