package migrations

import (
	"context"
	"embed"
	"fmt"
	"io/fs"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/jackc/pgx/v5/stdlib"
	"github.com/pressly/goose/v3"
	"github.com/rs/zerolog"
)

//go:embed sql/*.sql
var embedded embed.FS

// FS returns the embedded migration files rooted at their directory.
func FS() fs.FS {
	sub, err := fs.Sub(embedded, "sql")
	if err != nil {
		panic(err)
	}
	return sub
}

// Migrator applies the embedded goose migrations.
type Migrator struct {
	pool   *pgxpool.Pool
	logger zerolog.Logger
}

// NewMigrator creates a migrator bound to pool.
func NewMigrator(pool *pgxpool.Pool, logger zerolog.Logger) *Migrator {
	return &Migrator{pool: pool, logger: logger}
}

// Up applies every pending migration and logs each applied version.
func (m *Migrator) Up(ctx context.Context) error {
	sqlDB := stdlib.OpenDBFromPool(m.pool)
	defer sqlDB.Close()

	provider, err := goose.NewProvider(goose.DialectPostgres, sqlDB, FS())
	if err != nil {
		return fmt.Errorf("failed to create migration provider: %w", err)
	}

	results, err := provider.Up(ctx)
	if err != nil {
		return fmt.Errorf("failed to apply migrations: %w", err)
	}
	for _, r := range results {
		m.logger.Info().
			Int64("version", r.Source.Version).
			Str("file", r.Source.Path).
			Dur("took", r.Duration).
			Msg("Migration applied")
	}
	if len(results) == 0 {
		m.logger.Info().Msg("Database schema up to date")
	}
	return nil
}
