//go:build testutil

package testdb

import (
	"context"
	"errors"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rs/zerolog"
	tc "github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/modules/postgres"
	"github.com/yigit/scribelink/internal/app/migrations"
)

// DBHandle is a migrated PostgreSQL running in a container.
type DBHandle struct {
	Pool   *pgxpool.Pool
	cancel func()
	stop   func(context.Context) error
}

// Close releases the pool and terminates the container.
func (h *DBHandle) Close() {
	if h.Pool != nil {
		h.Pool.Close()
	}
	if h.stop != nil {
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		_ = h.stop(ctx)
	}
	if h.cancel != nil {
		h.cancel()
	}
}

// Start runs a postgres container and applies the embedded migrations.
func Start(ctx context.Context) (*DBHandle, error) {
	ctx, cancel := context.WithTimeout(ctx, 2*time.Minute)

	pg, err := postgres.RunContainer(ctx,
		tc.WithImage("postgres:17-alpine"),
		postgres.WithDatabase("scribelink"),
		postgres.WithUsername("scribelink"),
		postgres.WithPassword("scribelink"),
	)
	if err != nil {
		cancel()
		return nil, err
	}

	fail := func(err error) (*DBHandle, error) {
		_ = pg.Terminate(context.Background())
		cancel()
		return nil, err
	}

	uri, err := pg.ConnectionString(ctx, "sslmode=disable")
	if err != nil {
		return fail(err)
	}
	pool, err := pgxpool.New(ctx, uri)
	if err != nil {
		return fail(err)
	}
	if err := waitReady(ctx, pool); err != nil {
		pool.Close()
		return fail(err)
	}
	if err := migrations.NewMigrator(pool, zerolog.Nop()).Up(ctx); err != nil {
		pool.Close()
		return fail(err)
	}

	return &DBHandle{
		Pool:   pool,
		cancel: cancel,
		stop:   pg.Terminate,
	}, nil
}

func waitReady(ctx context.Context, pool *pgxpool.Pool) error {
	dead := time.Now().Add(20 * time.Second)
	for time.Now().Before(dead) {
		if err := pool.Ping(ctx); err == nil {
			return nil
		}
		time.Sleep(200 * time.Millisecond)
	}
	return errors.New("db not ready")
}

// Truncate empties every application table.
func (h *DBHandle) Truncate(ctx context.Context) error {
	_, err := h.Pool.Exec(ctx, `TRUNCATE activity_logs, match_requests, exam_requests, credentials, profiles CASCADE`)
	return err
}
