//go:build integration

// Package testdb starts a disposable PostgreSQL container with the schema
// applied, for repository integration tests.
package testdb

import (
	"context"
	"testing"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"
	tc "github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/modules/postgres"
	"github.com/testcontainers/testcontainers-go/wait"

	"github.com/bildungsfortschritt/api/internal/app/migrations"
	"github.com/bildungsfortschritt/api/internal/db"
)

// Start runs a container, migrates it and registers cleanup on t
func Start(t *testing.T) *db.PostgresDB {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Minute)
	defer cancel()

	pg, err := postgres.RunContainer(ctx,
		tc.WithImage("postgres:16-alpine"),
		postgres.WithDatabase("bildungsfortschritt"),
		postgres.WithUsername("postgres"),
		postgres.WithPassword("postgres"),
		tc.WithWaitStrategy(
			wait.ForLog("database system is ready to accept connections").
				WithOccurrence(2).
				WithStartupTimeout(60*time.Second),
		),
	)
	require.NoError(t, err)
	t.Cleanup(func() {
		stopCtx, stop := context.WithTimeout(context.Background(), 10*time.Second)
		defer stop()
		_ = pg.Terminate(stopCtx)
	})

	uri, err := pg.ConnectionString(ctx, "sslmode=disable")
	require.NoError(t, err)

	pool, err := pgxpool.New(ctx, uri)
	require.NoError(t, err)
	t.Cleanup(pool.Close)
	require.NoError(t, pool.Ping(ctx))

	require.NoError(t, migrations.NewMigrator(pool, zerolog.Nop()).Up(ctx))
	return db.FromPool(pool)
}

// Truncate empties every table and resets the id sequences
func Truncate(t *testing.T, database *db.PostgresDB) {
	t.Helper()
	_, err := database.Pool.Exec(context.Background(),
		`TRUNCATE user_completed_modules, module_prerequisites, module_competencies,
		 modules, competencies, user_trainers, users RESTART IDENTITY CASCADE`)
	require.NoError(t, err)
}
