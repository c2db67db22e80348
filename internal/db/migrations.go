package db

import (
	"context"
	"embed"
	"fmt"
	"io/fs"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/jackc/tern/v2/migrate"
	"go.uber.org/zap"
)

//go:embed migrations/*.sql
var migrationFiles embed.FS

const (
	// migrationLockID is the advisory lock serializing migrations across
	// concurrently starting servers. 0x6462737461 is "dbsta" in ASCII.
	migrationLockID             = 0x6462737461
	migrationLockReleaseTimeout = 5 * time.Second
	versionTable                = "public.schema_version"
)

// RunMigrations brings the schema up to date while holding an advisory lock.
func RunMigrations(ctx context.Context, pool *Pool) error {
	return pool.WithConn(ctx, func(conn *pgxpool.Conn) error {
		unlock, err := migrationLock(ctx, conn.Conn())
		if err != nil {
			return err
		}
		defer unlock()

		zap.L().Info("Running database migrations")
		return migrateConn(ctx, conn.Conn())
	})
}

func migrateConn(ctx context.Context, conn *pgx.Conn) error {
	migrationFS, err := fs.Sub(migrationFiles, "migrations")
	if err != nil {
		return fmt.Errorf("failed to read migrations: %w", err)
	}

	migrator, err := migrate.NewMigrator(ctx, conn, versionTable)
	if err != nil {
		return fmt.Errorf("failed to create migrator: %w", err)
	}

	if err := migrator.LoadMigrations(migrationFS); err != nil {
		return fmt.Errorf("failed to load migrations: %w", err)
	}

	if current, err := migrator.GetCurrentVersion(ctx); err != nil {
		zap.L().Debug("Could not read schema version", zap.Error(err))
	} else {
		zap.L().Info("Current schema version", zap.Int32("version", current))
	}

	if err := migrator.Migrate(ctx); err != nil {
		return fmt.Errorf("failed to migrate database: %w", err)
	}
	return nil
}

func migrationLock(ctx context.Context, conn *pgx.Conn) (unlock func(), err error) {
	if _, err := conn.Exec(ctx, "SELECT pg_advisory_lock($1)", migrationLockID); err != nil {
		return nil, fmt.Errorf("failed to acquire migration lock: %w", err)
	}

	return func() {
		ctx, cancel := context.WithTimeout(context.Background(), migrationLockReleaseTimeout)
		defer cancel()

		if _, err := conn.Exec(ctx, "SELECT pg_advisory_unlock($1)", migrationLockID); err != nil {
			zap.L().Error("Failed to release migration lock", zap.Error(err))
		}
	}, nil
}
