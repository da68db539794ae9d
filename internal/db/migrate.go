package db

import (
	"context"
	"fmt"
	"net/http"

	migrate "github.com/rubenv/sql-migrate"

	"github.com/solanize/solanize-client/internal/db/migrations"
)

// Migrate applies up to count embedded migrations in the given direction. A count of 0 applies all of them.
func Migrate(ctx context.Context, dbConnectionPool ConnectionPool, direction migrate.MigrationDirection, count int) (int, error) {
	sqlDB, err := dbConnectionPool.SqlDB(ctx)
	if err != nil {
		return 0, fmt.Errorf("getting sql.DB: %w", err)
	}

	m := migrate.HttpFileSystemMigrationSource{FileSystem: http.FS(migrations.FS)}
	appliedMigrationsCount, err := migrate.ExecMax(sqlDB, DriverName, m, direction, count)
	if err != nil {
		return appliedMigrationsCount, fmt.Errorf("applying migrations: %w", err)
	}
	return appliedMigrationsCount, nil
}
