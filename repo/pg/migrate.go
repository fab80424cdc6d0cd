package pg

import (
	"context"
	"embed"
	"fmt"
	"io/fs"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/tern/v2/migrate"
)

//go:embed migrations/*.sql
var migrations embed.FS

// MigrateDatabase runs the engine's own schema migrations with Tern,
// grounded on jobs.MigrateDatabase's embed.FS + migrate.NewMigrator pattern.
func MigrateDatabase(ctx context.Context, conn *pgx.Conn) error {
	migrator, err := migrate.NewMigrator(ctx, conn, "schema_version")
	if err != nil {
		return fmt.Errorf("repo/pg: create migrator: %w", err)
	}

	filesystem, err := fs.Sub(migrations, "migrations")
	if err != nil {
		return fmt.Errorf("repo/pg: sub filesystem: %w", err)
	}
	if err := migrator.LoadMigrations(filesystem); err != nil {
		return fmt.Errorf("repo/pg: load migrations: %w", err)
	}
	if err := migrator.Migrate(ctx); err != nil {
		return fmt.Errorf("repo/pg: run migrations: %w", err)
	}
	return nil
}
