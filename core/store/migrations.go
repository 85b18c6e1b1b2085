package store

import (
	"context"
	"embed"
	"fmt"

	"github.com/pressly/goose/v3"

	"mindguard/core/utils"
)

//go:embed migrations/*.sql
var embedMigrations embed.FS

func ApplyMigrations(ctx context.Context, db *DB, logger *utils.Logger) error {
	goose.SetBaseFS(embedMigrations)
	goose.SetLogger(goose.NopLogger())
	dialect := "sqlite3"
	if db.Driver() == DriverPostgres {
		dialect = "postgres"
	}
	if err := goose.SetDialect(dialect); err != nil {
		return fmt.Errorf("set migration dialect: %w", err)
	}
	if err := goose.UpContext(ctx, db.DB, "migrations"); err != nil {
		return fmt.Errorf("apply migrations: %w", err)
	}
	if logger != nil {
		logger.Info("migrations applied", "dialect", dialect)
	}
	return nil
}
