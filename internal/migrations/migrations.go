// Package migrations embeds the Postgres schema of the user-record store and
// applies it with goose.
package migrations

import (
	"context"
	"database/sql"
	"embed"
	"fmt"

	"github.com/pressly/goose/v3"
)

//go:embed sql/*.sql
var files embed.FS

const dir = "sql"

func setup() error {
	goose.SetBaseFS(files)
	return goose.SetDialect("postgres")
}

// Up applies every pending migration.
func Up(ctx context.Context, db *sql.DB) error {
	if err := setup(); err != nil {
		return err
	}
	if err := goose.UpContext(ctx, db, dir); err != nil {
		return fmt.Errorf("migrations: up: %w", err)
	}
	return nil
}

// Down rolls back the most recent migration.
func Down(ctx context.Context, db *sql.DB) error {
	if err := setup(); err != nil {
		return err
	}
	if err := goose.DownContext(ctx, db, dir); err != nil {
		return fmt.Errorf("migrations: down: %w", err)
	}
	return nil
}

// Status logs the applied state of every migration.
func Status(ctx context.Context, db *sql.DB) error {
	if err := setup(); err != nil {
		return err
	}
	return goose.StatusContext(ctx, db, dir)
}

// Version returns the current schema version.
func Version(ctx context.Context, db *sql.DB) (int64, error) {
	if err := setup(); err != nil {
		return 0, err
	}
	return goose.GetDBVersionContext(ctx, db)
}
