// Package client wires the local SQLite-backed vault database: it runs the
// goose migrations and constructs the storage.Device façade that the rest
// of the application depends on.
package client

import (
	"context"
	"database/sql"

	_ "modernc.org/sqlite"

	"github.com/dmitrijs2005/notevault/internal/client/migrations"
	"github.com/dmitrijs2005/notevault/internal/client/repositories/metadata"
	"github.com/dmitrijs2005/notevault/internal/storage"
	"github.com/pressly/goose/v3"
)

func RunMigrations(ctx context.Context, db *sql.DB) error {
	goose.SetBaseFS(migrations.Migrations)

	if err := goose.SetDialect("sqlite3"); err != nil {
		return err
	}

	return goose.UpContext(ctx, db, ".")
}

// InitDatabase opens dsn, applies migrations, and returns a launched
// storage.Device backed by it.
func InitDatabase(ctx context.Context, dsn string) (*storage.Device, *sql.DB, error) {
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, nil, err
	}

	if err := RunMigrations(ctx, db); err != nil {
		db.Close()
		return nil, nil, err
	}

	device := storage.NewDevice(metadata.NewSQLiteRepository(db), db)
	device.Launch()
	return device, db, nil
}
