// Package storage opens the local client database and applies the embedded
// goose migrations.
package storage

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/dmitrijs2005/anonify/internal/client/migrations"
	"github.com/dmitrijs2005/anonify/internal/client/repositories/metadata"
	"github.com/dmitrijs2005/anonify/internal/client/repositories/results"
	"github.com/dmitrijs2005/anonify/internal/dbx"
	"github.com/pressly/goose/v3"

	_ "modernc.org/sqlite"
)

type Repositories struct {
	DB       *sql.DB
	Metadata metadata.Repository
	Results  results.Repository
}

// Purge wipes every local record, the metadata slots and the archived result
// index, in one transaction.
func (r *Repositories) Purge(ctx context.Context) error {
	return dbx.WithTx(ctx, r.DB, nil, func(ctx context.Context, tx dbx.DBTX) error {
		if err := metadata.NewSQLiteRepository(tx).Clear(ctx); err != nil {
			return err
		}
		return results.NewSQLiteRepository(tx).Clear(ctx)
	})
}

// Close closes the underlying database.
func (r *Repositories) Close() error {
	return r.DB.Close()
}

func RunMigrations(ctx context.Context, db *sql.DB) error {
	goose.SetBaseFS(migrations.Migrations)

	if err := goose.SetDialect("sqlite3"); err != nil {
		return fmt.Errorf("failed to set goose dialect: %w", err)
	}

	return goose.UpContext(ctx, db, ".")
}

// Open opens (creating if needed) the SQLite database at dsn, migrates it
// and returns the repositories bound to it.
func Open(ctx context.Context, dsn string) (*Repositories, error) {
	db, err := InitDatabase(ctx, dsn)
	if err != nil {
		return nil, err
	}

	return &Repositories{
		DB:       db,
		Metadata: metadata.NewSQLiteRepository(db),
		Results:  results.NewSQLiteRepository(db),
	}, nil
}

func InitDatabase(ctx context.Context, dsn string) (*sql.DB, error) {
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, err
	}
	// One writer keeps ":memory:" databases on a single connection.
	db.SetMaxOpenConns(1)

	if err := RunMigrations(ctx, db); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("migrate %s: %w", dsn, err)
	}
	return db, nil
}
