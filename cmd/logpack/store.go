package main

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"
	_ "github.com/lib/pq"
	_ "github.com/mattn/go-sqlite3"

	"github.com/logpack/logpack/internal/config"
	"github.com/logpack/logpack/storage"
)

// openStore builds the configured backend. The returned func releases
// any held connections.
func openStore(cfg config.Config) (storage.Store, func(), error) {
	switch cfg.Storage.Backend {
	case config.BackendFile:
		return storage.NewFileStore(cfg.Storage.LogsDir, cfg.Storage.Backup), func() {}, nil

	case config.BackendSQLite:
		db, err := sql.Open("sqlite3", cfg.Storage.DatabaseURL)
		if err != nil {
			return nil, nil, err
		}
		store := storage.NewSQLStore(db, storage.DialectSQLite)
		if err := store.EnsureSchema(context.Background()); err != nil {
			db.Close()
			return nil, nil, err
		}
		return store, func() { db.Close() }, nil

	case config.BackendPostgresSQL:
		db, err := sql.Open("postgres", cfg.Storage.DatabaseURL)
		if err != nil {
			return nil, nil, err
		}
		store := storage.NewSQLStore(db, storage.DialectPostgres)
		if err := store.EnsureSchema(context.Background()); err != nil {
			db.Close()
			return nil, nil, err
		}
		return store, func() { db.Close() }, nil

	case config.BackendPostgres:
		pool, err := pgxpool.New(context.Background(), cfg.Storage.DatabaseURL)
		if err != nil {
			return nil, nil, err
		}
		store := storage.NewPostgresStore(pool)
		if err := store.EnsureSchema(context.Background()); err != nil {
			pool.Close()
			return nil, nil, err
		}
		return store, pool.Close, nil

	default:
		return nil, nil, fmt.Errorf("unknown storage backend %q", cfg.Storage.Backend)
	}
}
