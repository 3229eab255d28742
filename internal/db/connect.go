package db

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"todo_api/internal/config"
	"todo_api/internal/logger"

	_ "github.com/jackc/pgx/v5/stdlib"
	"github.com/jmoiron/sqlx"
	_ "github.com/mattn/go-sqlite3"
)

// Connect opens the configured store and exits the process on failure.
func Connect(cfg config.StoreConfig) (*sqlx.DB, Dialect) {
	db, dialect, err := Open(context.Background(), cfg)
	if err != nil {
		logger.Fatal("failed to open store", "driver", cfg.Driver, "error", err)
	}
	logger.Info("store connected", "driver", dialect.Name)
	return db, dialect
}

// Open opens and pings the store described by cfg.
func Open(ctx context.Context, cfg config.StoreConfig) (*sqlx.DB, Dialect, error) {
	dialect, err := DialectFor(cfg.Driver)
	if err != nil {
		return nil, Dialect{}, err
	}

	var dsn string
	switch dialect.Name {
	case SQLite.Name:
		dsn, err = sqliteDSN(cfg.Path)
		if err != nil {
			return nil, Dialect{}, err
		}
	default:
		dsn = cfg.URL
	}

	db, err := sqlx.Open(dialect.DriverName, dsn)
	if err != nil {
		return nil, Dialect{}, fmt.Errorf("open %s: %w", dialect.Name, err)
	}
	if dialect.Name == Postgres.Name {
		db.SetMaxOpenConns(10)
		db.SetMaxIdleConns(2)
		db.SetConnMaxIdleTime(5 * time.Minute)
		db.SetConnMaxLifetime(30 * time.Minute)
	}

	pingCtx, cancel := context.WithTimeout(ctx, 3*time.Second)
	defer cancel()
	if err := db.PingContext(pingCtx); err != nil {
		db.Close()
		return nil, Dialect{}, fmt.Errorf("ping %s: %w", dialect.Name, err)
	}
	return db, dialect, nil
}

// sqliteDSN creates the parent directory and appends the connection pragmas.
// Transactions stay deferred so readers never queue behind the write lock.
func sqliteDSN(path string) (string, error) {
	if path != ":memory:" && !strings.HasPrefix(path, "file:") {
		if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
			return "", fmt.Errorf("create store directory: %w", err)
		}
	}
	sep := "?"
	if strings.Contains(path, "?") {
		sep = "&"
	}
	return path + sep + "_journal_mode=WAL&_synchronous=NORMAL&_busy_timeout=5000&_foreign_keys=on", nil
}
