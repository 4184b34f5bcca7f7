package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	_ "github.com/jackc/pgx/v5/stdlib"
	_ "github.com/lib/pq"

	"personvault/internal/platform/config"
	"personvault/pkg/platform/sentinel"
)

const pingTimeout = 5 * time.Second

// Open opens a pooled connection with cfg's driver and verifies it with a
// ping. Drivers are "postgres" (lib/pq) and "pgx" (pgx stdlib).
func Open(ctx context.Context, cfg config.DatabaseConfig) (*sql.DB, error) {
	driver, err := driverName(cfg.Driver)
	if err != nil {
		return nil, err
	}
	if cfg.URL == "" {
		return nil, errors.New("database url is required")
	}

	db, err := sql.Open(driver, cfg.URL)
	if err != nil {
		return nil, fmt.Errorf("open %s database: %w", driver, err)
	}
	configurePool(db, cfg)

	pingCtx, cancel := context.WithTimeout(ctx, pingTimeout)
	defer cancel()
	if err := db.PingContext(pingCtx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("ping database: %w: %w", sentinel.ErrUnavailable, err)
	}
	return db, nil
}

func driverName(driver string) (string, error) {
	switch driver {
	case "", "postgres":
		return "postgres", nil
	case "pgx":
		return "pgx", nil
	default:
		return "", fmt.Errorf("unsupported database driver %q", driver)
	}
}

// Zero values keep the database/sql defaults.
func configurePool(db *sql.DB, cfg config.DatabaseConfig) {
	if cfg.MaxOpenConns > 0 {
		db.SetMaxOpenConns(cfg.MaxOpenConns)
	}
	if cfg.MaxIdleConns > 0 {
		db.SetMaxIdleConns(cfg.MaxIdleConns)
	}
	if cfg.ConnMaxLifetime > 0 {
		db.SetConnMaxLifetime(cfg.ConnMaxLifetime)
	}
}
