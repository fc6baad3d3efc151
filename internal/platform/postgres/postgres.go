// Package postgres opens the PostgreSQL pool, applies the schema and maps
// driver errors onto sentinel errors.
package postgres

import (
	"context"
	"database/sql"
	_ "embed"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5/pgconn"
	_ "github.com/jackc/pgx/v5/stdlib"

	"donorhub/internal/platform/config"
	"donorhub/pkg/platform/sentinel"
)

//go:embed schema.sql
var schema string

const (
	uniqueViolation     = "23505"
	foreignKeyViolation = "23503"
)

// Open connects with the pgx stdlib driver and verifies the connection.
func Open(ctx context.Context, cfg config.DatabaseConfig) (*sql.DB, error) {
	db, err := sql.Open("pgx", cfg.URL)
	if err != nil {
		return nil, fmt.Errorf("open postgres: %w", err)
	}
	if cfg.MaxOpenConns > 0 {
		db.SetMaxOpenConns(cfg.MaxOpenConns)
	}
	if cfg.MaxIdleConns > 0 {
		db.SetMaxIdleConns(cfg.MaxIdleConns)
	}
	if cfg.ConnMaxLifetime > 0 {
		db.SetConnMaxLifetime(cfg.ConnMaxLifetime)
	}
	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("ping postgres: %w", err)
	}
	return db, nil
}

// Migrate applies the idempotent schema.
func Migrate(ctx context.Context, db *sql.DB) error {
	if _, err := db.ExecContext(ctx, schema); err != nil {
		return fmt.Errorf("apply schema: %w", err)
	}
	return nil
}

// IsUniqueViolation reports whether err is a unique-constraint failure.
func IsUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == uniqueViolation
}

// IsForeignKeyViolation reports whether err is a referential-integrity failure.
func IsForeignKeyViolation(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == foreignKeyViolation
}

// TranslateDeleteError maps rows still referenced elsewhere to sentinel.ErrConflict.
func TranslateDeleteError(op string, err error) error {
	if err == nil {
		return nil
	}
	if IsForeignKeyViolation(err) {
		return fmt.Errorf("%s: %w", op, sentinel.ErrConflict)
	}
	return fmt.Errorf("%s: %w", op, err)
}

// TranslateWriteError maps unique violations to sentinel.ErrConflict and
// wraps everything else with op.
func TranslateWriteError(op string, err error) error {
	if err == nil {
		return nil
	}
	if IsUniqueViolation(err) {
		return fmt.Errorf("%s: %w", op, sentinel.ErrConflict)
	}
	return fmt.Errorf("%s: %w", op, err)
}

// Health pings the pool.
func Health(ctx context.Context, db *sql.DB) error {
	return db.PingContext(ctx)
}
