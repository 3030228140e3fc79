package database

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"regexp"

	"promptdoumi/internal/config"
	"promptdoumi/internal/middleware"

	// registers the "pgx" database/sql driver
	_ "github.com/jackc/pgx/v5/stdlib"
)

var dbNamePattern = regexp.MustCompile(`^[A-Za-z_][A-Za-z0-9_]*$`)

// EnsureDatabase creates the configured Postgres database if it does not
// exist yet. It connects to the maintenance database "postgres" for this.
// SQLite databases are created on open, so it is a no-op for them.
func EnsureDatabase(ctx context.Context, cfg *config.Config) error {
	if cfg.DBDriver == "sqlite" {
		return nil
	}
	if !dbNamePattern.MatchString(cfg.DBName) {
		return fmt.Errorf("invalid database name %q", cfg.DBName)
	}

	admin := *cfg
	admin.DBName = "postgres"

	conn, err := sql.Open("pgx", PostgresDSN(&admin))
	if err != nil {
		return fmt.Errorf("open maintenance database: %w", err)
	}
	defer func() { _ = conn.Close() }()

	var exists bool
	err = conn.QueryRowContext(ctx,
		"SELECT EXISTS(SELECT 1 FROM pg_database WHERE datname = $1)", cfg.DBName,
	).Scan(&exists)
	if err != nil {
		return fmt.Errorf("check database %s: %w", cfg.DBName, err)
	}
	if exists {
		return nil
	}

	// identifiers cannot be bound as parameters; the name is validated above
	if _, err := conn.ExecContext(ctx, fmt.Sprintf(`CREATE DATABASE "%s"`, cfg.DBName)); err != nil {
		return fmt.Errorf("create database %s: %w", cfg.DBName, err)
	}
	middleware.Logger.InfoContext(ctx, "Database created", slog.String("name", cfg.DBName))
	return nil
}
