package database

import (
	"context"
	"database/sql"
	"embed"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"

	"github.com/golang-migrate/migrate/v4"
	pgxv5 "github.com/golang-migrate/migrate/v4/database/pgx/v5"
	"github.com/golang-migrate/migrate/v4/source/iofs"
	_ "github.com/jackc/pgx/v5/stdlib"

	"github.com/rickgao/channel-console/internal/config"
)

//go:embed migrations/*.sql
var migrationsFS embed.FS

// MigrationSource returns the embedded journal schema migrations.
func MigrationSource() (fs.FS, error) {
	return fs.Sub(migrationsFS, "migrations")
}

// Migrate applies all pending journal migrations and returns the schema
// version afterwards.
func Migrate(ctx context.Context, cfg config.DatabaseConfig, logger *slog.Logger) (uint, error) {
	if logger == nil {
		logger = slog.Default()
	}

	sqlDB, err := sql.Open("pgx", BuildConnString(cfg))
	if err != nil {
		return 0, fmt.Errorf("open sql.DB for migrations: %w", err)
	}
	defer sqlDB.Close()

	if err := sqlDB.PingContext(ctx); err != nil {
		return 0, fmt.Errorf("ping database: %w", err)
	}

	src, err := MigrationSource()
	if err != nil {
		return 0, fmt.Errorf("open migrations: %w", err)
	}
	sourceDriver, err := iofs.New(src, ".")
	if err != nil {
		return 0, fmt.Errorf("create migration source driver: %w", err)
	}

	dbDriver, err := pgxv5.WithInstance(sqlDB, &pgxv5.Config{})
	if err != nil {
		return 0, fmt.Errorf("create migration db driver: %w", err)
	}

	m, err := migrate.NewWithInstance("iofs", sourceDriver, "pgx5", dbDriver)
	if err != nil {
		return 0, fmt.Errorf("create migrate instance: %w", err)
	}
	m.Log = &migrationLogger{logger: logger}

	if err := m.Up(); err != nil && !errors.Is(err, migrate.ErrNoChange) {
		return 0, fmt.Errorf("apply migrations: %w", err)
	}

	version, dirty, err := m.Version()
	if err != nil {
		return 0, fmt.Errorf("read schema version: %w", err)
	}
	if dirty {
		return version, fmt.Errorf("schema version %d is dirty", version)
	}

	logger.Info("journal schema ready", "version", version)
	return version, nil
}

// migrationLogger adapts slog to migrate.Logger.
type migrationLogger struct {
	logger *slog.Logger
}

func (l *migrationLogger) Printf(format string, v ...any) {
	l.logger.Debug(fmt.Sprintf(format, v...), "component", "migrate")
}

func (l *migrationLogger) Verbose() bool {
	return l.logger.Enabled(context.Background(), slog.LevelDebug)
}
