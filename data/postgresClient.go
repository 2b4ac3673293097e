package data

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/KotFed0t/fondos_backoffice/config"
	"github.com/golang-migrate/migrate/v4"
	"github.com/golang-migrate/migrate/v4/database/postgres"
	_ "github.com/golang-migrate/migrate/v4/source/file"
	_ "github.com/jackc/pgx/v5/stdlib" // pgx driver
	"github.com/jmoiron/sqlx"
)

const (
	connRetryDelay = time.Second
	connTimeout    = 5 * time.Second
)

// NewPostgresClient connects, applies pending migrations and panics when the
// database stays unreachable after the configured attempts.
func NewPostgresClient(cfg *config.Config) *sqlx.DB {
	db, err := connectPostgres(cfg)
	if err != nil {
		slog.Error("Postgres connection failed", slog.Int("attempts", cfg.Postgres.ConnectAttempts), slog.String("err", err.Error()))
		panic(err)
	}

	db.SetMaxOpenConns(cfg.Postgres.MaxOpenConns)
	db.SetConnMaxLifetime(time.Duration(cfg.Postgres.ConnMaxLifetime) * time.Second)
	db.SetMaxIdleConns(cfg.Postgres.MaxIdleConns)
	db.SetConnMaxIdleTime(time.Duration(cfg.Postgres.ConnMaxIdleTime) * time.Second)
	slog.Info("Postgres connected", slog.String("db", cfg.Postgres.DbName))

	version, err := migratePostgres(db, cfg.Postgres.MigrationDir)
	if err != nil {
		slog.Error("postgres migration failed", slog.String("dir", cfg.Postgres.MigrationDir), slog.String("err", err.Error()))
		panic(err)
	}
	slog.Info("postgres migrated successfully", slog.Uint64("version", uint64(version)))

	return db
}

func PostgresDSN(cfg *config.Config) string {
	return fmt.Sprintf("host=%s port=%d user=%s dbname=%s sslmode=%s password=%s",
		cfg.Postgres.Host,
		cfg.Postgres.Port,
		cfg.Postgres.User,
		cfg.Postgres.DbName,
		cfg.Postgres.SSLMode,
		cfg.Postgres.Password,
	)
}

func connectPostgres(cfg *config.Config) (*sqlx.DB, error) {
	attempts := max(cfg.Postgres.ConnectAttempts, 1)
	dsn := PostgresDSN(cfg)

	var err error
	for attempt := 1; attempt <= attempts; attempt++ {
		var db *sqlx.DB
		ctx, cancel := context.WithTimeout(context.Background(), connTimeout)
		db, err = sqlx.ConnectContext(ctx, "pgx", dsn)
		cancel()
		if err == nil {
			return db, nil
		}

		slog.Info("Postgres is trying to connect", slog.Int("attempt", attempt), slog.Int("attempts left", attempts-attempt))
		time.Sleep(connRetryDelay)
	}
	return nil, err
}

// migratePostgres applies every pending migration and returns the resulting
// schema version.
func migratePostgres(db *sqlx.DB, migrationDir string) (uint, error) {
	driver, err := postgres.WithInstance(db.DB, &postgres.Config{})
	if err != nil {
		return 0, fmt.Errorf("postgres.WithInstance: %w", err)
	}

	m, err := migrate.NewWithDatabaseInstance(fmt.Sprintf("file://%s", migrationDir), "postgres", driver)
	if err != nil {
		return 0, fmt.Errorf("migrate.NewWithDatabaseInstance: %w", err)
	}

	if err = m.Up(); err != nil && !errors.Is(err, migrate.ErrNoChange) {
		return 0, fmt.Errorf("m.Up: %w", err)
	}

	version, dirty, err := m.Version()
	if err != nil && !errors.Is(err, migrate.ErrNilVersion) {
		return 0, fmt.Errorf("m.Version: %w", err)
	}
	if dirty {
		return version, fmt.Errorf("schema version %d is dirty", version)
	}
	return version, nil
}
