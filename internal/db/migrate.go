package db

import (
	"embed"
	"errors"
	"fmt"
	"log/slog"

	"github.com/golang-migrate/migrate/v4"
	_ "github.com/golang-migrate/migrate/v4/database/postgres"
	"github.com/golang-migrate/migrate/v4/source/iofs"
	"gorm.io/gorm"

	"weatherlog/internal/config"
	"weatherlog/internal/model"
)

//go:embed migrations/*.sql
var migrationsFS embed.FS

// Prepare brings the schema up to date. Postgres uses the embedded SQL
// migrations; other drivers fall back to GORM's AutoMigrate. With RESET_DB set
// every table is dropped first.
func Prepare(db *gorm.DB, cfg *config.Config, logger *slog.Logger) error {
	usesMigrations := cfg.DBMigrate && (cfg.DBDriver == "postgres" || cfg.DBDriver == "postgresql")

	if cfg.ResetDB {
		logger.Warn("RESET_DB set, dropping all tables")
		if usesMigrations {
			if err := runMigrations(cfg.MigrationURL(), func(m *migrate.Migrate) error { return m.Down() }); err != nil {
				return fmt.Errorf("reset database: %w", err)
			}
		} else if err := DropAll(db); err != nil {
			return fmt.Errorf("reset database: %w", err)
		}
	}

	if usesMigrations {
		if err := runMigrations(cfg.MigrationURL(), func(m *migrate.Migrate) error { return m.Up() }); err != nil {
			return fmt.Errorf("run migrations: %w", err)
		}
		logger.Info("database migrations applied")
		return nil
	}

	if err := AutoMigrate(db); err != nil {
		return fmt.Errorf("auto migrate: %w", err)
	}
	logger.Info("database schema auto-migrated", slog.String("driver", cfg.DBDriver))
	return nil
}

// AutoMigrate creates or updates the tables from the GORM models.
func AutoMigrate(db *gorm.DB) error {
	return db.AutoMigrate(&model.User{}, &model.WeatherRecord{})
}

// DropAll removes every application table, children first.
func DropAll(db *gorm.DB) error {
	return db.Migrator().DropTable(&model.WeatherRecord{}, &model.User{})
}

func runMigrations(dbURL string, step func(m *migrate.Migrate) error) error {
	source, err := iofs.New(migrationsFS, "migrations")
	if err != nil {
		return fmt.Errorf("create migrations source: %w", err)
	}

	m, err := migrate.NewWithSourceInstance("iofs", source, dbURL)
	if err != nil {
		return fmt.Errorf("create migrate instance: %w", err)
	}
	defer m.Close()

	if err := step(m); err != nil && !errors.Is(err, migrate.ErrNoChange) {
		return err
	}
	return nil
}
