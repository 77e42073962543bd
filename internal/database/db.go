package database

import (
	"context"
	"fmt"
	"path/filepath"
	"strings"

	"purchaseledger/internal/config"
	"purchaseledger/internal/model"
	"purchaseledger/internal/repository"

	"github.com/glebarez/sqlite"
	"github.com/rs/zerolog/log"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// NewConnection opens the configured database and migrates the core models.
func NewConnection(cfg *config.Config) (*gorm.DB, error) {
	var dialector gorm.Dialector
	switch cfg.DBDriver {
	case config.DriverPostgres:
		dialector = postgres.Open(cfg.DatabaseURL)
	case config.DriverSQLite, "":
		dialector = sqlite.Open(cfg.DBPath)
	default:
		return nil, fmt.Errorf("unknown DB_DRIVER %q", cfg.DBDriver)
	}

	db, err := Open(dialector)
	if err != nil {
		return nil, err
	}

	if cfg.DBDriver == config.DriverPostgres {
		sqlDB, err := db.DB()
		if err != nil {
			return nil, err
		}
		sqlDB.SetMaxOpenConns(25)
		sqlDB.SetMaxIdleConns(5)
	}
	return db, nil
}

// Open connects through an arbitrary dialector and runs AutoMigrate. SQLite
// connections are capped at one so every statement shares the same writer.
func Open(dialector gorm.Dialector) (*gorm.DB, error) {
	db, err := gorm.Open(dialector, &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		return nil, err
	}

	if dialector.Name() == "sqlite" {
		sqlDB, err := db.DB()
		if err != nil {
			return nil, err
		}
		sqlDB.SetMaxOpenConns(1)
	}

	if err := Migrate(db); err != nil {
		return nil, fmt.Errorf("auto-migrate: %w", err)
	}
	return db, nil
}

// Migrate creates or updates every table the service owns.
func Migrate(db *gorm.DB) error {
	if err := db.AutoMigrate(
		&model.Provider{},
		&model.CatalogItem{},
		&model.Purchase{},
		&model.PurchaseLine{},
		&model.CostHistory{},
	); err != nil {
		return err
	}
	return repository.NewCatalogRepository(db).BackfillNameLower(context.Background())
}

// FilePath returns the absolute path of the SQLite file backing cfg, or ""
// when there is no single database file (Postgres, in-memory SQLite).
func FilePath(cfg *config.Config) string {
	if cfg.DBDriver != config.DriverSQLite && cfg.DBDriver != "" {
		return ""
	}
	if cfg.DBPath == "" || cfg.DBPath == ":memory:" || strings.Contains(cfg.DBPath, "mode=memory") {
		return ""
	}
	abs, err := filepath.Abs(cfg.DBPath)
	if err != nil {
		log.Warn().Err(err).Str("path", cfg.DBPath).Msg("cannot resolve database path")
		return cfg.DBPath
	}
	return abs
}
