package database

import (
	"fmt"
	"log"
	"log/slog"
	"os"
	"time"

	"resenhas/pkg/config"
	"resenhas/pkg/models"

	"gorm.io/driver/postgres"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// Open connects using the configured driver, retrying while the database
// comes up, and migrates the schema.
func Open(cfg config.Config) (*gorm.DB, error) {
	var dialector gorm.Dialector
	switch cfg.DBDriver {
	case "sqlite":
		slog.Info("connecting to database", "driver", "sqlite", "path", cfg.DBPath)
		dialector = sqlite.Open(sqliteDSN(cfg.DBPath))
	default:
		slog.Info("connecting to database", "driver", "postgres", "host", cfg.DBHost, "port", cfg.DBPort, "name", cfg.DBName)
		dialector = postgres.Open(cfg.PostgresDSN())
	}

	var (
		db  *gorm.DB
		err error
	)
	for i := 0; i < cfg.DBMaxRetries; i++ {
		db, err = gorm.Open(dialector, &gorm.Config{Logger: newGormLogger()})
		if err == nil {
			break
		}
		slog.Warn("database connection attempt failed", "attempt", i+1, "max", cfg.DBMaxRetries, "err", err)
		if i < cfg.DBMaxRetries-1 {
			time.Sleep(5 * time.Second)
		}
	}
	if err != nil {
		return nil, fmt.Errorf("connect database: %w", err)
	}

	sqlDB, err := db.DB()
	if err != nil {
		return nil, fmt.Errorf("get database instance: %w", err)
	}
	if cfg.DBDriver == "sqlite" {
		sqlDB.SetMaxOpenConns(1)
	} else {
		sqlDB.SetMaxOpenConns(25)
		sqlDB.SetMaxIdleConns(10)
		sqlDB.SetConnMaxLifetime(5 * time.Minute)
	}
	if err := sqlDB.Ping(); err != nil {
		return nil, fmt.Errorf("ping database: %w", err)
	}

	if err := Migrate(db); err != nil {
		return nil, err
	}
	slog.Info("database connection established")
	return db, nil
}

// OpenSQLite opens a single-connection sqlite database with foreign keys on.
// Tests pass ":memory:" to get an isolated database.
func OpenSQLite(path string) (*gorm.DB, error) {
	db, err := gorm.Open(sqlite.Open(sqliteDSN(path)), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}
	sqlDB, err := db.DB()
	if err != nil {
		return nil, fmt.Errorf("get database instance: %w", err)
	}
	// one connection keeps a :memory: database alive and shared
	sqlDB.SetMaxOpenConns(1)
	sqlDB.SetConnMaxLifetime(0)
	if err := Migrate(db); err != nil {
		return nil, err
	}
	return db, nil
}

// Migrate creates or updates every table.
func Migrate(db *gorm.DB) error {
	if err := db.AutoMigrate(models.All()...); err != nil {
		return fmt.Errorf("database migration failed: %w", err)
	}
	return nil
}

// Ping reports whether the database answers.
func Ping(db *gorm.DB) error {
	sqlDB, err := db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Ping()
}

func sqliteDSN(path string) string {
	return path + "?_foreign_keys=on"
}

func newGormLogger() logger.Interface {
	return logger.New(
		log.New(os.Stdout, "", log.LstdFlags),
		logger.Config{
			SlowThreshold:             500 * time.Millisecond,
			LogLevel:                  logger.Warn,
			IgnoreRecordNotFoundError: true,
			Colorful:                  false,
		},
	)
}
