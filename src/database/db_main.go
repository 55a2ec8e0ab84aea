package database

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"bullshark/src/database/migrations"
	"bullshark/src/model"

	"github.com/sirupsen/logrus"
	"gorm.io/driver/postgres"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// MainDB is the read/write connection holding position state, the trade
// ledger and captured exceptions.
var MainDB *gorm.DB

// InitMainDB opens MainDB from env config and runs migrations.
// This should be called once at application startup.
func InitMainDB() error {
	db, err := Open(GetConfig())
	if err != nil {
		return err
	}

	// Assign to the global variable only after a successful connection.
	MainDB = db
	logrus.Info("[database] MainDB connection established")

	if err := Migrate(MainDB); err != nil {
		return err
	}
	logrus.Info("[database] MainDB migrations completed")
	return nil
}

// Open connects with the configured driver without migrating.
func Open(config Config) (*gorm.DB, error) {
	dialector, err := dialectorFor(config)
	if err != nil {
		return nil, err
	}

	db, err := gorm.Open(dialector, &gorm.Config{
		TranslateError: true,
		Logger:         logger.Default.LogMode(logger.LogLevel(config.GormLogLevel)),
	})
	if err != nil {
		return nil, fmt.Errorf("open %s database: %w", config.DBDriver, err)
	}

	sqlDB, err := db.DB()
	if err != nil {
		return nil, fmt.Errorf("get sql db from gorm: %w", err)
	}
	if config.DBDriver == DriverPostgres {
		sqlDB.SetMaxOpenConns(20)
		sqlDB.SetMaxIdleConns(10)
		sqlDB.SetConnMaxLifetime(1 * time.Hour)
	} else {
		// single writer
		sqlDB.SetMaxOpenConns(1)
	}

	return db, nil
}

func dialectorFor(config Config) (gorm.Dialector, error) {
	switch strings.ToLower(config.DBDriver) {
	case DriverPostgres:
		return postgres.Open(config.DatabaseURLMain), nil
	case DriverSQLite, "":
		path := config.DatabaseURLMain
		if dir := filepath.Dir(path); dir != "." && !strings.HasPrefix(path, "file:") {
			if err := os.MkdirAll(dir, 0o755); err != nil {
				return nil, fmt.Errorf("create database dir %s: %w", dir, err)
			}
		}
		return sqlite.Open(path), nil
	default:
		return nil, fmt.Errorf("unsupported DB_DRIVER %q", config.DBDriver)
	}
}

// Migrate creates the schema and applies pending data migrations.
func Migrate(db *gorm.DB) error {
	// Add here all models that belong to the write-side schema.
	if err := db.AutoMigrate(
		&model.PositionState{},
		&model.Trade{},
		&model.Exception{},
		&migrations.DataMigration{},
	); err != nil {
		return fmt.Errorf("failed to run migrations on MainDB: %w", err)
	}

	if err := migrations.Run(db); err != nil {
		return fmt.Errorf("failed to run data migrations on MainDB: %w", err)
	}
	return nil
}
