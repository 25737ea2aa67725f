// Package datastore opens and migrates the relational store.
package datastore

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/coastcare/coastal-alerts/internal/conf"
	"github.com/coastcare/coastal-alerts/internal/datastore/entities"
	"github.com/coastcare/coastal-alerts/internal/logger"
	"gorm.io/driver/mysql"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	gorm_logger "gorm.io/gorm/logger"
)

const slowQueryThreshold = 500 * time.Millisecond

// Open connects to the database selected by settings.Driver.
func Open(settings *conf.DatabaseSettings, log logger.Logger) (*gorm.DB, error) {
	dialector, err := dialectorFor(settings)
	if err != nil {
		return nil, err
	}

	level := gorm_logger.Warn
	if settings.Debug {
		level = gorm_logger.Info
	}

	db, err := gorm.Open(dialector, &gorm.Config{
		Logger: gorm_logger.New(gormWriter{log: log}, gorm_logger.Config{
			SlowThreshold:             slowQueryThreshold,
			LogLevel:                  level,
			IgnoreRecordNotFoundError: true,
		}),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to open %s database: %w", settings.Driver, err)
	}

	sqlDB, err := db.DB()
	if err != nil {
		return nil, fmt.Errorf("failed to get database handle: %w", err)
	}
	switch {
	case settings.Driver == conf.DriverSQLite:
		// SQLite allows a single writer.
		sqlDB.SetMaxOpenConns(1)
	case settings.MaxOpenConns > 0:
		sqlDB.SetMaxOpenConns(settings.MaxOpenConns)
	}

	log.Info("database opened",
		logger.String("driver", settings.Driver))
	return db, nil
}

func dialectorFor(settings *conf.DatabaseSettings) (gorm.Dialector, error) {
	switch settings.Driver {
	case conf.DriverSQLite:
		return sqlite.Open(sqliteDSN(settings.Path)), nil
	case conf.DriverMySQL:
		if settings.DSN == "" {
			return nil, fmt.Errorf("database.dsn is required for the mysql driver")
		}
		return mysql.Open(settings.DSN), nil
	default:
		return nil, fmt.Errorf("unsupported database driver %q", settings.Driver)
	}
}

func sqliteDSN(path string) string {
	if strings.HasPrefix(path, "file:") {
		return path
	}
	return "file:" + path + "?_foreign_keys=ON&_busy_timeout=5000&_journal_mode=WAL"
}

// Migrate creates or updates every table.
func Migrate(db *gorm.DB) error {
	if err := db.AutoMigrate(entities.All()...); err != nil {
		return fmt.Errorf("failed to migrate schema: %w", err)
	}
	return nil
}

// Ping checks that the database is reachable.
func Ping(ctx context.Context, db *gorm.DB) error {
	sqlDB, err := db.DB()
	if err != nil {
		return fmt.Errorf("failed to get database handle: %w", err)
	}
	return sqlDB.PingContext(ctx)
}

// Close releases the underlying connection pool.
func Close(db *gorm.DB) error {
	sqlDB, err := db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}

// gormWriter routes GORM's printf-style logging into the service logger.
type gormWriter struct {
	log logger.Logger
}

func (w gormWriter) Printf(format string, args ...any) {
	w.log.Warn("gorm", logger.String("detail", fmt.Sprintf(format, args...)))
}
