package database

import (
	"fmt"
	"sync"
	"time"

	"catalog/internal/models"

	"github.com/rs/zerolog"
	"gorm.io/driver/postgres"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"
)

// SQL drivers accepted by OpenGORM.
const (
	DriverPostgres = "postgres"
	DriverSQLite   = "sqlite"
)

var (
	migrateMu sync.Mutex
	migrated  = map[string]bool{}
)

// OpenGORM opens a GORM connection for driver and migrates the products table
// the first time a given driver/DSN pair is opened in this process.
func OpenGORM(driver, dsn string, log zerolog.Logger) (*gorm.DB, error) {
	var dialector gorm.Dialector
	switch driver {
	case DriverPostgres:
		dialector = postgres.Open(dsn)
	case DriverSQLite:
		dialector = sqlite.Open(dsn)
	default:
		return nil, fmt.Errorf("unsupported sql driver %q", driver)
	}

	db, err := gorm.Open(dialector, &gorm.Config{
		Logger: gormlogger.New(gormWriter{log: log}, gormlogger.Config{
			SlowThreshold:             200 * time.Millisecond,
			LogLevel:                  gormlogger.Warn,
			IgnoreRecordNotFoundError: true,
		}),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to connect to %s database: %w", driver, err)
	}

	if err := migrate(driver+"|"+dsn, db); err != nil {
		return nil, err
	}
	log.Info().Str("driver", driver).Msg("SQL database ready")
	return db, nil
}

func migrate(key string, db *gorm.DB) error {
	migrateMu.Lock()
	defer migrateMu.Unlock()
	if migrated[key] {
		return nil
	}
	if err := db.AutoMigrate(&models.Product{}); err != nil {
		return fmt.Errorf("failed to auto-migrate products: %w", err)
	}
	migrated[key] = true
	return nil
}

// gormWriter forwards GORM's log lines to zerolog.
type gormWriter struct {
	log zerolog.Logger
}

func (w gormWriter) Printf(format string, args ...interface{}) {
	w.log.Warn().Str("component", "gorm").Msgf(format, args...)
}
