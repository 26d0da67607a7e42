// Package database opens the sqlite database shared by the topic store and
// the plugins' settings tables.
package database

import (
	"fmt"
	stdlog "log"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// Open connects to the sqlite database at path. Queries are logged through
// zerolog: slow queries and errors at warn, everything at debug level.
func Open(path string) (*gorm.DB, error) {
	db, err := gorm.Open(sqlite.Open(path), &gorm.Config{
		Logger: newLogger(log.With().Str("component", "database").Logger()),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	log.Debug().Str("path", path).Msg("database opened")
	return db, nil
}

// Close releases the underlying connection pool.
func Close(db *gorm.DB) error {
	sqlDB, err := db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}

func newLogger(l zerolog.Logger) logger.Interface {
	level := logger.Warn
	if zerolog.GlobalLevel() <= zerolog.DebugLevel {
		level = logger.Info
	}

	return logger.New(stdlog.New(l, "", 0), logger.Config{
		SlowThreshold:             200 * time.Millisecond,
		LogLevel:                  level,
		IgnoreRecordNotFoundError: true,
		Colorful:                  false,
	})
}
