package db

import (
	"database/sql"
	"fmt"
	"regexp"
	"time"

	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"stocksignal/internal/config"
)

type DB struct {
	Gorm *gorm.DB
	SQL  *sql.DB
}

// Open connects to postgres with the pool limits from config. Gorm's NowFunc
// is pinned to UTC so bar dates and trade timestamps never depend on the
// host timezone.
func Open(cfg config.DBConfig) (*DB, error) {
	gdb, err := gorm.Open(postgres.Open(cfg.DSN), &gorm.Config{
		Logger:  logger.Default.LogMode(logger.Silent),
		NowFunc: func() time.Time { return time.Now().UTC() },
	})
	if err != nil {
		return nil, err
	}

	sqldb, err := gdb.DB()
	if err != nil {
		return nil, err
	}

	sqldb.SetMaxOpenConns(cfg.MaxOpenConns)
	sqldb.SetMaxIdleConns(cfg.MaxIdleConns)
	sqldb.SetConnMaxLifetime(cfg.ConnMaxLifetime)
	sqldb.SetConnMaxIdleTime(cfg.ConnMaxIdleTime)

	return &DB{Gorm: gdb, SQL: sqldb}, nil
}

func Close(db *DB) error {
	if db == nil || db.SQL == nil {
		return nil
	}
	return db.SQL.Close()
}

var tzNamePattern = regexp.MustCompile(`^[A-Za-z0-9_/+-]+$`)

// SetTimezone sets the session timezone. SET TIME ZONE takes no bind
// parameters, so the name is validated before interpolation.
func SetTimezone(db *DB, tz string) error {
	if tz == "" {
		return nil
	}
	if !tzNamePattern.MatchString(tz) {
		return fmt.Errorf("invalid timezone name %q", tz)
	}
	_, err := db.SQL.Exec("SET TIME ZONE '" + tz + "'")
	return err
}
