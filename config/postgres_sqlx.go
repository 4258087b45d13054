package config

import (
	"time"

	"github.com/jmoiron/sqlx"
	_ "github.com/lib/pq" // postgres driver
)

const (
	sqlxMaxOpenConns    = 16
	sqlxMaxIdleConns    = 4
	sqlxMaxConnLifetime = time.Hour
	sqlxMaxConnIdleTime = 5 * time.Minute
)

// PostgresSQLXConfig opens a *sqlx.DB against PostgresDSN via lib/pq and
// applies pool tuning.
func PostgresSQLXConfig() (*sqlx.DB, error) {
	db, err := sqlx.Open("postgres", PostgresDSN())
	if err != nil {
		return nil, err
	}

	db.SetMaxOpenConns(sqlxMaxOpenConns)
	db.SetMaxIdleConns(sqlxMaxIdleConns)
	db.SetConnMaxLifetime(sqlxMaxConnLifetime)
	db.SetConnMaxIdleTime(sqlxMaxConnIdleTime)

	return db, nil
}
