package config

import (
	"database/sql"
	"time"

	_ "github.com/lib/pq" // postgres driver
)

const (
	sqlMaxOpenConns    = 16
	sqlMaxIdleConns    = 4
	sqlMaxConnLifetime = time.Hour
	sqlMaxConnIdleTime = 5 * time.Minute
)

// PostgresSQLDBConfig opens a *sql.DB against PostgresDSN via lib/pq and
// applies pool tuning. It does not ping; callers decide when to verify
// connectivity.
func PostgresSQLDBConfig() (*sql.DB, error) {
	db, err := sql.Open("postgres", PostgresDSN())
	if err != nil {
		return nil, err
	}

	db.SetMaxOpenConns(sqlMaxOpenConns)
	db.SetMaxIdleConns(sqlMaxIdleConns)
	db.SetConnMaxLifetime(sqlMaxConnLifetime)
	db.SetConnMaxIdleTime(sqlMaxConnIdleTime)

	return db, nil
}
