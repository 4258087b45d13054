package config

import (
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
)

const (
	pgxMaxConns          = int32(16)
	pgxMinConns          = int32(2)
	pgxMaxConnLifetime   = time.Hour
	pgxMaxConnIdleTime   = 5 * time.Minute
	pgxHealthCheckPeriod = time.Minute
	pgxConnectTimeout    = 5 * time.Second
)

// PostgresPGXPoolConfig builds a pgxpool.Config from PostgresDSN, tuned
// for a single-node deployment.
func PostgresPGXPoolConfig() (*pgxpool.Config, error) {
	cfg, err := pgxpool.ParseConfig(PostgresDSN())
	if err != nil {
		return nil, err
	}

	applyPoolTuning(cfg)

	return cfg, nil
}

func applyPoolTuning(cfg *pgxpool.Config) {
	cfg.MaxConns = pgxMaxConns
	cfg.MinConns = pgxMinConns
	cfg.MaxConnLifetime = pgxMaxConnLifetime
	cfg.MaxConnIdleTime = pgxMaxConnIdleTime
	cfg.HealthCheckPeriod = pgxHealthCheckPeriod
	cfg.ConnConfig.ConnectTimeout = pgxConnectTimeout
}
