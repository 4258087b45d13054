// Package config provides database configuration helpers for PostgreSQL
// connections backing the event store.
//
// It builds a DSN from environment variables and offers pre-tuned
// constructors for each of the three supported driver libraries (pgx
// pool, database/sql, sqlx), mirroring the pool-sizing choices a
// production deployment and its test suite need separately.
package config
