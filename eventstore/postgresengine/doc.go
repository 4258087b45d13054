// Package postgresengine provides a PostgreSQL implementation of the
// eventstore.Driver contract.
//
// It stores two tables per configured prefix: a streams table holding one
// row per canonical stream id (its human-supplied original id, current
// version, and current position), and a messages table holding every
// appended message with a dense per-stream version and a sparse,
// monotonic, store-wide position drawn from a dedicated sequence. It
// supports three database adapters (pgx, sql.DB, sqlx) behind a common
// internal interface, and an optional replica pool for eventually
// consistent reads.
//
// Usage:
//
//	pool, _ := pgxpool.New(context.Background(), dsn)
//	driver, _ := postgresengine.NewPostgresDriverFromPGXPool(pool)
//	store, _ := eventstore.New(driver)
//
//	// With a replica pool for eventually consistent reads, plus logging.
//	driver, _ := postgresengine.NewPostgresDriverWithReplica(
//		pool,
//		replicaPool,
//		postgresengine.WithLogger(logger),
//	)
package postgresengine
