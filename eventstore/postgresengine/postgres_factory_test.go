package postgresengine_test

import (
	"context"
	"testing"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/jmoiron/sqlx"
	"github.com/stretchr/testify/assert"

	"github.com/streamstore-go/streamstore/eventstore/postgresengine"
)

func Test_NewPostgresDriverFromPGXPool_RejectsNilPool(t *testing.T) {
	driver, err := postgresengine.NewPostgresDriverFromPGXPool(nil)

	assert.Nil(t, driver)
	assert.ErrorIs(t, err, postgresengine.ErrNilDatabaseConnection)
}

func Test_NewPostgresDriverWithReplica_RejectsNilPoolOrReplica(t *testing.T) {
	var pool *pgxpool.Pool

	driver, err := postgresengine.NewPostgresDriverWithReplica(pool, pool)

	assert.Nil(t, driver)
	assert.ErrorIs(t, err, postgresengine.ErrNilDatabaseConnection)
}

func Test_NewPostgresDriverFromSQLDB_RejectsNilDB(t *testing.T) {
	driver, err := postgresengine.NewPostgresDriverFromSQLDB(nil)

	assert.Nil(t, driver)
	assert.ErrorIs(t, err, postgresengine.ErrNilDatabaseConnection)
}

func Test_NewPostgresDriverFromSQLX_RejectsNilDB(t *testing.T) {
	var db *sqlx.DB

	driver, err := postgresengine.NewPostgresDriverFromSQLX(db)

	assert.Nil(t, driver)
	assert.ErrorIs(t, err, postgresengine.ErrNilDatabaseConnection)
}

func Test_WithStreamsTableName_RejectsEmptyName(t *testing.T) {
	cfg, cfgErr := pgxpool.ParseConfig("postgres://u:p@localhost:5432/db")
	assert.NoError(t, cfgErr)

	pool, poolErr := pgxpool.NewWithConfig(context.Background(), cfg)
	assert.NoError(t, poolErr)
	defer pool.Close()

	driver, err := postgresengine.NewPostgresDriverFromPGXPool(pool, postgresengine.WithStreamsTableName(""))

	assert.Nil(t, driver)
	assert.ErrorIs(t, err, postgresengine.ErrEmptyTableName)
}

func Test_WithMessagesTableName_RejectsEmptyName(t *testing.T) {
	cfg, cfgErr := pgxpool.ParseConfig("postgres://u:p@localhost:5432/db")
	assert.NoError(t, cfgErr)

	pool, poolErr := pgxpool.NewWithConfig(context.Background(), cfg)
	assert.NoError(t, poolErr)
	defer pool.Close()

	driver, err := postgresengine.NewPostgresDriverFromPGXPool(pool, postgresengine.WithMessagesTableName(""))

	assert.Nil(t, driver)
	assert.ErrorIs(t, err, postgresengine.ErrEmptyTableName)
}
