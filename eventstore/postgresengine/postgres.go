package postgresengine

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/doug-martin/goqu/v9"
	_ "github.com/doug-martin/goqu/v9/dialect/postgres" // driver import
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/jmoiron/sqlx"

	"github.com/streamstore-go/streamstore/eventstore/postgresengine/internal/adapters"
)

const (
	dialectPostgres = "postgres"

	logMsgBuildQueryFailed  = "failed to build sql query"
	logMsgDBQueryFailed     = "database query execution failed"
	logMsgDBExecFailed      = "database execution failed"
	logMsgCloseRowsFailed   = "failed to close database rows"
	logMsgScanRowFailed     = "failed to scan database row"
	logMsgSQLExecuted       = "executed sql for: "
	logMsgOperation         = "eventstore driver operation: "
	logAttrError            = "error"
	logAttrQuery            = "query"
	logAttrDurationMS       = "duration_ms"
	logAttrCanonicalStream  = "canonical_stream"
	logAttrMessageCount     = "message_count"
	logActionReadStream     = "read_stream"
	logActionReadAll        = "read_all"
	logActionBeginStreamTx  = "begin_stream_tx"
	logActionInsertMessages = "insert_messages"
	logActionDeleteMessage  = "delete_message"
)

// Errors returned by the PostgreSQL driver. Drivers wrap backend-specific
// faults; the event-store core never interprets these beyond the
// eventstore sentinel errors it already expects via errors.Is/As
// (eventstore.ErrWrongExpectedVersion, eventstore.ErrStreamDeleted).
var (
	// ErrNilDatabaseConnection is returned by the constructors when given
	// a nil database handle.
	ErrNilDatabaseConnection = errors.New("database connection must not be nil")

	// ErrEmptyTableName is returned by WithStreamsTableName/
	// WithMessagesTableName when given an empty name.
	ErrEmptyTableName = errors.New("table name must not be empty")

	// ErrCreateSchemaFailed wraps a failure to create the streams/messages
	// tables or the position sequence.
	ErrCreateSchemaFailed = errors.New("failed to create event store schema")

	// ErrBuildingQueryFailed wraps a goqu SQL-generation failure.
	ErrBuildingQueryFailed = errors.New("failed to build sql query")

	// ErrQueryingFailed wraps a failed SELECT.
	ErrQueryingFailed = errors.New("querying event store failed")

	// ErrExecutingFailed wraps a failed INSERT/UPDATE/DELETE.
	ErrExecutingFailed = errors.New("executing event store statement failed")

	// ErrScanningRowFailed wraps a failed row scan.
	ErrScanningRowFailed = errors.New("scanning database row failed")

	// ErrBeginTxFailed wraps a failure to open a transaction.
	ErrBeginTxFailed = errors.New("beginning transaction failed")

	// ErrCommitFailed wraps a failed transaction commit.
	ErrCommitFailed = errors.New("committing transaction failed")
)

// Driver is the PostgreSQL implementation of eventstore.Driver (spec
// §6.2). Construct it with NewPostgresDriverFromPGXPool,
// NewPostgresDriverFromSQLDB, NewPostgresDriverFromSQLX, or
// NewPostgresDriverWithReplica.
type Driver struct {
	db adapters.DBAdapter

	streamsTableName  string
	messagesTableName string
	positionSeqName   string

	logger           Logger
	contextualLogger ContextualLogger
}

// NewPostgresDriverFromPGXPool builds a Driver backed by a pgxpool.Pool.
func NewPostgresDriverFromPGXPool(pool *pgxpool.Pool, options ...Option) (*Driver, error) {
	if pool == nil {
		return nil, ErrNilDatabaseConnection
	}

	return newDriver(adapters.NewPGXAdapter(pool), options...)
}

// NewPostgresDriverWithReplica builds a Driver whose read-only statements
// (ReadStreamPage, ReadAllPage, ReadHeadPosition) may be routed to replica
// instead of pool. Transactional operations (append, delete) always use
// the primary pool, since BeginStreamTx locks rows with SELECT ... FOR
// UPDATE.
func NewPostgresDriverWithReplica(pool, replica *pgxpool.Pool, options ...Option) (*Driver, error) {
	if pool == nil || replica == nil {
		return nil, ErrNilDatabaseConnection
	}

	return newDriver(adapters.NewPGXAdapterWithReplica(pool, replica), options...)
}

// NewPostgresDriverFromSQLDB builds a Driver backed by database/sql.
func NewPostgresDriverFromSQLDB(db *sql.DB, options ...Option) (*Driver, error) {
	if db == nil {
		return nil, ErrNilDatabaseConnection
	}

	return newDriver(adapters.NewSQLAdapter(db), options...)
}

// NewPostgresDriverFromSQLX builds a Driver backed by sqlx.DB.
func NewPostgresDriverFromSQLX(db *sqlx.DB, options ...Option) (*Driver, error) {
	if db == nil {
		return nil, ErrNilDatabaseConnection
	}

	return newDriver(adapters.NewSQLXAdapter(db), options...)
}

func newDriver(db adapters.DBAdapter, options ...Option) (*Driver, error) {
	d := &Driver{
		db:                db,
		streamsTableName:  defaultStreamsTableName,
		messagesTableName: defaultMessagesTableName,
		positionSeqName:   defaultPositionSeqName,
	}

	for _, option := range options {
		if err := option(d); err != nil {
			return nil, err
		}
	}

	return d, nil
}

// Close is a no-op: the Driver does not own the pool/db handle it was
// built from, the caller does.
func (d *Driver) Close(_ context.Context) error {
	return nil
}

func (d *Driver) dialect() goqu.DialectWrapper {
	return goqu.Dialect(dialectPostgres)
}

// sqlExecer is satisfied by both adapters.DBAdapter and adapters.DBTx, so
// the query-building helpers below work identically inside or outside a
// transaction.
type sqlExecer interface {
	Query(ctx context.Context, query string) (adapters.DBRows, error)
	Exec(ctx context.Context, query string) (adapters.DBResult, error)
}

func (d *Driver) runQuery(ctx context.Context, exec sqlExecer, action, sqlQuery string) (adapters.DBRows, error) {
	start := time.Now()
	rows, err := exec.Query(ctx, sqlQuery)
	d.logQueryWithDuration(ctx, sqlQuery, action, time.Since(start))

	if err != nil {
		d.logError(ctx, logMsgDBQueryFailed, err, logAttrQuery, sqlQuery)
		return nil, errors.Join(ErrQueryingFailed, err)
	}

	return rows, nil
}

func (d *Driver) runExec(ctx context.Context, exec sqlExecer, action, sqlQuery string) (adapters.DBResult, error) {
	start := time.Now()
	result, err := exec.Exec(ctx, sqlQuery)
	d.logQueryWithDuration(ctx, sqlQuery, action, time.Since(start))

	if err != nil {
		d.logError(ctx, logMsgDBExecFailed, err, logAttrQuery, sqlQuery)
		return nil, errors.Join(ErrExecutingFailed, err)
	}

	return result, nil
}

func (d *Driver) closeRows(rows adapters.DBRows) {
	if err := rows.Close(); err != nil {
		if d.logger != nil {
			d.logger.Warn(logMsgCloseRowsFailed, logAttrError, err.Error())
		}
	}
}
