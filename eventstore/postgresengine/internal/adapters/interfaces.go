package adapters

import "context"

// DBAdapter defines the interface for database operations needed by the
// stream store driver: ad-hoc statements outside a transaction (schema
// creation, head-position reads) plus the ability to open a transaction
// for the append/delete engines, which need several statements to commit
// or roll back atomically.
type DBAdapter interface {
	Query(ctx context.Context, query string) (DBRows, error)
	Exec(ctx context.Context, query string) (DBResult, error)
	BeginTx(ctx context.Context) (DBTx, error)
}

// DBTx defines the interface for a single database transaction. Every
// statement issued through it participates in the same transaction until
// Commit or Rollback is called.
type DBTx interface {
	Query(ctx context.Context, query string) (DBRows, error)
	Exec(ctx context.Context, query string) (DBResult, error)
	Commit(ctx context.Context) error
	Rollback(ctx context.Context) error
}

// DBRows defines the interface for query result rows.
type DBRows interface {
	Next() bool
	Scan(dest ...any) error
	Close() error
}

// DBResult defines the interface for execution results.
type DBResult interface {
	RowsAffected() (int64, error)
}

// stdRows wraps standard library *sql.Rows to implement DBRows. Shared by
// the sql.DB and sqlx.DB adapters, which both hand back *sql.Rows.
type stdRows struct {
	rows rowScanner
}

type rowScanner interface {
	Next() bool
	Scan(dest ...any) error
	Close() error
}

func (s *stdRows) Next() bool { return s.rows.Next() }

func (s *stdRows) Scan(dest ...any) error { return s.rows.Scan(dest...) }

func (s *stdRows) Close() error { return s.rows.Close() }

// stdResult wraps standard library sql.Result to implement DBResult.
type stdResult struct {
	result rowsAffecter
}

type rowsAffecter interface {
	RowsAffected() (int64, error)
}

func (s *stdResult) RowsAffected() (int64, error) { return s.result.RowsAffected() }
