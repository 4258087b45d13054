package eventstore

import (
	"context"
	"time"

	"github.com/google/uuid"
)

// Driver is the storage driver contract (spec §6.2): an abstract contract
// over a relational backend capable of beginning a transaction, executing
// the named append/read/delete operations, and streaming rows.
//
// The append/read/delete engines (C4/C5/C6) compose these primitives; they
// never build SQL themselves. A concrete PostgreSQL implementation lives
// in the postgresengine subpackage; a deterministic in-memory
// implementation for tests lives in the memdriver subpackage.
type Driver interface {
	// CreateSchema creates whatever tables/sequences/indexes the driver
	// needs. It is not part of the hot path; callers run it once at
	// startup or via a migration step.
	CreateSchema(ctx context.Context) error

	// BeginStreamTx starts the single transaction the append and
	// soft-delete engines need: it locks the stream's metadata row for
	// canonical if one exists, or prepares to create one on first insert,
	// and reports its current head. It must not create a row merely by
	// being called; StreamTx.Exists reports the row's state as observed
	// at the start of this transaction, before any write this
	// transaction performs.
	BeginStreamTx(ctx context.Context, canonical, original string) (StreamTx, error)

	// ReadStreamPage returns up to count+1 rows for canonical starting at
	// from in the given direction (the "one extra row" look-ahead, spec
	// §4.3); prefetch controls whether payload/metadata are materialized.
	// found is false iff the stream has no metadata row at all.
	ReadStreamPage(
		ctx context.Context,
		canonical string,
		from StreamVersion,
		count int,
		dir Direction,
		prefetch bool,
	) (rows []StoredMessage, lastVersion StreamVersion, lastPosition Position, found bool, err error)

	// ReadAllPage returns up to count+1 rows from the global log starting
	// at from (exclusive) in the given direction.
	ReadAllPage(
		ctx context.Context,
		from Position,
		count int,
		dir Direction,
		prefetch bool,
	) (rows []StoredMessage, err error)

	// ReadHeadPosition returns the largest position currently committed,
	// or PositionEnd (-1) if the store is empty.
	ReadHeadPosition(ctx context.Context) (Position, error)

	// DeleteMessage removes the one message identified by (canonical,
	// messageID). If and only if a row was removed, it also appends
	// auditMessage to the audit stream (auditCanonical, auditOriginal) in
	// the same atomic operation. removed is false, with no audit event,
	// when no such message existed.
	DeleteMessage(
		ctx context.Context,
		canonical string,
		messageID uuid.UUID,
		auditCanonical, auditOriginal string,
		auditMessage Message,
		createdAtUTC time.Time,
	) (removed bool, err error)

	// ReadMessageData fetches the payload/metadata for one message,
	// serving the lazy-read path when a page was read with prefetch=false.
	ReadMessageData(ctx context.Context, canonical string, messageID uuid.UUID) (payloadJSON, metadataJSON []byte, err error)

	// Close releases the driver's underlying resources. It must be
	// idempotent and must not cancel in-flight operations (spec §4.5).
	Close(ctx context.Context) error
}

// StreamTx is the single transaction the append engine (C4) and the
// soft-delete engine (C6) require: version allocation, the idempotency
// check, row insertion, and (for delete) the stream wipe and its audit
// event all happen inside one StreamTx.
type StreamTx interface {
	// Exists reports whether the stream has a metadata row at all. A
	// stream with Exists()==true and CurrentVersion()==-1 is an empty
	// (metadata-only) stream, distinct from one that never existed.
	Exists() bool

	// Original returns the id_original stored against this canonical key
	// the first time the stream row was created, or "" if no row existed
	// when this transaction began. The append engine uses
	// this to detect a canonical-id collision between two different
	// caller-supplied names (spec §4.2 "StreamDeleted").
	Original() string

	// CurrentVersion is the highest assigned stream_version, or -1 if the
	// stream does not exist or exists with no messages.
	CurrentVersion() StreamVersion

	// CurrentPosition is the highest position present in the stream, or
	// -1 under the same conditions as CurrentVersion.
	CurrentPosition() Position

	// ExistingMessageIDsFrom returns, in ascending version order, the
	// message ids already stored starting at from_version, up to count
	// of them. Used by the append engine's idempotency check (spec §4.2).
	ExistingMessageIDsFrom(ctx context.Context, from StreamVersion, count int) ([]uuid.UUID, error)

	// InsertMessages inserts rows starting at startVersion, allocating one
	// monotonic global position per row, and returns the new stream head.
	InsertMessages(ctx context.Context, startVersion StreamVersion, rows []Message, createdAtUTC time.Time) (newVersion StreamVersion, newPosition Position, err error)

	// SoftDelete removes every message row of the stream (metadata row
	// may persist; spec §3 "a soft-deleted stream has no messages but its
	// metadata row may persist").
	SoftDelete(ctx context.Context) error

	// AppendAuditMessage appends msg to a different canonical stream
	// (the $deleted system stream) within this same transaction, so the
	// mutation and its audit event commit atomically.
	AppendAuditMessage(ctx context.Context, canonical, original string, msg Message, createdAtUTC time.Time) error

	Commit(ctx context.Context) error
	Rollback(ctx context.Context) error
}
