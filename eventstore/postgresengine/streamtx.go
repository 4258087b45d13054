package postgresengine

import (
	"context"
	"errors"
	"time"

	"github.com/doug-martin/goqu/v9"
	"github.com/google/uuid"

	"github.com/streamstore-go/streamstore/eventstore"
	"github.com/streamstore-go/streamstore/eventstore/postgresengine/internal/adapters"
)

// BeginStreamTx opens the transaction the append and soft-delete engines
// need and locks the stream's row (if any) with SELECT ... FOR UPDATE, so
// two concurrent appends to the same stream serialize instead of racing
// on version allocation. It does not create a row: a stream with no
// existing row reports Exists()==false, CurrentVersion()==-1.
func (d *Driver) BeginStreamTx(ctx context.Context, canonical, original string) (eventstore.StreamTx, error) {
	tx, err := d.db.BeginTx(ctx)
	if err != nil {
		return nil, errors.Join(ErrBeginTxFailed, err)
	}

	sqlQuery, _, err := d.dialect().
		From(d.streamsTableName).
		Select(colIDOriginal, colCurrentVersion, colCurrentPos).
		Where(goqu.C(colCanonicalID).Eq(goqu.V(canonical))).
		ToSQL()
	if err != nil {
		_ = tx.Rollback(ctx)
		return nil, errors.Join(ErrBuildingQueryFailed, err)
	}

	sqlQuery += " FOR UPDATE"

	rows, err := d.runQuery(ctx, tx, logActionBeginStreamTx, sqlQuery)
	if err != nil {
		_ = tx.Rollback(ctx)
		return nil, err
	}

	stx := &streamTx{
		driver:    d,
		tx:        tx,
		canonical: canonical,
		original:  original,
		version:   eventstore.StreamEnd,
		position:  eventstore.PositionEnd,
	}

	if rows.Next() {
		var storedOriginal string
		var version, position int64

		if scanErr := rows.Scan(&storedOriginal, &version, &position); scanErr != nil {
			d.closeRows(rows)
			_ = tx.Rollback(ctx)
			return nil, errors.Join(ErrScanningRowFailed, scanErr)
		}

		stx.exists = true
		stx.storedOriginal = storedOriginal
		stx.version = eventstore.StreamVersion(version)
		stx.position = eventstore.Position(position)
	}

	d.closeRows(rows)

	return stx, nil
}

// streamTx is the postgres-backed eventstore.StreamTx: one open DB
// transaction plus the stream head observed when it started.
type streamTx struct {
	driver *Driver
	tx     adapters.DBTx

	canonical string
	original  string

	exists         bool
	storedOriginal string
	version        eventstore.StreamVersion
	position       eventstore.Position

	done bool
}

func (s *streamTx) Exists() bool { return s.exists }

func (s *streamTx) Original() string {
	if !s.exists {
		return ""
	}
	return s.storedOriginal
}

func (s *streamTx) CurrentVersion() eventstore.StreamVersion { return s.version }

func (s *streamTx) CurrentPosition() eventstore.Position { return s.position }

// ExistingMessageIDsFrom returns, in ascending version order, the message
// ids already stored starting at from, up to count of them (spec §4.2's
// idempotency check).
func (s *streamTx) ExistingMessageIDsFrom(ctx context.Context, from eventstore.StreamVersion, count int) ([]uuid.UUID, error) {
	sqlQuery, _, err := s.driver.dialect().
		From(s.driver.messagesTableName).
		Select(colMessageID).
		Where(
			goqu.C(colCanonicalID).Eq(goqu.V(s.canonical)),
			goqu.C(colStreamVersion).Gte(goqu.V(int64(from))),
		).
		Order(goqu.I(colStreamVersion).Asc()).
		Limit(uint(count)). //nolint:gosec
		ToSQL()
	if err != nil {
		return nil, errors.Join(ErrBuildingQueryFailed, err)
	}

	rows, err := s.driver.runQuery(ctx, s.tx, logActionReadStream, sqlQuery)
	if err != nil {
		return nil, err
	}
	defer s.driver.closeRows(rows)

	var ids []uuid.UUID
	for rows.Next() {
		var id uuid.UUID
		if scanErr := rows.Scan(&id); scanErr != nil {
			return nil, errors.Join(ErrScanningRowFailed, scanErr)
		}
		ids = append(ids, id)
	}

	return ids, nil
}

// InsertMessages inserts rows starting at startVersion, creating the
// streams row on first insert or updating its head otherwise, and
// allocates one monotonic global position per row via the shared
// sequence.
func (s *streamTx) InsertMessages(
	ctx context.Context,
	startVersion eventstore.StreamVersion,
	rows []eventstore.Message,
	createdAtUTC time.Time,
) (eventstore.StreamVersion, eventstore.Position, error) {
	newVersion := startVersion
	newPosition := s.position

	for i, msg := range rows {
		version := startVersion + eventstore.StreamVersion(i)

		pos, err := s.insertOneMessage(ctx, version, msg, createdAtUTC)
		if err != nil {
			return s.version, s.position, err
		}

		newVersion = version
		newPosition = pos
	}

	if err := s.upsertStreamHead(ctx, newVersion, newPosition); err != nil {
		return s.version, s.position, err
	}

	s.exists = true
	s.version = newVersion
	s.position = newPosition

	return newVersion, newPosition, nil
}

func (s *streamTx) insertOneMessage(ctx context.Context, version eventstore.StreamVersion, msg eventstore.Message, createdAtUTC time.Time) (eventstore.Position, error) {
	return insertMessageRow(ctx, s.driver, s.tx, s.canonical, version, msg, createdAtUTC)
}

func (s *streamTx) upsertStreamHead(ctx context.Context, version eventstore.StreamVersion, position eventstore.Position) error {
	return upsertStreamRow(ctx, s.driver, s.tx, s.canonical, s.original, s.exists, version, position)
}

// SoftDelete removes every message row of the stream; the streams row,
// and therefore the canonical identity, persists (spec §3).
func (s *streamTx) SoftDelete(ctx context.Context) error {
	sqlQuery, _, err := s.driver.dialect().
		Delete(s.driver.messagesTableName).
		Where(goqu.C(colCanonicalID).Eq(goqu.V(s.canonical))).
		ToSQL()
	if err != nil {
		return errors.Join(ErrBuildingQueryFailed, err)
	}

	if _, err = s.driver.runExec(ctx, s.tx, logActionDeleteMessage, sqlQuery); err != nil {
		return err
	}

	resetVersion := eventstore.StreamEnd
	resetPosition := eventstore.PositionEnd

	if err = s.upsertStreamHead(ctx, resetVersion, resetPosition); err != nil {
		return err
	}

	s.version = resetVersion
	s.position = resetPosition

	return nil
}

// AppendAuditMessage appends msg to a different canonical stream (the
// $deleted system stream) within this same transaction.
func (s *streamTx) AppendAuditMessage(ctx context.Context, canonical, original string, msg eventstore.Message, createdAtUTC time.Time) error {
	return appendAuditWithinTx(ctx, s.driver, s.tx, canonical, original, msg, createdAtUTC)
}

func (s *streamTx) Commit(ctx context.Context) error {
	if s.done {
		return nil
	}
	s.done = true

	if err := s.tx.Commit(ctx); err != nil {
		return errors.Join(ErrCommitFailed, err)
	}

	return nil
}

func (s *streamTx) Rollback(ctx context.Context) error {
	if s.done {
		return nil
	}
	s.done = true

	return s.tx.Rollback(ctx)
}
