package postgresengine

import (
	"context"
	"errors"
	"time"

	"github.com/doug-martin/goqu/v9"

	"github.com/streamstore-go/streamstore/eventstore"
	"github.com/streamstore-go/streamstore/eventstore/postgresengine/internal/adapters"
)

// insertMessageRow inserts one message row at version within tx and
// returns the position the sequence assigned it. Shared by streamTx's
// normal append path and the audit-append path below.
func insertMessageRow(
	ctx context.Context,
	d *Driver,
	tx adapters.DBTx,
	canonical string,
	version eventstore.StreamVersion,
	msg eventstore.Message,
	createdAtUTC time.Time,
) (eventstore.Position, error) {
	insertStmt := d.dialect().
		Insert(d.messagesTableName).
		Cols(colCanonicalID, colMessageID, colStreamVersion, colMessageType, colPayload, colMetadata, colCreatedAt).
		Vals(goqu.Vals{
			canonical, msg.MessageID.String(), int64(version), msg.Type,
			goqu.L("?::jsonb", string(msg.PayloadJSON)),
			goqu.L("?::jsonb", string(msg.MetadataJSON)),
			createdAtUTC,
		}).
		Returning(colPosition)

	sqlQuery, _, err := insertStmt.ToSQL()
	if err != nil {
		return eventstore.PositionEnd, errors.Join(ErrBuildingQueryFailed, err)
	}

	rows, err := d.runQuery(ctx, tx, logActionInsertMessages, sqlQuery)
	if err != nil {
		return eventstore.PositionEnd, err
	}
	defer d.closeRows(rows)

	if !rows.Next() {
		return eventstore.PositionEnd, errors.Join(ErrExecutingFailed, errors.New("insert returned no position"))
	}

	var position int64
	if scanErr := rows.Scan(&position); scanErr != nil {
		return eventstore.PositionEnd, errors.Join(ErrScanningRowFailed, scanErr)
	}

	return eventstore.Position(position), nil
}

// upsertStreamRow creates the streams row on first insert into canonical
// or updates its head otherwise.
func upsertStreamRow(
	ctx context.Context,
	d *Driver,
	tx adapters.DBTx,
	canonical, original string,
	exists bool,
	version eventstore.StreamVersion,
	position eventstore.Position,
) error {
	var sqlQuery string
	var err error

	if exists {
		sqlQuery, _, err = d.dialect().
			Update(d.streamsTableName).
			Set(goqu.Record{colCurrentVersion: int64(version), colCurrentPos: int64(position)}).
			Where(goqu.C(colCanonicalID).Eq(goqu.V(canonical))).
			ToSQL()
	} else {
		sqlQuery, _, err = d.dialect().
			Insert(d.streamsTableName).
			Cols(colCanonicalID, colIDOriginal, colCurrentVersion, colCurrentPos).
			Vals(goqu.Vals{canonical, original, int64(version), int64(position)}).
			ToSQL()
	}

	if err != nil {
		return errors.Join(ErrBuildingQueryFailed, err)
	}

	if _, err = d.runExec(ctx, tx, logActionInsertMessages, sqlQuery); err != nil {
		return err
	}

	return nil
}

// lockStreamHeadForUpdate reads and row-locks the streams row for
// canonical within tx, reporting whether it exists and its current head.
func lockStreamHeadForUpdate(ctx context.Context, d *Driver, tx adapters.DBTx, canonical string) (bool, eventstore.StreamVersion, eventstore.Position, error) {
	sqlQuery, _, err := d.dialect().
		From(d.streamsTableName).
		Select(colCurrentVersion, colCurrentPos).
		Where(goqu.C(colCanonicalID).Eq(goqu.V(canonical))).
		ToSQL()
	if err != nil {
		return false, eventstore.StreamEnd, eventstore.PositionEnd, errors.Join(ErrBuildingQueryFailed, err)
	}

	sqlQuery += " FOR UPDATE"

	rows, err := d.runQuery(ctx, tx, logActionBeginStreamTx, sqlQuery)
	if err != nil {
		return false, eventstore.StreamEnd, eventstore.PositionEnd, err
	}
	defer d.closeRows(rows)

	if !rows.Next() {
		return false, eventstore.StreamEnd, eventstore.PositionEnd, nil
	}

	var version, position int64
	if scanErr := rows.Scan(&version, &position); scanErr != nil {
		return false, eventstore.StreamEnd, eventstore.PositionEnd, errors.Join(ErrScanningRowFailed, scanErr)
	}

	return true, eventstore.StreamVersion(version), eventstore.Position(position), nil
}

// appendAuditWithinTx appends msg to the (auditCanonical, auditOriginal)
// system stream inside tx, so the caller's mutation and its audit event
// commit atomically (spec §3 "$deleted").
func appendAuditWithinTx(
	ctx context.Context,
	d *Driver,
	tx adapters.DBTx,
	auditCanonical, auditOriginal string,
	msg eventstore.Message,
	createdAtUTC time.Time,
) error {
	exists, version, _, err := lockStreamHeadForUpdate(ctx, d, tx, auditCanonical)
	if err != nil {
		return err
	}

	newVersion := version + 1

	newPosition, err := insertMessageRow(ctx, d, tx, auditCanonical, newVersion, msg, createdAtUTC)
	if err != nil {
		return err
	}

	return upsertStreamRow(ctx, d, tx, auditCanonical, auditOriginal, exists, newVersion, newPosition)
}
