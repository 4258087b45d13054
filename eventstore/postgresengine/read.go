package postgresengine

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/doug-martin/goqu/v9"
	"github.com/google/uuid"

	"github.com/streamstore-go/streamstore/eventstore"
)

// ReadHeadPosition returns the largest position currently committed
// across every stream, or eventstore.PositionEnd if the store is empty.
func (d *Driver) ReadHeadPosition(ctx context.Context) (eventstore.Position, error) {
	sqlQuery, _, err := d.dialect().
		From(d.streamsTableName).
		Select(goqu.MAX(colCurrentPos)).
		ToSQL()
	if err != nil {
		return eventstore.PositionEnd, errors.Join(ErrBuildingQueryFailed, err)
	}

	rows, err := d.runQuery(ctx, d.db, logActionReadAll, sqlQuery)
	if err != nil {
		return eventstore.PositionEnd, err
	}
	defer d.closeRows(rows)

	var head sql.NullInt64

	if rows.Next() {
		if scanErr := rows.Scan(&head); scanErr != nil {
			d.logError(ctx, logMsgScanRowFailed, scanErr)
			return eventstore.PositionEnd, errors.Join(ErrScanningRowFailed, scanErr)
		}
	}

	if !head.Valid || head.Int64 < int64(eventstore.PositionStart) {
		return eventstore.PositionEnd, nil
	}

	return eventstore.Position(head.Int64), nil
}

// ReadMessageData fetches the payload/metadata for one message by id,
// serving the lazy-read path behind a prefetch=false page read.
func (d *Driver) ReadMessageData(ctx context.Context, canonical string, messageID uuid.UUID) ([]byte, []byte, error) {
	sqlQuery, _, err := d.dialect().
		From(d.messagesTableName).
		Select(colPayload, colMetadata).
		Where(
			goqu.C(colCanonicalID).Eq(goqu.V(canonical)),
			goqu.C(colMessageID).Eq(goqu.V(messageID.String())),
		).
		ToSQL()
	if err != nil {
		return nil, nil, errors.Join(ErrBuildingQueryFailed, err)
	}

	rows, err := d.runQuery(ctx, d.db, logActionReadStream, sqlQuery)
	if err != nil {
		return nil, nil, err
	}
	defer d.closeRows(rows)

	if !rows.Next() {
		return nil, nil, eventstore.ErrMessageNotFound
	}

	var payload, metadata []byte
	if scanErr := rows.Scan(&payload, &metadata); scanErr != nil {
		d.logError(ctx, logMsgScanRowFailed, scanErr)
		return nil, nil, errors.Join(ErrScanningRowFailed, scanErr)
	}

	return payload, metadata, nil
}

// ReadStreamPage returns up to count+1 rows for canonical starting at from
// in the given direction (spec §4.3's "one extra row" look-ahead).
func (d *Driver) ReadStreamPage(
	ctx context.Context,
	canonical string,
	from eventstore.StreamVersion,
	count int,
	dir eventstore.Direction,
	prefetch bool,
) ([]eventstore.StoredMessage, eventstore.StreamVersion, eventstore.Position, bool, error) {
	original, currentVersion, currentPosition, found, err := d.loadStreamHead(ctx, d.db, canonical)
	if err != nil || !found {
		return nil, eventstore.StreamEnd, eventstore.PositionEnd, false, err
	}

	sel := d.dialect().
		From(d.messagesTableName).
		Select(colMessageID, colStreamVersion, colPosition, colCreatedAt, colMessageType, colPayload, colMetadata).
		Where(goqu.C(colCanonicalID).Eq(goqu.V(canonical))).
		Limit(uint(count + 1)) //nolint:gosec

	if dir == eventstore.Forwards {
		sel = sel.Where(goqu.C(colStreamVersion).Gte(goqu.V(int64(from)))).Order(goqu.I(colStreamVersion).Asc())
	} else {
		upper := int64(from)
		if from == eventstore.StreamEnd {
			upper = int64(currentVersion)
		}
		sel = sel.Where(goqu.C(colStreamVersion).Lte(goqu.V(upper))).Order(goqu.I(colStreamVersion).Desc())
	}

	sqlQuery, _, err := sel.ToSQL()
	if err != nil {
		return nil, eventstore.StreamEnd, eventstore.PositionEnd, false, errors.Join(ErrBuildingQueryFailed, err)
	}

	rows, err := d.runQuery(ctx, d.db, logActionReadStream, sqlQuery)
	if err != nil {
		return nil, eventstore.StreamEnd, eventstore.PositionEnd, false, err
	}
	defer d.closeRows(rows)

	result, err := d.scanStoredMessages(ctx, rows, original, prefetch)
	if err != nil {
		return nil, eventstore.StreamEnd, eventstore.PositionEnd, false, err
	}

	return result, currentVersion, currentPosition, true, nil
}

// ReadAllPage returns up to count+1 rows from the global log starting at
// from (exclusive, in both directions) in the given direction.
func (d *Driver) ReadAllPage(
	ctx context.Context,
	from eventstore.Position,
	count int,
	dir eventstore.Direction,
	prefetch bool,
) ([]eventstore.StoredMessage, error) {
	msgs := goqu.T(d.messagesTableName).As("m")
	streams := goqu.T(d.streamsTableName).As("s")

	sel := d.dialect().
		From(msgs).
		Join(streams, goqu.On(goqu.I("m."+colCanonicalID).Eq(goqu.I("s."+colCanonicalID)))).
		Select(
			goqu.I("s."+colIDOriginal), goqu.I("m."+colMessageID), goqu.I("m."+colStreamVersion),
			goqu.I("m."+colPosition), goqu.I("m."+colCreatedAt), goqu.I("m."+colMessageType),
			goqu.I("m."+colPayload), goqu.I("m."+colMetadata),
		).
		Limit(uint(count + 1)) //nolint:gosec

	if dir == eventstore.Forwards {
		sel = sel.Where(goqu.I("m."+colPosition).Gt(goqu.V(int64(from)))).Order(goqu.I("m." + colPosition).Asc())
	} else {
		if from != eventstore.PositionEnd {
			sel = sel.Where(goqu.I("m." + colPosition).Lt(goqu.V(int64(from))))
		}
		sel = sel.Order(goqu.I("m." + colPosition).Desc())
	}

	sqlQuery, _, err := sel.ToSQL()
	if err != nil {
		return nil, errors.Join(ErrBuildingQueryFailed, err)
	}

	rows, err := d.runQuery(ctx, d.db, logActionReadAll, sqlQuery)
	if err != nil {
		return nil, err
	}
	defer d.closeRows(rows)

	return d.scanStoredMessagesWithStreamID(ctx, rows, prefetch)
}

// loadStreamHead reads the streams row for canonical. found is false for
// both a missing row and a soft-deleted (metadata-only) row: both read
// back identically (spec §4.3, §7).
func (d *Driver) loadStreamHead(ctx context.Context, exec sqlExecer, canonical string) (string, eventstore.StreamVersion, eventstore.Position, bool, error) {
	sqlQuery, _, err := d.dialect().
		From(d.streamsTableName).
		Select(colIDOriginal, colCurrentVersion, colCurrentPos).
		Where(goqu.C(colCanonicalID).Eq(goqu.V(canonical))).
		ToSQL()
	if err != nil {
		return "", eventstore.StreamEnd, eventstore.PositionEnd, false, errors.Join(ErrBuildingQueryFailed, err)
	}

	rows, err := d.runQuery(ctx, exec, logActionReadStream, sqlQuery)
	if err != nil {
		return "", eventstore.StreamEnd, eventstore.PositionEnd, false, err
	}
	defer d.closeRows(rows)

	if !rows.Next() {
		return "", eventstore.StreamEnd, eventstore.PositionEnd, false, nil
	}

	var original string
	var version, position int64

	if scanErr := rows.Scan(&original, &version, &position); scanErr != nil {
		d.logError(ctx, logMsgScanRowFailed, scanErr)
		return "", eventstore.StreamEnd, eventstore.PositionEnd, false, errors.Join(ErrScanningRowFailed, scanErr)
	}

	if version == int64(eventstore.StreamEnd) {
		return "", eventstore.StreamEnd, eventstore.PositionEnd, false, nil
	}

	return original, eventstore.StreamVersion(version), eventstore.Position(position), true, nil
}

func (d *Driver) scanStoredMessages(ctx context.Context, rows rowsScanner, streamID string, prefetch bool) ([]eventstore.StoredMessage, error) {
	var result []eventstore.StoredMessage

	for rows.Next() {
		var messageID uuid.UUID
		var version, position int64
		var createdAt time.Time
		var messageType string
		var payload, metadata []byte

		if err := rows.Scan(&messageID, &version, &position, &createdAt, &messageType, &payload, &metadata); err != nil {
			d.logError(ctx, logMsgScanRowFailed, err)
			return nil, errors.Join(ErrScanningRowFailed, err)
		}

		if !prefetch {
			payload, metadata = nil, nil
		}

		result = append(result, eventstore.NewStoredMessage(
			messageID, streamID, eventstore.StreamVersion(version), eventstore.Position(position),
			createdAt.UTC(), messageType, payload, metadata, prefetch,
		))
	}

	return result, nil
}

func (d *Driver) scanStoredMessagesWithStreamID(ctx context.Context, rows rowsScanner, prefetch bool) ([]eventstore.StoredMessage, error) {
	var result []eventstore.StoredMessage

	for rows.Next() {
		var streamID string
		var messageID uuid.UUID
		var version, position int64
		var createdAt time.Time
		var messageType string
		var payload, metadata []byte

		if err := rows.Scan(&streamID, &messageID, &version, &position, &createdAt, &messageType, &payload, &metadata); err != nil {
			d.logError(ctx, logMsgScanRowFailed, err)
			return nil, errors.Join(ErrScanningRowFailed, err)
		}

		if !prefetch {
			payload, metadata = nil, nil
		}

		result = append(result, eventstore.NewStoredMessage(
			messageID, streamID, eventstore.StreamVersion(version), eventstore.Position(position),
			createdAt.UTC(), messageType, payload, metadata, prefetch,
		))
	}

	return result, nil
}

// rowsScanner is the subset of adapters.DBRows the scan helpers need.
type rowsScanner interface {
	Next() bool
	Scan(dest ...any) error
}
