package eventstore

import (
	"context"

	"github.com/google/uuid"
)

// ReadStreamForwards reads stream from from_version towards the end (spec
// §4.3). from must be StreamStart (0) or any n >= 0.
func (es *EventStore) ReadStreamForwards(ctx context.Context, streamID string, from StreamVersion, maxCount int, prefetch bool) (ReadStreamPage, error) {
	return es.readStreamPage(ctx, StreamCursor{
		streamID:    streamID,
		fromVersion: from,
		maxCount:    maxCount,
		direction:   Forwards,
		prefetch:    prefetch,
	})
}

// ReadStreamBackwards reads stream from from_version towards the start.
// from may be StreamEnd (-1), meaning "from the latest", or any n >= 0.
func (es *EventStore) ReadStreamBackwards(ctx context.Context, streamID string, from StreamVersion, maxCount int, prefetch bool) (ReadStreamPage, error) {
	return es.readStreamPage(ctx, StreamCursor{
		streamID:    streamID,
		fromVersion: from,
		maxCount:    maxCount,
		direction:   Backwards,
		prefetch:    prefetch,
	})
}

// ReadAllForwards reads the global log from fromPositionExcl towards the
// end. fromPositionExcl is exclusive: rows with position > fromPositionExcl
// are candidates.
func (es *EventStore) ReadAllForwards(ctx context.Context, fromPositionExcl Position, maxCount int, prefetch bool) (ReadAllPage, error) {
	return es.readAllPage(ctx, AllCursor{
		fromPosition: fromPositionExcl,
		maxCount:     maxCount,
		direction:    Forwards,
		prefetch:     prefetch,
	})
}

// ReadAllBackwards reads the global log from fromPositionExcl towards the
// start. fromPositionExcl is exclusive in the same sense as forward: rows
// with position < fromPositionExcl are candidates. Use PositionEnd (-1) to
// start from the latest committed message.
func (es *EventStore) ReadAllBackwards(ctx context.Context, fromPositionExcl Position, maxCount int, prefetch bool) (ReadAllPage, error) {
	return es.readAllPage(ctx, AllCursor{
		fromPosition: fromPositionExcl,
		maxCount:     maxCount,
		direction:    Backwards,
		prefetch:     prefetch,
	})
}

// ReadHeadPosition returns the largest position currently committed, or
// PositionEnd (-1) if the store is empty.
func (es *EventStore) ReadHeadPosition(ctx context.Context) (Position, error) {
	if err := es.enter(); err != nil {
		return PositionEnd, err
	}
	defer es.exit()

	ctx, finish := es.trackOperation(ctx, "read_head_position")
	var err error
	defer func() { finish(err) }()

	if ctx.Err() != nil {
		err = ErrOperationCancelled
		return PositionEnd, err
	}

	pos, rErr := es.driver.ReadHeadPosition(ctx)
	if rErr != nil {
		err = wrapDriverErr(ctx, rErr)
		return PositionEnd, err
	}

	return pos, nil
}

// ReadMessageData fetches the payload/metadata for one message, serving the
// lazy-read path when a page was read with prefetch=false (spec §4.3).
func (es *EventStore) ReadMessageData(ctx context.Context, streamID string, messageID uuid.UUID) (payloadJSON, metadataJSON []byte, err error) {
	if err = es.enter(); err != nil {
		return nil, nil, err
	}
	defer es.exit()

	ctx, finish := es.trackOperation(ctx, "read_message_data")
	defer func() { finish(err) }()

	if ctx.Err() != nil {
		err = ErrOperationCancelled
		return nil, nil, err
	}

	canonical, _, cErr := Canonicalize(streamID)
	if cErr != nil {
		err = cErr
		return nil, nil, err
	}

	payloadJSON, metadataJSON, rErr := es.driver.ReadMessageData(ctx, canonical, messageID)
	if rErr != nil {
		err = wrapDriverErr(ctx, rErr)
		return nil, nil, err
	}

	return payloadJSON, metadataJSON, nil
}

// readStreamPage is the shared implementation behind ReadStreamForwards,
// ReadStreamBackwards and ReadStreamPage.Next: every re-entry into
// read_stream, first call or continuation, goes through here.
func (es *EventStore) readStreamPage(ctx context.Context, c StreamCursor) (ReadStreamPage, error) {
	if err := es.enter(); err != nil {
		return ReadStreamPage{}, err
	}
	defer es.exit()

	ctx, finish := es.trackOperation(ctx, "read_stream")
	var err error
	defer func() { finish(err) }()

	if ctx.Err() != nil {
		err = ErrOperationCancelled
		return ReadStreamPage{}, err
	}

	if c.maxCount <= 0 {
		err = ErrInvalidPageSize
		return ReadStreamPage{}, err
	}

	canonical, original, cErr := Canonicalize(c.streamID)
	if cErr != nil {
		err = cErr
		return ReadStreamPage{}, err
	}

	rows, lastVersion, lastPosition, found, rErr := es.driver.ReadStreamPage(ctx, canonical, c.fromVersion, c.maxCount, c.direction, c.prefetch)
	if rErr != nil {
		err = wrapDriverErr(ctx, rErr)
		return ReadStreamPage{}, err
	}

	if !found {
		return ReadStreamPage{
			Status:            StreamNotFound,
			StreamID:          original,
			FromVersion:       c.fromVersion,
			IsEnd:             true,
			NextVersion:       c.fromVersion,
			LastStreamVersion: StreamEnd,
			LastPosition:      PositionEnd,
			store:             es,
			cursor:            c,
		}, nil
	}

	trimmed, isEnd, nextVersion := trimStreamRows(rows, c.maxCount, c.direction, c.fromVersion)

	return ReadStreamPage{
		Status:            StreamFound,
		StreamID:          original,
		FromVersion:       c.fromVersion,
		Messages:          trimmed,
		IsEnd:             isEnd,
		NextVersion:       nextVersion,
		LastStreamVersion: lastVersion,
		LastPosition:      lastPosition,
		store:             es,
		cursor:            c,
	}, nil
}

// readAllPage is the shared implementation behind ReadAllForwards,
// ReadAllBackwards and ReadAllPage.Next.
func (es *EventStore) readAllPage(ctx context.Context, c AllCursor) (ReadAllPage, error) {
	if err := es.enter(); err != nil {
		return ReadAllPage{}, err
	}
	defer es.exit()

	ctx, finish := es.trackOperation(ctx, "read_all")
	var err error
	defer func() { finish(err) }()

	if ctx.Err() != nil {
		err = ErrOperationCancelled
		return ReadAllPage{}, err
	}

	if c.maxCount <= 0 {
		err = ErrInvalidPageSize
		return ReadAllPage{}, err
	}

	rows, rErr := es.driver.ReadAllPage(ctx, c.fromPosition, c.maxCount, c.direction, c.prefetch)
	if rErr != nil {
		err = wrapDriverErr(ctx, rErr)
		return ReadAllPage{}, err
	}

	trimmed, isEnd, nextPosition := trimAllRows(rows, c.maxCount, c.direction, c.fromPosition)

	return ReadAllPage{
		Messages:     trimmed,
		IsEnd:        isEnd,
		NextPosition: nextPosition,
		store:        es,
		cursor:       c,
	}, nil
}

// trimStreamRows applies the "one extra row" look-ahead (spec §4.3): rows
// holds up to maxCount+1 entries; the extra one, if present, is discarded
// after it tells us is_end.
func trimStreamRows(rows []StoredMessage, maxCount int, dir Direction, from StreamVersion) (trimmed []StoredMessage, isEnd bool, next StreamVersion) {
	if len(rows) > maxCount {
		trimmed = rows[:maxCount]
		isEnd = false
	} else {
		trimmed = rows
		isEnd = true
	}

	if len(trimmed) == 0 {
		if dir == Forwards {
			return trimmed, true, from + 1
		}
		return trimmed, true, StreamEnd
	}

	last := trimmed[len(trimmed)-1]
	if dir == Forwards {
		next = last.StreamVersion + 1
	} else {
		next = last.StreamVersion - 1
	}

	return trimmed, isEnd, next
}

// trimAllRows is trimStreamRows' counterpart for the global log. Both
// directions treat from_position as exclusive, so the last returned row's
// own position is a correct, non-overlapping continuation bound either way.
func trimAllRows(rows []StoredMessage, maxCount int, dir Direction, from Position) (trimmed []StoredMessage, isEnd bool, next Position) {
	if len(rows) > maxCount {
		trimmed = rows[:maxCount]
		isEnd = false
	} else {
		trimmed = rows
		isEnd = true
	}

	if len(trimmed) == 0 {
		if dir == Forwards {
			return trimmed, true, from + 1
		}
		return trimmed, true, PositionEnd
	}

	last := trimmed[len(trimmed)-1]

	return trimmed, isEnd, last.Position
}
