package eventstore

import "context"

// PageReadStatus reports whether a stream page read found its stream.
// StreamNotFound is never an error (spec §4.3, §7): a missing or
// soft-deleted stream reads back as an empty, terminal page.
type PageReadStatus int

const (
	StreamFound PageReadStatus = iota
	StreamNotFound
)

// StreamCursor is the bind parameters needed to re-enter read_stream with
// from_version = next_version, plus everything else held constant.
//
// Source systems that capture a page's continuation as a bound closure
// create a lifetime hazard: the closure outlives the connection/transaction
// it captured. A cursor record sidesteps that; ReadStreamPage.Next just
// forwards the bound parameters to a fresh EventStore.readStreamPage call.
type StreamCursor struct {
	streamID    string
	fromVersion StreamVersion
	maxCount    int
	direction   Direction
	prefetch    bool
}

// ReadStreamPage is a bounded batch of messages from one stream plus a
// cursor to the next batch (spec §4.3).
type ReadStreamPage struct {
	Status            PageReadStatus
	StreamID          string
	FromVersion       StreamVersion
	Messages          []StoredMessage
	IsEnd             bool
	NextVersion       StreamVersion
	LastStreamVersion StreamVersion
	LastPosition      Position

	store  *EventStore
	cursor StreamCursor
}

// Next re-enters read_stream with from_version = NextVersion and every
// other parameter held from the original call (spec §4.3 "Continuation").
// Calling Next on a page with IsEnd true returns an empty, terminal page
// without a round trip.
func (p ReadStreamPage) Next(ctx context.Context) (ReadStreamPage, error) {
	if p.IsEnd {
		return ReadStreamPage{
			Status:            p.Status,
			StreamID:          p.StreamID,
			FromVersion:       p.NextVersion,
			IsEnd:             true,
			NextVersion:       p.NextVersion,
			LastStreamVersion: p.LastStreamVersion,
			LastPosition:      p.LastPosition,
			store:             p.store,
			cursor:            p.cursor,
		}, nil
	}

	c := p.cursor
	c.fromVersion = p.NextVersion

	return p.store.readStreamPage(ctx, c)
}

// AllCursor is the bind parameters needed to re-enter read_all with
// from_position = next_position.
type AllCursor struct {
	fromPosition Position
	maxCount     int
	direction    Direction
	prefetch     bool
}

// ReadAllPage is a bounded batch of messages from the global log plus a
// cursor to the next batch (spec §4.3 "Global-log paging").
type ReadAllPage struct {
	Messages     []StoredMessage
	IsEnd        bool
	NextPosition Position

	store  *EventStore
	cursor AllCursor
}

// Next re-enters read_all with from_position = NextPosition.
func (p ReadAllPage) Next(ctx context.Context) (ReadAllPage, error) {
	if p.IsEnd {
		return ReadAllPage{
			IsEnd:        true,
			NextPosition: p.NextPosition,
			store:        p.store,
			cursor:       p.cursor,
		}, nil
	}

	c := p.cursor
	c.fromPosition = p.NextPosition

	return p.store.readAllPage(ctx, c)
}
