// Package memdriver is a deterministic, in-memory eventstore.Driver used by
// the engine tests in the eventstore package and by callers who want to
// exercise the public API without a real database. It keeps the exact
// dual-ordering and idempotency semantics the Driver contract requires, but
// trades durability and concurrency for simplicity: one mutex serializes
// every operation, mirroring a single-connection backend.
package memdriver

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/streamstore-go/streamstore/eventstore"
)

type streamRecord struct {
	original string
	version  eventstore.StreamVersion
	position eventstore.Position
	messages []eventstore.StoredMessage
}

// Driver is an in-memory eventstore.Driver. The zero value is not usable;
// construct with New.
type Driver struct {
	mu          sync.Mutex
	streams     map[string]*streamRecord
	positionSeq int64
	closed      bool
}

// New returns an empty Driver.
func New() *Driver {
	return &Driver{streams: make(map[string]*streamRecord)}
}

func (d *Driver) CreateSchema(_ context.Context) error {
	return nil
}

func (d *Driver) Close(_ context.Context) error {
	d.mu.Lock()
	defer d.mu.Unlock()

	d.closed = true

	return nil
}

func (d *Driver) ReadHeadPosition(_ context.Context) (eventstore.Position, error) {
	d.mu.Lock()
	defer d.mu.Unlock()

	head := eventstore.PositionEnd
	for _, rec := range d.streams {
		if rec.position > head {
			head = rec.position
		}
	}

	return head, nil
}

func (d *Driver) ReadMessageData(_ context.Context, canonical string, messageID uuid.UUID) ([]byte, []byte, error) {
	d.mu.Lock()
	defer d.mu.Unlock()

	rec, ok := d.streams[canonical]
	if !ok {
		return nil, nil, eventstore.ErrMessageNotFound
	}

	for _, m := range rec.messages {
		if m.MessageID == messageID {
			return m.PayloadJSON, m.MetadataJSON, nil
		}
	}

	return nil, nil, eventstore.ErrMessageNotFound
}

func (d *Driver) ReadStreamPage(
	_ context.Context,
	canonical string,
	from eventstore.StreamVersion,
	count int,
	dir eventstore.Direction,
	prefetch bool,
) ([]eventstore.StoredMessage, eventstore.StreamVersion, eventstore.Position, bool, error) {
	d.mu.Lock()
	defer d.mu.Unlock()

	rec, ok := d.streams[canonical]
	if !ok || rec.version == eventstore.StreamEnd {
		// A soft-deleted, metadata-only stream reads back exactly like one
		// that never existed (spec §4.3).
		return nil, eventstore.StreamEnd, eventstore.PositionEnd, false, nil
	}

	var selected []eventstore.StoredMessage

	if dir == eventstore.Forwards {
		for _, m := range rec.messages {
			if m.StreamVersion < from {
				continue
			}
			selected = append(selected, m)
			if len(selected) >= count+1 {
				break
			}
		}
	} else {
		upper := from
		if from == eventstore.StreamEnd {
			upper = rec.version
		}

		for i := len(rec.messages) - 1; i >= 0; i-- {
			m := rec.messages[i]
			if m.StreamVersion > upper {
				continue
			}
			selected = append(selected, m)
			if len(selected) >= count+1 {
				break
			}
		}
	}

	if !prefetch {
		for i := range selected {
			selected[i] = stripPayload(selected[i])
		}
	}

	return selected, rec.version, rec.position, true, nil
}

func (d *Driver) ReadAllPage(
	_ context.Context,
	from eventstore.Position,
	count int,
	dir eventstore.Direction,
	prefetch bool,
) ([]eventstore.StoredMessage, error) {
	d.mu.Lock()
	defer d.mu.Unlock()

	var all []eventstore.StoredMessage
	for _, rec := range d.streams {
		all = append(all, rec.messages...)
	}

	sort.Slice(all, func(i, j int) bool { return all[i].Position < all[j].Position })

	var selected []eventstore.StoredMessage

	if dir == eventstore.Forwards {
		for _, m := range all {
			if m.Position <= from {
				continue
			}
			selected = append(selected, m)
			if len(selected) >= count+1 {
				break
			}
		}
	} else {
		for i := len(all) - 1; i >= 0; i-- {
			m := all[i]
			if from != eventstore.PositionEnd && m.Position >= from {
				continue
			}
			selected = append(selected, m)
			if len(selected) >= count+1 {
				break
			}
		}
	}

	if !prefetch {
		for i := range selected {
			selected[i] = stripPayload(selected[i])
		}
	}

	return selected, nil
}

func (d *Driver) DeleteMessage(
	_ context.Context,
	canonical string,
	messageID uuid.UUID,
	auditCanonical, auditOriginal string,
	auditMessage eventstore.Message,
	createdAtUTC time.Time,
) (bool, error) {
	d.mu.Lock()
	defer d.mu.Unlock()

	rec, ok := d.streams[canonical]
	if !ok {
		return false, nil
	}

	idx := -1
	for i, m := range rec.messages {
		if m.MessageID == messageID {
			idx = i
			break
		}
	}

	if idx == -1 {
		return false, nil
	}

	rec.messages = append(rec.messages[:idx:idx], rec.messages[idx+1:]...)

	auditRec, ok := d.streams[auditCanonical]
	if !ok {
		auditRec = &streamRecord{original: auditOriginal, version: eventstore.StreamEnd, position: eventstore.PositionEnd}
		d.streams[auditCanonical] = auditRec
	}

	d.appendOne(auditRec, auditOriginal, auditMessage, createdAtUTC)

	return true, nil
}

// appendOne appends one message to rec, allocating the next version and a
// fresh global position. Callers must hold d.mu.
func (d *Driver) appendOne(rec *streamRecord, original string, msg eventstore.Message, createdAtUTC time.Time) {
	d.positionSeq++
	pos := eventstore.Position(d.positionSeq)
	version := rec.version + 1

	rec.messages = append(rec.messages, eventstore.NewStoredMessage(
		msg.MessageID, original, version, pos, createdAtUTC, msg.Type, msg.PayloadJSON, msg.MetadataJSON, true,
	))
	rec.version = version
	rec.position = pos
}

func stripPayload(m eventstore.StoredMessage) eventstore.StoredMessage {
	return eventstore.NewStoredMessage(m.MessageID, m.StreamID, m.StreamVersion, m.Position, m.CreatedAtUTC, m.Type, nil, nil, false)
}
