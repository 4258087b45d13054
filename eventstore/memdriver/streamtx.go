package memdriver

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/streamstore-go/streamstore/eventstore"
)

// recordSnapshot is the pre-transaction state of one canonical key, captured
// the first time a transaction touches it, so Rollback can restore it
// exactly (including removing a record the transaction itself created).
type recordSnapshot struct {
	existedBefore bool
	original      string
	version       eventstore.StreamVersion
	position      eventstore.Position
	messages      []eventstore.StoredMessage
}

// streamTx implements eventstore.StreamTx. It holds Driver.mu for its
// entire lifetime, matching the single-connection semantics a real
// driver's BEGIN...COMMIT/ROLLBACK would offer against a pooled
// connection: no other operation observes this transaction's writes until
// Commit returns.
type streamTx struct {
	d         *Driver
	canonical string
	original  string

	existedBefore  bool
	baseOriginal   string
	baseVersion    eventstore.StreamVersion
	basePosition   eventstore.Position

	touched map[string]*recordSnapshot
	done    bool
}

// BeginStreamTx implements eventstore.Driver.
func (d *Driver) BeginStreamTx(_ context.Context, canonical, original string) (eventstore.StreamTx, error) {
	d.mu.Lock()

	tx := &streamTx{
		d:         d,
		canonical: canonical,
		original:  original,
		touched:   make(map[string]*recordSnapshot),
	}

	if rec, ok := d.streams[canonical]; ok {
		tx.existedBefore = true
		tx.baseOriginal = rec.original
		tx.baseVersion = rec.version
		tx.basePosition = rec.position
	} else {
		tx.baseVersion = eventstore.StreamEnd
		tx.basePosition = eventstore.PositionEnd
	}

	tx.snapshot(canonical)

	return tx, nil
}

// snapshot records canonical's pre-transaction state the first time it is
// touched. Caller must hold d.mu.
func (tx *streamTx) snapshot(canonical string) {
	if _, done := tx.touched[canonical]; done {
		return
	}

	rec, ok := tx.d.streams[canonical]
	if !ok {
		tx.touched[canonical] = &recordSnapshot{}
		return
	}

	tx.touched[canonical] = &recordSnapshot{
		existedBefore: true,
		original:      rec.original,
		version:       rec.version,
		position:      rec.position,
		messages:      append([]eventstore.StoredMessage(nil), rec.messages...),
	}
}

func (tx *streamTx) Exists() bool {
	return tx.existedBefore
}

func (tx *streamTx) Original() string {
	if tx.existedBefore {
		return tx.baseOriginal
	}
	return ""
}

func (tx *streamTx) CurrentVersion() eventstore.StreamVersion {
	return tx.baseVersion
}

func (tx *streamTx) CurrentPosition() eventstore.Position {
	return tx.basePosition
}

func (tx *streamTx) ExistingMessageIDsFrom(_ context.Context, from eventstore.StreamVersion, count int) ([]uuid.UUID, error) {
	rec, ok := tx.d.streams[tx.canonical]
	if !ok {
		return nil, nil
	}

	var ids []uuid.UUID
	for _, m := range rec.messages {
		if m.StreamVersion < from {
			continue
		}
		ids = append(ids, m.MessageID)
		if len(ids) >= count {
			break
		}
	}

	return ids, nil
}

func (tx *streamTx) recordFor(canonical, original string) *streamRecord {
	tx.snapshot(canonical)

	rec, ok := tx.d.streams[canonical]
	if !ok {
		rec = &streamRecord{original: original, version: eventstore.StreamEnd, position: eventstore.PositionEnd}
		tx.d.streams[canonical] = rec
	}

	return rec
}

func (tx *streamTx) InsertMessages(_ context.Context, startVersion eventstore.StreamVersion, rows []eventstore.Message, createdAtUTC time.Time) (eventstore.StreamVersion, eventstore.Position, error) {
	rec := tx.recordFor(tx.canonical, tx.original)

	version := startVersion
	for _, m := range rows {
		tx.d.positionSeq++
		pos := eventstore.Position(tx.d.positionSeq)

		rec.messages = append(rec.messages, eventstore.NewStoredMessage(
			m.MessageID, tx.original, version, pos, createdAtUTC, m.Type, m.PayloadJSON, m.MetadataJSON, true,
		))
		rec.version = version
		rec.position = pos
		version++
	}

	return rec.version, rec.position, nil
}

func (tx *streamTx) SoftDelete(_ context.Context) error {
	rec, ok := tx.d.streams[tx.canonical]
	if !ok {
		return nil
	}

	tx.snapshot(tx.canonical)

	rec.messages = nil
	rec.version = eventstore.StreamEnd
	rec.position = eventstore.PositionEnd

	return nil
}

func (tx *streamTx) AppendAuditMessage(_ context.Context, canonical, original string, msg eventstore.Message, createdAtUTC time.Time) error {
	rec := tx.recordFor(canonical, original)

	tx.d.positionSeq++
	pos := eventstore.Position(tx.d.positionSeq)
	version := rec.version + 1

	rec.messages = append(rec.messages, eventstore.NewStoredMessage(
		msg.MessageID, original, version, pos, createdAtUTC, msg.Type, msg.PayloadJSON, msg.MetadataJSON, true,
	))
	rec.version = version
	rec.position = pos

	return nil
}

func (tx *streamTx) Commit(_ context.Context) error {
	if tx.done {
		return nil
	}

	tx.done = true
	tx.d.mu.Unlock()

	return nil
}

// Rollback restores every canonical key this transaction touched to its
// pre-transaction state. Global position allocation is deliberately not
// rolled back: a real backend sequence does not un-advance on ROLLBACK
// either, and spec §3 treats the resulting gaps as acceptable.
func (tx *streamTx) Rollback(_ context.Context) error {
	if tx.done {
		return nil
	}

	tx.done = true

	for canonical, snap := range tx.touched {
		if !snap.existedBefore {
			delete(tx.d.streams, canonical)
			continue
		}

		rec := tx.d.streams[canonical]
		rec.original = snap.original
		rec.version = snap.version
		rec.position = snap.position
		rec.messages = snap.messages
	}

	tx.d.mu.Unlock()

	return nil
}
