package eventstore

import (
	"context"
	"encoding/json"

	"github.com/google/uuid"
)

// streamDeletedPayload is the payload of a $stream-deleted audit event.
type streamDeletedPayload struct {
	StreamID string `json:"stream_id"`
}

// messageDeletedPayload is the payload of a $message-deleted audit event.
type messageDeletedPayload struct {
	StreamID  string `json:"stream_id"`
	MessageID string `json:"message_id"`
}

// DeleteStream soft-deletes streamID: every message row is removed but the
// stream's metadata row may persist, and a $stream-deleted event is
// appended to $deleted (spec §4.4). expected follows append's version
// semantics; deleting a stream that never existed under ExpectedVersion.Any
// is a no-op with no audit event.
func (es *EventStore) DeleteStream(ctx context.Context, streamID string, expected ExpectedVersion) error {
	if err := es.enter(); err != nil {
		return err
	}
	defer es.exit()

	ctx, finish := es.trackOperation(ctx, "delete_stream")
	var err error
	defer func() { finish(err) }()

	if ctx.Err() != nil {
		err = ErrOperationCancelled
		return err
	}

	canonical, original, cErr := Canonicalize(streamID)
	if cErr != nil {
		err = cErr
		return err
	}

	if IsSystemStreamID(original) {
		err = ErrSystemStreamReadOnly
		return err
	}

	if expected == Any {
		_, _, _, found, rErr := es.driver.ReadStreamPage(ctx, canonical, StreamStart, 1, Forwards, false)
		if rErr != nil {
			err = wrapDriverErr(ctx, rErr)
			return err
		}
		if !found {
			return nil
		}
	}

	err = es.deleteStreamTx(ctx, canonical, original, expected)

	return err
}

func (es *EventStore) deleteStreamTx(ctx context.Context, canonical, original string, expected ExpectedVersion) error {
	tx, err := es.driver.BeginStreamTx(ctx, canonical, original)
	if err != nil {
		return wrapDriverErr(ctx, err)
	}

	if delErr := es.runDeleteStreamTx(ctx, tx, original, expected); delErr != nil {
		_ = tx.Rollback(ctx)
		return delErr
	}

	return nil
}

func (es *EventStore) runDeleteStreamTx(ctx context.Context, tx StreamTx, original string, expected ExpectedVersion) error {
	currentVersion := tx.CurrentVersion()

	if !deleteExpectedMatches(expected, currentVersion) {
		return newWrongExpectedVersion(original, expected, currentVersion)
	}

	if !tx.Exists() {
		// Nothing was ever created under this identity; nothing to delete
		// and nothing to audit.
		if err := tx.Rollback(ctx); err != nil {
			return wrapDriverErr(ctx, err)
		}

		return nil
	}

	if err := tx.SoftDelete(ctx); err != nil {
		return wrapDriverErr(ctx, err)
	}

	payload, err := json.Marshal(streamDeletedPayload{StreamID: original})
	if err != nil {
		return err
	}

	auditMsg, err := NewMessageWithEmptyMetadata(uuid.New(), "$stream-deleted", payload)
	if err != nil {
		return err
	}

	auditCanonical, auditOriginal, err := Canonicalize(deletedStreamID)
	if err != nil {
		return err
	}

	if err := tx.AppendAuditMessage(ctx, auditCanonical, auditOriginal, auditMsg, es.clock.Now()); err != nil {
		return wrapDriverErr(ctx, err)
	}

	if err := tx.Commit(ctx); err != nil {
		return wrapDriverErr(ctx, err)
	}

	return nil
}

func deleteExpectedMatches(expected ExpectedVersion, currentVersion StreamVersion) bool {
	switch expected {
	case NoStream, EmptyStream:
		return currentVersion == -1
	case Any:
		return true
	default:
		n := StreamVersion(expected)
		return n >= 0 && currentVersion == n
	}
}

// DeleteMessage hard-deletes the one message identified by (streamID,
// messageID). If and only if a row was removed, a $message-deleted event is
// appended to $deleted (spec §4.4). Deleting a missing message is a no-op
// and does not advance the head position.
func (es *EventStore) DeleteMessage(ctx context.Context, streamID string, messageID uuid.UUID) error {
	if err := es.enter(); err != nil {
		return err
	}
	defer es.exit()

	ctx, finish := es.trackOperation(ctx, "delete_message")
	var err error
	defer func() { finish(err) }()

	if ctx.Err() != nil {
		err = ErrOperationCancelled
		return err
	}

	canonical, original, cErr := Canonicalize(streamID)
	if cErr != nil {
		err = cErr
		return err
	}

	// The $deleted audit stream is append-only (spec §3); rejecting any
	// direct client delete against a system stream keeps it immutable,
	// resolving the source's underspecified behavior per spec §9.
	if IsSystemStreamID(original) {
		err = ErrSystemStreamReadOnly
		return err
	}

	auditCanonical, auditOriginal, cErr := Canonicalize(deletedStreamID)
	if cErr != nil {
		err = cErr
		return err
	}

	payload, mErr := json.Marshal(messageDeletedPayload{StreamID: original, MessageID: messageID.String()})
	if mErr != nil {
		err = mErr
		return err
	}

	auditMsg, mErr := NewMessageWithEmptyMetadata(uuid.New(), "$message-deleted", payload)
	if mErr != nil {
		err = mErr
		return err
	}

	_, dErr := es.driver.DeleteMessage(ctx, canonical, messageID, auditCanonical, auditOriginal, auditMsg, es.clock.Now())
	if dErr != nil {
		err = wrapDriverErr(ctx, dErr)
		return err
	}

	return nil
}
