package eventstore

import (
	"context"
	"errors"

	"github.com/google/uuid"
)

// AppendResult reports the stream's head after an append, whether the
// append inserted new rows or was absorbed as an idempotent replay (spec
// §4.2 "Result": "always returns the new highest stream_version and
// position, even on idempotent no-op").
type AppendResult struct {
	CurrentVersion  StreamVersion
	CurrentPosition Position
}

// Append inserts one or more messages into streamID under an optimistic
// concurrency check (spec §4.2). messages must be non-empty; all of them
// are inserted atomically or none are.
func (es *EventStore) Append(ctx context.Context, streamID string, expected ExpectedVersion, messages ...Message) (AppendResult, error) {
	if err := es.enter(); err != nil {
		return AppendResult{}, err
	}
	defer es.exit()

	ctx, finish := es.trackOperation(ctx, "append")
	var err error
	defer func() { finish(err) }()

	if ctx.Err() != nil {
		err = ErrOperationCancelled
		return AppendResult{}, err
	}

	if len(messages) == 0 {
		err = ErrNoMessages
		return AppendResult{}, err
	}

	canonical, original, cErr := Canonicalize(streamID)
	if cErr != nil {
		err = cErr
		return AppendResult{}, err
	}

	if IsSystemStreamID(original) {
		err = ErrSystemStreamReadOnly
		return AppendResult{}, err
	}

	result, appendErr := es.appendLocked(ctx, canonical, original, expected, messages)
	err = appendErr

	return result, err
}

func (es *EventStore) appendLocked(
	ctx context.Context,
	canonical, original string,
	expected ExpectedVersion,
	messages []Message,
) (AppendResult, error) {
	tx, err := es.driver.BeginStreamTx(ctx, canonical, original)
	if err != nil {
		return AppendResult{}, wrapDriverErr(ctx, err)
	}

	result, err := es.runAppendTx(ctx, tx, original, expected, messages)
	if err != nil {
		_ = tx.Rollback(ctx)
		return AppendResult{}, err
	}

	return result, nil
}

func (es *EventStore) runAppendTx(
	ctx context.Context,
	tx StreamTx,
	original string,
	expected ExpectedVersion,
	messages []Message,
) (AppendResult, error) {
	if existing := tx.Original(); tx.Exists() && existing != "" && existing != original {
		return AppendResult{}, ErrStreamDeleted
	}

	currentVersion := tx.CurrentVersion()
	currentPosition := tx.CurrentPosition()

	startVersion, idempotent, resolveErr := es.resolveAppendStart(ctx, tx, expected, currentVersion, original, messages)
	if resolveErr != nil {
		return AppendResult{}, resolveErr
	}

	if idempotent {
		if err := tx.Rollback(ctx); err != nil {
			return AppendResult{}, wrapDriverErr(ctx, err)
		}

		return AppendResult{CurrentVersion: currentVersion, CurrentPosition: currentPosition}, nil
	}

	newVersion, newPosition, err := tx.InsertMessages(ctx, startVersion, messages, es.clock.Now())
	if err != nil {
		return AppendResult{}, wrapDriverErr(ctx, err)
	}

	if err := tx.Commit(ctx); err != nil {
		return AppendResult{}, wrapDriverErr(ctx, err)
	}

	return AppendResult{CurrentVersion: newVersion, CurrentPosition: newPosition}, nil
}

// resolveAppendStart implements the per-expected-version decision table of
// spec §4.2. It returns the version to insert the batch at; if idempotent
// is true, the batch is already present and no insert should happen.
func (es *EventStore) resolveAppendStart(
	ctx context.Context,
	tx StreamTx,
	expected ExpectedVersion,
	currentVersion StreamVersion,
	original string,
	messages []Message,
) (startVersion StreamVersion, idempotent bool, err error) {
	switch expected {
	case NoStream:
		return es.resolveAgainstHead(ctx, tx, expected, currentVersion, StreamStart, original, messages)

	case EmptyStream:
		if !tx.Exists() {
			return 0, false, newWrongExpectedVersion(original, expected, currentVersion)
		}

		return es.resolveAgainstHead(ctx, tx, expected, currentVersion, StreamStart, original, messages)

	case Any:
		return es.resolveAgainstAny(ctx, tx, currentVersion, original, messages)

	default:
		n := StreamVersion(expected)
		if n < 0 {
			return 0, false, errors.New("eventstore: invalid expected version")
		}

		return es.resolveAgainstHead(ctx, tx, expected, currentVersion, n+1, original, messages)
	}
}

// resolveAgainstHead handles NoStream/EmptyStream/exact-n: the batch is
// only accepted fresh when currentVersion matches the expectation exactly;
// otherwise the only way to succeed is an exact idempotent replay of the
// batch starting at wantFrom.
func (es *EventStore) resolveAgainstHead(
	ctx context.Context,
	tx StreamTx,
	expected ExpectedVersion,
	currentVersion StreamVersion,
	wantFrom StreamVersion,
	original string,
	messages []Message,
) (StreamVersion, bool, error) {
	if currentVersion == wantFrom-1 {
		if currentVersion >= 0 {
			existing, existingErr := tx.ExistingMessageIDsFrom(ctx, StreamStart, int(currentVersion)+1)
			if existingErr != nil {
				return 0, false, wrapDriverErr(ctx, existingErr)
			}

			if duplicateAmong(existing, messages) {
				return 0, false, errors.Join(ErrDuplicateMessageID, newWrongExpectedVersion(original, expected, currentVersion))
			}
		}

		return wantFrom, false, nil
	}

	existing, replayErr := es.replayCheck(ctx, tx, wantFrom, messages)
	if replayErr != nil {
		return 0, false, wrapDriverErr(ctx, replayErr)
	}

	if matchesReplay(existing, messages) {
		return 0, true, nil
	}

	if duplicateAmong(existing, messages) {
		return 0, false, errors.Join(ErrDuplicateMessageID, newWrongExpectedVersion(original, expected, currentVersion))
	}

	return 0, false, newWrongExpectedVersion(original, expected, currentVersion)
}

// resolveAgainstAny never fails the version check; it decides whether
// the tail of the stream already equals the incoming batch (idempotent
// replay) or whether it should append fresh at the current head. A batch
// that is not an exact tail replay but repeats an id already stored
// anywhere in the stream fails with ErrDuplicateMessageID.
func (es *EventStore) resolveAgainstAny(
	ctx context.Context,
	tx StreamTx,
	currentVersion StreamVersion,
	original string,
	messages []Message,
) (StreamVersion, bool, error) {
	if currentVersion == -1 {
		return StreamStart, false, nil
	}

	n := StreamVersion(len(messages))
	if currentVersion+1 < n {
		existing, existingErr := tx.ExistingMessageIDsFrom(ctx, StreamStart, int(currentVersion)+1)
		if existingErr != nil {
			return 0, false, wrapDriverErr(ctx, existingErr)
		}

		if duplicateAmong(existing, messages) {
			return 0, false, errors.Join(ErrDuplicateMessageID, newWrongExpectedVersion(original, Any, currentVersion))
		}

		return currentVersion + 1, false, nil
	}

	tailFrom := currentVersion - n + 1

	existing, replayErr := es.replayCheck(ctx, tx, tailFrom, messages)
	if replayErr != nil {
		return 0, false, wrapDriverErr(ctx, replayErr)
	}

	if matchesReplay(existing, messages) {
		return 0, true, nil
	}

	if duplicateAmong(existing, messages) {
		return 0, false, errors.Join(ErrDuplicateMessageID, newWrongExpectedVersion(original, Any, currentVersion))
	}

	all, allErr := tx.ExistingMessageIDsFrom(ctx, StreamStart, int(currentVersion)+1)
	if allErr != nil {
		return 0, false, wrapDriverErr(ctx, allErr)
	}

	if duplicateAmong(all, messages) {
		return 0, false, errors.Join(ErrDuplicateMessageID, newWrongExpectedVersion(original, Any, currentVersion))
	}

	return currentVersion + 1, false, nil
}

// replayCheck fetches the ids already stored at [from, from+len(messages))
// for the idempotency comparison. tx already holds the stream's lock for
// the lifetime of this transaction, so there is never a second in-flight
// caller to collapse this lookup against.
func (es *EventStore) replayCheck(
	ctx context.Context,
	tx StreamTx,
	from StreamVersion,
	messages []Message,
) ([]uuid.UUID, error) {
	return tx.ExistingMessageIDsFrom(ctx, from, len(messages))
}

func matchesReplay(existing []uuid.UUID, messages []Message) bool {
	if len(existing) != len(messages) {
		return false
	}

	for i, id := range existing {
		if id != messages[i].MessageID {
			return false
		}
	}

	return true
}

func duplicateAmong(existing []uuid.UUID, messages []Message) bool {
	if len(existing) == 0 {
		return false
	}

	seen := make(map[uuid.UUID]struct{}, len(existing))
	for _, id := range existing {
		seen[id] = struct{}{}
	}

	for _, m := range messages {
		if _, ok := seen[m.MessageID]; ok {
			return true
		}
	}

	return false
}
