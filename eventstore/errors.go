package eventstore

import (
	"errors"
	"fmt"
)

// Sentinel errors the core can return. Drivers wrap backend-specific
// faults with errors.Join so callers can still errors.Is against these,
// per spec §7: the append engine must distinguish WrongExpectedVersion
// from BackendFault by a structured discriminator, never by string match.
var (
	// ErrWrongExpectedVersion is the concurrency-conflict / idempotency-
	// mismatch error kind. Use AsWrongExpectedVersion to recover the
	// stream/expected/actual detail.
	ErrWrongExpectedVersion = errors.New("wrong expected version")

	// ErrStreamDeleted is returned when an append targets a stream
	// identity that was hard-deleted and cannot be resurrected as a
	// different identity.
	ErrStreamDeleted = errors.New("stream was deleted")

	// ErrDuplicateMessageID is a subclass of ErrWrongExpectedVersion: a
	// message id in the batch collides with an existing message that is
	// not at the replay position.
	ErrDuplicateMessageID = errors.New("duplicate message id")

	// ErrObjectDisposed is returned by any public operation after Close.
	ErrObjectDisposed = errors.New("event store is closed")

	// ErrOperationCancelled is returned when a caller's context is
	// cancelled or times out while an operation is in flight.
	ErrOperationCancelled = errors.New("operation cancelled")

	// ErrBackendFault wraps any driver-level fault that is not a known
	// concurrency or disposal condition (lost connection, unexpected
	// constraint violation, deserialization failure, ...).
	ErrBackendFault = errors.New("event store backend fault")

	// ErrEmptyStreamID is returned by Canonicalize/Append/Read/Delete
	// when the caller supplies an empty stream id.
	ErrEmptyStreamID = errors.New("stream id must not be empty")

	// ErrReservedStreamID is returned when the caller uses the reserved
	// "$all" sentinel as a stream id.
	ErrReservedStreamID = errors.New("\"$all\" is a reserved stream id")

	// ErrSystemStreamIDTooLong is returned when a system stream id ($-
	// prefixed) exceeds the canonical width.
	ErrSystemStreamIDTooLong = errors.New("system stream id exceeds maximum length")

	// ErrSystemStreamReadOnly is returned when a caller attempts to
	// delete or append directly to an engine-owned system stream.
	ErrSystemStreamReadOnly = errors.New("system stream cannot be modified by clients")

	// ErrNilDriver is returned by New when given a nil Driver.
	ErrNilDriver = errors.New("driver must not be nil")

	// ErrNoMessages is returned by Append when called with zero messages.
	ErrNoMessages = errors.New("append requires at least one message")

	// ErrInvalidPageSize is returned by the read engine when maxCount is
	// not a positive number.
	ErrInvalidPageSize = errors.New("max count must be greater than zero")

	// ErrMessageNotFound is returned by ReadMessageData when the message
	// no longer exists (e.g. it was hard-deleted between the page read and
	// the lazy lookup).
	ErrMessageNotFound = errors.New("message not found")
)

// WrongExpectedVersionError carries the detail behind ErrWrongExpectedVersion:
// the stream, the caller's expectation, and the actual version if known.
//
// It always unwraps to ErrWrongExpectedVersion, so callers may either
// errors.Is(err, eventstore.ErrWrongExpectedVersion) or
// errors.As(err, &werr) to get at the detail.
type WrongExpectedVersionError struct {
	Stream   string
	Expected ExpectedVersion
	Actual   StreamVersion
	// ActualKnown is false when the backend could not report an actual
	// version (e.g. the stream genuinely does not exist).
	ActualKnown bool
}

func (e *WrongExpectedVersionError) Error() string {
	if !e.ActualKnown {
		return fmt.Sprintf("wrong expected version for stream %q: expected %d, stream does not exist", e.Stream, e.Expected)
	}

	return fmt.Sprintf("wrong expected version for stream %q: expected %d, actual %d", e.Stream, e.Expected, e.Actual)
}

func (e *WrongExpectedVersionError) Unwrap() error {
	return ErrWrongExpectedVersion
}

// newWrongExpectedVersion builds a WrongExpectedVersionError with the
// actual version known.
func newWrongExpectedVersion(stream string, expected ExpectedVersion, actual StreamVersion) error {
	return &WrongExpectedVersionError{Stream: stream, Expected: expected, Actual: actual, ActualKnown: true}
}

// newWrongExpectedVersionUnknownActual builds a WrongExpectedVersionError
// for the case where the backend cannot report the actual version.
func newWrongExpectedVersionUnknownActual(stream string, expected ExpectedVersion) error {
	return &WrongExpectedVersionError{Stream: stream, Expected: expected}
}
