package eventstore

// ExpectedVersion expresses a caller's belief about a stream's head at
// append time, the basis of optimistic concurrency control (spec §4.2,
// §6.4).
type ExpectedVersion int64

const (
	// NoStream requires the target stream to not exist, or to exist with
	// no messages.
	NoStream ExpectedVersion = -1

	// EmptyStream requires the target stream to exist with zero messages.
	EmptyStream ExpectedVersion = -2

	// Any skips the version check entirely; append still idempotent on replay.
	Any ExpectedVersion = -3
)

// StreamVersion identifies a message's position within its stream.
type StreamVersion int64

const (
	// StreamStart is the version of the first message of a stream.
	StreamStart StreamVersion = 0

	// StreamEnd means "from the latest", used only for backward reads.
	StreamEnd StreamVersion = -1
)

// Position identifies a message's position in the global, store-wide log.
// Positions are monotonically increasing in commit order but not dense.
type Position int64

const (
	// PositionStart is the beginning of the global log.
	PositionStart Position = 0

	// PositionEnd is the (conceptual) end of the global log, used only
	// for backward reads.
	PositionEnd Position = -1
)

// Direction selects the order in which a page is read.
type Direction int

const (
	Forwards Direction = iota
	Backwards
)
