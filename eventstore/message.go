package eventstore

import (
	"errors"
	"time"

	jsoniter "github.com/json-iterator/go"

	"github.com/google/uuid"
)

// ErrInvalidPayloadJSON is returned when a Message's payload is not valid JSON.
var ErrInvalidPayloadJSON = errors.New("payload json is not valid")

// ErrInvalidMetadataJSON is returned when a Message's metadata is not valid JSON.
var ErrInvalidMetadataJSON = errors.New("metadata json is not valid")

// jsonValidator is configured once and reused; jsoniter's fastest config
// skips map-ordering and float-precision work this package never needs.
var jsonValidator = jsoniter.ConfigFastest

// Message is a caller-supplied event to append (spec §3 "Message").
//
// It is built on scalars so it stays agnostic of whatever domain event
// type the caller uses. Construct it with NewMessage or
// NewMessageWithEmptyMetadata, never by populating the struct literal
// directly, so payload/metadata are guaranteed valid JSON.
type Message struct {
	MessageID    uuid.UUID
	Type         string
	PayloadJSON  []byte
	MetadataJSON []byte
}

// NewMessage validates payloadJSON and metadataJSON and builds a Message.
func NewMessage(messageID uuid.UUID, messageType string, payloadJSON, metadataJSON []byte) (Message, error) {
	if !jsonValidator.Valid(payloadJSON) {
		return Message{}, ErrInvalidPayloadJSON
	}

	if !jsonValidator.Valid(metadataJSON) {
		return Message{}, ErrInvalidMetadataJSON
	}

	return Message{
		MessageID:    messageID,
		Type:         messageType,
		PayloadJSON:  payloadJSON,
		MetadataJSON: metadataJSON,
	}, nil
}

// NewMessageWithEmptyMetadata is NewMessage with metadataJSON defaulted to "{}".
func NewMessageWithEmptyMetadata(messageID uuid.UUID, messageType string, payloadJSON []byte) (Message, error) {
	return NewMessage(messageID, messageType, payloadJSON, []byte("{}"))
}

// StoredMessage is a Message as read back from the store, carrying the
// ordering the append engine assigned it.
//
// When a read was not prefetched (spec §4.3 "Prefetch"), PayloadJSON and
// MetadataJSON are nil; HasPayload reports whether they were materialized.
type StoredMessage struct {
	MessageID     uuid.UUID
	StreamID      string
	StreamVersion StreamVersion
	Position      Position
	CreatedAtUTC  time.Time
	Type          string
	PayloadJSON   []byte
	MetadataJSON  []byte
	prefetched    bool
}

// HasPayload reports whether PayloadJSON/MetadataJSON were materialized
// eagerly (prefetch=true) rather than left for a lazy read_message_data lookup.
func (m StoredMessage) HasPayload() bool {
	return m.prefetched
}

// NewStoredMessage builds a StoredMessage. Driver implementations living in
// other packages (postgresengine, memdriver) use this rather than a struct
// literal, since prefetched is only settable from within this package.
func NewStoredMessage(
	messageID uuid.UUID,
	streamID string,
	version StreamVersion,
	position Position,
	createdAtUTC time.Time,
	messageType string,
	payloadJSON, metadataJSON []byte,
	prefetched bool,
) StoredMessage {
	return StoredMessage{
		MessageID:     messageID,
		StreamID:      streamID,
		StreamVersion: version,
		Position:      position,
		CreatedAtUTC:  createdAtUTC,
		Type:          messageType,
		PayloadJSON:   payloadJSON,
		MetadataJSON:  metadataJSON,
		prefetched:    prefetched,
	}
}
