package eventstore_test

import (
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/streamstore-go/streamstore/eventstore"
)

func Test_NewMessage_RejectsInvalidPayloadJSON(t *testing.T) {
	_, err := eventstore.NewMessage(uuid.New(), "t", []byte("not-json"), []byte("{}"))
	assert.ErrorIs(t, err, eventstore.ErrInvalidPayloadJSON)
}

func Test_NewMessage_RejectsInvalidMetadataJSON(t *testing.T) {
	_, err := eventstore.NewMessage(uuid.New(), "t", []byte(`{"a":1}`), []byte("not-json"))
	assert.ErrorIs(t, err, eventstore.ErrInvalidMetadataJSON)
}

func Test_NewMessageWithEmptyMetadata_DefaultsToEmptyObject(t *testing.T) {
	msg, err := eventstore.NewMessageWithEmptyMetadata(uuid.New(), "t", []byte(`{"a":1}`))
	require.NoError(t, err)
	assert.Equal(t, []byte("{}"), msg.MetadataJSON)
}

func Test_StoredMessage_HasPayload_ReflectsPrefetchFlag(t *testing.T) {
	prefetched := eventstore.NewStoredMessage(uuid.New(), "s1", 0, 1, time.Now().UTC(), "t", []byte(`"d"`), []byte("{}"), true)
	assert.True(t, prefetched.HasPayload())

	lazy := eventstore.NewStoredMessage(uuid.New(), "s1", 0, 1, time.Now().UTC(), "t", nil, nil, false)
	assert.False(t, lazy.HasPayload())
}
