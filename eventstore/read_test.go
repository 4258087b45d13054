package eventstore_test

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/streamstore-go/streamstore/eventstore"
)

// S4 — look-ahead paging.
func Test_ReadStreamForwards_LookAheadPaging(t *testing.T) {
	ctx := context.Background()
	store := newTestStore(t)

	for range 3 {
		_, err := store.Append(ctx, "s1", eventstore.Any, mustMessage(t, uuid.New(), "t"))
		require.NoError(t, err)
	}

	first, err := store.ReadStreamForwards(ctx, "s1", eventstore.StreamStart, 2, true)
	require.NoError(t, err)
	require.Len(t, first.Messages, 2)
	assert.Equal(t, eventstore.StreamVersion(0), first.Messages[0].StreamVersion)
	assert.Equal(t, eventstore.StreamVersion(1), first.Messages[1].StreamVersion)
	assert.False(t, first.IsEnd)
	assert.Equal(t, eventstore.StreamVersion(2), first.NextVersion)

	second, err := first.Next(ctx)
	require.NoError(t, err)
	require.Len(t, second.Messages, 1)
	assert.Equal(t, eventstore.StreamVersion(2), second.Messages[0].StreamVersion)
	assert.True(t, second.IsEnd)
	assert.Equal(t, eventstore.StreamVersion(3), second.NextVersion)
}

// S5 — backward full read.
func Test_ReadStreamBackwards_FromEnd_ReturnsReverseOrder(t *testing.T) {
	ctx := context.Background()
	store := newTestStore(t)

	for range 3 {
		_, err := store.Append(ctx, "s1", eventstore.Any, mustMessage(t, uuid.New(), "t"))
		require.NoError(t, err)
	}

	page, err := store.ReadStreamBackwards(ctx, "s1", eventstore.StreamEnd, 10, true)
	require.NoError(t, err)
	require.Len(t, page.Messages, 3)
	assert.Equal(t, eventstore.StreamVersion(2), page.Messages[0].StreamVersion)
	assert.Equal(t, eventstore.StreamVersion(1), page.Messages[1].StreamVersion)
	assert.Equal(t, eventstore.StreamVersion(0), page.Messages[2].StreamVersion)
	assert.True(t, page.IsEnd)
}

func Test_ReadStreamForwards_MissingStream_ReturnsStreamNotFound(t *testing.T) {
	ctx := context.Background()
	store := newTestStore(t)

	page, err := store.ReadStreamForwards(ctx, "never-existed", eventstore.StreamStart, 10, true)
	require.NoError(t, err)
	assert.Equal(t, eventstore.StreamNotFound, page.Status)
	assert.True(t, page.IsEnd)
	assert.Equal(t, eventstore.StreamVersion(-1), page.LastStreamVersion)
	assert.Empty(t, page.Messages)
}

func Test_ReadStreamForwards_WithoutPrefetch_OmitsPayload(t *testing.T) {
	ctx := context.Background()
	store := newTestStore(t)

	_, err := store.Append(ctx, "s1", eventstore.NoStream, mustMessage(t, uuid.New(), "t"))
	require.NoError(t, err)

	page, err := store.ReadStreamForwards(ctx, "s1", eventstore.StreamStart, 10, false)
	require.NoError(t, err)
	require.Len(t, page.Messages, 1)
	assert.False(t, page.Messages[0].HasPayload())
	assert.Nil(t, page.Messages[0].PayloadJSON)
}

func Test_ReadAllForwards_OrdersAcrossStreamsByPosition(t *testing.T) {
	ctx := context.Background()
	store := newTestStore(t)

	_, err := store.Append(ctx, "s1", eventstore.Any, mustMessage(t, uuid.New(), "t"))
	require.NoError(t, err)
	_, err = store.Append(ctx, "s2", eventstore.Any, mustMessage(t, uuid.New(), "t"))
	require.NoError(t, err)

	page, err := store.ReadAllForwards(ctx, eventstore.PositionStart, 10, true)
	require.NoError(t, err)
	require.Len(t, page.Messages, 2)
	assert.Less(t, int64(page.Messages[0].Position), int64(page.Messages[1].Position))
	assert.True(t, page.IsEnd)
}

func Test_ReadHeadPosition_AdvancesMonotonically(t *testing.T) {
	ctx := context.Background()
	store := newTestStore(t)

	initial, err := store.ReadHeadPosition(ctx)
	require.NoError(t, err)
	assert.Equal(t, eventstore.PositionEnd, initial)

	result, err := store.Append(ctx, "s1", eventstore.NoStream, mustMessage(t, uuid.New(), "t"))
	require.NoError(t, err)

	after, err := store.ReadHeadPosition(ctx)
	require.NoError(t, err)
	assert.Equal(t, result.CurrentPosition, after)
}

func Test_ReadStreamForwards_InvalidPageSize_ReturnsError(t *testing.T) {
	ctx := context.Background()
	store := newTestStore(t)

	_, err := store.ReadStreamForwards(ctx, "s1", eventstore.StreamStart, 0, true)
	assert.ErrorIs(t, err, eventstore.ErrInvalidPageSize)
}

func Test_ReadMessageData_LazyFetchMatchesPrefetched(t *testing.T) {
	ctx := context.Background()
	store := newTestStore(t)

	id1 := uuid.New()
	_, err := store.Append(ctx, "s1", eventstore.NoStream, mustMessage(t, id1, "t"))
	require.NoError(t, err)

	payload, metadata, err := store.ReadMessageData(ctx, "s1", id1)
	require.NoError(t, err)
	assert.Equal(t, []byte(`"d"`), payload)
	assert.Equal(t, []byte(`{}`), metadata)
}

func Test_ReadStreamForwards_AfterClose_ReturnsObjectDisposed(t *testing.T) {
	ctx := context.Background()
	store := newTestStore(t)

	require.NoError(t, store.Close(ctx))

	_, err := store.ReadStreamForwards(ctx, "s1", eventstore.StreamStart, 10, true)
	assert.ErrorIs(t, err, eventstore.ErrObjectDisposed)
}
