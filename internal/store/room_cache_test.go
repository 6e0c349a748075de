package store

import (
	"context"
	"database/sql"
	"testing"
	"time"

	"github.com/jaxongirtoshpolatov1225-droid/inv/internal/domain"

	"github.com/alicebob/miniredis/v2"
	"github.com/go-redis/redis/v8"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestCache(t *testing.T) (*miniredis.Miniredis, *RoomCache) {
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })
	return mr, NewRoomCache(NewRedisKV(client), time.Minute)
}

func TestRoomCache_RoundTrip(t *testing.T) {
	_, cache := newTestCache(t)
	ctx := context.Background()

	_, err := cache.Get(ctx, AllRoomsKey("org-1"), 0)
	assert.True(t, IsMiss(err))

	items := []*domain.RoomListItem{
		{RoomID: "r1", Name: "ICU", FloorID: sql.NullString{String: "f1", Valid: true}, FloorName: sql.NullString{String: "First", Valid: true}},
		{RoomID: "r2", Name: "Lobby"},
	}
	require.NoError(t, cache.Set(ctx, AllRoomsKey("org-1"), 0, items))

	got, err := cache.Get(ctx, AllRoomsKey("org-1"), 0)
	require.NoError(t, err)
	require.Len(t, got, 2)
	assert.Equal(t, "First", got[0].FloorName.String)
	assert.True(t, got[0].FloorID.Valid)
	assert.False(t, got[1].FloorID.Valid)
	assert.False(t, got[1].FloorName.Valid)
}

func TestRoomCache_TTL(t *testing.T) {
	mr, cache := newTestCache(t)
	ctx := context.Background()

	require.NoError(t, cache.Set(ctx, DirectRoomsKey("org-1"), 0, nil))
	mr.FastForward(2 * time.Minute)

	_, err := cache.Get(ctx, DirectRoomsKey("org-1"), 0)
	assert.True(t, IsMiss(err))
}

func TestRoomCache_InvalidateOrganization(t *testing.T) {
	mr, cache := newTestCache(t)
	ctx := context.Background()

	for _, key := range []string{AllRoomsKey("org-1"), FloorRoomsKey("org-1", "f1"), AllRoomsKey("org-2")} {
		require.NoError(t, cache.Set(ctx, key, 0, []*domain.RoomListItem{{RoomID: "r", Name: "R"}}))
	}

	require.NoError(t, cache.InvalidateOrganization(ctx, "org-1"))

	assert.False(t, mr.Exists(AllRoomsKey("org-1")))
	assert.False(t, mr.Exists(FloorRoomsKey("org-1", "f1")))
	assert.True(t, mr.Exists(AllRoomsKey("org-2")))

	v, err := cache.Version(ctx, "org-1")
	require.NoError(t, err)
	assert.Equal(t, int64(1), v)
	v, err = cache.Version(ctx, "org-2")
	require.NoError(t, err)
	assert.Equal(t, int64(0), v)
}

func TestRoomCache_StaleWriteBackIsMiss(t *testing.T) {
	_, cache := newTestCache(t)
	ctx := context.Background()
	key := AllRoomsKey("org-1")

	// reader takes the version, then a writer invalidates before the reader stores its load
	before, err := cache.Version(ctx, "org-1")
	require.NoError(t, err)
	require.NoError(t, cache.InvalidateOrganization(ctx, "org-1"))
	require.NoError(t, cache.Set(ctx, key, before, []*domain.RoomListItem{{RoomID: "r1", Name: "Old"}}))

	now, err := cache.Version(ctx, "org-1")
	require.NoError(t, err)
	assert.NotEqual(t, before, now)
	_, err = cache.Get(ctx, key, now)
	assert.True(t, IsMiss(err))

	require.NoError(t, cache.Set(ctx, key, now, []*domain.RoomListItem{{RoomID: "r1", Name: "New"}}))
	got, err := cache.Get(ctx, key, now)
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, "New", got[0].Name)
}

func TestRoomCache_CorruptPayloadIsMiss(t *testing.T) {
	mr, cache := newTestCache(t)
	require.NoError(t, mr.Set(AllRoomsKey("org-1"), "{not json"))

	_, err := cache.Get(context.Background(), AllRoomsKey("org-1"), 0)
	assert.True(t, IsMiss(err))
}
