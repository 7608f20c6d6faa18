package storage

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestRedis(t *testing.T) (*redis.Client, *miniredis.Miniredis) {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })
	return client, mr
}

func newTestRedisStore(t *testing.T) (*RedisStore, *miniredis.Miniredis) {
	t.Helper()
	client, mr := newTestRedis(t)
	return NewRedisStore(client), mr
}

func TestRedisStore_SaveLoadDeleteRoom(t *testing.T) {
	t.Parallel()

	store, mr := newTestRedisStore(t)
	ctx := context.Background()

	roomData := &RoomData{
		Code:  "123456",
		State: 1,
		Solo:  true,
		Players: []PlayerData{
			{ID: "p1", Name: "Alice", Seat: 0, Ready: true, Online: true},
			{ID: "bot-1", Name: "Bot", Seat: 1, IsBot: true, BotLevel: "hard"},
		},
		CreatedAt: time.Now().Unix(),
		Game: &GameData{
			Phase:        "bidding",
			CurrentRound: 1,
			TotalRounds:  5,
			Bids:         []int{0, 0, 0, 0},
			TotalScores:  []int{0, 0, 0, 0},
			Hands:        [][]string{{"14-spades"}},
		},
	}

	require.NoError(t, store.SaveRoom(ctx, roomData.Code, roomData))
	assert.True(t, mr.Exists("room:123456"))
	assert.Greater(t, mr.TTL("room:123456"), time.Duration(0))

	loaded, err := store.LoadRoom(ctx, roomData.Code)
	require.NoError(t, err)
	assert.Equal(t, roomData, loaded)

	codes, err := store.GetAllRoomCodes(ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{"123456"}, codes)

	require.NoError(t, store.DeleteRoom(ctx, roomData.Code))
	loaded, err = store.LoadRoom(ctx, roomData.Code)
	require.NoError(t, err)
	assert.Nil(t, loaded)
}

func TestRedisStore_SaveNilRoom(t *testing.T) {
	t.Parallel()

	store, _ := newTestRedisStore(t)
	assert.NoError(t, store.SaveRoom(context.Background(), "x", nil))
}

func TestRedisStore_MatchQueue(t *testing.T) {
	t.Parallel()

	store, _ := newTestRedisStore(t)
	ctx := context.Background()

	require.NoError(t, store.AddToMatchQueue(ctx, "p1"))
	require.NoError(t, store.AddToMatchQueue(ctx, "p2"))

	n, err := store.GetMatchQueueLength(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(2), n)

	require.NoError(t, store.RemoveFromMatchQueue(ctx, "p1"))
	n, err = store.GetMatchQueueLength(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(1), n)

	result, err := store.PopFromMatchQueue(ctx, 2) // 只剩 1 个
	require.NoError(t, err)
	assert.Equal(t, []string{"p2"}, result)
}

func TestRedisStore_Session(t *testing.T) {
	t.Parallel()

	store, mr := newTestRedisStore(t)
	ctx := context.Background()

	session := &PlayerSessionData{
		PlayerID:       "p1",
		PlayerName:     "Alice",
		ReconnectToken: "tok",
		RoomCode:       "654321",
		IsOnline:       false,
		DisconnectedAt: 1700000000,
	}
	require.NoError(t, store.SaveSession(ctx, session, time.Minute))
	assert.Equal(t, time.Minute, mr.TTL("session:p1"))

	loaded, err := store.LoadSession(ctx, "p1")
	require.NoError(t, err)
	assert.Equal(t, session, loaded)

	missing, err := store.LoadSession(ctx, "nobody")
	require.NoError(t, err)
	assert.Nil(t, missing)

	require.NoError(t, store.DeleteSession(ctx, "p1"))
	loaded, err = store.LoadSession(ctx, "p1")
	require.NoError(t, err)
	assert.Nil(t, loaded)
}
