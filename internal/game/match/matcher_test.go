package match

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/palemoky/call-break/internal/game/room"
	"github.com/palemoky/call-break/internal/protocol"
	"github.com/palemoky/call-break/internal/server/storage"
	"github.com/palemoky/call-break/internal/testutil"
	"github.com/palemoky/call-break/internal/types"
)

type manualTimer struct {
	f       func()
	stopped bool
}

func (t *manualTimer) Stop() bool {
	was := !t.stopped
	t.stopped = true
	return was
}

type manualClock struct {
	mu     sync.Mutex
	timers []*manualTimer
}

func (c *manualClock) AfterFunc(_ time.Duration, f func()) room.Timer {
	c.mu.Lock()
	defer c.mu.Unlock()
	t := &manualTimer{f: f}
	c.timers = append(c.timers, t)
	return t
}

// fire 触发最后一个未取消的定时器
func (c *manualClock) fire() bool {
	c.mu.Lock()
	var t *manualTimer
	for i := len(c.timers) - 1; i >= 0; i-- {
		if !c.timers[i].stopped {
			t = c.timers[i]
			t.stopped = true
			break
		}
	}
	c.mu.Unlock()
	if t == nil {
		return false
	}
	t.f()
	return true
}

type fakeRooms struct {
	mu     sync.Mutex
	groups [][]string
	err    error
}

func (f *fakeRooms) CreateMatchRoom(clients []types.ClientInterface) (*room.Room, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return nil, f.err
	}
	ids := make([]string, len(clients))
	for i, c := range clients {
		ids[i] = c.GetID()
	}
	f.groups = append(f.groups, ids)
	return nil, nil
}

func (f *fakeRooms) Groups() [][]string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.groups
}

func TestMatcher_QueueOps(t *testing.T) {
	t.Parallel()

	// As long as we keep queue size < 4, it won't call CreateMatchRoom.
	matcher := NewMatcher(MatcherDeps{AfterFunc: (&manualClock{}).AfterFunc})

	c1 := &testutil.SimpleClient{ID: "p1", Name: "Player1"}
	c2 := &testutil.SimpleClient{ID: "p2", Name: "Player2"}

	// Add c1
	matcher.AddToQueue(c1)
	assert.Equal(t, 1, matcher.GetQueueLength())

	// Add c1 again (should be ignored)
	matcher.AddToQueue(c1)
	assert.Equal(t, 1, matcher.GetQueueLength())

	// Add c2
	matcher.AddToQueue(c2)
	assert.Equal(t, 2, matcher.GetQueueLength())

	// Remove c1
	matcher.RemoveFromQueue(c1)
	assert.Equal(t, 1, matcher.GetQueueLength())

	// Remove c1 again (should be no-op)
	matcher.RemoveFromQueue(c1)
	assert.Equal(t, 1, matcher.GetQueueLength())

	// Remove c2
	matcher.RemoveFromQueue(c2)
	assert.Equal(t, 0, matcher.GetQueueLength())

	queued := c2.MessagesOfType(protocol.MsgMatchQueued)
	require.Len(t, queued, 1)
}

func TestMatcher_FourPlayersFormRoom(t *testing.T) {
	t.Parallel()

	rooms := &fakeRooms{}
	clock := &manualClock{}
	matcher := NewMatcher(MatcherDeps{Rooms: rooms, AfterFunc: clock.AfterFunc})

	for _, id := range []string{"p1", "p2", "p3", "p4", "p5"} {
		matcher.AddToQueue(testutil.NewSimpleClient(id, id))
	}

	require.Len(t, rooms.Groups(), 1)
	assert.Equal(t, []string{"p1", "p2", "p3", "p4"}, rooms.Groups()[0])
	assert.Equal(t, 1, matcher.GetQueueLength())
}

func TestMatcher_WaitTimeoutFillsWithBots(t *testing.T) {
	t.Parallel()

	rooms := &fakeRooms{}
	clock := &manualClock{}
	matcher := NewMatcher(MatcherDeps{Rooms: rooms, AfterFunc: clock.AfterFunc, WaitTimeout: 10 * time.Second})

	c1 := testutil.NewSimpleClient("p1", "Alice")
	c2 := testutil.NewSimpleClient("p2", "Bob")
	matcher.AddToQueue(c1)
	matcher.AddToQueue(c2)

	queued := c1.LastOfType(protocol.MsgMatchQueued)
	require.NotNil(t, queued)
	assert.Contains(t, string(queued.Payload), `"wait_secs":10`)

	require.True(t, clock.fire())
	require.Len(t, rooms.Groups(), 1)
	assert.Equal(t, []string{"p1", "p2"}, rooms.Groups()[0])
	assert.Zero(t, matcher.GetQueueLength())

	// 队列已空，没有新的计时
	assert.False(t, clock.fire())
}

func TestMatcher_EmptyQueueCancelsTimer(t *testing.T) {
	t.Parallel()

	rooms := &fakeRooms{}
	clock := &manualClock{}
	matcher := NewMatcher(MatcherDeps{Rooms: rooms, AfterFunc: clock.AfterFunc})

	c := testutil.NewSimpleClient("p1", "Alice")
	matcher.AddToQueue(c)
	matcher.RemoveFromQueue(c)

	assert.False(t, clock.fire())
	assert.Empty(t, rooms.Groups())
}

func TestMatcher_CreateFailureRequeues(t *testing.T) {
	t.Parallel()

	rooms := &fakeRooms{err: errors.New("boom")}
	clock := &manualClock{}
	matcher := NewMatcher(MatcherDeps{Rooms: rooms, AfterFunc: clock.AfterFunc})

	clients := make([]*testutil.SimpleClient, 4)
	for i := range clients {
		clients[i] = testutil.NewSimpleClient(string(rune('a'+i)), "P")
		matcher.AddToQueue(clients[i])
	}

	assert.Equal(t, 4, matcher.GetQueueLength())
	assert.NotNil(t, clients[0].LastOfType(protocol.MsgError))
}

func TestMatcher_MirrorsQueueToRedis(t *testing.T) {
	t.Parallel()

	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = rdb.Close() })
	store := storage.NewRedisStore(rdb)

	matcher := NewMatcher(MatcherDeps{Store: store, AfterFunc: (&manualClock{}).AfterFunc})
	c1 := testutil.NewSimpleClient("p1", "Alice")
	c2 := testutil.NewSimpleClient("p2", "Bob")
	matcher.AddToQueue(c1)
	matcher.AddToQueue(c2)

	n, err := store.GetMatchQueueLength(context.Background())
	require.NoError(t, err)
	assert.Equal(t, int64(2), n)

	matcher.RemoveFromQueue(c1)
	n, err = store.GetMatchQueueLength(context.Background())
	require.NoError(t, err)
	assert.Equal(t, int64(1), n)
}

func TestMatcher_WithRoomManager(t *testing.T) {
	t.Parallel()

	clock := &manualClock{}
	opts := room.DefaultOptions()
	opts.AfterFunc = clock.AfterFunc
	rm := room.NewRoomManager(room.Deps{Options: opts})
	t.Cleanup(rm.Close)

	matcher := NewMatcher(MatcherDeps{Rooms: rm, AfterFunc: clock.AfterFunc})
	clients := make([]*testutil.SimpleClient, 4)
	for i := range clients {
		clients[i] = testutil.NewSimpleClient(string(rune('a'+i)), "P")
		matcher.AddToQueue(clients[i])
	}

	assert.Equal(t, 1, rm.RoomCount())
	assert.Equal(t, 1, rm.GetActiveGamesCount())
	for _, c := range clients {
		assert.NotEmpty(t, c.GetRoom())
		assert.NotNil(t, c.LastOfType(protocol.MsgMatchFound))
		assert.NotNil(t, c.LastOfType(protocol.MsgStateSync))
	}
}
