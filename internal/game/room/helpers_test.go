package room

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/palemoky/call-break/internal/protocol"
	"github.com/palemoky/call-break/internal/protocol/codec"
	"github.com/palemoky/call-break/internal/server/storage"
	"github.com/palemoky/call-break/internal/testutil"
)

// fakeClock 手动推进的定时器队列
type fakeClock struct {
	mu      sync.Mutex
	pending []*fakeTimer
}

type fakeTimer struct {
	clock   *fakeClock
	d       time.Duration
	f       func()
	stopped bool
}

func (t *fakeTimer) Stop() bool {
	t.clock.mu.Lock()
	defer t.clock.mu.Unlock()
	was := !t.stopped
	t.stopped = true
	return was
}

func (c *fakeClock) AfterFunc(d time.Duration, f func()) Timer {
	c.mu.Lock()
	defer c.mu.Unlock()
	t := &fakeTimer{clock: c, d: d, f: f}
	c.pending = append(c.pending, t)
	return t
}

// RunNext 触发最早的未取消定时器
func (c *fakeClock) RunNext() bool {
	c.mu.Lock()
	var next *fakeTimer
	for len(c.pending) > 0 {
		t := c.pending[0]
		c.pending = c.pending[1:]
		if !t.stopped {
			t.stopped = true
			next = t
			break
		}
	}
	c.mu.Unlock()

	if next == nil {
		return false
	}
	next.f()
	return true
}

// Active 未取消的定时器数量
func (c *fakeClock) Active() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	n := 0
	for _, t := range c.pending {
		if !t.stopped {
			n++
		}
	}
	return n
}

// RunAll 触发定时器直到队列为空，返回触发次数
func (c *fakeClock) RunAll(limit int) int {
	n := 0
	for n < limit && c.RunNext() {
		n++
	}
	return n
}

type fakeRecorder struct {
	results chan GameResult
}

func newFakeRecorder() *fakeRecorder {
	return &fakeRecorder{results: make(chan GameResult, 4)}
}

func (f *fakeRecorder) RecordGame(_ context.Context, r GameResult) error {
	f.results <- r
	return nil
}

// fakeStore 记录保存的快照阶段
type fakeStore struct {
	mu      sync.Mutex
	phases  []string
	deleted []string
}

func (s *fakeStore) SaveRoom(_ context.Context, _ string, data *storage.RoomData) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if data.Game != nil {
		s.phases = append(s.phases, data.Game.Phase)
	}
	return nil
}

func (s *fakeStore) DeleteRoom(_ context.Context, code string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.deleted = append(s.deleted, code)
	return nil
}

func (s *fakeStore) Phases() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]string(nil), s.phases...)
}

func roomCount(rm *RoomManager) int {
	rm.mu.RLock()
	defer rm.mu.RUnlock()
	return len(rm.rooms)
}

func testOptions(clock *fakeClock) Options {
	opts := DefaultOptions()
	opts.AfterFunc = clock.AfterFunc
	return opts
}

func newTestManager(t *testing.T, clock *fakeClock, recorder Recorder) *RoomManager {
	t.Helper()
	rm := NewRoomManager(Deps{Options: testOptions(clock), Recorder: recorder})
	t.Cleanup(rm.Close)
	return rm
}

func newClients(n int) []*testutil.SimpleClient {
	clients := make([]*testutil.SimpleClient, n)
	for i := range clients {
		id := string(rune('a' + i))
		clients[i] = testutil.NewSimpleClient("p-"+id, "Player-"+id)
	}
	return clients
}

func parse[T any](t *testing.T, msg *protocol.Message) *T {
	t.Helper()
	require.NotNil(t, msg)
	p, err := codec.ParsePayload[T](msg)
	require.NoError(t, err)
	return p
}

// playUntil 推进定时器并替真人行动，直到 done 返回 true
func playUntil(t *testing.T, clock *fakeClock, room *Room, humans []*testutil.SimpleClient, done func() bool) {
	t.Helper()
	for i := 0; i < 5000; i++ {
		if done() {
			return
		}
		if clock.RunNext() {
			continue
		}
		acted := false
		for _, c := range humans {
			dto, ok := room.View(c.ID)
			if !ok || dto.CurrentTurnSeat != dto.Seat {
				continue
			}
			switch dto.Phase {
			case "bidding":
				require.NoError(t, room.Bid(c.ID, 3))
				acted = true
			case "playing":
				require.NotEmpty(t, dto.ValidMoves)
				require.NoError(t, room.PlayCard(c.ID, dto.ValidMoves[0]))
				acted = true
			}
		}
		if !acted {
			t.Fatalf("对局卡住: phase=%s", room.Phase())
		}
	}
	t.Fatal("对局未在预期步数内结束")
}
