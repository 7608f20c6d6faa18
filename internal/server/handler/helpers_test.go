package handler

import (
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/palemoky/call-break/internal/game/room"
	"github.com/palemoky/call-break/internal/protocol"
	"github.com/palemoky/call-break/internal/protocol/codec"
	"github.com/palemoky/call-break/internal/server/session"
	"github.com/palemoky/call-break/internal/types"
)

// idleTimer 永不触发的定时器，机器人与托管不会自动行动
type idleTimer struct{}

func (idleTimer) Stop() bool { return true }

func idleAfterFunc(time.Duration, func()) room.Timer { return idleTimer{} }

// fakeServer 记录注册关系的内存服务器
type fakeServer struct {
	mu          sync.Mutex
	clients     map[string]types.ClientInterface
	maintenance bool
	lobby       []*protocol.Message
}

func newFakeServer() *fakeServer {
	return &fakeServer{clients: make(map[string]types.ClientInterface)}
}

func (s *fakeServer) IsMaintenanceMode() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.maintenance
}

func (s *fakeServer) GetOnlineCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.clients)
}

func (s *fakeServer) BroadcastToLobby(msg *protocol.Message) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.lobby = append(s.lobby, msg)
}

func (s *fakeServer) GetClientByID(id string) types.ClientInterface {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.clients[id]
}

func (s *fakeServer) RegisterClient(id string, client types.ClientInterface) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.clients[id] = client
}

func (s *fakeServer) UnregisterClient(id string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.clients, id)
}

type fixture struct {
	server   *fakeServer
	rooms    *room.RoomManager
	sessions *session.SessionManager
	handler  *Handler
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	opts := room.DefaultOptions()
	opts.AfterFunc = idleAfterFunc
	rm := room.NewRoomManager(room.Deps{Options: opts})
	t.Cleanup(rm.Close)

	sm := session.NewSessionManager(session.Options{Secret: "handler-test-secret-0123456789"})
	t.Cleanup(sm.Close)

	srv := newFakeServer()
	return &fixture{
		server:   srv,
		rooms:    rm,
		sessions: sm,
		handler: NewHandler(HandlerDeps{
			Server:         srv,
			RoomManager:    rm,
			SessionManager: sm,
		}),
	}
}

func mustMessage(t *testing.T, msgType protocol.MessageType, payload any) *protocol.Message {
	t.Helper()
	if payload == nil {
		return &protocol.Message{Type: msgType}
	}
	msg, err := codec.NewMessage(msgType, payload)
	require.NoError(t, err)
	return msg
}

func parse[T any](t *testing.T, msg *protocol.Message) *T {
	t.Helper()
	require.NotNil(t, msg)
	p, err := codec.ParsePayload[T](msg)
	require.NoError(t, err)
	return p
}

// lastErrorCode 最后一条错误消息的错误码
func lastErrorCode(t *testing.T, msgs []*protocol.Message) int {
	t.Helper()
	for i := len(msgs) - 1; i >= 0; i-- {
		if msgs[i].Type == protocol.MsgError {
			return parse[protocol.ErrorPayload](t, msgs[i]).Code
		}
	}
	t.Fatalf("no error message among %d messages", len(msgs))
	return 0
}
