package server

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/palemoky/call-break/internal/config"
	"github.com/palemoky/call-break/internal/protocol"
	"github.com/palemoky/call-break/internal/protocol/codec"
)

func TestMain(m *testing.M) {
	gin.SetMode(gin.TestMode)
	os.Exit(m.Run())
}

type testServer struct {
	srv   *Server
	http  *httptest.Server
	redis *miniredis.Miniredis
	codec codec.Codec
}

func newTestServer(t *testing.T, mutate func(cfg *config.Config)) *testServer {
	t.Helper()
	mr := miniredis.RunT(t)

	cfg := config.Default()
	cfg.Server.Mode = gin.TestMode
	cfg.Redis.Addr = mr.Addr()
	cfg.History.DSN = filepath.Join(t.TempDir(), "history.db")
	cfg.Session.Secret = "server-test-secret-0123456789"
	cfg.Game.ShutdownCheckInterval = 1
	if mutate != nil {
		mutate(cfg)
	}

	s, err := NewServer(cfg, zap.NewNop())
	require.NoError(t, err)
	ts := httptest.NewServer(s.Handler())
	t.Cleanup(func() {
		ts.Close()
		s.Shutdown()
	})

	return &testServer{srv: s, http: ts, redis: mr, codec: s.codec}
}

func (ts *testServer) wsURL() string {
	return "ws" + strings.TrimPrefix(ts.http.URL, "http") + "/ws"
}

func (ts *testServer) dial(t *testing.T) *websocket.Conn {
	t.Helper()
	conn, resp, err := websocket.DefaultDialer.Dial(ts.wsURL(), nil)
	require.NoError(t, err)
	if resp != nil && resp.Body != nil {
		_ = resp.Body.Close()
	}
	t.Cleanup(func() { _ = conn.Close() })
	return conn
}

func (ts *testServer) send(t *testing.T, conn *websocket.Conn, msgType protocol.MessageType, payload any) {
	t.Helper()
	msg := &protocol.Message{Type: msgType}
	if payload != nil {
		msg = codec.MustNewMessage(msgType, payload)
	}
	data, err := ts.codec.Encode(msg)
	require.NoError(t, err)
	frame := websocket.TextMessage
	if ts.codec.Binary() {
		frame = websocket.BinaryMessage
	}
	require.NoError(t, conn.WriteMessage(frame, data))
}

// readUntil 读取消息直到出现指定类型
func (ts *testServer) readUntil(t *testing.T, conn *websocket.Conn, want protocol.MessageType) *protocol.Message {
	t.Helper()
	require.NoError(t, conn.SetReadDeadline(time.Now().Add(5*time.Second)))
	for {
		frame, data, err := conn.ReadMessage()
		require.NoError(t, err, "waiting for %s", want)
		if ts.codec.Binary() {
			require.Equal(t, websocket.BinaryMessage, frame)
		} else {
			require.Equal(t, websocket.TextMessage, frame)
		}
		msg, err := ts.codec.Decode(data)
		require.NoError(t, err)
		if msg.Type == want {
			return msg
		}
	}
}

func parse[T any](t *testing.T, msg *protocol.Message) *T {
	t.Helper()
	p, err := codec.ParsePayload[T](msg)
	require.NoError(t, err)
	return p
}

func TestServer_HealthEndpoint(t *testing.T) {
	t.Parallel()
	ts := newTestServer(t, nil)

	resp, err := http.Get(ts.http.URL + "/health")
	require.NoError(t, err)
	defer func() { _ = resp.Body.Close() }()

	require.Equal(t, http.StatusOK, resp.StatusCode)
	var body map[string]any
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&body))
	assert.Equal(t, "ok", body["status"])
	assert.Equal(t, false, body["maintenance"])
}

func TestServer_ConnectAndPlaySolo(t *testing.T) {
	t.Parallel()
	ts := newTestServer(t, nil)
	conn := ts.dial(t)

	connected := parse[protocol.ConnectedPayload](t, ts.readUntil(t, conn, protocol.MsgConnected))
	assert.NotEmpty(t, connected.PlayerID)
	assert.NotEmpty(t, connected.PlayerName)
	assert.NotEmpty(t, connected.ReconnectToken)

	ts.send(t, conn, protocol.MsgCreateRoom, protocol.CreateRoomPayload{Solo: true})
	created := parse[protocol.RoomCreatedPayload](t, ts.readUntil(t, conn, protocol.MsgRoomCreated))
	assert.True(t, created.Solo)

	state := parse[protocol.GameStateDTO](t, ts.readUntil(t, conn, protocol.MsgStateSync))
	assert.Equal(t, "bidding", state.Phase)
	assert.Equal(t, 0, state.Seat)
	assert.Len(t, state.Hand, 13)

	ts.send(t, conn, protocol.MsgBid, protocol.BidPayload{Value: 4})
	placed := parse[protocol.BidPlacedPayload](t, ts.readUntil(t, conn, protocol.MsgBidPlaced))
	assert.Equal(t, 0, placed.Seat)
	assert.Equal(t, 4, placed.Value)
}

func TestServer_ReconnectAfterDrop(t *testing.T) {
	t.Parallel()
	ts := newTestServer(t, nil)

	first := ts.dial(t)
	connected := parse[protocol.ConnectedPayload](t, ts.readUntil(t, first, protocol.MsgConnected))
	ts.send(t, first, protocol.MsgCreateRoom, protocol.CreateRoomPayload{Solo: true})
	created := parse[protocol.RoomCreatedPayload](t, ts.readUntil(t, first, protocol.MsgRoomCreated))

	require.NoError(t, first.Close())
	require.Eventually(t, func() bool {
		return ts.srv.GetOnlineCount() == 0 && !ts.srv.sessionManager.IsOnline(connected.PlayerID)
	}, 3*time.Second, 10*time.Millisecond)

	second := ts.dial(t)
	temp := parse[protocol.ConnectedPayload](t, ts.readUntil(t, second, protocol.MsgConnected))
	require.NotEqual(t, connected.PlayerID, temp.PlayerID)

	ts.send(t, second, protocol.MsgReconnect, protocol.ReconnectPayload{Token: connected.ReconnectToken})
	result := parse[protocol.ReconnectedPayload](t, ts.readUntil(t, second, protocol.MsgReconnected))

	assert.Equal(t, connected.PlayerID, result.PlayerID)
	assert.Equal(t, connected.PlayerName, result.PlayerName)
	assert.Equal(t, created.RoomCode, result.RoomCode)
	assert.NotEqual(t, connected.ReconnectToken, result.ReconnectToken)
	require.NotNil(t, result.State)
	assert.Len(t, result.State.Hand, 13)

	assert.Equal(t, 1, ts.srv.GetOnlineCount())
	assert.NotNil(t, ts.srv.GetClientByID(connected.PlayerID))
	assert.Nil(t, ts.srv.GetClientByID(temp.PlayerID))
}

func TestServer_ProtobufCodecUsesBinaryFrames(t *testing.T) {
	t.Parallel()
	ts := newTestServer(t, func(cfg *config.Config) { cfg.Codec.Format = "protobuf" })
	require.True(t, ts.codec.Binary())
	conn := ts.dial(t)

	connected := parse[protocol.ConnectedPayload](t, ts.readUntil(t, conn, protocol.MsgConnected))
	assert.NotEmpty(t, connected.PlayerID)

	ts.send(t, conn, protocol.MsgPing, protocol.PingPayload{Timestamp: 7})
	pong := parse[protocol.PongPayload](t, ts.readUntil(t, conn, protocol.MsgPong))
	assert.Equal(t, int64(7), pong.ClientTimestamp)
}

func TestServer_MaintenanceRejectsNewConnections(t *testing.T) {
	t.Parallel()
	ts := newTestServer(t, nil)

	conn := ts.dial(t)
	ts.readUntil(t, conn, protocol.MsgConnected)

	ts.srv.EnterMaintenanceMode()
	push := parse[protocol.MaintenancePayload](t, ts.readUntil(t, conn, protocol.MsgMaintenancePush))
	assert.True(t, push.Maintenance)

	_, resp, err := websocket.DefaultDialer.Dial(ts.wsURL(), nil)
	require.Error(t, err)
	require.NotNil(t, resp)
	defer func() { _ = resp.Body.Close() }()
	assert.Equal(t, http.StatusServiceUnavailable, resp.StatusCode)
}

func TestServer_OriginRejected(t *testing.T) {
	t.Parallel()
	ts := newTestServer(t, func(cfg *config.Config) {
		cfg.Security.AllowedOrigins = []string{"https://table.example"}
	})

	header := http.Header{}
	header.Set("Origin", "https://evil.example")
	_, resp, err := websocket.DefaultDialer.Dial(ts.wsURL(), header)
	require.Error(t, err)
	require.NotNil(t, resp)
	defer func() { _ = resp.Body.Close() }()
	assert.Equal(t, http.StatusForbidden, resp.StatusCode)
}

func TestServer_GracefulShutdownWithoutGames(t *testing.T) {
	t.Parallel()
	ts := newTestServer(t, nil)

	done := make(chan struct{})
	go func() {
		ts.srv.GracefulShutdown(time.Minute)
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(3 * time.Second):
		t.Fatal("shutdown should not wait when no games are running")
	}
	assert.True(t, ts.srv.IsMaintenanceMode())
}
