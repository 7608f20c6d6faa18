package session

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/palemoky/call-break/internal/apperrors"
	"github.com/palemoky/call-break/internal/server/storage"
)

const testSecret = "test-secret-0123456789"

func newTestManager(t *testing.T, store Store) *SessionManager {
	t.Helper()
	sm := NewSessionManager(Options{Secret: testSecret, Store: store})
	t.Cleanup(sm.Close)
	return sm
}

func mustCreate(t *testing.T, sm *SessionManager, id, name string) *PlayerSession {
	t.Helper()
	s, err := sm.CreateSession(id, name)
	require.NoError(t, err)
	return s
}

func TestSessionManager_CRUD(t *testing.T) {
	t.Parallel()
	sm := newTestManager(t, nil)

	session := mustCreate(t, sm, "p1", "Player1")
	assert.Equal(t, "p1", session.PlayerID)
	assert.Equal(t, "Player1", session.PlayerName)
	assert.NotEmpty(t, session.Token())
	assert.True(t, session.Online())

	assert.Same(t, session, sm.GetSession("p1"))
	assert.Equal(t, 1, sm.Count())

	sm.DeleteSession("p1")
	assert.Nil(t, sm.GetSession("p1"))
	_, err := sm.Resume(session.Token())
	assert.ErrorIs(t, err, apperrors.ErrSessionExpired)
}

func TestSessionManager_OnlineStatus(t *testing.T) {
	t.Parallel()
	sm := newTestManager(t, nil)
	session := mustCreate(t, sm, "p1", "Player1")

	assert.True(t, session.DisconnectedAt.IsZero())

	sm.SetOffline("p1")
	assert.False(t, sm.IsOnline("p1"))
	assert.False(t, sm.GetSession("p1").DisconnectedAt.IsZero())

	sm.SetOnline("p1")
	assert.True(t, sm.IsOnline("p1"))
	assert.True(t, sm.GetSession("p1").DisconnectedAt.IsZero())
}

func TestSessionManager_Resume(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name    string
		setup   func(sm *SessionManager) string
		wantErr error
	}{
		{
			name: "online player",
			setup: func(sm *SessionManager) string {
				s, _ := sm.CreateSession("p1", "Player1")
				return s.Token()
			},
		},
		{
			name: "offline within window",
			setup: func(sm *SessionManager) string {
				s, _ := sm.CreateSession("p1", "Player1")
				sm.SetOffline("p1")
				return s.Token()
			},
		},
		{
			name: "garbage token",
			setup: func(sm *SessionManager) string {
				_, _ = sm.CreateSession("p1", "Player1")
				return "wrong-token"
			},
			wantErr: apperrors.ErrInvalidToken,
		},
		{
			name: "token signed with another secret",
			setup: func(sm *SessionManager) string {
				_, _ = sm.CreateSession("p1", "Player1")
				token, _ := NewTokenIssuer("another-secret-0123456", time.Hour).Issue("p1", "Player1")
				return token
			},
			wantErr: apperrors.ErrInvalidToken,
		},
		{
			name: "offline past window",
			setup: func(sm *SessionManager) string {
				s, _ := sm.CreateSession("p1", "Player1")
				sm.SetOffline("p1")
				s.mu.Lock()
				s.DisconnectedAt = time.Now().Add(-3 * time.Minute)
				s.mu.Unlock()
				return s.Token()
			},
			wantErr: apperrors.ErrSessionExpired,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			sm := newTestManager(t, nil)
			token := tt.setup(sm)

			s, err := sm.Resume(token)
			if tt.wantErr != nil {
				assert.ErrorIs(t, err, tt.wantErr)
				assert.Nil(t, s)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, "p1", s.PlayerID)
			assert.True(t, s.Online())
		})
	}
}

func TestSessionManager_ResumeRotatesToken(t *testing.T) {
	t.Parallel()
	sm := newTestManager(t, nil)
	session := mustCreate(t, sm, "p1", "Player1")
	old := session.Token()

	resumed, err := sm.Resume(old)
	require.NoError(t, err)
	assert.NotEqual(t, old, resumed.Token())

	// 旧令牌失效
	_, err = sm.Resume(old)
	assert.ErrorIs(t, err, apperrors.ErrInvalidToken)

	_, err = sm.Resume(resumed.Token())
	assert.NoError(t, err)
}

func TestSessionManager_SetRoom(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name         string
		playerID     string
		roomCode     string
		shouldCreate bool
	}{
		{"set room for existing player", "p1", "123456", true},
		{"set room for non-existent player", "p999", "123456", false},
		{"clear room", "p1", "", true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			sm := newTestManager(t, nil)
			if tt.shouldCreate {
				mustCreate(t, sm, "p1", "Player1")
			}

			sm.SetRoom(tt.playerID, tt.roomCode)

			if tt.shouldCreate {
				assert.Equal(t, tt.roomCode, sm.GetSession("p1").Room())
			} else {
				assert.Nil(t, sm.GetSession(tt.playerID))
			}
		})
	}
}

func TestSessionManager_Cleanup(t *testing.T) {
	t.Parallel()
	sm := newTestManager(t, nil)
	mustCreate(t, sm, "p1", "Player1")
	mustCreate(t, sm, "p2", "Player2")
	sm.SetOffline("p1")

	sm.now = func() time.Time { return time.Now().Add(3 * time.Minute) }
	expired := sm.cleanup()

	assert.Equal(t, []string{"p1"}, expired)
	assert.Nil(t, sm.GetSession("p1"))
	assert.NotNil(t, sm.GetSession("p2"))
}

func TestSessionManager_NonExistentNoPanic(t *testing.T) {
	t.Parallel()
	sm := newTestManager(t, nil)

	sm.SetOffline("non-existent")
	sm.SetOnline("non-existent")
	sm.DeleteSession("non-existent")
	assert.False(t, sm.IsOnline("non-existent"))
}

func TestSessionManager_ResumeFromRedisAfterRestart(t *testing.T) {
	t.Parallel()

	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = rdb.Close() })
	store := storage.NewRedisStore(rdb)

	first := newTestManager(t, store)
	session := mustCreate(t, first, "p1", "Player1")
	first.SetRoom("p1", "123456")
	first.SetOffline("p1")

	data, err := store.LoadSession(context.Background(), "p1")
	require.NoError(t, err)
	require.NotNil(t, data)
	assert.Equal(t, "123456", data.RoomCode)
	assert.False(t, data.IsOnline)
	assert.Positive(t, data.DisconnectedAt)

	// 新进程只有 redis 中的会话
	second := newTestManager(t, store)
	resumed, err := second.Resume(session.Token())
	require.NoError(t, err)
	assert.Equal(t, "123456", resumed.Room())
	assert.True(t, resumed.Online())

	data, err = store.LoadSession(context.Background(), "p1")
	require.NoError(t, err)
	assert.Equal(t, resumed.Token(), data.ReconnectToken)
	assert.True(t, data.IsOnline)

	second.DeleteSession("p1")
	data, err = store.LoadSession(context.Background(), "p1")
	require.NoError(t, err)
	assert.Nil(t, data)
}
