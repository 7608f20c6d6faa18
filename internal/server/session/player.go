package session

import (
	"context"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/palemoky/call-break/internal/apperrors"
	"github.com/palemoky/call-break/internal/server/storage"
)

const (
	// 重连等待时间
	defaultReconnectWindow = 2 * time.Minute
	// 令牌有效期
	defaultTokenTTL = 30 * time.Minute
	storeTimeout    = 2 * time.Second
)

// Store 会话的持久化镜像，进程重启后仍可凭令牌找回身份
type Store interface {
	SaveSession(ctx context.Context, s *storage.PlayerSessionData, ttl time.Duration) error
	LoadSession(ctx context.Context, playerID string) (*storage.PlayerSessionData, error)
	DeleteSession(ctx context.Context, playerID string) error
}

// PlayerSession 玩家会话（用于断线重连）
type PlayerSession struct {
	PlayerID       string
	PlayerName     string
	ReconnectToken string // 当前有效的令牌，重连后轮换
	RoomCode       string

	DisconnectedAt time.Time // 断线时间
	IsOnline       bool      // 是否在线

	mu sync.RWMutex
}

// Token 当前令牌
func (s *PlayerSession) Token() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.ReconnectToken
}

// Room 所在房间
func (s *PlayerSession) Room() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.RoomCode
}

// Online 是否在线
func (s *PlayerSession) Online() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.IsOnline
}

func (s *PlayerSession) toData() *storage.PlayerSessionData {
	d := &storage.PlayerSessionData{
		PlayerID:       s.PlayerID,
		PlayerName:     s.PlayerName,
		ReconnectToken: s.ReconnectToken,
		RoomCode:       s.RoomCode,
		IsOnline:       s.IsOnline,
	}
	if !s.DisconnectedAt.IsZero() {
		d.DisconnectedAt = s.DisconnectedAt.Unix()
	}
	return d
}

func fromData(d *storage.PlayerSessionData) *PlayerSession {
	s := &PlayerSession{
		PlayerID:       d.PlayerID,
		PlayerName:     d.PlayerName,
		ReconnectToken: d.ReconnectToken,
		RoomCode:       d.RoomCode,
		IsOnline:       d.IsOnline,
	}
	if d.DisconnectedAt > 0 {
		s.DisconnectedAt = time.Unix(d.DisconnectedAt, 0)
	}
	return s
}

// Options 会话管理器参数
type Options struct {
	Secret          string
	TokenTTL        time.Duration
	ReconnectWindow time.Duration
	Store           Store // 可为空
	Logger          *zap.Logger
}

// SessionManager 会话管理器
type SessionManager struct {
	issuer          *TokenIssuer
	reconnectWindow time.Duration
	ttl             time.Duration
	store           Store
	log             *zap.Logger
	now             func() time.Time

	sessions map[string]*PlayerSession // playerID -> session
	done     chan struct{}
	once     sync.Once
	mu       sync.RWMutex
}

// NewSessionManager 创建会话管理器
func NewSessionManager(opts Options) *SessionManager {
	if opts.TokenTTL <= 0 {
		opts.TokenTTL = defaultTokenTTL
	}
	if opts.ReconnectWindow <= 0 {
		opts.ReconnectWindow = defaultReconnectWindow
	}
	if opts.Logger == nil {
		opts.Logger = zap.NewNop()
	}
	sm := &SessionManager{
		issuer:          NewTokenIssuer(opts.Secret, opts.TokenTTL),
		reconnectWindow: opts.ReconnectWindow,
		ttl:             opts.TokenTTL,
		store:           opts.Store,
		log:             opts.Logger,
		now:             time.Now,
		sessions:        make(map[string]*PlayerSession),
		done:            make(chan struct{}),
	}

	// 启动会话清理协程
	go sm.cleanupLoop()

	return sm
}

// CreateSession 创建新会话并签发令牌
func (sm *SessionManager) CreateSession(playerID, playerName string) (*PlayerSession, error) {
	token, err := sm.issuer.Issue(playerID, playerName)
	if err != nil {
		return nil, err
	}

	session := &PlayerSession{
		PlayerID:       playerID,
		PlayerName:     playerName,
		ReconnectToken: token,
		IsOnline:       true,
	}

	sm.mu.Lock()
	sm.sessions[playerID] = session
	sm.mu.Unlock()

	sm.persist(session)
	return session, nil
}

// GetSession 获取会话
func (sm *SessionManager) GetSession(playerID string) *PlayerSession {
	sm.mu.RLock()
	defer sm.mu.RUnlock()
	return sm.sessions[playerID]
}

// Resume 凭令牌恢复会话：校验签名、是否为当前令牌、是否在重连窗口内
// 成功后轮换令牌，旧令牌立即失效
func (sm *SessionManager) Resume(token string) (*PlayerSession, error) {
	claims, err := sm.issuer.Parse(token)
	if err != nil {
		return nil, err
	}

	session := sm.lookup(claims.PlayerID)
	if session == nil {
		return nil, apperrors.ErrSessionExpired
	}

	session.mu.Lock()
	if session.ReconnectToken != token {
		session.mu.Unlock()
		return nil, apperrors.ErrInvalidToken
	}
	if !session.IsOnline && sm.now().Sub(session.DisconnectedAt) > sm.reconnectWindow {
		session.mu.Unlock()
		sm.DeleteSession(session.PlayerID)
		return nil, apperrors.ErrSessionExpired
	}

	next, err := sm.issuer.Issue(session.PlayerID, session.PlayerName)
	if err != nil {
		session.mu.Unlock()
		return nil, err
	}
	session.ReconnectToken = next
	session.IsOnline = true
	session.DisconnectedAt = time.Time{}
	session.mu.Unlock()

	sm.persist(session)
	sm.log.Info("🔄 会话已恢复", zap.String("player", session.PlayerName))
	return session, nil
}

// lookup 先查内存，再查持久化镜像
func (sm *SessionManager) lookup(playerID string) *PlayerSession {
	if s := sm.GetSession(playerID); s != nil {
		return s
	}
	if sm.store == nil {
		return nil
	}

	ctx, cancel := context.WithTimeout(context.Background(), storeTimeout)
	defer cancel()
	data, err := sm.store.LoadSession(ctx, playerID)
	if err != nil {
		sm.log.Warn("⚠️ 加载会话失败", zap.String("player", playerID), zap.Error(err))
		return nil
	}
	if data == nil {
		return nil
	}

	sm.mu.Lock()
	defer sm.mu.Unlock()
	if s, ok := sm.sessions[playerID]; ok {
		return s
	}
	s := fromData(data)
	sm.sessions[playerID] = s
	return s
}

// SetOffline 设置玩家离线
func (sm *SessionManager) SetOffline(playerID string) {
	sm.update(playerID, func(s *PlayerSession) {
		s.IsOnline = false
		s.DisconnectedAt = sm.now()
	})
}

// SetOnline 设置玩家上线
func (sm *SessionManager) SetOnline(playerID string) {
	sm.update(playerID, func(s *PlayerSession) {
		s.IsOnline = true
		s.DisconnectedAt = time.Time{}
	})
}

// SetRoom 设置玩家所在房间
func (sm *SessionManager) SetRoom(playerID, roomCode string) {
	sm.update(playerID, func(s *PlayerSession) {
		s.RoomCode = roomCode
	})
}

func (sm *SessionManager) update(playerID string, f func(s *PlayerSession)) {
	session := sm.GetSession(playerID)
	if session == nil {
		return
	}
	session.mu.Lock()
	f(session)
	session.mu.Unlock()
	sm.persist(session)
}

// DeleteSession 删除会话
func (sm *SessionManager) DeleteSession(playerID string) {
	sm.mu.Lock()
	delete(sm.sessions, playerID)
	sm.mu.Unlock()

	if sm.store != nil {
		ctx, cancel := context.WithTimeout(context.Background(), storeTimeout)
		defer cancel()
		if err := sm.store.DeleteSession(ctx, playerID); err != nil {
			sm.log.Warn("⚠️ 删除会话失败", zap.String("player", playerID), zap.Error(err))
		}
	}
}

// IsOnline 检查玩家是否在线
func (sm *SessionManager) IsOnline(playerID string) bool {
	session := sm.GetSession(playerID)
	return session != nil && session.Online()
}

// Count 会话数量
func (sm *SessionManager) Count() int {
	sm.mu.RLock()
	defer sm.mu.RUnlock()
	return len(sm.sessions)
}

// persist 同步到持久化镜像，过期时间与令牌有效期一致
func (sm *SessionManager) persist(s *PlayerSession) {
	if sm.store == nil {
		return
	}
	s.mu.RLock()
	data := s.toData()
	s.mu.RUnlock()

	ctx, cancel := context.WithTimeout(context.Background(), storeTimeout)
	defer cancel()
	if err := sm.store.SaveSession(ctx, data, sm.ttl); err != nil {
		sm.log.Warn("⚠️ 保存会话失败", zap.String("player", s.PlayerID), zap.Error(err))
	}
}

// cleanupLoop 定期清理过期会话
func (sm *SessionManager) cleanupLoop() {
	ticker := time.NewTicker(1 * time.Minute)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			sm.cleanup()
		case <-sm.done:
			return
		}
	}
}

// cleanup 清理离线超过重连窗口的会话，返回清理的玩家
func (sm *SessionManager) cleanup() []string {
	sm.mu.Lock()
	defer sm.mu.Unlock()

	now := sm.now()
	var expired []string
	for playerID, session := range sm.sessions {
		session.mu.RLock()
		if !session.IsOnline && now.Sub(session.DisconnectedAt) > sm.reconnectWindow {
			expired = append(expired, playerID)
		}
		session.mu.RUnlock()
	}
	for _, id := range expired {
		delete(sm.sessions, id)
	}
	return expired
}

// Close 停止清理协程
func (sm *SessionManager) Close() {
	sm.once.Do(func() { close(sm.done) })
}
