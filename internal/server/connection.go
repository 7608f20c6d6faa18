package server

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/palemoky/call-break/internal/protocol"
	"github.com/palemoky/call-break/internal/protocol/codec"
	"github.com/palemoky/call-break/internal/types"
)

// handleWebSocket 处理 WebSocket 连接
func (s *Server) handleWebSocket(w http.ResponseWriter, r *http.Request) {
	clientIP := GetClientIP(r)

	// 维护模式检查（最优先）
	if s.IsMaintenanceMode() {
		s.log.Info("🔧 维护模式，拒绝新连接", zap.String("ip", clientIP))
		http.Error(w, "Server is under maintenance, please try again later", http.StatusServiceUnavailable)
		return
	}

	// 连接数限制检查，读协程退出时释放
	select {
	case s.semaphore <- struct{}{}:
	default:
		s.log.Warn("🚫 达到最大连接数限制", zap.Int("max", s.maxConnections), zap.String("ip", clientIP))
		http.Error(w, "Server Full", http.StatusServiceUnavailable)
		return
	}
	release := func() { <-s.semaphore }

	if !s.ipFilter.IsAllowed(clientIP) {
		release()
		s.log.Warn("🚫 IP 被过滤器拒绝", zap.String("ip", clientIP))
		http.Error(w, "Forbidden", http.StatusForbidden)
		return
	}
	if !s.originChecker.Check(r) {
		release()
		s.log.Warn("🚫 来源验证失败", zap.String("origin", r.Header.Get("Origin")), zap.String("ip", clientIP))
		http.Error(w, "Origin not allowed", http.StatusForbidden)
		return
	}
	if !s.rateLimiter.Allow(clientIP) {
		release()
		s.log.Warn("🚫 IP 请求过于频繁", zap.String("ip", clientIP))
		http.Error(w, "Too Many Requests", http.StatusTooManyRequests)
		return
	}

	conn, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		release()
		s.log.Warn("WebSocket 升级失败", zap.Error(err))
		return
	}

	client := NewClient(s, conn)
	client.IP = clientIP

	sess, err := s.sessionManager.CreateSession(client.GetID(), client.GetName())
	if err != nil {
		release()
		s.log.Error("创建会话失败", zap.Error(err))
		_ = conn.Close()
		return
	}
	s.registerClient(client)

	// 发送连接成功消息（包含重连令牌）
	client.SendMessage(codec.MustNewMessage(protocol.MsgConnected, protocol.ConnectedPayload{
		PlayerID:       client.GetID(),
		PlayerName:     client.GetName(),
		ReconnectToken: sess.Token(),
	}))

	s.log.Info("✅ 玩家已连接", zap.String("player", client.GetName()), zap.String("id", client.GetID()), zap.String("ip", clientIP))

	go func() {
		defer release()
		client.ReadPump()
	}()
	go client.WritePump()
}

// handleHealth 健康检查接口
func (s *Server) handleHealth(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status":       "ok",
		"online":       s.GetOnlineCount(),
		"rooms":        s.roomManager.RoomCount(),
		"active_games": s.roomManager.GetActiveGamesCount(),
		"match_queue":  s.matcher.GetQueueLength(),
		"sessions":     s.sessionManager.Count(),
		"maintenance":  s.IsMaintenanceMode(),
	})
}

// registerClient 注册客户端
func (s *Server) registerClient(client *Client) {
	s.clientsMu.Lock()
	defer s.clientsMu.Unlock()
	s.clients[client.GetID()] = client
}

// unregisterClient 注销客户端，返回该连接是否仍是此 ID 的当前连接
func (s *Server) unregisterClient(client *Client) bool {
	s.clientsMu.Lock()
	defer s.clientsMu.Unlock()

	id := client.GetID()
	if current, ok := s.clients[id]; ok && current == client {
		delete(s.clients, id)
		return true
	}
	return false
}

// GetClientByID 按玩家 ID 查找连接
func (s *Server) GetClientByID(id string) types.ClientInterface {
	s.clientsMu.RLock()
	defer s.clientsMu.RUnlock()
	if c, ok := s.clients[id]; ok {
		return c
	}
	return nil
}

// RegisterClient 以指定 ID 注册连接（重连后使用会话中的 ID）
func (s *Server) RegisterClient(id string, client types.ClientInterface) {
	c, ok := client.(*Client)
	if !ok {
		return
	}
	s.clientsMu.Lock()
	defer s.clientsMu.Unlock()
	s.clients[id] = c
}

// UnregisterClient 注销指定 ID
func (s *Server) UnregisterClient(id string) {
	s.clientsMu.Lock()
	defer s.clientsMu.Unlock()
	delete(s.clients, id)
}
