package server

import (
	"context"
	"fmt"
	"runtime"
	"time"

	"go.uber.org/zap"

	"github.com/palemoky/call-break/internal/protocol"
	"github.com/palemoky/call-break/internal/protocol/codec"
)

// monitorStats 定期输出服务器状态
func (s *Server) monitorStats() {
	ticker := time.NewTicker(30 * time.Second)
	defer ticker.Stop()

	for {
		select {
		case <-s.done:
			return
		case <-ticker.C:
			var m runtime.MemStats
			runtime.ReadMemStats(&m)

			s.log.Info("📊 [监控]",
				zap.Int("online", s.GetOnlineCount()),
				zap.Int("rooms", s.roomManager.RoomCount()),
				zap.Int("active_games", s.roomManager.GetActiveGamesCount()),
				zap.Int("match_queue", s.matcher.GetQueueLength()),
				zap.Int("goroutines", runtime.NumGoroutine()),
				zap.Int("active_conns", len(s.semaphore)),
				zap.Int("max_conns", s.maxConnections),
				zap.Float64("mem_mb", float64(m.Alloc)/1024/1024))
		}
	}
}

// EnterMaintenanceMode 进入维护模式：拒绝新连接与新房间，进行中的对局继续
func (s *Server) EnterMaintenanceMode() {
	s.maintenanceMu.Lock()
	already := s.maintenanceMode
	s.maintenanceMode = true
	s.maintenanceMu.Unlock()
	if already {
		return
	}

	s.Broadcast(codec.MustNewMessage(protocol.MsgMaintenancePush, protocol.MaintenancePayload{
		Maintenance: true,
		Message:     "👷🏻‍♂️ 服务器即将维护：停止新的房间创建，进行中的对局不受影响",
	}))

	s.log.Info("🔧 进入维护模式：停止新连接和房间创建")
}

// IsMaintenanceMode 检查是否在维护模式
func (s *Server) IsMaintenanceMode() bool {
	s.maintenanceMu.RLock()
	defer s.maintenanceMu.RUnlock()
	return s.maintenanceMode
}

// GracefulShutdown 优雅关闭：进入维护模式，等待进行中的对局结束或超时后关闭
func (s *Server) GracefulShutdown(timeout time.Duration) {
	s.EnterMaintenanceMode()

	deadline := time.Now().Add(timeout)
	ticker := time.NewTicker(s.config.Game.ShutdownCheckIntervalDuration())
	defer ticker.Stop()

	for time.Now().Before(deadline) {
		activeGames := s.roomManager.GetActiveGamesCount()
		if activeGames == 0 {
			s.log.Info("✅ 所有对局已结束")
			break
		}
		s.log.Info("⏳ 等待对局结束", zap.Int("active_games", activeGames))
		<-ticker.C
	}

	if activeGames := s.roomManager.GetActiveGamesCount(); activeGames > 0 {
		s.log.Warn("⚠️ 超时，仍有对局进行中，强制关闭", zap.Int("active_games", activeGames))
	}

	s.Broadcast(codec.MustNewMessage(protocol.MsgMaintenancePush, protocol.MaintenancePayload{
		Maintenance: true,
		Message:     fmt.Sprintf("🚧 服务器停机维护，共等待 %s", timeout.Round(time.Second)),
	}))

	s.Shutdown()
}

// Shutdown 关闭所有连接与后台组件，可重复调用
func (s *Server) Shutdown() {
	s.shutdownOnce.Do(func() {
		close(s.done)

		if s.httpServer != nil {
			ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			if err := s.httpServer.Shutdown(ctx); err != nil {
				s.log.Warn("HTTP 服务关闭失败", zap.Error(err))
			}
			cancel()
		}

		// 关闭所有客户端连接
		s.clientsMu.RLock()
		for _, client := range s.clients {
			client.Close()
		}
		s.clientsMu.RUnlock()

		s.matcher.Stop()
		s.roomManager.Close()
		s.sessionManager.Close()
		s.rateLimiter.Stop()

		if sqlDB, err := s.db.DB(); err == nil {
			_ = sqlDB.Close()
		}
		_ = s.redis.Close()

		s.log.Info("👋 服务器已关闭")
	})
}
