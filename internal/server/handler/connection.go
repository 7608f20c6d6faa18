package handler

import (
	"time"

	"go.uber.org/zap"

	"github.com/palemoky/call-break/internal/protocol"
	"github.com/palemoky/call-break/internal/protocol/codec"
	"github.com/palemoky/call-break/internal/types"
)

// identitySetter 重连成功后切换连接身份
type identitySetter interface {
	SetIdentity(id, name string)
}

// handlePing 处理心跳
func (h *Handler) handlePing(client types.ClientInterface, msg *protocol.Message) {
	var clientTS int64
	if payload, err := codec.ParsePayload[protocol.PingPayload](msg); err == nil {
		clientTS = payload.Timestamp
	}
	client.SendMessage(codec.MustNewMessage(protocol.MsgPong, protocol.PongPayload{
		ClientTimestamp: clientTS,
		ServerTimestamp: time.Now().UnixMilli(),
	}))
}

// handleReconnect 凭令牌恢复身份，回到原房间并下发全量状态
func (h *Handler) handleReconnect(client types.ClientInterface, msg *protocol.Message) {
	if h.sessionManager == nil {
		client.SendMessage(codec.NewErrorMessage(protocol.ErrCodeUnknown))
		return
	}

	payload, err := codec.ParsePayload[protocol.ReconnectPayload](msg)
	if err != nil || payload.Token == "" {
		client.SendMessage(codec.NewErrorMessage(protocol.ErrCodeInvalidToken))
		return
	}

	session, err := h.sessionManager.Resume(payload.Token)
	if err != nil {
		h.log.Info("🔒 重连被拒绝", zap.String("client", client.GetID()), zap.Error(err))
		sendError(client, err)
		return
	}

	tempID := client.GetID()
	if tempID != session.PlayerID {
		// 新连接建立时分配的临时身份作废
		if h.server != nil {
			h.server.UnregisterClient(tempID)
		}
		h.sessionManager.DeleteSession(tempID)
		if setter, ok := client.(identitySetter); ok {
			setter.SetIdentity(session.PlayerID, session.PlayerName)
		}
	}
	if h.server != nil {
		// 先登记新连接再关闭旧连接，旧连接的断线处理不再视其为当前连接
		old := h.server.GetClientByID(session.PlayerID)
		h.server.RegisterClient(session.PlayerID, client)
		if old != nil && old != client {
			old.Close()
		}
	}

	result := protocol.ReconnectedPayload{
		PlayerID:       session.PlayerID,
		PlayerName:     session.PlayerName,
		ReconnectToken: session.Token(),
	}

	if h.roomManager != nil {
		code, err := h.roomManager.ReconnectPlayer(client)
		if err != nil {
			h.log.Warn("⚠️ 回到房间失败", zap.String("player", session.PlayerName), zap.Error(err))
		}
		if code != "" {
			h.sessionManager.SetRoom(session.PlayerID, code)
			result.RoomCode = code
			if r := h.roomManager.GetRoom(code); r != nil {
				if view, ok := r.View(session.PlayerID); ok {
					result.State = &view
				}
			}
		} else {
			h.sessionManager.SetRoom(session.PlayerID, "")
		}
	}

	client.SendMessage(codec.MustNewMessage(protocol.MsgReconnected, result))
	h.log.Info("🔄 玩家重连成功",
		zap.String("player", session.PlayerName),
		zap.String("room", result.RoomCode))
}

// handleSyncRequest 重新下发全量状态，用于客户端检测到版本缺口时
func (h *Handler) handleSyncRequest(client types.ClientInterface) {
	r, err := h.currentRoom(client)
	if err != nil {
		sendError(client, err)
		return
	}
	if err := r.SyncState(client.GetID()); err != nil {
		sendError(client, err)
	}
}
