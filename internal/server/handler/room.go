package handler

import (
	"go.uber.org/zap"

	"github.com/palemoky/call-break/internal/game/bot"
	"github.com/palemoky/call-break/internal/protocol"
	"github.com/palemoky/call-break/internal/protocol/codec"
	"github.com/palemoky/call-break/internal/types"
)

// handleCreateRoom 创建房间
func (h *Handler) handleCreateRoom(client types.ClientInterface, msg *protocol.Message) {
	if h.maintenance(client, "服务器维护中，暂停创建新房间") {
		return
	}

	var req protocol.CreateRoomPayload
	if len(msg.Payload) > 0 {
		payload, err := codec.ParsePayload[protocol.CreateRoomPayload](msg)
		if err != nil {
			client.SendMessage(codec.NewErrorMessage(protocol.ErrCodeInvalidMsg))
			return
		}
		req = *payload
	}

	var level bot.Level
	if req.BotLevel != "" {
		parsed, err := bot.ParseLevel(req.BotLevel)
		if err != nil {
			client.SendMessage(codec.NewErrorMessageWithText(protocol.ErrCodeInvalidMsg, err.Error()))
			return
		}
		level = parsed
	}

	h.leaveCurrent(client)

	r, err := h.roomManager.CreateRoom(client, req.Solo, level)
	if err != nil {
		h.log.Warn("⚠️ 创建房间失败", zap.String("player", client.GetName()), zap.Error(err))
		sendError(client, err)
		return
	}
	h.bindSessionRoom(client, r.Code)
}

// handleJoinRoom 加入房间
func (h *Handler) handleJoinRoom(client types.ClientInterface, msg *protocol.Message) {
	if h.maintenance(client, "服务器维护中，暂停加入房间") {
		return
	}

	payload, err := codec.ParsePayload[protocol.JoinRoomPayload](msg)
	if err != nil || payload.RoomCode == "" {
		client.SendMessage(codec.NewErrorMessage(protocol.ErrCodeInvalidMsg))
		return
	}
	if client.GetRoom() == payload.RoomCode {
		return
	}

	h.leaveCurrent(client)

	r, err := h.roomManager.JoinRoom(client, payload.RoomCode)
	if err != nil {
		sendError(client, err)
		return
	}
	h.bindSessionRoom(client, r.Code)
}

// handleLeaveRoom 离开房间
func (h *Handler) handleLeaveRoom(client types.ClientInterface) {
	h.leaveCurrent(client)
}

// handleQuickMatch 快速匹配
func (h *Handler) handleQuickMatch(client types.ClientInterface) {
	if h.maintenance(client, "服务器维护中，暂停匹配") {
		return
	}
	if h.matcher == nil {
		client.SendMessage(codec.NewErrorMessage(protocol.ErrCodeUnknown))
		return
	}
	h.leaveCurrent(client)
	h.matcher.AddToQueue(client)
}

// handleCancelMatch 取消匹配
func (h *Handler) handleCancelMatch(client types.ClientInterface) {
	if h.matcher != nil {
		h.matcher.RemoveFromQueue(client)
	}
}

// handleReady 准备 / 取消准备
func (h *Handler) handleReady(client types.ClientInterface, ready bool) {
	if err := h.roomManager.SetPlayerReady(client, ready); err != nil {
		sendError(client, err)
	}
}

// leaveCurrent 离开当前房间与匹配队列
func (h *Handler) leaveCurrent(client types.ClientInterface) {
	if h.matcher != nil {
		h.matcher.RemoveFromQueue(client)
	}
	if client.GetRoom() == "" {
		return
	}
	h.roomManager.LeaveRoom(client)
	h.bindSessionRoom(client, "")
}

// bindSessionRoom 同步会话中的房间号
func (h *Handler) bindSessionRoom(client types.ClientInterface, code string) {
	if h.sessionManager != nil {
		h.sessionManager.SetRoom(client.GetID(), code)
	}
}
