package handler

import (
	"strings"
	"time"
	"unicode/utf8"

	"github.com/palemoky/call-break/internal/protocol"
	"github.com/palemoky/call-break/internal/protocol/codec"
	"github.com/palemoky/call-break/internal/types"
)

// maxChatRunes 单条聊天消息最大字符数
const maxChatRunes = 200

// handleChat 处理聊天消息：在房间中时房间内广播，否则广播到大厅
func (h *Handler) handleChat(client types.ClientInterface, msg *protocol.Message) {
	payload, err := codec.ParsePayload[protocol.ChatPayload](msg)
	if err != nil {
		return
	}

	payload.Message = strings.TrimSpace(payload.Message)
	if payload.Message == "" {
		return
	}
	if utf8.RuneCountInString(payload.Message) > maxChatRunes {
		payload.Message = string([]rune(payload.Message)[:maxChatRunes])
	}

	// 聊天限流检查
	if h.chatLimiter != nil {
		allowed, reason := h.chatLimiter.AllowChat(client.GetID())
		if !allowed {
			client.SendMessage(codec.NewErrorMessageWithText(protocol.ErrCodeRateLimit, reason))
			return
		}
	}

	// 填充发送者信息
	payload.SenderID = client.GetID()
	payload.SenderName = client.GetName()
	payload.Time = time.Now().Unix()

	chatMsg := codec.MustNewMessage(protocol.MsgChat, payload)

	if r, err := h.currentRoom(client); err == nil {
		r.Broadcast(chatMsg)
		return
	}
	if h.server != nil {
		h.server.BroadcastToLobby(chatMsg)
	}
}
