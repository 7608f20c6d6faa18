package handler

import (
	"context"
	"errors"

	"go.uber.org/zap"

	"github.com/palemoky/call-break/internal/apperrors"
	"github.com/palemoky/call-break/internal/game/match"
	"github.com/palemoky/call-break/internal/game/room"
	"github.com/palemoky/call-break/internal/protocol"
	"github.com/palemoky/call-break/internal/protocol/codec"
	"github.com/palemoky/call-break/internal/server/session"
	"github.com/palemoky/call-break/internal/server/storage"
	"github.com/palemoky/call-break/internal/types"
)

// Leaderboard 排行榜查询
type Leaderboard interface {
	GetLeaderboard(ctx context.Context, leaderboardType string, offset, limit int) ([]*storage.LeaderboardEntry, error)
}

// HandlerDeps 处理器依赖
type HandlerDeps struct {
	Server         types.ServerInterface
	RoomManager    *room.RoomManager
	Matcher        *match.Matcher
	ChatLimiter    types.ChatLimiter
	Leaderboard    Leaderboard
	SessionManager *session.SessionManager
	Logger         *zap.Logger
}

// Handler 消息处理器
type Handler struct {
	server         types.ServerInterface
	roomManager    *room.RoomManager
	matcher        *match.Matcher
	chatLimiter    types.ChatLimiter
	leaderboard    Leaderboard
	sessionManager *session.SessionManager
	log            *zap.Logger
	handlers       map[protocol.MessageType]handlerFunc
}

// handlerFunc 统一的处理器函数签名
type handlerFunc func(client types.ClientInterface, msg *protocol.Message)

// NewHandler 创建处理器
func NewHandler(deps HandlerDeps) *Handler {
	if deps.Logger == nil {
		deps.Logger = zap.NewNop()
	}
	h := &Handler{
		server:         deps.Server,
		roomManager:    deps.RoomManager,
		matcher:        deps.Matcher,
		chatLimiter:    deps.ChatLimiter,
		leaderboard:    deps.Leaderboard,
		sessionManager: deps.SessionManager,
		log:            deps.Logger,
	}
	h.initHandlers()
	return h
}

// initHandlers 初始化消息处理器映射
func (h *Handler) initHandlers() {
	h.handlers = map[protocol.MessageType]handlerFunc{
		// 连接操作
		protocol.MsgPing:        h.handlePing,
		protocol.MsgReconnect:   h.handleReconnect,
		protocol.MsgSyncRequest: func(c types.ClientInterface, _ *protocol.Message) { h.handleSyncRequest(c) },

		// 房间操作
		protocol.MsgCreateRoom:  h.handleCreateRoom,
		protocol.MsgJoinRoom:    h.handleJoinRoom,
		protocol.MsgLeaveRoom:   func(c types.ClientInterface, _ *protocol.Message) { h.handleLeaveRoom(c) },
		protocol.MsgQuickMatch:  func(c types.ClientInterface, _ *protocol.Message) { h.handleQuickMatch(c) },
		protocol.MsgCancelMatch: func(c types.ClientInterface, _ *protocol.Message) { h.handleCancelMatch(c) },
		protocol.MsgReady:       func(c types.ClientInterface, _ *protocol.Message) { h.handleReady(c, true) },
		protocol.MsgCancelReady: func(c types.ClientInterface, _ *protocol.Message) { h.handleReady(c, false) },

		// 游戏操作
		protocol.MsgBid:       h.handleBid,
		protocol.MsgPlayCard:  h.handlePlayCard,
		protocol.MsgNextRound: func(c types.ClientInterface, _ *protocol.Message) { h.handleNextRound(c) },
		protocol.MsgRestart:   func(c types.ClientInterface, _ *protocol.Message) { h.handleRestart(c) },
		protocol.MsgReaction:  h.handleReaction,
		protocol.MsgChat:      h.handleChat,

		// 信息查询
		protocol.MsgGetLeaderboard: h.handleGetLeaderboard,
		protocol.MsgGetRoomList:    func(c types.ClientInterface, _ *protocol.Message) { h.handleGetRoomList(c) },
		protocol.MsgGetOnlineCount: func(c types.ClientInterface, _ *protocol.Message) { h.handleGetOnlineCount(c) },
	}
}

// Handle 处理消息
func (h *Handler) Handle(client types.ClientInterface, msg *protocol.Message) {
	if handler, ok := h.handlers[msg.Type]; ok {
		handler(client, msg)
		return
	}

	h.log.Warn("⚠️ 未知消息类型",
		zap.String("type", string(msg.Type)),
		zap.String("player", client.GetName()),
		zap.Int("payload_bytes", len(msg.Payload)))
	client.SendMessage(codec.NewErrorMessage(protocol.ErrCodeInvalidMsg))
}

// sendError 将错误转换为协议错误消息；GameError 使用其错误码
func sendError(client types.ClientInterface, err error) {
	var gameErr *apperrors.GameError
	if errors.As(err, &gameErr) {
		client.SendMessage(codec.NewErrorMessageWithText(gameErr.Code, gameErr.Message))
		return
	}
	client.SendMessage(codec.NewErrorMessageWithText(protocol.ErrCodeUnknown, err.Error()))
}

// maintenance 维护模式下拒绝新的房间操作
func (h *Handler) maintenance(client types.ClientInterface, text string) bool {
	if h.server == nil || !h.server.IsMaintenanceMode() {
		return false
	}
	client.SendMessage(codec.NewErrorMessageWithText(protocol.ErrCodeServerMaintenance, text))
	return true
}

// currentRoom 玩家当前所在房间
func (h *Handler) currentRoom(client types.ClientInterface) (*room.Room, error) {
	code := client.GetRoom()
	if code == "" || h.roomManager == nil {
		return nil, apperrors.ErrNotInRoom
	}
	r := h.roomManager.GetRoom(code)
	if r == nil {
		return nil, apperrors.ErrNotInRoom
	}
	return r, nil
}
