package apperrors

import (
	"errors"

	"github.com/palemoky/call-break/internal/protocol"
)

// GameError 游戏错误（房间、会话和引擎共享）
type GameError struct {
	Code    int
	Message string
}

func (e *GameError) Error() string {
	return e.Message
}

// 预定义错误
var (
	// 校验错误：同步拒绝，不修改状态
	ErrNotYourTurn   = &GameError{Code: protocol.ErrCodeNotYourTurn, Message: "还没轮到您"}
	ErrWrongPhase    = &GameError{Code: protocol.ErrCodeWrongPhase, Message: "当前阶段不允许该操作"}
	ErrInvalidBid    = &GameError{Code: protocol.ErrCodeInvalidBid, Message: "叫分必须在 1-8 之间"}
	ErrIllegalCard   = &GameError{Code: protocol.ErrCodeInvalidCard, Message: "这张牌现在不能出"}
	ErrCardNotInHand = &GameError{Code: protocol.ErrCodeInvalidCard, Message: "手牌中没有这张牌"}
	ErrNotABot       = &GameError{Code: protocol.ErrCodeNotABot, Message: "该座位不是机器人"}
	ErrInvalidSeat   = &GameError{Code: protocol.ErrCodeInvalidSeat, Message: "无效的座位"}

	// 房间错误
	ErrRoomNotFound = &GameError{Code: protocol.ErrCodeRoomNotFound, Message: "房间不存在"}
	ErrRoomFull     = &GameError{Code: protocol.ErrCodeRoomFull, Message: "房间已满"}
	ErrNotInRoom    = &GameError{Code: protocol.ErrCodeNotInRoom, Message: "您不在房间中"}
	ErrGameStarted  = &GameError{Code: protocol.ErrCodeGameStarted, Message: "游戏已开始"}
	ErrGameNotStart = &GameError{Code: protocol.ErrCodeGameNotStart, Message: "游戏尚未开始"}
	ErrRoomClosed   = &GameError{Code: protocol.ErrCodeRoomNotFound, Message: "房间已关闭"}

	// 会话错误：致命，需要重新加入
	ErrInvalidToken   = &GameError{Code: protocol.ErrCodeInvalidToken, Message: "重连令牌无效"}
	ErrSessionExpired = &GameError{Code: protocol.ErrCodeSessionExpired, Message: "会话已过期"}
)

// Code 提取错误码，非 GameError 返回 ErrCodeUnknown
func Code(err error) int {
	var gameErr *GameError
	if errors.As(err, &gameErr) {
		return gameErr.Code
	}
	return protocol.ErrCodeUnknown
}

// IsValidation 是否为校验类错误（非法叫分、非法出牌、非当前回合或阶段）
func IsValidation(err error) bool {
	switch Code(err) {
	case protocol.ErrCodeNotYourTurn, protocol.ErrCodeWrongPhase, protocol.ErrCodeInvalidBid,
		protocol.ErrCodeInvalidCard, protocol.ErrCodeInvalidSeat:
		return true
	}
	return false
}
