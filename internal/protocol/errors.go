package protocol

// 错误码
const (
	ErrCodeUnknown        = 1000
	ErrCodeInvalidMsg     = 1001
	ErrCodeRateLimit      = 1002 // 速率限制
	ErrCodeInvalidToken   = 1003 // 重连令牌无效
	ErrCodeSessionExpired = 1004 // 会话已过期

	ErrCodeRoomNotFound = 2001
	ErrCodeRoomFull     = 2002
	ErrCodeNotInRoom    = 2003
	ErrCodeGameStarted  = 2004 // 游戏已开始

	ErrCodeGameNotStart = 3001
	ErrCodeNotYourTurn  = 3002
	ErrCodeInvalidCard  = 3003
	ErrCodeInvalidBid   = 3004
	ErrCodeWrongPhase   = 3005
	ErrCodeNotABot      = 3006
	ErrCodeInvalidSeat  = 3007

	ErrCodeServerMaintenance = 5003 // 服务器维护中
)

// ErrorMessages 错误码对应的消息
var ErrorMessages = map[int]string{
	ErrCodeUnknown:           "未知错误",
	ErrCodeInvalidMsg:        "无效的消息格式",
	ErrCodeRateLimit:         "请求过于频繁",
	ErrCodeInvalidToken:      "重连令牌无效",
	ErrCodeSessionExpired:    "会话已过期",
	ErrCodeRoomNotFound:      "房间不存在",
	ErrCodeRoomFull:          "房间已满",
	ErrCodeNotInRoom:         "您不在房间中",
	ErrCodeGameStarted:       "游戏已开始",
	ErrCodeGameNotStart:      "游戏尚未开始",
	ErrCodeNotYourTurn:       "还没轮到您",
	ErrCodeInvalidCard:       "这张牌现在不能出",
	ErrCodeInvalidBid:        "叫分必须在 1-8 之间",
	ErrCodeWrongPhase:        "当前阶段不允许该操作",
	ErrCodeNotABot:           "该座位不是机器人",
	ErrCodeInvalidSeat:       "无效的座位",
	ErrCodeServerMaintenance: "服务器维护中",
}
