package transport

import (
	"time"

	"github.com/palemoky/call-break/internal/protocol"
	"github.com/palemoky/call-break/internal/protocol/codec"
)

// --- 便捷方法 ---

// Ping 发送心跳
func (c *Client) Ping() error {
	return c.SendMessage(codec.MustNewMessage(protocol.MsgPing, protocol.PingPayload{
		Timestamp: time.Now().UnixMilli(),
	}))
}

// CreateRoom 创建房间；solo 为单机模式，botLevel 为空时使用服务端默认
func (c *Client) CreateRoom(solo bool, botLevel string) error {
	return c.SendMessage(codec.MustNewMessage(protocol.MsgCreateRoom, protocol.CreateRoomPayload{
		Solo:     solo,
		BotLevel: botLevel,
	}))
}

// JoinRoom 加入房间
func (c *Client) JoinRoom(roomCode string) error {
	return c.SendMessage(codec.MustNewMessage(protocol.MsgJoinRoom, protocol.JoinRoomPayload{
		RoomCode: roomCode,
	}))
}

// LeaveRoom 离开房间
func (c *Client) LeaveRoom() error {
	return c.SendMessage(codec.MustNewMessage(protocol.MsgLeaveRoom, nil))
}

// QuickMatch 快速匹配
func (c *Client) QuickMatch() error {
	return c.SendMessage(codec.MustNewMessage(protocol.MsgQuickMatch, nil))
}

// CancelMatch 取消匹配
func (c *Client) CancelMatch() error {
	return c.SendMessage(codec.MustNewMessage(protocol.MsgCancelMatch, nil))
}

// Ready 准备
func (c *Client) Ready() error {
	return c.SendMessage(codec.MustNewMessage(protocol.MsgReady, nil))
}

// Bid 叫分
func (c *Client) Bid(value int) error {
	return c.SendMessage(codec.MustNewMessage(protocol.MsgBid, protocol.BidPayload{Value: value}))
}

// PlayCard 出牌
func (c *Client) PlayCard(cardID string) error {
	return c.SendMessage(codec.MustNewMessage(protocol.MsgPlayCard, protocol.PlayCardPayload{CardID: cardID}))
}

// NextRound 进入下一局
func (c *Client) NextRound() error {
	return c.SendMessage(codec.MustNewMessage(protocol.MsgNextRound, nil))
}

// Restart 重开比赛
func (c *Client) Restart() error {
	return c.SendMessage(codec.MustNewMessage(protocol.MsgRestart, nil))
}

// SyncRequest 请求全量状态（增量版本不连续时）
func (c *Client) SyncRequest(version int64) error {
	return c.SendMessage(codec.MustNewMessage(protocol.MsgSyncRequest, protocol.SyncRequestPayload{Version: version}))
}

// Chat 发送聊天
func (c *Client) Chat(text string) error {
	return c.SendMessage(codec.MustNewMessage(protocol.MsgChat, protocol.ChatPayload{Message: text}))
}
