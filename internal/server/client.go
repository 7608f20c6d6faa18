package server

import (
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"github.com/palemoky/call-break/internal/logger"
	"github.com/palemoky/call-break/internal/protocol"
	"github.com/palemoky/call-break/internal/protocol/codec"
)

const (
	// 写入超时
	writeWait = 10 * time.Second

	// 读取超时（pong 等待时间）
	pongWait = 60 * time.Second

	// ping 发送间隔（必须小于 pongWait）
	pingPeriod = (pongWait * 9) / 10

	// 消息最大大小
	maxMessageSize = 4096

	// 发送缓冲
	sendBufferSize = 256

	// 超速次数超过该值断开连接
	maxRateWarnings = 5
)

// Client 代表一个连接的玩家
type Client struct {
	IP string // 客户端 IP 地址

	id     string
	name   string
	roomID string

	server *Server
	conn   *websocket.Conn
	codec  codec.Codec
	send   chan []byte
	log    *zap.Logger

	mu     sync.RWMutex
	closed bool
}

// NewClient 创建新客户端，分配临时身份与随机昵称
func NewClient(s *Server, conn *websocket.Conn) *Client {
	return &Client{
		id:     uuid.New().String(),
		name:   GenerateNickname(),
		server: s,
		conn:   conn,
		codec:  s.codec,
		send:   make(chan []byte, sendBufferSize),
		log:    s.log,
	}
}

// GetID 玩家 ID
func (c *Client) GetID() string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.id
}

// GetName 玩家昵称
func (c *Client) GetName() string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.name
}

// SetIdentity 重连后切换为会话中的身份
func (c *Client) SetIdentity(id, name string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.id = id
	c.name = name
}

// SetRoom 设置客户端所在房间
func (c *Client) SetRoom(roomID string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.roomID = roomID
}

// GetRoom 获取客户端所在房间
func (c *Client) GetRoom() string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.roomID
}

// ReadPump 从 WebSocket 读取消息
func (c *Client) ReadPump() {
	defer func() {
		if r := recover(); r != nil {
			logger.LogPanic(r)
		}
		c.handleDisconnect()
		_ = c.conn.Close()
	}()

	c.conn.SetReadLimit(maxMessageSize)
	_ = c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetPongHandler(func(string) error {
		return c.conn.SetReadDeadline(time.Now().Add(pongWait))
	})

	for {
		_, data, err := c.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				c.log.Warn("⚠️ 读取错误", zap.String("player", c.GetName()), zap.Error(err))
			}
			return
		}

		// 消息速率限制检查
		allowed, warning := c.server.messageLimiter.AllowMessage(c.GetID())
		if !allowed {
			c.log.Warn("⚠️ 客户端消息过于频繁", zap.String("player", c.GetName()), zap.String("ip", c.IP))
			c.SendMessage(codec.NewErrorMessageWithText(protocol.ErrCodeRateLimit, "消息发送过于频繁"))
			if c.server.messageLimiter.GetWarningCount(c.GetID()) > maxRateWarnings {
				c.log.Warn("🚫 客户端因多次超速被断开连接", zap.String("player", c.GetName()))
				return
			}
			continue
		}
		if warning {
			c.SendMessage(codec.NewErrorMessageWithText(protocol.ErrCodeRateLimit, "请求过于频繁，请放慢速度"))
		}

		msg, err := c.codec.Decode(data)
		if err != nil {
			c.log.Debug("消息解析错误", zap.String("player", c.GetName()), zap.Error(err))
			c.SendMessage(codec.NewErrorMessage(protocol.ErrCodeInvalidMsg))
			continue
		}

		c.server.handler.Handle(c, msg)
		codec.PutMessage(msg)
	}
}

// WritePump 向 WebSocket 写入消息，二进制编码使用二进制帧
func (c *Client) WritePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		if r := recover(); r != nil {
			logger.LogPanic(r)
		}
		ticker.Stop()
		_ = c.conn.Close()
	}()

	frame := websocket.TextMessage
	if c.codec.Binary() {
		frame = websocket.BinaryMessage
	}

	for {
		select {
		case message, ok := <-c.send:
			_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				// 通道已关闭
				_ = c.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			if err := c.conn.WriteMessage(frame, message); err != nil {
				return
			}

		case <-ticker.C:
			_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}

// SendMessage 非阻塞发送，缓冲区满时断开慢客户端
func (c *Client) SendMessage(msg *protocol.Message) {
	data, err := c.codec.Encode(msg)
	if err != nil {
		c.log.Error("消息编码错误", zap.String("type", string(msg.Type)), zap.Error(err))
		return
	}

	c.mu.RLock()
	defer c.mu.RUnlock()
	if c.closed {
		return
	}

	select {
	case c.send <- data:
	default:
		c.log.Warn("🐢 客户端发送缓冲区已满，断开连接", zap.String("player", c.name))
		go c.Close()
	}
}

// handleDisconnect 连接断开：仅当该连接仍是此玩家的当前连接时才通知房间与会话
func (c *Client) handleDisconnect() {
	c.Close()

	if !c.server.unregisterClient(c) {
		// 已被重连的新连接取代
		return
	}

	id := c.GetID()
	c.server.sessionManager.SetOffline(id)
	c.server.roomManager.NotifyPlayerOffline(c)
	c.server.matcher.RemoveFromQueue(c)
	c.server.chatLimiter.RemoveClient(id)
	c.server.messageLimiter.ClearRateLimit(id)

	c.log.Info("❌ 玩家已断开", zap.String("player", c.GetName()), zap.String("id", id))
}

// Close 关闭发送通道，WritePump 随后关闭连接
func (c *Client) Close() {
	c.mu.Lock()
	defer c.mu.Unlock()

	if !c.closed {
		c.closed = true
		close(c.send)
	}
}
