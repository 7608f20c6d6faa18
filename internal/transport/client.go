package transport

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"slices"
	"sync"
	"sync/atomic"
	"time"

	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"github.com/palemoky/call-break/internal/protocol"
	"github.com/palemoky/call-break/internal/protocol/codec"
)

const (
	writeWait  = 10 * time.Second
	pongWait   = 60 * time.Second
	pingPeriod = (pongWait * 9) / 10

	// 应用层心跳间隔
	heartbeatInterval = 5 * time.Second
	handshakeTimeout  = 10 * time.Second

	sendBufferSize    = 256
	receiveBufferSize = 256
	maxMessageSize    = 64 * 1024 // 全量状态可能较大
)

var (
	ErrClosed         = errors.New("客户端已关闭")
	ErrNotConnected   = errors.New("未连接")
	ErrSendBufferFull = errors.New("发送缓冲区已满")
)

// ServerError 服务端返回的 error 消息
type ServerError struct {
	Code    int
	Message string
}

func (e *ServerError) Error() string {
	return fmt.Sprintf("服务端错误 %d: %s", e.Code, e.Message)
}

// ClientOptions 客户端配置
type ClientOptions struct {
	URL    string
	Codec  codec.Codec // 默认 JSON
	Header http.Header
	Logger *zap.Logger

	// Heartbeat 应用层 ping 间隔，0 使用默认值，负数关闭
	Heartbeat time.Duration

	// OnActivity 每条入站消息都会调用，通常接到 Monitor.RecordActivity
	OnActivity func()
	// OnDisconnect 连接意外断开时调用（Close 不会触发）
	OnDisconnect func(err error)
}

// link 一条 websocket 连接，重连后整体替换
type link struct {
	conn    *websocket.Conn
	send    chan []byte
	done    chan struct{}
	once    sync.Once
	stop    chan struct{} // 通知写协程发送关闭帧后退出
	stopped chan struct{} // 写协程已退出
	stopOne sync.Once
}

func newLink(conn *websocket.Conn) *link {
	return &link{
		conn:    conn,
		send:    make(chan []byte, sendBufferSize),
		done:    make(chan struct{}),
		stop:    make(chan struct{}),
		stopped: make(chan struct{}),
	}
}

// shutdown 由写协程写出关闭帧，连接只有一个写入者
func (l *link) shutdown() {
	l.stopOne.Do(func() { close(l.stop) })
	select {
	case <-l.stopped:
	case <-time.After(writeWait):
	}
	l.close()
}

func (l *link) close() {
	l.once.Do(func() {
		close(l.done)
		_ = l.conn.Close()
	})
}

// Client WebSocket 客户端
type Client struct {
	opts   ClientOptions
	log    *zap.Logger
	codec  codec.Codec
	dialer websocket.Dialer

	mu         sync.RWMutex
	link       *link
	closed     bool
	playerID   string
	playerName string
	token      string

	inbound chan *protocol.Message
	latency atomic.Int64 // 毫秒
}

// NewClient 创建客户端，不会立即连接
func NewClient(opts ClientOptions) *Client {
	if opts.Codec == nil {
		opts.Codec = codec.Default
	}
	if opts.Heartbeat == 0 {
		opts.Heartbeat = heartbeatInterval
	}
	log := opts.Logger
	if log == nil {
		log = zap.NewNop()
	}
	return &Client{
		opts:    opts,
		log:     log,
		codec:   opts.Codec,
		dialer:  websocket.Dialer{HandshakeTimeout: handshakeTimeout},
		inbound: make(chan *protocol.Message, receiveBufferSize),
	}
}

// Connect 建立新会话：拨号并等待 connected
func (c *Client) Connect(ctx context.Context) error {
	conn, err := c.dial(ctx)
	if err != nil {
		return err
	}

	msg, extra, err := c.await(ctx, conn, protocol.MsgConnected)
	if err != nil {
		_ = conn.Close()
		return err
	}
	payload, err := codec.ParsePayload[protocol.ConnectedPayload](msg)
	if err != nil {
		_ = conn.Close()
		return fmt.Errorf("解析 connected 失败: %w", err)
	}

	c.setIdentity(payload.PlayerID, payload.PlayerName, payload.ReconnectToken)
	c.log.Info("🔗 已连接服务器", zap.String("player", payload.PlayerID), zap.String("name", payload.PlayerName))
	return c.install(conn, append(extra, msg))
}

// Resume 用令牌恢复会话，成功时返回轮换后的令牌
// 令牌被拒绝时返回的错误包装 ErrSessionLost
func (c *Client) Resume(ctx context.Context, token string) (string, error) {
	conn, err := c.dial(ctx)
	if err != nil {
		return "", err
	}

	if _, _, err := c.await(ctx, conn, protocol.MsgConnected); err != nil {
		_ = conn.Close()
		return "", err
	}

	req, err := c.encode(codec.MustNewMessage(protocol.MsgReconnect, protocol.ReconnectPayload{Token: token}))
	if err == nil {
		_ = conn.SetWriteDeadline(time.Now().Add(writeWait))
		err = conn.WriteMessage(c.frameType(), req)
	}
	if err != nil {
		_ = conn.Close()
		return "", fmt.Errorf("发送重连请求失败: %w", err)
	}

	msg, extra, err := c.await(ctx, conn, protocol.MsgReconnected)
	if err != nil {
		_ = conn.Close()
		var se *ServerError
		if errors.As(err, &se) && (se.Code == protocol.ErrCodeInvalidToken || se.Code == protocol.ErrCodeSessionExpired) {
			return "", fmt.Errorf("%w: %w", ErrSessionLost, err)
		}
		return "", err
	}
	payload, err := codec.ParsePayload[protocol.ReconnectedPayload](msg)
	if err != nil {
		_ = conn.Close()
		return "", fmt.Errorf("解析 reconnected 失败: %w", err)
	}

	c.setIdentity(payload.PlayerID, payload.PlayerName, payload.ReconnectToken)
	c.log.Info("🔁 会话已恢复", zap.String("player", payload.PlayerID), zap.String("room", payload.RoomCode))
	if err := c.install(conn, append(extra, msg)); err != nil {
		return "", err
	}
	return payload.ReconnectToken, nil
}

func (c *Client) dial(ctx context.Context) (*websocket.Conn, error) {
	c.mu.RLock()
	closed := c.closed
	c.mu.RUnlock()
	if closed {
		return nil, ErrClosed
	}

	conn, resp, err := c.dialer.DialContext(ctx, c.opts.URL, c.opts.Header)
	if resp != nil && resp.Body != nil {
		_ = resp.Body.Close()
	}
	if err != nil {
		if resp != nil {
			return nil, fmt.Errorf("连接服务器失败 (HTTP %d): %w", resp.StatusCode, err)
		}
		return nil, fmt.Errorf("连接服务器失败: %w", err)
	}
	conn.SetReadLimit(maxMessageSize)
	return conn, nil
}

// await 在启动读协程之前同步读取握手消息，期间收到的其他消息原样返回
func (c *Client) await(ctx context.Context, conn *websocket.Conn, want protocol.MessageType) (*protocol.Message, []*protocol.Message, error) {
	deadline := time.Now().Add(handshakeTimeout)
	if d, ok := ctx.Deadline(); ok && d.Before(deadline) {
		deadline = d
	}
	_ = conn.SetReadDeadline(deadline)
	defer func() { _ = conn.SetReadDeadline(time.Time{}) }()

	var extra []*protocol.Message
	for {
		if err := ctx.Err(); err != nil {
			return nil, nil, err
		}
		_, data, err := conn.ReadMessage()
		if err != nil {
			return nil, nil, fmt.Errorf("等待 %s 失败: %w", want, err)
		}
		msg, err := c.codec.Decode(data)
		if err != nil {
			c.log.Warn("⚠️ 消息解析错误", zap.Error(err))
			continue
		}
		switch msg.Type {
		case want:
			return msg, extra, nil
		case protocol.MsgError:
			p, perr := codec.ParsePayload[protocol.ErrorPayload](msg)
			if perr != nil {
				return nil, nil, perr
			}
			return nil, nil, &ServerError{Code: p.Code, Message: p.Message}
		default:
			extra = append(extra, msg)
		}
	}
}

// install 替换当前连接并启动读写协程
func (c *Client) install(conn *websocket.Conn, pending []*protocol.Message) error {
	l := newLink(conn)

	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		_ = conn.Close()
		return ErrClosed
	}
	old := c.link
	c.link = l
	c.mu.Unlock()

	if old != nil {
		old.close()
	}

	for _, msg := range pending {
		c.deliver(msg)
	}

	go c.readPump(l)
	go c.writePump(l)
	if c.opts.Heartbeat > 0 {
		go c.heartbeat(l)
	}
	return nil
}

func (c *Client) setIdentity(id, name, token string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.playerID = id
	c.playerName = name
	c.token = token
}

// Identity 当前玩家 ID、昵称与恢复令牌
func (c *Client) Identity() (id, name, token string) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.playerID, c.playerName, c.token
}

// Messages 入站消息
func (c *Client) Messages() <-chan *protocol.Message {
	return c.inbound
}

// Latency 最近一次 ping/pong 往返时延
func (c *Client) Latency() time.Duration {
	return time.Duration(c.latency.Load()) * time.Millisecond
}

// Connected 当前是否有可用连接
func (c *Client) Connected() bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return !c.closed && c.link != nil
}

// SendMessage 非阻塞发送
func (c *Client) SendMessage(msg *protocol.Message) error {
	data, err := c.encode(msg)
	if err != nil {
		return err
	}

	c.mu.RLock()
	closed, l := c.closed, c.link
	c.mu.RUnlock()
	if closed {
		return ErrClosed
	}
	if l == nil {
		return ErrNotConnected
	}

	select {
	case <-l.done:
		return ErrNotConnected
	default:
	}
	select {
	case l.send <- data:
		return nil
	default:
		return ErrSendBufferFull
	}
}

func (c *Client) encode(msg *protocol.Message) ([]byte, error) {
	data, err := c.codec.Encode(msg)
	codec.PutMessage(msg)
	return data, err
}

func (c *Client) frameType() int {
	if c.codec.Binary() {
		return websocket.BinaryMessage
	}
	return websocket.TextMessage
}

// Drop 断开当前连接但保留会话，会触发 OnDisconnect
func (c *Client) Drop() {
	c.mu.RLock()
	l := c.link
	c.mu.RUnlock()
	if l != nil {
		_ = l.conn.Close()
	}
}

// Close 关闭客户端，之后不能再连接
func (c *Client) Close() {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return
	}
	c.closed = true
	l := c.link
	c.link = nil
	c.mu.Unlock()

	if l != nil {
		l.shutdown()
	}
}

// detach 读协程退出时调用；只有当前连接断开才算意外断线
func (c *Client) detach(l *link, err error) {
	c.mu.Lock()
	current := c.link == l && !c.closed
	if current {
		c.link = nil
	}
	c.mu.Unlock()

	l.close()
	if !current {
		return
	}
	c.log.Warn("⚠️ 与服务器的连接已断开", zap.Error(err))
	if c.opts.OnDisconnect != nil {
		c.opts.OnDisconnect(err)
	}
}

// deliver 处理内部消息后投递到入站队列
func (c *Client) deliver(msg *protocol.Message) {
	if c.opts.OnActivity != nil {
		c.opts.OnActivity()
	}

	switch msg.Type {
	case protocol.MsgPong:
		if p, err := codec.ParsePayload[protocol.PongPayload](msg); err == nil && p.ClientTimestamp > 0 {
			c.latency.Store(max(0, time.Now().UnixMilli()-p.ClientTimestamp))
		}
	case protocol.MsgReconnected:
		if p, err := codec.ParsePayload[protocol.ReconnectedPayload](msg); err == nil && p.ReconnectToken != "" {
			c.setIdentity(p.PlayerID, p.PlayerName, p.ReconnectToken)
		}
	}

	select {
	case c.inbound <- msg:
	default:
		c.log.Warn("⚠️ 接收缓冲区已满，丢弃消息", zap.String("type", string(msg.Type)))
	}
}

// Expect 阻塞读取直到出现指定类型之一的消息，其余消息被丢弃
func (c *Client) Expect(ctx context.Context, types ...protocol.MessageType) (*protocol.Message, error) {
	for {
		select {
		case msg := <-c.inbound:
			if slices.Contains(types, msg.Type) {
				return msg, nil
			}
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
}
