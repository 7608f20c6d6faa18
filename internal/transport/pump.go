package transport

import (
	"errors"
	"time"

	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"github.com/palemoky/call-break/internal/logger"
)

// readPump 从服务器读取消息，退出时判定是否为意外断线
func (c *Client) readPump(l *link) {
	var readErr error
	defer func() {
		if r := recover(); r != nil {
			logger.LogPanic(r)
		}
		c.detach(l, readErr)
	}()

	_ = l.conn.SetReadDeadline(time.Now().Add(pongWait))
	l.conn.SetPongHandler(func(string) error {
		return l.conn.SetReadDeadline(time.Now().Add(pongWait))
	})

	for {
		_, data, err := l.conn.ReadMessage()
		if err != nil {
			readErr = err
			return
		}
		// 任何入站帧都说明链路存活
		_ = l.conn.SetReadDeadline(time.Now().Add(pongWait))

		msg, err := c.codec.Decode(data)
		if err != nil {
			c.log.Warn("⚠️ 消息解析错误", zap.Error(err))
			continue
		}
		c.deliver(msg)
	}
}

// writePump 向服务器写入消息，并定期发送 websocket ping
func (c *Client) writePump(l *link) {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		if r := recover(); r != nil {
			logger.LogPanic(r)
		}
		ticker.Stop()
		close(l.stopped)
		l.close()
	}()

	for {
		select {
		case data := <-l.send:
			_ = l.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := l.conn.WriteMessage(c.frameType(), data); err != nil {
				return
			}

		case <-ticker.C:
			_ = l.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := l.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}

		case <-l.stop:
			_ = l.conn.SetWriteDeadline(time.Now().Add(writeWait))
			_ = l.conn.WriteMessage(websocket.CloseMessage,
				websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""))
			return

		case <-l.done:
			return
		}
	}
}

// heartbeat 定期发送应用层 ping，pong 用于计算延迟并刷新连接监测
func (c *Client) heartbeat(l *link) {
	ticker := time.NewTicker(c.opts.Heartbeat)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			if err := c.Ping(); err != nil && !errors.Is(err, ErrSendBufferFull) {
				return
			}
		case <-l.done:
			return
		}
	}
}
