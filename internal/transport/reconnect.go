package transport

import (
	"context"
	"errors"
	"sync"
	"time"

	"go.uber.org/zap"
)

const (
	DefaultMaxAttempts    = 3
	DefaultBaseDelay      = 2 * time.Second
	DefaultAttemptTimeout = 10 * time.Second

	reconnectEventBuffer = 16
)

// ErrSessionLost 服务端明确拒绝恢复（令牌失效或房间已销毁），不再重试
var ErrSessionLost = errors.New("会话已失效")

// ReconnectEventKind 重连进度类型
type ReconnectEventKind string

const (
	ReconnectReconnecting ReconnectEventKind = "reconnecting"
	ReconnectSucceeded    ReconnectEventKind = "succeeded"
	ReconnectFailed       ReconnectEventKind = "failed"
)

// ReconnectEvent 重连进度
type ReconnectEvent struct {
	Kind    ReconnectEventKind
	Attempt int
	Delay   time.Duration // reconnecting 时为距本次尝试的等待时间
	Err     error         // failed 时为最后一次失败原因
}

// ResumeFunc 使用令牌恢复会话，成功时返回轮换后的新令牌
type ResumeFunc func(ctx context.Context, token string) (string, error)

// Timer 可取消的定时器
type Timer interface {
	Stop() bool
}

// ReconnectOptions 重连配置
type ReconnectOptions struct {
	MaxAttempts    int
	BaseDelay      time.Duration
	AttemptTimeout time.Duration
	Resume         ResumeFunc
	AfterFunc      func(d time.Duration, f func()) Timer
	Logger         *zap.Logger
}

// Reconnector 有限次数、指数退避的会话恢复
//
// 第 n 次尝试在 BaseDelay×2^(n-1) 之后进行（默认 2s、4s、8s）。
// Cancel/Reset 会停止定时器并使在途结果作废。
type Reconnector struct {
	opts ReconnectOptions
	log  *zap.Logger

	mu           sync.Mutex
	token        string
	attempt      int
	reconnecting bool
	gen          uint64
	timer        Timer
	cancel       context.CancelFunc
	events       chan ReconnectEvent
}

// NewReconnector 创建重连处理器
func NewReconnector(opts ReconnectOptions) *Reconnector {
	if opts.MaxAttempts <= 0 {
		opts.MaxAttempts = DefaultMaxAttempts
	}
	if opts.BaseDelay <= 0 {
		opts.BaseDelay = DefaultBaseDelay
	}
	if opts.AttemptTimeout <= 0 {
		opts.AttemptTimeout = DefaultAttemptTimeout
	}
	if opts.AfterFunc == nil {
		opts.AfterFunc = func(d time.Duration, f func()) Timer { return time.AfterFunc(d, f) }
	}
	log := opts.Logger
	if log == nil {
		log = zap.NewNop()
	}
	return &Reconnector{
		opts:   opts,
		log:    log,
		events: make(chan ReconnectEvent, reconnectEventBuffer),
	}
}

// SetToken 保存恢复令牌（连接成功或令牌轮换时调用）
func (r *Reconnector) SetToken(token string) {
	r.mu.Lock()
	r.token = token
	r.mu.Unlock()
}

// Token 当前恢复令牌，重连耗尽后为空
func (r *Reconnector) Token() string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.token
}

// Reconnecting 是否正在重连
func (r *Reconnector) Reconnecting() bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.reconnecting
}

// Attempt 当前尝试次数
func (r *Reconnector) Attempt() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.attempt
}

// Events 重连进度事件
func (r *Reconnector) Events() <-chan ReconnectEvent {
	return r.events
}

// HandleDisconnect 处理意外断线；已在重连中时为空操作
func (r *Reconnector) HandleDisconnect() {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.reconnecting {
		return
	}
	if r.token == "" {
		r.emitLocked(ReconnectEvent{Kind: ReconnectFailed, Err: ErrSessionLost})
		return
	}

	r.reconnecting = true
	r.attempt = 0
	r.gen++
	r.scheduleLocked()
}

// Cancel 中止重连，保留令牌
func (r *Reconnector) Cancel() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.abortLocked()
}

// Reset 中止重连并丢弃令牌（会话被主动销毁时调用）
func (r *Reconnector) Reset() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.abortLocked()
	r.token = ""
}

func (r *Reconnector) abortLocked() {
	r.gen++
	if r.timer != nil {
		r.timer.Stop()
		r.timer = nil
	}
	if r.cancel != nil {
		r.cancel()
		r.cancel = nil
	}
	r.reconnecting = false
	r.attempt = 0
}

func (r *Reconnector) scheduleLocked() {
	r.attempt++
	attempt := r.attempt
	gen := r.gen
	delay := r.opts.BaseDelay << (attempt - 1)

	r.log.Info("🔄 准备重连",
		zap.Int("attempt", attempt),
		zap.Int("max", r.opts.MaxAttempts),
		zap.Duration("delay", delay))
	r.emitLocked(ReconnectEvent{Kind: ReconnectReconnecting, Attempt: attempt, Delay: delay})
	r.timer = r.opts.AfterFunc(delay, func() { r.try(gen, attempt) })
}

// try 定时器回调，gen 过期说明已被取消
func (r *Reconnector) try(gen uint64, attempt int) {
	r.mu.Lock()
	if gen != r.gen || !r.reconnecting {
		r.mu.Unlock()
		return
	}
	r.timer = nil
	token := r.token
	ctx, cancel := context.WithTimeout(context.Background(), r.opts.AttemptTimeout)
	r.cancel = cancel
	r.mu.Unlock()

	newToken, err := r.opts.Resume(ctx, token)
	cancel()

	r.mu.Lock()
	defer r.mu.Unlock()
	if gen != r.gen {
		return
	}
	r.cancel = nil

	if err == nil {
		r.attempt = 0
		r.reconnecting = false
		if newToken != "" {
			r.token = newToken
		}
		r.log.Info("✅ 重连成功", zap.Int("attempt", attempt))
		r.emitLocked(ReconnectEvent{Kind: ReconnectSucceeded, Attempt: attempt})
		return
	}

	r.log.Warn("⚠️ 重连失败", zap.Int("attempt", attempt), zap.Error(err))
	if attempt < r.opts.MaxAttempts && !errors.Is(err, ErrSessionLost) {
		r.scheduleLocked()
		return
	}

	r.token = ""
	r.reconnecting = false
	r.log.Error("❌ 重连失败，会话已丢失", zap.Int("attempts", attempt))
	r.emitLocked(ReconnectEvent{Kind: ReconnectFailed, Attempt: attempt, Err: err})
}

func (r *Reconnector) emitLocked(ev ReconnectEvent) {
	select {
	case r.events <- ev:
	default:
		r.log.Warn("⚠️ 重连事件队列已满，丢弃事件", zap.String("kind", string(ev.Kind)))
	}
}
