package match

import (
	"context"
	"slices"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/palemoky/call-break/internal/game/room"
	"github.com/palemoky/call-break/internal/game/rule"
	"github.com/palemoky/call-break/internal/protocol"
	"github.com/palemoky/call-break/internal/protocol/codec"
	"github.com/palemoky/call-break/internal/types"
)

const (
	defaultWaitTimeout = 15 * time.Second
	storeTimeout       = 2 * time.Second
)

// RoomCreator 为匹配成功的玩家开房
type RoomCreator interface {
	CreateMatchRoom(clients []types.ClientInterface) (*room.Room, error)
}

// QueueStore 匹配队列的外部镜像（用于监控和多实例观察）
type QueueStore interface {
	AddToMatchQueue(ctx context.Context, playerID string) error
	RemoveFromMatchQueue(ctx context.Context, playerID string) error
}

// MatcherDeps 匹配器依赖，均可为空
type MatcherDeps struct {
	Rooms       RoomCreator
	Store       QueueStore
	Logger      *zap.Logger
	WaitTimeout time.Duration // 队首玩家等待多久后补机器人开局
	AfterFunc   room.AfterFunc
}

// Matcher 匹配系统：凑满四人开局，等待超时则用机器人补位
type Matcher struct {
	rooms       RoomCreator
	store       QueueStore
	log         *zap.Logger
	waitTimeout time.Duration
	afterFunc   room.AfterFunc

	queue    []types.ClientInterface
	timer    room.Timer
	timerGen uint64
	mu       sync.Mutex
}

// NewMatcher 创建匹配器
func NewMatcher(deps MatcherDeps) *Matcher {
	if deps.Logger == nil {
		deps.Logger = zap.NewNop()
	}
	if deps.WaitTimeout <= 0 {
		deps.WaitTimeout = defaultWaitTimeout
	}
	if deps.AfterFunc == nil {
		deps.AfterFunc = func(d time.Duration, f func()) room.Timer { return time.AfterFunc(d, f) }
	}
	return &Matcher{
		rooms:       deps.Rooms,
		store:       deps.Store,
		log:         deps.Logger,
		waitTimeout: deps.WaitTimeout,
		afterFunc:   deps.AfterFunc,
		queue:       make([]types.ClientInterface, 0),
	}
}

// AddToQueue 加入匹配队列
func (m *Matcher) AddToQueue(client types.ClientInterface) {
	m.mu.Lock()

	// 检查是否已在队列中
	if m.indexOf(client.GetID()) >= 0 {
		m.mu.Unlock()
		return
	}

	m.queue = append(m.queue, client)
	size := len(m.queue)
	m.log.Info("🔍 玩家加入匹配队列", zap.String("player", client.GetName()), zap.Int("queue", size))

	var group []types.ClientInterface
	if size >= rule.PlayerCount {
		group = m.take(rule.PlayerCount)
	}
	m.rearm()
	m.mu.Unlock()

	m.mirrorAdd(client.GetID())
	client.SendMessage(codec.MustNewMessage(protocol.MsgMatchQueued, protocol.MatchQueuedPayload{
		QueueSize: size,
		WaitSecs:  int(m.waitTimeout / time.Second),
	}))

	if group != nil {
		m.createMatchRoom(group)
	}
}

// RemoveFromQueue 从匹配队列移除
func (m *Matcher) RemoveFromQueue(client types.ClientInterface) {
	m.mu.Lock()
	i := m.indexOf(client.GetID())
	if i < 0 {
		m.mu.Unlock()
		return
	}
	m.queue = slices.Delete(m.queue, i, i+1)
	m.rearm()
	m.mu.Unlock()

	m.mirrorRemove(client.GetID())
	m.log.Info("🔍 玩家离开匹配队列", zap.String("player", client.GetName()))
}

// GetQueueLength 获取队列长度
func (m *Matcher) GetQueueLength() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.queue)
}

// Stop 取消等待计时
func (m *Matcher) Stop() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.stopTimer()
}

func (m *Matcher) indexOf(id string) int {
	return slices.IndexFunc(m.queue, func(c types.ClientInterface) bool { return c.GetID() == id })
}

// take 取出队首 n 个玩家，调用方需持有 mu
func (m *Matcher) take(n int) []types.ClientInterface {
	n = min(n, len(m.queue))
	group := slices.Clone(m.queue[:n])
	m.queue = slices.Delete(m.queue, 0, n)
	return group
}

// rearm 队列非空时保证有一个等待计时，队列清空时取消
func (m *Matcher) rearm() {
	if len(m.queue) == 0 {
		m.stopTimer()
		return
	}
	if m.timer != nil {
		return
	}
	m.timerGen++
	gen := m.timerGen
	m.timer = m.afterFunc(m.waitTimeout, func() { m.onWaitTimeout(gen) })
}

func (m *Matcher) stopTimer() {
	if m.timer != nil {
		m.timer.Stop()
		m.timer = nil
	}
	m.timerGen++
}

// onWaitTimeout 等待超时，队列中的玩家与机器人组局
func (m *Matcher) onWaitTimeout(gen uint64) {
	m.mu.Lock()
	if gen != m.timerGen {
		m.mu.Unlock()
		return
	}
	m.timer = nil
	group := m.take(rule.PlayerCount)
	m.rearm()
	m.mu.Unlock()

	if len(group) > 0 {
		m.log.Info("⏰ 匹配等待超时，机器人补位", zap.Int("humans", len(group)))
		m.createMatchRoom(group)
	}
}

// createMatchRoom 创建匹配房间，失败时把玩家放回队首
func (m *Matcher) createMatchRoom(players []types.ClientInterface) {
	for _, c := range players {
		m.mirrorRemove(c.GetID())
	}
	if m.rooms == nil {
		return
	}

	if _, err := m.rooms.CreateMatchRoom(players); err != nil {
		m.log.Error("❌ 匹配创建房间失败", zap.Error(err))
		m.mu.Lock()
		m.queue = append(slices.Clone(players), m.queue...)
		m.rearm()
		m.mu.Unlock()
		for _, c := range players {
			c.SendMessage(codec.NewErrorMessageWithText(protocol.ErrCodeUnknown, "匹配失败，正在重试"))
		}
	}
}

func (m *Matcher) mirrorAdd(id string) {
	if m.store == nil {
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), storeTimeout)
	defer cancel()
	if err := m.store.AddToMatchQueue(ctx, id); err != nil {
		m.log.Warn("⚠️ 同步匹配队列失败", zap.Error(err))
	}
}

func (m *Matcher) mirrorRemove(id string) {
	if m.store == nil {
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), storeTimeout)
	defer cancel()
	if err := m.store.RemoveFromMatchQueue(ctx, id); err != nil {
		m.log.Warn("⚠️ 同步匹配队列失败", zap.Error(err))
	}
}
