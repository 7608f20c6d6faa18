package replica

import (
	"sync"

	"github.com/palemoky/call-break/internal/protocol"
)

// Publisher 服务端按观察者记录最后下发的状态，决定发送全量还是增量
type Publisher struct {
	mu   sync.Mutex
	last map[string]protocol.GameStateDTO
}

// NewPublisher 创建发布器
func NewPublisher() *Publisher {
	return &Publisher{last: make(map[string]protocol.GameStateDTO)}
}

// Update 为观察者生成下一条同步消息
// 首次或 Reset 后返回 state_sync；之后返回 state_patch；无变化时 ok 为 false
func (p *Publisher) Update(observer string, state protocol.GameStateDTO) (protocol.MessageType, any, bool) {
	p.mu.Lock()
	defer p.mu.Unlock()

	prev, ok := p.last[observer]
	if !ok {
		state.Version = 1
		p.last[observer] = state
		return protocol.MsgStateSync, state, true
	}

	state.Version = prev.Version + 1
	patch := Diff(prev, state)
	if Empty(patch) {
		return "", nil, false
	}
	p.last[observer] = state
	return protocol.MsgStatePatch, patch, true
}

// Full 强制下发全量状态，版本号延续
func (p *Publisher) Full(observer string, state protocol.GameStateDTO) protocol.GameStateDTO {
	p.mu.Lock()
	defer p.mu.Unlock()

	state.Version = p.last[observer].Version + 1
	p.last[observer] = state
	return state
}

// Forget 移除观察者
func (p *Publisher) Forget(observer string) {
	p.mu.Lock()
	defer p.mu.Unlock()
	delete(p.last, observer)
}

// Version 观察者最后一次下发的版本
func (p *Publisher) Version(observer string) int64 {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.last[observer].Version
}
