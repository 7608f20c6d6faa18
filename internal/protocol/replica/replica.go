package replica

import (
	"sync"

	"github.com/palemoky/call-break/internal/protocol"
)

// Replica 客户端持有的状态副本
type Replica struct {
	mu     sync.RWMutex
	state  protocol.GameStateDTO
	synced bool
}

// Sync 用全量状态覆盖本地副本
func (r *Replica) Sync(state protocol.GameStateDTO) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.state = state
	r.synced = true
}

// Apply 应用增量；版本不连续时返回 ErrVersionGap，调用方应发送 sync_request
func (r *Replica) Apply(p protocol.StatePatch) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if !r.synced {
		return ErrVersionGap
	}
	next, err := Apply(r.state, p)
	if err != nil {
		return err
	}
	r.state = next
	return nil
}

// Invalidate 丢弃本地副本（如断线后），等待下一次全量同步
func (r *Replica) Invalidate() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.synced = false
}

// State 返回副本及其是否有效
func (r *Replica) State() (protocol.GameStateDTO, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.state, r.synced
}

// Version 当前版本，未同步时为 0
func (r *Replica) Version() int64 {
	r.mu.RLock()
	defer r.mu.RUnlock()
	if !r.synced {
		return 0
	}
	return r.state.Version
}
