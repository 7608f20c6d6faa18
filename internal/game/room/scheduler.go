package room

import (
	"time"

	"go.uber.org/zap"

	"github.com/palemoky/call-break/internal/game/engine"
)

// schedule 根据状态机的下一步安排定时推进
// 机器人、收墩、下一局由服务端驱动；真人回合不设定时器
// 没有在线真人时暂停，等待重连
func (r *Room) schedule() {
	r.stopStep()
	if r.closed || r.game == nil || !r.hasOnlineHuman() {
		return
	}

	var delay time.Duration
	switch step := r.game.Pending(); step.Kind {
	case engine.StepBot:
		delay = r.opts.BotDelay
	case engine.StepCollectTrick:
		delay = r.opts.TrickDelay
	case engine.StepNextRound:
		if !r.opts.AutoNextRound {
			return
		}
		delay = r.opts.RoundDelay
	default:
		return
	}

	r.stepGen++
	gen := r.stepGen
	r.stepTimer = r.opts.AfterFunc(delay, func() { r.runStep(gen) })
}

// runStep 定时器回调，gen 过期说明已被取消或重新调度
func (r *Room) runStep(gen uint64) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.closed || r.game == nil || gen != r.stepGen {
		return
	}
	r.stepTimer = nil

	var err error
	switch step := r.game.Pending(); step.Kind {
	case engine.StepBot:
		err = r.game.BotAction(step.Seat)
	case engine.StepCollectTrick:
		err = r.game.CollectTrick()
	case engine.StepNextRound:
		err = r.game.NextRound()
	default:
		return
	}
	if err != nil {
		r.log.Error("❌ 自动推进失败", zap.Error(err))
		return
	}
	r.after()
}

func (r *Room) stopStep() {
	if r.stepTimer != nil {
		r.stepTimer.Stop()
		r.stepTimer = nil
	}
	r.stepGen++
}

// startOfflineTimer 掉线超过宽限期后由机器人托管该座位
func (r *Room) startOfflineTimer(seat int) {
	r.stopOfflineTimer(seat)
	r.offlineGen++
	gen := r.offlineGen
	t := r.opts.AfterFunc(r.opts.OfflineGrace, func() { r.handleOfflineTimeout(seat, gen) })
	r.offline[seat] = offlineTimer{timer: t, gen: gen}
}

func (r *Room) stopOfflineTimer(seat int) {
	if ot, ok := r.offline[seat]; ok {
		ot.timer.Stop()
		delete(r.offline, seat)
	}
}

func (r *Room) handleOfflineTimeout(seat int, gen uint64) {
	r.mu.Lock()
	defer r.mu.Unlock()

	ot, ok := r.offline[seat]
	if r.closed || !ok || ot.gen != gen {
		return
	}
	delete(r.offline, seat)

	p := r.Players[seat]
	if p == nil || p.Online || r.game == nil {
		return
	}
	if err := r.game.SetAutoPlay(seat, true); err != nil {
		r.log.Error("❌ 托管失败", zap.Int("seat", seat), zap.Error(err))
		return
	}
	r.log.Info("🤖 玩家离线超时，机器人托管", zap.String("player", p.Name), zap.Int("seat", seat))
	r.after()
}

// Destroy 关闭房间并取消所有定时器
func (r *Room) Destroy() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.destroy()
}

func (r *Room) destroy() {
	if r.closed {
		return
	}
	r.closed = true
	r.stopStep()
	for seat := range r.offline {
		r.stopOfflineTimer(seat)
	}
}

// Closed 房间是否已关闭
func (r *Room) Closed() bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.closed
}
